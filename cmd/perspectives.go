package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Yates-Labs/storyforge/internal/story"
)

var (
	perspectivesExport string
	withFlashCards     bool
)

var perspectivesCmd = &cobra.Command{
	Use:   "perspectives [idea]",
	Short: "Propose narrative perspectives for an idea",
	Long: `Generate the 4 candidate perspectives for a story idea and display them.

Each perspective shows:
- Index (pass it to forge --perspective)
- Type
- Title
- Preview

Examples:
  storyforge perspectives "a lighthouse keeper who hides shipwrecks"
  storyforge perspectives "a haunted vineyard" --flash-cards
  storyforge perspectives "a haunted vineyard" --export perspectives.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPerspectives,
}

func init() {
	rootCmd.AddCommand(perspectivesCmd)
	perspectivesCmd.Flags().StringVar(&perspectivesExport, "export", "", "Export perspectives to JSON file: --export <filename>")
	perspectivesCmd.Flags().BoolVar(&withFlashCards, "flash-cards", false, "Also generate flash cards for every perspective")
}

func runPerspectives(cmd *cobra.Command, args []string) error {
	idea := strings.Join(args, " ")
	ctx := cmd.Context()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("%s %w", errorStyle.Render("Error:"), err)
	}
	defer a.Close()

	perspectives := a.stages.GeneratePerspectives(ctx, idea)

	var cards []story.FlashCardSet
	if withFlashCards {
		cards = make([]story.FlashCardSet, len(perspectives))
		for i, p := range perspectives {
			cards[i] = a.stages.GenerateFlashCards(ctx, p)
		}
	}

	if perspectivesExport != "" {
		return exportPerspectives(perspectives, cards, perspectivesExport)
	}

	outputTable(perspectives, cards)
	return nil
}

func exportPerspectives(perspectives []story.Perspective, cards []story.FlashCardSet, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(struct {
		Perspectives []story.Perspective  `json:"perspectives"`
		FlashCards   []story.FlashCardSet `json:"flash_cards,omitempty"`
	}{perspectives, cards}); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	fmt.Printf("✓ Exported %d perspectives to %s\n", len(perspectives), filename)
	return nil
}

func outputTable(perspectives []story.Perspective, cards []story.FlashCardSet) {
	// Column widths
	const (
		indexWidth   = 7
		typeWidth    = 14
		titleWidth   = 28
		previewWidth = 60
	)

	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	heading := cellStyle.Foreground(headerColor).Bold(true)

	// Print header
	headers := []string{
		heading.Width(indexWidth).Render("#"),
		heading.Width(typeWidth).Render("TYPE"),
		heading.Width(titleWidth).Render("TITLE"),
		heading.Width(previewWidth).Render("PREVIEW"),
	}
	fmt.Println(strings.Join(headers, borderStyle.Render("│")))

	separatorParts := []string{
		strings.Repeat("─", indexWidth),
		strings.Repeat("─", typeWidth),
		strings.Repeat("─", titleWidth),
		strings.Repeat("─", previewWidth),
	}
	fmt.Println(borderStyle.Render(strings.Join(separatorParts, "┼")))

	for i, p := range perspectives {
		cells := []string{
			cellStyle.Foreground(numberColor).Width(indexWidth).Align(lipgloss.Right).Render(fmt.Sprintf("%d", i)),
			cellStyle.Foreground(accentColor).Width(typeWidth).Render(p.Type),
			cellStyle.Foreground(titleColor).Width(titleWidth).Render(p.Title),
			cellStyle.Foreground(textColor).Width(previewWidth).Render(p.Preview),
		}
		fmt.Println(strings.Join(cells, borderStyle.Render("│")))
	}

	if len(cards) == 0 {
		return
	}

	fmt.Println()
	for i, set := range cards {
		fmt.Println(headerStyle.Render(fmt.Sprintf("Flash cards: %s", perspectives[i].Title)))
		printCards("Characters", set.Characters)
		printCards("Plot points", set.PlotPoints)
		printCards("World", set.WorldBuilding)
		printCards("Conflicts", set.Conflicts)
		fmt.Println()
	}
}

func printCards(label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Println(mutedStyle.Render("  " + label + ":"))
	for _, item := range items {
		fmt.Println(textStyle.Render("    • " + item))
	}
}
