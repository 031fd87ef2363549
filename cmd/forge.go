package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Yates-Labs/storyforge/internal/orchestrator"
	"github.com/Yates-Labs/storyforge/internal/story"
)

var (
	exportFile   string
	exportFormat string
	episodes     int
	scenes       int
	perspective  int
	showStory    bool
)

var forgeCmd = &cobra.Command{
	Use:   "forge [idea]",
	Short: "Run the full story pipeline for an idea",
	Long: `Run every pipeline stage for a one-line story idea.

This command:
1. Proposes 4 narrative perspectives and flash cards for each
2. Expands the chosen perspective into a story bible
3. Outlines episodes and writes every scene
4. Compiles the manuscript and, when enabled, generates cover art

Required environment variables:
  OPENAI_API_KEY     - OpenAI API key (or GEMINI_API_KEY with provider gemini)

Examples:
  storyforge forge "a lighthouse keeper who hides shipwrecks"
  storyforge forge "a heist on a generation ship" --episodes 5 --scenes 2
  storyforge forge "a haunted vineyard" --export story.json
  storyforge forge "a haunted vineyard" --export story.txt --format text`,
	Args: cobra.MinimumNArgs(1),
	RunE: runForge,
}

func init() {
	rootCmd.AddCommand(forgeCmd)
	forgeCmd.Flags().StringVar(&exportFile, "export", "", "Export the result to a file: --export <filename>")
	forgeCmd.Flags().StringVar(&exportFormat, "format", "json", "Export format: json, summary or text")
	forgeCmd.Flags().IntVar(&episodes, "episodes", 0, "Number of episodes (overrides config)")
	forgeCmd.Flags().IntVar(&scenes, "scenes", 0, "Scenes per episode (overrides config)")
	forgeCmd.Flags().IntVar(&perspective, "perspective", -1, "Perspective (0-3) the story bible is built from")
	forgeCmd.Flags().BoolVar(&showStory, "story", false, "Print the full compiled story")
}

func runForge(cmd *cobra.Command, args []string) error {
	idea := strings.Join(args, " ")
	ctx := cmd.Context()

	if episodes > 0 {
		cfg.Pipeline.Episodes = episodes
	}
	if scenes > 0 {
		cfg.Pipeline.ScenesPerEpisode = scenes
	}
	if perspective >= 0 {
		cfg.Pipeline.PerspectiveIndex = perspective
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("%s %w", errorStyle.Render("Error:"), err)
	}
	defer a.Close()

	fmt.Println()
	fmt.Println(headerStyle.Render("Story idea:"))
	fmt.Println(queryStyle.Render(idea))
	fmt.Println()
	fmt.Println(mutedStyle.Render(fmt.Sprintf("→ Forging %d episodes of %d scenes...",
		a.pipeline.Config().Episodes, a.pipeline.Config().ScenesPerEpisode)))

	res, err := a.pipeline.Run(ctx, idea)
	if err != nil {
		return fmt.Errorf("%s %w", errorStyle.Render("Error:"), err)
	}

	if exportFile != "" {
		if err := handleExport(res, exportFile, exportFormat); err != nil {
			return err
		}
	}

	printResult(res)
	if !res.Success {
		return fmt.Errorf("%s %s", errorStyle.Render("Pipeline failed:"), res.Error)
	}
	return nil
}

func handleExport(res *story.Result, filename, format string) error {
	// Create output file
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer file.Close()

	if err := orchestrator.ExportResult(res, format, file); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	fmt.Println(successStyle.Render(fmt.Sprintf("✓ Exported run %s to %s", res.RunID, filename)))
	return nil
}

func printResult(res *story.Result) {
	fmt.Println()
	if res.StoryBible != nil {
		fmt.Println(headerStyle.Render(string(res.StoryBible.Title)))
		if res.StoryBible.Tagline != "" {
			fmt.Println(queryStyle.Render(string(res.StoryBible.Tagline)))
		}
		fmt.Println()
	}

	if len(res.Perspectives) > 0 {
		fmt.Println(headerStyle.Render("Perspectives:"))
		for i, p := range res.Perspectives {
			fmt.Printf("  %s %s\n",
				lipgloss.NewStyle().Foreground(numberColor).Render(fmt.Sprintf("%d.", i)),
				textStyle.Render(fmt.Sprintf("%s (%s)", p.Title, p.Type)))
		}
		fmt.Println()
	}

	if len(res.Episodes) > 0 {
		fmt.Println(headerStyle.Render("Episodes:"))
		titleStyle := lipgloss.NewStyle().Foreground(titleColor)
		for i, ep := range res.Episodes {
			fmt.Printf("  %s %s %s\n",
				lipgloss.NewStyle().Foreground(numberColor).Render(fmt.Sprintf("%d.", i+1)),
				titleStyle.Render(string(ep.Episode.Title)),
				mutedStyle.Render(fmt.Sprintf("(%d scenes)", len(ep.Scenes))))
		}
		fmt.Println()
	}

	if showStory && res.FullStory != "" {
		fmt.Println(textStyle.Render(strings.TrimSpace(res.FullStory)))
		fmt.Println()
	}

	if res.CoverImageURL != "" {
		fmt.Println(mutedStyle.Render("Cover: " + res.CoverImageURL))
	}

	sum := orchestrator.Summarize(res)
	summary := fmt.Sprintf("Total: %d episodes, %d scenes, %d words, %d consistency memories in %s",
		sum.EpisodeCount, sum.SceneCount, sum.WordCount, len(res.ConsistencyCheck), sum.Duration)
	fmt.Println(lipgloss.NewStyle().Foreground(accentColor).Italic(true).Render(summary))
}
