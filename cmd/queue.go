package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Yates-Labs/storyforge/internal/intake"
)

var errNoStorage = errors.New("the request queue needs a document store: set storage.path or STORYFORGE_DB")

var (
	once         bool
	pollInterval time.Duration
)

var submitCmd = &cobra.Command{
	Use:   "submit [idea]",
	Short: "Queue a story idea for a worker",
	Long: `Store a story idea as a pending request in the document store.

A worker started with "storyforge work" claims the newest pending request,
runs the pipeline and records the result.

Examples:
  STORYFORGE_DB=forge.db storyforge submit "a lighthouse keeper who hides shipwrecks"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSubmit,
}

var workCmd = &cobra.Command{
	Use:   "work",
	Short: "Process queued story requests",
	Long: `Claim pending requests from the document store and run the pipeline for each.

Requests are processed newest first. Each request is marked processing when
claimed and done or failed once its result is stored.

Examples:
  storyforge work --once
  storyforge work --poll 30s`,
	Args: cobra.NoArgs,
	RunE: runWork,
}

func init() {
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(workCmd)
	workCmd.Flags().BoolVar(&once, "once", false, "Process pending requests until the queue is empty, then exit")
	workCmd.Flags().DurationVar(&pollInterval, "poll", 10*time.Second, "Wait between checks when the queue is empty")
}

func runSubmit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	mem := buildMemory(ctx, cfg, logger)
	defer mem.Close()
	if mem.Documents() == nil {
		return errNoStorage
	}

	q, err := intake.NewQueue(mem.Documents(), intake.WithLogger(logger))
	if err != nil {
		return err
	}
	id, err := q.Submit(ctx, strings.Join(args, " "))
	if err != nil {
		return fmt.Errorf("%s %w", errorStyle.Render("Error:"), err)
	}

	fmt.Println(successStyle.Render("✓ Queued request " + id))
	return nil
}

func runWork(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("%s %w", errorStyle.Render("Error:"), err)
	}
	defer a.Close()
	if a.memory.Documents() == nil {
		return errNoStorage
	}

	q, err := intake.NewQueue(a.memory.Documents(), intake.WithLogger(logger))
	if err != nil {
		return err
	}

	for {
		req, err := q.Process(ctx, a.pipeline)
		switch {
		case errors.Is(err, intake.ErrNoPending):
			if once {
				fmt.Println(mutedStyle.Render("No pending requests"))
				return nil
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(pollInterval):
			}
			continue
		case err != nil && req == nil:
			return err
		case err != nil:
			logger.Error("request failed", "id", req.ID, "err", err)
		}

		line := fmt.Sprintf("%s request %s: %s", req.Status, req.ID, req.Query)
		if req.Status == intake.StatusDone {
			fmt.Println(successStyle.Render("✓ " + line))
		} else {
			fmt.Println(errorStyle.Render("✗ " + line))
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}
