package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Yates-Labs/storyforge/internal/config"
	"github.com/Yates-Labs/storyforge/internal/telemetry"
)

var (
	configPath string
	logLevel   string

	cfg      *config.Config
	logger   *log.Logger
	shutdown = func(context.Context) error { return nil }
)

var rootCmd = &cobra.Command{
	Use:   "storyforge",
	Short: "StoryForge - Multi-stage story generation pipeline",
	Long: `StoryForge turns a one-line story idea into a structured, multi-episode story.

It proposes narrative perspectives, condenses them into flash cards, expands
the chosen one into a story bible, outlines episodes and scenes, writes every
scene and compiles the result into a single manuscript.

Configuration is read from storyforge.yaml (or --config), then overridden by
environment variables such as OPENAI_API_KEY, STORYFORGE_MODEL and
MILVUS_ADDRESS. A .env file in the working directory is loaded first.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file (default: ./storyforge.yaml when present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the log level: debug, info, warn or error")
}

func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		loaded.Log.Level = logLevel
	}
	cfg = loaded
	logger = cfg.Log.Logger(os.Stderr)

	stop, err := telemetry.Setup(cmd.Context(), cfg.Telemetry.Endpoint, cfg.Telemetry.ServiceName)
	if err != nil {
		logger.Warn("tracing disabled", "err", err)
		return nil
	}
	shutdown = stop
	return nil
}

// Execute runs the root command
func Execute() {
	// Load .env file if it exists
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if serr := shutdown(flushCtx); serr != nil && logger != nil {
		logger.Warn("flushing traces", "err", serr)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
