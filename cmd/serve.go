package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/Yates-Labs/storyforge/internal/intake"
	"github.com/Yates-Labs/storyforge/internal/server"
)

var addr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the story stages over HTTP",
	Long: `Start the HTTP API.

Endpoints:
  GET  /                      status and endpoint list
  POST /generate              {query} -> perspectives
  POST /generate-story-bible  {perspective, parameters, prompt} -> storyBible
  POST /generate_episode      {storyBible, episodeNumber, previousEpisodes} -> episode
  POST /pipeline              {query} -> full pipeline result
  POST /requests              {query} -> queued request (needs a document store)
  GET  /requests/:id          request status and result

Examples:
  storyforge serve
  storyforge serve --addr :8080`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if addr != "" {
		cfg.Server.Addr = addr
	}

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	opts := []server.Option{server.WithPipeline(a.pipeline), server.WithLogger(logger)}
	if docs := a.memory.Documents(); docs != nil {
		q, err := intake.NewQueue(docs, intake.WithLogger(logger))
		if err != nil {
			return err
		}
		opts = append(opts, server.WithQueue(q))
	}
	srv := server.New(a.stages, opts...)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(cfg.Server.Addr) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
