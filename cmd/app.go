package cmd

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/Yates-Labs/storyforge/internal/config"
	"github.com/Yates-Labs/storyforge/internal/memory"
	"github.com/Yates-Labs/storyforge/internal/narrative"
	"github.com/Yates-Labs/storyforge/internal/orchestrator"
	"github.com/Yates-Labs/storyforge/internal/stage"
	"github.com/Yates-Labs/storyforge/internal/tokens"
)

// app is everything a command needs to generate stories.
type app struct {
	stages   *stage.Stages
	pipeline *orchestrator.Pipeline
	memory   *memory.Store
}

func (a *app) Close() error {
	return a.memory.Close()
}

// newApp wires the provider, memory backends and stages from c.
func newApp(ctx context.Context, c *config.Config, logger *log.Logger) (*app, error) {
	llm, err := narrative.NewLLM(ctx, c.LLM.Narrative())
	if err != nil {
		return nil, fmt.Errorf("creating LLM client: %w", err)
	}

	gen := narrative.NewGenerator(llm, c.LLM.Narrative(),
		narrative.WithRateLimit(c.LLM.RequestsPerMinute, c.LLM.Burst),
		narrative.WithRetry(c.LLM.MaxAttempts, c.LLM.BackoffBase),
		narrative.WithAttemptTimeout(c.LLM.AttemptTimeout),
		narrative.WithLogger(logger),
	)

	mem := buildMemory(ctx, c, logger)

	stages := stage.New(gen, mem,
		stage.WithTokenCounter(tokenCounter(c.LLM.Model, logger)),
		stage.WithContextBudget(c.LLM.ContextBudget),
		stage.WithWorkers(c.Pipeline.Workers),
		stage.WithLogger(logger),
	)

	opts := []orchestrator.Option{orchestrator.WithLogger(logger)}
	if c.LLM.Images {
		il, err := narrative.NewOpenAIIllustrator(openAIKey(c))
		if err != nil {
			logger.Warn("cover art disabled", "err", err)
		} else {
			opts = append(opts, orchestrator.WithIllustrator(il))
		}
	}

	return &app{
		stages:   stages,
		pipeline: orchestrator.NewPipeline(stages, c.Pipeline, opts...),
		memory:   mem,
	}, nil
}

// buildMemory assembles the memory store. Unreachable backends are logged
// and left out; the store works without any of them.
func buildMemory(ctx context.Context, c *config.Config, logger *log.Logger) *memory.Store {
	opts := []memory.Option{memory.WithLogger(logger)}

	var embedder memory.Embedder
	switch c.Embedding.Provider {
	case "openai":
		e, err := memory.NewOpenAIEmbedder(openAIKey(c), c.Embedding.Model, c.Embedding.Dimension)
		if err != nil {
			logger.Warn("openai embedder unavailable, falling back to hashing", "err", err)
			embedder = memory.NewHashEmbedder(c.Embedding.Dimension)
		} else {
			embedder = e
		}
	case "hash":
		embedder = memory.NewHashEmbedder(c.Embedding.Dimension)
	}
	if embedder != nil {
		opts = append(opts, memory.WithEmbedder(embedder))
	}

	if embedder != nil {
		var index memory.VectorIndex = memory.NewLocalIndex()
		if c.Milvus.Address != "" {
			m, err := memory.NewMilvusIndex(ctx, c.Milvus)
			if err != nil {
				logger.Warn("milvus unavailable, using in-process index", "addr", c.Milvus.Address, "err", err)
			} else {
				index = m
			}
		}
		opts = append(opts, memory.WithIndex(index))
	}

	if c.Storage.Path != "" {
		docs, err := memory.OpenSQLiteDocuments(c.Storage.Path)
		if err != nil {
			logger.Warn("document store unavailable, records kept in memory only", "path", c.Storage.Path, "err", err)
		} else {
			opts = append(opts, memory.WithDocuments(docs))
		}
	}

	return memory.NewStore(opts...)
}

// tokenCounter prefers the model's tiktoken encoding and falls back to
// counting words.
func tokenCounter(model string, logger *log.Logger) tokens.Counter {
	tk, err := tokens.NewTiktoken(model)
	if err != nil {
		logger.Warn("tiktoken unavailable, counting words", "err", err)
		return tokens.Words{}
	}
	return tk
}

// openAIKey is the configured key when the text provider is OpenAI. Other
// providers leave it empty so OPENAI_API_KEY is used.
func openAIKey(c *config.Config) string {
	if c.LLM.Provider == narrative.ProviderOpenAI {
		return c.LLM.APIKey
	}
	return ""
}
