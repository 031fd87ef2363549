// Package config loads StoryForge settings from defaults, an optional YAML
// file and the environment, in that order, and validates the result.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/Yates-Labs/storyforge/internal/memory"
	"github.com/Yates-Labs/storyforge/internal/narrative"
	"github.com/Yates-Labs/storyforge/internal/orchestrator"
)

// DefaultPath is read when no explicit path is given and the file exists.
const DefaultPath = "storyforge.yaml"

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	LLM       LLMConfig           `yaml:"llm"`
	Embedding EmbeddingConfig     `yaml:"embedding"`
	Milvus    memory.MilvusConfig `yaml:"milvus"`
	Storage   StorageConfig       `yaml:"storage"`
	Pipeline  orchestrator.Config `yaml:"pipeline"`
	Server    ServerConfig        `yaml:"server"`
	Log       LogConfig           `yaml:"log"`
	Telemetry TelemetryConfig     `yaml:"telemetry"`
}

// LLMConfig selects the text provider and the generator's retry policy.
type LLMConfig struct {
	Provider    string  `yaml:"provider" env:"STORYFORGE_PROVIDER" validate:"oneof=openai gemini"`
	Model       string  `yaml:"model" env:"STORYFORGE_MODEL" validate:"required"`
	Temperature float64 `yaml:"temperature" env:"STORYFORGE_TEMPERATURE" validate:"gte=0,lte=2"`
	TopP        float64 `yaml:"top_p" validate:"gte=0,lte=1"`
	MaxTokens   int     `yaml:"max_tokens" validate:"gte=0"`

	// APIKey overrides OPENAI_API_KEY / GEMINI_API_KEY.
	APIKey string `yaml:"api_key" env:"STORYFORGE_API_KEY"`

	RequestsPerMinute int           `yaml:"requests_per_minute" env:"STORYFORGE_RPM" validate:"gte=0"`
	Burst             int           `yaml:"burst" validate:"gte=0"`
	MaxAttempts       int           `yaml:"max_attempts" validate:"min=1,max=10"`
	BackoffBase       time.Duration `yaml:"backoff_base" validate:"gte=0"`
	AttemptTimeout    time.Duration `yaml:"attempt_timeout" env:"STORYFORGE_ATTEMPT_TIMEOUT" validate:"gte=0"`

	// ContextBudget caps the tokens of upstream context embedded per prompt.
	ContextBudget int `yaml:"context_budget" validate:"gte=0"`

	// Images enables DALL-E cover art.
	Images bool `yaml:"images" env:"STORYFORGE_IMAGES"`
}

// Narrative converts the section into provider settings.
func (c LLMConfig) Narrative() narrative.LLMConfig {
	return narrative.LLMConfig{
		Provider:    c.Provider,
		Model:       c.Model,
		Temperature: c.Temperature,
		TopP:        c.TopP,
		MaxTokens:   c.MaxTokens,
		APIKey:      c.APIKey,
	}
}

// EmbeddingConfig selects how memory records are embedded.
type EmbeddingConfig struct {
	// Provider is "openai", "hash" (offline) or "none".
	Provider  string `yaml:"provider" env:"STORYFORGE_EMBEDDER" validate:"oneof=openai hash none"`
	Model     string `yaml:"model" validate:"required_if=Provider openai"`
	Dimension int    `yaml:"dimension" validate:"gte=1"`
}

type StorageConfig struct {
	// Path of the SQLite document store. Empty keeps records in memory only.
	Path string `yaml:"path" env:"STORYFORGE_DB"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" env:"STORYFORGE_ADDR" validate:"required"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"STORYFORGE_LOG_LEVEL" validate:"oneof=debug info warn error"`
}

type TelemetryConfig struct {
	// Endpoint is an OTLP/HTTP collector URL. Empty disables tracing.
	Endpoint    string `yaml:"endpoint" env:"STORYFORGE_OTEL_ENDPOINT"`
	ServiceName string `yaml:"service_name" validate:"required"`
}

// Default returns a configuration that runs against OpenAI with offline
// embeddings and no durable storage.
func Default() Config {
	llm := narrative.DefaultLLMConfig()
	return Config{
		LLM: LLMConfig{
			Provider:          llm.Provider,
			Model:             llm.Model,
			Temperature:       llm.Temperature,
			TopP:              llm.TopP,
			MaxTokens:         llm.MaxTokens,
			RequestsPerMinute: 60,
			Burst:             4,
			MaxAttempts:       narrative.DefaultMaxAttempts,
			BackoffBase:       narrative.DefaultBackoffBase,
			AttemptTimeout:    narrative.DefaultAttemptTimeout,
			ContextBudget:     3000,
			Images:            true,
		},
		Embedding: EmbeddingConfig{
			Provider:  "hash",
			Model:     memory.DefaultEmbeddingModel,
			Dimension: memory.DefaultEmbeddingDimension,
		},
		Milvus:    memory.DefaultMilvusConfig(),
		Pipeline:  orchestrator.DefaultConfig(),
		Server:    ServerConfig{Addr: ":5000"},
		Log:       LogConfig{Level: "info"},
		Telemetry: TelemetryConfig{ServiceName: "storyforge"},
	}
}

// Load builds the configuration. An explicit path must exist; without one
// DefaultPath is used when present.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat(DefaultPath); err == nil {
			path = DefaultPath
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every section against its constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Embedding.Dimension != c.Milvus.Dimension && c.Milvus.Address != "" {
		return fmt.Errorf("%w: embedding dimension %d does not match milvus dimension %d",
			ErrInvalidConfig, c.Embedding.Dimension, c.Milvus.Dimension)
	}
	return nil
}

// Logger builds the process logger at the configured level.
func (c LogConfig) Logger(w io.Writer) *log.Logger {
	level, err := log.ParseLevel(c.Level)
	if err != nil {
		level = log.InfoLevel
	}
	return log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
	})
}
