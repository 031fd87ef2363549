// Package narrative wraps a text-completion capability with the retry, backoff
// and rate-limiting policy shared by every story stage. It defines a
// provider-agnostic LLM interface with concrete implementations for OpenAI and
// Gemini, and a deterministic mock for testing.
package narrative

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrLLMFailed     = errors.New("LLM request failed")
	ErrInvalidConfig = errors.New("invalid LLM configuration")
	ErrEmptyResponse = errors.New("LLM returned an empty response")
)

// SystemPrompt frames every exchange unless a request overrides it.
const SystemPrompt = `You are StoryForge AI, an advanced story generation assistant.
You specialize in creating rich, coherent narratives with well-developed characters,
compelling plots, and immersive worlds. Follow the instructions carefully and
generate high-quality story content.`

// Completion is a single two-message exchange with a model.
type Completion struct {
	System      string
	User        string
	Model       string
	Temperature float64 // always sent; 0 is deterministic
	TopP        float64
	MaxTokens   int
}

// LLM defines the interface for interacting with language models.
// Implementations must be stateless and thread-safe.
type LLM interface {
	// Complete sends one system + user exchange and returns the model's text.
	Complete(ctx context.Context, c Completion) (string, error)
}

// Provider names accepted by NewLLM.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// LLMConfig holds common configuration options for LLM providers.
type LLMConfig struct {
	// Provider selects the backend ("openai" or "gemini").
	Provider string

	// Model specifies the model identifier (e.g., "gpt-4o", "gemini-2.5-flash")
	Model string

	// Temperature controls randomness (0.0 = deterministic, 2.0 = very random)
	Temperature float64

	// TopP is the nucleus sampling cutoff.
	TopP float64

	// MaxTokens limits the response length (0 = use provider default)
	MaxTokens int

	// APIKey is the authentication key for the provider
	APIKey string
}

// DefaultLLMConfig returns sensible defaults for story generation.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Provider:    ProviderOpenAI,
		Model:       "gpt-4o",
		Temperature: 0.7,
		TopP:        0.9,
		MaxTokens:   8000,
	}
}

// NewLLM builds the provider named in config.
func NewLLM(ctx context.Context, config LLMConfig) (LLM, error) {
	switch strings.ToLower(config.Provider) {
	case "", ProviderOpenAI:
		return NewOpenAILLM(config)
	case ProviderGemini:
		return NewGeminiLLM(ctx, config)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, config.Provider)
	}
}
