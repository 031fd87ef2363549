package narrative

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

var (
	ErrGenerationFailed = errors.New("narrative generation failed")
)

const (
	DefaultMaxAttempts    = 3
	DefaultBackoffBase    = 2 * time.Second
	DefaultAttemptTimeout = 90 * time.Second
)

// GenerationError reports a request that exhausted its attempts or was
// cancelled. It matches ErrGenerationFailed and the underlying cause.
type GenerationError struct {
	Attempts int
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s after %d attempt(s): %v", ErrGenerationFailed, e.Attempts, e.Err)
}

func (e *GenerationError) Unwrap() []error {
	return []error{ErrGenerationFailed, e.Err}
}

// Request is one generation call. Zero values fall back to the generator's
// LLMConfig; System falls back to SystemPrompt. A nil Temperature uses the
// configured one, so Float(0) asks for deterministic sampling.
type Request struct {
	System      string
	Prompt      string
	Temperature *float64
	MaxTokens   int
}

// Float returns a pointer to v for Request.Temperature.
func Float(v float64) *float64 { return &v }

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Generator invokes an LLM on an already-assembled prompt with bounded
// retries and exponential backoff. It is safe for concurrent use.
type Generator struct {
	llm            LLM
	config         LLMConfig
	limiter        *rate.Limiter
	logger         *log.Logger
	sleep          SleepFunc
	maxAttempts    int
	backoffBase    time.Duration
	attemptTimeout time.Duration
}

// Option configures a Generator.
type Option func(*Generator)

// WithRateLimit shares a token bucket of requestsPerMinute across every
// caller of the generator.
func WithRateLimit(requestsPerMinute int, burst int) Option {
	return func(g *Generator) {
		if requestsPerMinute <= 0 {
			g.limiter = nil
			return
		}
		g.limiter = rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), max(burst, 1))
	}
}

// WithLimiter installs an existing limiter.
func WithLimiter(l *rate.Limiter) Option {
	return func(g *Generator) { g.limiter = l }
}

// WithLogger sets the logger for retries and failures.
func WithLogger(logger *log.Logger) Option {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger.WithPrefix("generator")
		}
	}
}

// WithRetry sets the attempt budget and the first backoff delay.
func WithRetry(maxAttempts int, backoffBase time.Duration) Option {
	return func(g *Generator) {
		if maxAttempts > 0 {
			g.maxAttempts = maxAttempts
		}
		if backoffBase >= 0 {
			g.backoffBase = backoffBase
		}
	}
}

// WithAttemptTimeout bounds each individual provider call.
func WithAttemptTimeout(d time.Duration) Option {
	return func(g *Generator) { g.attemptTimeout = d }
}

// WithSleep replaces the backoff wait, mainly for tests.
func WithSleep(sleep SleepFunc) Option {
	return func(g *Generator) {
		if sleep != nil {
			g.sleep = sleep
		}
	}
}

// NewGenerator creates a generator with the given LLM implementation.
func NewGenerator(llm LLM, config LLMConfig, opts ...Option) *Generator {
	g := &Generator{
		llm:            llm,
		config:         config,
		logger:         log.New(io.Discard),
		sleep:          sleepContext,
		maxAttempts:    DefaultMaxAttempts,
		backoffBase:    DefaultBackoffBase,
		attemptTimeout: DefaultAttemptTimeout,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Model returns the default model name used for requests.
func (g *Generator) Model() string { return g.config.Model }

// Generate sends req to the LLM, retrying transient failures. The returned
// text is trimmed. On exhaustion or cancellation it returns a
// *GenerationError.
func (g *Generator) Generate(ctx context.Context, req Request) (string, error) {
	if g.llm == nil {
		return "", fmt.Errorf("%w: LLM is required", ErrGenerationFailed)
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return "", fmt.Errorf("%w: prompt is required", ErrGenerationFailed)
	}

	c := g.completion(req)
	delay := g.backoffBase
	var lastErr error

	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", &GenerationError{Attempts: attempt - 1, Err: err}
		}
		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				return "", &GenerationError{Attempts: attempt - 1, Err: err}
			}
		}

		start := time.Now()
		text, err := g.attempt(ctx, c)
		if err == nil {
			g.logger.Debug("completion received", "attempt", attempt, "chars", len(text), "elapsed", time.Since(start))
			return text, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", &GenerationError{Attempts: attempt, Err: ctx.Err()}
		}
		if attempt == g.maxAttempts {
			break
		}

		g.logger.Warn("generation attempt failed, retrying",
			"attempt", attempt,
			"max_attempts", g.maxAttempts,
			"backoff", delay,
			"err", err)

		if err := g.sleep(ctx, delay); err != nil {
			return "", &GenerationError{Attempts: attempt, Err: err}
		}
		delay *= 2
	}

	g.logger.Error("all generation attempts failed", "attempts", g.maxAttempts, "err", lastErr)
	return "", &GenerationError{Attempts: g.maxAttempts, Err: lastErr}
}

func (g *Generator) attempt(ctx context.Context, c Completion) (string, error) {
	attemptCtx := ctx
	if g.attemptTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, g.attemptTimeout)
		defer cancel()
	}

	text, err := g.llm.Complete(attemptCtx, c)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (g *Generator) completion(req Request) Completion {
	c := Completion{
		System:      req.System,
		User:        req.Prompt,
		Model:       g.config.Model,
		Temperature: g.config.Temperature,
		TopP:        g.config.TopP,
		MaxTokens:   req.MaxTokens,
	}
	if c.System == "" {
		c.System = SystemPrompt
	}
	if req.Temperature != nil {
		c.Temperature = *req.Temperature
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = g.config.MaxTokens
	}
	return c
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
