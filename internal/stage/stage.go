// Package stage implements the generation steps of the StoryForge pipeline.
// Every step composes a prompt from upstream artifacts, calls the generator,
// repairs what comes back and records it in memory. A step never fails its
// caller: generation or parse failures degrade to canned defaults.
package stage

import (
	"context"
	"io"

	"github.com/charmbracelet/log"

	"github.com/Yates-Labs/storyforge/internal/memory"
	"github.com/Yates-Labs/storyforge/internal/narrative"
	"github.com/Yates-Labs/storyforge/internal/tokens"
)

// Generator produces text for an assembled prompt.
type Generator interface {
	Generate(ctx context.Context, req narrative.Request) (string, error)
}

// Memory records artifacts and answers similarity queries.
type Memory interface {
	Store(ctx context.Context, content string, metadata memory.Metadata) string
	Retrieve(ctx context.Context, query string, k int) []memory.Match
}

const (
	// DefaultContextBudget caps the tokens of upstream context embedded in a
	// single prompt.
	DefaultContextBudget = 3000

	// DefaultWorkers bounds scene fan-out within one episode.
	DefaultWorkers = 3
)

// Stages holds the collaborators shared by every step.
type Stages struct {
	gen     Generator
	mem     Memory
	counter tokens.Counter
	budget  int
	workers int
	logger  *log.Logger
}

// Option configures Stages.
type Option func(*Stages)

// WithTokenCounter trims embedded context with c. Without one, context is
// embedded untrimmed.
func WithTokenCounter(c tokens.Counter) Option {
	return func(s *Stages) { s.counter = c }
}

// WithContextBudget sets the token budget for embedded context.
func WithContextBudget(n int) Option {
	return func(s *Stages) {
		if n > 0 {
			s.budget = n
		}
	}
}

// WithWorkers sets how many scenes are generated concurrently.
func WithWorkers(n int) Option {
	return func(s *Stages) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithLogger sets the logger for fallbacks and dropped output.
func WithLogger(logger *log.Logger) Option {
	return func(s *Stages) {
		if logger != nil {
			s.logger = logger.WithPrefix("stage")
		}
	}
}

// New creates the stage set. A nil mem gets an in-memory store with no
// backends, which accepts writes and retrieves nothing.
func New(gen Generator, mem Memory, opts ...Option) *Stages {
	if mem == nil {
		mem = memory.NewStore()
	}
	s := &Stages{
		gen:     gen,
		mem:     mem,
		budget:  DefaultContextBudget,
		workers: DefaultWorkers,
		logger:  log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Memory returns the store the stages write to.
func (s *Stages) Memory() Memory { return s.mem }

// generate runs one request and reports failure as an empty reply, logging
// the cause under the stage name.
func (s *Stages) generate(ctx context.Context, stage string, req narrative.Request) (string, bool) {
	if s.gen == nil {
		s.logger.Warn("no generator configured", "stage", stage)
		return "", false
	}
	out, err := s.gen.Generate(ctx, req)
	if err != nil {
		s.logger.Warn("generation failed, using defaults", "stage", stage, "err", err)
		return "", false
	}
	return out, true
}

func (s *Stages) fit(text string) string {
	return tokens.Fit(s.counter, text, s.budget)
}
