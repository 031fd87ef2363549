package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/Yates-Labs/storyforge/internal/memory"
	"github.com/Yates-Labs/storyforge/internal/narrative"
	"github.com/Yates-Labs/storyforge/internal/stage"
	"github.com/Yates-Labs/storyforge/internal/story"
)

const tracerName = "github.com/Yates-Labs/storyforge/internal/orchestrator"

var (
	// ErrCancelled marks a run stopped by its context.
	ErrCancelled = errors.New("pipeline cancelled")

	// ErrStagePanic marks a run aborted by a panic inside a stage.
	ErrStagePanic = errors.New("stage panicked")
)

// CoverPrefix starts the prompt handed to the illustrator.
const CoverPrefix = "Cover art for a story about: "

// Config holds the shape of a pipeline run.
type Config struct {
	// Episodes is the number of episode outlines requested.
	Episodes int `yaml:"episodes" env:"STORYFORGE_EPISODES" validate:"min=1,max=24"`

	// ScenesPerEpisode is the number of scenes written for each episode.
	ScenesPerEpisode int `yaml:"scenes_per_episode" env:"STORYFORGE_SCENES" validate:"min=1,max=24"`

	// Workers bounds concurrent fan-out tasks within a stage.
	Workers int `yaml:"workers" env:"STORYFORGE_WORKERS" validate:"min=1,max=64"`

	// PerspectiveIndex selects the perspective the story bible is built from.
	PerspectiveIndex int `yaml:"perspective_index" validate:"min=0,max=3"`

	// ConsistencyQuery and ConsistencyK drive the closing memory lookup.
	ConsistencyQuery string `yaml:"consistency_query" validate:"required"`
	ConsistencyK     int    `yaml:"consistency_k" validate:"min=1,max=50"`

	Parameters story.Parameters `yaml:"parameters"`
	Importance story.Importance `yaml:"importance"`
}

// DefaultConfig returns a three episode, three scene run.
func DefaultConfig() Config {
	return Config{
		Episodes:         3,
		ScenesPerEpisode: 3,
		Workers:          4,
		PerspectiveIndex: 0,
		ConsistencyQuery: "character traits",
		ConsistencyK:     5,
	}
}

// Pipeline runs every stage in order for one query.
type Pipeline struct {
	stages      *stage.Stages
	illustrator narrative.Illustrator
	config      Config
	logger      *log.Logger
	tracer      trace.Tracer
	newID       func() string
	now         func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithIllustrator enables cover art. Without one the cover URL stays empty.
func WithIllustrator(il narrative.Illustrator) Option {
	return func(p *Pipeline) { p.illustrator = il }
}

// WithLogger sets the logger for stage progress.
func WithLogger(logger *log.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger.WithPrefix("pipeline")
		}
	}
}

// WithTracerProvider records stage spans on tp instead of the global
// provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(p *Pipeline) {
		if tp != nil {
			p.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// NewPipeline creates a pipeline over the given stages.
func NewPipeline(stages *stage.Stages, config Config, opts ...Option) *Pipeline {
	def := DefaultConfig()
	if config.Episodes <= 0 {
		config.Episodes = def.Episodes
	}
	if config.ScenesPerEpisode <= 0 {
		config.ScenesPerEpisode = def.ScenesPerEpisode
	}
	if config.Workers <= 0 {
		config.Workers = def.Workers
	}
	if config.ConsistencyQuery == "" {
		config.ConsistencyQuery = def.ConsistencyQuery
	}
	if config.ConsistencyK <= 0 {
		config.ConsistencyK = def.ConsistencyK
	}

	p := &Pipeline{
		stages: stages,
		config: config,
		logger: log.New(io.Discard),
		tracer: otel.Tracer(tracerName),
		newID:  uuid.NewString,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Config returns the effective run configuration.
func (p *Pipeline) Config() Config { return p.config }

// Run executes the pipeline for query. An empty query fails with
// story.ErrInvalidInput before anything is generated; that is the only error
// returned. Any other failure is reported on the result with Success false,
// keeping whatever the completed stages produced.
func (p *Pipeline) Run(ctx context.Context, query string) (*story.Result, error) {
	res := &story.Result{
		RunID:            p.newID(),
		Query:            strings.TrimSpace(query),
		Perspectives:     []story.Perspective{},
		FlashCards:       []story.FlashCardSet{},
		Episodes:         []story.EpisodeWithScenes{},
		ConsistencyCheck: []memory.Match{},
		StartedAt:        p.now(),
	}

	if res.Query == "" {
		err := fmt.Errorf("%w: a story idea is required", story.ErrInvalidInput)
		res.Error = err.Error()
		res.FinishedAt = p.now()
		return res, err
	}

	ctx, span := p.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("storyforge.run_id", res.RunID),
		attribute.Int("storyforge.episodes", p.config.Episodes),
		attribute.Int("storyforge.scenes_per_episode", p.config.ScenesPerEpisode),
	))
	defer span.End()

	logger := p.logger.With("run", res.RunID)
	logger.Info("starting pipeline", "query", res.Query)

	err := p.run(ctx, logger, res)
	res.FinishedAt = p.now()
	if err != nil {
		res.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("pipeline failed", "err", err, "elapsed", res.FinishedAt.Sub(res.StartedAt))
		return res, nil
	}

	res.Success = true
	logger.Info("pipeline complete", "episodes", len(res.Episodes), "elapsed", res.FinishedAt.Sub(res.StartedAt))
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, logger *log.Logger, res *story.Result) error {
	cfg := p.config

	if err := p.step(ctx, logger, "perspectives", func(ctx context.Context) error {
		res.Perspectives = p.stages.GeneratePerspectives(ctx, res.Query)
		return nil
	}); err != nil {
		return err
	}

	if err := p.step(ctx, logger, "flash_cards", func(ctx context.Context) error {
		cards, err := fanOut(ctx, cfg.Workers, len(res.Perspectives), func(ctx context.Context, i int) story.FlashCardSet {
			return p.stages.GenerateFlashCards(ctx, res.Perspectives[i])
		})
		if err != nil {
			return err
		}
		res.FlashCards = cards
		return nil
	}); err != nil {
		return err
	}

	var bible story.StoryBible
	if err := p.step(ctx, logger, "story_bible", func(ctx context.Context) error {
		idx := min(max(cfg.PerspectiveIndex, 0), len(res.Perspectives)-1)
		in := stage.BibleInput{
			Perspective: res.Perspectives[idx],
			Parameters:  cfg.Parameters,
			Importance:  cfg.Importance,
			Query:       res.Query,
		}
		if idx < len(res.FlashCards) {
			in.FlashCards = &res.FlashCards[idx]
		}
		bible = p.stages.GenerateStoryBible(ctx, in)
		res.StoryBible = &bible
		return nil
	}); err != nil {
		return err
	}

	var outlines []story.EpisodeOutline
	if err := p.step(ctx, logger, "episode_outlines", func(ctx context.Context) error {
		outlines = p.stages.GenerateEpisodeOutlines(ctx, bible, cfg.Episodes)
		return nil
	}); err != nil {
		return err
	}

	if err := p.step(ctx, logger, "scenes", func(ctx context.Context) error {
		episodes, err := fanOut(ctx, cfg.Workers, len(outlines), func(ctx context.Context, i int) story.EpisodeWithScenes {
			return story.EpisodeWithScenes{
				Episode: outlines[i],
				Scenes:  p.stages.GenerateScenes(ctx, outlines[i], cfg.ScenesPerEpisode),
			}
		})
		if err != nil {
			return err
		}
		res.Episodes = episodes
		return nil
	}); err != nil {
		return err
	}

	if err := p.step(ctx, logger, "compile", func(ctx context.Context) error {
		res.FullStory = CompileStory(res.Episodes)
		return nil
	}); err != nil {
		return err
	}

	if err := p.step(ctx, logger, "cover_image", func(ctx context.Context) error {
		res.CoverImageURL = p.cover(ctx, logger, res.Query)
		return nil
	}); err != nil {
		return err
	}

	return p.step(ctx, logger, "consistency_check", func(ctx context.Context) error {
		res.ConsistencyCheck = p.stages.Memory().Retrieve(ctx, cfg.ConsistencyQuery, cfg.ConsistencyK)
		logger.Info("consistency check", "memories", len(res.ConsistencyCheck))
		return nil
	})
}

// step runs one stage inside its own span. Cancellation is checked before
// the stage starts and a panic inside it becomes an ErrStagePanic.
func (p *Pipeline) step(ctx context.Context, logger *log.Logger, name string, fn func(ctx context.Context) error) (err error) {
	if cerr := ctx.Err(); cerr != nil {
		return fmt.Errorf("%w before %s: %w", ErrCancelled, name, cerr)
	}

	ctx, span := p.tracer.Start(ctx, "stage."+name)
	start := p.now()
	logger.Debug("stage started", "stage", name)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", ErrStagePanic, name, r)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		logger.Debug("stage finished", "stage", name, "elapsed", p.now().Sub(start), "err", err)
	}()

	return fn(ctx)
}

// fanOut runs fn for every index with at most workers in flight. Each result
// lands in its own slot, so output order equals input order. Cancellation
// stops tasks that have not started; a panicking task aborts the fan-out.
func fanOut[T any](ctx context.Context, workers, n int, fn func(ctx context.Context, i int) T) ([]T, error) {
	out := make([]T, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for i := range n {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%w: task %d: %v", ErrStagePanic, i, r)
				}
			}()
			if cerr := gctx.Err(); cerr != nil {
				return fmt.Errorf("%w: %w", ErrCancelled, cerr)
			}
			out[i] = fn(gctx, i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	return out, nil
}

// cover asks the illustrator for cover art. Failure leaves the URL empty.
func (p *Pipeline) cover(ctx context.Context, logger *log.Logger, query string) string {
	if p.illustrator == nil {
		return ""
	}
	url, err := p.illustrator.Illustrate(ctx, CoverPrefix+query)
	if err != nil {
		logger.Warn("cover image failed", "err", err)
		return ""
	}
	return url
}
