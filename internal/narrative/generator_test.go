package narrative

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// recordingSleep captures backoff delays without waiting.
type recordingSleep struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingSleep) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *recordingSleep) total() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum time.Duration
	for _, d := range r.delays {
		sum += d
	}
	return sum
}

func TestGenerator_Generate_Success(t *testing.T) {
	mockLLM := NewMockLLM("  Once upon a time.  \n")
	config := DefaultLLMConfig()
	config.Model = "test-model"

	gen := NewGenerator(mockLLM, config)

	text, err := gen.Generate(context.Background(), Request{Prompt: "Tell me a story"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "Once upon a time." {
		t.Errorf("expected trimmed text, got %q", text)
	}

	calls := mockLLM.Completions()
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	c := calls[0]
	if c.System != SystemPrompt {
		t.Errorf("expected default system framing, got %q", c.System)
	}
	if c.User != "Tell me a story" {
		t.Errorf("unexpected user prompt: %q", c.User)
	}
	if c.Model != "test-model" {
		t.Errorf("expected model test-model, got %s", c.Model)
	}
	if c.Temperature != config.Temperature || c.MaxTokens != config.MaxTokens || c.TopP != config.TopP {
		t.Errorf("config defaults not applied: %+v", c)
	}
}

func TestGenerator_Generate_RequestOverrides(t *testing.T) {
	mockLLM := NewMockLLM("ok")
	gen := NewGenerator(mockLLM, DefaultLLMConfig())

	_, err := gen.Generate(context.Background(), Request{
		System:      "custom framing",
		Prompt:      "p",
		Temperature: Float(0.3),
		MaxTokens:   2000,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	c := mockLLM.Completions()[0]
	if c.System != "custom framing" || c.Temperature != 0.3 || c.MaxTokens != 2000 {
		t.Errorf("overrides not applied: %+v", c)
	}
}

func TestGenerator_Generate_ZeroTemperature(t *testing.T) {
	mockLLM := NewMockLLM("ok")
	gen := NewGenerator(mockLLM, DefaultLLMConfig())

	if _, err := gen.Generate(context.Background(), Request{Prompt: "p", Temperature: Float(0)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if c := mockLLM.Completions()[0]; c.Temperature != 0 {
		t.Errorf("expected explicit zero temperature to be kept, got %v", c.Temperature)
	}
}

func TestGenerator_Generate_EmptyPrompt(t *testing.T) {
	gen := NewGenerator(NewMockLLM("test"), DefaultLLMConfig())

	_, err := gen.Generate(context.Background(), Request{Prompt: "   "})
	if !errors.Is(err, ErrGenerationFailed) {
		t.Errorf("expected ErrGenerationFailed, got %v", err)
	}
}

func TestGenerator_Generate_NilLLM(t *testing.T) {
	gen := NewGenerator(nil, DefaultLLMConfig())

	_, err := gen.Generate(context.Background(), Request{Prompt: "p"})
	if !errors.Is(err, ErrGenerationFailed) {
		t.Errorf("expected ErrGenerationFailed, got %v", err)
	}
}

func TestGenerator_Generate_RetriesThenSucceeds(t *testing.T) {
	transient := errors.New("503 service unavailable")
	mockLLM := &MockLLM{Script: []MockReply{
		{Err: transient},
		{Err: transient},
		{Text: "third time lucky"},
	}}
	sleeper := &recordingSleep{}
	gen := NewGenerator(mockLLM, DefaultLLMConfig(), WithSleep(sleeper.sleep))

	text, err := gen.Generate(context.Background(), Request{Prompt: "p"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "third time lucky" {
		t.Errorf("unexpected text: %q", text)
	}
	if mockLLM.Calls() != 3 {
		t.Errorf("expected 3 calls, got %d", mockLLM.Calls())
	}

	want := []time.Duration{2 * time.Second, 4 * time.Second}
	if len(sleeper.delays) != len(want) {
		t.Fatalf("expected delays %v, got %v", want, sleeper.delays)
	}
	for i := range want {
		if sleeper.delays[i] != want[i] {
			t.Errorf("delay %d: expected %v, got %v", i, want[i], sleeper.delays[i])
		}
	}
}

func TestGenerator_Generate_Exhausted(t *testing.T) {
	providerErr := errors.New("API rate limit exceeded")
	mockLLM := NewMockLLMWithError(providerErr)
	sleeper := &recordingSleep{}
	gen := NewGenerator(mockLLM, DefaultLLMConfig(), WithSleep(sleeper.sleep))

	_, err := gen.Generate(context.Background(), Request{Prompt: "p"})
	if err == nil {
		t.Fatal("expected error from LLM")
	}

	if !errors.Is(err, ErrGenerationFailed) {
		t.Errorf("expected ErrGenerationFailed, got %v", err)
	}
	if !errors.Is(err, providerErr) {
		t.Errorf("expected provider error to be wrapped, got %v", err)
	}

	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected *GenerationError, got %T", err)
	}
	if genErr.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", genErr.Attempts)
	}
	if mockLLM.Calls() != 3 {
		t.Errorf("expected 3 calls, got %d", mockLLM.Calls())
	}
	if total := sleeper.total(); total < 6*time.Second {
		t.Errorf("expected at least 6s of backoff, got %v", total)
	}
}

func TestGenerator_Generate_EmptyResponseIsRetried(t *testing.T) {
	mockLLM := &MockLLM{Script: []MockReply{{Text: "   "}, {Text: "content"}}}
	gen := NewGenerator(mockLLM, DefaultLLMConfig(), WithRetry(3, 0))

	text, err := gen.Generate(context.Background(), Request{Prompt: "p"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "content" || mockLLM.Calls() != 2 {
		t.Errorf("expected retry after empty response, got %q after %d calls", text, mockLLM.Calls())
	}
}

func TestGenerator_Generate_CancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	mockLLM := NewMockLLMWithError(errors.New("boom"))

	gen := NewGenerator(mockLLM, DefaultLLMConfig(), WithSleep(func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}))

	_, err := gen.Generate(ctx, Request{Prompt: "p"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if !errors.Is(err, ErrGenerationFailed) {
		t.Errorf("expected ErrGenerationFailed, got %v", err)
	}
	if mockLLM.Calls() != 1 {
		t.Errorf("expected retries to stop after cancellation, got %d calls", mockLLM.Calls())
	}
}

func TestGenerator_Generate_AttemptTimeout(t *testing.T) {
	blocking := &blockingLLM{}
	gen := NewGenerator(blocking, DefaultLLMConfig(),
		WithAttemptTimeout(10*time.Millisecond),
		WithRetry(2, 0))

	_, err := gen.Generate(context.Background(), Request{Prompt: "p"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if blocking.calls != 2 {
		t.Errorf("expected timeout to be retried, got %d calls", blocking.calls)
	}
}

func TestGenerator_Generate_RateLimited(t *testing.T) {
	mockLLM := NewMockLLM("ok")
	gen := NewGenerator(mockLLM, DefaultLLMConfig(), WithRateLimit(600, 1))

	for i := 0; i < 3; i++ {
		if _, err := gen.Generate(context.Background(), Request{Prompt: "p"}); err != nil {
			t.Fatalf("call %d: unexpected error: %v", i, err)
		}
	}
	if mockLLM.Calls() != 3 {
		t.Errorf("expected 3 calls, got %d", mockLLM.Calls())
	}
}

// blockingLLM waits for its context to end on every call.
type blockingLLM struct {
	mu    sync.Mutex
	calls int
}

func (b *blockingLLM) Complete(ctx context.Context, c Completion) (string, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	<-ctx.Done()
	return "", ctx.Err()
}
