package intake

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/Yates-Labs/storyforge/internal/memory"
	"github.com/Yates-Labs/storyforge/internal/story"
)

func newTestQueue(t *testing.T) (*Queue, *memory.SQLiteDocuments) {
	t.Helper()
	docs, err := memory.OpenSQLiteDocuments(filepath.Join(t.TempDir(), "intake.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { docs.Close() })

	q, err := NewQueue(docs)
	if err != nil {
		t.Fatalf("new queue: %v", err)
	}
	return q, docs
}

type fakeRunner struct {
	res   *story.Result
	err   error
	query string
}

func (f *fakeRunner) Run(ctx context.Context, query string) (*story.Result, error) {
	f.query = query
	return f.res, f.err
}

func TestNewQueue_RequiresDocuments(t *testing.T) {
	if _, err := NewQueue(nil); !errors.Is(err, ErrNoDocuments) {
		t.Errorf("expected ErrNoDocuments, got %v", err)
	}
}

func TestQueue_Submit(t *testing.T) {
	ctx := context.Background()
	q, docs := newTestQueue(t)

	id, err := q.Submit(ctx, "  a lighthouse keeper  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	doc, err := docs.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.Content != "a lighthouse keeper" {
		t.Errorf("expected trimmed query, got %q", doc.Content)
	}
	if doc.Metadata.String("type") != TypeRequest || doc.Metadata.String("status") != string(StatusPending) {
		t.Errorf("unexpected metadata: %v", doc.Metadata)
	}
	if doc.Metadata.String("request_id") == "" {
		t.Error("expected a request correlation id")
	}

	if _, err := q.Submit(ctx, "   "); !errors.Is(err, story.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty query, got %v", err)
	}
}

func TestQueue_ClaimNewestFirst(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue(t)

	for _, query := range []string{"first idea", "second idea"} {
		if _, err := q.Submit(ctx, query); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}

	for _, want := range []string{"second idea", "first idea"} {
		req, err := q.Claim(ctx)
		if err != nil {
			t.Fatalf("claim: %v", err)
		}
		if req.Query != want || req.Status != StatusProcessing {
			t.Errorf("expected processing %q, got %+v", want, req)
		}
	}

	if _, err := q.Claim(ctx); !errors.Is(err, ErrNoPending) {
		t.Errorf("expected ErrNoPending, got %v", err)
	}
}

func TestQueue_Complete(t *testing.T) {
	tests := []struct {
		name       string
		res        *story.Result
		wantStatus Status
		wantResult bool
	}{
		{name: "success", res: &story.Result{RunID: "r1", Success: true, FullStory: "story"}, wantStatus: StatusDone, wantResult: true},
		{name: "unsuccessful", res: &story.Result{RunID: "r2", Error: "stage panicked"}, wantStatus: StatusFailed, wantResult: true},
		{name: "no result", res: nil, wantStatus: StatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			q, _ := newTestQueue(t)

			id, err := q.Submit(ctx, "an idea")
			if err != nil {
				t.Fatalf("submit: %v", err)
			}
			if err := q.Complete(ctx, id, tt.res); err != nil {
				t.Fatalf("complete: %v", err)
			}

			req, err := q.Get(ctx, id)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if req.Status != tt.wantStatus {
				t.Errorf("expected status %q, got %q", tt.wantStatus, req.Status)
			}

			res, err := q.Result(ctx, req)
			if !tt.wantResult {
				if !errors.Is(err, memory.ErrNotFound) {
					t.Errorf("expected no stored result, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("result: %v", err)
			}
			if res.RunID != tt.res.RunID || res.FullStory != tt.res.FullStory {
				t.Errorf("stored result mismatch: %+v", res)
			}
		})
	}
}

func TestQueue_Get_RejectsOtherDocuments(t *testing.T) {
	ctx := context.Background()
	q, docs := newTestQueue(t)

	id, err := docs.Insert(ctx, memory.Document{Content: "a scene", Metadata: memory.Metadata{"type": "scene"}})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := q.Get(ctx, id); !errors.Is(err, memory.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestQueue_Process(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue(t)

	if _, err := q.Process(ctx, &fakeRunner{}); !errors.Is(err, ErrNoPending) {
		t.Fatalf("expected ErrNoPending on an empty queue, got %v", err)
	}

	id, err := q.Submit(ctx, "a lighthouse keeper")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	runner := &fakeRunner{res: &story.Result{RunID: "run", Success: true}}

	req, err := q.Process(ctx, runner)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if req.ID != id || req.Status != StatusDone || runner.query != "a lighthouse keeper" {
		t.Errorf("unexpected processed request %+v (query %q)", req, runner.query)
	}

	stored, err := q.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != StatusDone || stored.ResultID == "" {
		t.Errorf("expected done with a result, got %+v", stored)
	}
}

func TestQueue_Process_RunnerError(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue(t)

	id, err := q.Submit(ctx, "an idea")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	boom := errors.New("boom")

	req, err := q.Process(ctx, &fakeRunner{err: boom})
	if !errors.Is(err, boom) {
		t.Fatalf("expected runner error, got %v", err)
	}
	if req.Status != StatusFailed || req.Error != "boom" {
		t.Errorf("unexpected request %+v", req)
	}

	stored, err := q.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != StatusFailed || stored.Error != "boom" {
		t.Errorf("expected failed request with error, got %+v", stored)
	}
}
