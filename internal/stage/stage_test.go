package stage

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/Yates-Labs/storyforge/internal/memory"
	"github.com/Yates-Labs/storyforge/internal/narrative"
)

// fakeGenerator answers every request through fn and records the prompts.
type fakeGenerator struct {
	mu      sync.Mutex
	fn      func(req narrative.Request) (string, error)
	prompts []string
	reqs    []narrative.Request
}

func replying(text string) *fakeGenerator {
	return &fakeGenerator{fn: func(narrative.Request) (string, error) { return text, nil }}
}

func failing() *fakeGenerator {
	return &fakeGenerator{fn: func(narrative.Request) (string, error) {
		return "", &narrative.GenerationError{Attempts: 3, Err: errors.New("provider down")}
	}}
}

func (f *fakeGenerator) Generate(ctx context.Context, req narrative.Request) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, req.Prompt)
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	return f.fn(req)
}

func (f *fakeGenerator) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func (f *fakeGenerator) lastRequest() narrative.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.reqs) == 0 {
		return narrative.Request{}
	}
	return f.reqs[len(f.reqs)-1]
}

type storedRecord struct {
	id       string
	content  string
	metadata memory.Metadata
}

// recordingMemory keeps every write in order.
type recordingMemory struct {
	mu      sync.Mutex
	records []storedRecord
}

func (r *recordingMemory) Store(ctx context.Context, content string, md memory.Metadata) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := strings.Repeat("m", len(r.records)+1)
	r.records = append(r.records, storedRecord{id: id, content: content, metadata: md.Clone()})
	return id
}

func (r *recordingMemory) Retrieve(ctx context.Context, query string, k int) []memory.Match {
	return []memory.Match{}
}

func (r *recordingMemory) ofType(t string) []storedRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []storedRecord
	for _, rec := range r.records {
		if rec.metadata.String("type") == t {
			out = append(out, rec)
		}
	}
	return out
}
