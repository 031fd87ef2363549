package memory

import (
	"context"
	"math"
	"sort"
	"sync"
)

// LocalIndex is an in-process VectorIndex with exact cosine search.
type LocalIndex struct {
	mu    sync.RWMutex
	docs  map[string]Document
	order []string
}

// NewLocalIndex creates an empty in-process index.
func NewLocalIndex() *LocalIndex {
	return &LocalIndex{docs: make(map[string]Document)}
}

// Upsert inserts or replaces documents by ID.
func (l *LocalIndex) Upsert(ctx context.Context, docs []Document) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, d := range docs {
		if len(d.Embedding) == 0 || d.ID == "" {
			continue
		}
		if _, exists := l.docs[d.ID]; !exists {
			l.order = append(l.order, d.ID)
		}
		d.Metadata = d.Metadata.Clone()
		l.docs[d.ID] = d
	}
	return nil
}

// Query returns at most k documents ranked by cosine similarity. Ties keep
// insertion order.
func (l *LocalIndex) Query(ctx context.Context, vector []float32, k int) ([]Match, error) {
	if k <= 0 || len(vector) == 0 {
		return []Match{}, nil
	}

	l.mu.RLock()
	matches := make([]Match, 0, len(l.docs))
	for _, id := range l.order {
		d := l.docs[id]
		if len(d.Embedding) != len(vector) {
			continue
		}
		matches = append(matches, Match{
			ID:       d.ID,
			Content:  d.Content,
			Metadata: d.Metadata.Clone(),
			Score:    cosine(vector, d.Embedding),
		})
	}
	l.mu.RUnlock()

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Len reports how many documents are indexed.
func (l *LocalIndex) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.docs)
}

func (l *LocalIndex) Close() error { return nil }

func cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
