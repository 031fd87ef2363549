// Package memory persists story artifacts as text plus metadata and serves
// similarity retrieval over them. Every backend is optional: without an
// embedder or vector index the store still accepts writes and retrieval
// returns nothing.
package memory

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrStoreUnavailable marks a backend that could not be reached. Store
	// absorbs it; it only surfaces from the backends themselves.
	ErrStoreUnavailable = errors.New("memory backend unavailable")
	ErrNotFound         = errors.New("document not found")
	ErrInvalidFilter    = errors.New("invalid metadata filter")
)

// Metadata is the free-form key/value map attached to a record. Values must be
// JSON-encodable.
type Metadata map[string]any

// Clone returns a shallow copy so stored records never alias caller maps.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// String returns the value under key when it is a string.
func (m Metadata) String(key string) string {
	s, _ := m[key].(string)
	return s
}

// Document is one stored memory record. It is immutable once stored except
// for metadata patches applied through DocumentStore.Update.
type Document struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"embedding,omitempty"`
	Metadata  Metadata  `json:"metadata"`
	CreatedAt time.Time `json:"created_at"`
}

// Match is one retrieval hit. Score is a similarity in [-1, 1], higher is
// closer.
type Match struct {
	ID       string   `json:"id"`
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
	Score    float32  `json:"score"`
}

// VectorIndex stores embeddings and answers nearest-neighbour queries.
type VectorIndex interface {
	// Upsert inserts or replaces documents by ID. Documents without an
	// embedding are skipped.
	Upsert(ctx context.Context, docs []Document) error

	// Query returns at most k matches ordered by descending score.
	Query(ctx context.Context, vector []float32, k int) ([]Match, error)

	// Close releases resources and closes connections
	Close() error
}

// Filter selects documents whose metadata string values equal every entry.
type Filter map[string]string

// DocumentStore is the durable record of everything the pipeline wrote.
type DocumentStore interface {
	// Insert stores doc and returns the store-assigned ID.
	Insert(ctx context.Context, doc Document) (string, error)

	// FindLatest returns the most recently inserted document matching filter,
	// or ErrNotFound.
	FindLatest(ctx context.Context, filter Filter) (*Document, error)

	// Update merges patch into the metadata of the document with id.
	Update(ctx context.Context, id string, patch Metadata) error

	// Get returns the document with id, or ErrNotFound.
	Get(ctx context.Context, id string) (*Document, error)

	Close() error
}
