package memory

import (
	"context"
	"io"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/segmentio/ksuid"
)

// Store is the pipeline's memory. It never fails its callers: every backend
// error is logged and absorbed.
type Store struct {
	embedder Embedder
	index    VectorIndex
	docs     DocumentStore
	logger   *log.Logger
	now      func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithEmbedder enables embeddings. Without one nothing is retrievable.
func WithEmbedder(e Embedder) Option { return func(s *Store) { s.embedder = e } }

// WithIndex sets the vector index searched by Retrieve.
func WithIndex(idx VectorIndex) Option { return func(s *Store) { s.index = idx } }

// WithDocuments persists every record in d.
func WithDocuments(d DocumentStore) Option { return func(s *Store) { s.docs = d } }

// WithLogger sets the logger for absorbed backend failures.
func WithLogger(logger *log.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger.WithPrefix("memory")
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore creates a memory store over whichever backends are supplied.
func NewStore(opts ...Option) *Store {
	s := &Store{
		logger: log.New(io.Discard),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Documents exposes the durable document store, which may be nil.
func (s *Store) Documents() DocumentStore { return s.docs }

// Store records content with metadata and returns its id. The embedding is
// best-effort; a record without one is kept but never retrieved by
// similarity.
func (s *Store) Store(ctx context.Context, content string, metadata Metadata) string {
	doc := Document{
		Content:   content,
		Metadata:  metadata.Clone(),
		CreatedAt: s.now(),
	}
	doc.Embedding = s.embed(ctx, content)

	if s.docs != nil {
		id, err := s.docs.Insert(ctx, doc)
		if err != nil {
			s.logger.Warn("document store insert failed", "type", doc.Metadata.String("type"), "err", err)
		} else {
			doc.ID = id
		}
	}
	if doc.ID == "" {
		doc.ID = ksuid.New().String()
	}

	if s.index != nil && len(doc.Embedding) > 0 {
		if err := s.index.Upsert(ctx, []Document{doc}); err != nil {
			s.logger.Warn("vector index upsert failed", "id", doc.ID, "err", err)
		}
	}

	s.logger.Debug("stored", "id", doc.ID, "type", doc.Metadata.String("type"), "embedded", len(doc.Embedding) > 0)
	return doc.ID
}

// Retrieve returns at most k records most similar to query, by descending
// score. It returns an empty slice when retrieval is unavailable.
func (s *Store) Retrieve(ctx context.Context, query string, k int) []Match {
	if k <= 0 || s.index == nil {
		return []Match{}
	}

	vec := s.embed(ctx, query)
	if len(vec) == 0 {
		return []Match{}
	}

	matches, err := s.index.Query(ctx, vec, k)
	if err != nil {
		s.logger.Warn("vector index query failed", "err", err)
		return []Match{}
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches
}

// Close releases every backend.
func (s *Store) Close() error {
	var first error
	if s.index != nil {
		if err := s.index.Close(); err != nil {
			first = err
		}
	}
	if s.docs != nil {
		if err := s.docs.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (s *Store) embed(ctx context.Context, text string) []float32 {
	if s.embedder == nil || text == "" {
		return nil
	}
	records, err := s.embedder.Embed(ctx, []string{text})
	if err != nil {
		s.logger.Warn("embedding failed", "err", err)
		return nil
	}
	if len(records) == 0 {
		return nil
	}
	return records[0].Embedding
}
