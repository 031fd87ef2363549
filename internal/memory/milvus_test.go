package memory

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"
	"unicode/utf8"
)

func TestDefaultMilvusConfig(t *testing.T) {
	config := DefaultMilvusConfig()

	if config.Address != "" {
		t.Errorf("expected Milvus disabled by default, got address %q", config.Address)
	}
	if config.CollectionName == "" {
		t.Error("Expected non-empty collection name")
	}
	if config.Dimension != DefaultEmbeddingDimension {
		t.Errorf("Expected dimension %d, got %d", DefaultEmbeddingDimension, config.Dimension)
	}
	if config.M != 16 || config.EfConstruction != 256 {
		t.Errorf("unexpected HNSW parameters: %+v", config)
	}
}

func TestNewMilvusIndex_InvalidDimension(t *testing.T) {
	config := DefaultMilvusConfig()
	config.Dimension = 0

	_, err := NewMilvusIndex(context.Background(), config)
	if !errors.Is(err, ErrInvalidDimension) {
		t.Errorf("expected ErrInvalidDimension, got %v", err)
	}
}

func TestMilvusIndex_UpsertSkipsUnembedded(t *testing.T) {
	idx := &MilvusIndex{config: DefaultMilvusConfig()}

	if err := idx.Upsert(context.Background(), []Document{{ID: "a", Content: "no vector"}}); err != nil {
		t.Errorf("expected nil for documents without embeddings, got %v", err)
	}
}

// Integration test: Upsert and Query against a live Milvus.
func TestTruncate_KeepsRunesWhole(t *testing.T) {
	tests := []struct {
		name  string
		input string
		n     int
		want  string
	}{
		{"short", "abc", 5, "abc"},
		{"ascii", "abcdef", 3, "abc"},
		{"mid rune", "aé", 2, "a"},
		{"rune boundary", "aéb", 3, "aé"},
		{"wide runes", "灯台守", 5, "灯"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.input, tt.n)
			if got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.n, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("truncate(%q, %d) split a rune", tt.input, tt.n)
			}
		})
	}
}

func TestMilvusIndex_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}
	address := os.Getenv("MILVUS_ADDRESS")
	if address == "" {
		t.Skip("MILVUS_ADDRESS not set")
	}

	ctx := context.Background()
	config := DefaultMilvusConfig()
	config.Address = address
	config.Dimension = 8
	config.CollectionName = "storyforge_test_integration"

	idx, err := NewMilvusIndex(ctx, config)
	if err != nil {
		t.Fatalf("failed to create index: %v", err)
	}
	defer idx.Close()
	defer idx.Drop(ctx)

	vec := func(hot int) []float32 {
		v := make([]float32, 8)
		v[hot] = 1
		return v
	}

	docs := []Document{
		{ID: "hero", Content: "The hero", Embedding: vec(0), Metadata: Metadata{"type": "character"}, CreatedAt: time.Now()},
		{ID: "villain", Content: "The villain", Embedding: vec(1), Metadata: Metadata{"type": "character"}, CreatedAt: time.Now()},
	}
	if err := idx.Upsert(ctx, docs); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	// Upserts become searchable asynchronously.
	var matches []Match
	for i := 0; i < 20; i++ {
		matches, err = idx.Query(ctx, vec(0), 1)
		if err == nil && len(matches) == 1 {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != "hero" {
		t.Fatalf("expected hero, got %+v", matches)
	}
	if matches[0].Metadata.String("type") != "character" {
		t.Errorf("metadata not returned: %v", matches[0].Metadata)
	}
}
