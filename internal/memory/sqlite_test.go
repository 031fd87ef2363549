package memory

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func openTestDocuments(t *testing.T) *SQLiteDocuments {
	t.Helper()
	docs, err := OpenSQLiteDocuments(filepath.Join(t.TempDir(), "docs.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { docs.Close() })
	return docs
}

func TestSQLiteDocuments_FindLatest(t *testing.T) {
	ctx := context.Background()
	docs := openTestDocuments(t)

	for _, d := range []Document{
		{Content: "first", Metadata: Metadata{"type": "request", "status": "pending"}},
		{Content: "other", Metadata: Metadata{"type": "scene"}},
		{Content: "second", Metadata: Metadata{"type": "request", "status": "pending"}},
		{Content: "done", Metadata: Metadata{"type": "request", "status": "done"}},
	} {
		if _, err := docs.Insert(ctx, d); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	tests := []struct {
		name    string
		filter  Filter
		want    string
		wantErr error
	}{
		{name: "latest pending", filter: Filter{"type": "request", "status": "pending"}, want: "second"},
		{name: "by type", filter: Filter{"type": "scene"}, want: "other"},
		{name: "no filter", filter: nil, want: "done"},
		{name: "no match", filter: Filter{"type": "bible"}, wantErr: ErrNotFound},
		{name: "unsafe key", filter: Filter{"type') OR 1=1 --": "x"}, wantErr: ErrInvalidFilter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := docs.FindLatest(ctx, tt.filter)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if doc.Content != tt.want {
				t.Errorf("expected %q, got %q", tt.want, doc.Content)
			}
		})
	}
}

func TestSQLiteDocuments_UpdateMergesMetadata(t *testing.T) {
	ctx := context.Background()
	docs := openTestDocuments(t)

	id, err := docs.Insert(ctx, Document{
		Content:   "request",
		Metadata:  Metadata{"type": "request", "status": "pending"},
		Embedding: []float32{0.5, 0.25},
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := docs.Update(ctx, id, Metadata{"status": "processing"}); err != nil {
		t.Fatalf("update: %v", err)
	}

	doc, err := docs.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.Metadata.String("status") != "processing" || doc.Metadata.String("type") != "request" {
		t.Errorf("metadata not merged: %v", doc.Metadata)
	}
	if len(doc.Embedding) != 2 || doc.Embedding[1] != 0.25 {
		t.Errorf("embedding not round-tripped: %v", doc.Embedding)
	}
	if doc.CreatedAt.IsZero() {
		t.Error("created_at not set")
	}
}

func TestSQLiteDocuments_MissingDocument(t *testing.T) {
	ctx := context.Background()
	docs := openTestDocuments(t)

	if err := docs.Update(ctx, "42", Metadata{"x": 1}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound from update, got %v", err)
	}
	if _, err := docs.Get(ctx, "not-a-number"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound from get, got %v", err)
	}
}
