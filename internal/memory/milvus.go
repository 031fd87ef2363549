package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"unicode/utf8"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// Common errors for Milvus operations
var (
	ErrInvalidDimension = errors.New("invalid vector dimension")
	ErrInsertFailed     = errors.New("failed to insert records")
	ErrSearchFailed     = errors.New("failed to search vectors")
)

const (
	fieldID        = "id"
	fieldContent   = "content"
	fieldMetadata  = "metadata"
	fieldEmbedding = "embedding"
	fieldCreatedAt = "created_at"

	maxContentLength = 65535
)

// MilvusConfig holds configuration for Milvus connection and collection
type MilvusConfig struct {
	Address        string `yaml:"address" env:"MILVUS_ADDRESS"`
	CollectionName string `yaml:"collection" env:"MILVUS_COLLECTION"`
	Dimension      int    `yaml:"dimension" env:"MILVUS_DIMENSION" validate:"gte=0"`

	// HNSW index parameters
	M              int `yaml:"m" validate:"gte=0"`
	EfConstruction int `yaml:"ef_construction" validate:"gte=0"`
	EfSearch       int `yaml:"ef_search" validate:"gte=0"`
}

// DefaultMilvusConfig returns the collection defaults. Address is left empty:
// Milvus is only used when an address is configured.
func DefaultMilvusConfig() MilvusConfig {
	return MilvusConfig{
		CollectionName: "storyforge_memory",
		Dimension:      DefaultEmbeddingDimension,
		M:              16,
		EfConstruction: 256,
		EfSearch:       64,
	}
}

// MilvusIndex implements VectorIndex using Milvus with an HNSW/COSINE index.
type MilvusIndex struct {
	client client.Client
	config MilvusConfig
}

// NewMilvusIndex connects to Milvus and ensures the collection exists with
// the memory schema.
func NewMilvusIndex(ctx context.Context, config MilvusConfig) (*MilvusIndex, error) {
	if config.Dimension <= 0 {
		return nil, ErrInvalidDimension
	}

	c, err := client.NewGrpcClient(ctx, config.Address)
	if err != nil {
		return nil, fmt.Errorf("%w: milvus %s: %v", ErrStoreUnavailable, config.Address, err)
	}

	idx := &MilvusIndex{client: c, config: config}
	if err := idx.ensureCollection(ctx); err != nil {
		c.Close()
		return nil, err
	}
	return idx, nil
}

func (m *MilvusIndex) ensureCollection(ctx context.Context) error {
	has, err := m.client.HasCollection(ctx, m.config.CollectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}

	if !has {
		if err := m.client.CreateCollection(ctx, m.schema(), entity.DefaultShardNumber); err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}

		idx, err := entity.NewIndexHNSW(entity.COSINE, m.config.M, m.config.EfConstruction)
		if err != nil {
			return fmt.Errorf("failed to create index config: %w", err)
		}
		if err := m.client.CreateIndex(ctx, m.config.CollectionName, fieldEmbedding, idx, false); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	if err := m.client.LoadCollection(ctx, m.config.CollectionName, false); err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}
	return nil
}

func (m *MilvusIndex) schema() *entity.Schema {
	return &entity.Schema{
		CollectionName: m.config.CollectionName,
		Description:    "StoryForge memory records",
		Fields: []*entity.Field{
			{
				Name:       fieldID,
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				TypeParams: map[string]string{"max_length": "64"},
			},
			{
				Name:       fieldContent,
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": strconv.Itoa(maxContentLength)},
			},
			{
				Name:       fieldMetadata,
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": strconv.Itoa(maxContentLength)},
			},
			{
				Name:       fieldEmbedding,
				DataType:   entity.FieldTypeFloatVector,
				TypeParams: map[string]string{"dim": strconv.Itoa(m.config.Dimension)},
			},
			{
				Name:     fieldCreatedAt,
				DataType: entity.FieldTypeInt64,
			},
		},
	}
}

// Upsert writes documents by ID. Documents without an embedding are skipped.
func (m *MilvusIndex) Upsert(ctx context.Context, docs []Document) error {
	ids := make([]string, 0, len(docs))
	contents := make([]string, 0, len(docs))
	metas := make([]string, 0, len(docs))
	vectors := make([][]float32, 0, len(docs))
	created := make([]int64, 0, len(docs))

	for _, d := range docs {
		if len(d.Embedding) == 0 {
			continue
		}
		if len(d.Embedding) != m.config.Dimension {
			return fmt.Errorf("%w: expected %d, got %d", ErrInvalidDimension, m.config.Dimension, len(d.Embedding))
		}
		meta, err := json.Marshal(d.Metadata)
		if err != nil {
			return fmt.Errorf("%w: metadata for %s: %v", ErrInsertFailed, d.ID, err)
		}
		ids = append(ids, d.ID)
		contents = append(contents, truncate(d.Content, maxContentLength))
		metas = append(metas, truncate(string(meta), maxContentLength))
		vectors = append(vectors, d.Embedding)
		created = append(created, d.CreatedAt.Unix())
	}
	if len(ids) == 0 {
		return nil
	}

	columns := []entity.Column{
		entity.NewColumnVarChar(fieldID, ids),
		entity.NewColumnVarChar(fieldContent, contents),
		entity.NewColumnVarChar(fieldMetadata, metas),
		entity.NewColumnFloatVector(fieldEmbedding, m.config.Dimension, vectors),
		entity.NewColumnInt64(fieldCreatedAt, created),
	}

	if _, err := m.client.Upsert(ctx, m.config.CollectionName, "", columns...); err != nil {
		return fmt.Errorf("%w: %v", ErrInsertFailed, err)
	}
	return nil
}

// Query performs top-k cosine search. Milvus reports COSINE scores as
// similarities, so they are returned unchanged.
func (m *MilvusIndex) Query(ctx context.Context, vector []float32, k int) ([]Match, error) {
	if k <= 0 {
		return []Match{}, nil
	}
	if len(vector) != m.config.Dimension {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrInvalidDimension, m.config.Dimension, len(vector))
	}

	sp, err := entity.NewIndexHNSWSearchParam(max(m.config.EfSearch, k))
	if err != nil {
		return nil, fmt.Errorf("failed to create search params: %w", err)
	}

	results, err := m.client.Search(
		ctx,
		m.config.CollectionName,
		nil,
		"",
		[]string{fieldID, fieldContent, fieldMetadata},
		[]entity.Vector{entity.FloatVector(vector)},
		fieldEmbedding,
		entity.COSINE,
		k,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}
	if len(results) == 0 {
		return []Match{}, nil
	}

	res := results[0]
	matches := make([]Match, res.ResultCount)
	for i := range matches {
		matches[i].Score = res.Scores[i]
		matches[i].Metadata = Metadata{}
	}

	if ids, ok := res.IDs.(*entity.ColumnVarChar); ok {
		for i, id := range ids.Data() {
			if i < len(matches) {
				matches[i].ID = id
			}
		}
	}

	for _, field := range res.Fields {
		col, ok := field.(*entity.ColumnVarChar)
		if !ok {
			continue
		}
		data := col.Data()
		for i := 0; i < len(matches) && i < len(data); i++ {
			switch field.Name() {
			case fieldID:
				matches[i].ID = data[i]
			case fieldContent:
				matches[i].Content = data[i]
			case fieldMetadata:
				var meta Metadata
				if err := json.Unmarshal([]byte(data[i]), &meta); err == nil && meta != nil {
					matches[i].Metadata = meta
				}
			}
		}
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	return matches, nil
}

// Drop removes the collection. Used by integration tests.
func (m *MilvusIndex) Drop(ctx context.Context) error {
	return m.client.DropCollection(ctx, m.config.CollectionName)
}

// Close releases resources and closes the Milvus connection
func (m *MilvusIndex) Close() error {
	if m.client != nil {
		return m.client.Close()
	}
	return nil
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
