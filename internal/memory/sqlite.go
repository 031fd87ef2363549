package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

var filterKey = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// SQLiteDocuments is a DocumentStore backed by a single SQLite file.
type SQLiteDocuments struct {
	conn *sqlx.DB
}

type documentRow struct {
	ID        int64     `db:"id"`
	Content   string    `db:"content"`
	Metadata  string    `db:"metadata"`
	Embedding string    `db:"embedding"`
	CreatedAt time.Time `db:"created_at"`
}

// OpenSQLiteDocuments opens or creates the document database at path.
func OpenSQLiteDocuments(path string) (*SQLiteDocuments, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("%w: open db: %v", ErrStoreUnavailable, err)
	}
	// Fan-out stages write concurrently; one connection serialises them.
	conn.SetMaxOpenConns(1)

	s := &SQLiteDocuments{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: migrate: %v", ErrStoreUnavailable, err)
	}
	return s, nil
}

func (s *SQLiteDocuments) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		content TEXT NOT NULL,
		metadata TEXT NOT NULL DEFAULT '{}',
		embedding TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_documents_type ON documents(json_extract(metadata, '$.type'));
	`
	_, err := s.conn.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteDocuments) Close() error {
	return s.conn.Close()
}

// Insert stores doc and returns its row id as a string.
func (s *SQLiteDocuments) Insert(ctx context.Context, doc Document) (string, error) {
	meta, err := json.Marshal(nonNil(doc.Metadata))
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	var emb []byte
	if len(doc.Embedding) > 0 {
		if emb, err = json.Marshal(doc.Embedding); err != nil {
			return "", fmt.Errorf("encode embedding: %w", err)
		}
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	res, err := s.conn.ExecContext(ctx,
		`INSERT INTO documents (content, metadata, embedding, created_at) VALUES (?, ?, ?, ?)`,
		doc.Content, string(meta), string(emb), doc.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("%w: insert: %v", ErrStoreUnavailable, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("%w: insert id: %v", ErrStoreUnavailable, err)
	}
	return strconv.FormatInt(id, 10), nil
}

// FindLatest returns the newest document whose metadata matches filter.
func (s *SQLiteDocuments) FindLatest(ctx context.Context, filter Filter) (*Document, error) {
	keys := make([]string, 0, len(filter))
	for k := range filter {
		if !filterKey.MatchString(k) {
			return nil, fmt.Errorf("%w: key %q", ErrInvalidFilter, k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var where []string
	args := make([]any, 0, len(keys))
	for _, k := range keys {
		where = append(where, fmt.Sprintf("json_extract(metadata, '$.%s') = ?", k))
		args = append(args, filter[k])
	}

	query := `SELECT id, content, metadata, embedding, created_at FROM documents`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY id DESC LIMIT 1`

	var row documentRow
	if err := s.conn.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: find: %v", ErrStoreUnavailable, err)
	}
	return row.document()
}

// Get returns the document with id.
func (s *SQLiteDocuments) Get(ctx context.Context, id string) (*Document, error) {
	rowID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, ErrNotFound
	}

	var row documentRow
	err = s.conn.GetContext(ctx, &row,
		`SELECT id, content, metadata, embedding, created_at FROM documents WHERE id = ?`, rowID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: get: %v", ErrStoreUnavailable, err)
	}
	return row.document()
}

// Update merges patch into the stored metadata inside one transaction.
func (s *SQLiteDocuments) Update(ctx context.Context, id string, patch Metadata) error {
	rowID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return ErrNotFound
	}

	tx, err := s.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrStoreUnavailable, err)
	}
	defer tx.Rollback()

	var raw string
	if err := tx.GetContext(ctx, &raw, `SELECT metadata FROM documents WHERE id = ?`, rowID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: read: %v", ErrStoreUnavailable, err)
	}

	meta := Metadata{}
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &meta); err != nil {
			return fmt.Errorf("decode metadata: %w", err)
		}
	}
	for k, v := range patch {
		meta[k] = v
	}
	encoded, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE documents SET metadata = ? WHERE id = ?`, string(encoded), rowID); err != nil {
		return fmt.Errorf("%w: update: %v", ErrStoreUnavailable, err)
	}
	return tx.Commit()
}

func (r documentRow) document() (*Document, error) {
	doc := &Document{
		ID:        strconv.FormatInt(r.ID, 10),
		Content:   r.Content,
		Metadata:  Metadata{},
		CreatedAt: r.CreatedAt,
	}
	if r.Metadata != "" {
		if err := json.Unmarshal([]byte(r.Metadata), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	if r.Embedding != "" {
		if err := json.Unmarshal([]byte(r.Embedding), &doc.Embedding); err != nil {
			return nil, fmt.Errorf("decode embedding: %w", err)
		}
	}
	return doc, nil
}

func nonNil(m Metadata) Metadata {
	if m == nil {
		return Metadata{}
	}
	return m
}
