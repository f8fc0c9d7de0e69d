package vectorstore

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS chunks (
	id         TEXT PRIMARY KEY,
	owner      TEXT NOT NULL,
	repo       TEXT NOT NULL,
	position   INTEGER NOT NULL,
	source     TEXT NOT NULL,
	content    TEXT NOT NULL,
	embedding  BLOB NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chunks_namespace ON chunks(owner, repo, position);
`

// SQLiteBackend persists records in a SQLite database.
type SQLiteBackend struct {
	db *sql.DB
}

// NewSQLiteBackend opens (or creates) the database at path.
func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteBackend{db: db}, nil
}

// Replace deletes the namespace's rows and inserts records in one transaction.
func (s *SQLiteBackend) Replace(ctx context.Context, ns Namespace, records []Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE owner = ? AND repo = ?`, ns.Owner, ns.Repo); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO chunks (id, owner, repo, position, source, content, embedding, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.ID, ns.Owner, ns.Repo, r.Position, r.Source, r.Content, encodeVector(r.Embedding), r.CreatedAt.UnixNano()); err != nil {
			return fmt.Errorf("insert chunk %d: %w", r.Position, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Records returns the namespace's rows ordered by position.
func (s *SQLiteBackend) Records(ctx context.Context, ns Namespace) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, position, source, content, embedding, created_at FROM chunks WHERE owner = ? AND repo = ? ORDER BY position`, ns.Owner, ns.Repo)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			r       Record
			blob    []byte
			created int64
		)
		if err := rows.Scan(&r.ID, &r.Position, &r.Source, &r.Content, &blob, &created); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		r.Embedding = decodeVector(blob)
		r.CreatedAt = time.Unix(0, created)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return records, nil
}

// Close closes the database connection.
func (s *SQLiteBackend) Close() error {
	return s.db.Close()
}

// encodeVector stores a vector as little-endian float32s.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v
}
