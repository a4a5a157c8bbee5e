package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ppiankov/parafrasa/internal/model"

	_ "modernc.org/sqlite" // SQLite driver
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS paragraph_results (
    run_key      TEXT NOT NULL,
    paragraph_id TEXT NOT NULL,
    para_index   INTEGER NOT NULL,
    provenance   TEXT NOT NULL,
    result       TEXT NOT NULL,
    completed_at TIMESTAMP NOT NULL,
    PRIMARY KEY (run_key, paragraph_id)
);

CREATE INDEX IF NOT EXISTS idx_paragraph_results_run ON paragraph_results(run_key);
`

// SQLiteStore is a Store backed by a SQLite file
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at path and applies the schema.
// ":memory:" gives a throwaway database.
func NewSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("store path is empty")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Writes come from many workers; a single connection serializes them
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, runKey string, result model.Result) error {
	if !result.Done() {
		return ErrNotDone
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO paragraph_results (run_key, paragraph_id, para_index, provenance, result, completed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_key, paragraph_id) DO UPDATE SET
			para_index = excluded.para_index,
			provenance = excluded.provenance,
			result = excluded.result,
			completed_at = excluded.completed_at`,
		runKey, result.RequestID, result.ParagraphIndex, result.Candidate.Provenance, string(payload), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save result %s: %w", result.RequestID, err)
	}
	return nil
}

func (s *SQLiteStore) Completed(ctx context.Context, runKey string) (map[string]model.Result, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT paragraph_id, result FROM paragraph_results WHERE run_key = ?`, runKey)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]model.Result)
	for rows.Next() {
		var id, payload string
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		var r model.Result
		if err := json.Unmarshal([]byte(payload), &r); err != nil {
			return nil, fmt.Errorf("decode result %s: %w", id, err)
		}
		out[id] = r
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) Reset(ctx context.Context, runKey string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM paragraph_results WHERE run_key = ?`, runKey); err != nil {
		return fmt.Errorf("reset run %s: %w", runKey, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
