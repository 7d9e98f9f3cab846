package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"ShortsFactory/internal/ports"
)

const (
	seenTable = "seen_items"
	// SQLite caps host parameters; keep IN lists well under it.
	queryChunk = 500
)

const schema = `CREATE TABLE IF NOT EXISTS seen_items (
	id      TEXT PRIMARY KEY,
	seen_at TIMESTAMP NOT NULL
)`

// SQLiteDedupIndex persists collected item identities for one profile.
type SQLiteDedupIndex struct {
	db  *sql.DB
	now func() time.Time
}

var _ ports.DedupIndex = (*SQLiteDedupIndex)(nil)

// OpenDedupIndex opens (or creates) the index database at path.
func OpenDedupIndex(path string) (*SQLiteDedupIndex, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("dedup index: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("dedup index: open: %w", err)
	}
	// One writer keeps modernc from racing on the same file.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{"PRAGMA journal_mode = WAL", "PRAGMA busy_timeout = 10000", schema} {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("dedup index: init: %w", err)
		}
	}

	return NewSQLiteDedupIndex(db), nil
}

// NewSQLiteDedupIndex wraps an already initialised sql.DB.
func NewSQLiteDedupIndex(db *sql.DB) *SQLiteDedupIndex {
	return &SQLiteDedupIndex{db: db, now: time.Now}
}

// Close releases the underlying database.
func (r *SQLiteDedupIndex) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Has reports whether id was previously added.
func (r *SQLiteDedupIndex) Has(ctx context.Context, id string) (bool, error) {
	seen, err := r.Seen(ctx, []string{id})
	if err != nil {
		return false, err
	}
	return seen[id], nil
}

// Seen returns the subset of ids already present in the index.
func (r *SQLiteDedupIndex) Seen(ctx context.Context, ids []string) (map[string]bool, error) {
	result := make(map[string]bool)
	if r.db == nil || len(ids) == 0 {
		return result, nil
	}

	for start := 0; start < len(ids); start += queryChunk {
		end := min(start+queryChunk, len(ids))
		if err := r.collectSeen(ctx, ids[start:end], result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (r *SQLiteDedupIndex) collectSeen(ctx context.Context, ids []string, into map[string]bool) error {
	query, args, err := sq.Select("id").From(seenTable).Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return fmt.Errorf("build seen query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query seen: %w", err)
	}

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return fmt.Errorf("scan id: %w", err)
		}
		into[id] = true
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return fmt.Errorf("close rows: %w", closeErr)
	}
	return nil
}

// Add records ids. Re-adding an existing id is a no-op.
func (r *SQLiteDedupIndex) Add(ctx context.Context, ids ...string) error {
	if r.db == nil || len(ids) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin add: %w", err)
	}

	now := r.now().UTC()
	for start := 0; start < len(ids); start += queryChunk {
		end := min(start+queryChunk, len(ids))
		insert := sq.Insert(seenTable).Columns("id", "seen_at").Suffix("ON CONFLICT(id) DO NOTHING")
		for _, id := range ids[start:end] {
			insert = insert.Values(id, now)
		}
		query, args, err := insert.ToSql()
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("build insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert seen: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit add: %w", err)
	}
	return nil
}

// Count returns the number of recorded identities.
func (r *SQLiteDedupIndex) Count(ctx context.Context) (int, error) {
	if r.db == nil {
		return 0, nil
	}
	query, args, err := sq.Select("COUNT(*)").From(seenTable).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count: %w", err)
	}
	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count seen: %w", err)
	}
	return n, nil
}
