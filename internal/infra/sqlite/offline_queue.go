// Package sqlite keeps the offline result queue in a local SQLite file so
// unsynced results survive restarts.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"

	"mathfly-quiz-service/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS offline_results (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	id          TEXT NOT NULL UNIQUE,
	user_id     TEXT NOT NULL,
	payload     TEXT NOT NULL,
	enqueued_at INTEGER NOT NULL,
	synced      INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS offline_results_pending_idx ON offline_results (user_id, synced, seq);
`

// OfflineQueue is an app.OfflineQueue backed by SQLite.
type OfflineQueue struct {
	db *sql.DB
}

// Open opens (or creates) the queue database at path.
func Open(path string) (*OfflineQueue, error) {
	if err := ensureDir(path); err != nil {
		return nil, fmt.Errorf("create queue dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &OfflineQueue{db: db}, nil
}

func (q *OfflineQueue) Close() error {
	return q.db.Close()
}

// Enqueue stores entry unsynced. Re-enqueuing a known id is a no-op.
func (q *OfflineQueue) Enqueue(ctx context.Context, entry domain.OfflineEntry) error {
	payload, err := json.Marshal(entry.Result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	_, err = q.db.ExecContext(ctx, `
		INSERT INTO offline_results (id, user_id, payload, enqueued_at, synced)
		VALUES (?, ?, ?, ?, 0)
		ON CONFLICT (id) DO NOTHING`,
		entry.ID, entry.UserID, string(payload), entry.EnqueuedAt.UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", entry.ID, err)
	}
	return nil
}

func (q *OfflineQueue) Unsynced(ctx context.Context, userID string) ([]domain.OfflineEntry, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, user_id, payload, enqueued_at
		FROM offline_results
		WHERE user_id = ? AND synced = 0
		ORDER BY seq`, userID)
	if err != nil {
		return nil, fmt.Errorf("list unsynced: %w", err)
	}
	defer rows.Close()

	var out []domain.OfflineEntry
	for rows.Next() {
		var (
			e          domain.OfflineEntry
			payload    string
			enqueuedAt int64
		)
		if err := rows.Scan(&e.ID, &e.UserID, &payload, &enqueuedAt); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &e.Result); err != nil {
			return nil, fmt.Errorf("decode entry %s: %w", e.ID, err)
		}
		e.EnqueuedAt = time.UnixMilli(enqueuedAt).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

func (q *OfflineQueue) MarkSynced(ctx context.Context, id string) (bool, error) {
	res, err := q.db.ExecContext(ctx, `UPDATE offline_results SET synced = 1 WHERE id = ? AND synced = 0`, id)
	if err != nil {
		return false, fmt.Errorf("mark synced %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// PendingCount returns the number of unsynced entries across all users.
func (q *OfflineQueue) PendingCount(ctx context.Context) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM offline_results WHERE synced = 0`).Scan(&n)
	return n, err
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// DefaultPath resolves the queue file path in priority order:
// 1. MATHFLY_OFFLINE_DB environment variable
// 2. $XDG_DATA_HOME/mathfly/offline.db
// 3. ~/.local/share/mathfly/offline.db
func DefaultPath() (string, error) {
	if p := os.Getenv("MATHFLY_OFFLINE_DB"); p != "" {
		return p, nil
	}
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "mathfly", "offline.db"), nil
}

func ensureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
