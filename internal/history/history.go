// Package history keeps the counts observed on each verification run, so
// later runs can check that the event log only grows.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	run_id      TEXT PRIMARY KEY,
	taken_at    INTEGER NOT NULL,
	root        TEXT NOT NULL,
	event_count INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS snapshots_root_taken ON snapshots(root, taken_at);
CREATE TABLE IF NOT EXISTS table_counts (
	run_id     TEXT NOT NULL REFERENCES snapshots(run_id),
	table_name TEXT NOT NULL,
	row_count  INTEGER NOT NULL,
	PRIMARY KEY (run_id, table_name)
);`

// Snapshot is what one run observed. EventCount is -1 when the event log
// could not be read.
type Snapshot struct {
	RunID       string           `json:"run_id"`
	TakenAt     time.Time        `json:"taken_at"`
	Root        string           `json:"root"`
	EventCount  int64            `json:"event_count"`
	TableCounts map[string]int64 `json:"table_counts"`
}

type Store struct {
	db *sql.DB
}

// Open opens or creates the store at path, creating its directory.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// NewSnapshot starts a snapshot for root with a fresh run id.
func NewSnapshot(root string) *Snapshot {
	return &Snapshot{
		RunID:       uuid.NewString(),
		TakenAt:     time.Now().UTC(),
		Root:        root,
		EventCount:  -1,
		TableCounts: map[string]int64{},
	}
}

func (s *Store) Record(ctx context.Context, snap *Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO snapshots (run_id, taken_at, root, event_count) VALUES (?, ?, ?, ?)`,
		snap.RunID, snap.TakenAt.UnixNano(), snap.Root, snap.EventCount,
	); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	for table, n := range snap.TableCounts {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO table_counts (run_id, table_name, row_count) VALUES (?, ?, ?)`,
			snap.RunID, table, n,
		); err != nil {
			return fmt.Errorf("insert table count: %w", err)
		}
	}
	return tx.Commit()
}

// Latest returns the most recent snapshot for root that observed the event
// log, or nil if none exists. Runs that could not read the event log are
// skipped so they never become the baseline.
func (s *Store) Latest(ctx context.Context, root string) (*Snapshot, error) {
	snaps, err := s.query(ctx, `WHERE root = ? AND event_count >= 0`, []any{root}, 1)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, nil
	}
	return snaps[0], nil
}

// List returns up to limit snapshots for root, newest first. A limit of zero
// or less returns all of them.
func (s *Store) List(ctx context.Context, root string, limit int) ([]*Snapshot, error) {
	return s.query(ctx, `WHERE root = ?`, []any{root}, limit)
}

func (s *Store) query(ctx context.Context, where string, args []any, limit int) ([]*Snapshot, error) {
	query := `SELECT run_id, taken_at, root, event_count FROM snapshots ` + where + ` ORDER BY taken_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	var snaps []*Snapshot
	for rows.Next() {
		var (
			snap    Snapshot
			takenAt int64
		)
		if err := rows.Scan(&snap.RunID, &takenAt, &snap.Root, &snap.EventCount); err != nil {
			rows.Close()
			return nil, err
		}
		snap.TakenAt = time.Unix(0, takenAt).UTC()
		snaps = append(snaps, &snap)
	}
	if err := errors.Join(rows.Err(), rows.Close()); err != nil {
		return nil, err
	}

	for _, snap := range snaps {
		if snap.TableCounts, err = s.tableCounts(ctx, snap.RunID); err != nil {
			return nil, err
		}
	}
	return snaps, nil
}

func (s *Store) tableCounts(ctx context.Context, runID string) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT table_name, row_count FROM table_counts WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("list table counts: %w", err)
	}
	defer rows.Close()

	counts := map[string]int64{}
	for rows.Next() {
		var (
			table string
			n     int64
		)
		if err := rows.Scan(&table, &n); err != nil {
			return nil, err
		}
		counts[table] = n
	}
	return counts, rows.Err()
}
