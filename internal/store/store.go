// Package store persists collection snapshots to SQLite so the agent can
// serve short-term history without an external time-series database.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver

	"github.com/HerbHall/edgewatch/internal/collect"
)

// Record is one persisted metric value.
type Record struct {
	Timestamp time.Time `json:"timestamp"`
	Name      string    `json:"name"`
	Value     int64     `json:"value"`
}

// SQLiteStore records snapshots in a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// New opens (or creates) the database at path, applies the recommended
// pragmas for WAL mode, and ensures the schema exists. Use ":memory:" for
// an ephemeral store in tests.
func New(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}

	// SQLite performs best with a single write connection. WAL enables concurrent readers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %q: %w", path, err)
	}

	// modernc.org/sqlite requires pragmas as SQL statements, not DSN params.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec %q: %w", p, err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	const schema = `
		CREATE TABLE IF NOT EXISTS snapshots (
			id    INTEGER  PRIMARY KEY AUTOINCREMENT,
			ts    DATETIME NOT NULL,
			name  TEXT     NOT NULL,
			value INTEGER  NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_snapshots_name_ts ON snapshots(name, ts);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create snapshots schema: %w", err)
	}
	return nil
}

// SaveSnapshot writes every metric of one cycle in a single transaction:
// either the whole snapshot is recorded or none of it.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, collectedAt time.Time, snap collect.Snapshot) error {
	if len(snap) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO snapshots (ts, name, value) VALUES (?, ?, ?)")
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	ts := collectedAt.UTC()
	for name, value := range snap {
		if _, err := stmt.ExecContext(ctx, ts, name, value); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert %s: %w", name, err)
		}
	}

	return tx.Commit()
}

// History returns records for one metric name since the given time, ordered
// by timestamp ascending. An empty name returns records for all metrics.
func (s *SQLiteStore) History(ctx context.Context, name string, since time.Time) ([]Record, error) {
	query := "SELECT ts, name, value FROM snapshots WHERE ts >= ? ORDER BY ts ASC"
	args := []any{since.UTC()}
	if name != "" {
		query = "SELECT ts, name, value FROM snapshots WHERE name = ? AND ts >= ? ORDER BY ts ASC"
		args = []any{name, since.UTC()}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.Timestamp, &r.Name, &r.Value); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
