package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hyprsave/hyprsave/internal/changelog"
)

// DB implements changelog.Store for SQLite (modernc.org/sqlite driver,
// CGO-free). Location is a filesystem path; use ":memory:" for in-memory.

type DB struct {
	db *sql.DB
}

func init() {
	changelog.RegisterBackend("sqlite", func(location string) (changelog.Store, error) {
		return New(location)
	})
}

// New opens a SQLite database at path.
func New(path string) (*DB, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil, errors.New("empty sqlite path")
	}
	d, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, err
	}
	// busy timeout helps with short concurrent locks
	_, _ = d.Exec("PRAGMA busy_timeout=3000;")
	return &DB{db: d}, nil
}

func (s *DB) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS change_log(
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			occurred_at TIMESTAMP NOT NULL,
			path TEXT NOT NULL,
			change_type TEXT NOT NULL,
			score INTEGER NOT NULL,
			triggered BOOLEAN NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_change_log_occurred ON change_log(occurred_at);`,
		`CREATE INDEX IF NOT EXISTS idx_change_log_type ON change_log(change_type);`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (s *DB) Close() error { return s.db.Close() }

func (s *DB) Append(ctx context.Context, e changelog.Entry) error {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO change_log(occurred_at, path, change_type, score, triggered)
		VALUES(?, ?, ?, ?, ?);`,
		e.OccurredAt.UTC(), e.Path, e.Type, e.Score, e.Triggered)
	return err
}

func (s *DB) Recent(ctx context.Context, limit int) ([]changelog.Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, occurred_at, path, change_type, score, triggered
		FROM change_log
		ORDER BY occurred_at DESC, id DESC
		LIMIT ?;`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []changelog.Entry
	for rows.Next() {
		var e changelog.Entry
		if err := rows.Scan(&e.ID, &e.OccurredAt, &e.Path, &e.Type, &e.Score, &e.Triggered); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
