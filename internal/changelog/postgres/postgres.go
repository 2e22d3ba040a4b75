package postgres

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/hyprsave/hyprsave/internal/changelog"
)

// DB implements changelog.Store for PostgreSQL via the pgx stdlib driver.
type DB struct {
	db *sql.DB
}

func init() {
	changelog.RegisterBackend("postgres", func(location string) (changelog.Store, error) {
		return New(location)
	})
	changelog.RegisterBackend("postgresql", func(location string) (changelog.Store, error) {
		return New(location)
	})
}

func New(dsn string) (*DB, error) {
	d, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return &DB{db: d}, nil
}

func (p *DB) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS change_log(
			id BIGSERIAL PRIMARY KEY,
			occurred_at TIMESTAMPTZ NOT NULL,
			path TEXT NOT NULL,
			change_type TEXT NOT NULL,
			score INTEGER NOT NULL,
			triggered BOOLEAN NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_change_log_occurred ON change_log(occurred_at);`,
		`CREATE INDEX IF NOT EXISTS idx_change_log_type ON change_log(change_type);`,
	}
	for _, q := range stmts {
		if _, err := p.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (p *DB) Close() error { return p.db.Close() }

func (p *DB) Append(ctx context.Context, e changelog.Entry) error {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO change_log(occurred_at, path, change_type, score, triggered)
		VALUES($1,$2,$3,$4,$5);`,
		e.OccurredAt.UTC(), e.Path, e.Type, e.Score, e.Triggered)
	return err
}

func (p *DB) Recent(ctx context.Context, limit int) ([]changelog.Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, occurred_at, path, change_type, score, triggered
		FROM change_log
		ORDER BY occurred_at DESC, id DESC
		LIMIT $1;`, limit)
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
