// Package sqlite stores the domain collection in a single-row key/value table of a SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/lllypuk/collabfront/internal/domain/record"
	"github.com/lllypuk/collabfront/internal/infrastructure/repository"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Open connects to the SQLite database at path and applies pending migrations.
func Open(path string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("sqlite", fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path))
	if err != nil {
		return nil, fmt.Errorf("connecting to db: %w", err)
	}

	db.SetMaxOpenConns(1)

	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())

	if err = goose.SetDialect(string(goose.DialectSQLite3)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("setting dialect for migrations: %w", err)
	}

	if err = goose.Up(db.DB, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("applying migrations: %w", err)
	}

	return db, nil
}

// Repository implements domainstore.Repository on the kv table.
type Repository struct {
	db  *sqlx.DB
	key string
}

// NewRepository creates a repository storing the collection under key.
func NewRepository(db *sqlx.DB, key string) *Repository {
	if key == "" {
		key = repository.DefaultKey
	}
	return &Repository{db: db, key: key}
}

// Load reads the collection. A missing row is not an error.
func (r *Repository) Load(ctx context.Context) ([]record.Domain, error) {
	var value string
	err := r.db.GetContext(ctx, &value, `SELECT value FROM kv WHERE key = ?`, r.key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("selecting %s: %w", r.key, err)
	}
	return repository.Decode([]byte(value))
}

// Save upserts the whole collection.
func (r *Repository) Save(ctx context.Context, domains []record.Domain) error {
	data, err := repository.Encode(domains)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		r.key, string(data), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upserting %s: %w", r.key, err)
	}
	return nil
}
