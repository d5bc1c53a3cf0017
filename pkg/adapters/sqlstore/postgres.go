package sqlstore

import (
	_ "embed"

	_ "github.com/lib/pq"
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// NewPostgres opens a PostgreSQL store and applies migrations.
func NewPostgres(opts ...Option) (*Store, error) {
	s, err := open("postgres", dialectPostgres, postgresMigrations, opts)
	if err != nil {
		return nil, err
	}
	s.db.SetMaxOpenConns(DefaultMaxOpenConns)
	s.db.SetMaxIdleConns(DefaultMaxIdleConns)
	s.db.SetConnMaxLifetime(DefaultConnMaxLifetime)
	return s, nil
}
