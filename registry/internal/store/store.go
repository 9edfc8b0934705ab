// Package store provides the SQLite persistence layer for the window
// registry.
package store

import (
	"database/sql"

	"github.com/hazyhaar/windriver/dbopen"
)

// Store is the registry database handle.
type Store struct {
	DB *sql.DB
}

// Open opens (or creates) the registry database at path and applies the
// schema. ":memory:" yields a private in-memory database.
func Open(path string, opts ...dbopen.Option) (*Store, error) {
	allOpts := append([]dbopen.Option{
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(Schema),
	}, opts...)

	db, err := dbopen.Open(path, allOpts...)
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	return &Store{DB: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.DB.Close()
}
