package sqlite

import (
	"context"
	"database/sql"

	// Registers the sqlite3 driver.
	_ "github.com/mattn/go-sqlite3"

	"github.com/sheetport/sheetport/pkg/errors"
	"github.com/sheetport/sheetport/pkg/schema"
)

// Open opens (creating if needed) a SQLite database at path and
// initializes the tables. Use ":memory:" for an ephemeral database.
func Open(ctx context.Context, path string, resource *schema.Resource) (*Store, error) {
	if path == "" {
		return nil, errors.NewConfigError("sqlite", "database path is required", nil)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.WrapStorage("open", resource.Name(), "", err)
	}

	store, err := New(db, resource)
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
