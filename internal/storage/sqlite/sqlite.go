// Package sqlite provides a durable schema.Storage on database/sql. One
// records table serves every resource, with field values stored as a
// JSON document, and an audit_log table backs the import audit trail.
// Commit-mode imports get their per-row rollback boundary from real
// SQL transactions.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"strconv"

	"github.com/sheetport/sheetport/internal/audit"
	"github.com/sheetport/sheetport/pkg/errors"
	"github.com/sheetport/sheetport/pkg/schema"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS records (
	resource TEXT NOT NULL,
	id       TEXT NOT NULL,
	data     TEXT NOT NULL,
	PRIMARY KEY (resource, id)
);

CREATE TABLE IF NOT EXISTS audit_log (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	resource   TEXT NOT NULL,
	object_id  TEXT NOT NULL,
	action     TEXT NOT NULL,
	repr       TEXT NOT NULL,
	row_number INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL
);
`

// Store is a SQLite-backed record store. It implements schema.Storage,
// schema.Transactional, and audit.Recorder.
type Store struct {
	db       *sql.DB
	resource *schema.Resource
}

// New wraps an open database handle. Init must be called before first
// use unless the tables already exist.
func New(db *sql.DB, resource *schema.Resource) (*Store, error) {
	if db == nil {
		return nil, errors.NewValidationError("db", nil, "database handle cannot be nil")
	}
	if resource == nil {
		return nil, errors.NewValidationError("resource", nil, "resource cannot be nil")
	}
	return &Store{db: db, resource: resource}, nil
}

// Init creates the records and audit_log tables if missing.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return errors.WrapStorage("init", s.resource.Name(), "", err)
	}
	return nil
}

// querier is the subset of *sql.DB and *sql.Tx the store needs, so
// every operation runs against the ambient transaction when one is
// open.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type txKey struct{}

func (s *Store) q(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return s.db
}

// Lookup finds the record whose import key matches key under the key
// field's coercion and equality rules. The match cannot be pushed into
// SQL because "1" and "01" compare equal for an integer key, so rows
// are scanned and compared in Go. An empty key never matches.
func (s *Store) Lookup(ctx context.Context, key string) (*schema.Record, bool, error) {
	if key == "" {
		return nil, false, nil
	}

	keyField, _ := s.resource.Field(s.resource.KeyField())
	want, err := keyField.Coerce(key)
	if err != nil {
		return nil, false, err
	}

	records, err := s.scan(ctx, schema.Filter{})
	if err != nil {
		return nil, false, err
	}
	for _, rec := range records {
		got, err := keyField.Coerce(rec.Get(s.resource.KeyField()))
		if err != nil {
			continue
		}
		if keyField.Equals(want, got) {
			clone := rec.Clone()
			return &clone, true, nil
		}
	}
	return nil, false, nil
}

// Create inserts a new record and returns its identity. A non-empty
// import key becomes the identity; otherwise the next numeric id is
// assigned and back-filled into the key field.
func (s *Store) Create(ctx context.Context, rec *schema.Record) (string, error) {
	if rec == nil {
		return "", errors.NewValidationError("record", nil, "record cannot be nil")
	}

	stored := rec.Clone()
	if stored.ID == "" {
		stored.ID = stored.Get(s.resource.KeyField())
	}
	if stored.ID == "" {
		next, err := s.nextID(ctx)
		if err != nil {
			return "", err
		}
		stored.ID = next
	}
	if stored.Get(s.resource.KeyField()) == "" {
		stored.Set(s.resource.KeyField(), stored.ID)
	}

	data, err := json.Marshal(stored.Values)
	if err != nil {
		return "", errors.WrapStorage("create", s.resource.Name(), stored.ID, err)
	}

	var exists int
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT COUNT(*) FROM records WHERE resource = ? AND id = ?`,
		s.resource.Name(), stored.ID)
	if err != nil {
		return "", errors.WrapStorage("create", s.resource.Name(), stored.ID, err)
	}
	if rows.Next() {
		if err := rows.Scan(&exists); err != nil {
			rows.Close()
			return "", errors.WrapStorage("create", s.resource.Name(), stored.ID, err)
		}
	}
	if err := rows.Close(); err != nil {
		return "", errors.WrapStorage("create", s.resource.Name(), stored.ID, err)
	}
	if exists > 0 {
		return "", errors.ErrAlreadyExists
	}

	_, err = s.q(ctx).ExecContext(ctx,
		`INSERT INTO records (resource, id, data) VALUES (?, ?, ?)`,
		s.resource.Name(), stored.ID, string(data))
	if err != nil {
		return "", errors.WrapStorage("create", s.resource.Name(), stored.ID, err)
	}

	rec.ID = stored.ID
	return stored.ID, nil
}

// Update overwrites the stored record matched by rec.ID.
func (s *Store) Update(ctx context.Context, rec *schema.Record) error {
	if rec == nil || rec.ID == "" {
		return errors.NewValidationError("record", rec, "record with ID required")
	}

	data, err := json.Marshal(rec.Values)
	if err != nil {
		return errors.WrapStorage("update", s.resource.Name(), rec.ID, err)
	}

	result, err := s.q(ctx).ExecContext(ctx,
		`UPDATE records SET data = ? WHERE resource = ? AND id = ?`,
		string(data), s.resource.Name(), rec.ID)
	if err != nil {
		return errors.WrapStorage("update", s.resource.Name(), rec.ID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return errors.WrapStorage("update", s.resource.Name(), rec.ID, err)
	}
	if n == 0 {
		return errors.NewNotFoundError(s.resource.Name(), rec.ID)
	}
	return nil
}

// Delete removes the record with the given identity.
func (s *Store) Delete(ctx context.Context, id string) error {
	result, err := s.q(ctx).ExecContext(ctx,
		`DELETE FROM records WHERE resource = ? AND id = ?`,
		s.resource.Name(), id)
	if err != nil {
		return errors.WrapStorage("delete", s.resource.Name(), id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return errors.WrapStorage("delete", s.resource.Name(), id, err)
	}
	if n == 0 {
		return errors.NewNotFoundError(s.resource.Name(), id)
	}
	return nil
}

// List returns records matching the filter in stable ID order: numeric
// ids first in numeric order, then the rest lexicographically.
func (s *Store) List(ctx context.Context, f schema.Filter) ([]schema.Record, error) {
	records, err := s.scan(ctx, f)
	if err != nil {
		return nil, err
	}
	if f.Limit > 0 && len(records) > f.Limit {
		records = records[:f.Limit]
	}
	return records, nil
}

// InTransaction runs fn inside one SQL transaction, rolling back when
// fn returns an error. Calls nested inside an open transaction join it.
func (s *Store) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.WrapStorage("begin", s.resource.Name(), "", err)
	}

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.WrapStorage("rollback", s.resource.Name(), "", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.WrapStorage("commit", s.resource.Name(), "", err)
	}
	return nil
}

// Record persists one audit entry.
func (s *Store) Record(ctx context.Context, entry audit.Entry) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`INSERT INTO audit_log (resource, object_id, action, repr, row_number, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.Resource, entry.ObjectID, string(entry.Action), entry.Repr, entry.RowNumber, entry.When)
	if err != nil {
		return errors.WrapStorage("audit", entry.Resource, entry.ObjectID, err)
	}
	return nil
}

// scan reads and decodes every record for the resource, filtered and
// sorted like the in-memory store so both backends order identically.
func (s *Store) scan(ctx context.Context, f schema.Filter) ([]schema.Record, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT id, data FROM records WHERE resource = ?`, s.resource.Name())
	if err != nil {
		return nil, errors.WrapStorage("list", s.resource.Name(), "", err)
	}
	defer rows.Close()

	var records []schema.Record
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, errors.WrapStorage("list", s.resource.Name(), "", err)
		}
		rec := schema.Record{ID: id}
		if err := json.Unmarshal([]byte(data), &rec.Values); err != nil {
			return nil, errors.WrapStorage("list", s.resource.Name(), id, err)
		}
		if matches(rec, f) {
			records = append(records, rec)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapStorage("list", s.resource.Name(), "", err)
	}

	sort.Slice(records, func(i, j int) bool {
		return idLess(records[i].ID, records[j].ID)
	})
	return records, nil
}

// nextID returns the smallest unused numeric identity.
func (s *Store) nextID(ctx context.Context) (string, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT COALESCE(MAX(CAST(id AS INTEGER)), 0) + 1 FROM records WHERE resource = ?`,
		s.resource.Name())
	if err != nil {
		return "", errors.WrapStorage("create", s.resource.Name(), "", err)
	}
	defer rows.Close()

	next := int64(1)
	if rows.Next() {
		if err := rows.Scan(&next); err != nil {
			return "", errors.WrapStorage("create", s.resource.Name(), "", err)
		}
	}
	if err := rows.Err(); err != nil {
		return "", errors.WrapStorage("create", s.resource.Name(), "", err)
	}
	return strconv.FormatInt(next, 10), nil
}

func idLess(a, b string) bool {
	na, aErr := strconv.ParseInt(a, 10, 64)
	nb, bErr := strconv.ParseInt(b, 10, 64)
	switch {
	case aErr == nil && bErr == nil:
		return na < nb
	case aErr == nil:
		return true
	case bErr == nil:
		return false
	default:
		return a < b
	}
}

func matches(rec schema.Record, f schema.Filter) bool {
	for fieldID, want := range f.Equals {
		if rec.Get(fieldID) != want {
			return false
		}
	}
	return true
}
