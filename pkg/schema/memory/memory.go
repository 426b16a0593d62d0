// Package memory provides an in-memory schema.Storage, used as the
// library default and throughout the test suite.
package memory

import (
	"context"
	"sort"
	"strconv"

	"github.com/sheetport/sheetport/pkg/errors"
	"github.com/sheetport/sheetport/pkg/schema"
)

// Option is a function that configures a memory Store.
type Option func(*config) error

// WithReadOnly configures the Store to reject writes.
func WithReadOnly(readOnly bool) Option {
	return func(cfg *config) error {
		cfg.readOnly = readOnly
		return nil
	}
}

// WithRecords preloads records into the Store. Records without an ID are
// assigned one.
func WithRecords(records ...schema.Record) Option {
	return func(cfg *config) error {
		cfg.preload = append(cfg.preload, records...)
		return nil
	}
}

// config is the configuration for a memory Store.
type config struct {
	readOnly bool
	preload  []schema.Record
}

// Store is an in-memory record store keyed by the resource's import key.
// It implements schema.Storage and schema.Transactional.
type Store struct {
	resource *schema.Resource
	readOnly bool
	nextID   int64
	records  map[string]schema.Record // by record ID
}

// New creates an in-memory store for the given resource.
func New(resource *schema.Resource, opts ...Option) (*Store, error) {
	if resource == nil {
		return nil, errors.NewValidationError("resource", nil, "resource cannot be nil")
	}

	cfg := &config{}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	s := &Store{
		resource: resource,
		nextID:   1,
		records:  make(map[string]schema.Record),
	}
	for _, rec := range cfg.preload {
		if _, err := s.Create(context.Background(), &rec); err != nil {
			return nil, err
		}
	}
	s.readOnly = cfg.readOnly

	return s, nil
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	return len(s.records)
}

// Lookup finds the record whose import key equals key. An empty key
// never matches.
func (s *Store) Lookup(_ context.Context, key string) (*schema.Record, bool, error) {
	if key == "" {
		return nil, false, nil
	}

	keyField, _ := s.resource.Field(s.resource.KeyField())
	want, err := keyField.Coerce(key)
	if err != nil {
		return nil, false, err
	}

	for _, id := range s.sortedIDs() {
		rec := s.records[id]
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

// Create stores a new record and returns its assigned identity. A
// non-empty import key becomes the identity, so a previewed row and its
// later commit resolve to the same object id; otherwise an autoincrement
// identity is assigned and back-filled into the key field.
func (s *Store) Create(_ context.Context, rec *schema.Record) (string, error) {
	if s.readOnly {
		return "", errors.ErrReadOnly
	}
	if rec == nil {
		return "", errors.NewValidationError("record", nil, "record cannot be nil")
	}

	stored := rec.Clone()
	if stored.ID == "" {
		stored.ID = stored.Get(s.resource.KeyField())
	}
	if stored.ID == "" {
		stored.ID = strconv.FormatInt(s.nextID, 10)
		s.nextID++
	}
	if _, exists := s.records[stored.ID]; exists {
		return "", errors.ErrAlreadyExists
	}
	if stored.Get(s.resource.KeyField()) == "" {
		stored.Set(s.resource.KeyField(), stored.ID)
	}

	s.records[stored.ID] = stored
	rec.ID = stored.ID
	return stored.ID, nil
}

// Update overwrites the stored record matched by rec.ID.
func (s *Store) Update(_ context.Context, rec *schema.Record) error {
	if s.readOnly {
		return errors.ErrReadOnly
	}
	if rec == nil || rec.ID == "" {
		return errors.NewValidationError("record", rec, "record with ID required")
	}
	if _, exists := s.records[rec.ID]; !exists {
		return errors.NewNotFoundError(s.resource.Name(), rec.ID)
	}
	s.records[rec.ID] = rec.Clone()
	return nil
}

// Delete removes the record with the given identity.
func (s *Store) Delete(_ context.Context, id string) error {
	if s.readOnly {
		return errors.ErrReadOnly
	}
	if _, exists := s.records[id]; !exists {
		return errors.NewNotFoundError(s.resource.Name(), id)
	}
	delete(s.records, id)
	return nil
}

// List returns records matching the filter in stable ID order.
func (s *Store) List(_ context.Context, f schema.Filter) ([]schema.Record, error) {
	var out []schema.Record
	for _, id := range s.sortedIDs() {
		rec := s.records[id]
		if !matches(rec, f) {
			continue
		}
		out = append(out, rec.Clone())
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

// InTransaction runs fn against the store, restoring the prior state
// when fn returns an error. This gives commit-mode imports their
// per-row rollback boundary.
func (s *Store) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	snapshot := make(map[string]schema.Record, len(s.records))
	for id, rec := range s.records {
		snapshot[id] = rec.Clone()
	}
	nextID := s.nextID

	if err := fn(ctx); err != nil {
		s.records = snapshot
		s.nextID = nextID
		return err
	}
	return nil
}

// sortedIDs returns record IDs in stable order: numeric IDs first in
// numeric order, then the rest lexicographically.
func (s *Store) sortedIDs() []string {
	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		ni, iErr := strconv.ParseInt(ids[i], 10, 64)
		nj, jErr := strconv.ParseInt(ids[j], 10, 64)
		switch {
		case iErr == nil && jErr == nil:
			return ni < nj
		case iErr == nil:
			return true
		case jErr == nil:
			return false
		default:
			return ids[i] < ids[j]
		}
	})
	return ids
}

// matches reports whether a record satisfies the filter constraints.
func matches(rec schema.Record, f schema.Filter) bool {
	for fieldID, want := range f.Equals {
		if rec.Get(fieldID) != want {
			return false
		}
	}
	return true
}
