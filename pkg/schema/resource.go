package schema

import (
	"fmt"

	"github.com/sheetport/sheetport/pkg/errors"
)

// DefaultKeyField is the import key used when none is configured.
const DefaultKeyField = "id"

// Resource declares a record schema: its name, ordered fields, the
// import key field used to match dataset rows to existing records, and
// an optional delete-marker column.
type Resource struct {
	name        string
	fields      []Field
	byID        map[string]Field
	keyField    string
	deleteField string
	repr        func(Record) string
}

// Option is a function that configures a Resource.
type Option func(*Resource) error

// WithKeyField sets the import key field. It must be a declared field.
func WithKeyField(id string) Option {
	return func(r *Resource) error {
		r.keyField = id
		return nil
	}
}

// WithDeleteField designates a column whose truthy value marks the row
// for deletion regardless of its diff state. The column does not have to
// be a declared field.
func WithDeleteField(id string) Option {
	return func(r *Resource) error {
		r.deleteField = id
		return nil
	}
}

// WithRepr sets the human-readable representation used in row results
// and audit entries.
func WithRepr(fn func(Record) string) Option {
	return func(r *Resource) error {
		if fn == nil {
			return errors.NewValidationError("repr", nil, "repr function cannot be nil")
		}
		r.repr = fn
		return nil
	}
}

// New creates a Resource from ordered fields.
func New(name string, fields []Field, opts ...Option) (*Resource, error) {
	if name == "" {
		return nil, errors.NewValidationError("name", name, "resource name cannot be empty")
	}
	if len(fields) == 0 {
		return nil, errors.NewValidationError("fields", nil, "resource needs at least one field")
	}

	r := &Resource{
		name:     name,
		fields:   make([]Field, len(fields)),
		byID:     make(map[string]Field, len(fields)),
		keyField: DefaultKeyField,
	}
	copy(r.fields, fields)

	for _, f := range r.fields {
		if f.ID == "" {
			return nil, errors.NewValidationError("fields", f, "field id cannot be empty")
		}
		if _, dup := r.byID[f.ID]; dup {
			return nil, errors.NewValidationError("fields", f.ID, "duplicate field id")
		}
		r.byID[f.ID] = f
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	if _, ok := r.byID[r.keyField]; !ok {
		return nil, errors.NewValidationError("key_field", r.keyField, "import key must be a declared field")
	}

	return r, nil
}

// Name returns the resource name.
func (r *Resource) Name() string {
	return r.name
}

// Fields returns the declared fields in order.
func (r *Resource) Fields() []Field {
	fields := make([]Field, len(r.fields))
	copy(fields, r.fields)
	return fields
}

// FieldIDs returns the declared field ids in order.
func (r *Resource) FieldIDs() []string {
	ids := make([]string, len(r.fields))
	for i, f := range r.fields {
		ids[i] = f.ID
	}
	return ids
}

// Field returns the declared field with the given id.
func (r *Resource) Field(id string) (Field, bool) {
	f, ok := r.byID[id]
	return f, ok
}

// HasField reports whether a field id is declared.
func (r *Resource) HasField(id string) bool {
	_, ok := r.byID[id]
	return ok
}

// KeyField returns the import key field id.
func (r *Resource) KeyField() string {
	return r.keyField
}

// DeleteField returns the delete-marker column name, or "" when none is
// configured.
func (r *Resource) DeleteField() string {
	return r.deleteField
}

// Repr renders a human-readable representation of a record.
func (r *Resource) Repr(rec Record) string {
	if r.repr != nil {
		return r.repr(rec)
	}
	if key := rec.Get(r.keyField); key != "" {
		return fmt.Sprintf("%s %s", r.name, key)
	}
	return r.name
}
