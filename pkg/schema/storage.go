package schema

import "context"

// Record is one stored record: an identity plus raw field values keyed
// by field id. Values are stored in their raw string form; the field
// descriptors own coercion and comparison.
type Record struct {
	ID     string            // Storage-assigned identity (object_id)
	Values map[string]string // Raw values keyed by field id
}

// Get returns the raw value for a field id, or "" when unset.
func (r Record) Get(fieldID string) string {
	return r.Values[fieldID]
}

// Set assigns the raw value for a field id, allocating the value map on
// first use.
func (r *Record) Set(fieldID, value string) {
	if r.Values == nil {
		r.Values = make(map[string]string)
	}
	r.Values[fieldID] = value
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	values := make(map[string]string, len(r.Values))
	for k, v := range r.Values {
		values[k] = v
	}
	return Record{ID: r.ID, Values: values}
}

// Filter scopes a List call for export.
type Filter struct {
	Equals map[string]string // Exact-match constraints by field id; nil means all
	Limit  int               // Maximum records to return; 0 means no limit
}

// Storage is the record storage collaborator. Implementations own their
// concurrency control; the import engine performs one sequential pass
// and never calls Storage from multiple goroutines.
type Storage interface {
	// Lookup finds the record whose import key equals key. The boolean
	// reports whether a record was found.
	Lookup(ctx context.Context, key string) (*Record, bool, error)

	// Create stores a new record and returns its assigned identity.
	Create(ctx context.Context, rec *Record) (string, error)

	// Update overwrites the stored record with rec's values, matched by
	// rec.ID.
	Update(ctx context.Context, rec *Record) error

	// Delete removes the record with the given identity.
	Delete(ctx context.Context, id string) error

	// List returns records matching the filter, in stable order.
	List(ctx context.Context, f Filter) ([]Record, error)
}

// Transactional is implemented by storages that support an atomic
// per-row boundary. Commit-mode imports wrap each row's write in
// InTransaction so a failed row rolls back alone and neighboring rows
// stay committed.
type Transactional interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
