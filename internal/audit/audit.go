// Package audit records the rows a committed import actually changed,
// mirroring an admin change log: one entry per non-skip row with the
// action taken and the record's display representation.
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/sheetport/sheetport/pkg/importer"
	"github.com/sheetport/sheetport/pkg/logging"
)

// Action is the audited change kind.
type Action string

const (
	// ActionAddition records a created record.
	ActionAddition Action = "addition"
	// ActionChange records an updated record.
	ActionChange Action = "change"
	// ActionDeletion records a deleted record.
	ActionDeletion Action = "deletion"
)

// ActionFor maps a row's import classification to its audit action.
// Skip and error rows are not audited; ok reports whether the type maps.
func ActionFor(t importer.ImportType) (action Action, ok bool) {
	switch t {
	case importer.ImportTypeNew:
		return ActionAddition, true
	case importer.ImportTypeUpdate:
		return ActionChange, true
	case importer.ImportTypeDelete:
		return ActionDeletion, true
	default:
		return "", false
	}
}

// Entry is one audited change.
type Entry struct {
	Resource  string
	ObjectID  string
	Repr      string
	Action    Action
	RowNumber int
	When      time.Time
}

// Recorder persists audit entries.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// RecordResult writes one entry per auditable row of a committed
// result. A nil recorder is a no-op, so auditing stays optional.
func RecordResult(ctx context.Context, rec Recorder, result *importer.Result) error {
	if rec == nil || result == nil || result.DryRun {
		return nil
	}

	now := time.Now().UTC()
	for _, row := range result.Rows {
		action, ok := ActionFor(row.Type)
		if !ok {
			continue
		}
		entry := Entry{
			Resource:  result.Resource,
			ObjectID:  row.ObjectID,
			Repr:      row.Repr,
			Action:    action,
			RowNumber: row.RowNumber,
			When:      now,
		}
		if err := rec.Record(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}

// LogRecorder emits audit entries through the structured logger. It is
// the default recorder when no durable one is configured.
type LogRecorder struct{}

// Record logs the entry.
func (LogRecorder) Record(ctx context.Context, entry Entry) error {
	logging.FromContext(ctx).Info().
		Str("resource", entry.Resource).
		Str("object_id", entry.ObjectID).
		Str("action", string(entry.Action)).
		Int("row", entry.RowNumber).
		Str("repr", entry.Repr).
		Msg("Audit entry")
	return nil
}

// MemoryRecorder collects entries in memory for tests.
type MemoryRecorder struct {
	mu      sync.Mutex
	entries []Entry
}

// Record appends the entry.
func (m *MemoryRecorder) Record(_ context.Context, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

// Entries returns a copy of everything recorded so far.
func (m *MemoryRecorder) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry(nil), m.entries...)
}
