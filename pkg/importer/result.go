package importer

import (
	"fmt"
	"strings"

	"github.com/sheetport/sheetport/pkg/errors"
)

// ImportType classifies the outcome of one dataset row.
type ImportType string

const (
	// ImportTypeNew indicates the row creates a record.
	ImportTypeNew ImportType = "new"
	// ImportTypeUpdate indicates the row changes an existing record.
	ImportTypeUpdate ImportType = "update"
	// ImportTypeDelete indicates the row removes an existing record.
	ImportTypeDelete ImportType = "delete"
	// ImportTypeSkip indicates the row matches storage exactly (or is empty).
	ImportTypeSkip ImportType = "skip"
	// ImportTypeError indicates the row could not be processed.
	ImportTypeError ImportType = "error"
)

// FieldDiff is one field-level change: the stored value versus the value
// the row carries.
type FieldDiff struct {
	Field    string // Schema field id
	OldValue string // Stored value (empty for additions)
	NewValue string // Incoming row value
}

// RowResult is the outcome of processing one dataset row. It is created
// once per row per pass and never mutated afterwards; the commit pass
// produces a fresh sequence.
type RowResult struct {
	RowNumber int              // 1-indexed, stable across dry-run and commit
	Type      ImportType       // Classification
	ObjectID  string           // Resolved record identity, once known
	Repr      string           // Human-readable representation of the record
	Diffs     []FieldDiff      // Field-level changes (NEW: additions; UPDATE: changed fields)
	Err       *errors.RowError // Failure payload when Type is error
}

// InvalidRow records a row that failed before a RowResult could be
// constructed.
type InvalidRow struct {
	RowNumber int
	Err       error
}

// Result is the structured report of one import pass: one RowResult per
// input row plus dataset-level diagnostics. Built fresh per pass and
// read-only after construction.
type Result struct {
	Resource    string       // Target resource name
	DryRun      bool         // Whether this pass mutated storage
	Rows        []RowResult  // Ordered per-row outcomes
	InvalidRows []InvalidRow // Rows rejected before classification
	Errors      []error      // Dataset-level errors
}

// HasErrors reports whether the pass produced any dataset-level error,
// invalid row, or ERROR-typed row result.
func (r *Result) HasErrors() bool {
	if len(r.Errors) > 0 || len(r.InvalidRows) > 0 {
		return true
	}
	for _, row := range r.Rows {
		if row.Type == ImportTypeError {
			return true
		}
	}
	return false
}

// Totals returns the number of rows per import type.
func (r *Result) Totals() map[ImportType]int {
	totals := make(map[ImportType]int, 5)
	for _, row := range r.Rows {
		totals[row.Type]++
	}
	return totals
}

// Summary returns a human-readable one-line summary of the pass.
func (r *Result) Summary() string {
	totals := r.Totals()

	var parts []string
	for _, it := range []ImportType{ImportTypeNew, ImportTypeUpdate, ImportTypeDelete, ImportTypeSkip, ImportTypeError} {
		if n := totals[it]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, it))
		}
	}
	if len(parts) == 0 {
		parts = append(parts, "no rows")
	}

	summary := fmt.Sprintf("%s: %s", r.Resource, strings.Join(parts, ", "))
	if r.DryRun {
		summary += " (dry run)"
	}
	if n := len(r.InvalidRows) + len(r.Errors); n > 0 {
		summary += fmt.Sprintf(" [%d dataset problems]", n)
	}
	return summary
}

// String returns a detailed multi-line view of the result.
func (r *Result) String() string {
	var b strings.Builder
	b.WriteString(r.Summary())

	for _, err := range r.Errors {
		fmt.Fprintf(&b, "\n  ! %v", err)
	}
	for _, invalid := range r.InvalidRows {
		fmt.Fprintf(&b, "\n  ! row %d: %v", invalid.RowNumber, invalid.Err)
	}
	for _, row := range r.Rows {
		switch row.Type {
		case ImportTypeSkip:
			continue
		case ImportTypeError:
			fmt.Fprintf(&b, "\n  row %d: error: %v", row.RowNumber, row.Err)
		default:
			fmt.Fprintf(&b, "\n  row %d: %s %s", row.RowNumber, row.Type, row.Repr)
			for _, d := range row.Diffs {
				fmt.Fprintf(&b, "\n    - %s: %s → %s", d.Field, d.OldValue, d.NewValue)
			}
		}
	}
	return b.String()
}
