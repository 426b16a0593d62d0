// Package dataset provides the in-memory table abstraction shared by the
// format codecs, the header resolver, and the import engine: an ordered
// set of column headers plus ordered rows of string cells aligned
// positionally to the headers.
package dataset

import (
	"fmt"

	"github.com/sheetport/sheetport/pkg/errors"
)

// Dataset is an ordered table of string cells. Headers are not required
// to be unique at read time; the header resolver enforces uniqueness
// before the dataset reaches the import engine.
type Dataset struct {
	headers []string
	rows    [][]string
}

// New creates an empty dataset with the given column headers.
func New(headers ...string) *Dataset {
	h := make([]string, len(headers))
	copy(h, headers)
	return &Dataset{headers: h}
}

// Headers returns a copy of the column headers in order.
func (d *Dataset) Headers() []string {
	h := make([]string, len(d.headers))
	copy(h, d.headers)
	return h
}

// SetHeaders replaces the column headers. The new header set must have
// the same width as the current one so rows stay aligned.
func (d *Dataset) SetHeaders(headers []string) error {
	if len(headers) != len(d.headers) {
		return &errors.ValidationError{
			Field:   "headers",
			Value:   headers,
			Message: fmt.Sprintf("expected %d headers, got %d", len(d.headers), len(headers)),
		}
	}
	h := make([]string, len(headers))
	copy(h, headers)
	d.headers = h
	return nil
}

// Width returns the number of columns.
func (d *Dataset) Width() int {
	return len(d.headers)
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	return len(d.rows)
}

// Append adds a row. Rows shorter than the header set are padded with
// empty strings; rows wider than the header set are rejected.
func (d *Dataset) Append(row []string) error {
	if len(row) > len(d.headers) {
		return &errors.ValidationError{
			Field:   "row",
			Value:   row,
			Message: fmt.Sprintf("row has %d cells, dataset has %d columns", len(row), len(d.headers)),
		}
	}
	r := make([]string, len(d.headers))
	copy(r, row)
	d.rows = append(d.rows, r)
	return nil
}

// Row returns the row at index i. The returned slice is the live row.
func (d *Dataset) Row(i int) []string {
	return d.rows[i]
}

// Rows returns all rows. The returned slices are the live rows.
func (d *Dataset) Rows() [][]string {
	return d.rows
}

// HeaderIndex returns the index of the first column with the given
// header, or -1 when absent.
func (d *Dataset) HeaderIndex(header string) int {
	for i, h := range d.headers {
		if h == header {
			return i
		}
	}
	return -1
}

// HasHeader reports whether a column with the given header exists.
func (d *Dataset) HasHeader(header string) bool {
	return d.HeaderIndex(header) >= 0
}

// Cell returns the cell at row i under the given header.
func (d *Dataset) Cell(i int, header string) (string, error) {
	idx := d.HeaderIndex(header)
	if idx < 0 {
		return "", errors.NewNotFoundError("column", header)
	}
	if i < 0 || i >= len(d.rows) {
		return "", errors.NewNotFoundError("row", fmt.Sprintf("%d", i))
	}
	return d.rows[i][idx], nil
}

// InsertColumn inserts a new column at position at, filling every
// existing row's new cell with fill.
func (d *Dataset) InsertColumn(at int, header, fill string) error {
	if at < 0 || at > len(d.headers) {
		return &errors.ValidationError{
			Field:   "at",
			Value:   at,
			Message: fmt.Sprintf("insert position out of range [0,%d]", len(d.headers)),
		}
	}
	d.headers = append(d.headers, "")
	copy(d.headers[at+1:], d.headers[at:])
	d.headers[at] = header

	for i, row := range d.rows {
		row = append(row, "")
		copy(row[at+1:], row[at:])
		row[at] = fill
		d.rows[i] = row
	}
	return nil
}

// DeleteColumn removes the first column with the given header and the
// corresponding cell from every row. This is destructive and
// irreversible within the pass.
func (d *Dataset) DeleteColumn(header string) error {
	idx := d.HeaderIndex(header)
	if idx < 0 {
		return errors.NewNotFoundError("column", header)
	}
	d.headers = append(d.headers[:idx], d.headers[idx+1:]...)
	for i, row := range d.rows {
		d.rows[i] = append(row[:idx], row[idx+1:]...)
	}
	return nil
}

// Clone returns a deep copy of the dataset.
func (d *Dataset) Clone() *Dataset {
	clone := New(d.headers...)
	clone.rows = make([][]string, len(d.rows))
	for i, row := range d.rows {
		r := make([]string, len(row))
		copy(r, row)
		clone.rows[i] = r
	}
	return clone
}

// String returns a short human-readable description of the dataset.
func (d *Dataset) String() string {
	return fmt.Sprintf("Dataset(%d columns, %d rows)", len(d.headers), len(d.rows))
}
