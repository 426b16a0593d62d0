// Package formats provides the codec layer between raw upload/download
// bytes and the tabular Dataset: one Format per wire representation,
// collected in an ordered Registry so callers can address a codec by
// index, name, or file extension.
package formats

import (
	"github.com/sheetport/sheetport/pkg/dataset"
)

// Format is one serialization codec. CanImport and CanExport advertise
// direction support; export-only formats (HTML) return an error from
// CreateDataset.
type Format interface {
	// Name returns the short lowercase codec name ("csv", "json", ...).
	Name() string

	// Extension returns the file extension without the dot.
	Extension() string

	// ContentType returns the MIME type for downloads.
	ContentType() string

	// IsBinary reports whether payloads are binary rather than text.
	// Text payloads may need charset decoding before import.
	IsBinary() bool

	// CanImport reports whether CreateDataset is supported.
	CanImport() bool

	// CanExport reports whether ExportData is supported.
	CanExport() bool

	// CreateDataset parses raw bytes into a dataset.
	CreateDataset(data []byte) (*dataset.Dataset, error)

	// ExportData serializes a dataset into raw bytes.
	ExportData(ds *dataset.Dataset) ([]byte, error)
}
