package formats

import (
	"bytes"
	"html"

	"github.com/sheetport/sheetport/pkg/dataset"
	"github.com/sheetport/sheetport/pkg/errors"
)

// HTML is the export-only table codec.
type HTML struct{}

// NewHTML creates the HTML codec.
func NewHTML() *HTML { return &HTML{} }

// Name returns "html".
func (f *HTML) Name() string { return "html" }

// Extension returns "html".
func (f *HTML) Extension() string { return "html" }

// ContentType returns the HTML MIME type.
func (f *HTML) ContentType() string { return "text/html" }

// IsBinary reports false.
func (f *HTML) IsBinary() bool { return false }

// CanImport reports false; HTML tables are not parsed back.
func (f *HTML) CanImport() bool { return false }

// CanExport reports true.
func (f *HTML) CanExport() bool { return true }

// CreateDataset is unsupported.
func (f *HTML) CreateDataset(_ []byte) (*dataset.Dataset, error) {
	return nil, errors.NewParseError(f.Name(), "import is not supported", errors.ErrNotImplemented)
}

// ExportData serializes the dataset as an HTML table with escaped cells.
func (f *HTML) ExportData(ds *dataset.Dataset) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("<table>\n<thead>\n<tr>")
	for _, header := range ds.Headers() {
		buf.WriteString("<th>")
		buf.WriteString(html.EscapeString(header))
		buf.WriteString("</th>")
	}
	buf.WriteString("</tr>\n</thead>\n<tbody>\n")
	for i := 0; i < ds.Len(); i++ {
		buf.WriteString("<tr>")
		for _, cell := range ds.Row(i) {
			buf.WriteString("<td>")
			buf.WriteString(html.EscapeString(cell))
			buf.WriteString("</td>")
		}
		buf.WriteString("</tr>\n")
	}
	buf.WriteString("</tbody>\n</table>\n")
	return buf.Bytes(), nil
}
