package formats

import (
	"bytes"
	stdcsv "encoding/csv"

	"github.com/sheetport/sheetport/pkg/dataset"
	"github.com/sheetport/sheetport/pkg/errors"
)

// CSV is the comma-separated codec. The first record is the header row.
type CSV struct {
	name      string
	extension string
	mime      string
	delimiter rune
}

// NewCSV creates the CSV codec.
func NewCSV() *CSV {
	return &CSV{name: "csv", extension: "csv", mime: "text/csv", delimiter: ','}
}

// NewTSV creates the tab-separated variant of the CSV codec.
func NewTSV() *CSV {
	return &CSV{name: "tsv", extension: "tsv", mime: "text/tab-separated-values", delimiter: '\t'}
}

// Name returns the codec name.
func (f *CSV) Name() string { return f.name }

// Extension returns the file extension.
func (f *CSV) Extension() string { return f.extension }

// ContentType returns the MIME type.
func (f *CSV) ContentType() string { return f.mime }

// IsBinary reports false; delimiter-separated payloads are text.
func (f *CSV) IsBinary() bool { return false }

// CanImport reports true.
func (f *CSV) CanImport() bool { return true }

// CanExport reports true.
func (f *CSV) CanExport() bool { return true }

// CreateDataset parses delimiter-separated bytes. Ragged records are
// tolerated: short rows are padded, rows wider than the header row are
// rejected.
func (f *CSV) CreateDataset(data []byte) (*dataset.Dataset, error) {
	reader := stdcsv.NewReader(bytes.NewReader(data))
	reader.Comma = f.delimiter
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.WrapParse(f.name, err)
	}
	if len(records) == 0 {
		return nil, errors.NewParseError(f.name, "no header row", nil)
	}

	ds := dataset.New(records[0]...)
	for _, record := range records[1:] {
		if err := ds.Append(record); err != nil {
			return nil, errors.WrapParse(f.name, err)
		}
	}
	return ds, nil
}

// ExportData serializes the dataset as delimiter-separated text with a
// header row.
func (f *CSV) ExportData(ds *dataset.Dataset) ([]byte, error) {
	var buf bytes.Buffer
	writer := stdcsv.NewWriter(&buf)
	writer.Comma = f.delimiter

	if err := writer.Write(ds.Headers()); err != nil {
		return nil, errors.WrapIO("write", "", err)
	}
	for i := 0; i < ds.Len(); i++ {
		if err := writer.Write(ds.Row(i)); err != nil {
			return nil, errors.WrapIO("write", "", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, errors.WrapIO("write", "", err)
	}
	return buf.Bytes(), nil
}
