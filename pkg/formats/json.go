package formats

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/sheetport/sheetport/pkg/dataset"
	"github.com/sheetport/sheetport/pkg/errors"
)

// JSON is the JSON codec. The payload is an array of flat objects; the
// header order is the key order of the first object, with keys that only
// appear in later objects appended in encounter order.
type JSON struct{}

// NewJSON creates the JSON codec.
func NewJSON() *JSON { return &JSON{} }

// Name returns "json".
func (f *JSON) Name() string { return "json" }

// Extension returns "json".
func (f *JSON) Extension() string { return "json" }

// ContentType returns the JSON MIME type.
func (f *JSON) ContentType() string { return "application/json" }

// IsBinary reports false.
func (f *JSON) IsBinary() bool { return false }

// CanImport reports true.
func (f *JSON) CanImport() bool { return true }

// CanExport reports true.
func (f *JSON) CanExport() bool { return true }

// CreateDataset parses an array of objects. The decoder walks tokens
// rather than unmarshaling into maps so the original key order survives.
func (f *JSON) CreateDataset(data []byte) (*dataset.Dataset, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if err := expectDelim(dec, '['); err != nil {
		return nil, errors.NewParseError(f.Name(), "expected a JSON array of objects", err)
	}

	var headers []string
	seen := make(map[string]bool)
	var objects []map[string]string

	for dec.More() {
		if err := expectDelim(dec, '{'); err != nil {
			return nil, errors.NewParseError(f.Name(), "expected an object element", err)
		}

		values := make(map[string]string)
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return nil, errors.WrapParse(f.Name(), err)
			}
			key, ok := tok.(string)
			if !ok {
				return nil, errors.NewParseError(f.Name(), fmt.Sprintf("unexpected key token %v", tok), nil)
			}

			var raw json.RawMessage
			if err := dec.Decode(&raw); err != nil {
				return nil, errors.WrapParse(f.Name(), err)
			}
			cell, err := jsonCell(raw)
			if err != nil {
				return nil, errors.NewParseError(f.Name(), fmt.Sprintf("value for %q is not a scalar", key), err)
			}

			if !seen[key] {
				seen[key] = true
				headers = append(headers, key)
			}
			values[key] = cell
		}
		if _, err := dec.Token(); err != nil { // consume '}'
			return nil, errors.WrapParse(f.Name(), err)
		}
		objects = append(objects, values)
	}

	if len(headers) == 0 {
		return nil, errors.NewParseError(f.Name(), "no objects with keys found", nil)
	}

	ds := dataset.New(headers...)
	for _, values := range objects {
		row := make([]string, len(headers))
		for i, header := range headers {
			row[i] = values[header]
		}
		if err := ds.Append(row); err != nil {
			return nil, errors.WrapParse(f.Name(), err)
		}
	}
	return ds, nil
}

// ExportData serializes the dataset as an indented array of objects in
// header order. Objects are written by hand because Go maps would not
// preserve the column order.
func (f *JSON) ExportData(ds *dataset.Dataset) ([]byte, error) {
	headers := ds.Headers()

	var buf bytes.Buffer
	buf.WriteString("[")
	for i := 0; i < ds.Len(); i++ {
		if i > 0 {
			buf.WriteString(",")
		}
		buf.WriteString("\n  {")
		for j, header := range headers {
			if j > 0 {
				buf.WriteString(", ")
			}
			key, err := json.Marshal(header)
			if err != nil {
				return nil, errors.WrapParse(f.Name(), err)
			}
			val, err := json.Marshal(ds.Row(i)[j])
			if err != nil {
				return nil, errors.WrapParse(f.Name(), err)
			}
			buf.Write(key)
			buf.WriteString(": ")
			buf.Write(val)
		}
		buf.WriteString("}")
	}
	buf.WriteString("\n]\n")
	return buf.Bytes(), nil
}

// expectDelim consumes one token and checks it is the given delimiter.
func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

// jsonCell renders a scalar JSON value as a dataset cell. null becomes
// the empty string; nested arrays or objects are rejected.
func jsonCell(raw json.RawMessage) (string, error) {
	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return "", err
	}
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	case json.Number:
		return val.String(), nil
	case bool:
		return strconv.FormatBool(val), nil
	default:
		return "", fmt.Errorf("nested value %s", string(raw))
	}
}
