package formats

import (
	"fmt"
	"strconv"

	"github.com/goccy/go-yaml"

	"github.com/sheetport/sheetport/pkg/dataset"
	"github.com/sheetport/sheetport/pkg/errors"
)

// YAML is the YAML codec. The payload is a sequence of flat mappings;
// MapSlice keeps the key order of each mapping so header order matches
// the document.
type YAML struct{}

// NewYAML creates the YAML codec.
func NewYAML() *YAML { return &YAML{} }

// Name returns "yaml".
func (f *YAML) Name() string { return "yaml" }

// Extension returns "yaml".
func (f *YAML) Extension() string { return "yaml" }

// ContentType returns the YAML MIME type.
func (f *YAML) ContentType() string { return "text/yaml" }

// IsBinary reports false.
func (f *YAML) IsBinary() bool { return false }

// CanImport reports true.
func (f *YAML) CanImport() bool { return true }

// CanExport reports true.
func (f *YAML) CanExport() bool { return true }

// CreateDataset parses a YAML sequence of mappings.
func (f *YAML) CreateDataset(data []byte) (*dataset.Dataset, error) {
	var docs []yaml.MapSlice
	if err := yaml.Unmarshal(data, &docs); err != nil {
		return nil, errors.WrapParse(f.Name(), err)
	}
	if len(docs) == 0 {
		return nil, errors.NewParseError(f.Name(), "no mapping entries found", nil)
	}

	var headers []string
	seen := make(map[string]bool)
	objects := make([]map[string]string, 0, len(docs))

	for _, doc := range docs {
		values := make(map[string]string, len(doc))
		for _, item := range doc {
			key := fmt.Sprintf("%v", item.Key)
			cell, err := yamlCell(item.Value)
			if err != nil {
				return nil, errors.NewParseError(f.Name(), fmt.Sprintf("value for %q is not a scalar", key), err)
			}
			if !seen[key] {
				seen[key] = true
				headers = append(headers, key)
			}
			values[key] = cell
		}
		objects = append(objects, values)
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

// ExportData serializes the dataset as a sequence of mappings in header
// order.
func (f *YAML) ExportData(ds *dataset.Dataset) ([]byte, error) {
	headers := ds.Headers()
	docs := make([]yaml.MapSlice, 0, ds.Len())
	for i := 0; i < ds.Len(); i++ {
		doc := make(yaml.MapSlice, 0, len(headers))
		for j, header := range headers {
			doc = append(doc, yaml.MapItem{Key: header, Value: ds.Row(i)[j]})
		}
		docs = append(docs, doc)
	}

	out, err := yaml.Marshal(docs)
	if err != nil {
		return nil, errors.WrapParse(f.Name(), err)
	}
	return out, nil
}

// yamlCell renders a scalar YAML value as a dataset cell. Nil becomes
// the empty string; nested mappings or sequences are rejected.
func yamlCell(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	case bool:
		return strconv.FormatBool(val), nil
	case int:
		return strconv.Itoa(val), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case uint64:
		return strconv.FormatUint(val, 10), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("nested value of type %T", v)
	}
}
