package formats

import (
	"fmt"
	"strings"

	"github.com/sheetport/sheetport/pkg/errors"
)

// Registry is an ordered, read-only collection of codecs. Callers
// address a codec by its position (upload forms submit an index), by
// name, or by file extension.
type Registry struct {
	formats []Format
}

// NewRegistry creates a registry over the given codecs, in order.
func NewRegistry(formats ...Format) (*Registry, error) {
	if len(formats) == 0 {
		return nil, errors.NewConfigError("formats", "at least one format is required", nil)
	}
	seen := make(map[string]bool, len(formats))
	for _, f := range formats {
		if seen[f.Name()] {
			return nil, errors.NewConfigError("formats", fmt.Sprintf("duplicate format %q", f.Name()), nil)
		}
		seen[f.Name()] = true
	}
	return &Registry{formats: append([]Format(nil), formats...)}, nil
}

// DefaultRegistry returns the standard codec set: csv, tsv, json, yaml,
// html.
func DefaultRegistry() *Registry {
	reg, _ := NewRegistry(NewCSV(), NewTSV(), NewJSON(), NewYAML(), NewHTML())
	return reg
}

// Formats returns all codecs in registration order.
func (r *Registry) Formats() []Format {
	return append([]Format(nil), r.formats...)
}

// Importables returns the codecs that support import, in order.
func (r *Registry) Importables() []Format {
	var out []Format
	for _, f := range r.formats {
		if f.CanImport() {
			out = append(out, f)
		}
	}
	return out
}

// Exportables returns the codecs that support export, in order.
func (r *Registry) Exportables() []Format {
	var out []Format
	for _, f := range r.formats {
		if f.CanExport() {
			out = append(out, f)
		}
	}
	return out
}

// ByIndex returns the codec at the given registration position.
func (r *Registry) ByIndex(idx int) (Format, error) {
	if idx < 0 || idx >= len(r.formats) {
		return nil, errors.NewConfigError("formats",
			fmt.Sprintf("format index %d out of range [0, %d)", idx, len(r.formats)), nil)
	}
	return r.formats[idx], nil
}

// ByName returns the codec with the given name.
func (r *Registry) ByName(name string) (Format, error) {
	for _, f := range r.formats {
		if f.Name() == strings.ToLower(name) {
			return f, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", errors.ErrFormatUnknown, name)
}

// ByExtension returns the first codec matching the file extension. The
// leading dot is optional.
func (r *Registry) ByExtension(ext string) (Format, error) {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, f := range r.formats {
		if f.Extension() == ext {
			return f, nil
		}
	}
	return nil, fmt.Errorf("%w: extension %q", errors.ErrFormatUnknown, ext)
}

// Len returns the number of registered codecs.
func (r *Registry) Len() int {
	return len(r.formats)
}
