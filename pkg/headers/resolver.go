package headers

import (
	"github.com/sheetport/sheetport/pkg/dataset"
	"github.com/sheetport/sheetport/pkg/errors"
	"github.com/sheetport/sheetport/pkg/schema"
)

// Resolution reports what Resolve did to a dataset.
type Resolution struct {
	Renamed    map[string]string // Original header -> field id, for rule-mapped columns
	Dropped    []string          // Columns discarded (neither in the rule nor a declared field)
	BackFilled []string          // Declared fields inserted as empty columns
}

// Resolve rewrites a dataset's columns into schema field identifiers,
// in place.
//
// With a nil rule the headers are assumed to already be field
// identifiers and pass through unchanged; unknown headers become the
// diff engine's problem (it ignores them when writing).
//
// With a rule, each header is renamed to its rule target; headers that
// already equal a declared field id are kept; every other column is
// dropped, header and cells, without error (the drop is reported in
// Resolution.Dropped so callers can surface a warning). Afterwards every
// declared field still missing is back-filled as an empty-string column
// appended after the existing columns, in declared order. Back-filling
// means a committed update clears fields absent from the uploaded sheet.
//
// Headers must be unique after resolution.
func Resolve(ds *dataset.Dataset, res *schema.Resource, rule Rule) (*Resolution, error) {
	if ds == nil {
		return nil, errors.NewValidationError("dataset", nil, "dataset cannot be nil")
	}
	if res == nil {
		return nil, errors.NewValidationError("resource", nil, "resource cannot be nil")
	}

	resolution := &Resolution{Renamed: make(map[string]string)}

	if rule != nil {
		// Drop columns that are neither rule keys nor declared fields.
		for _, h := range ds.Headers() {
			if _, mapped := rule[h]; mapped || res.HasField(h) || h == res.DeleteField() {
				continue
			}
			for ds.HasHeader(h) {
				if err := ds.DeleteColumn(h); err != nil {
					return nil, err
				}
			}
			resolution.Dropped = append(resolution.Dropped, h)
		}

		// Rename the survivors to their field ids.
		renamed := ds.Headers()
		for i, h := range renamed {
			if target, mapped := rule[h]; mapped {
				renamed[i] = target
				resolution.Renamed[h] = target
			}
		}
		if err := ds.SetHeaders(renamed); err != nil {
			return nil, err
		}

		// Back-fill declared fields absent from the sheet as empty
		// columns, in declared order.
		for _, fieldID := range res.FieldIDs() {
			if ds.HasHeader(fieldID) {
				continue
			}
			if err := ds.InsertColumn(ds.Width(), fieldID, ""); err != nil {
				return nil, err
			}
			resolution.BackFilled = append(resolution.BackFilled, fieldID)
		}
	}

	if err := checkUnique(ds.Headers()); err != nil {
		return nil, err
	}

	return resolution, nil
}

// checkUnique rejects duplicate headers after resolution.
func checkUnique(hs []string) error {
	seen := make(map[string]bool, len(hs))
	for _, h := range hs {
		if seen[h] {
			return errors.NewValidationError("headers", h, "duplicate header after resolution")
		}
		seen[h] = true
	}
	return nil
}
