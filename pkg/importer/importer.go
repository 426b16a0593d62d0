// Package importer is the import reconciliation engine: it diffs each
// dataset row against stored records, classifies the row as
// new/update/delete/skip/error, optionally applies the classified
// operation inside a per-row transaction boundary, and reports the whole
// pass as an immutable Result.
//
// The same contract serves both phases of the preview-then-confirm
// protocol: a dry-run pass never touches storage, and a commit pass over
// byte-identical input is guaranteed to reproduce the dry run's
// classifications (assuming no concurrent external mutation of storage).
package importer

import (
	"context"
	"fmt"

	"github.com/sheetport/sheetport/pkg/dataset"
	"github.com/sheetport/sheetport/pkg/errors"
	"github.com/sheetport/sheetport/pkg/logging"
	"github.com/sheetport/sheetport/pkg/schema"
)

// Importer drives import passes for one resource against one storage.
type Importer struct {
	resource *schema.Resource
	storage  schema.Storage
}

// New creates an Importer.
func New(resource *schema.Resource, storage schema.Storage) (*Importer, error) {
	if resource == nil {
		return nil, errors.NewValidationError("resource", nil, "resource cannot be nil")
	}
	if storage == nil {
		return nil, errors.NewValidationError("storage", nil, "storage cannot be nil")
	}
	return &Importer{resource: resource, storage: storage}, nil
}

// Import processes every dataset row sequentially and returns the pass
// report. Row-scoped failures are collected into the result and never
// abort the batch; dataset-level failures abort before any row is
// processed. The returned error is non-nil only for dataset-level
// failures or, with WithRaiseOnError, when any error occurred at all —
// in both cases after all rows have been attempted.
func (imp *Importer) Import(ctx context.Context, ds *dataset.Dataset, opts ...Option) (*Result, error) {
	options := Defaults().Apply(opts...)
	result := &Result{Resource: imp.resource.Name(), DryRun: options.DryRun}
	log := logging.FromContext(ctx)

	cols, err := imp.columns(ds)
	if err != nil {
		result.Errors = append(result.Errors, err)
		if options.RaiseOnError {
			return result, err
		}
		return result, nil
	}

	log.Info().
		Str("resource", imp.resource.Name()).
		Bool("dry_run", options.DryRun).
		Int("rows", ds.Len()).
		Msg("Import pass started")

	for i := 0; i < ds.Len(); i++ {
		plan := imp.diffRow(ctx, cols, ds.Row(i), i+1)
		if !options.DryRun {
			imp.apply(ctx, &plan)
		}
		if plan.result.Type == ImportTypeError {
			log.Warn().
				Int("row", plan.result.RowNumber).
				Err(plan.result.Err).
				Msg("Row failed")
		}
		result.Rows = append(result.Rows, plan.result)
	}

	log.Info().Msg(result.Summary())

	if options.RaiseOnError && result.HasErrors() {
		return result, fmt.Errorf("%w: %s", errors.ErrImportFailed, result.Summary())
	}
	return result, nil
}

// columns resolves the dataset's headers against the declared schema:
// which column feeds which field, where the import key lives, and where
// the delete marker is. Headers that match no declared field are ignored
// when writing. A missing import key column is a dataset-level error.
type columns struct {
	byField   map[string]int // declared field id -> column index
	fieldIDs  []string       // declared fields present, in declared order
	keyIdx    int
	deleteIdx int // -1 when no delete marker column is present
}

func (imp *Importer) columns(ds *dataset.Dataset) (*columns, error) {
	if ds == nil || ds.Width() == 0 {
		return nil, errors.NewDatasetError(imp.resource.Name(), "dataset is empty", nil)
	}

	cols := &columns{
		byField:   make(map[string]int),
		keyIdx:    -1,
		deleteIdx: -1,
	}
	for _, fieldID := range imp.resource.FieldIDs() {
		if idx := ds.HeaderIndex(fieldID); idx >= 0 {
			cols.byField[fieldID] = idx
			cols.fieldIDs = append(cols.fieldIDs, fieldID)
		}
	}

	keyIdx, ok := cols.byField[imp.resource.KeyField()]
	if !ok {
		return nil, errors.NewDatasetError(imp.resource.Name(),
			fmt.Sprintf("import key column %q missing from headers", imp.resource.KeyField()), nil)
	}
	cols.keyIdx = keyIdx

	if marker := imp.resource.DeleteField(); marker != "" {
		cols.deleteIdx = ds.HeaderIndex(marker)
	}

	return cols, nil
}

// rowPlan couples a row's classification with the record its write needs.
type rowPlan struct {
	result RowResult
	record *schema.Record // record to create or update; nil otherwise
}

// diffRow classifies one row without mutating storage. Any failure in
// key extraction, lookup, or coercion yields an ERROR result scoped to
// this row.
func (imp *Importer) diffRow(ctx context.Context, cols *columns, row []string, rowNumber int) rowPlan {
	fail := func(field, message string, err error) rowPlan {
		return rowPlan{result: RowResult{
			RowNumber: rowNumber,
			Type:      ImportTypeError,
			Err:       errors.NewRowError(rowNumber, field, message, err),
		}}
	}

	key := row[cols.keyIdx]
	existing, found, err := imp.storage.Lookup(ctx, key)
	if err != nil {
		return fail(imp.resource.KeyField(), "lookup failed", err)
	}

	// A truthy delete marker overrides classification regardless of the
	// row's diff state.
	if cols.deleteIdx >= 0 {
		if marked, _ := schema.ParseBool(row[cols.deleteIdx]); marked {
			if !found {
				return rowPlan{result: RowResult{RowNumber: rowNumber, Type: ImportTypeSkip}}
			}
			return rowPlan{result: RowResult{
				RowNumber: rowNumber,
				Type:      ImportTypeDelete,
				ObjectID:  existing.ID,
				Repr:      imp.resource.Repr(*existing),
			}}
		}
	}

	if !found {
		if rowEmpty(cols, row) {
			return rowPlan{result: RowResult{RowNumber: rowNumber, Type: ImportTypeSkip}}
		}

		rec := &schema.Record{}
		diffs := make([]FieldDiff, 0, len(cols.fieldIDs))
		for _, fieldID := range cols.fieldIDs {
			raw := row[cols.byField[fieldID]]
			field, _ := imp.resource.Field(fieldID)
			if _, err := field.Coerce(raw); err != nil {
				return fail(fieldID, "cannot coerce value", err)
			}
			rec.Set(fieldID, raw)
			diffs = append(diffs, FieldDiff{Field: fieldID, NewValue: raw})
		}

		return rowPlan{
			result: RowResult{
				RowNumber: rowNumber,
				Type:      ImportTypeNew,
				ObjectID:  key,
				Repr:      imp.resource.Repr(*rec),
				Diffs:     diffs,
			},
			record: rec,
		}
	}

	// Compare every writable field the dataset carries against the
	// stored value, through the field's own coercion and equality.
	updated := existing.Clone()
	var diffs []FieldDiff
	for _, fieldID := range cols.fieldIDs {
		field, _ := imp.resource.Field(fieldID)
		raw := row[cols.byField[fieldID]]

		newVal, err := field.Coerce(raw)
		if err != nil {
			return fail(fieldID, "cannot coerce value", err)
		}
		oldRaw := existing.Get(fieldID)
		oldVal, err := field.Coerce(oldRaw)
		if err != nil {
			return fail(fieldID, "stored value unreadable", err)
		}

		if !field.Equals(oldVal, newVal) {
			diffs = append(diffs, FieldDiff{Field: fieldID, OldValue: oldRaw, NewValue: raw})
			updated.Set(fieldID, raw)
		}
	}

	if len(diffs) == 0 {
		return rowPlan{result: RowResult{
			RowNumber: rowNumber,
			Type:      ImportTypeSkip,
			ObjectID:  existing.ID,
			Repr:      imp.resource.Repr(*existing),
		}}
	}

	return rowPlan{
		result: RowResult{
			RowNumber: rowNumber,
			Type:      ImportTypeUpdate,
			ObjectID:  existing.ID,
			Repr:      imp.resource.Repr(updated),
			Diffs:     diffs,
		},
		record: &updated,
	}
}

// apply executes the plan's write against storage inside a per-row
// transaction boundary when the storage supports one. A write failure
// rolls back this row alone and downgrades its result to ERROR; rows
// already committed stay committed.
func (imp *Importer) apply(ctx context.Context, plan *rowPlan) {
	switch plan.result.Type {
	case ImportTypeNew, ImportTypeUpdate, ImportTypeDelete:
	default:
		return
	}

	write := func(ctx context.Context) error {
		switch plan.result.Type {
		case ImportTypeNew:
			id, err := imp.storage.Create(ctx, plan.record)
			if err != nil {
				return err
			}
			plan.result.ObjectID = id
			return nil
		case ImportTypeUpdate:
			return imp.storage.Update(ctx, plan.record)
		case ImportTypeDelete:
			return imp.storage.Delete(ctx, plan.result.ObjectID)
		default:
			return nil
		}
	}

	var err error
	if tx, ok := imp.storage.(schema.Transactional); ok {
		err = tx.InTransaction(ctx, write)
	} else {
		err = write(ctx)
	}
	if err != nil {
		plan.result = RowResult{
			RowNumber: plan.result.RowNumber,
			Type:      ImportTypeError,
			Err: errors.NewRowError(plan.result.RowNumber, "",
				fmt.Sprintf("%s failed", plan.result.Type), err),
		}
	}
}

// rowEmpty reports whether every declared field the row carries is empty.
func rowEmpty(cols *columns, row []string) bool {
	for _, fieldID := range cols.fieldIDs {
		if row[cols.byField[fieldID]] != "" {
			return false
		}
	}
	return true
}
