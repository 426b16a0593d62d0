package importer_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheetport/sheetport/pkg/dataset"
	"github.com/sheetport/sheetport/pkg/errors"
	"github.com/sheetport/sheetport/pkg/importer"
	"github.com/sheetport/sheetport/pkg/schema"
	"github.com/sheetport/sheetport/pkg/schema/memory"
)

func bookResource(t *testing.T, opts ...schema.Option) *schema.Resource {
	t.Helper()
	res, err := schema.New("book", []schema.Field{
		schema.Int("id", "Primary Key"),
		schema.String("name", "Book name"),
		schema.String("author_email", "Author email"),
	}, opts...)
	require.NoError(t, err)
	return res
}

func bookDataset(t *testing.T, rows ...[]string) *dataset.Dataset {
	t.Helper()
	ds := dataset.New("id", "name", "author_email")
	for _, row := range rows {
		require.NoError(t, ds.Append(row))
	}
	return ds
}

func TestNewRowProducesAdditions(t *testing.T) {
	res := bookResource(t)
	store, err := memory.New(res)
	require.NoError(t, err)
	imp, err := importer.New(res, store)
	require.NoError(t, err)

	ds := bookDataset(t, []string{"", "Book A", "a@x.com"})

	result, err := imp.Import(context.Background(), ds, importer.WithDryRun(true))
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)

	row := result.Rows[0]
	assert.Equal(t, 1, row.RowNumber)
	assert.Equal(t, importer.ImportTypeNew, row.Type)
	assert.Equal(t, []importer.FieldDiff{
		{Field: "id", OldValue: "", NewValue: ""},
		{Field: "name", OldValue: "", NewValue: "Book A"},
		{Field: "author_email", OldValue: "", NewValue: "a@x.com"},
	}, row.Diffs)
	assert.False(t, result.HasErrors())
	assert.Equal(t, 0, store.Len(), "dry run must not write")
}

func TestUpdateRowDiffsChangedFieldsOnly(t *testing.T) {
	res := bookResource(t)
	store, err := memory.New(res, memory.WithRecords(
		schema.Record{Values: map[string]string{"id": "1", "name": "Book A", "author_email": "old@x.com"}},
	))
	require.NoError(t, err)
	imp, err := importer.New(res, store)
	require.NoError(t, err)

	ds := bookDataset(t, []string{"1", "Book A", "new@x.com"})

	result, err := imp.Import(context.Background(), ds, importer.WithDryRun(true))
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)

	row := result.Rows[0]
	assert.Equal(t, importer.ImportTypeUpdate, row.Type)
	assert.Equal(t, "1", row.ObjectID)
	assert.Equal(t, []importer.FieldDiff{
		{Field: "author_email", OldValue: "old@x.com", NewValue: "new@x.com"},
	}, row.Diffs)
}

func TestTypeEquivalentValuesDoNotFlagAsChanged(t *testing.T) {
	res := bookResource(t)
	store, err := memory.New(res, memory.WithRecords(
		schema.Record{Values: map[string]string{"id": "1", "name": "Book A", "author_email": "a@x.com"}},
	))
	require.NoError(t, err)
	imp, err := importer.New(res, store)
	require.NoError(t, err)

	// "01" coerces to the same integer key and the same stored values.
	ds := bookDataset(t, []string{"01", "Book A", "a@x.com"})

	result, err := imp.Import(context.Background(), ds, importer.WithDryRun(true))
	require.NoError(t, err)
	assert.Equal(t, importer.ImportTypeSkip, result.Rows[0].Type)
}

func TestDeleteMarkerOverridesDiffState(t *testing.T) {
	res := bookResource(t, schema.WithDeleteField("delete"))
	store, err := memory.New(res, memory.WithRecords(
		schema.Record{Values: map[string]string{"id": "1", "name": "Book A", "author_email": "a@x.com"}},
	))
	require.NoError(t, err)
	imp, err := importer.New(res, store)
	require.NoError(t, err)

	ds := dataset.New("id", "name", "author_email", "delete")
	require.NoError(t, ds.Append([]string{"1", "Renamed", "changed@x.com", "1"}))

	result, err := imp.Import(context.Background(), ds)
	require.NoError(t, err)

	row := result.Rows[0]
	assert.Equal(t, importer.ImportTypeDelete, row.Type)
	assert.Equal(t, "1", row.ObjectID)
	assert.Equal(t, 0, store.Len())
}

func TestDeleteMarkerOnUnknownRecordSkips(t *testing.T) {
	res := bookResource(t, schema.WithDeleteField("delete"))
	store, err := memory.New(res)
	require.NoError(t, err)
	imp, err := importer.New(res, store)
	require.NoError(t, err)

	ds := dataset.New("id", "name", "author_email", "delete")
	require.NoError(t, ds.Append([]string{"9", "Ghost", "", "yes"}))

	result, err := imp.Import(context.Background(), ds)
	require.NoError(t, err)
	assert.Equal(t, importer.ImportTypeSkip, result.Rows[0].Type)
}

func TestEmptyRowSkips(t *testing.T) {
	res := bookResource(t)
	store, err := memory.New(res)
	require.NoError(t, err)
	imp, err := importer.New(res, store)
	require.NoError(t, err)

	ds := bookDataset(t, []string{"", "", ""})

	result, err := imp.Import(context.Background(), ds)
	require.NoError(t, err)
	assert.Equal(t, importer.ImportTypeSkip, result.Rows[0].Type)
}

func TestCommitWritesAllOperationTypes(t *testing.T) {
	ctx := context.Background()
	res := bookResource(t, schema.WithDeleteField("delete"))
	store, err := memory.New(res, memory.WithRecords(
		schema.Record{Values: map[string]string{"id": "1", "name": "Book A", "author_email": "old@x.com"}},
		schema.Record{Values: map[string]string{"id": "2", "name": "Book B", "author_email": "b@x.com"}},
	))
	require.NoError(t, err)
	imp, err := importer.New(res, store)
	require.NoError(t, err)

	ds := dataset.New("id", "name", "author_email", "delete")
	require.NoError(t, ds.Append([]string{"1", "Book A", "new@x.com", ""})) // update
	require.NoError(t, ds.Append([]string{"2", "Book B", "b@x.com", "1"})) // delete
	require.NoError(t, ds.Append([]string{"3", "Book C", "c@x.com", ""})) // new
	require.NoError(t, ds.Append([]string{"", "", "", ""}))               // skip

	result, err := imp.Import(ctx, ds)
	require.NoError(t, err)

	types := make([]importer.ImportType, 0, len(result.Rows))
	for _, row := range result.Rows {
		types = append(types, row.Type)
	}
	assert.Equal(t, []importer.ImportType{
		importer.ImportTypeUpdate,
		importer.ImportTypeDelete,
		importer.ImportTypeNew,
		importer.ImportTypeSkip,
	}, types)
	assert.Equal(t, "3", result.Rows[2].ObjectID)

	updated, found, err := store.Lookup(ctx, "1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "new@x.com", updated.Get("author_email"))

	_, found, err = store.Lookup(ctx, "2")
	require.NoError(t, err)
	assert.False(t, found)

	created, found, err := store.Lookup(ctx, "3")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Book C", created.Get("name"))
}

func TestDryRunThenCommitAreIdentical(t *testing.T) {
	ctx := context.Background()
	res := bookResource(t)
	store, err := memory.New(res, memory.WithRecords(
		schema.Record{Values: map[string]string{"id": "1", "name": "Book A", "author_email": "old@x.com"}},
	))
	require.NoError(t, err)
	imp, err := importer.New(res, store)
	require.NoError(t, err)

	rows := [][]string{
		{"1", "Book A", "new@x.com"},
		{"7", "Book G", "g@x.com"},
		{"", "", ""},
	}

	preview, err := imp.Import(ctx, bookDataset(t, rows...), importer.WithDryRun(true))
	require.NoError(t, err)
	commit, err := imp.Import(ctx, bookDataset(t, rows...), importer.WithRaiseOnError(true))
	require.NoError(t, err)

	require.Len(t, commit.Rows, len(preview.Rows))
	for i := range preview.Rows {
		assert.Equal(t, preview.Rows[i].Type, commit.Rows[i].Type, "row %d import type", i+1)
		assert.Equal(t, preview.Rows[i].ObjectID, commit.Rows[i].ObjectID, "row %d object id", i+1)
	}
}

func TestCommitThenDryRunIsAllSkips(t *testing.T) {
	ctx := context.Background()
	res := bookResource(t)
	store, err := memory.New(res)
	require.NoError(t, err)
	imp, err := importer.New(res, store)
	require.NoError(t, err)

	rows := [][]string{
		{"1", "Book A", "a@x.com"},
		{"2", "Book B", "b@x.com"},
	}

	_, err = imp.Import(ctx, bookDataset(t, rows...), importer.WithRaiseOnError(true))
	require.NoError(t, err)

	again, err := imp.Import(ctx, bookDataset(t, rows...), importer.WithDryRun(true))
	require.NoError(t, err)
	for _, row := range again.Rows {
		assert.Equal(t, importer.ImportTypeSkip, row.Type, "row %d", row.RowNumber)
	}
}

func TestCoercionErrorIsIsolatedToItsRow(t *testing.T) {
	res := bookResource(t)
	store, err := memory.New(res)
	require.NoError(t, err)
	imp, err := importer.New(res, store)
	require.NoError(t, err)

	ds := bookDataset(t,
		[]string{"1", "Book A", "a@x.com"},
		[]string{"not-a-number", "Book B", "b@x.com"},
		[]string{"3", "Book C", "c@x.com"},
	)

	result, err := imp.Import(context.Background(), ds)
	require.NoError(t, err)
	require.Len(t, result.Rows, 3)

	assert.Equal(t, importer.ImportTypeNew, result.Rows[0].Type)
	assert.Equal(t, importer.ImportTypeError, result.Rows[1].Type)
	require.NotNil(t, result.Rows[1].Err)
	assert.Equal(t, "id", result.Rows[1].Err.Field)
	assert.Equal(t, importer.ImportTypeNew, result.Rows[2].Type)
	assert.True(t, result.HasErrors())
	assert.Equal(t, 2, store.Len(), "good rows commit despite the bad one")
}

// failingStore wraps the memory store and fails Create for one key, to
// exercise write-failure isolation.
type failingStore struct {
	*memory.Store
	failKey string
}

func (f *failingStore) Create(ctx context.Context, rec *schema.Record) (string, error) {
	if rec.Get("id") == f.failKey {
		return "", fmt.Errorf("disk full")
	}
	return f.Store.Create(ctx, rec)
}

func TestWriteFailureRollsBackOnlyThatRow(t *testing.T) {
	ctx := context.Background()
	res := bookResource(t)
	store, err := memory.New(res)
	require.NoError(t, err)
	imp, err := importer.New(res, &failingStore{Store: store, failKey: "2"})
	require.NoError(t, err)

	ds := bookDataset(t,
		[]string{"1", "Book A", "a@x.com"},
		[]string{"2", "Book B", "b@x.com"},
		[]string{"3", "Book C", "c@x.com"},
	)

	result, err := imp.Import(ctx, ds)
	require.NoError(t, err)

	assert.Equal(t, importer.ImportTypeNew, result.Rows[0].Type)
	assert.Equal(t, importer.ImportTypeError, result.Rows[1].Type)
	assert.Equal(t, importer.ImportTypeNew, result.Rows[2].Type)
	assert.Equal(t, 2, store.Len(), "rows 1 and 3 stay committed")

	_, found, err := store.Lookup(ctx, "2")
	require.NoError(t, err)
	assert.False(t, found, "failed row must not be partially applied")
}

func TestRaiseOnErrorEscalatesAfterAllRows(t *testing.T) {
	res := bookResource(t)
	store, err := memory.New(res)
	require.NoError(t, err)
	imp, err := importer.New(res, store)
	require.NoError(t, err)

	ds := bookDataset(t,
		[]string{"bad", "Book A", "a@x.com"},
		[]string{"2", "Book B", "b@x.com"},
	)

	result, err := imp.Import(context.Background(), ds, importer.WithRaiseOnError(true))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrImportFailed)
	require.Len(t, result.Rows, 2, "errors are collected, not fail-fast")
	assert.Equal(t, importer.ImportTypeNew, result.Rows[1].Type)
	assert.Equal(t, 1, store.Len())
}

func TestMissingKeyColumnIsDatasetError(t *testing.T) {
	res := bookResource(t)
	store, err := memory.New(res)
	require.NoError(t, err)
	imp, err := importer.New(res, store)
	require.NoError(t, err)

	ds := dataset.New("name", "author_email")
	require.NoError(t, ds.Append([]string{"Book A", "a@x.com"}))

	result, err := imp.Import(context.Background(), ds)
	require.NoError(t, err)
	assert.True(t, result.HasErrors())
	assert.Empty(t, result.Rows, "no row is processed after a dataset error")

	_, err = imp.Import(context.Background(), ds, importer.WithRaiseOnError(true))
	require.Error(t, err)
	assert.True(t, errors.IsDatasetError(err))
}

func TestResultSummary(t *testing.T) {
	result := &importer.Result{
		Resource: "book",
		DryRun:   true,
		Rows: []importer.RowResult{
			{RowNumber: 1, Type: importer.ImportTypeNew},
			{RowNumber: 2, Type: importer.ImportTypeNew},
			{RowNumber: 3, Type: importer.ImportTypeSkip},
		},
	}
	assert.Equal(t, "book: 2 new, 1 skip (dry run)", result.Summary())
	assert.False(t, result.HasErrors())

	totals := result.Totals()
	assert.Equal(t, 2, totals[importer.ImportTypeNew])
	assert.Equal(t, 1, totals[importer.ImportTypeSkip])
}
