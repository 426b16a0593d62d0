package sheetport_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheetport/sheetport"
	"github.com/sheetport/sheetport/internal/audit"
	"github.com/sheetport/sheetport/pkg/headers"
	"github.com/sheetport/sheetport/pkg/importer"
	"github.com/sheetport/sheetport/pkg/schema"
	"github.com/sheetport/sheetport/pkg/schema/memory"
	"github.com/sheetport/sheetport/pkg/tmpstorage"
)

const (
	formatCSV  = 0
	formatJSON = 2
	formatHTML = 4
)

var bookRulePairs = []headers.Pair{
	{Label: "Identifier", FieldID: "id"},
	{Label: "Book Title", FieldID: "name"},
	{Label: "Email of the author", FieldID: "author_email"},
}

func bookResource(t *testing.T) *schema.Resource {
	t.Helper()
	res, err := schema.New("book", []schema.Field{
		schema.Int("id", "Primary Key"),
		schema.String("name", "Book name"),
		schema.String("author_email", "Author email"),
	})
	require.NoError(t, err)
	return res
}

func TestNewRequiresResource(t *testing.T) {
	_, err := sheetport.New()
	require.Error(t, err)
}

func TestPreflightReportsHashAndRuleMatch(t *testing.T) {
	client, err := sheetport.New(
		sheetport.WithResource(bookResource(t)),
		sheetport.WithRules(headers.NewRegistry(bookRulePairs)),
	)
	require.NoError(t, err)

	info, err := client.Preflight([]byte("Identifier,Book Title,Email of the author\n"), formatCSV, "")
	require.NoError(t, err)

	assert.Equal(t, []string{"Identifier", "Book Title", "Email of the author"}, info.Headers)
	assert.Equal(t, headers.Hash(info.Headers), info.HeaderHash)
	require.True(t, info.RuleMatched)
	assert.Equal(t, "id", info.Rule["Identifier"])

	unknown, err := client.Preflight([]byte("a,b\n"), formatCSV, "")
	require.NoError(t, err)
	assert.False(t, unknown.RuleMatched)
}

func TestTwoPhaseImportFlow(t *testing.T) {
	ctx := context.Background()
	res := bookResource(t)
	store, err := memory.New(res, memory.WithRecords(
		schema.Record{Values: map[string]string{"id": "1", "name": "Book A", "author_email": "old@x.com"}},
	))
	require.NoError(t, err)
	blobs := tmpstorage.NewMemory()
	trail := &audit.MemoryRecorder{}

	client, err := sheetport.New(
		sheetport.WithResource(res),
		sheetport.WithStorage(store),
		sheetport.WithTempStorage(blobs),
		sheetport.WithRules(headers.NewRegistry(bookRulePairs)),
		sheetport.WithAuditRecorder(trail),
	)
	require.NoError(t, err)

	upload := sheetport.Upload{
		Data: []byte("Identifier,Book Title,Email of the author\n" +
			"1,Book A,new@x.com\n" +
			"2,Book B,b@x.com\n"),
		FormatIndex: formatCSV,
		Filename:    "books.csv",
	}

	preview, err := client.BeginImport(ctx, upload)
	require.NoError(t, err)

	// The dry run must not have touched storage.
	assert.Equal(t, 1, store.Len())
	assert.True(t, preview.Result.DryRun)
	assert.Equal(t, map[string]string{
		"Identifier":          "id",
		"Book Title":          "name",
		"Email of the author": "author_email",
	}, preview.Resolution.Renamed)

	require.Len(t, preview.Result.Rows, 2)
	assert.Equal(t, importer.ImportTypeUpdate, preview.Result.Rows[0].Type)
	assert.Equal(t, importer.ImportTypeNew, preview.Result.Rows[1].Type)

	require.NotNil(t, preview.Token)
	assert.Equal(t, "books.csv", preview.Token.OriginalName)
	assert.Equal(t, "csv", preview.Token.Format)
	assert.Equal(t, 1, blobs.Len())

	result, err := client.ConfirmImport(ctx, *preview.Token)
	require.NoError(t, err)
	assert.False(t, result.DryRun)

	// Commit reproduces the preview's classifications.
	require.Len(t, result.Rows, 2)
	for i := range result.Rows {
		assert.Equal(t, preview.Result.Rows[i].Type, result.Rows[i].Type)
		assert.Equal(t, preview.Result.Rows[i].ObjectID, result.Rows[i].ObjectID)
	}

	assert.Equal(t, 2, store.Len())
	rec, found, err := store.Lookup(ctx, "1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "new@x.com", rec.Get("author_email"))

	entries := trail.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, audit.ActionChange, entries[0].Action)
	assert.Equal(t, audit.ActionAddition, entries[1].Action)

	assert.Equal(t, 0, blobs.Len(), "confirmed blob is removed")
}

func TestBeginImportWithErrorsReturnsNoToken(t *testing.T) {
	blobs := tmpstorage.NewMemory()
	client, err := sheetport.New(
		sheetport.WithResource(bookResource(t)),
		sheetport.WithTempStorage(blobs),
	)
	require.NoError(t, err)

	preview, err := client.BeginImport(context.Background(), sheetport.Upload{
		Data:        []byte("id,name,author_email\nnot-a-number,Book A,a@x.com\n"),
		FormatIndex: formatCSV,
	})
	require.NoError(t, err)

	assert.True(t, preview.Result.HasErrors())
	assert.Nil(t, preview.Token)
	assert.Equal(t, 0, blobs.Len())
}

func TestBeginImportWithExplicitRule(t *testing.T) {
	client, err := sheetport.New(sheetport.WithResource(bookResource(t)))
	require.NoError(t, err)

	preview, err := client.BeginImport(context.Background(), sheetport.Upload{
		Data:        []byte(`[{"key": 5, "title": "Book E"}]`),
		FormatIndex: formatJSON,
		Rule:        headers.Rule{"key": "id", "title": "name"},
	})
	require.NoError(t, err)

	require.Len(t, preview.Result.Rows, 1)
	assert.Equal(t, importer.ImportTypeNew, preview.Result.Rows[0].Type)
	assert.Equal(t, []string{"author_email"}, preview.Resolution.BackFilled)
}

func TestBeginImportDropsUnmappedColumns(t *testing.T) {
	client, err := sheetport.New(sheetport.WithResource(bookResource(t)))
	require.NoError(t, err)

	preview, err := client.BeginImport(context.Background(), sheetport.Upload{
		Data: []byte("Identifier,Book Title,Email of the author,Ignored\n" +
			"1,Book A,a@x.com,junk\n"),
		FormatIndex: formatCSV,
		Rule: headers.Rule{
			"Identifier":          "id",
			"Book Title":          "name",
			"Email of the author": "author_email",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Ignored"}, preview.Resolution.Dropped)
	require.Len(t, preview.Result.Rows, 1)
	assert.Equal(t, importer.ImportTypeNew, preview.Result.Rows[0].Type)
}

func TestConfirmImportUnknownHandle(t *testing.T) {
	client, err := sheetport.New(sheetport.WithResource(bookResource(t)))
	require.NoError(t, err)

	_, err = client.ConfirmImport(context.Background(), sheetport.Token{
		Handle: "no-such-blob",
		Format: "csv",
	})
	require.Error(t, err)
}

func TestSkipAuditLeavesTrailEmpty(t *testing.T) {
	trail := &audit.MemoryRecorder{}
	client, err := sheetport.New(
		sheetport.WithResource(bookResource(t)),
		sheetport.WithAuditRecorder(trail),
		sheetport.WithSkipAudit(true),
	)
	require.NoError(t, err)

	preview, err := client.BeginImport(context.Background(), sheetport.Upload{
		Data:        []byte("id,name,author_email\n1,Book A,a@x.com\n"),
		FormatIndex: formatCSV,
	})
	require.NoError(t, err)
	require.NotNil(t, preview.Token)

	_, err = client.ConfirmImport(context.Background(), *preview.Token)
	require.NoError(t, err)
	assert.Empty(t, trail.Entries())
}

func TestExportFilenameAndContent(t *testing.T) {
	ctx := context.Background()
	res := bookResource(t)
	store, err := memory.New(res, memory.WithRecords(
		schema.Record{Values: map[string]string{"id": "2", "name": "Book B", "author_email": "b@x.com"}},
		schema.Record{Values: map[string]string{"id": "1", "name": "Book A", "author_email": "a@x.com"}},
	))
	require.NoError(t, err)

	client, err := sheetport.New(
		sheetport.WithResource(res),
		sheetport.WithStorage(store),
	)
	require.NoError(t, err)

	data, filename, err := client.Export(ctx, formatCSV, schema.Filter{})
	require.NoError(t, err)

	want := fmt.Sprintf("book-%s.csv", time.Now().Format("2006-01-02"))
	assert.Equal(t, want, filename)
	assert.Equal(t, "id,name,author_email\n1,Book A,a@x.com\n2,Book B,b@x.com\n", string(data))

	t.Run("filtered", func(t *testing.T) {
		data, _, err := client.Export(ctx, formatCSV, schema.Filter{
			Equals: map[string]string{"name": "Book B"},
		})
		require.NoError(t, err)
		assert.Equal(t, "id,name,author_email\n2,Book B,b@x.com\n", string(data))
	})

	t.Run("export-only format", func(t *testing.T) {
		data, filename, err := client.Export(ctx, formatHTML, schema.Filter{})
		require.NoError(t, err)
		assert.Contains(t, string(data), "<table>")
		assert.Contains(t, filename, ".html")
	})
}

func TestImportRejectsExportOnlyFormat(t *testing.T) {
	client, err := sheetport.New(sheetport.WithResource(bookResource(t)))
	require.NoError(t, err)

	_, err = client.BeginImport(context.Background(), sheetport.Upload{
		Data:        []byte("<table></table>"),
		FormatIndex: formatHTML,
	})
	require.Error(t, err)
}

func TestCharsetDecodedUpload(t *testing.T) {
	client, err := sheetport.New(sheetport.WithResource(bookResource(t)))
	require.NoError(t, err)

	// "café" with a latin1-encoded é.
	data := append([]byte("id,name,author_email\n1,caf"), 0xE9, ',', 'a', '@', 'x', '.', 'c', 'o', 'm', '\n')

	preview, err := client.BeginImport(context.Background(), sheetport.Upload{
		Data:        data,
		FormatIndex: formatCSV,
		Charset:     "latin1",
	})
	require.NoError(t, err)

	require.Len(t, preview.Result.Rows, 1)
	diffs := preview.Result.Rows[0].Diffs
	require.Len(t, diffs, 3)
	assert.Equal(t, "café", diffs[1].NewValue)
}
