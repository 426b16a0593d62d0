package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheetport/sheetport/pkg/errors"
	"github.com/sheetport/sheetport/pkg/schema"
	"github.com/sheetport/sheetport/pkg/schema/memory"
)

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

func TestCreateAssignsIdentity(t *testing.T) {
	store, err := memory.New(bookResource(t))
	require.NoError(t, err)

	rec := &schema.Record{Values: map[string]string{"name": "Book A"}}
	id, err := store.Create(context.Background(), rec)
	require.NoError(t, err)

	assert.Equal(t, "1", id)
	assert.Equal(t, "1", rec.ID)

	// Import key back-filled with the assigned identity.
	got, found, err := store.Lookup(context.Background(), "1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Book A", got.Get("name"))
	assert.Equal(t, "1", got.Get("id"))
}

func TestLookupUsesFieldEquality(t *testing.T) {
	store, err := memory.New(bookResource(t), memory.WithRecords(
		schema.Record{Values: map[string]string{"id": "7", "name": "Book A"}},
	))
	require.NoError(t, err)

	// "07" coerces to the same integer as the stored "7".
	_, found, err := store.Lookup(context.Background(), "07")
	require.NoError(t, err)
	assert.True(t, found)

	_, found, err = store.Lookup(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestReadOnly(t *testing.T) {
	store, err := memory.New(bookResource(t), memory.WithReadOnly(true))
	require.NoError(t, err)

	_, err = store.Create(context.Background(), &schema.Record{})
	assert.True(t, errors.IsReadOnly(err))
	assert.Error(t, store.Update(context.Background(), &schema.Record{ID: "1"}))
	assert.Error(t, store.Delete(context.Background(), "1"))
}

func TestUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	store, err := memory.New(bookResource(t), memory.WithRecords(
		schema.Record{Values: map[string]string{"id": "1", "name": "Book A"}},
	))
	require.NoError(t, err)

	rec, found, err := store.Lookup(ctx, "1")
	require.NoError(t, err)
	require.True(t, found)

	rec.Set("name", "Book A2")
	require.NoError(t, store.Update(ctx, rec))

	got, _, err := store.Lookup(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "Book A2", got.Get("name"))

	require.NoError(t, store.Delete(ctx, rec.ID))
	_, found, err = store.Lookup(ctx, "1")
	require.NoError(t, err)
	assert.False(t, found)

	assert.True(t, errors.IsNotFound(store.Delete(ctx, "99")))
}

func TestListFilterAndOrder(t *testing.T) {
	ctx := context.Background()
	store, err := memory.New(bookResource(t), memory.WithRecords(
		schema.Record{Values: map[string]string{"id": "2", "name": "B", "author_email": "x@x.com"}},
		schema.Record{Values: map[string]string{"id": "10", "name": "C", "author_email": "x@x.com"}},
		schema.Record{Values: map[string]string{"id": "1", "name": "A", "author_email": "y@x.com"}},
	))
	require.NoError(t, err)

	all, err := store.List(ctx, schema.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	// Numeric ID order, not lexicographic.
	assert.Equal(t, "A", all[0].Get("name"))
	assert.Equal(t, "B", all[1].Get("name"))
	assert.Equal(t, "C", all[2].Get("name"))

	filtered, err := store.List(ctx, schema.Filter{Equals: map[string]string{"author_email": "x@x.com"}})
	require.NoError(t, err)
	assert.Len(t, filtered, 2)

	limited, err := store.List(ctx, schema.Filter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestInTransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	store, err := memory.New(bookResource(t), memory.WithRecords(
		schema.Record{Values: map[string]string{"id": "1", "name": "Book A"}},
	))
	require.NoError(t, err)

	boom := errors.New("write failed")
	err = store.InTransaction(ctx, func(ctx context.Context) error {
		if _, err := store.Create(ctx, &schema.Record{Values: map[string]string{"id": "2", "name": "Book B"}}); err != nil {
			return err
		}
		return boom
	})
	assert.Equal(t, boom, err)
	assert.Equal(t, 1, store.Len())

	err = store.InTransaction(ctx, func(ctx context.Context) error {
		_, err := store.Create(ctx, &schema.Record{Values: map[string]string{"id": "2", "name": "Book B"}})
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 2, store.Len())
}
