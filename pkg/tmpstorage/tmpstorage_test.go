package tmpstorage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheetport/sheetport/pkg/errors"
	"github.com/sheetport/sheetport/pkg/tmpstorage"
)

func TestFolderRoundTrip(t *testing.T) {
	store, err := tmpstorage.NewFolder(t.TempDir())
	require.NoError(t, err)

	name, err := store.Save([]byte("id,name\n1,Book A\n"))
	require.NoError(t, err)
	require.NotEmpty(t, name)

	data, err := store.Read(name)
	require.NoError(t, err)
	assert.Equal(t, "id,name\n1,Book A\n", string(data))

	require.NoError(t, store.Remove(name))

	_, err = store.Read(name)
	assert.ErrorIs(t, err, errors.ErrNotFound)
	assert.ErrorIs(t, store.Remove(name), errors.ErrNotFound)
}

func TestFolderHandlesAreUnique(t *testing.T) {
	store, err := tmpstorage.NewFolder(t.TempDir())
	require.NoError(t, err)

	a, err := store.Save([]byte("a"))
	require.NoError(t, err)
	b, err := store.Save([]byte("b"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestFolderRejectsTraversalHandles(t *testing.T) {
	store, err := tmpstorage.NewFolder(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"", "../etc/passwd", "a/b", `a\b`, "."} {
		_, err := store.Read(name)
		assert.Error(t, err, "handle %q", name)
	}
}

func TestMemoryRoundTrip(t *testing.T) {
	store := tmpstorage.NewMemory()

	name, err := store.Save([]byte("payload"))
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())

	data, err := store.Read(name)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	// Mutating the returned slice must not corrupt the stored blob.
	data[0] = 'X'
	again, err := store.Read(name)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(again))

	require.NoError(t, store.Remove(name))
	assert.Equal(t, 0, store.Len())
	assert.ErrorIs(t, store.Remove(name), errors.ErrNotFound)
}
