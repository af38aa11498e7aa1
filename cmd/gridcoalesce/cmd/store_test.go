package cmd

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carmen-go/gridcoalesce/internal/gridstore"
)

func TestOpenWritableStore_Sqlite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grid.sqlite")

	store, err := openWritableStore("sqlite", path, 0)

	require.NoError(t, err)
	require.NotNil(t, store)
	defer func() { _ = store.Close() }()

	err = store.Insert("main st", 14, []gridstore.MatchEntry{
		{GridEntry: gridstore.GridEntry{ID: 1, X: 10, Y: 20, Relev: 1.0}},
	})
	assert.NoError(t, err)
}

func TestOpenWritableStore_Bleve(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grid.bleve")

	store, err := openWritableStore("bleve", path, 0)

	require.NoError(t, err)
	require.NotNil(t, store)
	defer func() { _ = store.Close() }()
}

func TestOpenWritableStore_UnsupportedKind(t *testing.T) {
	store, err := openWritableStore("carrier-pigeon", "unused", 0)

	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestOpenReadableStore_RoundTripsWrittenEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grid.sqlite")

	w, err := openWritableStore("sqlite", path, 3)
	require.NoError(t, err)
	require.NoError(t, w.Insert("main st", 14, []gridstore.MatchEntry{
		{GridEntry: gridstore.GridEntry{ID: 1, X: 10, Y: 20, Relev: 1.0}, Scoredist: 1.0},
	}))
	require.NoError(t, w.Close())

	store, closer, err := openReadableStore("sqlite", path, 3)
	require.NoError(t, err)
	defer func() { _ = closer.Close() }()

	it, err := store.GetMatching(t.Context(), "main st", gridstore.MatchOpts{Zoom: 14})
	require.NoError(t, err)

	entry, ok := it.Next()
	require.True(t, ok)
	assert.Equal(t, uint32(1), entry.ID)

	_, ok = it.Next()
	assert.False(t, ok)
}

func TestOpenReadableStore_UnsupportedKind(t *testing.T) {
	store, closer, err := openReadableStore("carrier-pigeon", "unused", 0)

	assert.Error(t, err)
	assert.Nil(t, store)
	assert.Nil(t, closer)
}
