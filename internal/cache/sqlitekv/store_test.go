package sqlitekv

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasksync/internal/cache"
	"tasksync/internal/service"
)

func openTestStore(t *testing.T, path string) *Store {
	t.Helper()
	store, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})
	return store
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("  ")
	require.Error(t, err)
}

func TestGetMissingKey(t *testing.T) {
	store := openTestStore(t, filepath.Join(t.TempDir(), "cache.db"))

	_, err := store.Get(context.Background(), cache.SnapshotKey)
	require.ErrorIs(t, err, cache.ErrNotFound)
}

func TestPutOverwrites(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, filepath.Join(t.TempDir(), "cache.db"))

	require.NoError(t, store.Put(ctx, "k", []byte("one")))
	require.NoError(t, store.Put(ctx, "k", []byte("two")))

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "two", string(got))

	var rows int
	require.NoError(t, store.sqlDB.QueryRow(`SELECT COUNT(*) FROM kv`).Scan(&rows))
	assert.Equal(t, 1, rows)
}

func TestSnapshotSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")
	tasks := []service.Task{{
		ID:          "a1",
		Title:       "Buy milk",
		Description: "2% organic",
		Priority:    service.PriorityLow,
		CreatedAt:   time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}}

	first, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, cache.New(first).WriteSnapshot(ctx, tasks))
	require.NoError(t, first.Close())

	second := openTestStore(t, path)
	got, ok, err := cache.New(second).ReadSnapshot(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, tasks, got)
}

func TestNilStore(t *testing.T) {
	var store *Store
	_, err := store.Get(context.Background(), "k")
	assert.Error(t, err)
	assert.Error(t, store.Put(context.Background(), "k", nil))
	assert.NoError(t, store.Close())
}
