package cache_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasksync/internal/cache"
	"tasksync/internal/service"
)

func sampleTasks() []service.Task {
	t0 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	return []service.Task{
		{ID: "a2", Title: "Call bank", Description: "About the card", Priority: service.PriorityHigh, CreatedAt: t0.Add(time.Hour)},
		{ID: "a1", Title: "Buy milk", Description: "2% organic", Priority: service.PriorityLow, Completed: true, CreatedAt: t0},
	}
}

func TestSnapshots_Absent(t *testing.T) {
	snaps := cache.New(cache.NewMemoryStore())

	tasks, ok, err := snaps.ReadSnapshot(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, tasks)
}

func TestSnapshots_RoundTripOverwrites(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()
	snaps := cache.New(store)

	require.NoError(t, snaps.WriteSnapshot(ctx, sampleTasks()))
	got, ok, err := snaps.ReadSnapshot(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sampleTasks(), got)

	require.NoError(t, snaps.WriteSnapshot(ctx, nil))
	got, ok, err = snaps.ReadSnapshot(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, got)
	assert.Equal(t, 1, store.Len())
}

func TestSnapshots_CorruptData(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()
	require.NoError(t, store.Put(ctx, cache.SnapshotKey, []byte("{not json")))

	_, ok, err := cache.New(store).ReadSnapshot(ctx)
	require.Error(t, err)
	assert.False(t, ok)
}

func TestSnapshots_SkipsBadEntries(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()
	doc := `{"savedAt":"2024-03-01T10:00:00Z","tasks":[
		{"id":"","title":"no id","description":"d","priority":"low"},
		{"id":"a1","title":"Buy milk","description":"2% organic","priority":"urgent","createdAt":"2024-03-01T10:00:00Z"},
		{"id":"a1","title":"dup","description":"d","priority":"high"},
		{"id":"a2","title":"Call bank","description":"d","createdAt":"2024-03-01T09:00:00Z"}
	]}`
	require.NoError(t, store.Put(ctx, cache.SnapshotKey, []byte(doc)))

	got, ok, err := cache.New(store).ReadSnapshot(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 2)
	assert.Equal(t, "a1", got[0].ID)
	assert.Equal(t, "Buy milk", got[0].Title, "first occurrence wins")
	assert.Equal(t, service.PriorityMedium, got[0].Priority)
	assert.Equal(t, "a2", got[1].ID)
	assert.Equal(t, service.PriorityMedium, got[1].Priority)
}

func TestMemoryStore_FailPuts(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()
	store.FailPuts(assert.AnError)

	err := cache.New(store).WriteSnapshot(ctx, sampleTasks())
	require.ErrorIs(t, err, assert.AnError)

	store.FailPuts(nil)
	require.NoError(t, cache.New(store).WriteSnapshot(ctx, sampleTasks()))
}

func TestFileStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "cache")
	store := cache.NewFileStore(dir)

	_, err := store.Get(ctx, cache.SnapshotKey)
	require.ErrorIs(t, err, cache.ErrNotFound)

	require.NoError(t, store.Put(ctx, cache.SnapshotKey, []byte(`{"tasks":[]}`)))
	require.NoError(t, store.Put(ctx, cache.SnapshotKey, []byte(`{"tasks":null}`)))

	got, err := store.Get(ctx, cache.SnapshotKey)
	require.NoError(t, err)
	assert.Equal(t, `{"tasks":null}`, string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file should be renamed away")
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	require.NoError(t, cache.New(cache.NewFileStore(dir)).WriteSnapshot(ctx, sampleTasks()))

	got, ok, err := cache.New(cache.NewFileStore(dir)).ReadSnapshot(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sampleTasks(), got)
}

func TestFileStore_RejectsPathKeys(t *testing.T) {
	store := cache.NewFileStore(t.TempDir())
	for _, key := range []string{"", "..", "a/b", `a\b`} {
		assert.Error(t, store.Put(context.Background(), key, nil), key)
	}
}
