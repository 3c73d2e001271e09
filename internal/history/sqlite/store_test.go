package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quiverhq/quiver/internal/core"
	"github.com/quiverhq/quiver/internal/history"
)

func archived(t *testing.T) *Store {
	t.Helper()
	store, err := NewInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleEntry(id string, completed time.Time) history.Entry {
	return history.Entry{
		ID:          id,
		CompletedAt: completed,
		RequestName: "create user",
		Method:      "POST",
		URL:         "https://{{HOST}}/users",
		Headers:     []core.Header{{Key: "Accept", Value: "application/json", Enabled: true}},
		Body:        `{"name":"x"}`,
		BodyType:    core.BodyTypeJSON,
		ResolvedURL: "https://api.example.com/users",
		SentHeaders: map[string]string{"Authorization": "Bearer tok"},
		SentBody:    `{"name":"x"}`,
		Environment: "dev",
		Response: core.Response{
			Status: 201, StatusText: "Created",
			Headers:      map[string]string{"Content-Type": "application/json"},
			Body:         `{"id":"7"}`,
			ResponseTime: 42, Size: 10,
		},
		TestsPassed: 2,
		TestsFailed: 1,
	}
}

func TestStore_ArchiveAndList(t *testing.T) {
	store := archived(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, store.Archive(ctx, sampleEntry("a", now.Add(-time.Minute))))
	require.NoError(t, store.Archive(ctx, sampleEntry("b", now)))

	entries, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "b", entries[0].ID, "newest first")

	t.Run("round-trips the full entry", func(t *testing.T) {
		e := entries[0]
		assert.Equal(t, "https://{{HOST}}/users", e.URL)
		assert.Equal(t, "https://api.example.com/users", e.ResolvedURL)
		assert.Equal(t, "Bearer tok", e.SentHeaders["Authorization"])
		assert.Equal(t, core.BodyTypeJSON, e.BodyType)
		assert.Equal(t, 201, e.Response.Status)
		assert.Equal(t, "application/json", e.Response.Headers["Content-Type"])
		assert.Equal(t, 2, e.TestsPassed)
		assert.Equal(t, 1, e.TestsFailed)
	})

	t.Run("limit caps the result", func(t *testing.T) {
		one, err := store.List(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, one, 1)
	})
}

func TestStore_Count(t *testing.T) {
	store := archived(t)
	ctx := context.Background()

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	require.NoError(t, store.Archive(ctx, sampleEntry("a", time.Now())))
	count, err = store.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestStore_Clear(t *testing.T) {
	store := archived(t)
	ctx := context.Background()

	require.NoError(t, store.Archive(ctx, sampleEntry("a", time.Now())))
	require.NoError(t, store.Clear(ctx))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestStore_Closed(t *testing.T) {
	store := archived(t)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close(), "double close is safe")

	assert.Error(t, store.Archive(context.Background(), sampleEntry("a", time.Now())))
	_, err := store.List(context.Background(), 0)
	assert.Error(t, err)
}
