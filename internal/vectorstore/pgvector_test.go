package vectorstore

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koopa0/ragline/internal/testutil"
)

func setupPostgresStore(t *testing.T) *Postgres {
	t.Helper()

	if os.Getenv("RAGLINE_INTEGRATION") == "" {
		t.Skip("RAGLINE_INTEGRATION not set - skipping container-backed test")
	}

	db, cleanup := testutil.SetupTestDB(t)
	t.Cleanup(cleanup)

	store, err := NewPostgres(db.Pool, testutil.DiscardLogger())
	require.NoError(t, err)
	return store
}

func TestPostgresCollectionLifecycle(t *testing.T) {
	ctx := context.Background()
	store := setupPostgresStore(t)

	exists, err := store.CollectionExists(ctx, "collection_lifecycle")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.CreateCollection(ctx, "collection_lifecycle", 4, false))

	exists, err = store.CollectionExists(ctx, "collection_lifecycle")
	require.NoError(t, err)
	assert.True(t, exists)

	info, err := store.CollectionInfo(ctx, "collection_lifecycle")
	require.NoError(t, err)
	assert.Equal(t, 4, info.Dimension)
	assert.EqualValues(t, 0, info.Records)

	// Re-creating with a different dimension must fail without reset.
	err = store.CreateCollection(ctx, "collection_lifecycle", 8, false)
	require.ErrorIs(t, err, ErrDimensionMismatch)

	require.NoError(t, store.DeleteCollection(ctx, "collection_lifecycle"))
	exists, err = store.CollectionExists(ctx, "collection_lifecycle")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestPostgresUpsertAndSearch(t *testing.T) {
	ctx := context.Background()
	store := setupPostgresStore(t)

	require.NoError(t, store.CreateCollection(ctx, "collection_search", 3, false))

	records := []Record{
		{ID: "a", Vector: []float32{1, 0, 0}, Text: "exact", Metadata: map[string]string{"source": "a.txt"}},
		{ID: "b", Vector: []float32{0.7, 0.7, 0}, Text: "close"},
		{ID: "c", Vector: []float32{0, 0, 1}, Text: "far"},
	}
	require.NoError(t, store.Upsert(ctx, "collection_search", records))

	hits, err := store.Search(ctx, "collection_search", []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a", hits[0].ID)
	assert.Equal(t, "exact", hits[0].Text)
	assert.Equal(t, "a.txt", hits[0].Metadata["source"])
	assert.Equal(t, "b", hits[1].ID)
	assert.Greater(t, hits[0].Score, hits[1].Score)

	hits, err = store.Search(ctx, "collection_search", []float32{1, 0, 0}, -1)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestPostgresUpsertOverwritesByID(t *testing.T) {
	ctx := context.Background()
	store := setupPostgresStore(t)

	require.NoError(t, store.CreateCollection(ctx, "collection_upsert", 2, false))
	require.NoError(t, store.Upsert(ctx, "collection_upsert",
		[]Record{{ID: "a", Vector: []float32{1, 0}, Text: "old"}}))
	require.NoError(t, store.Upsert(ctx, "collection_upsert",
		[]Record{{ID: "a", Vector: []float32{0, 1}, Text: "new"}}))

	info, err := store.CollectionInfo(ctx, "collection_upsert")
	require.NoError(t, err)
	assert.EqualValues(t, 1, info.Records)

	hits, err := store.Search(ctx, "collection_upsert", []float32{0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "new", hits[0].Text)
}

func TestPostgresMissingCollection(t *testing.T) {
	ctx := context.Background()
	store := setupPostgresStore(t)

	_, err := store.Search(ctx, "collection_absent", []float32{1}, 5)
	require.ErrorIs(t, err, ErrCollectionNotFound)

	err = store.Upsert(ctx, "collection_absent", []Record{{ID: "a", Vector: []float32{1}}})
	require.ErrorIs(t, err, ErrCollectionNotFound)

	_, err = store.CollectionInfo(ctx, "collection_absent")
	require.ErrorIs(t, err, ErrCollectionNotFound)

	_, err = store.Search(ctx, "collection_absent", []float32{1}, 0)
	require.ErrorIs(t, err, ErrCollectionNotFound)
}

func TestPostgresResetDropsRecords(t *testing.T) {
	ctx := context.Background()
	store := setupPostgresStore(t)

	require.NoError(t, store.CreateCollection(ctx, "collection_reset", 2, false))
	require.NoError(t, store.Upsert(ctx, "collection_reset",
		[]Record{{ID: "a", Vector: []float32{1, 0}}}))

	require.NoError(t, store.CreateCollection(ctx, "collection_reset", 2, true))
	info, err := store.CollectionInfo(ctx, "collection_reset")
	require.NoError(t, err)
	assert.EqualValues(t, 0, info.Records)
}

func TestPostgresRejectsInvalidCollectionName(t *testing.T) {
	ctx := context.Background()
	store := setupPostgresStore(t)

	err := store.CreateCollection(ctx, `bad";DROP TABLE chunks;--`, 2, false)
	require.Error(t, err)
}
