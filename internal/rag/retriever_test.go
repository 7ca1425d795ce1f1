package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koopa0/ragline/internal/llm"
	"github.com/koopa0/ragline/internal/testutil"
	"github.com/koopa0/ragline/internal/vectorstore"
)

// indexedRetriever returns a retriever over a project already holding the
// given texts.
func indexedRetriever(t *testing.T, embedder *testutil.Embedder, texts ...string) *Retriever {
	t.Helper()

	store := vectorstore.NewMemory()
	ix := NewIndexer(store, embedder, 0, testutil.DiscardLogger())
	require.NoError(t, ix.Index(context.Background(), "proj1", testChunks(texts...), false))
	return NewRetriever(store, embedder, testutil.DiscardLogger())
}

func TestSearchUsesQueryMode(t *testing.T) {
	embedder := testutil.NewEmbedder()
	r := indexedRetriever(t, embedder, "quantum physics")

	_, err := r.Search(context.Background(), "proj1", "physics", 5)
	require.NoError(t, err)

	modes := embedder.Modes()
	require.NotEmpty(t, modes)
	assert.Equal(t, llm.ModeQuery, modes[len(modes)-1])
}

func TestSearchRanksRelatedTextFirst(t *testing.T) {
	r := indexedRetriever(t, testutil.NewEmbedder(),
		"quantum physics explains the microscopic world",
		"pasta needs salted boiling water",
		"stock markets closed lower today",
	)

	docs, err := r.Search(context.Background(), "proj1", "quantum physics", 3)
	require.NoError(t, err)
	require.NotEmpty(t, docs)
	assert.Contains(t, docs[0].Text, "quantum physics")

	for i := 1; i < len(docs); i++ {
		assert.LessOrEqual(t, docs[i].Score, docs[i-1].Score, "results must be ordered by descending score")
	}
}

func TestSearchRespectsLimit(t *testing.T) {
	r := indexedRetriever(t, testutil.NewEmbedder(), "a b", "b c", "c d", "d e", "e f")

	docs, err := r.Search(context.Background(), "proj1", "b c d", 2)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestSearchMissingCollection(t *testing.T) {
	r := NewRetriever(vectorstore.NewMemory(), testutil.NewEmbedder(), testutil.DiscardLogger())

	docs, err := r.Search(context.Background(), "neverindexed", "anything", 5)
	require.NoError(t, err, "a project without a collection is a no-result, not an error")
	assert.Empty(t, docs)
}

func TestSearchEmptyQueryVector(t *testing.T) {
	embedder := testutil.NewEmbedder()
	embedder.EmptyOn = "???"
	r := indexedRetriever(t, embedder, "some content")

	docs, err := r.Search(context.Background(), "proj1", "???", 5)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestSearchEmbedFailure(t *testing.T) {
	boom := errors.New("backend unavailable")
	embedder := testutil.NewEmbedder()
	r := indexedRetriever(t, embedder, "some content")

	embedder.FailOn = "doomed"
	embedder.ErrInject = boom
	_, err := r.Search(context.Background(), "proj1", "doomed query", 5)
	require.ErrorIs(t, err, boom)
}
