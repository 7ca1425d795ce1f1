package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/koopa0/ragline/internal/llm"
	"github.com/koopa0/ragline/internal/vectorstore"
)

// Retriever embeds a question in query mode and runs similarity search
// against a project's vector collection.
//
// Retriever is safe for concurrent use.
type Retriever struct {
	store    vectorstore.Store
	embedder llm.EmbeddingProvider
	logger   *slog.Logger
}

// NewRetriever creates a Retriever.
func NewRetriever(store vectorstore.Store, embedder llm.EmbeddingProvider, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{store: store, embedder: embedder, logger: logger}
}

// Search returns up to limit documents ordered by descending relevance.
//
// An empty result with a nil error is the normal "no result" terminal state
// and covers three cases: the query embedded to an empty vector, the project
// has no collection (search never creates one), or the similarity search
// matched nothing. Backend failures are returned as errors.
//
// The query is embedded in query mode, never document mode: asymmetric
// backends encode the two differently and swapping them degrades relevance
// silently.
func (r *Retriever) Search(ctx context.Context, projectID, query string, limit int) ([]RetrievedDocument, error) {
	vector, err := r.embedder.Embed(ctx, query, llm.ModeQuery)
	if err != nil {
		return nil, fmt.Errorf("embedding query for project %q: %w", projectID, err)
	}
	if len(vector) == 0 {
		// Searching with a degenerate vector would return noise, not matches.
		r.logger.Warn("query embedded to an empty vector", "project", projectID)
		return nil, nil
	}

	name := CollectionName(projectID)
	hits, err := r.store.Search(ctx, name, vector, limit)
	if err != nil {
		if errors.Is(err, vectorstore.ErrCollectionNotFound) {
			r.logger.Debug("no collection for project", "project", projectID, "collection", name)
			return nil, nil
		}
		return nil, fmt.Errorf("searching project %q: %w", projectID, err)
	}

	docs := make([]RetrievedDocument, len(hits))
	for i, hit := range hits {
		docs[i] = RetrievedDocument{Text: hit.Text, Score: hit.Score}
	}

	r.logger.Debug("retrieval complete", "project", projectID, "hits", len(docs), "limit", limit)
	return docs, nil
}
