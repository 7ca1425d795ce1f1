package rag

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/koopa0/ragline/internal/llm"
	"github.com/koopa0/ragline/internal/vectorstore"
)

// DefaultEmbedConcurrency bounds how many embedding calls one indexing batch
// has in flight. Embedding is an independent network round-trip per chunk, so
// a small pool recovers most of the latency without hammering the backend.
const DefaultEmbedConcurrency = 4

// Indexer writes project chunks into the project's vector collection.
//
// Indexer is safe for concurrent use. Calls touching the same project are
// serialized by a per-project lock so a reset can never interleave with a
// concurrent upsert and drop or orphan vectors; different projects proceed
// independently.
type Indexer struct {
	store       vectorstore.Store
	embedder    llm.EmbeddingProvider
	concurrency int
	logger      *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewIndexer creates an Indexer. concurrency bounds per-batch embedding
// parallelism; values < 1 use DefaultEmbedConcurrency.
func NewIndexer(store vectorstore.Store, embedder llm.EmbeddingProvider, concurrency int, logger *slog.Logger) *Indexer {
	if concurrency < 1 {
		concurrency = DefaultEmbedConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{
		store:       store,
		embedder:    embedder,
		concurrency: concurrency,
		logger:      logger,
		locks:       make(map[string]*sync.Mutex),
	}
}

// Index embeds chunks in document mode and upserts them into the project's
// collection, keyed by chunk id so re-indexing overwrites in place.
//
// All embeddings complete before anything is written; if any chunk fails to
// embed the whole batch is aborted and the collection is left untouched;
// in particular, a requested reset does not happen on a failed batch. When
// doReset is true the collection is destroyed and recreated before the
// write; otherwise it is created if absent with the embedding backend's
// dimensionality, and an existing collection with a different dimensionality
// fails here, at index time, with vectorstore.ErrDimensionMismatch.
func (ix *Indexer) Index(ctx context.Context, projectID string, chunks []Chunk, doReset bool) error {
	if len(chunks) == 0 {
		return fmt.Errorf("no chunks to index for project %q", projectID)
	}

	vectors, err := ix.embedAll(ctx, chunks)
	if err != nil {
		return err
	}

	unlock := ix.lockProject(projectID)
	defer unlock()

	name := CollectionName(projectID)
	if err := ix.store.CreateCollection(ctx, name, ix.embedder.Dimension(), doReset); err != nil {
		return fmt.Errorf("preparing collection for project %q: %w", projectID, err)
	}

	records := make([]vectorstore.Record, len(chunks))
	for i, chunk := range chunks {
		records[i] = vectorstore.Record{
			ID:       chunk.ID,
			Vector:   vectors[i],
			Text:     chunk.Text,
			Metadata: chunk.Metadata,
		}
	}

	if err := ix.store.Upsert(ctx, name, records); err != nil {
		return fmt.Errorf("indexing %d chunks for project %q: %w", len(chunks), projectID, err)
	}

	ix.logger.Info("chunks indexed",
		"project", projectID, "collection", name, "chunks", len(chunks), "reset", doReset)
	return nil
}

// ResetCollection destroys the project's vector collection. The next Index
// call recreates it from scratch.
func (ix *Indexer) ResetCollection(ctx context.Context, projectID string) error {
	unlock := ix.lockProject(projectID)
	defer unlock()

	name := CollectionName(projectID)
	if err := ix.store.DeleteCollection(ctx, name); err != nil {
		return fmt.Errorf("resetting collection for project %q: %w", projectID, err)
	}

	ix.logger.Info("collection reset", "project", projectID, "collection", name)
	return nil
}

// CollectionInfo reports the project collection's dimension and record
// count, or vectorstore.ErrCollectionNotFound.
func (ix *Indexer) CollectionInfo(ctx context.Context, projectID string) (*vectorstore.CollectionInfo, error) {
	return ix.store.CollectionInfo(ctx, CollectionName(projectID))
}

// embedAll embeds every chunk in document mode with bounded concurrency.
// Results are collected by chunk index, not completion order, preserving the
// chunk-to-vector correspondence. The first failure cancels the remaining
// work and fails the batch.
func (ix *Indexer) embedAll(ctx context.Context, chunks []Chunk) ([][]float32, error) {
	vectors := make([][]float32, len(chunks))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.concurrency)

	for i, chunk := range chunks {
		g.Go(func() error {
			vector, err := ix.embedder.Embed(ctx, chunk.Text, llm.ModeDocument)
			if err != nil {
				return fmt.Errorf("embedding chunk %q: %w", chunk.ID, err)
			}
			if len(vector) == 0 {
				return fmt.Errorf("chunk %q: %w", chunk.ID, ErrEmptyEmbedding)
			}
			vectors[i] = vector
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// lockProject acquires the project's lock, creating it on first use.
func (ix *Indexer) lockProject(projectID string) (unlock func()) {
	ix.mu.Lock()
	lock, ok := ix.locks[projectID]
	if !ok {
		lock = &sync.Mutex{}
		ix.locks[projectID] = lock
	}
	ix.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
