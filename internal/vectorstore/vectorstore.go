// Package vectorstore defines the vector collection contract used by the
// indexing and retrieval pipeline, with PostgreSQL/pgvector, Qdrant and
// in-memory implementations.
//
// A collection holds one record per indexed chunk, keyed by the chunk's
// persistent identifier. Upsert is idempotent per id and a collection's
// dimensionality is fixed at creation; changing embedding backends requires
// destroying and recreating the collection.
package vectorstore

import (
	"context"
	"errors"
)

var (
	// ErrCollectionNotFound is returned when an operation targets a
	// collection that does not exist. Search treats it as a normal
	// no-result condition, never as a reason to auto-create.
	ErrCollectionNotFound = errors.New("vector collection not found")

	// ErrDimensionMismatch is returned when a collection already exists
	// with a different dimensionality than requested.
	ErrDimensionMismatch = errors.New("vector collection dimension mismatch")
)

// Record is one stored vector with its source text and metadata.
type Record struct {
	ID       string
	Vector   []float32
	Text     string
	Metadata map[string]string
}

// ScoredRecord is a search hit. Score is a similarity in descending-better
// order (cosine similarity for all bundled backends).
type ScoredRecord struct {
	ID       string
	Text     string
	Metadata map[string]string
	Score    float32
}

// CollectionInfo describes an existing collection.
type CollectionInfo struct {
	Name      string
	Dimension int
	Records   int64
}

// Store is the vector database capability consumed by the pipeline.
type Store interface {
	// CreateCollection creates the named collection with the given
	// dimensionality. If reset is true any existing collection is destroyed
	// first; otherwise creation is idempotent, but an existing collection
	// with a different dimension yields ErrDimensionMismatch.
	CreateCollection(ctx context.Context, name string, dimension int, reset bool) error

	// DeleteCollection removes the named collection. Deleting a missing
	// collection is not an error.
	DeleteCollection(ctx context.Context, name string) error

	// CollectionExists reports whether the named collection exists.
	CollectionExists(ctx context.Context, name string) (bool, error)

	// CollectionInfo returns dimension and record count for the named
	// collection, or ErrCollectionNotFound.
	CollectionInfo(ctx context.Context, name string) (*CollectionInfo, error)

	// Upsert writes records by id, overwriting vector, text and metadata of
	// records that already exist.
	Upsert(ctx context.Context, name string, records []Record) error

	// Search returns up to limit records ordered by descending score, or
	// ErrCollectionNotFound if the collection does not exist.
	Search(ctx context.Context, name string, vector []float32, limit int) ([]ScoredRecord, error)
}
