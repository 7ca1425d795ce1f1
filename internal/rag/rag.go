package rag

import (
	"errors"
	"strings"
)

// ErrEmptyEmbedding indicates the embedding backend returned an empty vector
// without reporting an error. At index time this aborts the whole batch; at
// query time the retriever treats it as "no result".
var ErrEmptyEmbedding = errors.New("embedding backend returned an empty vector")

// collectionPrefix namespaces per-project collections inside the shared
// vector store.
const collectionPrefix = "collection_"

// CollectionName derives a project's vector collection name. It is a pure
// function: the same project identifier always yields the same name.
func CollectionName(projectID string) string {
	return collectionPrefix + strings.TrimSpace(projectID)
}

// Chunk is the unit of indexing: one bounded slice of a source document with
// its persistent identifier, which doubles as the vector record key.
type Chunk struct {
	ID       string
	Text     string
	Metadata map[string]string
}

// RetrievedDocument is an ephemeral retrieval hit: chunk text plus relevance
// score, descending-better. It is never persisted.
type RetrievedDocument struct {
	Text  string
	Score float32
}
