// Package rag implements the Retrieval-Augmented Generation pipeline for
// ragline: indexing project chunks into a vector collection, retrieving
// relevant chunks for a question, assembling the generation prompt, and
// producing the answer.
//
// # Architecture
//
//	DataChunks ──> Indexer ──> llm.EmbeddingProvider (document mode)
//	                   |
//	                   v
//	            vectorstore.Store (one collection per project)
//	                   ^
//	                   |
//	Question ──> Retriever ──> llm.EmbeddingProvider (query mode)
//	                   |
//	                   v
//	              Assembler ──> prompt.Provider (rag fragments)
//	                   |
//	                   v
//	               System ──> llm.TextGenerator ──> answer
//
// # Key properties
//
//   - Collection names are a pure function of the project identifier, so a
//     project always maps to the same collection.
//   - Documents and queries are embedded with distinct modes; asymmetric
//     embedding backends depend on this distinction for relevance.
//   - Indexing embeds a whole batch before any write and never commits a
//     batch with a failed embedding.
//   - Upsert is keyed by chunk id, making re-indexing idempotent.
//   - Empty retrieval is a normal terminal state: System.Answer reports it
//     with a reason code instead of calling the generation backend.
//
// # Thread safety
//
// All components are safe for concurrent use. Collection create/reset and
// upsert for the same project are serialized internally; operations on
// different projects never block each other.
package rag
