package rag

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/koopa0/ragline/internal/llm"
	"github.com/koopa0/ragline/internal/prompt"
	"github.com/koopa0/ragline/internal/vectorstore"
)

// NoAnswerReason classifies a no-answer result so callers can tell a
// genuinely empty retrieval apart from other terminal states without
// inspecting logs.
type NoAnswerReason string

// ReasonEmptyRetrieval means retrieval produced no documents: empty query
// embedding, missing collection, or no similarity matches. This is the only
// non-error way an answer request ends without an answer.
const ReasonEmptyRetrieval NoAnswerReason = "empty_retrieval"

// Result is the outcome of one answer request. FullPrompt and History echo
// exactly what was sent to the generation backend so callers can audit and
// debug the request.
type Result struct {
	Answer     string
	FullPrompt string
	History    []llm.Message

	// NoAnswer is empty when the request produced an answer.
	NoAnswer NoAnswerReason
}

// Answered reports whether the request produced an answer.
func (r *Result) Answered() bool {
	return r.NoAnswer == ""
}

// System composes the full pipeline: Indexer for the write path and
// Retriever, Assembler and the generation backend for the answer path.
//
// System is safe for concurrent use; answer requests for different projects
// share nothing but the collaborator clients.
type System struct {
	indexer   *Indexer
	retriever *Retriever
	assembler *Assembler
	generator llm.TextGenerator
	logger    *slog.Logger
}

// NewSystem wires the pipeline from its collaborators.
func NewSystem(store vectorstore.Store, embedder llm.EmbeddingProvider, generator llm.TextGenerator,
	templates *prompt.Provider, embedConcurrency int, logger *slog.Logger) *System {
	if logger == nil {
		logger = slog.Default()
	}
	return &System{
		indexer:   NewIndexer(store, embedder, embedConcurrency, logger),
		retriever: NewRetriever(store, embedder, logger),
		assembler: NewAssembler(templates),
		generator: generator,
		logger:    logger,
	}
}

// Index indexes chunks into the project's collection. See Indexer.Index.
func (s *System) Index(ctx context.Context, projectID string, chunks []Chunk, doReset bool) error {
	return s.indexer.Index(ctx, projectID, chunks, doReset)
}

// Search retrieves documents for a question. See Retriever.Search.
func (s *System) Search(ctx context.Context, projectID, query string, limit int) ([]RetrievedDocument, error) {
	return s.retriever.Search(ctx, projectID, query, limit)
}

// ResetCollection destroys the project's collection. See Indexer.ResetCollection.
func (s *System) ResetCollection(ctx context.Context, projectID string) error {
	return s.indexer.ResetCollection(ctx, projectID)
}

// CollectionInfo describes the project's collection. See Indexer.CollectionInfo.
func (s *System) CollectionInfo(ctx context.Context, projectID string) (*vectorstore.CollectionInfo, error) {
	return s.indexer.CollectionInfo(ctx, projectID)
}

// Answer runs the full answer pipeline for one question:
//
//	RETRIEVE -> (empty: done, no answer) -> ASSEMBLE -> GENERATE -> done
//
// Empty retrieval short-circuits before prompt assembly: the generation
// backend is never called and the Result carries ReasonEmptyRetrieval.
// Otherwise the assembled prompt and history are sent to the generation
// backend and returned alongside its answer. Generation failures propagate
// unmodified; no step is retried.
func (s *System) Answer(ctx context.Context, projectID, query string, limit int) (*Result, error) {
	docs, err := s.retriever.Search(ctx, projectID, query, limit)
	if err != nil {
		return nil, fmt.Errorf("retrieving documents for project %q: %w", projectID, err)
	}
	if len(docs) == 0 {
		s.logger.Info("no documents retrieved", "project", projectID, "limit", limit)
		return &Result{NoAnswer: ReasonEmptyRetrieval}, nil
	}

	fullPrompt, history, err := s.assembler.Assemble(docs, query)
	if err != nil {
		return nil, fmt.Errorf("assembling prompt for project %q: %w", projectID, err)
	}

	answer, err := s.generator.Generate(ctx, fullPrompt, history)
	if err != nil {
		return nil, fmt.Errorf("generating answer for project %q: %w", projectID, err)
	}

	s.logger.Info("answer generated",
		"project", projectID, "documents", len(docs), "prompt_length", len(fullPrompt))

	return &Result{
		Answer:     answer,
		FullPrompt: fullPrompt,
		History:    history,
	}, nil
}
