// Package testutil provides shared testing utilities for the ragline
// project: a deterministic embedder, mock generation backends and a
// PostgreSQL test container with pgvector.
package testutil

import (
	"log/slog"
)

// DiscardLogger returns a slog.Logger that discards all output.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
