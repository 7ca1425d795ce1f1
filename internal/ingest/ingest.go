// Package ingest loads source files into a project: it splits their text
// into chunks, persists the chunks and pushes them into the project's vector
// collection.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/koopa0/ragline/internal/rag"
	"github.com/koopa0/ragline/internal/splitter"
	"github.com/koopa0/ragline/internal/storage"
)

// ErrUnsupportedFile indicates the file extension is not ingestible.
var ErrUnsupportedFile = errors.New("unsupported file type")

// supportedExtensions lists the plain-text formats the ingestor accepts.
var supportedExtensions = map[string]string{
	".txt": "text",
	".md":  "markdown",
}

// Result describes one completed file ingest.
type Result struct {
	Asset  *storage.Asset // nil when running without a metadata store
	Chunks int
}

// Ingestor turns files into indexed chunks.
//
// The metadata store is optional: with a store, assets and chunks are
// persisted and re-ingesting a file replaces its previous chunks; without
// one, chunks get fresh ids and go straight to the vector collection.
type Ingestor struct {
	store    *storage.Store
	splitter *splitter.Splitter
	system   *rag.System
	logger   *slog.Logger
}

// New creates an Ingestor. store may be nil.
func New(store *storage.Store, sp *splitter.Splitter, system *rag.System, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{store: store, splitter: sp, system: system, logger: logger}
}

// IngestFile ingests one file into the project. When doReset is true the
// project's vector collection is rebuilt from this file alone.
func (in *Ingestor) IngestFile(ctx context.Context, projectID, path string, doReset bool) (*Result, error) {
	assetType, ok := supportedExtensions[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFile, path)
	}

	// #nosec G304 -- path comes from the operator, not remote input
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", path, err)
	}

	name := filepath.Base(path)
	doc := splitter.Document{
		Text:     string(content),
		Metadata: map[string]string{"source": name},
	}
	pieces := in.splitter.Split(doc)
	if len(pieces) == 0 {
		return nil, fmt.Errorf("no text to ingest in %q", path)
	}

	var (
		asset  *storage.Asset
		chunks []storage.DataChunk
	)
	if in.store != nil {
		asset, chunks, err = in.persist(ctx, projectID, name, assetType, int64(len(content)), pieces)
		if err != nil {
			return nil, err
		}
	} else {
		chunks = make([]storage.DataChunk, len(pieces))
		for i, piece := range pieces {
			chunks[i] = storage.DataChunk{
				ID:       uuid.New(),
				Text:     piece.Text,
				Metadata: piece.Metadata,
				Order:    i + 1,
			}
		}
	}

	ragChunks := make([]rag.Chunk, len(chunks))
	for i, chunk := range chunks {
		ragChunks[i] = rag.Chunk{
			ID:       chunk.ID.String(),
			Text:     chunk.Text,
			Metadata: chunk.Metadata,
		}
	}

	if err := in.system.Index(ctx, projectID, ragChunks, doReset); err != nil {
		return nil, fmt.Errorf("indexing %q: %w", name, err)
	}

	in.logger.Info("file ingested",
		"project", projectID, "file", name, "chunks", len(chunks), "reset", doReset)
	return &Result{Asset: asset, Chunks: len(chunks)}, nil
}

// IngestDir ingests every supported file directly under dir, in lexical
// order. The reset flag applies to the first file only, so a reset rebuild
// does not wipe the files ingested before it.
func (in *Ingestor) IngestDir(ctx context.Context, projectID, dir string, doReset bool) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("reading directory %q: %w", dir, err)
	}

	ingested := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, ok := supportedExtensions[strings.ToLower(filepath.Ext(entry.Name()))]; !ok {
			continue
		}

		reset := doReset && ingested == 0
		if _, err := in.IngestFile(ctx, projectID, filepath.Join(dir, entry.Name()), reset); err != nil {
			return ingested, err
		}
		ingested++
	}
	return ingested, nil
}

// persist records the asset and its chunks, replacing any chunks from a
// previous ingest of the same file name.
func (in *Ingestor) persist(ctx context.Context, projectID, name, assetType string, size int64,
	pieces []splitter.Chunk) (*storage.Asset, []storage.DataChunk, error) {

	project, err := in.store.GetOrCreateProject(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}

	asset, err := in.store.GetAssetByName(ctx, project.ID, name)
	switch {
	case err == nil:
		// Re-ingest: drop the previous chunks so ordering restarts at 1.
		if _, err := in.store.DeleteAssetChunks(ctx, asset.ID); err != nil {
			return nil, nil, err
		}
	case errors.Is(err, storage.ErrNotFound):
		asset, err = in.store.CreateAsset(ctx, storage.Asset{
			ProjectID: project.ID,
			Type:      assetType,
			Name:      name,
			Size:      size,
		})
		if err != nil {
			return nil, nil, err
		}
	default:
		return nil, nil, err
	}

	chunks := make([]storage.DataChunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = storage.DataChunk{
			ID:        uuid.New(),
			ProjectID: project.ID,
			AssetID:   asset.ID,
			Text:      piece.Text,
			Metadata:  piece.Metadata,
			Order:     i + 1,
		}
	}
	if _, err := in.store.CreateChunks(ctx, chunks); err != nil {
		return nil, nil, err
	}
	return asset, chunks, nil
}

// Supported reports whether the ingestor accepts the file, by extension.
func Supported(path string) bool {
	_, ok := supportedExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// walkSupported is used by Watcher to seed an initial ingest of nested
// directories.
func walkSupported(dir string, fn func(path string) error) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !Supported(path) {
			return nil
		}
		return fn(path)
	})
}
