package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceWindow coalesces the burst of write events editors emit while
// saving a file.
const debounceWindow = 500 * time.Millisecond

// Watcher monitors a directory and re-ingests supported files as they are
// created or modified.
type Watcher struct {
	ingestor *Ingestor
	logger   *slog.Logger
}

// NewWatcher creates a Watcher driving the given ingestor.
func NewWatcher(ingestor *Ingestor, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{ingestor: ingestor, logger: logger}
}

// Watch ingests the directory's existing files, then blocks re-ingesting
// files on create and write events until ctx is cancelled. Ingest failures
// for individual files are logged, not fatal: one bad file must not stop the
// watch.
func (w *Watcher) Watch(ctx context.Context, projectID, dir string) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer func() {
		_ = fsw.Close()
	}()

	if err := fsw.Add(dir); err != nil {
		return fmt.Errorf("watching %q: %w", dir, err)
	}

	// Seed the index with what is already there.
	err = walkSupported(dir, func(path string) error {
		if _, err := w.ingestor.IngestFile(ctx, projectID, path, false); err != nil {
			w.logger.Error("initial ingest failed", "file", path, "error", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scanning %q: %w", dir, err)
	}

	w.logger.Info("watching directory", "project", projectID, "dir", dir)

	pending := make(map[string]struct{})
	var flush <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
				continue
			}
			if !Supported(event.Name) {
				continue
			}
			pending[event.Name] = struct{}{}
			flush = time.After(debounceWindow)

		case <-flush:
			for path := range pending {
				if _, err := w.ingestor.IngestFile(ctx, projectID, path, false); err != nil {
					w.logger.Error("ingest failed", "file", path, "error", err)
				}
			}
			pending = make(map[string]struct{})
			flush = nil

		case watchErr, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", watchErr)
		}
	}
}
