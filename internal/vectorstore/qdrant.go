package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Qdrant is a Store backed by a Qdrant server via its REST API. Collections
// are created with cosine distance; record ids must be UUIDs, which is what
// the chunk storage layer assigns.
type Qdrant struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
}

// QdrantConfig configures the Qdrant client.
type QdrantConfig struct {
	URL     string        // e.g. "http://localhost:6333"
	APIKey  string        // optional
	Timeout time.Duration // per-request HTTP timeout, defaults to 15s
}

// NewQdrant creates a Qdrant-backed store.
func NewQdrant(cfg QdrantConfig, logger *slog.Logger) (*Qdrant, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("qdrant: URL is required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Qdrant{
		baseURL: cfg.URL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}, nil
}

// CreateCollection creates the collection, recreating it when reset is
// requested. An existing collection with a different dimension yields
// ErrDimensionMismatch.
func (q *Qdrant) CreateCollection(ctx context.Context, name string, dimension int, reset bool) error {
	if dimension <= 0 {
		return fmt.Errorf("dimension must be positive, got %d", dimension)
	}

	if reset {
		if err := q.DeleteCollection(ctx, name); err != nil {
			return err
		}
	} else {
		info, err := q.CollectionInfo(ctx, name)
		if err == nil {
			if info.Dimension != dimension {
				return fmt.Errorf("collection %q has dimension %d, requested %d: %w",
					name, info.Dimension, dimension, ErrDimensionMismatch)
			}
			return nil
		}
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	if err := q.do(ctx, http.MethodPut, "/collections/"+name, body, nil); err != nil {
		return fmt.Errorf("creating collection %q: %w", name, err)
	}

	q.logger.Debug("collection ready", "collection", name, "dimension", dimension)
	return nil
}

// DeleteCollection removes the collection. Missing collections are ignored.
func (q *Qdrant) DeleteCollection(ctx context.Context, name string) error {
	err := q.do(ctx, http.MethodDelete, "/collections/"+name, nil, nil)
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("deleting collection %q: %w", name, err)
	}
	return nil
}

// CollectionExists reports whether the collection exists.
func (q *Qdrant) CollectionExists(ctx context.Context, name string) (bool, error) {
	_, err := q.CollectionInfo(ctx, name)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrCollectionNotFound) {
		return false, nil
	}
	return false, err
}

type qdrantInfoResponse struct {
	Result struct {
		PointsCount int64 `json:"points_count"`
		Config      struct {
			Params struct {
				Vectors struct {
					Size int `json:"size"`
				} `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	} `json:"result"`
}

// CollectionInfo returns dimension and point count.
func (q *Qdrant) CollectionInfo(ctx context.Context, name string) (*CollectionInfo, error) {
	var resp qdrantInfoResponse
	if err := q.do(ctx, http.MethodGet, "/collections/"+name, nil, &resp); err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("collection %q: %w", name, ErrCollectionNotFound)
		}
		return nil, fmt.Errorf("describing collection %q: %w", name, err)
	}
	return &CollectionInfo{
		Name:      name,
		Dimension: resp.Result.Config.Params.Vectors.Size,
		Records:   resp.Result.PointsCount,
	}, nil
}

// Upsert writes all records in one request, waiting for the write to be
// applied so a following search sees them.
func (q *Qdrant) Upsert(ctx context.Context, name string, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]map[string]any, len(records))
	for i, rec := range records {
		payload := map[string]any{"text": rec.Text}
		for k, v := range rec.Metadata {
			payload[k] = v
		}
		points[i] = map[string]any{
			"id":      rec.ID,
			"vector":  rec.Vector,
			"payload": payload,
		}
	}

	err := q.do(ctx, http.MethodPut, "/collections/"+name+"/points?wait=true",
		map[string]any{"points": points}, nil)
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("collection %q: %w", name, ErrCollectionNotFound)
		}
		return fmt.Errorf("upserting %d records into %q: %w", len(records), name, err)
	}

	q.logger.Debug("records upserted", "collection", name, "count", len(records))
	return nil
}

type qdrantSearchResponse struct {
	Result []struct {
		ID      any            `json:"id"`
		Score   float32        `json:"score"`
		Payload map[string]any `json:"payload"`
	} `json:"result"`
}

// Search returns up to limit records by descending cosine similarity.
func (q *Qdrant) Search(ctx context.Context, name string, vector []float32, limit int) ([]ScoredRecord, error) {
	if limit <= 0 {
		// Qdrant rejects non-positive limits, so the collection check has to
		// happen client-side to keep the missing-collection contract.
		if _, err := q.CollectionInfo(ctx, name); err != nil {
			return nil, err
		}
		return nil, nil
	}

	body := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}

	var resp qdrantSearchResponse
	if err := q.do(ctx, http.MethodPost, "/collections/"+name+"/points/search", body, &resp); err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("collection %q: %w", name, ErrCollectionNotFound)
		}
		return nil, fmt.Errorf("searching collection %q: %w", name, err)
	}

	results := make([]ScoredRecord, 0, len(resp.Result))
	for _, hit := range resp.Result {
		rec := ScoredRecord{
			ID:       fmt.Sprintf("%v", hit.ID),
			Score:    hit.Score,
			Metadata: map[string]string{},
		}
		for k, v := range hit.Payload {
			s, ok := v.(string)
			if !ok {
				continue
			}
			if k == "text" {
				rec.Text = s
			} else {
				rec.Metadata[k] = s
			}
		}
		results = append(results, rec)
	}
	return results, nil
}

// statusError carries the HTTP status of a failed Qdrant call.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("qdrant returned status %d: %s", e.status, e.body)
}

func isNotFound(err error) bool {
	var se *statusError
	return errors.As(err, &se) && se.status == http.StatusNotFound
}

func (q *Qdrant) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, q.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}

	resp, err := q.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &statusError{status: resp.StatusCode, body: string(bytes.TrimSpace(msg))}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}
