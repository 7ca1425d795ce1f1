// Package storage persists projects, assets and data chunks in PostgreSQL.
//
// The pipeline itself only needs ordered chunk lists with stable ids; this
// package supplies them, with paginated reads and batched bulk writes so
// large ingests stay bounded.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// chunkInsertBatchSize bounds how many chunk inserts share one batched
// round-trip during bulk writes.
const chunkInsertBatchSize = 100

// DefaultPageSize is the page size used when a paginated read passes 0.
const DefaultPageSize = 50

var (
	// ErrInvalidProjectID indicates a project identifier that is not
	// alphanumeric.
	ErrInvalidProjectID = errors.New("project id must be alphanumeric")

	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("not found")
)

var alphanumeric = regexp.MustCompile(`^[a-zA-Z0-9]+$`)

// ValidateProjectID checks the project identifier format shared by storage
// and collection naming.
func ValidateProjectID(projectID string) error {
	if !alphanumeric.MatchString(projectID) {
		return fmt.Errorf("%w: %q", ErrInvalidProjectID, projectID)
	}
	return nil
}

// Project is a named container for assets and chunks.
type Project struct {
	ID        uuid.UUID
	ProjectID string // external alphanumeric identifier
	CreatedAt time.Time
}

// Asset is one ingested source (a file, for now) belonging to a project.
// Name is unique within the project.
type Asset struct {
	ID        uuid.UUID
	ProjectID uuid.UUID
	Type      string
	Name      string
	Size      int64
	Config    map[string]any
	PushedAt  time.Time
}

// DataChunk is one immutable slice of an asset's text. Order is 1-based and
// gapless within the asset; ID keys the chunk's vector record.
type DataChunk struct {
	ID        uuid.UUID
	ProjectID uuid.UUID
	AssetID   uuid.UUID
	Text      string
	Metadata  map[string]string
	Order     int
}

// Store persists projects, assets and chunks. It is safe for concurrent use;
// the pool handles connection sharing.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New creates a Store.
func New(pool *pgxpool.Pool, logger *slog.Logger) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("storage: pool is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}, nil
}

// GetOrCreateProject returns the project with the given external identifier,
// creating it on first use.
func (s *Store) GetOrCreateProject(ctx context.Context, projectID string) (*Project, error) {
	if err := ValidateProjectID(projectID); err != nil {
		return nil, err
	}

	// The no-op update makes RETURNING yield the row on conflict as well.
	var p Project
	err := s.pool.QueryRow(ctx,
		`INSERT INTO projects (project_id) VALUES ($1)
		 ON CONFLICT (project_id) DO UPDATE SET project_id = EXCLUDED.project_id
		 RETURNING id, project_id, created_at`, projectID).
		Scan(&p.ID, &p.ProjectID, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("getting or creating project %q: %w", projectID, err)
	}
	return &p, nil
}

// GetProject returns the project with the given external identifier, or
// ErrNotFound.
func (s *Store) GetProject(ctx context.Context, projectID string) (*Project, error) {
	var p Project
	err := s.pool.QueryRow(ctx,
		`SELECT id, project_id, created_at FROM projects WHERE project_id = $1`, projectID).
		Scan(&p.ID, &p.ProjectID, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("project %q: %w", projectID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting project %q: %w", projectID, err)
	}
	return &p, nil
}

// ListProjects returns one page of projects, oldest first. page is 1-based.
func (s *Store) ListProjects(ctx context.Context, page, pageSize int) ([]Project, error) {
	page, pageSize = normalizePage(page, pageSize)

	rows, err := s.pool.Query(ctx,
		`SELECT id, project_id, created_at FROM projects
		 ORDER BY created_at, project_id
		 LIMIT $1 OFFSET $2`, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.ProjectID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading projects: %w", err)
	}
	return projects, nil
}

// CreateAsset records a new asset. The (project, name) pair must be unique.
func (s *Store) CreateAsset(ctx context.Context, asset Asset) (*Asset, error) {
	if asset.ID == uuid.Nil {
		asset.ID = uuid.New()
	}
	if asset.PushedAt.IsZero() {
		asset.PushedAt = time.Now().UTC()
	}

	configJSON, err := json.Marshal(asset.Config)
	if err != nil {
		return nil, fmt.Errorf("marshaling asset config: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO assets (id, project_id, asset_type, asset_name, asset_size, asset_config, pushed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		asset.ID, asset.ProjectID, asset.Type, asset.Name, asset.Size, configJSON, asset.PushedAt)
	if err != nil {
		return nil, fmt.Errorf("creating asset %q: %w", asset.Name, err)
	}
	return &asset, nil
}

// GetAssetByName returns a project's asset by name, or ErrNotFound.
func (s *Store) GetAssetByName(ctx context.Context, projectID uuid.UUID, name string) (*Asset, error) {
	var (
		a          Asset
		configJSON []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, project_id, asset_type, asset_name, asset_size, asset_config, pushed_at
		 FROM assets WHERE project_id = $1 AND asset_name = $2`, projectID, name).
		Scan(&a.ID, &a.ProjectID, &a.Type, &a.Name, &a.Size, &configJSON, &a.PushedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("asset %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting asset %q: %w", name, err)
	}
	if err := json.Unmarshal(configJSON, &a.Config); err != nil {
		s.logger.Warn("unparseable asset config", "asset", a.ID, "error", err)
		a.Config = map[string]any{}
	}
	return &a, nil
}

// ListAssets returns one page of a project's assets, newest first.
func (s *Store) ListAssets(ctx context.Context, projectID uuid.UUID, page, pageSize int) ([]Asset, error) {
	page, pageSize = normalizePage(page, pageSize)

	rows, err := s.pool.Query(ctx,
		`SELECT id, project_id, asset_type, asset_name, asset_size, asset_config, pushed_at
		 FROM assets WHERE project_id = $1
		 ORDER BY pushed_at DESC, asset_name
		 LIMIT $2 OFFSET $3`, projectID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("listing assets: %w", err)
	}
	defer rows.Close()

	var assets []Asset
	for rows.Next() {
		var (
			a          Asset
			configJSON []byte
		)
		if err := rows.Scan(&a.ID, &a.ProjectID, &a.Type, &a.Name, &a.Size, &configJSON, &a.PushedAt); err != nil {
			return nil, fmt.Errorf("scanning asset: %w", err)
		}
		if err := json.Unmarshal(configJSON, &a.Config); err != nil {
			s.logger.Warn("unparseable asset config", "asset", a.ID, "error", err)
			a.Config = map[string]any{}
		}
		assets = append(assets, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading assets: %w", err)
	}
	return assets, nil
}

// CreateChunks bulk-inserts chunks in batches of chunkInsertBatchSize per
// round-trip and returns the number written. Chunk ids are assigned when
// missing. Chunks are immutable once written.
func (s *Store) CreateChunks(ctx context.Context, chunks []DataChunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	const insertSQL = `INSERT INTO chunks (id, project_id, asset_id, chunk_text, chunk_metadata, chunk_order)
		VALUES ($1, $2, $3, $4, $5, $6)`

	written := 0
	for start := 0; start < len(chunks); start += chunkInsertBatchSize {
		end := min(start+chunkInsertBatchSize, len(chunks))

		batch := &pgx.Batch{}
		for i := start; i < end; i++ {
			chunk := chunks[i]
			if chunk.ID == uuid.Nil {
				chunk.ID = uuid.New()
				chunks[i].ID = chunk.ID
			}
			metadataJSON, err := json.Marshal(chunk.Metadata)
			if err != nil {
				return written, fmt.Errorf("marshaling metadata for chunk %d: %w", chunk.Order, err)
			}
			batch.Queue(insertSQL,
				chunk.ID, chunk.ProjectID, chunk.AssetID, chunk.Text, metadataJSON, chunk.Order)
		}

		if err := s.sendBatch(ctx, batch); err != nil {
			return written, fmt.Errorf("inserting chunk batch at offset %d: %w", start, err)
		}
		written += end - start
	}

	s.logger.Debug("chunks written", "count", written)
	return written, nil
}

// ProjectChunks returns one page of a project's chunks in stable asset,
// then chunk order. page is 1-based.
func (s *Store) ProjectChunks(ctx context.Context, projectID uuid.UUID, page, pageSize int) ([]DataChunk, error) {
	page, pageSize = normalizePage(page, pageSize)

	rows, err := s.pool.Query(ctx,
		`SELECT id, project_id, asset_id, chunk_text, chunk_metadata, chunk_order
		 FROM chunks WHERE project_id = $1
		 ORDER BY asset_id, chunk_order
		 LIMIT $2 OFFSET $3`, projectID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("listing chunks: %w", err)
	}
	defer rows.Close()

	return s.scanChunks(rows)
}

// AssetChunks returns all chunks of one asset in chunk order.
func (s *Store) AssetChunks(ctx context.Context, assetID uuid.UUID) ([]DataChunk, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, project_id, asset_id, chunk_text, chunk_metadata, chunk_order
		 FROM chunks WHERE asset_id = $1
		 ORDER BY chunk_order`, assetID)
	if err != nil {
		return nil, fmt.Errorf("listing asset chunks: %w", err)
	}
	defer rows.Close()

	return s.scanChunks(rows)
}

// DeleteProjectChunks removes all of a project's chunks and returns how many
// were deleted.
func (s *Store) DeleteProjectChunks(ctx context.Context, projectID uuid.UUID) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM chunks WHERE project_id = $1`, projectID)
	if err != nil {
		return 0, fmt.Errorf("deleting project chunks: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteAssetChunks removes all chunks of one asset and returns how many
// were deleted. Used before re-ingesting a changed asset so chunk order
// restarts at 1.
func (s *Store) DeleteAssetChunks(ctx context.Context, assetID uuid.UUID) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM chunks WHERE asset_id = $1`, assetID)
	if err != nil {
		return 0, fmt.Errorf("deleting asset chunks: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CountProjectChunks returns the total number of chunks in a project.
func (s *Store) CountProjectChunks(ctx context.Context, projectID uuid.UUID) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM chunks WHERE project_id = $1`, projectID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting project chunks: %w", err)
	}
	return count, nil
}

func (s *Store) scanChunks(rows pgx.Rows) ([]DataChunk, error) {
	var chunks []DataChunk
	for rows.Next() {
		var (
			c            DataChunk
			metadataJSON []byte
		)
		if err := rows.Scan(&c.ID, &c.ProjectID, &c.AssetID, &c.Text, &metadataJSON, &c.Order); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		if err := json.Unmarshal(metadataJSON, &c.Metadata); err != nil {
			s.logger.Warn("unparseable chunk metadata", "chunk", c.ID, "error", err)
			c.Metadata = map[string]string{}
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading chunks: %w", err)
	}
	return chunks, nil
}

func (s *Store) sendBatch(ctx context.Context, batch *pgx.Batch) error {
	results := s.pool.SendBatch(ctx, batch)
	defer func() {
		_ = results.Close()
	}()

	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return page, pageSize
}
