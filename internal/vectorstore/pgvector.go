package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// pgUndefinedTable is the PostgreSQL error code for a missing relation.
const pgUndefinedTable = "42P01"

// Collection names become table names and cannot be bound as query
// parameters, so they are validated strictly before interpolation.
var validCollectionName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]{0,62}$`)

// Postgres is a Store backed by PostgreSQL with the pgvector extension.
// Each collection is one table with an id key, source text, JSONB metadata
// and a fixed-dimension vector column.
//
// Postgres is safe for concurrent use; the pool handles connection sharing.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgres creates a pgvector-backed store. The pool must point at a
// database where the vector extension is installed (the bundled migrations
// take care of that).
func NewPostgres(pool *pgxpool.Pool, logger *slog.Logger) (*Postgres, error) {
	if pool == nil {
		return nil, fmt.Errorf("pgvector: pool is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Postgres{pool: pool, logger: logger}, nil
}

func checkCollectionName(name string) error {
	if !validCollectionName.MatchString(name) {
		return fmt.Errorf("invalid collection name %q", name)
	}
	return nil
}

// CreateCollection creates the collection table, dropping it first when reset
// is requested. An existing table with a different vector dimension yields
// ErrDimensionMismatch.
func (p *Postgres) CreateCollection(ctx context.Context, name string, dimension int, reset bool) error {
	if err := checkCollectionName(name); err != nil {
		return err
	}
	if dimension <= 0 {
		return fmt.Errorf("dimension must be positive, got %d", dimension)
	}

	table := pgx.Identifier{name}.Sanitize()

	if reset {
		if _, err := p.pool.Exec(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
			return fmt.Errorf("dropping collection %q: %w", name, err)
		}
		p.logger.Debug("collection dropped for reset", "collection", name)
	} else {
		existing, err := p.dimensionOf(ctx, name)
		if err != nil {
			return err
		}
		if existing > 0 && existing != dimension {
			return fmt.Errorf("collection %q has dimension %d, requested %d: %w",
				name, existing, dimension, ErrDimensionMismatch)
		}
		if existing == dimension {
			return nil
		}
	}

	createSQL := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id TEXT PRIMARY KEY,
		content TEXT NOT NULL,
		metadata JSONB NOT NULL DEFAULT '{}',
		embedding vector(%d) NOT NULL
	)`, table, dimension)

	if _, err := p.pool.Exec(ctx, createSQL); err != nil {
		return fmt.Errorf("creating collection %q: %w", name, err)
	}

	p.logger.Debug("collection ready", "collection", name, "dimension", dimension)
	return nil
}

// DeleteCollection drops the collection table if it exists.
func (p *Postgres) DeleteCollection(ctx context.Context, name string) error {
	if err := checkCollectionName(name); err != nil {
		return err
	}
	table := pgx.Identifier{name}.Sanitize()
	if _, err := p.pool.Exec(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
		return fmt.Errorf("deleting collection %q: %w", name, err)
	}
	return nil
}

// CollectionExists reports whether the collection table exists.
func (p *Postgres) CollectionExists(ctx context.Context, name string) (bool, error) {
	if err := checkCollectionName(name); err != nil {
		return false, err
	}
	var exists bool
	err := p.pool.QueryRow(ctx, "SELECT to_regclass($1) IS NOT NULL", name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking collection %q: %w", name, err)
	}
	return exists, nil
}

// CollectionInfo returns the collection's dimension and record count.
func (p *Postgres) CollectionInfo(ctx context.Context, name string) (*CollectionInfo, error) {
	if err := checkCollectionName(name); err != nil {
		return nil, err
	}

	dimension, err := p.dimensionOf(ctx, name)
	if err != nil {
		return nil, err
	}
	if dimension == 0 {
		return nil, fmt.Errorf("collection %q: %w", name, ErrCollectionNotFound)
	}

	table := pgx.Identifier{name}.Sanitize()
	var count int64
	if err := p.pool.QueryRow(ctx, "SELECT count(*) FROM "+table).Scan(&count); err != nil {
		return nil, fmt.Errorf("counting collection %q: %w", name, err)
	}

	return &CollectionInfo{Name: name, Dimension: dimension, Records: count}, nil
}

// Upsert writes all records in one batch round-trip. Conflicting ids are
// overwritten in place.
func (p *Postgres) Upsert(ctx context.Context, name string, records []Record) error {
	if err := checkCollectionName(name); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	table := pgx.Identifier{name}.Sanitize()
	upsertSQL := fmt.Sprintf(`INSERT INTO %s (id, content, metadata, embedding)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			metadata = EXCLUDED.metadata,
			embedding = EXCLUDED.embedding`, table)

	batch := &pgx.Batch{}
	for _, rec := range records {
		metadata, err := json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("marshaling metadata for record %q: %w", rec.ID, err)
		}
		batch.Queue(upsertSQL, rec.ID, rec.Text, metadata, pgvector.NewVector(rec.Vector))
	}

	results := p.pool.SendBatch(ctx, batch)
	defer func() {
		_ = results.Close()
	}()

	for i := range records {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upserting record %q into %q: %w", records[i].ID, name, p.mapError(err))
		}
	}

	p.logger.Debug("records upserted", "collection", name, "count", len(records))
	return nil
}

// Search runs a cosine-distance query ordered by ascending distance, which
// is descending similarity.
func (p *Postgres) Search(ctx context.Context, name string, vector []float32, limit int) ([]ScoredRecord, error) {
	if err := checkCollectionName(name); err != nil {
		return nil, err
	}
	if limit < 0 {
		// LIMIT 0 is valid SQL, so the query still runs and a missing table
		// still surfaces as ErrCollectionNotFound.
		limit = 0
	}

	table := pgx.Identifier{name}.Sanitize()
	searchSQL := fmt.Sprintf(`SELECT id, content, metadata,
		1 - (embedding <=> $1) AS score
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2`, table)

	rows, err := p.pool.Query(ctx, searchSQL, pgvector.NewVector(vector), limit)
	if err != nil {
		return nil, fmt.Errorf("searching collection %q: %w", name, p.mapError(err))
	}
	defer rows.Close()

	var results []ScoredRecord
	for rows.Next() {
		var (
			rec          ScoredRecord
			metadataJSON []byte
			score        float64
		)
		if err := rows.Scan(&rec.ID, &rec.Text, &metadataJSON, &score); err != nil {
			return nil, fmt.Errorf("scanning search result: %w", err)
		}
		if err := json.Unmarshal(metadataJSON, &rec.Metadata); err != nil {
			p.logger.Warn("unparseable record metadata", "collection", name, "id", rec.ID, "error", err)
			rec.Metadata = map[string]string{}
		}
		rec.Score = float32(score)
		results = append(results, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading search results for %q: %w", name, p.mapError(err))
	}

	return results, nil
}

// dimensionOf returns the vector column dimension, or 0 when the table does
// not exist. pgvector stores the dimension in the column's type modifier.
func (p *Postgres) dimensionOf(ctx context.Context, name string) (int, error) {
	var typmod *int32
	err := p.pool.QueryRow(ctx,
		`SELECT atttypmod FROM pg_attribute
		 WHERE attrelid = to_regclass($1) AND attname = 'embedding'`, name).Scan(&typmod)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading dimension of %q: %w", name, err)
	}
	if typmod == nil || *typmod <= 0 {
		return 0, nil
	}
	return int(*typmod), nil
}

// mapError converts an undefined-table error into ErrCollectionNotFound so
// callers can branch with errors.Is.
func (*Postgres) mapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUndefinedTable {
		return fmt.Errorf("%w: %w", ErrCollectionNotFound, err)
	}
	return err
}
