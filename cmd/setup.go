package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/koopa0/ragline/db"
	"github.com/koopa0/ragline/internal/config"
	"github.com/koopa0/ragline/internal/ingest"
	"github.com/koopa0/ragline/internal/llm"
	"github.com/koopa0/ragline/internal/log"
	"github.com/koopa0/ragline/internal/prompt"
	"github.com/koopa0/ragline/internal/rag"
	"github.com/koopa0/ragline/internal/splitter"
	"github.com/koopa0/ragline/internal/storage"
	"github.com/koopa0/ragline/internal/vectorstore"
)

// app holds the wired pipeline shared by all commands. store is nil unless
// the pgvector backend is active, since only that backend brings PostgreSQL.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *storage.Store
	system   *rag.System
	ingestor *ingest.Ingestor
}

// newApp loads configuration and wires the pipeline. The returned cleanup
// must be called before exit.
func newApp(ctx context.Context) (*app, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading configuration: %w", err)
	}

	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	logger := log.New(log.Config{Level: level})
	slog.SetDefault(logger)

	var (
		pool      *pgxpool.Pool
		metaStore *storage.Store
		vstore    vectorstore.Store
	)
	cleanup := func() {
		if pool != nil {
			pool.Close()
		}
	}

	switch cfg.VectorBackend {
	case config.VectorBackendPgvector:
		if err := db.Migrate(cfg.PostgresURL()); err != nil {
			return nil, nil, fmt.Errorf("migrating database: %w", err)
		}
		pool, err = pgxpool.New(ctx, cfg.PostgresConnectionString())
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to PostgreSQL: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("pinging PostgreSQL: %w", err)
		}
		vstore, err = vectorstore.NewPostgres(pool, logger)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		metaStore, err = storage.New(pool, logger)
		if err != nil {
			cleanup()
			return nil, nil, err
		}

	case config.VectorBackendQdrant:
		vstore, err = vectorstore.NewQdrant(vectorstore.QdrantConfig{
			URL:    cfg.QdrantURL,
			APIKey: cfg.QdrantAPIKey,
		}, logger)
		if err != nil {
			return nil, nil, err
		}

	case config.VectorBackendMemory:
		vstore = vectorstore.NewMemory()

	default:
		return nil, nil, fmt.Errorf("%w: %q", config.ErrInvalidVectorBackend, cfg.VectorBackend)
	}

	embedder, generator, err := newProvider(ctx, cfg, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	templates := prompt.New(cfg.Language)
	system := rag.NewSystem(vstore, embedder, generator, templates, cfg.EmbedConcurrency, logger)

	sp, err := splitter.New(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		store:    metaStore,
		system:   system,
		ingestor: ingest.New(metaStore, sp, system, logger),
	}, cleanup, nil
}

// newProvider builds the embedding and generation backends for the
// configured provider. Every supported provider implements both interfaces
// with one client.
func newProvider(ctx context.Context, cfg *config.Config, logger *slog.Logger) (llm.EmbeddingProvider, llm.TextGenerator, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		client, err := llm.NewGemini(ctx, llm.GeminiConfig{
			APIKey:        cfg.APIKey(),
			GenerateModel: cfg.ModelName,
			EmbedModel:    cfg.EmbedderModel,
			Dimension:     cfg.EmbedderDimension,
			Temperature:   cfg.Temperature,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return client, client, nil

	case config.ProviderOpenAI:
		client, err := llm.NewOpenAI(llm.OpenAIConfig{
			APIKey:        cfg.APIKey(),
			GenerateModel: fallbackModel(cfg.ModelName, "gpt-4o-mini"),
			EmbedModel:    fallbackEmbedder(cfg.EmbedderModel, "text-embedding-3-small"),
			Dimension:     cfg.EmbedderDimension,
			Temperature:   cfg.Temperature,
			MaxTokens:     cfg.MaxTokens,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return client, client, nil

	case config.ProviderCohere:
		client, err := llm.NewCohere(llm.CohereConfig{
			APIKey:        cfg.APIKey(),
			GenerateModel: fallbackModel(cfg.ModelName, "command-r"),
			EmbedModel:    fallbackEmbedder(cfg.EmbedderModel, "embed-english-v3.0"),
			Dimension:     cfg.EmbedderDimension,
			Temperature:   cfg.Temperature,
			MaxTokens:     cfg.MaxTokens,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return client, client, nil

	default:
		return nil, nil, fmt.Errorf("%w: %q", config.ErrInvalidProvider, cfg.Provider)
	}
}

// fallbackModel swaps the Gemini default for the provider's own default when
// the user did not pick a model explicitly.
func fallbackModel(configured, providerDefault string) string {
	if configured == "" || configured == "gemini-2.5-flash" {
		return providerDefault
	}
	return configured
}

func fallbackEmbedder(configured, providerDefault string) string {
	if configured == "" || configured == config.DefaultGeminiEmbedderModel {
		return providerDefault
	}
	return configured
}
