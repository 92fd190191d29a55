// Package di wires the application graph from config and the database
// pool. Construction failures surface here, at startup.
package di

import (
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/time/rate"

	"context-resolver/internal/adapter/httpapi"
	"context-resolver/internal/adapter/provider"
	"context-resolver/internal/adapter/repository"
	"context-resolver/internal/ambiguity"
	"context-resolver/internal/chunker"
	"context-resolver/internal/guard"
	"context-resolver/internal/infra/config"
	"context-resolver/internal/infra/httpclient"
	"context-resolver/internal/safecontext"
	"context-resolver/internal/search"
	"context-resolver/internal/telemetry"
	"context-resolver/internal/terms"
	"context-resolver/internal/usecase"
)

// ApplicationComponents holds all wired dependencies.
type ApplicationComponents struct {
	Handler     *httpapi.Handler
	RateLimiter *guard.RateLimiter
	Telemetry   *telemetry.Sink

	ResolveUsecase usecase.ResolveUsecase
	MatchUsecase   usecase.MatchUsecase
	IndexUsecase   usecase.IndexDocumentUsecase
}

// NewApplicationComponents builds the full dependency graph.
func NewApplicationComponents(cfg *config.Config, pool *pgxpool.Pool, log *slog.Logger) (*ApplicationComponents, error) {
	// Repositories
	txManager := repository.NewPostgresTransactionManager(pool)
	chunkRepo := repository.NewChunkRepository(pool, txManager)
	termStats := repository.NewTermStatsRepository(pool)
	telemetryStore := repository.NewTelemetryStore(pool)

	// Provider clients behind breakers, sharing one connection pool
	breakerCfg := func(name string) guard.BreakerConfig {
		return guard.BreakerConfig{
			Name:             name,
			FailureThreshold: cfg.Breaker.FailureThreshold,
			MinSamples:       cfg.Breaker.MinSamples,
			Cooldown:         cfg.Breaker.Cooldown,
		}
	}

	embedderBreaker, err := guard.NewBreaker(breakerCfg("embedder"))
	if err != nil {
		return nil, err
	}
	embedder, err := provider.NewHTTPEmbedder(provider.EmbedderConfig{
		BaseURL:    cfg.Embedder.BaseURL,
		Model:      cfg.Embedder.Model,
		Dimension:  cfg.Embedder.Dimension,
		MaxInput:   cfg.Embedder.MaxInput,
		BatchSize:  cfg.Embedder.BatchSize,
		BatchDelay: cfg.Embedder.BatchDelay,
		Timeout:    cfg.Embedder.Timeout,
	}, embedderBreaker, log, httpclient.NewPooledClient(cfg.Embedder.Timeout))
	if err != nil {
		return nil, err
	}

	// Hybrid search, with the cross-encoder pass only when enabled
	searchCfg := search.Config{
		VectorWeight:        cfg.Search.VectorWeight,
		SimilarityThreshold: cfg.Search.SimilarityThreshold,
		PoolSize:            cfg.Search.PoolSize,
		DefaultLimit:        cfg.Search.DefaultLimit,
		RerankPoolSize:      cfg.Search.RerankPoolSize,
	}
	var searchService *search.Service
	if cfg.Reranker.Enabled {
		rerankerBreaker, err := guard.NewBreaker(breakerCfg("reranker"))
		if err != nil {
			return nil, err
		}
		reranker := provider.NewRerankerClient(
			cfg.Reranker.BaseURL,
			cfg.Reranker.Model,
			cfg.Reranker.Timeout,
			rerankerBreaker,
			log,
			httpclient.NewPooledClient(cfg.Reranker.Timeout),
		)
		log.Info("reranker_enabled",
			slog.String("url", cfg.Reranker.BaseURL),
			slog.String("model", cfg.Reranker.Model))
		searchService, err = search.New(searchCfg, chunkRepo, embedder, reranker, log)
		if err != nil {
			return nil, err
		}
	} else {
		searchService, err = search.New(searchCfg, chunkRepo, embedder, nil, log)
		if err != nil {
			return nil, err
		}
	}

	// Telemetry sink
	sink := telemetry.NewSink(telemetryStore, log, cfg.Telemetry.QueueSize, cfg.IsDevelopment())

	// Context, ambiguity and term analysis
	contextExt := safecontext.NewExtractor(nil)
	detector := ambiguity.New()
	termExt := terms.NewExtractor(0)
	validator := terms.NewValidator(termStats, 0, 0, log)

	// Resolution engine
	scoringCfg := usecase.ScoringConfig{
		AliasWeight:       cfg.Scoring.AliasWeight,
		FTSWeight:         cfg.Scoring.FTSWeight,
		VectorWeight:      cfg.Scoring.VectorWeight,
		PerTermBoost:      cfg.Scoring.PerTermBoost,
		MaxTotalBoost:     cfg.Scoring.MaxTotalBoost,
		MinAmbiguityScore: cfg.Scoring.MinAmbiguityScore,
		AmbiguityDelta:    cfg.Scoring.AmbiguityDelta,
	}
	resolveUsecase, err := usecase.NewResolveUsecase(usecase.ResolveConfig{
		Scoring:     scoringCfg,
		UseReranker: cfg.Reranker.Enabled,
	}, contextExt, detector, termExt, validator, searchService, nil, sink, log)
	if err != nil {
		return nil, fmt.Errorf("failed to build resolve usecase: %w", err)
	}

	matchUsecase, err := usecase.NewMatchUsecase(usecase.DefaultMatchConfig(), scoringCfg, searchService, log)
	if err != nil {
		return nil, fmt.Errorf("failed to build match usecase: %w", err)
	}

	// Indexing
	ck, err := chunker.New(chunker.Config{
		ChunkSize:       cfg.Chunker.ChunkSize,
		ChunkOverlap:    cfg.Chunker.ChunkOverlap,
		MinChunkSize:    cfg.Chunker.MinChunkSize,
		MaxChunkSize:    cfg.Chunker.MaxChunkSize,
		SplitParagraphs: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build chunker: %w", err)
	}
	indexUsecase := usecase.NewIndexDocumentUsecase(ck, embedder, chunkRepo, log)

	rateLimiter := guard.NewRateLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst)

	handler := httpapi.NewHandler(resolveUsecase, matchUsecase, indexUsecase, log)

	return &ApplicationComponents{
		Handler:        handler,
		RateLimiter:    rateLimiter,
		Telemetry:      sink,
		ResolveUsecase: resolveUsecase,
		MatchUsecase:   matchUsecase,
		IndexUsecase:   indexUsecase,
	}, nil
}
