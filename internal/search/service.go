// Package search provides the hybrid retrieval service: concurrent
// vector and keyword search merged into a single weighted ranking,
// with an optional cross-encoder rerank pass and a trigram fallback
// for scripts the keyword tokenizer cannot segment.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"context-resolver/internal/domain"
	"context-resolver/internal/textnorm"
)

// Result is one merged hit with its component scores preserved for
// downstream scoring.
type Result struct {
	Row          domain.SearchRow
	VectorScore  float64
	KeywordScore float64
	Merged       float64
	Source       domain.ScoreSource
}

// Options shape a single Search call.
type Options struct {
	Limit       int
	UseReranker bool
	// KeywordTerms replaces the literal query in the keyword branch
	// when TermsValidated is set, so corpus-absent terms cannot zero
	// the AND-ed tsquery. With TermsValidated and no surviving terms
	// the keyword branch is skipped and retrieval is vector-only.
	KeywordTerms   []string
	TermsValidated bool
}

// Service runs hybrid retrieval against the chunk repository.
type Service struct {
	cfg      Config
	repo     domain.ChunkRepository
	embedder domain.Embedder
	reranker domain.Reranker
	logger   *slog.Logger
}

// New creates a hybrid search service. reranker may be nil, in which
// case UseReranker is ignored.
func New(cfg Config, repo domain.ChunkRepository, embedder domain.Embedder, reranker domain.Reranker, logger *slog.Logger) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid search config: %w", err)
	}
	return &Service{
		cfg:      cfg,
		repo:     repo,
		embedder: embedder,
		reranker: reranker,
		logger:   logger,
	}, nil
}

// Search runs the vector and keyword branches concurrently and merges
// their rows. When opts carries validated terms the keyword branch
// searches those instead of the literal query. A keyword-branch
// failure degrades to vector-only; a vector-branch failure fails the
// call. Zero results for a query in an unsegmented script fall back to
// trigram substring search.
func (s *Service) Search(ctx context.Context, query, tenant string, opts Options) ([]Result, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	normalized := textnorm.Normalize(query)
	if normalized == "" {
		return nil, nil
	}

	keywordQuery := normalized
	if opts.TermsValidated {
		keywordQuery = textnorm.Normalize(strings.Join(opts.KeywordTerms, " "))
		if keywordQuery == "" {
			s.logger.Info("keyword_branch_skipped",
				slog.String("tenant", tenant))
		}
	}

	start := time.Now()

	var vectorRows, keywordRows []domain.SearchRow
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		vec, err := s.embedder.Embed(gctx, normalized)
		if err != nil {
			return fmt.Errorf("failed to embed query: %w", err)
		}
		rows, err := s.repo.VectorSearch(gctx, tenant, vec, s.cfg.PoolSize)
		if err != nil {
			return fmt.Errorf("vector search failed: %w", err)
		}
		vectorRows = rows
		return nil
	})

	if keywordQuery != "" {
		g.Go(func() error {
			rows, err := s.repo.KeywordSearch(gctx, tenant, keywordQuery, s.cfg.PoolSize)
			if err != nil {
				// Keyword is the auxiliary signal; degrade to vector-only.
				s.logger.Warn("keyword_search_degraded",
					slog.String("tenant", tenant),
					slog.String("error", err.Error()))
				return nil
			}
			keywordRows = rows
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := s.merge(vectorRows, keywordRows)

	if opts.UseReranker && s.reranker != nil && len(merged) > 1 {
		merged = s.rerank(ctx, normalized, merged)
	}

	filtered := merged[:0]
	for _, r := range merged {
		if r.Merged >= s.cfg.SimilarityThreshold {
			filtered = append(filtered, r)
		}
	}
	if len(filtered) > limit {
		filtered = filtered[:limit]
	}

	if len(filtered) == 0 && textnorm.HasUnsegmentedScript(query) {
		return s.trigramFallback(ctx, query, tenant, limit, start)
	}

	s.logger.Info("hybrid_search_completed",
		slog.String("tenant", tenant),
		slog.Int("vector_rows", len(vectorRows)),
		slog.Int("keyword_rows", len(keywordRows)),
		slog.Int("result_count", len(filtered)),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))

	return filtered, nil
}

// merge combines both row sets keyed by chunk ID. Vector similarity is
// weighted by VectorWeight; each keyword hit adds a fixed
// 0.5*(1-VectorWeight) on top, or seeds a new entry at that value.
func (s *Service) merge(vectorRows, keywordRows []domain.SearchRow) []Result {
	keywordShare := 0.5 * (1 - s.cfg.VectorWeight)

	byChunk := make(map[string]*Result, len(vectorRows)+len(keywordRows))

	for _, row := range vectorRows {
		byChunk[row.ChunkID] = &Result{
			Row:         row,
			VectorScore: row.Score,
			Merged:      row.Score * s.cfg.VectorWeight,
			Source:      domain.ScoreSourceVector,
		}
	}
	for _, row := range keywordRows {
		if existing, ok := byChunk[row.ChunkID]; ok {
			existing.KeywordScore = row.Score
			existing.Merged += keywordShare
			continue
		}
		byChunk[row.ChunkID] = &Result{
			Row:          row,
			KeywordScore: row.Score,
			Merged:       keywordShare,
			Source:       domain.ScoreSourceFTS,
		}
	}

	results := make([]Result, 0, len(byChunk))
	for _, r := range byChunk {
		results = append(results, *r)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Merged != results[j].Merged {
			return results[i].Merged > results[j].Merged
		}
		return results[i].Row.ChunkID < results[j].Row.ChunkID
	})
	return results
}

// rerank sends the top of the merged pool to the cross-encoder and
// blends its scores 50/50 with the merged scores. Any rerank error
// keeps the pre-rerank ordering.
func (s *Service) rerank(ctx context.Context, query string, merged []Result) []Result {
	pool := merged
	if len(pool) > s.cfg.RerankPoolSize {
		pool = pool[:s.cfg.RerankPoolSize]
	}

	docs := make([]domain.RerankDocument, len(pool))
	for i, r := range pool {
		docs[i] = domain.RerankDocument{ID: r.Row.ChunkID, Content: r.Row.Content}
	}

	scores, err := s.reranker.Rerank(ctx, query, docs)
	if err != nil {
		s.logger.Warn("rerank_skipped",
			slog.String("error", err.Error()),
			slog.Int("pool_size", len(pool)))
		return merged
	}

	byID := make(map[string]float64, len(scores))
	for _, sc := range scores {
		byID[sc.ID] = sc.Score
	}
	for i := range pool {
		if rs, ok := byID[pool[i].Row.ChunkID]; ok {
			pool[i].Merged = 0.5*pool[i].Merged + 0.5*rs
		}
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Merged != merged[j].Merged {
			return merged[i].Merged > merged[j].Merged
		}
		return merged[i].Row.ChunkID < merged[j].Row.ChunkID
	})
	return merged
}

// trigramFallback retries with substring similarity. The SQL operator
// already applies its own minimum similarity, so the hybrid threshold
// is not re-applied here.
func (s *Service) trigramFallback(ctx context.Context, query, tenant string, limit int, start time.Time) ([]Result, error) {
	rows, err := s.repo.TrigramSearch(ctx, tenant, query, limit)
	if err != nil {
		return nil, fmt.Errorf("trigram fallback failed: %w", err)
	}

	results := make([]Result, 0, len(rows))
	for _, row := range rows {
		results = append(results, Result{
			Row:    row,
			Merged: row.Score,
			Source: domain.ScoreSourceTrigram,
		})
	}

	s.logger.Info("trigram_fallback_completed",
		slog.String("tenant", tenant),
		slog.Int("result_count", len(results)),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))

	return results, nil
}
