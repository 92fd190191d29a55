package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"context-resolver/internal/domain"
	"context-resolver/internal/rerank"
	"context-resolver/internal/search"
)

// MatchInput asks which catalog entity a page-embedded widget is
// looking at.
type MatchInput struct {
	Query  string
	Tenant string
	Page   domain.PageContext
}

// MatchOutput is either a confident single match or a clarification
// listing the close candidates.
type MatchOutput struct {
	Matched            *domain.Candidate
	Candidates         []domain.Candidate
	Confidence         float64
	NeedsClarification bool
}

// MatchUsecase resolves product-style candidates using page context
// instead of conversational context.
type MatchUsecase interface {
	Execute(ctx context.Context, input MatchInput) (*MatchOutput, error)
}

// MatchConfig tunes the page-context reranking pass.
type MatchConfig struct {
	Rerank        rerank.Config
	PerTokenBoost float64
	MaxCandidates int
}

// DefaultMatchConfig returns the production defaults. The margin is
// enabled here, unlike the resolution engine's boost pass: page
// context is a weaker signal than the conversation and must not
// promote weak candidates.
func DefaultMatchConfig() MatchConfig {
	return MatchConfig{
		Rerank: rerank.Config{
			MarginThreshold:     0.8,
			MaxTotalBoost:       0.25,
			ConfidenceThreshold: 0.6,
		},
		PerTokenBoost: 0.08,
		MaxCandidates: 5,
	}
}

type matchUsecase struct {
	cfg      MatchConfig
	searcher Searcher
	scorer   *scorer
	logger   *slog.Logger
}

// NewMatchUsecase wires the product matcher.
func NewMatchUsecase(cfg MatchConfig, scoring ScoringConfig, searcher Searcher, logger *slog.Logger) (MatchUsecase, error) {
	if err := cfg.Rerank.Validate(); err != nil {
		return nil, fmt.Errorf("invalid match config: %w", err)
	}
	sc, err := newScorer(scoring)
	if err != nil {
		return nil, err
	}
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = 5
	}
	return &matchUsecase{cfg: cfg, searcher: searcher, scorer: sc, logger: logger}, nil
}

func (u *matchUsecase) Execute(ctx context.Context, input MatchInput) (*MatchOutput, error) {
	if input.Query == "" {
		return nil, fmt.Errorf("query is empty")
	}
	start := time.Now()

	results, err := u.searcher.Search(ctx, input.Query, input.Tenant, search.Options{
		Limit: u.cfg.MaxCandidates * 3,
	})
	if err != nil {
		return nil, fmt.Errorf("candidate search failed: %w", err)
	}

	candidates, err := u.scorer.score(input.Query, u.scorer.buildCandidates(results), nil)
	if err != nil {
		return nil, err
	}
	if len(candidates) > u.cfg.MaxCandidates {
		candidates = candidates[:u.cfg.MaxCandidates]
	}
	if len(candidates) == 0 {
		return &MatchOutput{NeedsClarification: false}, nil
	}

	pageTokens := tokenizeNormalized(input.Page.Title + " " + input.Page.Description)
	booster, err := rerank.New(u.cfg.Rerank,
		rerank.TokenOverlapBoost(tokenizeNormalized, pageTokens, u.cfg.PerTokenBoost))
	if err != nil {
		return nil, err
	}

	items := make([]rerank.Item, len(candidates))
	byID := make(map[string]domain.Candidate, len(candidates))
	for i, c := range candidates {
		items[i] = rerank.Item{
			ID:         c.ID,
			Title:      c.Title,
			Category:   c.Category,
			AliasMatch: c.AliasScore > 0,
			Score:      c.FinalScore,
		}
		byID[c.ID] = c
	}
	res := booster.Rerank(items, len(strings.Fields(input.Query)))

	ranked := make([]domain.Candidate, len(res.Items))
	for i, it := range res.Items {
		c := byID[it.ID]
		c.FinalScore = it.Boosted
		c.BoostsApplied = append(c.BoostsApplied, it.BoostsApplied...)
		ranked[i] = c
	}

	out := &MatchOutput{
		Candidates:         ranked,
		Confidence:         res.Confidence,
		NeedsClarification: res.NeedsClarification,
	}
	if !res.NeedsClarification {
		out.Matched = &ranked[0]
	}

	u.logger.Info("match_completed",
		slog.String("tenant", input.Tenant),
		slog.Int("candidate_count", len(ranked)),
		slog.Float64("confidence", res.Confidence),
		slog.Bool("needs_clarification", res.NeedsClarification),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))

	return out, nil
}
