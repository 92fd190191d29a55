package usecase

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"context-resolver/internal/ambiguity"
	"context-resolver/internal/domain"
	"context-resolver/internal/rerank"
	"context-resolver/internal/search"
	"context-resolver/internal/textnorm"
)

// finalScoreCeiling clamps boosted scores. With MaxTotalBoost <= 0.25
// the ceiling is never exceeded, but the clamp keeps the invariant
// local instead of depending on config tuning.
const finalScoreCeiling = 1.25

// ScoringConfig tunes the candidate scoring and the decision
// thresholds of the resolution engine.
type ScoringConfig struct {
	// Weights over the normalized score components. Must sum to
	// exactly 1.0; the constructor asserts it.
	AliasWeight  float64
	FTSWeight    float64
	VectorWeight float64

	// PerTermBoost is granted per context term found in a candidate's
	// title or content; the sum is capped at MaxTotalBoost.
	PerTermBoost  float64
	MaxTotalBoost float64

	// MinAmbiguityScore and AmbiguityDelta gate the Multi decision: an
	// ambiguous query whose top-2 candidates are closer than the delta
	// and belong to different categories yields both.
	MinAmbiguityScore float64
	AmbiguityDelta    float64
}

// DefaultScoringConfig returns the tuned production defaults.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		AliasWeight:       0.4,
		FTSWeight:         0.3,
		VectorWeight:      0.3,
		PerTermBoost:      0.05,
		MaxTotalBoost:     0.25,
		MinAmbiguityScore: 0.4,
		AmbiguityDelta:    0.15,
	}
}

// Validate asserts the weight-sum invariant and threshold ranges.
func (c ScoringConfig) Validate() error {
	sum := c.AliasWeight + c.FTSWeight + c.VectorWeight
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("score weights must sum to exactly 1.0, got %f", sum)
	}
	if c.AliasWeight < 0 || c.FTSWeight < 0 || c.VectorWeight < 0 {
		return fmt.Errorf("score weights must be non-negative")
	}
	if c.PerTermBoost < 0 || c.MaxTotalBoost < 0 {
		return fmt.Errorf("boosts must be non-negative")
	}
	if c.MinAmbiguityScore < 0 || c.MinAmbiguityScore > 1 {
		return fmt.Errorf("minAmbiguityScore must be in [0,1], got %f", c.MinAmbiguityScore)
	}
	if c.AmbiguityDelta < 0 {
		return fmt.Errorf("ambiguityDelta must be non-negative, got %f", c.AmbiguityDelta)
	}
	return nil
}

// scorer turns merged search rows into scored candidates.
type scorer struct {
	cfg ScoringConfig
}

func newScorer(cfg ScoringConfig) (*scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scoring config: %w", err)
	}
	return &scorer{cfg: cfg}, nil
}

// buildCandidates aggregates chunk-level search rows into one
// candidate per document, carrying the best row's content and the
// strongest component scores.
func (s *scorer) buildCandidates(results []search.Result) []domain.Candidate {
	type agg struct {
		candidate domain.Candidate
		bestMerge float64
		rawFTS    float64
	}
	byDoc := make(map[string]*agg)
	order := make([]string, 0, len(results))

	for _, r := range results {
		a, ok := byDoc[r.Row.DocumentID]
		if !ok {
			a = &agg{candidate: domain.Candidate{
				ID:       r.Row.DocumentID,
				Title:    r.Row.Title,
				Category: r.Row.Category,
				Brand:    r.Row.Brand,
				Model:    r.Row.Model,
			}}
			byDoc[r.Row.DocumentID] = a
			order = append(order, r.Row.DocumentID)
		}
		if r.Merged > a.bestMerge || a.candidate.Content == "" {
			a.bestMerge = r.Merged
			a.candidate.Content = r.Row.Content
			a.candidate.ScoreSource = r.Source
		}
		if r.VectorScore > a.candidate.VectorScore {
			a.candidate.VectorScore = r.VectorScore
		}
		keyword := r.KeywordScore
		if r.Source == domain.ScoreSourceTrigram {
			// Trigram similarity is the lexical signal on the
			// fallback path.
			keyword = r.Row.Score
		}
		if keyword > a.rawFTS {
			a.rawFTS = keyword
		}
	}

	// Normalize FTS by the batch max so the component lands in [0,1].
	var batchMax float64
	for _, id := range order {
		if byDoc[id].rawFTS > batchMax {
			batchMax = byDoc[id].rawFTS
		}
	}

	candidates := make([]domain.Candidate, 0, len(order))
	for _, id := range order {
		a := byDoc[id]
		if batchMax > 0 {
			a.candidate.FTSScore = a.rawFTS / batchMax
		}
		candidates = append(candidates, a.candidate)
	}
	return candidates
}

// score computes base and final scores for every candidate and returns
// them sorted by final score descending. Context terms boost but never
// create relevance: a candidate with zero base score stays at zero.
func (s *scorer) score(query string, candidates []domain.Candidate, contextTerms []string) ([]domain.Candidate, error) {
	normQuery := textnorm.Normalize(query)
	for i := range candidates {
		candidates[i].AliasScore = aliasScore(normQuery, candidates[i])
		candidates[i].BaseScore = s.cfg.AliasWeight*candidates[i].AliasScore +
			s.cfg.FTSWeight*candidates[i].FTSScore +
			s.cfg.VectorWeight*candidates[i].VectorScore
	}

	booster, err := rerank.New(rerank.Config{
		MarginThreshold: 0, // the decision layer owns candidate gating here
		MaxTotalBoost:   s.cfg.MaxTotalBoost,
	}, rerank.TokenOverlapBoost(tokenizeNormalized, contextTerms, s.cfg.PerTermBoost))
	if err != nil {
		return nil, err
	}

	items := make([]rerank.Item, len(candidates))
	for i, c := range candidates {
		items[i] = rerank.Item{
			ID:       c.ID,
			Title:    c.Title,
			Content:  c.Content,
			Category: c.Category,
			Score:    c.BaseScore,
		}
	}
	res := booster.Rerank(items, len(strings.Fields(normQuery)))

	byID := make(map[string]rerank.Item, len(res.Items))
	for _, it := range res.Items {
		byID[it.ID] = it
	}
	for i := range candidates {
		it := byID[candidates[i].ID]
		candidates[i].FinalScore = math.Min(it.Boosted, finalScoreCeiling)
		candidates[i].BoostsApplied = it.BoostsApplied
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].FinalScore > candidates[j].FinalScore
	})
	return candidates, nil
}

// decide applies the terminal decision policy. A top candidate with no
// lexical or alias signal at all is refused outright: vector
// similarity alone is not trusted to name an entity.
func (s *scorer) decide(candidates []domain.Candidate, amb domain.AmbiguityResult) domain.ResolutionDecision {
	if len(candidates) == 0 {
		return domain.ResolutionDecision{Mode: domain.DecisionRefusal, Reason: "no_candidates"}
	}
	top := candidates[0]
	if top.AliasScore == 0 && top.FTSScore == 0 {
		// Vector similarity alone is not trusted to name an entity.
		// Refusing here is deliberate precision-over-recall and is
		// load-bearing against cross-entity contamination.
		return domain.ResolutionDecision{Mode: domain.DecisionRefusal, Reason: "no_lexical_signal"}
	}
	if len(candidates) > 1 {
		second := candidates[1]
		delta := top.FinalScore - second.FinalScore
		if amb.Score >= s.cfg.MinAmbiguityScore &&
			delta <= s.cfg.AmbiguityDelta &&
			top.Category != second.Category {
			return domain.ResolutionDecision{
				Mode:       domain.DecisionMulti,
				Candidates: []domain.Candidate{top, second},
				Reason:     "ambiguous_close_categories",
			}
		}
	}
	return domain.ResolutionDecision{
		Mode:       domain.DecisionSingle,
		Candidates: []domain.Candidate{top},
		Reason:     "clear_top_candidate",
	}
}

// aliasScore measures how directly the query names the candidate.
// Brand+model both present is a full alias hit; model alone is a
// strong one; otherwise meaningful title-token overlap counts when at
// least half the tokens match.
func aliasScore(normQuery string, c domain.Candidate) float64 {
	brand := textnorm.Normalize(c.Brand)
	model := textnorm.Normalize(c.Model)

	if brand != "" && model != "" &&
		strings.Contains(normQuery, brand) && strings.Contains(normQuery, model) {
		return 1.0
	}
	if model != "" && strings.Contains(normQuery, model) {
		return 0.7
	}

	tokens := meaningfulTitleTokens(c.Title)
	if len(tokens) == 0 {
		return 0
	}
	queryTokens := make(map[string]bool)
	for _, tok := range tokenizeNormalized(normQuery) {
		queryTokens[tok] = true
	}
	matched := 0
	for _, tok := range tokens {
		if queryTokens[tok] {
			matched++
		}
	}
	ratio := float64(matched) / float64(len(tokens))
	if ratio < 0.5 {
		return 0
	}
	return ratio
}

// meaningfulTitleTokens returns the normalized title tokens that carry
// entity identity, dropping tier words and one-character tokens.
func meaningfulTitleTokens(title string) []string {
	var tokens []string
	for _, tok := range tokenizeNormalized(title) {
		if len(tok) < 2 || ambiguity.IsTierWord(tok) {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

func tokenizeNormalized(s string) []string {
	return strings.Fields(textnorm.Normalize(s))
}
