// Package rerank implements context-boosted re-ranking with a margin
// policy and a confidence gate. The same module serves both call
// sites: the resolution engine (conversational context, margin
// disabled) and the product-style matcher (page context, margin
// enabled), parameterized by a tokenizer and a boost function.
package rerank

import (
	"fmt"
	"sort"
)

// Tokenizer splits text into comparable tokens.
type Tokenizer func(string) []string

// Item is one candidate entering the reranker. Score is the original,
// pre-boost relevance score.
type Item struct {
	ID         string
	Title      string
	Content    string
	Category   string
	AliasMatch bool
	Score      float64

	// Outputs.
	Boosted       float64
	BoostsApplied []string
}

// BoostFunc computes the raw (uncapped) boost for one item.
type BoostFunc func(Item) (float64, []string)

// Config holds the reranker thresholds. Every threshold is named and
// validated here instead of living as scattered literals.
type Config struct {
	// MarginThreshold limits reordering to items whose original score
	// is within MarginThreshold*topScore; zero disables the margin so
	// every item competes on its boosted score.
	MarginThreshold float64
	// MaxTotalBoost caps the multiplicative boost: boosted =
	// score * (1 + min(boost, MaxTotalBoost)).
	MaxTotalBoost float64
	// ConfidenceThreshold gates clarification: below it the caller
	// should list candidates instead of answering.
	ConfidenceThreshold float64
}

// Validate rejects out-of-range thresholds at construction.
func (c Config) Validate() error {
	if c.MarginThreshold < 0 || c.MarginThreshold > 1 {
		return fmt.Errorf("marginThreshold must be in [0,1], got %f", c.MarginThreshold)
	}
	if c.MaxTotalBoost < 0 {
		return fmt.Errorf("maxTotalBoost must be non-negative, got %f", c.MaxTotalBoost)
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidenceThreshold must be in [0,1], got %f", c.ConfidenceThreshold)
	}
	return nil
}

// Result is the reranked ordering plus the confidence gate outcome.
type Result struct {
	Items      []Item
	Confidence float64
	// NeedsClarification is set when confidence falls below the
	// configured threshold; callers respond with a candidate list
	// instead of a single answer.
	NeedsClarification bool
}

// Reranker applies bounded boosts under a margin policy. Stateless and
// safe for concurrent use.
type Reranker struct {
	cfg   Config
	boost BoostFunc
}

// New validates the config and returns a reranker.
func New(cfg Config, boost BoostFunc) (*Reranker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if boost == nil {
		boost = func(Item) (float64, []string) { return 0, nil }
	}
	return &Reranker{cfg: cfg, boost: boost}, nil
}

// Rerank boosts and reorders items. Items outside the margin keep
// their original relative order regardless of boost, so a large
// contextual boost can never promote a fundamentally weaker candidate
// past a stronger one. queryTokens feeds the confidence penalty for
// single-token queries.
func (r *Reranker) Rerank(items []Item, queryTokens int) Result {
	if len(items) == 0 {
		return Result{Confidence: 0, NeedsClarification: false}
	}

	out := make([]Item, len(items))
	copy(out, items)

	for i := range out {
		raw, labels := r.boost(out[i])
		if raw > r.cfg.MaxTotalBoost {
			raw = r.cfg.MaxTotalBoost
		}
		if raw < 0 {
			raw = 0
		}
		out[i].Boosted = out[i].Score * (1 + raw)
		out[i].BoostsApplied = labels
	}

	topOriginal := out[0].Score
	for _, it := range out {
		if it.Score > topOriginal {
			topOriginal = it.Score
		}
	}
	marginFloor := r.cfg.MarginThreshold * topOriginal

	var inMargin, outMargin []Item
	for _, it := range out {
		if r.cfg.MarginThreshold == 0 || it.Score >= marginFloor {
			inMargin = append(inMargin, it)
		} else {
			outMargin = append(outMargin, it)
		}
	}
	sort.SliceStable(inMargin, func(i, j int) bool {
		return inMargin[i].Boosted > inMargin[j].Boosted
	})
	ranked := append(inMargin, outMargin...)

	conf := r.confidence(ranked, queryTokens)
	return Result{
		Items:              ranked,
		Confidence:         conf,
		NeedsClarification: len(ranked) > 1 && conf < r.cfg.ConfidenceThreshold,
	}
}

// confidence derives a [0,1] confidence from the top-2 gap, penalized
// for single-token queries, multiple alias-type matches, and close
// candidates of apparently different categories.
func (r *Reranker) confidence(ranked []Item, queryTokens int) float64 {
	if len(ranked) == 1 {
		return 1.0
	}
	top, second := ranked[0], ranked[1]
	if top.Boosted <= 0 {
		return 0
	}

	gap := (top.Boosted - second.Boosted) / top.Boosted
	conf := 0.5 + gap

	if queryTokens <= 1 {
		conf -= 0.15
	}
	aliasMatches := 0
	for _, it := range ranked {
		if it.AliasMatch {
			aliasMatches++
		}
	}
	if aliasMatches > 1 {
		conf -= 0.15
	}
	if top.Category != "" && second.Category != "" && top.Category != second.Category && gap < 0.15 {
		conf -= 0.2
	}

	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}
	return conf
}

// TokenOverlapBoost builds a BoostFunc granting perTerm boost for each
// context term textually present in the item's title or content.
func TokenOverlapBoost(tokenize Tokenizer, contextTerms []string, perTerm float64) BoostFunc {
	return func(it Item) (float64, []string) {
		if len(contextTerms) == 0 {
			return 0, nil
		}
		haystack := make(map[string]bool)
		for _, tok := range tokenize(it.Title) {
			haystack[tok] = true
		}
		for _, tok := range tokenize(it.Content) {
			haystack[tok] = true
		}
		var boost float64
		var labels []string
		for _, term := range contextTerms {
			matched := true
			for _, tok := range tokenize(term) {
				if !haystack[tok] {
					matched = false
					break
				}
			}
			if matched {
				boost += perTerm
				labels = append(labels, "context_term:"+term)
			}
		}
		return boost, labels
	}
}
