// Package terms tokenizes queries into ranked unigrams and bigrams and
// validates them against corpus document-frequency statistics.
package terms

import (
	"sort"
	"strings"
	"unicode"

	"context-resolver/internal/textnorm"
)

// ExtractedTerms is the ranked term set for one query. Nil is returned
// instead when the query contains scripts the tokenizer cannot segment;
// callers then use the trigram fallback path.
type ExtractedTerms struct {
	Unigrams []string
	Bigrams  []string
	// Terms is the ranked union of unigrams and bigrams, capped by the
	// extractor's MaxTerms.
	Terms []string
}

// Extractor turns a query into ranked candidate terms.
type Extractor struct {
	maxTerms    int
	minTokenLen int
}

// NewExtractor builds an extractor capped at maxTerms ranked terms.
func NewExtractor(maxTerms int) *Extractor {
	if maxTerms <= 0 {
		maxTerms = 6
	}
	return &Extractor{maxTerms: maxTerms, minTokenLen: 2}
}

// Extract tokenizes and ranks the query's terms. Returns nil when the
// query contains CJK, Thai, Arabic or Hebrew runes.
func (e *Extractor) Extract(query string) *ExtractedTerms {
	if textnorm.HasUnsegmentedScript(query) {
		return nil
	}

	tokens := tokenize(query, e.minTokenLen)
	if len(tokens) == 0 {
		return &ExtractedTerms{}
	}

	bigrams := make([]string, 0, len(tokens))
	for i := 0; i+1 < len(tokens); i++ {
		bigrams = append(bigrams, tokens[i]+" "+tokens[i+1])
	}

	ranked := make([]string, 0, len(tokens)+len(bigrams))
	ranked = append(ranked, bigrams...)
	ranked = append(ranked, tokens...)

	bigramSet := make(map[string]bool, len(bigrams))
	for _, b := range bigrams {
		bigramSet[b] = true
	}

	// Rank: bigrams first, then digit-bearing tokens, then longer ones.
	sort.SliceStable(ranked, func(i, j int) bool {
		bi, bj := bigramSet[ranked[i]], bigramSet[ranked[j]]
		if bi != bj {
			return bi
		}
		di, dj := containsDigit(ranked[i]), containsDigit(ranked[j])
		if di != dj {
			return di
		}
		return len(ranked[i]) > len(ranked[j])
	})

	if len(ranked) > e.maxTerms {
		ranked = ranked[:e.maxTerms]
	}

	return &ExtractedTerms{
		Unigrams: tokens,
		Bigrams:  bigrams,
		Terms:    ranked,
	}
}

// tokenize normalizes, strips non-letter/digit runes and splits on
// whitespace, deduplicating while preserving first-seen order.
func tokenize(query string, minLen int) []string {
	normalized := textnorm.Normalize(query)
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, normalized)

	seen := make(map[string]bool)
	var tokens []string
	for _, tok := range strings.Fields(cleaned) {
		if len(tok) < minLen || seen[tok] {
			continue
		}
		seen[tok] = true
		tokens = append(tokens, tok)
	}
	return tokens
}

func containsDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
