// Package ambiguity classifies queries that are inherently ambiguous
// across multiple candidate entities. Pure heuristic, no external calls.
package ambiguity

import (
	"fmt"
	"strings"
	"unicode"

	"context-resolver/internal/domain"
	"context-resolver/internal/textnorm"
)

// scorePerToken is the fixed increment each ambiguous token contributes
// to the capped ambiguity score.
const scorePerToken = 0.4

// tierWords are generic product-tier qualifiers that carry no entity
// identity on their own.
var tierWords = map[string]bool{
	"pro": true, "max": true, "mini": true, "plus": true, "lite": true,
	"air": true, "ultra": true, "starter": true, "basic": true,
	"premium": true, "standard": true,
}

// IsTierWord reports whether a normalized token is a generic tier
// qualifier. Shared with title-token matching, which must ignore tier
// words when judging entity overlap.
func IsTierWord(token string) bool {
	return tierWords[token]
}

// Detector flags ambiguous queries. Zero-value is not usable; use New.
type Detector struct{}

// New returns a detector.
func New() *Detector {
	return &Detector{}
}

// Detect classifies the query. A brand-like token (>=4 letters,
// alphabetic only, not a tier word) forces the result non-ambiguous:
// an explicit brand qualifies an otherwise ambiguous code. Without the
// guard every short product code would trigger disambiguation.
func (d *Detector) Detect(query string) domain.AmbiguityResult {
	tokens := strings.Fields(textnorm.Normalize(query))
	result := domain.AmbiguityResult{Tokens: tokens}

	hasBrand := false
	for _, tok := range tokens {
		if isBrandLike(tok) {
			hasBrand = true
		}
		switch {
		case shortCodePattern(tok):
			result.Score += scorePerToken
			result.Reasons = append(result.Reasons, fmt.Sprintf("short_code:%s", tok))
		case mixedAlnumPattern(tok):
			result.Score += scorePerToken
			result.Reasons = append(result.Reasons, fmt.Sprintf("mixed_alnum:%s", tok))
		case tierWords[tok]:
			result.Score += scorePerToken
			result.Reasons = append(result.Reasons, fmt.Sprintf("tier_word:%s", tok))
		}
	}

	if result.Score > 1.0 {
		result.Score = 1.0
	}
	result.Ambiguous = result.Score > 0

	if hasBrand && result.Ambiguous {
		result.Ambiguous = false
		result.Score = 0
		result.Reasons = append(result.Reasons, "brand_guard")
	}
	return result
}

// shortCodePattern: 1-3 chars, optional leading letter plus digits.
func shortCodePattern(tok string) bool {
	if len(tok) > 3 {
		return false
	}
	// A bare 1-3 letter word is only a code when it is a tier word or
	// letter+digit; plain short words like "the" are handled by the
	// digit requirement below.
	rest := tok
	if len(tok) > 0 && unicode.IsLetter(rune(tok[0])) {
		rest = tok[1:]
	}
	if rest == "" {
		return false
	}
	for _, r := range rest {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// mixedAlnumPattern: 2-4 chars containing both letters and digits.
func mixedAlnumPattern(tok string) bool {
	if len(tok) < 2 || len(tok) > 4 {
		return false
	}
	hasLetter, hasDigit := false, false
	for _, r := range tok {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			return false
		}
	}
	return hasLetter && hasDigit
}

// isBrandLike: at least 4 letters, alphabetic only, not a tier word.
func isBrandLike(tok string) bool {
	if len(tok) < 4 || tierWords[tok] {
		return false
	}
	for _, r := range tok {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
