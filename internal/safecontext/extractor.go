// Package safecontext derives a small, denylist-filtered, length-capped
// set of context terms from recent conversation turns and page
// metadata, after PII scrubbing. Context terms are used only for
// boosting and telemetry; they never replace or extend the literal
// search query.
package safecontext

import (
	"strings"
	"unicode"

	"context-resolver/internal/domain"
	"context-resolver/internal/textnorm"
)

const (
	maxTerms       = 5
	maxJoinedChars = 120
	// lastTurns bounds how much conversation history is ever inspected.
	lastTurns = 2
)

// defaultDenylist removes navigation boilerplate that would otherwise
// dominate page-derived terms.
var defaultDenylist = []string{
	"home", "page", "welcome", "official", "shop", "store", "online",
	"website", "menu", "cart", "login", "signup", "cookie", "cookies",
}

// categoryTaxonomy maps page-title keywords to coarse category hints.
var categoryTaxonomy = map[string]string{
	"laser":        "beauty-devices",
	"hair":         "beauty-devices",
	"skincare":     "beauty-devices",
	"serum":        "beauty-devices",
	"router":       "networking",
	"wifi":         "networking",
	"mesh":         "networking",
	"laptop":       "computers",
	"notebook":     "computers",
	"keyboard":     "computers",
	"subscription": "plans",
	"plan":         "plans",
	"pricing":      "plans",
	"shipping":     "logistics",
	"delivery":     "logistics",
	"returns":      "logistics",
}

// Extractor derives SafeContext values. Safe for concurrent use.
type Extractor struct {
	denylist map[string]bool
}

// NewExtractor builds an extractor; extraDenylist is added on top of
// the built-in boilerplate denylist.
func NewExtractor(extraDenylist []string) *Extractor {
	deny := make(map[string]bool, len(defaultDenylist)+len(extraDenylist))
	for _, w := range defaultDenylist {
		deny[textnorm.Normalize(w)] = true
	}
	for _, w := range extraDenylist {
		deny[textnorm.Normalize(w)] = true
	}
	return &Extractor{denylist: deny}
}

// Extract builds the SafeContext for one turn. Only the last two
// conversation turns plus page title/description are inspected.
func (e *Extractor) Extract(messages []domain.ConversationMessage, page domain.PageContext) domain.SafeContext {
	var parts []string
	if n := len(messages); n > 0 {
		start := n - lastTurns
		if start < 0 {
			start = 0
		}
		for _, m := range messages[start:] {
			parts = append(parts, m.Content)
		}
	}
	parts = append(parts, page.Title, page.Description)

	raw := strings.Join(parts, " ")
	scrubbed, redacted := scrubPII(raw)

	terms := e.collectTerms(scrubbed)
	terms = capJoined(terms, maxTerms, maxJoinedChars)

	return domain.SafeContext{
		Terms:         terms,
		CategoryHint:  categoryHint(page.Title),
		QueryRedacted: redacted,
	}
}

// collectTerms normalizes, strips punctuation, drops denylisted and
// short tokens, and deduplicates preserving order.
func (e *Extractor) collectTerms(text string) []string {
	normalized := textnorm.Normalize(text)
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, normalized)

	seen := make(map[string]bool)
	var terms []string
	for _, tok := range strings.Fields(cleaned) {
		if len(tok) < 3 || e.denylist[tok] || seen[tok] {
			continue
		}
		seen[tok] = true
		terms = append(terms, tok)
	}
	return terms
}

// capJoined enforces the term-count and joined-length caps, dropping
// terms from the end.
func capJoined(terms []string, maxCount, maxChars int) []string {
	if len(terms) > maxCount {
		terms = terms[:maxCount]
	}
	for len(terms) > 0 && len(strings.Join(terms, " ")) > maxChars {
		terms = terms[:len(terms)-1]
	}
	return terms
}

// categoryHint matches page-title keywords against the fixed taxonomy.
func categoryHint(title string) string {
	for _, tok := range strings.Fields(textnorm.Normalize(title)) {
		if cat, ok := categoryTaxonomy[tok]; ok {
			return cat
		}
	}
	return ""
}
