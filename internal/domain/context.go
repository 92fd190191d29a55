package domain

// SafeContext is the denylist-filtered, PII-scrubbed contextual signal
// derived from recent conversation turns and page metadata. It is used
// only for boosting and telemetry, never merged into the search query.
// Discarded after the resolution; only the redacted form is ever logged.
type SafeContext struct {
	Terms         []string // at most 5, at most 120 joined characters
	CategoryHint  string
	QueryRedacted bool
}

// AmbiguityResult is the pure-function output of the ambiguity heuristic.
type AmbiguityResult struct {
	Ambiguous bool
	Score     float64 // in [0,1]
	Reasons   []string
	Tokens    []string
}

// ValidatedTerm is the per-term outcome of corpus validation, cached
// per (tenant, term). Cache entries are advisory; correctness never
// depends on freshness beyond the TTL window.
type ValidatedTerm struct {
	Term     string
	DocCount int
	Kept     bool
	Reason   string
}

// ConversationMessage is a single conversational turn handed to the
// context extractor. Only the last two turns are ever inspected.
type ConversationMessage struct {
	Role    string
	Content string
}

// PageContext carries metadata of the page the widget is embedded on.
type PageContext struct {
	Title       string
	Description string
	URL         string
}
