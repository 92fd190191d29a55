package domain

import "time"

// TelemetryRecord is a flattened snapshot of one resolution, written
// asynchronously after the response is ready. Loss of a record is
// tolerated and never surfaced to the caller.
type TelemetryRecord struct {
	ResolutionID   string
	TenantID       string
	Query          string // redacted form when SafeContext scrubbing fired
	Mode           DecisionMode
	Reason         string
	AmbiguityScore float64
	Ambiguous      bool
	ContextTerms   []string
	CategoryHint   string
	QueryRedacted  bool
	CandidateCount int
	TopCandidateID string
	TopBaseScore   float64
	TopFinalScore  float64
	ScoreDelta     float64
	ScoreSource    ScoreSource
	BoostsApplied  []string
	TermsKept      []string
	TermsDropped   []string
	DurationMS     int64
	CreatedAt      time.Time
}
