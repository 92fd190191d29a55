package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"context-resolver/internal/domain"
)

type telemetryStore struct {
	pool *pgxpool.Pool
}

// NewTelemetryStore creates a TelemetryStore that appends resolution
// records to the resolution_telemetry table.
func NewTelemetryStore(pool *pgxpool.Pool) domain.TelemetryStore {
	return &telemetryStore{pool: pool}
}

func (s *telemetryStore) Insert(ctx context.Context, record domain.TelemetryRecord) error {
	query := `
		INSERT INTO resolution_telemetry (
			resolution_id, tenant_id, query, mode, reason,
			ambiguity_score, ambiguous, context_terms, category_hint, query_redacted,
			candidate_count, top_candidate_id, top_base_score, top_final_score, score_delta,
			score_source, boosts_applied, terms_kept, terms_dropped, duration_ms, created_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21
		)
	`
	_, err := s.pool.Exec(ctx, query,
		record.ResolutionID,
		record.TenantID,
		record.Query,
		string(record.Mode),
		record.Reason,
		record.AmbiguityScore,
		record.Ambiguous,
		record.ContextTerms,
		record.CategoryHint,
		record.QueryRedacted,
		record.CandidateCount,
		record.TopCandidateID,
		record.TopBaseScore,
		record.TopFinalScore,
		record.ScoreDelta,
		string(record.ScoreSource),
		record.BoostsApplied,
		record.TermsKept,
		record.TermsDropped,
		record.DurationMS,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert telemetry record: %w", err)
	}
	return nil
}
