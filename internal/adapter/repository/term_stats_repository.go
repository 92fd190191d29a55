package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"context-resolver/internal/domain"
)

// maxDocFraction drops terms that appear in more than this share of the
// tenant's active documents. Such terms carry no discriminating power.
const maxDocFraction = 0.5

type termStatsRepository struct {
	pool *pgxpool.Pool
}

// NewTermStatsRepository creates a TermStatsClient backed by the
// documents table. Counts are per distinct document, not per chunk.
func NewTermStatsRepository(pool *pgxpool.Pool) domain.TermStatsClient {
	return &termStatsRepository{pool: pool}
}

func (r *termStatsRepository) DocumentCounts(ctx context.Context, tenant string, terms []string) ([]domain.TermStats, error) {
	if len(terms) == 0 {
		return nil, nil
	}

	var totalDocs int
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM documents WHERE tenant_id = $1 AND active`,
		tenant,
	).Scan(&totalDocs)
	if err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}

	query := `
		SELECT t.term, coalesce(m.doc_count, 0)
		FROM unnest($2::text[]) AS t(term)
		LEFT JOIN LATERAL (
			SELECT count(DISTINCT c.document_id) AS doc_count
			FROM chunks c
			JOIN documents d ON d.id = c.document_id
			WHERE d.tenant_id = $1 AND d.active
			  AND to_tsvector('simple', c.content) @@ plainto_tsquery('simple', t.term)
		) m ON true
	`
	rows, err := r.pool.Query(ctx, query, tenant, terms)
	if err != nil {
		return nil, fmt.Errorf("failed to query term document counts: %w", err)
	}
	defer rows.Close()

	stats := make([]domain.TermStats, 0, len(terms))
	for rows.Next() {
		var s domain.TermStats
		if err := rows.Scan(&s.Term, &s.DocCount); err != nil {
			return nil, fmt.Errorf("failed to scan term stats: %w", err)
		}
		s.Kept = s.DocCount > 0 && (totalDocs == 0 || float64(s.DocCount)/float64(totalDocs) <= maxDocFraction)
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return stats, nil
}
