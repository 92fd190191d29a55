// Package repository implements the storage ports on PostgreSQL with
// pgvector (cosine similarity), built-in full-text search and pg_trgm.
package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"context-resolver/internal/domain"
)

// trigramMinSimilarity is the floor applied by the fallback operator
// itself; the hybrid-layer similarity threshold does not apply there.
const trigramMinSimilarity = 0.1

type chunkRepository struct {
	pool      *pgxpool.Pool
	txManager domain.TransactionManager
}

// NewChunkRepository creates a ChunkRepository backed by pgx.
func NewChunkRepository(pool *pgxpool.Pool, txManager domain.TransactionManager) domain.ChunkRepository {
	return &chunkRepository{pool: pool, txManager: txManager}
}

type dbExecutor interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

func (r *chunkRepository) getExecutor(ctx context.Context) dbExecutor {
	tx := ExtractTx(ctx)
	if tx != nil {
		return tx
	}
	return r.pool
}

func (r *chunkRepository) VectorSearch(ctx context.Context, tenant string, queryVector []float32, limit int) ([]domain.SearchRow, error) {
	query := `
		SELECT c.id, c.document_id, d.title, d.brand, d.model, d.category, c.content,
		       1 - (c.embedding <=> $2) AS score
		FROM chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE d.tenant_id = $1 AND d.active
		ORDER BY c.embedding <=> $2
		LIMIT $3
	`
	rows, err := r.getExecutor(ctx).Query(ctx, query, tenant, pgvector.NewVector(queryVector), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to run vector search: %w", err)
	}
	defer rows.Close()
	return scanSearchRows(rows)
}

func (r *chunkRepository) KeywordSearch(ctx context.Context, tenant, query string, limit int) ([]domain.SearchRow, error) {
	sql := `
		SELECT c.id, c.document_id, d.title, d.brand, d.model, d.category, c.content,
		       ts_rank(to_tsvector('simple', c.content), websearch_to_tsquery('simple', $2)) AS score
		FROM chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE d.tenant_id = $1 AND d.active
		  AND to_tsvector('simple', c.content) @@ websearch_to_tsquery('simple', $2)
		ORDER BY score DESC
		LIMIT $3
	`
	rows, err := r.getExecutor(ctx).Query(ctx, sql, tenant, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to run keyword search: %w", err)
	}
	defer rows.Close()
	return scanSearchRows(rows)
}

func (r *chunkRepository) TrigramSearch(ctx context.Context, tenant, query string, limit int) ([]domain.SearchRow, error) {
	sql := `
		SELECT c.id, c.document_id, d.title, d.brand, d.model, d.category, c.content,
		       similarity(c.content, $2) AS score
		FROM chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE d.tenant_id = $1 AND d.active
		  AND similarity(c.content, $2) > $3
		ORDER BY score DESC
		LIMIT $4
	`
	rows, err := r.getExecutor(ctx).Query(ctx, sql, tenant, query, trigramMinSimilarity, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to run trigram search: %w", err)
	}
	defer rows.Close()
	return scanSearchRows(rows)
}

func (r *chunkRepository) ReplaceChunks(ctx context.Context, documentID string, chunks []domain.StoredChunk) error {
	docID, err := uuid.Parse(documentID)
	if err != nil {
		return fmt.Errorf("invalid document id: %w", err)
	}
	return r.txManager.RunInTx(ctx, func(ctx context.Context) error {
		exec := r.getExecutor(ctx)
		if _, err := exec.Exec(ctx, `DELETE FROM chunks WHERE document_id = $1`, docID); err != nil {
			return fmt.Errorf("failed to delete previous chunks: %w", err)
		}
		if len(chunks) == 0 {
			return nil
		}

		rows := make([][]interface{}, len(chunks))
		for i, c := range chunks {
			rows[i] = []interface{}{
				c.ID,
				c.DocumentID,
				c.Index,
				c.Content,
				c.StartChar,
				c.EndChar,
				c.TokenCount,
				c.Embedding,
				c.Model,
				c.Dimension,
				c.CreatedAt,
			}
		}
		_, err := exec.CopyFrom(
			ctx,
			pgx.Identifier{"chunks"},
			[]string{"id", "document_id", "chunk_index", "content", "start_char", "end_char", "token_count", "embedding", "model", "dimension", "created_at"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return fmt.Errorf("failed to bulk insert chunks: %w", err)
		}
		return nil
	})
}

func (r *chunkRepository) DeleteChunks(ctx context.Context, documentID string) error {
	docID, err := uuid.Parse(documentID)
	if err != nil {
		return fmt.Errorf("invalid document id: %w", err)
	}
	if _, err := r.getExecutor(ctx).Exec(ctx, `DELETE FROM chunks WHERE document_id = $1`, docID); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	return nil
}

func scanSearchRows(rows pgx.Rows) ([]domain.SearchRow, error) {
	var out []domain.SearchRow
	for rows.Next() {
		var row domain.SearchRow
		var id, docID uuid.UUID
		if err := rows.Scan(&id, &docID, &row.Title, &row.Brand, &row.Model, &row.Category, &row.Content, &row.Score); err != nil {
			return nil, fmt.Errorf("failed to scan search row: %w", err)
		}
		row.ChunkID = id.String()
		row.DocumentID = docID.String()
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}
