package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"context-resolver/internal/chunker"
	"context-resolver/internal/domain"
	"context-resolver/internal/textnorm"
)

// IndexDocumentInput is one document to (re)ingest.
type IndexDocumentInput struct {
	DocumentID string
	Tenant     string
	Title      string
	Body       string
}

// IndexDocumentUsecase ingests documents into the chunk store.
type IndexDocumentUsecase interface {
	// Upsert chunks, embeds and persists a document. Re-ingestion
	// replaces the document's chunks wholesale.
	Upsert(ctx context.Context, input IndexDocumentInput) error
	// Delete removes all chunks owned by a document.
	Delete(ctx context.Context, documentID string) error
}

type indexDocumentUsecase struct {
	chunker   *chunker.Chunker
	embedder  domain.Embedder
	chunkRepo domain.ChunkRepository
	logger    *slog.Logger
}

// NewIndexDocumentUsecase wires the ingestion pipeline.
func NewIndexDocumentUsecase(
	ck *chunker.Chunker,
	embedder domain.Embedder,
	chunkRepo domain.ChunkRepository,
	logger *slog.Logger,
) IndexDocumentUsecase {
	return &indexDocumentUsecase{
		chunker:   ck,
		embedder:  embedder,
		chunkRepo: chunkRepo,
		logger:    logger,
	}
}

func (u *indexDocumentUsecase) Upsert(ctx context.Context, input IndexDocumentInput) error {
	if input.DocumentID == "" {
		return fmt.Errorf("document id is empty")
	}
	docID, err := uuid.Parse(input.DocumentID)
	if err != nil {
		return fmt.Errorf("invalid document id: %w", err)
	}
	start := time.Now()

	// Normalization at ingestion must match normalization at query
	// time byte for byte; both go through the same function.
	chunks := u.chunker.Chunk(textnorm.Normalize(input.Body))
	if len(chunks) == 0 {
		return fmt.Errorf("document %s produced no chunks", input.DocumentID)
	}

	contents := make([]string, len(chunks))
	for i, c := range chunks {
		contents[i] = c.Content
	}

	// EmbedBatch handles provider-sized sub-batching and pacing.
	embeddings, err := u.embedder.EmbedBatch(ctx, contents)
	if err != nil {
		return fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return fmt.Errorf("embedding count mismatch: %d chunks, %d vectors", len(chunks), len(embeddings))
	}

	dim := u.embedder.Dimension()
	now := time.Now()
	stored := make([]domain.StoredChunk, len(chunks))
	for i, c := range chunks {
		if len(embeddings[i]) != dim {
			return fmt.Errorf("chunk %d dimension mismatch: got %d, provider declares %d", i, len(embeddings[i]), dim)
		}
		stored[i] = domain.StoredChunk{
			ID:         uuid.New(),
			DocumentID: docID,
			Index:      c.Index,
			Content:    c.Content,
			StartChar:  c.StartChar,
			EndChar:    c.EndChar,
			TokenCount: c.TokenCount,
			Embedding:  pgvector.NewVector(embeddings[i]),
			Model:      u.embedder.ModelName(),
			Dimension:  dim,
			CreatedAt:  now,
		}
	}

	if err := u.chunkRepo.ReplaceChunks(ctx, input.DocumentID, stored); err != nil {
		return fmt.Errorf("failed to replace chunks: %w", err)
	}

	u.logger.Info("document_indexed",
		slog.String("document_id", input.DocumentID),
		slog.String("tenant", input.Tenant),
		slog.Int("chunk_count", len(stored)),
		slog.String("model", u.embedder.ModelName()),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))

	return nil
}

func (u *indexDocumentUsecase) Delete(ctx context.Context, documentID string) error {
	if documentID == "" {
		return fmt.Errorf("document id is empty")
	}
	if err := u.chunkRepo.DeleteChunks(ctx, documentID); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	u.logger.Info("document_deleted", slog.String("document_id", documentID))
	return nil
}
