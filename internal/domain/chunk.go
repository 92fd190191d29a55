package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// Chunk is a sentence-respecting segment of an ingested document.
// Chunks are immutable once created; re-ingestion replaces a document's
// chunks wholesale (delete-then-insert).
type Chunk struct {
	Content    string
	Index      int // 0-based position within the document
	StartChar  int
	EndChar    int
	TokenCount int // approximate, ~4 chars per token
}

// StoredChunk is a persisted embedded chunk row. Dimension must match
// the embedding provider's declared dimension; Model is recorded so
// mixed-model corpora can be detected.
type StoredChunk struct {
	ID         uuid.UUID
	DocumentID uuid.UUID
	Index      int
	Content    string
	StartChar  int
	EndChar    int
	TokenCount int
	Embedding  pgvector.Vector
	Model      string
	Dimension  int
	CreatedAt  time.Time
}
