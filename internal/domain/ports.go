package domain

import (
	"context"
)

// Embedder defines the capability to turn text into embedding vectors.
// EmbedBatch implementations split large inputs into provider-sized
// sub-batches executed sequentially to respect provider rate limits.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	ModelName() string
	Dimension() int
	MaxInputSize() int
}

// Reranker defines the interface for cross-encoder reranking.
// If an error occurs, callers fall back to the pre-rerank scores.
type Reranker interface {
	Rerank(ctx context.Context, query string, documents []RerankDocument) ([]RerankScore, error)
	ModelName() string
}

// RerankDocument is a candidate document for reranking.
type RerankDocument struct {
	ID      string
	Content string
}

// RerankScore is a reranked document's relevance score.
type RerankScore struct {
	ID    string
	Score float64
}

// SearchRow is one row from the storage backend's vector or keyword
// search operators, scoped to a tenant and its active documents.
type SearchRow struct {
	ChunkID    string
	DocumentID string
	Title      string
	Brand      string
	Model      string
	Category   string
	Content    string
	Score      float64 // cosine similarity for vector rows, ts_rank for FTS rows, similarity for trigram rows
}

// ChunkRepository defines the storage operations this core layers its
// query shaping on. The primitive vector/full-text/trigram operators
// themselves live in the store.
type ChunkRepository interface {
	// VectorSearch returns chunk rows ranked by cosine similarity.
	VectorSearch(ctx context.Context, tenant string, queryVector []float32, limit int) ([]SearchRow, error)

	// KeywordSearch returns chunk rows ranked by full-text relevance.
	KeywordSearch(ctx context.Context, tenant, query string, limit int) ([]SearchRow, error)

	// TrigramSearch returns chunk rows by substring/trigram similarity.
	// Fallback path for scripts the keyword tokenizer cannot segment.
	TrigramSearch(ctx context.Context, tenant, query string, limit int) ([]SearchRow, error)

	// ReplaceChunks atomically replaces a document's chunks (delete-then-insert).
	ReplaceChunks(ctx context.Context, documentID string, chunks []StoredChunk) error

	// DeleteChunks removes all chunks owned by a document.
	DeleteChunks(ctx context.Context, documentID string) error
}

// TransactionManager runs a function within a single database
// transaction, rolling back on error or panic.
type TransactionManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// TermStats is the per-term document-frequency statistic returned by the
// corpus statistics lookup.
type TermStats struct {
	Term     string
	DocCount int
	Kept     bool
}

// TermStatsClient resolves corpus document-frequency statistics for a
// batch of terms, scoped by tenant. The keep policy (absent or too
// common terms are dropped) is applied server side.
type TermStatsClient interface {
	DocumentCounts(ctx context.Context, tenant string, terms []string) ([]TermStats, error)
}

// TelemetryStore appends one flattened resolution record. Failures are
// logged locally only and never retried synchronously.
type TelemetryStore interface {
	Insert(ctx context.Context, record TelemetryRecord) error
}
