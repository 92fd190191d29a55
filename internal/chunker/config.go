package chunker

import "fmt"

// Config holds the chunking bounds. All sizes are approximate token
// counts (~4 characters per token).
type Config struct {
	// ChunkSize is the soft upper bound a chunk is packed toward.
	ChunkSize int
	// ChunkOverlap is the word-aligned tail of the previous chunk
	// prepended to the next one.
	ChunkOverlap int
	// MinChunkSize drops a trailing chunk shorter than this.
	MinChunkSize int
	// MaxChunkSize force-splits a single oversized sentence.
	MaxChunkSize int
	// SplitParagraphs splits on blank lines before sentence packing.
	SplitParagraphs bool
}

// DefaultConfig returns the chunking bounds used in production.
func DefaultConfig() Config {
	return Config{
		ChunkSize:       400,
		ChunkOverlap:    50,
		MinChunkSize:    40,
		MaxChunkSize:    600,
		SplitParagraphs: true,
	}
}

// Validate rejects inconsistent bounds at construction time.
func (c Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunkSize must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 {
		return fmt.Errorf("chunkOverlap must be non-negative, got %d", c.ChunkOverlap)
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("chunkOverlap (%d) must be smaller than chunkSize (%d)", c.ChunkOverlap, c.ChunkSize)
	}
	if c.MinChunkSize > c.ChunkSize {
		return fmt.Errorf("minChunkSize (%d) must not exceed chunkSize (%d)", c.MinChunkSize, c.ChunkSize)
	}
	if c.MaxChunkSize < c.ChunkSize {
		return fmt.Errorf("maxChunkSize (%d) must not be smaller than chunkSize (%d)", c.MaxChunkSize, c.ChunkSize)
	}
	return nil
}
