package search

import "fmt"

// Config holds the hybrid search tuning knobs.
type Config struct {
	// VectorWeight is the share of the merged score carried by cosine
	// similarity. Keyword hits contribute 0.5*(1-VectorWeight).
	VectorWeight float64
	// SimilarityThreshold drops merged results below this score.
	SimilarityThreshold float64
	// PoolSize is how many rows each backend operator is asked for
	// before merging and truncation.
	PoolSize int
	// DefaultLimit applies when the caller passes no limit.
	DefaultLimit int
	// RerankPoolSize bounds how many merged rows are sent to the
	// cross-encoder when reranking is enabled.
	RerankPoolSize int
}

// DefaultConfig returns the tuned production defaults.
func DefaultConfig() Config {
	return Config{
		VectorWeight:        0.7,
		SimilarityThreshold: 0.35,
		PoolSize:            30,
		DefaultLimit:        10,
		RerankPoolSize:      15,
	}
}

// Validate checks the config for internally consistent values.
func (c Config) Validate() error {
	if c.VectorWeight <= 0 || c.VectorWeight > 1 {
		return fmt.Errorf("vectorWeight must be in (0,1], got %f", c.VectorWeight)
	}
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold >= 1 {
		return fmt.Errorf("similarityThreshold must be in [0,1), got %f", c.SimilarityThreshold)
	}
	if c.PoolSize <= 0 {
		return fmt.Errorf("poolSize must be positive, got %d", c.PoolSize)
	}
	if c.DefaultLimit <= 0 {
		return fmt.Errorf("defaultLimit must be positive, got %d", c.DefaultLimit)
	}
	if c.RerankPoolSize <= 0 {
		return fmt.Errorf("rerankPoolSize must be positive, got %d", c.RerankPoolSize)
	}
	return nil
}
