package usecase

import (
	"context"
	"fmt"
	"strings"

	"context-resolver/internal/domain"
	"context-resolver/internal/search"
	"context-resolver/internal/textnorm"
)

// SupportingChunk is one chunk selected to ground a candidate's answer.
type SupportingChunk struct {
	ChunkID     string
	CandidateID string
	Title       string
	Content     string
	Score       float64
}

// Searcher is the slice of the hybrid search service the resolution
// engine depends on.
type Searcher interface {
	Search(ctx context.Context, query, tenant string, opts search.Options) ([]search.Result, error)
}

// chunkFetcher retrieves supporting chunks for a decided candidate.
// The secondary query is built from the candidate's own identity, not
// the user's raw query, so a literal query hit on a different entity
// cannot leak its chunks into this candidate's context.
type chunkFetcher struct {
	searcher Searcher
}

func newChunkFetcher(searcher Searcher) *chunkFetcher {
	return &chunkFetcher{searcher: searcher}
}

// ChunksForCandidate searches with the candidate's identity and keeps
// only chunks that pass the entity post-filter.
func (f *chunkFetcher) ChunksForCandidate(ctx context.Context, candidate domain.Candidate, tenant string, limit int) ([]SupportingChunk, error) {
	query := identityQuery(candidate)
	if query == "" {
		return nil, nil
	}

	// Over-fetch so the post-filter still has enough rows to choose from.
	results, err := f.searcher.Search(ctx, query, tenant, search.Options{Limit: limit * 3})
	if err != nil {
		return nil, fmt.Errorf("candidate chunk search failed: %w", err)
	}

	chunks := make([]SupportingChunk, 0, limit)
	for _, r := range results {
		if !matchesCandidate(candidate, r.Row.Content) {
			continue
		}
		chunks = append(chunks, SupportingChunk{
			ChunkID:     r.Row.ChunkID,
			CandidateID: candidate.ID,
			Title:       r.Row.Title,
			Content:     r.Row.Content,
			Score:       r.Merged,
		})
		if len(chunks) == limit {
			break
		}
	}
	return chunks, nil
}

// identityQuery prefers brand+model and falls back to the title.
func identityQuery(c domain.Candidate) string {
	if c.Brand != "" && c.Model != "" {
		return c.Brand + " " + c.Model
	}
	return strings.TrimSpace(c.Title)
}

// matchesCandidate applies the entity post-filter. Brand+model
// candidates require both substrings in the normalized chunk;
// title-only candidates require at least 2 meaningful title tokens, or
// half of them, to appear.
func matchesCandidate(c domain.Candidate, content string) bool {
	normContent := textnorm.Normalize(content)

	if c.Brand != "" && c.Model != "" {
		return strings.Contains(normContent, textnorm.Normalize(c.Brand)) &&
			strings.Contains(normContent, textnorm.Normalize(c.Model))
	}

	tokens := meaningfulTitleTokens(c.Title)
	if len(tokens) == 0 {
		return false
	}
	matched := 0
	for _, tok := range tokens {
		if strings.Contains(normContent, tok) {
			matched++
		}
	}
	if matched >= 2 {
		return true
	}
	return float64(matched) >= 0.5*float64(len(tokens))
}
