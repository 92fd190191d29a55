package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"context-resolver/internal/domain"
	"context-resolver/internal/search"
)

type MockSearcher struct {
	mock.Mock
}

func (m *MockSearcher) Search(ctx context.Context, query, tenant string, opts search.Options) ([]search.Result, error) {
	args := m.Called(ctx, query, tenant, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]search.Result), args.Error(1)
}

func TestChunksForCandidate_BrandModelQueryAndFilter(t *testing.T) {
	searcher := new(MockSearcher)
	// Identity query, never the user's raw query.
	searcher.On("Search", mock.Anything, "IviSkin G3", "acme", search.Options{Limit: 6}).Return([]search.Result{
		{Row: domain.SearchRow{ChunkID: "c1", Content: "The IviSkin G-3 weighs 230 grams."}, Merged: 0.8},
		{Row: domain.SearchRow{ChunkID: "c2", Content: "The Acme G3 router has four antennas."}, Merged: 0.7},
		{Row: domain.SearchRow{ChunkID: "c3", Content: "IviSkin devices ship worldwide."}, Merged: 0.6},
	}, nil)

	f := newChunkFetcher(searcher)
	candidate := domain.Candidate{ID: "d1", Brand: "IviSkin", Model: "G3"}

	chunks, err := f.ChunksForCandidate(context.Background(), candidate, "acme", 2)
	require.NoError(t, err)

	// c2 names a different brand, c3 lacks the model. Only c1 passes.
	require.Len(t, chunks, 1)
	assert.Equal(t, "c1", chunks[0].ChunkID)
	assert.Equal(t, "d1", chunks[0].CandidateID)
}

func TestChunksForCandidate_TitleTokenOverlap(t *testing.T) {
	searcher := new(MockSearcher)
	searcher.On("Search", mock.Anything, "Premium Support Bundle", "acme", mock.Anything).Return([]search.Result{
		{Row: domain.SearchRow{ChunkID: "c1", Content: "The support bundle includes 24/7 phone assistance."}, Merged: 0.8},
		{Row: domain.SearchRow{ChunkID: "c2", Content: "Shipping takes 3-5 business days."}, Merged: 0.7},
	}, nil)

	f := newChunkFetcher(searcher)
	// Title-only candidate; "premium" is a tier word and is ignored.
	candidate := domain.Candidate{ID: "d1", Title: "Premium Support Bundle"}

	chunks, err := f.ChunksForCandidate(context.Background(), candidate, "acme", 5)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "c1", chunks[0].ChunkID)
}

func TestChunksForCandidate_LimitApplied(t *testing.T) {
	searcher := new(MockSearcher)
	searcher.On("Search", mock.Anything, mock.Anything, "acme", mock.Anything).Return([]search.Result{
		{Row: domain.SearchRow{ChunkID: "c1", Content: "iviskin g3 spec one"}, Merged: 0.9},
		{Row: domain.SearchRow{ChunkID: "c2", Content: "iviskin g3 spec two"}, Merged: 0.8},
		{Row: domain.SearchRow{ChunkID: "c3", Content: "iviskin g3 spec three"}, Merged: 0.7},
	}, nil)

	f := newChunkFetcher(searcher)
	chunks, err := f.ChunksForCandidate(context.Background(), domain.Candidate{ID: "d1", Brand: "IviSkin", Model: "G3"}, "acme", 2)
	require.NoError(t, err)
	assert.Len(t, chunks, 2)
}

func TestChunksForCandidate_EmptyIdentity(t *testing.T) {
	f := newChunkFetcher(new(MockSearcher))
	chunks, err := f.ChunksForCandidate(context.Background(), domain.Candidate{ID: "d1"}, "acme", 2)
	require.NoError(t, err)
	assert.Nil(t, chunks)
}

func TestChunksForCandidate_SearchError(t *testing.T) {
	searcher := new(MockSearcher)
	searcher.On("Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("backend down"))

	f := newChunkFetcher(searcher)
	_, err := f.ChunksForCandidate(context.Background(), domain.Candidate{ID: "d1", Title: "IviSkin G3"}, "acme", 2)
	assert.Error(t, err)
}

func TestMatchesCandidate_NordicNormalization(t *testing.T) {
	// Normalization applies to both sides of the substring check.
	candidate := domain.Candidate{Brand: "Sönd", Model: "X-2"}
	assert.True(t, matchesCandidate(candidate, "The Soend X2 comes with a charger."))
	assert.False(t, matchesCandidate(candidate, "The Soend S5 comes with a charger."))
}
