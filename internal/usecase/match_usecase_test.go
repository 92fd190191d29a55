package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"context-resolver/internal/domain"
	"context-resolver/internal/search"
)

func newTestMatcher(t *testing.T, searcher Searcher) MatchUsecase {
	t.Helper()
	u, err := NewMatchUsecase(DefaultMatchConfig(), DefaultScoringConfig(), searcher, discardLogger())
	require.NoError(t, err)
	return u
}

func TestMatch_PageContextBreaksTie(t *testing.T) {
	searcher := new(MockSearcher)
	searcher.On("Search", mock.Anything, "G3", "acme", mock.Anything).Return(g3Rows(), nil)

	u := newTestMatcher(t, searcher)

	out, err := u.Execute(context.Background(), MatchInput{
		Query:  "G3",
		Tenant: "acme",
		Page:   domain.PageContext{Title: "Acme G3 Router product page", Description: "mesh networking"},
	})
	require.NoError(t, err)

	// The router is second on raw scores but within the margin, and
	// the page tokens boost it past the laser device.
	require.NotEmpty(t, out.Candidates)
	assert.Equal(t, "d2", out.Candidates[0].ID)
	assert.NotEmpty(t, out.Candidates[0].BoostsApplied)
}

func TestMatch_LowConfidenceAsksForClarification(t *testing.T) {
	searcher := new(MockSearcher)
	// No page context: the two G3 entities stay nearly tied, both with
	// alias-type matches across different categories.
	searcher.On("Search", mock.Anything, "G3", "acme", mock.Anything).Return(g3Rows(), nil)

	u := newTestMatcher(t, searcher)

	out, err := u.Execute(context.Background(), MatchInput{Query: "G3", Tenant: "acme"})
	require.NoError(t, err)

	assert.True(t, out.NeedsClarification)
	assert.Nil(t, out.Matched)
	assert.Len(t, out.Candidates, 2)
	assert.Less(t, out.Confidence, 0.6)
}

func TestMatch_ConfidentWinner(t *testing.T) {
	searcher := new(MockSearcher)
	searcher.On("Search", mock.Anything, "iviskin g3 laser", "acme", mock.Anything).Return([]search.Result{
		{
			Row: domain.SearchRow{
				ChunkID: "c1", DocumentID: "d1", Title: "IviSkin G3",
				Brand: "IviSkin", Model: "G3", Category: "beauty-devices",
				Content: "Laser hair removal device.",
			},
			VectorScore: 0.9, KeywordScore: 0.2, Merged: 0.66, Source: domain.ScoreSourceVector,
		},
		{
			Row: domain.SearchRow{
				ChunkID: "c2", DocumentID: "d2", Title: "Garden Hose Pro",
				Category: "garden", Content: "Expandable hose.",
			},
			VectorScore: 0.2, KeywordScore: 0.01, Merged: 0.36, Source: domain.ScoreSourceVector,
		},
	}, nil)

	u := newTestMatcher(t, searcher)

	out, err := u.Execute(context.Background(), MatchInput{Query: "iviskin g3 laser", Tenant: "acme"})
	require.NoError(t, err)

	assert.False(t, out.NeedsClarification)
	require.NotNil(t, out.Matched)
	assert.Equal(t, "d1", out.Matched.ID)
}

func TestMatch_NoCandidates(t *testing.T) {
	searcher := new(MockSearcher)
	searcher.On("Search", mock.Anything, mock.Anything, "acme", mock.Anything).Return([]search.Result{}, nil)

	u := newTestMatcher(t, searcher)
	out, err := u.Execute(context.Background(), MatchInput{Query: "unknown", Tenant: "acme"})
	require.NoError(t, err)
	assert.Nil(t, out.Matched)
	assert.Empty(t, out.Candidates)
}

func TestMatch_EmptyQuery(t *testing.T) {
	u := newTestMatcher(t, new(MockSearcher))
	_, err := u.Execute(context.Background(), MatchInput{Tenant: "acme"})
	assert.Error(t, err)
}
