package terms_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"context-resolver/internal/domain"
	"context-resolver/internal/terms"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockTermStatsClient struct {
	mock.Mock
}

func (m *MockTermStatsClient) DocumentCounts(ctx context.Context, tenant string, ts []string) ([]domain.TermStats, error) {
	args := m.Called(ctx, tenant, ts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TermStats), args.Error(1)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestValidateTerms_KeepsAndDropsPerPolicy(t *testing.T) {
	stats := new(MockTermStatsClient)
	stats.On("DocumentCounts", mock.Anything, "site-1", []string{"g3", "zzz"}).Return([]domain.TermStats{
		{Term: "g3", DocCount: 4, Kept: true},
		{Term: "zzz", DocCount: 0, Kept: false},
	}, nil)

	v := terms.NewValidator(stats, 16, time.Minute, discardLogger())
	res := v.ValidateTerms(context.Background(), "site-1", []string{"g3", "zzz"})

	assert.Equal(t, []string{"g3"}, res.Kept)
	require.Len(t, res.Dropped, 1)
	assert.Equal(t, "zzz", res.Dropped[0].Term)
	assert.False(t, res.LookupFailed)
	stats.AssertExpectations(t)
}

func TestValidateTerms_BatchesMissesIntoOneLookup(t *testing.T) {
	stats := new(MockTermStatsClient)
	stats.On("DocumentCounts", mock.Anything, "site-1", []string{"g3", "weight"}).Return([]domain.TermStats{
		{Term: "g3", DocCount: 4, Kept: true},
		{Term: "weight", DocCount: 2, Kept: true},
	}, nil).Once()

	v := terms.NewValidator(stats, 16, time.Minute, discardLogger())

	first := v.ValidateTerms(context.Background(), "site-1", []string{"g3", "weight"})
	assert.Equal(t, 0, first.CacheHits)

	// Second call is fully served from the cache: no further lookup.
	second := v.ValidateTerms(context.Background(), "site-1", []string{"g3", "weight"})
	assert.Equal(t, 2, second.CacheHits)
	assert.Equal(t, []string{"g3", "weight"}, second.Kept)
	stats.AssertExpectations(t)
}

func TestValidateTerms_LookupFailureDropsConservatively(t *testing.T) {
	stats := new(MockTermStatsClient)
	stats.On("DocumentCounts", mock.Anything, "site-1", []string{"g3"}).Return(nil, assert.AnError)

	v := terms.NewValidator(stats, 16, time.Minute, discardLogger())
	res := v.ValidateTerms(context.Background(), "site-1", []string{"g3"})

	assert.True(t, res.LookupFailed)
	assert.Empty(t, res.Kept)
	require.Len(t, res.Dropped, 1)
	assert.Equal(t, terms.ReasonValidationError, res.Dropped[0].Reason)
}

func TestValidateTerms_CacheIsTenantScoped(t *testing.T) {
	stats := new(MockTermStatsClient)
	stats.On("DocumentCounts", mock.Anything, "site-1", []string{"g3"}).Return([]domain.TermStats{
		{Term: "g3", DocCount: 4, Kept: true},
	}, nil).Once()
	stats.On("DocumentCounts", mock.Anything, "site-2", []string{"g3"}).Return([]domain.TermStats{
		{Term: "g3", DocCount: 0, Kept: false},
	}, nil).Once()

	v := terms.NewValidator(stats, 16, time.Minute, discardLogger())

	a := v.ValidateTerms(context.Background(), "site-1", []string{"g3"})
	b := v.ValidateTerms(context.Background(), "site-2", []string{"g3"})

	assert.Equal(t, []string{"g3"}, a.Kept)
	assert.Empty(t, b.Kept, "tenants must not share cached validation results")
	stats.AssertExpectations(t)
}

func TestValidateTerms_MissingTermInResponseIsDropped(t *testing.T) {
	stats := new(MockTermStatsClient)
	stats.On("DocumentCounts", mock.Anything, "site-1", []string{"ghost"}).Return([]domain.TermStats{}, nil)

	v := terms.NewValidator(stats, 16, time.Minute, discardLogger())
	res := v.ValidateTerms(context.Background(), "site-1", []string{"ghost"})

	assert.Empty(t, res.Kept)
	require.Len(t, res.Dropped, 1)
	assert.Equal(t, "corpus_policy", res.Dropped[0].Reason)
}
