package rerank

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"context-resolver/internal/textnorm"
)

func fieldsTokenizer(s string) []string {
	return strings.Fields(textnorm.Normalize(s))
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{MarginThreshold: 0.8, MaxTotalBoost: 0.25, ConfidenceThreshold: 0.6}, false},
		{"margin disabled", Config{MarginThreshold: 0, MaxTotalBoost: 0.25, ConfidenceThreshold: 0.5}, false},
		{"margin over one", Config{MarginThreshold: 1.2}, true},
		{"negative boost cap", Config{MaxTotalBoost: -0.1}, true},
		{"confidence over one", Config{ConfidenceThreshold: 1.5}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRerank_BoostWithinMargin(t *testing.T) {
	boost := func(it Item) (float64, []string) {
		if it.ID == "b" {
			return 0.2, []string{"context_term:g3"}
		}
		return 0, nil
	}
	r, err := New(Config{MarginThreshold: 0.8, MaxTotalBoost: 0.25, ConfidenceThreshold: 0.3}, boost)
	require.NoError(t, err)

	res := r.Rerank([]Item{
		{ID: "a", Score: 0.90},
		{ID: "b", Score: 0.85},
	}, 3)

	// b is within 0.8*0.90 and its boosted score 1.02 overtakes a.
	assert.Equal(t, "b", res.Items[0].ID)
	assert.InDelta(t, 0.85*1.2, res.Items[0].Boosted, 1e-9)
	assert.Equal(t, []string{"context_term:g3"}, res.Items[0].BoostsApplied)
}

func TestRerank_MarginBlocksWeakCandidate(t *testing.T) {
	// c gets a huge boost but sits below the margin floor, so it must
	// not be promoted past the stronger candidates.
	boost := func(it Item) (float64, []string) {
		if it.ID == "c" {
			return 10.0, []string{"context_term:pro"}
		}
		return 0, nil
	}
	r, err := New(Config{MarginThreshold: 0.8, MaxTotalBoost: 0.25, ConfidenceThreshold: 0.3}, boost)
	require.NoError(t, err)

	res := r.Rerank([]Item{
		{ID: "a", Score: 0.90},
		{ID: "b", Score: 0.80},
		{ID: "c", Score: 0.40},
	}, 3)

	assert.Equal(t, []string{"a", "b", "c"}, []string{res.Items[0].ID, res.Items[1].ID, res.Items[2].ID})
	// The boost is still capped even when it cannot reorder.
	assert.InDelta(t, 0.40*1.25, res.Items[2].Boosted, 1e-9)
}

func TestRerank_MarginDisabledSortsEverything(t *testing.T) {
	boost := func(it Item) (float64, []string) {
		if it.ID == "c" {
			return 0.25, nil
		}
		return 0, nil
	}
	r, err := New(Config{MarginThreshold: 0, MaxTotalBoost: 0.25, ConfidenceThreshold: 0.3}, boost)
	require.NoError(t, err)

	res := r.Rerank([]Item{
		{ID: "a", Score: 0.50},
		{ID: "b", Score: 0.48},
		{ID: "c", Score: 0.45},
	}, 3)

	assert.Equal(t, "c", res.Items[0].ID)
}

func TestRerank_SingleCandidateFullConfidence(t *testing.T) {
	r, err := New(Config{MarginThreshold: 0.8, MaxTotalBoost: 0.25, ConfidenceThreshold: 0.6}, nil)
	require.NoError(t, err)

	res := r.Rerank([]Item{{ID: "a", Score: 0.7}}, 2)
	assert.Equal(t, 1.0, res.Confidence)
	assert.False(t, res.NeedsClarification)
}

func TestRerank_ConfidencePenalties(t *testing.T) {
	r, err := New(Config{MarginThreshold: 0.8, MaxTotalBoost: 0.25, ConfidenceThreshold: 0.6}, nil)
	require.NoError(t, err)

	close2 := []Item{
		{ID: "a", Score: 0.80, AliasMatch: true, Category: "beauty-devices"},
		{ID: "b", Score: 0.79, AliasMatch: true, Category: "networking"},
	}

	// Multi-token query: small gap, alias penalty, category penalty.
	multi := r.Rerank(close2, 3)
	// Single-token query takes a further penalty.
	single := r.Rerank(close2, 1)

	assert.Less(t, single.Confidence, multi.Confidence)
	assert.True(t, single.NeedsClarification)
	assert.True(t, multi.NeedsClarification)
}

func TestRerank_ClearWinnerIsConfident(t *testing.T) {
	r, err := New(Config{MarginThreshold: 0.8, MaxTotalBoost: 0.25, ConfidenceThreshold: 0.6}, nil)
	require.NoError(t, err)

	res := r.Rerank([]Item{
		{ID: "a", Score: 0.90, Category: "beauty-devices"},
		{ID: "b", Score: 0.40, Category: "beauty-devices"},
	}, 3)

	assert.Equal(t, "a", res.Items[0].ID)
	assert.False(t, res.NeedsClarification)
	assert.GreaterOrEqual(t, res.Confidence, 0.6)
}

func TestRerank_EmptyInput(t *testing.T) {
	r, err := New(Config{MarginThreshold: 0.8, MaxTotalBoost: 0.25, ConfidenceThreshold: 0.6}, nil)
	require.NoError(t, err)

	res := r.Rerank(nil, 0)
	assert.Empty(t, res.Items)
	assert.False(t, res.NeedsClarification)
}

func TestTokenOverlapBoost(t *testing.T) {
	boost := TokenOverlapBoost(fieldsTokenizer, []string{"g3", "laser hair"}, 0.1)

	b, labels := boost(Item{Title: "IviSkin G3", Content: "Laser hair removal device."})
	assert.InDelta(t, 0.2, b, 1e-9)
	assert.Equal(t, []string{"context_term:g3", "context_term:laser hair"}, labels)

	b, labels = boost(Item{Title: "Acme Router", Content: "Mesh wifi."})
	assert.Zero(t, b)
	assert.Empty(t, labels)
}

func TestTokenOverlapBoost_NoContext(t *testing.T) {
	boost := TokenOverlapBoost(fieldsTokenizer, nil, 0.1)
	b, labels := boost(Item{Title: "IviSkin G3"})
	assert.Zero(t, b)
	assert.Nil(t, labels)
}
