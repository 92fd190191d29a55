package ambiguity_test

import (
	"testing"

	"context-resolver/internal/ambiguity"

	"github.com/stretchr/testify/assert"
)

func TestDetect_ShortCodeAlone(t *testing.T) {
	d := ambiguity.New()

	res := d.Detect("G3")
	assert.True(t, res.Ambiguous)
	assert.InDelta(t, 0.4, res.Score, 1e-9)
	assert.Contains(t, res.Reasons, "short_code:g3")
}

// The brand guard: an explicit brand qualifies the code, so the query
// must not trigger disambiguation.
func TestDetect_BrandGuard(t *testing.T) {
	d := ambiguity.New()

	res := d.Detect("Acme G3")
	assert.False(t, res.Ambiguous)
	assert.Zero(t, res.Score)
	assert.Contains(t, res.Reasons, "brand_guard")
}

func TestDetect_BrandGuardRegressionSet(t *testing.T) {
	d := ambiguity.New()
	tests := []struct {
		query     string
		ambiguous bool
	}{
		{"G3", true},
		{"Acme G3", false},
		{"iviskin g3 weight", false},
		{"g3 pro", true},
		{"pro", true},
		{"mk4", true},
		{"what is the weather", false},
	}
	for _, tt := range tests {
		res := d.Detect(tt.query)
		assert.Equal(t, tt.ambiguous, res.Ambiguous, "query %q", tt.query)
	}
}

func TestDetect_TierWords(t *testing.T) {
	d := ambiguity.New()

	res := d.Detect("max mini")
	assert.True(t, res.Ambiguous)
	assert.InDelta(t, 0.8, res.Score, 1e-9)
}

func TestDetect_ScoreCappedAtOne(t *testing.T) {
	d := ambiguity.New()

	res := d.Detect("g3 x4 pro max")
	assert.True(t, res.Ambiguous)
	assert.Equal(t, 1.0, res.Score)
}

func TestDetect_MixedAlnum(t *testing.T) {
	d := ambiguity.New()

	res := d.Detect("ab12")
	assert.True(t, res.Ambiguous)
	assert.Contains(t, res.Reasons, "mixed_alnum:ab12")
}

func TestDetect_PlainSentenceNotAmbiguous(t *testing.T) {
	d := ambiguity.New()

	res := d.Detect("how long does shipping take")
	assert.False(t, res.Ambiguous)
	assert.Zero(t, res.Score)
}

// Determinism: same query, same result.
func TestDetect_Deterministic(t *testing.T) {
	d := ambiguity.New()
	first := d.Detect("g3 pro")
	second := d.Detect("g3 pro")
	assert.Equal(t, first, second)
}
