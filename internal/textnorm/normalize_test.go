package textnorm_test

import (
	"testing"

	"context-resolver/internal/textnorm"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercases", "Hello World", "hello world"},
		{"nordic ae", "Blåbær", "blaabaer"},
		{"nordic oe", "Smørrebrød", "smoerrebroed"},
		{"swedish umlauts", "Köttbullar på vägen", "koettbullar paa vaegen"},
		{"digit separator dash", "G-3", "g3"},
		{"digit separator dot", "g.3", "g3"},
		{"digit separator underscore", "g_3", "g3"},
		{"digit separator run", "g-.3", "g3"},
		{"separator between digits untouched", "1-2", "1-2"},
		{"space is a word boundary not a joiner", "g 3", "g 3"},
		{"spaced model number keeps its words", "model 3 review", "model 3 review"},
		{"whitespace collapse", "  a \t b\n c  ", "a b c"},
		{"mixed", "IviSkin  G-4 Pro", "iviskin g4 pro"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, textnorm.Normalize(tt.input))
		})
	}
}

// Combining-mark inputs must land on the same bytes as their precomposed
// forms: the index side and the query side may receive either encoding.
func TestNormalize_CanonicalEquivalence(t *testing.T) {
	precomposed := "blåbær" // blåbær
	decomposed := "blåbær" // a + combining ring above
	assert.Equal(t, textnorm.Normalize(precomposed), textnorm.Normalize(decomposed))
	assert.Equal(t, "blaabaer", textnorm.Normalize(decomposed))
}

func TestNormalize_Idempotent(t *testing.T) {
	corpus := []string{
		"Blåbær G-3 Pro",
		"SMØRREBRØD.2000",
		"  Ärta   ö-1  ",
		"ascii only text 42",
		"ångström Å-9",
	}
	for _, s := range corpus {
		once := textnorm.Normalize(s)
		assert.Equal(t, once, textnorm.Normalize(once), "not idempotent for %q", s)
	}
}
