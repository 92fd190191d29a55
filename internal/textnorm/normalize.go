// Package textnorm provides the deterministic, script-aware text
// normalization used identically at ingestion time and query time.
// Both call sites share this single implementation; any divergence
// would silently break exact-match boosting against the index.
package textnorm

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// nordicReplacer transliterates Nordic letters after case folding.
var nordicReplacer = strings.NewReplacer(
	"æ", "ae",
	"ø", "oe",
	"å", "aa",
	"ä", "ae",
	"ö", "oe",
)

// digitSeparator matches a separator run between a letter and a digit,
// so "g-3", "g.3" and "g_3" all normalize to "g3".
var digitSeparator = regexp.MustCompile(`(\p{L})[-._]+(\d)`)

// Normalize canonicalizes text for indexing and matching:
// Unicode canonical decomposition+recomposition, lowercasing, Nordic
// transliteration, separator collapsing before digits, whitespace
// collapse. Pure and idempotent.
func Normalize(s string) string {
	s = norm.NFC.String(s)
	s = strings.ToLower(s)
	s = nordicReplacer.Replace(s)
	s = digitSeparator.ReplaceAllString(s, "$1$2")
	return strings.Join(strings.Fields(s), " ")
}
