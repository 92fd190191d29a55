package textnorm

import "unicode"

// unsegmentedScripts are scripts where whitespace-based word
// segmentation is unreliable; queries containing them take the
// trigram fallback path instead of term extraction.
var unsegmentedScripts = []*unicode.RangeTable{
	unicode.Han,
	unicode.Hiragana,
	unicode.Katakana,
	unicode.Hangul,
	unicode.Thai,
	unicode.Arabic,
	unicode.Hebrew,
}

// HasUnsegmentedScript reports whether s contains CJK, Thai, Arabic or
// Hebrew runes.
func HasUnsegmentedScript(s string) bool {
	for _, r := range s {
		for _, table := range unsegmentedScripts {
			if unicode.Is(table, r) {
				return true
			}
		}
	}
	return false
}
