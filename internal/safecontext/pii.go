package safecontext

import "regexp"

// PII patterns are applied to raw text before any normalization so
// redaction happens before anything can be cached or logged.
var (
	emailPattern  = regexp.MustCompile(`[\w.+-]+@[\w-]+\.[\w.-]+`)
	urlPattern    = regexp.MustCompile(`(?i)\bhttps?://\S+|\bwww\.\S+`)
	phonePattern  = regexp.MustCompile(`\+?\d[\d\s().-]{6,}\d`)
	streetPattern = regexp.MustCompile(
		`(?i)\b\d{1,5}\s+\w+(\s+\w+)?\s+(street|st|avenue|ave|road|rd|boulevard|blvd|lane|ln|drive|dr|way)\b`)
)

// scrubPII removes PII spans and reports whether anything was redacted.
func scrubPII(s string) (string, bool) {
	redacted := false
	for _, p := range []*regexp.Regexp{emailPattern, urlPattern, phonePattern, streetPattern} {
		if p.MatchString(s) {
			redacted = true
			s = p.ReplaceAllString(s, " ")
		}
	}
	return s, redacted
}
