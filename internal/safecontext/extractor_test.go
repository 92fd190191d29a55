package safecontext_test

import (
	"strings"
	"testing"

	"context-resolver/internal/domain"
	"context-resolver/internal/safecontext"

	"github.com/stretchr/testify/assert"
)

func TestExtract_RedactsEmail(t *testing.T) {
	e := safecontext.NewExtractor(nil)

	sc := e.Extract(nil, domain.PageContext{
		Title:       "Contact support",
		Description: "Write to support@example.com for help with lasers",
	})

	assert.True(t, sc.QueryRedacted)
	for _, term := range sc.Terms {
		assert.NotContains(t, term, "@")
		assert.NotContains(t, term, "example")
	}
}

func TestExtract_RedactsPhoneAndURL(t *testing.T) {
	e := safecontext.NewExtractor(nil)

	sc := e.Extract([]domain.ConversationMessage{
		{Role: "user", Content: "call me at +45 12 34 56 78 or see https://example.com/offer"},
	}, domain.PageContext{})

	assert.True(t, sc.QueryRedacted)
	joined := strings.Join(sc.Terms, " ")
	assert.NotContains(t, joined, "example")
	assert.NotContains(t, joined, "45")
}

func TestExtract_OnlyLastTwoTurns(t *testing.T) {
	e := safecontext.NewExtractor(nil)

	sc := e.Extract([]domain.ConversationMessage{
		{Role: "user", Content: "ancient history about telescopes"},
		{Role: "assistant", Content: "something older about pianos"},
		{Role: "user", Content: "recent question about routers"},
		{Role: "assistant", Content: "answer mentioning firmware"},
	}, domain.PageContext{})

	joined := strings.Join(sc.Terms, " ")
	assert.NotContains(t, joined, "telescopes")
	assert.NotContains(t, joined, "pianos")
	assert.Contains(t, joined, "routers")
}

func TestExtract_CapsTermsAndLength(t *testing.T) {
	e := safecontext.NewExtractor(nil)

	sc := e.Extract([]domain.ConversationMessage{
		{Role: "user", Content: "alpha bravo charlie delta echo foxtrot golf hotel india"},
	}, domain.PageContext{})

	assert.LessOrEqual(t, len(sc.Terms), 5)
	assert.LessOrEqual(t, len(strings.Join(sc.Terms, " ")), 120)
}

func TestExtract_DenylistAndDedupe(t *testing.T) {
	e := safecontext.NewExtractor([]string{"banner"})

	sc := e.Extract([]domain.ConversationMessage{
		{Role: "user", Content: "welcome banner lasers lasers shipping"},
	}, domain.PageContext{})

	joined := strings.Join(sc.Terms, " ")
	assert.NotContains(t, joined, "welcome")
	assert.NotContains(t, joined, "banner")
	assert.Equal(t, 1, strings.Count(joined, "lasers"))
}

func TestExtract_CategoryHintFromTitle(t *testing.T) {
	e := safecontext.NewExtractor(nil)

	sc := e.Extract(nil, domain.PageContext{Title: "Laser hair removal devices"})
	assert.Equal(t, "beauty-devices", sc.CategoryHint)

	sc = e.Extract(nil, domain.PageContext{Title: "About our company"})
	assert.Empty(t, sc.CategoryHint)
}

func TestExtract_NoPIIMeansNoRedactionFlag(t *testing.T) {
	e := safecontext.NewExtractor(nil)

	sc := e.Extract([]domain.ConversationMessage{
		{Role: "user", Content: "how heavy is the g3"},
	}, domain.PageContext{Title: "Product specs"})

	assert.False(t, sc.QueryRedacted)
}
