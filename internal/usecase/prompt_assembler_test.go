package usecase

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"context-resolver/internal/domain"
)

func TestAssemble_Refusal(t *testing.T) {
	a := NewPromptAssembler(0, 0)
	decision := domain.ResolutionDecision{Mode: domain.DecisionRefusal, Reason: "no_lexical_signal"}

	prompt := a.Assemble(decision, "what is the g9 turbo", "Be concise.", nil)

	assert.Contains(t, prompt, "No grounded information is available")
	assert.Contains(t, prompt, "Be concise.")
	assert.Contains(t, prompt, "<query>what is the g9 turbo</query>")
	assert.NotContains(t, prompt, "<context>")
}

func TestAssemble_SingleIncludesChunks(t *testing.T) {
	a := NewPromptAssembler(0, 0)
	decision := domain.ResolutionDecision{
		Mode:       domain.DecisionSingle,
		Candidates: []domain.Candidate{{ID: "d1", Title: "IviSkin G3"}},
	}
	chunks := []SupportingChunk{
		{ChunkID: "c1", CandidateID: "d1", Content: "Weighs 230 grams."},
		{ChunkID: "c2", CandidateID: "other", Content: "Belongs elsewhere."},
	}

	prompt := a.Assemble(decision, "g3 weight", "", chunks)

	assert.Contains(t, prompt, "Weighs 230 grams.")
	assert.NotContains(t, prompt, "Belongs elsewhere.")
	assert.Contains(t, prompt, `title="IviSkin G3"`)
}

func TestAssemble_MultiForbidsSpecMerging(t *testing.T) {
	a := NewPromptAssembler(0, 0)
	decision := domain.ResolutionDecision{
		Mode: domain.DecisionMulti,
		Candidates: []domain.Candidate{
			{ID: "d1", Title: "IviSkin G3"},
			{ID: "d2", Title: "Acme G3 Router"},
		},
	}

	prompt := a.Assemble(decision, "g3", "", nil)

	assert.Contains(t, prompt, "Never merge specifications")
	assert.Contains(t, prompt, "ask a clarifying question")
	assert.Contains(t, prompt, `title="IviSkin G3"`)
	assert.Contains(t, prompt, `title="Acme G3 Router"`)
}

func TestAssemble_TokenBudgetSharedAcrossCandidates(t *testing.T) {
	// 100-token multi budget, 50 per candidate. Each chunk below is
	// ~60 tokens, so only one per candidate would fit; a second
	// oversized chunk is skipped rather than starving candidate two.
	a := NewPromptAssembler(0, 100)
	big := strings.Repeat("specification detail ", 12) // ~252 chars, ~63 tokens
	small := "Short fact."

	decision := domain.ResolutionDecision{
		Mode: domain.DecisionMulti,
		Candidates: []domain.Candidate{
			{ID: "d1", Title: "A"},
			{ID: "d2", Title: "B"},
		},
	}
	chunks := []SupportingChunk{
		{ChunkID: "c1", CandidateID: "d1", Content: big},
		{ChunkID: "c2", CandidateID: "d1", Content: small},
		{ChunkID: "c3", CandidateID: "d2", Content: small},
	}

	prompt := a.Assemble(decision, "q", "", chunks)

	// The oversized chunk exceeds the per-candidate share and is
	// dropped; both candidates keep their small chunks.
	assert.NotContains(t, prompt, big)
	assert.Equal(t, 2, strings.Count(prompt, "Short fact."))
}

func TestAssemble_EscapesMarkup(t *testing.T) {
	a := NewPromptAssembler(0, 0)
	decision := domain.ResolutionDecision{
		Mode:       domain.DecisionSingle,
		Candidates: []domain.Candidate{{ID: "d1", Title: "G3 <Pro>"}},
	}

	prompt := a.Assemble(decision, "spec <of> g3", "", nil)
	assert.Contains(t, prompt, "spec &lt;of&gt; g3")
	assert.Contains(t, prompt, "G3 &lt;Pro&gt;")
}
