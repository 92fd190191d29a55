package usecase

import (
	"fmt"
	"strings"

	"context-resolver/internal/domain"
)

const (
	defaultSingleTokenBudget = 2000
	defaultMultiTokenBudget  = 1500
)

// refusalInstruction is the canned payload for refusals. No chunks are
// attached; the downstream consumer must not improvise an answer.
const refusalInstruction = "No grounded information is available for this question. " +
	"State that you do not have documentation covering it and suggest rephrasing " +
	"with a product or service name. Do not answer from general knowledge."

// multiGuardInstruction keeps a two-candidate prompt from blending the
// entities together.
const multiGuardInstruction = "The context contains TWO distinct candidates. " +
	"Never merge specifications, prices, or capabilities across them. " +
	"Present them separately, and if it is unclear which one the user means, " +
	"ask a clarifying question naming both."

// PromptAssembler renders the final contextual payload handed to the
// chat-response layer.
type PromptAssembler struct {
	singleBudget int
	multiBudget  int
}

// NewPromptAssembler creates an assembler; non-positive budgets fall
// back to the defaults.
func NewPromptAssembler(singleBudget, multiBudget int) *PromptAssembler {
	if singleBudget <= 0 {
		singleBudget = defaultSingleTokenBudget
	}
	if multiBudget <= 0 {
		multiBudget = defaultMultiTokenBudget
	}
	return &PromptAssembler{singleBudget: singleBudget, multiBudget: multiBudget}
}

// Assemble renders the prompt for a decision and its supporting
// chunks. Chunks are included in score order until the token budget is
// exhausted; for Multi the budget is shared so both candidates stay
// represented.
func (a *PromptAssembler) Assemble(decision domain.ResolutionDecision, query, baseInstructions string, chunks []SupportingChunk) string {
	var sb strings.Builder

	sb.WriteString("<instructions>\n")
	if baseInstructions != "" {
		sb.WriteString("  <line>")
		sb.WriteString(escapeXML(baseInstructions))
		sb.WriteString("</line>\n")
	}

	switch decision.Mode {
	case domain.DecisionRefusal:
		sb.WriteString("  <line>")
		sb.WriteString(escapeXML(refusalInstruction))
		sb.WriteString("</line>\n")
		sb.WriteString("</instructions>\n\n")
		a.writeQuery(&sb, query)
		return sb.String()
	case domain.DecisionMulti:
		sb.WriteString("  <line>")
		sb.WriteString(escapeXML(multiGuardInstruction))
		sb.WriteString("</line>\n")
	default:
		sb.WriteString("  <line>Answer using ONLY the facts inside <context>.</line>\n")
	}
	sb.WriteString("</instructions>\n\n")

	budget := a.singleBudget
	if decision.Mode == domain.DecisionMulti {
		budget = a.multiBudget
	}

	// Split the budget evenly so a verbose first candidate cannot
	// crowd the second one out of a Multi prompt.
	perCandidate := budget / len(decision.Candidates)

	sb.WriteString("<context>\n")
	for _, cand := range decision.Candidates {
		remaining := perCandidate
		sb.WriteString(fmt.Sprintf("  <candidate id=%q title=%q>\n",
			escapeXML(cand.ID), escapeXML(cand.Title)))
		for _, chunk := range chunks {
			if chunk.CandidateID != cand.ID {
				continue
			}
			cost := estimatePromptTokens(chunk.Content)
			if cost > remaining {
				continue
			}
			remaining -= cost
			sb.WriteString("    <chunk id=\"")
			sb.WriteString(escapeXML(chunk.ChunkID))
			sb.WriteString("\">")
			sb.WriteString(escapeXML(chunk.Content))
			sb.WriteString("</chunk>\n")
		}
		sb.WriteString("  </candidate>\n")
	}
	sb.WriteString("</context>\n\n")

	a.writeQuery(&sb, query)
	return sb.String()
}

func (a *PromptAssembler) writeQuery(sb *strings.Builder, query string) {
	sb.WriteString("<query>")
	sb.WriteString(escapeXML(query))
	sb.WriteString("</query>\n")
}

// estimatePromptTokens mirrors the ingestion-side approximation of ~4
// characters per token.
func estimatePromptTokens(s string) int {
	return (len(s) + 3) / 4
}

func escapeXML(value string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		"\"", "&quot;",
		"'", "&#39;",
	)
	return replacer.Replace(strings.TrimSpace(value))
}
