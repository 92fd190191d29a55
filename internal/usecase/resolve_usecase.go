package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"context-resolver/internal/ambiguity"
	"context-resolver/internal/domain"
	"context-resolver/internal/safecontext"
	"context-resolver/internal/search"
	"context-resolver/internal/terms"
	"context-resolver/internal/textnorm"
)

// ResolveInput carries one resolution request.
type ResolveInput struct {
	Query            string
	Tenant           string
	Messages         []domain.ConversationMessage
	Page             domain.PageContext
	BaseInstructions string
}

// ResolveOutput is the terminal result handed to the chat-response
// assembly layer.
type ResolveOutput struct {
	ResolutionID     string
	Mode             domain.DecisionMode
	Decision         domain.ResolutionDecision
	AssembledPrompt  string
	SupportingChunks []SupportingChunk
	Ambiguity        domain.AmbiguityResult
	Context          domain.SafeContext
}

// ResolveUsecase is the top-level entry point of the resolution core.
type ResolveUsecase interface {
	Execute(ctx context.Context, input ResolveInput) (*ResolveOutput, error)
}

// TelemetryRecorder is the fire-and-forget sink the engine emits into.
type TelemetryRecorder interface {
	Record(record domain.TelemetryRecord)
}

// ResolveConfig bundles the engine's tunables.
type ResolveConfig struct {
	Scoring ScoringConfig
	// ChunksPerCandidate bounds the supporting chunks fetched per
	// decided candidate.
	ChunksPerCandidate int
	// UseReranker enables the cross-encoder pass inside hybrid search.
	UseReranker bool
}

// DefaultResolveConfig returns the production defaults.
func DefaultResolveConfig() ResolveConfig {
	return ResolveConfig{
		Scoring:            DefaultScoringConfig(),
		ChunksPerCandidate: 4,
		UseReranker:        false,
	}
}

type resolveUsecase struct {
	cfg        ResolveConfig
	contextExt *safecontext.Extractor
	detector   *ambiguity.Detector
	termExt    *terms.Extractor
	validator  *terms.Validator
	searcher   Searcher
	scorer     *scorer
	chunks     *chunkFetcher
	assembler  *PromptAssembler
	telemetry  TelemetryRecorder
	logger     *slog.Logger
}

// NewResolveUsecase wires the resolution engine.
func NewResolveUsecase(
	cfg ResolveConfig,
	contextExt *safecontext.Extractor,
	detector *ambiguity.Detector,
	termExt *terms.Extractor,
	validator *terms.Validator,
	searcher Searcher,
	assembler *PromptAssembler,
	telemetry TelemetryRecorder,
	logger *slog.Logger,
) (ResolveUsecase, error) {
	sc, err := newScorer(cfg.Scoring)
	if err != nil {
		return nil, err
	}
	if cfg.ChunksPerCandidate <= 0 {
		cfg.ChunksPerCandidate = 4
	}
	if assembler == nil {
		assembler = NewPromptAssembler(0, 0)
	}
	return &resolveUsecase{
		cfg:        cfg,
		contextExt: contextExt,
		detector:   detector,
		termExt:    termExt,
		validator:  validator,
		searcher:   searcher,
		scorer:     sc,
		chunks:     newChunkFetcher(searcher),
		assembler:  assembler,
		telemetry:  telemetry,
		logger:     logger,
	}, nil
}

func (u *resolveUsecase) Execute(ctx context.Context, input ResolveInput) (*ResolveOutput, error) {
	if input.Query == "" {
		return nil, fmt.Errorf("query is empty")
	}
	if input.Tenant == "" {
		return nil, fmt.Errorf("tenant is empty")
	}

	start := time.Now()
	resolutionID := uuid.New().String()

	// Searching: context, ambiguity, term validation, hybrid retrieval.
	// Context terms only ever boost; the literal query is what searches.
	safeCtx := u.contextExt.Extract(input.Messages, input.Page)
	amb := u.detector.Detect(input.Query)

	// Validation gates the keyword branch: only corpus-present terms
	// reach the tsquery, and when nothing survives (including a failed
	// stats lookup) retrieval degrades to vector-only.
	var validation terms.ValidationResult
	opts := search.Options{UseReranker: u.cfg.UseReranker}
	if extracted := u.termExt.Extract(input.Query); extracted != nil && len(extracted.Terms) > 0 {
		validation = u.validator.ValidateTerms(ctx, input.Tenant, extracted.Terms)
		opts.KeywordTerms = validation.Kept
		opts.TermsValidated = true
	}

	results, err := u.searcher.Search(ctx, input.Query, input.Tenant, opts)
	if err != nil {
		return nil, fmt.Errorf("hybrid search failed: %w", err)
	}

	// Scoring.
	candidates := u.scorer.buildCandidates(results)
	candidates, err = u.scorer.score(input.Query, candidates, safeCtx.Terms)
	if err != nil {
		return nil, err
	}

	// Deciding.
	decision := u.scorer.decide(candidates, amb)

	var supporting []SupportingChunk
	for _, cand := range decision.Candidates {
		chunks, err := u.chunks.ChunksForCandidate(ctx, cand, input.Tenant, u.cfg.ChunksPerCandidate)
		if err != nil {
			// A missing chunk payload degrades the answer, not the
			// decision.
			u.logger.Warn("candidate_chunks_failed",
				slog.String("resolution_id", resolutionID),
				slog.String("candidate_id", cand.ID),
				slog.String("error", err.Error()))
			continue
		}
		supporting = append(supporting, chunks...)
	}

	prompt := u.assembler.Assemble(decision, input.Query, input.BaseInstructions, supporting)

	output := &ResolveOutput{
		ResolutionID:     resolutionID,
		Mode:             decision.Mode,
		Decision:         decision,
		AssembledPrompt:  prompt,
		SupportingChunks: supporting,
		Ambiguity:        amb,
		Context:          safeCtx,
	}

	u.emit(resolutionID, input, output, candidates, validation, time.Since(start))

	u.logger.Info("resolution_completed",
		slog.String("resolution_id", resolutionID),
		slog.String("tenant", input.Tenant),
		slog.String("mode", string(decision.Mode)),
		slog.String("reason", decision.Reason),
		slog.Int("candidate_count", len(candidates)),
		slog.Int("supporting_chunks", len(supporting)),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))

	return output, nil
}

// emit assembles and records the telemetry snapshot. The query is only
// logged normalized, and is replaced outright when PII scrubbing fired.
func (u *resolveUsecase) emit(resolutionID string, input ResolveInput, out *ResolveOutput, candidates []domain.Candidate, validation terms.ValidationResult, elapsed time.Duration) {
	record := domain.TelemetryRecord{
		ResolutionID:   resolutionID,
		TenantID:       input.Tenant,
		Query:          textnorm.Normalize(input.Query),
		Mode:           out.Mode,
		Reason:         out.Decision.Reason,
		AmbiguityScore: out.Ambiguity.Score,
		Ambiguous:      out.Ambiguity.Ambiguous,
		ContextTerms:   out.Context.Terms,
		CategoryHint:   out.Context.CategoryHint,
		QueryRedacted:  out.Context.QueryRedacted,
		CandidateCount: len(candidates),
		TermsKept:      validation.Kept,
		DurationMS:     elapsed.Milliseconds(),
		CreatedAt:      time.Now(),
	}
	if out.Context.QueryRedacted {
		record.Query = "[redacted]"
	}
	for _, dropped := range validation.Dropped {
		record.TermsDropped = append(record.TermsDropped, dropped.Term)
	}
	if len(candidates) > 0 {
		top := candidates[0]
		record.TopCandidateID = top.ID
		record.TopBaseScore = top.BaseScore
		record.TopFinalScore = top.FinalScore
		record.ScoreSource = top.ScoreSource
		record.BoostsApplied = top.BoostsApplied
		if len(candidates) > 1 {
			record.ScoreDelta = top.FinalScore - candidates[1].FinalScore
		}
	}
	u.telemetry.Record(record)
}
