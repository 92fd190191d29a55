// Package httpapi exposes the resolution core over HTTP with echo.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"context-resolver/internal/domain"
	"context-resolver/internal/infra/logger"
	"context-resolver/internal/usecase"
)

// Handler carries the usecases behind the HTTP surface.
type Handler struct {
	resolveUsecase usecase.ResolveUsecase
	matchUsecase   usecase.MatchUsecase
	indexUsecase   usecase.IndexDocumentUsecase
	logger         *slog.Logger
}

// NewHandler constructs the HTTP handler.
func NewHandler(
	resolveUsecase usecase.ResolveUsecase,
	matchUsecase usecase.MatchUsecase,
	indexUsecase usecase.IndexDocumentUsecase,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		resolveUsecase: resolveUsecase,
		matchUsecase:   matchUsecase,
		indexUsecase:   indexUsecase,
		logger:         logger,
	}
}

// Register mounts all routes on the echo instance. middleware applies to
// the public /v1 group only; internal routes are reached over the
// service mesh and skip rate limiting.
func (h *Handler) Register(e *echo.Echo, middleware ...echo.MiddlewareFunc) {
	public := e.Group("/v1", middleware...)
	public.POST("/resolve", h.Resolve)
	public.POST("/match", h.Match)
	public.GET("/health", h.Health)

	internal := e.Group("/internal")
	internal.POST("/index/upsert", h.UpsertIndex)
	internal.POST("/index/delete", h.DeleteIndex)
}

type conversationMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type pageContext struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

type resolveRequest struct {
	Query            string                `json:"query"`
	Messages         []conversationMessage `json:"messages,omitempty"`
	Page             *pageContext          `json:"page,omitempty"`
	BaseInstructions string                `json:"base_instructions,omitempty"`
}

type candidateResponse struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Category   string  `json:"category"`
	Brand      string  `json:"brand,omitempty"`
	Model      string  `json:"model,omitempty"`
	BaseScore  float64 `json:"base_score"`
	FinalScore float64 `json:"final_score"`
}

type supportingChunkResponse struct {
	ChunkID     string  `json:"chunk_id"`
	CandidateID string  `json:"candidate_id"`
	Title       string  `json:"title"`
	Content     string  `json:"content"`
	Score       float64 `json:"score"`
}

type resolveResponse struct {
	ResolutionID     string                    `json:"resolution_id"`
	Mode             string                    `json:"mode"`
	Reason           string                    `json:"reason"`
	AssembledPrompt  string                    `json:"assembled_prompt"`
	Candidates       []candidateResponse       `json:"candidates"`
	SupportingChunks []supportingChunkResponse `json:"supporting_chunks,omitempty"`
	AmbiguityScore   float64                   `json:"ambiguity_score"`
	Ambiguous        bool                      `json:"ambiguous"`
	CategoryHint     string                    `json:"category_hint,omitempty"`
	ContextTerms     []string                  `json:"context_terms,omitempty"`
}

// Resolve runs one query through the full resolution pipeline.
// (POST /v1/resolve)
func (h *Handler) Resolve(c echo.Context) error {
	var req resolveRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Query == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "query is required"})
	}
	tenant := tenantID(c)
	if tenant == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "X-Tenant-ID header is required"})
	}

	input := usecase.ResolveInput{
		Query:            req.Query,
		Tenant:           tenant,
		BaseInstructions: req.BaseInstructions,
	}
	for _, m := range req.Messages {
		input.Messages = append(input.Messages, domain.ConversationMessage{Role: m.Role, Content: m.Content})
	}
	if req.Page != nil {
		input.Page = domain.PageContext{Title: req.Page.Title, Description: req.Page.Description, URL: req.Page.URL}
	}

	reqCtx := logger.WithTenantID(c.Request().Context(), tenant)
	output, err := h.resolveUsecase.Execute(reqCtx, input)
	if err != nil {
		h.logger.Error("resolve_request_failed", slog.String("error", err.Error()))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "resolution failed"})
	}

	resp := resolveResponse{
		ResolutionID:    output.ResolutionID,
		Mode:            string(output.Mode),
		Reason:          output.Decision.Reason,
		AssembledPrompt: output.AssembledPrompt,
		Candidates:      toCandidateResponses(output.Decision.Candidates),
		AmbiguityScore:  output.Ambiguity.Score,
		Ambiguous:       output.Ambiguity.Ambiguous,
		CategoryHint:    output.Context.CategoryHint,
		ContextTerms:    output.Context.Terms,
	}
	for _, ch := range output.SupportingChunks {
		resp.SupportingChunks = append(resp.SupportingChunks, supportingChunkResponse{
			ChunkID:     ch.ChunkID,
			CandidateID: ch.CandidateID,
			Title:       ch.Title,
			Content:     ch.Content,
			Score:       ch.Score,
		})
	}
	return c.JSON(http.StatusOK, resp)
}

type matchRequest struct {
	Query string       `json:"query"`
	Page  *pageContext `json:"page,omitempty"`
}

type matchResponse struct {
	Matched            *candidateResponse  `json:"matched,omitempty"`
	Candidates         []candidateResponse `json:"candidates"`
	Confidence         float64             `json:"confidence"`
	NeedsClarification bool                `json:"needs_clarification"`
}

// Match resolves a product-style query against the corpus using page
// context instead of conversation history.
// (POST /v1/match)
func (h *Handler) Match(c echo.Context) error {
	var req matchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Query == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "query is required"})
	}
	tenant := tenantID(c)
	if tenant == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "X-Tenant-ID header is required"})
	}

	input := usecase.MatchInput{Query: req.Query, Tenant: tenant}
	if req.Page != nil {
		input.Page = domain.PageContext{Title: req.Page.Title, Description: req.Page.Description, URL: req.Page.URL}
	}

	output, err := h.matchUsecase.Execute(logger.WithTenantID(c.Request().Context(), tenant), input)
	if err != nil {
		h.logger.Error("match_request_failed", slog.String("error", err.Error()))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "match failed"})
	}

	resp := matchResponse{
		Candidates:         toCandidateResponses(output.Candidates),
		Confidence:         output.Confidence,
		NeedsClarification: output.NeedsClarification,
	}
	if output.Matched != nil {
		matched := toCandidateResponse(*output.Matched)
		resp.Matched = &matched
	}
	return c.JSON(http.StatusOK, resp)
}

type upsertIndexRequest struct {
	DocumentID string `json:"document_id"`
	Title      string `json:"title"`
	Body       string `json:"body"`
}

// UpsertIndex chunks, embeds and persists one document.
// (POST /internal/index/upsert)
func (h *Handler) UpsertIndex(c echo.Context) error {
	var req upsertIndexRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.DocumentID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "document_id is required"})
	}
	tenant := tenantID(c)
	if tenant == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "X-Tenant-ID header is required"})
	}

	start := time.Now()
	reqCtx := logger.WithDocumentID(logger.WithTenantID(c.Request().Context(), tenant), req.DocumentID)
	err := h.indexUsecase.Upsert(reqCtx, usecase.IndexDocumentInput{
		DocumentID: req.DocumentID,
		Tenant:     tenant,
		Title:      req.Title,
		Body:       req.Body,
	})
	if err != nil {
		h.logger.Error("index_upsert_failed",
			slog.String("document_id", req.DocumentID),
			slog.String("error", err.Error()),
		)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "indexing failed"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "indexed",
		"document_id": req.DocumentID,
		"duration_ms": time.Since(start).Milliseconds(),
	})
}

type deleteIndexRequest struct {
	DocumentID string `json:"document_id"`
}

// DeleteIndex removes a document's chunks from the index.
// (POST /internal/index/delete)
func (h *Handler) DeleteIndex(c echo.Context) error {
	var req deleteIndexRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.DocumentID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "document_id is required"})
	}

	if err := h.indexUsecase.Delete(c.Request().Context(), req.DocumentID); err != nil {
		h.logger.Error("index_delete_failed",
			slog.String("document_id", req.DocumentID),
			slog.String("error", err.Error()),
		)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "deletion failed"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "deleted", "document_id": req.DocumentID})
}

// Health reports liveness.
// (GET /v1/health)
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func tenantID(c echo.Context) string {
	return c.Request().Header.Get("X-Tenant-ID")
}

func toCandidateResponses(candidates []domain.Candidate) []candidateResponse {
	out := make([]candidateResponse, 0, len(candidates))
	for _, cand := range candidates {
		out = append(out, toCandidateResponse(cand))
	}
	return out
}

func toCandidateResponse(c domain.Candidate) candidateResponse {
	return candidateResponse{
		ID:         c.ID,
		Title:      c.Title,
		Category:   c.Category,
		Brand:      c.Brand,
		Model:      c.Model,
		BaseScore:  c.BaseScore,
		FinalScore: c.FinalScore,
	}
}
