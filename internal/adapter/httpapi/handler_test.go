package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"context-resolver/internal/domain"
	"context-resolver/internal/usecase"
)

type mockResolveUsecase struct{ mock.Mock }

func (m *mockResolveUsecase) Execute(ctx context.Context, input usecase.ResolveInput) (*usecase.ResolveOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.ResolveOutput), args.Error(1)
}

type mockMatchUsecase struct{ mock.Mock }

func (m *mockMatchUsecase) Execute(ctx context.Context, input usecase.MatchInput) (*usecase.MatchOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.MatchOutput), args.Error(1)
}

type mockIndexUsecase struct{ mock.Mock }

func (m *mockIndexUsecase) Upsert(ctx context.Context, input usecase.IndexDocumentInput) error {
	return m.Called(ctx, input).Error(0)
}

func (m *mockIndexUsecase) Delete(ctx context.Context, documentID string) error {
	return m.Called(ctx, documentID).Error(0)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHandler() (*Handler, *mockResolveUsecase, *mockMatchUsecase, *mockIndexUsecase) {
	resolve := new(mockResolveUsecase)
	match := new(mockMatchUsecase)
	index := new(mockIndexUsecase)
	return NewHandler(resolve, match, index, testLogger()), resolve, match, index
}

func doRequest(h *Handler, method, path, tenant, body string) *httptest.ResponseRecorder {
	e := echo.New()
	h.Register(e)
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if tenant != "" {
		req.Header.Set("X-Tenant-ID", tenant)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHandler_Resolve_Success(t *testing.T) {
	h, resolve, _, _ := newTestHandler()

	output := &usecase.ResolveOutput{
		ResolutionID:    "res-1",
		Mode:            domain.DecisionSingle,
		AssembledPrompt: "<instructions>...</instructions>",
		Decision: domain.ResolutionDecision{
			Mode:   domain.DecisionSingle,
			Reason: "clear_top_candidate",
			Candidates: []domain.Candidate{
				{ID: "d1", Title: "IviSkin G3", Category: "beauty-devices", Brand: "IviSkin", Model: "G3", BaseScore: 0.7, FinalScore: 0.79},
			},
		},
		SupportingChunks: []usecase.SupportingChunk{
			{ChunkID: "c1", CandidateID: "d1", Title: "IviSkin G3", Content: "weight 250g", Score: 0.8},
		},
		Ambiguity: domain.AmbiguityResult{Score: 0.2},
		Context:   domain.SafeContext{Terms: []string{"laser"}, CategoryHint: "beauty-devices"},
	}
	resolve.On("Execute", mock.Anything, mock.MatchedBy(func(in usecase.ResolveInput) bool {
		return in.Query == "IviSkin G3 weight" && in.Tenant == "tenant-a" && len(in.Messages) == 1
	})).Return(output, nil)

	body := `{"query":"IviSkin G3 weight","messages":[{"role":"user","content":"tell me about laser devices"}]}`
	rec := doRequest(h, http.MethodPost, "/v1/resolve", "tenant-a", body)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp resolveResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "res-1", resp.ResolutionID)
	assert.Equal(t, "single", resp.Mode)
	assert.Equal(t, "clear_top_candidate", resp.Reason)
	require.Len(t, resp.Candidates, 1)
	assert.Equal(t, "d1", resp.Candidates[0].ID)
	require.Len(t, resp.SupportingChunks, 1)
	assert.Equal(t, "c1", resp.SupportingChunks[0].ChunkID)
	resolve.AssertExpectations(t)
}

func TestHandler_Resolve_MissingTenant(t *testing.T) {
	h, resolve, _, _ := newTestHandler()

	rec := doRequest(h, http.MethodPost, "/v1/resolve", "", `{"query":"G3"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resolve.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
}

func TestHandler_Resolve_MissingQuery(t *testing.T) {
	h, _, _, _ := newTestHandler()

	rec := doRequest(h, http.MethodPost, "/v1/resolve", "tenant-a", `{}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Resolve_UsecaseError(t *testing.T) {
	h, resolve, _, _ := newTestHandler()
	resolve.On("Execute", mock.Anything, mock.Anything).Return(nil, assert.AnError)

	rec := doRequest(h, http.MethodPost, "/v1/resolve", "tenant-a", `{"query":"G3"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), assert.AnError.Error(), "internal errors must not leak")
}

func TestHandler_Match_Success(t *testing.T) {
	h, _, match, _ := newTestHandler()

	matched := domain.Candidate{ID: "d2", Title: "Acme G3 Router", Category: "networking", FinalScore: 0.88}
	match.On("Execute", mock.Anything, mock.MatchedBy(func(in usecase.MatchInput) bool {
		return in.Query == "G3" && in.Page.Title == "Acme G3 Router product page"
	})).Return(&usecase.MatchOutput{
		Matched:    &matched,
		Candidates: []domain.Candidate{matched},
		Confidence: 0.9,
	}, nil)

	body := `{"query":"G3","page":{"title":"Acme G3 Router product page"}}`
	rec := doRequest(h, http.MethodPost, "/v1/match", "tenant-a", body)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp matchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Matched)
	assert.Equal(t, "d2", resp.Matched.ID)
	assert.False(t, resp.NeedsClarification)
}

func TestHandler_Match_Clarification(t *testing.T) {
	h, _, match, _ := newTestHandler()

	match.On("Execute", mock.Anything, mock.Anything).Return(&usecase.MatchOutput{
		Candidates: []domain.Candidate{
			{ID: "d1", Title: "IviSkin G3"},
			{ID: "d2", Title: "Acme G3 Router"},
		},
		Confidence:         0.3,
		NeedsClarification: true,
	}, nil)

	rec := doRequest(h, http.MethodPost, "/v1/match", "tenant-a", `{"query":"G3"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp matchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Nil(t, resp.Matched)
	assert.True(t, resp.NeedsClarification)
	assert.Len(t, resp.Candidates, 2)
}

func TestHandler_UpsertIndex_Success(t *testing.T) {
	h, _, _, index := newTestHandler()

	index.On("Upsert", mock.Anything, usecase.IndexDocumentInput{
		DocumentID: "6a1f6f0e-5f1e-4b43-9a64-92a1e1f8c111",
		Tenant:     "tenant-a",
		Title:      "IviSkin G3",
		Body:       "Laser hair removal device.",
	}).Return(nil)

	body := `{"document_id":"6a1f6f0e-5f1e-4b43-9a64-92a1e1f8c111","title":"IviSkin G3","body":"Laser hair removal device."}`
	rec := doRequest(h, http.MethodPost, "/internal/index/upsert", "tenant-a", body)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"indexed"`)
	index.AssertExpectations(t)
}

func TestHandler_UpsertIndex_MissingDocumentID(t *testing.T) {
	h, _, _, index := newTestHandler()

	rec := doRequest(h, http.MethodPost, "/internal/index/upsert", "tenant-a", `{"title":"x","body":"y"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	index.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestHandler_DeleteIndex_Success(t *testing.T) {
	h, _, _, index := newTestHandler()
	index.On("Delete", mock.Anything, "6a1f6f0e-5f1e-4b43-9a64-92a1e1f8c111").Return(nil)

	body := `{"document_id":"6a1f6f0e-5f1e-4b43-9a64-92a1e1f8c111"}`
	rec := doRequest(h, http.MethodPost, "/internal/index/delete", "", body)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"deleted"`)
}

func TestHandler_Health(t *testing.T) {
	h, _, _, _ := newTestHandler()

	rec := doRequest(h, http.MethodGet, "/v1/health", "", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}
