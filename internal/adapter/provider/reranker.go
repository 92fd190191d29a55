package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"context-resolver/internal/domain"
	"context-resolver/internal/guard"
)

type rerankRequest struct {
	Query      string   `json:"query"`
	Candidates []string `json:"candidates"`
	Model      string   `json:"model,omitempty"`
}

type rerankResponseResult struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

type rerankResponse struct {
	Results []rerankResponseResult `json:"results"`
	Model   string                 `json:"model"`
}

// RerankerClient implements domain.Reranker via HTTP calls to a
// cross-encoder scoring service.
type RerankerClient struct {
	BaseURL string
	Model   string
	Client  *http.Client
	breaker *guard.Breaker
	logger  *slog.Logger
}

// NewRerankerClient constructs a RerankerClient. If client is nil a
// default http.Client with the given timeout is used. breaker may be
// nil to run without call gating.
func NewRerankerClient(baseURL, model string, timeout time.Duration, breaker *guard.Breaker, logger *slog.Logger, client *http.Client) *RerankerClient {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &RerankerClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Model:   model,
		Client:  client,
		breaker: breaker,
		logger:  logger,
	}
}

// Rerank scores documents against the query. Results come back keyed by
// document ID; callers treat any error as a signal to keep pre-rerank
// ordering.
func (c *RerankerClient) Rerank(ctx context.Context, query string, documents []domain.RerankDocument) ([]domain.RerankScore, error) {
	if len(documents) == 0 {
		return []domain.RerankScore{}, nil
	}

	start := time.Now()

	contents := make([]string, len(documents))
	for i, d := range documents {
		contents[i] = d.Content
	}

	var scores []domain.RerankScore
	call := func(ctx context.Context) error {
		jsonPayload, err := json.Marshal(rerankRequest{
			Query:      query,
			Candidates: contents,
			Model:      c.Model,
		})
		if err != nil {
			return fmt.Errorf("failed to marshal rerank request: %w", err)
		}

		url := fmt.Sprintf("%s/v1/rerank", c.BaseURL)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonPayload))
		if err != nil {
			return fmt.Errorf("failed to create rerank request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.Client.Do(req)
		if err != nil {
			return fmt.Errorf("failed to call rerank endpoint: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("rerank endpoint returned %d: %s", resp.StatusCode, truncateString(string(body), 500))
		}

		var rerankResp rerankResponse
		if err := json.NewDecoder(resp.Body).Decode(&rerankResp); err != nil {
			return fmt.Errorf("failed to decode rerank response: %w", err)
		}

		scores = make([]domain.RerankScore, len(rerankResp.Results))
		for i, r := range rerankResp.Results {
			if r.Index < 0 || r.Index >= len(documents) {
				return fmt.Errorf("invalid result index %d for %d documents", r.Index, len(documents))
			}
			scores[i] = domain.RerankScore{
				ID:    documents[r.Index].ID,
				Score: r.Score,
			}
		}
		return nil
	}

	var err error
	if c.breaker != nil {
		err = c.breaker.Do(ctx, call)
	} else {
		err = call(ctx)
	}
	if err != nil {
		c.logger.Warn("rerank_request_failed",
			slog.String("model", c.Model),
			slog.String("error", err.Error()),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return nil, err
	}

	c.logger.Info("rerank_completed",
		slog.Int("result_count", len(scores)),
		slog.String("model", c.Model),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return scores, nil
}

// ModelName returns the cross-encoder model identifier.
func (c *RerankerClient) ModelName() string { return c.Model }

func truncateString(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

var _ domain.Reranker = (*RerankerClient)(nil)
