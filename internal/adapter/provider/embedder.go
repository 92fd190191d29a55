// Package provider holds HTTP clients for the embedding and reranking
// model services. Outbound calls run under a circuit breaker so a
// degraded model server fails fast instead of piling up timeouts.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"context-resolver/internal/domain"
	"context-resolver/internal/guard"
)

// EmbedderConfig configures the HTTP embedder client.
type EmbedderConfig struct {
	BaseURL    string
	Model      string
	Dimension  int
	MaxInput   int           // max characters per input text, longer texts are truncated
	BatchSize  int           // texts per upstream request
	BatchDelay time.Duration // pause between sub-batches
	Timeout    time.Duration
}

// DefaultEmbedderConfig returns production defaults for a local
// ollama-compatible embedding server.
func DefaultEmbedderConfig() EmbedderConfig {
	return EmbedderConfig{
		BaseURL:    "http://localhost:11434",
		Model:      "mxbai-embed-large",
		Dimension:  1024,
		MaxInput:   8000,
		BatchSize:  16,
		BatchDelay: 50 * time.Millisecond,
		Timeout:    30 * time.Second,
	}
}

// Validate checks the embedder configuration.
func (c EmbedderConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base url must not be empty")
	}
	if c.Model == "" {
		return fmt.Errorf("model must not be empty")
	}
	if c.Dimension <= 0 {
		return fmt.Errorf("dimension must be positive, got %d", c.Dimension)
	}
	if c.MaxInput <= 0 {
		return fmt.Errorf("max input must be positive, got %d", c.MaxInput)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.BatchSize)
	}
	return nil
}

// HTTPEmbedder implements domain.Embedder against an ollama-compatible
// /api/embed endpoint.
type HTTPEmbedder struct {
	cfg     EmbedderConfig
	client  *http.Client
	breaker *guard.Breaker
	logger  *slog.Logger
}

// NewHTTPEmbedder constructs an HTTPEmbedder. If client is nil a default
// http.Client with the configured timeout is used. breaker may be nil to
// run without call gating.
func NewHTTPEmbedder(cfg EmbedderConfig, breaker *guard.Breaker, logger *slog.Logger, client *http.Client) (*HTTPEmbedder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid embedder config: %w", err)
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &HTTPEmbedder{
		cfg:     cfg,
		client:  client,
		breaker: breaker,
		logger:  logger,
	}, nil
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed returns the embedding vector for a single text.
func (e *HTTPEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected 1 embedding, got %d", len(vectors))
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts in sub-batches executed sequentially, with a
// short pause between requests to avoid saturating the model server.
func (e *HTTPEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	start := time.Now()
	out := make([][]float32, 0, len(texts))

	for offset := 0; offset < len(texts); offset += e.cfg.BatchSize {
		end := offset + e.cfg.BatchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch := make([]string, 0, end-offset)
		for _, t := range texts[offset:end] {
			batch = append(batch, truncateRunes(t, e.cfg.MaxInput))
		}

		vectors, err := e.embedOnce(ctx, batch)
		if err != nil {
			return nil, err
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("embedding count mismatch: sent %d, got %d", len(batch), len(vectors))
		}
		out = append(out, vectors...)

		if end < len(texts) && e.cfg.BatchDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(e.cfg.BatchDelay):
			}
		}
	}

	e.logger.Info("embed_batch_completed",
		slog.Int("text_count", len(texts)),
		slog.String("model", e.cfg.Model),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return out, nil
}

func (e *HTTPEmbedder) embedOnce(ctx context.Context, batch []string) ([][]float32, error) {
	var vectors [][]float32
	call := func(ctx context.Context) error {
		jsonData, err := json.Marshal(embedRequest{Model: e.cfg.Model, Input: batch})
		if err != nil {
			return fmt.Errorf("failed to marshal embed request: %w", err)
		}

		url := fmt.Sprintf("%s/api/embed", strings.TrimRight(e.cfg.BaseURL, "/"))
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
		if err != nil {
			return fmt.Errorf("failed to create embed request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := e.client.Do(req)
		if err != nil {
			return fmt.Errorf("failed to call embed endpoint: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("embed endpoint returned status %d", resp.StatusCode)
		}

		var respBody embedResponse
		if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
			return fmt.Errorf("failed to decode embed response: %w", err)
		}
		vectors = respBody.Embeddings
		return nil
	}

	var err error
	if e.breaker != nil {
		err = e.breaker.Do(ctx, call)
	} else {
		err = call(ctx)
	}
	if err != nil {
		e.logger.Warn("embed_request_failed",
			slog.String("model", e.cfg.Model),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	return vectors, nil
}

// ModelName returns the embedding model identifier.
func (e *HTTPEmbedder) ModelName() string { return e.cfg.Model }

// Dimension returns the expected vector width.
func (e *HTTPEmbedder) Dimension() int { return e.cfg.Dimension }

// MaxInputSize returns the character cap applied to each input.
func (e *HTTPEmbedder) MaxInputSize() int { return e.cfg.MaxInput }

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

var _ domain.Embedder = (*HTTPEmbedder)(nil)
