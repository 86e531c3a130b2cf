package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"sync"
	"time"

	naragerr "github.com/naragtive/naragtive/internal/errors"
)

// Cross-encoder server defaults.
const (
	DefaultRerankerEndpoint = "http://localhost:9659"
	DefaultRerankerModel    = "bge-reranker-base"
	DefaultRerankerTimeout  = 30 * time.Second
)

// HTTPRerankerConfig configures the HTTP cross-encoder client.
type HTTPRerankerConfig struct {
	// Endpoint is the reranker server URL.
	Endpoint string

	// Model is the cross-encoder model alias.
	Model string

	// Timeout bounds one rerank request.
	Timeout time.Duration

	// SigmoidScores squashes raw logits into [0,1]. BGE-style rerankers
	// return unbounded logits; servers that already normalize can turn
	// this off.
	SigmoidScores bool

	// SkipHealthCheck bypasses the startup probe (tests).
	SkipHealthCheck bool
}

// DefaultHTTPRerankerConfig returns the default client configuration.
func DefaultHTTPRerankerConfig() HTTPRerankerConfig {
	return HTTPRerankerConfig{
		Endpoint:      DefaultRerankerEndpoint,
		Model:         DefaultRerankerModel,
		Timeout:       DefaultRerankerTimeout,
		SigmoidScores: true,
	}
}

// HTTPReranker scores query-document pairs through a cross-encoder
// server's /rerank endpoint.
type HTTPReranker struct {
	client *http.Client
	config HTTPRerankerConfig

	mu     sync.RWMutex
	closed bool
}

var _ Reranker = (*HTTPReranker)(nil)

// NewHTTPReranker creates a reranker client and, unless skipped,
// verifies the server is reachable.
func NewHTTPReranker(ctx context.Context, cfg HTTPRerankerConfig) (*HTTPReranker, error) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultRerankerEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = DefaultRerankerModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultRerankerTimeout
	}

	r := &HTTPReranker{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     30 * time.Second,
			},
		},
		config: cfg,
	}

	if !cfg.SkipHealthCheck {
		checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		if err := r.healthCheck(checkCtx); err != nil {
			return nil, naragerr.Wrap(naragerr.ErrCodeRerankUnavailable, err)
		}
	}

	slog.Debug("reranker_created",
		slog.String("endpoint", cfg.Endpoint),
		slog.String("model", cfg.Model),
		slog.Duration("timeout", cfg.Timeout))

	return r, nil
}

type rerankRequest struct {
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	Model     string   `json:"model,omitempty"`
}

type rerankResponse struct {
	Results []struct {
		Index int     `json:"index"`
		Score float64 `json:"score"`
	} `json:"results"`
	Model            string  `json:"model"`
	ProcessingTimeMs float64 `json:"processing_time_ms"`
}

// Rerank scores every document against the query. The server must
// return exactly one score per document; a short response fails the
// whole call rather than being padded out.
func (r *HTTPReranker) Rerank(ctx context.Context, query string, documents []string) ([]RerankScore, error) {
	start := time.Now()

	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return nil, naragerr.New(naragerr.ErrCodeRerankFailed, "reranker is closed", nil)
	}
	r.mu.RUnlock()

	if len(documents) == 0 {
		return []RerankScore{}, nil
	}

	body, err := json.Marshal(rerankRequest{
		Query:     query,
		Documents: documents,
		Model:     r.config.Model,
	})
	if err != nil {
		return nil, naragerr.Wrap(naragerr.ErrCodeRerankFailed, fmt.Errorf("marshal rerank request: %w", err))
	}

	reqCtx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, r.config.Endpoint+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, naragerr.Wrap(naragerr.ErrCodeRerankFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, naragerr.Wrap(naragerr.ErrCodeRerankFailed, fmt.Errorf("rerank request: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, naragerr.New(naragerr.ErrCodeRerankFailed,
			fmt.Sprintf("rerank failed with status %d: %s", resp.StatusCode, string(respBody)), nil)
	}

	var result rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, naragerr.Wrap(naragerr.ErrCodeRerankFailed, fmt.Errorf("decode rerank response: %w", err))
	}

	scores := make([]RerankScore, len(result.Results))
	for i, res := range result.Results {
		score := res.Score
		if r.config.SigmoidScores {
			score = sigmoid(score)
		}
		scores[i] = RerankScore{Index: res.Index, Score: score}
	}

	slog.Debug("rerank_done",
		slog.Int("doc_count", len(documents)),
		slog.Int("score_count", len(scores)),
		slog.Duration("elapsed", time.Since(start)),
		slog.Float64("server_time_ms", result.ProcessingTimeMs))

	return scores, nil
}

// Available probes the server's health endpoint.
func (r *HTTPReranker) Available(ctx context.Context) bool {
	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return false
	}
	r.mu.RUnlock()

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return r.healthCheck(checkCtx) == nil
}

// Close shuts down idle connections.
func (r *HTTPReranker) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	if transport, ok := r.client.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
	return nil
}

func (r *HTTPReranker) healthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.config.Endpoint+"/health", nil)
	if err != nil {
		return fmt.Errorf("create health check request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("connect to reranker server: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("reranker server unhealthy (status %d): %s", resp.StatusCode, string(body))
	}
	return nil
}

// sigmoid maps a raw cross-encoder logit into [0,1].
func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}
