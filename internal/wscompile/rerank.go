package wscompile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// RerankResult is one document's score from a Reranker call.
type RerankResult struct {
	Index    int
	Score    float64
	Document string
}

// Reranker cross-encodes the intent against each candidate's text_preview
// for a relevance score more accurate than the fused channel scores, at
// higher per-call cost. A Compiler with no Reranker configured skips this
// step entirely.
type Reranker interface {
	Rerank(ctx context.Context, intent string, documents []string, topK int) ([]RerankResult, error)
	Available(ctx context.Context) bool
	Close() error
}

// rerankBlendWeight controls how much a reranker's score displaces
// base_score for a pruned candidate: new = (1-w)*base + w*rerank.
const rerankBlendWeight = 0.5

// rerankPool reranks pool's text previews against intent and blends the
// result into each candidate's BaseScore. Candidates with an empty
// text_preview are left untouched (there is nothing to cross-encode
// against). A reranker failure is logged and treated like a degraded
// generator: the pool's existing base_score ordering is kept.
func rerankPool(ctx context.Context, r Reranker, intent string, pool []CandidateSpan, logger *slog.Logger) {
	if r == nil || len(pool) == 0 {
		return
	}

	idx := make([]int, 0, len(pool))
	docs := make([]string, 0, len(pool))
	for i, c := range pool {
		if c.TextPreview == "" {
			continue
		}
		idx = append(idx, i)
		docs = append(docs, c.TextPreview)
	}
	if len(docs) == 0 {
		return
	}

	results, err := r.Rerank(ctx, intent, docs, 0)
	if err != nil {
		logger.Warn("reranker failed, keeping fused scores", slog.Any("error", err))
		return
	}

	for _, res := range results {
		if res.Index < 0 || res.Index >= len(idx) {
			continue
		}
		p := &pool[idx[res.Index]]
		p.BaseScore = (1-rerankBlendWeight)*p.BaseScore + rerankBlendWeight*res.Score
	}
}

// NoOpReranker returns documents in their original order at decreasing
// scores. Useful as an explicit placeholder where a Reranker is required by
// an API but reranking should be a no-op.
type NoOpReranker struct{}

func (NoOpReranker) Rerank(_ context.Context, _ string, documents []string, topK int) ([]RerankResult, error) {
	results := make([]RerankResult, len(documents))
	for i, doc := range documents {
		results[i] = RerankResult{Index: i, Score: 1.0 - float64(i)*0.01, Document: doc}
	}
	if topK > 0 && topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

func (NoOpReranker) Available(context.Context) bool { return true }
func (NoOpReranker) Close() error                   { return nil }

var _ Reranker = NoOpReranker{}

// CrossEncoderRerankerConfig configures a remote cross-encoder reranker.
type CrossEncoderRerankerConfig struct {
	// Endpoint is the reranker server's base URL.
	Endpoint string
	// Model is the reranker model alias.
	Model string
	// Timeout bounds one /rerank call.
	Timeout time.Duration
	// Instruction, if set, is passed to the server as task guidance.
	Instruction string
	// SkipHealthCheck skips the startup health probe (useful in tests).
	SkipHealthCheck bool
}

const (
	defaultRerankerTimeout = 30 * time.Second
)

// CrossEncoderReranker implements Reranker against a local model server
// exposing POST /rerank and GET /health, matching the wire shape of the
// pack's MLX-served rerankers.
type CrossEncoderReranker struct {
	client   *http.Client
	config   CrossEncoderRerankerConfig
	mu       sync.RWMutex
	closed   bool
	endpoint string
}

var _ Reranker = (*CrossEncoderReranker)(nil)

// NewCrossEncoderReranker creates a reranker client and, unless
// cfg.SkipHealthCheck is set, verifies the server is reachable.
func NewCrossEncoderReranker(ctx context.Context, cfg CrossEncoderRerankerConfig) (*CrossEncoderReranker, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultRerankerTimeout
	}

	client := &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     30 * time.Second,
		},
	}

	r := &CrossEncoderReranker{client: client, config: cfg, endpoint: cfg.Endpoint}

	if !cfg.SkipHealthCheck {
		checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := r.healthCheck(checkCtx); err != nil {
			return nil, fmt.Errorf("reranker health check failed: %w", err)
		}
	}

	return r, nil
}

func (r *CrossEncoderReranker) healthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.endpoint+"/health", nil)
	if err != nil {
		return fmt.Errorf("build health check request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("connect to reranker: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("reranker unhealthy (status %d): %s", resp.StatusCode, string(body))
	}
	return nil
}

type rerankWireRequest struct {
	Query       string   `json:"query"`
	Documents   []string `json:"documents"`
	Model       string   `json:"model,omitempty"`
	Instruction string   `json:"instruction,omitempty"`
	TopK        int      `json:"top_k,omitempty"`
}

type rerankWireResponse struct {
	Results []struct {
		Index    int     `json:"index"`
		Score    float64 `json:"score"`
		Document string  `json:"document"`
	} `json:"results"`
}

// Rerank scores documents against intent via the remote /rerank endpoint.
func (r *CrossEncoderReranker) Rerank(ctx context.Context, intent string, documents []string, topK int) ([]RerankResult, error) {
	r.mu.RLock()
	closed := r.closed
	r.mu.RUnlock()
	if closed {
		return nil, fmt.Errorf("reranker is closed")
	}
	if len(documents) == 0 {
		return []RerankResult{}, nil
	}

	reqBody := rerankWireRequest{Query: intent, Documents: documents, Model: r.config.Model, Instruction: r.config.Instruction}
	if topK > 0 {
		reqBody.TopK = topK
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request: %w", err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodPost, r.endpoint+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("rerank failed (status %d): %s", resp.StatusCode, string(data))
	}

	var parsed rerankWireResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode rerank response: %w", err)
	}

	results := make([]RerankResult, len(parsed.Results))
	for i, res := range parsed.Results {
		results[i] = RerankResult{Index: res.Index, Score: res.Score, Document: res.Document}
	}
	return results, nil
}

// Available reports whether the reranker server currently responds healthy.
func (r *CrossEncoderReranker) Available(ctx context.Context) bool {
	r.mu.RLock()
	closed := r.closed
	r.mu.RUnlock()
	if closed {
		return false
	}
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return r.healthCheck(checkCtx) == nil
}

// Close releases the underlying HTTP transport's idle connections.
func (r *CrossEncoderReranker) Close() error {
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
