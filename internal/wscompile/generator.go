package wscompile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/contextdb/wscompile/internal/resilience"
)

// Generator produces candidate spans for one retrieval channel given the
// derived signals, the hard filters, and a cap on how many candidates to
// return. A generator must return at most topK candidates; raw scores may
// be on any non-negative scale. Embeddings, when present, must be
// normalised to unit length.
type Generator interface {
	Name() string
	Generate(ctx context.Context, signals DerivedSignals, filters HardFilters, topK int) ([]CandidateSpan, error)
}

// SessionSource fetches the pre-attached-text spans for a session prelude.
// It is not a Generator: its output bypasses fusion normalisation.
type SessionSource interface {
	Fetch(ctx context.Context, sessionID string) ([]CandidateSpan, error)
}

// MemorySource fetches long-term-memory candidates for a user. Its output
// participates in MMR alongside generator candidates, mapped into the
// semantic channel.
type MemorySource interface {
	Fetch(ctx context.Context, userID, query string) ([]CandidateSpan, error)
}

// wireSearchRequest is the body posted to a generator's /search endpoint:
// POST /search { query, top_k, filters }.
type wireSearchRequest struct {
	Query   string      `json:"query"`
	TopK    int         `json:"top_k"`
	Filters HardFilters `json:"filters"`
}

type wireCandidate struct {
	SpanRef     SpanRef      `json:"span_ref"`
	Score       float64      `json:"score"`
	Embedding   []float32    `json:"embedding,omitempty"`
	Metadata    SpanMetadata `json:"metadata"`
	TextPreview string       `json:"text_preview,omitempty"`
}

type wireSearchResponse struct {
	Candidates []wireCandidate `json:"candidates"`
}

// HTTPGeneratorConfig configures a remote generator client.
type HTTPGeneratorConfig struct {
	// BaseURL is the generator's base address; /search is appended.
	BaseURL string
	// Channel selects which ScoreChannels field the wire score populates.
	Channel string // "semantic", "lexical", "structural", "graph"
	// Client is the underlying HTTP client. If nil, http.DefaultClient is used.
	Client *http.Client
	// Retry configures transient-error retries. Zero value uses
	// resilience.DefaultRetryConfig.
	Retry resilience.RetryConfig
	// Breaker, if set, is shared across calls to this generator so repeated
	// failures trip it and subsequent calls fail fast.
	Breaker *resilience.CircuitBreaker
}

// HTTPGenerator is a thin net/http JSON client against the generator wire
// contract, wrapped in a circuit breaker and bounded retry. The retry does
// not tell transient from permanent errors: every failed call is retried,
// including a 4xx rejection and an undecodable response.
type HTTPGenerator struct {
	name    string
	cfg     HTTPGeneratorConfig
	client  *http.Client
	breaker *resilience.CircuitBreaker
}

// NewHTTPGenerator builds a remote generator client. name is used for
// logging and circuit-breaker identity when cfg.Breaker is nil.
func NewHTTPGenerator(name string, cfg HTTPGeneratorConfig) *HTTPGenerator {
	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}
	breaker := cfg.Breaker
	if breaker == nil {
		breaker = resilience.NewCircuitBreaker(name)
	}
	retry := cfg.Retry
	if retry == (resilience.RetryConfig{}) {
		retry = resilience.DefaultRetryConfig()
	}
	cfg.Retry = retry
	return &HTTPGenerator{name: name, cfg: cfg, client: client, breaker: breaker}
}

// Name returns the generator's identity.
func (g *HTTPGenerator) Name() string { return g.name }

// Generate calls the remote /search endpoint and maps the wire response
// into CandidateSpans scored on g.cfg.Channel.
func (g *HTTPGenerator) Generate(ctx context.Context, signals DerivedSignals, filters HardFilters, topK int) ([]CandidateSpan, error) {
	body, err := json.Marshal(wireSearchRequest{Query: signals.Intent, TopK: topK, Filters: filters})
	if err != nil {
		return nil, fmt.Errorf("%s: marshal request: %w", g.name, err)
	}

	resp, err := resilience.CircuitExecuteWithResult(g.breaker,
		func() (*wireSearchResponse, error) {
			return resilience.RetryWithResult(ctx, g.cfg.Retry, func() (*wireSearchResponse, error) {
				return g.doSearch(ctx, body)
			})
		},
		func() (*wireSearchResponse, error) {
			return nil, resilience.ErrCircuitOpen
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", g.name, err)
	}

	out := make([]CandidateSpan, 0, len(resp.Candidates))
	for _, wc := range resp.Candidates {
		cs := CandidateSpan{
			SpanRef:     wc.SpanRef,
			Embedding:   wc.Embedding,
			TextPreview: wc.TextPreview,
			Metadata:    wc.Metadata,
		}
		switch g.cfg.Channel {
		case "semantic":
			cs.Scores.Semantic = wc.Score
		case "lexical":
			cs.Scores.Lexical = wc.Score
		case "structural":
			cs.Scores.Structural = wc.Score
		case "graph":
			cs.Scores.Graph = wc.Score
		}
		out = append(out, cs)
		if len(out) >= topK {
			break
		}
	}
	return out, nil
}

func (g *HTTPGenerator) doSearch(ctx context.Context, body []byte) (*wireSearchResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("generator returned %d", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("generator rejected request (%d): %s", resp.StatusCode, string(data))
	}

	var parsed wireSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &parsed, nil
}

// --- Session and memory wire clients -------------------------------------

type wireSessionSpan struct {
	SpanRef  SpanRef      `json:"span_ref"`
	Text     string       `json:"text"`
	Metadata SpanMetadata `json:"metadata"`
}

// HTTPSessionSource implements SessionSource against GET /session/{id}/context.
type HTTPSessionSource struct {
	BaseURL string
	Client  *http.Client
}

// Fetch retrieves the session's pre-attached-text spans.
func (s *HTTPSessionSource) Fetch(ctx context.Context, sessionID string) ([]CandidateSpan, error) {
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	url := fmt.Sprintf("%s/session/%s/context", s.BaseURL, sessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("session source returned %d", resp.StatusCode)
	}

	var spans []wireSessionSpan
	if err := json.NewDecoder(resp.Body).Decode(&spans); err != nil {
		return nil, fmt.Errorf("decode session response: %w", err)
	}

	out := make([]CandidateSpan, 0, len(spans))
	for _, s := range spans {
		meta := s.Metadata
		meta.SourceType = SourceSession
		out = append(out, CandidateSpan{SpanRef: s.SpanRef, Text: s.Text, Metadata: meta})
	}
	return out, nil
}

type wireMemory struct {
	SpanRef   SpanRef      `json:"span_ref"`
	Text      string       `json:"text"`
	Relevance float64      `json:"relevance"`
	Metadata  SpanMetadata `json:"metadata"`
}

// HTTPMemorySource implements MemorySource against GET /memories?user_id&query.
type HTTPMemorySource struct {
	BaseURL string
	Client  *http.Client
}

// Fetch retrieves memory candidates for userID relevant to query.
func (m *HTTPMemorySource) Fetch(ctx context.Context, userID, query string) ([]CandidateSpan, error) {
	client := m.Client
	if client == nil {
		client = http.DefaultClient
	}
	reqURL := fmt.Sprintf("%s/memories?user_id=%s&query=%s", m.BaseURL, url.QueryEscape(userID), url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("memory source returned %d", resp.StatusCode)
	}

	var memories []wireMemory
	if err := json.NewDecoder(resp.Body).Decode(&memories); err != nil {
		return nil, fmt.Errorf("decode memory response: %w", err)
	}

	out := make([]CandidateSpan, 0, len(memories))
	for _, mm := range memories {
		meta := mm.Metadata
		meta.SourceType = SourceMemory
		out = append(out, CandidateSpan{
			SpanRef:  mm.SpanRef,
			Text:     mm.Text,
			Scores:   ScoreChannels{Semantic: mm.Relevance},
			Metadata: meta,
		})
	}
	return out, nil
}
