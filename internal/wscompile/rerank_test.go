package wscompile

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoOpReranker_Rerank_PreservesOrder(t *testing.T) {
	reranker := NoOpReranker{}
	documents := []string{"doc1", "doc2", "doc3"}

	results, err := reranker.Rerank(context.Background(), "query", documents, 0)

	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "doc1", results[0].Document)
	assert.InDelta(t, 1.0, results[0].Score, 0.001)
	assert.InDelta(t, 0.99, results[1].Score, 0.001)
}

func TestNoOpReranker_Rerank_RespectsTopK(t *testing.T) {
	reranker := NoOpReranker{}
	documents := []string{"doc1", "doc2", "doc3", "doc4", "doc5"}

	results, err := reranker.Rerank(context.Background(), "query", documents, 3)

	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestNoOpReranker_Available(t *testing.T) {
	assert.True(t, NoOpReranker{}.Available(context.Background()))
}

func TestNoOpReranker_Close(t *testing.T) {
	assert.NoError(t, NoOpReranker{}.Close())
}

func TestCrossEncoderReranker_Rerank_PostsExpectedRequest(t *testing.T) {
	var captured rerankWireRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		resp := rerankWireResponse{Results: []struct {
			Index    int     `json:"index"`
			Score    float64 `json:"score"`
			Document string  `json:"document"`
		}{
			{Index: 0, Score: 0.9, Document: "a"},
			{Index: 1, Score: 0.3, Document: "b"},
		}}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	r, err := NewCrossEncoderReranker(context.Background(), CrossEncoderRerankerConfig{Endpoint: srv.URL, Model: "reranker-small"})
	require.NoError(t, err)
	defer r.Close()

	results, err := r.Rerank(context.Background(), "find the bug", []string{"a", "b"}, 0)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "find the bug", captured.Query)
	assert.Equal(t, []string{"a", "b"}, captured.Documents)
	assert.InDelta(t, 0.9, results[0].Score, 0.001)
}

func TestCrossEncoderReranker_Rerank_ClosedReturnsError(t *testing.T) {
	r, err := NewCrossEncoderReranker(context.Background(), CrossEncoderRerankerConfig{Endpoint: "http://unused", SkipHealthCheck: true})
	require.NoError(t, err)
	require.NoError(t, r.Close())

	_, err = r.Rerank(context.Background(), "q", []string{"a"}, 0)
	assert.Error(t, err)
}

func TestCrossEncoderReranker_New_FailsHealthCheckWhenUnreachable(t *testing.T) {
	_, err := NewCrossEncoderReranker(context.Background(), CrossEncoderRerankerConfig{Endpoint: "http://127.0.0.1:1"})
	assert.Error(t, err)
}

func TestRerankPool_NilRerankerIsNoOp(t *testing.T) {
	pool := []CandidateSpan{{BaseScore: 0.5, TextPreview: "x"}}
	rerankPool(context.Background(), nil, "intent", pool, slog.Default())
	assert.Equal(t, 0.5, pool[0].BaseScore)
}

func TestRerankPool_BlendsScoreIntoBaseScore(t *testing.T) {
	pool := []CandidateSpan{
		{SpanRef: SpanRef{SpanID: "a"}, BaseScore: 0.2, TextPreview: "alpha"},
		{SpanRef: SpanRef{SpanID: "b"}, BaseScore: 0.8, TextPreview: "beta"},
	}

	rerankPool(context.Background(), NoOpReranker{}, "intent", pool, slog.Default())

	// NoOpReranker scores alpha=1.0, beta=0.99; blended at weight 0.5 with
	// the original base scores.
	assert.InDelta(t, 0.5*0.2+0.5*1.0, pool[0].BaseScore, 1e-9)
	assert.InDelta(t, 0.5*0.8+0.5*0.99, pool[1].BaseScore, 1e-9)
}

func TestRerankPool_SkipsCandidatesWithoutTextPreview(t *testing.T) {
	pool := []CandidateSpan{{SpanRef: SpanRef{SpanID: "a"}, BaseScore: 0.4}}
	rerankPool(context.Background(), NoOpReranker{}, "intent", pool, slog.Default())
	assert.Equal(t, 0.4, pool[0].BaseScore)
}

func TestRerankPool_FailureKeepsExistingScores(t *testing.T) {
	pool := []CandidateSpan{{BaseScore: 0.7, TextPreview: "x"}}
	rerankPool(context.Background(), failingReranker{}, "intent", pool, slog.Default())
	assert.Equal(t, 0.7, pool[0].BaseScore)
}

type failingReranker struct{}

func (failingReranker) Rerank(context.Context, string, []string, int) ([]RerankResult, error) {
	return nil, assertError{}
}
func (failingReranker) Available(context.Context) bool { return false }
func (failingReranker) Close() error                   { return nil }

type assertError struct{}

func (assertError) Error() string { return "rerank failed" }
