package wscompile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBuildSessionPrelude_CapsAtHalfBudget exercises S4: 3 spans totalling
// 4000 tokens, budget_tokens=6000 -> prelude trimmed to <= 3000 tokens (the
// 50% cap), leaving 3000 for MMR.
func TestBuildSessionPrelude_CapsAtHalfBudget(t *testing.T) {
	spans := []CandidateSpan{
		{SpanRef: SpanRef{SpanID: "s1", TokenCost: 1500}, Text: "one"},
		{SpanRef: SpanRef{SpanID: "s2", TokenCost: 1500}, Text: "two"},
		{SpanRef: SpanRef{SpanID: "s3", TokenCost: 1000}, Text: "three"},
	}

	items, used := buildSessionPrelude(spans, 6000)

	assert.LessOrEqual(t, used, 3000)
	require.Len(t, items, 2)
	assert.Equal(t, "s1", items[0].SpanRef.SpanID)
	assert.Equal(t, "s2", items[1].SpanRef.SpanID)
	assert.Equal(t, 3000, used)
}

func TestBuildSessionPrelude_EmptyWhenNoSpans(t *testing.T) {
	items, used := buildSessionPrelude(nil, 1000)
	assert.Empty(t, items)
	assert.Equal(t, 0, used)
}

func TestBuildSessionPrelude_PreservesSourceOrder(t *testing.T) {
	spans := []CandidateSpan{
		{SpanRef: SpanRef{SpanID: "first", TokenCost: 10}},
		{SpanRef: SpanRef{SpanID: "second", TokenCost: 10}},
	}

	items, _ := buildSessionPrelude(spans, 1000)

	require.Len(t, items, 2)
	assert.Equal(t, "first", items[0].SpanRef.SpanID)
	assert.Equal(t, "second", items[1].SpanRef.SpanID)
}

func TestBuildSessionPrelude_CarriesPreattachedTextThrough(t *testing.T) {
	spans := []CandidateSpan{
		{SpanRef: SpanRef{SpanID: "s1", TokenCost: 5}, Text: "hello world"},
	}

	items, _ := buildSessionPrelude(spans, 100)

	require.Len(t, items, 1)
	assert.Equal(t, "hello world", items[0].Text)
}
