package wscompile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreCandidates_WeightedLinearCombination(t *testing.T) {
	pool := []CandidateSpan{
		{
			Scores:   ScoreChannels{Semantic: 1.0, Lexical: 1.0, Structural: 1.0, Graph: 1.0},
			Metadata: SpanMetadata{RecencyScore: 1.0, Stage: StageImpl},
		},
	}
	weights := DefaultScoreWeights()
	preferStages := map[Stage]float64{StageImpl: 1.0}

	scoreCandidates(pool, weights, preferStages)

	expected := weights.Semantic + weights.Lexical + weights.Structural + weights.Graph +
		weights.Recency + weights.StageBoost
	assert.InDelta(t, expected, pool[0].BaseScore, 1e-9)
}

func TestScoreCandidates_WeightsNeedNotSumToOne(t *testing.T) {
	// Weights need not sum to 1; scoring must not normalise them.
	pool := []CandidateSpan{{Scores: ScoreChannels{Semantic: 1.0}}}
	weights := ScoreWeights{Semantic: 2.0}

	scoreCandidates(pool, weights, nil)

	assert.Equal(t, 2.0, pool[0].BaseScore)
}

func TestStageBoost_UnsetStageOrMapIsZero(t *testing.T) {
	assert.Equal(t, 0.0, stageBoost("", map[Stage]float64{StageImpl: 1}))
	assert.Equal(t, 0.0, stageBoost(StageImpl, nil))
	assert.Equal(t, 1.0, stageBoost(StageImpl, map[Stage]float64{StageImpl: 1}))
}

func TestPrunePool_SortsDescendingByBaseScore(t *testing.T) {
	pool := []CandidateSpan{
		{SpanRef: SpanRef{SpanID: "low", TokenCost: 5}, BaseScore: 0.1},
		{SpanRef: SpanRef{SpanID: "high", TokenCost: 5}, BaseScore: 0.9},
		{SpanRef: SpanRef{SpanID: "mid", TokenCost: 5}, BaseScore: 0.5},
	}

	pruned := prunePool(pool, 100)

	require.Len(t, pruned, 3)
	assert.Equal(t, "high", pruned[0].SpanRef.SpanID)
	assert.Equal(t, "mid", pruned[1].SpanRef.SpanID)
	assert.Equal(t, "low", pruned[2].SpanRef.SpanID)
}

func TestPrunePool_TruncatesToBudgetDerivedLimitClampedToRange(t *testing.T) {
	// 2000 candidates, token cost 10 each, budget 100 -> raw limit
	// 5*ceil(100/10) = 50, within [32,1000], so exactly 50 survive.
	pool := make([]CandidateSpan, 2000)
	for i := range pool {
		pool[i] = CandidateSpan{
			SpanRef:   SpanRef{SpanID: string(rune('a' + i%26)), TokenCost: 10},
			BaseScore: float64(2000 - i),
		}
	}

	pruned := prunePool(pool, 100)

	assert.Len(t, pruned, 50)
}

func TestPrunePool_ClampsToMinimumThirtyTwo(t *testing.T) {
	pool := make([]CandidateSpan, 200)
	for i := range pool {
		pool[i] = CandidateSpan{SpanRef: SpanRef{TokenCost: 1000}, BaseScore: float64(i)}
	}

	// budget 1, median 1000 -> raw limit 5*ceil(1/1000)=5, clamped up to 32.
	pruned := prunePool(pool, 1)

	assert.Len(t, pruned, 32)
}

func TestPrunePool_ClampsToMaximumOneThousand(t *testing.T) {
	pool := make([]CandidateSpan, 2000)
	for i := range pool {
		pool[i] = CandidateSpan{SpanRef: SpanRef{TokenCost: 1}, BaseScore: float64(i)}
	}

	// budget huge, median 1 -> raw limit way above 1000, clamped down.
	pruned := prunePool(pool, 1_000_000)

	assert.Len(t, pruned, 1000)
}

func TestPrunePool_PoolAtOrBelowMinimumIsUntouched(t *testing.T) {
	pool := make([]CandidateSpan, 10)
	for i := range pool {
		pool[i] = CandidateSpan{BaseScore: float64(i)}
	}

	pruned := prunePool(pool, 100)

	assert.Len(t, pruned, 10)
}
