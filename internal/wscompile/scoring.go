package wscompile

import (
	"math"
	"sort"
)

const (
	minPoolSize = 32
	maxPoolSize = 1000
	poolFactor  = 5
)

// stageBoost returns the weight assigned to stage in preferStages, or 0 if
// the stage is absent or unset.
func stageBoost(stage Stage, preferStages map[Stage]float64) float64 {
	if stage == "" || preferStages == nil {
		return 0
	}
	return preferStages[stage]
}

// scoreCandidates computes base_score for every candidate in pool using the
// effective weights (soft_prefs override, else defaults).
func scoreCandidates(pool []CandidateSpan, weights ScoreWeights, preferStages map[Stage]float64) {
	for i := range pool {
		c := &pool[i]
		c.BaseScore = weights.Semantic*c.Scores.Semantic +
			weights.Lexical*c.Scores.Lexical +
			weights.Structural*c.Scores.Structural +
			weights.Graph*c.Scores.Graph +
			weights.Recency*c.Metadata.RecencyScore +
			weights.StageBoost*stageBoost(c.Metadata.Stage, preferStages)
	}
}

// prunePool sorts pool by base_score descending and truncates it to
// 5*ceil(budget_tokens/median_token_cost), clamped to [32, 1000].
func prunePool(pool []CandidateSpan, budgetTokens int) []CandidateSpan {
	sort.Slice(pool, func(i, j int) bool {
		return pool[i].BaseScore > pool[j].BaseScore
	})

	if len(pool) <= minPoolSize {
		return pool
	}

	median := medianTokenCost(pool)
	if median <= 0 {
		median = 1
	}

	limit := poolFactor * int(math.Ceil(float64(budgetTokens)/float64(median)))
	if limit < minPoolSize {
		limit = minPoolSize
	}
	if limit > maxPoolSize {
		limit = maxPoolSize
	}
	if limit >= len(pool) {
		return pool
	}
	return pool[:limit]
}

func medianTokenCost(pool []CandidateSpan) int {
	costs := make([]int, len(pool))
	for i, c := range pool {
		costs[i] = c.SpanRef.TokenCost
	}
	sort.Ints(costs)
	mid := len(costs) / 2
	if len(costs)%2 == 1 {
		return costs[mid]
	}
	if len(costs) == 0 {
		return 0
	}
	return (costs[mid-1] + costs[mid]) / 2
}
