package wscompile

// buildReasons derives the human-readable reason tags for a selected
// candidate. hydrationReasons carries any tags hydrate.go recorded for this
// span (HydrationClamped/HydrationMissing).
func buildReasons(c CandidateSpan, preferStages map[Stage]float64, hydrationReasons []ReasonTag) []ReasonTag {
	var reasons []ReasonTag

	switch c.Metadata.SourceType {
	case SourceSession:
		reasons = append(reasons, ReasonSessionPrelude)
	case SourceMemory:
		reasons = append(reasons, ReasonMemoryHit)
	}

	if c.Scores.Semantic > 0 {
		reasons = append(reasons, ReasonSemanticMatch)
	}
	if c.Scores.Lexical > 0 {
		reasons = append(reasons, ReasonLexicalMatch)
	}
	if c.Scores.Structural > 0 {
		reasons = append(reasons, ReasonStructuralMatch)
	}
	if c.Scores.Graph > 0 {
		reasons = append(reasons, ReasonGraphHop)
	}
	if c.Metadata.RecencyScore >= 0.5 {
		reasons = append(reasons, ReasonRecent)
	}
	if stageBoost(c.Metadata.Stage, preferStages) > 0 {
		reasons = append(reasons, ReasonStagePreferred)
	}

	reasons = append(reasons, hydrationReasons...)
	return reasons
}

// buildSourceDistribution computes each filepath's share of total_tokens,
// given the filepath and token cost of every span in the working set.
func buildSourceDistribution(filepaths []string, tokenCosts []int, totalTokens int) map[string]float64 {
	dist := make(map[string]float64)
	if totalTokens == 0 {
		return dist
	}
	tokensByPath := make(map[string]int)
	for i, path := range filepaths {
		tokensByPath[path] += tokenCosts[i]
	}
	for path, tokens := range tokensByPath {
		dist[path] = float64(tokens) / float64(totalTokens)
	}
	return dist
}
