package wscompile

// sessionPreludeCapRatio is the fraction of budget_tokens session spans may
// occupy before MMR runs.
const sessionPreludeCapRatio = 0.5

// buildSessionPrelude trims spans (in source-provided order) to at most
// sessionPreludeCapRatio of budgetTokens, dropping from the tail once the
// cap would be exceeded. It returns the prelude items (already at their
// final WSItem shape, since session spans carry their own text and need no
// hydration) and the token count they reserve.
func buildSessionPrelude(spans []CandidateSpan, budgetTokens int) ([]WSItem, int) {
	cap := int(float64(budgetTokens) * sessionPreludeCapRatio)

	items := make([]WSItem, 0, len(spans))
	used := 0
	for _, s := range spans {
		if used+s.SpanRef.TokenCost > cap {
			break
		}
		items = append(items, WSItem{
			SpanRef: s.SpanRef,
			Text:    s.Text,
		})
		used += s.SpanRef.TokenCost
	}
	return items, used
}
