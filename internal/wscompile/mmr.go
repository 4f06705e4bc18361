package wscompile

import (
	"math"
	"sort"
)

// mmrThreshold is the hard-coded minimum MMR score a candidate must clear
// to be selected. At lambda=0 this can never be cleared, since mmr(c)
// reduces to -sim(c) which is always <= 0; the intended consequence is that
// a zero diversity weight selects nothing, not "most diverse first."
const mmrThreshold = 0.10

// usedTokensCeilingRatio stops selection once used_tokens reaches this
// fraction of the budget, even if candidates remain.
const usedTokensCeilingRatio = 0.98

// tieBreakEpsilon is the MMR-score gap below which candidates are
// considered tied and broken by the secondary rules.
const tieBreakEpsilon = 0.01

// selectedItem is one chosen candidate plus the diversity penalty incurred at
// the moment it was picked.
type selectedItem struct {
	candidate        CandidateSpan
	diversityPenalty float64
}

// mmrSelect runs the greedy MMR knapsack over pool, starting with
// usedTokens already reserved (by the session prelude, if any). It returns
// the selection in chosen order.
func mmrSelect(pool []CandidateSpan, usedTokens, budgetTokens int, lambda, maxSourceRatio float64) []selectedItem {
	remaining := append([]CandidateSpan(nil), pool...)
	var chosen []selectedItem
	selectedEmbeddings := make([][]float32, 0)
	selectedMeta := make([]SpanMetadata, 0)
	sourceTokens := make(map[string]int)
	sourcesSeen := make(map[string]struct{})

	poolHasMultipleSources := distinctSourceCount(pool) >= 2

	for {
		if len(remaining) == 0 {
			break
		}
		if float64(usedTokens) >= usedTokensCeilingRatio*float64(budgetTokens) {
			break
		}

		type scored struct {
			idx int
			mmr float64
			sim float64
		}
		scoredCands := make([]scored, len(remaining))
		for i, c := range remaining {
			sim := maxSimilarity(c, selectedEmbeddings, selectedMeta)
			scoredCands[i] = scored{idx: i, mmr: lambda*c.BaseScore - (1-lambda)*sim, sim: sim}
		}

		sort.Slice(scoredCands, func(i, j int) bool {
			a, b := scoredCands[i], scoredCands[j]
			if math.Abs(a.mmr-b.mmr) >= tieBreakEpsilon {
				return a.mmr > b.mmr
			}
			ca, cb := remaining[a.idx], remaining[b.idx]
			if ca.SpanRef.TokenCost != cb.SpanRef.TokenCost {
				return ca.SpanRef.TokenCost < cb.SpanRef.TokenCost
			}
			if ca.Metadata.CreatedAt != cb.Metadata.CreatedAt {
				return ca.Metadata.CreatedAt > cb.Metadata.CreatedAt
			}
			return ca.SpanRef.SpanID < cb.SpanRef.SpanID
		})

		if scoredCands[0].mmr < mmrThreshold {
			break
		}

		enforceSourceRatio := len(sourcesSeen) >= 2 || poolHasMultipleSources

		pickedAt := -1
		for _, sc := range scoredCands {
			c := remaining[sc.idx]
			if usedTokens+c.SpanRef.TokenCost > budgetTokens {
				continue
			}
			if enforceSourceRatio {
				limit := maxSourceRatio * float64(budgetTokens)
				if float64(sourceTokens[c.Metadata.Filepath]+c.SpanRef.TokenCost) > limit {
					continue
				}
			}
			pickedAt = sc.idx
			c.MMRScore = sc.mmr
			chosen = append(chosen, selectedItem{candidate: c, diversityPenalty: (1 - lambda) * sc.sim})
			usedTokens += c.SpanRef.TokenCost
			sourceTokens[c.Metadata.Filepath] += c.SpanRef.TokenCost
			sourcesSeen[c.Metadata.Filepath] = struct{}{}
			if len(c.Embedding) > 0 {
				selectedEmbeddings = append(selectedEmbeddings, c.Embedding)
			} else {
				selectedEmbeddings = append(selectedEmbeddings, nil)
			}
			selectedMeta = append(selectedMeta, c.Metadata)
			break
		}

		if pickedAt < 0 {
			// Nothing in the remaining pool fits the budget or source ratio.
			break
		}
		remaining = append(remaining[:pickedAt], remaining[pickedAt+1:]...)
	}

	return chosen
}

// maxSimilarity returns the maximum similarity between c and any
// already-selected item. When both c and a selected item have embeddings,
// similarity is cosine similarity; otherwise similarity falls back to the
// metadata-match rule (same filepath and same non-empty section_title ⇒ 1,
// else 0).
func maxSimilarity(c CandidateSpan, selectedEmbeddings [][]float32, selectedMeta []SpanMetadata) float64 {
	max := 0.0
	for i := range selectedMeta {
		var sim float64
		if len(c.Embedding) > 0 && len(selectedEmbeddings[i]) > 0 {
			sim = cosineSimilarity(c.Embedding, selectedEmbeddings[i])
		} else if c.Metadata.Filepath != "" && c.Metadata.Filepath == selectedMeta[i].Filepath &&
			c.Metadata.SectionTitle != "" && c.Metadata.SectionTitle == selectedMeta[i].SectionTitle {
			sim = 1.0
		}
		if sim > max {
			max = sim
		}
	}
	return max
}

// cosineSimilarity computes cosine similarity between two equal-length
// vectors. Embeddings are unit-normalised by contract, so this reduces to
// a dot product, but the general form is kept defensively.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func distinctSourceCount(pool []CandidateSpan) int {
	seen := make(map[string]struct{})
	for _, c := range pool {
		seen[c.Metadata.Filepath] = struct{}{}
	}
	return len(seen)
}
