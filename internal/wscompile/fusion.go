package wscompile

import (
	"math"
	"sort"
)

// normEpsilon is the epsilon used by min-max normalisation.
const normEpsilon = 1e-9

// candidateKey identifies a candidate for deduplication purposes.
type candidateKey struct {
	DocVersionID string
	SpanID       string
}

func keyOf(c CandidateSpan) candidateKey {
	return candidateKey{DocVersionID: c.SpanRef.DocVersionID, SpanID: c.SpanRef.SpanID}
}

// fuseCandidates merges candidate lists from every generator, deduplicating
// by (doc_version_id, span_id). Duplicate channel scores are combined by
// element-wise max; text_preview and metadata come from the first
// occurrence; the embedding is taken from whichever source provided one,
// preferring the semantic generator's.
func fuseCandidates(byGenerator map[string][]CandidateSpan) []CandidateSpan {
	order := make([]candidateKey, 0)
	merged := make(map[candidateKey]CandidateSpan)

	// Deterministic generator iteration order keeps "first occurrence"
	// meaningful across runs with identical inputs.
	names := make([]string, 0, len(byGenerator))
	for name := range byGenerator {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for _, c := range byGenerator[name] {
			k := keyOf(c)
			existing, ok := merged[k]
			if !ok {
				merged[k] = c
				order = append(order, k)
				continue
			}

			existing.Scores.Semantic = math.Max(existing.Scores.Semantic, c.Scores.Semantic)
			existing.Scores.Lexical = math.Max(existing.Scores.Lexical, c.Scores.Lexical)
			existing.Scores.Structural = math.Max(existing.Scores.Structural, c.Scores.Structural)
			existing.Scores.Graph = math.Max(existing.Scores.Graph, c.Scores.Graph)

			if len(existing.Embedding) == 0 && len(c.Embedding) > 0 {
				existing.Embedding = c.Embedding
			} else if name == "semantic" && len(c.Embedding) > 0 {
				existing.Embedding = c.Embedding
			}

			merged[k] = existing
		}
	}

	out := make([]CandidateSpan, 0, len(order))
	for _, k := range order {
		out = append(out, merged[k])
	}
	return out
}

// normalizeChannels applies independent min-max normalisation to each of
// the four channels across pool. If a channel's spread is below
// normEpsilon, it is treated as inactive: candidates with x > 0 get 1.0,
// others get 0.0.
func normalizeChannels(pool []CandidateSpan) {
	if len(pool) == 0 {
		return
	}

	type extent struct{ min, max float64 }
	extents := map[string]*extent{
		"semantic":   {math.Inf(1), math.Inf(-1)},
		"lexical":    {math.Inf(1), math.Inf(-1)},
		"structural": {math.Inf(1), math.Inf(-1)},
		"graph":      {math.Inf(1), math.Inf(-1)},
	}

	get := func(c CandidateSpan, channel string) float64 {
		switch channel {
		case "semantic":
			return c.Scores.Semantic
		case "lexical":
			return c.Scores.Lexical
		case "structural":
			return c.Scores.Structural
		default:
			return c.Scores.Graph
		}
	}

	for _, c := range pool {
		for channel, e := range extents {
			v := get(c, channel)
			if v < e.min {
				e.min = v
			}
			if v > e.max {
				e.max = v
			}
		}
	}

	set := func(c *CandidateSpan, channel string, v float64) {
		switch channel {
		case "semantic":
			c.Scores.Semantic = v
		case "lexical":
			c.Scores.Lexical = v
		case "structural":
			c.Scores.Structural = v
		case "graph":
			c.Scores.Graph = v
		}
	}

	for i := range pool {
		for channel, e := range extents {
			raw := get(pool[i], channel)
			spread := e.max - e.min
			var normalized float64
			if spread < normEpsilon {
				if raw > 0 {
					normalized = 1.0
				} else {
					normalized = 0.0
				}
			} else {
				normalized = (raw - e.min) / (spread + normEpsilon)
			}
			set(&pool[i], channel, normalized)
		}
	}
}
