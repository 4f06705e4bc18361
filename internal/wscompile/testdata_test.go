package wscompile

// --- Shared test fixtures -------------------------------------------------
//
// These builders keep the per-file test suites terse: each test only sets
// the fields it cares about and leaves the rest at sensible zero-ish
// defaults.

func makeCandidate(docID, spanID string, tokenCost int, scores ScoreChannels) CandidateSpan {
	return CandidateSpan{
		SpanRef: SpanRef{
			DocVersionID: docID,
			SpanID:       spanID,
			CharStart:    0,
			CharEnd:      100,
			TokenCost:    tokenCost,
		},
		Scores: scores,
		Metadata: SpanMetadata{
			Filepath:   "/docs/" + docID + ".md",
			SourceType: SourceKnowledge,
			CreatedAt:  1000,
		},
	}
}

func withFilepath(c CandidateSpan, path string) CandidateSpan {
	c.Metadata.Filepath = path
	return c
}

func withEmbedding(c CandidateSpan, emb []float32) CandidateSpan {
	c.Embedding = emb
	return c
}
