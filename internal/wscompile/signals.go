package wscompile

import "strings"

// stopWords is a small, fixed set filtered out of intent tokenisation. It
// is intentionally short: the keyword extraction here is a coarse fallback
// for generators that don't do their own lexical analysis, not a full
// stop-word list.
var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "that": true,
	"this": true, "from": true, "into": true, "are": true, "was": true,
	"were": true, "has": true, "have": true, "had": true, "not": true,
	"but": true, "can": true, "will": true, "out": true, "all": true,
}

// deriveSignals normalises the intent for keyword extraction, unions
// explicit keyword signals with a stop-word-filtered tokenisation, and
// passes structural hints through untouched.
//
// Fails fast with ErrEmptyRequest if both the intent and the derived
// keyword set are empty.
func deriveSignals(req CompileRequest) (DerivedSignals, error) {
	normalized := strings.ToLower(strings.Join(strings.Fields(req.Intent), " "))

	keywordSet := make(map[string]struct{})
	var structHints []string
	var episode string

	for _, sig := range req.QuerySignals {
		switch sig.Type {
		case SignalKeyword:
			if sig.Value != "" {
				keywordSet[sig.Value] = struct{}{}
			}
		case SignalStructuralHints:
			if sig.Value != "" {
				structHints = append(structHints, sig.Value)
			}
		case SignalEpisodeID:
			episode = sig.Value
		}
	}

	for _, tok := range strings.Fields(normalized) {
		tok = strings.Trim(tok, ".,;:!?\"'()[]{}")
		if len(tok) >= 3 && !stopWords[tok] {
			keywordSet[tok] = struct{}{}
		}
	}

	keywords := make([]string, 0, len(keywordSet))
	for k := range keywordSet {
		keywords = append(keywords, k)
	}

	if req.ExpandKeywords {
		keywords = ExpandKeywords(keywords)
	}

	if strings.TrimSpace(req.Intent) == "" && len(keywords) == 0 {
		return DerivedSignals{}, ErrEmptyRequest
	}

	return DerivedSignals{
		Intent:         req.Intent,
		Keywords:       keywords,
		StructHints:    structHints,
		EpisodeContext: episode,
	}, nil
}
