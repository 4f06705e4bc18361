package wscompile

import (
	"context"
	"os"
)

// hydrator attaches span text from the filesystem, caching file contents
// for the lifetime of a single compile. This cache is deliberately a plain
// map, not an LRU: it is request-scoped and dies with the compile, so it
// structurally cannot need an eviction policy.
type hydrator struct {
	fileContents map[string][]rune
	reasons      map[string][]ReasonTag // span_id -> reasons accumulated during hydration
}

func newHydrator() *hydrator {
	return &hydrator{
		fileContents: make(map[string][]rune),
		reasons:      make(map[string][]ReasonTag),
	}
}

// hydrate fills in text for a span whose text is not already pre-attached
// (session and memory candidates carry their own text and are never passed
// here). char_start/char_end are character offsets, not byte offsets.
//
// If the file is missing, text becomes "" and HydrationMissing is recorded.
// If offsets are out of range, they are clamped to [0, file_len) and
// HydrationClamped is recorded. Neither case removes the span.
func (h *hydrator) hydrate(ctx context.Context, ref SpanRef, meta SpanMetadata) string {
	select {
	case <-ctx.Done():
		return ""
	default:
	}

	runes, ok := h.fileContents[meta.Filepath]
	if !ok {
		data, err := os.ReadFile(meta.Filepath)
		if err != nil {
			h.reasons[ref.SpanID] = append(h.reasons[ref.SpanID], ReasonHydrationMissing)
			h.fileContents[meta.Filepath] = nil
			return ""
		}
		runes = []rune(string(data))
		h.fileContents[meta.Filepath] = runes
	}
	if runes == nil {
		h.reasons[ref.SpanID] = append(h.reasons[ref.SpanID], ReasonHydrationMissing)
		return ""
	}

	start, end := ref.CharStart, ref.CharEnd
	clamped := false
	if start < 0 {
		start = 0
		clamped = true
	}
	if end > len(runes) {
		end = len(runes)
		clamped = true
	}
	if start > end {
		start = end
	}
	if clamped {
		h.reasons[ref.SpanID] = append(h.reasons[ref.SpanID], ReasonHydrationClamped)
	}

	return string(runes[start:end])
}

// reasonsFor returns the hydration-derived reason tags recorded for spanID.
func (h *hydrator) reasonsFor(spanID string) []ReasonTag {
	return h.reasons[spanID]
}
