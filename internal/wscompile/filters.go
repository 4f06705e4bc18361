package wscompile

import "time"

// relaxationStep names one hard filter that can be progressively dropped.
// On an empty filtered pool, the compiler retries once with filters
// relaxed in this order: drop max_doc_age_days, drop paths, drop
// workstreams.
type relaxationStep string

const (
	relaxMaxDocAge    relaxationStep = "max_doc_age_days"
	relaxPaths        relaxationStep = "paths"
	relaxWorkstreams  relaxationStep = "workstreams"
)

var relaxationOrder = []relaxationStep{relaxMaxDocAge, relaxPaths, relaxWorkstreams}

// applyHardFilters discards candidates that violate any of filters.
func applyHardFilters(pool []CandidateSpan, filters HardFilters) []CandidateSpan {
	out := make([]CandidateSpan, 0, len(pool))
	for _, c := range pool {
		if !passesHardFilters(c, filters) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func passesHardFilters(c CandidateSpan, filters HardFilters) bool {
	if len(filters.Paths) > 0 && !containsString(filters.Paths, c.Metadata.Filepath) {
		return false
	}
	if len(filters.Workstreams) > 0 && !containsString(filters.Workstreams, c.Metadata.Workstream) {
		return false
	}
	if filters.MaxDocAgeDays != nil {
		age := time.Since(time.Unix(c.Metadata.CreatedAt, 0))
		if age > time.Duration(*filters.MaxDocAgeDays)*24*time.Hour {
			return false
		}
	}
	return true
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

// relax drops the named filter from filters, returning the relaxed copy.
func relax(filters HardFilters, step relaxationStep) HardFilters {
	switch step {
	case relaxMaxDocAge:
		filters.MaxDocAgeDays = nil
	case relaxPaths:
		filters.Paths = nil
	case relaxWorkstreams:
		filters.Workstreams = nil
	}
	return filters
}
