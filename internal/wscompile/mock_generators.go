package wscompile

import "context"

// MockGenerator is a deterministic fixture generator for tests: it returns
// a fixed candidate list (optionally truncated to topK) or a fixed error.
type MockGenerator struct {
	GenName    string
	Candidates []CandidateSpan
	Err        error
}

// NewMockSemanticGen builds a fixture generator whose candidates populate
// the semantic channel.
func NewMockSemanticGen(candidates []CandidateSpan) *MockGenerator {
	return &MockGenerator{GenName: "semantic", Candidates: candidates}
}

// NewMockLexicalGen builds a fixture generator whose candidates populate
// the lexical channel.
func NewMockLexicalGen(candidates []CandidateSpan) *MockGenerator {
	return &MockGenerator{GenName: "lexical", Candidates: candidates}
}

// NewMockStructuralGen builds a fixture generator for the structural channel.
func NewMockStructuralGen(candidates []CandidateSpan) *MockGenerator {
	return &MockGenerator{GenName: "structural", Candidates: candidates}
}

// NewMockGraphGen builds a fixture generator for the optional graph channel.
func NewMockGraphGen(candidates []CandidateSpan) *MockGenerator {
	return &MockGenerator{GenName: "graph", Candidates: candidates}
}

// NewFailingGen builds a fixture generator that always returns err, for
// exercising the partial-failure and AllGeneratorsFailed paths.
func NewFailingGen(name string, err error) *MockGenerator {
	return &MockGenerator{GenName: name, Err: err}
}

// Name returns the generator's identity.
func (m *MockGenerator) Name() string { return m.GenName }

// Generate returns the fixture candidates (or the fixture error), truncated
// to at most topK per the generator contract.
func (m *MockGenerator) Generate(ctx context.Context, signals DerivedSignals, filters HardFilters, topK int) ([]CandidateSpan, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if topK > 0 && len(m.Candidates) > topK {
		return append([]CandidateSpan(nil), m.Candidates[:topK]...), nil
	}
	return append([]CandidateSpan(nil), m.Candidates...), nil
}

// MockSessionSource is a deterministic fixture SessionSource.
type MockSessionSource struct {
	Spans []CandidateSpan
	Err   error
}

// Fetch returns the fixture session spans or the fixture error.
func (m *MockSessionSource) Fetch(ctx context.Context, sessionID string) ([]CandidateSpan, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return append([]CandidateSpan(nil), m.Spans...), nil
}

// MockMemorySource is a deterministic fixture MemorySource.
type MockMemorySource struct {
	Memories []CandidateSpan
	Err      error
}

// Fetch returns the fixture memory candidates or the fixture error.
func (m *MockMemorySource) Fetch(ctx context.Context, userID, query string) ([]CandidateSpan, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return append([]CandidateSpan(nil), m.Memories...), nil
}
