// Package wscompile implements the working set compiler: it fans out to
// candidate generators, fuses and normalises their scores, runs MMR
// selection under a token budget, hydrates the winning spans, and returns
// an ordered WorkingSet plus stats and optional rationale.
package wscompile

import "time"

// SourceType classifies where a span's content originates.
type SourceType string

const (
	SourceContext   SourceType = "Context"
	SourceKnowledge SourceType = "Knowledge"
	SourceWorkstream SourceType = "Workstream"
	SourceArtifact  SourceType = "Artifact"
	SourceSession   SourceType = "Session"
	SourceMemory    SourceType = "Memory"
)

// Stage names a position in a document's editorial lifecycle.
type Stage string

const (
	StageRequirements Stage = "requirements"
	StageDesign       Stage = "design"
	StageResearch     Stage = "research"
	StageImpl         Stage = "impl"
	StageEval         Stage = "eval"
	StageFinal        Stage = "final"
)

// SpanRef is an immutable, globally addressable unit of reading. Within a
// single DocVersionID, spans are immutable: offsets and cost may not change
// without a new version id.
type SpanRef struct {
	DocVersionID string `json:"doc_version_id"`
	SpanID       string `json:"span_id"`
	CharStart    int    `json:"char_start"`
	CharEnd      int    `json:"char_end"`
	TokenCost    int    `json:"token_cost"`
}

// ScoreChannels holds the four independent retrieval channels, each in
// [0,1] after fusion normalisation. A channel a generator never populates
// defaults to zero.
type ScoreChannels struct {
	Semantic   float64 `json:"semantic"`
	Lexical    float64 `json:"lexical"`
	Structural float64 `json:"structural"`
	Graph      float64 `json:"graph"`
}

// SpanMetadata carries the descriptive fields attached to a candidate span.
type SpanMetadata struct {
	Filepath     string     `json:"filepath"`
	Workstream   string     `json:"workstream,omitempty"`
	Stage        Stage      `json:"stage,omitempty"`
	SectionTitle string     `json:"section_title,omitempty"`
	CreatedAt    int64      `json:"created_at"`
	RecencyScore float64    `json:"recency_score"`
	SourceType   SourceType `json:"source_type"`
}

// CandidateSpan is a SpanRef plus its channel scores, produced during
// generation and consumed through scoring and selection. Embedding, when
// present, is unit-normalised (L2 norm = 1).
type CandidateSpan struct {
	SpanRef     SpanRef       `json:"span_ref"`
	Scores      ScoreChannels `json:"scores"`
	Embedding   []float32     `json:"embedding,omitempty"`
	TextPreview string        `json:"text_preview,omitempty"`
	Text        string        `json:"-"` // pre-attached text (session/memory); bypasses hydration
	Metadata    SpanMetadata  `json:"metadata"`

	// Scratch fields populated during compilation.
	BaseScore float64 `json:"-"`
	MMRScore  float64 `json:"-"`
}

// WSItem is one entry in a compiled WorkingSet.
type WSItem struct {
	SpanRef       SpanRef `json:"span_ref"`
	Text          string  `json:"text"`
	Compression   *string `json:"compression"`
	SourceWeight  float64 `json:"source_weight"`
	SelectionRank int     `json:"selection_rank"`
}

// WorkingSet is the ordered, budget-fitting collection of spans returned to
// the caller. Invariants: TotalTokens == sum of span token costs, ranks are
// a dense permutation of 0..N-1, TotalTokens <= the request's budget.
type WorkingSet struct {
	Spans       []WSItem `json:"spans"`
	TotalTokens int      `json:"total_tokens"`
}

// QuerySignalType enumerates the kinds of free-form query signal a caller
// may attach to a CompileRequest.
type QuerySignalType string

const (
	SignalKeyword          QuerySignalType = "keyword"
	SignalNaturalLanguage  QuerySignalType = "natural_language"
	SignalStructuralHints  QuerySignalType = "structural_hints"
	SignalEpisodeID        QuerySignalType = "episode_id"
)

// QuerySignal is one free-form hint attached to a compile request.
type QuerySignal struct {
	Type  QuerySignalType `json:"type"`
	Value string          `json:"value"`
}

// HardFilters is applied after candidate generation; candidates violating
// any filter are discarded before scoring.
type HardFilters struct {
	Paths         []string `json:"paths,omitempty"`
	Workstreams   []string `json:"workstreams,omitempty"`
	MaxDocAgeDays *int     `json:"max_doc_age_days,omitempty"`
}

// ScoreWeights linearly combines channel scores into a base_score. Weights
// need not sum to 1.
type ScoreWeights struct {
	Semantic   float64 `json:"semantic"`
	Lexical    float64 `json:"lexical"`
	Structural float64 `json:"structural"`
	Graph      float64 `json:"graph"`
	Recency    float64 `json:"recency"`
	StageBoost float64 `json:"stage_boost"`
}

// DefaultScoreWeights returns the package's default channel weights.
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{
		Semantic:   0.40,
		Lexical:    0.20,
		Structural: 0.20,
		Graph:      0.10,
		Recency:    0.05,
		StageBoost: 0.05,
	}
}

// SoftPreferences tunes selection without hard-excluding candidates.
//
// DiversityLambda and MaxSingleSourceRatio are pointers so an explicit 0
// (lambda=0 is a real, meaningful boundary value - see mmrThreshold) can be
// told apart from "caller didn't set this", which falls back to the
// defaults (0.6 and 0.4 respectively).
type SoftPreferences struct {
	DiversityLambda      *float64          `json:"diversity_lambda,omitempty"`
	MaxSingleSourceRatio *float64          `json:"max_single_source_ratio,omitempty"`
	PreferStages         map[Stage]float64 `json:"prefer_stages,omitempty"`
	ScoreWeights         *ScoreWeights     `json:"score_weights,omitempty"`
	// AutoClassifyWeights picks a ScoreWeights preset from the intent's
	// surface pattern (see ClassifyIntent) instead of DefaultScoreWeights.
	// Ignored when ScoreWeights is set explicitly.
	AutoClassifyWeights bool `json:"auto_classify_weights,omitempty"`
}

const (
	defaultDiversityLambda      = 0.6
	defaultMaxSingleSourceRatio = 0.4
)

// EffectiveDiversityLambda returns the request's lambda, or the default
// (0.6) if unset.
func (p SoftPreferences) EffectiveDiversityLambda() float64 {
	if p.DiversityLambda != nil {
		return *p.DiversityLambda
	}
	return defaultDiversityLambda
}

// EffectiveMaxSingleSourceRatio returns the request's source ratio cap, or
// the default (0.4) if unset.
func (p SoftPreferences) EffectiveMaxSingleSourceRatio() float64 {
	if p.MaxSingleSourceRatio != nil {
		return *p.MaxSingleSourceRatio
	}
	return defaultMaxSingleSourceRatio
}

// Float64 is a small helper for building SoftPreferences/HardFilters
// pointer fields from a literal, e.g. SoftPreferences{DiversityLambda:
// wscompile.Float64(0)}.
func Float64(v float64) *float64 { return &v }

// DefaultSoftPreferences returns the package defaults, with both pointer
// fields explicitly set (useful for callers who want a concrete value to
// mutate rather than relying on the Effective* accessors).
func DefaultSoftPreferences() SoftPreferences {
	return SoftPreferences{
		DiversityLambda:      Float64(defaultDiversityLambda),
		MaxSingleSourceRatio: Float64(defaultMaxSingleSourceRatio),
	}
}

// CompileRequest is the input to Compiler.Compile.
type CompileRequest struct {
	Intent       string          `json:"intent"`
	TaskID       string          `json:"task_id,omitempty"`
	SessionID    string          `json:"session_id,omitempty"`
	UserID       string          `json:"user_id,omitempty"`
	QuerySignals []QuerySignal   `json:"query_signals,omitempty"`
	BudgetTokens int             `json:"budget_tokens"`
	HardFilters  HardFilters     `json:"hard_filters"`
	SoftPrefs    SoftPreferences `json:"soft_prefs"`
	Explain      bool            `json:"explain"`
	// ExpandKeywords runs the derived keyword set through ExpandKeywords
	// (code-vocabulary synonyms plus camelCase/snake_case splits) before
	// fan-out, trading keyword-set precision for lexical recall.
	ExpandKeywords bool `json:"expand_keywords,omitempty"`
}

// DerivedSignals is the output of signal derivation.
type DerivedSignals struct {
	Intent           string
	IntentEmbedding  []float32
	Keywords         []string
	StructHints      []string
	EpisodeContext   string
}

// ReasonTag is a short human-readable explanation fragment.
type ReasonTag string

const (
	ReasonSemanticMatch    ReasonTag = "semantic_match"
	ReasonLexicalMatch     ReasonTag = "lexical_match"
	ReasonStructuralMatch  ReasonTag = "structural_match"
	ReasonGraphHop         ReasonTag = "graph_hop"
	ReasonRecent           ReasonTag = "recent"
	ReasonStagePreferred   ReasonTag = "stage_preferred"
	ReasonSessionPrelude   ReasonTag = "session_prelude"
	ReasonMemoryHit        ReasonTag = "memory_hit"
	ReasonHydrationClamped ReasonTag = "hydration_clamped"
	ReasonHydrationMissing ReasonTag = "hydration_missing"
)

// SpanExplanation is emitted per selected span when CompileRequest.Explain
// is true.
type SpanExplanation struct {
	SpanID            string      `json:"span_id"`
	FinalScore        float64     `json:"final_score"`
	BaseScore         float64     `json:"base_score"`
	DiversityPenalty  float64     `json:"diversity_penalty"`
	Reasons           []ReasonTag `json:"reasons"`
}

// Stats summarises one compile, independent of Explain.
type Stats struct {
	CandidatesGenerated    int                `json:"candidates_generated"`
	CandidatesAfterFilters int                `json:"candidates_after_filters"`
	TokenUtilization       float64            `json:"token_utilization"`
	SourceDistribution     map[string]float64 `json:"source_distribution"`
	GenerationTimeMS       int64              `json:"generation_time_ms"`
	SelectionTimeMS        int64              `json:"selection_time_ms"`
	RelaxedFilters         []string           `json:"relaxed_filters,omitempty"`
	// Reason carries a non-error outcome note, e.g. "budget_too_small" when
	// candidates existed but none fit the budget.
	Reason string `json:"reason,omitempty"`
}

// ReasonBudgetTooSmall is the Stats.Reason value for the "tiny budget" edge
// case: candidates exist but none fit, so the working set is empty without
// that being a terminal failure.
const ReasonBudgetTooSmall = "budget_too_small"

// CompileResponse is the output of Compiler.Compile.
type CompileResponse struct {
	WorkingSet WorkingSet        `json:"workingset"`
	Stats      Stats             `json:"stats"`
	Rationale  []SpanExplanation `json:"rationale,omitempty"`
}

// clockNow is overridable in tests that need deterministic timestamps;
// production code always uses time.Now.
var clockNow = time.Now
