// Package compiler is the public facade over internal/wscompile: it
// re-exports the types and constructors a caller embedding the working set
// compiler into their own service needs, without exposing internal
// pipeline-stage functions.
package compiler

import (
	"context"
	"log/slog"

	"github.com/contextdb/wscompile/internal/telemetry"
	"github.com/contextdb/wscompile/internal/wscompile"
)

// Re-exported request/response types.
type (
	CompileRequest  = wscompile.CompileRequest
	CompileResponse = wscompile.CompileResponse
	CandidateSpan   = wscompile.CandidateSpan
	SpanRef         = wscompile.SpanRef
	SpanMetadata    = wscompile.SpanMetadata
	ScoreChannels   = wscompile.ScoreChannels
	ScoreWeights    = wscompile.ScoreWeights
	SoftPreferences = wscompile.SoftPreferences
	HardFilters     = wscompile.HardFilters
	QuerySignal     = wscompile.QuerySignal
	WorkingSet      = wscompile.WorkingSet
	WSItem          = wscompile.WSItem
	Stats           = wscompile.Stats
	SpanExplanation = wscompile.SpanExplanation
	ReasonTag       = wscompile.ReasonTag
	Stage           = wscompile.Stage
	SourceType      = wscompile.SourceType

	Generator     = wscompile.Generator
	SessionSource = wscompile.SessionSource
	MemorySource  = wscompile.MemorySource
	Reranker      = wscompile.Reranker
	RerankResult  = wscompile.RerankResult
)

// Re-exported query signal types.
const (
	SignalKeyword         = wscompile.SignalKeyword
	SignalNaturalLanguage = wscompile.SignalNaturalLanguage
	SignalStructuralHints = wscompile.SignalStructuralHints
	SignalEpisodeID       = wscompile.SignalEpisodeID
)

// Re-exported source types.
const (
	SourceContext    = wscompile.SourceContext
	SourceKnowledge  = wscompile.SourceKnowledge
	SourceWorkstream = wscompile.SourceWorkstream
	SourceArtifact   = wscompile.SourceArtifact
	SourceSession    = wscompile.SourceSession
	SourceMemory     = wscompile.SourceMemory
)

// DefaultScoreWeights returns the package's default channel weights.
func DefaultScoreWeights() ScoreWeights { return wscompile.DefaultScoreWeights() }

// DefaultSoftPreferences returns the package defaults for soft preferences.
func DefaultSoftPreferences() SoftPreferences { return wscompile.DefaultSoftPreferences() }

// Float64 builds a *float64 for SoftPreferences' pointer fields from a
// literal, disambiguating an explicit 0 from "unset".
func Float64(v float64) *float64 { return wscompile.Float64(v) }

// Re-exported intent classification types and helpers (opt-in via
// SoftPreferences.AutoClassifyWeights).
type IntentClass = wscompile.IntentClass

const (
	IntentLexical  = wscompile.IntentLexical
	IntentSemantic = wscompile.IntentSemantic
	IntentMixed    = wscompile.IntentMixed
)

// ClassifyIntent buckets intent by surface pattern.
func ClassifyIntent(intent string) IntentClass { return wscompile.ClassifyIntent(intent) }

// WeightsForIntentClass returns the ScoreWeights preset for class.
func WeightsForIntentClass(class IntentClass) ScoreWeights {
	return wscompile.WeightsForIntentClass(class)
}

// ExpandKeywords expands keywords with code-vocabulary synonyms and
// casing splits (opt-in via CompileRequest.ExpandKeywords).
func ExpandKeywords(keywords []string) []string { return wscompile.ExpandKeywords(keywords) }

// CrossEncoderRerankerConfig configures a remote cross-encoder reranker.
type CrossEncoderRerankerConfig = wscompile.CrossEncoderRerankerConfig

// NewCrossEncoderReranker creates a Reranker backed by a remote
// cross-encoder model server.
func NewCrossEncoderReranker(ctx context.Context, cfg CrossEncoderRerankerConfig) (*wscompile.CrossEncoderReranker, error) {
	return wscompile.NewCrossEncoderReranker(ctx, cfg)
}

// Compiler runs the working set compilation pipeline for one deployment:
// signal derivation, generator fan-out, fusion, scoring, MMR selection,
// hydration, and stats/rationale construction.
type Compiler struct {
	inner *wscompile.Compiler
}

// Option configures a Compiler.
type Option func(*wscompile.Compiler)

// WithGenerators sets the built-in generators invoked on every fan-out.
func WithGenerators(gens ...Generator) Option {
	return Option(wscompile.WithGenerators(gens...))
}

// WithSessionSource attaches a session-prelude source.
func WithSessionSource(s SessionSource) Option { return Option(wscompile.WithSessionSource(s)) }

// WithMemorySource attaches a long-term-memory source.
func WithMemorySource(m MemorySource) Option { return Option(wscompile.WithMemorySource(m)) }

// WithLogger overrides the default slog.Logger.
func WithLogger(l *slog.Logger) Option { return Option(wscompile.WithLogger(l)) }

// WithTelemetry attaches an optional compile-event collector.
func WithTelemetry(t *telemetry.Collector) Option { return Option(wscompile.WithTelemetry(t)) }

// WithTopKPerGenerator overrides how many candidates each generator is
// asked for per fan-out call.
func WithTopKPerGenerator(k int) Option { return Option(wscompile.WithTopKPerGenerator(k)) }

// WithReranker attaches a cross-encoder reranker run over the pruned pool.
func WithReranker(r Reranker) Option { return Option(wscompile.WithReranker(r)) }

// New builds a Compiler from the given options.
func New(opts ...Option) *Compiler {
	wsOpts := make([]wscompile.Option, len(opts))
	for i, o := range opts {
		wsOpts[i] = wscompile.Option(o)
	}
	return &Compiler{inner: wscompile.New(wsOpts...)}
}

// Compile runs the full pipeline for one request.
func (c *Compiler) Compile(ctx context.Context, req CompileRequest) (*CompileResponse, error) {
	return c.inner.Compile(ctx, req)
}
