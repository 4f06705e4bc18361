package wscompile

import (
	"context"
	"log/slog"

	"github.com/contextdb/wscompile/internal/telemetry"
)

// defaultTopKPerGenerator bounds how many candidates each generator is
// asked for per fan-out call, independent of the final selection budget.
const defaultTopKPerGenerator = 200

// Compiler is the request-scoped pipeline: signal derivation, generator
// fan-out, fusion/normalisation, scoring, session prelude, MMR selection,
// hydration, and explanation/stats construction.
//
// A Compiler holds only shared, read-only handles (generators, sources,
// logger, telemetry collector); Compile allocates its own candidate pool,
// selection state, and hydration cache per call, so one Compiler is safe to
// invoke from many concurrent requests.
type Compiler struct {
	generators       []Generator
	sessionSource    SessionSource
	memorySource     MemorySource
	logger           *slog.Logger
	telemetry        *telemetry.Collector
	topKPerGenerator int
	reranker         Reranker
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithGenerators sets the built-in generators invoked on every fan-out.
func WithGenerators(gens ...Generator) Option {
	return func(c *Compiler) { c.generators = gens }
}

// WithSessionSource attaches a session-prelude source.
func WithSessionSource(s SessionSource) Option {
	return func(c *Compiler) { c.sessionSource = s }
}

// WithMemorySource attaches a long-term-memory source.
func WithMemorySource(m MemorySource) Option {
	return func(c *Compiler) { c.memorySource = m }
}

// WithLogger overrides the default slog.Logger (log/slog's default, to
// stderr, at Info level).
func WithLogger(l *slog.Logger) Option {
	return func(c *Compiler) { c.logger = l }
}

// WithTelemetry attaches an optional compile-event collector. Recording is
// best-effort and never gates a compile's success.
func WithTelemetry(t *telemetry.Collector) Option {
	return func(c *Compiler) { c.telemetry = t }
}

// WithTopKPerGenerator overrides how many candidates each generator is
// asked for.
func WithTopKPerGenerator(k int) Option {
	return func(c *Compiler) { c.topKPerGenerator = k }
}

// WithReranker attaches a cross-encoder reranker run over the pruned pool
// before session-prelude accounting and MMR selection. A Compiler with no
// reranker configured skips this step entirely.
func WithReranker(r Reranker) Option {
	return func(c *Compiler) { c.reranker = r }
}

// New builds a Compiler from the given options.
func New(opts ...Option) *Compiler {
	c := &Compiler{
		logger:           slog.Default(),
		topKPerGenerator: defaultTopKPerGenerator,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile runs the full pipeline for one request.
func (c *Compiler) Compile(ctx context.Context, req CompileRequest) (*CompileResponse, error) {
	start := clockNow()
	outcome := telemetry.OutcomeOK
	candidatesGenerated, candidatesSelected := 0, 0

	defer func() {
		if c.telemetry == nil {
			return
		}
		c.telemetry.Record(telemetry.CompileEvent{
			Intent:              req.Intent,
			CandidatesGenerated: candidatesGenerated,
			CandidatesSelected:  candidatesSelected,
			Latency:             clockNow().Sub(start),
			Outcome:             outcome,
			Timestamp:           start,
		})
	}()

	if req.BudgetTokens <= 0 {
		outcome = telemetry.OutcomeError
		return nil, ErrInvalidBudget
	}

	signals, err := deriveSignals(req)
	if err != nil {
		outcome = telemetry.OutcomeError
		return nil, err
	}

	select {
	case <-ctx.Done():
		outcome = telemetry.OutcomeCancelled
		return nil, ErrCancelled
	default:
	}

	generationStart := clockNow()
	byGenerator, err := fanOut(ctx, c.generators, signals, req.HardFilters, c.topKPerGenerator, c.logger)
	if err != nil {
		outcome = telemetry.OutcomeAllGeneratorsFailed
		return nil, err
	}
	for _, cs := range byGenerator {
		candidatesGenerated += len(cs)
	}

	pool := fuseCandidates(byGenerator)
	normalizeChannels(pool)

	weights := DefaultScoreWeights()
	if req.SoftPrefs.AutoClassifyWeights {
		weights = WeightsForIntentClass(ClassifyIntent(signals.Intent))
	}
	if req.SoftPrefs.ScoreWeights != nil {
		weights = *req.SoftPrefs.ScoreWeights
	}
	prefs := req.SoftPrefs
	lambda := prefs.EffectiveDiversityLambda()
	maxSourceRatio := prefs.EffectiveMaxSingleSourceRatio()

	filters := req.HardFilters
	filtered := applyHardFilters(pool, filters)
	var relaxed []string
	if len(filtered) == 0 {
		if len(pool) > 0 {
			for _, step := range relaxationOrder {
				filters = relax(filters, step)
				relaxed = append(relaxed, string(step))
				filtered = applyHardFilters(pool, filters)
				if len(filtered) > 0 {
					break
				}
			}
		}
	}
	candidatesAfterFilters := len(filtered)

	select {
	case <-ctx.Done():
		outcome = telemetry.OutcomeCancelled
		return nil, ErrCancelled
	default:
	}

	scoreCandidates(filtered, weights, prefs.PreferStages)

	if c.memorySource != nil && req.UserID != "" {
		memories, err := c.memorySource.Fetch(ctx, req.UserID, signals.Intent)
		if err != nil {
			c.logger.Warn("memory source failed", slog.Any("error", err))
		} else {
			scoreCandidates(memories, weights, prefs.PreferStages)
			filtered = append(filtered, memories...)
		}
	}

	pruned := prunePool(filtered, req.BudgetTokens)
	rerankPool(ctx, c.reranker, signals.Intent, pruned, c.logger)
	generationElapsed := clockNow().Sub(generationStart)

	var prelude []WSItem
	preludeTokens := 0
	if c.sessionSource != nil && req.SessionID != "" {
		sessionSpans, err := c.sessionSource.Fetch(ctx, req.SessionID)
		if err != nil {
			c.logger.Warn("session source failed", slog.Any("error", err))
		} else {
			prelude, preludeTokens = buildSessionPrelude(sessionSpans, req.BudgetTokens)
		}
	}

	// Either the generator pool was empty to begin with (every generator
	// succeeded but returned nothing) or relaxation never produced a
	// non-empty filtered set, and no memory candidate or session span
	// supplies content either: that is NoCandidates, not a silent empty
	// success.
	if len(pruned) == 0 && len(prelude) == 0 {
		outcome = telemetry.OutcomeNoCandidates
		return nil, &RelaxationError{Relaxed: relaxed}
	}

	// Tiny-budget edge case: candidates exist but none fit even the
	// remaining budget after the session prelude reservation. This is not
	// a terminal failure - return an empty working set with the reason
	// surfaced in stats instead.
	if len(pruned) > 0 && !anyFits(pruned, req.BudgetTokens-preludeTokens) {
		util := 0.0
		if req.BudgetTokens > 0 {
			util = float64(preludeTokens) / float64(req.BudgetTokens)
		}
		resp := &CompileResponse{
			WorkingSet: WorkingSet{Spans: prelude, TotalTokens: preludeTokens},
			Stats: Stats{
				CandidatesGenerated:    candidatesGenerated,
				CandidatesAfterFilters: candidatesAfterFilters,
				TokenUtilization:       util,
				SourceDistribution:     map[string]float64{},
				GenerationTimeMS:       generationElapsed.Milliseconds(),
				SelectionTimeMS:        0,
				RelaxedFilters:         relaxed,
				Reason:                 ReasonBudgetTooSmall,
			},
		}
		return resp, nil
	}

	selectionStart := clockNow()
	selected := mmrSelect(pruned, preludeTokens, req.BudgetTokens, lambda, maxSourceRatio)
	selectionElapsed := clockNow().Sub(selectionStart)
	candidatesSelected = len(prelude) + len(selected)

	h := newHydrator()
	items := make([]WSItem, 0, len(prelude)+len(selected))
	items = append(items, prelude...)

	filepaths := make([]string, 0, len(prelude)+len(selected))
	tokenCosts := make([]int, 0, len(prelude)+len(selected))
	for _, p := range prelude {
		filepaths = append(filepaths, "") // session spans carry no filepath accounting
		tokenCosts = append(tokenCosts, p.SpanRef.TokenCost)
	}

	var explanations []SpanExplanation
	for rank, sel := range selected {
		select {
		case <-ctx.Done():
			outcome = telemetry.OutcomeCancelled
			return nil, ErrCancelled
		default:
		}

		text := sel.candidate.Text
		if text == "" && sel.candidate.Metadata.SourceType != SourceSession {
			text = h.hydrate(ctx, sel.candidate.SpanRef, sel.candidate.Metadata)
		}

		items = append(items, WSItem{
			SpanRef:       sel.candidate.SpanRef,
			Text:          text,
			SourceWeight:  0, // filled in below once total_tokens is known
			SelectionRank: len(prelude) + rank,
		})
		filepaths = append(filepaths, sel.candidate.Metadata.Filepath)
		tokenCosts = append(tokenCosts, sel.candidate.SpanRef.TokenCost)

		if req.Explain {
			reasons := buildReasons(sel.candidate, prefs.PreferStages, h.reasonsFor(sel.candidate.SpanRef.SpanID))
			explanations = append(explanations, SpanExplanation{
				SpanID:           sel.candidate.SpanRef.SpanID,
				FinalScore:       sel.candidate.BaseScore - sel.diversityPenalty,
				BaseScore:        sel.candidate.BaseScore,
				DiversityPenalty: sel.diversityPenalty,
				Reasons:          reasons,
			})
		}
	}

	// Assign dense ranks for the whole set (prelude first, then MMR picks).
	for i := range items {
		items[i].SelectionRank = i
	}

	totalTokens := 0
	for _, cost := range tokenCosts {
		totalTokens += cost
	}
	for i := range items {
		if totalTokens > 0 {
			items[i].SourceWeight = float64(tokenCosts[i]) / float64(totalTokens)
		}
	}

	ws := WorkingSet{Spans: items, TotalTokens: totalTokens}

	util := 0.0
	if req.BudgetTokens > 0 {
		util = float64(totalTokens) / float64(req.BudgetTokens)
	}

	resp := &CompileResponse{
		WorkingSet: ws,
		Stats: Stats{
			CandidatesGenerated:    candidatesGenerated,
			CandidatesAfterFilters: candidatesAfterFilters,
			TokenUtilization:       util,
			SourceDistribution:     buildSourceDistribution(filepaths, tokenCosts, totalTokens),
			GenerationTimeMS:       generationElapsed.Milliseconds(),
			SelectionTimeMS:        selectionElapsed.Milliseconds(),
			RelaxedFilters:         relaxed,
		},
	}
	if req.Explain {
		resp.Rationale = explanations
	}

	return resp, nil
}

func anyFits(pool []CandidateSpan, remainingBudget int) bool {
	for _, c := range pool {
		if c.SpanRef.TokenCost <= remainingBudget {
			return true
		}
	}
	return false
}
