package wscompile

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// fanoutPhaseBudget is the hard cap on the generator fan-out phase,
// independent of the caller's own deadline: the fan-out uses
// min(overall_deadline - elapsed, 200ms) as its phase budget.
const fanoutPhaseBudget = 200 * time.Millisecond

// fanOut invokes every generator concurrently. A generator failure (error
// or phase-deadline miss) is logged and treated as an empty list - it never
// fails the whole fan-out. Returns ErrAllGeneratorsFailed only if every
// generator failed, and ErrCancelled if ctx was already done.
func fanOut(ctx context.Context, generators []Generator, signals DerivedSignals, filters HardFilters, topK int, logger *slog.Logger) (map[string][]CandidateSpan, error) {
	select {
	case <-ctx.Done():
		return nil, ErrCancelled
	default:
	}

	phaseCtx, cancel := context.WithTimeout(ctx, fanoutPhaseBudget)
	defer cancel()

	g, gctx := errgroup.WithContext(phaseCtx)

	// Each generator writes only to its own slot, so no shared map/mutex is
	// needed across goroutines - one dedicated result variable per
	// concurrent call avoids a data race on shared state.
	perGenerator := make([][]CandidateSpan, len(generators))
	ok := make([]bool, len(generators))

	for i, gen := range generators {
		i, gen := i, gen
		g.Go(func() error {
			candidates, err := gen.Generate(gctx, signals, filters, topK)
			if err != nil {
				logger.Warn("generator failed", slog.String("generator", gen.Name()), slog.Any("error", err))
				return nil
			}
			perGenerator[i] = candidates
			ok[i] = true
			return nil
		})
	}

	// errgroup's own context is only cancelled by an explicit error return,
	// which this fan-out never does (per-generator failures are captured
	// locally), so Wait always returns nil; it only blocks until every
	// generator call has returned.
	_ = g.Wait()

	results := make(map[string][]CandidateSpan, len(generators))
	failedCount := 0
	for i, gen := range generators {
		if ok[i] {
			results[gen.Name()] = perGenerator[i]
		} else {
			failedCount++
		}
	}

	if failedCount == len(generators) && len(generators) > 0 {
		return nil, ErrAllGeneratorsFailed
	}

	return results, nil
}
