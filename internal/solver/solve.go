// Package solver implements the allocation optimization engine: a 0/1
// integer program over (request, producer) decision variables, solved by an
// owned LP relaxation (two-phase simplex) inside a branch-and-bound search.
//
// The engine consumes a fully typed instance and returns an Outcome; it does
// no parsing, no environment access and no printing. All mutable state is
// scoped to a single Solve call.
package solver

import (
	"context"
	"errors"

	"github.com/rawblock/allocation-engine/pkg/models"
)

// Solve runs the full pipeline: validate the instance, build the constraint
// system, warm-start an incumbent, then branch-and-bound with LP pruning.
//
// The outcome is one of:
//   - StatusOptimal: the incumbent is provably maximal.
//   - StatusPartialResult: a node/time budget expired; the best incumbent so
//     far is returned, never silently discarded.
//   - StatusInfeasible: no assignment satisfies the hard constraints.
//   - StatusInvalidInstance: the instance failed validation; nothing ran.
func Solve(ctx context.Context, inst models.Instance, opts Options) models.Outcome {
	opts = opts.withDefaults()

	m, err := NewModel(inst)
	if err != nil {
		var inv *InvalidInstanceError
		if errors.As(err, &inv) {
			return models.Outcome{Status: models.StatusInvalidInstance, Reason: inv.Reason}
		}
		return models.Outcome{Status: models.StatusInvalidInstance, Reason: err.Error()}
	}

	sys := BuildSystem(m)

	if reason, bad := sys.TriviallyInfeasible(); bad {
		return models.Outcome{Status: models.StatusInfeasible, Reason: reason}
	}

	// Every request excluded and no import floor pending: zero granted
	// requests is the (valid, feasible) optimum.
	if len(sys.Vars) == 0 {
		return models.Outcome{Status: models.StatusOptimal, Count: 0}
	}

	s := newSearch(ctx, sys, opts)
	if vals, count, ok := greedySeed(sys); ok {
		s.seedIncumbent(vals, count)
	}

	root := make([]int8, len(sys.Vars))
	for i := range root {
		root[i] = varFree
	}
	s.processNode(root)
	s.wg.Wait()

	s.mu.Lock()
	hasBest, bestVals, warning := s.hasBest, s.bestVals, s.warning
	s.mu.Unlock()

	out := models.Outcome{Stats: s.stats(), Warning: warning}
	switch {
	case s.partial.Load():
		out.Status = models.StatusPartialResult
		if hasBest {
			out.Count, out.Assignment = sys.ExtractAssignment(bestVals)
		} else if out.Warning == "" {
			out.Warning = "budget expired before any integral solution was found"
		}
	case hasBest:
		out.Status = models.StatusOptimal
		out.Count, out.Assignment = sys.ExtractAssignment(bestVals)
	default:
		out.Status = models.StatusInfeasible
	}
	return out
}
