// Package metrics provides pure-math quality metrics over solver output.
// Nothing here touches the solver's internals; the functions take finished
// assignments and search statistics and score them.
package metrics

import "github.com/rawblock/allocation-engine/pkg/models"

// AssignmentAgreement measures how similar two assignments of the same
// instance are: the fraction of requests granted in either solution that are
// mapped to the same producer in both.
//
// Solves of the same instance are idempotent in count but may drift among
// tied-optimal alternatives; this metric exposes how much they drift.
// Returns 1.0 for identical assignments (and for two empty ones), 0.0 when
// no granted request agrees.
func AssignmentAgreement(a, b []models.AssignmentEntry) float64 {
	am := make(map[int]int, len(a))
	for _, e := range a {
		am[e.RequestID] = e.ProducerID
	}
	bm := make(map[int]int, len(b))
	for _, e := range b {
		bm[e.RequestID] = e.ProducerID
	}

	union := make(map[int]bool, len(am)+len(bm))
	for r := range am {
		union[r] = true
	}
	for r := range bm {
		union[r] = true
	}
	if len(union) == 0 {
		return 1.0
	}

	agree := 0
	for r := range union {
		pa, inA := am[r]
		pb, inB := bm[r]
		if inA && inB && pa == pb {
			agree++
		}
	}
	return float64(agree) / float64(len(union))
}

// OptimalityGap is the distance between the root relaxation bound and the
// achieved integral count. Zero (or slightly negative round-off, clamped)
// means the incumbent is provably as good as the relaxation allows; for a
// partial result it quantifies how much may have been left on the table.
func OptimalityGap(stats models.SearchStats, count int) float64 {
	gap := stats.RootBound - float64(count)
	if gap < 0 {
		return 0
	}
	return gap
}

// PruneRate is the fraction of explored nodes the bound test eliminated.
// A healthy search prunes most of its tree; rates near zero on large
// instances signal a weak relaxation or a missing incumbent.
func PruneRate(stats models.SearchStats) float64 {
	if stats.NodesExplored == 0 {
		return 0
	}
	return float64(stats.NodesPruned) / float64(stats.NodesExplored)
}
