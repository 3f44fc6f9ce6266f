package solver

import (
	"time"

	"github.com/rawblock/allocation-engine/pkg/models"
)

// Defaults for Options fields left at their zero value.
const (
	DefaultEpsilon   = 1e-9
	DefaultMaxPivots = 10000
)

// Options tunes one solve invocation. The zero value is usable: defaults are
// applied on entry and nothing here is read after Solve returns.
type Options struct {
	// Epsilon governs feasibility/optimality checks inside the relaxation
	// and the integrality test in the search.
	Epsilon float64

	// MaxPivots caps simplex iterations per relaxation solve. A node that
	// hits the cap is retried once with Epsilon widened 100x; if that also
	// fails the node is abandoned and the outcome carries a warning.
	MaxPivots int

	// NodeBudget caps the number of search nodes processed. 0 means
	// unlimited. On exhaustion the best incumbent so far is returned as a
	// partial result.
	NodeBudget int64

	// TimeBudget caps wall-clock search time. 0 means none. The caller's
	// context deadline is honored as well; whichever fires first wins.
	TimeBudget time.Duration

	// Workers bounds concurrent branch exploration. Values below 1 mean a
	// single worker, which keeps the exploration order reproducible.
	Workers int

	// OnIncumbent, when set, is invoked each time the search finds a
	// strictly better integral solution. Called outside the incumbent lock;
	// must not block for long.
	OnIncumbent func(models.Progress)
}

func (o Options) withDefaults() Options {
	if o.Epsilon <= 0 {
		o.Epsilon = DefaultEpsilon
	}
	if o.MaxPivots <= 0 {
		o.MaxPivots = DefaultMaxPivots
	}
	if o.Workers < 1 {
		o.Workers = 1
	}
	return o
}
