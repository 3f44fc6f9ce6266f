package solver

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rawblock/allocation-engine/pkg/models"
)

// Variable fixing states inside a search node. A node's overlay starts as the
// parent's copy; branching fixes exactly one more variable.
const (
	varFree int8 = -1
	varZero int8 = 0
	varOne  int8 = 1
)

// search owns all mutable state of one branch-and-bound run. The incumbent
// (best integral solution so far) is read for pruning and written on leaf
// acceptance under a single mutex, so parallel branches never act on a stale
// bound for longer than one node.
type search struct {
	sys  *System
	opts Options

	mu        sync.Mutex
	hasBest   bool
	bestCount int
	bestVals  []int8
	warning   string

	nodes  atomic.Int64
	pruned atomic.Int64
	leaves atomic.Int64
	pivots atomic.Int64

	partial   atomic.Bool
	rootBound atomic.Value // float64

	sem chan struct{}
	wg  sync.WaitGroup

	ctx         context.Context
	deadline    time.Time
	hasDeadline bool
}

func newSearch(ctx context.Context, sys *System, opts Options) *search {
	s := &search{
		sys:  sys,
		opts: opts,
		ctx:  ctx,
		sem:  make(chan struct{}, opts.Workers-1),
	}
	if dl, ok := ctx.Deadline(); ok {
		s.deadline, s.hasDeadline = dl, true
	}
	if opts.TimeBudget > 0 {
		dl := time.Now().Add(opts.TimeBudget)
		if !s.hasDeadline || dl.Before(s.deadline) {
			s.deadline, s.hasDeadline = dl, true
		}
	}
	return s
}

// intTol is the integrality tolerance: a relaxed value within intTol of 0 or
// 1 counts as integral. Kept well above the pivot epsilon so simplex noise
// never masquerades as a fractional variable.
func (s *search) intTol() float64 {
	t := s.opts.Epsilon * 1000
	if t < 1e-6 {
		t = 1e-6
	}
	return t
}

func (s *search) seedIncumbent(vals []int8, count int) {
	s.hasBest = true
	s.bestCount = count
	s.bestVals = vals
}

// budgetExhausted checks the node-count budget, the wall-clock deadline and
// caller cancellation. Checked once at the top of every node.
func (s *search) budgetExhausted(nodeNo int64) bool {
	if s.opts.NodeBudget > 0 && nodeNo > s.opts.NodeBudget {
		s.partial.Store(true)
		return true
	}
	if s.hasDeadline && time.Now().After(s.deadline) {
		s.partial.Store(true)
		return true
	}
	if s.ctx.Err() != nil {
		s.partial.Store(true)
		return true
	}
	return false
}

// relax solves the continuous relaxation under the node's fixing overlay.
// Fixed-to-1 variables are substituted out as constants, shrinking the LP to
// the free variables only. Returns ok=false when a row is already violated
// by the fixings alone, before any simplex work.
func (s *search) relax(fixed []int8) (freeVars []int, sol lpSolution, objConst int, ok bool, err error) {
	local := make([]int, len(s.sys.Vars))
	for vi, st := range fixed {
		if st == varFree {
			local[vi] = len(freeVars)
			freeVars = append(freeVars, vi)
		} else {
			local[vi] = -1
			if st == varOne {
				objConst++
			}
		}
	}

	var rows []denseRow
	for _, con := range s.sys.Cons {
		b := float64(con.RHS)
		var cols []int
		for _, vi := range con.Vars {
			switch fixed[vi] {
			case varOne:
				b--
			case varFree:
				cols = append(cols, local[vi])
			}
		}
		switch con.Sense {
		case SenseLE:
			if len(cols) == 0 {
				if b < 0 {
					return nil, lpSolution{}, 0, false, nil
				}
				continue
			}
			if b < 0 {
				return nil, lpSolution{}, 0, false, nil
			}
		case SenseGE:
			if b <= 0 {
				continue // floor already met by fixings
			}
			if len(cols) == 0 {
				return nil, lpSolution{}, 0, false, nil
			}
		}
		coef := make([]float64, len(freeVars))
		for _, c := range cols {
			coef[c] = 1
		}
		rows = append(rows, denseRow{coef: coef, sense: con.Sense, rhs: b})
	}

	// Box each free variable at 1; the lower bound 0 is implicit in the
	// standard form.
	for c := range freeVars {
		coef := make([]float64, len(freeVars))
		coef[c] = 1
		rows = append(rows, denseRow{coef: coef, sense: SenseLE, rhs: 1})
	}

	obj := make([]float64, len(freeVars))
	for c := range obj {
		obj[c] = 1
	}

	sol, err = maximizeLP(obj, rows, s.opts.MaxPivots, s.opts.Epsilon)
	s.pivots.Add(int64(sol.Pivots))
	if err == errPivotCap {
		// One aggressive retry with a widened tolerance before giving up on
		// this node.
		sol, err = maximizeLP(obj, rows, s.opts.MaxPivots, s.opts.Epsilon*100)
		s.pivots.Add(int64(sol.Pivots))
	}
	if err != nil {
		return nil, lpSolution{}, 0, false, err
	}
	return freeVars, sol, objConst, true, nil
}

func (s *search) noteWarning(msg string) {
	s.mu.Lock()
	if s.warning == "" {
		s.warning = msg
	}
	s.mu.Unlock()
}

// processNode runs the Created -> Relaxed -> {Pruned | Branched |
// Leaf-Accepted} lifecycle for one node and recurses into its children.
func (s *search) processNode(fixed []int8) {
	nodeNo := s.nodes.Add(1)
	if s.budgetExhausted(nodeNo) {
		return
	}

	s.mu.Lock()
	hasBest, bestCount := s.hasBest, s.bestCount
	s.mu.Unlock()

	// A proven-perfect incumbent ends the hunt: no node can beat it.
	if hasBest && bestCount == s.sys.Model.IncludedRequests() {
		s.pruned.Add(1)
		return
	}

	freeVars, sol, objConst, ok, err := s.relax(fixed)
	if err != nil {
		// An abandoned subtree means the search is no longer exhaustive:
		// whatever incumbent survives is a partial result, never a proven
		// optimum or a proof of infeasibility.
		s.noteWarning("SolverDidNotConverge: a relaxation exceeded its pivot cap twice; its subtree was abandoned")
		s.partial.Store(true)
		s.pruned.Add(1)
		return
	}
	if !ok || !sol.Feasible {
		s.pruned.Add(1)
		return
	}

	bound := float64(objConst) + sol.Obj
	if nodeNo == 1 {
		s.rootBound.Store(bound)
	}

	// The objective is integral, so a bound that cannot reach bestCount+1
	// cannot improve on the incumbent.
	if hasBest && bound < float64(bestCount)+1-s.intTol() {
		s.pruned.Add(1)
		return
	}

	// Branch on the free variable whose relaxed value sits closest to 0.5,
	// ties broken by enumeration order.
	tol := s.intTol()
	branchVar := -1
	branchVal := 0.0
	bestDist := math.Inf(1)
	for c, vi := range freeVars {
		x := sol.X[c]
		if x <= tol || x >= 1-tol {
			continue
		}
		if d := math.Abs(x - 0.5); d < bestDist {
			bestDist = d
			branchVar = vi
			branchVal = x
		}
	}

	if branchVar < 0 {
		// Integral leaf.
		s.leaves.Add(1)
		vals := make([]int8, len(fixed))
		copy(vals, fixed)
		for c, vi := range freeVars {
			if sol.X[c] >= 1-tol {
				vals[vi] = varOne
			} else {
				vals[vi] = varZero
			}
		}
		count := 0
		for _, v := range vals {
			if v == varOne {
				count++
			}
		}
		s.acceptLeaf(vals, count)
		return
	}

	one := make([]int8, len(fixed))
	copy(one, fixed)
	one[branchVar] = varOne
	zero := make([]int8, len(fixed))
	copy(zero, fixed)
	zero[branchVar] = varZero

	// Explore the branch the relaxation leans toward first; it tends to
	// produce good incumbents early and sharpen pruning everywhere else.
	first, second := one, zero
	if branchVal < 0.5 {
		first, second = zero, one
	}

	select {
	case s.sem <- struct{}{}:
		s.wg.Add(1)
		go func() {
			defer func() {
				<-s.sem
				s.wg.Done()
			}()
			s.processNode(second)
		}()
		s.processNode(first)
	default:
		s.processNode(first)
		s.processNode(second)
	}
}

// acceptLeaf installs a strictly better integral solution as the incumbent.
func (s *search) acceptLeaf(vals []int8, count int) {
	s.mu.Lock()
	improved := !s.hasBest || count > s.bestCount
	if improved {
		s.hasBest = true
		s.bestCount = count
		s.bestVals = vals
	}
	s.mu.Unlock()

	if improved && s.opts.OnIncumbent != nil {
		rb, _ := s.rootBound.Load().(float64)
		s.opts.OnIncumbent(models.Progress{
			NodesExplored: s.nodes.Load(),
			BestCount:     count,
			BestBound:     rb,
		})
	}
}

func (s *search) stats() models.SearchStats {
	rb, _ := s.rootBound.Load().(float64)
	return models.SearchStats{
		NodesExplored:  s.nodes.Load(),
		NodesPruned:    s.pruned.Load(),
		IntegralLeaves: s.leaves.Load(),
		SimplexPivots:  s.pivots.Load(),
		RootBound:      rb,
	}
}
