package solver

import "errors"

// errPivotCap is returned when a single relaxation exceeds its pivot budget.
// The search retries once with a widened epsilon before treating the node as
// unsolved (see Options.MaxPivots and branch.go).
var errPivotCap = errors.New("simplex: pivot cap exceeded")

// errUnbounded cannot occur for the allocation relaxation (every variable is
// boxed in [0,1]) but the routine still guards against it rather than loop.
var errUnbounded = errors.New("simplex: unbounded column")

// denseRow is one standardized constraint row handed to the LP routine.
type denseRow struct {
	coef  []float64
	sense Sense
	rhs   float64
}

// lpSolution is the result of one relaxation solve.
type lpSolution struct {
	X        []float64
	Obj      float64
	Feasible bool
	Pivots   int
}

// degenStreakLimit is how many consecutive degenerate pivots the Dantzig rule
// tolerates before the routine switches to Bland's rule, which cannot cycle.
const degenStreakLimit = 50

// maximizeLP solves  max obj·x  s.t. rows, x >= 0  with a two-phase dense
// tableau simplex. Callers express upper bounds (x_j <= 1) as explicit rows.
//
// The entering rule is Dantzig (most negative reduced cost) until a streak of
// degenerate pivots suggests cycling, at which point it falls back to Bland's
// smallest-index rule. eps governs all feasibility and optimality checks so
// floating round-off cannot cause oscillation.
func maximizeLP(obj []float64, rows []denseRow, maxPivots int, eps float64) (lpSolution, error) {
	n := len(obj)
	m := len(rows)
	if m == 0 {
		// No binding rows: every coefficient is free to sit at zero.
		return lpSolution{X: make([]float64, n), Feasible: true}, nil
	}

	// Standard form: non-negative right-hand sides, one slack or surplus
	// column per row, one artificial column per >= row.
	type stdRow struct {
		coef []float64
		ge   bool
		rhs  float64
	}
	std := make([]stdRow, m)
	nArt := 0
	for i, r := range rows {
		coef := make([]float64, n)
		copy(coef, r.coef)
		rhs := r.rhs
		ge := r.sense == SenseGE
		if rhs < 0 {
			for j := range coef {
				coef[j] = -coef[j]
			}
			rhs = -rhs
			ge = !ge
		}
		std[i] = stdRow{coef: coef, ge: ge, rhs: rhs}
		if ge {
			nArt++
		}
	}

	slackStart := n
	artStart := n + m
	nCols := n + m + nArt

	// Tableau rows carry the rhs in their final slot.
	tab := make([][]float64, m)
	basis := make([]int, m)
	artCol := artStart
	for i, r := range std {
		row := make([]float64, nCols+1)
		copy(row, r.coef)
		if r.ge {
			row[slackStart+i] = -1 // surplus
			row[artCol] = 1
			basis[i] = artCol
			artCol++
		} else {
			row[slackStart+i] = 1 // slack
			basis[i] = slackStart + i
		}
		row[nCols] = r.rhs
		tab[i] = row
	}

	pivots := 0
	degenStreak := 0
	bland := false

	pivot := func(pr, pc int) {
		prow := tab[pr]
		inv := 1.0 / prow[pc]
		for j := range prow {
			prow[j] *= inv
		}
		for i := range tab {
			if i == pr {
				continue
			}
			f := tab[i][pc]
			if f == 0 {
				continue
			}
			row := tab[i]
			for j := range row {
				row[j] -= f * prow[j]
			}
		}
		basis[pr] = pc
	}

	// iterate runs the simplex loop for one phase: minimize cost·columns over
	// columns [0, limit). Returns errPivotCap or errUnbounded on failure.
	iterate := func(cost []float64, limit int) error {
		for {
			// Reduced costs r_j = cost_j - cB·column_j.
			cB := make([]float64, len(tab))
			for i := range tab {
				cB[i] = cost[basis[i]]
			}
			enter := -1
			best := -eps
			for j := 0; j < limit; j++ {
				r := cost[j]
				for i := range tab {
					if cB[i] != 0 {
						r -= cB[i] * tab[i][j]
					}
				}
				if r < -eps {
					if bland {
						enter = j
						break
					}
					if r < best {
						best = r
						enter = j
					}
				}
			}
			if enter < 0 {
				return nil // optimal for this phase
			}
			if pivots >= maxPivots {
				return errPivotCap
			}

			// Ratio test; ties go to the lowest basis index, which together
			// with Bland's entering rule guarantees termination.
			leave := -1
			bestRatio := 0.0
			for i := range tab {
				a := tab[i][enter]
				if a <= eps {
					continue
				}
				ratio := tab[i][len(tab[i])-1] / a
				if leave < 0 || ratio < bestRatio-eps ||
					(ratio < bestRatio+eps && basis[i] < basis[leave]) {
					leave = i
					bestRatio = ratio
				}
			}
			if leave < 0 {
				return errUnbounded
			}

			if bestRatio <= eps {
				degenStreak++
				if degenStreak > degenStreakLimit {
					bland = true
				}
			} else {
				degenStreak = 0
			}

			pivot(leave, enter)
			pivots++
		}
	}

	// Phase 1: drive the artificial columns to zero.
	if nArt > 0 {
		cost1 := make([]float64, nCols)
		for j := artStart; j < nCols; j++ {
			cost1[j] = 1
		}
		if err := iterate(cost1, nCols); err != nil {
			return lpSolution{Pivots: pivots}, err
		}
		artSum := 0.0
		for i := range tab {
			if basis[i] >= artStart {
				artSum += tab[i][nCols]
			}
		}
		if artSum > feasTol(eps) {
			return lpSolution{Pivots: pivots}, nil // infeasible, Feasible stays false
		}

		// Pivot lingering zero-valued artificials out of the basis; rows that
		// offer no replacement column are linearly dependent and get dropped.
		for i := 0; i < len(tab); i++ {
			if basis[i] < artStart {
				continue
			}
			pc := -1
			for j := 0; j < artStart; j++ {
				if tab[i][j] > eps || tab[i][j] < -eps {
					pc = j
					break
				}
			}
			if pc >= 0 {
				pivot(i, pc)
				continue
			}
			last := len(tab) - 1
			tab[i] = tab[last]
			basis[i] = basis[last]
			tab = tab[:last]
			basis = basis[:last]
			i--
		}
	}

	// Phase 2: maximize the real objective, artificials barred from entering.
	cost2 := make([]float64, nCols)
	for j := 0; j < n; j++ {
		cost2[j] = -obj[j]
	}
	degenStreak = 0
	if err := iterate(cost2, artStart); err != nil {
		return lpSolution{Pivots: pivots}, err
	}

	x := make([]float64, n)
	for i := range tab {
		if basis[i] < n {
			x[basis[i]] = tab[i][nCols]
		}
	}
	objVal := 0.0
	for j := 0; j < n; j++ {
		if x[j] < 0 && x[j] > -eps {
			x[j] = 0
		}
		objVal += obj[j] * x[j]
	}
	return lpSolution{X: x, Obj: objVal, Feasible: true, Pivots: pivots}, nil
}

// feasTol widens the raw pivot epsilon for the phase-1 feasibility verdict,
// where round-off from many eliminations accumulates.
func feasTol(eps float64) float64 {
	t := eps * 100
	if t < 1e-7 {
		t = 1e-7
	}
	return t
}
