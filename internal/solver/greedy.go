package solver

// greedySeed builds a feasible integral warm start so the search begins with
// a nontrivial incumbent instead of pruning against nothing. Two passes:
// first satisfy each group's import floor using foreign-eligible requests,
// then grant whatever else fits. The seed is discarded when the floors cannot
// be met greedily — branch-and-bound settles feasibility on its own there.
func greedySeed(sys *System) (vals []int8, count int, ok bool) {
	m := sys.Model
	capLeft := make([]int, len(m.producers))
	for pi, p := range m.producers {
		capLeft[pi] = p.Capacity
	}
	imports := make([]int, len(m.groups))

	vals = make([]int8, len(sys.Vars))
	assigned := make([]bool, len(m.included))

	grant := func(vi int) {
		v := sys.Vars[vi]
		vals[vi] = varOne
		assigned[v.ReqIdx] = true
		capLeft[v.ProdIdx]--
		if v.Foreign {
			imports[m.included[v.ReqIdx].groupIdx]++
		}
		count++
	}

	// Pass 1: raise each deficient group to its import floor.
	for vi, v := range sys.Vars {
		if !v.Foreign || assigned[v.ReqIdx] || capLeft[v.ProdIdx] <= 0 {
			continue
		}
		gi := m.included[v.ReqIdx].groupIdx
		if imports[gi] < m.groups[gi].MinImport {
			grant(vi)
		}
	}

	// Pass 2: grant remaining requests where capacity and import headroom
	// allow, in enumeration order.
	for vi, v := range sys.Vars {
		if assigned[v.ReqIdx] || capLeft[v.ProdIdx] <= 0 {
			continue
		}
		if v.Foreign {
			gi := m.included[v.ReqIdx].groupIdx
			if imports[gi] >= m.groups[gi].MaxImport {
				continue
			}
		}
		grant(vi)
	}

	for gi, g := range m.groups {
		if imports[gi] < g.MinImport {
			return nil, 0, false
		}
	}
	return vals, count, true
}
