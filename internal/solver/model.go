package solver

import (
	"fmt"
	"sort"

	"github.com/rawblock/allocation-engine/pkg/models"
)

// InvalidInstanceError reports a malformed or self-contradictory instance.
// It is always detected before any solving starts, so the caller can fix the
// input and resubmit without worrying about partial computation.
type InvalidInstanceError struct {
	Reason string
}

func (e *InvalidInstanceError) Error() string {
	return "invalid instance: " + e.Reason
}

// includedRequest is a request that survived eligibility filtering: duplicate
// producer ids removed, unknown producer ids discarded, at least one valid
// producer left.
type includedRequest struct {
	id       int
	groupIdx int
	eligible []int // producer indices into Model.producers, original order
}

// Model holds the validated, immutable problem entities plus the id indices
// the builder and search need. Entities are never mutated after construction;
// all search state lives in per-node structures.
type Model struct {
	producers []models.Producer
	groups    []models.Group

	producerIdx map[int]int // producer id -> index into producers
	groupIdx    map[int]int // group id -> index into groups

	included []includedRequest // sorted by request id ascending
	excluded []int             // request ids dropped for having no valid producer
}

// NewModel validates an instance and builds the lookup indices.
//
// Requests whose eligibility list is empty after filtering are recorded in
// excluded, not rejected: a request nobody can serve is permanently
// unsatisfiable but the rest of the instance remains solvable.
func NewModel(inst models.Instance) (*Model, error) {
	if len(inst.Producers) == 0 {
		return nil, &InvalidInstanceError{Reason: "no producers"}
	}
	if len(inst.Groups) == 0 {
		return nil, &InvalidInstanceError{Reason: "no groups"}
	}
	if len(inst.Requests) == 0 {
		return nil, &InvalidInstanceError{Reason: "no requests"}
	}

	m := &Model{
		producers:   inst.Producers,
		groups:      inst.Groups,
		producerIdx: make(map[int]int, len(inst.Producers)),
		groupIdx:    make(map[int]int, len(inst.Groups)),
	}

	for i, g := range inst.Groups {
		if _, dup := m.groupIdx[g.ID]; dup {
			return nil, &InvalidInstanceError{Reason: fmt.Sprintf("duplicate group id %d", g.ID)}
		}
		if g.MaxImport < 0 || g.MinImport < 0 {
			return nil, &InvalidInstanceError{Reason: fmt.Sprintf("group %d has a negative import bound", g.ID)}
		}
		if g.MinImport > g.MaxImport {
			return nil, &InvalidInstanceError{Reason: fmt.Sprintf("group %d min-import %d exceeds max-import %d", g.ID, g.MinImport, g.MaxImport)}
		}
		m.groupIdx[g.ID] = i
	}

	for i, p := range inst.Producers {
		if _, dup := m.producerIdx[p.ID]; dup {
			return nil, &InvalidInstanceError{Reason: fmt.Sprintf("duplicate producer id %d", p.ID)}
		}
		if p.Capacity < 0 {
			return nil, &InvalidInstanceError{Reason: fmt.Sprintf("producer %d has negative capacity", p.ID)}
		}
		if _, ok := m.groupIdx[p.GroupID]; !ok {
			return nil, &InvalidInstanceError{Reason: fmt.Sprintf("producer %d references unknown group %d", p.ID, p.GroupID)}
		}
		m.producerIdx[p.ID] = i
	}

	seenReq := make(map[int]bool, len(inst.Requests))
	for _, r := range inst.Requests {
		if seenReq[r.ID] {
			return nil, &InvalidInstanceError{Reason: fmt.Sprintf("duplicate request id %d", r.ID)}
		}
		seenReq[r.ID] = true

		gi, ok := m.groupIdx[r.GroupID]
		if !ok {
			return nil, &InvalidInstanceError{Reason: fmt.Sprintf("request %d references unknown group %d", r.ID, r.GroupID)}
		}

		// Filter eligibility: drop unknown producers, drop duplicates,
		// preserve the caller's original order.
		seenProd := make(map[int]bool, len(r.Eligible))
		var eligible []int
		for _, pid := range r.Eligible {
			pi, known := m.producerIdx[pid]
			if !known || seenProd[pid] {
				continue
			}
			seenProd[pid] = true
			eligible = append(eligible, pi)
		}

		if len(eligible) == 0 {
			m.excluded = append(m.excluded, r.ID)
			continue
		}
		m.included = append(m.included, includedRequest{id: r.ID, groupIdx: gi, eligible: eligible})
	}

	// Enumeration order is request id ascending. This order seeds the default
	// branching order, keeping search behavior reproducible.
	sort.Slice(m.included, func(a, b int) bool { return m.included[a].id < m.included[b].id })

	return m, nil
}

// IncludedRequests returns how many requests entered the decision model.
func (m *Model) IncludedRequests() int { return len(m.included) }

// ExcludedRequests returns the ids of requests dropped for having no valid
// producer. They can never contribute to the objective.
func (m *Model) ExcludedRequests() []int { return m.excluded }

// TotalCapacity sums producer capacities, a trivial upper bound on any count.
func (m *Model) TotalCapacity() int {
	total := 0
	for _, p := range m.producers {
		total += p.Capacity
	}
	return total
}
