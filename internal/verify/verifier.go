// Package verify audits solver output independently of the solver itself.
// The engine never trusts a reported assignment blindly: before a result is
// persisted or handed to a caller it is re-checked against the raw instance,
// instantly exposing any constraint the search silently broke.
package verify

import (
	"fmt"

	"github.com/rawblock/allocation-engine/pkg/models"
)

// Audit re-derives every hard constraint from the instance and returns one
// message per violation found in the assignment. A nil return means the
// assignment is a valid 0/1 solution: every entry maps a known request to an
// eligible producer, no request is double-claimed, producer totals respect
// capacity, and each group's foreign-sourced total lies within its
// [min, max] import window.
func Audit(inst models.Instance, assignment []models.AssignmentEntry) []string {
	var violations []string

	producers := make(map[int]models.Producer, len(inst.Producers))
	for _, p := range inst.Producers {
		producers[p.ID] = p
	}
	requests := make(map[int]models.Request, len(inst.Requests))
	for _, r := range inst.Requests {
		requests[r.ID] = r
	}

	used := make(map[int]int)    // producer id -> granted units
	imports := make(map[int]int) // group id -> foreign-sourced units
	claimed := make(map[int]bool)

	for _, e := range assignment {
		req, ok := requests[e.RequestID]
		if !ok {
			violations = append(violations, fmt.Sprintf("entry references unknown request %d", e.RequestID))
			continue
		}
		if claimed[e.RequestID] {
			violations = append(violations, fmt.Sprintf("request %d is claimed twice", e.RequestID))
			continue
		}
		claimed[e.RequestID] = true

		prod, ok := producers[e.ProducerID]
		if !ok {
			violations = append(violations, fmt.Sprintf("request %d assigned to unknown producer %d", e.RequestID, e.ProducerID))
			continue
		}
		eligible := false
		for _, pid := range req.Eligible {
			if pid == e.ProducerID {
				eligible = true
				break
			}
		}
		if !eligible {
			violations = append(violations, fmt.Sprintf("request %d assigned to ineligible producer %d", e.RequestID, e.ProducerID))
		}

		used[e.ProducerID]++
		if prod.GroupID != req.GroupID {
			imports[req.GroupID]++
		}
	}

	for _, p := range inst.Producers {
		if used[p.ID] > p.Capacity {
			violations = append(violations, fmt.Sprintf("producer %d granted %d units over capacity %d", p.ID, used[p.ID], p.Capacity))
		}
	}
	for _, g := range inst.Groups {
		in := imports[g.ID]
		if in > g.MaxImport {
			violations = append(violations, fmt.Sprintf("group %d imported %d units over max %d", g.ID, in, g.MaxImport))
		}
		if in < g.MinImport {
			violations = append(violations, fmt.Sprintf("group %d imported %d units under min %d", g.ID, in, g.MinImport))
		}
	}

	return violations
}
