package solver

import "github.com/rawblock/allocation-engine/pkg/models"

// ExtractAssignment maps an integral value vector back to the request ->
// producer choices it encodes. The uniqueness rows guarantee at most one
// granted variable per request, so the count equals the number of entries.
func (s *System) ExtractAssignment(vals []int8) (int, []models.AssignmentEntry) {
	var entries []models.AssignmentEntry
	for vi, v := range s.Vars {
		if vals[vi] != varOne {
			continue
		}
		entries = append(entries, models.AssignmentEntry{
			RequestID:  s.Model.included[v.ReqIdx].id,
			ProducerID: s.Model.producers[v.ProdIdx].ID,
		})
	}
	return len(entries), entries
}
