package metrics

import (
	"testing"

	"github.com/rawblock/allocation-engine/pkg/models"
)

func TestAssignmentAgreement(t *testing.T) {
	a := []models.AssignmentEntry{
		{RequestID: 1, ProducerID: 1},
		{RequestID: 2, ProducerID: 2},
	}
	same := []models.AssignmentEntry{
		{RequestID: 2, ProducerID: 2},
		{RequestID: 1, ProducerID: 1},
	}
	swapped := []models.AssignmentEntry{
		{RequestID: 1, ProducerID: 2},
		{RequestID: 2, ProducerID: 1},
	}
	half := []models.AssignmentEntry{
		{RequestID: 1, ProducerID: 1},
	}

	if got := AssignmentAgreement(a, same); got != 1.0 {
		t.Errorf("Identical assignments should agree fully. Got: %v", got)
	}
	if got := AssignmentAgreement(a, swapped); got != 0.0 {
		t.Errorf("Fully swapped assignments should agree on nothing. Got: %v", got)
	}
	if got := AssignmentAgreement(a, half); got != 0.5 {
		t.Errorf("Expected 0.5 agreement when one of two grants matches. Got: %v", got)
	}
	if got := AssignmentAgreement(nil, nil); got != 1.0 {
		t.Errorf("Two empty assignments agree by convention. Got: %v", got)
	}
}

func TestOptimalityGap(t *testing.T) {
	stats := models.SearchStats{RootBound: 5.0}
	if got := OptimalityGap(stats, 3); got != 2.0 {
		t.Errorf("Expected gap 2.0 between bound 5 and count 3. Got: %v", got)
	}
	// Round-off can leave the bound a hair under the count; clamp to zero.
	stats.RootBound = 2.9999999
	if got := OptimalityGap(stats, 3); got != 0 {
		t.Errorf("Expected clamped gap 0. Got: %v", got)
	}
}

func TestPruneRate(t *testing.T) {
	stats := models.SearchStats{NodesExplored: 10, NodesPruned: 7}
	if got := PruneRate(stats); got != 0.7 {
		t.Errorf("Expected prune rate 0.7. Got: %v", got)
	}
	if got := PruneRate(models.SearchStats{}); got != 0 {
		t.Errorf("Expected 0 for an empty search. Got: %v", got)
	}
}
