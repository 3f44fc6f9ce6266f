package solver

import (
	"testing"

	"github.com/rawblock/allocation-engine/pkg/models"
)

func TestNewModel_FiltersEligibility(t *testing.T) {
	// Request 7 lists producer 2 twice and unknown producer 99; the model
	// must keep one copy of 2 and drop 99 while preserving order.
	inst := models.Instance{
		Producers: []models.Producer{
			{ID: 1, GroupID: 10, Capacity: 1},
			{ID: 2, GroupID: 10, Capacity: 1},
		},
		Groups:   []models.Group{{ID: 10, MaxImport: 5}},
		Requests: []models.Request{{ID: 7, GroupID: 10, Eligible: []int{2, 99, 2, 1}}},
	}

	m, err := NewModel(inst)
	if err != nil {
		t.Fatalf("Unexpected model error: %v", err)
	}
	if m.IncludedRequests() != 1 {
		t.Fatalf("Expected 1 included request. Got: %d", m.IncludedRequests())
	}
	got := m.included[0].eligible
	if len(got) != 2 || m.producers[got[0]].ID != 2 || m.producers[got[1]].ID != 1 {
		t.Errorf("Expected eligibility [2 1] after dedup/filter. Got producer indices: %v", got)
	}
}

func TestNewModel_ExcludesUnservableRequests(t *testing.T) {
	// A request whose only producer does not exist is excluded, not an error.
	inst := models.Instance{
		Producers: []models.Producer{{ID: 1, GroupID: 10, Capacity: 5}},
		Groups:    []models.Group{{ID: 10, MaxImport: 5}},
		Requests:  []models.Request{{ID: 3, GroupID: 10, Eligible: []int{42}}},
	}

	m, err := NewModel(inst)
	if err != nil {
		t.Fatalf("Unexpected model error: %v", err)
	}
	if m.IncludedRequests() != 0 {
		t.Errorf("Expected 0 included requests. Got: %d", m.IncludedRequests())
	}
	excluded := m.ExcludedRequests()
	if len(excluded) != 1 || excluded[0] != 3 {
		t.Errorf("Expected request 3 recorded as excluded. Got: %v", excluded)
	}
}

func TestNewModel_RejectsMalformedInstances(t *testing.T) {
	producers := []models.Producer{{ID: 1, GroupID: 10, Capacity: 1}}
	groups := []models.Group{{ID: 10, MaxImport: 5}}
	requests := []models.Request{{ID: 1, GroupID: 10, Eligible: []int{1}}}

	cases := []struct {
		name string
		inst models.Instance
	}{
		{"no producers", models.Instance{Groups: groups, Requests: requests}},
		{"no groups", models.Instance{Producers: producers, Requests: requests}},
		{"no requests", models.Instance{Producers: producers, Groups: groups}},
		{"negative capacity", models.Instance{
			Producers: []models.Producer{{ID: 1, GroupID: 10, Capacity: -1}},
			Groups:    groups, Requests: requests,
		}},
		{"producer references unknown group", models.Instance{
			Producers: []models.Producer{{ID: 1, GroupID: 77, Capacity: 1}},
			Groups:    groups, Requests: requests,
		}},
		{"request references unknown group", models.Instance{
			Producers: producers, Groups: groups,
			Requests: []models.Request{{ID: 1, GroupID: 77, Eligible: []int{1}}},
		}},
		{"duplicate producer id", models.Instance{
			Producers: []models.Producer{{ID: 1, GroupID: 10, Capacity: 1}, {ID: 1, GroupID: 10, Capacity: 2}},
			Groups:    groups, Requests: requests,
		}},
		{"duplicate request id", models.Instance{
			Producers: producers, Groups: groups,
			Requests: []models.Request{{ID: 1, GroupID: 10, Eligible: []int{1}}, {ID: 1, GroupID: 10, Eligible: []int{1}}},
		}},
		{"min-import above max-import", models.Instance{
			Producers: producers,
			Groups:    []models.Group{{ID: 10, MaxImport: 1, MinImport: 2}},
			Requests:  requests,
		}},
	}

	for _, tc := range cases {
		if _, err := NewModel(tc.inst); err == nil {
			t.Errorf("%s: expected InvalidInstance error, got nil", tc.name)
		}
	}
}
