package solver

import (
	"context"
	"testing"

	"github.com/rawblock/allocation-engine/internal/verify"
	"github.com/rawblock/allocation-engine/pkg/models"
)

// fullyFlexibleInstance: 3 unit-capacity producers across 2 groups, generous import
// bounds, 3 fully-eligible requests. Everyone can be served.
func fullyFlexibleInstance() models.Instance {
	return models.Instance{
		Producers: []models.Producer{
			{ID: 1, GroupID: 10, Capacity: 1},
			{ID: 2, GroupID: 10, Capacity: 1},
			{ID: 3, GroupID: 20, Capacity: 1},
		},
		Groups: []models.Group{
			{ID: 10, MaxImport: 10},
			{ID: 20, MaxImport: 10},
		},
		Requests: []models.Request{
			{ID: 1, GroupID: 10, Eligible: []int{1, 2, 3}},
			{ID: 2, GroupID: 10, Eligible: []int{1, 2, 3}},
			{ID: 3, GroupID: 20, Eligible: []int{1, 2, 3}},
		},
	}
}

// capacityBoundInstance: 2 units of total capacity chased by 3 requests.
func capacityBoundInstance() models.Instance {
	return models.Instance{
		Producers: []models.Producer{
			{ID: 1, GroupID: 10, Capacity: 1},
			{ID: 2, GroupID: 10, Capacity: 1},
		},
		Groups: []models.Group{{ID: 10, MaxImport: 10}},
		Requests: []models.Request{
			{ID: 1, GroupID: 10, Eligible: []int{1, 2}},
			{ID: 2, GroupID: 10, Eligible: []int{1, 2}},
			{ID: 3, GroupID: 10, Eligible: []int{1, 2}},
		},
	}
}

func TestSolve_AllRequestsServed(t *testing.T) {
	out := Solve(context.Background(), fullyFlexibleInstance(), Options{})
	if out.Status != models.StatusOptimal {
		t.Fatalf("Expected optimal outcome. Got: %s (%s)", out.Status, out.Reason)
	}
	if out.Count != 3 {
		t.Errorf("Expected all 3 requests served. Got: %d", out.Count)
	}
	if v := verify.Audit(fullyFlexibleInstance(), out.Assignment); len(v) > 0 {
		t.Errorf("Assignment failed the independent audit: %v", v)
	}
}

func TestSolve_CapacityBindsCount(t *testing.T) {
	out := Solve(context.Background(), capacityBoundInstance(), Options{})
	if out.Status != models.StatusOptimal {
		t.Fatalf("Expected optimal outcome. Got: %s (%s)", out.Status, out.Reason)
	}
	if out.Count != 2 {
		t.Errorf("Expected capacity to cap the count at 2. Got: %d", out.Count)
	}
	if v := verify.Audit(capacityBoundInstance(), out.Assignment); len(v) > 0 {
		t.Errorf("Assignment failed the independent audit: %v", v)
	}
}

func TestSolve_ImportFloorUnreachableIsInfeasible(t *testing.T) {
	// Group 10 must import 2 units, but the only foreign producer has
	// capacity 1. Detected two ways: structurally (one foreign-eligible
	// request) and via the LP (two requests, one unit of capacity).
	structural := models.Instance{
		Producers: []models.Producer{{ID: 1, GroupID: 20, Capacity: 1}},
		Groups: []models.Group{
			{ID: 10, MaxImport: 5, MinImport: 2},
			{ID: 20, MaxImport: 5},
		},
		Requests: []models.Request{{ID: 1, GroupID: 10, Eligible: []int{1}}},
	}
	out := Solve(context.Background(), structural, Options{})
	if out.Status != models.StatusInfeasible {
		t.Errorf("Structural variant: expected infeasible. Got: %s count=%d", out.Status, out.Count)
	}

	viaLP := models.Instance{
		Producers: []models.Producer{{ID: 1, GroupID: 20, Capacity: 1}},
		Groups: []models.Group{
			{ID: 10, MaxImport: 5, MinImport: 2},
			{ID: 20, MaxImport: 5},
		},
		Requests: []models.Request{
			{ID: 1, GroupID: 10, Eligible: []int{1}},
			{ID: 2, GroupID: 10, Eligible: []int{1}},
		},
	}
	out = Solve(context.Background(), viaLP, Options{})
	if out.Status != models.StatusInfeasible {
		t.Errorf("LP variant: expected infeasible. Got: %s count=%d", out.Status, out.Count)
	}
}

func TestSolve_UnknownProducerExcludedNotInfeasible(t *testing.T) {
	// The only request names a producer that does not exist: the request is
	// excluded and the empty assignment is a valid optimum of 0 —
	// explicitly not infeasible.
	inst := models.Instance{
		Producers: []models.Producer{{ID: 1, GroupID: 10, Capacity: 5}},
		Groups:    []models.Group{{ID: 10, MaxImport: 5}},
		Requests:  []models.Request{{ID: 1, GroupID: 10, Eligible: []int{42}}},
	}
	out := Solve(context.Background(), inst, Options{})
	if out.Status != models.StatusOptimal {
		t.Fatalf("Expected optimal outcome. Got: %s (%s)", out.Status, out.Reason)
	}
	if out.Count != 0 || len(out.Assignment) != 0 {
		t.Errorf("Expected an empty optimal assignment. Got count=%d entries=%v", out.Count, out.Assignment)
	}
}

func TestSolve_ImportFloorForcesForeignChoice(t *testing.T) {
	// Request 1 would happily stay intra-group with p1, but group 10's
	// import floor of 1 forces the foreign producer p2.
	inst := models.Instance{
		Producers: []models.Producer{
			{ID: 1, GroupID: 10, Capacity: 1},
			{ID: 2, GroupID: 20, Capacity: 1},
		},
		Groups: []models.Group{
			{ID: 10, MaxImport: 5, MinImport: 1},
			{ID: 20, MaxImport: 5},
		},
		Requests: []models.Request{{ID: 1, GroupID: 10, Eligible: []int{1, 2}}},
	}
	out := Solve(context.Background(), inst, Options{})
	if out.Status != models.StatusOptimal || out.Count != 1 {
		t.Fatalf("Expected optimal count 1. Got: %s count=%d", out.Status, out.Count)
	}
	if len(out.Assignment) != 1 || out.Assignment[0].ProducerID != 2 {
		t.Errorf("Expected request 1 pushed to foreign producer 2. Got: %v", out.Assignment)
	}
	if v := verify.Audit(inst, out.Assignment); len(v) > 0 {
		t.Errorf("Assignment failed the independent audit: %v", v)
	}
}

func TestSolve_ImportMaxCapsForeignFlow(t *testing.T) {
	// Both requests of group 10 can only be served abroad, but the group
	// accepts at most one imported unit.
	inst := models.Instance{
		Producers: []models.Producer{
			{ID: 1, GroupID: 20, Capacity: 1},
			{ID: 2, GroupID: 20, Capacity: 1},
		},
		Groups: []models.Group{
			{ID: 10, MaxImport: 1},
			{ID: 20, MaxImport: 5},
		},
		Requests: []models.Request{
			{ID: 1, GroupID: 10, Eligible: []int{1, 2}},
			{ID: 2, GroupID: 10, Eligible: []int{1, 2}},
		},
	}
	out := Solve(context.Background(), inst, Options{})
	if out.Status != models.StatusOptimal || out.Count != 1 {
		t.Errorf("Expected the import cap to hold the count at 1. Got: %s count=%d", out.Status, out.Count)
	}
}

func TestSolve_CountNeverExceedsStructuralBounds(t *testing.T) {
	for name, inst := range map[string]models.Instance{"A": fullyFlexibleInstance(), "B": capacityBoundInstance()} {
		out := Solve(context.Background(), inst, Options{})
		if out.Count > len(inst.Requests) {
			t.Errorf("%s: count %d exceeds request total %d", name, out.Count, len(inst.Requests))
		}
		caps := 0
		for _, p := range inst.Producers {
			caps += p.Capacity
		}
		if out.Count > caps {
			t.Errorf("%s: count %d exceeds total capacity %d", name, out.Count, caps)
		}
	}
}

func TestSolve_RelaxingBoundsIsMonotone(t *testing.T) {
	// Raising a capacity must never lower the optimum.
	base := capacityBoundInstance()
	before := Solve(context.Background(), base, Options{})

	raised := capacityBoundInstance()
	raised.Producers[0].Capacity = 2
	after := Solve(context.Background(), raised, Options{})

	if after.Count < before.Count {
		t.Errorf("Raising capacity lowered the count: %d -> %d", before.Count, after.Count)
	}
	if after.Count != 3 {
		t.Errorf("Expected the extra unit to serve the third request. Got: %d", after.Count)
	}

	// Raising an import cap must never lower the optimum either.
	tight := models.Instance{
		Producers: []models.Producer{
			{ID: 1, GroupID: 20, Capacity: 1},
			{ID: 2, GroupID: 20, Capacity: 1},
		},
		Groups: []models.Group{
			{ID: 10, MaxImport: 1},
			{ID: 20, MaxImport: 5},
		},
		Requests: []models.Request{
			{ID: 1, GroupID: 10, Eligible: []int{1, 2}},
			{ID: 2, GroupID: 10, Eligible: []int{1, 2}},
		},
	}
	tightOut := Solve(context.Background(), tight, Options{})
	tight.Groups[0].MaxImport = 2
	looseOut := Solve(context.Background(), tight, Options{})
	if looseOut.Count < tightOut.Count {
		t.Errorf("Raising max-import lowered the count: %d -> %d", tightOut.Count, looseOut.Count)
	}
}

func TestSolve_IdempotentCount(t *testing.T) {
	first := Solve(context.Background(), fullyFlexibleInstance(), Options{})
	second := Solve(context.Background(), fullyFlexibleInstance(), Options{})
	if first.Count != second.Count {
		t.Errorf("Same instance, different counts: %d vs %d", first.Count, second.Count)
	}
}

func TestSolve_CancelledContextReturnsPartial(t *testing.T) {
	// A context cancelled before the search starts still returns the
	// warm-start incumbent, tagged partial instead of optimal.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := Solve(ctx, fullyFlexibleInstance(), Options{})
	if out.Status != models.StatusPartialResult {
		t.Fatalf("Expected a partial result under a dead context. Got: %s", out.Status)
	}
	if len(out.Assignment) > 0 {
		if v := verify.Audit(fullyFlexibleInstance(), out.Assignment); len(v) > 0 {
			t.Errorf("Partial assignment failed the independent audit: %v", v)
		}
	}
}

func TestSolve_ParallelWorkersAgreeWithSerial(t *testing.T) {
	serial := Solve(context.Background(), capacityBoundInstance(), Options{Workers: 1})
	parallel := Solve(context.Background(), capacityBoundInstance(), Options{Workers: 4})
	if serial.Count != parallel.Count {
		t.Errorf("Worker count changed the optimum: serial=%d parallel=%d", serial.Count, parallel.Count)
	}
	if parallel.Status != models.StatusOptimal {
		t.Errorf("Expected optimal under parallel exploration. Got: %s", parallel.Status)
	}
}

func TestSolve_SearchImprovesGreedyWarmStart(t *testing.T) {
	// Greedily sending r1 abroad to p2 (its preferred producer) starves r2,
	// whose only option is p2. The search must recover the 2-request
	// optimum: r1 stays home with p1, r2 takes p2.
	inst := models.Instance{
		Producers: []models.Producer{
			{ID: 1, GroupID: 10, Capacity: 1},
			{ID: 2, GroupID: 20, Capacity: 1},
		},
		Groups: []models.Group{
			{ID: 10, MaxImport: 1},
			{ID: 20, MaxImport: 1},
		},
		Requests: []models.Request{
			{ID: 1, GroupID: 10, Eligible: []int{2, 1}},
			{ID: 2, GroupID: 20, Eligible: []int{2}},
		},
	}
	out := Solve(context.Background(), inst, Options{})
	if out.Status != models.StatusOptimal || out.Count != 2 {
		t.Fatalf("Expected the search to reach the optimum of 2. Got: %s count=%d", out.Status, out.Count)
	}
	if v := verify.Audit(inst, out.Assignment); len(v) > 0 {
		t.Errorf("Assignment failed the independent audit: %v", v)
	}
}

func TestSolve_InvalidInstanceShortCircuits(t *testing.T) {
	out := Solve(context.Background(), models.Instance{}, Options{})
	if out.Status != models.StatusInvalidInstance {
		t.Fatalf("Expected invalid-instance status. Got: %s", out.Status)
	}
	if out.Reason == "" {
		t.Error("Expected a reason explaining what was malformed")
	}
	if out.Stats.NodesExplored != 0 {
		t.Errorf("Validation failures must never trigger solving. Nodes explored: %d", out.Stats.NodesExplored)
	}
}

func TestSolve_PivotCapKeepsIncumbentAsPartial(t *testing.T) {
	// A pivot cap of 1 makes every relaxation fail twice, so the search
	// abandons the root subtree. The warm-start incumbent of 2 must come
	// back tagged partial with a convergence warning, never be promoted to
	// a proven optimum of a search that did not finish.
	inst := capacityBoundInstance()
	sanity := Solve(context.Background(), inst, Options{})
	if sanity.Status != models.StatusOptimal || sanity.Count != 2 {
		t.Fatalf("Sanity solve expected optimal 2. Got: %s count=%d", sanity.Status, sanity.Count)
	}

	out := Solve(context.Background(), inst, Options{MaxPivots: 1})
	if out.Status != models.StatusPartialResult {
		t.Fatalf("Expected a partial result when relaxations cannot converge. Got: %s", out.Status)
	}
	if out.Count != 2 {
		t.Errorf("Expected the warm-start incumbent of 2 to survive. Got: %d", out.Count)
	}
	if out.Warning == "" {
		t.Error("Expected a SolverDidNotConverge warning on the outcome")
	}
	if v := verify.Audit(inst, out.Assignment); len(v) > 0 {
		t.Errorf("Partial assignment failed the independent audit: %v", v)
	}
}

func TestSolve_PivotCapNeverReportsInfeasible(t *testing.T) {
	// Two import floors compete for the same producer, which defeats the
	// greedy warm start (it sends r1 to p1 and starves r2's floor), so the
	// search starts with no incumbent. The instance is feasible (r1 -> p2,
	// r2 -> p1); when the pivot cap abandons the root the outcome must say
	// "incomplete", not "infeasible".
	inst := models.Instance{
		Producers: []models.Producer{
			{ID: 1, GroupID: 30, Capacity: 1},
			{ID: 2, GroupID: 30, Capacity: 1},
		},
		Groups: []models.Group{
			{ID: 10, MaxImport: 5, MinImport: 1},
			{ID: 20, MaxImport: 5, MinImport: 1},
			{ID: 30, MaxImport: 5},
		},
		Requests: []models.Request{
			{ID: 1, GroupID: 10, Eligible: []int{1, 2}},
			{ID: 2, GroupID: 20, Eligible: []int{1}},
		},
	}
	sanity := Solve(context.Background(), inst, Options{})
	if sanity.Status != models.StatusOptimal || sanity.Count != 2 {
		t.Fatalf("Sanity solve expected optimal 2. Got: %s count=%d", sanity.Status, sanity.Count)
	}

	out := Solve(context.Background(), inst, Options{MaxPivots: 1})
	if out.Status != models.StatusPartialResult {
		t.Fatalf("Expected a partial result, never infeasible, for an abandoned search. Got: %s", out.Status)
	}
	if out.Warning == "" {
		t.Error("Expected a SolverDidNotConverge warning on the outcome")
	}
}

func TestSolve_StatsPopulated(t *testing.T) {
	out := Solve(context.Background(), capacityBoundInstance(), Options{})
	if out.Stats.NodesExplored < 1 {
		t.Errorf("Expected at least the root node explored. Got: %d", out.Stats.NodesExplored)
	}
	if out.Stats.RootBound < float64(out.Count)-1e-6 {
		t.Errorf("Root bound %v sits below the achieved count %d", out.Stats.RootBound, out.Count)
	}
}
