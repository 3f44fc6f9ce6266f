package solver

import "fmt"

// ConstraintKind tags a row for diagnostics.
type ConstraintKind int

const (
	KindUniqueness ConstraintKind = iota
	KindCapacity
	KindImportMax
	KindImportMin
)

func (k ConstraintKind) String() string {
	switch k {
	case KindUniqueness:
		return "uniqueness"
	case KindCapacity:
		return "capacity"
	case KindImportMax:
		return "import-max"
	case KindImportMin:
		return "import-min"
	}
	return "unknown"
}

// Sense is the row relation. All rows in this model are sums of binary
// variables with unit coefficients, so a row is fully described by its
// variable set, sense and right-hand side.
type Sense int

const (
	SenseLE Sense = iota // sum <= RHS
	SenseGE              // sum >= RHS
)

// Variable is one binary decision: "request ReqIdx is granted by producer
// ProdIdx". Foreign marks cross-group fulfilment, the only kind regulated by
// import bounds.
type Variable struct {
	ReqIdx  int // index into Model.included
	ProdIdx int // index into Model.producers
	Foreign bool
}

// Constraint is one linear row over unit-coefficient variables.
type Constraint struct {
	Kind  ConstraintKind
	Sense Sense
	Vars  []int // variable indices
	RHS   int
	Label string
}

// System is the canonical constraint model: the full variable enumeration
// plus every row. Building is deterministic and side-effect-free; the same
// Model always yields the same System.
type System struct {
	Model *Model
	Vars  []Variable
	Cons  []Constraint

	varsOfReq [][]int // request index -> its variable indices
}

// BuildSystem enumerates decision variables and constraints from the model.
//
// Variables are enumerated by request id ascending, then by producer in the
// request's original eligibility order. Rows: one uniqueness row per included
// request, one capacity row per producer that appears in some eligibility
// list, and import-max/import-min rows per group with at least one
// foreign-sourced variable. Groups and producers with no participating
// variables are skipped so the system never holds empty rows, and every
// variable is referenced by its request's uniqueness row.
func BuildSystem(m *Model) *System {
	sys := &System{
		Model:     m,
		varsOfReq: make([][]int, len(m.included)),
	}

	varsOfProd := make([][]int, len(m.producers))
	foreignOfGroup := make([][]int, len(m.groups))

	for ri, req := range m.included {
		for _, pi := range req.eligible {
			vi := len(sys.Vars)
			foreign := m.producers[pi].GroupID != m.groups[req.groupIdx].ID
			sys.Vars = append(sys.Vars, Variable{ReqIdx: ri, ProdIdx: pi, Foreign: foreign})
			sys.varsOfReq[ri] = append(sys.varsOfReq[ri], vi)
			varsOfProd[pi] = append(varsOfProd[pi], vi)
			if foreign {
				foreignOfGroup[req.groupIdx] = append(foreignOfGroup[req.groupIdx], vi)
			}
		}
	}

	for ri, req := range m.included {
		sys.Cons = append(sys.Cons, Constraint{
			Kind:  KindUniqueness,
			Sense: SenseLE,
			Vars:  sys.varsOfReq[ri],
			RHS:   1,
			Label: fmt.Sprintf("uniqueness r=%d", req.id),
		})
	}

	for pi, vars := range varsOfProd {
		if len(vars) == 0 {
			continue
		}
		sys.Cons = append(sys.Cons, Constraint{
			Kind:  KindCapacity,
			Sense: SenseLE,
			Vars:  vars,
			RHS:   m.producers[pi].Capacity,
			Label: fmt.Sprintf("capacity p=%d", m.producers[pi].ID),
		})
	}

	for gi, vars := range foreignOfGroup {
		if len(vars) == 0 {
			continue
		}
		g := m.groups[gi]
		sys.Cons = append(sys.Cons, Constraint{
			Kind:  KindImportMax,
			Sense: SenseLE,
			Vars:  vars,
			RHS:   g.MaxImport,
			Label: fmt.Sprintf("import-max g=%d", g.ID),
		})
		// A min of zero is vacuous; emitting it would only add a degenerate
		// >= row for the simplex to carry around.
		if g.MinImport > 0 {
			sys.Cons = append(sys.Cons, Constraint{
				Kind:  KindImportMin,
				Sense: SenseGE,
				Vars:  vars,
				RHS:   g.MinImport,
				Label: fmt.Sprintf("import-min g=%d", g.ID),
			})
		}
	}

	return sys
}

// TriviallyInfeasible detects groups whose min-import floor exceeds the
// number of foreign-sourced variables available to them. Such instances can
// never be satisfied regardless of capacities, including the case where a
// group demands imports but no foreign producer serves any of its requests
// (which produces no import rows at all).
func (s *System) TriviallyInfeasible() (string, bool) {
	foreignCount := make([]int, len(s.Model.groups))
	for _, v := range s.Vars {
		if v.Foreign {
			foreignCount[s.Model.included[v.ReqIdx].groupIdx]++
		}
	}
	for gi, g := range s.Model.groups {
		if g.MinImport > foreignCount[gi] {
			return fmt.Sprintf("group %d requires %d imported units but only %d foreign-eligible requests exist",
				g.ID, g.MinImport, foreignCount[gi]), true
		}
	}
	return "", false
}
