package models

// Producer is a capacity-bounded fulfilment source. Immutable once loaded.
type Producer struct {
	ID       int `json:"id"`
	GroupID  int `json:"groupId"`
	Capacity int `json:"capacity"` // max units this producer can ship in one plan
}

// Group is a consuming/regulatory unit. MaxImport bounds units flowing into
// the group from producers outside it; MinImport is the floor the group must
// receive from foreign producers.
type Group struct {
	ID        int `json:"id"`
	MaxImport int `json:"maxImport"`
	MinImport int `json:"minImport"`
}

// Request is one unit of demand tied to a group. Eligible lists the producer
// ids allowed to fulfil it, in caller preference order.
type Request struct {
	ID       int   `json:"id"`
	GroupID  int   `json:"groupId"`
	Eligible []int `json:"eligible"`
}

// Instance is a fully parsed allocation problem. The engine performs no text
// parsing; callers hand it a typed instance and get an Outcome back.
type Instance struct {
	Producers []Producer `json:"producers"`
	Groups    []Group    `json:"groups"`
	Requests  []Request  `json:"requests"`
}

// AssignmentEntry records one granted request.
type AssignmentEntry struct {
	RequestID  int `json:"requestId"`
	ProducerID int `json:"producerId"`
}

// Status discriminates the terminal states of a solve.
type Status string

const (
	StatusOptimal         Status = "optimal"
	StatusInfeasible      Status = "infeasible"
	StatusPartialResult   Status = "partial"
	StatusInvalidInstance Status = "invalid"
)

// SearchStats summarizes one branch-and-bound run.
type SearchStats struct {
	NodesExplored  int64   `json:"nodesExplored"`
	NodesPruned    int64   `json:"nodesPruned"`
	IntegralLeaves int64   `json:"integralLeaves"`
	SimplexPivots  int64   `json:"simplexPivots"`
	RootBound      float64 `json:"rootBound"`
}

// Outcome is the single result type of the engine.
//
// StatusOptimal and StatusPartialResult carry Count and Assignment.
// StatusInfeasible means no assignment satisfies the hard constraints,
// which is distinct from a valid Count of 0. StatusInvalidInstance carries
// Reason and means no solving was attempted.
type Outcome struct {
	Status     Status            `json:"status"`
	Count      int               `json:"count"`
	Assignment []AssignmentEntry `json:"assignment,omitempty"`
	Reason     string            `json:"reason,omitempty"`
	Warning    string            `json:"warning,omitempty"` // e.g. a relaxation hit its pivot cap
	Stats      SearchStats       `json:"stats"`
}

// JobState tracks an asynchronous solve submission.
type JobState string

const (
	JobQueued  JobState = "queued"
	JobRunning JobState = "running"
	JobDone    JobState = "done"
	JobFailed  JobState = "failed"
)

// Progress is a point-in-time snapshot of a running search, pushed to
// websocket subscribers whenever the incumbent improves.
type Progress struct {
	JobID         string  `json:"jobId,omitempty"`
	NodesExplored int64   `json:"nodesExplored"`
	BestCount     int     `json:"bestCount"` // -1 until a first incumbent exists
	BestBound     float64 `json:"bestBound"`
}
