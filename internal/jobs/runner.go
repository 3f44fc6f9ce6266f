// Package jobs runs solves in the background. Each submission gets a uuid,
// a state machine (queued -> running -> done/failed) and live progress
// snapshots that are pushed to websocket subscribers whenever the search
// finds a better incumbent.
package jobs

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rawblock/allocation-engine/internal/db"
	"github.com/rawblock/allocation-engine/internal/solver"
	"github.com/rawblock/allocation-engine/pkg/models"
)

// Broadcaster pushes a JSON message to all live subscribers. The websocket
// hub's Broadcast method satisfies it; tests pass a capture function.
type Broadcaster func([]byte)

type job struct {
	id          string
	submittedAt time.Time
	instance    models.Instance

	mu       sync.Mutex
	state    models.JobState
	progress models.Progress
	outcome  *models.Outcome
}

// View is an immutable snapshot of a job, safe to serialize.
type View struct {
	ID          string          `json:"id"`
	State       models.JobState `json:"state"`
	SubmittedAt time.Time       `json:"submittedAt"`
	Progress    models.Progress `json:"progress"`
	Outcome     *models.Outcome `json:"outcome,omitempty"`
}

// Runner owns the background solve goroutines. A nil store disables
// persistence; a nil broadcaster disables progress streaming.
type Runner struct {
	store     *db.Store
	broadcast Broadcaster
	opts      solver.Options

	mu   sync.Mutex
	jobs map[string]*job
}

func NewRunner(store *db.Store, broadcast Broadcaster, opts solver.Options) *Runner {
	return &Runner{
		store:     store,
		broadcast: broadcast,
		opts:      opts,
		jobs:      make(map[string]*job),
	}
}

// Submit registers an instance for solving and returns its job id. The
// solve starts immediately on its own goroutine.
func (r *Runner) Submit(inst models.Instance) string {
	j := &job{
		id:          uuid.NewString(),
		submittedAt: time.Now(),
		instance:    inst,
		state:       models.JobQueued,
		progress:    models.Progress{BestCount: -1},
	}
	j.progress.JobID = j.id

	r.mu.Lock()
	r.jobs[j.id] = j
	r.mu.Unlock()

	go r.run(j)
	return j.id
}

func (r *Runner) run(j *job) {
	j.mu.Lock()
	j.state = models.JobRunning
	j.mu.Unlock()

	opts := r.opts
	opts.OnIncumbent = func(p models.Progress) {
		p.JobID = j.id
		j.mu.Lock()
		j.progress = p
		j.mu.Unlock()
		r.push("incumbent", j.id, p.BestCount, p.BestBound, p.NodesExplored)
	}

	log.Printf("[Jobs] %s started: %d producers, %d groups, %d requests",
		j.id, len(j.instance.Producers), len(j.instance.Groups), len(j.instance.Requests))

	out := solver.Solve(context.Background(), j.instance, opts)

	j.mu.Lock()
	j.outcome = &out
	if out.Status == models.StatusInvalidInstance {
		j.state = models.JobFailed
	} else {
		j.state = models.JobDone
	}
	j.progress.NodesExplored = out.Stats.NodesExplored
	j.progress.BestCount = out.Count
	j.progress.BestBound = out.Stats.RootBound
	j.mu.Unlock()

	log.Printf("[Jobs] %s finished: status=%s count=%d nodes=%d pivots=%d",
		j.id, out.Status, out.Count, out.Stats.NodesExplored, out.Stats.SimplexPivots)

	if r.store != nil && out.Status != models.StatusInvalidInstance {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := r.store.SaveOutcome(ctx, j.id, out); err != nil {
			log.Printf("[Jobs] %s: failed to persist outcome: %v", j.id, err)
		}
	}

	r.push("done", j.id, out.Count, out.Stats.RootBound, out.Stats.NodesExplored)
}

// push serializes a progress event and hands it to the broadcaster. Dropped
// silently when streaming is disabled.
func (r *Runner) push(event, jobID string, count int, bound float64, nodes int64) {
	if r.broadcast == nil {
		return
	}
	msg, err := json.Marshal(map[string]interface{}{
		"type":  event,
		"jobId": jobID,
		"count": count,
		"bound": bound,
		"nodes": nodes,
	})
	if err != nil {
		return
	}
	r.broadcast(msg)
}

// Get returns a snapshot of one job.
func (r *Runner) Get(id string) (View, bool) {
	r.mu.Lock()
	j, ok := r.jobs[id]
	r.mu.Unlock()
	if !ok {
		return View{}, false
	}
	return j.view(), true
}

// List returns snapshots of all known jobs, newest first.
func (r *Runner) List() []View {
	r.mu.Lock()
	views := make([]View, 0, len(r.jobs))
	for _, j := range r.jobs {
		views = append(views, j.view())
	}
	r.mu.Unlock()

	sort.Slice(views, func(a, b int) bool {
		return views[a].SubmittedAt.After(views[b].SubmittedAt)
	})
	return views
}

func (j *job) view() View {
	j.mu.Lock()
	defer j.mu.Unlock()
	return View{
		ID:          j.id,
		State:       j.state,
		SubmittedAt: j.submittedAt,
		Progress:    j.progress,
		Outcome:     j.outcome,
	}
}
