package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/textaudit/collector/internal/models"
)

// TaskState is the live in-memory state of one collection run.
//
// The run goroutine is the only writer; the mutex exists so concurrent status
// readers always observe a consistent snapshot.
type TaskState struct {
	mu sync.Mutex

	id        string
	source    models.Source
	config    models.CollectionConfig
	status    models.Status
	collected int
	total     int
	progress  int
	errMsg    string
	startedAt *time.Time
	endedAt   *time.Time

	cancel context.CancelFunc
}

func newTaskState(id string, source models.Source, config models.CollectionConfig) *TaskState {
	return &TaskState{
		id:     id,
		source: source,
		config: config,
		status: models.StatusPending,
		total:  config.MaxItems,
	}
}

// Snapshot returns a consistent read-side view of the task.
func (t *TaskState) Snapshot() models.TaskSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := models.TaskSnapshot{
		TaskID:         t.id,
		Status:         t.status,
		Progress:       t.progress,
		CollectedCount: t.collected,
		TotalCount:     t.total,
		ErrorMessage:   t.errMsg,
	}
	if t.startedAt != nil {
		snap.StartTime = t.startedAt.Format(time.RFC3339)
	}
	if t.endedAt != nil {
		snap.EndTime = t.endedAt.Format(time.RFC3339)
	}
	return snap
}

// Cancel aborts the task's context, if the run is still in flight.
func (t *TaskState) Cancel() {
	t.mu.Lock()
	cancel := t.cancel
	t.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Terminal reports whether the task has reached a final state.
func (t *TaskState) Terminal() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status.Terminal()
}

func (t *TaskState) setCancel(cancel context.CancelFunc) {
	t.mu.Lock()
	t.cancel = cancel
	t.mu.Unlock()
}

// markRunning transitions pending -> running and stamps the start time.
func (t *TaskState) markRunning(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.status.CanTransition(models.StatusRunning) {
		return
	}
	t.status = models.StatusRunning
	t.startedAt = &now
}

// recordItem advances the collected counter and recomputes progress.
//
// Progress only moves when the expected total is known, and never backwards.
func (t *TaskState) recordItem(collected int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if collected <= t.collected {
		return
	}
	t.collected = collected
	if t.total > 0 {
		if p := collected * 100 / t.total; p > t.progress {
			if p > 100 {
				p = 100
			}
			t.progress = p
		}
	}
}

// complete transitions running -> completed; no-op from any other state.
func (t *TaskState) complete(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.status.CanTransition(models.StatusCompleted) {
		return false
	}
	t.status = models.StatusCompleted
	t.progress = 100
	t.endedAt = &now
	return true
}

// fail transitions to failed from any non-terminal state.
func (t *TaskState) fail(now time.Time, msg string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status.Terminal() {
		return false
	}
	t.status = models.StatusFailed
	t.errMsg = msg
	t.endedAt = &now
	return true
}

// Registry caches live task state for fast status reads.
//
// It fronts the database: lookups that miss here fall through to the store.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]*TaskState
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]*TaskState)}
}

// Add registers a task's live state.
func (r *Registry) Add(state *TaskState) {
	r.mu.Lock()
	r.tasks[state.id] = state
	r.mu.Unlock()
}

// Get returns the live state for a task id.
func (r *Registry) Get(id string) (*TaskState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state, ok := r.tasks[id]
	return state, ok
}

// All returns the live state of every registered task.
func (r *Registry) All() []*TaskState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	states := make([]*TaskState, 0, len(r.tasks))
	for _, state := range r.tasks {
		states = append(states, state)
	}
	return states
}

// Len returns how many tasks the registry holds.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}
