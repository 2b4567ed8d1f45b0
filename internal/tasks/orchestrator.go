package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/textaudit/collector/internal/models"
	"github.com/textaudit/collector/internal/shared"
	"github.com/textaudit/collector/internal/sources"
)

const (
	// defaultChannelCapacity bounds the per-task item channel.
	defaultChannelCapacity = 100
	// defaultFlushEvery flushes the task row after this many persisted items.
	defaultFlushEvery = 10

	defaultPageSize = 20
	maxPageSize     = 100
)

// Gateway is the persistence surface the orchestrator depends on.
//
// Implemented by repositories.Store; tests substitute in-memory doubles.
type Gateway interface {
	CreateTask(ctx context.Context, task *models.CollectionTask) error
	GetTask(ctx context.Context, id string) (*models.CollectionTask, error)
	UpdateTask(ctx context.Context, id string, update models.TaskUpdate) error
	ListTasks(ctx context.Context, status string, limit, offset int) ([]*models.CollectionTask, error)
	CountTasks(ctx context.Context, status string) (int, error)
	SaveItem(ctx context.Context, taskID string, item models.RawItem) error
	Ping(ctx context.Context) error
}

// supervisor tracks every spawned run goroutine so Shutdown can wait on them.
type supervisor struct {
	sync.WaitGroup
}

// Options tunes an Orchestrator.
type Options struct {
	ChannelCapacity int
	FlushEvery      int
	TimeoutSeconds  int
	Logger          *log.Logger
}

// Orchestrator owns the lifecycle of every collection task.
type Orchestrator struct {
	gateway  Gateway
	adapters *sources.Registry
	registry *Registry
	logger   *log.Logger

	channelCap     int
	flushEvery     int
	timeoutSeconds int

	baseCtx    context.Context
	baseCancel context.CancelFunc
	supervisor supervisor
}

// NewOrchestrator creates an Orchestrator over the given gateway and adapters.
func NewOrchestrator(gateway Gateway, adapters *sources.Registry, opts Options) *Orchestrator {
	channelCap := opts.ChannelCapacity
	if channelCap <= 0 {
		channelCap = defaultChannelCapacity
	}
	flushEvery := opts.FlushEvery
	if flushEvery <= 0 {
		flushEvery = defaultFlushEvery
	}
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	baseCtx, baseCancel := context.WithCancel(context.Background())

	return &Orchestrator{
		gateway:        gateway,
		adapters:       adapters,
		registry:       NewRegistry(),
		logger:         logger,
		channelCap:     channelCap,
		flushEvery:     flushEvery,
		timeoutSeconds: opts.TimeoutSeconds,
		baseCtx:        baseCtx,
		baseCancel:     baseCancel,
	}
}

// Registry exposes the live task registry for read-side consumers.
func (o *Orchestrator) Registry() *Registry {
	return o.registry
}

// Submit validates the request, persists a pending task, spawns the run, and
// returns the task id immediately.
//
// The run is bound to the orchestrator's base context, not ctx: the request
// ending must not cancel the collection it started.
func (o *Orchestrator) Submit(ctx context.Context, source models.Source, config models.CollectionConfig) (string, error) {
	adapter, ok := o.adapters.Lookup(source.Kind)
	if !ok {
		return "", fmt.Errorf("%w: %q", shared.ErrInvalidSource, source.Kind)
	}
	if source.Locator == "" {
		return "", fmt.Errorf("%w: locator is required", shared.ErrInvalidArgument)
	}
	if err := config.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrInvalidConfig, err)
	}

	task := models.NewCollectionTask(0, source.Kind, source.Locator, config)
	if err := o.gateway.CreateTask(ctx, task); err != nil {
		return "", err
	}

	state := newTaskState(task.ID(), source, config)
	o.registry.Add(state)

	timeout := config.TimeoutSeconds
	if timeout <= 0 {
		timeout = o.timeoutSeconds
	}
	var taskCtx context.Context
	var cancel context.CancelFunc
	if timeout > 0 {
		taskCtx, cancel = context.WithTimeout(o.baseCtx, time.Duration(timeout)*time.Second)
	} else {
		taskCtx, cancel = context.WithCancel(o.baseCtx)
	}
	state.setCancel(cancel)

	o.supervisor.Add(1)
	go o.run(taskCtx, cancel, state, adapter)

	o.logger.Info("task submitted", "task_id", task.ID(), "kind", source.Kind, "locator", source.Locator)
	return task.ID(), nil
}

// run drains the adapter's item stream and drives the task state machine.
func (o *Orchestrator) run(ctx context.Context, cancel context.CancelFunc, state *TaskState, adapter sources.Source) {
	defer o.supervisor.Done()
	defer cancel()

	// Persistence outlives cancellation so a failed task still records its end.
	persistCtx := context.WithoutCancel(ctx)

	now := time.Now()
	state.markRunning(now)
	running := models.StatusRunning
	if err := o.gateway.UpdateTask(persistCtx, state.id, models.TaskUpdate{Status: &running, StartedAt: &now}); err != nil {
		o.logger.Warn("failed to persist running status", "task_id", state.id, "error", err)
	}

	items := make(chan models.RawItem, o.channelCap)
	errc := make(chan error, 1)
	go func() {
		errc <- adapter.Collect(ctx, state.source, state.config, items)
		close(items)
	}()

	// A cancelled run must surface as a cancellation even when the adapter
	// reports the context error itself.
	wrapCancelled := func(err error) error {
		if ctx.Err() != nil && !errors.Is(err, shared.ErrCancelled) {
			return fmt.Errorf("%w: %v", shared.ErrCancelled, ctx.Err())
		}
		return err
	}

	collected := 0
	for {
		select {
		case item, ok := <-items:
			if !ok {
				// Channel closed after the adapter returned. Check for an
				// error that raced the closure before declaring success.
				select {
				case err := <-errc:
					if err != nil {
						o.finishFailed(persistCtx, state, collected, wrapCancelled(err))
						return
					}
				default:
				}
				o.finishCompleted(persistCtx, state, collected)
				return
			}
			collected = o.handleItem(persistCtx, state, item, collected)

		case err := <-errc:
			if err != nil {
				o.finishFailed(persistCtx, state, collected, wrapCancelled(err))
				return
			}
			// Adapter finished cleanly; drain whatever is still buffered.
			for item := range items {
				collected = o.handleItem(persistCtx, state, item, collected)
			}
			o.finishCompleted(persistCtx, state, collected)
			return

		case <-ctx.Done():
			o.finishFailed(persistCtx, state, collected, fmt.Errorf("%w: %v", shared.ErrCancelled, ctx.Err()))
			return
		}
	}
}

// handleItem persists one item and advances the counters.
//
// A failed save is logged and skipped; the item does not count as collected.
func (o *Orchestrator) handleItem(ctx context.Context, state *TaskState, item models.RawItem, collected int) int {
	if err := o.gateway.SaveItem(ctx, state.id, item); err != nil {
		o.logger.Warn("failed to persist item, skipping", "task_id", state.id, "error", err)
		return collected
	}

	collected++
	state.recordItem(collected)

	if collected%o.flushEvery == 0 {
		o.flushProgress(ctx, state)
	}
	return collected
}

// flushProgress writes the live counters through to the task row.
func (o *Orchestrator) flushProgress(ctx context.Context, state *TaskState) {
	snap := state.Snapshot()
	update := models.TaskUpdate{
		CollectedCount:  &snap.CollectedCount,
		ProgressPercent: &snap.Progress,
	}
	if err := o.gateway.UpdateTask(ctx, state.id, update); err != nil {
		o.logger.Warn("failed to flush progress", "task_id", state.id, "error", err)
	}
}

func (o *Orchestrator) finishCompleted(ctx context.Context, state *TaskState, collected int) {
	now := time.Now()
	if !state.complete(now) {
		return
	}

	completed := models.StatusCompleted
	progress := 100
	update := models.TaskUpdate{
		Status:          &completed,
		CollectedCount:  &collected,
		ProgressPercent: &progress,
		EndedAt:         &now,
	}
	if err := o.gateway.UpdateTask(ctx, state.id, update); err != nil {
		o.logger.Warn("task completed in memory but final persist failed", "task_id", state.id, "error", err)
	}

	o.logger.Info("task completed", "task_id", state.id, "collected", collected)
}

func (o *Orchestrator) finishFailed(ctx context.Context, state *TaskState, collected int, cause error) {
	now := time.Now()
	msg := cause.Error()
	if !state.fail(now, msg) {
		return
	}

	snap := state.Snapshot()
	failed := models.StatusFailed
	update := models.TaskUpdate{
		Status:          &failed,
		CollectedCount:  &collected,
		ProgressPercent: &snap.Progress,
		ErrorMessage:    &msg,
		EndedAt:         &now,
	}
	if err := o.gateway.UpdateTask(ctx, state.id, update); err != nil {
		o.logger.Warn("task failed in memory but final persist failed", "task_id", state.id, "error", err)
	}

	o.logger.Error("task failed", "task_id", state.id, "collected", collected, "error", msg)
}

// Status returns a snapshot of the task, reading the registry first and
// falling back to the store for tasks from past runs.
func (o *Orchestrator) Status(ctx context.Context, id string) (models.TaskSnapshot, error) {
	if state, ok := o.registry.Get(id); ok {
		return state.Snapshot(), nil
	}

	task, err := o.gateway.GetTask(ctx, id)
	if err != nil {
		return models.TaskSnapshot{}, err
	}
	return task.Snapshot(), nil
}

// ListResult is one page of task snapshots.
type ListResult struct {
	Tasks      []models.TaskSnapshot `json:"tasks"`
	Total      int                   `json:"total"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"page_size"`
	TotalPages int                   `json:"total_pages"`
}

// List returns a page of tasks, newest first, optionally filtered by status.
//
// Page numbers below 1 clamp to 1; page sizes clamp to [1, 100] with a
// default of 20.
func (o *Orchestrator) List(ctx context.Context, status string, page, pageSize int) (ListResult, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	offset := (page - 1) * pageSize
	tasks, err := o.gateway.ListTasks(ctx, status, pageSize, offset)
	if err != nil {
		return ListResult{}, err
	}
	total, err := o.gateway.CountTasks(ctx, status)
	if err != nil {
		return ListResult{}, err
	}

	snapshots := make([]models.TaskSnapshot, 0, len(tasks))
	for _, task := range tasks {
		// Live tasks report fresher counters from the registry.
		if state, ok := o.registry.Get(task.ID()); ok {
			snapshots = append(snapshots, state.Snapshot())
			continue
		}
		snapshots = append(snapshots, task.Snapshot())
	}

	totalPages := (total + pageSize - 1) / pageSize
	return ListResult{
		Tasks:      snapshots,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// Cancel aborts a running task. Completed and failed tasks are unaffected.
func (o *Orchestrator) Cancel(id string) error {
	state, ok := o.registry.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrTaskNotFound, id)
	}
	state.Cancel()
	return nil
}

// Health reports whether the persistence gateway is reachable.
func (o *Orchestrator) Health(ctx context.Context) error {
	return o.gateway.Ping(ctx)
}

// RecoverInterrupted marks tasks left pending or running by a previous
// process as failed. Call once at startup, before accepting submissions.
func (o *Orchestrator) RecoverInterrupted(ctx context.Context) error {
	const reason = "interrupted by process restart"

	for _, status := range []models.Status{models.StatusPending, models.StatusRunning} {
		tasks, err := o.gateway.ListTasks(ctx, string(status), maxPageSize, 0)
		if err != nil {
			return fmt.Errorf("failed to list %s tasks: %w", status, err)
		}
		for _, task := range tasks {
			now := time.Now()
			failed := models.StatusFailed
			msg := reason
			update := models.TaskUpdate{Status: &failed, ErrorMessage: &msg, EndedAt: &now}
			if err := o.gateway.UpdateTask(ctx, task.ID(), update); err != nil {
				return fmt.Errorf("failed to recover task %s: %w", task.ID(), err)
			}
			o.logger.Warn("recovered interrupted task", "task_id", task.ID(), "previous_status", status)
		}
	}
	return nil
}

// Shutdown cancels every in-flight task and waits for their goroutines.
//
// Returns ctx.Err() if the deadline passes before all runs finish.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.baseCancel()

	done := make(chan struct{})
	go func() {
		o.supervisor.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
