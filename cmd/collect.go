package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/textaudit/collector/internal/formatter"
	"github.com/textaudit/collector/internal/models"
	"github.com/textaudit/collector/internal/shared"
	"github.com/urfave/cli/v3"
)

// pollEvery is the snapshot polling interval for collect --wait.
const pollEvery = 500 * time.Millisecond

// Collect submits a collection task and optionally waits for it to finish.
func (r *Runner) Collect(ctx context.Context, cmd *cli.Command) error {
	locator := cmd.StringArg("locator")
	if locator == "" {
		return fmt.Errorf("%w: locator argument is required", shared.ErrMissingArgument)
	}

	kind, err := models.ParseSourceKind(cmd.String("source"))
	if err != nil {
		return err
	}

	options := map[string]string{}
	for _, pair := range cmd.StringSlice("option") {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return fmt.Errorf("%w: option %q is not key=value", shared.ErrInvalidFlag, pair)
		}
		options[key] = value
	}

	config := models.CollectionConfig{
		MaxItems:          cmd.Int("max-items"),
		TimeoutSeconds:    cmd.Int("timeout"),
		ConcurrentWorkers: cmd.Int("workers"),
		RateLimit:         cmd.Float("rate-limit"),
		Filters:           cmd.StringSlice("filter"),
		Options:           options,
	}

	db, store, err := r.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	orchestrator := r.newOrchestrator(store)

	taskID, err := orchestrator.Submit(ctx, models.Source{Kind: kind, Locator: locator}, config)
	if err != nil {
		return fmt.Errorf("failed to submit task: %w", err)
	}

	r.logger.Info("task submitted", "task_id", taskID, "source", kind, "locator", locator)

	// The task runs in this process, so always drive it to a terminal state
	// before exiting.
	var snapshot models.TaskSnapshot
	for {
		if snapshot, err = orchestrator.Status(ctx, taskID); err != nil {
			return fmt.Errorf("failed to read task status: %w", err)
		}
		if snapshot.Status.Terminal() {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollEvery):
		}
	}

	return r.writeJSON(snapshot, cmd.Bool("pretty"))
}

// Status prints the snapshot for one task.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	taskID := cmd.StringArg("task-id")
	if taskID == "" {
		return fmt.Errorf("%w: task-id argument is required", shared.ErrMissingArgument)
	}

	db, store, err := r.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	task, err := store.GetTask(ctx, taskID)
	if err != nil {
		return err
	}

	return r.writeJSON(task.Snapshot(), cmd.Bool("pretty"))
}

// Export writes a task's collected items and metadata to disk.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	taskID := cmd.StringArg("task-id")
	if taskID == "" {
		return fmt.Errorf("%w: task-id argument is required", shared.ErrMissingArgument)
	}

	db, store, err := r.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	task, err := store.GetTask(ctx, taskID)
	if err != nil {
		return err
	}

	items, err := store.ListItems(ctx, taskID)
	if err != nil {
		return fmt.Errorf("failed to load items: %w", err)
	}

	result, err := formatter.WriteExport(task.Snapshot(), items, cmd.String("format"), cmd.String("output"))
	if err != nil {
		return err
	}

	r.logger.Info("export complete", "task_id", taskID, "items", len(items))
	r.writePlain("Items written to: %s\n", result.ItemsFile)
	r.writePlain("Metadata written to: %s\n", result.MetadataFile)
	return nil
}

// Tasks prints a page of stored tasks.
func (r *Runner) Tasks(ctx context.Context, cmd *cli.Command) error {
	db, store, err := r.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	orchestrator := r.newOrchestrator(store)

	result, err := orchestrator.List(ctx, cmd.String("status"), cmd.Int("page"), cmd.Int("page-size"))
	if err != nil {
		return fmt.Errorf("failed to list tasks: %w", err)
	}

	if len(result.Tasks) == 0 {
		return r.writePlainln("no tasks found")
	}

	return r.writeJSON(result, cmd.Bool("pretty"))
}
