// Package tasks orchestrates background collection runs with live progress tracking.
//
// # Core Operations
//
// The [Orchestrator] exposes the service's task operations:
//
//  1. [Orchestrator.Submit] : Validate a request, persist a pending task,
//     spawn its background run, and return the task id immediately
//  2. [Orchestrator.Status] : Read a task snapshot from the in-memory
//     registry, falling back to the database for past runs
//  3. [Orchestrator.List] : Paginated task listing with optional status filter
//  4. [Orchestrator.Cancel] : Cancel a running task's context
//  5. [Orchestrator.Shutdown] : Cancel every in-flight task and wait for
//     their goroutines with a deadline
//
// # Pipeline
//
// Each run wires one adapter goroutine to the orchestrator's drain loop
// through a bounded item channel, so a slow database applies backpressure to
// the adapter instead of growing memory. The adapter's final error arrives on
// a separate one-slot channel, and the item channel is closed only after the
// adapter returns; the drain loop checks the error channel again on closure
// so a failure can never race a spurious completion.
//
// Task state moves pending -> running -> completed | failed and never leaves
// a terminal state. Item persistence is best effort: a failed save is logged
// and skipped without failing the task.
package tasks
