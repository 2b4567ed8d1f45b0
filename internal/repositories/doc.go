// Package repositories implements SQLite persistence for all domain entities.
//
// Key Implementations:
//   - [TaskRepository] : Collection task records with partial updates, so concurrent
//     progress flushes never overwrite fields they do not carry
//   - [ItemRepository] : Collected raw item persistence
//   - [Store] : Bundles both repositories behind a single value satisfying the
//     orchestrator's gateway interface, including health pings
//
// Sequence numbers provide stable, human-readable ordering (e.g., task #42) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
