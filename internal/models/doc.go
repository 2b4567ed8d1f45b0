// Package models defines domain entities and persistence interfaces for the text collection service.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): Lightweight structs moving through the pipeline and API
//   - [RawItem] : A single unit of collected text with its source tag and metadata
//   - [Source] : A collection target (kind + locator) as submitted by a client
//   - [TaskSnapshot] : Read-side view of a task for status responses
//   - [TaskUpdate] : Partial update applied to a stored task (only set fields change)
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [CollectionTask] : A collection run tracking status, counters and timestamps
//
// All persistent entities implement the Model interface providing ID generation, timestamps and validation.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
