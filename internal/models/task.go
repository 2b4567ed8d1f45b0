package models

import (
	"fmt"
	"time"
)

// SourceKind identifies which adapter collects for a task.
type SourceKind string

const (
	SourceKindAPI  SourceKind = "api"
	SourceKindWeb  SourceKind = "web"
	SourceKindFile SourceKind = "file"
)

// ParseSourceKind converts a raw string into a [SourceKind].
func ParseSourceKind(s string) (SourceKind, error) {
	switch SourceKind(s) {
	case SourceKindAPI, SourceKindWeb, SourceKindFile:
		return SourceKind(s), nil
	default:
		return "", fmt.Errorf("unknown source kind: %q", s)
	}
}

// Status represents the lifecycle state of a collection task.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether a task in this status can never change again.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether moving from s to next is a legal lifecycle step.
// Legal transitions: pending -> running, running -> completed, running -> failed.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusRunning
	case StatusRunning:
		return next == StatusCompleted || next == StatusFailed
	default:
		return false
	}
}

// Source describes a collection target as submitted by a client.
type Source struct {
	Kind    SourceKind `json:"kind"`
	Locator string     `json:"locator"`
}

// CollectionConfig carries tunable parameters for a single collection run.
//
// A zero value for any numeric field means "use the adapter's default".
// Options holds per-kind settings (selectors, text_column, delimiter,
// follow_links, client_id, token_url, ...).
type CollectionConfig struct {
	MaxItems          int               `json:"max_items,omitempty"`
	TimeoutSeconds    int               `json:"timeout_seconds,omitempty"`
	ConcurrentWorkers int               `json:"concurrent_workers,omitempty"`
	RateLimit         float64           `json:"rate_limit,omitempty"`
	Filters           []string          `json:"filters,omitempty"`
	Options           map[string]string `json:"options,omitempty"`
}

// Validate checks the config for values no adapter can honour.
func (c CollectionConfig) Validate() error {
	if c.MaxItems < 0 {
		return fmt.Errorf("max_items cannot be negative: %d", c.MaxItems)
	}
	if c.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout_seconds cannot be negative: %d", c.TimeoutSeconds)
	}
	if c.ConcurrentWorkers < 0 {
		return fmt.Errorf("concurrent_workers cannot be negative: %d", c.ConcurrentWorkers)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate_limit cannot be negative: %g", c.RateLimit)
	}
	return nil
}

// CollectionTask represents a single collection run with encapsulated state.
type CollectionTask struct {
	id              string
	sequence        int
	sourceKind      SourceKind
	sourceLocator   string
	config          CollectionConfig
	status          Status
	collectedCount  int
	totalCount      int
	progressPercent int
	errorMessage    string
	startedAt       *time.Time
	endedAt         *time.Time
	createdAt       time.Time
	updatedAt       time.Time
}

// NewCollectionTask creates a pending task for the given source.
//
// TotalCount starts at the configured MaxItems; zero means the expected
// total is unknown and progress stays at zero until completion.
func NewCollectionTask(sequence int, kind SourceKind, locator string, config CollectionConfig) *CollectionTask {
	now := time.Now()
	return &CollectionTask{
		sequence:      sequence,
		sourceKind:    kind,
		sourceLocator: locator,
		config:        config,
		status:        StatusPending,
		totalCount:    config.MaxItems,
		createdAt:     now,
		updatedAt:     now,
	}
}

func (t *CollectionTask) ID() string               { return t.id }
func (t *CollectionTask) Sequence() int            { return t.sequence }
func (t *CollectionTask) SourceKind() SourceKind   { return t.sourceKind }
func (t *CollectionTask) SourceLocator() string    { return t.sourceLocator }
func (t *CollectionTask) Config() CollectionConfig { return t.config }
func (t *CollectionTask) Status() Status           { return t.status }
func (t *CollectionTask) CollectedCount() int      { return t.collectedCount }
func (t *CollectionTask) TotalCount() int          { return t.totalCount }
func (t *CollectionTask) ProgressPercent() int     { return t.progressPercent }
func (t *CollectionTask) ErrorMessage() string     { return t.errorMessage }
func (t *CollectionTask) StartedAt() *time.Time    { return t.startedAt }
func (t *CollectionTask) EndedAt() *time.Time      { return t.endedAt }
func (t *CollectionTask) CreatedAt() time.Time     { return t.createdAt }
func (t *CollectionTask) UpdatedAt() time.Time     { return t.updatedAt }

func (t *CollectionTask) SetID(id string)                   { t.id = id }
func (t *CollectionTask) SetSequence(sequence int)          { t.sequence = sequence }
func (t *CollectionTask) SetConfig(c CollectionConfig)      { t.config = c }
func (t *CollectionTask) SetStatus(s Status)                { t.status = s }
func (t *CollectionTask) SetCollectedCount(n int)           { t.collectedCount = n }
func (t *CollectionTask) SetTotalCount(n int)               { t.totalCount = n }
func (t *CollectionTask) SetProgressPercent(n int)          { t.progressPercent = n }
func (t *CollectionTask) SetErrorMessage(msg string)        { t.errorMessage = msg }
func (t *CollectionTask) SetStartedAt(ts *time.Time)        { t.startedAt = ts }
func (t *CollectionTask) SetEndedAt(ts *time.Time)          { t.endedAt = ts }
func (t *CollectionTask) SetCreatedAt(ts time.Time)         { t.createdAt = ts }
func (t *CollectionTask) SetUpdatedAt(ts time.Time)         { t.updatedAt = ts }

// Validate checks if the task's data is valid.
func (t *CollectionTask) Validate() error {
	if _, err := ParseSourceKind(string(t.sourceKind)); err != nil {
		return err
	}
	if t.sourceLocator == "" {
		return fmt.Errorf("source locator is required")
	}
	switch t.status {
	case StatusPending, StatusRunning, StatusCompleted, StatusFailed:
	default:
		return fmt.Errorf("invalid status: %q", t.status)
	}
	if t.collectedCount < 0 || t.totalCount < 0 {
		return fmt.Errorf("counts cannot be negative")
	}
	if t.progressPercent < 0 || t.progressPercent > 100 {
		return fmt.Errorf("progress must be between 0 and 100: %d", t.progressPercent)
	}
	return t.config.Validate()
}

// Snapshot converts the stored task into its read-side view.
func (t *CollectionTask) Snapshot() TaskSnapshot {
	snap := TaskSnapshot{
		TaskID:         t.id,
		Status:         t.status,
		Progress:       t.progressPercent,
		CollectedCount: t.collectedCount,
		TotalCount:     t.totalCount,
		ErrorMessage:   t.errorMessage,
	}
	if t.startedAt != nil {
		snap.StartTime = t.startedAt.Format(time.RFC3339)
	}
	if t.endedAt != nil {
		snap.EndTime = t.endedAt.Format(time.RFC3339)
	}
	return snap
}

// TaskUpdate is a partial update applied to a stored task.
//
// Nil fields are left untouched, so an update that carries only counters can
// never clobber the stored config or timestamps.
type TaskUpdate struct {
	Status          *Status
	CollectedCount  *int
	TotalCount      *int
	ProgressPercent *int
	ErrorMessage    *string
	StartedAt       *time.Time
	EndedAt         *time.Time
	Config          *CollectionConfig
}

// Empty reports whether the update would change nothing.
func (u TaskUpdate) Empty() bool {
	return u.Status == nil && u.CollectedCount == nil && u.TotalCount == nil &&
		u.ProgressPercent == nil && u.ErrorMessage == nil &&
		u.StartedAt == nil && u.EndedAt == nil && u.Config == nil
}

// TaskSnapshot is the read-side view of a task returned by status queries.
type TaskSnapshot struct {
	TaskID         string `json:"task_id"`
	Status         Status `json:"status"`
	Progress       int    `json:"progress"`
	CollectedCount int    `json:"collected_count"`
	TotalCount     int    `json:"total_count"`
	StartTime      string `json:"start_time,omitempty"`
	EndTime        string `json:"end_time,omitempty"`
	ErrorMessage   string `json:"error_message,omitempty"`
}
