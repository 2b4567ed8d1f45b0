package models

import (
	"testing"
	"time"
)

func TestParseSourceKind(t *testing.T) {
	tc := []struct {
		name    string
		input   string
		want    SourceKind
		wantErr bool
	}{
		{name: "api kind", input: "api", want: SourceKindAPI},
		{name: "web kind", input: "web", want: SourceKindWeb},
		{name: "file kind", input: "file", want: SourceKindFile},
		{name: "unknown kind", input: "ftp", wantErr: true},
		{name: "empty kind", input: "", wantErr: true},
		{name: "case sensitive", input: "API", wantErr: true},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSourceKind(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseSourceKind(%q) expected error, got %v", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSourceKind(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseSourceKind(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestStatusTransitions(t *testing.T) {
	tc := []struct {
		from  Status
		to    Status
		legal bool
	}{
		{StatusPending, StatusRunning, true},
		{StatusRunning, StatusCompleted, true},
		{StatusRunning, StatusFailed, true},
		{StatusPending, StatusCompleted, false},
		{StatusPending, StatusFailed, false},
		{StatusCompleted, StatusRunning, false},
		{StatusCompleted, StatusFailed, false},
		{StatusFailed, StatusRunning, false},
		{StatusFailed, StatusCompleted, false},
		{StatusRunning, StatusPending, false},
	}

	for _, tt := range tc {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			if got := tt.from.CanTransition(tt.to); got != tt.legal {
				t.Errorf("CanTransition(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.legal)
			}
		})
	}

	t.Run("terminal states", func(t *testing.T) {
		if StatusPending.Terminal() || StatusRunning.Terminal() {
			t.Error("pending and running must not be terminal")
		}
		if !StatusCompleted.Terminal() || !StatusFailed.Terminal() {
			t.Error("completed and failed must be terminal")
		}
	})
}

func TestCollectionTask(t *testing.T) {
	t.Run("new task starts pending", func(t *testing.T) {
		task := NewCollectionTask(1, SourceKindFile, "/tmp/data.txt", CollectionConfig{MaxItems: 50})

		if task.Status() != StatusPending {
			t.Errorf("expected pending status, got %s", task.Status())
		}
		if task.TotalCount() != 50 {
			t.Errorf("expected total count from max items, got %d", task.TotalCount())
		}
		if task.CollectedCount() != 0 {
			t.Errorf("expected zero collected count, got %d", task.CollectedCount())
		}
		if task.StartedAt() != nil || task.EndedAt() != nil {
			t.Error("expected nil start and end times on a fresh task")
		}
	})

	t.Run("validate accepts a well-formed task", func(t *testing.T) {
		task := NewCollectionTask(1, SourceKindAPI, "https://example.com/api", CollectionConfig{})
		if err := task.Validate(); err != nil {
			t.Errorf("expected valid task, got %v", err)
		}
	})

	t.Run("validate rejects empty locator", func(t *testing.T) {
		task := NewCollectionTask(1, SourceKindWeb, "", CollectionConfig{})
		if err := task.Validate(); err == nil {
			t.Error("expected error for empty locator")
		}
	})

	t.Run("validate rejects unknown kind", func(t *testing.T) {
		task := NewCollectionTask(1, SourceKind("ftp"), "ftp://host", CollectionConfig{})
		if err := task.Validate(); err == nil {
			t.Error("expected error for unknown source kind")
		}
	})

	t.Run("validate rejects negative config values", func(t *testing.T) {
		task := NewCollectionTask(1, SourceKindFile, "/tmp/x", CollectionConfig{MaxItems: -1})
		if err := task.Validate(); err == nil {
			t.Error("expected error for negative max items")
		}
	})

	t.Run("snapshot formats timestamps", func(t *testing.T) {
		task := NewCollectionTask(1, SourceKindFile, "/tmp/data.txt", CollectionConfig{MaxItems: 10})
		task.SetID("task-1")
		started := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		task.SetStartedAt(&started)
		task.SetStatus(StatusRunning)
		task.SetCollectedCount(4)
		task.SetProgressPercent(40)

		snap := task.Snapshot()
		if snap.TaskID != "task-1" {
			t.Errorf("expected task id in snapshot, got %s", snap.TaskID)
		}
		if snap.StartTime != "2025-06-01T12:00:00Z" {
			t.Errorf("expected RFC3339 start time, got %s", snap.StartTime)
		}
		if snap.EndTime != "" {
			t.Errorf("expected empty end time, got %s", snap.EndTime)
		}
		if snap.Progress != 40 || snap.CollectedCount != 4 || snap.TotalCount != 10 {
			t.Errorf("unexpected counters in snapshot: %+v", snap)
		}
	})
}

func TestTaskUpdateEmpty(t *testing.T) {
	if !(TaskUpdate{}).Empty() {
		t.Error("zero update should be empty")
	}

	status := StatusRunning
	if (TaskUpdate{Status: &status}).Empty() {
		t.Error("update with a status should not be empty")
	}
}
