package formatter

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/textaudit/collector/internal/models"
	th "github.com/textaudit/collector/internal/testing"
)

func sampleItems() []models.RawItem {
	return []models.RawItem{
		{
			ID:        "item1",
			Content:   "First collected entry",
			Source:    "file:data.csv",
			Timestamp: 1700000000000,
		},
		{
			ID:        "item2",
			Content:   "Second collected entry",
			Source:    "file:data.csv",
			Timestamp: 1700000001000,
			Metadata:  map[string]string{"column": "content"},
		},
	}
}

func sampleTask() models.TaskSnapshot {
	return models.TaskSnapshot{
		TaskID:         "task123",
		Status:         models.StatusCompleted,
		Progress:       100,
		CollectedCount: 2,
		TotalCount:     2,
	}
}

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(sampleItems())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		output := string(data)

		if !strings.Contains(output, "ID,Content,Source,Timestamp") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "item1") {
			t.Errorf("CSV missing item1 ID")
		}
		if !strings.Contains(output, "First collected entry") {
			t.Errorf("CSV missing item1 content")
		}
		if !strings.Contains(output, "1700000001000") {
			t.Errorf("CSV missing item2 timestamp")
		}
	})

	t.Run("ExportToJSONL", func(t *testing.T) {
		data, err := ExportToJSONL(sampleItems())
		if err != nil {
			t.Fatalf("ExportToJSONL failed: %v", err)
		}

		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		if len(lines) != 2 {
			t.Fatalf("expected 2 lines, got %d", len(lines))
		}

		var decoded models.RawItem
		if err := json.Unmarshal([]byte(lines[1]), &decoded); err != nil {
			t.Fatalf("line is not valid JSON: %v", err)
		}
		if decoded.ID != "item2" || decoded.Metadata["column"] != "content" {
			t.Errorf("unexpected decoded item: %+v", decoded)
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(sampleTask(), sampleItems())
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "Task: task123") {
			t.Errorf("text missing task header, got: %s", output)
		}
		if !strings.Contains(output, "1. [file:data.csv] First collected entry") {
			t.Errorf("text missing numbered entry, got: %s", output)
		}
	})

	t.Run("Timestamp", func(t *testing.T) {
		if Timestamp(0) != "" {
			t.Error("expected empty string for zero timestamp")
		}
		if got := Timestamp(1700000000000); !strings.HasPrefix(got, "2023-11-14T") {
			t.Errorf("unexpected formatted timestamp: %s", got)
		}
	})
}

func TestWriteExport(t *testing.T) {
	t.Run("writes items and metadata files", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "task123")

		result, err := WriteExport(sampleTask(), sampleItems(), "csv", base)
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}

		th.AssertFileExists(t, result.ItemsFile)
		th.AssertFileExists(t, result.MetadataFile)

		if !strings.HasSuffix(result.ItemsFile, "_items.csv") {
			t.Errorf("unexpected items filename: %s", result.ItemsFile)
		}

		metadata := th.MustReadFile(t, result.MetadataFile)
		if !strings.Contains(metadata, `"task_id": "task123"`) {
			t.Errorf("metadata missing task id, got: %s", metadata)
		}
	})

	t.Run("defaults to JSON format", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "task123")

		result, err := WriteExport(sampleTask(), sampleItems(), "", base)
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}

		content := th.MustReadFile(t, result.ItemsFile)
		var decoded []models.RawItem
		if err := json.Unmarshal([]byte(content), &decoded); err != nil {
			t.Fatalf("items file is not valid JSON: %v", err)
		}
		if len(decoded) != 2 {
			t.Errorf("expected 2 items, got %d", len(decoded))
		}
	})

	t.Run("rejects unknown format", func(t *testing.T) {
		_, err := WriteExport(sampleTask(), sampleItems(), "xml", filepath.Join(t.TempDir(), "x"))
		if err == nil {
			t.Fatal("expected error for unsupported format")
		}
	})
}
