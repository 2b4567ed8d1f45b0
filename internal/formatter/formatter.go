// package formatter exports collected items to various formats (CSV, JSON, JSONL, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/textaudit/collector/internal/models"
	"github.com/textaudit/collector/internal/shared"
)

// ExportToCSV converts collected items to CSV format with columns: ID, Content, Source, Timestamp
func ExportToCSV(items []models.RawItem) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Content", "Source", "Timestamp"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, item := range items {
		record := []string{
			item.ID,
			item.Content,
			item.Source,
			strconv.FormatInt(item.Timestamp, 10),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToJSONL converts collected items to JSON Lines, one item per line.
func ExportToJSONL(items []models.RawItem) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)

	for _, item := range items {
		if err := encoder.Encode(item); err != nil {
			return nil, fmt.Errorf("failed to encode item: %w", err)
		}
	}

	return buf.Bytes(), nil
}

// ExportToText converts collected items to plain text, one numbered entry per item.
func ExportToText(task models.TaskSnapshot, items []models.RawItem) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Task: %s\n", task.TaskID))
	buf.WriteString(fmt.Sprintf("Status: %s\n", task.Status))
	buf.WriteString(fmt.Sprintf("Items: %d\n\n", len(items)))

	for i, item := range items {
		buf.WriteString(fmt.Sprintf("%d. [%s] %s\n", i+1, item.Source, item.Content))
	}

	return buf.Bytes(), nil
}

// ToMetadataJSON generates a JSON representation of a task snapshot (without items)
func ToMetadataJSON(task models.TaskSnapshot) ([]byte, error) {
	return shared.MarshalJSON(task, true)
}

// ExportResult contains the paths of files created by WriteExport.
type ExportResult struct {
	ItemsFile    string
	MetadataFile string
}

// WriteExport exports a task's items in the requested format with an
// accompanying metadata JSON file.
//
// Defaults to the task ID as the base filename; the format selects the
// extension ({base}_items.csv, .jsonl, .txt or .json).
func WriteExport(task models.TaskSnapshot, items []models.RawItem, format, baseFilepath string) (*ExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = task.TaskID
	}

	var data []byte
	var ext string
	var err error

	switch format {
	case "csv":
		data, err = ExportToCSV(items)
		ext = "csv"
	case "jsonl":
		data, err = ExportToJSONL(items)
		ext = "jsonl"
	case "txt":
		data, err = ExportToText(task, items)
		ext = "txt"
	case "", "json":
		data, err = shared.MarshalJSON(items, true)
		ext = "json"
	default:
		return nil, fmt.Errorf("%w: unsupported export format %q", shared.ErrInvalidFlag, format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to generate %s export: %w", ext, err)
	}

	itemsFile := fmt.Sprintf("%s_items.%s", baseFilepath, ext)
	if err := os.WriteFile(itemsFile, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write items file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(task)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &ExportResult{
		ItemsFile:    itemsFile,
		MetadataFile: metadataFile,
	}, nil
}

// Timestamp formats an item timestamp (unix milliseconds) for display.
func Timestamp(millis int64) string {
	if millis == 0 {
		return ""
	}
	return time.UnixMilli(millis).UTC().Format(time.RFC3339)
}
