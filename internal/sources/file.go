package sources

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/textaudit/collector/internal/models"
	"github.com/textaudit/collector/internal/shared"
)

// defaultFileMaxItems caps a file run when the config does not set one.
const defaultFileMaxItems = 10000

// Column names treated as the text column in CSV and JSON records, in
// priority order.
var textColumnNames = []string{"content", "text", "message", "comment", "description", "body"}

// FileSource collects text from local files.
//
// Supported formats by extension: .txt (one item per line), .csv (text column
// detection or the text_column option), .json (array of strings or objects),
// .jsonl (one JSON object per line).
type FileSource struct{}

// NewFileSource creates a FileSource.
func NewFileSource() *FileSource {
	return &FileSource{}
}

func (s *FileSource) Kind() models.SourceKind { return models.SourceKindFile }

// Collect reads the file at src.Locator and emits filtered items on out.
func (s *FileSource) Collect(ctx context.Context, src models.Source, config models.CollectionConfig, out chan<- models.RawItem) error {
	maxItems := config.MaxItems
	if maxItems <= 0 {
		maxItems = defaultFileMaxItems
	}

	f, err := os.Open(src.Locator)
	if err != nil {
		return fmt.Errorf("%w: cannot open %s: %v", shared.ErrAdapterFailure, src.Locator, err)
	}
	defer f.Close()

	tag := "file:" + filepath.Base(src.Locator)

	switch strings.ToLower(filepath.Ext(src.Locator)) {
	case ".txt":
		return s.collectLines(ctx, f, tag, config, maxItems, out)
	case ".csv":
		return s.collectCSV(ctx, f, tag, config, maxItems, out)
	case ".json":
		return s.collectJSON(ctx, f, tag, config, maxItems, out)
	case ".jsonl":
		return s.collectJSONL(ctx, f, tag, config, maxItems, out)
	default:
		return fmt.Errorf("%w: unsupported file extension: %s", shared.ErrAdapterFailure, src.Locator)
	}
}

// collectLines emits one item per line of plain text.
func (s *FileSource) collectLines(ctx context.Context, r io.Reader, tag string, config models.CollectionConfig, maxItems int, out chan<- models.RawItem) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	count := 0
	for scanner.Scan() {
		if count >= maxItems {
			return nil
		}
		line := scanner.Text()
		if !keepContent(line, config.Filters) {
			continue
		}
		if err := push(ctx, out, models.NewRawItem(shared.GenerateID(), strings.TrimSpace(line), tag)); err != nil {
			return err
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%w: read failed: %v", shared.ErrAdapterFailure, err)
	}
	return nil
}

// collectCSV emits the detected text column of each record.
func (s *FileSource) collectCSV(ctx context.Context, r io.Reader, tag string, config models.CollectionConfig, maxItems int, out chan<- models.RawItem) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	if d := config.Options["delimiter"]; len(d) == 1 {
		reader.Comma = rune(d[0])
	}

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("%w: cannot read CSV header: %v", shared.ErrAdapterFailure, err)
	}

	col := detectTextColumn(header, config.Options["text_column"])

	count := 0
	for {
		if count >= maxItems {
			return nil
		}
		record, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: CSV read failed: %v", shared.ErrAdapterFailure, err)
		}
		if col >= len(record) {
			continue
		}
		content := record[col]
		if !keepContent(content, config.Filters) {
			continue
		}
		item := models.NewRawItem(shared.GenerateID(), strings.TrimSpace(content), tag)
		item.Metadata = map[string]string{"column": header[col]}
		if err := push(ctx, out, item); err != nil {
			return err
		}
		count++
	}
}

// collectJSON emits items from a JSON array of strings or objects.
func (s *FileSource) collectJSON(ctx context.Context, r io.Reader, tag string, config models.CollectionConfig, maxItems int, out chan<- models.RawItem) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("%w: read failed: %v", shared.ErrAdapterFailure, err)
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("%w: expected a JSON array: %v", shared.ErrAdapterFailure, err)
	}

	count := 0
	for _, entry := range entries {
		if count >= maxItems {
			return nil
		}
		content, ok := textFromJSON(entry, config.Options["text_column"])
		if !ok || !keepContent(content, config.Filters) {
			continue
		}
		if err := push(ctx, out, models.NewRawItem(shared.GenerateID(), strings.TrimSpace(content), tag)); err != nil {
			return err
		}
		count++
	}
	return nil
}

// collectJSONL emits items from newline-delimited JSON.
func (s *FileSource) collectJSONL(ctx context.Context, r io.Reader, tag string, config models.CollectionConfig, maxItems int, out chan<- models.RawItem) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	count := 0
	for scanner.Scan() {
		if count >= maxItems {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		content, ok := textFromJSON(json.RawMessage(line), config.Options["text_column"])
		if !ok || !keepContent(content, config.Filters) {
			continue
		}
		if err := push(ctx, out, models.NewRawItem(shared.GenerateID(), strings.TrimSpace(content), tag)); err != nil {
			return err
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%w: read failed: %v", shared.ErrAdapterFailure, err)
	}
	return nil
}

// detectTextColumn finds the index of the text column in a CSV header.
//
// An explicit text_column option wins; otherwise the first header matching a
// known text column name is used, falling back to column 0.
func detectTextColumn(header []string, explicit string) int {
	if explicit != "" {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), explicit) {
				return i
			}
		}
	}
	for _, name := range textColumnNames {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), name) {
				return i
			}
		}
	}
	return 0
}

// textFromJSON extracts the text payload from one JSON entry.
func textFromJSON(entry json.RawMessage, explicit string) (string, bool) {
	var asString string
	if err := json.Unmarshal(entry, &asString); err == nil {
		return asString, true
	}

	var asObject map[string]any
	if err := json.Unmarshal(entry, &asObject); err != nil {
		return "", false
	}

	if explicit != "" {
		if v, ok := asObject[explicit].(string); ok {
			return v, true
		}
		return "", false
	}

	for _, name := range textColumnNames {
		if v, ok := asObject[name].(string); ok {
			return v, true
		}
	}
	return "", false
}
