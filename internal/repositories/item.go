package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/textaudit/collector/internal/models"
	"github.com/textaudit/collector/internal/shared"
)

// ItemRepository handles persistence of collected raw items.
type ItemRepository struct {
	db *sql.DB
}

// NewItemRepository creates a new ItemRepository with the given database connection
func NewItemRepository(db *sql.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// Save inserts a collected item for the given task.
func (r *ItemRepository) Save(ctx context.Context, taskID string, item models.RawItem) error {
	id := item.ID
	if id == "" {
		id = shared.GenerateID()
	}

	var metadata any
	if len(item.Metadata) > 0 {
		encoded, err := json.Marshal(item.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode item metadata: %w", err)
		}
		metadata = string(encoded)
	}

	query := `
		INSERT INTO raw_items (id, task_id, content, source, timestamp, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query, id, taskID, item.Content, item.Source, item.Timestamp, metadata, time.Now())
	if err != nil {
		return fmt.Errorf("%w: failed to insert item: %v", shared.ErrPersistence, err)
	}

	return nil
}

// ListByTask returns all persisted items for a task in insertion order.
func (r *ItemRepository) ListByTask(ctx context.Context, taskID string) ([]models.RawItem, error) {
	query := `
		SELECT id, content, source, timestamp, metadata
		FROM raw_items
		WHERE task_id = ?
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var items []models.RawItem
	for rows.Next() {
		var item models.RawItem
		var metadata sql.NullString
		if err := rows.Scan(&item.ID, &item.Content, &item.Source, &item.Timestamp, &metadata); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &item.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode item metadata: %w", err)
			}
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// CountByTask returns how many items have been persisted for a task.
func (r *ItemRepository) CountByTask(ctx context.Context, taskID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM raw_items WHERE task_id = ?", taskID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count items: %w", err)
	}
	return count, nil
}
