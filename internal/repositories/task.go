package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/textaudit/collector/internal/models"
	"github.com/textaudit/collector/internal/shared"
)

// TaskRepository handles collection task persistence.
//
// Updates are always partial: only the fields carried by a [models.TaskUpdate]
// reach the UPDATE statement, so a progress flush can never null out the stored
// config or timestamps it did not touch.
type TaskRepository struct {
	db *sql.DB
}

// NewTaskRepository creates a new TaskRepository with the given database connection
func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create inserts a new task into the database with generated ID and sequence
func (r *TaskRepository) Create(ctx context.Context, task *models.CollectionTask) error {
	sequence, err := NextSequence(r.db, "tasks")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}
	task.SetSequence(sequence)

	if task.ID() == "" {
		task.SetID(shared.GenerateID())
	}

	if err := task.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	configJSON, err := json.Marshal(task.Config())
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	query := `
		INSERT INTO tasks (
			id, sequence, source_kind, source_locator, config, status,
			collected_count, total_count, progress, error_message,
			started_at, ended_at, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var errorMessage any = task.ErrorMessage()
	if errorMessage == "" {
		errorMessage = nil
	}

	_, err = r.db.ExecContext(ctx, query,
		task.ID(),
		sequence,
		string(task.SourceKind()),
		task.SourceLocator(),
		string(configJSON),
		string(task.Status()),
		task.CollectedCount(),
		task.TotalCount(),
		task.ProgressPercent(),
		errorMessage,
		task.StartedAt(),
		task.EndedAt(),
		task.CreatedAt(),
		task.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("%w: failed to insert task: %v", shared.ErrPersistence, err)
	}

	return nil
}

// Get retrieves a task by ID
func (r *TaskRepository) Get(ctx context.Context, id string) (*models.CollectionTask, error) {
	query := `
		SELECT
			id, sequence, source_kind, source_locator, config, status,
			collected_count, total_count, progress, error_message,
			started_at, ended_at, created_at, updated_at
		FROM tasks
		WHERE id = ?
	`

	return r.scanTask(r.db.QueryRowContext(ctx, query, id))
}

// Update applies a partial update to an existing task.
//
// Only fields present on the update contribute SET clauses; a nil Config
// leaves the stored config untouched.
func (r *TaskRepository) Update(ctx context.Context, id string, update models.TaskUpdate) error {
	if update.Empty() {
		return nil
	}

	sets := []string{"updated_at = ?"}
	args := []any{time.Now()}

	if update.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*update.Status))
	}
	if update.CollectedCount != nil {
		sets = append(sets, "collected_count = ?")
		args = append(args, *update.CollectedCount)
	}
	if update.TotalCount != nil {
		sets = append(sets, "total_count = ?")
		args = append(args, *update.TotalCount)
	}
	if update.ProgressPercent != nil {
		sets = append(sets, "progress = ?")
		args = append(args, *update.ProgressPercent)
	}
	if update.ErrorMessage != nil {
		sets = append(sets, "error_message = ?")
		args = append(args, *update.ErrorMessage)
	}
	if update.StartedAt != nil {
		sets = append(sets, "started_at = ?")
		args = append(args, *update.StartedAt)
	}
	if update.EndedAt != nil {
		sets = append(sets, "ended_at = ?")
		args = append(args, *update.EndedAt)
	}
	if update.Config != nil {
		configJSON, err := json.Marshal(*update.Config)
		if err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		sets = append(sets, "config = ?")
		args = append(args, string(configJSON))
	}

	query := fmt.Sprintf("UPDATE tasks SET %s WHERE id = ?", strings.Join(sets, ", "))
	args = append(args, id)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: failed to update task: %v", shared.ErrPersistence, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrTaskNotFound, id)
	}

	return nil
}

// List retrieves tasks ordered by sequence descending, optionally filtered by status.
func (r *TaskRepository) List(ctx context.Context, status string, limit, offset int) ([]*models.CollectionTask, error) {
	query := `
		SELECT
			id, sequence, source_kind, source_locator, config, status,
			collected_count, total_count, progress, error_message,
			started_at, ended_at, created_at, updated_at
		FROM tasks
	`

	args := []any{}
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}

	query += " ORDER BY sequence DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.CollectionTask
	for rows.Next() {
		task, err := r.scanTaskRow(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return tasks, nil
}

// Count returns the number of tasks, optionally filtered by status.
func (r *TaskRepository) Count(ctx context.Context, status string) (int, error) {
	query := "SELECT COUNT(*) FROM tasks"
	args := []any{}
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}
	return count, nil
}

type taskScanner interface {
	Scan(dest ...any) error
}

// scanTask scans a single [sql.Row] into a [models.CollectionTask]
func (r *TaskRepository) scanTask(row *sql.Row) (*models.CollectionTask, error) {
	task, err := scanTaskColumns(row)
	if err == sql.ErrNoRows {
		return nil, shared.ErrTaskNotFound
	}
	return task, err
}

// scanTaskRow scans a row from [sql.Rows] into a [models.CollectionTask]
func (r *TaskRepository) scanTaskRow(rows *sql.Rows) (*models.CollectionTask, error) {
	return scanTaskColumns(rows)
}

func scanTaskColumns(s taskScanner) (*models.CollectionTask, error) {
	var (
		id             string
		sequence       int
		sourceKind     string
		sourceLocator  string
		configJSON     string
		status         string
		collectedCount int
		totalCount     int
		progress       int
		errorMessage   sql.NullString
		startedAt      sql.NullTime
		endedAt        sql.NullTime
		createdAt      time.Time
		updatedAt      time.Time
	)

	err := s.Scan(
		&id, &sequence, &sourceKind, &sourceLocator, &configJSON, &status,
		&collectedCount, &totalCount, &progress, &errorMessage,
		&startedAt, &endedAt, &createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan task: %w", err)
	}

	var config models.CollectionConfig
	if err := json.Unmarshal([]byte(configJSON), &config); err != nil {
		return nil, fmt.Errorf("failed to decode task config: %w", err)
	}

	task := models.NewCollectionTask(sequence, models.SourceKind(sourceKind), sourceLocator, config)
	task.SetID(id)
	task.SetStatus(models.Status(status))
	task.SetCollectedCount(collectedCount)
	task.SetTotalCount(totalCount)
	task.SetProgressPercent(progress)
	task.SetCreatedAt(createdAt)
	task.SetUpdatedAt(updatedAt)

	if errorMessage.Valid {
		task.SetErrorMessage(errorMessage.String)
	}
	if startedAt.Valid {
		task.SetStartedAt(&startedAt.Time)
	}
	if endedAt.Valid {
		task.SetEndedAt(&endedAt.Time)
	}

	return task, nil
}
