package repositories

import (
	"context"
	"database/sql"

	"github.com/textaudit/collector/internal/models"
)

// Store bundles the task and item repositories behind a single gateway value.
//
// The orchestrator consumes it through its own interface, which keeps the
// pipeline testable with in-memory doubles.
type Store struct {
	Tasks *TaskRepository
	Items *ItemRepository

	db *sql.DB
}

// NewStore creates a Store over an open database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{
		Tasks: NewTaskRepository(db),
		Items: NewItemRepository(db),
		db:    db,
	}
}

func (s *Store) CreateTask(ctx context.Context, task *models.CollectionTask) error {
	return s.Tasks.Create(ctx, task)
}

func (s *Store) GetTask(ctx context.Context, id string) (*models.CollectionTask, error) {
	return s.Tasks.Get(ctx, id)
}

func (s *Store) UpdateTask(ctx context.Context, id string, update models.TaskUpdate) error {
	return s.Tasks.Update(ctx, id, update)
}

func (s *Store) ListTasks(ctx context.Context, status string, limit, offset int) ([]*models.CollectionTask, error) {
	return s.Tasks.List(ctx, status, limit, offset)
}

func (s *Store) CountTasks(ctx context.Context, status string) (int, error) {
	return s.Tasks.Count(ctx, status)
}

func (s *Store) SaveItem(ctx context.Context, taskID string, item models.RawItem) error {
	return s.Items.Save(ctx, taskID, item)
}

func (s *Store) ListItems(ctx context.Context, taskID string) ([]models.RawItem, error) {
	return s.Items.ListByTask(ctx, taskID)
}

// Ping reports whether the underlying database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
