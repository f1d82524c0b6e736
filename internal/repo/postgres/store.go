package postgres

import (
	"context"

	"github.com/taskhub/taskhub/internal/domain/job"
	"github.com/taskhub/taskhub/internal/domain/task"
)

// TaskStore combines the tasks and jobs repos for the one write that
// must be atomic: creating a task together with its armed reminder.
type TaskStore struct {
	Tasks *TasksRepo
	Jobs  *JobsRepo
}

func NewTaskStore(tasks *TasksRepo, jobs *JobsRepo) *TaskStore {
	return &TaskStore{Tasks: tasks, Jobs: jobs}
}

// CreateWithReminder inserts the task and, when reminder is non-nil,
// its reminder job in one transaction. Either both land or neither.
func (s *TaskStore) CreateWithReminder(ctx context.Context, t task.Task, reminder *job.CreateRequest) (task.Task, error) {
	tx, err := s.Tasks.BeginTx(ctx)
	if err != nil {
		return task.Task{}, err
	}

	defer func() { _ = tx.Rollback(ctx) }()

	created, err := s.Tasks.CreateTx(ctx, tx, t)
	if err != nil {
		return task.Task{}, err
	}

	if reminder != nil {
		if _, err := s.Jobs.CreateTx(ctx, tx, *reminder); err != nil {
			return task.Task{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return task.Task{}, err
	}

	return created, nil
}

func (s *TaskStore) GetByID(ctx context.Context, id string) (task.Task, error) {
	return s.Tasks.GetByID(ctx, id)
}

func (s *TaskStore) List(ctx context.Context, requesterID string, filter task.ListTasksFilter) ([]task.Task, error) {
	return s.Tasks.List(ctx, requesterID, filter)
}

func (s *TaskStore) Update(ctx context.Context, t task.Task) (task.Task, error) {
	return s.Tasks.Update(ctx, t)
}

func (s *TaskStore) Delete(ctx context.Context, id string) error {
	return s.Tasks.Delete(ctx, id)
}
