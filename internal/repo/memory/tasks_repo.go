package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/taskhub/taskhub/internal/domain/task"
)

// TasksRepo is the in-memory mirror of the postgres tasks repo. Used in
// handler tests and for running the API without a database.
type TasksRepo struct {
	mu    sync.RWMutex
	items map[string]task.Task
}

func NewTasksRepo() *TasksRepo {
	return &TasksRepo{
		items: make(map[string]task.Task),
	}
}

func (r *TasksRepo) Create(ctx context.Context, t task.Task) (task.Task, error) {
	r.mu.Lock()
	r.items[t.ID] = t
	r.mu.Unlock()

	return t, nil
}

func (r *TasksRepo) GetByID(ctx context.Context, id string) (task.Task, error) {
	r.mu.RLock()
	t, ok := r.items[id]
	r.mu.RUnlock()

	if !ok {
		return task.Task{}, task.ErrNotFound
	}
	return t, nil
}

func (r *TasksRepo) List(ctx context.Context, requesterID string, filter task.ListTasksFilter) ([]task.Task, error) {
	r.mu.RLock()

	out := make([]task.Task, 0, len(r.items))

	for _, t := range r.items {
		if t.CreatedBy != requesterID && t.AssignedTo != requesterID {
			continue
		}
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		if filter.Priority != nil && t.Priority != *filter.Priority {
			continue
		}
		out = append(out, t)
	}
	r.mu.RUnlock()

	sortTasks(out, filter.SortBy, filter.Order)

	return out, nil
}

func (r *TasksRepo) Update(ctx context.Context, t task.Task) (task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[t.ID]; !ok {
		return task.Task{}, task.ErrNotFound
	}

	r.items[t.ID] = t
	return t, nil
}

func (r *TasksRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return task.ErrNotFound
	}

	delete(r.items, id)
	return nil
}

var priorityRank = map[task.Priority]int{
	task.PriorityLow:    1,
	task.PriorityMedium: 2,
	task.PriorityHigh:   3,
}

func sortTasks(items []task.Task, sortBy, order string) {
	desc := strings.EqualFold(order, "desc")

	less := func(i, j int) bool {
		a, b := items[i], items[j]

		switch sortBy {
		case "dueDate":
			// nil due dates sort last regardless of direction
			if a.DueDate == nil || b.DueDate == nil {
				return b.DueDate == nil && a.DueDate != nil
			}
			if desc {
				return a.DueDate.After(*b.DueDate)
			}
			return a.DueDate.Before(*b.DueDate)
		case "priority":
			if desc {
				return priorityRank[a.Priority] > priorityRank[b.Priority]
			}
			return priorityRank[a.Priority] < priorityRank[b.Priority]
		case "title":
			if desc {
				return a.Title > b.Title
			}
			return a.Title < b.Title
		default:
			if desc {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}

	sort.SliceStable(items, less)
}
