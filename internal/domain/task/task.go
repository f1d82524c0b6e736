package task

import (
	"errors"
	"time"
)

type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

var ErrNotFound = errors.New("task not found")

type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Status      Status     `json:"status"`
	// PrevStatus remembers what the task was before it was completed,
	// so toggling twice lands back on the original status.
	PrevStatus Status    `json:"-"`
	Priority   Priority  `json:"priority"`
	CreatedBy  string    `json:"createdBy"`
	AssignedTo string    `json:"assignedTo"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Toggled flips completion. Completing stashes the current status in
// PrevStatus; un-completing restores it (todo when nothing was stashed).
func (t Task) Toggled() (status Status, prev Status) {
	if t.Status == StatusCompleted {
		restored := t.PrevStatus
		if restored == "" || restored == StatusCompleted {
			restored = StatusTodo
		}
		return restored, ""
	}
	return StatusCompleted, t.Status
}

type CreateTaskRequest struct {
	Title       string     `json:"title" binding:"required,max=100"`
	Description string     `json:"description" binding:"omitempty,max=1000"`
	DueDate     *time.Time `json:"dueDate" binding:"omitempty"`
	Status      Status     `json:"status" binding:"omitempty,oneof=todo in_progress completed"`
	Priority    Priority   `json:"priority" binding:"omitempty,oneof=low medium high"`
	AssignedTo  string     `json:"assignedTo" binding:"omitempty,uuid"`
}

// UpdateTaskRequest is a patch: nil fields are left untouched.
type UpdateTaskRequest struct {
	Title       *string    `json:"title" binding:"omitempty,min=1,max=100"`
	Description *string    `json:"description" binding:"omitempty,max=1000"`
	DueDate     *time.Time `json:"dueDate" binding:"omitempty"`
	Status      *Status    `json:"status" binding:"omitempty,oneof=todo in_progress completed"`
	Priority    *Priority  `json:"priority" binding:"omitempty,oneof=low medium high"`
	AssignedTo  *string    `json:"assignedTo" binding:"omitempty,uuid"`
}

// with pointers if optional, it will be nil
type ListTasksFilter struct {
	Status   *Status
	Priority *Priority
	SortBy   string // dueDate | priority | createdAt | title
	Order    string // asc | desc
}

var sortColumns = map[string]struct{}{
	"dueDate":   {},
	"priority":  {},
	"createdAt": {},
	"title":     {},
}

func ValidSortBy(s string) bool {
	_, ok := sortColumns[s]
	return ok
}
