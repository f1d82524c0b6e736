package task

import (
	"time"

	"github.com/google/uuid"
)

// NewFromCreateRequest builds a Task owned by creatorID, applying the
// enum defaults. An unset assignee falls back to the creator.
func NewFromCreateRequest(req CreateTaskRequest, creatorID string) Task {
	now := time.Now().UTC()

	status := req.Status
	if status == "" {
		status = StatusTodo
	}

	priority := req.Priority
	if priority == "" {
		priority = PriorityMedium
	}

	assignee := req.AssignedTo
	if assignee == "" {
		assignee = creatorID
	}

	return Task{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		Status:      status,
		Priority:    priority,
		CreatedBy:   creatorID,
		AssignedTo:  assignee,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// ApplyUpdate returns a copy of t with the non-nil patch fields applied.
func ApplyUpdate(t Task, req UpdateTaskRequest) Task {
	if req.Title != nil {
		t.Title = *req.Title
	}
	if req.Description != nil {
		t.Description = *req.Description
	}
	if req.DueDate != nil {
		t.DueDate = req.DueDate
	}
	if req.Status != nil {
		t.Status = *req.Status
	}
	if req.Priority != nil {
		t.Priority = *req.Priority
	}
	if req.AssignedTo != nil {
		t.AssignedTo = *req.AssignedTo
	}
	t.UpdatedAt = time.Now().UTC()
	return t
}
