package task

import (
	"testing"
	"time"
)

func TestToggledIsAnInvolution(t *testing.T) {
	for _, start := range []Status{StatusTodo, StatusInProgress} {
		t.Run(string(start), func(t *testing.T) {
			tk := Task{Status: start}

			status, prev := tk.Toggled()
			if status != StatusCompleted {
				t.Fatalf("first toggle: status = %q, want completed", status)
			}
			if prev != start {
				t.Fatalf("first toggle: prev = %q, want %q", prev, start)
			}

			tk.Status, tk.PrevStatus = status, prev

			status, prev = tk.Toggled()
			if status != start {
				t.Fatalf("second toggle: status = %q, want %q", status, start)
			}
			if prev != "" {
				t.Fatalf("second toggle: prev = %q, want empty", prev)
			}
		})
	}
}

func TestToggledWithoutHistoryFallsBackToTodo(t *testing.T) {
	tk := Task{Status: StatusCompleted}

	status, _ := tk.Toggled()
	if status != StatusTodo {
		t.Fatalf("status = %q, want todo", status)
	}
}

func TestNewFromCreateRequestDefaults(t *testing.T) {
	tk := NewFromCreateRequest(CreateTaskRequest{Title: "write tests"}, "creator-1")

	if tk.ID == "" {
		t.Error("expected a generated id")
	}
	if tk.Status != StatusTodo {
		t.Errorf("Status = %q, want todo", tk.Status)
	}
	if tk.Priority != PriorityMedium {
		t.Errorf("Priority = %q, want medium", tk.Priority)
	}
	if tk.CreatedBy != "creator-1" {
		t.Errorf("CreatedBy = %q, want creator-1", tk.CreatedBy)
	}
	if tk.AssignedTo != "creator-1" {
		t.Errorf("AssignedTo = %q, want creator (self-assignment default)", tk.AssignedTo)
	}
}

func TestNewFromCreateRequestKeepsExplicitValues(t *testing.T) {
	due := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	tk := NewFromCreateRequest(CreateTaskRequest{
		Title:      "review",
		Status:     StatusInProgress,
		Priority:   PriorityHigh,
		AssignedTo: "assignee-1",
		DueDate:    &due,
	}, "creator-1")

	if tk.Status != StatusInProgress {
		t.Errorf("Status = %q, want in_progress", tk.Status)
	}
	if tk.Priority != PriorityHigh {
		t.Errorf("Priority = %q, want high", tk.Priority)
	}
	if tk.AssignedTo != "assignee-1" {
		t.Errorf("AssignedTo = %q, want assignee-1", tk.AssignedTo)
	}
	if tk.DueDate == nil || !tk.DueDate.Equal(due) {
		t.Errorf("DueDate = %v, want %v", tk.DueDate, due)
	}
}

func TestApplyUpdatePatchesOnlySetFields(t *testing.T) {
	orig := Task{
		Title:       "old title",
		Description: "old desc",
		Status:      StatusTodo,
		Priority:    PriorityLow,
		AssignedTo:  "a1",
	}

	title := "new title"
	prio := PriorityHigh

	got := ApplyUpdate(orig, UpdateTaskRequest{Title: &title, Priority: &prio})

	if got.Title != "new title" {
		t.Errorf("Title = %q, want new title", got.Title)
	}
	if got.Priority != PriorityHigh {
		t.Errorf("Priority = %q, want high", got.Priority)
	}
	if got.Description != "old desc" {
		t.Errorf("Description changed unexpectedly: %q", got.Description)
	}
	if got.Status != StatusTodo {
		t.Errorf("Status changed unexpectedly: %q", got.Status)
	}
	if got.AssignedTo != "a1" {
		t.Errorf("AssignedTo changed unexpectedly: %q", got.AssignedTo)
	}
	if !got.UpdatedAt.After(orig.UpdatedAt) {
		t.Error("UpdatedAt not refreshed")
	}
}
