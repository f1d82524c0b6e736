package jobs

import (
	"time"
)

// TaskReminderPayload is deliberately ID-based; the worker loads the
// task at execution time so the email reflects the current assignee
// and due date, and a deleted task produces no send.
type TaskReminderPayload struct {
	TaskID      string    `json:"taskId"`
	RequestedAt time.Time `json:"requestedAt"`
	RequestID   string    `json:"requestId,omitempty"`
}
