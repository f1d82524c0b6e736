package mail

import (
	"context"
	"fmt"
	"time"
)

type TaskReminderInput struct {
	To          string
	Title       string
	Description string
	DueDate     *time.Time
}

type Mailer interface {
	SendTaskReminder(ctx context.Context, in TaskReminderInput) error
}

// RenderReminder builds the subject and plain-text body shared by the
// scheduled and manual reminder paths.
func RenderReminder(in TaskReminderInput) (subject, body string) {
	subject = "Reminder: " + in.Title

	due := "no due date"
	if in.DueDate != nil {
		due = in.DueDate.UTC().Format("Mon, 02 Jan 2006 15:04 MST")
	}

	body = fmt.Sprintf("Your task %q is due %s.", in.Title, due)
	if in.Description != "" {
		body += "\n\n" + in.Description
	}

	return subject, body
}
