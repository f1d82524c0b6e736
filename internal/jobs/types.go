package jobs

const (
	// TypeTaskReminder is the one-shot due-date reminder email.
	TypeTaskReminder = "task.reminder"
)
