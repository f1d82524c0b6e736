package jobs

import "time"

// ReminderRunAt computes when the reminder for dueDate should fire.
// ok is false when the lead time has already elapsed (due date within
// the lead window, or in the past); no reminder is scheduled then.
func ReminderRunAt(dueDate time.Time, lead time.Duration, now time.Time) (runAt time.Time, ok bool) {
	runAt = dueDate.Add(-lead).UTC()

	if !runAt.After(now) {
		return time.Time{}, false
	}

	return runAt, true
}
