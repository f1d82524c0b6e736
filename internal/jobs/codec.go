package jobs

import (
	"encoding/json"
	"fmt"
	"strings"
)

func EncodePayload(jobType string, payload any) ([]byte, error) {
	switch jobType {
	case TypeTaskReminder:
		switch payload.(type) {
		case TaskReminderPayload, *TaskReminderPayload:
		default:
			return nil, ErrPayloadTypeMismatch
		}
	default:
		return nil, ErrInvalidJobType
	}

	b, err := json.Marshal(payload)

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
	}

	return b, nil
}

// DecodeReminder unmarshals and validates a task.reminder payload.
func DecodeReminder(raw []byte) (TaskReminderPayload, error) {
	if len(raw) == 0 {
		return TaskReminderPayload{}, ErrInvalidJobPayload
	}

	var p TaskReminderPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return TaskReminderPayload{}, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
	}

	if strings.TrimSpace(p.TaskID) == "" {
		return TaskReminderPayload{}, ErrInvalidJobPayload
	}

	return p, nil
}
