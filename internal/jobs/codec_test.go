package jobs

import (
	"errors"
	"testing"
	"time"
)

func TestEncodeDecodeReminder(t *testing.T) {
	p := TaskReminderPayload{
		TaskID:      "task-1",
		RequestedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		RequestID:   "req-1",
	}

	raw, err := EncodePayload(TypeTaskReminder, p)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	got, err := DecodeReminder(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if got.TaskID != p.TaskID {
		t.Errorf("TaskID = %q, want %q", got.TaskID, p.TaskID)
	}
	if !got.RequestedAt.Equal(p.RequestedAt) {
		t.Errorf("RequestedAt = %v, want %v", got.RequestedAt, p.RequestedAt)
	}
}

func TestEncodePayloadRejectsMismatch(t *testing.T) {
	if _, err := EncodePayload(TypeTaskReminder, struct{ X int }{1}); !errors.Is(err, ErrPayloadTypeMismatch) {
		t.Fatalf("err = %v, want ErrPayloadTypeMismatch", err)
	}

	if _, err := EncodePayload("no.such.type", TaskReminderPayload{}); !errors.Is(err, ErrInvalidJobType) {
		t.Fatalf("err = %v, want ErrInvalidJobType", err)
	}
}

func TestDecodeReminderRejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		raw  []byte
	}{
		{"empty", nil},
		{"not json", []byte("{")},
		{"missing task id", []byte(`{"requestId":"r"}`)},
		{"blank task id", []byte(`{"taskId":"  "}`)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := DecodeReminder(tc.raw); !errors.Is(err, ErrInvalidJobPayload) {
				t.Fatalf("err = %v, want ErrInvalidJobPayload", err)
			}
		})
	}
}
