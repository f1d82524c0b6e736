package mail

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
)

// ProtectedMailer guards a transport with a circuit breaker so a
// flapping SMTP provider fails fast instead of tying up requests.
type ProtectedMailer struct {
	inner   Mailer
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration
}

func NewProtectedMailer(inner Mailer) *ProtectedMailer {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "mailer",
		MaxRequests: 1,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})

	return &ProtectedMailer{
		inner:   inner,
		breaker: breaker,
		timeout: 5 * time.Second,
	}
}

func (m *ProtectedMailer) SendTaskReminder(ctx context.Context, in TaskReminderInput) error {
	sendCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	_, err := m.breaker.Execute(func() (interface{}, error) {
		return nil, m.inner.SendTaskReminder(sendCtx, in)
	})

	return err
}
