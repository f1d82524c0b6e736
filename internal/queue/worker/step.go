package worker

import (
	"context"
	"errors"
	"time"

	"github.com/taskhub/taskhub/internal/domain/job"
	"github.com/taskhub/taskhub/internal/domain/task"
	"github.com/taskhub/taskhub/internal/domain/user"
	"github.com/taskhub/taskhub/internal/jobs"
	"github.com/taskhub/taskhub/internal/mail"
)

type JobsRepo interface {
	ClaimNext(ctx context.Context, workerID string) (job.Job, error)
	MarkDone(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, errMsg string) error
	RequeueStaleProcessing(ctx context.Context, lockTTL time.Duration) (int64, error)
}

type TasksRepo interface {
	GetByID(ctx context.Context, id string) (task.Task, error)
}

type UsersRepo interface {
	GetByID(ctx context.Context, id string) (user.User, error)
}

type Deps struct {
	Jobs   JobsRepo
	Tasks  TasksRepo
	Users  UsersRepo
	Mailer mail.Mailer
}

// ProcessOne claims and executes a single due job. job.ErrJobNotFound
// means the queue had nothing due.
func (w *Worker) ProcessOne(ctx context.Context) error {
	j, err := w.deps.Jobs.ClaimNext(ctx, w.cfg.WorkerID)
	if err != nil {
		return err
	}

	start := time.Now()

	if w.prom != nil {
		w.prom.JobsInFlight.Inc()
		defer w.prom.JobsInFlight.Dec()
	}

	result := w.execute(ctx, j)

	if w.prom != nil {
		w.prom.JobDuration.WithLabelValues(j.Type, result).Observe(time.Since(start).Seconds())
		w.prom.JobResults.WithLabelValues(j.Type, result).Inc()
	}

	return nil
}

func (w *Worker) execute(ctx context.Context, j job.Job) (result string) {
	switch j.Type {
	case jobs.TypeTaskReminder:
		return w.executeReminder(ctx, j)
	default:
		w.log.WarnContext(ctx, "unknown job type", "job_id", j.ID, "type", j.Type)
		w.fail(ctx, j, jobs.ErrInvalidJobType.Error())
		return "failed"
	}
}

func (w *Worker) executeReminder(ctx context.Context, j job.Job) string {
	payload, err := jobs.DecodeReminder(j.Payload)
	if err != nil {
		w.log.ErrorContext(ctx, "reminder payload invalid", "job_id", j.ID, "err", err)
		w.fail(ctx, j, err.Error())
		return "failed"
	}

	// Load fresh state: the task may have moved or vanished since the
	// reminder was armed.
	t, err := w.deps.Tasks.GetByID(ctx, payload.TaskID)
	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			// task deleted after scheduling, nothing to remind about
			w.done(ctx, j)
			return "skipped"
		}
		w.fail(ctx, j, err.Error())
		return "failed"
	}

	if t.Status == task.StatusCompleted {
		w.done(ctx, j)
		return "skipped"
	}

	recipient, err := w.deps.Users.GetByID(ctx, t.AssignedTo)
	if err != nil {
		w.log.ErrorContext(ctx, "reminder recipient lookup", "job_id", j.ID, "err", err)
		w.fail(ctx, j, err.Error())
		return "failed"
	}

	in := mail.TaskReminderInput{
		To:          recipient.Email,
		Title:       t.Title,
		Description: t.Description,
		DueDate:     t.DueDate,
	}

	if err := w.deps.Mailer.SendTaskReminder(ctx, in); err != nil {
		if w.prom != nil {
			w.prom.MailSendsTotal.WithLabelValues("auto", "error").Inc()
		}
		// single-attempt policy: a failed send is recorded, not retried
		w.log.ErrorContext(ctx, "reminder send failed", "job_id", j.ID, "task_id", t.ID, "err", err)
		w.fail(ctx, j, err.Error())
		return "failed"
	}

	if w.prom != nil {
		w.prom.MailSendsTotal.WithLabelValues("auto", "ok").Inc()
	}

	w.log.InfoContext(ctx, "reminder sent", "job_id", j.ID, "task_id", t.ID, "to", recipient.Email)
	w.done(ctx, j)
	return "done"
}

func (w *Worker) done(ctx context.Context, j job.Job) {
	if err := w.deps.Jobs.MarkDone(ctx, j.ID); err != nil {
		w.log.ErrorContext(ctx, "mark job done", "job_id", j.ID, "err", err)
	}
}

func (w *Worker) fail(ctx context.Context, j job.Job, msg string) {
	if err := w.deps.Jobs.MarkFailed(ctx, j.ID, msg); err != nil {
		w.log.ErrorContext(ctx, "mark job failed", "job_id", j.ID, "err", err)
	}
}
