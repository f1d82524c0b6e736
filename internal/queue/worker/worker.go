package worker

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/taskhub/taskhub/internal/domain/job"
	"github.com/taskhub/taskhub/internal/observability"
)

type Config struct {
	PollInterval  time.Duration
	WorkerID      string
	Concurrency   int
	ShutdownGrace time.Duration
	LockTTL       time.Duration
}

func DefaultConfig() Config {
	host, _ := os.Hostname()
	if host == "" {
		host = "worker"
	}

	return Config{
		PollInterval:  2 * time.Second,
		WorkerID:      host + "-" + uuid.NewString()[:8],
		Concurrency:   4,
		ShutdownGrace: 10 * time.Second,
		LockTTL:       60 * time.Second,
	}
}

type Worker struct {
	cfg  Config
	deps Deps
	log  *slog.Logger
	prom *observability.Prom
}

func New(cfg Config, deps Deps, log *slog.Logger, prom *observability.Prom) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}

	return &Worker{cfg: cfg, deps: deps, log: log, prom: prom}
}

// Run polls for due jobs until ctx is canceled. Each slot drains the
// queue and then sleeps for the poll interval; in-flight jobs get the
// shutdown grace to finish.
func (w *Worker) Run(ctx context.Context) {
	var wg sync.WaitGroup

	for i := 0; i < w.cfg.Concurrency; i++ {
		wg.Add(1)

		go func(slot int) {
			defer wg.Done()
			w.runSlot(ctx, slot)
		}(i)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		w.runJanitor(ctx)
	}()

	<-ctx.Done()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(w.cfg.ShutdownGrace):
		w.log.Warn("worker shutdown grace elapsed, abandoning in-flight jobs")
	}
}

func (w *Worker) runSlot(ctx context.Context, slot int) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		// drain everything that is due, then wait a tick
		for {
			if ctx.Err() != nil {
				return
			}

			err := w.ProcessOne(ctx)
			if err == nil {
				continue
			}

			if errors.Is(err, job.ErrJobNotFound) {
				break // queue empty
			}

			w.log.ErrorContext(ctx, "process job", "err", err, "slot", slot)
			break
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// runJanitor periodically returns abandoned claims to the queue.
func (w *Worker) runJanitor(ctx context.Context) {
	interval := w.cfg.LockTTL
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := w.deps.Jobs.RequeueStaleProcessing(ctx, w.cfg.LockTTL)
			if err != nil {
				w.log.ErrorContext(ctx, "requeue stale jobs", "err", err)
				continue
			}
			if n > 0 {
				w.log.WarnContext(ctx, "requeued stale jobs", "count", n)
			}
		}
	}
}
