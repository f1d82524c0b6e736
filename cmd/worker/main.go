package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/taskhub/taskhub/internal/config"
	"github.com/taskhub/taskhub/internal/db"
	"github.com/taskhub/taskhub/internal/mail"
	"github.com/taskhub/taskhub/internal/observability"
	"github.com/taskhub/taskhub/internal/queue/worker"
	"github.com/taskhub/taskhub/internal/repo/postgres"
)

func main() {
	cfg := config.Load()
	log := observability.NewLogger(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.OTLPEndpoint != "" {
		shutdown, err := observability.InitTracer(ctx, "taskhub-worker", cfg.OTLPEndpoint)
		if err != nil {
			log.Error("init tracer", "err", err)
		} else {
			defer func() {
				shutdownCtx, cancel := config.WithTimeout(5 * time.Second)
				defer cancel()
				_ = shutdown(shutdownCtx)
			}()
		}
	}

	pool, err := db.NewPool(cfg.DBURL)
	if err != nil {
		log.Error("connect database", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	reg := prometheus.NewRegistry()
	prom := observability.NewProm(reg)

	var mailer mail.Mailer
	if cfg.SMTPHost != "" {
		mailer = mail.NewSMTPMailer(mail.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			From:     cfg.SMTPFrom,
			Password: cfg.SMTPPass,
		})
	} else {
		mailer = mail.NewLogMailer(log)
	}
	mailer = mail.NewProtectedMailer(mailer)

	deps := worker.Deps{
		Jobs:   postgres.NewJobsRepo(pool, prom),
		Tasks:  postgres.NewTasksRepo(pool, prom),
		Users:  postgres.NewUsersRepo(pool),
		Mailer: mailer,
	}

	w := worker.New(worker.DefaultConfig(), deps, log, prom)

	health := &worker.Health{}
	healthRouter := health.Router()
	healthRouter.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	healthPort := 8081
	if v := os.Getenv("WORKER_HEALTH_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			healthPort = n
		}
	}

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(healthPort),
		Handler:           healthRouter,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("worker health server", "err", err)
		}
	}()

	health.SetReady(true)
	log.Info("worker started", "health_port", healthPort)

	w.Run(ctx)

	health.SetReady(false)

	shutdownCtx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	log.Info("worker stopped")
}
