package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/taskhub/taskhub/internal/auth"
	"github.com/taskhub/taskhub/internal/cache"
	"github.com/taskhub/taskhub/internal/config"
	"github.com/taskhub/taskhub/internal/db"
	apphttp "github.com/taskhub/taskhub/internal/http"
	"github.com/taskhub/taskhub/internal/http/handlers"
	"github.com/taskhub/taskhub/internal/http/middlewares"
	"github.com/taskhub/taskhub/internal/mail"
	"github.com/taskhub/taskhub/internal/observability"
	"github.com/taskhub/taskhub/internal/repo/postgres"
)

func main() {
	cfg := config.Load()
	log := observability.NewLogger(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.OTLPEndpoint != "" {
		shutdown, err := observability.InitTracer(ctx, "taskhub-api", cfg.OTLPEndpoint)
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

	if err := db.EnsureAdminUser(ctx, pool, cfg); err != nil {
		log.Error("seed admin user", "err", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	prom := observability.NewProm(reg)

	var responseCache cache.Cache
	if cfg.RedisAddr != "" {
		rc := cache.NewRedis(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      30 * time.Second,
		})
		if err := rc.Ping(ctx); err != nil {
			log.Error("connect redis", "err", err)
			os.Exit(1)
		}
		defer rc.Close()
		responseCache = rc
		log.Info("cache: redis", "addr", cfg.RedisAddr)
	} else {
		responseCache = cache.NewMemory(30 * time.Second)
		log.Info("cache: in-memory")
	}

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

	jwtManager := auth.NewManager(cfg.JWTSecret, cfg.AccessTTL())

	usersRepo := postgres.NewUsersRepo(pool)
	tasksRepo := postgres.NewTasksRepo(pool, prom)
	jobsRepo := postgres.NewJobsRepo(pool, prom)
	taskStore := postgres.NewTaskStore(tasksRepo, jobsRepo)

	router := apphttp.NewRouter(apphttp.RouterDeps{
		Cfg:   cfg,
		Log:   log,
		Prom:  prom,
		Reg:   reg,
		Auth:  middlewares.NewAuthMiddleware(jwtManager),
		Users: handlers.NewAuthHandler(usersRepo, jwtManager, log),
		Tasks: handlers.NewTasksHandler(
			taskStore, jobsRepo, mailer,
			responseCache, prom, log, cfg.ReminderLead,
		),
		Health: handlers.NewHealthHandler(pool.Ping),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("api listening", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown", "err", err)
	}
}
