package http

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/taskhub/taskhub/internal/config"
	"github.com/taskhub/taskhub/internal/http/handlers"
	"github.com/taskhub/taskhub/internal/http/middlewares"
	"github.com/taskhub/taskhub/internal/observability"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const maxBodyBytes = 1 << 20 // 1 MiB

type RouterDeps struct {
	Cfg    config.Config
	Log    *slog.Logger
	Prom   *observability.Prom
	Reg    *prometheus.Registry
	Auth   *middlewares.AuthMiddleware
	Users  *handlers.AuthHandler
	Tasks  *handlers.TasksHandler
	Health *handlers.HealthHandler
}

func NewRouter(d RouterDeps) *gin.Engine {
	if d.Cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("taskhub"))
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(d.Log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(d.Cfg.AllowedOrigins))
	r.Use(middlewares.RequireJSON())
	r.Use(middlewares.MaxBodyBytes(maxBodyBytes))

	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}

	if d.Reg != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Reg, promhttp.HandlerOpts{})))
	}

	r.GET("/healthz", d.Health.Healthz)
	r.GET("/readyz", d.Health.Readyz)

	limiter := middlewares.NewRateLimiter(20, time.Minute)

	auth := r.Group("/auth")
	auth.Use(limiter.Middleware())
	{
		auth.POST("/register", d.Users.Register)
		auth.POST("/login", d.Users.Login)
		auth.POST("/logout", d.Users.Logout)
	}

	tasks := r.Group("/tasks")
	tasks.Use(d.Auth.RequireAuth())
	{
		tasks.GET("", d.Tasks.List)
		tasks.POST("", d.Tasks.Create)
		tasks.GET("/:id", d.Tasks.GetByID)
		tasks.PUT("/:id", d.Tasks.Update)
		tasks.DELETE("/:id", d.Tasks.Delete)
		tasks.POST("/:id/complete", d.Tasks.ToggleComplete)
		tasks.POST("/:id/schedule-email", d.Tasks.ScheduleEmail)
	}

	return r
}
