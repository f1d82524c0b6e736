package worker

import (
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

// Health exposes liveness/readiness for the worker process.
type Health struct {
	ready atomic.Bool
}

func (h *Health) SetReady(v bool) {
	h.ready.Store(v)
}

func (h *Health) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/readyz", func(c *gin.Context) {
		if !h.ready.Load() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "starting"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	return r
}
