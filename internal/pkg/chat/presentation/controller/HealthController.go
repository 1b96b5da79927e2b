package controller

import (
	"context"
	"net/http"
	"time"

	"petchat/internal/infrastructure/realtime"
	repository "petchat/internal/pkg/chat/persistence/repository/port"

	"github.com/gin-gonic/gin"
)

// Pinger is anything /healthz should probe besides the store (the broker, for instance).
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthController struct {
	repo   repository.ChatRepository
	broker Pinger
	router *realtime.Router
}

func NewHealthController(repo repository.ChatRepository, broker Pinger, router *realtime.Router) *HealthController {
	return &HealthController{repo: repo, broker: broker, router: router}
}

func (h *HealthController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		checks := gin.H{"store": "ok"}
		if err := h.repo.Ping(ctx); err != nil {
			status = http.StatusServiceUnavailable
			checks["store"] = err.Error()
		}
		if h.broker != nil {
			checks["broker"] = "ok"
			if err := h.broker.Ping(ctx); err != nil {
				status = http.StatusServiceUnavailable
				checks["broker"] = err.Error()
			}
		}

		body := gin.H{"status": "OK", "checks": checks}
		if status != http.StatusOK {
			body["status"] = "DEGRADED"
		}
		if h.router != nil {
			body["sessions"] = h.router.Sessions()
		}
		c.JSON(status, body)
	}
}
