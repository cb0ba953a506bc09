package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// PingFunc checks one dependency; a nil error means it is reachable.
type PingFunc func(ctx context.Context) error

type HealthHandler struct {
	checks         map[string]PingFunc
	isShuttingDown func() bool
}

// create a new instance of the health handler; isShuttingDown may be nil
func NewHealthHandler(checks map[string]PingFunc, isShuttingDown func() bool) *HealthHandler {
	if isShuttingDown == nil {
		isShuttingDown = func() bool { return false }
	}
	return &HealthHandler{checks: checks, isShuttingDown: isShuttingDown}
}

func (h *HealthHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readyz pings every registered dependency and reports 503 if any fails.
func (h *HealthHandler) Readyz(ctx *gin.Context) {
	// drain traffic before the server stops accepting it
	if h.isShuttingDown() {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "shutting_down"})
		return
	}

	failed := gin.H{}

	for name, ping := range h.checks {
		if ping == nil {
			continue
		}
		if err := ping(ctx.Request.Context()); err != nil {
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "failed": failed})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ready"})
}
