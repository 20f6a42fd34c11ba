package handlers

import (
	"net/http"
	"time"

	"github.com/ctcl-atlas/atlas/internal/server/response"
)

// HandleHealth handles GET /api/v1/health.
// @Summary Health check
// @Description Health check endpoint (liveness probe)
// @Tags health
// @Produce json
// @Success 200 {object} response.Response{data=object}
// @Router /api/v1/health [get].
func (h *Handlers) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	response.OK(w, map[string]any{
		"status":  "healthy",
		"service": "ctclatlas-api",
		"version": h.app.Version(),
	})
}

// HandleReady handles GET /api/v1/ready.
// @Summary Readiness check
// @Description Readiness check including dataset, cache and client status
// @Tags health
// @Produce json
// @Success 200 {object} response.Response{data=object}
// @Failure 503 {object} response.Response{error=response.Error}
// @Router /api/v1/ready [get].
func (h *Handlers) HandleReady(w http.ResponseWriter, r *http.Request) {
	a, ok := h.atlas(w, r)
	if !ok {
		return
	}

	stats := a.Stats()
	response.OK(w, map[string]any{
		"status": "ready",
		"dataset": map[string]any{
			"name":  stats.Name,
			"cells": stats.Cells,
			"genes": stats.Genes,
		},
		"cache":             h.cache.GetStats(),
		"websocket_clients": h.wsHub.ClientCount(),
		"sse_clients":       h.sseBroadcaster.ClientCount(),
		"uptime_seconds":    int(time.Since(h.startTime).Seconds()),
	})
}
