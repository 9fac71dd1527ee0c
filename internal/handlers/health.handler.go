package handlers

import (
	"context"

	"github.com/fasthttp/router"
	xhttp "github.com/nimasrn/live-commerce/pkg/http"
)

type HealthService interface {
	Check(ctx context.Context) (map[string]string, error)
}
type HealthHandler struct {
	healthService HealthService
}

func RegisterHealthRoutes(e *router.Group, h *HealthHandler) {
	e.GET("/health", h.GetHealth)
}

func NewHealthHandler(healthService HealthService) *HealthHandler {
	return &HealthHandler{
		healthService: healthService,
	}
}

func (h *HealthHandler) GetHealth(ctx *xhttp.RequestCtx) {
	checks, err := h.healthService.Check(ctx)
	if err != nil {
		writeJSON(ctx, xhttp.StatusServiceUnavailable, map[string]any{"status": "degraded", "checks": checks})
		return
	}
	writeJSON(ctx, xhttp.StatusOK, map[string]any{"status": "ok", "checks": checks})
}
