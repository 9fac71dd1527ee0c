package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/nimasrn/live-commerce/internal/model"
	xhttp "github.com/nimasrn/live-commerce/pkg/http"
)

type NotificationService interface {
	Latest(ctx context.Context, limit int) ([]model.Notification, error)
}

type NotificationHandler struct {
	svc NotificationService
}

func RegisterNotificationRoutes(e *router.Group, h *NotificationHandler) {
	e.GET("/notifications", h.ListNotifications)
}

func NewNotificationHandler(svc NotificationService) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

func (h *NotificationHandler) ListNotifications(ctx *xhttp.RequestCtx) {
	items, err := h.svc.Latest(ctx, queryInt(ctx, "limit"))
	if err != nil {
		writeError(ctx, xhttp.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(ctx, xhttp.StatusOK, map[string]any{"items": items})
}
