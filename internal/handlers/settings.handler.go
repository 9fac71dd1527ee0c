package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/fasthttp/router"
	"github.com/nimasrn/live-commerce/internal/model"
	"github.com/nimasrn/live-commerce/internal/services"
	xhttp "github.com/nimasrn/live-commerce/pkg/http"
)

type SettingsService interface {
	TPOSCredentials(ctx context.Context) (model.TPOSConfig, error)
	SaveTPOS(ctx context.Context, cfg model.TPOSConfig) error
	Printer(ctx context.Context) (model.PrinterSettings, error)
	SavePrinter(ctx context.Context, p model.PrinterSettings) error
}

type SettingsHandler struct {
	svc SettingsService
}

func RegisterSettingsRoutes(e *router.Group, h *SettingsHandler) {
	e.GET("/settings/tpos", h.GetTPOS)
	e.PUT("/settings/tpos", h.PutTPOS)
	e.GET("/settings/printer", h.GetPrinter)
	e.PUT("/settings/printer", h.PutPrinter)
}

func NewSettingsHandler(svc SettingsService) *SettingsHandler {
	return &SettingsHandler{svc: svc}
}

type tposRequest struct {
	BaseURL     string `json:"base_url" validate:"required,url"`
	BearerToken string `json:"bearer_token" validate:"required"`
}

type printerRequest struct {
	Name     string `json:"name"`
	IP       string `json:"ip" validate:"required,ip"`
	Port     int    `json:"port" validate:"required,gte=1,lte=65535"`
	Codepage int    `json:"codepage" validate:"gte=0,lte=255"`
}

// maskToken keeps the last four characters.
func maskToken(tok string) string {
	if len(tok) <= 4 {
		return strings.Repeat("*", len(tok))
	}
	return strings.Repeat("*", len(tok)-4) + tok[len(tok)-4:]
}

func (h *SettingsHandler) GetTPOS(ctx *xhttp.RequestCtx) {
	cfg, err := h.svc.TPOSCredentials(ctx)
	if err != nil {
		writeError(ctx, xhttp.StatusInternalServerError, err.Error())
		return
	}
	cfg.BearerToken = maskToken(cfg.BearerToken)
	writeJSON(ctx, xhttp.StatusOK, cfg)
}

func (h *SettingsHandler) PutTPOS(ctx *xhttp.RequestCtx) {
	var req tposRequest
	if !bind(ctx, &req) {
		return
	}
	cfg := model.TPOSConfig{BaseURL: req.BaseURL, BearerToken: req.BearerToken}
	if err := h.svc.SaveTPOS(ctx, cfg); err != nil {
		writeSettingsError(ctx, err)
		return
	}
	cfg.BearerToken = maskToken(strings.TrimSpace(cfg.BearerToken))
	writeJSON(ctx, xhttp.StatusOK, cfg)
}

func (h *SettingsHandler) GetPrinter(ctx *xhttp.RequestCtx) {
	p, err := h.svc.Printer(ctx)
	if err != nil {
		writeError(ctx, xhttp.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(ctx, xhttp.StatusOK, p)
}

func (h *SettingsHandler) PutPrinter(ctx *xhttp.RequestCtx) {
	var req printerRequest
	if !bind(ctx, &req) {
		return
	}
	p := model.PrinterSettings{Name: req.Name, IP: req.IP, Port: req.Port, Codepage: req.Codepage}
	if err := h.svc.SavePrinter(ctx, p); err != nil {
		writeSettingsError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, p)
}

func writeSettingsError(ctx *xhttp.RequestCtx, err error) {
	if errors.Is(err, services.ErrInvalidSettings) {
		writeError(ctx, xhttp.StatusBadRequest, err.Error())
		return
	}
	writeError(ctx, xhttp.StatusInternalServerError, err.Error())
}
