package handlers

import (
	"context"
	"errors"

	"github.com/fasthttp/router"
	"github.com/nimasrn/live-commerce/internal/model"
	"github.com/nimasrn/live-commerce/internal/printer"
	xhttp "github.com/nimasrn/live-commerce/pkg/http"
)

type PrintService interface {
	Print(ctx context.Context, bill model.Bill) error
}

type BillHandler struct {
	svc PrintService
}

func RegisterBillRoutes(e *router.Group, h *BillHandler) {
	e.POST("/bills/print", h.PrintBill)
}

func NewBillHandler(svc PrintService) *BillHandler {
	return &BillHandler{svc: svc}
}

func (h *BillHandler) PrintBill(ctx *xhttp.RequestCtx) {
	var bill model.Bill
	if !bind(ctx, &bill) {
		return
	}

	err := h.svc.Print(ctx, bill)
	switch {
	case err == nil:
		writeJSON(ctx, xhttp.StatusOK, map[string]string{"status": "printed"})
	case errors.Is(err, model.ErrPrinterNotConfigured):
		writeError(ctx, xhttp.StatusBadRequest, err.Error())
	case errors.Is(err, printer.ErrPrinterUnreachable):
		writeError(ctx, xhttp.StatusBadGateway, err.Error())
	default:
		writeError(ctx, xhttp.StatusInternalServerError, err.Error())
	}
}
