package handlers

import (
	"context"
	"errors"

	"github.com/fasthttp/router"
	"github.com/nimasrn/live-commerce/internal/model"
	"github.com/nimasrn/live-commerce/internal/services"
	xhttp "github.com/nimasrn/live-commerce/pkg/http"
)

type CustomerService interface {
	List(ctx context.Context, f model.CustomerFilter) ([]*model.Customer, int64, error)
	Get(ctx context.Context, facebookID string) (*model.Customer, error)
}

type CustomerHandler struct {
	svc CustomerService
}

func RegisterCustomerRoutes(e *router.Group, h *CustomerHandler) {
	e.GET("/customers", h.ListCustomers)
	e.GET("/customers/{facebook_id}", h.GetCustomer)
}

func NewCustomerHandler(svc CustomerService) *CustomerHandler {
	return &CustomerHandler{svc: svc}
}

func (h *CustomerHandler) ListCustomers(ctx *xhttp.RequestCtx) {
	var f model.CustomerFilter
	if v := query(ctx, "status"); v != "" {
		f.Status = &v
	}
	if v := query(ctx, "info_status"); v != "" {
		is := model.InfoStatus(v)
		f.InfoStatus = &is
	}
	f.Search = query(ctx, "q")
	f.Limit = queryInt(ctx, "limit")
	f.Offset = queryInt(ctx, "offset")

	items, total, err := h.svc.List(ctx, f)
	if err != nil {
		if errors.Is(err, services.ErrInvalidStatus) || errors.Is(err, model.ErrInvalidInfoStatus) {
			writeError(ctx, xhttp.StatusBadRequest, err.Error())
			return
		}
		writeError(ctx, xhttp.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(ctx, xhttp.StatusOK, listResponse[*model.Customer]{Items: items, Total: total})
}

func (h *CustomerHandler) GetCustomer(ctx *xhttp.RequestCtx) {
	c, err := h.svc.Get(ctx, pathParam(ctx, "facebook_id"))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeError(ctx, xhttp.StatusNotFound, "customer not found")
			return
		}
		writeError(ctx, xhttp.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(ctx, xhttp.StatusOK, c)
}
