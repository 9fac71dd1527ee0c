package handlers

import (
	"context"
	"errors"
	"io"

	"github.com/fasthttp/router"
	"github.com/nimasrn/live-commerce/internal/services"
	"github.com/nimasrn/live-commerce/internal/storage"
	xhttp "github.com/nimasrn/live-commerce/pkg/http"
)

const defaultUploadFolder = "products"

type UploadService interface {
	UploadImage(ctx context.Context, folder, fileName, contentType string, size int64, body io.Reader) (string, error)
}

type UploadHandler struct {
	svc UploadService
}

func RegisterUploadRoutes(e *router.Group, h *UploadHandler) {
	e.POST("/uploads", h.Upload)
}

func NewUploadHandler(svc UploadService) *UploadHandler {
	return &UploadHandler{svc: svc}
}

// Upload takes a multipart form with a "file" part and an optional "folder" value.
func (h *UploadHandler) Upload(ctx *xhttp.RequestCtx) {
	fh, err := ctx.FormFile("file")
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "file is required")
		return
	}
	folder := string(ctx.FormValue("folder"))
	if folder == "" {
		folder = defaultUploadFolder
	}

	f, err := fh.Open()
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, err.Error())
		return
	}
	defer f.Close()

	url, err := h.svc.UploadImage(ctx, folder, fh.Filename, fh.Header.Get("Content-Type"), fh.Size, f)
	switch {
	case err == nil:
		writeJSON(ctx, xhttp.StatusCreated, map[string]string{"url": url})
	case errors.Is(err, services.ErrUnsupportedType), errors.Is(err, storage.ErrEmptyFileName):
		writeError(ctx, xhttp.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrFileTooLarge):
		writeError(ctx, xhttp.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, services.ErrStorageDisabled), errors.Is(err, storage.ErrStorageNotConfigured):
		writeError(ctx, xhttp.StatusServiceUnavailable, err.Error())
	default:
		writeError(ctx, xhttp.StatusInternalServerError, err.Error())
	}
}
