package handlers

import (
	"context"
	"errors"

	"github.com/fasthttp/router"
	"github.com/nimasrn/live-commerce/internal/model"
	"github.com/nimasrn/live-commerce/internal/services"
	xhttp "github.com/nimasrn/live-commerce/pkg/http"
	"github.com/nimasrn/live-commerce/pkg/logger"
)

type LiveService interface {
	Watch(ctx context.Context, pageID, videoID string) (*model.LiveWatch, error)
	Pause(ctx context.Context, videoID string) (*model.LiveWatch, error)
	Resume(ctx context.Context, videoID string) (*model.LiveWatch, error)
	Unwatch(ctx context.Context, videoID string) error
	Watches(ctx context.Context) ([]model.LiveWatch, error)
	Enqueue(ctx context.Context, videoID string) (string, error)
	Snapshot(ctx context.Context, videoID string) (*model.LiveSnapshot, error)
}

type LiveHandler struct {
	svc LiveService
}

func RegisterLiveRoutes(e *router.Group, h *LiveHandler) {
	e.GET("/live", h.ListWatches)
	e.POST("/live/watch", h.Watch)
	e.POST("/live/{video_id}/pause", h.Pause)
	e.POST("/live/{video_id}/resume", h.Resume)
	e.POST("/live/{video_id}/reconcile", h.Reconcile)
	e.DELETE("/live/{video_id}", h.Unwatch)
	e.GET("/live/{video_id}/comments", h.Comments)
}

func NewLiveHandler(svc LiveService) *LiveHandler {
	return &LiveHandler{svc: svc}
}

type watchRequest struct {
	PageID  string `json:"page_id"`
	VideoID string `json:"video_id" validate:"required"`
}

type reconcileResponse struct {
	JobID   string `json:"job_id"`
	VideoID string `json:"video_id"`
}

type commentsResponse struct {
	*model.LiveSnapshot
	Total int `json:"total"`
}

func (h *LiveHandler) ListWatches(ctx *xhttp.RequestCtx) {
	watches, err := h.svc.Watches(ctx)
	if err != nil {
		writeLiveError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, map[string]any{"items": watches})
}

func (h *LiveHandler) Watch(ctx *xhttp.RequestCtx) {
	var req watchRequest
	if !bind(ctx, &req) {
		return
	}
	w, err := h.svc.Watch(ctx, req.PageID, req.VideoID)
	if err != nil {
		writeLiveError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, w)
}

func (h *LiveHandler) Pause(ctx *xhttp.RequestCtx) {
	w, err := h.svc.Pause(ctx, pathParam(ctx, "video_id"))
	if err != nil {
		writeLiveError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, w)
}

func (h *LiveHandler) Resume(ctx *xhttp.RequestCtx) {
	w, err := h.svc.Resume(ctx, pathParam(ctx, "video_id"))
	if err != nil {
		writeLiveError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, w)
}

func (h *LiveHandler) Unwatch(ctx *xhttp.RequestCtx) {
	if err := h.svc.Unwatch(ctx, pathParam(ctx, "video_id")); err != nil {
		writeLiveError(ctx, err)
		return
	}
	ctx.SetStatusCode(xhttp.StatusNoContent)
}

func (h *LiveHandler) Reconcile(ctx *xhttp.RequestCtx) {
	videoID := pathParam(ctx, "video_id")
	id, err := h.svc.Enqueue(ctx, videoID)
	if err != nil {
		writeLiveError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusAccepted, reconcileResponse{JobID: id, VideoID: videoID})
}

// Comments serves the last decorated view. ?status= narrows it to one partner status.
func (h *LiveHandler) Comments(ctx *xhttp.RequestCtx) {
	snap, err := h.svc.Snapshot(ctx, pathParam(ctx, "video_id"))
	if err != nil {
		writeLiveError(ctx, err)
		return
	}
	if want := query(ctx, "status"); want != "" {
		filtered := make([]model.CommentWithStatus, 0, len(snap.Comments))
		for _, c := range snap.Comments {
			if c.PartnerStatus == want {
				filtered = append(filtered, c)
			}
		}
		snap.Comments = filtered
	}
	writeJSON(ctx, xhttp.StatusOK, commentsResponse{LiveSnapshot: snap, Total: len(snap.Comments)})
}

func writeLiveError(ctx *xhttp.RequestCtx, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidVideoID):
		writeError(ctx, xhttp.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrWatchNotFound), errors.Is(err, services.ErrSnapshotNotFound):
		writeError(ctx, xhttp.StatusNotFound, err.Error())
	default:
		logger.Error("live request failed", "path", string(ctx.Path()), "error", err)
		writeError(ctx, xhttp.StatusInternalServerError, err.Error())
	}
}
