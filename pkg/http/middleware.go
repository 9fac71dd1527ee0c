package xhttp

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/live-commerce/pkg/logger"
	"github.com/valyala/fasthttp"
)

const slowThreshold = 500 * time.Millisecond

const (
	HeaderRequestID = "X-Request-Id"
	requestIDKey    = "request_id"
)

var skipPaths = []string{"/health", "/metrics", "/api/v1/health"}

type MiddlewareFunc func(next RequestHandler) RequestHandler
type RequestCtx = fasthttp.RequestCtx
type RequestHandler = fasthttp.RequestHandler

func TimeoutMiddleware(timeout time.Duration) MiddlewareFunc {
	return func(next RequestHandler) RequestHandler {
		return fasthttp.TimeoutWithCodeHandler(next, timeout, StatusText(StatusRequestTimeout), StatusRequestTimeout)
	}
}

func CompressMiddleware(level int) MiddlewareFunc {
	return func(next RequestHandler) RequestHandler {
		return fasthttp.CompressHandlerBrotliLevel(next, level, level)
	}
}

func RecoverMiddleware(next RequestHandler) RequestHandler {
	return func(ctx *RequestCtx) {
		defer func() {
			if err := recover(); err != nil {
				ctx.Error(StatusText(StatusInternalServerError), StatusInternalServerError)
				logger.Error("[xhttp] panic recovered", "error", err, "path", string(ctx.Path()), "request_id", RequestID(ctx))
			}
		}()
		next(ctx)
	}
}

// CORSMiddleware answers preflight requests itself. The dashboard is served from another origin.
func CORSMiddleware(allowOrigin string) MiddlewareFunc {
	if allowOrigin == "" {
		allowOrigin = "*"
	}
	return func(next RequestHandler) RequestHandler {
		return func(ctx *RequestCtx) {
			h := &ctx.Response.Header
			h.Set("Access-Control-Allow-Origin", allowOrigin)
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+HeaderRequestID)
			h.Set("Access-Control-Expose-Headers", HeaderRequestID)
			if ctx.IsOptions() {
				ctx.SetStatusCode(StatusNoContent)
				return
			}
			next(ctx)
		}
	}
}

// RequestIDMiddleware keeps the caller's request id or assigns a new one.
func RequestIDMiddleware(next RequestHandler) RequestHandler {
	return func(ctx *RequestCtx) {
		rid := string(ctx.Request.Header.Peek(HeaderRequestID))
		if rid == "" {
			rid = uuid.NewString()
		}
		ctx.SetUserValue(requestIDKey, rid)
		ctx.Response.Header.Set(HeaderRequestID, rid)
		next(ctx)
	}
}

func RequestLoggerMiddleware(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		path := string(ctx.Path())
		if shouldSkip(path) {
			next(ctx)
			return
		}

		start := time.Now()
		next(ctx)

		latency := time.Since(start)
		status := ctx.Response.StatusCode()
		kv := []any{
			"status", status,
			"method", string(ctx.Method()),
			"path", path,
			"latency", latency.String(),
			"bytes_in", len(ctx.PostBody()),
			"bytes_out", len(ctx.Response.Body()),
			"ip", ctx.RemoteIP().String(),
			"ua", string(ctx.Request.Header.UserAgent()),
			"request_id", RequestID(ctx),
		}

		lg := logger.GetLogger()

		// choose level
		switch {
		case status >= 500:
			lg.Error("http_request", kv...)
		case status >= 400 || latency > slowThreshold:
			lg.Warn("http_request", kv...)
		default:
			lg.Info("http_request", kv...)
		}
	}
}

func shouldSkip(p string) bool {
	for _, sp := range skipPaths {
		if strings.HasPrefix(p, sp) {
			return true
		}
	}
	return false
}

// RequestID returns the id assigned by RequestIDMiddleware, falling back to the header.
func RequestID(ctx *fasthttp.RequestCtx) string {
	if v, ok := ctx.UserValue(requestIDKey).(string); ok && v != "" {
		return v
	}
	return string(ctx.Request.Header.Peek(HeaderRequestID))
}
