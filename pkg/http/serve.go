package xhttp

import (
	"context"
	"reflect"
	"runtime"
	"time"

	"github.com/nimasrn/live-commerce/pkg/logger"
	"github.com/valyala/fasthttp"
)

type RequestHeader = fasthttp.RequestHeader
type ResponseHeader = fasthttp.ResponseHeader
type Server = fasthttp.Server

// ServerOption holds the knobs the services tune. Everything else is fixed in newServer.
type ServerOption struct {
	Name string

	// idle keep-alive connections are closed after IdleTimeout
	IdleTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// RequestTimeout bounds a handler, see TimeoutMiddleware
	RequestTimeout time.Duration

	// ReadBufferSize also caps the request header size
	ReadBufferSize  int
	WriteBufferSize int

	// product photos go through the upload endpoint
	MaxRequestBodySize int

	Concurrency   int
	MaxConnsPerIP int

	Logger logger.Logger
}

var DefaultServerOption = ServerOption{
	Name:               "live-commerce",
	IdleTimeout:        10 * time.Second,
	ReadTimeout:        30 * time.Second,
	WriteTimeout:       30 * time.Second,
	RequestTimeout:     15 * time.Second,
	ReadBufferSize:     16 * 1024,
	WriteBufferSize:    16 * 1024,
	MaxRequestBodySize: 16 * 1024 * 1024,
	Concurrency:        30_000,
	MaxConnsPerIP:      10_000,
}

// WithTimeouts returns a copy with the non-zero values applied, in seconds as they come from env.
func (o ServerOption) WithTimeouts(readSeconds, writeSeconds int) ServerOption {
	if readSeconds > 0 {
		o.ReadTimeout = time.Duration(readSeconds) * time.Second
	}
	if writeSeconds > 0 {
		o.WriteTimeout = time.Duration(writeSeconds) * time.Second
	}
	return o
}

// WithBuffers returns a copy with the non-zero buffer sizes applied.
func (o ServerOption) WithBuffers(read, write int) ServerOption {
	if read > 0 {
		o.ReadBufferSize = read
	}
	if write > 0 {
		o.WriteBufferSize = write
	}
	return o
}

type Engine struct {
	*Router
	*Server
	option ServerOption
	middle []MiddlewareFunc
}

func newServer(o ServerOption) *fasthttp.Server {
	if o.Logger == nil {
		o.Logger = logger.GetLogger()
	}
	return &fasthttp.Server{
		Handler: func(ctx *RequestCtx) {
			ctx.Error(StatusText(StatusNotFound), StatusNotFound)
		},
		ErrorHandler: func(ctx *RequestCtx, err error) {
			ctx.Logger().Printf("[xhttp] error: %s", err)
		},
		Name:                               o.Name,
		Concurrency:                        o.Concurrency,
		ReadBufferSize:                     o.ReadBufferSize,
		WriteBufferSize:                    o.WriteBufferSize,
		ReadTimeout:                        o.ReadTimeout,
		WriteTimeout:                       o.WriteTimeout,
		IdleTimeout:                        o.IdleTimeout,
		MaxConnsPerIP:                      o.MaxConnsPerIP,
		MaxIdleWorkerDuration:              time.Minute,
		TCPKeepalivePeriod:                 2 * time.Hour,
		MaxRequestBodySize:                 o.MaxRequestBodySize,
		TCPKeepalive:                       true,
		DisablePreParseMultipartForm:       true,
		LogAllErrors:                       true,
		SleepWhenConcurrencyLimitsExceeded: 100 * time.Millisecond,
		NoDefaultServerHeader:              true,
		NoDefaultDate:                      true,
		NoDefaultContentType:               true,
		CloseOnShutdown:                    true,
		Logger:                             o.Logger,
	}
}

func NewServer(options ServerOption) *Engine {
	return &Engine{
		Server: newServer(options),
		Router: NewRouter(),
		option: options,
	}
}

// CreateServer returns an engine with the default options and router, used for side
// listeners such as /metrics.
func CreateServer() *Engine {
	s := NewServer(DefaultServerOption)
	s.Router = CreateDefaultRouter()
	return s
}

// RequestTimeout is the handler deadline the engine was configured with.
func (e *Engine) RequestTimeout() time.Duration {
	return e.option.RequestTimeout
}

func (e *Engine) ListenAndServe(addr string) error {
	e.DoRouting()
	e.Server.Logger.Printf("[xhttp] %s listening on %s", e.option.Name, addr)
	return e.Server.ListenAndServe(addr)
}

// DoRouting installs the router behind the middleware chain. The first middleware passed to
// Use ends up outermost.
func (e *Engine) DoRouting() {
	for method, paths := range e.Router.List() {
		for _, p := range paths {
			e.Server.Logger.Printf("[xhttp] route %s %s", method, p)
		}
	}

	h := RequestHandler(e.Router.Handler)
	for i := len(e.middle) - 1; i >= 0; i-- {
		h = e.middle[i](h)
	}
	e.Server.Handler = h

	for i, m := range e.middle {
		e.Server.Logger.Printf("[xhttp] middleware %d: %s", i+1, runtime.FuncForPC(reflect.ValueOf(m).Pointer()).Name())
	}
}

// Use appends middleware to the chain. Call it before ListenAndServe.
//
//	s.Use(xhttp.RecoverMiddleware)
//	s.Use(xhttp.CORSMiddleware("*"))
func (e *Engine) Use(middleware MiddlewareFunc) {
	e.middle = append(e.middle, middleware)
}

// Shutdown stops accepting connections and waits for in-flight requests until ctx is done.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.Server.Logger.Printf("[xhttp] %s shutting down", e.option.Name)
	return e.Server.ShutdownWithContext(ctx)
}
