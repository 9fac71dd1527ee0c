package gateway

import (
	"net"
	"testing"
	"time"

	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

// startServer serves handler on an in-memory listener and returns a client config dialing it.
func startServer(t *testing.T, handler fasthttp.RequestHandler) ClientConfig {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: handler}
	go func() {
		_ = srv.Serve(ln)
	}()
	t.Cleanup(func() {
		_ = srv.Shutdown()
		_ = ln.Close()
	})
	return ClientConfig{
		Timeout: 2 * time.Second,
		Dial: func(addr string) (net.Conn, error) {
			return ln.Dial()
		},
	}
}
