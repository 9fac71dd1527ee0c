package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nimasrn/live-commerce/pkg/prom"
	"github.com/valyala/fasthttp"
)

var ErrUnexpectedStatus = errors.New("unexpected status code")

// HTTPError is returned for any non 2xx answer.
type HTTPError struct {
	Platform   string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s: unexpected status code: %d, body: %s", e.Platform, e.StatusCode, e.Body)
}

func (e *HTTPError) Is(target error) bool {
	return target == ErrUnexpectedStatus
}

type ClientConfig struct {
	Timeout         time.Duration
	MaxConns        int
	ReadBufferSize  int
	WriteBufferSize int
	// Dial overrides the network dialer, tests use an in-memory listener.
	Dial fasthttp.DialFunc
}

type httpClient struct {
	platform string
	client   *fasthttp.Client
	timeout  time.Duration
}

func newHTTPClient(platform string, cfg ClientConfig) *httpClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxConns <= 0 {
		cfg.MaxConns = 64
	}
	if cfg.ReadBufferSize <= 0 {
		// graph and odata responses carry long headers
		cfg.ReadBufferSize = 1024 * 16
	}
	if cfg.WriteBufferSize <= 0 {
		cfg.WriteBufferSize = 1024 * 4
	}
	return &httpClient{
		platform: platform,
		timeout:  cfg.Timeout,
		client: &fasthttp.Client{
			Name:                platform + "-client",
			MaxConnsPerHost:     cfg.MaxConns,
			ReadTimeout:         cfg.Timeout,
			WriteTimeout:        cfg.Timeout,
			MaxIdleConnDuration: 60 * time.Second,
			ReadBufferSize:      cfg.ReadBufferSize,
			WriteBufferSize:     cfg.WriteBufferSize,
			Dial:                cfg.Dial,
		},
	}
}

// doRequest performs one request and returns a copy of the body. There is no retry, a
// failed call is reported to the caller as is.
func (c *httpClient) doRequest(ctx context.Context, operation, method, url string, headers map[string]string, body []byte) (result []byte, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	started := time.Now()
	defer func() {
		prom.ObserveExternal(c.platform, operation, started, err)
	}()

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(method)
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if body != nil {
		req.Header.SetContentType("application/json")
		req.SetBody(body)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.timeout)
	}

	if err := c.client.DoDeadline(req, resp, deadline); err != nil {
		return nil, fmt.Errorf("%s %s: request failed: %w", c.platform, operation, err)
	}

	statusCode := resp.StatusCode()
	if statusCode < 200 || statusCode > 299 {
		return nil, &HTTPError{
			Platform:   c.platform,
			StatusCode: statusCode,
			Body:       truncate(string(resp.Body()), 512),
		}
	}

	result = make([]byte, len(resp.Body()))
	copy(result, resp.Body())

	return result, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
