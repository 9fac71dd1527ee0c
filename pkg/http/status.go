package xhttp

import "github.com/valyala/fasthttp"

const (
	StatusOK                    = fasthttp.StatusOK
	StatusCreated               = fasthttp.StatusCreated
	StatusAccepted              = fasthttp.StatusAccepted
	StatusNoContent             = fasthttp.StatusNoContent
	StatusBadRequest            = fasthttp.StatusBadRequest
	StatusNotFound              = fasthttp.StatusNotFound
	StatusMethodNotAllowed      = fasthttp.StatusMethodNotAllowed
	StatusConflict              = fasthttp.StatusConflict
	StatusRequestTimeout        = fasthttp.StatusRequestTimeout
	StatusRequestEntityTooLarge = fasthttp.StatusRequestEntityTooLarge
	StatusInternalServerError   = fasthttp.StatusInternalServerError
	StatusBadGateway            = fasthttp.StatusBadGateway
	StatusServiceUnavailable    = fasthttp.StatusServiceUnavailable
)

// StatusText returns the reason phrase for code.
func StatusText(code int) string {
	return fasthttp.StatusMessage(code)
}
