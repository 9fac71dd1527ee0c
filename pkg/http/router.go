package xhttp

import (
	"github.com/fasthttp/router"
)

type Router = router.Router
type Group = router.Group

func NewRouter() *Router {
	return router.New()
}

// CreateDefaultRouter answers unknown paths and wrong methods with a JSON error body, the
// same shape the handlers use. CORS preflights are handled by CORSMiddleware, not the router.
func CreateDefaultRouter() *Router {
	r := NewRouter()
	r.RedirectTrailingSlash = true
	r.RedirectFixedPath = true
	r.SaveMatchedRoutePath = true
	r.HandleOPTIONS = false
	r.HandleMethodNotAllowed = true
	r.NotFound = jsonError(StatusNotFound)
	r.MethodNotAllowed = jsonError(StatusMethodNotAllowed)
	return r
}

func jsonError(code int) RequestHandler {
	body := []byte(`{"error":"` + StatusText(code) + `"}`)
	return func(ctx *RequestCtx) {
		ctx.SetStatusCode(code)
		ctx.SetContentType("application/json")
		ctx.SetBody(body)
	}
}
