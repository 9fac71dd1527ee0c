package handlers

import (
	"encoding/json"
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	xhttp "github.com/nimasrn/live-commerce/pkg/http"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report json field names in errors
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type listResponse[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
}

// bind decodes the body into dst and runs its validate tags.
func bind(ctx *xhttp.RequestCtx, dst any) bool {
	if err := readJSON(ctx, dst); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, e := range verrs {
		switch e.Tag() {
		case "required":
			parts = append(parts, e.Field()+" is required")
		case "gte", "min":
			parts = append(parts, e.Field()+" must be at least "+e.Param())
		case "lte", "max":
			parts = append(parts, e.Field()+" must be at most "+e.Param())
		case "ip":
			parts = append(parts, e.Field()+" must be an IP address")
		case "url":
			parts = append(parts, e.Field()+" must be a URL")
		default:
			parts = append(parts, e.Field()+" is invalid")
		}
	}
	return strings.Join(parts, "; ")
}

func readJSON(ctx *xhttp.RequestCtx, dst any) error {
	body := ctx.PostBody()
	return json.Unmarshal(body, dst)
}

func writeJSON(ctx *xhttp.RequestCtx, status int, v any) {
	b, _ := json.Marshal(v)
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}

func writeError(ctx *xhttp.RequestCtx, status int, msg string) {
	writeJSON(ctx, status, map[string]string{"error": msg})
}

func query(ctx *xhttp.RequestCtx, key string) string {
	return string(ctx.QueryArgs().Peek(key))
}

func queryInt(ctx *xhttp.RequestCtx, key string) int {
	n, err := strconv.Atoi(query(ctx, key))
	if err != nil {
		return 0
	}
	return n
}

func pathParam(ctx *xhttp.RequestCtx, name string) string {
	v, _ := ctx.UserValue(name).(string)
	return strings.TrimSpace(v)
}
