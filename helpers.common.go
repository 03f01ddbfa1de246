package main

import (
	"context"
	"net/http"
	"strconv"
	"strings"
)

type ContextKey string

const (
	RequestIDPrefix     string     = "r"
	RequestIDContextKey ContextKey = "request.id"
)

// GetValueFromContext returns the value of a given key in the context
// if this key is not available, it returns an empty string.
func GetValueFromContext(ctx context.Context, contextKey ContextKey) string {
	if val := ctx.Value(contextKey); val != nil {
		if s, ok := val.(string); ok {
			return s
		}
	}
	return ""
}

// WithRequestID stores a request id into the context. The transport
// sends it as X-Request-ID instead of generating a fresh one.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDContextKey, id)
}

// QuoteETag wraps a version into double quotes as required by If-Match.
// Values already quoted (strong or weak) are returned unchanged.
func QuoteETag(v string) string {
	if strings.HasPrefix(v, "W/") || (len(v) >= 2 && strings.HasPrefix(v, `"`) && strings.HasSuffix(v, `"`)) {
		return v
	}
	return `"` + v + `"`
}

// ParseETag extracts the numeric version from an ETag header like `"3"` or `W/"3"`.
func ParseETag(etag string) (int, bool) {
	etag = strings.TrimPrefix(strings.TrimSpace(etag), "W/")
	etag = strings.Trim(etag, `"`)
	if etag == "" {
		return 0, false
	}
	v, err := strconv.Atoi(etag)
	if err != nil {
		return 0, false
	}
	return v, true
}

// CreatedID reads the id of a newly created book from the Location header
// of a create response, e.g. `https://host/rest/42`.
func CreatedID(resp *http.Response) (int, error) {
	loc := strings.TrimRight(resp.Header.Get("Location"), "/")
	if loc == "" {
		return 0, missingFieldError("location header")
	}
	id, err := strconv.Atoi(loc[strings.LastIndex(loc, "/")+1:])
	if err != nil {
		return 0, missingFieldError("book id in location header")
	}
	return id, nil
}

type missingFieldError string

func (m missingFieldError) Error() string {
	return string(m) + " is required"
}
