package main

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound       = errors.New("book not found")
	ErrUnauthorized   = errors.New("missing or invalid token")
	ErrForbidden      = errors.New("access forbidden")
	ErrConflict       = errors.New("book was modified concurrently")
	ErrHTTP           = errors.New("unexpected http status")
	ErrAuthentication = errors.New("authentication failed")
	ErrVersionUnknown = errors.New("book version unknown")
	ErrInvalidRequest = errors.New("invalid request")
)

// HTTPError is returned for every response outside the 2xx range. It
// unwraps to one of the sentinel errors above so callers can use errors.Is.
// ID is zero when the call does not target a single book.
type HTTPError struct {
	Op      string
	Status  int
	ID      int
	Message string
	kind    error
}

func (e *HTTPError) Error() string {
	if e.ID != 0 {
		return fmt.Sprintf("%s: book %d: %s (status %d)", e.Op, e.ID, e.Message, e.Status)
	}
	return fmt.Sprintf("%s: %s (status %d)", e.Op, e.Message, e.Status)
}

func (e *HTTPError) Unwrap() error {
	return e.kind
}

// newHTTPError classifies a failed status into the error taxonomy.
func newHTTPError(op string, status, id int) *HTTPError {
	kind := ErrHTTP
	switch status {
	case http.StatusNotFound:
		kind = ErrNotFound
	case http.StatusUnauthorized:
		kind = ErrUnauthorized
	case http.StatusForbidden:
		kind = ErrForbidden
	case http.StatusPreconditionFailed, http.StatusPreconditionRequired:
		kind = ErrConflict
	}
	return &HTTPError{Op: op, Status: status, ID: id, Message: kind.Error(), kind: kind}
}

// newAuthError is used by the token endpoint: any failure there is an
// authentication failure regardless of the status.
func newAuthError(status int) *HTTPError {
	return &HTTPError{
		Op:      "get token",
		Status:  status,
		Message: ErrAuthentication.Error(),
		kind:    ErrAuthentication,
	}
}

// StatusOf returns the status carried by err, or 0 when there is none.
func StatusOf(err error) int {
	var herr *HTTPError
	if errors.As(err, &herr) {
		return herr.Status
	}
	return 0
}

// IsSuccess reports whether status is in the 2xx range.
func IsSuccess(status int) bool {
	return status >= 200 && status <= 299
}
