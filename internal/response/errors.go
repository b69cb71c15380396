package response

import (
	"errors"
	"net/http"
)

// Error is a pipeline failure with a client-visible status and message.
// Middlewares return it to short-circuit the chain.
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string { return e.Message }

// NewError returns an *Error.
func NewError(code int, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// ErrUnauthenticated is returned when a gate finds no identity.
func ErrUnauthenticated(msg string) *Error { return NewError(http.StatusUnauthorized, msg) }

// ErrForbidden is returned when a gate rejects the identity's role.
func ErrForbidden(msg string) *Error { return NewError(http.StatusForbidden, msg) }

// ErrBadRequest is returned for malformed request input.
func ErrBadRequest(msg string) *Error { return NewError(http.StatusBadRequest, msg) }

// AsError unwraps err to an *Error.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
