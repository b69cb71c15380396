// Package response turns capability results into the uniform API envelope.
package response

import (
	"fmt"
	"net/http"
)

// Messages shared by the dispatch pipeline.
const (
	MsgInternal     = "Internal server error"
	MsgNotFound     = "Route not found"
	MsgRateLimited  = "Too many requests, please try again later"
	MsgUnauthorized = "Unauthorized - missing role"
	MsgInvalidToken = "Unauthorized - invalid or expired token"
	MsgForbidden    = "Forbidden - insufficient role"
)

// Envelope is the body of every API response.
type Envelope struct {
	OK     bool   `json:"ok"`
	Code   int    `json:"code"`
	Data   any    `json:"data,omitempty"`
	Errors string `json:"errors,omitempty"`
}

// Result is what a capability handler returns on the expected path.
// A non-empty Error marks an expected failure. A zero Code means "use the default".
type Result struct {
	Data  any
	Error string
	Code  int
}

// Failed reports whether r carries an expected failure.
func (r Result) Failed() bool { return r.Error != "" }

// OK wraps data as a successful result.
func OK(data any) Result { return Result{Data: data} }

// Fail builds an expected failure with an explicit status code.
func Fail(code int, msg string) Result { return Result{Error: msg, Code: code} }

// Failf is Fail with formatting.
func Failf(code int, format string, args ...any) Result {
	return Fail(code, fmt.Sprintf(format, args...))
}

// Invalid builds a 400 failure.
func Invalid(msg string) Result { return Fail(http.StatusBadRequest, msg) }

// NotFound builds a 404 failure for a missing entity.
func NotFound(msg string) Result { return Fail(http.StatusNotFound, msg) }

// Forbidden builds a 403 failure.
func Forbidden(msg string) Result { return Fail(http.StatusForbidden, msg) }

// Normalize converts a result into its envelope. It has no side effects.
func Normalize(r Result) Envelope {
	if r.Failed() {
		code := r.Code
		if code == 0 {
			code = http.StatusBadRequest
		}
		return Envelope{OK: false, Code: code, Errors: r.Error}
	}

	code := r.Code
	if code == 0 {
		code = http.StatusOK
	}
	return Envelope{OK: true, Code: code, Data: r.Data}
}

// Fault is the envelope for an unexpected failure. The cause is never exposed.
func Fault() Envelope {
	return Envelope{OK: false, Code: http.StatusInternalServerError, Errors: MsgInternal}
}

// RouteNotFound is the envelope for an unresolved route.
func RouteNotFound() Envelope {
	return Envelope{OK: false, Code: http.StatusNotFound, Errors: MsgNotFound}
}

// FromError converts a middleware or pipeline error into an envelope.
// *Error values keep their code and message; anything else is a Fault.
func FromError(err error) Envelope {
	if e, ok := AsError(err); ok {
		return Normalize(Fail(e.Code, e.Message))
	}
	return Fault()
}
