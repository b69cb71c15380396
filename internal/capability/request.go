package capability

import (
	"net/http"

	"github.com/telhawk-systems/schoolhub/common/httputil"
	"github.com/telhawk-systems/schoolhub/internal/models"
)

// Session describes the device session when the caller authenticated with a short token.
type Session struct {
	ID                string
	DeviceFingerprint string
}

// Device carries the caller's device metadata and its derived fingerprint.
type Device struct {
	Meta        httputil.DeviceMeta
	Fingerprint string
}

// Request is the per-request context handed through the middleware chain to
// the handler. It is owned by a single in-flight request.
type Request struct {
	Module   string
	Function string
	Verb     string

	// Params merges query parameters with body fields; body fields win.
	Params  Params
	Headers http.Header

	// Identity is nil until a token is decoded.
	Identity *models.Identity
	Session  *Session
	// TokenErr records why a presented token was rejected.
	TokenErr error

	Device   Device
	ClientIP string
}

// Authenticated reports whether an identity was decoded.
func (r *Request) Authenticated() bool { return r.Identity != nil }
