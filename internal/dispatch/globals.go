package dispatch

import (
	"context"
	"log/slog"

	"github.com/telhawk-systems/schoolhub/internal/capability"
	"github.com/telhawk-systems/schoolhub/internal/metrics"
	"github.com/telhawk-systems/schoolhub/internal/models"
	"github.com/telhawk-systems/schoolhub/internal/tokens"
)

// TokenHeader carries either a long or a short token.
const TokenHeader = "token"

// TokenVerifier decodes a token of either kind.
type TokenVerifier interface {
	Verify(raw string) (*models.Identity, *tokens.ShortPayload, error)
}

// Authenticate decodes the token header into the request identity. A missing
// token is not an error here; a rejected one is recorded on the request and
// only surfaces if a gate later requires identity.
func Authenticate(verifier TokenVerifier, logger *slog.Logger) capability.Middleware {
	if logger == nil {
		logger = slog.Default()
	}

	return func(ctx context.Context, req *capability.Request) error {
		raw := req.Headers.Get(TokenHeader)
		if raw == "" {
			return nil
		}

		id, short, err := verifier.Verify(raw)
		if err != nil {
			req.TokenErr = err
			metrics.AuthFailures.WithLabelValues(metrics.ReasonInvalidToken).Inc()
			logger.DebugContext(ctx, "token rejected", slog.String("error", err.Error()))
			return nil
		}

		req.Identity = id
		if short != nil {
			req.Session = &capability.Session{
				ID:                short.SessionID,
				DeviceFingerprint: short.DeviceFingerprint,
			}
		}
		return nil
	}
}

// Fingerprint derives the device fingerprint from the request metadata.
// A short token presented from another device is logged, not rejected.
func Fingerprint(logger *slog.Logger) capability.Middleware {
	if logger == nil {
		logger = slog.Default()
	}

	return func(ctx context.Context, req *capability.Request) error {
		req.Device.Fingerprint = req.Device.Meta.Fingerprint()

		if req.Session != nil && req.Session.DeviceFingerprint != req.Device.Fingerprint {
			logger.InfoContext(ctx, "short token used from a different device",
				slog.String("session_id", req.Session.ID))
		}
		return nil
	}
}
