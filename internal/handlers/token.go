package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/telhawk-systems/schoolhub/internal/audit"
	"github.com/telhawk-systems/schoolhub/internal/capability"
	"github.com/telhawk-systems/schoolhub/internal/dispatch"
	"github.com/telhawk-systems/schoolhub/internal/metrics"
	"github.com/telhawk-systems/schoolhub/internal/response"
	"github.com/telhawk-systems/schoolhub/internal/tokens"
)

// TokenModule exchanges long tokens for device-bound short tokens. It is
// public: the long token is read from the header, not from the identity.
type TokenModule struct {
	d Deps
}

func NewTokenModule(d Deps) *TokenModule {
	return &TokenModule{d: d.withDefaults()}
}

func (m *TokenModule) Module() capability.Module {
	return capability.Module{
		Name:    "token",
		Exposed: []string{"post=v1_createShortToken"},
		Functions: map[string]capability.Handler{
			"v1_createShortToken": m.createShortToken,
		},
	}
}

type shortToken struct {
	ShortToken string `json:"shortToken"`
}

func (m *TokenModule) createShortToken(ctx context.Context, req *capability.Request) (response.Result, error) {
	entry := audited(req, audit.ActionShortTokenIssue, "token", "", audit.ResultSuccess)

	token, err := m.d.Tokens.CreateShortTokenFromLong(req.Headers.Get(dispatch.TokenHeader), req.Device.Fingerprint)
	if errors.Is(err, tokens.ErrMissingToken) || errors.Is(err, tokens.ErrInvalid) {
		metrics.AuthFailures.WithLabelValues(metrics.ReasonInvalidToken).Inc()
		entry.Result, entry.Reason = audit.ResultFailure, err.Error()
		m.d.Audit.Record(ctx, entry)
		return response.Invalid(err.Error()), nil
	}
	if err != nil {
		return response.Result{}, fmt.Errorf("issue short token: %w", err)
	}
	metrics.TokensIssued.WithLabelValues(string(tokens.KindShort)).Inc()

	entry.Metadata = map[string]any{"fingerprint": req.Device.Fingerprint}
	m.d.Audit.Record(ctx, entry)
	return response.OK(shortToken{ShortToken: token}), nil
}
