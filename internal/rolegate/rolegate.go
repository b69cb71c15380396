// Package rolegate is the role-based authorization predicate and its
// middleware form. Ownership checks (which school an admin may touch) are
// left to handlers.
package rolegate

import (
	"context"

	"github.com/telhawk-systems/schoolhub/internal/capability"
	"github.com/telhawk-systems/schoolhub/internal/metrics"
	"github.com/telhawk-systems/schoolhub/internal/models"
	"github.com/telhawk-systems/schoolhub/internal/response"
)

// Decision is the outcome of Check.
type Decision int

const (
	Accept Decision = iota
	// Unauthenticated means no identity was presented.
	Unauthenticated
	// Forbidden means an identity was presented but its role is not allowed.
	Forbidden
)

func (d Decision) String() string {
	switch d {
	case Accept:
		return "accept"
	case Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

// Check decides whether identity may pass a gate allowing roles.
func Check(identity *models.Identity, allowed []models.Role) Decision {
	if identity == nil || identity.Role == "" {
		return Unauthenticated
	}
	for _, role := range allowed {
		if identity.Role == role {
			return Accept
		}
	}
	return Forbidden
}

// Require returns a middleware gating on roles: 401 without identity, 403 for
// a role outside the list.
func Require(roles ...models.Role) capability.Middleware {
	allowed := append([]models.Role(nil), roles...)

	return func(ctx context.Context, req *capability.Request) error {
		switch Check(req.Identity, allowed) {
		case Accept:
			return nil
		case Unauthenticated:
			metrics.AuthFailures.WithLabelValues(metrics.ReasonMissingRole).Inc()
			if req.TokenErr != nil {
				return response.ErrUnauthenticated(response.MsgInvalidToken)
			}
			return response.ErrUnauthenticated(response.MsgUnauthorized)
		default:
			metrics.AuthFailures.WithLabelValues(metrics.ReasonInsufficientRole).Inc()
			return response.ErrForbidden(response.MsgForbidden)
		}
	}
}

// Admins allows both administrative roles.
func Admins() capability.Middleware {
	return Require(models.RoleSuperadmin, models.RoleSchooladmin)
}

// Superadmin allows superadmins only.
func Superadmin() capability.Middleware {
	return Require(models.RoleSuperadmin)
}
