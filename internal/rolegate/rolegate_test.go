package rolegate

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telhawk-systems/schoolhub/internal/capability"
	"github.com/telhawk-systems/schoolhub/internal/models"
	"github.com/telhawk-systems/schoolhub/internal/response"
)

var (
	superadmin  = &models.Identity{UserID: "u1", Role: models.RoleSuperadmin}
	schooladmin = &models.Identity{UserID: "u2", Role: models.RoleSchooladmin, SchoolID: "s1"}
)

func TestCheck(t *testing.T) {
	tests := []struct {
		name     string
		identity *models.Identity
		allowed  []models.Role
		expected Decision
	}{
		{"no identity", nil, []models.Role{models.RoleSuperadmin}, Unauthenticated},
		{"identity without role", &models.Identity{UserID: "u9"}, []models.Role{models.RoleSuperadmin}, Unauthenticated},
		{"allowed role", superadmin, []models.Role{models.RoleSuperadmin}, Accept},
		{"one of several roles", schooladmin, []models.Role{models.RoleSuperadmin, models.RoleSchooladmin}, Accept},
		{"role not allowed", schooladmin, []models.Role{models.RoleSuperadmin}, Forbidden},
		{"empty allow-list", superadmin, nil, Forbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Check(tt.identity, tt.allowed))
		})
	}
}

func TestRequire(t *testing.T) {
	tests := []struct {
		name     string
		gate     capability.Middleware
		req      *capability.Request
		wantCode int
		wantMsg  string
	}{
		{
			name: "superadmin passes superadmin gate",
			gate: Superadmin(),
			req:  &capability.Request{Identity: superadmin},
		},
		{
			name:     "schooladmin rejected by superadmin gate",
			gate:     Superadmin(),
			req:      &capability.Request{Identity: schooladmin},
			wantCode: http.StatusForbidden,
			wantMsg:  response.MsgForbidden,
		},
		{
			name:     "missing identity",
			gate:     Superadmin(),
			req:      &capability.Request{},
			wantCode: http.StatusUnauthorized,
			wantMsg:  response.MsgUnauthorized,
		},
		{
			name:     "rejected token reported as invalid",
			gate:     Admins(),
			req:      &capability.Request{TokenErr: errors.New("token is expired")},
			wantCode: http.StatusUnauthorized,
			wantMsg:  response.MsgInvalidToken,
		},
		{
			name: "schooladmin passes admins gate",
			gate: Admins(),
			req:  &capability.Request{Identity: schooladmin},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.gate(context.Background(), tt.req)
			if tt.wantCode == 0 {
				assert.NoError(t, err)
				return
			}
			e, ok := response.AsError(err)
			require.True(t, ok, "expected *response.Error, got %v", err)
			assert.Equal(t, tt.wantCode, e.Code)
			assert.Equal(t, tt.wantMsg, e.Message)
		})
	}
}

func TestRequire_CopiesAllowList(t *testing.T) {
	roles := []models.Role{models.RoleSuperadmin}
	gate := Require(roles...)
	roles[0] = models.RoleSchooladmin

	err := gate(context.Background(), &capability.Request{Identity: schooladmin})
	e, ok := response.AsError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, e.Code)
}

func TestDecision_String(t *testing.T) {
	assert.Equal(t, "accept", Accept.String())
	assert.Equal(t, "unauthenticated", Unauthenticated.String())
	assert.Equal(t, "forbidden", Forbidden.String())
	assert.Equal(t, "unknown", Decision(42).String())
}
