package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/telhawk-systems/schoolhub/common/messaging"
	"github.com/telhawk-systems/schoolhub/internal/audit"
	"github.com/telhawk-systems/schoolhub/internal/capability"
	"github.com/telhawk-systems/schoolhub/internal/metrics"
	"github.com/telhawk-systems/schoolhub/internal/models"
	"github.com/telhawk-systems/schoolhub/internal/password"
	"github.com/telhawk-systems/schoolhub/internal/repository"
	"github.com/telhawk-systems/schoolhub/internal/response"
	"github.com/telhawk-systems/schoolhub/internal/rolegate"
	"github.com/telhawk-systems/schoolhub/internal/tokens"
	"github.com/telhawk-systems/schoolhub/internal/validators"
)

// UserModule creates administrator accounts and logs them in.
type UserModule struct {
	d Deps
}

func NewUserModule(d Deps) *UserModule {
	return &UserModule{d: d.withDefaults()}
}

func (m *UserModule) Module() capability.Module {
	return capability.Module{
		Name:    "user",
		Exposed: []string{"post=createUser", "post=login"},
		Functions: map[string]capability.Handler{
			"createUser": m.createUser,
			"login":      m.login,
		},
		Middlewares: map[string][]capability.Middleware{
			"createUser": {rolegate.Superadmin()},
		},
	}
}

type createUserInput struct {
	Username string      `json:"username"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     models.Role `json:"role"`
	SchoolID string      `json:"schoolId"`
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userWithToken struct {
	User  models.UserView `json:"user"`
	Token string          `json:"token"`
}

func (m *UserModule) createUser(ctx context.Context, req *capability.Request) (response.Result, error) {
	var in createUserInput
	if res, ok := bind(req, &in); !ok {
		return res, nil
	}
	in.Email = strings.TrimSpace(in.Email)
	if msg := validators.UserCreate(in.Username, in.Email, in.Password, in.Role, in.SchoolID); msg != "" {
		return response.Invalid(msg), nil
	}

	hash, err := m.d.Hasher.Hash(in.Password)
	if err != nil {
		return response.Result{}, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
	}
	if in.Role == models.RoleSchooladmin {
		user.SchoolID = in.SchoolID
	}

	entry := audited(req, audit.ActionUserCreate, "user", "", audit.ResultSuccess)
	err = m.d.Repo.CreateUser(ctx, user)
	switch {
	case errors.Is(err, repository.ErrUserExists):
		entry.Result, entry.Reason = audit.ResultFailure, msgUserExists
		m.d.Audit.Record(ctx, entry)
		return response.Invalid(msgUserExists), nil
	case err != nil:
		return notFound(err, "create user")
	}

	token, err := m.d.Tokens.IssueLongToken(user.Identity())
	if err != nil {
		return response.Result{}, fmt.Errorf("issue long token: %w", err)
	}
	metrics.TokensIssued.WithLabelValues(string(tokens.KindLong)).Inc()

	entry.ResourceID = user.ID
	m.d.Audit.Record(ctx, entry)
	publish(ctx, m.d, req, messaging.SubjectUsersCreated, user.View())

	return response.OK(userWithToken{User: user.View(), Token: token}), nil
}

func (m *UserModule) login(ctx context.Context, req *capability.Request) (response.Result, error) {
	var in credentials
	if res, ok := bind(req, &in); !ok {
		return res, nil
	}
	if msg := validators.UserLogin(in.Email, in.Password); msg != "" {
		return response.Invalid(msg), nil
	}

	entry := audited(req, audit.ActionLogin, "user", "", audit.ResultSuccess)
	reject := func(reason string) (response.Result, error) {
		metrics.AuthFailures.WithLabelValues(metrics.ReasonInvalidCredentials).Inc()
		entry.Result, entry.Reason = audit.ResultFailure, reason
		entry.Metadata = map[string]any{"email": in.Email}
		m.d.Audit.Record(ctx, entry)
		return response.Fail(http.StatusUnauthorized, msgInvalidCredentials), nil
	}

	user, err := m.d.Repo.GetUserByEmail(ctx, strings.TrimSpace(in.Email))
	if errors.Is(err, repository.ErrUserNotFound) {
		return reject("unknown email")
	}
	if err != nil {
		return response.Result{}, fmt.Errorf("get user: %w", err)
	}

	err = m.d.Hasher.Compare(user.PasswordHash, in.Password)
	if errors.Is(err, password.ErrMismatch) {
		entry.ResourceID = user.ID
		return reject("password mismatch")
	}
	if err != nil {
		return response.Result{}, fmt.Errorf("compare password: %w", err)
	}

	token, err := m.d.Tokens.IssueLongToken(user.Identity())
	if err != nil {
		return response.Result{}, fmt.Errorf("issue long token: %w", err)
	}
	metrics.TokensIssued.WithLabelValues(string(tokens.KindLong)).Inc()

	entry.ResourceID = user.ID
	entry.ActorID, entry.ActorRole = user.ID, string(user.Role)
	m.d.Audit.Record(ctx, entry)

	return response.OK(userWithToken{User: user.View(), Token: token}), nil
}
