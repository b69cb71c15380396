// Package handlers implements the capability modules exposed through the
// dispatcher: school, classroom, student, user and token.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/telhawk-systems/schoolhub/internal/audit"
	"github.com/telhawk-systems/schoolhub/internal/capability"
	"github.com/telhawk-systems/schoolhub/internal/events"
	"github.com/telhawk-systems/schoolhub/internal/password"
	"github.com/telhawk-systems/schoolhub/internal/repository"
	"github.com/telhawk-systems/schoolhub/internal/response"
	"github.com/telhawk-systems/schoolhub/internal/tokens"
)

const (
	msgNotYourSchool      = "Forbidden - not your school"
	msgSchoolNotFound     = "School not found"
	msgClassroomNotFound  = "Classroom not found"
	msgStudentNotFound    = "Student not found"
	msgClassroomFull      = "Classroom is at full capacity"
	msgAlreadyEnrolled    = "Student already enrolled in this classroom"
	msgStudentEmailExists = "Student with this email already exists"
	msgUserExists         = "User already exist"
	msgInvalidCredentials = "Invalid credentials"
	msgMalformedInput     = "Malformed request parameters"
)

// Deps are the collaborators shared by every capability module.
type Deps struct {
	Repo   repository.Repository
	Hasher *password.Hasher
	Tokens *tokens.Service
	Events events.Publisher
	Audit  audit.Recorder
	Logger *slog.Logger

	// Now defaults to time.Now in UTC.
	Now func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Events == nil {
		d.Events = events.Nop{}
	}
	if d.Audit == nil {
		d.Audit = audit.Nop{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Hasher == nil {
		d.Hasher = password.NewHasher(0)
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	return d
}

// Modules returns every capability module in registration order.
func Modules(d Deps) []capability.Module {
	return []capability.Module{
		NewSchoolModule(d).Module(),
		NewClassroomModule(d).Module(),
		NewStudentModule(d).Module(),
		NewUserModule(d).Module(),
		NewTokenModule(d).Module(),
	}
}

// message is the data payload for operations that only confirm an action.
type message struct {
	Message string `json:"message"`
}

// bind decodes params into dst. A decode failure is an expected 400.
func bind(req *capability.Request, dst any) (response.Result, bool) {
	if err := req.Params.Bind(dst); err != nil {
		return response.Invalid(msgMalformedInput), false
	}
	return response.Result{}, true
}

// inSchool enforces that a schooladmin only touches its own school.
func inSchool(req *capability.Request, schoolID string) (response.Result, bool) {
	if !req.Identity.CanAccessSchool(schoolID) {
		return response.Forbidden(msgNotYourSchool), false
	}
	return response.Result{}, true
}

// notFound maps repository lookups to 404 results. Anything else is a fault.
func notFound(err error, op string) (response.Result, error) {
	switch {
	case errors.Is(err, repository.ErrSchoolNotFound):
		return response.NotFound(msgSchoolNotFound), nil
	case errors.Is(err, repository.ErrClassroomNotFound):
		return response.NotFound(msgClassroomNotFound), nil
	case errors.Is(err, repository.ErrStudentNotFound):
		return response.NotFound(msgStudentNotFound), nil
	}
	return response.Result{}, fmt.Errorf("%s: %w", op, err)
}

func audited(req *capability.Request, action, resourceType, resourceID, result string) audit.Entry {
	e := audit.Entry{
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    req.ClientIP,
		Result:       result,
	}
	if req.Identity != nil {
		e.ActorID = req.Identity.UserID
		e.ActorRole = string(req.Identity.Role)
	}
	return e
}

func publish(ctx context.Context, d Deps, req *capability.Request, subject string, data any) {
	d.Events.Publish(ctx, subject, req.Identity, data)
}

// set assigns *src to *dst when src is present.
func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
