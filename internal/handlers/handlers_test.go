package handlers

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/telhawk-systems/schoolhub/common/logging"
	"github.com/telhawk-systems/schoolhub/internal/audit"
	"github.com/telhawk-systems/schoolhub/internal/capability"
	"github.com/telhawk-systems/schoolhub/internal/models"
	"github.com/telhawk-systems/schoolhub/internal/password"
	"github.com/telhawk-systems/schoolhub/internal/repository"
	"github.com/telhawk-systems/schoolhub/internal/response"
	"github.com/telhawk-systems/schoolhub/internal/tokens"
)

// ============================================================================
// Test Setup
// ============================================================================

type published struct {
	subject string
	actor   *models.Identity
	data    any
}

type recordingBus struct {
	mu     sync.Mutex
	events []published
}

func (b *recordingBus) Publish(_ context.Context, subject string, actor *models.Identity, data any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, published{subject: subject, actor: actor, data: data})
}

func (b *recordingBus) subjects() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.subject)
	}
	return out
}

type recordingAudit struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (a *recordingAudit) Record(_ context.Context, e audit.Entry) *audit.Entry {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
	return &e
}

func (a *recordingAudit) last() audit.Entry {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.entries) == 0 {
		return audit.Entry{}
	}
	return a.entries[len(a.entries)-1]
}

var fixedNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	deps   Deps
	repo   *repository.InMemoryRepository
	tokens *tokens.Service
	bus    *recordingBus
	audit  *recordingAudit

	school      *models.School
	superadmin  *models.Identity
	schooladmin *models.Identity
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	svc, err := tokens.NewService(tokens.Config{LongSecret: "long-secret", ShortSecret: "short-secret"})
	require.NoError(t, err)

	e := &testEnv{
		repo:   repository.NewInMemoryRepository(),
		tokens: svc,
		bus:    &recordingBus{},
		audit:  &recordingAudit{},
	}
	e.deps = Deps{
		Repo:   e.repo,
		Hasher: password.NewHasher(bcrypt.MinCost),
		Tokens: svc,
		Events: e.bus,
		Audit:  e.audit,
		Logger: logging.Discard().Logger,
		Now:    func() time.Time { return fixedNow },
	}

	e.school = &models.School{Name: "Central High", Address: "1 Main St", Tags: []string{}}
	require.NoError(t, e.repo.CreateSchool(context.Background(), e.school))

	e.superadmin = &models.Identity{UserID: "root", Role: models.RoleSuperadmin}
	e.schooladmin = &models.Identity{UserID: "admin", Role: models.RoleSchooladmin, SchoolID: e.school.ID}
	return e
}

// call invokes h the way the dispatcher does after the gates passed.
func (e *testEnv) call(t *testing.T, h capability.Handler, id *models.Identity, params capability.Params) response.Envelope {
	t.Helper()
	if params == nil {
		params = capability.Params{}
	}
	req := &capability.Request{
		Params:   params,
		Headers:  map[string][]string{},
		Identity: id,
		ClientIP: "203.0.113.7",
	}
	res, err := h(context.Background(), req)
	require.NoError(t, err)
	return response.Normalize(res)
}

func (e *testEnv) createClassroom(t *testing.T, name string, capacity int) *models.Classroom {
	t.Helper()
	c := &models.Classroom{SchoolID: e.school.ID, Name: name, Capacity: capacity, Resources: []string{}}
	require.NoError(t, e.repo.CreateClassroom(context.Background(), c))
	return c
}

func (e *testEnv) createStudent(t *testing.T, schoolID, first, email string) *models.Student {
	t.Helper()
	s := &models.Student{
		SchoolID:         schoolID,
		FirstName:        first,
		LastName:         "Doe",
		Email:            email,
		Gender:           models.GenderOther,
		EnrollmentStatus: models.StatusActive,
	}
	require.NoError(t, e.repo.CreateStudent(context.Background(), s))
	return s
}
