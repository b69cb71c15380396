package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/telhawk-systems/schoolhub/common/messaging"
	"github.com/telhawk-systems/schoolhub/internal/capability"
	"github.com/telhawk-systems/schoolhub/internal/models"
	"github.com/telhawk-systems/schoolhub/internal/response"
	"github.com/telhawk-systems/schoolhub/internal/rolegate"
	"github.com/telhawk-systems/schoolhub/internal/validators"
)

// SchoolModule manages schools. Every function is superadmin only.
type SchoolModule struct {
	d Deps
}

func NewSchoolModule(d Deps) *SchoolModule {
	return &SchoolModule{d: d.withDefaults()}
}

func (m *SchoolModule) Module() capability.Module {
	gate := []capability.Middleware{rolegate.Superadmin()}
	return capability.Module{
		Name: "school",
		Exposed: []string{
			"post=createSchool",
			"get=listSchools",
			"get=getSchool",
			"put=updateSchool",
			"delete=deleteSchool",
		},
		Functions: map[string]capability.Handler{
			"createSchool": m.createSchool,
			"listSchools":  m.listSchools,
			"getSchool":    m.getSchool,
			"updateSchool": m.updateSchool,
			"deleteSchool": m.deleteSchool,
		},
		Middlewares: map[string][]capability.Middleware{
			"createSchool": gate,
			"listSchools":  gate,
			"getSchool":    gate,
			"updateSchool": gate,
			"deleteSchool": gate,
		},
	}
}

type schoolInput struct {
	SchoolID    string     `json:"schoolId"`
	Name        *string    `json:"name"`
	Address     *string    `json:"address"`
	Phone       *string    `json:"phone"`
	Email       *string    `json:"email"`
	Website     *string    `json:"website"`
	Established *time.Time `json:"established"`
	Principal   *string    `json:"principal"`
	StaffCount  *int       `json:"staffCount"`
	Tags        []string   `json:"tags"`
	LogoURL     *string    `json:"logoUrl"`
}

// apply copies the fields present in the request onto s.
func (in *schoolInput) apply(s *models.School, params capability.Params) {
	set(&s.Name, in.Name)
	set(&s.Address, in.Address)
	set(&s.Phone, in.Phone)
	set(&s.Email, in.Email)
	set(&s.Website, in.Website)
	set(&s.Principal, in.Principal)
	set(&s.StaffCount, in.StaffCount)
	set(&s.LogoURL, in.LogoURL)
	if in.Established != nil {
		s.Established = in.Established
	}
	if params.Has("tags") {
		s.Tags = nonNilStrings(in.Tags)
	}
}

func (m *SchoolModule) createSchool(ctx context.Context, req *capability.Request) (response.Result, error) {
	var in schoolInput
	if res, ok := bind(req, &in); !ok {
		return res, nil
	}
	if msg := validators.SchoolCreate(deref(in.Name), deref(in.Address)); msg != "" {
		return response.Invalid(msg), nil
	}

	school := &models.School{Tags: []string{}}
	in.apply(school, req.Params)
	if err := m.d.Repo.CreateSchool(ctx, school); err != nil {
		return response.Result{}, fmt.Errorf("create school: %w", err)
	}

	publish(ctx, m.d, req, messaging.SubjectSchoolsCreated, school)
	return response.OK(school), nil
}

func (m *SchoolModule) listSchools(ctx context.Context, req *capability.Request) (response.Result, error) {
	schools, err := m.d.Repo.ListSchools(ctx)
	if err != nil {
		return response.Result{}, fmt.Errorf("list schools: %w", err)
	}
	return response.OK(schools), nil
}

func (m *SchoolModule) getSchool(ctx context.Context, req *capability.Request) (response.Result, error) {
	schoolID := req.Params.String("schoolId")
	if msg := validators.SchoolUpdate(schoolID); msg != "" {
		return response.Invalid(msg), nil
	}

	school, err := m.d.Repo.GetSchool(ctx, schoolID)
	if err != nil {
		return notFound(err, "get school")
	}
	return response.OK(school), nil
}

func (m *SchoolModule) updateSchool(ctx context.Context, req *capability.Request) (response.Result, error) {
	var in schoolInput
	if res, ok := bind(req, &in); !ok {
		return res, nil
	}
	if msg := validators.SchoolUpdate(in.SchoolID); msg != "" {
		return response.Invalid(msg), nil
	}
	if msg := validators.SchoolChanges(in.Name, in.Address); msg != "" {
		return response.Invalid(msg), nil
	}

	school, err := m.d.Repo.GetSchool(ctx, in.SchoolID)
	if err != nil {
		return notFound(err, "get school")
	}
	in.apply(school, req.Params)
	if err := m.d.Repo.UpdateSchool(ctx, school); err != nil {
		return notFound(err, "update school")
	}

	publish(ctx, m.d, req, messaging.SubjectSchoolsUpdated, school)
	return response.OK(school), nil
}

func (m *SchoolModule) deleteSchool(ctx context.Context, req *capability.Request) (response.Result, error) {
	schoolID := req.Params.String("schoolId")
	if msg := validators.SchoolUpdate(schoolID); msg != "" {
		return response.Invalid(msg), nil
	}

	school, err := m.d.Repo.DeleteSchool(ctx, schoolID)
	if err != nil {
		return notFound(err, "delete school")
	}

	publish(ctx, m.d, req, messaging.SubjectSchoolsDeleted, school)
	return response.OK(message{Message: fmt.Sprintf("School '%s' deleted.", school.Name)}), nil
}
