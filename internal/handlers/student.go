package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/telhawk-systems/schoolhub/common/messaging"
	"github.com/telhawk-systems/schoolhub/internal/audit"
	"github.com/telhawk-systems/schoolhub/internal/capability"
	"github.com/telhawk-systems/schoolhub/internal/models"
	"github.com/telhawk-systems/schoolhub/internal/repository"
	"github.com/telhawk-systems/schoolhub/internal/response"
	"github.com/telhawk-systems/schoolhub/internal/rolegate"
	"github.com/telhawk-systems/schoolhub/internal/validators"
)

// StudentModule manages students within a school. Transfers between
// schools are superadmin only.
type StudentModule struct {
	d Deps
}

func NewStudentModule(d Deps) *StudentModule {
	return &StudentModule{d: d.withDefaults()}
}

func (m *StudentModule) Module() capability.Module {
	admins := []capability.Middleware{rolegate.Admins()}
	return capability.Module{
		Name: "student",
		Exposed: []string{
			"post=createStudent",
			"get=listStudents",
			"get=getStudent",
			"put=updateStudent",
			"delete=deleteStudent",
			"patch=transferStudent",
		},
		Functions: map[string]capability.Handler{
			"createStudent":   m.createStudent,
			"listStudents":    m.listStudents,
			"getStudent":      m.getStudent,
			"updateStudent":   m.updateStudent,
			"deleteStudent":   m.deleteStudent,
			"transferStudent": m.transferStudent,
		},
		Middlewares: map[string][]capability.Middleware{
			"createStudent":   admins,
			"listStudents":    admins,
			"getStudent":      admins,
			"updateStudent":   admins,
			"deleteStudent":   admins,
			"transferStudent": {rolegate.Superadmin()},
		},
	}
}

type studentInput struct {
	StudentID        string                   `json:"studentId"`
	SchoolID         string                   `json:"schoolId"`
	FirstName        *string                  `json:"firstName"`
	LastName         *string                  `json:"lastName"`
	Email            *string                  `json:"email"`
	Phone            *string                  `json:"phone"`
	Gender           *models.Gender           `json:"gender"`
	BirthDate        *time.Time               `json:"birthDate"`
	Address          *string                  `json:"address"`
	Guardians        []models.Guardian        `json:"guardians"`
	GradeLevel       *string                  `json:"gradeLevel"`
	EnrollmentDate   *time.Time               `json:"enrollmentDate"`
	EnrollmentStatus *models.EnrollmentStatus `json:"enrollmentStatus"`
}

func (in *studentInput) apply(s *models.Student, params capability.Params) {
	set(&s.FirstName, in.FirstName)
	set(&s.LastName, in.LastName)
	set(&s.Email, in.Email)
	set(&s.Phone, in.Phone)
	set(&s.Gender, in.Gender)
	set(&s.Address, in.Address)
	set(&s.GradeLevel, in.GradeLevel)
	set(&s.EnrollmentDate, in.EnrollmentDate)
	set(&s.EnrollmentStatus, in.EnrollmentStatus)
	if in.BirthDate != nil {
		s.BirthDate = in.BirthDate
	}
	if params.Has("guardians") {
		s.Guardians = in.Guardians
		if s.Guardians == nil {
			s.Guardians = []models.Guardian{}
		}
	}
}

func (in *studentInput) attributes() string {
	var gender models.Gender
	var status models.EnrollmentStatus
	set(&gender, in.Gender)
	set(&status, in.EnrollmentStatus)
	return validators.StudentAttributes(gender, status)
}

func (m *StudentModule) createStudent(ctx context.Context, req *capability.Request) (response.Result, error) {
	var in studentInput
	if res, ok := bind(req, &in); !ok {
		return res, nil
	}
	if res, ok := inSchool(req, in.SchoolID); !ok {
		return res, nil
	}
	if msg := validators.StudentCreate(in.SchoolID, deref(in.FirstName), deref(in.LastName), deref(in.Email)); msg != "" {
		return response.Invalid(msg), nil
	}
	if msg := in.attributes(); msg != "" {
		return response.Invalid(msg), nil
	}

	student := &models.Student{
		SchoolID:           in.SchoolID,
		Gender:             models.GenderOther,
		Guardians:          []models.Guardian{},
		EnrollmentDate:     m.d.Now(),
		EnrollmentStatus:   models.StatusActive,
		EnrolledClassrooms: []models.Enrollment{},
	}
	in.apply(student, req.Params)

	err := m.d.Repo.CreateStudent(ctx, student)
	if errors.Is(err, repository.ErrStudentExists) {
		return response.Invalid(msgStudentEmailExists), nil
	}
	if err != nil {
		return notFound(err, "create student")
	}

	publish(ctx, m.d, req, messaging.SubjectStudentsCreated, student)
	return response.OK(student), nil
}

func (m *StudentModule) listStudents(ctx context.Context, req *capability.Request) (response.Result, error) {
	schoolID := req.Params.String("schoolId")
	if res, ok := inSchool(req, schoolID); !ok {
		return res, nil
	}
	if msg := validators.SchoolUpdate(schoolID); msg != "" {
		return response.Invalid(msg), nil
	}

	students, err := m.d.Repo.ListStudents(ctx, schoolID)
	if err != nil {
		return response.Result{}, fmt.Errorf("list students: %w", err)
	}
	return response.OK(students), nil
}

func (m *StudentModule) getStudent(ctx context.Context, req *capability.Request) (response.Result, error) {
	schoolID, studentID := req.Params.String("schoolId"), req.Params.String("studentId")
	if res, ok := inSchool(req, schoolID); !ok {
		return res, nil
	}
	if msg := validators.StudentUpdate(studentID, schoolID); msg != "" {
		return response.Invalid(msg), nil
	}

	student, err := m.d.Repo.GetStudent(ctx, schoolID, studentID)
	if err != nil {
		return notFound(err, "get student")
	}
	return response.OK(student), nil
}

func (m *StudentModule) updateStudent(ctx context.Context, req *capability.Request) (response.Result, error) {
	var in studentInput
	if res, ok := bind(req, &in); !ok {
		return res, nil
	}
	if res, ok := inSchool(req, in.SchoolID); !ok {
		return res, nil
	}
	if msg := validators.StudentUpdate(in.StudentID, in.SchoolID); msg != "" {
		return response.Invalid(msg), nil
	}
	if msg := in.attributes(); msg != "" {
		return response.Invalid(msg), nil
	}
	if msg := validators.StudentChanges(in.FirstName, in.LastName, in.Email); msg != "" {
		return response.Invalid(msg), nil
	}

	student, err := m.d.Repo.GetStudent(ctx, in.SchoolID, in.StudentID)
	if err != nil {
		return notFound(err, "get student")
	}
	in.apply(student, req.Params)

	err = m.d.Repo.UpdateStudent(ctx, student)
	if errors.Is(err, repository.ErrStudentExists) {
		return response.Invalid(msgStudentEmailExists), nil
	}
	if err != nil {
		return notFound(err, "update student")
	}

	publish(ctx, m.d, req, messaging.SubjectStudentsUpdated, student)
	return response.OK(student), nil
}

func (m *StudentModule) deleteStudent(ctx context.Context, req *capability.Request) (response.Result, error) {
	schoolID, studentID := req.Params.String("schoolId"), req.Params.String("studentId")
	if res, ok := inSchool(req, schoolID); !ok {
		return res, nil
	}
	if msg := validators.StudentUpdate(studentID, schoolID); msg != "" {
		return response.Invalid(msg), nil
	}

	student, err := m.d.Repo.DeleteStudent(ctx, schoolID, studentID)
	if err != nil {
		return notFound(err, "delete student")
	}

	publish(ctx, m.d, req, messaging.SubjectStudentsDeleted, student)
	return response.OK(message{
		Message: fmt.Sprintf("Student '%s %s' deleted", student.FirstName, student.LastName),
	}), nil
}

func (m *StudentModule) transferStudent(ctx context.Context, req *capability.Request) (response.Result, error) {
	studentID, newSchoolID := req.Params.String("studentId"), req.Params.String("newSchoolId")
	if msg := validators.StudentTransfer(studentID, newSchoolID); msg != "" {
		return response.Invalid(msg), nil
	}

	entry := audited(req, audit.ActionStudentTransfer, "student", studentID, audit.ResultSuccess)
	entry.Metadata = map[string]any{"newSchoolId": newSchoolID}

	student, err := m.d.Repo.TransferStudent(ctx, studentID, newSchoolID)
	if err != nil {
		res, ferr := notFound(err, "transfer student")
		if ferr == nil {
			entry.Result, entry.Reason = audit.ResultFailure, res.Error
			m.d.Audit.Record(ctx, entry)
		}
		return res, ferr
	}

	m.d.Audit.Record(ctx, entry)
	publish(ctx, m.d, req, messaging.SubjectStudentsTransferred, student)
	return response.OK(student), nil
}
