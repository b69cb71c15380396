package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/telhawk-systems/schoolhub/common/messaging"
	"github.com/telhawk-systems/schoolhub/internal/capability"
	"github.com/telhawk-systems/schoolhub/internal/models"
	"github.com/telhawk-systems/schoolhub/internal/repository"
	"github.com/telhawk-systems/schoolhub/internal/response"
	"github.com/telhawk-systems/schoolhub/internal/rolegate"
	"github.com/telhawk-systems/schoolhub/internal/validators"
)

// ClassroomModule manages classrooms and enrollments within a school.
type ClassroomModule struct {
	d Deps
}

func NewClassroomModule(d Deps) *ClassroomModule {
	return &ClassroomModule{d: d.withDefaults()}
}

func (m *ClassroomModule) Module() capability.Module {
	gate := []capability.Middleware{rolegate.Admins()}
	return capability.Module{
		Name: "classroom",
		Exposed: []string{
			"post=createClassroom",
			"get=listClassrooms",
			"get=getClassroom",
			"put=updateClassroom",
			"delete=deleteClassroom",
			"post=enrollStudentInClassroom",
		},
		Functions: map[string]capability.Handler{
			"createClassroom":          m.createClassroom,
			"listClassrooms":           m.listClassrooms,
			"getClassroom":             m.getClassroom,
			"updateClassroom":          m.updateClassroom,
			"deleteClassroom":          m.deleteClassroom,
			"enrollStudentInClassroom": m.enrollStudent,
		},
		Middlewares: map[string][]capability.Middleware{
			"createClassroom":          gate,
			"listClassrooms":           gate,
			"getClassroom":             gate,
			"updateClassroom":          gate,
			"deleteClassroom":          gate,
			"enrollStudentInClassroom": gate,
		},
	}
}

type classroomInput struct {
	ClassroomID string   `json:"classroomId"`
	SchoolID    string   `json:"schoolId"`
	Name        *string  `json:"name"`
	Code        *string  `json:"code"`
	Floor       *int     `json:"floor"`
	Capacity    *int     `json:"capacity"`
	Resources   []string `json:"resources"`
	IsLab       *bool    `json:"isLab"`
	Subject     *string  `json:"subject"`
}

func (in *classroomInput) apply(c *models.Classroom, params capability.Params) {
	set(&c.Name, in.Name)
	set(&c.Code, in.Code)
	set(&c.Capacity, in.Capacity)
	set(&c.IsLab, in.IsLab)
	set(&c.Subject, in.Subject)
	if in.Floor != nil {
		c.Floor = in.Floor
	}
	if params.Has("resources") {
		c.Resources = nonNilStrings(in.Resources)
	}
}

func (in *classroomInput) capacity() int {
	if in.Capacity == nil {
		return models.DefaultClassroomCapacity
	}
	return *in.Capacity
}

// enrollment is the payload of an enrolled event.
type enrollment struct {
	SchoolID    string `json:"schoolId"`
	ClassroomID string `json:"classroomId"`
	StudentID   string `json:"studentId"`
}

func (m *ClassroomModule) createClassroom(ctx context.Context, req *capability.Request) (response.Result, error) {
	var in classroomInput
	if res, ok := bind(req, &in); !ok {
		return res, nil
	}
	if res, ok := inSchool(req, in.SchoolID); !ok {
		return res, nil
	}
	if msg := validators.ClassroomCreate(in.SchoolID, deref(in.Name)); msg != "" {
		return response.Invalid(msg), nil
	}
	if msg := validators.Capacity(in.capacity()); msg != "" {
		return response.Invalid(msg), nil
	}

	classroom := &models.Classroom{
		SchoolID:  in.SchoolID,
		Capacity:  models.DefaultClassroomCapacity,
		Resources: []string{},
	}
	in.apply(classroom, req.Params)
	if err := m.d.Repo.CreateClassroom(ctx, classroom); err != nil {
		return notFound(err, "create classroom")
	}

	publish(ctx, m.d, req, messaging.SubjectClassroomsCreated, classroom)
	return response.OK(classroom), nil
}

func (m *ClassroomModule) listClassrooms(ctx context.Context, req *capability.Request) (response.Result, error) {
	schoolID := req.Params.String("schoolId")
	if res, ok := inSchool(req, schoolID); !ok {
		return res, nil
	}
	if msg := validators.SchoolUpdate(schoolID); msg != "" {
		return response.Invalid(msg), nil
	}

	classrooms, err := m.d.Repo.ListClassrooms(ctx, schoolID)
	if err != nil {
		return response.Result{}, fmt.Errorf("list classrooms: %w", err)
	}
	return response.OK(classrooms), nil
}

func (m *ClassroomModule) getClassroom(ctx context.Context, req *capability.Request) (response.Result, error) {
	schoolID, classroomID := req.Params.String("schoolId"), req.Params.String("classroomId")
	if res, ok := inSchool(req, schoolID); !ok {
		return res, nil
	}
	if msg := validators.ClassroomUpdate(classroomID, schoolID); msg != "" {
		return response.Invalid(msg), nil
	}

	classroom, err := m.d.Repo.GetClassroom(ctx, schoolID, classroomID)
	if err != nil {
		return notFound(err, "get classroom")
	}
	return response.OK(classroom), nil
}

func (m *ClassroomModule) updateClassroom(ctx context.Context, req *capability.Request) (response.Result, error) {
	var in classroomInput
	if res, ok := bind(req, &in); !ok {
		return res, nil
	}
	if res, ok := inSchool(req, in.SchoolID); !ok {
		return res, nil
	}
	if msg := validators.ClassroomUpdate(in.ClassroomID, in.SchoolID); msg != "" {
		return response.Invalid(msg), nil
	}
	if msg := validators.ClassroomChanges(in.Name); msg != "" {
		return response.Invalid(msg), nil
	}
	if msg := validators.Capacity(in.capacity()); msg != "" {
		return response.Invalid(msg), nil
	}

	classroom, err := m.d.Repo.GetClassroom(ctx, in.SchoolID, in.ClassroomID)
	if err != nil {
		return notFound(err, "get classroom")
	}
	in.apply(classroom, req.Params)
	if err := m.d.Repo.UpdateClassroom(ctx, classroom); err != nil {
		return notFound(err, "update classroom")
	}

	publish(ctx, m.d, req, messaging.SubjectClassroomsUpdated, classroom)
	return response.OK(classroom), nil
}

func (m *ClassroomModule) deleteClassroom(ctx context.Context, req *capability.Request) (response.Result, error) {
	schoolID, classroomID := req.Params.String("schoolId"), req.Params.String("classroomId")
	if res, ok := inSchool(req, schoolID); !ok {
		return res, nil
	}
	if msg := validators.ClassroomUpdate(classroomID, schoolID); msg != "" {
		return response.Invalid(msg), nil
	}

	classroom, err := m.d.Repo.DeleteClassroom(ctx, schoolID, classroomID)
	if err != nil {
		return notFound(err, "delete classroom")
	}

	publish(ctx, m.d, req, messaging.SubjectClassroomsDeleted, classroom)
	return response.OK(message{Message: fmt.Sprintf("Classroom '%s' deleted.", classroom.Name)}), nil
}

func (m *ClassroomModule) enrollStudent(ctx context.Context, req *capability.Request) (response.Result, error) {
	schoolID := req.Params.String("schoolId")
	classroomID, studentID := req.Params.String("classroomId"), req.Params.String("studentId")
	if res, ok := inSchool(req, schoolID); !ok {
		return res, nil
	}
	if msg := validators.Enroll(classroomID, studentID); msg != "" {
		return response.Invalid(msg), nil
	}

	classroom, err := m.d.Repo.GetClassroom(ctx, schoolID, classroomID)
	if err != nil {
		return notFound(err, "get classroom")
	}

	err = m.d.Repo.Enroll(ctx, classroom, studentID, m.d.Now())
	switch {
	case errors.Is(err, repository.ErrClassroomFull):
		return response.Invalid(msgClassroomFull), nil
	case errors.Is(err, repository.ErrAlreadyEnrolled):
		return response.Invalid(msgAlreadyEnrolled), nil
	case err != nil:
		return notFound(err, "enroll student")
	}

	publish(ctx, m.d, req, messaging.SubjectStudentsEnrolled, enrollment{
		SchoolID:    schoolID,
		ClassroomID: classroom.ID,
		StudentID:   studentID,
	})
	return response.OK(message{Message: fmt.Sprintf("Student enrolled in classroom '%s'.", classroom.Name)}), nil
}
