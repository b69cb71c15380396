package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telhawk-systems/schoolhub/common/messaging"
	"github.com/telhawk-systems/schoolhub/internal/audit"
	"github.com/telhawk-systems/schoolhub/internal/capability"
	"github.com/telhawk-systems/schoolhub/internal/models"
)

func TestStudent_Create(t *testing.T) {
	e := newTestEnv(t)
	m := NewStudentModule(e.deps)

	valid := func(extra capability.Params) capability.Params {
		p := capability.Params{
			"schoolId":  e.school.ID,
			"firstName": "Ada",
			"lastName":  "Lovelace",
			"email":     "ada@example.com",
		}
		for k, v := range extra {
			p[k] = v
		}
		return p
	}

	tests := []struct {
		name     string
		identity *models.Identity
		params   capability.Params
		wantCode int
		wantErr  string
	}{
		{"other school", e.schooladmin, valid(capability.Params{"schoolId": "other"}), http.StatusForbidden, msgNotYourSchool},
		{"missing first name", e.schooladmin, valid(capability.Params{"firstName": ""}), http.StatusBadRequest, "Student firstName is required"},
		{"missing email", e.schooladmin, valid(capability.Params{"email": ""}), http.StatusBadRequest, "Student email is required"},
		{"bad gender", e.schooladmin, valid(capability.Params{"gender": "Robot"}), http.StatusBadRequest, "gender must be Male, Female or Other"},
		{"bad birth date", e.schooladmin, valid(capability.Params{"birthDate": "someday"}), http.StatusBadRequest, msgMalformedInput},
		{"created", e.schooladmin, valid(nil), http.StatusOK, ""},
		{"duplicate email", e.superadmin, valid(capability.Params{"email": "ADA@example.com"}), http.StatusBadRequest, msgStudentEmailExists},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := e.call(t, m.createStudent, tt.identity, tt.params)
			assert.Equal(t, tt.wantCode, env.Code)
			assert.Equal(t, tt.wantErr, env.Errors)
		})
	}

	students, err := e.repo.ListStudents(context.Background(), e.school.ID)
	require.NoError(t, err)
	require.Len(t, students, 1)
	s := students[0]
	assert.Equal(t, models.GenderOther, s.Gender)
	assert.Equal(t, models.StatusActive, s.EnrollmentStatus)
	assert.Equal(t, fixedNow, s.EnrollmentDate)
	assert.Empty(t, s.Guardians)
	assert.Empty(t, s.EnrolledClassrooms)
}

func TestStudent_CreateWithDetails(t *testing.T) {
	e := newTestEnv(t)
	env := e.call(t, NewStudentModule(e.deps).createStudent, e.superadmin, capability.Params{
		"schoolId":   e.school.ID,
		"firstName":  "Grace",
		"lastName":   "Hopper",
		"email":      "grace@example.com",
		"gender":     "Female",
		"birthDate":  "2012-12-09",
		"gradeLevel": "8",
		"guardians": []any{
			map[string]any{"name": "Walter", "phone": "555-0199", "relationship": "father"},
		},
	})
	require.True(t, env.OK, env.Errors)

	s := env.Data.(*models.Student)
	assert.Equal(t, models.GenderFemale, s.Gender)
	require.NotNil(t, s.BirthDate)
	assert.Equal(t, 2012, s.BirthDate.Year())
	assert.Equal(t, []models.Guardian{{Name: "Walter", Phone: "555-0199", Relationship: "father"}}, s.Guardians)
	assert.Equal(t, []string{messaging.SubjectStudentsCreated}, e.bus.subjects())
}

func TestStudent_GetUpdateDelete(t *testing.T) {
	e := newTestEnv(t)
	m := NewStudentModule(e.deps)
	s := e.createStudent(t, e.school.ID, "Jane", "jane@example.com")
	e.createStudent(t, e.school.ID, "John", "john@example.com")

	env := e.call(t, m.getStudent, e.schooladmin, capability.Params{"schoolId": e.school.ID, "studentId": s.ID})
	require.True(t, env.OK)
	assert.Equal(t, "Jane", env.Data.(*models.Student).FirstName)

	env = e.call(t, m.getStudent, e.schooladmin, capability.Params{"schoolId": e.school.ID})
	assert.Equal(t, "studentId is required", env.Errors)

	env = e.call(t, m.updateStudent, e.schooladmin, capability.Params{
		"schoolId":   e.school.ID,
		"studentId":  s.ID,
		"gradeLevel": "5",
	})
	require.True(t, env.OK, env.Errors)
	assert.Equal(t, "5", env.Data.(*models.Student).GradeLevel)
	assert.Equal(t, "jane@example.com", env.Data.(*models.Student).Email)

	env = e.call(t, m.updateStudent, e.schooladmin, capability.Params{
		"schoolId":  e.school.ID,
		"studentId": s.ID,
		"email":     "john@example.com",
	})
	assert.Equal(t, msgStudentEmailExists, env.Errors)

	blanked := []struct {
		field   string
		wantErr string
	}{
		{"firstName", "Student firstName is required"},
		{"lastName", "Student lastName is required"},
		{"email", "Student email is required"},
	}
	for _, tt := range blanked {
		t.Run("blank "+tt.field, func(t *testing.T) {
			env := e.call(t, m.updateStudent, e.schooladmin, capability.Params{
				"schoolId":  e.school.ID,
				"studentId": s.ID,
				tt.field:    "",
			})
			assert.Equal(t, http.StatusBadRequest, env.Code)
			assert.Equal(t, tt.wantErr, env.Errors)
		})
	}
	stored, err := e.repo.GetStudent(context.Background(), e.school.ID, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane", stored.FirstName)
	assert.Equal(t, "jane@example.com", stored.Email)

	env = e.call(t, m.listStudents, e.schooladmin, capability.Params{"schoolId": e.school.ID})
	require.True(t, env.OK)
	assert.Len(t, env.Data.([]*models.Student), 2)

	env = e.call(t, m.deleteStudent, e.schooladmin, capability.Params{"schoolId": e.school.ID, "studentId": s.ID})
	require.True(t, env.OK)
	assert.Equal(t, message{Message: "Student 'Jane Doe' deleted"}, env.Data)

	env = e.call(t, m.deleteStudent, e.schooladmin, capability.Params{"schoolId": e.school.ID, "studentId": s.ID})
	assert.Equal(t, http.StatusNotFound, env.Code)
	assert.Equal(t, msgStudentNotFound, env.Errors)
}

func TestStudent_Transfer(t *testing.T) {
	e := newTestEnv(t)
	m := NewStudentModule(e.deps)
	s := e.createStudent(t, e.school.ID, "Jane", "jane@example.com")

	other := &models.School{Name: "West", Address: "5 West Ave"}
	require.NoError(t, e.repo.CreateSchool(context.Background(), other))

	tests := []struct {
		name        string
		studentID   string
		newSchoolID string
		wantCode    int
		wantErr     string
	}{
		{"missing target", s.ID, "", http.StatusBadRequest, "newSchoolId is required"},
		{"unknown student", "ghost", other.ID, http.StatusNotFound, msgStudentNotFound},
		{"unknown school", s.ID, "ghost", http.StatusNotFound, msgSchoolNotFound},
		{"transferred", s.ID, other.ID, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := e.call(t, m.transferStudent, e.superadmin, capability.Params{
				"studentId":   tt.studentID,
				"newSchoolId": tt.newSchoolID,
			})
			assert.Equal(t, tt.wantCode, env.Code)
			assert.Equal(t, tt.wantErr, env.Errors)
		})
	}

	moved, err := e.repo.GetStudent(context.Background(), other.ID, s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusTransferred, moved.EnrollmentStatus)

	last := e.audit.last()
	assert.Equal(t, audit.ActionStudentTransfer, last.Action)
	assert.Equal(t, audit.ResultSuccess, last.Result)
	assert.Equal(t, "root", last.ActorID)
	assert.Equal(t, s.ID, last.ResourceID)
	assert.Len(t, e.audit.entries, 3, "validation failures are not audited")
	assert.Equal(t, []string{messaging.SubjectStudentsTransferred}, e.bus.subjects())
}
