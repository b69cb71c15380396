package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRole_Valid(t *testing.T) {
	assert.True(t, RoleSuperadmin.Valid())
	assert.True(t, RoleSchooladmin.Valid())
	assert.False(t, Role("teacher").Valid())
	assert.False(t, Role("").Valid())
}

func TestIdentity_CanAccessSchool(t *testing.T) {
	tests := []struct {
		name     string
		identity *Identity
		schoolID string
		expected bool
	}{
		{"nil identity", nil, "s1", false},
		{"superadmin any school", &Identity{UserID: "u1", Role: RoleSuperadmin}, "s9", true},
		{"schooladmin own school", &Identity{UserID: "u2", Role: RoleSchooladmin, SchoolID: "s1"}, "s1", true},
		{"schooladmin other school", &Identity{UserID: "u2", Role: RoleSchooladmin, SchoolID: "s1"}, "s2", false},
		{"schooladmin without school", &Identity{UserID: "u2", Role: RoleSchooladmin}, "", false},
		{"unknown role", &Identity{UserID: "u3", Role: "guest"}, "s1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.identity.CanAccessSchool(tt.schoolID))
		})
	}
}

func TestUser_Identity(t *testing.T) {
	admin := &User{ID: "u1", Role: RoleSchooladmin, SchoolID: "s1"}
	assert.Equal(t, Identity{UserID: "u1", Role: RoleSchooladmin, SchoolID: "s1"}, admin.Identity())

	// a stale school link on a superadmin is not carried into the token
	super := &User{ID: "u2", Role: RoleSuperadmin, SchoolID: "s1"}
	assert.Equal(t, Identity{UserID: "u2", Role: RoleSuperadmin}, super.Identity())
}

func TestStudent_IsEnrolledIn(t *testing.T) {
	s := &Student{EnrolledClassrooms: []Enrollment{{ClassroomID: "c1"}}}
	assert.True(t, s.IsEnrolledIn("c1"))
	assert.False(t, s.IsEnrolledIn("c2"))
}

func TestEnums(t *testing.T) {
	assert.True(t, GenderOther.Valid())
	assert.False(t, Gender("unknown").Valid())
	assert.True(t, StatusTransferred.Valid())
	assert.False(t, EnrollmentStatus("expelled").Valid())
}
