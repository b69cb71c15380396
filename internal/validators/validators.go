// Package validators holds the input checks shared by the capability
// handlers. Each check returns the client-facing message of the first
// failure, or "" when the input is acceptable.
package validators

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/telhawk-systems/schoolhub/internal/models"
)

// Rule is a single check paired with its failure message.
type Rule struct {
	OK      bool
	Message string
}

// Required fails when v is blank.
func Required(v, msg string) Rule {
	return Rule{OK: strings.TrimSpace(v) != "", Message: msg}
}

// Present fails when v was supplied but is blank. Absent (nil) passes, so it
// suits partial updates of required fields.
func Present(v *string, msg string) Rule {
	return Rule{OK: v == nil || strings.TrimSpace(*v) != "", Message: msg}
}

// Email fails when v is set but not an address. Blank passes; pair with Required.
func Email(v, msg string) Rule {
	if v == "" {
		return Rule{OK: true}
	}
	addr, err := mail.ParseAddress(v)
	return Rule{OK: err == nil && addr.Address == v, Message: msg}
}

// That wraps an arbitrary condition.
func That(ok bool, msg string) Rule {
	return Rule{OK: ok, Message: msg}
}

// First returns the message of the first failing rule.
func First(rules ...Rule) string {
	for _, r := range rules {
		if !r.OK {
			return r.Message
		}
	}
	return ""
}

// =============================================================================
// USERS
// =============================================================================

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

func UserCreate(username, email, password string, role models.Role, schoolID string) string {
	return First(
		Required(username, "username is required"),
		Required(email, "email is required"),
		Email(email, "email is invalid"),
		Required(password, "password is required"),
		That(len(password) <= MaxPasswordBytes, fmt.Sprintf("password must be at most %d bytes", MaxPasswordBytes)),
		Required(string(role), "role is required (superadmin or schooladmin)"),
		That(role == "" || role.Valid(), "role is required (superadmin or schooladmin)"),
		That(role != models.RoleSchooladmin || schoolID != "", "schoolId is required for schooladmin"),
	)
}

func UserLogin(email, password string) string {
	return First(
		Required(email, "email is required"),
		Required(password, "password is required"),
	)
}

// =============================================================================
// SCHOOLS
// =============================================================================

func SchoolCreate(name, address string) string {
	return First(
		Required(name, "School name is required"),
		Required(address, "School address is required"),
	)
}

// SchoolChanges rejects blanking a required field in a partial update.
func SchoolChanges(name, address *string) string {
	return First(
		Present(name, "School name is required"),
		Present(address, "School address is required"),
	)
}

func SchoolUpdate(schoolID string) string {
	return First(Required(schoolID, "schoolId is required"))
}

// =============================================================================
// CLASSROOMS
// =============================================================================

func ClassroomCreate(schoolID, name string) string {
	return First(
		Required(schoolID, "schoolId is required"),
		Required(name, "Classroom name is required"),
	)
}

func ClassroomUpdate(classroomID, schoolID string) string {
	return First(
		Required(classroomID, "classroomId is required"),
		Required(schoolID, "schoolId is required"),
	)
}

func Capacity(capacity int) string {
	return First(
		That(capacity >= 0, "capacity must not be negative"),
		That(capacity <= models.MaxClassroomCapacity, fmt.Sprintf("capacity must be at most %d", models.MaxClassroomCapacity)),
	)
}

func ClassroomChanges(name *string) string {
	return First(Present(name, "Classroom name is required"))
}

func Enroll(classroomID, studentID string) string {
	return First(That(classroomID != "" && studentID != "", "classroomId and studentId are required"))
}

// =============================================================================
// STUDENTS
// =============================================================================

func StudentCreate(schoolID, firstName, lastName, email string) string {
	return First(
		Required(schoolID, "schoolId is required"),
		Required(firstName, "Student firstName is required"),
		Required(lastName, "Student lastName is required"),
		Required(email, "Student email is required"),
		Email(email, "Student email is invalid"),
	)
}

func StudentUpdate(studentID, schoolID string) string {
	return First(
		Required(studentID, "studentId is required"),
		Required(schoolID, "schoolId is required"),
	)
}

// StudentChanges checks the required fields an update supplies.
func StudentChanges(firstName, lastName, email *string) string {
	var addr string
	if email != nil {
		addr = *email
	}
	return First(
		Present(firstName, "Student firstName is required"),
		Present(lastName, "Student lastName is required"),
		Present(email, "Student email is required"),
		Email(addr, "Student email is invalid"),
	)
}

func StudentTransfer(studentID, newSchoolID string) string {
	return First(
		Required(studentID, "studentId is required"),
		Required(newSchoolID, "newSchoolId is required"),
	)
}

func StudentAttributes(gender models.Gender, status models.EnrollmentStatus) string {
	return First(
		That(gender == "" || gender.Valid(), "gender must be Male, Female or Other"),
		That(status == "" || status.Valid(), "enrollmentStatus is invalid"),
	)
}
