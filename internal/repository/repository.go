package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/telhawk-systems/schoolhub/internal/models"
)

var (
	ErrSchoolNotFound    = errors.New("school not found")
	ErrClassroomNotFound = errors.New("classroom not found")
	ErrStudentNotFound   = errors.New("student not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrStudentExists     = errors.New("student already exists")
	ErrUserExists        = errors.New("user already exists")
	ErrClassroomFull     = errors.New("classroom is at full capacity")
	ErrAlreadyEnrolled   = errors.New("student already enrolled in classroom")
)

// SchoolStore persists schools. Deleting a school removes its classrooms,
// students and school admins.
type SchoolStore interface {
	CreateSchool(ctx context.Context, school *models.School) error
	GetSchool(ctx context.Context, id string) (*models.School, error)
	// ListSchools returns every school, newest first.
	ListSchools(ctx context.Context) ([]*models.School, error)
	UpdateSchool(ctx context.Context, school *models.School) error
	DeleteSchool(ctx context.Context, id string) (*models.School, error)
}

// ClassroomStore persists classrooms. Lookups are scoped to a school.
type ClassroomStore interface {
	CreateClassroom(ctx context.Context, classroom *models.Classroom) error
	GetClassroom(ctx context.Context, schoolID, id string) (*models.Classroom, error)
	ListClassrooms(ctx context.Context, schoolID string) ([]*models.Classroom, error)
	UpdateClassroom(ctx context.Context, classroom *models.Classroom) error
	DeleteClassroom(ctx context.Context, schoolID, id string) (*models.Classroom, error)
	// CountEnrolled returns the number of students holding a seat in the classroom.
	CountEnrolled(ctx context.Context, classroomID string) (int, error)
}

// StudentStore persists students and their classroom enrollments.
type StudentStore interface {
	CreateStudent(ctx context.Context, student *models.Student) error
	GetStudent(ctx context.Context, schoolID, id string) (*models.Student, error)
	ListStudents(ctx context.Context, schoolID string) ([]*models.Student, error)
	UpdateStudent(ctx context.Context, student *models.Student) error
	DeleteStudent(ctx context.Context, schoolID, id string) (*models.Student, error)

	// Enroll seats the student in the classroom. Capacity is checked before
	// the student is looked up, and both checks and the insert are atomic.
	Enroll(ctx context.Context, classroom *models.Classroom, studentID string, at time.Time) error
	// TransferStudent moves a student to another school, marks it transferred
	// and drops its enrollments in the old school's classrooms.
	TransferStudent(ctx context.Context, id, newSchoolID string) (*models.Student, error)
}

// UserStore persists administrator accounts. Email and username are unique.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

type Repository interface {
	SchoolStore
	ClassroomStore
	StudentStore
	UserStore
}

// newID returns a time-ordered UUID.
func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// validID reports whether id parses as a UUID. Malformed ids are simply
// never found.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
