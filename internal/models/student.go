package models

import "time"

type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale || g == GenderOther
}

type EnrollmentStatus string

const (
	StatusActive      EnrollmentStatus = "active"
	StatusTransferred EnrollmentStatus = "transferred"
	StatusGraduated   EnrollmentStatus = "graduated"
	StatusSuspended   EnrollmentStatus = "suspended"
	StatusInactive    EnrollmentStatus = "inactive"
)

func (s EnrollmentStatus) Valid() bool {
	switch s {
	case StatusActive, StatusTransferred, StatusGraduated, StatusSuspended, StatusInactive:
		return true
	}
	return false
}

type Guardian struct {
	Name         string `json:"name" yaml:"name"`
	Phone        string `json:"phone,omitempty" yaml:"phone"`
	Relationship string `json:"relationship,omitempty" yaml:"relationship"`
}

// Enrollment links a student to a classroom.
type Enrollment struct {
	ClassroomID  string    `json:"classroomId"`
	EnrolledDate time.Time `json:"enrolledDate"`
}

type Student struct {
	ID                 string           `json:"id"`
	SchoolID           string           `json:"schoolId"`
	FirstName          string           `json:"firstName"`
	LastName           string           `json:"lastName"`
	Email              string           `json:"email"`
	Phone              string           `json:"phone,omitempty"`
	Gender             Gender           `json:"gender"`
	BirthDate          *time.Time       `json:"birthDate,omitempty"`
	Address            string           `json:"address,omitempty"`
	Guardians          []Guardian       `json:"guardians"`
	EnrollmentDate     time.Time        `json:"enrollmentDate"`
	EnrollmentStatus   EnrollmentStatus `json:"enrollmentStatus"`
	GradeLevel         string           `json:"gradeLevel,omitempty"`
	EnrolledClassrooms []Enrollment     `json:"enrolledClassrooms"`
	CreatedAt          time.Time        `json:"createdAt"`
	UpdatedAt          time.Time        `json:"updatedAt"`
}

// IsEnrolledIn reports whether the student already holds a seat in classroomID.
func (s *Student) IsEnrolledIn(classroomID string) bool {
	for _, e := range s.EnrolledClassrooms {
		if e.ClassroomID == classroomID {
			return true
		}
	}
	return false
}
