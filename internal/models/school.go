package models

import "time"

type School struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Address     string     `json:"address"`
	Phone       string     `json:"phone,omitempty"`
	Email       string     `json:"email,omitempty"`
	Website     string     `json:"website,omitempty"`
	Established *time.Time `json:"established,omitempty"`
	Principal   string     `json:"principal,omitempty"`
	StaffCount  int        `json:"staffCount"`
	Tags        []string   `json:"tags"`
	LogoURL     string     `json:"logoUrl,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// DefaultClassroomCapacity applies when a classroom is created without one.
const DefaultClassroomCapacity = 30

// MaxClassroomCapacity bounds the seats a single classroom may declare.
const MaxClassroomCapacity = 1000

type Classroom struct {
	ID        string    `json:"id"`
	SchoolID  string    `json:"schoolId"`
	Name      string    `json:"name"`
	Code      string    `json:"code,omitempty"`
	Floor     *int      `json:"floor,omitempty"`
	Capacity  int       `json:"capacity"`
	Resources []string  `json:"resources"`
	IsLab     bool      `json:"isLab"`
	Subject   string    `json:"subject,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
