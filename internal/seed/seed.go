// Package seed loads and generates fixture data and writes it through the
// repository.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/telhawk-systems/schoolhub/internal/models"
	"github.com/telhawk-systems/schoolhub/internal/password"
	"github.com/telhawk-systems/schoolhub/internal/repository"
)

var ErrUnknownClassroom = errors.New("enrollment names an unknown classroom")

// Fixture is the seed file layout.
type Fixture struct {
	Users   []User   `yaml:"users"`
	Schools []School `yaml:"schools"`
}

// User is a superadmin account. School admins are listed under their school.
type User struct {
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

type School struct {
	Name        string      `yaml:"name"`
	Address     string      `yaml:"address"`
	Phone       string      `yaml:"phone"`
	Email       string      `yaml:"email"`
	Website     string      `yaml:"website"`
	Principal   string      `yaml:"principal"`
	Established *time.Time  `yaml:"established"`
	StaffCount  int         `yaml:"staffCount"`
	Tags        []string    `yaml:"tags"`
	Admins      []User      `yaml:"admins"`
	Classrooms  []Classroom `yaml:"classrooms"`
	Students    []Student   `yaml:"students"`
}

type Classroom struct {
	Name      string   `yaml:"name"`
	Code      string   `yaml:"code"`
	Floor     *int     `yaml:"floor"`
	Capacity  int      `yaml:"capacity"`
	Resources []string `yaml:"resources"`
	IsLab     bool     `yaml:"isLab"`
	Subject   string   `yaml:"subject"`
}

type Student struct {
	FirstName  string            `yaml:"firstName"`
	LastName   string            `yaml:"lastName"`
	Email      string            `yaml:"email"`
	Phone      string            `yaml:"phone"`
	Gender     models.Gender     `yaml:"gender"`
	BirthDate  *time.Time        `yaml:"birthDate"`
	Address    string            `yaml:"address"`
	GradeLevel string            `yaml:"gradeLevel"`
	Guardians  []models.Guardian `yaml:"guardians"`
	// EnrollIn lists classroom names within the same school.
	EnrollIn []string `yaml:"enrollIn"`
}

// Summary counts what Apply created.
type Summary struct {
	Users       int
	Schools     int
	Classrooms  int
	Students    int
	Enrollments int
}

// LoadFile reads a YAML fixture.
func LoadFile(path string) (*Fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var f Fixture
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return &f, nil
}

// Apply inserts the fixture. It stops at the first error; rows already
// written stay written.
func Apply(ctx context.Context, repo repository.Repository, hasher *password.Hasher, f *Fixture, logger *slog.Logger) (Summary, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var sum Summary

	for _, u := range f.Users {
		if err := createUser(ctx, repo, hasher, u, models.RoleSuperadmin, ""); err != nil {
			return sum, err
		}
		sum.Users++
	}

	for _, s := range f.Schools {
		school := &models.School{
			Name:        s.Name,
			Address:     s.Address,
			Phone:       s.Phone,
			Email:       s.Email,
			Website:     s.Website,
			Principal:   s.Principal,
			Established: s.Established,
			StaffCount:  s.StaffCount,
			Tags:        orEmpty(s.Tags),
		}
		if err := repo.CreateSchool(ctx, school); err != nil {
			return sum, fmt.Errorf("create school %q: %w", s.Name, err)
		}
		sum.Schools++

		for _, a := range s.Admins {
			if err := createUser(ctx, repo, hasher, a, models.RoleSchooladmin, school.ID); err != nil {
				return sum, err
			}
			sum.Users++
		}

		rooms := make(map[string]*models.Classroom, len(s.Classrooms))
		for _, c := range s.Classrooms {
			capacity := c.Capacity
			if capacity == 0 {
				capacity = models.DefaultClassroomCapacity
			}
			room := &models.Classroom{
				SchoolID:  school.ID,
				Name:      c.Name,
				Code:      c.Code,
				Floor:     c.Floor,
				Capacity:  capacity,
				Resources: orEmpty(c.Resources),
				IsLab:     c.IsLab,
				Subject:   c.Subject,
			}
			if err := repo.CreateClassroom(ctx, room); err != nil {
				return sum, fmt.Errorf("create classroom %q: %w", c.Name, err)
			}
			rooms[c.Name] = room
			sum.Classrooms++
		}

		for _, st := range s.Students {
			gender := st.Gender
			if gender == "" {
				gender = models.GenderOther
			}
			guardians := st.Guardians
			if guardians == nil {
				guardians = []models.Guardian{}
			}
			student := &models.Student{
				SchoolID:         school.ID,
				FirstName:        st.FirstName,
				LastName:         st.LastName,
				Email:            st.Email,
				Phone:            st.Phone,
				Gender:           gender,
				BirthDate:        st.BirthDate,
				Address:          st.Address,
				GradeLevel:       st.GradeLevel,
				Guardians:        guardians,
				EnrollmentDate:   time.Now().UTC(),
				EnrollmentStatus: models.StatusActive,
			}
			if err := repo.CreateStudent(ctx, student); err != nil {
				return sum, fmt.Errorf("create student %q: %w", st.Email, err)
			}
			sum.Students++

			for _, name := range st.EnrollIn {
				room, ok := rooms[name]
				if !ok {
					return sum, fmt.Errorf("%w: %q in school %q", ErrUnknownClassroom, name, s.Name)
				}
				err := repo.Enroll(ctx, room, student.ID, time.Now().UTC())
				if errors.Is(err, repository.ErrClassroomFull) {
					logger.WarnContext(ctx, "classroom full, skipping enrollment",
						slog.String("classroom", name), slog.String("student", st.Email))
					continue
				}
				if err != nil {
					return sum, fmt.Errorf("enroll %q in %q: %w", st.Email, name, err)
				}
				sum.Enrollments++
			}
		}

		logger.InfoContext(ctx, "seeded school",
			slog.String("school", school.Name),
			slog.Int("classrooms", len(s.Classrooms)),
			slog.Int("students", len(s.Students)),
		)
	}

	return sum, nil
}

func createUser(ctx context.Context, repo repository.UserStore, hasher *password.Hasher, u User, role models.Role, schoolID string) error {
	hash, err := hasher.Hash(u.Password)
	if err != nil {
		return fmt.Errorf("hash password for %q: %w", u.Email, err)
	}
	user := &models.User{
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: hash,
		Role:         role,
		SchoolID:     schoolID,
	}
	if err := repo.CreateUser(ctx, user); err != nil {
		return fmt.Errorf("create user %q: %w", u.Email, err)
	}
	return nil
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
