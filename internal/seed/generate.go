package seed

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/telhawk-systems/schoolhub/internal/models"
)

var (
	subjects = []string{"Mathematics", "Physics", "Chemistry", "Biology", "History", "Literature", "Art", "Music"}
	genders  = []string{string(models.GenderMale), string(models.GenderFemale), string(models.GenderOther)}
	grades   = []string{"6", "7", "8", "9", "10", "11", "12"}
)

// Generator builds fake fixtures. The same seed yields the same fixture.
type Generator struct {
	faker *gofakeit.Faker
}

func NewGenerator(seed int64) *Generator {
	return &Generator{faker: gofakeit.New(seed)}
}

// Generate builds a fixture with a random seed.
func Generate(schools, classroomsPer, studentsPer int) *Fixture {
	return NewGenerator(time.Now().UnixNano()).Generate(schools, classroomsPer, studentsPer)
}

// Generate returns one superadmin and, per school, one admin, classroomsPer
// classrooms and studentsPer students each enrolled in one classroom.
// Generated passwords equal the username.
func (g *Generator) Generate(schools, classroomsPer, studentsPer int) *Fixture {
	f := g.faker
	fx := &Fixture{
		Users: []User{{Username: "superadmin", Email: "superadmin@schoolhub.example", Password: "superadmin"}},
	}

	for i := range schools {
		established := f.DateRange(time.Date(1950, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC))
		admin := fmt.Sprintf("admin%d", i+1)
		school := School{
			Name:        f.Company() + " Academy",
			Address:     f.Street(),
			Phone:       f.Phone(),
			Email:       fmt.Sprintf("office%d@schools.example", i+1),
			Website:     f.URL(),
			Principal:   f.Name(),
			Established: &established,
			StaffCount:  f.Number(10, 150),
			Tags:        []string{f.RandomString([]string{"public", "private", "charter"})},
			Admins:      []User{{Username: admin, Email: admin + "@schoolhub.example", Password: admin}},
		}

		for c := range classroomsPer {
			floor := f.Number(0, 4)
			subject := f.RandomString(subjects)
			school.Classrooms = append(school.Classrooms, Classroom{
				Name:      fmt.Sprintf("%s %d", subject, c+1),
				Code:      fmt.Sprintf("R%d%02d", floor, c+1),
				Floor:     &floor,
				Capacity:  f.Number(20, 35),
				Resources: []string{"whiteboard"},
				IsLab:     subject == "Physics" || subject == "Chemistry" || subject == "Biology",
				Subject:   subject,
			})
		}

		for s := range studentsPer {
			first, last := f.FirstName(), f.LastName()
			birth := f.DateRange(time.Date(2006, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC))
			student := Student{
				FirstName:  first,
				LastName:   last,
				Email:      fmt.Sprintf("student%d.%d@students.example", i+1, s+1),
				Phone:      f.Phone(),
				Gender:     models.Gender(f.RandomString(genders)),
				BirthDate:  &birth,
				Address:    f.Street(),
				GradeLevel: f.RandomString(grades),
				Guardians:  []models.Guardian{{Name: f.Name(), Phone: f.Phone(), Relationship: "parent"}},
			}
			if len(school.Classrooms) > 0 {
				student.EnrollIn = []string{school.Classrooms[s%len(school.Classrooms)].Name}
			}
			school.Students = append(school.Students, student)
		}

		fx.Schools = append(fx.Schools, school)
	}
	return fx
}
