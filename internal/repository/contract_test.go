package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telhawk-systems/schoolhub/internal/models"
)

const missingID = "00000000-0000-7000-8000-000000000000"

func fakeSchool() *models.School {
	return &models.School{
		Name:       gofakeit.Company() + " Academy",
		Address:    gofakeit.Street(),
		Phone:      gofakeit.Phone(),
		Email:      gofakeit.Email(),
		Principal:  gofakeit.Name(),
		StaffCount: gofakeit.Number(5, 200),
		Tags:       []string{"public"},
	}
}

func fakeStudent(schoolID string) *models.Student {
	return &models.Student{
		SchoolID:         schoolID,
		FirstName:        gofakeit.FirstName(),
		LastName:         gofakeit.LastName(),
		Email:            gofakeit.UUID() + "@students.example.com",
		Gender:           models.GenderOther,
		Guardians:        []models.Guardian{{Name: gofakeit.Name(), Relationship: "parent"}},
		EnrollmentDate:   time.Now().UTC().Truncate(time.Microsecond),
		EnrollmentStatus: models.StatusActive,
	}
}

// runContract exercises behavior every Repository implementation must share.
func runContract(t *testing.T, newRepo func(t *testing.T) Repository) {
	ctx := context.Background()

	// ========================================================================
	// Schools
	// ========================================================================

	t.Run("school lifecycle", func(t *testing.T) {
		repo := newRepo(t)

		first := fakeSchool()
		require.NoError(t, repo.CreateSchool(ctx, first))
		assert.NotEmpty(t, first.ID)
		assert.False(t, first.CreatedAt.IsZero())

		second := fakeSchool()
		require.NoError(t, repo.CreateSchool(ctx, second))

		got, err := repo.GetSchool(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, first.Name, got.Name)
		assert.Equal(t, []string{"public"}, got.Tags)

		list, err := repo.ListSchools(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, second.ID, list[0].ID, "newest first")

		got.Name = "Renamed"
		require.NoError(t, repo.UpdateSchool(ctx, got))
		again, err := repo.GetSchool(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", again.Name)

		deleted, err := repo.DeleteSchool(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", deleted.Name)

		_, err = repo.GetSchool(ctx, first.ID)
		assert.ErrorIs(t, err, ErrSchoolNotFound)
		_, err = repo.DeleteSchool(ctx, first.ID)
		assert.ErrorIs(t, err, ErrSchoolNotFound)
	})

	t.Run("malformed and unknown ids are not found", func(t *testing.T) {
		repo := newRepo(t)

		for _, id := range []string{"not-a-uuid", missingID} {
			_, err := repo.GetSchool(ctx, id)
			assert.ErrorIs(t, err, ErrSchoolNotFound, id)
			_, err = repo.GetClassroom(ctx, id, id)
			assert.ErrorIs(t, err, ErrClassroomNotFound, id)
			_, err = repo.GetStudent(ctx, id, id)
			assert.ErrorIs(t, err, ErrStudentNotFound, id)
			_, err = repo.GetUserByID(ctx, id)
			assert.ErrorIs(t, err, ErrUserNotFound, id)
			err = repo.UpdateSchool(ctx, &models.School{ID: id, Name: "x", Address: "y"})
			assert.ErrorIs(t, err, ErrSchoolNotFound, id)
		}
	})

	// ========================================================================
	// Classrooms
	// ========================================================================

	t.Run("classrooms are scoped to their school", func(t *testing.T) {
		repo := newRepo(t)
		a, b := fakeSchool(), fakeSchool()
		require.NoError(t, repo.CreateSchool(ctx, a))
		require.NoError(t, repo.CreateSchool(ctx, b))

		floor := 2
		room := &models.Classroom{SchoolID: a.ID, Name: "Lab 1", Floor: &floor, Capacity: 20, IsLab: true, Resources: []string{"microscopes"}}
		require.NoError(t, repo.CreateClassroom(ctx, room))

		got, err := repo.GetClassroom(ctx, a.ID, room.ID)
		require.NoError(t, err)
		require.NotNil(t, got.Floor)
		assert.Equal(t, 2, *got.Floor)
		assert.Equal(t, []string{"microscopes"}, got.Resources)

		_, err = repo.GetClassroom(ctx, b.ID, room.ID)
		assert.ErrorIs(t, err, ErrClassroomNotFound)

		listA, err := repo.ListClassrooms(ctx, a.ID)
		require.NoError(t, err)
		assert.Len(t, listA, 1)
		listB, err := repo.ListClassrooms(ctx, b.ID)
		require.NoError(t, err)
		assert.Empty(t, listB)

		got.SchoolID = b.ID
		assert.ErrorIs(t, repo.UpdateClassroom(ctx, got), ErrClassroomNotFound)

		_, err = repo.DeleteClassroom(ctx, b.ID, room.ID)
		assert.ErrorIs(t, err, ErrClassroomNotFound)
		deleted, err := repo.DeleteClassroom(ctx, a.ID, room.ID)
		require.NoError(t, err)
		assert.Equal(t, "Lab 1", deleted.Name)
	})

	t.Run("classroom requires existing school", func(t *testing.T) {
		repo := newRepo(t)
		err := repo.CreateClassroom(ctx, &models.Classroom{SchoolID: missingID, Name: "Ghost", Capacity: 30})
		assert.ErrorIs(t, err, ErrSchoolNotFound)
	})

	// ========================================================================
	// Students and enrollment
	// ========================================================================

	t.Run("student email is unique", func(t *testing.T) {
		repo := newRepo(t)
		school := fakeSchool()
		require.NoError(t, repo.CreateSchool(ctx, school))

		s := fakeStudent(school.ID)
		require.NoError(t, repo.CreateStudent(ctx, s))
		assert.NotNil(t, s.EnrolledClassrooms)

		dup := fakeStudent(school.ID)
		dup.Email = s.Email
		assert.ErrorIs(t, repo.CreateStudent(ctx, dup), ErrStudentExists)

		got, err := repo.GetStudent(ctx, school.ID, s.ID)
		require.NoError(t, err)
		assert.Equal(t, s.Guardians, got.Guardians)
		assert.Empty(t, got.EnrolledClassrooms)
	})

	t.Run("enrollment rules", func(t *testing.T) {
		repo := newRepo(t)
		school := fakeSchool()
		require.NoError(t, repo.CreateSchool(ctx, school))
		room := &models.Classroom{SchoolID: school.ID, Name: "Small", Capacity: 1}
		require.NoError(t, repo.CreateClassroom(ctx, room))

		s1, s2 := fakeStudent(school.ID), fakeStudent(school.ID)
		require.NoError(t, repo.CreateStudent(ctx, s1))
		require.NoError(t, repo.CreateStudent(ctx, s2))

		at := time.Now().UTC().Truncate(time.Microsecond)
		require.NoError(t, repo.Enroll(ctx, room, s1.ID, at))

		n, err := repo.CountEnrolled(ctx, room.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		assert.ErrorIs(t, repo.Enroll(ctx, room, s2.ID, at), ErrClassroomFull)
		assert.ErrorIs(t, repo.Enroll(ctx, room, missingID, at), ErrClassroomFull, "capacity is checked first")

		room.Capacity = 5
		require.NoError(t, repo.UpdateClassroom(ctx, room))
		assert.ErrorIs(t, repo.Enroll(ctx, room, s1.ID, at), ErrAlreadyEnrolled)
		assert.ErrorIs(t, repo.Enroll(ctx, room, missingID, at), ErrStudentNotFound)
		require.NoError(t, repo.Enroll(ctx, room, s2.ID, at))

		got, err := repo.GetStudent(ctx, school.ID, s1.ID)
		require.NoError(t, err)
		require.Len(t, got.EnrolledClassrooms, 1)
		assert.Equal(t, room.ID, got.EnrolledClassrooms[0].ClassroomID)
		assert.True(t, at.Equal(got.EnrolledClassrooms[0].EnrolledDate))

		_, err = repo.DeleteClassroom(ctx, school.ID, room.ID)
		require.NoError(t, err)
		got, err = repo.GetStudent(ctx, school.ID, s1.ID)
		require.NoError(t, err)
		assert.Empty(t, got.EnrolledClassrooms, "deleting a classroom drops its enrollments")
	})

	t.Run("concurrent enrollment never exceeds capacity", func(t *testing.T) {
		repo := newRepo(t)
		school := fakeSchool()
		require.NoError(t, repo.CreateSchool(ctx, school))
		room := &models.Classroom{SchoolID: school.ID, Name: "Contested", Capacity: 3}
		require.NoError(t, repo.CreateClassroom(ctx, room))

		students := make([]*models.Student, 8)
		for i := range students {
			students[i] = fakeStudent(school.ID)
			require.NoError(t, repo.CreateStudent(ctx, students[i]))
		}

		var wg sync.WaitGroup
		for _, s := range students {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				_ = repo.Enroll(ctx, room, id, time.Now())
			}(s.ID)
		}
		wg.Wait()

		n, err := repo.CountEnrolled(ctx, room.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("transfer", func(t *testing.T) {
		repo := newRepo(t)
		from, to := fakeSchool(), fakeSchool()
		require.NoError(t, repo.CreateSchool(ctx, from))
		require.NoError(t, repo.CreateSchool(ctx, to))
		room := &models.Classroom{SchoolID: from.ID, Name: "A", Capacity: 30}
		require.NoError(t, repo.CreateClassroom(ctx, room))
		s := fakeStudent(from.ID)
		require.NoError(t, repo.CreateStudent(ctx, s))
		require.NoError(t, repo.Enroll(ctx, room, s.ID, time.Now()))

		_, err := repo.TransferStudent(ctx, s.ID, missingID)
		assert.ErrorIs(t, err, ErrSchoolNotFound)
		_, err = repo.TransferStudent(ctx, missingID, to.ID)
		assert.ErrorIs(t, err, ErrStudentNotFound)

		moved, err := repo.TransferStudent(ctx, s.ID, to.ID)
		require.NoError(t, err)
		assert.Equal(t, to.ID, moved.SchoolID)
		assert.Equal(t, models.StatusTransferred, moved.EnrollmentStatus)
		assert.Empty(t, moved.EnrolledClassrooms)

		_, err = repo.GetStudent(ctx, from.ID, s.ID)
		assert.ErrorIs(t, err, ErrStudentNotFound)
		n, err := repo.CountEnrolled(ctx, room.ID)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("deleting a school cascades", func(t *testing.T) {
		repo := newRepo(t)
		school := fakeSchool()
		require.NoError(t, repo.CreateSchool(ctx, school))
		room := &models.Classroom{SchoolID: school.ID, Name: "A", Capacity: 30}
		require.NoError(t, repo.CreateClassroom(ctx, room))
		s := fakeStudent(school.ID)
		require.NoError(t, repo.CreateStudent(ctx, s))
		admin := &models.User{Username: "admin", Email: "admin@example.com", PasswordHash: "x", Role: models.RoleSchooladmin, SchoolID: school.ID}
		require.NoError(t, repo.CreateUser(ctx, admin))

		_, err := repo.DeleteSchool(ctx, school.ID)
		require.NoError(t, err)

		_, err = repo.GetClassroom(ctx, school.ID, room.ID)
		assert.ErrorIs(t, err, ErrClassroomNotFound)
		_, err = repo.GetStudent(ctx, school.ID, s.ID)
		assert.ErrorIs(t, err, ErrStudentNotFound)
		_, err = repo.GetUserByID(ctx, admin.ID)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	// ========================================================================
	// Users
	// ========================================================================

	t.Run("users", func(t *testing.T) {
		repo := newRepo(t)

		root := &models.User{Username: "root", Email: "Root@Example.com", PasswordHash: "hash", Role: models.RoleSuperadmin}
		require.NoError(t, repo.CreateUser(ctx, root))

		got, err := repo.GetUserByEmail(ctx, "root@example.com")
		require.NoError(t, err)
		assert.Equal(t, root.ID, got.ID)
		assert.Equal(t, "hash", got.PasswordHash)
		assert.Empty(t, got.SchoolID)

		byID, err := repo.GetUserByID(ctx, root.ID)
		require.NoError(t, err)
		assert.Equal(t, "root", byID.Username)

		sameEmail := &models.User{Username: "other", Email: "root@example.com", PasswordHash: "h", Role: models.RoleSuperadmin}
		assert.ErrorIs(t, repo.CreateUser(ctx, sameEmail), ErrUserExists)
		sameName := &models.User{Username: "root", Email: "x@example.com", PasswordHash: "h", Role: models.RoleSuperadmin}
		assert.ErrorIs(t, repo.CreateUser(ctx, sameName), ErrUserExists)

		orphan := &models.User{Username: "orphan", Email: "o@example.com", PasswordHash: "h", Role: models.RoleSchooladmin, SchoolID: missingID}
		assert.ErrorIs(t, repo.CreateUser(ctx, orphan), ErrSchoolNotFound)

		_, err = repo.GetUserByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}
