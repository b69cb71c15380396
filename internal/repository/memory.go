package repository

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/telhawk-systems/schoolhub/internal/models"
)

// InMemoryRepository keeps everything in maps guarded by one lock. Values are
// copied on the way in and out so callers never share state with the store.
type InMemoryRepository struct {
	schools    map[string]*models.School
	classrooms map[string]*models.Classroom
	students   map[string]*models.Student
	users      map[string]*models.User
	now        func() time.Time
	mu         sync.RWMutex
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		schools:    make(map[string]*models.School),
		classrooms: make(map[string]*models.Classroom),
		students:   make(map[string]*models.Student),
		users:      make(map[string]*models.User),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (r *InMemoryRepository) Close() {}

func cloneSchool(s *models.School) *models.School {
	c := *s
	c.Tags = slices.Clone(s.Tags)
	return &c
}

func cloneClassroom(c *models.Classroom) *models.Classroom {
	out := *c
	out.Resources = slices.Clone(c.Resources)
	return &out
}

func cloneStudent(s *models.Student) *models.Student {
	c := *s
	c.Guardians = slices.Clone(s.Guardians)
	c.EnrolledClassrooms = slices.Clone(s.EnrolledClassrooms)
	return &c
}

func cloneUser(u *models.User) *models.User {
	c := *u
	return &c
}

// newestFirst orders by creation time, then id, descending.
func newestFirst(aAt, bAt time.Time, aID, bID string) bool {
	if !aAt.Equal(bAt) {
		return aAt.After(bAt)
	}
	return aID > bID
}

// =============================================================================
// SCHOOLS
// =============================================================================

func (r *InMemoryRepository) CreateSchool(ctx context.Context, school *models.School) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if school.ID == "" {
		school.ID = newID()
	}
	now := r.now()
	school.CreatedAt, school.UpdatedAt = now, now
	r.schools[school.ID] = cloneSchool(school)
	return nil
}

func (r *InMemoryRepository) GetSchool(ctx context.Context, id string) (*models.School, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.schools[id]
	if !ok {
		return nil, ErrSchoolNotFound
	}
	return cloneSchool(s), nil
}

func (r *InMemoryRepository) ListSchools(ctx context.Context) ([]*models.School, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.School, 0, len(r.schools))
	for _, s := range r.schools {
		out = append(out, cloneSchool(s))
	}
	sort.Slice(out, func(i, j int) bool {
		return newestFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return out, nil
}

func (r *InMemoryRepository) UpdateSchool(ctx context.Context, school *models.School) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.schools[school.ID]
	if !ok {
		return ErrSchoolNotFound
	}
	school.CreatedAt = existing.CreatedAt
	school.UpdatedAt = r.now()
	r.schools[school.ID] = cloneSchool(school)
	return nil
}

func (r *InMemoryRepository) DeleteSchool(ctx context.Context, id string) (*models.School, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.schools[id]
	if !ok {
		return nil, ErrSchoolNotFound
	}
	delete(r.schools, id)

	for cid, c := range r.classrooms {
		if c.SchoolID == id {
			r.dropEnrollments(cid)
			delete(r.classrooms, cid)
		}
	}
	for sid, st := range r.students {
		if st.SchoolID == id {
			delete(r.students, sid)
		}
	}
	for uid, u := range r.users {
		if u.SchoolID == id {
			delete(r.users, uid)
		}
	}
	return s, nil
}

// =============================================================================
// CLASSROOMS
// =============================================================================

func (r *InMemoryRepository) CreateClassroom(ctx context.Context, classroom *models.Classroom) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.schools[classroom.SchoolID]; !ok {
		return ErrSchoolNotFound
	}
	if classroom.ID == "" {
		classroom.ID = newID()
	}
	now := r.now()
	classroom.CreatedAt, classroom.UpdatedAt = now, now
	r.classrooms[classroom.ID] = cloneClassroom(classroom)
	return nil
}

func (r *InMemoryRepository) GetClassroom(ctx context.Context, schoolID, id string) (*models.Classroom, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.classrooms[id]
	if !ok || c.SchoolID != schoolID {
		return nil, ErrClassroomNotFound
	}
	return cloneClassroom(c), nil
}

func (r *InMemoryRepository) ListClassrooms(ctx context.Context, schoolID string) ([]*models.Classroom, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Classroom, 0)
	for _, c := range r.classrooms {
		if c.SchoolID == schoolID {
			out = append(out, cloneClassroom(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return newestFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return out, nil
}

func (r *InMemoryRepository) UpdateClassroom(ctx context.Context, classroom *models.Classroom) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.classrooms[classroom.ID]
	if !ok || existing.SchoolID != classroom.SchoolID {
		return ErrClassroomNotFound
	}
	classroom.CreatedAt = existing.CreatedAt
	classroom.UpdatedAt = r.now()
	r.classrooms[classroom.ID] = cloneClassroom(classroom)
	return nil
}

func (r *InMemoryRepository) DeleteClassroom(ctx context.Context, schoolID, id string) (*models.Classroom, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.classrooms[id]
	if !ok || c.SchoolID != schoolID {
		return nil, ErrClassroomNotFound
	}
	delete(r.classrooms, id)
	r.dropEnrollments(id)
	return c, nil
}

func (r *InMemoryRepository) CountEnrolled(ctx context.Context, classroomID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.countEnrolled(classroomID), nil
}

func (r *InMemoryRepository) countEnrolled(classroomID string) int {
	n := 0
	for _, s := range r.students {
		if s.IsEnrolledIn(classroomID) {
			n++
		}
	}
	return n
}

// dropEnrollments must be called with the write lock held.
func (r *InMemoryRepository) dropEnrollments(classroomID string) {
	for _, s := range r.students {
		s.EnrolledClassrooms = slices.DeleteFunc(s.EnrolledClassrooms, func(e models.Enrollment) bool {
			return e.ClassroomID == classroomID
		})
	}
}

// =============================================================================
// STUDENTS
// =============================================================================

func (r *InMemoryRepository) emailTaken(email, exceptID string) bool {
	for _, s := range r.students {
		if s.ID != exceptID && strings.EqualFold(s.Email, email) {
			return true
		}
	}
	return false
}

func (r *InMemoryRepository) CreateStudent(ctx context.Context, student *models.Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.schools[student.SchoolID]; !ok {
		return ErrSchoolNotFound
	}
	if r.emailTaken(student.Email, "") {
		return ErrStudentExists
	}
	if student.ID == "" {
		student.ID = newID()
	}
	now := r.now()
	student.CreatedAt, student.UpdatedAt = now, now
	if student.EnrolledClassrooms == nil {
		student.EnrolledClassrooms = []models.Enrollment{}
	}
	r.students[student.ID] = cloneStudent(student)
	return nil
}

func (r *InMemoryRepository) GetStudent(ctx context.Context, schoolID, id string) (*models.Student, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.students[id]
	if !ok || s.SchoolID != schoolID {
		return nil, ErrStudentNotFound
	}
	return cloneStudent(s), nil
}

func (r *InMemoryRepository) ListStudents(ctx context.Context, schoolID string) ([]*models.Student, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Student, 0)
	for _, s := range r.students {
		if s.SchoolID == schoolID {
			out = append(out, cloneStudent(s))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return newestFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return out, nil
}

func (r *InMemoryRepository) UpdateStudent(ctx context.Context, student *models.Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.students[student.ID]
	if !ok || existing.SchoolID != student.SchoolID {
		return ErrStudentNotFound
	}
	if r.emailTaken(student.Email, student.ID) {
		return ErrStudentExists
	}
	student.CreatedAt = existing.CreatedAt
	student.UpdatedAt = r.now()
	student.EnrolledClassrooms = slices.Clone(existing.EnrolledClassrooms)
	r.students[student.ID] = cloneStudent(student)
	return nil
}

func (r *InMemoryRepository) DeleteStudent(ctx context.Context, schoolID, id string) (*models.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.students[id]
	if !ok || s.SchoolID != schoolID {
		return nil, ErrStudentNotFound
	}
	delete(r.students, id)
	return s, nil
}

func (r *InMemoryRepository) Enroll(ctx context.Context, classroom *models.Classroom, studentID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.classrooms[classroom.ID]
	if !ok {
		return ErrClassroomNotFound
	}
	if r.countEnrolled(stored.ID) >= stored.Capacity {
		return ErrClassroomFull
	}
	s, ok := r.students[studentID]
	if !ok {
		return ErrStudentNotFound
	}
	if s.IsEnrolledIn(classroom.ID) {
		return ErrAlreadyEnrolled
	}
	s.EnrolledClassrooms = append(s.EnrolledClassrooms, models.Enrollment{ClassroomID: classroom.ID, EnrolledDate: at})
	s.UpdatedAt = r.now()
	return nil
}

func (r *InMemoryRepository) TransferStudent(ctx context.Context, id, newSchoolID string) (*models.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.students[id]
	if !ok {
		return nil, ErrStudentNotFound
	}
	if _, ok := r.schools[newSchoolID]; !ok {
		return nil, ErrSchoolNotFound
	}
	s.SchoolID = newSchoolID
	s.EnrollmentStatus = models.StatusTransferred
	s.EnrolledClassrooms = []models.Enrollment{}
	s.UpdatedAt = r.now()
	return cloneStudent(s), nil
}

// =============================================================================
// USERS
// =============================================================================

func (r *InMemoryRepository) CreateUser(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if strings.EqualFold(u.Email, user.Email) || u.Username == user.Username {
			return ErrUserExists
		}
	}
	if user.SchoolID != "" {
		if _, ok := r.schools[user.SchoolID]; !ok {
			return ErrSchoolNotFound
		}
	}
	if user.ID == "" {
		user.ID = newID()
	}
	now := r.now()
	user.CreatedAt, user.UpdatedAt = now, now
	r.users[user.ID] = cloneUser(user)
	return nil
}

func (r *InMemoryRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *InMemoryRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return cloneUser(u), nil
		}
	}
	return nil, ErrUserNotFound
}

var _ Repository = (*InMemoryRepository)(nil)
