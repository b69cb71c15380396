package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/telhawk-systems/schoolhub/common/database"
	"github.com/telhawk-systems/schoolhub/internal/models"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgInvalidText         = "22P02"
)

type PostgresRepository struct {
	pool *pgxpool.Pool
}

// PoolConfig tunes the connection pool. Zero values keep the pgxpool defaults.
type PoolConfig struct {
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

func NewPostgresRepository(ctx context.Context, connString string, pc PoolConfig) (*PostgresRepository, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	if pc.MaxConns > 0 {
		config.MaxConns = pc.MaxConns
	}
	if pc.MinConns > 0 {
		config.MinConns = pc.MinConns
	}
	if pc.MaxConnLifetime > 0 {
		config.MaxConnLifetime = pc.MaxConnLifetime
	}
	if pc.MaxConnIdleTime > 0 {
		config.MaxConnIdleTime = pc.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

func (r *PostgresRepository) Close() {
	r.pool.Close()
}

// Ping checks database connectivity.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// isNotFound reports a missing row or a malformed UUID.
func isNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || pgCode(err) == pgInvalidText
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// =============================================================================
// SCHOOLS
// =============================================================================

const schoolColumns = `id, name, address, phone, email, website, established, principal,
	staff_count, tags, logo_url, created_at, updated_at`

func scanSchool(row pgx.Row) (*models.School, error) {
	var s models.School
	err := row.Scan(&s.ID, &s.Name, &s.Address, &s.Phone, &s.Email, &s.Website, &s.Established,
		&s.Principal, &s.StaffCount, &s.Tags, &s.LogoURL, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *PostgresRepository) CreateSchool(ctx context.Context, school *models.School) error {
	ctx, cancel := database.WriteContext(ctx)
	defer cancel()

	if school.ID == "" {
		school.ID = newID()
	}

	query := `
		INSERT INTO schools (id, name, address, phone, email, website, established, principal,
		                     staff_count, tags, logo_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		school.ID, school.Name, school.Address, school.Phone, school.Email, school.Website,
		school.Established, school.Principal, school.StaffCount, nonNil(school.Tags), school.LogoURL,
	).Scan(&school.CreatedAt, &school.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create school: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetSchool(ctx context.Context, id string) (*models.School, error) {
	if !validID(id) {
		return nil, ErrSchoolNotFound
	}

	ctx, cancel := database.QueryContext(ctx)
	defer cancel()

	s, err := scanSchool(r.pool.QueryRow(ctx, `SELECT `+schoolColumns+` FROM schools WHERE id = $1`, id))
	if err != nil {
		if isNotFound(err) {
			return nil, ErrSchoolNotFound
		}
		return nil, fmt.Errorf("failed to get school: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) ListSchools(ctx context.Context) ([]*models.School, error) {
	ctx, cancel := database.QueryContext(ctx)
	defer cancel()

	rows, err := r.pool.Query(ctx, `SELECT `+schoolColumns+` FROM schools ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list schools: %w", err)
	}
	defer rows.Close()

	schools := make([]*models.School, 0)
	for rows.Next() {
		s, err := scanSchool(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan school: %w", err)
		}
		schools = append(schools, s)
	}
	return schools, rows.Err()
}

func (r *PostgresRepository) UpdateSchool(ctx context.Context, school *models.School) error {
	if !validID(school.ID) {
		return ErrSchoolNotFound
	}

	ctx, cancel := database.WriteContext(ctx)
	defer cancel()

	query := `
		UPDATE schools
		SET name = $2, address = $3, phone = $4, email = $5, website = $6, established = $7,
		    principal = $8, staff_count = $9, tags = $10, logo_url = $11, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		school.ID, school.Name, school.Address, school.Phone, school.Email, school.Website,
		school.Established, school.Principal, school.StaffCount, nonNil(school.Tags), school.LogoURL,
	).Scan(&school.CreatedAt, &school.UpdatedAt)
	if err != nil {
		if isNotFound(err) {
			return ErrSchoolNotFound
		}
		return fmt.Errorf("failed to update school: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteSchool(ctx context.Context, id string) (*models.School, error) {
	if !validID(id) {
		return nil, ErrSchoolNotFound
	}

	ctx, cancel := database.WriteContext(ctx)
	defer cancel()

	s, err := scanSchool(r.pool.QueryRow(ctx, `DELETE FROM schools WHERE id = $1 RETURNING `+schoolColumns, id))
	if err != nil {
		if isNotFound(err) {
			return nil, ErrSchoolNotFound
		}
		return nil, fmt.Errorf("failed to delete school: %w", err)
	}
	return s, nil
}

// =============================================================================
// CLASSROOMS
// =============================================================================

const classroomColumns = `id, school_id, name, code, floor, capacity, resources, is_lab, subject,
	created_at, updated_at`

func scanClassroom(row pgx.Row) (*models.Classroom, error) {
	var c models.Classroom
	err := row.Scan(&c.ID, &c.SchoolID, &c.Name, &c.Code, &c.Floor, &c.Capacity, &c.Resources,
		&c.IsLab, &c.Subject, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *PostgresRepository) CreateClassroom(ctx context.Context, classroom *models.Classroom) error {
	if !validID(classroom.SchoolID) {
		return ErrSchoolNotFound
	}

	ctx, cancel := database.WriteContext(ctx)
	defer cancel()

	if classroom.ID == "" {
		classroom.ID = newID()
	}

	query := `
		INSERT INTO classrooms (id, school_id, name, code, floor, capacity, resources, is_lab, subject)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		classroom.ID, classroom.SchoolID, classroom.Name, classroom.Code, classroom.Floor,
		classroom.Capacity, nonNil(classroom.Resources), classroom.IsLab, classroom.Subject,
	).Scan(&classroom.CreatedAt, &classroom.UpdatedAt)
	if err != nil {
		switch pgCode(err) {
		case pgForeignKeyViolation, pgInvalidText:
			return ErrSchoolNotFound
		}
		return fmt.Errorf("failed to create classroom: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetClassroom(ctx context.Context, schoolID, id string) (*models.Classroom, error) {
	if !validID(schoolID) || !validID(id) {
		return nil, ErrClassroomNotFound
	}

	ctx, cancel := database.QueryContext(ctx)
	defer cancel()

	c, err := scanClassroom(r.pool.QueryRow(ctx,
		`SELECT `+classroomColumns+` FROM classrooms WHERE id = $1 AND school_id = $2`, id, schoolID))
	if err != nil {
		if isNotFound(err) {
			return nil, ErrClassroomNotFound
		}
		return nil, fmt.Errorf("failed to get classroom: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) ListClassrooms(ctx context.Context, schoolID string) ([]*models.Classroom, error) {
	if !validID(schoolID) {
		return []*models.Classroom{}, nil
	}

	ctx, cancel := database.QueryContext(ctx)
	defer cancel()

	rows, err := r.pool.Query(ctx,
		`SELECT `+classroomColumns+` FROM classrooms WHERE school_id = $1 ORDER BY created_at DESC, id DESC`, schoolID)
	if err != nil {
		return nil, fmt.Errorf("failed to list classrooms: %w", err)
	}
	defer rows.Close()

	classrooms := make([]*models.Classroom, 0)
	for rows.Next() {
		c, err := scanClassroom(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan classroom: %w", err)
		}
		classrooms = append(classrooms, c)
	}
	return classrooms, rows.Err()
}

func (r *PostgresRepository) UpdateClassroom(ctx context.Context, classroom *models.Classroom) error {
	if !validID(classroom.SchoolID) || !validID(classroom.ID) {
		return ErrClassroomNotFound
	}

	ctx, cancel := database.WriteContext(ctx)
	defer cancel()

	query := `
		UPDATE classrooms
		SET name = $3, code = $4, floor = $5, capacity = $6, resources = $7, is_lab = $8,
		    subject = $9, updated_at = NOW()
		WHERE id = $1 AND school_id = $2
		RETURNING created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		classroom.ID, classroom.SchoolID, classroom.Name, classroom.Code, classroom.Floor,
		classroom.Capacity, nonNil(classroom.Resources), classroom.IsLab, classroom.Subject,
	).Scan(&classroom.CreatedAt, &classroom.UpdatedAt)
	if err != nil {
		if isNotFound(err) {
			return ErrClassroomNotFound
		}
		return fmt.Errorf("failed to update classroom: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteClassroom(ctx context.Context, schoolID, id string) (*models.Classroom, error) {
	if !validID(schoolID) || !validID(id) {
		return nil, ErrClassroomNotFound
	}

	ctx, cancel := database.WriteContext(ctx)
	defer cancel()

	c, err := scanClassroom(r.pool.QueryRow(ctx,
		`DELETE FROM classrooms WHERE id = $1 AND school_id = $2 RETURNING `+classroomColumns, id, schoolID))
	if err != nil {
		if isNotFound(err) {
			return nil, ErrClassroomNotFound
		}
		return nil, fmt.Errorf("failed to delete classroom: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) CountEnrolled(ctx context.Context, classroomID string) (int, error) {
	if !validID(classroomID) {
		return 0, nil
	}

	ctx, cancel := database.QueryContext(ctx)
	defer cancel()

	var n int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM enrollments WHERE classroom_id = $1`, classroomID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count enrollments: %w", err)
	}
	return n, nil
}

// =============================================================================
// STUDENTS
// =============================================================================

const studentColumns = `id, school_id, first_name, last_name, email, phone, gender, birth_date,
	address, guardians, grade_level, enrollment_date, enrollment_status, created_at, updated_at`

func scanStudent(row pgx.Row) (*models.Student, error) {
	var (
		s         models.Student
		guardians []byte
	)
	err := row.Scan(&s.ID, &s.SchoolID, &s.FirstName, &s.LastName, &s.Email, &s.Phone, &s.Gender,
		&s.BirthDate, &s.Address, &guardians, &s.GradeLevel, &s.EnrollmentDate, &s.EnrollmentStatus,
		&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(guardians, &s.Guardians); err != nil {
		return nil, fmt.Errorf("failed to decode guardians: %w", err)
	}
	s.Guardians = nonNil(s.Guardians)
	s.EnrolledClassrooms = []models.Enrollment{}
	return &s, nil
}

// loadEnrollments fills EnrolledClassrooms for students.
func (r *PostgresRepository) loadEnrollments(ctx context.Context, students ...*models.Student) error {
	if len(students) == 0 {
		return nil
	}

	byID := make(map[string]*models.Student, len(students))
	ids := make([]string, 0, len(students))
	for _, s := range students {
		byID[s.ID] = s
		ids = append(ids, s.ID)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT student_id, classroom_id, enrolled_date
		FROM enrollments
		WHERE student_id = ANY($1::text[]::uuid[])
		ORDER BY enrolled_date, classroom_id
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to load enrollments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			studentID string
			e         models.Enrollment
		)
		if err := rows.Scan(&studentID, &e.ClassroomID, &e.EnrolledDate); err != nil {
			return fmt.Errorf("failed to scan enrollment: %w", err)
		}
		if s, ok := byID[studentID]; ok {
			s.EnrolledClassrooms = append(s.EnrolledClassrooms, e)
		}
	}
	return rows.Err()
}

func (r *PostgresRepository) CreateStudent(ctx context.Context, student *models.Student) error {
	if !validID(student.SchoolID) {
		return ErrSchoolNotFound
	}

	ctx, cancel := database.WriteContext(ctx)
	defer cancel()

	if student.ID == "" {
		student.ID = newID()
	}
	guardians, err := json.Marshal(nonNil(student.Guardians))
	if err != nil {
		return fmt.Errorf("failed to encode guardians: %w", err)
	}

	query := `
		INSERT INTO students (id, school_id, first_name, last_name, email, phone, gender, birth_date,
		                      address, guardians, grade_level, enrollment_date, enrollment_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at
	`
	err = r.pool.QueryRow(ctx, query,
		student.ID, student.SchoolID, student.FirstName, student.LastName, student.Email, student.Phone,
		student.Gender, student.BirthDate, student.Address, guardians, student.GradeLevel,
		student.EnrollmentDate, student.EnrollmentStatus,
	).Scan(&student.CreatedAt, &student.UpdatedAt)
	if err != nil {
		switch pgCode(err) {
		case pgUniqueViolation:
			return ErrStudentExists
		case pgForeignKeyViolation, pgInvalidText:
			return ErrSchoolNotFound
		}
		return fmt.Errorf("failed to create student: %w", err)
	}
	student.EnrolledClassrooms = nonNil(student.EnrolledClassrooms)
	return nil
}

func (r *PostgresRepository) GetStudent(ctx context.Context, schoolID, id string) (*models.Student, error) {
	if !validID(schoolID) || !validID(id) {
		return nil, ErrStudentNotFound
	}

	ctx, cancel := database.QueryContext(ctx)
	defer cancel()

	s, err := scanStudent(r.pool.QueryRow(ctx,
		`SELECT `+studentColumns+` FROM students WHERE id = $1 AND school_id = $2`, id, schoolID))
	if err != nil {
		if isNotFound(err) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	if err := r.loadEnrollments(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *PostgresRepository) ListStudents(ctx context.Context, schoolID string) ([]*models.Student, error) {
	if !validID(schoolID) {
		return []*models.Student{}, nil
	}

	ctx, cancel := database.QueryContext(ctx)
	defer cancel()

	rows, err := r.pool.Query(ctx,
		`SELECT `+studentColumns+` FROM students WHERE school_id = $1 ORDER BY created_at DESC, id DESC`, schoolID)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}

	students := make([]*models.Student, 0)
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan student: %w", err)
		}
		students = append(students, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}

	if err := r.loadEnrollments(ctx, students...); err != nil {
		return nil, err
	}
	return students, nil
}

func (r *PostgresRepository) UpdateStudent(ctx context.Context, student *models.Student) error {
	if !validID(student.SchoolID) || !validID(student.ID) {
		return ErrStudentNotFound
	}

	ctx, cancel := database.WriteContext(ctx)
	defer cancel()

	guardians, err := json.Marshal(nonNil(student.Guardians))
	if err != nil {
		return fmt.Errorf("failed to encode guardians: %w", err)
	}

	query := `
		UPDATE students
		SET first_name = $3, last_name = $4, email = $5, phone = $6, gender = $7, birth_date = $8,
		    address = $9, guardians = $10, grade_level = $11, enrollment_date = $12,
		    enrollment_status = $13, updated_at = NOW()
		WHERE id = $1 AND school_id = $2
		RETURNING created_at, updated_at
	`
	err = r.pool.QueryRow(ctx, query,
		student.ID, student.SchoolID, student.FirstName, student.LastName, student.Email, student.Phone,
		student.Gender, student.BirthDate, student.Address, guardians, student.GradeLevel,
		student.EnrollmentDate, student.EnrollmentStatus,
	).Scan(&student.CreatedAt, &student.UpdatedAt)
	if err != nil {
		if pgCode(err) == pgUniqueViolation {
			return ErrStudentExists
		}
		if isNotFound(err) {
			return ErrStudentNotFound
		}
		return fmt.Errorf("failed to update student: %w", err)
	}
	student.EnrolledClassrooms = []models.Enrollment{}
	return r.loadEnrollments(ctx, student)
}

func (r *PostgresRepository) DeleteStudent(ctx context.Context, schoolID, id string) (*models.Student, error) {
	if !validID(schoolID) || !validID(id) {
		return nil, ErrStudentNotFound
	}

	ctx, cancel := database.WriteContext(ctx)
	defer cancel()

	s, err := scanStudent(r.pool.QueryRow(ctx,
		`DELETE FROM students WHERE id = $1 AND school_id = $2 RETURNING `+studentColumns, id, schoolID))
	if err != nil {
		if isNotFound(err) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to delete student: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) Enroll(ctx context.Context, classroom *models.Classroom, studentID string, at time.Time) error {
	if !validID(classroom.ID) {
		return ErrClassroomNotFound
	}

	ctx, cancel := database.TxContext(ctx)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// The row lock serializes concurrent enrollments into the same classroom.
	var capacity int
	err = tx.QueryRow(ctx, `SELECT capacity FROM classrooms WHERE id = $1 FOR UPDATE`, classroom.ID).Scan(&capacity)
	if err != nil {
		if isNotFound(err) {
			return ErrClassroomNotFound
		}
		return fmt.Errorf("failed to lock classroom: %w", err)
	}

	var enrolled int
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM enrollments WHERE classroom_id = $1`, classroom.ID).Scan(&enrolled); err != nil {
		return fmt.Errorf("failed to count enrollments: %w", err)
	}
	if enrolled >= capacity {
		return ErrClassroomFull
	}

	if !validID(studentID) {
		return ErrStudentNotFound
	}
	var exists bool
	err = tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM students WHERE id = $1)`, studentID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to look up student: %w", err)
	}
	if !exists {
		return ErrStudentNotFound
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO enrollments (student_id, classroom_id, enrolled_date) VALUES ($1, $2, $3)`,
		studentID, classroom.ID, at)
	if err != nil {
		if pgCode(err) == pgUniqueViolation {
			return ErrAlreadyEnrolled
		}
		return fmt.Errorf("failed to enroll student: %w", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE students SET updated_at = NOW() WHERE id = $1`, studentID); err != nil {
		return fmt.Errorf("failed to touch student: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit enrollment: %w", err)
	}
	return nil
}

func (r *PostgresRepository) TransferStudent(ctx context.Context, id, newSchoolID string) (*models.Student, error) {
	if !validID(id) {
		return nil, ErrStudentNotFound
	}

	ctx, cancel := database.TxContext(ctx)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	s, err := scanStudent(tx.QueryRow(ctx,
		`SELECT `+studentColumns+` FROM students WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if isNotFound(err) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to get student: %w", err)
	}

	if !validID(newSchoolID) {
		return nil, ErrSchoolNotFound
	}
	var schoolExists bool
	err = tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM schools WHERE id = $1)`, newSchoolID).Scan(&schoolExists)
	if err != nil {
		return nil, fmt.Errorf("failed to look up school: %w", err)
	}
	if !schoolExists {
		return nil, ErrSchoolNotFound
	}

	if _, err := tx.Exec(ctx, `DELETE FROM enrollments WHERE student_id = $1`, id); err != nil {
		return nil, fmt.Errorf("failed to drop enrollments: %w", err)
	}
	err = tx.QueryRow(ctx, `
		UPDATE students
		SET school_id = $2, enrollment_status = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`, id, newSchoolID, models.StatusTransferred).Scan(&s.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to transfer student: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transfer: %w", err)
	}

	s.SchoolID = newSchoolID
	s.EnrollmentStatus = models.StatusTransferred
	s.EnrolledClassrooms = []models.Enrollment{}
	return s, nil
}

// =============================================================================
// USERS
// =============================================================================

const userColumns = `id, username, email, password_hash, role, COALESCE(school_id::text, ''), created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.SchoolID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *PostgresRepository) CreateUser(ctx context.Context, user *models.User) error {
	ctx, cancel := database.WriteContext(ctx)
	defer cancel()

	if user.ID == "" {
		user.ID = newID()
	}

	var schoolID *string
	if user.SchoolID != "" {
		if !validID(user.SchoolID) {
			return ErrSchoolNotFound
		}
		schoolID = &user.SchoolID
	}

	query := `
		INSERT INTO users (id, username, email, password_hash, role, school_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		user.ID, user.Username, user.Email, user.PasswordHash, user.Role, schoolID,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		switch pgCode(err) {
		case pgUniqueViolation:
			return ErrUserExists
		case pgForeignKeyViolation, pgInvalidText:
			return ErrSchoolNotFound
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	if !validID(id) {
		return nil, ErrUserNotFound
	}

	ctx, cancel := database.QueryContext(ctx)
	defer cancel()

	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, cancel := database.QueryContext(ctx)
	defer cancel()

	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

var _ Repository = (*PostgresRepository)(nil)
