package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-results-api/internal/models"
)

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// Create persists a new enrollment record.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO enrollments (id, school_id, session_id, class_level_id, student_id, created_at)
        VALUES (:id, :school_id, :session_id, :class_level_id, :student_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// FindByStudentAndSession returns the student's enrollment for a session,
// or sql.ErrNoRows when none exists.
func (r *EnrollmentRepository) FindByStudentAndSession(ctx context.Context, studentID, sessionID string) (*models.Enrollment, error) {
	const query = `SELECT id, school_id, session_id, class_level_id, student_id, created_at
        FROM enrollments WHERE student_id = $1 AND session_id = $2 LIMIT 1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, studentID, sessionID); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// ExistsForSession reports whether the student already has an enrollment
// in the session. Enrollment creation checks this to keep the one-per-
// session invariant.
func (r *EnrollmentRepository) ExistsForSession(ctx context.Context, studentID, sessionID string) (bool, error) {
	var exists int
	err := r.db.GetContext(ctx, &exists,
		`SELECT 1 FROM enrollments WHERE student_id = $1 AND session_id = $2 LIMIT 1`, studentID, sessionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return true, nil
}

// ListByClassLevelAndSession returns the ranking cohort: every enrollment
// sharing the class level, school and session. Rows come back in
// enrollment creation order (ID as final tie-break) — the ranking
// engine's documented tie-break depends on this being stable.
func (r *EnrollmentRepository) ListByClassLevelAndSession(ctx context.Context, schoolID, classLevelID, sessionID string) ([]models.Enrollment, error) {
	const query = `SELECT id, school_id, session_id, class_level_id, student_id, created_at
        FROM enrollments WHERE school_id = $1 AND class_level_id = $2 AND session_id = $3
        ORDER BY created_at ASC, id ASC`
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, schoolID, classLevelID, sessionID); err != nil {
		return nil, fmt.Errorf("list cohort enrollments: %w", err)
	}
	return enrollments, nil
}

// ListBySession returns every enrollment in a session, the rollover
// engine's promotion input.
func (r *EnrollmentRepository) ListBySession(ctx context.Context, schoolID, sessionID string) ([]models.Enrollment, error) {
	const query = `SELECT id, school_id, session_id, class_level_id, student_id, created_at
        FROM enrollments WHERE school_id = $1 AND session_id = $2 ORDER BY created_at ASC, id ASC`
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, schoolID, sessionID); err != nil {
		return nil, fmt.Errorf("list session enrollments: %w", err)
	}
	return enrollments, nil
}

// List returns enrollments with student and class level context.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	base := `FROM enrollments e
JOIN students s ON s.id = e.student_id
JOIN class_levels cl ON cl.id = e.class_level_id
JOIN sessions se ON se.id = e.session_id`
	conditions := []string{"e.school_id = $1"}
	args := []interface{}{filter.SchoolID}

	if filter.SessionID != "" {
		conditions = append(conditions, fmt.Sprintf("e.session_id = $%d", len(args)+1))
		args = append(args, filter.SessionID)
	}
	if filter.ClassLevelID != "" {
		conditions = append(conditions, fmt.Sprintf("e.class_level_id = $%d", len(args)+1))
		args = append(args, filter.ClassLevelID)
	}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("e.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}

	clause := " WHERE " + strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT e.id, e.school_id, e.session_id, e.class_level_id, e.student_id, e.created_at,
        s.name AS student_name, cl.name AS class_level_name, se.name AS session_name
        %s ORDER BY e.created_at ASC, e.id ASC LIMIT %d OFFSET %d`, base+clause, size, offset)

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}
