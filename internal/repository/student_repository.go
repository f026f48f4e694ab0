package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-results-api/internal/models"
)

// StudentRepository handles persistence of students.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// Create persists a new student.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now
	student.Name = strings.TrimSpace(student.Name)
	const query = `INSERT INTO students (id, school_id, name, other_info, created_at, updated_at)
        VALUES (:id, :school_id, :name, :other_info, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// FindByID returns a student by its ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	const query = `SELECT id, school_id, name, other_info, created_at, updated_at FROM students WHERE id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// Update persists mutable student fields.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	student.Name = strings.TrimSpace(student.Name)
	const query = `UPDATE students SET name = :name, other_info = :other_info, updated_at = :updated_at
        WHERE id = :id AND school_id = :school_id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// Delete removes a student and cascades through the schema's FKs.
func (r *StudentRepository) Delete(ctx context.Context, schoolID, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1 AND school_id = $2`, id, schoolID); err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return nil
}

// List returns students filtered by the provided criteria, with
// enrollment context when a session filter is present.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	base := `FROM students s
LEFT JOIN enrollments e ON e.student_id = s.id AND e.session_id = $1
LEFT JOIN class_levels cl ON cl.id = e.class_level_id`
	conditions := []string{"s.school_id = $2"}
	args := []interface{}{filter.SessionID, filter.SchoolID}

	if filter.ClassLevelID != "" {
		conditions = append(conditions, fmt.Sprintf("e.class_level_id = $%d", len(args)+1))
		args = append(args, filter.ClassLevelID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("s.name ILIKE $%d", len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	clause := " WHERE " + strings.Join(conditions, " AND ")

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT s.id, s.school_id, s.name, s.other_info, s.created_at, s.updated_at,
        e.class_level_id, cl.name AS class_level_name, e.session_id
        %s ORDER BY s.name %s LIMIT %d OFFSET %d`, base+clause, order, size, offset)

	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}
