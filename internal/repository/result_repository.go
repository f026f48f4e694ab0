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

// ResultRepository handles persistence of subject results and their
// materialized term totals.
type ResultRepository struct {
	db *sqlx.DB
}

// NewResultRepository constructs the repository.
func NewResultRepository(db *sqlx.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// termAggregate is the summed view of a tuple's subject results.
type termAggregate struct {
	TotalCA    int `db:"total_ca"`
	TotalExam  int `db:"total_exam"`
	TotalScore int `db:"total_score"`
}

// UpsertAndAggregate writes one subject result and recomputes the
// owning term total inside a single transaction. The aggregate reads the
// tuple's rows within the same transaction, so concurrent submissions
// for the tuple serialize on the upserted row and the total always
// reflects a consistent snapshot. resolveGrade maps the aggregate score
// to the school's grade pair; teacher and principal comments on the
// existing total row are preserved.
func (r *ResultRepository) UpsertAndAggregate(ctx context.Context, result *models.SubjectResult, resolveGrade func(score int) models.GradeRemark) error {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if result.CreatedAt.IsZero() {
		result.CreatedAt = now
	}
	result.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin result upsert: %w", err)
	}

	const upsert = `INSERT INTO subject_results (id, school_id, student_id, term_id, session_id, subject,
        first_test, second_test, third_test, ca, exam, total_score, grade, remark, created_at, updated_at)
        VALUES (:id, :school_id, :student_id, :term_id, :session_id, :subject,
        :first_test, :second_test, :third_test, :ca, :exam, :total_score, :grade, :remark, :created_at, :updated_at)
        ON CONFLICT (student_id, term_id, session_id, subject)
        DO UPDATE SET first_test = EXCLUDED.first_test, second_test = EXCLUDED.second_test,
        third_test = EXCLUDED.third_test, ca = EXCLUDED.ca, exam = EXCLUDED.exam,
        total_score = EXCLUDED.total_score, grade = EXCLUDED.grade, remark = EXCLUDED.remark,
        updated_at = EXCLUDED.updated_at`
	if _, err := tx.NamedExecContext(ctx, upsert, result); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("upsert subject result: %w", err)
	}

	if err := r.recomputeTermTotal(ctx, tx, result.SchoolID, result.StudentID, result.TermID, result.SessionID, resolveGrade); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit result upsert: %w", err)
	}
	return nil
}

// BulkUpsertAndAggregate writes a batch of subject results for one
// (student, term, session) tuple atomically and recomputes the term
// total once at the end.
func (r *ResultRepository) BulkUpsertAndAggregate(ctx context.Context, results []models.SubjectResult, resolveGrade func(score int) models.GradeRemark) error {
	if len(results) == 0 {
		return nil
	}
	first := results[0]

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk result upsert: %w", err)
	}

	const upsert = `INSERT INTO subject_results (id, school_id, student_id, term_id, session_id, subject,
        first_test, second_test, third_test, ca, exam, total_score, grade, remark, created_at, updated_at)
        VALUES (:id, :school_id, :student_id, :term_id, :session_id, :subject,
        :first_test, :second_test, :third_test, :ca, :exam, :total_score, :grade, :remark, :created_at, :updated_at)
        ON CONFLICT (student_id, term_id, session_id, subject)
        DO UPDATE SET first_test = EXCLUDED.first_test, second_test = EXCLUDED.second_test,
        third_test = EXCLUDED.third_test, ca = EXCLUDED.ca, exam = EXCLUDED.exam,
        total_score = EXCLUDED.total_score, grade = EXCLUDED.grade, remark = EXCLUDED.remark,
        updated_at = EXCLUDED.updated_at`
	now := time.Now().UTC()
	for i := range results {
		if results[i].ID == "" {
			results[i].ID = uuid.NewString()
		}
		if results[i].CreatedAt.IsZero() {
			results[i].CreatedAt = now
		}
		results[i].UpdatedAt = now
		if _, err := tx.NamedExecContext(ctx, upsert, results[i]); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("bulk upsert subject result: %w", err)
		}
	}

	if err := r.recomputeTermTotal(ctx, tx, first.SchoolID, first.StudentID, first.TermID, first.SessionID, resolveGrade); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bulk result upsert: %w", err)
	}
	return nil
}

func (r *ResultRepository) recomputeTermTotal(ctx context.Context, tx *sqlx.Tx, schoolID, studentID, termID, sessionID string, resolveGrade func(score int) models.GradeRemark) error {
	const sumQuery = `SELECT COALESCE(SUM(ca), 0) AS total_ca, COALESCE(SUM(exam), 0) AS total_exam,
        COALESCE(SUM(total_score), 0) AS total_score
        FROM subject_results WHERE student_id = $1 AND term_id = $2 AND session_id = $3`
	var agg termAggregate
	if err := tx.GetContext(ctx, &agg, sumQuery, studentID, termID, sessionID); err != nil {
		return fmt.Errorf("aggregate term total: %w", err)
	}

	pair := resolveGrade(agg.TotalScore)
	total := models.TermTotal{
		ID:         uuid.NewString(),
		SchoolID:   schoolID,
		StudentID:  studentID,
		TermID:     termID,
		SessionID:  sessionID,
		TotalCA:    agg.TotalCA,
		TotalExam:  agg.TotalExam,
		TotalScore: agg.TotalScore,
		Grade:      pair.Grade,
		Remark:     pair.Remark,
		UpdatedAt:  time.Now().UTC(),
	}

	// The comment columns are deliberately absent from the update list:
	// staff comments must survive every recomputation.
	const upsert = `INSERT INTO term_totals (id, school_id, student_id, term_id, session_id,
        total_ca, total_exam, total_score, grade, remark, updated_at)
        VALUES (:id, :school_id, :student_id, :term_id, :session_id,
        :total_ca, :total_exam, :total_score, :grade, :remark, :updated_at)
        ON CONFLICT (student_id, term_id, session_id)
        DO UPDATE SET total_ca = EXCLUDED.total_ca, total_exam = EXCLUDED.total_exam,
        total_score = EXCLUDED.total_score, grade = EXCLUDED.grade, remark = EXCLUDED.remark,
        updated_at = EXCLUDED.updated_at`
	if _, err := tx.NamedExecContext(ctx, upsert, total); err != nil {
		return fmt.Errorf("upsert term total: %w", err)
	}
	return nil
}

// ListByTuple returns a student's subject results for a term and session.
// The school predicate keeps one school's rows unreachable from another
// school's credentials even with guessed tuple IDs.
func (r *ResultRepository) ListByTuple(ctx context.Context, schoolID, studentID, termID, sessionID string) ([]models.SubjectResult, error) {
	const query = `SELECT id, school_id, student_id, term_id, session_id, subject,
        first_test, second_test, third_test, ca, exam, total_score, grade, remark, created_at, updated_at
        FROM subject_results WHERE school_id = $1 AND student_id = $2 AND term_id = $3 AND session_id = $4
        ORDER BY subject ASC`
	var results []models.SubjectResult
	if err := r.db.SelectContext(ctx, &results, query, schoolID, studentID, termID, sessionID); err != nil {
		return nil, fmt.Errorf("list subject results: %w", err)
	}
	return results, nil
}

// DeleteByTuple removes a student's subject results and the materialized
// term total for the tuple in one transaction.
func (r *ResultRepository) DeleteByTuple(ctx context.Context, schoolID, studentID, termID, sessionID string) (int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin result reset: %w", err)
	}
	result, err := tx.ExecContext(ctx,
		`DELETE FROM subject_results WHERE school_id = $1 AND student_id = $2 AND term_id = $3 AND session_id = $4`,
		schoolID, studentID, termID, sessionID)
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return 0, fmt.Errorf("delete subject results: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM term_totals WHERE school_id = $1 AND student_id = $2 AND term_id = $3 AND session_id = $4`,
		schoolID, studentID, termID, sessionID); err != nil {
		tx.Rollback() //nolint:errcheck
		return 0, fmt.Errorf("delete term total: %w", err)
	}
	deleted, _ := result.RowsAffected()
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit result reset: %w", err)
	}
	return deleted, nil
}

// GetTermTotal returns the tuple's term total or sql.ErrNoRows.
func (r *ResultRepository) GetTermTotal(ctx context.Context, schoolID, studentID, termID, sessionID string) (*models.TermTotal, error) {
	const query = `SELECT id, school_id, student_id, term_id, session_id, total_ca, total_exam, total_score,
        grade, remark, teacher_comment, principal_comment, updated_at
        FROM term_totals WHERE school_id = $1 AND student_id = $2 AND term_id = $3 AND session_id = $4`
	var total models.TermTotal
	if err := r.db.GetContext(ctx, &total, query, schoolID, studentID, termID, sessionID); err != nil {
		return nil, err
	}
	return &total, nil
}

// UpdateComments sets the staff comment fields on a term total. Nil
// pointers leave the stored value untouched.
func (r *ResultRepository) UpdateComments(ctx context.Context, schoolID, studentID, termID, sessionID string, teacherComment, principalComment *string) error {
	set := make([]string, 0, 3)
	args := make([]interface{}, 0, 6)
	if teacherComment != nil {
		set = append(set, fmt.Sprintf("teacher_comment = $%d", len(args)+1))
		args = append(args, *teacherComment)
	}
	if principalComment != nil {
		set = append(set, fmt.Sprintf("principal_comment = $%d", len(args)+1))
		args = append(args, *principalComment)
	}
	if len(set) == 0 {
		return nil
	}
	set = append(set, fmt.Sprintf("updated_at = $%d", len(args)+1))
	args = append(args, time.Now().UTC())

	query := fmt.Sprintf(`UPDATE term_totals SET %s WHERE school_id = $%d AND student_id = $%d AND term_id = $%d AND session_id = $%d`,
		strings.Join(set, ", "), len(args)+1, len(args)+2, len(args)+3, len(args)+4)
	args = append(args, schoolID, studentID, termID, sessionID)
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update term comments: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SumTotalsByStudents returns each listed student's summed subject total
// for the term, keyed by student ID. Students without results are absent
// from the map; callers coalesce to zero.
func (r *ResultRepository) SumTotalsByStudents(ctx context.Context, studentIDs []string, termID, sessionID string) (map[string]int, error) {
	if len(studentIDs) == 0 {
		return map[string]int{}, nil
	}
	placeholders := make([]string, len(studentIDs))
	args := make([]interface{}, 0, len(studentIDs)+2)
	for i, id := range studentIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args = append(args, id)
	}
	args = append(args, termID, sessionID)
	query := fmt.Sprintf(`SELECT student_id, COALESCE(SUM(total_score), 0) AS total
        FROM subject_results WHERE student_id IN (%s) AND term_id = $%d AND session_id = $%d
        GROUP BY student_id`, strings.Join(placeholders, ","), len(studentIDs)+1, len(studentIDs)+2)

	var rows []models.StudentTotal
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("sum cohort totals: %w", err)
	}
	totals := make(map[string]int, len(rows))
	for _, row := range rows {
		totals[row.StudentID] = row.Total
	}
	return totals, nil
}

// CountSubjects returns the number of subject rows for the tuple.
func (r *ResultRepository) CountSubjects(ctx context.Context, studentID, termID, sessionID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM subject_results WHERE student_id = $1 AND term_id = $2 AND session_id = $3`,
		studentID, termID, sessionID)
	if err != nil {
		return 0, fmt.Errorf("count subject results: %w", err)
	}
	return count, nil
}
