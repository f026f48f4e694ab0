package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-results-api/internal/models"
)

// SessionRepository handles persistence of academic sessions and terms.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs the repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// CreateWithEnrollments inserts a session together with the promotion
// enrollments computed for it. The insert and all enrollments commit in
// one transaction so a partial promotion is never visible.
func (r *SessionRepository) CreateWithEnrollments(ctx context.Context, session *models.Session, enrollments []models.Enrollment) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin session create: %w", err)
	}

	const sessionQuery = `INSERT INTO sessions (id, school_id, name, is_current, show_results, created_at)
        VALUES (:id, :school_id, :name, :is_current, :show_results, :created_at)`
	if _, err := tx.NamedExecContext(ctx, sessionQuery, session); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("create session: %w", err)
	}

	const enrollmentQuery = `INSERT INTO enrollments (id, school_id, session_id, class_level_id, student_id, created_at)
        VALUES (:id, :school_id, :session_id, :class_level_id, :student_id, :created_at)`
	for i := range enrollments {
		if enrollments[i].ID == "" {
			enrollments[i].ID = uuid.NewString()
		}
		if enrollments[i].CreatedAt.IsZero() {
			enrollments[i].CreatedAt = time.Now().UTC()
		}
		if _, err := tx.NamedExecContext(ctx, enrollmentQuery, enrollments[i]); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("promote enrollment: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit session create: %w", err)
	}
	return nil
}

// FindByID returns a session by its ID.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.Session, error) {
	const query = `SELECT id, school_id, name, is_current, show_results, created_at FROM sessions WHERE id = $1`
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, err
	}
	return &session, nil
}

// ListBySchool returns the school's sessions, newest first.
func (r *SessionRepository) ListBySchool(ctx context.Context, schoolID string) ([]models.Session, error) {
	const query = `SELECT id, school_id, name, is_current, show_results, created_at
        FROM sessions WHERE school_id = $1 ORDER BY created_at DESC`
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, schoolID); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// CountBySchool returns how many sessions the school has.
func (r *SessionRepository) CountBySchool(ctx context.Context, schoolID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM sessions WHERE school_id = $1`, schoolID); err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return count, nil
}

// FindCurrent returns the school's current session.
func (r *SessionRepository) FindCurrent(ctx context.Context, schoolID string) (*models.Session, error) {
	const query = `SELECT id, school_id, name, is_current, show_results, created_at
        FROM sessions WHERE school_id = $1 AND is_current = TRUE LIMIT 1`
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, schoolID); err != nil {
		return nil, err
	}
	return &session, nil
}

// FindLatest returns the most recently created session for the school,
// optionally excluding one ID. The rollover engine uses this to locate
// the session being promoted from.
func (r *SessionRepository) FindLatest(ctx context.Context, schoolID, excludeID string) (*models.Session, error) {
	query := `SELECT id, school_id, name, is_current, show_results, created_at
        FROM sessions WHERE school_id = $1`
	args := []interface{}{schoolID}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	query += " ORDER BY created_at DESC LIMIT 1"
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, args...); err != nil {
		return nil, err
	}
	return &session, nil
}

// SetCurrent marks the session current, deactivating the school's other
// sessions and every current term under them in one transaction.
func (r *SessionRepository) SetCurrent(ctx context.Context, schoolID, sessionID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin set current session: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE sessions SET is_current = FALSE WHERE school_id = $1`, schoolID); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("clear current sessions: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE terms SET is_current = FALSE WHERE session_id IN (SELECT id FROM sessions WHERE school_id = $1)`, schoolID); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("clear current terms: %w", err)
	}
	result, err := tx.ExecContext(ctx,
		`UPDATE sessions SET is_current = TRUE WHERE id = $1 AND school_id = $2`, sessionID, schoolID)
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("set current session: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		tx.Rollback() //nolint:errcheck
		return sql.ErrNoRows
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit set current session: %w", err)
	}
	return nil
}

// SetShowResults toggles parent visibility of a session's results.
func (r *SessionRepository) SetShowResults(ctx context.Context, schoolID, sessionID string, show bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET show_results = $1 WHERE id = $2 AND school_id = $3`, show, sessionID, schoolID)
	if err != nil {
		return fmt.Errorf("set show results: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CreateTerm persists a new term under a session.
func (r *SessionRepository) CreateTerm(ctx context.Context, term *models.Term) error {
	if term.ID == "" {
		term.ID = uuid.NewString()
	}
	if term.CreatedAt.IsZero() {
		term.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO terms (id, session_id, name, is_current, created_at)
        VALUES (:id, :session_id, :name, :is_current, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, term); err != nil {
		return fmt.Errorf("create term: %w", err)
	}
	return nil
}

// FindTermByID returns a term by its ID.
func (r *SessionRepository) FindTermByID(ctx context.Context, id string) (*models.Term, error) {
	const query = `SELECT id, session_id, name, is_current, created_at FROM terms WHERE id = $1`
	var term models.Term
	if err := r.db.GetContext(ctx, &term, query, id); err != nil {
		return nil, err
	}
	return &term, nil
}

// ListTerms returns a session's terms in creation order.
func (r *SessionRepository) ListTerms(ctx context.Context, sessionID string) ([]models.Term, error) {
	const query = `SELECT id, session_id, name, is_current, created_at
        FROM terms WHERE session_id = $1 ORDER BY created_at ASC`
	var terms []models.Term
	if err := r.db.SelectContext(ctx, &terms, query, sessionID); err != nil {
		return nil, fmt.Errorf("list terms: %w", err)
	}
	return terms, nil
}

// FindCurrentTerm returns the session's current term.
func (r *SessionRepository) FindCurrentTerm(ctx context.Context, sessionID string) (*models.Term, error) {
	const query = `SELECT id, session_id, name, is_current, created_at
        FROM terms WHERE session_id = $1 AND is_current = TRUE LIMIT 1`
	var term models.Term
	if err := r.db.GetContext(ctx, &term, query, sessionID); err != nil {
		return nil, err
	}
	return &term, nil
}

// SetCurrentTerm marks the term current after deactivating its siblings.
func (r *SessionRepository) SetCurrentTerm(ctx context.Context, sessionID, termID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin set current term: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE terms SET is_current = FALSE WHERE session_id = $1`, sessionID); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("clear current terms: %w", err)
	}
	result, err := tx.ExecContext(ctx,
		`UPDATE terms SET is_current = TRUE WHERE id = $1 AND session_id = $2`, termID, sessionID)
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("set current term: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		tx.Rollback() //nolint:errcheck
		return sql.ErrNoRows
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit set current term: %w", err)
	}
	return nil
}
