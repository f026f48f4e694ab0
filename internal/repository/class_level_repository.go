package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-results-api/internal/models"
)

// ClassLevelRepository handles persistence of class levels.
type ClassLevelRepository struct {
	db *sqlx.DB
}

// NewClassLevelRepository constructs the repository.
func NewClassLevelRepository(db *sqlx.DB) *ClassLevelRepository {
	return &ClassLevelRepository{db: db}
}

// Create persists a new class level.
func (r *ClassLevelRepository) Create(ctx context.Context, level *models.ClassLevel) error {
	if level.ID == "" {
		level.ID = uuid.NewString()
	}
	if level.CreatedAt.IsZero() {
		level.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO class_levels (id, school_id, name, created_at)
        VALUES (:id, :school_id, :name, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, level); err != nil {
		return fmt.Errorf("create class level: %w", err)
	}
	return nil
}

// FindByID returns a class level by its ID.
func (r *ClassLevelRepository) FindByID(ctx context.Context, id string) (*models.ClassLevel, error) {
	const query = `SELECT id, school_id, name, created_at FROM class_levels WHERE id = $1`
	var level models.ClassLevel
	if err := r.db.GetContext(ctx, &level, query, id); err != nil {
		return nil, err
	}
	return &level, nil
}

// ListBySchool returns the school's class levels in ladder order. The
// rollover engine promotes along this ordering, so it must stay stable:
// creation time first, ID as the final tie-break.
func (r *ClassLevelRepository) ListBySchool(ctx context.Context, schoolID string) ([]models.ClassLevel, error) {
	const query = `SELECT id, school_id, name, created_at
        FROM class_levels WHERE school_id = $1 ORDER BY created_at ASC, id ASC`
	var levels []models.ClassLevel
	if err := r.db.SelectContext(ctx, &levels, query, schoolID); err != nil {
		return nil, fmt.Errorf("list class levels: %w", err)
	}
	return levels, nil
}

// Delete removes a class level.
func (r *ClassLevelRepository) Delete(ctx context.Context, schoolID, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM class_levels WHERE id = $1 AND school_id = $2`, id, schoolID); err != nil {
		return fmt.Errorf("delete class level: %w", err)
	}
	return nil
}
