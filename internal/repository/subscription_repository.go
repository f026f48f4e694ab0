package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-results-api/internal/models"
)

// SubscriptionRepository handles persistence of school subscriptions.
type SubscriptionRepository struct {
	db *sqlx.DB
}

// NewSubscriptionRepository constructs the repository.
func NewSubscriptionRepository(db *sqlx.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// FindBySchool returns the school's subscription or sql.ErrNoRows.
func (r *SubscriptionRepository) FindBySchool(ctx context.Context, schoolID string) (*models.Subscription, error) {
	const query = `SELECT id, school_id, plan, active, expires_at, created_at, updated_at
        FROM subscriptions WHERE school_id = $1`
	var sub models.Subscription
	if err := r.db.GetContext(ctx, &sub, query, schoolID); err != nil {
		return nil, err
	}
	return &sub, nil
}

// Upsert records the subscription state reported by the payment
// collaborator, one row per school.
func (r *SubscriptionRepository) Upsert(ctx context.Context, sub *models.Subscription) error {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now
	const query = `INSERT INTO subscriptions (id, school_id, plan, active, expires_at, created_at, updated_at)
        VALUES (:id, :school_id, :plan, :active, :expires_at, :created_at, :updated_at)
        ON CONFLICT (school_id)
        DO UPDATE SET plan = EXCLUDED.plan, active = EXCLUDED.active,
        expires_at = EXCLUDED.expires_at, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, sub); err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}
	return nil
}
