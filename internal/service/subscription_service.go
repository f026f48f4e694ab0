package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/school-results-api/internal/models"
	appErrors "github.com/noah-isme/school-results-api/pkg/errors"
)

type subscriptionRepo interface {
	FindBySchool(ctx context.Context, schoolID string) (*models.Subscription, error)
	Upsert(ctx context.Context, sub *models.Subscription) error
}

// ActivateSubscriptionRequest records a confirmed payment from the
// billing collaborator.
type ActivateSubscriptionRequest struct {
	Plan      models.SubscriptionPlan `json:"plan" validate:"required,oneof=TRIAL STANDARD PREMIUM"`
	ExpiresAt time.Time               `json:"expires_at" validate:"required"`
}

// SubscriptionService reads and records subscription state. Payment
// collection itself happens outside this service; only the outcome is
// stored here.
type SubscriptionService struct {
	subscriptions subscriptionRepo
	enforce       bool
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewSubscriptionService constructs a SubscriptionService.
func NewSubscriptionService(subscriptions subscriptionRepo, enforce bool, validate *validator.Validate, logger *zap.Logger) *SubscriptionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubscriptionService{subscriptions: subscriptions, enforce: enforce, validator: validate, logger: logger}
}

// Status returns the school's subscription, or nil when none exists.
func (s *SubscriptionService) Status(ctx context.Context, schoolID string) (*models.Subscription, error) {
	sub, err := s.subscriptions.FindBySchool(ctx, schoolID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch subscription")
	}
	return sub, nil
}

// CheckAccess rejects schools without a valid subscription when
// enforcement is enabled.
func (s *SubscriptionService) CheckAccess(ctx context.Context, schoolID string) error {
	if !s.enforce {
		return nil
	}
	sub, err := s.Status(ctx, schoolID)
	if err != nil {
		return err
	}
	if !sub.Valid(time.Now().UTC()) {
		return appErrors.Clone(appErrors.ErrSubscriptionExpired, "school subscription is inactive or expired")
	}
	return nil
}

// Activate records a paid plan for the school.
func (s *SubscriptionService) Activate(ctx context.Context, schoolID string, req ActivateSubscriptionRequest) (*models.Subscription, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subscription payload")
	}
	if !req.ExpiresAt.After(time.Now().UTC()) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "expires_at must be in the future")
	}

	now := time.Now().UTC()
	sub := &models.Subscription{
		ID:        uuid.NewString(),
		SchoolID:  schoolID,
		Plan:      req.Plan,
		Active:    true,
		ExpiresAt: req.ExpiresAt.UTC(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.subscriptions.Upsert(ctx, sub); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store subscription")
	}
	return sub, nil
}
