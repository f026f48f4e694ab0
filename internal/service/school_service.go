package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/school-results-api/internal/models"
	appErrors "github.com/noah-isme/school-results-api/pkg/errors"
)

type schoolRepo interface {
	Create(ctx context.Context, school *models.School) error
	FindByID(ctx context.Context, id string) (*models.School, error)
	Update(ctx context.Context, school *models.School) error
}

type schoolUserRepo interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

type schoolSubscriptionRepo interface {
	Upsert(ctx context.Context, sub *models.Subscription) error
}

// RegisterSchoolRequest creates a tenant: the school record, its admin
// account and a trial subscription.
type RegisterSchoolRequest struct {
	Name          string `json:"name" validate:"required"`
	AdminEmail    string `json:"admin_email" validate:"required,email"`
	AdminName     string `json:"admin_name" validate:"required"`
	AdminPassword string `json:"admin_password" validate:"required,min=6"`
	IsPrimary     bool   `json:"is_primary"`
	IsSecondary   bool   `json:"is_secondary"`
}

// UpdateSchoolRequest edits the school profile shown on report cards.
type UpdateSchoolRequest struct {
	Name    string  `json:"name" validate:"required"`
	Address *string `json:"address"`
	Phone   *string `json:"phone"`
	Email   *string `json:"email" validate:"omitempty,email"`
}

// RegisterSchoolResponse returns the created tenant.
type RegisterSchoolResponse struct {
	School models.School   `json:"school"`
	Admin  models.UserInfo `json:"admin"`
}

const trialPeriod = 30 * 24 * time.Hour

// SchoolService handles tenant onboarding and the school profile.
type SchoolService struct {
	schools       schoolRepo
	users         schoolUserRepo
	subscriptions schoolSubscriptionRepo
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewSchoolService constructs a SchoolService.
func NewSchoolService(schools schoolRepo, users schoolUserRepo, subscriptions schoolSubscriptionRepo, validate *validator.Validate, logger *zap.Logger) *SchoolService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchoolService{
		schools:       schools,
		users:         users,
		subscriptions: subscriptions,
		validator:     validate,
		logger:        logger,
	}
}

// Register onboards a new school with its admin account and a trial
// subscription.
func (s *SchoolService) Register(ctx context.Context, req RegisterSchoolRequest) (*RegisterSchoolResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	if _, err := s.users.FindByEmail(ctx, req.AdminEmail); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	now := time.Now().UTC()
	school := &models.School{
		ID:          uuid.NewString(),
		Name:        req.Name,
		IsPrimary:   req.IsPrimary,
		IsSecondary: req.IsSecondary,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.schools.Create(ctx, school); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create school")
	}

	admin := &models.User{
		ID:           uuid.NewString(),
		SchoolID:     school.ID,
		Email:        req.AdminEmail,
		PasswordHash: string(hash),
		FullName:     req.AdminName,
		Role:         models.RoleAdmin,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, admin); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create admin user")
	}

	trial := &models.Subscription{
		ID:        uuid.NewString(),
		SchoolID:  school.ID,
		Plan:      models.SubscriptionPlanTrial,
		Active:    true,
		ExpiresAt: now.Add(trialPeriod),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.subscriptions.Upsert(ctx, trial); err != nil {
		s.logger.Warn("seed trial subscription", zap.String("school_id", school.ID), zap.Error(err))
	}

	return &RegisterSchoolResponse{
		School: *school,
		Admin: models.UserInfo{
			ID:       admin.ID,
			SchoolID: admin.SchoolID,
			Email:    admin.Email,
			FullName: admin.FullName,
			Role:     admin.Role,
		},
	}, nil
}

// Get returns the school profile.
func (s *SchoolService) Get(ctx context.Context, schoolID string) (*models.School, error) {
	school, err := s.schools.FindByID(ctx, schoolID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "school not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch school")
	}
	return school, nil
}

// Update edits the school profile.
func (s *SchoolService) Update(ctx context.Context, schoolID string, req UpdateSchoolRequest) (*models.School, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid school payload")
	}
	school, err := s.Get(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	school.Name = req.Name
	school.Address = req.Address
	school.Phone = req.Phone
	school.Email = req.Email
	school.UpdatedAt = time.Now().UTC()
	if err := s.schools.Update(ctx, school); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update school")
	}
	return school, nil
}
