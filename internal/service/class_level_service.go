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

type classLevelRepo interface {
	Create(ctx context.Context, level *models.ClassLevel) error
	FindByID(ctx context.Context, id string) (*models.ClassLevel, error)
	ListBySchool(ctx context.Context, schoolID string) ([]models.ClassLevel, error)
	Delete(ctx context.Context, schoolID, id string) error
}

// CreateClassLevelRequest appends a rung to the promotion ladder.
type CreateClassLevelRequest struct {
	Name string `json:"name" validate:"required"`
}

// ClassLevelService manages the school's class levels. Creation order
// defines the promotion ladder, so levels should be created bottom-up.
type ClassLevelService struct {
	levels    classLevelRepo
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassLevelService constructs a ClassLevelService.
func NewClassLevelService(levels classLevelRepo, validate *validator.Validate, logger *zap.Logger) *ClassLevelService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassLevelService{levels: levels, validator: validate, logger: logger}
}

// Create appends a class level to the ladder.
func (s *ClassLevelService) Create(ctx context.Context, schoolID string, req CreateClassLevelRequest) (*models.ClassLevel, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class level payload")
	}
	level := &models.ClassLevel{
		ID:        uuid.NewString(),
		SchoolID:  schoolID,
		Name:      req.Name,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.levels.Create(ctx, level); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class level")
	}
	return level, nil
}

// List returns the ladder in promotion order.
func (s *ClassLevelService) List(ctx context.Context, schoolID string) ([]models.ClassLevel, error) {
	levels, err := s.levels.ListBySchool(ctx, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list class levels")
	}
	return levels, nil
}

// Delete removes a rung. Enrollment history keeps its references.
func (s *ClassLevelService) Delete(ctx context.Context, schoolID, levelID string) error {
	if err := s.levels.Delete(ctx, schoolID, levelID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "class level not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete class level")
	}
	return nil
}
