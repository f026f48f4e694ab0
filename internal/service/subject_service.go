package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/school-results-api/internal/models"
	appErrors "github.com/noah-isme/school-results-api/pkg/errors"
)

type subjectRepo interface {
	Create(ctx context.Context, subject *models.Subject) error
	ListBySchool(ctx context.Context, schoolID string) ([]models.Subject, error)
	ExistsByName(ctx context.Context, schoolID, name string) (bool, error)
	Delete(ctx context.Context, schoolID, id string) error
}

// CreateSubjectRequest adds a taught subject.
type CreateSubjectRequest struct {
	Name string `json:"name" validate:"required"`
}

// SubjectService manages the school's subject catalogue. Subject names
// are unique per school; stored results reference subjects by name so
// deleting a subject leaves past score sheets intact.
type SubjectService struct {
	subjects  subjectRepo
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSubjectService constructs a SubjectService.
func NewSubjectService(subjects subjectRepo, validate *validator.Validate, logger *zap.Logger) *SubjectService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubjectService{subjects: subjects, validator: validate, logger: logger}
}

// Create adds a subject, rejecting duplicates by name.
func (s *SubjectService) Create(ctx context.Context, schoolID string, req CreateSubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}
	name := strings.TrimSpace(req.Name)
	exists, err := s.subjects.ExistsByName(ctx, schoolID, name)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check subject")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "subject already exists")
	}

	now := time.Now().UTC()
	subject := &models.Subject{
		ID:        uuid.NewString(),
		SchoolID:  schoolID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.subjects.Create(ctx, subject); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create subject")
	}
	return subject, nil
}

// List returns the school's subjects.
func (s *SubjectService) List(ctx context.Context, schoolID string) ([]models.Subject, error) {
	subjects, err := s.subjects.ListBySchool(ctx, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	return subjects, nil
}

// Delete removes a subject from the catalogue.
func (s *SubjectService) Delete(ctx context.Context, schoolID, subjectID string) error {
	if err := s.subjects.Delete(ctx, schoolID, subjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete subject")
	}
	return nil
}
