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

type enrollmentRepo interface {
	Create(ctx context.Context, enrollment *models.Enrollment) error
	FindByStudentAndSession(ctx context.Context, studentID, sessionID string) (*models.Enrollment, error)
	ExistsForSession(ctx context.Context, studentID, sessionID string) (bool, error)
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
}

type enrollmentStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type enrollmentClassLevelReader interface {
	FindByID(ctx context.Context, id string) (*models.ClassLevel, error)
}

// EnrollRequest registers a student into a class level for a session.
type EnrollRequest struct {
	StudentID    string `json:"student_id" validate:"required"`
	SessionID    string `json:"session_id" validate:"required"`
	ClassLevelID string `json:"class_level_id" validate:"required"`
}

// EnrollmentService manages session rosters. A student holds at most
// one enrollment per session.
type EnrollmentService struct {
	enrollments enrollmentRepo
	students    enrollmentStudentReader
	classLevels enrollmentClassLevelReader
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewEnrollmentService constructs an EnrollmentService.
func NewEnrollmentService(enrollments enrollmentRepo, students enrollmentStudentReader, classLevels enrollmentClassLevelReader, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		enrollments: enrollments,
		students:    students,
		classLevels: classLevels,
		validator:   validate,
		logger:      logger,
	}
}

// Enroll registers the student. A second enrollment for the same
// session is rejected as a conflict.
func (s *EnrollmentService) Enroll(ctx context.Context, schoolID string, req EnrollRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student")
	}
	if student.SchoolID != schoolID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}

	level, err := s.classLevels.FindByID(ctx, req.ClassLevelID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class level not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch class level")
	}
	if level.SchoolID != schoolID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "class level not found")
	}

	exists, err := s.enrollments.ExistsForSession(ctx, req.StudentID, req.SessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student already enrolled for this session")
	}

	enrollment := &models.Enrollment{
		ID:           uuid.NewString(),
		SchoolID:     schoolID,
		SessionID:    req.SessionID,
		ClassLevelID: req.ClassLevelID,
		StudentID:    req.StudentID,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.enrollments.Create(ctx, enrollment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}
	return enrollment, nil
}

// List returns enrollments matching the filter with pagination metadata.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	details, total, err := s.enrollments.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return details, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Find returns the student's enrollment for a session.
func (s *EnrollmentService) Find(ctx context.Context, studentID, sessionID string) (*models.Enrollment, error) {
	enrollment, err := s.enrollments.FindByStudentAndSession(ctx, studentID, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrEnrollmentMissing, "student has no enrollment for the session")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch enrollment")
	}
	return enrollment, nil
}
