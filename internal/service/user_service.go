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

type userRepo interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	LinkParentStudent(ctx context.Context, link *models.ParentStudent) error
	ListStudentIDsByParent(ctx context.Context, parentID string) ([]string, error)
}

type userStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// CreateUserRequest registers a staff or parent account under the school.
type CreateUserRequest struct {
	Email    string          `json:"email" validate:"required,email"`
	FullName string          `json:"full_name" validate:"required"`
	Password string          `json:"password" validate:"required,min=6"`
	Phone    *string         `json:"phone"`
	Role     models.UserRole `json:"role" validate:"required,oneof=STAFF PARENT"`
}

// LinkParentRequest attaches a student to a parent account.
type LinkParentRequest struct {
	ParentID  string `json:"parent_id" validate:"required"`
	StudentID string `json:"student_id" validate:"required"`
}

// UserService manages staff and parent accounts. Admin accounts are only
// created through school registration.
type UserService struct {
	users     userRepo
	students  userStudentReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs a UserService.
func NewUserService(users userRepo, students userStudentReader, validate *validator.Validate, logger *zap.Logger) *UserService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{users: users, students: students, validator: validate, logger: logger}
}

// Create registers a staff or parent account.
func (s *UserService) Create(ctx context.Context, schoolID string, req CreateUserRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}

	if _, err := s.users.FindByEmail(ctx, req.Email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.NewString(),
		SchoolID:     schoolID,
		Email:        req.Email,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		Phone:        req.Phone,
		Role:         req.Role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}
	return user, nil
}

// LinkParent attaches a student to a parent account of the same school.
func (s *UserService) LinkParent(ctx context.Context, schoolID string, req LinkParentRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid link payload")
	}

	parent, err := s.users.FindByID(ctx, req.ParentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "parent not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch parent")
	}
	if parent.SchoolID != schoolID || parent.Role != models.RoleParent {
		return appErrors.Clone(appErrors.ErrValidation, "user is not a parent of this school")
	}

	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student")
	}
	if student.SchoolID != schoolID {
		return appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}

	link := &models.ParentStudent{
		ID:        uuid.NewString(),
		ParentID:  req.ParentID,
		StudentID: req.StudentID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.users.LinkParentStudent(ctx, link); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to link parent and student")
	}
	return nil
}

// LinkedStudents lists the students a parent may view.
func (s *UserService) LinkedStudents(ctx context.Context, parentID string) ([]string, error) {
	ids, err := s.users.ListStudentIDsByParent(ctx, parentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list linked students")
	}
	return ids, nil
}
