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

type sessionRepo interface {
	CreateWithEnrollments(ctx context.Context, session *models.Session, enrollments []models.Enrollment) error
	FindByID(ctx context.Context, id string) (*models.Session, error)
	ListBySchool(ctx context.Context, schoolID string) ([]models.Session, error)
	CountBySchool(ctx context.Context, schoolID string) (int, error)
	FindCurrent(ctx context.Context, schoolID string) (*models.Session, error)
	FindLatest(ctx context.Context, schoolID, excludeID string) (*models.Session, error)
	SetCurrent(ctx context.Context, schoolID, sessionID string) error
	SetShowResults(ctx context.Context, schoolID, sessionID string, show bool) error
	CreateTerm(ctx context.Context, term *models.Term) error
	FindTermByID(ctx context.Context, id string) (*models.Term, error)
	ListTerms(ctx context.Context, sessionID string) ([]models.Term, error)
	FindCurrentTerm(ctx context.Context, sessionID string) (*models.Term, error)
	SetCurrentTerm(ctx context.Context, sessionID, termID string) error
}

type ladderRepo interface {
	ListBySchool(ctx context.Context, schoolID string) ([]models.ClassLevel, error)
}

type promotionEnrollmentRepo interface {
	ListBySession(ctx context.Context, schoolID, sessionID string) ([]models.Enrollment, error)
}

// CreateSessionRequest opens a new academic session.
type CreateSessionRequest struct {
	Name string `json:"name" validate:"required"`
}

// CreateTermRequest adds a grading period to a session.
type CreateTermRequest struct {
	SessionID string `json:"session_id" validate:"required"`
	Name      string `json:"name" validate:"required"`
}

// SessionService manages academic sessions, terms and the promotion
// rollover that seeds a new session's enrollments from the previous one.
type SessionService struct {
	sessions    sessionRepo
	ladder      ladderRepo
	enrollments promotionEnrollmentRepo
	audit       resultAuditRepo
	cache       *CacheService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewSessionService constructs a SessionService.
func NewSessionService(sessions sessionRepo, ladder ladderRepo, enrollments promotionEnrollmentRepo, audit resultAuditRepo, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *SessionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		sessions:    sessions,
		ladder:      ladder,
		enrollments: enrollments,
		audit:       audit,
		cache:       cache,
		validator:   validate,
		logger:      logger,
	}
}

// Create opens a new session. The school's first session starts empty;
// every later one triggers the promotion rollover: students enrolled in
// the most recent existing session move up one rung of the class level
// ladder, and students already on the final rung graduate out with no
// new enrollment. The session insert and all promotion enrollments
// commit in one transaction.
func (s *SessionService) Create(ctx context.Context, claims *models.JWTClaims, req CreateSessionRequest) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}

	schoolID := claims.SchoolID
	now := time.Now().UTC()
	session := &models.Session{
		ID:        uuid.NewString(),
		SchoolID:  schoolID,
		Name:      req.Name,
		CreatedAt: now,
	}

	count, err := s.sessions.CountBySchool(ctx, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count sessions")
	}

	var promotions []models.Enrollment
	if count > 0 {
		promotions, err = s.buildPromotions(ctx, schoolID, session.ID, now)
		if err != nil {
			return nil, err
		}
	}

	if err := s.sessions.CreateWithEnrollments(ctx, session, promotions); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create session")
	}

	s.recordAudit(ctx, claims, models.AuditActionSessionCreate, "session", session.ID)
	s.logger.Info("session created",
		zap.String("school_id", schoolID),
		zap.String("session_id", session.ID),
		zap.Int("promoted", len(promotions)))

	return session, nil
}

// buildPromotions computes the next-session enrollment rows from the
// previous session's roster and the class level ladder.
func (s *SessionService) buildPromotions(ctx context.Context, schoolID, newSessionID string, now time.Time) ([]models.Enrollment, error) {
	previous, err := s.sessions.FindLatest(ctx, schoolID, "")
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to find previous session")
	}

	levels, err := s.ladder.ListBySchool(ctx, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class levels")
	}
	// Ladder order is creation order; the repository fixes it.
	nextLevel := make(map[string]string, len(levels))
	for i := 0; i < len(levels)-1; i++ {
		nextLevel[levels[i].ID] = levels[i+1].ID
	}

	roster, err := s.enrollments.ListBySession(ctx, schoolID, previous.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load previous roster")
	}

	promotions := make([]models.Enrollment, 0, len(roster))
	for _, enrollment := range roster {
		target, ok := nextLevel[enrollment.ClassLevelID]
		if !ok {
			// Final rung or a level removed from the ladder: the
			// student graduates out of the roster.
			continue
		}
		promotions = append(promotions, models.Enrollment{
			ID:           uuid.NewString(),
			SchoolID:     schoolID,
			SessionID:    newSessionID,
			ClassLevelID: target,
			StudentID:    enrollment.StudentID,
			CreatedAt:    now,
		})
	}
	return promotions, nil
}

// List returns the school's sessions, newest first.
func (s *SessionService) List(ctx context.Context, schoolID string) ([]models.Session, error) {
	sessions, err := s.sessions.ListBySchool(ctx, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	return sessions, nil
}

// Get returns one session scoped to the school.
func (s *SessionService) Get(ctx context.Context, schoolID, sessionID string) (*models.Session, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch session")
	}
	if session.SchoolID != schoolID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
	}
	return session, nil
}

// SetCurrent marks the session as the school's active one, clearing any
// sibling and every current-term flag in one transaction.
func (s *SessionService) SetCurrent(ctx context.Context, claims *models.JWTClaims, sessionID string) error {
	if _, err := s.Get(ctx, claims.SchoolID, sessionID); err != nil {
		return err
	}
	if err := s.sessions.SetCurrent(ctx, claims.SchoolID, sessionID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set current session")
	}
	s.invalidateReports(ctx, claims.SchoolID)
	s.recordAudit(ctx, claims, models.AuditActionSessionCurrent, "session", sessionID)
	return nil
}

// SetShowResults toggles parent visibility of the session's results.
func (s *SessionService) SetShowResults(ctx context.Context, claims *models.JWTClaims, sessionID string, show bool) error {
	if _, err := s.Get(ctx, claims.SchoolID, sessionID); err != nil {
		return err
	}
	if err := s.sessions.SetShowResults(ctx, claims.SchoolID, sessionID, show); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to toggle result visibility")
	}
	s.invalidateReports(ctx, claims.SchoolID)
	return nil
}

// CreateTerm adds a term to a session.
func (s *SessionService) CreateTerm(ctx context.Context, claims *models.JWTClaims, req CreateTermRequest) (*models.Term, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid term payload")
	}
	if _, err := s.Get(ctx, claims.SchoolID, req.SessionID); err != nil {
		return nil, err
	}

	term := &models.Term{
		ID:        uuid.NewString(),
		SessionID: req.SessionID,
		Name:      req.Name,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.sessions.CreateTerm(ctx, term); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create term")
	}
	return term, nil
}

// ListTerms returns the session's terms in creation order.
func (s *SessionService) ListTerms(ctx context.Context, schoolID, sessionID string) ([]models.Term, error) {
	if _, err := s.Get(ctx, schoolID, sessionID); err != nil {
		return nil, err
	}
	terms, err := s.sessions.ListTerms(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list terms")
	}
	return terms, nil
}

// SetCurrentTerm marks one term of the session current, clearing siblings.
func (s *SessionService) SetCurrentTerm(ctx context.Context, claims *models.JWTClaims, sessionID, termID string) error {
	if _, err := s.Get(ctx, claims.SchoolID, sessionID); err != nil {
		return err
	}
	term, err := s.sessions.FindTermByID(ctx, termID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch term")
	}
	if term.SessionID != sessionID {
		return appErrors.Clone(appErrors.ErrNotFound, "term not found")
	}
	if err := s.sessions.SetCurrentTerm(ctx, sessionID, termID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set current term")
	}
	s.invalidateReports(ctx, claims.SchoolID)
	s.recordAudit(ctx, claims, models.AuditActionTermCurrent, "term", termID)
	return nil
}

// CurrentPeriod resolves the school's active session and term. Writes
// that depend on "now" call this first and surface the dedicated errors
// when either is unset.
func (s *SessionService) CurrentPeriod(ctx context.Context, schoolID string) (*models.CurrentPeriod, error) {
	session, err := s.sessions.FindCurrent(ctx, schoolID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrSessionNotSet, "no current session set for school")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve current session")
	}
	term, err := s.sessions.FindCurrentTerm(ctx, session.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrTermNotSet, "no current term set for session")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve current term")
	}
	return &models.CurrentPeriod{Session: *session, Term: *term}, nil
}

func (s *SessionService) invalidateReports(ctx context.Context, schoolID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, reportCachePattern(schoolID)); err != nil {
		s.logger.Warn("invalidate report cache", zap.String("school_id", schoolID), zap.Error(err))
	}
}

func (s *SessionService) recordAudit(ctx context.Context, claims *models.JWTClaims, action, resource, resourceID string) {
	if s.audit == nil || claims == nil {
		return
	}
	entry := &models.AuditLog{
		ID:         uuid.NewString(),
		UserID:     &claims.UserID,
		SchoolID:   &claims.SchoolID,
		Action:     action,
		Resource:   resource,
		ResourceID: &resourceID,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("record audit log", zap.String("action", action), zap.Error(err))
	}
}
