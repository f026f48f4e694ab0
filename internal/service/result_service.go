package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/school-results-api/internal/models"
	appErrors "github.com/noah-isme/school-results-api/pkg/errors"
)

type resultRepo interface {
	UpsertAndAggregate(ctx context.Context, result *models.SubjectResult, resolveGrade func(score int) models.GradeRemark) error
	BulkUpsertAndAggregate(ctx context.Context, results []models.SubjectResult, resolveGrade func(score int) models.GradeRemark) error
	ListByTuple(ctx context.Context, schoolID, studentID, termID, sessionID string) ([]models.SubjectResult, error)
	DeleteByTuple(ctx context.Context, schoolID, studentID, termID, sessionID string) (int64, error)
	GetTermTotal(ctx context.Context, schoolID, studentID, termID, sessionID string) (*models.TermTotal, error)
	UpdateComments(ctx context.Context, schoolID, studentID, termID, sessionID string, teacherComment, principalComment *string) error
}

type resultAuditRepo interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type currentPeriodResolver interface {
	CurrentPeriod(ctx context.Context, schoolID string) (*models.CurrentPeriod, error)
}

// ScoreEntry carries one subject's raw component scores. Unset components
// count as zero in the continuous assessment.
type ScoreEntry struct {
	Subject    string `json:"subject" validate:"required"`
	FirstTest  *int   `json:"first_test" validate:"omitempty,min=0"`
	SecondTest *int   `json:"second_test" validate:"omitempty,min=0"`
	ThirdTest  *int   `json:"third_test" validate:"omitempty,min=0"`
	Exam       *int   `json:"exam" validate:"omitempty,min=0"`
}

// UpsertResultRequest writes scores for one student in the current period.
type UpsertResultRequest struct {
	StudentID string       `json:"student_id" validate:"required"`
	Entries   []ScoreEntry `json:"entries" validate:"required,min=1,dive"`
}

// UpdateCommentsRequest edits the per-term staff comments. Nil fields are
// left untouched.
type UpdateCommentsRequest struct {
	StudentID        string  `json:"student_id" validate:"required"`
	TermID           string  `json:"term_id" validate:"required"`
	SessionID        string  `json:"session_id" validate:"required"`
	TeacherComment   *string `json:"teacher_comment"`
	PrincipalComment *string `json:"principal_comment"`
}

// ResultService orchestrates score entry, aggregation and reset flows.
// Every write recomputes the student's term aggregate inside the same
// transaction the repository opens.
type ResultService struct {
	results   resultRepo
	grading   *GradingService
	periods   currentPeriodResolver
	audit     resultAuditRepo
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewResultService constructs a ResultService.
func NewResultService(results resultRepo, grading *GradingService, periods currentPeriodResolver, audit resultAuditRepo, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ResultService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResultService{
		results:   results,
		grading:   grading,
		periods:   periods,
		audit:     audit,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

func intOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

// computeScores derives the continuous assessment and total for one
// entry. A combined score above 100 is rejected before anything touches
// the database.
func computeScores(entry ScoreEntry) (ca, total int, err error) {
	ca = intOrZero(entry.FirstTest) + intOrZero(entry.SecondTest) + intOrZero(entry.ThirdTest)
	total = ca + intOrZero(entry.Exam)
	if total > 100 {
		return 0, 0, appErrors.Clone(appErrors.ErrScoreOverflow,
			fmt.Sprintf("%s: continuous assessment plus exam is %d, limit is 100", entry.Subject, total))
	}
	return ca, total, nil
}

// Upsert writes the submitted scores for one student in the school's
// current session and term, recomputing the term aggregate atomically.
// All entries are validated before any row is written, so an overflow in
// any entry rejects the whole batch.
func (s *ResultService) Upsert(ctx context.Context, claims *models.JWTClaims, req UpsertResultRequest) ([]models.SubjectResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid result payload")
	}

	period, err := s.periods.CurrentPeriod(ctx, claims.SchoolID)
	if err != nil {
		return nil, err
	}

	resolve, err := s.grading.Resolver(ctx, claims.SchoolID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	results := make([]models.SubjectResult, 0, len(req.Entries))
	for _, entry := range req.Entries {
		ca, total, err := computeScores(entry)
		if err != nil {
			return nil, err
		}
		grade := resolve(total)
		results = append(results, models.SubjectResult{
			ID:         uuid.NewString(),
			SchoolID:   claims.SchoolID,
			StudentID:  req.StudentID,
			TermID:     period.Term.ID,
			SessionID:  period.Session.ID,
			Subject:    entry.Subject,
			FirstTest:  entry.FirstTest,
			SecondTest: entry.SecondTest,
			ThirdTest:  entry.ThirdTest,
			CA:         ca,
			Exam:       entry.Exam,
			TotalScore: total,
			Grade:      grade.Grade,
			Remark:     grade.Remark,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}

	start := time.Now()
	if len(results) == 1 {
		err = s.results.UpsertAndAggregate(ctx, &results[0], resolve)
	} else {
		err = s.results.BulkUpsertAndAggregate(ctx, results, resolve)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist results")
	}
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("result_upsert", time.Since(start))
	}

	s.invalidateReports(ctx, claims.SchoolID)
	s.recordAudit(ctx, claims, models.AuditActionResultUpsert, "result", req.StudentID)

	return results, nil
}

// List returns the stored subject results for one (student, term, session),
// scoped to the caller's school.
func (s *ResultService) List(ctx context.Context, schoolID, studentID, termID, sessionID string) ([]models.SubjectResult, error) {
	results, err := s.results.ListByTuple(ctx, schoolID, studentID, termID, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list results")
	}
	return results, nil
}

// TermTotal returns the materialized aggregate, or nil when the student
// has no results for the period yet.
func (s *ResultService) TermTotal(ctx context.Context, schoolID, studentID, termID, sessionID string) (*models.TermTotal, error) {
	total, err := s.results.GetTermTotal(ctx, schoolID, studentID, termID, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch term total")
	}
	return total, nil
}

// Reset removes all of a student's results and the term aggregate for
// the current period in one transaction.
func (s *ResultService) Reset(ctx context.Context, claims *models.JWTClaims, studentID string) (int64, error) {
	period, err := s.periods.CurrentPeriod(ctx, claims.SchoolID)
	if err != nil {
		return 0, err
	}

	deleted, err := s.results.DeleteByTuple(ctx, claims.SchoolID, studentID, period.Term.ID, period.Session.ID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset results")
	}

	s.invalidateReports(ctx, claims.SchoolID)
	s.recordAudit(ctx, claims, models.AuditActionResultReset, "result", studentID)

	return deleted, nil
}

// UpdateComments edits the teacher and principal comments on a term
// aggregate without disturbing the computed totals.
func (s *ResultService) UpdateComments(ctx context.Context, claims *models.JWTClaims, req UpdateCommentsRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid comments payload")
	}
	if req.TeacherComment == nil && req.PrincipalComment == nil {
		return appErrors.Clone(appErrors.ErrValidation, "no comment fields provided")
	}

	if err := s.results.UpdateComments(ctx, claims.SchoolID, req.StudentID, req.TermID, req.SessionID, req.TeacherComment, req.PrincipalComment); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "no term total to comment on")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update comments")
	}

	s.invalidateReports(ctx, claims.SchoolID)
	return nil
}

func (s *ResultService) invalidateReports(ctx context.Context, schoolID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, reportCachePattern(schoolID)); err != nil {
		s.logger.Warn("invalidate report cache", zap.String("school_id", schoolID), zap.Error(err))
	}
}

func (s *ResultService) recordAudit(ctx context.Context, claims *models.JWTClaims, action, resource, resourceID string) {
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
