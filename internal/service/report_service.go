package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/school-results-api/internal/dto"
	"github.com/noah-isme/school-results-api/internal/models"
	appErrors "github.com/noah-isme/school-results-api/pkg/errors"
)

type reportSchoolRepo interface {
	FindByID(ctx context.Context, id string) (*models.School, error)
}

type reportStudentRepo interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type reportSessionRepo interface {
	FindByID(ctx context.Context, id string) (*models.Session, error)
	FindTermByID(ctx context.Context, id string) (*models.Term, error)
}

type reportClassLevelRepo interface {
	FindByID(ctx context.Context, id string) (*models.ClassLevel, error)
}

type parentLinkRepo interface {
	ListStudentIDsByParent(ctx context.Context, parentID string) ([]string, error)
}

const notSet = "Not Set"

func reportCacheKey(schoolID, studentID, termID, sessionID string) string {
	return fmt.Sprintf("reports:%s:%s:%s:%s", schoolID, studentID, termID, sessionID)
}

func reportCachePattern(schoolID string) string {
	return fmt.Sprintf("reports:%s:*", schoolID)
}

// ReportService assembles the full result report for one student and
// period: the stored subject rows, the term aggregate, the cohort
// standing and the staff comments. Assembled payloads are cached per
// (school, student, term, session) and invalidated by any result write.
type ReportService struct {
	schools     reportSchoolRepo
	students    reportStudentRepo
	sessions    reportSessionRepo
	classLevels reportClassLevelRepo
	enrollments rankingEnrollmentRepo
	results     *ResultService
	ranking     *RankingService
	parents     parentLinkRepo
	cache       *CacheService
	logger      *zap.Logger
}

// NewReportService constructs a ReportService.
func NewReportService(schools reportSchoolRepo, students reportStudentRepo, sessions reportSessionRepo, classLevels reportClassLevelRepo, enrollments rankingEnrollmentRepo, results *ResultService, ranking *RankingService, parents parentLinkRepo, cache *CacheService, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		schools:     schools,
		students:    students,
		sessions:    sessions,
		classLevels: classLevels,
		enrollments: enrollments,
		results:     results,
		ranking:     ranking,
		parents:     parents,
		cache:       cache,
		logger:      logger,
	}
}

// Report assembles the report payload for a student, term and session.
// The boolean indicates whether the payload came from cache.
func (s *ReportService) Report(ctx context.Context, schoolID, studentID, termID, sessionID string) (*dto.ReportPayload, bool, error) {
	cacheKey := reportCacheKey(schoolID, studentID, termID, sessionID)
	var cached dto.ReportPayload
	if s.cache != nil {
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	payload, err := s.assemble(ctx, schoolID, studentID, termID, sessionID)
	if err != nil {
		return nil, false, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, payload, 0); err != nil {
			s.logger.Warn("cache report payload", zap.Error(err))
		}
	}
	return payload, false, nil
}

// ParentReport is the parent-facing variant: the parent must be linked
// to the student and the session must have result visibility enabled.
func (s *ReportService) ParentReport(ctx context.Context, claims *models.JWTClaims, studentID, termID, sessionID string) (*dto.ReportPayload, error) {
	linked, err := s.parents.ListStudentIDsByParent(ctx, claims.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve linked students")
	}
	allowed := false
	for _, id := range linked {
		if id == studentID {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "student is not linked to this account")
	}

	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch session")
	}
	if session.SchoolID != claims.SchoolID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
	}
	if !session.ShowResults {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "results are not released for this session")
	}

	payload, _, err := s.Report(ctx, claims.SchoolID, studentID, termID, sessionID)
	return payload, err
}

func (s *ReportService) assemble(ctx context.Context, schoolID, studentID, termID, sessionID string) (*dto.ReportPayload, error) {
	school, err := s.schools.FindByID(ctx, schoolID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "school not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch school")
	}

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student")
	}
	if student.SchoolID != schoolID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}

	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch session")
	}
	term, err := s.sessions.FindTermByID(ctx, termID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch term")
	}

	results, err := s.results.List(ctx, schoolID, studentID, termID, sessionID)
	if err != nil {
		return nil, err
	}
	termTotal, err := s.results.TermTotal(ctx, schoolID, studentID, termID, sessionID)
	if err != nil {
		return nil, err
	}
	ranking, err := s.ranking.Standing(ctx, schoolID, studentID, sessionID, termID)
	if err != nil {
		return nil, err
	}

	classLevelName := notSet
	if enrollment, err := s.enrollments.FindByStudentAndSession(ctx, studentID, sessionID); err == nil {
		if level, err := s.classLevels.FindByID(ctx, enrollment.ClassLevelID); err == nil {
			classLevelName = level.Name
		}
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch enrollment")
	}

	payload := &dto.ReportPayload{
		School: dto.SchoolInfo{
			SchoolName: school.Name,
			Location:   stringOrNotSet(school.Address),
			Phone:      stringOrNotSet(school.Phone),
			Email:      stringOrNotSet(school.Email),
		},
		Period: dto.PeriodInfo{Session: session.Name, Term: term.Name},
		Student: dto.StudentInfo{
			StudentName: student.Name,
			OtherInfo:   stringOrNotSet(student.OtherInfo),
			ClassLevel:  classLevelName,
		},
		SubjectResults: results,
		TermTotal:      termTotal,
		Ranking:        ranking,
		Comments:       dto.Comments{TeacherComment: notSet, PrincipalComment: notSet},
	}
	if termTotal != nil {
		payload.Comments.TeacherComment = stringOrNotSet(termTotal.TeacherComment)
		payload.Comments.PrincipalComment = stringOrNotSet(termTotal.PrincipalComment)
	}
	return payload, nil
}

func stringOrNotSet(v *string) string {
	if v == nil || *v == "" {
		return notSet
	}
	return *v
}
