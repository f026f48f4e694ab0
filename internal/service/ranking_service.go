package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/noah-isme/school-results-api/internal/dto"
	"github.com/noah-isme/school-results-api/internal/models"
	appErrors "github.com/noah-isme/school-results-api/pkg/errors"
)

type rankingEnrollmentRepo interface {
	FindByStudentAndSession(ctx context.Context, studentID, sessionID string) (*models.Enrollment, error)
	ListByClassLevelAndSession(ctx context.Context, schoolID, classLevelID, sessionID string) ([]models.Enrollment, error)
}

type rankingResultRepo interface {
	SumTotalsByStudents(ctx context.Context, studentIDs []string, termID, sessionID string) (map[string]int, error)
	CountSubjects(ctx context.Context, studentID, termID, sessionID string) (int, error)
}

// RankedStudent is one cohort member's standing for a term.
type RankedStudent struct {
	StudentID     string `json:"student_id"`
	Total         int    `json:"total"`
	Position      int    `json:"position"`
	PositionLabel string `json:"position_ordinal"`
}

// RankingService computes class standings. The cohort is the set of
// students enrolled in the same class level for the session; members
// without stored results count with a total of zero so positions stay
// comparable across the class.
type RankingService struct {
	enrollments rankingEnrollmentRepo
	results     rankingResultRepo
	logger      *zap.Logger
}

// NewRankingService constructs a RankingService.
func NewRankingService(enrollments rankingEnrollmentRepo, results rankingResultRepo, logger *zap.Logger) *RankingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RankingService{enrollments: enrollments, results: results, logger: logger}
}

// Ordinal renders an English ordinal: 1st, 2nd, 3rd, 4th, with the
// 11th/12th/13th exceptions.
func Ordinal(n int) string {
	suffix := "th"
	if n%100 < 11 || n%100 > 13 {
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", n, suffix)
}

// rankCohort orders totals descending. Equal totals keep their input
// order, which the enrollment query fixes to enrollment creation order,
// so a tie resolves in favour of the earlier enrollee.
func rankCohort(enrollments []models.Enrollment, totals map[string]int) []RankedStudent {
	ranked := make([]RankedStudent, 0, len(enrollments))
	for _, e := range enrollments {
		ranked = append(ranked, RankedStudent{StudentID: e.StudentID, Total: totals[e.StudentID]})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Total > ranked[j].Total })
	for i := range ranked {
		ranked[i].Position = i + 1
		ranked[i].PositionLabel = Ordinal(i + 1)
	}
	return ranked
}

// ClassStanding ranks every student enrolled in the class level for the
// session by their summed term totals.
func (s *RankingService) ClassStanding(ctx context.Context, schoolID, classLevelID, sessionID, termID string) ([]RankedStudent, error) {
	enrollments, err := s.enrollments.ListByClassLevelAndSession(ctx, schoolID, classLevelID, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list cohort")
	}
	if len(enrollments) == 0 {
		return []RankedStudent{}, nil
	}

	ids := make([]string, 0, len(enrollments))
	for _, e := range enrollments {
		ids = append(ids, e.StudentID)
	}
	totals, err := s.results.SumTotalsByStudents(ctx, ids, termID, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sum cohort totals")
	}

	return rankCohort(enrollments, totals), nil
}

// Standing computes one student's standing inside their cohort for the
// term. A student with no enrollment for the session gets a summary with
// Available false instead of an error; the rest of the report still
// renders.
func (s *RankingService) Standing(ctx context.Context, schoolID, studentID, sessionID, termID string) (dto.RankingSummary, error) {
	enrollment, err := s.enrollments.FindByStudentAndSession(ctx, studentID, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return dto.RankingSummary{Available: false}, nil
		}
		return dto.RankingSummary{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch enrollment")
	}

	ranked, err := s.ClassStanding(ctx, schoolID, enrollment.ClassLevelID, sessionID, termID)
	if err != nil {
		return dto.RankingSummary{}, err
	}

	subjectCount, err := s.results.CountSubjects(ctx, studentID, termID, sessionID)
	if err != nil {
		return dto.RankingSummary{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count subjects")
	}

	summary := dto.RankingSummary{
		Available:     true,
		OutOf:         subjectCount * 100,
		OutOfStudents: len(ranked),
	}

	classTotal := 0
	for _, r := range ranked {
		classTotal += r.Total
		if r.StudentID == studentID {
			summary.TotalScore = r.Total
			summary.Position = r.Position
			summary.PositionLabel = r.PositionLabel
		}
	}

	if summary.OutOf > 0 {
		summary.AverageScore = round2(float64(summary.TotalScore) / float64(summary.OutOf) * 100)
	}
	if denom := len(ranked) * 100 * subjectCount; denom > 0 {
		summary.ClassAverage = round2(float64(classTotal) / float64(denom) * 100)
	}

	return summary, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
