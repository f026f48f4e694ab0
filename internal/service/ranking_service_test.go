package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-results-api/internal/models"
)

type mockRankEnrollmentRepo struct {
	cohort    []models.Enrollment
	byStudent map[string]*models.Enrollment
}

func (m *mockRankEnrollmentRepo) FindByStudentAndSession(ctx context.Context, studentID, sessionID string) (*models.Enrollment, error) {
	if e, ok := m.byStudent[studentID]; ok {
		return e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockRankEnrollmentRepo) ListByClassLevelAndSession(ctx context.Context, schoolID, classLevelID, sessionID string) ([]models.Enrollment, error) {
	return m.cohort, nil
}

type mockRankResultRepo struct {
	totals       map[string]int
	subjectCount int
}

func (m *mockRankResultRepo) SumTotalsByStudents(ctx context.Context, studentIDs []string, termID, sessionID string) (map[string]int, error) {
	out := make(map[string]int)
	for _, id := range studentIDs {
		if total, ok := m.totals[id]; ok {
			out[id] = total
		}
	}
	return out, nil
}

func (m *mockRankResultRepo) CountSubjects(ctx context.Context, studentID, termID, sessionID string) (int, error) {
	return m.subjectCount, nil
}

func cohortOf(ids ...string) ([]models.Enrollment, map[string]*models.Enrollment) {
	base := time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)
	cohort := make([]models.Enrollment, 0, len(ids))
	byStudent := make(map[string]*models.Enrollment, len(ids))
	for i, id := range ids {
		e := models.Enrollment{
			ID:           "enr-" + id,
			SchoolID:     "school-1",
			SessionID:    "sess-1",
			ClassLevelID: "level-1",
			StudentID:    id,
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		}
		cohort = append(cohort, e)
		byStudent[id] = &cohort[len(cohort)-1]
	}
	return cohort, byStudent
}

func TestOrdinal(t *testing.T) {
	cases := map[int]string{
		1: "1st", 2: "2nd", 3: "3rd", 4: "4th",
		11: "11th", 12: "12th", 13: "13th",
		21: "21st", 22: "22nd", 23: "23rd",
		101: "101st", 111: "111th", 112: "112th", 113: "113th",
	}
	for n, want := range cases {
		assert.Equal(t, want, Ordinal(n))
	}
}

func TestClassStandingOrdersByTotalDescending(t *testing.T) {
	cohort, byStudent := cohortOf("s1", "s2", "s3")
	svc := NewRankingService(
		&mockRankEnrollmentRepo{cohort: cohort, byStudent: byStudent},
		&mockRankResultRepo{totals: map[string]int{"s1": 250, "s2": 310, "s3": 180}, subjectCount: 4},
		nil,
	)

	ranked, err := svc.ClassStanding(context.Background(), "school-1", "level-1", "sess-1", "term-1")
	require.NoError(t, err)
	require.Len(t, ranked, 3)
	assert.Equal(t, "s2", ranked[0].StudentID)
	assert.Equal(t, 1, ranked[0].Position)
	assert.Equal(t, "1st", ranked[0].PositionLabel)
	assert.Equal(t, "s1", ranked[1].StudentID)
	assert.Equal(t, "s3", ranked[2].StudentID)
}

func TestClassStandingTiesKeepEnrollmentOrder(t *testing.T) {
	// s1 and s3 tie on 80; s1 enrolled first, so s1 outranks s3.
	cohort, byStudent := cohortOf("s1", "s2", "s3")
	svc := NewRankingService(
		&mockRankEnrollmentRepo{cohort: cohort, byStudent: byStudent},
		&mockRankResultRepo{totals: map[string]int{"s1": 80, "s2": 90, "s3": 80}, subjectCount: 1},
		nil,
	)

	ranked, err := svc.ClassStanding(context.Background(), "school-1", "level-1", "sess-1", "term-1")
	require.NoError(t, err)
	assert.Equal(t, "s2", ranked[0].StudentID)
	assert.Equal(t, 1, ranked[0].Position)
	assert.Equal(t, "s1", ranked[1].StudentID)
	assert.Equal(t, 2, ranked[1].Position)
	assert.Equal(t, "s3", ranked[2].StudentID)
	assert.Equal(t, 3, ranked[2].Position)
}

func TestClassStandingMissingResultsCountZero(t *testing.T) {
	cohort, byStudent := cohortOf("s1", "s2")
	svc := NewRankingService(
		&mockRankEnrollmentRepo{cohort: cohort, byStudent: byStudent},
		&mockRankResultRepo{totals: map[string]int{"s1": 120}, subjectCount: 2},
		nil,
	)

	ranked, err := svc.ClassStanding(context.Background(), "school-1", "level-1", "sess-1", "term-1")
	require.NoError(t, err)
	assert.Equal(t, 0, ranked[1].Total)
	assert.Equal(t, "s2", ranked[1].StudentID)
}

func TestStandingComputesAverages(t *testing.T) {
	cohort, byStudent := cohortOf("s1", "s2", "s3")
	svc := NewRankingService(
		&mockRankEnrollmentRepo{cohort: cohort, byStudent: byStudent},
		&mockRankResultRepo{totals: map[string]int{"s1": 250, "s2": 310, "s3": 180}, subjectCount: 4},
		nil,
	)

	summary, err := svc.Standing(context.Background(), "school-1", "s1", "sess-1", "term-1")
	require.NoError(t, err)
	assert.True(t, summary.Available)
	assert.Equal(t, 250, summary.TotalScore)
	assert.Equal(t, 400, summary.OutOf)
	assert.Equal(t, 2, summary.Position)
	assert.Equal(t, "2nd", summary.PositionLabel)
	assert.Equal(t, 3, summary.OutOfStudents)
	// 250/400 = 62.5%
	assert.InDelta(t, 62.5, summary.AverageScore, 0.001)
	// (250+310+180)/(3*100*4)*100 = 61.666... → 61.67
	assert.InDelta(t, 61.67, summary.ClassAverage, 0.001)
}

func TestStandingWithoutEnrollmentIsUnavailable(t *testing.T) {
	svc := NewRankingService(
		&mockRankEnrollmentRepo{byStudent: map[string]*models.Enrollment{}},
		&mockRankResultRepo{},
		nil,
	)

	summary, err := svc.Standing(context.Background(), "school-1", "ghost", "sess-1", "term-1")
	require.NoError(t, err)
	assert.False(t, summary.Available)
	assert.Zero(t, summary.Position)
}

func TestStandingZeroSubjectsGuardsDivision(t *testing.T) {
	cohort, byStudent := cohortOf("s1")
	svc := NewRankingService(
		&mockRankEnrollmentRepo{cohort: cohort, byStudent: byStudent},
		&mockRankResultRepo{totals: map[string]int{}, subjectCount: 0},
		nil,
	)

	summary, err := svc.Standing(context.Background(), "school-1", "s1", "sess-1", "term-1")
	require.NoError(t, err)
	assert.True(t, summary.Available)
	assert.Zero(t, summary.OutOf)
	assert.Zero(t, summary.AverageScore)
	assert.Zero(t, summary.ClassAverage)
}
