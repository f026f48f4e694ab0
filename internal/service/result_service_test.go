package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-results-api/internal/models"
	appErrors "github.com/noah-isme/school-results-api/pkg/errors"
)

type mockResultRepo struct {
	stored     map[string]models.SubjectResult
	aggregated int
	deleted    int64
	totals     map[string]models.TermTotal
	comments   [][2]*string
}

func (m *mockResultRepo) key(r *models.SubjectResult) string {
	return r.StudentID + "|" + r.TermID + "|" + r.SessionID + "|" + r.Subject
}

func (m *mockResultRepo) UpsertAndAggregate(ctx context.Context, result *models.SubjectResult, resolveGrade func(int) models.GradeRemark) error {
	if m.stored == nil {
		m.stored = make(map[string]models.SubjectResult)
	}
	m.stored[m.key(result)] = *result
	m.aggregated++
	return nil
}

func (m *mockResultRepo) BulkUpsertAndAggregate(ctx context.Context, results []models.SubjectResult, resolveGrade func(int) models.GradeRemark) error {
	for i := range results {
		if err := m.UpsertAndAggregate(ctx, &results[i], resolveGrade); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockResultRepo) ListByTuple(ctx context.Context, schoolID, studentID, termID, sessionID string) ([]models.SubjectResult, error) {
	var out []models.SubjectResult
	for _, r := range m.stored {
		if r.SchoolID == schoolID && r.StudentID == studentID && r.TermID == termID && r.SessionID == sessionID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockResultRepo) DeleteByTuple(ctx context.Context, schoolID, studentID, termID, sessionID string) (int64, error) {
	var n int64
	for k, r := range m.stored {
		if r.SchoolID == schoolID && r.StudentID == studentID && r.TermID == termID && r.SessionID == sessionID {
			delete(m.stored, k)
			n++
		}
	}
	m.deleted += n
	return n, nil
}

func (m *mockResultRepo) GetTermTotal(ctx context.Context, schoolID, studentID, termID, sessionID string) (*models.TermTotal, error) {
	if t, ok := m.totals[studentID]; ok && t.SchoolID == schoolID {
		return &t, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockResultRepo) UpdateComments(ctx context.Context, schoolID, studentID, termID, sessionID string, teacherComment, principalComment *string) error {
	if t, ok := m.totals[studentID]; !ok || t.SchoolID != schoolID {
		return sql.ErrNoRows
	}
	m.comments = append(m.comments, [2]*string{teacherComment, principalComment})
	return nil
}

type mockPeriodResolver struct {
	period *models.CurrentPeriod
	err    error
}

func (m *mockPeriodResolver) CurrentPeriod(ctx context.Context, schoolID string) (*models.CurrentPeriod, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.period, nil
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func staffClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "user-1", SchoolID: "school-1", Role: models.RoleStaff}
}

func activePeriod() *mockPeriodResolver {
	return &mockPeriodResolver{period: &models.CurrentPeriod{
		Session: models.Session{ID: "sess-1", SchoolID: "school-1", IsCurrent: true},
		Term:    models.Term{ID: "term-1", SessionID: "sess-1", IsCurrent: true},
	}}
}

func newResultService(repo *mockResultRepo, bands []models.GradingBand) *ResultService {
	grading := NewGradingService(&mockBandRepo{bands: map[string][]models.GradingBand{"school-1": bands}}, nil, nil, nil)
	return NewResultService(repo, grading, activePeriod(), nil, nil, nil, nil, nil)
}

func TestComputeScoresSumsComponents(t *testing.T) {
	ca, total, err := computeScores(ScoreEntry{
		Subject:   "Mathematics",
		FirstTest: intPtr(20), SecondTest: intPtr(15), ThirdTest: intPtr(25),
		Exam: intPtr(30),
	})
	require.NoError(t, err)
	assert.Equal(t, 60, ca)
	assert.Equal(t, 90, total)
}

func TestComputeScoresMissingComponentsAreZero(t *testing.T) {
	ca, total, err := computeScores(ScoreEntry{Subject: "English", SecondTest: intPtr(40)})
	require.NoError(t, err)
	assert.Equal(t, 40, ca)
	assert.Equal(t, 40, total)

	ca, total, err = computeScores(ScoreEntry{Subject: "Empty"})
	require.NoError(t, err)
	assert.Zero(t, ca)
	assert.Zero(t, total)
}

func TestComputeScoresRejectsOverflow(t *testing.T) {
	_, _, err := computeScores(ScoreEntry{
		Subject:   "Biology",
		FirstTest: intPtr(40), SecondTest: intPtr(40), ThirdTest: intPtr(20),
		Exam: intPtr(10),
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrScoreOverflow.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "Biology")
	assert.Contains(t, appErr.Message, "110")
}

func TestUpsertPersistsDerivedFields(t *testing.T) {
	repo := &mockResultRepo{}
	svc := newResultService(repo, standardScale())

	results, err := svc.Upsert(context.Background(), staffClaims(), UpsertResultRequest{
		StudentID: "stu-1",
		Entries: []ScoreEntry{{
			Subject:   "Mathematics",
			FirstTest: intPtr(20), SecondTest: intPtr(20), ThirdTest: intPtr(25),
			Exam: intPtr(30),
		}},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)

	stored := repo.stored["stu-1|term-1|sess-1|Mathematics"]
	assert.Equal(t, 65, stored.CA)
	assert.Equal(t, 95, stored.TotalScore)
	assert.Equal(t, "A", stored.Grade)
	assert.Equal(t, "Excellent", stored.Remark)
	assert.Equal(t, "school-1", stored.SchoolID)
	assert.Equal(t, 1, repo.aggregated)
}

func TestUpsertOverflowRejectsWholeBatch(t *testing.T) {
	repo := &mockResultRepo{}
	svc := newResultService(repo, standardScale())

	_, err := svc.Upsert(context.Background(), staffClaims(), UpsertResultRequest{
		StudentID: "stu-1",
		Entries: []ScoreEntry{
			{Subject: "Mathematics", FirstTest: intPtr(20), Exam: intPtr(40)},
			{Subject: "Biology", FirstTest: intPtr(40), SecondTest: intPtr(40), ThirdTest: intPtr(20), Exam: intPtr(10)},
		},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrScoreOverflow.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.stored)
}

func TestUpsertResolvesUncoveredTotalToSentinel(t *testing.T) {
	repo := &mockResultRepo{}
	// Scale covering only 60-100 leaves low scores unresolved.
	svc := newResultService(repo, []models.GradingBand{{MinScore: 60, MaxScore: 100, Grade: "P", Remark: "Pass"}})

	results, err := svc.Upsert(context.Background(), staffClaims(), UpsertResultRequest{
		StudentID: "stu-1",
		Entries:   []ScoreEntry{{Subject: "Physics", FirstTest: intPtr(10), Exam: intPtr(20)}},
	})
	require.NoError(t, err)
	assert.Equal(t, "N/A", results[0].Grade)
	assert.Equal(t, "N/A", results[0].Remark)
}

func TestUpsertFailsWithoutCurrentPeriod(t *testing.T) {
	grading := NewGradingService(&mockBandRepo{}, nil, nil, nil)
	periods := &mockPeriodResolver{err: appErrors.Clone(appErrors.ErrSessionNotSet, "no current session set for school")}
	svc := NewResultService(&mockResultRepo{}, grading, periods, nil, nil, nil, nil, nil)

	_, err := svc.Upsert(context.Background(), staffClaims(), UpsertResultRequest{
		StudentID: "stu-1",
		Entries:   []ScoreEntry{{Subject: "Mathematics", FirstTest: intPtr(10)}},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSessionNotSet.Code, appErrors.FromError(err).Code)
}

func TestUpsertSecondWriteOverwritesTuple(t *testing.T) {
	repo := &mockResultRepo{}
	svc := newResultService(repo, standardScale())
	claims := staffClaims()

	_, err := svc.Upsert(context.Background(), claims, UpsertResultRequest{
		StudentID: "stu-1",
		Entries:   []ScoreEntry{{Subject: "Mathematics", FirstTest: intPtr(30), Exam: intPtr(40)}},
	})
	require.NoError(t, err)

	_, err = svc.Upsert(context.Background(), claims, UpsertResultRequest{
		StudentID: "stu-1",
		Entries:   []ScoreEntry{{Subject: "Mathematics", FirstTest: intPtr(50), Exam: intPtr(45)}},
	})
	require.NoError(t, err)

	require.Len(t, repo.stored, 1)
	stored := repo.stored["stu-1|term-1|sess-1|Mathematics"]
	assert.Equal(t, 95, stored.TotalScore)
	assert.Equal(t, 2, repo.aggregated)
}

func TestResetDeletesCurrentPeriodResults(t *testing.T) {
	repo := &mockResultRepo{}
	svc := newResultService(repo, standardScale())
	claims := staffClaims()

	_, err := svc.Upsert(context.Background(), claims, UpsertResultRequest{
		StudentID: "stu-1",
		Entries: []ScoreEntry{
			{Subject: "Mathematics", FirstTest: intPtr(30), Exam: intPtr(40)},
			{Subject: "English", FirstTest: intPtr(25), Exam: intPtr(35)},
		},
	})
	require.NoError(t, err)

	deleted, err := svc.Reset(context.Background(), claims, "stu-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
	assert.Empty(t, repo.stored)
}

func TestUpdateCommentsRequiresAField(t *testing.T) {
	svc := newResultService(&mockResultRepo{}, standardScale())

	err := svc.UpdateComments(context.Background(), staffClaims(), UpdateCommentsRequest{
		StudentID: "stu-1", TermID: "term-1", SessionID: "sess-1",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUpdateCommentsMissingTotalIsNotFound(t *testing.T) {
	svc := newResultService(&mockResultRepo{}, standardScale())

	err := svc.UpdateComments(context.Background(), staffClaims(), UpdateCommentsRequest{
		StudentID: "ghost", TermID: "term-1", SessionID: "sess-1",
		TeacherComment: strPtr("Keep it up"),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestUpdateCommentsOtherSchoolIsNotFound(t *testing.T) {
	// The tuple exists, but it belongs to another school: a staff caller
	// with foreign credentials must not reach it.
	repo := &mockResultRepo{totals: map[string]models.TermTotal{"stu-1": {SchoolID: "school-2", StudentID: "stu-1"}}}
	svc := newResultService(repo, standardScale())

	err := svc.UpdateComments(context.Background(), staffClaims(), UpdateCommentsRequest{
		StudentID: "stu-1", TermID: "term-1", SessionID: "sess-1",
		TeacherComment: strPtr("overwritten"),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.comments)
}

func TestListScopedToCallerSchool(t *testing.T) {
	repo := &mockResultRepo{}
	svc := newResultService(repo, standardScale())

	_, err := svc.Upsert(context.Background(), staffClaims(), UpsertResultRequest{
		StudentID: "stu-1",
		Entries:   []ScoreEntry{{Subject: "Mathematics", FirstTest: intPtr(30), Exam: intPtr(40)}},
	})
	require.NoError(t, err)

	own, err := svc.List(context.Background(), "school-1", "stu-1", "term-1", "sess-1")
	require.NoError(t, err)
	assert.Len(t, own, 1)

	foreign, err := svc.List(context.Background(), "school-2", "stu-1", "term-1", "sess-1")
	require.NoError(t, err)
	assert.Empty(t, foreign)
}

func TestUpdateCommentsPassesOnlySetFields(t *testing.T) {
	repo := &mockResultRepo{totals: map[string]models.TermTotal{"stu-1": {SchoolID: "school-1", StudentID: "stu-1"}}}
	svc := newResultService(repo, standardScale())

	err := svc.UpdateComments(context.Background(), staffClaims(), UpdateCommentsRequest{
		StudentID: "stu-1", TermID: "term-1", SessionID: "sess-1",
		PrincipalComment: strPtr("Well done"),
	})
	require.NoError(t, err)
	require.Len(t, repo.comments, 1)
	assert.Nil(t, repo.comments[0][0])
	require.NotNil(t, repo.comments[0][1])
	assert.Equal(t, "Well done", *repo.comments[0][1])
}
