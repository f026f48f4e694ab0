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

type mockSchoolReader struct {
	school *models.School
}

func (m *mockSchoolReader) FindByID(ctx context.Context, id string) (*models.School, error) {
	if m.school == nil || m.school.ID != id {
		return nil, sql.ErrNoRows
	}
	return m.school, nil
}

type mockStudentReader struct {
	student *models.Student
}

func (m *mockStudentReader) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if m.student == nil || m.student.ID != id {
		return nil, sql.ErrNoRows
	}
	return m.student, nil
}

type mockSessionReader struct {
	session *models.Session
	term    *models.Term
}

func (m *mockSessionReader) FindByID(ctx context.Context, id string) (*models.Session, error) {
	if m.session == nil || m.session.ID != id {
		return nil, sql.ErrNoRows
	}
	return m.session, nil
}

func (m *mockSessionReader) FindTermByID(ctx context.Context, id string) (*models.Term, error) {
	if m.term == nil || m.term.ID != id {
		return nil, sql.ErrNoRows
	}
	return m.term, nil
}

type mockLevelReader struct {
	level *models.ClassLevel
}

func (m *mockLevelReader) FindByID(ctx context.Context, id string) (*models.ClassLevel, error) {
	if m.level == nil || m.level.ID != id {
		return nil, sql.ErrNoRows
	}
	return m.level, nil
}

type mockParentLinks struct {
	linked []string
}

func (m *mockParentLinks) ListStudentIDsByParent(ctx context.Context, parentID string) ([]string, error) {
	return m.linked, nil
}

func newReportFixture(showResults bool, linked ...string) (*ReportService, *mockResultRepo) {
	resultRepo := &mockResultRepo{
		stored: map[string]models.SubjectResult{
			"s1|term-1|sess-1|Mathematics": {
				SchoolID: "school-1", StudentID: "s1", TermID: "term-1", SessionID: "sess-1",
				Subject: "Mathematics", CA: 55, Exam: intPtr(40), TotalScore: 95, Grade: "A", Remark: "Excellent",
			},
		},
		totals: map[string]models.TermTotal{
			"s1": {SchoolID: "school-1", StudentID: "s1", TermID: "term-1", SessionID: "sess-1", TotalScore: 95, TeacherComment: strPtr("Keep it up")},
		},
	}
	cohort, byStudent := cohortOf("s1", "s2")
	ranking := NewRankingService(
		&mockRankEnrollmentRepo{cohort: cohort, byStudent: byStudent},
		&mockRankResultRepo{totals: map[string]int{"s1": 95, "s2": 60}, subjectCount: 1},
		nil,
	)

	address := "12 School Road"
	reports := NewReportService(
		&mockSchoolReader{school: &models.School{ID: "school-1", Name: "Demo Grammar School", Address: &address}},
		&mockStudentReader{student: &models.Student{ID: "s1", SchoolID: "school-1", Name: "Ada Obi"}},
		&mockSessionReader{
			session: &models.Session{ID: "sess-1", SchoolID: "school-1", Name: "2026/2027", ShowResults: showResults},
			term:    &models.Term{ID: "term-1", SessionID: "sess-1", Name: "First Term"},
		},
		&mockLevelReader{level: &models.ClassLevel{ID: "level-1", SchoolID: "school-1", Name: "JSS 1"}},
		&mockRankEnrollmentRepo{cohort: cohort, byStudent: byStudent},
		newResultService(resultRepo, standardScale()),
		ranking,
		&mockParentLinks{linked: linked},
		nil,
		nil,
	)
	return reports, resultRepo
}

func TestReportAssemblesFullPayload(t *testing.T) {
	reports, _ := newReportFixture(true)

	payload, fromCache, err := reports.Report(context.Background(), "school-1", "s1", "term-1", "sess-1")
	require.NoError(t, err)
	assert.False(t, fromCache)

	assert.Equal(t, "Demo Grammar School", payload.School.SchoolName)
	assert.Equal(t, "12 School Road", payload.School.Location)
	assert.Equal(t, "Not Set", payload.School.Phone)
	assert.Equal(t, "2026/2027", payload.Period.Session)
	assert.Equal(t, "First Term", payload.Period.Term)
	assert.Equal(t, "Ada Obi", payload.Student.StudentName)
	assert.Equal(t, "JSS 1", payload.Student.ClassLevel)
	require.Len(t, payload.SubjectResults, 1)
	assert.Equal(t, 95, payload.SubjectResults[0].TotalScore)
	require.NotNil(t, payload.TermTotal)
	assert.Equal(t, "Keep it up", payload.Comments.TeacherComment)
	assert.Equal(t, "Not Set", payload.Comments.PrincipalComment)

	assert.True(t, payload.Ranking.Available)
	assert.Equal(t, 1, payload.Ranking.Position)
	assert.Equal(t, "1st", payload.Ranking.PositionLabel)
}

func TestReportUnknownStudentIsNotFound(t *testing.T) {
	reports, _ := newReportFixture(true)

	_, _, err := reports.Report(context.Background(), "school-1", "ghost", "term-1", "sess-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestParentReportRequiresLink(t *testing.T) {
	reports, _ := newReportFixture(true, "other-kid")

	_, err := reports.ParentReport(context.Background(), &models.JWTClaims{UserID: "parent-1", SchoolID: "school-1", Role: models.RoleParent}, "s1", "term-1", "sess-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestParentReportBlockedUntilResultsReleased(t *testing.T) {
	reports, _ := newReportFixture(false, "s1")

	_, err := reports.ParentReport(context.Background(), &models.JWTClaims{UserID: "parent-1", SchoolID: "school-1", Role: models.RoleParent}, "s1", "term-1", "sess-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestParentReportReturnsReleasedPayload(t *testing.T) {
	reports, _ := newReportFixture(true, "s1")

	payload, err := reports.ParentReport(context.Background(), &models.JWTClaims{UserID: "parent-1", SchoolID: "school-1", Role: models.RoleParent}, "s1", "term-1", "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "Ada Obi", payload.Student.StudentName)
}
