package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-results-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func passResolver(score int) models.GradeRemark {
	if score >= 50 {
		return models.GradeRemark{Grade: "P", Remark: "Pass"}
	}
	return models.UnresolvedGrade
}

func sampleResult() *models.SubjectResult {
	first, second, third, exam := 20, 15, 20, 30
	return &models.SubjectResult{
		SchoolID:   "school-1",
		StudentID:  "stu-1",
		TermID:     "term-1",
		SessionID:  "sess-1",
		Subject:    "Mathematics",
		FirstTest:  &first,
		SecondTest: &second,
		ThirdTest:  &third,
		CA:         55,
		Exam:       &exam,
		TotalScore: 85,
		Grade:      "P",
		Remark:     "Pass",
	}
}

func TestResultRepositoryUpsertAndAggregate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewResultRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO subject_results")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(ca), 0)")).
		WithArgs("stu-1", "term-1", "sess-1").
		WillReturnRows(sqlmock.NewRows([]string{"total_ca", "total_exam", "total_score"}).AddRow(55, 30, 85))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO term_totals")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.UpsertAndAggregate(context.Background(), sampleResult(), passResolver))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepositoryUpsertRollsBackOnAggregateFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewResultRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO subject_results")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(ca), 0)")).
		WithArgs("stu-1", "term-1", "sess-1").
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	err := repo.UpsertAndAggregate(context.Background(), sampleResult(), passResolver)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepositoryBulkUpsertAggregatesOnce(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewResultRepository(db)

	first := *sampleResult()
	second := *sampleResult()
	second.Subject = "English"

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO subject_results")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO subject_results")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(ca), 0)")).
		WithArgs("stu-1", "term-1", "sess-1").
		WillReturnRows(sqlmock.NewRows([]string{"total_ca", "total_exam", "total_score"}).AddRow(110, 60, 170))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO term_totals")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.BulkUpsertAndAggregate(context.Background(), []models.SubjectResult{first, second}, passResolver))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepositoryDeleteByTuple(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewResultRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM subject_results WHERE school_id = $1")).
		WithArgs("school-1", "stu-1", "term-1", "sess-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM term_totals WHERE school_id = $1")).
		WithArgs("school-1", "stu-1", "term-1", "sess-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	deleted, err := repo.DeleteByTuple(context.Background(), "school-1", "stu-1", "term-1", "sess-1")
	require.NoError(t, err)
	require.Equal(t, int64(3), deleted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepositorySumTotalsByStudents(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewResultRepository(db)

	rows := sqlmock.NewRows([]string{"student_id", "total"}).
		AddRow("s1", 250).
		AddRow("s2", 310)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT student_id, COALESCE(SUM(total_score), 0) AS total")).
		WillReturnRows(rows)

	totals, err := repo.SumTotalsByStudents(context.Background(), []string{"s1", "s2", "s3"}, "term-1", "sess-1")
	require.NoError(t, err)
	require.Equal(t, 250, totals["s1"])
	require.Equal(t, 310, totals["s2"])
	_, ok := totals["s3"]
	require.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepositoryGetTermTotal(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewResultRepository(db)

	comment := "Keep it up"
	rows := sqlmock.NewRows([]string{"id", "school_id", "student_id", "term_id", "session_id", "total_ca", "total_exam", "total_score", "grade", "remark", "teacher_comment", "principal_comment", "updated_at"}).
		AddRow("tt-1", "school-1", "stu-1", "term-1", "sess-1", 110, 60, 170, "N/A", "N/A", comment, nil, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM term_totals WHERE school_id = $1")).
		WithArgs("school-1", "stu-1", "term-1", "sess-1").
		WillReturnRows(rows)

	total, err := repo.GetTermTotal(context.Background(), "school-1", "stu-1", "term-1", "sess-1")
	require.NoError(t, err)
	require.Equal(t, 170, total.TotalScore)
	require.NotNil(t, total.TeacherComment)
	require.Equal(t, comment, *total.TeacherComment)
	require.Nil(t, total.PrincipalComment)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepositoryListByTupleScopedToSchool(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewResultRepository(db)

	rows := sqlmock.NewRows([]string{"id", "school_id", "student_id", "term_id", "session_id", "subject",
		"first_test", "second_test", "third_test", "ca", "exam", "total_score", "grade", "remark", "created_at", "updated_at"})
	mock.ExpectQuery(regexp.QuoteMeta("FROM subject_results WHERE school_id = $1 AND student_id = $2")).
		WithArgs("school-a", "stu-1", "term-1", "sess-1").
		WillReturnRows(rows)

	results, err := repo.ListByTuple(context.Background(), "school-a", "stu-1", "term-1", "sess-1")
	require.NoError(t, err)
	require.Empty(t, results)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepositoryUpdateCommentsScopedToSchool(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewResultRepository(db)

	comment := "Keep it up"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE term_totals SET teacher_comment = $1, updated_at = $2 WHERE school_id = $3 AND student_id = $4 AND term_id = $5 AND session_id = $6")).
		WithArgs(comment, sqlmock.AnyArg(), "school-1", "stu-1", "term-1", "sess-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateComments(context.Background(), "school-1", "stu-1", "term-1", "sess-1", &comment, nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepositoryUpdateCommentsOtherSchoolTouchesNothing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewResultRepository(db)

	// A caller from school-a cannot reach school-b's total even with the
	// exact tuple IDs: the school predicate matches zero rows.
	comment := "overwritten"
	mock.ExpectExec(regexp.QuoteMeta("WHERE school_id = $3 AND student_id = $4")).
		WithArgs(comment, sqlmock.AnyArg(), "school-a", "school-b-student", "school-b-term", "school-b-session").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateComments(context.Background(), "school-a", "school-b-student", "school-b-term", "school-b-session", &comment, nil)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
