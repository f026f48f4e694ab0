package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-results-api/internal/models"
)

func TestSessionRepositoryCreateWithEnrollments(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSessionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sessions")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enrollments")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enrollments")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	session := &models.Session{SchoolID: "school-1", Name: "2025/2026"}
	promotions := []models.Enrollment{
		{SchoolID: "school-1", ClassLevelID: "jss2", StudentID: "s1"},
		{SchoolID: "school-1", ClassLevelID: "jss3", StudentID: "s2"},
	}
	require.NoError(t, repo.CreateWithEnrollments(context.Background(), session, promotions))
	require.NotEmpty(t, session.ID)
	require.NotEmpty(t, promotions[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryCreateRollsBackOnPromotionFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSessionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sessions")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enrollments")).
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	err := repo.CreateWithEnrollments(context.Background(),
		&models.Session{SchoolID: "school-1", Name: "2025/2026"},
		[]models.Enrollment{{SchoolID: "school-1", ClassLevelID: "jss2", StudentID: "s1"}})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositorySetCurrentClearsSiblings(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSessionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE sessions SET is_current = FALSE")).
		WithArgs("school-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE terms SET is_current = FALSE")).
		WithArgs("school-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE sessions SET is_current = TRUE")).
		WithArgs("sess-2", "school-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.SetCurrent(context.Background(), "school-1", "sess-2"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryFindLatestExcludesID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSessionRepository(db)

	rows := sqlmock.NewRows([]string{"id", "school_id", "name", "is_current", "show_results", "created_at"}).
		AddRow("sess-1", "school-1", "2024/2025", false, false, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC LIMIT 1")).
		WithArgs("school-1", "sess-2").
		WillReturnRows(rows)

	session, err := repo.FindLatest(context.Background(), "school-1", "sess-2")
	require.NoError(t, err)
	require.Equal(t, "sess-1", session.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCohortOrderedByCreation(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository(db)

	base := time.Now().Add(-time.Hour)
	rows := sqlmock.NewRows([]string{"id", "school_id", "session_id", "class_level_id", "student_id", "created_at"}).
		AddRow("e1", "school-1", "sess-1", "jss1", "s1", base).
		AddRow("e2", "school-1", "sess-1", "jss1", "s2", base.Add(time.Minute))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at ASC, id ASC")).
		WithArgs("school-1", "jss1", "sess-1").
		WillReturnRows(rows)

	cohort, err := repo.ListByClassLevelAndSession(context.Background(), "school-1", "jss1", "sess-1")
	require.NoError(t, err)
	require.Len(t, cohort, 2)
	require.Equal(t, "s1", cohort[0].StudentID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryExistsForSession(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM enrollments")).
		WithArgs("s1", "sess-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.ExistsForSession(context.Background(), "s1", "sess-1")
	require.NoError(t, err)
	require.True(t, exists)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM enrollments")).
		WithArgs("s2", "sess-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	exists, err = repo.ExistsForSession(context.Background(), "s2", "sess-1")
	require.NoError(t, err)
	require.False(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}
