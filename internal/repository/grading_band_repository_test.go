package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-results-api/internal/models"
)

func TestGradingBandRepositoryListOrdersDescending(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewGradingBandRepository(db)

	rows := sqlmock.NewRows([]string{"id", "school_id", "min_score", "max_score", "grade", "remark", "created_at"}).
		AddRow("b1", "school-1", 90, 100, "A", "Excellent", time.Now()).
		AddRow("b2", "school-1", 70, 89, "B", "Very Good", time.Now()).
		AddRow("b3", "school-1", 0, 69, "C", "Fair", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY min_score DESC")).
		WithArgs("school-1").
		WillReturnRows(rows)

	bands, err := repo.ListBySchool(context.Background(), "school-1")
	require.NoError(t, err)
	require.Len(t, bands, 3)
	require.Equal(t, 90, bands[0].MinScore)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGradingBandRepositoryReplaceAllIsTransactional(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewGradingBandRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM grading_bands")).
		WithArgs("school-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO grading_bands")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO grading_bands")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	bands := []models.GradingBand{
		{MinScore: 50, MaxScore: 100, Grade: "P", Remark: "Pass"},
		{MinScore: 0, MaxScore: 49, Grade: "F", Remark: "Fail"},
	}
	require.NoError(t, repo.ReplaceAll(context.Background(), "school-1", bands))
	require.Equal(t, "school-1", bands[0].SchoolID)
	require.NotEmpty(t, bands[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGradingBandRepositoryReplaceAllRollsBackOnInsertFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewGradingBandRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM grading_bands")).
		WithArgs("school-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO grading_bands")).
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	err := repo.ReplaceAll(context.Background(), "school-1", []models.GradingBand{
		{MinScore: 0, MaxScore: 100, Grade: "P", Remark: "Pass"},
	})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGradingBandRepositoryDeleteMissingRow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewGradingBandRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM grading_bands")).
		WithArgs("ghost", "school-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "school-1", "ghost")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
