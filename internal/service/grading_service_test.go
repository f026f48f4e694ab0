package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-results-api/internal/models"
	appErrors "github.com/noah-isme/school-results-api/pkg/errors"
)

type mockBandRepo struct {
	bands    map[string][]models.GradingBand
	replaced []models.GradingBand
}

func (m *mockBandRepo) ListBySchool(ctx context.Context, schoolID string) ([]models.GradingBand, error) {
	return m.bands[schoolID], nil
}

func (m *mockBandRepo) ReplaceAll(ctx context.Context, schoolID string, bands []models.GradingBand) error {
	if m.bands == nil {
		m.bands = make(map[string][]models.GradingBand)
	}
	m.bands[schoolID] = bands
	m.replaced = bands
	return nil
}

func (m *mockBandRepo) Delete(ctx context.Context, schoolID, id string) error {
	return nil
}

func standardScale() []models.GradingBand {
	// Descending MinScore, the order the repository guarantees.
	return []models.GradingBand{
		{MinScore: 90, MaxScore: 100, Grade: "A", Remark: "Excellent"},
		{MinScore: 70, MaxScore: 89, Grade: "B", Remark: "Very Good"},
		{MinScore: 0, MaxScore: 69, Grade: "C", Remark: "Fair"},
	}
}

func TestResolveFirstMatchWins(t *testing.T) {
	bands := standardScale()

	assert.Equal(t, "A", Resolve(bands, 95).Grade)
	assert.Equal(t, "B", Resolve(bands, 70).Grade)
	assert.Equal(t, "B", Resolve(bands, 89).Grade)
	assert.Equal(t, "C", Resolve(bands, 0).Grade)
}

func TestResolveBoundaryScores(t *testing.T) {
	bands := standardScale()

	assert.Equal(t, "A", Resolve(bands, 90).Grade)
	assert.Equal(t, "A", Resolve(bands, 100).Grade)
}

func TestResolveUncoveredScoreYieldsSentinel(t *testing.T) {
	bands := standardScale()

	got := Resolve(bands, 150)
	assert.Equal(t, models.UnresolvedGrade, got)

	got = Resolve(nil, 50)
	assert.Equal(t, "N/A", got.Grade)
	assert.Equal(t, "N/A", got.Remark)
}

func TestResolveOverlappingBandsHigherWins(t *testing.T) {
	bands := []models.GradingBand{
		{MinScore: 60, MaxScore: 100, Grade: "A", Remark: "High"},
		{MinScore: 0, MaxScore: 80, Grade: "B", Remark: "Low"},
	}
	assert.Equal(t, "A", Resolve(bands, 75).Grade)
}

func TestReplaceScaleStoresBands(t *testing.T) {
	repo := &mockBandRepo{}
	svc := NewGradingService(repo, nil, nil, nil)

	bands, err := svc.ReplaceScale(context.Background(), "school-1", ReplaceScaleRequest{
		Bands: []BandInput{
			{MinScore: 0, MaxScore: 69, Grade: "C", Remark: "Fair"},
			{MinScore: 70, MaxScore: 89, Grade: "B", Remark: "Very Good"},
			{MinScore: 90, MaxScore: 100, Grade: "A", Remark: "Excellent"},
		},
	})
	require.NoError(t, err)
	require.Len(t, repo.replaced, 3)
	assert.Equal(t, "A", bands[0].Grade)
	for _, b := range repo.replaced {
		assert.Equal(t, "school-1", b.SchoolID)
		assert.NotEmpty(t, b.ID)
	}
}

func TestReplaceScaleRejectsGaps(t *testing.T) {
	repo := &mockBandRepo{}
	svc := NewGradingService(repo, nil, nil, nil)

	_, err := svc.ReplaceScale(context.Background(), "school-1", ReplaceScaleRequest{
		Bands: []BandInput{
			{MinScore: 0, MaxScore: 60, Grade: "C", Remark: "Fair"},
			{MinScore: 70, MaxScore: 100, Grade: "A", Remark: "Excellent"},
		},
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidBands.Code, appErr.Code)
}

func TestReplaceScaleRejectsOverlap(t *testing.T) {
	repo := &mockBandRepo{}
	svc := NewGradingService(repo, nil, nil, nil)

	_, err := svc.ReplaceScale(context.Background(), "school-1", ReplaceScaleRequest{
		Bands: []BandInput{
			{MinScore: 0, MaxScore: 70, Grade: "C", Remark: "Fair"},
			{MinScore: 60, MaxScore: 100, Grade: "A", Remark: "Excellent"},
		},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidBands.Code, appErrors.FromError(err).Code)
}

func TestReplaceScaleRejectsPartialCoverage(t *testing.T) {
	repo := &mockBandRepo{}
	svc := NewGradingService(repo, nil, nil, nil)

	_, err := svc.ReplaceScale(context.Background(), "school-1", ReplaceScaleRequest{
		Bands: []BandInput{
			{MinScore: 10, MaxScore: 100, Grade: "A", Remark: "Top heavy"},
		},
	})
	require.Error(t, err)

	_, err = svc.ReplaceScale(context.Background(), "school-1", ReplaceScaleRequest{
		Bands: []BandInput{
			{MinScore: 0, MaxScore: 90, Grade: "A", Remark: "Short"},
		},
	})
	require.Error(t, err)
}

func TestResolverClosureUsesSchoolScale(t *testing.T) {
	repo := &mockBandRepo{bands: map[string][]models.GradingBand{"school-1": standardScale()}}
	svc := NewGradingService(repo, nil, nil, nil)

	resolve, err := svc.Resolver(context.Background(), "school-1")
	require.NoError(t, err)
	assert.Equal(t, "A", resolve(92).Grade)
	assert.Equal(t, "N/A", resolve(400).Grade)
}
