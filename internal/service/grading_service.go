package service

import (
	"context"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/school-results-api/internal/models"
	appErrors "github.com/noah-isme/school-results-api/pkg/errors"
)

type gradingBandRepo interface {
	ListBySchool(ctx context.Context, schoolID string) ([]models.GradingBand, error)
	ReplaceAll(ctx context.Context, schoolID string, bands []models.GradingBand) error
	Delete(ctx context.Context, schoolID, id string) error
}

// BandInput is one band of a replacement grading scale.
type BandInput struct {
	MinScore int    `json:"min_score" validate:"min=0,max=100"`
	MaxScore int    `json:"max_score" validate:"min=0,max=100"`
	Grade    string `json:"grade" validate:"required"`
	Remark   string `json:"remark" validate:"required"`
}

// ReplaceScaleRequest swaps a school's entire grading scale atomically.
type ReplaceScaleRequest struct {
	Bands []BandInput `json:"bands" validate:"required,min=1,dive"`
}

// GradingService owns a school's grading scale and resolves scores
// against it.
type GradingService struct {
	bands     gradingBandRepo
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGradingService constructs a GradingService.
func NewGradingService(bands gradingBandRepo, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *GradingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradingService{bands: bands, cache: cache, validator: validate, logger: logger}
}

// Scale returns the school's bands ordered by descending MinScore.
func (s *GradingService) Scale(ctx context.Context, schoolID string) ([]models.GradingBand, error) {
	bands, err := s.bands.ListBySchool(ctx, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grading bands")
	}
	return bands, nil
}

// Resolve maps a score onto the first band whose inclusive range covers
// it. Bands must already be in descending MinScore order, which is how
// the repository returns them; when bands overlap the higher band wins.
// A score no band covers, or an empty scale, yields the UnresolvedGrade
// sentinel rather than an error so callers can always render something.
func Resolve(bands []models.GradingBand, score int) models.GradeRemark {
	for _, band := range bands {
		if score >= band.MinScore && score <= band.MaxScore {
			return models.GradeRemark{Grade: band.Grade, Remark: band.Remark}
		}
	}
	return models.UnresolvedGrade
}

// Resolver captures the school's scale once and returns a pure lookup
// suitable for handing into transactional result writes.
func (s *GradingService) Resolver(ctx context.Context, schoolID string) (func(score int) models.GradeRemark, error) {
	bands, err := s.Scale(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	return func(score int) models.GradeRemark {
		return Resolve(bands, score)
	}, nil
}

// ReplaceScale validates the submitted bands partition [0,100] without
// gaps or overlap, then swaps the school's scale in one transaction.
func (s *GradingService) ReplaceScale(ctx context.Context, schoolID string, req ReplaceScaleRequest) ([]models.GradingBand, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grading scale payload")
	}
	if err := validateBandCoverage(req.Bands); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	bands := make([]models.GradingBand, 0, len(req.Bands))
	for _, input := range req.Bands {
		bands = append(bands, models.GradingBand{
			ID:        uuid.NewString(),
			SchoolID:  schoolID,
			MinScore:  input.MinScore,
			MaxScore:  input.MaxScore,
			Grade:     input.Grade,
			Remark:    input.Remark,
			CreatedAt: now,
		})
	}

	if err := s.bands.ReplaceAll(ctx, schoolID, bands); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace grading scale")
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, reportCachePattern(schoolID)); err != nil {
			s.logger.Warn("invalidate report cache after scale change", zap.Error(err))
		}
	}

	sort.SliceStable(bands, func(i, j int) bool { return bands[i].MinScore > bands[j].MinScore })
	return bands, nil
}

// DeleteBand removes one band. Existing stored grades are untouched;
// only future writes resolve against the narrowed scale.
func (s *GradingService) DeleteBand(ctx context.Context, schoolID, bandID string) error {
	if err := s.bands.Delete(ctx, schoolID, bandID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete grading band")
	}
	return nil
}

func validateBandCoverage(bands []BandInput) error {
	sorted := make([]BandInput, len(bands))
	copy(sorted, bands)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].MinScore < sorted[j].MinScore })

	for _, band := range sorted {
		if band.MinScore > band.MaxScore {
			return appErrors.Clone(appErrors.ErrInvalidBands, "band min_score exceeds max_score")
		}
	}
	if sorted[0].MinScore != 0 {
		return appErrors.Clone(appErrors.ErrInvalidBands, "grading scale must start at 0")
	}
	if sorted[len(sorted)-1].MaxScore != 100 {
		return appErrors.Clone(appErrors.ErrInvalidBands, "grading scale must end at 100")
	}
	for i := 1; i < len(sorted); i++ {
		if sorted[i].MinScore != sorted[i-1].MaxScore+1 {
			return appErrors.Clone(appErrors.ErrInvalidBands, "grading bands must be contiguous without overlap")
		}
	}
	return nil
}
