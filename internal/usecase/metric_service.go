package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/riskibarqy/sportsdata-producer/internal/domain/audit"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/franchiseseason"
	"github.com/riskibarqy/sportsdata-producer/internal/platform/id"
	"github.com/riskibarqy/sportsdata-producer/internal/platform/logging"
)

// UpsertMetricInput carries a season efficiency profile computed elsewhere.
type UpsertMetricInput struct {
	FranchiseSeasonID      string   `json:"-" validate:"required,uuid"`
	GamesPlayed            int      `json:"gamesPlayed" validate:"gte=0"`
	Ypp                    float64  `json:"ypp"`
	SuccessRate            float64  `json:"successRate" validate:"gte=0,lte=1"`
	ExplosiveRate          float64  `json:"explosiveRate" validate:"gte=0,lte=1"`
	PointsPerDrive         float64  `json:"pointsPerDrive"`
	ThirdFourthRate        float64  `json:"thirdFourthRate" validate:"gte=0,lte=1"`
	RzTdRate               *float64 `json:"rzTdRate,omitempty" validate:"omitempty,gte=0,lte=1"`
	RzScoreRate            *float64 `json:"rzScoreRate,omitempty" validate:"omitempty,gte=0,lte=1"`
	TimePossRatio          float64  `json:"timePossRatio" validate:"gte=0,lte=1"`
	OppYpp                 float64  `json:"oppYpp"`
	OppSuccessRate         float64  `json:"oppSuccessRate" validate:"gte=0,lte=1"`
	OppExplosiveRate       float64  `json:"oppExplosiveRate" validate:"gte=0,lte=1"`
	OppPointsPerDrive      float64  `json:"oppPointsPerDrive"`
	OppThirdFourthRate     float64  `json:"oppThirdFourthRate"`
	OppRzTdRate            *float64 `json:"oppRzTdRate,omitempty" validate:"omitempty,gte=0,lte=1"`
	OppScoreTdRate         *float64 `json:"oppScoreTdRate,omitempty" validate:"omitempty,gte=0,lte=1"`
	NetPunt                float64  `json:"netPunt"`
	FgPctShrunk            float64  `json:"fgPctShrunk" validate:"gte=0,lte=1"`
	FieldPosDiff           float64  `json:"fieldPosDiff"`
	TurnoverMarginPerDrive float64  `json:"turnoverMarginPerDrive"`
	PenaltyYardsPerPlay    float64  `json:"penaltyYardsPerPlay"`
	CorrelationID          string   `json:"correlationId,omitempty" validate:"omitempty,uuid"`
}

type MetricService struct {
	metrics          franchiseseason.MetricRepository
	franchiseSeasons franchiseseason.Repository
	ids              id.Generator
	logger           *logging.Logger
	validate         *validator.Validate
	now              func() time.Time
}

func NewMetricService(
	metrics franchiseseason.MetricRepository,
	franchiseSeasons franchiseseason.Repository,
	ids id.Generator,
	logger *logging.Logger,
) *MetricService {
	if logger == nil {
		logger = logging.Default()
	}
	if ids == nil {
		ids = id.NewUUIDGenerator()
	}
	return &MetricService{
		metrics:          metrics,
		franchiseSeasons: franchiseSeasons,
		ids:              ids,
		logger:           logger,
		validate:         validator.New(validator.WithRequiredStructEnabled()),
		now:              time.Now,
	}
}

func (s *MetricService) GetByFranchiseSeason(ctx context.Context, franchiseSeasonID string) (franchiseseason.Metric, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MetricService.GetByFranchiseSeason")
	defer span.End()

	franchiseSeasonID = strings.TrimSpace(franchiseSeasonID)
	if !id.Valid(franchiseSeasonID) {
		return franchiseseason.Metric{}, fmt.Errorf("%w: franchise season id must be a uuid", ErrInvalidInput)
	}
	m, ok, err := s.metrics.GetByFranchiseSeason(ctx, franchiseSeasonID)
	if err != nil {
		return franchiseseason.Metric{}, fmt.Errorf("get franchise season metric: %w", err)
	}
	if !ok {
		return franchiseseason.Metric{}, fmt.Errorf("%w: metric for franchise season %s", ErrNotFound, franchiseSeasonID)
	}
	return m, nil
}

func (s *MetricService) ListBySeason(ctx context.Context, seasonYear int) ([]franchiseseason.Metric, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MetricService.ListBySeason")
	defer span.End()

	if err := validateSeasonYear(seasonYear); err != nil {
		return nil, err
	}
	items, err := s.metrics.ListBySeason(ctx, seasonYear)
	if err != nil {
		return nil, fmt.Errorf("list franchise season metrics: %w", err)
	}
	return items, nil
}

// Upsert stores the profile for a franchise season, replacing any earlier
// values while keeping the row identity.
func (s *MetricService) Upsert(ctx context.Context, input UpsertMetricInput) (franchiseseason.Metric, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MetricService.Upsert")
	defer span.End()

	input.FranchiseSeasonID = strings.TrimSpace(input.FranchiseSeasonID)
	if err := s.validate.Struct(input); err != nil {
		return franchiseseason.Metric{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	fs, ok, err := s.franchiseSeasons.GetByID(ctx, input.FranchiseSeasonID)
	if err != nil {
		return franchiseseason.Metric{}, fmt.Errorf("get franchise season: %w", err)
	}
	if !ok {
		return franchiseseason.Metric{}, fmt.Errorf("%w: franchise season %s", ErrNotFound, input.FranchiseSeasonID)
	}

	by := input.CorrelationID
	if by == "" {
		if by, err = s.ids.NewID(); err != nil {
			return franchiseseason.Metric{}, err
		}
	}
	metricID, err := s.ids.NewID()
	if err != nil {
		return franchiseseason.Metric{}, err
	}
	now := s.now().UTC()

	m := franchiseseason.Metric{
		ID:                     metricID,
		FranchiseSeasonID:      fs.ID,
		Season:                 fs.SeasonYear,
		GamesPlayed:            input.GamesPlayed,
		Ypp:                    input.Ypp,
		SuccessRate:            input.SuccessRate,
		ExplosiveRate:          input.ExplosiveRate,
		PointsPerDrive:         input.PointsPerDrive,
		ThirdFourthRate:        input.ThirdFourthRate,
		RzTdRate:               input.RzTdRate,
		RzScoreRate:            input.RzScoreRate,
		TimePossRatio:          input.TimePossRatio,
		OppYpp:                 input.OppYpp,
		OppSuccessRate:         input.OppSuccessRate,
		OppExplosiveRate:       input.OppExplosiveRate,
		OppPointsPerDrive:      input.OppPointsPerDrive,
		OppThirdFourthRate:     input.OppThirdFourthRate,
		OppRzTdRate:            input.OppRzTdRate,
		OppScoreTdRate:         input.OppScoreTdRate,
		NetPunt:                input.NetPunt,
		FgPctShrunk:            input.FgPctShrunk,
		FieldPosDiff:           input.FieldPosDiff,
		TurnoverMarginPerDrive: input.TurnoverMarginPerDrive,
		PenaltyYardsPerPlay:    input.PenaltyYardsPerPlay,
		ComputedUTC:            now,
		Audit:                  audit.Created(by, now),
	}
	m.Touch(by, now)

	stored, err := s.metrics.Upsert(ctx, m)
	if err != nil {
		return franchiseseason.Metric{}, fmt.Errorf("upsert franchise season metric: %w", err)
	}
	s.logger.InfoContext(ctx, "franchise season metric stored", "franchise_season_id", fs.ID, "metric_id", stored.ID)
	return stored, nil
}
