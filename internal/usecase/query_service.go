package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/riskibarqy/sportsdata-producer/internal/domain/franchise"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/franchiseseason"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/season"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/sport"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/venue"
	"github.com/riskibarqy/sportsdata-producer/internal/platform/id"
)

const (
	maxFranchisePageSize = 500

	minSeasonYear = 1869
	maxSeasonYear = 2100
)

type ListFranchisesInput struct {
	Sport  sport.Sport
	Limit  int
	Offset int
}

// CatalogService serves read-only lookups over ingested entities.
type CatalogService struct {
	franchises       franchise.Repository
	franchiseSeasons franchiseseason.Repository
	venues           venue.Repository
	seasons          season.Repository
}

func NewCatalogService(
	franchises franchise.Repository,
	franchiseSeasons franchiseseason.Repository,
	venues venue.Repository,
	seasons season.Repository,
) *CatalogService {
	return &CatalogService{
		franchises:       franchises,
		franchiseSeasons: franchiseSeasons,
		venues:           venues,
		seasons:          seasons,
	}
}

func (s *CatalogService) ListFranchises(ctx context.Context, input ListFranchisesInput) ([]franchise.Franchise, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.CatalogService.ListFranchises")
	defer span.End()

	if input.Sport != sport.All && !input.Sport.Valid() {
		return nil, fmt.Errorf("%w: unknown sport %d", ErrInvalidInput, int(input.Sport))
	}
	if input.Limit < 0 || input.Limit > maxFranchisePageSize {
		return nil, fmt.Errorf("%w: limit must be between 0 and %d", ErrInvalidInput, maxFranchisePageSize)
	}
	if input.Offset < 0 {
		return nil, fmt.Errorf("%w: offset must be >= 0", ErrInvalidInput)
	}

	items, err := s.franchises.List(ctx, franchise.ListFilter{Sport: input.Sport, Limit: input.Limit, Offset: input.Offset})
	if err != nil {
		return nil, fmt.Errorf("list franchises: %w", err)
	}
	return items, nil
}

func (s *CatalogService) GetFranchise(ctx context.Context, franchiseID string) (franchise.Franchise, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.CatalogService.GetFranchise")
	defer span.End()

	franchiseID, err := requireUUID("franchise id", franchiseID)
	if err != nil {
		return franchise.Franchise{}, err
	}
	f, ok, err := s.franchises.GetByID(ctx, franchiseID)
	if err != nil {
		return franchise.Franchise{}, fmt.Errorf("get franchise: %w", err)
	}
	if !ok {
		return franchise.Franchise{}, fmt.Errorf("%w: franchise %s", ErrNotFound, franchiseID)
	}
	return f, nil
}

func (s *CatalogService) ListFranchiseSeasons(ctx context.Context, franchiseID string) ([]franchiseseason.FranchiseSeason, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.CatalogService.ListFranchiseSeasons")
	defer span.End()

	f, err := s.GetFranchise(ctx, franchiseID)
	if err != nil {
		return nil, err
	}
	items, err := s.franchiseSeasons.ListByFranchise(ctx, f.ID)
	if err != nil {
		return nil, fmt.Errorf("list franchise seasons: %w", err)
	}
	return items, nil
}

func (s *CatalogService) GetFranchiseSeason(ctx context.Context, franchiseSeasonID string) (franchiseseason.FranchiseSeason, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.CatalogService.GetFranchiseSeason")
	defer span.End()

	franchiseSeasonID, err := requireUUID("franchise season id", franchiseSeasonID)
	if err != nil {
		return franchiseseason.FranchiseSeason{}, err
	}
	fs, ok, err := s.franchiseSeasons.GetByID(ctx, franchiseSeasonID)
	if err != nil {
		return franchiseseason.FranchiseSeason{}, fmt.Errorf("get franchise season: %w", err)
	}
	if !ok {
		return franchiseseason.FranchiseSeason{}, fmt.Errorf("%w: franchise season %s", ErrNotFound, franchiseSeasonID)
	}
	return fs, nil
}

func (s *CatalogService) GetVenue(ctx context.Context, venueID string) (venue.Venue, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.CatalogService.GetVenue")
	defer span.End()

	venueID, err := requireUUID("venue id", venueID)
	if err != nil {
		return venue.Venue{}, err
	}
	v, ok, err := s.venues.GetByID(ctx, venueID)
	if err != nil {
		return venue.Venue{}, fmt.Errorf("get venue: %w", err)
	}
	if !ok {
		return venue.Venue{}, fmt.Errorf("%w: venue %s", ErrNotFound, venueID)
	}
	return v, nil
}

func (s *CatalogService) GetSeason(ctx context.Context, seasonYear int) (season.Season, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.CatalogService.GetSeason")
	defer span.End()

	if err := validateSeasonYear(seasonYear); err != nil {
		return season.Season{}, err
	}
	item, ok, err := s.seasons.GetByYear(ctx, seasonYear)
	if err != nil {
		return season.Season{}, fmt.Errorf("get season: %w", err)
	}
	if !ok {
		return season.Season{}, fmt.Errorf("%w: season %d", ErrNotFound, seasonYear)
	}
	return item, nil
}

func requireUUID(name, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if !id.Valid(raw) {
		return "", fmt.Errorf("%w: %s must be a uuid", ErrInvalidInput, name)
	}
	return raw, nil
}

func validateSeasonYear(seasonYear int) error {
	if seasonYear < minSeasonYear || seasonYear > maxSeasonYear {
		return fmt.Errorf("%w: season year %d is out of range", ErrInvalidInput, seasonYear)
	}
	return nil
}
