package usecase

import (
	"errors"
	"testing"
	"time"

	"github.com/riskibarqy/sportsdata-producer/internal/domain/franchise"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/franchiseseason"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/season"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/sport"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/venue"
	"github.com/riskibarqy/sportsdata-producer/internal/infrastructure/repository/memory"
)

const testVenueID = "0192b6c4-4000-7000-8000-000000000001"

func newCatalogService(t *testing.T) *CatalogService {
	t.Helper()
	franchises := memory.NewFranchiseRepository(nil,
		franchise.Franchise{ID: testHomeFranchise, Sport: sport.FootballNFL, Name: "Bears", Slug: "chicago-bears", ColorCodeHex: "0b162a"},
		franchise.Franchise{ID: testAwayFranchise, Sport: sport.FootballNFL, Name: "Packers", Slug: "green-bay-packers", ColorCodeHex: "203731"},
		franchise.Franchise{ID: "0192b6c4-4000-7000-8000-0000000000f1", Sport: sport.FootballNCAA, Name: "Buckeyes", Slug: "ohio-state-buckeyes", ColorCodeHex: "bb0000"},
	)
	seasons := memory.NewFranchiseSeasonRepository(nil,
		franchiseseason.FranchiseSeason{ID: testHomeSeasonID, FranchiseID: testHomeFranchise, SeasonYear: 2024, Slug: "chicago-bears"},
		franchiseseason.FranchiseSeason{ID: "0192b6c4-4000-7000-8000-0000000000a2", FranchiseID: testHomeFranchise, SeasonYear: 2023, Slug: "chicago-bears"},
	)
	venues := memory.NewVenueRepository(nil)
	if err := venues.Save(t.Context(), venue.Venue{ID: testVenueID, Name: "Soldier Field", Slug: "soldier-field", Capacity: 61500}, nil); err != nil {
		t.Fatalf("seed venue: %v", err)
	}
	years := memory.NewSeasonRepository(nil, season.Season{
		ID:        "0192b6c4-4000-7000-8000-0000000000b1",
		Year:      2024,
		Name:      "2024 NFL Season",
		StartDate: time.Date(2024, time.September, 5, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, time.February, 9, 0, 0, 0, 0, time.UTC),
	})
	return NewCatalogService(franchises, seasons, venues, years)
}

func TestCatalogService_ListFranchises(t *testing.T) {
	t.Parallel()
	svc := newCatalogService(t)

	all, err := svc.ListFranchises(t.Context(), ListFranchisesInput{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].Slug != "chicago-bears" {
		t.Fatalf("expected slug order across sports, got %+v", all)
	}

	nfl, err := svc.ListFranchises(t.Context(), ListFranchisesInput{Sport: sport.FootballNFL, Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("list nfl: %v", err)
	}
	if len(nfl) != 1 || nfl[0].ID != testAwayFranchise {
		t.Fatalf("expected the second nfl franchise, got %+v", nfl)
	}

	for _, input := range []ListFranchisesInput{{Limit: 501}, {Offset: -1}, {Sport: sport.Sport(42)}} {
		if _, err := svc.ListFranchises(t.Context(), input); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected invalid input for %+v, got %v", input, err)
		}
	}
}

func TestCatalogService_Lookups(t *testing.T) {
	t.Parallel()
	svc := newCatalogService(t)

	f, err := svc.GetFranchise(t.Context(), " "+testHomeFranchise+" ")
	if err != nil || f.Name != "Bears" {
		t.Fatalf("get franchise: %+v %v", f, err)
	}

	seasons, err := svc.ListFranchiseSeasons(t.Context(), testHomeFranchise)
	if err != nil {
		t.Fatalf("list seasons: %v", err)
	}
	if len(seasons) != 2 || seasons[0].SeasonYear != 2023 {
		t.Fatalf("expected seasons in year order, got %+v", seasons)
	}

	fs, err := svc.GetFranchiseSeason(t.Context(), testHomeSeasonID)
	if err != nil || fs.SeasonYear != 2024 {
		t.Fatalf("get franchise season: %+v %v", fs, err)
	}

	v, err := svc.GetVenue(t.Context(), testVenueID)
	if err != nil || v.Capacity != 61500 {
		t.Fatalf("get venue: %+v %v", v, err)
	}

	if _, err := svc.GetVenue(t.Context(), "soldier-field"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if _, err := svc.ListFranchiseSeasons(t.Context(), "0192b6c4-4000-7000-8000-00000000ffff"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.GetFranchiseSeason(t.Context(), "0192b6c4-4000-7000-8000-00000000fffe"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCatalogService_GetSeason(t *testing.T) {
	t.Parallel()
	svc := newCatalogService(t)

	s, err := svc.GetSeason(t.Context(), 2024)
	if err != nil || s.Name != "2024 NFL Season" {
		t.Fatalf("get season: %+v %v", s, err)
	}
	if _, err := svc.GetSeason(t.Context(), 2023); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.GetSeason(t.Context(), 1800); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
