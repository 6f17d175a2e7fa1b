package usecase

import (
	"errors"
	"testing"
	"time"

	"github.com/riskibarqy/sportsdata-producer/internal/domain/contest"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/franchiseseason"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/messaging"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/sport"
	"github.com/riskibarqy/sportsdata-producer/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/sportsdata-producer/internal/platform/id"
	"github.com/riskibarqy/sportsdata-producer/internal/platform/logging"
)

const (
	testConferenceA = "0192b6c4-2000-7000-8000-0000000000aa"
	testConferenceB = "0192b6c4-2000-7000-8000-0000000000bb"
	testThirdSeason = "0192b6c4-2000-7000-8000-0000000000c1"
)

type enrichmentFixture struct {
	events           *messaging.Recorder
	franchiseSeasons *memory.FranchiseSeasonRepository
	contests         *memory.ContestRepository
	service          *EnrichmentService
}

func newEnrichmentFixture(t *testing.T, extra ...franchiseseason.FranchiseSeason) *enrichmentFixture {
	t.Helper()
	events := &messaging.Recorder{}
	confA, confB := testConferenceA, testConferenceB
	seasons := append([]franchiseseason.FranchiseSeason{
		{ID: testHomeSeasonID, FranchiseID: testHomeFranchise, SeasonYear: 2024, Slug: "home", GroupSeasonID: &confA},
		{ID: testAwaySeasonID, FranchiseID: testAwayFranchise, SeasonYear: 2024, Slug: "away", GroupSeasonID: &confA},
		{ID: testThirdSeason, FranchiseID: "0192b6c4-2000-7000-8000-0000000000c0", SeasonYear: 2024, Slug: "third", GroupSeasonID: &confB},
	}, extra...)

	f := &enrichmentFixture{
		events:           events,
		franchiseSeasons: memory.NewFranchiseSeasonRepository(events, seasons...),
		contests:         memory.NewContestRepository(events, nil),
	}
	f.service = NewEnrichmentService(f.franchiseSeasons, f.contests, id.NewUUIDGenerator(), 2, logging.NewNop())
	f.service.now = func() time.Time { return time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC) }
	return f
}

// played stores a finalized contest between two seeded franchise seasons.
func (f *enrichmentFixture) played(t *testing.T, contestID, home, away string, homeScore, awayScore int, day int) {
	t.Helper()
	start := time.Date(2024, 9, day, 17, 0, 0, 0, time.UTC)
	c := contest.Contest{
		ID:                    contestID,
		Name:                  "game " + contestID[len(contestID)-2:],
		HomeFranchiseSeasonID: home,
		AwayFranchiseSeasonID: away,
		StartDateUTC:          start,
		Sport:                 sport.FootballNFL,
		SeasonYear:            2024,
	}
	if err := f.contests.Save(t.Context(), c, nil); err != nil {
		t.Fatalf("seed contest: %v", err)
	}
	finalized := start.Add(4 * time.Hour)
	c.HomeScore, c.AwayScore, c.FinalizedUTC = &homeScore, &awayScore, &finalized
	if err := f.contests.SaveOutcome(t.Context(), c, nil); err != nil {
		t.Fatalf("seed outcome: %v", err)
	}
}

func TestEnrichmentService_EnrichComputesRecordsAndScoring(t *testing.T) {
	t.Parallel()
	f := newEnrichmentFixture(t)
	f.played(t, "0192b6c4-2000-7000-8000-000000000101", testHomeSeasonID, testAwaySeasonID, 27, 17, 1)
	f.played(t, "0192b6c4-2000-7000-8000-000000000102", testThirdSeason, testHomeSeasonID, 21, 20, 8)
	f.played(t, "0192b6c4-2000-7000-8000-000000000103", testHomeSeasonID, testThirdSeason, 14, 14, 15)
	f.played(t, "0192b6c4-2000-7000-8000-000000000104", testAwaySeasonID, testHomeSeasonID, 10, 13, 22)

	fs, err := f.service.Enrich(t.Context(), testHomeSeasonID, testCorrelationID)
	if err != nil {
		t.Fatalf("enrich: %v", err)
	}
	if fs.Wins != 2 || fs.Losses != 1 || fs.Ties != 1 {
		t.Fatalf("unexpected record %d-%d-%d", fs.Wins, fs.Losses, fs.Ties)
	}
	if fs.ConferenceWins != 2 || fs.ConferenceLosses != 0 || fs.ConferenceTies != 0 {
		t.Fatalf("unexpected conference record %d-%d-%d", fs.ConferenceWins, fs.ConferenceLosses, fs.ConferenceTies)
	}

	scored := fs.Scoring.PtsScored
	if *scored.Min != 13 || *scored.Max != 27 || *scored.Avg != 18.5 {
		t.Fatalf("unexpected points scored %d/%d/%.2f", *scored.Min, *scored.Max, *scored.Avg)
	}
	if win := fs.Scoring.MarginWin; *win.Min != 3 || *win.Max != 10 || *win.Avg != 6.5 {
		t.Fatalf("unexpected win margin %+v", win)
	}
	if loss := fs.Scoring.MarginLoss; *loss.Min != 1 || *loss.Max != 1 {
		t.Fatalf("unexpected loss margin %+v", loss)
	}

	stored, _, _ := f.franchiseSeasons.GetByID(t.Context(), testHomeSeasonID)
	if stored.Wins != 2 || stored.ModifiedBy == nil || *stored.ModifiedBy != testCorrelationID {
		t.Fatalf("enrichment not stored: %+v", stored)
	}
	if types := f.events.Types(); len(types) != 1 || types[0] != messaging.TypeFranchiseSeasonEnrichmentCompleted {
		t.Fatalf("unexpected events %v", types)
	}
}

func TestEnrichmentService_EnrichWithoutContestsResetsScoring(t *testing.T) {
	t.Parallel()
	f := newEnrichmentFixture(t)

	fs, err := f.service.Enrich(t.Context(), testThirdSeason, "")
	if err != nil {
		t.Fatalf("enrich: %v", err)
	}
	if fs.Wins+fs.Losses+fs.Ties != 0 || fs.Scoring.PtsScored.Avg != nil {
		t.Fatalf("expected empty results, got %+v", fs)
	}
	events := f.events.Events()
	if len(events) != 1 || !id.Valid(events[0].CorrelationID) {
		t.Fatalf("expected a generated correlation id, got %+v", events)
	}
}

func TestEnrichmentService_EnrichErrors(t *testing.T) {
	t.Parallel()
	f := newEnrichmentFixture(t)

	if _, err := f.service.Enrich(t.Context(), "not-a-uuid", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if _, err := f.service.Enrich(t.Context(), "0192b6c4-2000-7000-8000-00000000ffff", ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestEnrichmentService_EnrichSeasonCollectsFailures(t *testing.T) {
	t.Parallel()
	f := newEnrichmentFixture(t, franchiseseason.FranchiseSeason{
		ID:          "legacy-row",
		FranchiseID: "legacy-franchise",
		SeasonYear:  2024,
		Slug:        "legacy",
	})
	f.played(t, "0192b6c4-2000-7000-8000-000000000201", testHomeSeasonID, testAwaySeasonID, 31, 3, 1)

	result, err := f.service.EnrichSeason(t.Context(), 2024, testCorrelationID)
	if err != nil {
		t.Fatalf("enrich season: %v", err)
	}
	if result.Total != 4 || result.Enriched != 3 {
		t.Fatalf("unexpected totals %+v", result)
	}
	if len(result.Failures) != 1 || result.Failures[0].FranchiseSeasonID != "legacy-row" {
		t.Fatalf("unexpected failures %+v", result.Failures)
	}

	away, _, _ := f.franchiseSeasons.GetByID(t.Context(), testAwaySeasonID)
	if away.Losses != 1 || away.ConferenceLosses != 1 {
		t.Fatalf("away season not enriched: %+v", away)
	}

	if _, err := f.service.EnrichSeason(t.Context(), 1700, ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid season year, got %v", err)
	}
}
