package usecase

import (
	"errors"
	"testing"
	"time"

	"github.com/riskibarqy/sportsdata-producer/internal/domain/audit"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/contest"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/franchiseseason"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/messaging"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/sport"
	"github.com/riskibarqy/sportsdata-producer/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/sportsdata-producer/internal/platform/id"
	"github.com/riskibarqy/sportsdata-producer/internal/platform/logging"
)

const (
	testContestID     = "0192b6c4-1000-7000-8000-000000000001"
	testCompetitionID = "0192b6c4-1000-7000-8000-000000000002"
	testHomeSeasonID  = "0192b6c4-1000-7000-8000-0000000000a1"
	testAwaySeasonID  = "0192b6c4-1000-7000-8000-0000000000b1"
	testHomeFranchise = "0192b6c4-1000-7000-8000-0000000000a0"
	testAwayFranchise = "0192b6c4-1000-7000-8000-0000000000b0"
	testCorrelationID = "0192b6c4-1000-7000-8000-0000000000cc"
)

type contestFixture struct {
	events           *messaging.Recorder
	contests         *memory.ContestRepository
	odds             *memory.OddsRepository
	franchiseSeasons *memory.FranchiseSeasonRepository
	service          *ContestService
}

func newContestFixture(t *testing.T) *contestFixture {
	t.Helper()
	events := &messaging.Recorder{}
	odds := memory.NewOddsRepository(events)
	f := &contestFixture{
		events: events,
		odds:   odds,
		franchiseSeasons: memory.NewFranchiseSeasonRepository(events,
			franchiseseason.FranchiseSeason{ID: testHomeSeasonID, FranchiseID: testHomeFranchise, SeasonYear: 2024, Slug: "home"},
			franchiseseason.FranchiseSeason{ID: testAwaySeasonID, FranchiseID: testAwayFranchise, SeasonYear: 2024, Slug: "away"},
		),
		contests: memory.NewContestRepository(events, odds),
	}
	f.service = NewContestService(f.contests, f.franchiseSeasons, id.NewUUIDGenerator(), logging.NewNop())
	f.service.now = func() time.Time { return time.Date(2024, 9, 8, 4, 0, 0, 0, time.UTC) }

	err := f.contests.Save(t.Context(), contest.Contest{
		ID:                    testContestID,
		Name:                  "Away at Home",
		ShortName:             "AWY @ HME",
		HomeFranchiseSeasonID: testHomeSeasonID,
		AwayFranchiseSeasonID: testAwaySeasonID,
		StartDateUTC:          time.Date(2024, 9, 8, 0, 15, 0, 0, time.UTC),
		Sport:                 sport.FootballNFL,
		SeasonYear:            2024,
		Competitions: []contest.Competition{{
			ID: testCompetitionID,
			Competitors: []contest.Competitor{
				{ID: "0192b6c4-1000-7000-8000-0000000000d1", FranchiseSeasonID: testHomeSeasonID, HomeAway: contest.HomeAwayHome},
				{ID: "0192b6c4-1000-7000-8000-0000000000d2", FranchiseSeasonID: testAwaySeasonID, HomeAway: contest.HomeAwayAway},
			},
		}},
		Audit: audit.Created(testCorrelationID, time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)),
	}, nil)
	if err != nil {
		t.Fatalf("seed contest: %v", err)
	}
	return f
}

func (f *contestFixture) addOdds(t *testing.T, providerID string, priority int, total, spread float64) {
	t.Helper()
	oddsID, _ := id.NewUUIDGenerator().NewID()
	err := f.odds.Upsert(t.Context(), contest.Odds{
		ID:               oddsID,
		CompetitionID:    testCompetitionID,
		ProviderID:       providerID,
		ProviderPriority: priority,
		OverUnder:        &total,
		Spread:           &spread,
	}, nil)
	if err != nil {
		t.Fatalf("seed odds: %v", err)
	}
}

func TestContestService_FinalizeSettlesAgainstConsensus(t *testing.T) {
	t.Parallel()
	f := newContestFixture(t)
	f.addOdds(t, "40", 0, 38.5, 10)
	f.addOdds(t, "58", 1, 44.5, -3.5)

	c, err := f.service.Finalize(t.Context(), FinalizeContestInput{
		ContestID:     testContestID,
		HomeScore:     24,
		AwayScore:     20,
		CorrelationID: testCorrelationID,
	})
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if c.WinnerFranchiseID == nil || *c.WinnerFranchiseID != testHomeFranchise {
		t.Fatalf("expected home franchise to win, got %v", c.WinnerFranchiseID)
	}
	// 24 - 3.5 > 20 covers; 44 total is under 44.5 from the priority 1 line.
	if c.SpreadWinnerFranchiseID == nil || *c.SpreadWinnerFranchiseID != testHomeFranchise {
		t.Fatalf("expected home to cover, got %v", c.SpreadWinnerFranchiseID)
	}
	if c.OverUnder != contest.OverUnderUnder {
		t.Fatalf("expected under, got %s", c.OverUnder)
	}

	stored, _, _ := f.contests.GetByID(t.Context(), testContestID)
	if !stored.IsFinalized() || stored.ModifiedBy == nil || *stored.ModifiedBy != testCorrelationID {
		t.Fatalf("outcome not stored: %+v", stored)
	}
	for _, cc := range stored.Competitions[0].Competitors {
		if cc.Winner != (cc.HomeAway == contest.HomeAwayHome) {
			t.Fatalf("unexpected winner flag on %s competitor", cc.HomeAway)
		}
	}

	events := f.events.Events()
	if len(events) != 1 || events[0].Type != messaging.TypeContestFinalized {
		t.Fatalf("expected one finalized event, got %v", f.events.Types())
	}
	if payload := events[0].Payload.(messaging.ContestFinalized); payload.OverUnder != "under" || payload.HomeScore != 24 {
		t.Fatalf("unexpected payload %+v", payload)
	}

	again, err := f.service.Finalize(t.Context(), FinalizeContestInput{ContestID: testContestID, HomeScore: 24, AwayScore: 20})
	if err != nil {
		t.Fatalf("finalize again: %v", err)
	}
	if len(f.events.Events()) != 1 || again.WinnerFranchiseID == nil {
		t.Fatalf("finalizing with the same score must be a no-op")
	}
}

func TestContestService_FinalizeTieHasNoWinner(t *testing.T) {
	t.Parallel()
	f := newContestFixture(t)

	c, err := f.service.Finalize(t.Context(), FinalizeContestInput{ContestID: testContestID, HomeScore: 17, AwayScore: 17})
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if c.WinnerFranchiseID != nil || c.SpreadWinnerFranchiseID != nil {
		t.Fatalf("a tie without odds must have no winners, got %v %v", c.WinnerFranchiseID, c.SpreadWinnerFranchiseID)
	}
	if c.OverUnder != contest.OverUnderNone {
		t.Fatalf("expected no total result without odds, got %s", c.OverUnder)
	}
	stored, _, _ := f.contests.GetByID(t.Context(), testContestID)
	for _, cc := range stored.Competitions[0].Competitors {
		if cc.Winner {
			t.Fatalf("no competitor wins a tie")
		}
	}
}

func TestContestService_FinalizeValidation(t *testing.T) {
	t.Parallel()
	f := newContestFixture(t)

	tests := []struct {
		name  string
		input FinalizeContestInput
		want  error
	}{
		{name: "negative score", input: FinalizeContestInput{ContestID: testContestID, HomeScore: -1}, want: ErrInvalidInput},
		{name: "bad id", input: FinalizeContestInput{ContestID: "contest-1"}, want: ErrInvalidInput},
		{name: "bad correlation", input: FinalizeContestInput{ContestID: testContestID, CorrelationID: "x"}, want: ErrInvalidInput},
		{name: "unknown contest", input: FinalizeContestInput{ContestID: "0192b6c4-1000-7000-8000-00000000ffff"}, want: ErrNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.service.Finalize(t.Context(), tc.input)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}
