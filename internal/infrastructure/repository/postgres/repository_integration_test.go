//go:build integration

package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/sportsdata-producer/db/migrations"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/audit"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/contest"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/externalid"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/franchise"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/franchiseseason"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/groupseason"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/messaging"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/season"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/sport"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/venue"
	"github.com/riskibarqy/sportsdata-producer/internal/infrastructure/messaging/outbox"
	messagingmock "github.com/riskibarqy/sportsdata-producer/internal/mocks/domain/messaging"
	"github.com/riskibarqy/sportsdata-producer/internal/platform/id"
	"github.com/riskibarqy/sportsdata-producer/internal/platform/logging"
	"github.com/riskibarqy/sportsdata-producer/internal/platform/pgtest"
	"github.com/riskibarqy/sportsdata-producer/internal/schema"
)

var testDB *sqlx.DB

func TestMain(m *testing.M) {
	ctx := context.Background()
	pg, err := pgtest.Start(ctx)
	if err != nil {
		fmt.Printf("Failed to start test database: %v\n", err)
		os.Exit(1)
	}

	runner, err := schema.NewRunner(migrations.FS, ".", pg.DSN, logging.NewNop())
	if err != nil {
		fmt.Printf("Failed to create migrator: %v\n", err)
		os.Exit(1)
	}
	if _, err := runner.Up(); err != nil {
		fmt.Printf("Failed to migrate: %v\n", err)
		os.Exit(1)
	}
	_ = runner.Close()

	testDB, err = sqlx.Connect("postgres", pg.DSN)
	if err != nil {
		fmt.Printf("Failed to connect: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()

	_ = testDB.Close()
	if err := pg.Close(ctx); err != nil {
		fmt.Printf("Failed to terminate PostgreSQL container: %v\n", err)
	}
	os.Exit(code)
}

var ids = id.NewUUIDGenerator()

func newID(t *testing.T) string {
	t.Helper()
	v, err := ids.NewID()
	require.NoError(t, err)
	return v
}

func newAudit(t *testing.T) audit.Audit {
	return audit.Created(newID(t), time.Now().UTC().Truncate(time.Microsecond))
}

func countRows(t *testing.T, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, testDB.Get(&n, query, args...))
	return n
}

func seedFranchiseSeason(t *testing.T, name string, year int) franchiseseason.FranchiseSeason {
	t.Helper()
	ctx := context.Background()
	franchiseRepo := NewFranchiseRepository(testDB, nil)
	seasonRepo := NewFranchiseSeasonRepository(testDB, nil)

	f := franchise.Franchise{
		ID:               newID(t),
		Sport:            sport.FootballNFL,
		Name:             name,
		Location:         name,
		DisplayName:      name,
		DisplayNameShort: name,
		ColorCodeHex:     "#203731",
		IsActive:         true,
		Slug:             name,
		Audit:            newAudit(t),
	}
	require.NoError(t, franchiseRepo.Save(ctx, f, nil))

	fs := franchiseseason.FranchiseSeason{
		ID:               newID(t),
		FranchiseID:      f.ID,
		SeasonYear:       year,
		Slug:             name,
		Location:         name,
		Name:             name,
		DisplayName:      name,
		DisplayNameShort: name,
		ColorCodeHex:     "#203731",
		IsActive:         true,
		Audit:            newAudit(t),
	}
	require.NoError(t, seasonRepo.Save(ctx, fs, nil))
	return fs
}

func TestVenueRepository_SaveWritesOutboxInSameTransaction(t *testing.T) {
	ctx := context.Background()
	repo := NewVenueRepository(testDB, outbox.NewWriter(ids))

	venueID := newID(t)
	url := "http://sports.core.api.espn.com/v2/sports/football/venues/" + venueID
	v := venue.Venue{
		ID:          venueID,
		Name:        "Soldier Field",
		Slug:        "soldier-field-" + venueID[:8],
		Capacity:    61500,
		ExternalIDs: []externalid.ExternalID{externalid.New(newID(t), venueID, "3933", externalid.ProviderESPN, url)},
		Images:      []venue.Image{{ID: newID(t), OriginalURLHash: "abc", URI: "https://img/soldier.png"}},
		Audit:       newAudit(t),
	}
	event := messaging.Event{ID: newID(t), Type: messaging.TypeVenueCreated, Payload: messaging.VenueChanged{VenueID: v.ID, Name: v.Name, Slug: v.Slug}, CorrelationID: v.CreatedBy}
	require.NoError(t, repo.Save(ctx, v, []messaging.Event{event}))

	got, ok, err := repo.GetBySourceURLHash(ctx, externalid.ProviderESPN, externalid.SourceURLHash(url))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Soldier Field", got.Name)
	assert.Len(t, got.ExternalIDs, 1)
	assert.Len(t, got.Images, 1)

	byValue, ok, err := repo.GetByExternalValue(ctx, externalid.ProviderESPN, "3933")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, v.ID, byValue.ID)

	assert.Equal(t, 1, countRows(t, "SELECT count(*) FROM outbox_message WHERE message_id = $1", event.ID))

	// Saving again with the same image hash keeps one image and one external id.
	v.Name = "Soldier Field II"
	v.Touch(newID(t), time.Now())
	v.Images = append(v.Images, venue.Image{ID: newID(t), OriginalURLHash: "abc", URI: "https://img/dup.png"})
	require.NoError(t, repo.Save(ctx, v, nil))

	got, _, err = repo.GetByID(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, "Soldier Field II", got.Name)
	assert.Len(t, got.Images, 1)
	assert.Len(t, got.ExternalIDs, 1)
	require.NotNil(t, got.ModifiedUTC)
}

func TestSeasonRepository_SaveWritesPhasesAndGroups(t *testing.T) {
	ctx := context.Background()
	writer := outbox.NewWriter(ids)
	seasons := NewSeasonRepository(testDB, writer)
	groups := NewGroupSeasonRepository(testDB, writer)

	start := time.Date(1999, time.August, 1, 7, 0, 0, 0, time.UTC)
	end := time.Date(2000, time.February, 14, 7, 0, 0, 0, time.UTC)
	s := season.Season{ID: newID(t), Year: 1999, Name: "1999", StartDate: start, EndDate: end, Audit: newAudit(t)}
	regular := season.Phase{
		ID:        newID(t),
		SeasonID:  s.ID,
		TypeCode:  2,
		Name:      "Regular Season",
		Slug:      "regular-season",
		Year:      1999,
		StartDate: start,
		EndDate:   end,
		HasGroups: true,
	}
	s.Phases = []season.Phase{regular}
	s.ActivePhaseID = &regular.ID
	event := messaging.Event{ID: newID(t), Type: messaging.TypeSeasonCreated, Payload: messaging.SeasonChanged{SeasonID: s.ID, Year: s.Year}, CorrelationID: s.CreatedBy}
	require.NoError(t, seasons.Save(ctx, s, []messaging.Event{event}))

	got, ok, err := seasons.GetByYear(ctx, 1999)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got.Phases, 1)
	assert.Equal(t, regular.ID, got.Phases[0].ID)
	require.NotNil(t, got.ActivePhaseID)
	assert.Equal(t, regular.ID, *got.ActivePhaseID)
	assert.Equal(t, 1, countRows(t, "SELECT count(*) FROM outbox_message WHERE message_id = $1", event.ID))

	post := season.Phase{ID: newID(t), SeasonID: s.ID, TypeCode: 3, Name: "Postseason", Slug: "postseason", Year: 1999, StartDate: start, EndDate: end}
	s.Phases = append(s.Phases, post)
	s.ActivePhaseID = &post.ID
	s.Touch(newID(t), time.Now())
	require.NoError(t, seasons.Save(ctx, s, nil))
	got, _, err = seasons.GetByYear(ctx, 1999)
	require.NoError(t, err)
	assert.Len(t, got.Phases, 2)
	assert.Equal(t, post.ID, *got.ActivePhaseID)

	url := "http://sports.core.api.espn.com/v2/sports/football/leagues/nfl/seasons/1999/types/2/groups/10"
	g := groupseason.GroupSeason{
		ID:           newID(t),
		SeasonID:     &s.ID,
		SeasonYear:   1999,
		Name:         "NFC Central",
		Slug:         "nfc-central",
		ShortName:    "NFC Central",
		IsConference: false,
		Audit:        newAudit(t),
	}
	g.ExternalIDs = []externalid.ExternalID{externalid.New(newID(t), g.ID, "10", externalid.ProviderESPN, url)}
	require.NoError(t, groups.Save(ctx, g, nil))

	byURL, ok, err := groups.GetBySourceURLHash(ctx, externalid.ProviderESPN, externalid.SourceURLHash(url))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, g.ID, byURL.ID)
	assert.Len(t, byURL.ExternalIDs, 1)
	require.NotNil(t, byURL.SeasonID)
	assert.Equal(t, s.ID, *byURL.SeasonID)
}

func TestVenueRepository_FailedSaveLeavesNoOutboxRows(t *testing.T) {
	ctx := context.Background()
	repo := NewVenueRepository(testDB, outbox.NewWriter(ids))

	v := venue.Venue{ID: newID(t), Name: "Broken", Slug: "broken", Audit: audit.Audit{CreatedUTC: time.Now(), CreatedBy: "not-a-uuid"}}
	event := messaging.Event{ID: newID(t), Type: messaging.TypeVenueCreated, Payload: messaging.VenueChanged{VenueID: v.ID}}
	require.Error(t, repo.Save(ctx, v, []messaging.Event{event}))

	assert.Equal(t, 0, countRows(t, "SELECT count(*) FROM venue WHERE id = $1", v.ID))
	assert.Equal(t, 0, countRows(t, "SELECT count(*) FROM outbox_message WHERE message_id = $1", event.ID))
}

func TestFranchiseSeasonRepository_SaveKeepsEnrichment(t *testing.T) {
	ctx := context.Background()
	repo := NewFranchiseSeasonRepository(testDB, outbox.NewWriter(ids))
	fs := seedFranchiseSeason(t, "packers-"+newID(t)[:6], 2024)

	fs.Wins, fs.Losses = 11, 6
	scored := 27
	fs.Scoring.PtsScored.Max = &scored
	require.NoError(t, repo.SaveEnrichment(ctx, fs, nil))

	reimport := fs
	reimport.Wins, reimport.Losses = 0, 0
	reimport.Scoring = franchiseseason.Scoring{}
	reimport.DisplayName = "Green Bay Packers"
	require.NoError(t, repo.Save(ctx, reimport, nil))

	got, ok, err := repo.GetByFranchiseAndYear(ctx, fs.FranchiseID, 2024)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Green Bay Packers", got.DisplayName)
	assert.Equal(t, 11, got.Wins)
	assert.Equal(t, 6, got.Losses)
	require.NotNil(t, got.Scoring.PtsScored.Max)
	assert.Equal(t, 27, *got.Scoring.PtsScored.Max)
}

func TestFranchiseSeasonMetricRepository_UpsertKeepsOneRow(t *testing.T) {
	ctx := context.Background()
	repo := NewFranchiseSeasonMetricRepository(testDB)
	fs := seedFranchiseSeason(t, "bears-"+newID(t)[:6], 2024)

	m := franchiseseason.Metric{
		ID:                newID(t),
		FranchiseSeasonID: fs.ID,
		Season:            2024,
		GamesPlayed:       10,
		Ypp:               5.4,
		SuccessRate:       0.45,
		ComputedUTC:       time.Now().UTC(),
		Audit:             newAudit(t),
	}
	first, err := repo.Upsert(ctx, m)
	require.NoError(t, err)

	m.ID = newID(t)
	m.GamesPlayed = 11
	second, err := repo.Upsert(ctx, m)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 11, second.GamesPlayed)
	assert.Equal(t, 1, countRows(t, "SELECT count(*) FROM franchise_season_metric WHERE franchise_season_id = $1", fs.ID))
}

func TestContestRepository_SaveAndOutcome(t *testing.T) {
	ctx := context.Background()
	writer := outbox.NewWriter(ids)
	repo := NewContestRepository(testDB, writer)
	oddsRepo := NewOddsRepository(testDB, writer)
	home := seedFranchiseSeason(t, "lions-"+newID(t)[:6], 2024)
	away := seedFranchiseSeason(t, "vikings-"+newID(t)[:6], 2024)

	contestID := newID(t)
	competitionID := newID(t)
	c := contest.Contest{
		ID:                    contestID,
		Name:                  "Vikings at Lions",
		ShortName:             "MIN @ DET",
		HomeFranchiseSeasonID: home.ID,
		AwayFranchiseSeasonID: away.ID,
		StartDateUTC:          time.Date(2025, 1, 5, 18, 0, 0, 0, time.UTC),
		Sport:                 sport.FootballNFL,
		SeasonYear:            2024,
		Competitions: []contest.Competition{{
			ID:                      competitionID,
			Date:                    time.Date(2025, 1, 5, 18, 0, 0, 0, time.UTC),
			IsConferenceCompetition: true,
			Competitors: []contest.Competitor{
				{ID: newID(t), FranchiseSeasonID: home.ID, Type: "team", HomeAway: contest.HomeAwayHome},
				{ID: newID(t), FranchiseSeasonID: away.ID, Type: "team", SortOrder: 1, HomeAway: contest.HomeAwayAway},
			},
		}},
		Audit: newAudit(t),
	}
	require.NoError(t, repo.Save(ctx, c, nil))

	spread := -3.0
	total := 56.5
	require.NoError(t, oddsRepo.Upsert(ctx, contest.Odds{
		ID: newID(t), CompetitionID: competitionID, ProviderRef: "ref", ProviderID: "58", ProviderName: "ESPN BET",
		ProviderPriority: 1, Spread: &spread, OverUnder: &total, ContentHash: "h1", Audit: newAudit(t),
	}, nil))
	require.NoError(t, oddsRepo.Upsert(ctx, contest.Odds{
		ID: newID(t), CompetitionID: competitionID, ProviderRef: "ref", ProviderID: "58", ProviderName: "ESPN BET",
		ProviderPriority: 1, Spread: &spread, OverUnder: &total, ContentHash: "h2", Audit: newAudit(t),
	}, nil))
	odds, err := oddsRepo.ListByCompetition(ctx, competitionID)
	require.NoError(t, err)
	require.Len(t, odds, 1)
	assert.Equal(t, "h2", odds[0].ContentHash)

	homeScore, awayScore := 31, 9
	finalized := time.Now().UTC()
	c.HomeScore, c.AwayScore = &homeScore, &awayScore
	c.WinnerFranchiseID = &home.FranchiseID
	c.OverUnder = contest.OverUnderUnder
	c.FinalizedUTC = &finalized
	c.Touch(newID(t), finalized)
	finalizedEvent := messaging.Event{ID: newID(t), Type: messaging.TypeContestFinalized, Payload: messaging.ContestFinalized{ContestID: c.ID}}
	require.NoError(t, repo.SaveOutcome(ctx, c, []messaging.Event{finalizedEvent}))

	got, ok, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.IsFinalized())
	assert.Equal(t, contest.OverUnderUnder, got.OverUnder)
	require.Len(t, got.Competitions, 1)
	require.Len(t, got.Competitions[0].Odds, 1)
	for _, cc := range got.Competitions[0].Competitors {
		assert.Equal(t, cc.HomeAway == contest.HomeAwayHome, cc.Winner)
	}

	finalizedList, err := repo.ListFinalizedByFranchiseSeason(ctx, away.ID)
	require.NoError(t, err)
	require.Len(t, finalizedList, 1)

	// Re-importing the schedule must not clear the outcome.
	c.HomeScore, c.AwayScore, c.FinalizedUTC = nil, nil, nil
	require.NoError(t, repo.Save(ctx, c, nil))
	got, _, err = repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, got.IsFinalized())
	assert.Equal(t, 1, countRows(t, "SELECT count(*) FROM outbox_message WHERE message_id = $1", finalizedEvent.ID))
}

func TestInboxRepository_ReceiveCountsRedeliveries(t *testing.T) {
	ctx := context.Background()
	repo := NewInboxRepository(testDB, ids)
	messageID, consumerID := newID(t), newID(t)
	now := time.Now().UTC()

	first, err := repo.Receive(ctx, messageID, consumerID, now)
	require.NoError(t, err)
	assert.Equal(t, 1, first.ReceiveCount)
	assert.False(t, first.IsConsumed())

	require.NoError(t, repo.MarkConsumed(ctx, messageID, consumerID, now))

	second, err := repo.Receive(ctx, messageID, consumerID, now.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, 2, second.ReceiveCount)
	assert.True(t, second.IsConsumed())
	assert.Equal(t, first.ID, second.ID)

	deleted, err := repo.DeleteConsumedBefore(ctx, now.Add(time.Minute))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, deleted, int64(1))
	assert.Equal(t, 0, countRows(t, "SELECT count(*) FROM inbox_state WHERE message_id = $1", messageID))
}

func TestOutboxRepository_EmitWritesStandaloneEvents(t *testing.T) {
	ctx := context.Background()
	repo := NewOutboxRepository(testDB, outbox.NewWriter(ids))

	event := messaging.Event{
		ID:   newID(t),
		Type: messaging.TypeDocumentRequested,
		Payload: messaging.DocumentRequested{
			ID:  newID(t),
			URI: "http://sports.core.api.espn.com/v2/sports/football/leagues/nfl/venues/3798",
		},
	}
	require.NoError(t, repo.Emit(ctx, []messaging.Event{event}))
	require.NoError(t, repo.Emit(ctx, nil))

	assert.Equal(t, 1, countRows(t, "SELECT count(*) FROM outbox_message WHERE message_id = $1 AND message_type = $2", event.ID, messaging.TypeDocumentRequested))
}

func TestOutboxRelay_PublishesAndMarksDelivered(t *testing.T) {
	ctx := context.Background()
	repo := NewOutboxRepository(testDB, outbox.NewWriter(ids))

	event := messaging.Event{
		ID:   newID(t),
		Type: messaging.TypeDocumentRequested,
		Payload: messaging.DocumentRequested{
			ID:  newID(t),
			URI: "http://sports.core.api.espn.com/v2/sports/football/leagues/nfl/franchises/9",
		},
	}
	require.NoError(t, repo.Emit(ctx, []messaging.Event{event}))

	publisher := messagingmock.NewPublisher(t)
	publisher.
		On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil)

	relay := outbox.NewRelay(testDB, publisher, outbox.RelayConfig{SubjectPrefix: "sportsdata.events", Workers: 2}, logging.NewNop())
	stats, err := relay.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Failed)
	assert.Positive(t, stats.Published)

	var found bool
	for _, call := range publisher.Calls {
		if call.Arguments.String(3) != event.ID {
			continue
		}
		found = true
		assert.Equal(t, "sportsdata.events."+messaging.TypeDocumentRequested, call.Arguments.String(1))
	}
	assert.True(t, found, "event %s was not published", event.ID)
	assert.Zero(t, countRows(t, "SELECT count(*) FROM outbox_message WHERE message_id = $1", event.ID))

	pending, err := relay.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending.PendingStates)
}

func TestOutboxRelay_FailedPublishIsRetried(t *testing.T) {
	ctx := context.Background()
	repo := NewOutboxRepository(testDB, outbox.NewWriter(ids))

	event := messaging.Event{
		ID:   newID(t),
		Type: messaging.TypeDocumentRequested,
		Payload: messaging.DocumentRequested{
			ID:  newID(t),
			URI: "http://sports.core.api.espn.com/v2/venues/3798",
		},
	}
	require.NoError(t, repo.Emit(ctx, []messaging.Event{event}))

	failing := messagingmock.NewPublisher(t)
	failing.
		On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(fmt.Errorf("broker unavailable"))

	relay := outbox.NewRelay(testDB, failing, outbox.RelayConfig{SubjectPrefix: "sportsdata.events", Workers: 1}, logging.NewNop())
	stats, err := relay.RunOnce(ctx)
	require.NoError(t, err)
	assert.Positive(t, stats.Failed)
	assert.Equal(t, 1, countRows(t, "SELECT count(*) FROM outbox_message WHERE message_id = $1", event.ID))

	working := messagingmock.NewPublisher(t)
	working.
		On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil)
	_, err = outbox.NewRelay(testDB, working, outbox.RelayConfig{SubjectPrefix: "sportsdata.events"}, logging.NewNop()).RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, countRows(t, "SELECT count(*) FROM outbox_message WHERE message_id = $1", event.ID))
}

func TestOutboxRelay_ChunksPublishInSequenceAndRetryWholeState(t *testing.T) {
	ctx := context.Background()
	repo := NewOutboxRepository(testDB, outbox.NewWriter(ids))

	events := make([]messaging.Event, 5)
	for i := range events {
		events[i] = messaging.Event{
			ID:   newID(t),
			Type: messaging.TypeDocumentRequested,
			Payload: messaging.DocumentRequested{
				ID:  newID(t),
				URI: fmt.Sprintf("http://sports.core.api.espn.com/v2/sports/football/leagues/nfl/events/40167180%d", i),
			},
		}
	}
	require.NoError(t, repo.Emit(ctx, events))

	var outboxID string
	require.NoError(t, testDB.Get(&outboxID, "SELECT outbox_id FROM outbox_message WHERE message_id = $1", events[0].ID))
	var sequences []int64
	require.NoError(t, testDB.Select(&sequences, "SELECT sequence_number FROM outbox_message WHERE outbox_id = $1 ORDER BY sequence_number", outboxID))
	require.Len(t, sequences, len(events))

	published := func(p *messagingmock.Publisher) []string {
		mine := make(map[string]bool, len(events))
		for _, e := range events {
			mine[e.ID] = true
		}
		var out []string
		for _, call := range p.Calls {
			if messageID := call.Arguments.String(3); mine[messageID] {
				out = append(out, messageID)
			}
		}
		return out
	}
	wantOrder := make([]string, 0, len(events))
	for _, e := range events {
		wantOrder = append(wantOrder, e.ID)
	}
	cfg := outbox.RelayConfig{SubjectPrefix: "sportsdata.events", Workers: 1, ChunkSize: 2}

	failing := messagingmock.NewPublisher(t)
	failing.
		On("Publish", mock.Anything, mock.Anything, mock.Anything, events[2].ID, mock.Anything).
		Return(fmt.Errorf("broker unavailable"))
	failing.
		On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil)

	stats, err := outbox.NewRelay(testDB, failing, cfg, logging.NewNop()).RunOnce(ctx)
	require.NoError(t, err)
	assert.Positive(t, stats.Failed)
	assert.Equal(t, wantOrder[:3], published(failing))

	var state struct {
		LastSequenceNumber *int64     `db:"last_sequence_number"`
		Delivered          *time.Time `db:"delivered"`
	}
	require.NoError(t, testDB.Get(&state, "SELECT last_sequence_number, delivered FROM outbox_state WHERE outbox_id = $1", outboxID))
	assert.Nil(t, state.LastSequenceNumber, "progress of a failed state must roll back")
	assert.Nil(t, state.Delivered)
	assert.Equal(t, len(events), countRows(t, "SELECT count(*) FROM outbox_message WHERE outbox_id = $1", outboxID))

	working := messagingmock.NewPublisher(t)
	working.
		On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil)
	_, err = outbox.NewRelay(testDB, working, cfg, logging.NewNop()).RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, wantOrder, published(working))

	require.NoError(t, testDB.Get(&state, "SELECT last_sequence_number, delivered FROM outbox_state WHERE outbox_id = $1", outboxID))
	require.NotNil(t, state.LastSequenceNumber)
	assert.Equal(t, sequences[len(sequences)-1], *state.LastSequenceNumber)
	assert.NotNil(t, state.Delivered)
	assert.Zero(t, countRows(t, "SELECT count(*) FROM outbox_message WHERE outbox_id = $1", outboxID))
}
