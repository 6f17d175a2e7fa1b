package usecase

import (
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/riskibarqy/sportsdata-producer/internal/domain/contest"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/documenttype"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/messaging"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/sport"
	"github.com/riskibarqy/sportsdata-producer/internal/platform/id"
	"github.com/riskibarqy/sportsdata-producer/internal/platform/logging"
)

const (
	seasonURL       = "http://sports.core.api.espn.com/v2/sports/football/leagues/nfl/seasons/2024?lang=en"
	regularTypeURL  = "http://sports.core.api.espn.com/v2/sports/football/leagues/nfl/seasons/2024/types/2?lang=en"
	regularGroupURL = "http://sports.core.api.espn.com/v2/sports/football/leagues/nfl/seasons/2024/types/2/groups?lang=en"
	nfcURL          = "http://sports.core.api.espn.com/v2/sports/football/leagues/nfl/seasons/2024/types/2/groups/7?lang=en"
)

const seasonPayload = `{
	"$ref": "` + seasonURL + `",
	"year": 2024,
	"startDate": "2024-08-01T07:00Z",
	"endDate": "2025-02-14T07:59Z",
	"displayName": "2024",
	"type": {
		"$ref": "` + regularTypeURL + `",
		"id": "2",
		"type": 2,
		"name": "Regular Season",
		"abbreviation": "reg",
		"year": 2024,
		"startDate": "2024-09-05T07:00Z",
		"endDate": "2025-01-09T07:59Z",
		"hasGroups": true,
		"hasStandings": true,
		"hasLegs": false,
		"groups": {"$ref": "` + regularGroupURL + `"}
	},
	"types": {
		"items": [
			{"id": "1", "type": 1, "name": "Preseason", "abbreviation": "pre", "startDate": "2024-08-01T07:00Z", "endDate": "2024-09-05T06:59Z"},
			{"id": "2", "type": 2, "name": "Regular Season", "abbreviation": "reg", "hasGroups": true},
			{"id": "3", "type": 3, "name": "Postseason", "abbreviation": "post"}
		]
	}
}`

const groupSeasonPayload = `{
	"$ref": "` + groupURL + `",
	"id": "10",
	"name": "NFC North",
	"abbreviation": "NFCN",
	"shortName": "NFC North",
	"midsizeName": "NFC North",
	"isConference": false,
	"parent": {"$ref": "` + nfcURL + `"}
}`

const nfcPayload = `{
	"$ref": "` + nfcURL + `",
	"id": "7",
	"name": "National Football Conference",
	"abbreviation": "NFC",
	"shortName": "NFC",
	"isConference": true
}`

// bears derives a second franchise and team season from the Packers documents.
var bears = strings.NewReplacer(
	"franchises/9", "franchises/3",
	"teams/9", "teams/3",
	`"id": "9"`, `"id": "3"`,
	"green-bay-packers", "chicago-bears",
	"Green Bay", "Chicago",
	"Packers", "Bears",
	`"GB"`, `"CHI"`,
)

func TestDocumentService_SeasonCreatesPhasesAndRequestsGroups(t *testing.T) {
	t.Parallel()
	h := newDocumentHarness(t, nil)

	created := h.mustProcess(t, documenttype.Season, seasonURL, seasonPayload, func(env *DocumentEnvelope) { env.SeasonYear = 0 })
	if !created.Created || created.Updated {
		t.Fatalf("expected create, got %+v", created)
	}
	if want := []string{messaging.TypeSeasonCreated, messaging.TypeDocumentRequested}; !slices.Equal(created.Events, want) {
		t.Fatalf("expected events %v, got %v", want, created.Events)
	}

	s, ok, err := h.seasons.GetByYear(t.Context(), 2024)
	if err != nil || !ok {
		t.Fatalf("season not stored: ok=%v err=%v", ok, err)
	}
	if s.ID != created.EntityID || s.Name != "2024" || len(s.Phases) != 3 {
		t.Fatalf("unexpected season %+v", s)
	}
	regular := s.PhaseByType(2)
	if regular == nil || !regular.HasGroups || regular.Slug != "regular-season" {
		t.Fatalf("unexpected regular season phase %+v", regular)
	}
	if !regular.StartDate.Equal(time.Date(2024, 9, 5, 7, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected the embedded type to win, got start %s", regular.StartDate)
	}
	if s.ActivePhaseID == nil || *s.ActivePhaseID != regular.ID {
		t.Fatalf("expected the regular season to be active, got %v", s.ActivePhaseID)
	}
	if post := s.PhaseByType(3); post == nil || !post.StartDate.Equal(s.StartDate) || !post.EndDate.Equal(s.EndDate) {
		t.Fatalf("expected undated phase to take the season range, got %+v", post)
	}

	var req messaging.DocumentRequested
	for _, e := range h.events.Events() {
		if e.Type == messaging.TypeDocumentRequested {
			req = e.Payload.(messaging.DocumentRequested)
		}
	}
	if req.DocumentType != documenttype.GroupSeason || req.URI != regularGroupURL || req.ParentID != regular.ID || req.SeasonYear != 2024 {
		t.Fatalf("unexpected group request %+v", req)
	}

	again := h.mustProcess(t, documenttype.Season, seasonURL, seasonPayload)
	if again.Created || again.Updated || again.EntityID != s.ID {
		t.Fatalf("expected no-op on re-import, got %+v", again)
	}

	renamed := h.mustProcess(t, documenttype.Season, seasonURL, strings.Replace(seasonPayload, `"displayName": "2024"`, `"displayName": "2024 NFL"`, 1))
	if !renamed.Updated || !slices.Equal(renamed.Events, []string{messaging.TypeSeasonUpdated}) {
		t.Fatalf("expected an update without new requests, got %+v", renamed)
	}
	s, _, _ = h.seasons.GetByYear(t.Context(), 2024)
	if s.PhaseByType(2).ID != regular.ID || s.ModifiedBy == nil {
		t.Fatalf("expected phase ids to survive the update, got %+v", s)
	}
}

func TestDocumentService_SeasonRejectsBadInput(t *testing.T) {
	t.Parallel()
	h := newDocumentHarness(t, nil)

	_, err := h.process(t, documenttype.Season, seasonURL, strings.Replace(seasonPayload, `"year": 2024,`, `"year": 1700,`, 1))
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid year to be rejected, got %v", err)
	}
	_, err = h.process(t, documenttype.Season, seasonURL, strings.Replace(seasonPayload, `"startDate": "2024-08-01T07:00Z",`, `"startDate": "soon",`, 1))
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected bad start date to be rejected, got %v", err)
	}
	if len(h.events.Events()) != 0 {
		t.Fatalf("rejected documents must not emit events, got %v", h.events.Types())
	}
}

func TestDocumentService_GroupSeasonLinksParent(t *testing.T) {
	t.Parallel()
	h := newDocumentHarness(t, nil)
	stored := h.mustProcess(t, documenttype.Season, seasonURL, seasonPayload)

	division := h.mustProcess(t, documenttype.GroupSeason, groupURL, groupSeasonPayload)
	if !division.Created {
		t.Fatalf("expected create, got %+v", division)
	}
	if want := []string{messaging.TypeGroupSeasonCreated, messaging.TypeDocumentRequested}; !slices.Equal(division.Events, want) {
		t.Fatalf("expected events %v, got %v", want, division.Events)
	}
	events := h.events.Events()
	if req := events[len(events)-1].Payload.(messaging.DocumentRequested); req.DocumentType != documenttype.GroupSeason || req.URI != nfcURL {
		t.Fatalf("unexpected parent request %+v", req)
	}

	g, ok, err := h.groups.GetByID(t.Context(), division.EntityID)
	if err != nil || !ok {
		t.Fatalf("group season not stored: ok=%v err=%v", ok, err)
	}
	if g.ParentID != nil || g.Slug != "nfc-north" || g.SeasonYear != 2024 || len(g.ExternalIDs) != 1 {
		t.Fatalf("unexpected group season %+v", g)
	}
	if g.SeasonID == nil || *g.SeasonID != stored.EntityID {
		t.Fatalf("expected season %s, got %v", stored.EntityID, g.SeasonID)
	}

	conference := h.mustProcess(t, documenttype.GroupSeason, nfcURL, nfcPayload)
	if !conference.Created || !slices.Equal(conference.Events, []string{messaging.TypeGroupSeasonCreated}) {
		t.Fatalf("expected conference create without requests, got %+v", conference)
	}

	linked := h.mustProcess(t, documenttype.GroupSeason, groupURL, groupSeasonPayload)
	if !linked.Updated || linked.EntityID != division.EntityID {
		t.Fatalf("expected the division to pick up its parent, got %+v", linked)
	}
	g, _, _ = h.groups.GetByID(t.Context(), division.EntityID)
	if g.ParentID == nil || *g.ParentID != conference.EntityID {
		t.Fatalf("expected parent %s, got %v", conference.EntityID, g.ParentID)
	}

	again := h.mustProcess(t, documenttype.GroupSeason, groupURL, groupSeasonPayload)
	if again.Created || again.Updated {
		t.Fatalf("expected no-op on re-import, got %+v", again)
	}
}

func TestDocumentService_GroupSeasonRequiresSeasonYear(t *testing.T) {
	t.Parallel()
	h := newDocumentHarness(t, nil)

	_, err := h.process(t, documenttype.GroupSeason, groupURL, groupSeasonPayload, func(env *DocumentEnvelope) {
		env.SeasonYear = 0
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestDocumentService_GroupedTeamSeasonsCountConferenceGames(t *testing.T) {
	t.Parallel()
	h := newDocumentHarness(t, nil)

	division := h.mustProcess(t, documenttype.GroupSeason, groupURL, groupSeasonPayload)
	h.mustProcess(t, documenttype.Franchise, franchiseURL, franchisePayload)
	h.mustProcess(t, documenttype.Franchise, bears.Replace(franchiseURL), bears.Replace(franchisePayload))
	packers := h.mustProcess(t, documenttype.TeamSeason, teamSeasonURL, teamSeasonPayload)
	chicago := h.mustProcess(t, documenttype.TeamSeason, bears.Replace(teamSeasonURL), bears.Replace(teamSeasonPayload))
	h.seedTeamSeason(t, testThirdSeason, "0192b6c4-2000-7000-8000-0000000000c0", awaySeasonURL, "outsider")

	for _, teamSeasonID := range []string{packers.EntityID, chicago.EntityID} {
		fs, _, _ := h.franchiseSeasons.GetByID(t.Context(), teamSeasonID)
		if fs.GroupSeasonID == nil || *fs.GroupSeasonID != division.EntityID {
			t.Fatalf("team season %s: expected group %s, got %v", teamSeasonID, division.EntityID, fs.GroupSeasonID)
		}
	}

	finalize := func(contestID, home, away string, homeScore, awayScore, day int) {
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
		if err := h.contests.Save(t.Context(), c, nil); err != nil {
			t.Fatalf("seed contest: %v", err)
		}
		finalized := start.Add(4 * time.Hour)
		c.HomeScore, c.AwayScore, c.FinalizedUTC = &homeScore, &awayScore, &finalized
		if err := h.contests.SaveOutcome(t.Context(), c, nil); err != nil {
			t.Fatalf("seed outcome: %v", err)
		}
	}
	finalize("0192b6c4-3000-7000-8000-000000000101", packers.EntityID, chicago.EntityID, 24, 17, 8)
	finalize("0192b6c4-3000-7000-8000-000000000102", testThirdSeason, packers.EntityID, 31, 28, 15)

	enrichment := NewEnrichmentService(h.franchiseSeasons, h.contests, id.NewUUIDGenerator(), 1, logging.NewNop())
	fs, err := enrichment.Enrich(t.Context(), packers.EntityID, testCorrelationID)
	if err != nil {
		t.Fatalf("enrich: %v", err)
	}
	if fs.Wins != 1 || fs.Losses != 1 {
		t.Fatalf("unexpected record %d-%d", fs.Wins, fs.Losses)
	}
	if fs.ConferenceWins != 1 || fs.ConferenceLosses != 0 {
		t.Fatalf("expected the division game to count, got %d-%d", fs.ConferenceWins, fs.ConferenceLosses)
	}
}
