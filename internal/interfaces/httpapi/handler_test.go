package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"

	"github.com/riskibarqy/sportsdata-producer/db/migrations"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/franchise"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/messaging"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/season"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/sport"
	"github.com/riskibarqy/sportsdata-producer/internal/infrastructure/messaging/outbox"
	"github.com/riskibarqy/sportsdata-producer/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/sportsdata-producer/internal/platform/id"
	"github.com/riskibarqy/sportsdata-producer/internal/platform/logging"
	"github.com/riskibarqy/sportsdata-producer/internal/usecase"
)

const (
	testInternalToken = "secret-token"
	testFranchiseID   = "0192b6c4-5000-7000-8000-000000000001"
)

const venueDocumentBody = `{
	"id": "doc-venue-3798",
	"documentType": "venue",
	"provider": "espn",
	"sport": "football_nfl",
	"sourceUrl": "http://sports.core.api.espn.com/v2/venues/3798?lang=en",
	"payload": {
		"id": "3798",
		"fullName": "Lambeau Field",
		"capacity": 81441,
		"grass": true
	}
}`

type stubRelay struct {
	runs int
}

func (s *stubRelay) RunOnce(context.Context) (outbox.RunStats, error) {
	s.runs++
	return outbox.RunStats{Claimed: 2, Published: 5}, nil
}

func (s *stubRelay) Stats(context.Context) (messaging.OutboxStats, error) {
	return messaging.OutboxStats{PendingStates: 3, PendingMessages: 7}, nil
}

type routerFixture struct {
	router http.Handler
	relay  *stubRelay
	events *messaging.Recorder
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()

	events := &messaging.Recorder{}
	ids := id.NewUUIDGenerator()
	logger := logging.NewNop()
	odds := memory.NewOddsRepository(events)
	venues := memory.NewVenueRepository(events)
	franchises := memory.NewFranchiseRepository(events, franchise.Franchise{
		ID:           testFranchiseID,
		Sport:        sport.FootballNFL,
		Name:         "Packers",
		Slug:         "green-bay-packers",
		ColorCodeHex: "203731",
	})
	franchiseSeasons := memory.NewFranchiseSeasonRepository(events)
	contests := memory.NewContestRepository(events, odds)
	metrics := memory.NewMetricRepository()
	seasons := memory.NewSeasonRepository(events, season.Season{
		ID:        "0192b6c4-5000-7000-8000-0000000000b1",
		Year:      2024,
		Name:      "2024 NFL Season",
		StartDate: time.Date(2024, time.September, 5, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, time.February, 9, 0, 0, 0, 0, time.UTC),
	})

	relay := &stubRelay{}
	handler := NewHandler(HandlerDeps{
		Documents: usecase.NewDocumentService(usecase.DocumentServiceDeps{
			Venues:           venues,
			Franchises:       franchises,
			FranchiseSeasons: franchiseSeasons,
			Seasons:          seasons,
			GroupSeasons:     memory.NewGroupSeasonRepository(events),
			Contests:         contests,
			Odds:             odds,
			Events:           memory.NewEventSink(events),
			IDs:              ids,
			Logger:           logger,
		}),
		Contests:   usecase.NewContestService(contests, franchiseSeasons, ids, logger),
		Enrichment: usecase.NewEnrichmentService(franchiseSeasons, contests, ids, 2, logger),
		Metrics:    usecase.NewMetricService(metrics, franchiseSeasons, ids, logger),
		Catalog:    usecase.NewCatalogService(franchises, franchiseSeasons, venues, seasons),
		Outbox:     relay,
		Migrations: migrations.FS,
		Logger:     logger,
	})

	return &routerFixture{
		router: NewRouter(handler, RouterConfig{InternalJobToken: testInternalToken}, logger),
		relay:  relay,
		events: events,
	}
}

func (f *routerFixture) do(t *testing.T, method, path, body string, internal bool) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if internal {
		req.Header.Set(internalJobTokenHeader, testInternalToken)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var envelope map[string]any
	if err := sonic.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal %s %s response: %v", method, path, err)
	}
	return rec, envelope
}

func TestRouter_PublicFranchiseRoutes(t *testing.T) {
	f := newRouterFixture(t)

	rec, body := f.do(t, http.MethodGet, "/v1/franchises?sport=football_nfl&limit=10", "", false)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", rec.Code, body)
	}
	items, _ := body["data"].([]any)
	if len(items) != 1 {
		t.Fatalf("expected one franchise, got %v", body["data"])
	}
	if rec.Header().Get(correlationIDHeader) == "" {
		t.Fatalf("expected a correlation id header")
	}

	rec, body = f.do(t, http.MethodGet, "/v1/franchises/"+testFranchiseID, "", false)
	data, _ := body["data"].(map[string]any)
	if rec.Code != http.StatusOK || data["slug"] != "green-bay-packers" {
		t.Fatalf("unexpected franchise response %d: %v", rec.Code, body)
	}

	rec, _ = f.do(t, http.MethodGet, "/v1/franchises/0192b6c4-5000-7000-8000-00000000ffff", "", false)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	rec, _ = f.do(t, http.MethodGet, "/v1/franchises?limit=abc", "", false)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a bad limit, got %d", rec.Code)
	}
}

func TestRouter_SeasonRoute(t *testing.T) {
	f := newRouterFixture(t)

	rec, body := f.do(t, http.MethodGet, "/v1/seasons/2024", "", false)
	data, _ := body["data"].(map[string]any)
	if rec.Code != http.StatusOK || data["startDate"] != "2024-09-05" {
		t.Fatalf("unexpected season response %d: %v", rec.Code, body)
	}

	rec, _ = f.do(t, http.MethodGet, "/v1/seasons/1999", "", false)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	rec, _ = f.do(t, http.MethodGet, "/v1/seasons/next", "", false)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRouter_InternalRoutesRequireToken(t *testing.T) {
	f := newRouterFixture(t)

	rec, body := f.do(t, http.MethodGet, "/v1/internal/outbox/stats", "", false)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d: %v", rec.Code, body)
	}

	rec, body = f.do(t, http.MethodGet, "/v1/internal/outbox/stats", "", true)
	data, _ := body["data"].(map[string]any)
	if rec.Code != http.StatusOK || data["pendingMessages"] != float64(7) {
		t.Fatalf("unexpected stats response %d: %v", rec.Code, body)
	}

	rec, _ = f.do(t, http.MethodPost, "/v1/internal/outbox/relay", "", true)
	if rec.Code != http.StatusOK || f.relay.runs != 1 {
		t.Fatalf("expected one relay pass, got %d runs (status %d)", f.relay.runs, rec.Code)
	}
}

func TestRouter_ProcessDocument(t *testing.T) {
	f := newRouterFixture(t)

	rec, body := f.do(t, http.MethodPost, "/v1/internal/documents", venueDocumentBody, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %v", rec.Code, body)
	}
	data, _ := body["data"].(map[string]any)
	venueID, _ := data["entityId"].(string)
	if !id.Valid(venueID) {
		t.Fatalf("expected a venue id, got %v", data)
	}

	rec, _ = f.do(t, http.MethodPost, "/v1/internal/documents", venueDocumentBody, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for an unchanged document, got %d", rec.Code)
	}

	rec, body = f.do(t, http.MethodGet, "/v1/venues/"+venueID, "", false)
	data, _ = body["data"].(map[string]any)
	if rec.Code != http.StatusOK || data["name"] != "Lambeau Field" {
		t.Fatalf("unexpected venue response %d: %v", rec.Code, body)
	}

	types := f.events.Types()
	if len(types) != 1 || types[0] != messaging.TypeVenueCreated {
		t.Fatalf("expected a single venue created event, got %v", types)
	}
}

func TestRouter_ProcessDocumentErrors(t *testing.T) {
	f := newRouterFixture(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "empty body", body: "", want: http.StatusBadRequest},
		{name: "unknown field", body: `{"id":"x","bogus":true}`, want: http.StatusBadRequest},
		{name: "unknown provider", body: strings.Replace(venueDocumentBody, `"espn"`, `"acme"`, 1), want: http.StatusBadRequest},
		{name: "unsupported type", body: strings.Replace(venueDocumentBody, `"venue"`, `"athlete"`, 1), want: http.StatusUnprocessableEntity},
		{
			name: "team season before franchise",
			body: `{"id":"doc-ts","documentType":"team-season","provider":"espn","sport":"football_nfl","seasonYear":2024,
				"sourceUrl":"http://sports.core.api.espn.com/v2/sports/football/leagues/nfl/seasons/2024/teams/9",
				"payload":{"id":"9","slug":"green-bay-packers","location":"Green Bay","name":"Packers","displayName":"Green Bay Packers","color":"203731",
				"franchise":{"$ref":"http://sports.core.api.espn.com/v2/sports/football/leagues/nfl/franchises/9"}}}`,
			want: http.StatusConflict,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec, body := f.do(t, http.MethodPost, "/v1/internal/documents", tc.body, true)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d: %v", tc.want, rec.Code, body)
			}
		})
	}
}

func TestRouter_VerifySchema(t *testing.T) {
	f := newRouterFixture(t)

	rec, body := f.do(t, http.MethodGet, "/v1/internal/schema/verify", "", true)
	data, _ := body["data"].(map[string]any)
	if rec.Code != http.StatusOK || data["ok"] != true {
		t.Fatalf("expected a clean schema report, got %d: %v", rec.Code, body)
	}
	if data["migrations"] != float64(12) {
		t.Fatalf("expected 12 migrations, got %v", data["migrations"])
	}
}

func TestRouter_FinalizeValidation(t *testing.T) {
	f := newRouterFixture(t)

	rec, _ := f.do(t, http.MethodPost, "/v1/internal/contests/0192b6c4-5000-7000-8000-000000000009/finalize", `{"homeScore":-1,"awayScore":3}`, true)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a negative score, got %d", rec.Code)
	}
	rec, _ = f.do(t, http.MethodPost, "/v1/internal/contests/0192b6c4-5000-7000-8000-000000000009/finalize", `{"homeScore":21,"awayScore":3}`, true)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for an unknown contest, got %d", rec.Code)
	}
}
