package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/sportsdata-producer/internal/domain/messaging"
	"github.com/riskibarqy/sportsdata-producer/internal/infrastructure/messaging/inbox"
	"github.com/riskibarqy/sportsdata-producer/internal/infrastructure/messaging/jetstream"
	"github.com/riskibarqy/sportsdata-producer/internal/infrastructure/messaging/outbox"
	"github.com/riskibarqy/sportsdata-producer/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/sportsdata-producer/internal/platform/id"
	"github.com/riskibarqy/sportsdata-producer/internal/platform/logging"
	"github.com/riskibarqy/sportsdata-producer/internal/usecase"
)

const (
	testVenueURL      = "http://sports.core.api.espn.com/v2/venues/3798?lang=en"
	testFranchiseURL  = "http://sports.core.api.espn.com/v2/sports/football/leagues/nfl/franchises/9?lang=en"
	testTeamSeasonURL = "http://sports.core.api.espn.com/v2/sports/football/leagues/nfl/seasons/2024/teams/9?lang=en"
	testCorrelation   = "0192b6c4-7a3e-7c1d-9f2a-3b4c5d6e7f80"
)

const venueMessage = `{
	"id": "0192b6c4-7a3e-7c1d-9f2a-000000000001",
	"documentType": "venue",
	"provider": "espn",
	"sport": "football_nfl",
	"sourceUrl": "` + testVenueURL + `",
	"payload": {"id": "3798", "fullName": "Lambeau Field", "capacity": 81441, "grass": true}
}`

const teamSeasonMessage = `{
	"id": "0192b6c4-7a3e-7c1d-9f2a-000000000002",
	"documentType": "team-season",
	"provider": "espn",
	"sport": "football_nfl",
	"seasonYear": 2024,
	"sourceUrl": "` + testTeamSeasonURL + `",
	"payload": {
		"id": "9",
		"location": "Green Bay",
		"name": "Packers",
		"displayName": "Green Bay Packers",
		"color": "204e32",
		"franchise": {"$ref": "` + testFranchiseURL + `"}
	}
}`

type stubProcessor struct {
	envs []usecase.DocumentEnvelope
	err  error
}

func (s *stubProcessor) Process(_ context.Context, env usecase.DocumentEnvelope) (usecase.DocumentResult, error) {
	s.envs = append(s.envs, env)
	return usecase.DocumentResult{DocumentType: env.DocumentType}, s.err
}

func newDocumentPipeline() (*inbox.Consumer, *memory.InboxRepository, *memory.VenueRepository, *messaging.Recorder) {
	events := &messaging.Recorder{}
	venues := memory.NewVenueRepository(events)
	odds := memory.NewOddsRepository(events)
	documents := usecase.NewDocumentService(usecase.DocumentServiceDeps{
		Venues:           venues,
		Franchises:       memory.NewFranchiseRepository(events),
		FranchiseSeasons: memory.NewFranchiseSeasonRepository(events),
		Seasons:          memory.NewSeasonRepository(events),
		GroupSeasons:     memory.NewGroupSeasonRepository(events),
		Contests:         memory.NewContestRepository(events, odds),
		Odds:             odds,
		Events:           memory.NewEventSink(events),
		IDs:              id.NewUUIDGenerator(),
		Logger:           logging.NewNop(),
	})
	repo := memory.NewInboxRepository()
	consumer := inbox.NewConsumer(repo, "document-processor", NewDocumentHandler(documents, logging.NewNop()), logging.NewNop())
	return consumer, repo, venues, events
}

func TestDocumentHandler_ProcessesOnceAcrossRedelivery(t *testing.T) {
	consumer, repo, _, events := newDocumentPipeline()
	msg := inbox.Message{ID: "SPORTSDATA_DOCUMENTS:1", Subject: "sportsdata.documents.venue", Data: []byte(venueMessage)}

	outcome, err := consumer.Handle(t.Context(), msg)
	require.NoError(t, err)
	assert.Equal(t, inbox.OutcomeProcessed, outcome)
	emitted := len(events.Events())
	require.NotZero(t, emitted)

	outcome, err = consumer.Handle(t.Context(), msg)
	require.NoError(t, err)
	assert.Equal(t, inbox.OutcomeDuplicate, outcome)
	assert.Len(t, events.Events(), emitted)

	row, ok := repo.Get(msg.ID, "document-processor")
	require.True(t, ok)
	assert.Equal(t, 2, row.ReceiveCount)
	assert.True(t, row.IsConsumed())
}

func TestDocumentHandler_MissingDependencyIsRetried(t *testing.T) {
	consumer, repo, _, _ := newDocumentPipeline()
	msg := inbox.Message{ID: "SPORTSDATA_DOCUMENTS:2", Data: []byte(teamSeasonMessage)}

	_, err := consumer.Handle(t.Context(), msg)
	require.ErrorIs(t, err, usecase.ErrDependencyNotReady)
	assert.False(t, errors.Is(err, jetstream.ErrTerminate))

	row, ok := repo.Get(msg.ID, "document-processor")
	require.True(t, ok)
	assert.False(t, row.IsConsumed())

	_, err = consumer.Handle(t.Context(), msg)
	require.ErrorIs(t, err, usecase.ErrDependencyNotReady)
	row, _ = repo.Get(msg.ID, "document-processor")
	assert.Equal(t, 2, row.ReceiveCount)
	assert.False(t, row.IsConsumed())
}

func TestDocumentHandler_Settlement(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		err       error
		terminate bool
		wantErr   bool
	}{
		{name: "undecodable", data: `{"id":`, terminate: true, wantErr: true},
		{name: "unknown document type", data: `{"id":"d","documentType":"podcast","provider":"espn","sport":"football_nfl"}`, terminate: true, wantErr: true},
		{name: "unsupported", data: venueMessage, err: usecase.ErrUnsupportedDocument},
		{name: "rejected by service", data: venueMessage, err: usecase.ErrInvalidInput, terminate: true, wantErr: true},
		{name: "unavailable provider", data: venueMessage, err: usecase.ErrDependencyUnavailable, wantErr: true},
		{name: "processed", data: venueMessage},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			handle := NewDocumentHandler(&stubProcessor{err: tc.err}, logging.NewNop())
			err := handle(t.Context(), inbox.Message{ID: "m", Data: []byte(tc.data)})
			if !tc.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tc.terminate, errors.Is(err, jetstream.ErrTerminate))
		})
	}
}

func TestDocumentHandler_CorrelationFromHeader(t *testing.T) {
	processor := &stubProcessor{}
	handle := NewDocumentHandler(processor, logging.NewNop())

	err := handle(t.Context(), inbox.Message{
		ID:      "m",
		Data:    []byte(venueMessage),
		Headers: map[string]string{outbox.HeaderCorrelationID: testCorrelation},
	})
	require.NoError(t, err)
	require.Len(t, processor.envs, 1)
	assert.Equal(t, testCorrelation, processor.envs[0].CorrelationID)
}
