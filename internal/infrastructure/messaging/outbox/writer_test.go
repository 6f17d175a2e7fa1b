package outbox

import (
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/sportsdata-producer/internal/domain/messaging"
)

func TestEncodeMessage(t *testing.T) {
	now := time.Date(2026, 9, 6, 18, 0, 0, 0, time.UTC)
	ev := messaging.Event{
		ID:            "0b0c9a44-6a57-4bb5-9d3b-3b1a7c1f6a10",
		Type:          messaging.TypeVenueCreated,
		Payload:       messaging.VenueChanged{VenueID: "v1", Name: "Kinnick Stadium", Slug: "kinnick-stadium"},
		CorrelationID: "5d7d3f0e-93c2-4a51-8b54-2c7f3c1c9b11",
		CausationID:   "document-service",
	}

	row, err := encodeMessage("outbox-1", ev, now)
	require.NoError(t, err)

	assert.Equal(t, "outbox-1", row.OutboxID)
	assert.Equal(t, ev.ID, row.MessageID)
	assert.Equal(t, messaging.ContentTypeJSON, row.ContentType)
	assert.Equal(t, messaging.TypeVenueCreated, row.MessageType)
	assert.JSONEq(t, `{"venueId":"v1","name":"Kinnick Stadium","slug":"kinnick-stadium"}`, row.Body)
	require.NotNil(t, row.CorrelationID)
	assert.Equal(t, ev.CorrelationID, *row.CorrelationID)
	assert.Equal(t, now, row.SentTime)

	require.NotNil(t, row.Headers)
	var headers map[string]string
	require.NoError(t, sonic.UnmarshalString(*row.Headers, &headers))
	assert.Equal(t, "document-service", headers[HeaderCausationID])
	assert.Equal(t, now.Format(time.RFC3339Nano), headers[HeaderOccurredAt])
}

func TestEncodeMessage_DropsNonUUIDCorrelation(t *testing.T) {
	row, err := encodeMessage("outbox-1", messaging.Event{
		ID:            "m1",
		Type:          messaging.TypeContestFinalized,
		Payload:       messaging.ContestFinalized{ContestID: "c1"},
		CorrelationID: "not-a-uuid",
	}, time.Now())
	require.NoError(t, err)
	assert.Nil(t, row.CorrelationID)
	assert.Nil(t, row.ConversationID)
}

func TestEncodeMessage_RejectsInvalidEvent(t *testing.T) {
	_, err := encodeMessage("outbox-1", messaging.Event{ID: "m1"}, time.Now())
	require.Error(t, err)
}

func TestRelay_Subject(t *testing.T) {
	r := NewRelay(nil, nil, RelayConfig{SubjectPrefix: " sportsdata.events. "}, nil)
	assert.Equal(t, "sportsdata.events.contest.finalized", r.Subject(messaging.TypeContestFinalized))

	bare := NewRelay(nil, nil, RelayConfig{}, nil)
	assert.Equal(t, "venue.created", bare.Subject(messaging.TypeVenueCreated))
	assert.Equal(t, defaultChunkSize, bare.cfg.ChunkSize)
}
