package memory

import (
	"context"
	"fmt"

	"github.com/riskibarqy/sportsdata-producer/internal/domain/externalid"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/messaging"
)

// EventSink records standalone events the way the outbox would store them.
type EventSink struct {
	events *messaging.Recorder
}

func NewEventSink(events *messaging.Recorder) *EventSink {
	return &EventSink{events: recorder(events)}
}

func (s *EventSink) Emit(_ context.Context, events []messaging.Event) error {
	if err := validateEvents(events); err != nil {
		return err
	}
	s.events.Record(events...)
	return nil
}

func validateEvents(events []messaging.Event) error {
	for _, e := range events {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("outbox event: %w", err)
		}
	}
	return nil
}

func hasValue(ids []externalid.ExternalID, provider externalid.Provider, value string) bool {
	for _, e := range ids {
		if e.Provider == provider && e.Value == value {
			return true
		}
	}
	return false
}

func recorder(events *messaging.Recorder) *messaging.Recorder {
	if events == nil {
		return &messaging.Recorder{}
	}
	return events
}
