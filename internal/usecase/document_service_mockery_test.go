package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/riskibarqy/sportsdata-producer/internal/domain/documenttype"
	usecasemock "github.com/riskibarqy/sportsdata-producer/internal/mocks/usecase"
)

func TestDocumentService_FetchOnlyWithoutInlinePayloadUsingMockery(t *testing.T) {
	t.Parallel()

	fetcher := usecasemock.NewDocumentFetcher(t)
	h := newDocumentHarness(t, fetcher)

	fetcher.
		On("Fetch", mock.Anything, venueURL).
		Return([]byte(venuePayload), nil).
		Once()

	fetched := h.mustProcess(t, documenttype.Venue, venueURL, "")
	if !fetched.Created {
		t.Fatalf("expected create from fetched payload, got %+v", fetched)
	}

	inline := h.mustProcess(t, documenttype.Venue, venueURL, venuePayload)
	if inline.Created || inline.Updated {
		t.Fatalf("expected inline payload to be a no-op, got %+v", inline)
	}
}

func TestDocumentService_FetchFailureUsingMockery(t *testing.T) {
	t.Parallel()

	fetcher := usecasemock.NewDocumentFetcher(t)
	h := newDocumentHarness(t, fetcher)

	fetcher.
		On("Fetch", mock.MatchedBy(func(ctx context.Context) bool { return ctx != nil }), franchiseURL).
		Return(nil, ErrDependencyUnavailable).
		Once()

	_, err := h.process(t, documenttype.Franchise, franchiseURL, "")
	if !errors.Is(err, ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable, got %v", err)
	}
	if n := len(h.events.Events()); n != 0 {
		t.Fatalf("failed fetch must not emit events, got %d", n)
	}
}
