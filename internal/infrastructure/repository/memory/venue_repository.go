package memory

import (
	"context"
	"sync"

	"github.com/riskibarqy/sportsdata-producer/internal/domain/externalid"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/messaging"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/venue"
)

type VenueRepository struct {
	mu     sync.RWMutex
	items  map[string]venue.Venue
	events *messaging.Recorder
}

func NewVenueRepository(events *messaging.Recorder) *VenueRepository {
	return &VenueRepository{
		items:  make(map[string]venue.Venue),
		events: recorder(events),
	}
}

func (r *VenueRepository) GetByID(_ context.Context, venueID string) (venue.Venue, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.items[venueID]
	return cloneVenue(v), ok, nil
}

func (r *VenueRepository) GetBySourceURLHash(_ context.Context, provider externalid.Provider, hash string) (venue.Venue, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, v := range r.items {
		if externalid.ContainsHash(v.ExternalIDs, provider, hash) {
			return cloneVenue(v), true, nil
		}
	}
	return venue.Venue{}, false, nil
}

func (r *VenueRepository) GetByExternalValue(_ context.Context, provider externalid.Provider, value string) (venue.Venue, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, v := range r.items {
		if hasValue(v.ExternalIDs, provider, value) {
			return cloneVenue(v), true, nil
		}
	}
	return venue.Venue{}, false, nil
}

func (r *VenueRepository) Save(_ context.Context, v venue.Venue, events []messaging.Event) error {
	if err := v.Validate(); err != nil {
		return err
	}
	if err := validateEvents(events); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[v.ID] = cloneVenue(v)
	r.events.Record(events...)
	return nil
}

func cloneVenue(v venue.Venue) venue.Venue {
	v.ExternalIDs = append([]externalid.ExternalID(nil), v.ExternalIDs...)
	v.Images = append([]venue.Image(nil), v.Images...)
	return v
}
