package memory

import (
	"context"
	"sync"

	"github.com/riskibarqy/sportsdata-producer/internal/domain/externalid"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/groupseason"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/messaging"
)

type GroupSeasonRepository struct {
	mu     sync.RWMutex
	items  map[string]groupseason.GroupSeason
	events *messaging.Recorder
}

func NewGroupSeasonRepository(events *messaging.Recorder) *GroupSeasonRepository {
	return &GroupSeasonRepository{
		items:  make(map[string]groupseason.GroupSeason),
		events: recorder(events),
	}
}

func (r *GroupSeasonRepository) GetByID(_ context.Context, groupSeasonID string) (groupseason.GroupSeason, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.items[groupSeasonID]
	return cloneGroupSeason(g), ok, nil
}

func (r *GroupSeasonRepository) GetBySourceURLHash(_ context.Context, provider externalid.Provider, hash string) (groupseason.GroupSeason, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, g := range r.items {
		if externalid.ContainsHash(g.ExternalIDs, provider, hash) {
			return cloneGroupSeason(g), true, nil
		}
	}
	return groupseason.GroupSeason{}, false, nil
}

func (r *GroupSeasonRepository) Save(_ context.Context, g groupseason.GroupSeason, events []messaging.Event) error {
	if err := g.Validate(); err != nil {
		return err
	}
	if err := validateEvents(events); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[g.ID] = cloneGroupSeason(g)
	r.events.Record(events...)
	return nil
}

func cloneGroupSeason(g groupseason.GroupSeason) groupseason.GroupSeason {
	g.ExternalIDs = append([]externalid.ExternalID(nil), g.ExternalIDs...)
	return g
}
