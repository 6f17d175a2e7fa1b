package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/riskibarqy/sportsdata-producer/internal/domain/externalid"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/franchise"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/messaging"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/sport"
)

const defaultFranchiseListLimit = 100

type FranchiseRepository struct {
	mu     sync.RWMutex
	items  map[string]franchise.Franchise
	events *messaging.Recorder
}

func NewFranchiseRepository(events *messaging.Recorder, seed ...franchise.Franchise) *FranchiseRepository {
	items := make(map[string]franchise.Franchise, len(seed))
	for _, f := range seed {
		items[f.ID] = cloneFranchise(f)
	}
	return &FranchiseRepository{items: items, events: recorder(events)}
}

func (r *FranchiseRepository) List(_ context.Context, filter franchise.ListFilter) ([]franchise.Franchise, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]franchise.Franchise, 0, len(r.items))
	for _, f := range r.items {
		if filter.Sport != sport.All && f.Sport != filter.Sport {
			continue
		}
		out = append(out, cloneFranchise(f))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Slug != out[j].Slug {
			return out[i].Slug < out[j].Slug
		}
		return out[i].ID < out[j].ID
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultFranchiseListLimit
	}
	if filter.Offset >= len(out) {
		return []franchise.Franchise{}, nil
	}
	out = out[max(filter.Offset, 0):]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *FranchiseRepository) GetByID(_ context.Context, franchiseID string) (franchise.Franchise, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.items[franchiseID]
	return cloneFranchise(f), ok, nil
}

func (r *FranchiseRepository) GetBySourceURLHash(_ context.Context, provider externalid.Provider, hash string) (franchise.Franchise, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, f := range r.items {
		if externalid.ContainsHash(f.ExternalIDs, provider, hash) {
			return cloneFranchise(f), true, nil
		}
	}
	return franchise.Franchise{}, false, nil
}

func (r *FranchiseRepository) GetByExternalValue(_ context.Context, provider externalid.Provider, value string) (franchise.Franchise, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, f := range r.items {
		if hasValue(f.ExternalIDs, provider, value) {
			return cloneFranchise(f), true, nil
		}
	}
	return franchise.Franchise{}, false, nil
}

func (r *FranchiseRepository) Save(_ context.Context, f franchise.Franchise, events []messaging.Event) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if err := validateEvents(events); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[f.ID] = cloneFranchise(f)
	r.events.Record(events...)
	return nil
}

func cloneFranchise(f franchise.Franchise) franchise.Franchise {
	f.ExternalIDs = append([]externalid.ExternalID(nil), f.ExternalIDs...)
	f.Logos = append([]franchise.Logo(nil), f.Logos...)
	return f
}
