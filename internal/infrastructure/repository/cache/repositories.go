// Package cache wraps read-heavy repositories behind the TTL store. Only the
// public query paths are cached; ingestion lookups by source hash or
// external value always reach the next repository.
package cache

import (
	"context"
	"strconv"

	"github.com/riskibarqy/sportsdata-producer/internal/domain/externalid"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/franchise"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/franchiseseason"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/messaging"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/venue"
	basecache "github.com/riskibarqy/sportsdata-producer/internal/platform/cache"
)

type cachedByID[T any] struct {
	value  T
	exists bool
}

func loadByID[T any](ctx context.Context, store *basecache.Store, key string, load func(context.Context) (T, bool, error)) (T, bool, error) {
	v, err := store.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		item, exists, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return cachedByID[T]{value: item, exists: exists}, nil
	})
	if err != nil {
		var zero T
		return zero, false, err
	}

	cached, _ := v.(cachedByID[T])
	return cached.value, cached.exists, nil
}

func loadList[T any](ctx context.Context, store *basecache.Store, key string, load func(context.Context) ([]T, error)) ([]T, error) {
	v, err := store.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		items, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return append([]T(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]T)
	return append([]T(nil), items...), nil
}

type FranchiseRepository struct {
	next  franchise.Repository
	cache *basecache.Store
}

func NewFranchiseRepository(next franchise.Repository, cache *basecache.Store) *FranchiseRepository {
	return &FranchiseRepository{next: next, cache: cache}
}

func (r *FranchiseRepository) List(ctx context.Context, filter franchise.ListFilter) ([]franchise.Franchise, error) {
	key := "franchise:list:" + strconv.Itoa(int(filter.Sport)) + ":" + strconv.Itoa(filter.Limit) + ":" + strconv.Itoa(filter.Offset)
	return loadList(ctx, r.cache, key, func(ctx context.Context) ([]franchise.Franchise, error) {
		return r.next.List(ctx, filter)
	})
}

func (r *FranchiseRepository) GetByID(ctx context.Context, franchiseID string) (franchise.Franchise, bool, error) {
	return loadByID(ctx, r.cache, "franchise:id:"+franchiseID, func(ctx context.Context) (franchise.Franchise, bool, error) {
		return r.next.GetByID(ctx, franchiseID)
	})
}

func (r *FranchiseRepository) GetBySourceURLHash(ctx context.Context, provider externalid.Provider, hash string) (franchise.Franchise, bool, error) {
	return r.next.GetBySourceURLHash(ctx, provider, hash)
}

func (r *FranchiseRepository) GetByExternalValue(ctx context.Context, provider externalid.Provider, value string) (franchise.Franchise, bool, error) {
	return r.next.GetByExternalValue(ctx, provider, value)
}

func (r *FranchiseRepository) Save(ctx context.Context, f franchise.Franchise, events []messaging.Event) error {
	if err := r.next.Save(ctx, f, events); err != nil {
		return err
	}
	r.cache.Delete(ctx, "franchise:id:"+f.ID)
	r.cache.DeletePrefix(ctx, "franchise:list:")
	return nil
}

type VenueRepository struct {
	next  venue.Repository
	cache *basecache.Store
}

func NewVenueRepository(next venue.Repository, cache *basecache.Store) *VenueRepository {
	return &VenueRepository{next: next, cache: cache}
}

func (r *VenueRepository) GetByID(ctx context.Context, venueID string) (venue.Venue, bool, error) {
	return loadByID(ctx, r.cache, "venue:id:"+venueID, func(ctx context.Context) (venue.Venue, bool, error) {
		return r.next.GetByID(ctx, venueID)
	})
}

func (r *VenueRepository) GetBySourceURLHash(ctx context.Context, provider externalid.Provider, hash string) (venue.Venue, bool, error) {
	return r.next.GetBySourceURLHash(ctx, provider, hash)
}

func (r *VenueRepository) GetByExternalValue(ctx context.Context, provider externalid.Provider, value string) (venue.Venue, bool, error) {
	return r.next.GetByExternalValue(ctx, provider, value)
}

func (r *VenueRepository) Save(ctx context.Context, v venue.Venue, events []messaging.Event) error {
	if err := r.next.Save(ctx, v, events); err != nil {
		return err
	}
	r.cache.Delete(ctx, "venue:id:"+v.ID)
	return nil
}

type FranchiseSeasonRepository struct {
	next  franchiseseason.Repository
	cache *basecache.Store
}

func NewFranchiseSeasonRepository(next franchiseseason.Repository, cache *basecache.Store) *FranchiseSeasonRepository {
	return &FranchiseSeasonRepository{next: next, cache: cache}
}

func (r *FranchiseSeasonRepository) GetByID(ctx context.Context, franchiseSeasonID string) (franchiseseason.FranchiseSeason, bool, error) {
	return loadByID(ctx, r.cache, "franchise_season:id:"+franchiseSeasonID, func(ctx context.Context) (franchiseseason.FranchiseSeason, bool, error) {
		return r.next.GetByID(ctx, franchiseSeasonID)
	})
}

func (r *FranchiseSeasonRepository) GetBySourceURLHash(ctx context.Context, provider externalid.Provider, hash string) (franchiseseason.FranchiseSeason, bool, error) {
	return r.next.GetBySourceURLHash(ctx, provider, hash)
}

func (r *FranchiseSeasonRepository) GetByFranchiseAndYear(ctx context.Context, franchiseID string, seasonYear int) (franchiseseason.FranchiseSeason, bool, error) {
	return r.next.GetByFranchiseAndYear(ctx, franchiseID, seasonYear)
}

func (r *FranchiseSeasonRepository) ListByFranchise(ctx context.Context, franchiseID string) ([]franchiseseason.FranchiseSeason, error) {
	return loadList(ctx, r.cache, "franchise_season:list:franchise:"+franchiseID, func(ctx context.Context) ([]franchiseseason.FranchiseSeason, error) {
		return r.next.ListByFranchise(ctx, franchiseID)
	})
}

// ListBySeasonYear feeds season-wide enrichment and is never cached.
func (r *FranchiseSeasonRepository) ListBySeasonYear(ctx context.Context, seasonYear int) ([]franchiseseason.FranchiseSeason, error) {
	return r.next.ListBySeasonYear(ctx, seasonYear)
}

func (r *FranchiseSeasonRepository) Save(ctx context.Context, fs franchiseseason.FranchiseSeason, events []messaging.Event) error {
	if err := r.next.Save(ctx, fs, events); err != nil {
		return err
	}
	r.invalidate(ctx, fs)
	return nil
}

func (r *FranchiseSeasonRepository) SaveEnrichment(ctx context.Context, fs franchiseseason.FranchiseSeason, events []messaging.Event) error {
	if err := r.next.SaveEnrichment(ctx, fs, events); err != nil {
		return err
	}
	r.invalidate(ctx, fs)
	return nil
}

func (r *FranchiseSeasonRepository) invalidate(ctx context.Context, fs franchiseseason.FranchiseSeason) {
	r.cache.Delete(ctx, "franchise_season:id:"+fs.ID)
	r.cache.Delete(ctx, "franchise_season:list:franchise:"+fs.FranchiseID)
}
