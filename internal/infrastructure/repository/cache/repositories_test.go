package cache

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/sportsdata-producer/internal/domain/franchise"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/franchiseseason"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/sport"
	"github.com/riskibarqy/sportsdata-producer/internal/infrastructure/repository/memory"
	basecache "github.com/riskibarqy/sportsdata-producer/internal/platform/cache"
)

const (
	testFranchiseID       = "0192b6c4-7000-7000-8000-000000000001"
	testFranchiseSeasonID = "0192b6c4-7000-7000-8000-000000000002"
)

type countingFranchises struct {
	franchise.Repository
	gets  atomic.Int32
	lists atomic.Int32
}

func (c *countingFranchises) GetByID(ctx context.Context, franchiseID string) (franchise.Franchise, bool, error) {
	c.gets.Add(1)
	return c.Repository.GetByID(ctx, franchiseID)
}

func (c *countingFranchises) List(ctx context.Context, filter franchise.ListFilter) ([]franchise.Franchise, error) {
	c.lists.Add(1)
	return c.Repository.List(ctx, filter)
}

type countingFranchiseSeasons struct {
	franchiseseason.Repository
	lists atomic.Int32
}

func (c *countingFranchiseSeasons) ListByFranchise(ctx context.Context, franchiseID string) ([]franchiseseason.FranchiseSeason, error) {
	c.lists.Add(1)
	return c.Repository.ListByFranchise(ctx, franchiseID)
}

func packers() franchise.Franchise {
	return franchise.Franchise{
		ID:           testFranchiseID,
		Sport:        sport.FootballNFL,
		Name:         "Packers",
		Slug:         "green-bay-packers",
		ColorCodeHex: "203731",
	}
}

func TestFranchiseRepository_CachesReadsAndInvalidatesOnSave(t *testing.T) {
	ctx := context.Background()
	next := &countingFranchises{Repository: memory.NewFranchiseRepository(nil, packers())}
	repo := NewFranchiseRepository(next, basecache.NewStore(time.Minute))

	for range 3 {
		item, ok, err := repo.GetByID(ctx, testFranchiseID)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "Packers", item.Name)
	}
	assert.EqualValues(t, 1, next.gets.Load())

	filter := franchise.ListFilter{Sport: sport.FootballNFL, Limit: 10}
	_, err := repo.List(ctx, filter)
	require.NoError(t, err)
	_, err = repo.List(ctx, filter)
	require.NoError(t, err)
	assert.EqualValues(t, 1, next.lists.Load())

	renamed := packers()
	renamed.Name = "Green Bay Packers"
	require.NoError(t, repo.Save(ctx, renamed, nil))

	item, _, err := repo.GetByID(ctx, testFranchiseID)
	require.NoError(t, err)
	assert.Equal(t, "Green Bay Packers", item.Name)
	assert.EqualValues(t, 2, next.gets.Load())

	items, err := repo.List(ctx, filter)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.EqualValues(t, 2, next.lists.Load())
}

func TestFranchiseRepository_CachesMisses(t *testing.T) {
	ctx := context.Background()
	next := &countingFranchises{Repository: memory.NewFranchiseRepository(nil)}
	repo := NewFranchiseRepository(next, basecache.NewStore(time.Minute))

	for range 2 {
		_, ok, err := repo.GetByID(ctx, testFranchiseID)
		require.NoError(t, err)
		assert.False(t, ok)
	}
	assert.EqualValues(t, 1, next.gets.Load())

	require.NoError(t, repo.Save(ctx, packers(), nil))
	_, ok, err := repo.GetByID(ctx, testFranchiseID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFranchiseSeasonRepository_EnrichmentInvalidatesList(t *testing.T) {
	ctx := context.Background()
	seed := franchiseseason.FranchiseSeason{
		ID:           testFranchiseSeasonID,
		FranchiseID:  testFranchiseID,
		SeasonYear:   2024,
		Slug:         "green-bay-packers",
		Location:     "Green Bay",
		Name:         "Packers",
		DisplayName:  "Green Bay Packers",
		ColorCodeHex: "203731",
	}
	next := &countingFranchiseSeasons{Repository: memory.NewFranchiseSeasonRepository(nil, seed)}
	repo := NewFranchiseSeasonRepository(next, basecache.NewStore(time.Minute))

	items, err := repo.ListByFranchise(ctx, testFranchiseID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	_, err = repo.ListByFranchise(ctx, testFranchiseID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, next.lists.Load())

	enriched := items[0]
	enriched.Wins = 9
	require.NoError(t, repo.SaveEnrichment(ctx, enriched, nil))

	items, err = repo.ListByFranchise(ctx, testFranchiseID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, next.lists.Load())
	assert.Equal(t, 9, items[0].Wins)
}
