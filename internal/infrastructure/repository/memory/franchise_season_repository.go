package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/riskibarqy/sportsdata-producer/internal/domain/externalid"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/franchise"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/franchiseseason"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/messaging"
)

type FranchiseSeasonRepository struct {
	mu     sync.RWMutex
	items  map[string]franchiseseason.FranchiseSeason
	events *messaging.Recorder
}

func NewFranchiseSeasonRepository(events *messaging.Recorder, seed ...franchiseseason.FranchiseSeason) *FranchiseSeasonRepository {
	items := make(map[string]franchiseseason.FranchiseSeason, len(seed))
	for _, fs := range seed {
		items[fs.ID] = cloneFranchiseSeason(fs)
	}
	return &FranchiseSeasonRepository{items: items, events: recorder(events)}
}

func (r *FranchiseSeasonRepository) GetByID(_ context.Context, franchiseSeasonID string) (franchiseseason.FranchiseSeason, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fs, ok := r.items[franchiseSeasonID]
	return cloneFranchiseSeason(fs), ok, nil
}

func (r *FranchiseSeasonRepository) GetBySourceURLHash(_ context.Context, provider externalid.Provider, hash string) (franchiseseason.FranchiseSeason, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, fs := range r.items {
		if externalid.ContainsHash(fs.ExternalIDs, provider, hash) {
			return cloneFranchiseSeason(fs), true, nil
		}
	}
	return franchiseseason.FranchiseSeason{}, false, nil
}

func (r *FranchiseSeasonRepository) GetByFranchiseAndYear(_ context.Context, franchiseID string, seasonYear int) (franchiseseason.FranchiseSeason, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, fs := range r.items {
		if fs.FranchiseID == franchiseID && fs.SeasonYear == seasonYear {
			return cloneFranchiseSeason(fs), true, nil
		}
	}
	return franchiseseason.FranchiseSeason{}, false, nil
}

func (r *FranchiseSeasonRepository) ListByFranchise(_ context.Context, franchiseID string) ([]franchiseseason.FranchiseSeason, error) {
	return r.list(func(fs franchiseseason.FranchiseSeason) bool { return fs.FranchiseID == franchiseID }), nil
}

func (r *FranchiseSeasonRepository) ListBySeasonYear(_ context.Context, seasonYear int) ([]franchiseseason.FranchiseSeason, error) {
	return r.list(func(fs franchiseseason.FranchiseSeason) bool { return fs.SeasonYear == seasonYear }), nil
}

func (r *FranchiseSeasonRepository) list(match func(franchiseseason.FranchiseSeason) bool) []franchiseseason.FranchiseSeason {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]franchiseseason.FranchiseSeason, 0)
	for _, fs := range r.items {
		if match(fs) {
			out = append(out, cloneFranchiseSeason(fs))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SeasonYear != out[j].SeasonYear {
			return out[i].SeasonYear < out[j].SeasonYear
		}
		return out[i].Slug < out[j].Slug
	})
	return out
}

// Save keeps the stored results, matching the postgres upsert.
func (r *FranchiseSeasonRepository) Save(_ context.Context, fs franchiseseason.FranchiseSeason, events []messaging.Event) error {
	if err := fs.Validate(); err != nil {
		return err
	}
	if err := validateEvents(events); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.items[fs.ID]; ok {
		copyResults(&fs, prev)
		fs.Records = prev.Records
	}
	r.items[fs.ID] = cloneFranchiseSeason(fs)
	r.events.Record(events...)
	return nil
}

func (r *FranchiseSeasonRepository) SaveEnrichment(_ context.Context, fs franchiseseason.FranchiseSeason, events []messaging.Event) error {
	if err := validateEvents(events); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.items[fs.ID]
	if !ok {
		return fmt.Errorf("save franchise season enrichment: %s not found", fs.ID)
	}
	copyResults(&stored, fs)
	stored.Audit = fs.Audit
	r.items[fs.ID] = stored
	r.events.Record(events...)
	return nil
}

func copyResults(dst *franchiseseason.FranchiseSeason, src franchiseseason.FranchiseSeason) {
	dst.Wins, dst.Losses, dst.Ties = src.Wins, src.Losses, src.Ties
	dst.ConferenceWins, dst.ConferenceLosses, dst.ConferenceTies = src.ConferenceWins, src.ConferenceLosses, src.ConferenceTies
	dst.Scoring = src.Scoring
}

func cloneFranchiseSeason(fs franchiseseason.FranchiseSeason) franchiseseason.FranchiseSeason {
	fs.ExternalIDs = append([]externalid.ExternalID(nil), fs.ExternalIDs...)
	fs.Logos = append([]franchise.Logo(nil), fs.Logos...)
	fs.Records = append([]franchiseseason.Record(nil), fs.Records...)
	return fs
}

type MetricRepository struct {
	mu    sync.RWMutex
	items map[string]franchiseseason.Metric
}

func NewMetricRepository() *MetricRepository {
	return &MetricRepository{items: make(map[string]franchiseseason.Metric)}
}

func (r *MetricRepository) GetByFranchiseSeason(_ context.Context, franchiseSeasonID string) (franchiseseason.Metric, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.items[franchiseSeasonID]
	return m, ok, nil
}

func (r *MetricRepository) ListBySeason(_ context.Context, seasonYear int) ([]franchiseseason.Metric, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]franchiseseason.Metric, 0)
	for _, m := range r.items {
		if m.Season == seasonYear {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FranchiseSeasonID < out[j].FranchiseSeasonID })
	return out, nil
}

// Upsert keys rows by franchise season; the first id and creation stamp win.
func (r *MetricRepository) Upsert(_ context.Context, m franchiseseason.Metric) (franchiseseason.Metric, error) {
	if err := m.Validate(); err != nil {
		return franchiseseason.Metric{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.items[m.FranchiseSeasonID]; ok {
		m.ID = prev.ID
		m.CreatedUTC = prev.CreatedUTC
		m.CreatedBy = prev.CreatedBy
	}
	r.items[m.FranchiseSeasonID] = m
	return m, nil
}
