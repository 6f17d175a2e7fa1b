package memory

import (
	"context"
	"sync"

	"github.com/riskibarqy/sportsdata-producer/internal/domain/messaging"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/season"
)

type SeasonRepository struct {
	mu     sync.RWMutex
	items  map[int]season.Season
	events *messaging.Recorder
}

func NewSeasonRepository(events *messaging.Recorder, seed ...season.Season) *SeasonRepository {
	r := &SeasonRepository{
		items:  make(map[int]season.Season, len(seed)),
		events: recorder(events),
	}
	for _, s := range seed {
		r.items[s.Year] = cloneSeason(s)
	}
	return r
}

func (r *SeasonRepository) GetByYear(_ context.Context, year int) (season.Season, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.items[year]
	return cloneSeason(s), ok, nil
}

func (r *SeasonRepository) Save(_ context.Context, s season.Season, events []messaging.Event) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if err := validateEvents(events); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[s.Year] = cloneSeason(s)
	r.events.Record(events...)
	return nil
}

func cloneSeason(s season.Season) season.Season {
	s.Phases = append([]season.Phase(nil), s.Phases...)
	return s
}
