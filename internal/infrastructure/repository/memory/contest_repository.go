package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/riskibarqy/sportsdata-producer/internal/domain/contest"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/externalid"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/messaging"
)

// ContestRepository stores contests with their competitions. Odds live in
// the paired OddsRepository and are joined on read.
type ContestRepository struct {
	mu     sync.RWMutex
	items  map[string]contest.Contest
	odds   *OddsRepository
	events *messaging.Recorder
}

func NewContestRepository(events *messaging.Recorder, odds *OddsRepository) *ContestRepository {
	if odds == nil {
		odds = NewOddsRepository(events)
	}
	return &ContestRepository{
		items:  make(map[string]contest.Contest),
		odds:   odds,
		events: recorder(events),
	}
}

func (r *ContestRepository) GetByID(_ context.Context, contestID string) (contest.Contest, bool, error) {
	r.mu.RLock()
	c, ok := r.items[contestID]
	r.mu.RUnlock()
	if !ok {
		return contest.Contest{}, false, nil
	}

	c = cloneContest(c)
	for i := range c.Competitions {
		c.Competitions[i].Odds = r.odds.list(c.Competitions[i].ID)
	}
	return c, true, nil
}

func (r *ContestRepository) GetBySourceURLHash(_ context.Context, provider externalid.Provider, hash string) (contest.Contest, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.items {
		if externalid.ContainsHash(c.ExternalIDs, provider, hash) {
			return cloneContest(c), true, nil
		}
	}
	return contest.Contest{}, false, nil
}

func (r *ContestRepository) GetCompetition(_ context.Context, competitionID string) (contest.Competition, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.items {
		for _, comp := range c.Competitions {
			if comp.ID == competitionID {
				return cloneContest(contest.Contest{Competitions: []contest.Competition{comp}}).Competitions[0], true, nil
			}
		}
	}
	return contest.Competition{}, false, nil
}

func (r *ContestRepository) ListFinalizedByFranchiseSeason(_ context.Context, franchiseSeasonID string) ([]contest.Contest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]contest.Contest, 0)
	for _, c := range r.items {
		if c.FinalizedUTC == nil {
			continue
		}
		if c.HomeFranchiseSeasonID == franchiseSeasonID || c.AwayFranchiseSeasonID == franchiseSeasonID {
			out = append(out, cloneContest(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDateUTC.Equal(out[j].StartDateUTC) {
			return out[i].StartDateUTC.Before(out[j].StartDateUTC)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Save keeps a stored outcome; only SaveOutcome writes results.
func (r *ContestRepository) Save(_ context.Context, c contest.Contest, events []messaging.Event) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := validateEvents(events); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.items[c.ID]; ok {
		copyOutcome(&c, prev)
	}
	for i := range c.Competitions {
		c.Competitions[i].ContestID = c.ID
		c.Competitions[i].Odds = nil
	}
	r.items[c.ID] = cloneContest(c)
	r.events.Record(events...)
	return nil
}

func (r *ContestRepository) SaveOutcome(_ context.Context, c contest.Contest, events []messaging.Event) error {
	if c.ID == "" {
		return fmt.Errorf("contest id is required")
	}
	if !c.IsFinalized() {
		return fmt.Errorf("contest %s outcome requires scores and a finalized time", c.ID)
	}
	if err := validateEvents(events); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.items[c.ID]
	if !ok {
		return fmt.Errorf("update contest outcome: contest %s not found", c.ID)
	}
	copyOutcome(&stored, c)
	stored.Audit = c.Audit

	homeWon := *c.HomeScore > *c.AwayScore
	awayWon := *c.AwayScore > *c.HomeScore
	for i := range stored.Competitions {
		for j := range stored.Competitions[i].Competitors {
			cc := &stored.Competitions[i].Competitors[j]
			cc.Winner = (cc.HomeAway == contest.HomeAwayHome && homeWon) || (cc.HomeAway == contest.HomeAwayAway && awayWon)
		}
	}
	r.items[c.ID] = stored
	r.events.Record(events...)
	return nil
}

func copyOutcome(dst *contest.Contest, src contest.Contest) {
	dst.HomeScore = src.HomeScore
	dst.AwayScore = src.AwayScore
	dst.WinnerFranchiseID = src.WinnerFranchiseID
	dst.SpreadWinnerFranchiseID = src.SpreadWinnerFranchiseID
	dst.OverUnder = src.OverUnder
	dst.FinalizedUTC = src.FinalizedUTC
}

func cloneContest(c contest.Contest) contest.Contest {
	c.ExternalIDs = append([]externalid.ExternalID(nil), c.ExternalIDs...)
	comps := make([]contest.Competition, len(c.Competitions))
	for i, comp := range c.Competitions {
		comp.ExternalIDs = append([]externalid.ExternalID(nil), comp.ExternalIDs...)
		comp.Competitors = append([]contest.Competitor(nil), comp.Competitors...)
		comp.Odds = append([]contest.Odds(nil), comp.Odds...)
		comps[i] = comp
	}
	c.Competitions = comps
	return c
}

type OddsRepository struct {
	mu     sync.RWMutex
	items  map[string]contest.Odds
	events *messaging.Recorder
}

func NewOddsRepository(events *messaging.Recorder) *OddsRepository {
	return &OddsRepository{items: make(map[string]contest.Odds), events: recorder(events)}
}

func (r *OddsRepository) GetByCompetitionAndProvider(_ context.Context, competitionID, providerID string) (contest.Odds, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.items[oddsKey(competitionID, providerID)]
	return o, ok, nil
}

func (r *OddsRepository) ListByCompetition(_ context.Context, competitionID string) ([]contest.Odds, error) {
	return r.list(competitionID), nil
}

// Upsert keeps one line per (competition, provider) and the first id.
func (r *OddsRepository) Upsert(_ context.Context, o contest.Odds, events []messaging.Event) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if err := validateEvents(events); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := oddsKey(o.CompetitionID, o.ProviderID)
	if prev, ok := r.items[key]; ok {
		o.ID = prev.ID
		o.CreatedUTC = prev.CreatedUTC
		o.CreatedBy = prev.CreatedBy
	}
	r.items[key] = o
	r.events.Record(events...)
	return nil
}

func (r *OddsRepository) list(competitionID string) []contest.Odds {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]contest.Odds, 0)
	for _, o := range r.items {
		if o.CompetitionID == competitionID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProviderPriority != out[j].ProviderPriority {
			return out[i].ProviderPriority > out[j].ProviderPriority
		}
		return out[i].ProviderID < out[j].ProviderID
	})
	return out
}

func oddsKey(competitionID, providerID string) string {
	return competitionID + "|" + providerID
}
