package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/riskibarqy/sportsdata-producer/internal/domain/contest"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/franchiseseason"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/messaging"
	"github.com/riskibarqy/sportsdata-producer/internal/platform/id"
	"github.com/riskibarqy/sportsdata-producer/internal/platform/logging"
)

const defaultEnrichmentWorkers = 4

type EnrichFailure struct {
	FranchiseSeasonID string `json:"franchiseSeasonId"`
	Error             string `json:"error"`
}

type EnrichSeasonResult struct {
	SeasonYear int             `json:"seasonYear"`
	Total      int             `json:"total"`
	Enriched   int             `json:"enriched"`
	Failures   []EnrichFailure `json:"failures,omitempty"`
}

// EnrichmentService derives records and scoring aggregates of a franchise
// season from its finalized contests.
type EnrichmentService struct {
	franchiseSeasons franchiseseason.Repository
	contests         contest.Repository
	ids              id.Generator
	logger           *logging.Logger
	workers          int
	now              func() time.Time
}

func NewEnrichmentService(
	franchiseSeasons franchiseseason.Repository,
	contests contest.Repository,
	ids id.Generator,
	workers int,
	logger *logging.Logger,
) *EnrichmentService {
	if logger == nil {
		logger = logging.Default()
	}
	if ids == nil {
		ids = id.NewUUIDGenerator()
	}
	if workers <= 0 {
		workers = defaultEnrichmentWorkers
	}
	return &EnrichmentService{
		franchiseSeasons: franchiseSeasons,
		contests:         contests,
		ids:              ids,
		logger:           logger,
		workers:          workers,
		now:              time.Now,
	}
}

func (s *EnrichmentService) Enrich(ctx context.Context, franchiseSeasonID, correlationID string) (franchiseseason.FranchiseSeason, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.EnrichmentService.Enrich")
	defer span.End()

	franchiseSeasonID = strings.TrimSpace(franchiseSeasonID)
	if !id.Valid(franchiseSeasonID) {
		return franchiseseason.FranchiseSeason{}, fmt.Errorf("%w: franchise season id must be a uuid", ErrInvalidInput)
	}
	correlationID = strings.TrimSpace(correlationID)
	if !id.Valid(correlationID) {
		generated, err := s.ids.NewID()
		if err != nil {
			return franchiseseason.FranchiseSeason{}, err
		}
		correlationID = generated
	}

	fs, ok, err := s.franchiseSeasons.GetByID(ctx, franchiseSeasonID)
	if err != nil {
		return franchiseseason.FranchiseSeason{}, fmt.Errorf("get franchise season: %w", err)
	}
	if !ok {
		return franchiseseason.FranchiseSeason{}, fmt.Errorf("%w: franchise season %s", ErrNotFound, franchiseSeasonID)
	}

	contests, err := s.contests.ListFinalizedByFranchiseSeason(ctx, franchiseSeasonID)
	if err != nil {
		return franchiseseason.FranchiseSeason{}, fmt.Errorf("list finalized contests: %w", err)
	}
	opponents, err := s.opponentGroups(ctx, fs, contests)
	if err != nil {
		return franchiseseason.FranchiseSeason{}, err
	}

	applyResults(&fs, contests, opponents)
	now := s.now()
	fs.Touch(correlationID, now)

	eventID, err := s.ids.NewID()
	if err != nil {
		return franchiseseason.FranchiseSeason{}, err
	}
	completed := messaging.Event{
		ID:   eventID,
		Type: messaging.TypeFranchiseSeasonEnrichmentCompleted,
		Payload: messaging.FranchiseSeasonEnrichmentCompleted{
			FranchiseSeasonID: fs.ID,
			SeasonYear:        fs.SeasonYear,
			Wins:              fs.Wins,
			Losses:            fs.Losses,
			Ties:              fs.Ties,
		},
		CorrelationID: correlationID,
		CausationID:   fs.ID,
		OccurredAt:    now.UTC(),
	}
	if err := s.franchiseSeasons.SaveEnrichment(ctx, fs, []messaging.Event{completed}); err != nil {
		return franchiseseason.FranchiseSeason{}, fmt.Errorf("save franchise season enrichment: %w", err)
	}

	s.logger.InfoContext(ctx, "franchise season enriched",
		"franchise_season_id", fs.ID,
		"contests", len(contests),
		"wins", fs.Wins,
		"losses", fs.Losses,
		"ties", fs.Ties,
	)
	return fs, nil
}

// EnrichSeason enriches every franchise season of a year. One failing
// season does not stop the others.
func (s *EnrichmentService) EnrichSeason(ctx context.Context, seasonYear int, correlationID string) (EnrichSeasonResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.EnrichmentService.EnrichSeason")
	defer span.End()

	if err := validateSeasonYear(seasonYear); err != nil {
		return EnrichSeasonResult{}, err
	}
	seasons, err := s.franchiseSeasons.ListBySeasonYear(ctx, seasonYear)
	if err != nil {
		return EnrichSeasonResult{}, fmt.Errorf("list franchise seasons: %w", err)
	}

	result := EnrichSeasonResult{SeasonYear: seasonYear, Total: len(seasons)}
	var mu sync.Mutex
	workers := pool.New().WithMaxGoroutines(s.workers)
	for _, fs := range seasons {
		workers.Go(func() {
			_, err := s.Enrich(ctx, fs.ID, correlationID)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.logger.WarnContext(ctx, "franchise season enrichment failed", "franchise_season_id", fs.ID, "error", err)
				result.Failures = append(result.Failures, EnrichFailure{FranchiseSeasonID: fs.ID, Error: err.Error()})
				return
			}
			result.Enriched++
		})
	}
	workers.Wait()

	sort.Slice(result.Failures, func(i, j int) bool {
		return result.Failures[i].FranchiseSeasonID < result.Failures[j].FranchiseSeasonID
	})
	return result, nil
}

// opponentGroups maps opponent franchise season ids to their group season.
func (s *EnrichmentService) opponentGroups(ctx context.Context, fs franchiseseason.FranchiseSeason, contests []contest.Contest) (map[string]*string, error) {
	out := make(map[string]*string, len(contests))
	if fs.GroupSeasonID == nil {
		return out, nil
	}
	for _, c := range contests {
		opponentID := c.HomeFranchiseSeasonID
		if opponentID == fs.ID {
			opponentID = c.AwayFranchiseSeasonID
		}
		if _, seen := out[opponentID]; seen {
			continue
		}
		opponent, ok, err := s.franchiseSeasons.GetByID(ctx, opponentID)
		if err != nil {
			return nil, fmt.Errorf("get opponent franchise season: %w", err)
		}
		if !ok {
			out[opponentID] = nil
			continue
		}
		out[opponentID] = opponent.GroupSeasonID
	}
	return out, nil
}

func applyResults(fs *franchiseseason.FranchiseSeason, contests []contest.Contest, opponentGroups map[string]*string) {
	fs.Wins, fs.Losses, fs.Ties = 0, 0, 0
	fs.ConferenceWins, fs.ConferenceLosses, fs.ConferenceTies = 0, 0, 0

	var scored, allowed, winMargins, lossMargins []int
	for _, c := range contests {
		if !c.IsFinalized() {
			continue
		}
		own, opp := *c.HomeScore, *c.AwayScore
		opponentID := c.AwayFranchiseSeasonID
		if c.AwayFranchiseSeasonID == fs.ID {
			own, opp = opp, own
			opponentID = c.HomeFranchiseSeasonID
		}
		conference := fs.GroupSeasonID != nil && equalStringPtr(fs.GroupSeasonID, opponentGroups[opponentID])

		scored = append(scored, own)
		allowed = append(allowed, opp)
		switch {
		case own > opp:
			fs.Wins++
			winMargins = append(winMargins, own-opp)
			if conference {
				fs.ConferenceWins++
			}
		case own < opp:
			fs.Losses++
			lossMargins = append(lossMargins, opp-own)
			if conference {
				fs.ConferenceLosses++
			}
		default:
			fs.Ties++
			if conference {
				fs.ConferenceTies++
			}
		}
	}

	fs.Scoring = franchiseseason.Scoring{
		PtsScored:  summarize(scored),
		PtsAllowed: summarize(allowed),
		MarginWin:  summarize(winMargins),
		MarginLoss: summarize(lossMargins),
	}
}

func summarize(values []int) franchiseseason.Stat {
	if len(values) == 0 {
		return franchiseseason.Stat{}
	}
	lo, hi, sum := values[0], values[0], 0
	for _, v := range values {
		lo = min(lo, v)
		hi = max(hi, v)
		sum += v
	}
	avg := math.Round(float64(sum)/float64(len(values))*100) / 100
	return franchiseseason.Stat{Min: &lo, Max: &hi, Avg: &avg}
}
