package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/riskibarqy/sportsdata-producer/internal/domain/contest"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/franchiseseason"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/messaging"
	"github.com/riskibarqy/sportsdata-producer/internal/platform/id"
	"github.com/riskibarqy/sportsdata-producer/internal/platform/logging"
)

type FinalizeContestInput struct {
	ContestID     string `json:"-" validate:"required,uuid"`
	HomeScore     int    `json:"homeScore" validate:"gte=0"`
	AwayScore     int    `json:"awayScore" validate:"gte=0"`
	CorrelationID string `json:"correlationId,omitempty" validate:"omitempty,uuid"`
}

type ContestService struct {
	contests         contest.Repository
	franchiseSeasons franchiseseason.Repository
	ids              id.Generator
	logger           *logging.Logger
	validate         *validator.Validate
	now              func() time.Time
}

func NewContestService(
	contests contest.Repository,
	franchiseSeasons franchiseseason.Repository,
	ids id.Generator,
	logger *logging.Logger,
) *ContestService {
	if logger == nil {
		logger = logging.Default()
	}
	if ids == nil {
		ids = id.NewUUIDGenerator()
	}
	return &ContestService{
		contests:         contests,
		franchiseSeasons: franchiseSeasons,
		ids:              ids,
		logger:           logger,
		validate:         validator.New(validator.WithRequiredStructEnabled()),
		now:              time.Now,
	}
}

func (s *ContestService) GetByID(ctx context.Context, contestID string) (contest.Contest, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ContestService.GetByID")
	defer span.End()

	contestID = strings.TrimSpace(contestID)
	if !id.Valid(contestID) {
		return contest.Contest{}, fmt.Errorf("%w: contest id must be a uuid", ErrInvalidInput)
	}
	c, ok, err := s.contests.GetByID(ctx, contestID)
	if err != nil {
		return contest.Contest{}, fmt.Errorf("get contest: %w", err)
	}
	if !ok {
		return contest.Contest{}, fmt.Errorf("%w: contest %s", ErrNotFound, contestID)
	}
	return c, nil
}

// Finalize records the final score and settles the contest against the
// consensus line. Finalizing again with the same score is a no-op.
func (s *ContestService) Finalize(ctx context.Context, input FinalizeContestInput) (contest.Contest, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ContestService.Finalize")
	defer span.End()

	input.ContestID = strings.TrimSpace(input.ContestID)
	input.CorrelationID = strings.TrimSpace(input.CorrelationID)
	if err := s.validate.Struct(input); err != nil {
		return contest.Contest{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	c, ok, err := s.contests.GetByID(ctx, input.ContestID)
	if err != nil {
		return contest.Contest{}, fmt.Errorf("get contest: %w", err)
	}
	if !ok {
		return contest.Contest{}, fmt.Errorf("%w: contest %s", ErrNotFound, input.ContestID)
	}
	if c.IsFinalized() && *c.HomeScore == input.HomeScore && *c.AwayScore == input.AwayScore {
		return c, nil
	}

	home, err := s.franchiseOf(ctx, c.HomeFranchiseSeasonID)
	if err != nil {
		return contest.Contest{}, err
	}
	away, err := s.franchiseOf(ctx, c.AwayFranchiseSeasonID)
	if err != nil {
		return contest.Contest{}, err
	}

	homeScore, awayScore := input.HomeScore, input.AwayScore
	c.HomeScore = &homeScore
	c.AwayScore = &awayScore
	c.WinnerFranchiseID = nil
	switch {
	case homeScore > awayScore:
		c.WinnerFranchiseID = &home
	case awayScore > homeScore:
		c.WinnerFranchiseID = &away
	}

	c.OverUnder = contest.OverUnderNone
	c.SpreadWinnerFranchiseID = nil
	if line, ok := contest.Consensus(allOdds(c)); ok {
		if line.OverUnder != nil {
			c.OverUnder = contest.SettleTotal(homeScore, awayScore, *line.OverUnder)
		}
		if line.Spread != nil {
			switch contest.SettleSpread(homeScore, awayScore, *line.Spread) {
			case contest.HomeAwayHome:
				c.SpreadWinnerFranchiseID = &home
			case contest.HomeAwayAway:
				c.SpreadWinnerFranchiseID = &away
			}
		}
	}

	correlationID, err := s.correlation(input.CorrelationID)
	if err != nil {
		return contest.Contest{}, err
	}
	now := s.now().UTC()
	c.FinalizedUTC = &now
	c.Touch(correlationID, now)

	eventID, err := s.ids.NewID()
	if err != nil {
		return contest.Contest{}, err
	}
	finalized := messaging.Event{
		ID:   eventID,
		Type: messaging.TypeContestFinalized,
		Payload: messaging.ContestFinalized{
			ContestID:               c.ID,
			Sport:                   c.Sport,
			SeasonYear:              c.SeasonYear,
			HomeScore:               homeScore,
			AwayScore:               awayScore,
			WinnerFranchiseID:       c.WinnerFranchiseID,
			SpreadWinnerFranchiseID: c.SpreadWinnerFranchiseID,
			OverUnder:               c.OverUnder.String(),
		},
		CorrelationID: correlationID,
		CausationID:   c.ID,
		OccurredAt:    now,
	}
	if err := s.contests.SaveOutcome(ctx, c, []messaging.Event{finalized}); err != nil {
		return contest.Contest{}, fmt.Errorf("save contest outcome: %w", err)
	}

	s.logger.InfoContext(ctx, "contest finalized",
		"contest_id", c.ID,
		"home_score", homeScore,
		"away_score", awayScore,
		"over_under", c.OverUnder.String(),
	)
	return c, nil
}

func (s *ContestService) franchiseOf(ctx context.Context, franchiseSeasonID string) (string, error) {
	fs, ok, err := s.franchiseSeasons.GetByID(ctx, franchiseSeasonID)
	if err != nil {
		return "", fmt.Errorf("get franchise season: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("%w: franchise season %s", ErrDependencyNotReady, franchiseSeasonID)
	}
	return fs.FranchiseID, nil
}

func (s *ContestService) correlation(raw string) (string, error) {
	if raw != "" {
		return raw, nil
	}
	return s.ids.NewID()
}

func allOdds(c contest.Contest) []contest.Odds {
	var out []contest.Odds
	for _, comp := range c.Competitions {
		out = append(out, comp.Odds...)
	}
	return out
}

