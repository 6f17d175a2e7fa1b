package contest

import (
	"context"

	"github.com/riskibarqy/sportsdata-producer/internal/domain/externalid"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/messaging"
)

// Repository describes contest persistence needs from use cases.
type Repository interface {
	// GetByID loads the contest with competitions, competitors and odds.
	GetByID(ctx context.Context, contestID string) (Contest, bool, error)
	GetBySourceURLHash(ctx context.Context, provider externalid.Provider, hash string) (Contest, bool, error)
	GetCompetition(ctx context.Context, competitionID string) (Competition, bool, error)
	ListFinalizedByFranchiseSeason(ctx context.Context, franchiseSeasonID string) ([]Contest, error)
	Save(ctx context.Context, c Contest, events []messaging.Event) error
	// SaveOutcome writes the score, winners, total result and finalized time.
	SaveOutcome(ctx context.Context, c Contest, events []messaging.Event) error
}

type OddsRepository interface {
	GetByCompetitionAndProvider(ctx context.Context, competitionID, providerID string) (Odds, bool, error)
	ListByCompetition(ctx context.Context, competitionID string) ([]Odds, error)
	// Upsert keeps one row per (competition, provider).
	Upsert(ctx context.Context, o Odds, events []messaging.Event) error
}
