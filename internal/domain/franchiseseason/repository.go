package franchiseseason

import (
	"context"

	"github.com/riskibarqy/sportsdata-producer/internal/domain/externalid"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/messaging"
)

// Repository describes franchise season persistence needs from use cases.
type Repository interface {
	GetByID(ctx context.Context, franchiseSeasonID string) (FranchiseSeason, bool, error)
	GetBySourceURLHash(ctx context.Context, provider externalid.Provider, hash string) (FranchiseSeason, bool, error)
	GetByFranchiseAndYear(ctx context.Context, franchiseID string, seasonYear int) (FranchiseSeason, bool, error)
	ListByFranchise(ctx context.Context, franchiseID string) ([]FranchiseSeason, error)
	ListBySeasonYear(ctx context.Context, seasonYear int) ([]FranchiseSeason, error)
	Save(ctx context.Context, fs FranchiseSeason, events []messaging.Event) error
	// SaveEnrichment writes only the derived record and scoring columns.
	SaveEnrichment(ctx context.Context, fs FranchiseSeason, events []messaging.Event) error
}

type MetricRepository interface {
	GetByFranchiseSeason(ctx context.Context, franchiseSeasonID string) (Metric, bool, error)
	ListBySeason(ctx context.Context, seasonYear int) ([]Metric, error)
	// Upsert keeps one row per franchise season and returns the stored row.
	Upsert(ctx context.Context, m Metric) (Metric, error)
}
