package franchise

import (
	"context"

	"github.com/riskibarqy/sportsdata-producer/internal/domain/externalid"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/messaging"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/sport"
)

type ListFilter struct {
	Sport  sport.Sport
	Limit  int
	Offset int
}

// Repository describes franchise persistence needs from use cases.
type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]Franchise, error)
	GetByID(ctx context.Context, franchiseID string) (Franchise, bool, error)
	GetBySourceURLHash(ctx context.Context, provider externalid.Provider, hash string) (Franchise, bool, error)
	GetByExternalValue(ctx context.Context, provider externalid.Provider, value string) (Franchise, bool, error)
	Save(ctx context.Context, f Franchise, events []messaging.Event) error
}
