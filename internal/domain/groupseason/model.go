package groupseason

import (
	"context"
	"fmt"
	"strings"

	"github.com/riskibarqy/sportsdata-producer/internal/domain/audit"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/externalid"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/messaging"
)

// GroupSeason is a conference or division for one season year.
type GroupSeason struct {
	ID           string
	ParentID     *string
	SeasonID     *string
	SeasonYear   int
	Name         string
	Slug         string
	Abbreviation string
	ShortName    string
	MidsizeName  *string
	IsConference bool
	ExternalIDs  []externalid.ExternalID
	audit.Audit
}

func (g GroupSeason) Validate() error {
	if g.ID == "" {
		return fmt.Errorf("group season id is required")
	}
	if g.SeasonYear <= 0 {
		return fmt.Errorf("group season %s: season year is required", g.ID)
	}
	if strings.TrimSpace(g.Name) == "" || strings.TrimSpace(g.Slug) == "" {
		return fmt.Errorf("group season %s: name and slug are required", g.ID)
	}
	if g.ParentID != nil && *g.ParentID == g.ID {
		return fmt.Errorf("group season %s cannot be its own parent", g.ID)
	}
	for _, e := range g.ExternalIDs {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("group season %s: %w", g.ID, err)
		}
	}
	return nil
}

// SameDetails compares the descriptive fields, ignoring identity, external
// ids and audit data.
func (g GroupSeason) SameDetails(o GroupSeason) bool {
	return eqString(g.ParentID, o.ParentID) &&
		eqString(g.SeasonID, o.SeasonID) &&
		g.SeasonYear == o.SeasonYear &&
		g.Name == o.Name &&
		g.Slug == o.Slug &&
		g.Abbreviation == o.Abbreviation &&
		g.ShortName == o.ShortName &&
		eqString(g.MidsizeName, o.MidsizeName) &&
		g.IsConference == o.IsConference
}

type Repository interface {
	GetByID(ctx context.Context, groupSeasonID string) (GroupSeason, bool, error)
	GetBySourceURLHash(ctx context.Context, provider externalid.Provider, hash string) (GroupSeason, bool, error)
	// Save upserts the group season with its external ids and writes events
	// to the outbox in the same transaction.
	Save(ctx context.Context, g GroupSeason, events []messaging.Event) error
}

func eqString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
