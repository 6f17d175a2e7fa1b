package franchiseseason

import (
	"fmt"
	"strings"

	"github.com/riskibarqy/sportsdata-producer/internal/domain/audit"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/externalid"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/franchise"
)

// Stat is a min/max/avg triple. All fields are nil when no games qualified.
type Stat struct {
	Min *int
	Max *int
	Avg *float64
}

// Scoring holds the points and margin aggregates derived from finalized contests.
type Scoring struct {
	PtsScored  Stat
	PtsAllowed Stat
	MarginWin  Stat
	MarginLoss Stat
}

// FranchiseSeason is a franchise's identity and results for one season year.
type FranchiseSeason struct {
	ID               string
	FranchiseID      string
	VenueID          *string
	GroupSeasonID    *string
	SeasonYear       int
	Slug             string
	Location         string
	Name             string
	Abbreviation     *string
	DisplayName      string
	DisplayNameShort string
	ColorCodeHex     string
	ColorCodeAltHex  *string
	IsActive         bool
	IsAllStar        bool
	Wins             int
	Losses           int
	Ties             int
	ConferenceWins   int
	ConferenceLosses int
	ConferenceTies   int
	Scoring          Scoring
	ExternalIDs      []externalid.ExternalID
	Logos            []franchise.Logo
	Records          []Record
	audit.Audit
}

func (fs FranchiseSeason) Validate() error {
	if fs.ID == "" {
		return fmt.Errorf("franchise season id is required")
	}
	if fs.FranchiseID == "" {
		return fmt.Errorf("franchise season franchise id is required")
	}
	if fs.SeasonYear < 1869 {
		return fmt.Errorf("franchise season year %d is out of range", fs.SeasonYear)
	}
	if strings.TrimSpace(fs.Slug) == "" {
		return fmt.Errorf("franchise season slug is required")
	}
	if fs.Wins < 0 || fs.Losses < 0 || fs.Ties < 0 {
		return fmt.Errorf("franchise season record cannot be negative")
	}
	for _, e := range fs.ExternalIDs {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("franchise season %s: %w", fs.ID, err)
		}
	}
	return nil
}

func (fs FranchiseSeason) SameDetails(o FranchiseSeason) bool {
	return fs.FranchiseID == o.FranchiseID &&
		eq(fs.VenueID, o.VenueID) &&
		eq(fs.GroupSeasonID, o.GroupSeasonID) &&
		fs.SeasonYear == o.SeasonYear &&
		fs.Slug == o.Slug &&
		fs.Location == o.Location &&
		fs.Name == o.Name &&
		eq(fs.Abbreviation, o.Abbreviation) &&
		fs.DisplayName == o.DisplayName &&
		fs.DisplayNameShort == o.DisplayNameShort &&
		fs.ColorCodeHex == o.ColorCodeHex &&
		eq(fs.ColorCodeAltHex, o.ColorCodeAltHex) &&
		fs.IsActive == o.IsActive &&
		fs.IsAllStar == o.IsAllStar
}

// Record is one named record line such as "overall" or "home".
type Record struct {
	ID                string
	FranchiseSeasonID string
	FranchiseID       string
	SeasonYear        int
	Name              string
	Abbreviation      *string
	DisplayName       string
	ShortDisplayName  string
	Description       *string
	Type              string
	Summary           string
	DisplayValue      string
	Value             float64
}

func eq(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
