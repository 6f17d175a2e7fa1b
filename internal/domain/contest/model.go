package contest

import (
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/sportsdata-producer/internal/domain/audit"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/externalid"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/sport"
)

const (
	HomeAwayHome = "home"
	HomeAwayAway = "away"
)

// OverUnder is the settled total against the consensus line.
type OverUnder int

const (
	OverUnderNone OverUnder = iota
	OverUnderOver
	OverUnderUnder
	OverUnderPush
)

func (o OverUnder) String() string {
	switch o {
	case OverUnderOver:
		return "over"
	case OverUnderUnder:
		return "under"
	case OverUnderPush:
		return "push"
	default:
		return "none"
	}
}

// Contest is a scheduled game between two franchise seasons.
type Contest struct {
	ID                      string
	Name                    string
	ShortName               string
	HomeFranchiseSeasonID   string
	AwayFranchiseSeasonID   string
	StartDateUTC            time.Time
	EndDateUTC              *time.Time
	Period                  int
	Sport                   sport.Sport
	SeasonYear              int
	Week                    *int
	SeasonPhaseID           *string
	EventNote               *string
	VenueID                 *string
	HomeScore               *int
	AwayScore               *int
	WinnerFranchiseID       *string
	SpreadWinnerFranchiseID *string
	OverUnder               OverUnder
	FinalizedUTC            *time.Time
	ExternalIDs             []externalid.ExternalID
	Competitions            []Competition
	audit.Audit
}

func (c Contest) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("contest id is required")
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("contest name is required")
	}
	if c.HomeFranchiseSeasonID == "" || c.AwayFranchiseSeasonID == "" {
		return fmt.Errorf("contest requires home and away franchise seasons")
	}
	if c.HomeFranchiseSeasonID == c.AwayFranchiseSeasonID {
		return fmt.Errorf("contest home and away franchise seasons must differ")
	}
	if c.StartDateUTC.IsZero() {
		return fmt.Errorf("contest start date is required")
	}
	if !c.Sport.Valid() {
		return fmt.Errorf("contest sport %d is unknown", int(c.Sport))
	}
	for _, comp := range c.Competitions {
		if err := comp.Validate(); err != nil {
			return fmt.Errorf("contest %s: %w", c.ID, err)
		}
	}
	return nil
}

func (c Contest) IsFinalized() bool {
	return c.FinalizedUTC != nil && c.HomeScore != nil && c.AwayScore != nil
}

// Competition is one playing of a contest. Football contests have exactly one.
type Competition struct {
	ID                      string
	ContestID               string
	Date                    time.Time
	Attendance              int
	IsTimeValid             bool
	IsDateValid             bool
	IsNeutralSite           bool
	IsConferenceCompetition bool
	IsDivisionCompetition   bool
	IsRecent                bool
	IsBoxscoreAvailable     bool
	IsPlayByPlayAvailable   bool
	TypeID                  *string
	TypeName                *string
	VenueID                 *string
	ExternalIDs             []externalid.ExternalID
	Competitors             []Competitor
	Odds                    []Odds
}

func (c Competition) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("competition id is required")
	}
	if len(c.Competitors) > 0 {
		seen := map[string]bool{}
		for _, comp := range c.Competitors {
			if comp.HomeAway != HomeAwayHome && comp.HomeAway != HomeAwayAway {
				return fmt.Errorf("competitor home/away %q is invalid", comp.HomeAway)
			}
			if seen[comp.HomeAway] {
				return fmt.Errorf("competition %s has two %s competitors", c.ID, comp.HomeAway)
			}
			seen[comp.HomeAway] = true
		}
	}
	return nil
}

type Competitor struct {
	ID                 string
	CompetitionID      string
	FranchiseSeasonID  string
	Type               string
	SortOrder          int
	HomeAway           string
	Winner             bool
	CuratedRankCurrent *int
}

// Odds is one sportsbook's line on a competition.
type Odds struct {
	ID               string
	CompetitionID    string
	ProviderRef      string
	ProviderID       string
	ProviderName     string
	ProviderPriority int
	Details          *string
	OverUnder        *float64
	Spread           *float64
	OverOdds         *float64
	UnderOdds        *float64
	MoneylineWinner  *bool
	SpreadWinner     *bool
	ContentHash      string
	audit.Audit
}

func (o Odds) Validate() error {
	if o.ID == "" || o.CompetitionID == "" {
		return fmt.Errorf("odds id and competition id are required")
	}
	if strings.TrimSpace(o.ProviderID) == "" {
		return fmt.Errorf("odds provider id is required")
	}
	return nil
}

// Consensus picks the line from the highest-priority provider. Ties go to
// the lower provider id so the choice is stable.
func Consensus(odds []Odds) (Odds, bool) {
	var best Odds
	found := false
	for _, o := range odds {
		if !found || o.ProviderPriority > best.ProviderPriority ||
			(o.ProviderPriority == best.ProviderPriority && o.ProviderID < best.ProviderID) {
			best = o
			found = true
		}
	}
	return best, found
}

// SettleTotal compares the combined score with a total line.
func SettleTotal(homeScore, awayScore int, line float64) OverUnder {
	total := float64(homeScore + awayScore)
	switch {
	case total > line:
		return OverUnderOver
	case total < line:
		return OverUnderUnder
	default:
		return OverUnderPush
	}
}

// SettleSpread returns "home", "away", or "" for a push. spread is the
// home team's line (negative when home is favored).
func SettleSpread(homeScore, awayScore int, spread float64) string {
	margin := float64(homeScore) + spread - float64(awayScore)
	switch {
	case margin > 0:
		return HomeAwayHome
	case margin < 0:
		return HomeAwayAway
	default:
		return ""
	}
}
