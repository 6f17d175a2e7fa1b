package usecase

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// providerID accepts both numeric and string identifiers.
type providerID string

func (p *providerID) UnmarshalJSON(raw []byte) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		*p = ""
		return nil
	}
	if raw[0] == '"' {
		value, err := strconv.Unquote(string(raw))
		if err != nil {
			return fmt.Errorf("decode provider id: %w", err)
		}
		*p = providerID(strings.TrimSpace(value))
		return nil
	}
	*p = providerID(string(raw))
	return nil
}

func (p providerID) String() string {
	return string(p)
}

type providerRef struct {
	Ref string `json:"$ref"`
}

type providerImage struct {
	Href   string   `json:"href"`
	Width  *int64   `json:"width"`
	Height *int64   `json:"height"`
	Rel    []string `json:"rel"`
}

type providerAddress struct {
	City    string     `json:"city"`
	State   string     `json:"state"`
	ZipCode providerID `json:"zipCode"`
	Country string     `json:"country"`
}

type providerVenueDocument struct {
	Ref       string          `json:"$ref"`
	ID        providerID      `json:"id"`
	FullName  string          `json:"fullName"`
	ShortName string          `json:"shortName"`
	Address   providerAddress `json:"address"`
	Capacity  int             `json:"capacity"`
	Grass     bool            `json:"grass"`
	Indoor    bool            `json:"indoor"`
	Latitude  *float64        `json:"latitude"`
	Longitude *float64        `json:"longitude"`
	Images    []providerImage `json:"images"`
}

type providerFranchiseDocument struct {
	Ref              string          `json:"$ref"`
	ID               providerID      `json:"id"`
	Slug             string          `json:"slug"`
	Location         string          `json:"location"`
	Name             string          `json:"name"`
	Nickname         string          `json:"nickname"`
	Abbreviation     string          `json:"abbreviation"`
	DisplayName      string          `json:"displayName"`
	ShortDisplayName string          `json:"shortDisplayName"`
	Color            string          `json:"color"`
	AlternateColor   string          `json:"alternateColor"`
	IsActive         bool            `json:"isActive"`
	Venue            *providerVenue  `json:"venue"`
	Logos            []providerImage `json:"logos"`
}

// providerVenue is the embedded venue on franchise and team-season documents.
type providerVenue struct {
	Ref string     `json:"$ref"`
	ID  providerID `json:"id"`
}

type providerTeamSeasonDocument struct {
	Ref              string          `json:"$ref"`
	ID               providerID      `json:"id"`
	Slug             string          `json:"slug"`
	Location         string          `json:"location"`
	Name             string          `json:"name"`
	Abbreviation     string          `json:"abbreviation"`
	DisplayName      string          `json:"displayName"`
	ShortDisplayName string          `json:"shortDisplayName"`
	Color            string          `json:"color"`
	AlternateColor   string          `json:"alternateColor"`
	IsActive         bool            `json:"isActive"`
	IsAllStar        bool            `json:"isAllStar"`
	Logos            []providerImage `json:"logos"`
	Venue            *providerVenue  `json:"venue"`
	Groups           *providerRef    `json:"groups"`
	Franchise        *providerRef    `json:"franchise"`
}

type providerEventDocument struct {
	Ref          string                `json:"$ref"`
	ID           providerID            `json:"id"`
	Date         string                `json:"date"`
	Name         string                `json:"name"`
	ShortName    string                `json:"shortName"`
	Week         *providerWeek         `json:"week"`
	Venues       []providerRef         `json:"venues"`
	Competitions []providerCompetition `json:"competitions"`
}

type providerWeek struct {
	Ref    string `json:"$ref"`
	Number *int   `json:"number"`
}

type providerCompetition struct {
	Ref                   string               `json:"$ref"`
	ID                    providerID           `json:"id"`
	Date                  string               `json:"date"`
	Attendance            int                  `json:"attendance"`
	TimeValid             bool                 `json:"timeValid"`
	DateValid             bool                 `json:"dateValid"`
	NeutralSite           bool                 `json:"neutralSite"`
	ConferenceCompetition bool                 `json:"conferenceCompetition"`
	DivisionCompetition   bool                 `json:"divisionCompetition"`
	Recent                bool                 `json:"recent"`
	BoxscoreAvailable     bool                 `json:"boxscoreAvailable"`
	PlayByPlayAvailable   bool                 `json:"playByPlayAvailable"`
	Type                  *providerCompType    `json:"type"`
	Venue                 *providerRef         `json:"venue"`
	Competitors           []providerCompetitor `json:"competitors"`
}

type providerCompType struct {
	ID           providerID `json:"id"`
	Abbreviation string     `json:"abbreviation"`
}

type providerCompetitor struct {
	ID          providerID   `json:"id"`
	Type        string       `json:"type"`
	Order       int          `json:"order"`
	HomeAway    string       `json:"homeAway"`
	Winner      bool         `json:"winner"`
	Team        providerRef  `json:"team"`
	CuratedRank *curatedRank `json:"curatedRank"`
}

type curatedRank struct {
	Current *int `json:"current"`
}

type providerOddsDocument struct {
	Ref             string             `json:"$ref"`
	Provider        providerOddsSource `json:"provider"`
	Details         *string            `json:"details"`
	OverUnder       *float64           `json:"overUnder"`
	Spread          *float64           `json:"spread"`
	OverOdds        *float64           `json:"overOdds"`
	UnderOdds       *float64           `json:"underOdds"`
	MoneylineWinner *bool              `json:"moneylineWinner"`
	SpreadWinner    *bool              `json:"spreadWinner"`
}

type providerOddsSource struct {
	ID       providerID `json:"id"`
	Name     string     `json:"name"`
	Priority int        `json:"priority"`
}

type providerSeasonDocument struct {
	Ref         string               `json:"$ref"`
	Year        int                  `json:"year"`
	StartDate   string               `json:"startDate"`
	EndDate     string               `json:"endDate"`
	DisplayName string               `json:"displayName"`
	Type        *providerSeasonType  `json:"type"`
	Types       *providerSeasonTypes `json:"types"`
}

type providerSeasonTypes struct {
	Ref   string               `json:"$ref"`
	Items []providerSeasonType `json:"items"`
}

// providerSeasonType is one phase of a season. Type is the numeric code
// (1 preseason, 2 regular season, 3 postseason, 4 off season).
type providerSeasonType struct {
	Ref          string       `json:"$ref"`
	ID           providerID   `json:"id"`
	Type         int          `json:"type"`
	Name         string       `json:"name"`
	Abbreviation string       `json:"abbreviation"`
	Slug         string       `json:"slug"`
	Year         int          `json:"year"`
	StartDate    string       `json:"startDate"`
	EndDate      string       `json:"endDate"`
	HasGroups    bool         `json:"hasGroups"`
	HasStandings bool         `json:"hasStandings"`
	HasLegs      bool         `json:"hasLegs"`
	Groups       *providerRef `json:"groups"`
}

func (t providerSeasonType) typeCode() int {
	if t.Type != 0 {
		return t.Type
	}
	code, _ := strconv.Atoi(t.ID.String())
	return code
}

type providerGroupSeasonDocument struct {
	Ref          string       `json:"$ref"`
	ID           providerID   `json:"id"`
	Name         string       `json:"name"`
	Slug         string       `json:"slug"`
	Abbreviation string       `json:"abbreviation"`
	ShortName    string       `json:"shortName"`
	MidsizeName  string       `json:"midsizeName"`
	IsConference bool         `json:"isConference"`
	Parent       *providerRef `json:"parent"`
}
