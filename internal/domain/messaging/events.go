package messaging

import (
	"time"

	"github.com/riskibarqy/sportsdata-producer/internal/domain/documenttype"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/externalid"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/sport"
)

// Message types double as the broker subject suffix.
const (
	TypeVenueCreated                       = "venue.created"
	TypeVenueUpdated                       = "venue.updated"
	TypeFranchiseCreated                   = "franchise.created"
	TypeFranchiseUpdated                   = "franchise.updated"
	TypeSeasonCreated                      = "season.created"
	TypeSeasonUpdated                      = "season.updated"
	TypeGroupSeasonCreated                 = "group_season.created"
	TypeGroupSeasonUpdated                 = "group_season.updated"
	TypeFranchiseSeasonCreated             = "franchise_season.created"
	TypeFranchiseSeasonUpdated             = "franchise_season.updated"
	TypeFranchiseSeasonEnrichmentCompleted = "franchise_season.enrichment_completed"
	TypeContestCreated                     = "contest.created"
	TypeContestUpdated                     = "contest.updated"
	TypeContestFinalized                   = "contest.finalized"
	TypeContestOddsCreated                 = "contest.odds_created"
	TypeContestOddsUpdated                 = "contest.odds_updated"
	TypeDocumentRequested                  = "document.requested"
	TypeProcessImageRequest                = "image.process_requested"
)

type VenueChanged struct {
	VenueID string `json:"venueId"`
	Name    string `json:"name"`
	Slug    string `json:"slug"`
}

type FranchiseChanged struct {
	FranchiseID string      `json:"franchiseId"`
	Sport       sport.Sport `json:"sport"`
	Slug        string      `json:"slug"`
	DisplayName string      `json:"displayName"`
	VenueID     *string     `json:"venueId,omitempty"`
}

type SeasonChanged struct {
	SeasonID      string      `json:"seasonId"`
	Year          int         `json:"year"`
	Sport         sport.Sport `json:"sport"`
	ActivePhaseID *string     `json:"activePhaseId,omitempty"`
}

type GroupSeasonChanged struct {
	GroupSeasonID string  `json:"groupSeasonId"`
	ParentID      *string `json:"parentId,omitempty"`
	SeasonYear    int     `json:"seasonYear"`
	Name          string  `json:"name"`
	IsConference  bool    `json:"isConference"`
}

type FranchiseSeasonChanged struct {
	FranchiseSeasonID string      `json:"franchiseSeasonId"`
	FranchiseID       string      `json:"franchiseId"`
	SeasonYear        int         `json:"seasonYear"`
	Sport             sport.Sport `json:"sport"`
}

type FranchiseSeasonEnrichmentCompleted struct {
	FranchiseSeasonID string `json:"franchiseSeasonId"`
	SeasonYear        int    `json:"seasonYear"`
	Wins              int    `json:"wins"`
	Losses            int    `json:"losses"`
	Ties              int    `json:"ties"`
}

type ContestChanged struct {
	ContestID  string      `json:"contestId"`
	Sport      sport.Sport `json:"sport"`
	SeasonYear int         `json:"seasonYear"`
	StartUTC   time.Time   `json:"startUtc"`
}

type ContestFinalized struct {
	ContestID               string      `json:"contestId"`
	Sport                   sport.Sport `json:"sport"`
	SeasonYear              int         `json:"seasonYear"`
	HomeScore               int         `json:"homeScore"`
	AwayScore               int         `json:"awayScore"`
	WinnerFranchiseID       *string     `json:"winnerFranchiseId,omitempty"`
	SpreadWinnerFranchiseID *string     `json:"spreadWinnerFranchiseId,omitempty"`
	OverUnder               string      `json:"overUnder"`
}

type ContestOddsChanged struct {
	ContestID     string `json:"contestId"`
	CompetitionID string `json:"competitionId"`
	ProviderID    string `json:"providerId"`
	ContentHash   string `json:"contentHash"`
}

// DocumentRequested asks the provider service to source a missing dependency.
type DocumentRequested struct {
	ID           string                    `json:"id"`
	ParentID     string                    `json:"parentId,omitempty"`
	URI          string                    `json:"uri"`
	Sport        sport.Sport               `json:"sport"`
	SeasonYear   int                       `json:"seasonYear,omitempty"`
	DocumentType documenttype.DocumentType `json:"documentType"`
	Provider     externalid.Provider       `json:"provider"`
}

type ProcessImageRequest struct {
	URL             string                    `json:"url"`
	ImageID         string                    `json:"imageId"`
	ParentEntityID  string                    `json:"parentEntityId"`
	OriginalURLHash string                    `json:"originalUrlHash"`
	DocumentType    documenttype.DocumentType `json:"documentType"`
	Sport           sport.Sport               `json:"sport"`
	SeasonYear      int                       `json:"seasonYear,omitempty"`
	Height          *int64                    `json:"height,omitempty"`
	Width           *int64                    `json:"width,omitempty"`
	Rel             []string                  `json:"rel,omitempty"`
}
