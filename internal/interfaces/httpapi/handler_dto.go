package httpapi

import (
	"time"

	"github.com/riskibarqy/sportsdata-producer/internal/domain/contest"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/externalid"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/franchise"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/franchiseseason"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/messaging"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/season"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/venue"
	"github.com/riskibarqy/sportsdata-producer/internal/infrastructure/messaging/outbox"
	"github.com/riskibarqy/sportsdata-producer/internal/schema"
)

type finalizeContestRequest struct {
	HomeScore *int `json:"homeScore" validate:"required,gte=0"`
	AwayScore *int `json:"awayScore" validate:"required,gte=0"`
}

type externalIDDTO struct {
	Value     string `json:"value"`
	Provider  string `json:"provider"`
	SourceURL string `json:"sourceUrl"`
}

type imageDTO struct {
	ID     string   `json:"id"`
	URI    string   `json:"uri"`
	Height *int64   `json:"height,omitempty"`
	Width  *int64   `json:"width,omitempty"`
	Rel    []string `json:"rel,omitempty"`
}

type franchiseDTO struct {
	ID               string          `json:"id"`
	Sport            string          `json:"sport"`
	Name             string          `json:"name"`
	Nickname         *string         `json:"nickname,omitempty"`
	Abbreviation     *string         `json:"abbreviation,omitempty"`
	Location         string          `json:"location"`
	DisplayName      string          `json:"displayName"`
	DisplayNameShort string          `json:"displayNameShort"`
	ColorCodeHex     string          `json:"colorCodeHex"`
	ColorCodeAltHex  *string         `json:"colorCodeAltHex,omitempty"`
	IsActive         bool            `json:"isActive"`
	Slug             string          `json:"slug"`
	VenueID          *string         `json:"venueId,omitempty"`
	ExternalIDs      []externalIDDTO `json:"externalIds"`
	Logos            []imageDTO      `json:"logos"`
}

type statDTO struct {
	Min *int     `json:"min"`
	Max *int     `json:"max"`
	Avg *float64 `json:"avg"`
}

type recordDTO struct {
	Name             string  `json:"name"`
	Type             string  `json:"type"`
	Summary          string  `json:"summary"`
	DisplayName      string  `json:"displayName"`
	ShortDisplayName string  `json:"shortDisplayName"`
	DisplayValue     string  `json:"displayValue"`
	Value            float64 `json:"value"`
}

type franchiseSeasonDTO struct {
	ID               string          `json:"id"`
	FranchiseID      string          `json:"franchiseId"`
	VenueID          *string         `json:"venueId,omitempty"`
	GroupSeasonID    *string         `json:"groupSeasonId,omitempty"`
	SeasonYear       int             `json:"seasonYear"`
	Slug             string          `json:"slug"`
	Location         string          `json:"location"`
	Name             string          `json:"name"`
	Abbreviation     *string         `json:"abbreviation,omitempty"`
	DisplayName      string          `json:"displayName"`
	DisplayNameShort string          `json:"displayNameShort"`
	ColorCodeHex     string          `json:"colorCodeHex"`
	IsActive         bool            `json:"isActive"`
	Wins             int             `json:"wins"`
	Losses           int             `json:"losses"`
	Ties             int             `json:"ties"`
	ConferenceWins   int             `json:"conferenceWins"`
	ConferenceLosses int             `json:"conferenceLosses"`
	ConferenceTies   int             `json:"conferenceTies"`
	PtsScored        statDTO         `json:"ptsScored"`
	PtsAllowed       statDTO         `json:"ptsAllowed"`
	MarginWin        statDTO         `json:"marginWin"`
	MarginLoss       statDTO         `json:"marginLoss"`
	Records          []recordDTO     `json:"records"`
	ExternalIDs      []externalIDDTO `json:"externalIds"`
	Logos            []imageDTO      `json:"logos"`
}

type seasonDTO struct {
	ID            string  `json:"id"`
	Year          int     `json:"year"`
	Name          string  `json:"name"`
	StartDate     string  `json:"startDate"`
	EndDate       string  `json:"endDate"`
	ActivePhaseID *string `json:"activePhaseId,omitempty"`
}

type venueDTO struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	ShortName   *string         `json:"shortName,omitempty"`
	Slug        string          `json:"slug"`
	IsGrass     bool            `json:"isGrass"`
	IsIndoor    bool            `json:"isIndoor"`
	Capacity    int             `json:"capacity"`
	City        *string         `json:"city,omitempty"`
	State       *string         `json:"state,omitempty"`
	PostalCode  *string         `json:"postalCode,omitempty"`
	Country     *string         `json:"country,omitempty"`
	Latitude    *float64        `json:"latitude,omitempty"`
	Longitude   *float64        `json:"longitude,omitempty"`
	ExternalIDs []externalIDDTO `json:"externalIds"`
	Images      []imageDTO      `json:"images"`
}

type oddsDTO struct {
	ProviderID       string   `json:"providerId"`
	ProviderName     string   `json:"providerName"`
	ProviderPriority int      `json:"providerPriority"`
	Details          *string  `json:"details,omitempty"`
	OverUnder        *float64 `json:"overUnder,omitempty"`
	Spread           *float64 `json:"spread,omitempty"`
	OverOdds         *float64 `json:"overOdds,omitempty"`
	UnderOdds        *float64 `json:"underOdds,omitempty"`
}

type competitorDTO struct {
	FranchiseSeasonID  string `json:"franchiseSeasonId"`
	HomeAway           string `json:"homeAway"`
	Winner             bool   `json:"winner"`
	CuratedRankCurrent *int   `json:"curatedRankCurrent,omitempty"`
}

type competitionDTO struct {
	ID            string          `json:"id"`
	Date          time.Time       `json:"date"`
	Attendance    int             `json:"attendance"`
	IsNeutralSite bool            `json:"isNeutralSite"`
	IsConference  bool            `json:"isConferenceCompetition"`
	VenueID       *string         `json:"venueId,omitempty"`
	Competitors   []competitorDTO `json:"competitors"`
	Odds          []oddsDTO       `json:"odds"`
}

type contestDTO struct {
	ID                      string           `json:"id"`
	Name                    string           `json:"name"`
	ShortName               string           `json:"shortName"`
	Sport                   string           `json:"sport"`
	SeasonYear              int              `json:"seasonYear"`
	Week                    *int             `json:"week,omitempty"`
	StartDateUTC            time.Time        `json:"startDateUtc"`
	HomeFranchiseSeasonID   string           `json:"homeFranchiseSeasonId"`
	AwayFranchiseSeasonID   string           `json:"awayFranchiseSeasonId"`
	VenueID                 *string          `json:"venueId,omitempty"`
	HomeScore               *int             `json:"homeScore,omitempty"`
	AwayScore               *int             `json:"awayScore,omitempty"`
	WinnerFranchiseID       *string          `json:"winnerFranchiseId,omitempty"`
	SpreadWinnerFranchiseID *string          `json:"spreadWinnerFranchiseId,omitempty"`
	OverUnder               string           `json:"overUnder"`
	FinalizedUTC            *time.Time       `json:"finalizedUtc,omitempty"`
	Competitions            []competitionDTO `json:"competitions"`
}

type metricDTO struct {
	FranchiseSeasonID      string    `json:"franchiseSeasonId"`
	Season                 int       `json:"season"`
	GamesPlayed            int       `json:"gamesPlayed"`
	Ypp                    float64   `json:"ypp"`
	SuccessRate            float64   `json:"successRate"`
	ExplosiveRate          float64   `json:"explosiveRate"`
	PointsPerDrive         float64   `json:"pointsPerDrive"`
	ThirdFourthRate        float64   `json:"thirdFourthRate"`
	RzTdRate               *float64  `json:"rzTdRate,omitempty"`
	RzScoreRate            *float64  `json:"rzScoreRate,omitempty"`
	TimePossRatio          float64   `json:"timePossRatio"`
	OppYpp                 float64   `json:"oppYpp"`
	OppSuccessRate         float64   `json:"oppSuccessRate"`
	OppExplosiveRate       float64   `json:"oppExplosiveRate"`
	OppPointsPerDrive      float64   `json:"oppPointsPerDrive"`
	OppThirdFourthRate     float64   `json:"oppThirdFourthRate"`
	OppRzTdRate            *float64  `json:"oppRzTdRate,omitempty"`
	OppScoreTdRate         *float64  `json:"oppScoreTdRate,omitempty"`
	NetPunt                float64   `json:"netPunt"`
	FgPctShrunk            float64   `json:"fgPctShrunk"`
	FieldPosDiff           float64   `json:"fieldPosDiff"`
	TurnoverMarginPerDrive float64   `json:"turnoverMarginPerDrive"`
	PenaltyYardsPerPlay    float64   `json:"penaltyYardsPerPlay"`
	ComputedUTC            time.Time `json:"computedUtc"`
}

type outboxStatsDTO struct {
	PendingStates       int     `json:"pendingStates"`
	PendingMessages     int     `json:"pendingMessages"`
	OldestPendingAgeSec float64 `json:"oldestPendingAgeSeconds"`
}

type relayRunDTO struct {
	Claimed   int `json:"claimed"`
	Published int `json:"published"`
	Failed    int `json:"failed"`
}

type schemaFindingDTO struct {
	Version   uint   `json:"version,omitempty"`
	Migration string `json:"migration,omitempty"`
	Rule      string `json:"rule"`
	Message   string `json:"message"`
}

type schemaReportDTO struct {
	OK         bool               `json:"ok"`
	Migrations int                `json:"migrations"`
	Findings   []schemaFindingDTO `json:"findings"`
}

func externalIDsToDTO(items []externalid.ExternalID) []externalIDDTO {
	out := make([]externalIDDTO, 0, len(items))
	for _, e := range items {
		out = append(out, externalIDDTO{Value: e.Value, Provider: e.Provider.String(), SourceURL: e.SourceURL})
	}
	return out
}

func logosToDTO(items []franchise.Logo) []imageDTO {
	out := make([]imageDTO, 0, len(items))
	for _, l := range items {
		out = append(out, imageDTO{ID: l.ID, URI: l.URI, Height: l.Height, Width: l.Width, Rel: l.Rel})
	}
	return out
}

func franchiseToDTO(f franchise.Franchise) franchiseDTO {
	return franchiseDTO{
		ID:               f.ID,
		Sport:            f.Sport.String(),
		Name:             f.Name,
		Nickname:         f.Nickname,
		Abbreviation:     f.Abbreviation,
		Location:         f.Location,
		DisplayName:      f.DisplayName,
		DisplayNameShort: f.DisplayNameShort,
		ColorCodeHex:     f.ColorCodeHex,
		ColorCodeAltHex:  f.ColorCodeAltHex,
		IsActive:         f.IsActive,
		Slug:             f.Slug,
		VenueID:          f.VenueID,
		ExternalIDs:      externalIDsToDTO(f.ExternalIDs),
		Logos:            logosToDTO(f.Logos),
	}
}

func statToDTO(s franchiseseason.Stat) statDTO {
	return statDTO{Min: s.Min, Max: s.Max, Avg: s.Avg}
}

func franchiseSeasonToDTO(fs franchiseseason.FranchiseSeason) franchiseSeasonDTO {
	records := make([]recordDTO, 0, len(fs.Records))
	for _, rec := range fs.Records {
		records = append(records, recordDTO{
			Name:             rec.Name,
			Type:             rec.Type,
			Summary:          rec.Summary,
			DisplayName:      rec.DisplayName,
			ShortDisplayName: rec.ShortDisplayName,
			DisplayValue:     rec.DisplayValue,
			Value:            rec.Value,
		})
	}

	return franchiseSeasonDTO{
		ID:               fs.ID,
		FranchiseID:      fs.FranchiseID,
		VenueID:          fs.VenueID,
		GroupSeasonID:    fs.GroupSeasonID,
		SeasonYear:       fs.SeasonYear,
		Slug:             fs.Slug,
		Location:         fs.Location,
		Name:             fs.Name,
		Abbreviation:     fs.Abbreviation,
		DisplayName:      fs.DisplayName,
		DisplayNameShort: fs.DisplayNameShort,
		ColorCodeHex:     fs.ColorCodeHex,
		IsActive:         fs.IsActive,
		Wins:             fs.Wins,
		Losses:           fs.Losses,
		Ties:             fs.Ties,
		ConferenceWins:   fs.ConferenceWins,
		ConferenceLosses: fs.ConferenceLosses,
		ConferenceTies:   fs.ConferenceTies,
		PtsScored:        statToDTO(fs.Scoring.PtsScored),
		PtsAllowed:       statToDTO(fs.Scoring.PtsAllowed),
		MarginWin:        statToDTO(fs.Scoring.MarginWin),
		MarginLoss:       statToDTO(fs.Scoring.MarginLoss),
		Records:          records,
		ExternalIDs:      externalIDsToDTO(fs.ExternalIDs),
		Logos:            logosToDTO(fs.Logos),
	}
}

func seasonToDTO(s season.Season) seasonDTO {
	return seasonDTO{
		ID:            s.ID,
		Year:          s.Year,
		Name:          s.Name,
		StartDate:     s.StartDate.Format(time.DateOnly),
		EndDate:       s.EndDate.Format(time.DateOnly),
		ActivePhaseID: s.ActivePhaseID,
	}
}

func venueToDTO(v venue.Venue) venueDTO {
	images := make([]imageDTO, 0, len(v.Images))
	for _, img := range v.Images {
		images = append(images, imageDTO{ID: img.ID, URI: img.URI, Height: img.Height, Width: img.Width})
	}

	return venueDTO{
		ID:          v.ID,
		Name:        v.Name,
		ShortName:   v.ShortName,
		Slug:        v.Slug,
		IsGrass:     v.IsGrass,
		IsIndoor:    v.IsIndoor,
		Capacity:    v.Capacity,
		City:        v.City,
		State:       v.State,
		PostalCode:  v.PostalCode,
		Country:     v.Country,
		Latitude:    v.Latitude,
		Longitude:   v.Longitude,
		ExternalIDs: externalIDsToDTO(v.ExternalIDs),
		Images:      images,
	}
}

func contestToDTO(c contest.Contest) contestDTO {
	comps := make([]competitionDTO, 0, len(c.Competitions))
	for _, comp := range c.Competitions {
		competitors := make([]competitorDTO, 0, len(comp.Competitors))
		for _, cc := range comp.Competitors {
			competitors = append(competitors, competitorDTO{
				FranchiseSeasonID:  cc.FranchiseSeasonID,
				HomeAway:           cc.HomeAway,
				Winner:             cc.Winner,
				CuratedRankCurrent: cc.CuratedRankCurrent,
			})
		}
		odds := make([]oddsDTO, 0, len(comp.Odds))
		for _, o := range comp.Odds {
			odds = append(odds, oddsDTO{
				ProviderID:       o.ProviderID,
				ProviderName:     o.ProviderName,
				ProviderPriority: o.ProviderPriority,
				Details:          o.Details,
				OverUnder:        o.OverUnder,
				Spread:           o.Spread,
				OverOdds:         o.OverOdds,
				UnderOdds:        o.UnderOdds,
			})
		}
		comps = append(comps, competitionDTO{
			ID:            comp.ID,
			Date:          comp.Date,
			Attendance:    comp.Attendance,
			IsNeutralSite: comp.IsNeutralSite,
			IsConference:  comp.IsConferenceCompetition,
			VenueID:       comp.VenueID,
			Competitors:   competitors,
			Odds:          odds,
		})
	}

	return contestDTO{
		ID:                      c.ID,
		Name:                    c.Name,
		ShortName:               c.ShortName,
		Sport:                   c.Sport.String(),
		SeasonYear:              c.SeasonYear,
		Week:                    c.Week,
		StartDateUTC:            c.StartDateUTC,
		HomeFranchiseSeasonID:   c.HomeFranchiseSeasonID,
		AwayFranchiseSeasonID:   c.AwayFranchiseSeasonID,
		VenueID:                 c.VenueID,
		HomeScore:               c.HomeScore,
		AwayScore:               c.AwayScore,
		WinnerFranchiseID:       c.WinnerFranchiseID,
		SpreadWinnerFranchiseID: c.SpreadWinnerFranchiseID,
		OverUnder:               c.OverUnder.String(),
		FinalizedUTC:            c.FinalizedUTC,
		Competitions:            comps,
	}
}

func metricToDTO(m franchiseseason.Metric) metricDTO {
	return metricDTO{
		FranchiseSeasonID:      m.FranchiseSeasonID,
		Season:                 m.Season,
		GamesPlayed:            m.GamesPlayed,
		Ypp:                    m.Ypp,
		SuccessRate:            m.SuccessRate,
		ExplosiveRate:          m.ExplosiveRate,
		PointsPerDrive:         m.PointsPerDrive,
		ThirdFourthRate:        m.ThirdFourthRate,
		RzTdRate:               m.RzTdRate,
		RzScoreRate:            m.RzScoreRate,
		TimePossRatio:          m.TimePossRatio,
		OppYpp:                 m.OppYpp,
		OppSuccessRate:         m.OppSuccessRate,
		OppExplosiveRate:       m.OppExplosiveRate,
		OppPointsPerDrive:      m.OppPointsPerDrive,
		OppThirdFourthRate:     m.OppThirdFourthRate,
		OppRzTdRate:            m.OppRzTdRate,
		OppScoreTdRate:         m.OppScoreTdRate,
		NetPunt:                m.NetPunt,
		FgPctShrunk:            m.FgPctShrunk,
		FieldPosDiff:           m.FieldPosDiff,
		TurnoverMarginPerDrive: m.TurnoverMarginPerDrive,
		PenaltyYardsPerPlay:    m.PenaltyYardsPerPlay,
		ComputedUTC:            m.ComputedUTC,
	}
}

func outboxStatsToDTO(s messaging.OutboxStats) outboxStatsDTO {
	return outboxStatsDTO{
		PendingStates:       s.PendingStates,
		PendingMessages:     s.PendingMessages,
		OldestPendingAgeSec: s.OldestPendingAge.Seconds(),
	}
}

func relayRunToDTO(s outbox.RunStats) relayRunDTO {
	return relayRunDTO{Claimed: s.Claimed, Published: s.Published, Failed: s.Failed}
}

func schemaReportToDTO(r schema.Report) schemaReportDTO {
	findings := make([]schemaFindingDTO, 0, len(r.Findings))
	for _, f := range r.Findings {
		findings = append(findings, schemaFindingDTO{
			Version:   f.Version,
			Migration: f.Migration,
			Rule:      string(f.Rule),
			Message:   f.Message,
		})
	}
	return schemaReportDTO{OK: r.OK(), Migrations: r.Migrations, Findings: findings}
}
