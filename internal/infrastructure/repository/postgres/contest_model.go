package postgres

import (
	"database/sql"
	"time"
)

type contestTableModel struct {
	ID                    string         `db:"id"`
	Name                  string         `db:"name"`
	ShortName             string         `db:"short_name"`
	HomeFranchiseSeasonID string         `db:"home_team_franchise_season_id"`
	AwayFranchiseSeasonID string         `db:"away_team_franchise_season_id"`
	StartDateUTC          time.Time      `db:"start_date_utc"`
	EndDateUTC            sql.NullTime   `db:"end_date_utc"`
	Period                int            `db:"period"`
	Sport                 int            `db:"sport"`
	SeasonYear            int            `db:"season_year"`
	Week                  sql.NullInt64  `db:"week"`
	SeasonPhaseID         sql.NullString `db:"season_phase_id"`
	EventNote             sql.NullString `db:"event_note"`
	VenueID               sql.NullString `db:"venue_id"`
	contestOutcomeColumns
	auditColumns
}

type contestOutcomeColumns struct {
	HomeScore               sql.NullInt64  `db:"home_score"`
	AwayScore               sql.NullInt64  `db:"away_score"`
	WinnerFranchiseID       sql.NullString `db:"winner_franchise_id"`
	SpreadWinnerFranchiseID sql.NullString `db:"spread_winner_franchise_id"`
	OverUnder               int            `db:"over_under"`
	FinalizedUTC            sql.NullTime   `db:"finalized_utc"`
}

var contestOutcomeColumnNames = []string{
	"home_score", "away_score", "winner_franchise_id", "spread_winner_franchise_id", "over_under", "finalized_utc",
}

var contestSelectColumns = []string{
	"id", "name", "short_name", "home_team_franchise_season_id", "away_team_franchise_season_id",
	"start_date_utc", "end_date_utc", "period", "sport", "season_year", "week", "season_phase_id",
	"event_note", "venue_id",
	"home_score", "away_score", "winner_franchise_id", "spread_winner_franchise_id", "over_under", "finalized_utc",
	"created_utc", "modified_utc", "created_by", "modified_by",
}

type competitionTableModel struct {
	ID                      string         `db:"id"`
	ContestID               string         `db:"contest_id"`
	Date                    time.Time      `db:"date"`
	Attendance              int            `db:"attendance"`
	IsTimeValid             bool           `db:"is_time_valid"`
	IsDateValid             bool           `db:"is_date_valid"`
	IsNeutralSite           bool           `db:"is_neutral_site"`
	IsConferenceCompetition bool           `db:"is_conference_competition"`
	IsDivisionCompetition   bool           `db:"is_division_competition"`
	IsRecent                bool           `db:"is_recent"`
	IsBoxscoreAvailable     bool           `db:"is_boxscore_available"`
	IsPlayByPlayAvailable   bool           `db:"is_play_by_play_available"`
	TypeID                  sql.NullString `db:"type_id"`
	TypeName                sql.NullString `db:"type_name"`
	VenueID                 sql.NullString `db:"venue_id"`
	auditColumns
}

var competitionSelectColumns = []string{
	"id", "contest_id", "date", "attendance", "is_time_valid", "is_date_valid", "is_neutral_site",
	"is_conference_competition", "is_division_competition", "is_recent", "is_boxscore_available",
	"is_play_by_play_available", "type_id", "type_name", "venue_id",
	"created_utc", "modified_utc", "created_by", "modified_by",
}

type competitorTableModel struct {
	ID                 string        `db:"id"`
	CompetitionID      string        `db:"competition_id"`
	FranchiseSeasonID  string        `db:"franchise_season_id"`
	Type               string        `db:"type"`
	SortOrder          int           `db:"sort_order"`
	HomeAway           string        `db:"home_away"`
	Winner             bool          `db:"winner"`
	CuratedRankCurrent sql.NullInt64 `db:"curated_rank_current"`
	auditColumns
}

var competitorSelectColumns = []string{
	"id", "competition_id", "franchise_season_id", "type", "sort_order", "home_away", "winner", "curated_rank_current",
	"created_utc", "modified_utc", "created_by", "modified_by",
}

type oddsTableModel struct {
	ID               string          `db:"id"`
	CompetitionID    string          `db:"competition_id"`
	ProviderRef      string          `db:"provider_ref"`
	ProviderID       string          `db:"provider_id"`
	ProviderName     string          `db:"provider_name"`
	ProviderPriority int             `db:"provider_priority"`
	Details          sql.NullString  `db:"details"`
	OverUnder        sql.NullFloat64 `db:"over_under"`
	Spread           sql.NullFloat64 `db:"spread"`
	OverOdds         sql.NullFloat64 `db:"over_odds"`
	UnderOdds        sql.NullFloat64 `db:"under_odds"`
	MoneylineWinner  sql.NullBool    `db:"moneyline_winner"`
	SpreadWinner     sql.NullBool    `db:"spread_winner"`
	ContentHash      sql.NullString  `db:"content_hash"`
	auditColumns
}

var oddsSelectColumns = []string{
	"id", "competition_id", "provider_ref", "provider_id", "provider_name", "provider_priority",
	"details", "over_under", "spread", "over_odds", "under_odds", "moneyline_winner", "spread_winner", "content_hash",
	"created_utc", "modified_utc", "created_by", "modified_by",
}
