package postgres

import (
	"database/sql"
	"time"
)

type franchiseSeasonTableModel struct {
	ID               string         `db:"id"`
	FranchiseID      string         `db:"franchise_id"`
	VenueID          sql.NullString `db:"venue_id"`
	GroupSeasonID    sql.NullString `db:"group_season_id"`
	SeasonYear       int            `db:"season_year"`
	Slug             string         `db:"slug"`
	Location         string         `db:"location"`
	Name             string         `db:"name"`
	Abbreviation     sql.NullString `db:"abbreviation"`
	DisplayName      string         `db:"display_name"`
	DisplayNameShort string         `db:"display_name_short"`
	ColorCodeHex     string         `db:"color_code_hex"`
	ColorCodeAltHex  sql.NullString `db:"color_code_alt_hex"`
	IsActive         bool           `db:"is_active"`
	IsAllStar        bool           `db:"is_all_star"`
	franchiseSeasonResultColumns
	auditColumns
}

// franchiseSeasonResultColumns are the derived columns written by enrichment.
type franchiseSeasonResultColumns struct {
	Wins             int             `db:"wins"`
	Losses           int             `db:"losses"`
	Ties             int             `db:"ties"`
	ConferenceWins   int             `db:"conference_wins"`
	ConferenceLosses int             `db:"conference_losses"`
	ConferenceTies   int             `db:"conference_ties"`
	PtsScoredMin     sql.NullInt64   `db:"pts_scored_min"`
	PtsScoredMax     sql.NullInt64   `db:"pts_scored_max"`
	PtsScoredAvg     sql.NullFloat64 `db:"pts_scored_avg"`
	PtsAllowedMin    sql.NullInt64   `db:"pts_allowed_min"`
	PtsAllowedMax    sql.NullInt64   `db:"pts_allowed_max"`
	PtsAllowedAvg    sql.NullFloat64 `db:"pts_allowed_avg"`
	MarginWinMin     sql.NullInt64   `db:"margin_win_min"`
	MarginWinMax     sql.NullInt64   `db:"margin_win_max"`
	MarginWinAvg     sql.NullFloat64 `db:"margin_win_avg"`
	MarginLossMin    sql.NullInt64   `db:"margin_loss_min"`
	MarginLossMax    sql.NullInt64   `db:"margin_loss_max"`
	MarginLossAvg    sql.NullFloat64 `db:"margin_loss_avg"`
}

var franchiseSeasonResultColumnNames = []string{
	"wins", "losses", "ties", "conference_wins", "conference_losses", "conference_ties",
	"pts_scored_min", "pts_scored_max", "pts_scored_avg",
	"pts_allowed_min", "pts_allowed_max", "pts_allowed_avg",
	"margin_win_min", "margin_win_max", "margin_win_avg",
	"margin_loss_min", "margin_loss_max", "margin_loss_avg",
}

var franchiseSeasonSelectColumns = []string{
	"id", "franchise_id", "venue_id", "group_season_id", "season_year", "slug", "location", "name",
	"abbreviation", "display_name", "display_name_short", "color_code_hex", "color_code_alt_hex",
	"is_active", "is_all_star",
	"wins", "losses", "ties", "conference_wins", "conference_losses", "conference_ties",
	"pts_scored_min", "pts_scored_max", "pts_scored_avg",
	"pts_allowed_min", "pts_allowed_max", "pts_allowed_avg",
	"margin_win_min", "margin_win_max", "margin_win_avg",
	"margin_loss_min", "margin_loss_max", "margin_loss_avg",
	"created_utc", "modified_utc", "created_by", "modified_by",
}

type franchiseSeasonRecordInsertModel struct {
	ID                string         `db:"id"`
	FranchiseSeasonID string         `db:"franchise_season_id"`
	FranchiseID       string         `db:"franchise_id"`
	SeasonYear        int            `db:"season_year"`
	Name              string         `db:"name"`
	Abbreviation      sql.NullString `db:"abbreviation"`
	DisplayName       string         `db:"display_name"`
	ShortDisplayName  string         `db:"short_display_name"`
	Description       sql.NullString `db:"description"`
	Type              string         `db:"type"`
	Summary           string         `db:"summary"`
	DisplayValue      string         `db:"display_value"`
	Value             float64        `db:"value"`
	CreatedUTC        time.Time      `db:"created_utc"`
	CreatedBy         string         `db:"created_by"`
}

type franchiseSeasonMetricTableModel struct {
	ID                     string          `db:"id"`
	FranchiseSeasonID      string          `db:"franchise_season_id"`
	Season                 int             `db:"season"`
	GamesPlayed            int             `db:"games_played"`
	Ypp                    float64         `db:"ypp"`
	SuccessRate            float64         `db:"success_rate"`
	ExplosiveRate          float64         `db:"explosive_rate"`
	PointsPerDrive         float64         `db:"points_per_drive"`
	ThirdFourthRate        float64         `db:"third_fourth_rate"`
	RzTdRate               sql.NullFloat64 `db:"rz_td_rate"`
	RzScoreRate            sql.NullFloat64 `db:"rz_score_rate"`
	TimePossRatio          float64         `db:"time_poss_ratio"`
	OppYpp                 float64         `db:"opp_ypp"`
	OppSuccessRate         float64         `db:"opp_success_rate"`
	OppExplosiveRate       float64         `db:"opp_explosive_rate"`
	OppPointsPerDrive      float64         `db:"opp_points_per_drive"`
	OppThirdFourthRate     float64         `db:"opp_third_fourth_rate"`
	OppRzTdRate            sql.NullFloat64 `db:"opp_rz_td_rate"`
	OppScoreTdRate         sql.NullFloat64 `db:"opp_score_td_rate"`
	NetPunt                float64         `db:"net_punt"`
	FgPctShrunk            float64         `db:"fg_pct_shrunk"`
	FieldPosDiff           float64         `db:"field_pos_diff"`
	TurnoverMarginPerDrive float64         `db:"turnover_margin_per_drive"`
	PenaltyYardsPerPlay    float64         `db:"penalty_yards_per_play"`
	ComputedUTC            time.Time       `db:"computed_utc"`
	auditColumns
}
