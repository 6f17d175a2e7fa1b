package postgres

import (
	"database/sql"
	"time"
)

// seasonTableModel leaves out active_phase_id: it references season_phase,
// so it is set after the phases are written.
type seasonTableModel struct {
	ID        string    `db:"id"`
	Year      int       `db:"year"`
	Name      string    `db:"name"`
	StartDate time.Time `db:"start_date"`
	EndDate   time.Time `db:"end_date"`
	auditColumns
}

type seasonReadModel struct {
	seasonTableModel
	ActivePhaseID sql.NullString `db:"active_phase_id"`
}

var seasonSelectColumns = []string{
	"id",
	"year",
	"name",
	"start_date",
	"end_date",
	"active_phase_id",
	"created_utc",
	"modified_utc",
	"created_by",
	"modified_by",
}

type seasonPhaseTableModel struct {
	ID           string    `db:"id"`
	SeasonID     string    `db:"season_id"`
	TypeCode     int       `db:"type_code"`
	Name         string    `db:"name"`
	Abbreviation string    `db:"abbreviation"`
	Slug         string    `db:"slug"`
	Year         int       `db:"year"`
	StartDate    time.Time `db:"start_date"`
	EndDate      time.Time `db:"end_date"`
	HasGroups    bool      `db:"has_groups"`
	HasStandings bool      `db:"has_standings"`
	HasLegs      bool      `db:"has_legs"`
	auditColumns
}

var seasonPhaseSelectColumns = []string{
	"id",
	"season_id",
	"type_code",
	"name",
	"abbreviation",
	"slug",
	"year",
	"start_date",
	"end_date",
	"has_groups",
	"has_standings",
	"has_legs",
	"created_utc",
	"modified_utc",
	"created_by",
	"modified_by",
}

type groupSeasonTableModel struct {
	ID           string         `db:"id"`
	ParentID     sql.NullString `db:"parent_id"`
	SeasonID     sql.NullString `db:"season_id"`
	SeasonYear   int            `db:"season_year"`
	Name         string         `db:"name"`
	Slug         string         `db:"slug"`
	Abbreviation string         `db:"abbreviation"`
	ShortName    string         `db:"short_name"`
	MidsizeName  sql.NullString `db:"midsize_name"`
	IsConference bool           `db:"is_conference"`
	auditColumns
}

var groupSeasonSelectColumns = []string{
	"id",
	"parent_id",
	"season_id",
	"season_year",
	"name",
	"slug",
	"abbreviation",
	"short_name",
	"midsize_name",
	"is_conference",
	"created_utc",
	"modified_utc",
	"created_by",
	"modified_by",
}
