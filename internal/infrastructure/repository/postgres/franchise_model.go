package postgres

import "database/sql"

type franchiseTableModel struct {
	ID               string         `db:"id"`
	Sport            int            `db:"sport"`
	Name             string         `db:"name"`
	Nickname         sql.NullString `db:"nickname"`
	Abbreviation     sql.NullString `db:"abbreviation"`
	Location         string         `db:"location"`
	DisplayName      string         `db:"display_name"`
	DisplayNameShort string         `db:"display_name_short"`
	ColorCodeHex     string         `db:"color_code_hex"`
	ColorCodeAltHex  sql.NullString `db:"color_code_alt_hex"`
	IsActive         bool           `db:"is_active"`
	Slug             string         `db:"slug"`
	VenueID          sql.NullString `db:"venue_id"`
	auditColumns
}

var franchiseSelectColumns = []string{
	"id",
	"sport",
	"name",
	"nickname",
	"abbreviation",
	"location",
	"display_name",
	"display_name_short",
	"color_code_hex",
	"color_code_alt_hex",
	"is_active",
	"slug",
	"venue_id",
	"created_utc",
	"modified_utc",
	"created_by",
	"modified_by",
}
