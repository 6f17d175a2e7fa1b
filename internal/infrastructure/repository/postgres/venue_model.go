package postgres

import "database/sql"

type venueTableModel struct {
	ID         string          `db:"id"`
	Name       string          `db:"name"`
	ShortName  sql.NullString  `db:"short_name"`
	IsGrass    bool            `db:"is_grass"`
	IsIndoor   bool            `db:"is_indoor"`
	Slug       string          `db:"slug"`
	Capacity   int             `db:"capacity"`
	City       sql.NullString  `db:"city"`
	State      sql.NullString  `db:"state"`
	PostalCode sql.NullString  `db:"postal_code"`
	Country    sql.NullString  `db:"country"`
	Latitude   sql.NullFloat64 `db:"latitude"`
	Longitude  sql.NullFloat64 `db:"longitude"`
	auditColumns
}

var venueSelectColumns = []string{
	"id",
	"name",
	"short_name",
	"is_grass",
	"is_indoor",
	"slug",
	"capacity",
	"city",
	"state",
	"postal_code",
	"country",
	"latitude",
	"longitude",
	"created_utc",
	"modified_utc",
	"created_by",
	"modified_by",
}
