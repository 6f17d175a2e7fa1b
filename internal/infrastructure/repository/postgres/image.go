package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/sportsdata-producer/internal/domain/audit"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/franchise"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/venue"
	qb "github.com/riskibarqy/sportsdata-producer/internal/platform/querybuilder"
)

// imageTable is a venue image or logo table keyed by the hash of the
// original url.
type imageTable struct {
	table     string
	parentCol string
	hasRel    bool
}

var (
	venueImages          = imageTable{table: "venue_image", parentCol: "venue_id"}
	franchiseLogos       = imageTable{table: "franchise_logo", parentCol: "franchise_id", hasRel: true}
	franchiseSeasonLogos = imageTable{table: "franchise_season_logo", parentCol: "franchise_season_id", hasRel: true}
)

type imageTableModel struct {
	ID              string         `db:"id"`
	ParentID        string         `db:"parent_id"`
	OriginalURLHash string         `db:"original_url_hash"`
	URI             string         `db:"uri"`
	Height          sql.NullInt64  `db:"height"`
	Width           sql.NullInt64  `db:"width"`
	Rel             sql.NullString `db:"rel"`
}

func (t imageTable) listByParents(ctx context.Context, q sqlx.QueryerContext, parentIDs []string) (map[string][]imageTableModel, error) {
	out := make(map[string][]imageTableModel, len(parentIDs))
	if len(parentIDs) == 0 {
		return out, nil
	}

	rel := "NULL::text AS rel"
	if t.hasRel {
		rel = "rel"
	}
	query, args, err := qb.Select("id", t.parentCol+" AS parent_id", "original_url_hash", "uri", "height", "width", rel).
		From(t.table).
		Where(qb.In(t.parentCol, stringSliceToAny(parentIDs))).
		OrderBy("created_utc", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list %s query: %w", t.table, err)
	}

	var rows []imageTableModel
	if err := sqlx.SelectContext(ctx, q, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list %s: %w", t.table, err)
	}
	for _, row := range rows {
		out[row.ParentID] = append(out[row.ParentID], row)
	}
	return out, nil
}

// save inserts rows whose original url hash is not yet stored for parentID.
// Existing images are never rewritten.
func (t imageTable) save(ctx context.Context, tx sqlx.ExtContext, parentID string, rows []imageTableModel, parent audit.Audit) error {
	if len(rows) == 0 {
		return nil
	}

	existing, err := t.listByParents(ctx, tx, []string{parentID})
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(existing[parentID]))
	for _, row := range existing[parentID] {
		known[row.OriginalURLHash] = true
	}

	cols := []string{"id", t.parentCol, "original_url_hash", "uri", "height", "width", "created_utc", "created_by"}
	if t.hasRel {
		cols = append(cols, "rel")
	}
	at, by := stamp(parent)
	b := qb.InsertInto(t.table).Columns(cols...)
	pending := 0
	for _, row := range rows {
		if known[row.OriginalURLHash] {
			continue
		}
		known[row.OriginalURLHash] = true
		values := []any{row.ID, parentID, row.OriginalURLHash, row.URI, row.Height, row.Width, at, by}
		if t.hasRel {
			values = append(values, row.Rel)
		}
		b.Values(values...)
		pending++
	}
	if pending == 0 {
		return nil
	}

	query, args, err := b.ToSQL()
	if err != nil {
		return fmt.Errorf("build insert %s query: %w", t.table, err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert %s: %w", t.table, err)
	}
	return nil
}

func venueImageRows(images []venue.Image) []imageTableModel {
	out := make([]imageTableModel, 0, len(images))
	for _, img := range images {
		out = append(out, imageTableModel{
			ID:              img.ID,
			OriginalURLHash: img.OriginalURLHash,
			URI:             img.URI,
			Height:          nullInt64(img.Height),
			Width:           nullInt64(img.Width),
		})
	}
	return out
}

func venueImagesFromRows(rows []imageTableModel) []venue.Image {
	out := make([]venue.Image, 0, len(rows))
	for _, row := range rows {
		out = append(out, venue.Image{
			ID:              row.ID,
			VenueID:         row.ParentID,
			OriginalURLHash: row.OriginalURLHash,
			URI:             row.URI,
			Height:          int64Ptr(row.Height),
			Width:           int64Ptr(row.Width),
		})
	}
	return out
}

func logoRows(logos []franchise.Logo) []imageTableModel {
	out := make([]imageTableModel, 0, len(logos))
	for _, l := range logos {
		row := imageTableModel{
			ID:              l.ID,
			OriginalURLHash: l.OriginalURLHash,
			URI:             l.URI,
			Height:          nullInt64(l.Height),
			Width:           nullInt64(l.Width),
		}
		if len(l.Rel) > 0 {
			row.Rel = sql.NullString{String: strings.Join(l.Rel, ","), Valid: true}
		}
		out = append(out, row)
	}
	return out
}

func logosFromRows(rows []imageTableModel) []franchise.Logo {
	out := make([]franchise.Logo, 0, len(rows))
	for _, row := range rows {
		logo := franchise.Logo{
			ID:              row.ID,
			ParentID:        row.ParentID,
			OriginalURLHash: row.OriginalURLHash,
			URI:             row.URI,
			Height:          int64Ptr(row.Height),
			Width:           int64Ptr(row.Width),
		}
		if row.Rel.Valid && row.Rel.String != "" {
			logo.Rel = strings.Split(row.Rel.String, ",")
		}
		out = append(out, logo)
	}
	return out
}
