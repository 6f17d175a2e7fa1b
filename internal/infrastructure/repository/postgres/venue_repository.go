package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/sportsdata-producer/internal/domain/externalid"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/messaging"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/venue"
	"github.com/riskibarqy/sportsdata-producer/internal/infrastructure/messaging/outbox"
	qb "github.com/riskibarqy/sportsdata-producer/internal/platform/querybuilder"
)

type VenueRepository struct {
	db     *sqlx.DB
	outbox *outbox.Writer
}

func NewVenueRepository(db *sqlx.DB, writer *outbox.Writer) *VenueRepository {
	return &VenueRepository{db: db, outbox: writer}
}

func (r *VenueRepository) GetByID(ctx context.Context, venueID string) (venue.Venue, bool, error) {
	query, args, err := qb.Select(venueSelectColumns...).From("venue").
		Where(qb.Eq("id", venueID)).
		ToSQL()
	if err != nil {
		return venue.Venue{}, false, fmt.Errorf("build get venue query: %w", err)
	}

	var row venueTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return venue.Venue{}, false, nil
		}
		return venue.Venue{}, false, fmt.Errorf("get venue: %w", err)
	}

	ids, err := venueExternalIDs.listByParents(ctx, r.db, []string{row.ID})
	if err != nil {
		return venue.Venue{}, false, err
	}
	images, err := venueImages.listByParents(ctx, r.db, []string{row.ID})
	if err != nil {
		return venue.Venue{}, false, err
	}

	out := venueFromRow(row)
	out.ExternalIDs = ids[row.ID]
	out.Images = venueImagesFromRows(images[row.ID])
	return out, true, nil
}

func (r *VenueRepository) GetBySourceURLHash(ctx context.Context, provider externalid.Provider, hash string) (venue.Venue, bool, error) {
	venueID, ok, err := venueExternalIDs.parentBySourceURLHash(ctx, r.db, provider, hash)
	if err != nil || !ok {
		return venue.Venue{}, false, err
	}
	return r.GetByID(ctx, venueID)
}

func (r *VenueRepository) GetByExternalValue(ctx context.Context, provider externalid.Provider, value string) (venue.Venue, bool, error) {
	venueID, ok, err := venueExternalIDs.parentByValue(ctx, r.db, provider, value)
	if err != nil || !ok {
		return venue.Venue{}, false, err
	}
	return r.GetByID(ctx, venueID)
}

func (r *VenueRepository) Save(ctx context.Context, v venue.Venue, events []messaging.Event) error {
	if err := v.Validate(); err != nil {
		return err
	}

	return inTx(ctx, r.db, r.outbox, "venue save", events, func(tx *sqlx.Tx) error {
		query, args, err := qb.UpsertModel("venue", venueToRow(v), []string{"id"}, "created_utc", "created_by")
		if err != nil {
			return fmt.Errorf("build upsert venue query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert venue: %w", err)
		}
		if err := venueExternalIDs.save(ctx, tx, v.ID, v.ExternalIDs, v.Audit); err != nil {
			return err
		}
		return venueImages.save(ctx, tx, v.ID, venueImageRows(v.Images), v.Audit)
	})
}

func venueToRow(v venue.Venue) venueTableModel {
	return venueTableModel{
		ID:           v.ID,
		Name:         v.Name,
		ShortName:    nullString(v.ShortName),
		IsGrass:      v.IsGrass,
		IsIndoor:     v.IsIndoor,
		Slug:         v.Slug,
		Capacity:     v.Capacity,
		City:         nullString(v.City),
		State:        nullString(v.State),
		PostalCode:   nullString(v.PostalCode),
		Country:      nullString(v.Country),
		Latitude:     nullFloat(v.Latitude),
		Longitude:    nullFloat(v.Longitude),
		auditColumns: auditToColumns(v.Audit),
	}
}

func venueFromRow(row venueTableModel) venue.Venue {
	return venue.Venue{
		ID:         row.ID,
		Name:       row.Name,
		ShortName:  stringPtr(row.ShortName),
		IsGrass:    row.IsGrass,
		IsIndoor:   row.IsIndoor,
		Slug:       row.Slug,
		Capacity:   row.Capacity,
		City:       stringPtr(row.City),
		State:      stringPtr(row.State),
		PostalCode: stringPtr(row.PostalCode),
		Country:    stringPtr(row.Country),
		Latitude:   floatPtr(row.Latitude),
		Longitude:  floatPtr(row.Longitude),
		Audit:      row.toDomain(),
	}
}
