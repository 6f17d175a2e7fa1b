package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/sportsdata-producer/internal/domain/externalid"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/franchise"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/messaging"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/sport"
	"github.com/riskibarqy/sportsdata-producer/internal/infrastructure/messaging/outbox"
	qb "github.com/riskibarqy/sportsdata-producer/internal/platform/querybuilder"
)

const defaultFranchiseListLimit = 100

type FranchiseRepository struct {
	db     *sqlx.DB
	outbox *outbox.Writer
}

func NewFranchiseRepository(db *sqlx.DB, writer *outbox.Writer) *FranchiseRepository {
	return &FranchiseRepository{db: db, outbox: writer}
}

func (r *FranchiseRepository) List(ctx context.Context, filter franchise.ListFilter) ([]franchise.Franchise, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultFranchiseListLimit
	}
	b := qb.Select(franchiseSelectColumns...).From("franchise")
	if filter.Sport != sport.All {
		b.Where(qb.Eq("sport", int(filter.Sport)))
	}
	query, args, err := b.OrderBy("slug", "id").Limit(limit).Offset(filter.Offset).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list franchises query: %w", err)
	}

	var rows []franchiseTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list franchises: %w", err)
	}
	return r.hydrate(ctx, rows)
}

func (r *FranchiseRepository) GetByID(ctx context.Context, franchiseID string) (franchise.Franchise, bool, error) {
	query, args, err := qb.Select(franchiseSelectColumns...).From("franchise").
		Where(qb.Eq("id", franchiseID)).
		ToSQL()
	if err != nil {
		return franchise.Franchise{}, false, fmt.Errorf("build get franchise query: %w", err)
	}

	var row franchiseTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return franchise.Franchise{}, false, nil
		}
		return franchise.Franchise{}, false, fmt.Errorf("get franchise: %w", err)
	}

	out, err := r.hydrate(ctx, []franchiseTableModel{row})
	if err != nil {
		return franchise.Franchise{}, false, err
	}
	return out[0], true, nil
}

func (r *FranchiseRepository) GetBySourceURLHash(ctx context.Context, provider externalid.Provider, hash string) (franchise.Franchise, bool, error) {
	franchiseID, ok, err := franchiseExternalIDs.parentBySourceURLHash(ctx, r.db, provider, hash)
	if err != nil || !ok {
		return franchise.Franchise{}, false, err
	}
	return r.GetByID(ctx, franchiseID)
}

func (r *FranchiseRepository) GetByExternalValue(ctx context.Context, provider externalid.Provider, value string) (franchise.Franchise, bool, error) {
	franchiseID, ok, err := franchiseExternalIDs.parentByValue(ctx, r.db, provider, value)
	if err != nil || !ok {
		return franchise.Franchise{}, false, err
	}
	return r.GetByID(ctx, franchiseID)
}

func (r *FranchiseRepository) Save(ctx context.Context, f franchise.Franchise, events []messaging.Event) error {
	if err := f.Validate(); err != nil {
		return err
	}

	return inTx(ctx, r.db, r.outbox, "franchise save", events, func(tx *sqlx.Tx) error {
		query, args, err := qb.UpsertModel("franchise", franchiseToRow(f), []string{"id"}, "created_utc", "created_by")
		if err != nil {
			return fmt.Errorf("build upsert franchise query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert franchise: %w", err)
		}
		if err := franchiseExternalIDs.save(ctx, tx, f.ID, f.ExternalIDs, f.Audit); err != nil {
			return err
		}
		return franchiseLogos.save(ctx, tx, f.ID, logoRows(f.Logos), f.Audit)
	})
}

func (r *FranchiseRepository) hydrate(ctx context.Context, rows []franchiseTableModel) ([]franchise.Franchise, error) {
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	externalIDs, err := franchiseExternalIDs.listByParents(ctx, r.db, ids)
	if err != nil {
		return nil, err
	}
	logos, err := franchiseLogos.listByParents(ctx, r.db, ids)
	if err != nil {
		return nil, err
	}

	out := make([]franchise.Franchise, 0, len(rows))
	for _, row := range rows {
		f := franchiseFromRow(row)
		f.ExternalIDs = externalIDs[row.ID]
		f.Logos = logosFromRows(logos[row.ID])
		out = append(out, f)
	}
	return out, nil
}

func franchiseToRow(f franchise.Franchise) franchiseTableModel {
	return franchiseTableModel{
		ID:               f.ID,
		Sport:            int(f.Sport),
		Name:             f.Name,
		Nickname:         nullString(f.Nickname),
		Abbreviation:     nullString(f.Abbreviation),
		Location:         f.Location,
		DisplayName:      f.DisplayName,
		DisplayNameShort: f.DisplayNameShort,
		ColorCodeHex:     franchise.NormalizeColor(f.ColorCodeHex),
		ColorCodeAltHex:  nullString(f.ColorCodeAltHex),
		IsActive:         f.IsActive,
		Slug:             f.Slug,
		VenueID:          nullString(f.VenueID),
		auditColumns:     auditToColumns(f.Audit),
	}
}

func franchiseFromRow(row franchiseTableModel) franchise.Franchise {
	return franchise.Franchise{
		ID:               row.ID,
		Sport:            sport.Sport(row.Sport),
		Name:             row.Name,
		Nickname:         stringPtr(row.Nickname),
		Abbreviation:     stringPtr(row.Abbreviation),
		Location:         row.Location,
		DisplayName:      row.DisplayName,
		DisplayNameShort: row.DisplayNameShort,
		ColorCodeHex:     row.ColorCodeHex,
		ColorCodeAltHex:  stringPtr(row.ColorCodeAltHex),
		IsActive:         row.IsActive,
		Slug:             row.Slug,
		VenueID:          stringPtr(row.VenueID),
		Audit:            row.toDomain(),
	}
}
