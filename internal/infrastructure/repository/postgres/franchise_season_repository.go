package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/sportsdata-producer/internal/domain/externalid"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/franchiseseason"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/messaging"
	"github.com/riskibarqy/sportsdata-producer/internal/infrastructure/messaging/outbox"
	qb "github.com/riskibarqy/sportsdata-producer/internal/platform/querybuilder"
)

type FranchiseSeasonRepository struct {
	db     *sqlx.DB
	outbox *outbox.Writer
}

func NewFranchiseSeasonRepository(db *sqlx.DB, writer *outbox.Writer) *FranchiseSeasonRepository {
	return &FranchiseSeasonRepository{db: db, outbox: writer}
}

func (r *FranchiseSeasonRepository) GetByID(ctx context.Context, franchiseSeasonID string) (franchiseseason.FranchiseSeason, bool, error) {
	return r.getOne(ctx, "get franchise season", qb.Eq("id", franchiseSeasonID))
}

func (r *FranchiseSeasonRepository) GetBySourceURLHash(ctx context.Context, provider externalid.Provider, hash string) (franchiseseason.FranchiseSeason, bool, error) {
	franchiseSeasonID, ok, err := franchiseSeasonExternalIDs.parentBySourceURLHash(ctx, r.db, provider, hash)
	if err != nil || !ok {
		return franchiseseason.FranchiseSeason{}, false, err
	}
	return r.GetByID(ctx, franchiseSeasonID)
}

func (r *FranchiseSeasonRepository) GetByFranchiseAndYear(ctx context.Context, franchiseID string, seasonYear int) (franchiseseason.FranchiseSeason, bool, error) {
	return r.getOne(ctx, "get franchise season by franchise and year",
		qb.Eq("franchise_id", franchiseID),
		qb.Eq("season_year", seasonYear),
	)
}

func (r *FranchiseSeasonRepository) ListByFranchise(ctx context.Context, franchiseID string) ([]franchiseseason.FranchiseSeason, error) {
	return r.list(ctx, "list franchise seasons by franchise", qb.Eq("franchise_id", franchiseID))
}

func (r *FranchiseSeasonRepository) ListBySeasonYear(ctx context.Context, seasonYear int) ([]franchiseseason.FranchiseSeason, error) {
	return r.list(ctx, "list franchise seasons by year", qb.Eq("season_year", seasonYear))
}

func (r *FranchiseSeasonRepository) Save(ctx context.Context, fs franchiseseason.FranchiseSeason, events []messaging.Event) error {
	if err := fs.Validate(); err != nil {
		return err
	}

	return inTx(ctx, r.db, r.outbox, "franchise season save", events, func(tx *sqlx.Tx) error {
		// Results belong to enrichment and survive a re-import of the season.
		keep := append([]string{"created_utc", "created_by"}, franchiseSeasonResultColumnNames...)
		query, args, err := qb.UpsertModel("franchise_season", franchiseSeasonToRow(fs), []string{"id"}, keep...)
		if err != nil {
			return fmt.Errorf("build upsert franchise season query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert franchise season: %w", err)
		}
		if err := franchiseSeasonExternalIDs.save(ctx, tx, fs.ID, fs.ExternalIDs, fs.Audit); err != nil {
			return err
		}
		if err := franchiseSeasonLogos.save(ctx, tx, fs.ID, logoRows(fs.Logos), fs.Audit); err != nil {
			return err
		}
		return r.replaceRecords(ctx, tx, fs)
	})
}

func (r *FranchiseSeasonRepository) SaveEnrichment(ctx context.Context, fs franchiseseason.FranchiseSeason, events []messaging.Event) error {
	if fs.ID == "" {
		return fmt.Errorf("franchise season id is required")
	}

	return inTx(ctx, r.db, r.outbox, "franchise season enrichment", events, func(tx *sqlx.Tx) error {
		res := franchiseSeasonResultsToColumns(fs)
		at, by := stamp(fs.Audit)
		query, args, err := qb.Update("franchise_season").
			Set("wins", res.Wins).
			Set("losses", res.Losses).
			Set("ties", res.Ties).
			Set("conference_wins", res.ConferenceWins).
			Set("conference_losses", res.ConferenceLosses).
			Set("conference_ties", res.ConferenceTies).
			Set("pts_scored_min", res.PtsScoredMin).
			Set("pts_scored_max", res.PtsScoredMax).
			Set("pts_scored_avg", res.PtsScoredAvg).
			Set("pts_allowed_min", res.PtsAllowedMin).
			Set("pts_allowed_max", res.PtsAllowedMax).
			Set("pts_allowed_avg", res.PtsAllowedAvg).
			Set("margin_win_min", res.MarginWinMin).
			Set("margin_win_max", res.MarginWinMax).
			Set("margin_win_avg", res.MarginWinAvg).
			Set("margin_loss_min", res.MarginLossMin).
			Set("margin_loss_max", res.MarginLossMax).
			Set("margin_loss_avg", res.MarginLossAvg).
			Set("modified_utc", at).
			Set("modified_by", by).
			Where(qb.Eq("id", fs.ID)).
			ToSQL()
		if err != nil {
			return fmt.Errorf("build update franchise season enrichment query: %w", err)
		}
		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("update franchise season enrichment: %w", err)
		}
		if n, err := result.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("update franchise season enrichment: %w", sql.ErrNoRows)
		}
		return nil
	})
}

// replaceRecords swaps the record lines when the document carried any.
func (r *FranchiseSeasonRepository) replaceRecords(ctx context.Context, tx *sqlx.Tx, fs franchiseseason.FranchiseSeason) error {
	if len(fs.Records) == 0 {
		return nil
	}

	query, args, err := qb.DeleteFrom("franchise_season_record").
		Where(qb.Eq("franchise_season_id", fs.ID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build delete franchise season records query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete franchise season records: %w", err)
	}

	at, by := stamp(fs.Audit)
	rows := make([]franchiseSeasonRecordInsertModel, 0, len(fs.Records))
	for _, rec := range fs.Records {
		rows = append(rows, franchiseSeasonRecordInsertModel{
			ID:                rec.ID,
			FranchiseSeasonID: fs.ID,
			FranchiseID:       fs.FranchiseID,
			SeasonYear:        fs.SeasonYear,
			Name:              rec.Name,
			Abbreviation:      nullString(rec.Abbreviation),
			DisplayName:       rec.DisplayName,
			ShortDisplayName:  rec.ShortDisplayName,
			Description:       nullString(rec.Description),
			Type:              rec.Type,
			Summary:           rec.Summary,
			DisplayValue:      rec.DisplayValue,
			Value:             rec.Value,
			CreatedUTC:        at,
			CreatedBy:         by,
		})
	}
	query, args, err = qb.InsertModels("franchise_season_record", rows, "")
	if err != nil {
		return fmt.Errorf("build insert franchise season records query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert franchise season records: %w", err)
	}
	return nil
}

func (r *FranchiseSeasonRepository) getOne(ctx context.Context, op string, where ...qb.Condition) (franchiseseason.FranchiseSeason, bool, error) {
	query, args, err := qb.Select(franchiseSeasonSelectColumns...).From("franchise_season").
		Where(where...).
		Limit(1).
		ToSQL()
	if err != nil {
		return franchiseseason.FranchiseSeason{}, false, fmt.Errorf("build %s query: %w", op, err)
	}

	var row franchiseSeasonTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return franchiseseason.FranchiseSeason{}, false, nil
		}
		return franchiseseason.FranchiseSeason{}, false, fmt.Errorf("%s: %w", op, err)
	}

	out, err := r.hydrate(ctx, []franchiseSeasonTableModel{row})
	if err != nil {
		return franchiseseason.FranchiseSeason{}, false, err
	}
	return out[0], true, nil
}

func (r *FranchiseSeasonRepository) list(ctx context.Context, op string, where ...qb.Condition) ([]franchiseseason.FranchiseSeason, error) {
	query, args, err := qb.Select(franchiseSeasonSelectColumns...).From("franchise_season").
		Where(where...).
		OrderBy("season_year", "slug").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build %s query: %w", op, err)
	}

	var rows []franchiseSeasonTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return r.hydrate(ctx, rows)
}

func (r *FranchiseSeasonRepository) hydrate(ctx context.Context, rows []franchiseSeasonTableModel) ([]franchiseseason.FranchiseSeason, error) {
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	externalIDs, err := franchiseSeasonExternalIDs.listByParents(ctx, r.db, ids)
	if err != nil {
		return nil, err
	}
	logos, err := franchiseSeasonLogos.listByParents(ctx, r.db, ids)
	if err != nil {
		return nil, err
	}

	out := make([]franchiseseason.FranchiseSeason, 0, len(rows))
	for _, row := range rows {
		fs := franchiseSeasonFromRow(row)
		fs.ExternalIDs = externalIDs[row.ID]
		fs.Logos = logosFromRows(logos[row.ID])
		out = append(out, fs)
	}
	return out, nil
}

func franchiseSeasonToRow(fs franchiseseason.FranchiseSeason) franchiseSeasonTableModel {
	return franchiseSeasonTableModel{
		ID:                           fs.ID,
		FranchiseID:                  fs.FranchiseID,
		VenueID:                      nullString(fs.VenueID),
		GroupSeasonID:                nullString(fs.GroupSeasonID),
		SeasonYear:                   fs.SeasonYear,
		Slug:                         fs.Slug,
		Location:                     fs.Location,
		Name:                         fs.Name,
		Abbreviation:                 nullString(fs.Abbreviation),
		DisplayName:                  fs.DisplayName,
		DisplayNameShort:             fs.DisplayNameShort,
		ColorCodeHex:                 fs.ColorCodeHex,
		ColorCodeAltHex:              nullString(fs.ColorCodeAltHex),
		IsActive:                     fs.IsActive,
		IsAllStar:                    fs.IsAllStar,
		franchiseSeasonResultColumns: franchiseSeasonResultsToColumns(fs),
		auditColumns:                 auditToColumns(fs.Audit),
	}
}

func franchiseSeasonResultsToColumns(fs franchiseseason.FranchiseSeason) franchiseSeasonResultColumns {
	s := fs.Scoring
	return franchiseSeasonResultColumns{
		Wins:             fs.Wins,
		Losses:           fs.Losses,
		Ties:             fs.Ties,
		ConferenceWins:   fs.ConferenceWins,
		ConferenceLosses: fs.ConferenceLosses,
		ConferenceTies:   fs.ConferenceTies,
		PtsScoredMin:     nullInt(s.PtsScored.Min),
		PtsScoredMax:     nullInt(s.PtsScored.Max),
		PtsScoredAvg:     nullFloat(s.PtsScored.Avg),
		PtsAllowedMin:    nullInt(s.PtsAllowed.Min),
		PtsAllowedMax:    nullInt(s.PtsAllowed.Max),
		PtsAllowedAvg:    nullFloat(s.PtsAllowed.Avg),
		MarginWinMin:     nullInt(s.MarginWin.Min),
		MarginWinMax:     nullInt(s.MarginWin.Max),
		MarginWinAvg:     nullFloat(s.MarginWin.Avg),
		MarginLossMin:    nullInt(s.MarginLoss.Min),
		MarginLossMax:    nullInt(s.MarginLoss.Max),
		MarginLossAvg:    nullFloat(s.MarginLoss.Avg),
	}
}

func franchiseSeasonFromRow(row franchiseSeasonTableModel) franchiseseason.FranchiseSeason {
	res := row.franchiseSeasonResultColumns
	return franchiseseason.FranchiseSeason{
		ID:               row.ID,
		FranchiseID:      row.FranchiseID,
		VenueID:          stringPtr(row.VenueID),
		GroupSeasonID:    stringPtr(row.GroupSeasonID),
		SeasonYear:       row.SeasonYear,
		Slug:             row.Slug,
		Location:         row.Location,
		Name:             row.Name,
		Abbreviation:     stringPtr(row.Abbreviation),
		DisplayName:      row.DisplayName,
		DisplayNameShort: row.DisplayNameShort,
		ColorCodeHex:     row.ColorCodeHex,
		ColorCodeAltHex:  stringPtr(row.ColorCodeAltHex),
		IsActive:         row.IsActive,
		IsAllStar:        row.IsAllStar,
		Wins:             res.Wins,
		Losses:           res.Losses,
		Ties:             res.Ties,
		ConferenceWins:   res.ConferenceWins,
		ConferenceLosses: res.ConferenceLosses,
		ConferenceTies:   res.ConferenceTies,
		Scoring: franchiseseason.Scoring{
			PtsScored:  franchiseseason.Stat{Min: intPtr(res.PtsScoredMin), Max: intPtr(res.PtsScoredMax), Avg: floatPtr(res.PtsScoredAvg)},
			PtsAllowed: franchiseseason.Stat{Min: intPtr(res.PtsAllowedMin), Max: intPtr(res.PtsAllowedMax), Avg: floatPtr(res.PtsAllowedAvg)},
			MarginWin:  franchiseseason.Stat{Min: intPtr(res.MarginWinMin), Max: intPtr(res.MarginWinMax), Avg: floatPtr(res.MarginWinAvg)},
			MarginLoss: franchiseseason.Stat{Min: intPtr(res.MarginLossMin), Max: intPtr(res.MarginLossMax), Avg: floatPtr(res.MarginLossAvg)},
		},
		Audit: row.toDomain(),
	}
}
