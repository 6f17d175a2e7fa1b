package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/sportsdata-producer/internal/domain/contest"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/externalid"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/messaging"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/sport"
	"github.com/riskibarqy/sportsdata-producer/internal/infrastructure/messaging/outbox"
	qb "github.com/riskibarqy/sportsdata-producer/internal/platform/querybuilder"
)

type ContestRepository struct {
	db     *sqlx.DB
	outbox *outbox.Writer
}

func NewContestRepository(db *sqlx.DB, writer *outbox.Writer) *ContestRepository {
	return &ContestRepository{db: db, outbox: writer}
}

func (r *ContestRepository) GetByID(ctx context.Context, contestID string) (contest.Contest, bool, error) {
	query, args, err := qb.Select(contestSelectColumns...).From("contest").
		Where(qb.Eq("id", contestID)).
		ToSQL()
	if err != nil {
		return contest.Contest{}, false, fmt.Errorf("build get contest query: %w", err)
	}

	var row contestTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return contest.Contest{}, false, nil
		}
		return contest.Contest{}, false, fmt.Errorf("get contest: %w", err)
	}

	out, err := r.hydrate(ctx, []contestTableModel{row}, true)
	if err != nil {
		return contest.Contest{}, false, err
	}
	return out[0], true, nil
}

func (r *ContestRepository) GetBySourceURLHash(ctx context.Context, provider externalid.Provider, hash string) (contest.Contest, bool, error) {
	contestID, ok, err := contestExternalIDs.parentBySourceURLHash(ctx, r.db, provider, hash)
	if err != nil || !ok {
		return contest.Contest{}, false, err
	}
	return r.GetByID(ctx, contestID)
}

func (r *ContestRepository) GetCompetition(ctx context.Context, competitionID string) (contest.Competition, bool, error) {
	query, args, err := qb.Select(competitionSelectColumns...).From("competition").
		Where(qb.Eq("id", competitionID)).
		ToSQL()
	if err != nil {
		return contest.Competition{}, false, fmt.Errorf("build get competition query: %w", err)
	}

	var row competitionTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return contest.Competition{}, false, nil
		}
		return contest.Competition{}, false, fmt.Errorf("get competition: %w", err)
	}

	out, err := r.competitions(ctx, []competitionTableModel{row}, true)
	if err != nil {
		return contest.Competition{}, false, err
	}
	return out[row.ContestID][0], true, nil
}

// ListFinalizedByFranchiseSeason returns finalized contests where the
// franchise season played either side, oldest first.
func (r *ContestRepository) ListFinalizedByFranchiseSeason(ctx context.Context, franchiseSeasonID string) ([]contest.Contest, error) {
	query, args, err := qb.Select(contestSelectColumns...).From("contest").
		Where(
			qb.Expr("(home_team_franchise_season_id = ? OR away_team_franchise_season_id = ?)", franchiseSeasonID, franchiseSeasonID),
			qb.Expr("finalized_utc IS NOT NULL"),
		).
		OrderBy("start_date_utc", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list finalized contests query: %w", err)
	}

	var rows []contestTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list finalized contests: %w", err)
	}
	return r.hydrate(ctx, rows, false)
}

// Save upserts the contest, its competitions and competitors. Outcome
// columns are owned by SaveOutcome and survive a re-import.
func (r *ContestRepository) Save(ctx context.Context, c contest.Contest, events []messaging.Event) error {
	if err := c.Validate(); err != nil {
		return err
	}

	return inTx(ctx, r.db, r.outbox, "contest save", events, func(tx *sqlx.Tx) error {
		keep := append([]string{"created_utc", "created_by"}, contestOutcomeColumnNames...)
		query, args, err := qb.UpsertModel("contest", contestToRow(c), []string{"id"}, keep...)
		if err != nil {
			return fmt.Errorf("build upsert contest query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert contest: %w", err)
		}
		if err := contestExternalIDs.save(ctx, tx, c.ID, c.ExternalIDs, c.Audit); err != nil {
			return err
		}

		for _, comp := range c.Competitions {
			if err := r.saveCompetition(ctx, tx, c, comp); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *ContestRepository) saveCompetition(ctx context.Context, tx *sqlx.Tx, c contest.Contest, comp contest.Competition) error {
	row := competitionTableModel{
		ID:                      comp.ID,
		ContestID:               c.ID,
		Date:                    comp.Date.UTC(),
		Attendance:              comp.Attendance,
		IsTimeValid:             comp.IsTimeValid,
		IsDateValid:             comp.IsDateValid,
		IsNeutralSite:           comp.IsNeutralSite,
		IsConferenceCompetition: comp.IsConferenceCompetition,
		IsDivisionCompetition:   comp.IsDivisionCompetition,
		IsRecent:                comp.IsRecent,
		IsBoxscoreAvailable:     comp.IsBoxscoreAvailable,
		IsPlayByPlayAvailable:   comp.IsPlayByPlayAvailable,
		TypeID:                  nullString(comp.TypeID),
		TypeName:                nullString(comp.TypeName),
		VenueID:                 nullString(comp.VenueID),
		auditColumns:            childAudit(c.Audit),
	}
	query, args, err := qb.UpsertModel("competition", row, []string{"id"}, "created_utc", "created_by")
	if err != nil {
		return fmt.Errorf("build upsert competition query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert competition %s: %w", comp.ID, err)
	}
	if err := competitionExternalIDs.save(ctx, tx, comp.ID, comp.ExternalIDs, c.Audit); err != nil {
		return err
	}

	for _, cc := range comp.Competitors {
		row := competitorTableModel{
			ID:                 cc.ID,
			CompetitionID:      comp.ID,
			FranchiseSeasonID:  cc.FranchiseSeasonID,
			Type:               cc.Type,
			SortOrder:          cc.SortOrder,
			HomeAway:           cc.HomeAway,
			Winner:             cc.Winner,
			CuratedRankCurrent: nullInt(cc.CuratedRankCurrent),
			auditColumns:       childAudit(c.Audit),
		}
		query, args, err := qb.UpsertModel("competition_competitor", row,
			[]string{"competition_id", "franchise_season_id"},
			"id", "created_utc", "created_by",
		)
		if err != nil {
			return fmt.Errorf("build upsert competitor query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert competitor %s: %w", cc.FranchiseSeasonID, err)
		}
	}
	return nil
}

func (r *ContestRepository) SaveOutcome(ctx context.Context, c contest.Contest, events []messaging.Event) error {
	if c.ID == "" {
		return fmt.Errorf("contest id is required")
	}
	if !c.IsFinalized() {
		return fmt.Errorf("contest %s outcome requires scores and a finalized time", c.ID)
	}

	return inTx(ctx, r.db, r.outbox, "contest outcome", events, func(tx *sqlx.Tx) error {
		at, by := stamp(c.Audit)
		query, args, err := qb.Update("contest").
			Set("home_score", nullInt(c.HomeScore)).
			Set("away_score", nullInt(c.AwayScore)).
			Set("winner_franchise_id", nullString(c.WinnerFranchiseID)).
			Set("spread_winner_franchise_id", nullString(c.SpreadWinnerFranchiseID)).
			Set("over_under", int(c.OverUnder)).
			Set("finalized_utc", nullTime(c.FinalizedUTC)).
			Set("modified_utc", at).
			Set("modified_by", by).
			Where(qb.Eq("id", c.ID)).
			ToSQL()
		if err != nil {
			return fmt.Errorf("build update contest outcome query: %w", err)
		}
		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("update contest outcome: %w", err)
		}
		if n, err := result.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("update contest outcome: %w", sql.ErrNoRows)
		}

		homeWon := *c.HomeScore > *c.AwayScore
		awayWon := *c.AwayScore > *c.HomeScore
		query, args, err = qb.Update("competition_competitor").
			SetExpr("winner", "CASE home_away WHEN 'home' THEN ?::boolean ELSE ?::boolean END", homeWon, awayWon).
			Set("modified_utc", at).
			Set("modified_by", by).
			Where(qb.Expr("competition_id IN (SELECT id FROM competition WHERE contest_id = ?)", c.ID)).
			ToSQL()
		if err != nil {
			return fmt.Errorf("build update competitor winners query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("update competitor winners: %w", err)
		}
		return nil
	})
}

func (r *ContestRepository) hydrate(ctx context.Context, rows []contestTableModel, withOdds bool) ([]contest.Contest, error) {
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	externalIDs, err := contestExternalIDs.listByParents(ctx, r.db, ids)
	if err != nil {
		return nil, err
	}

	var compRows []competitionTableModel
	if len(ids) > 0 {
		query, args, err := qb.Select(competitionSelectColumns...).From("competition").
			Where(qb.In("contest_id", stringSliceToAny(ids))).
			OrderBy("date", "id").
			ToSQL()
		if err != nil {
			return nil, fmt.Errorf("build list competitions query: %w", err)
		}
		if err := r.db.SelectContext(ctx, &compRows, query, args...); err != nil {
			return nil, fmt.Errorf("list competitions: %w", err)
		}
	}
	comps, err := r.competitions(ctx, compRows, withOdds)
	if err != nil {
		return nil, err
	}

	out := make([]contest.Contest, 0, len(rows))
	for _, row := range rows {
		c := contestFromRow(row)
		c.ExternalIDs = externalIDs[row.ID]
		c.Competitions = comps[row.ID]
		out = append(out, c)
	}
	return out, nil
}

// competitions loads children for rows and groups them by contest id.
func (r *ContestRepository) competitions(ctx context.Context, rows []competitionTableModel, withOdds bool) (map[string][]contest.Competition, error) {
	out := make(map[string][]contest.Competition, len(rows))
	if len(rows) == 0 {
		return out, nil
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}

	externalIDs, err := competitionExternalIDs.listByParents(ctx, r.db, ids)
	if err != nil {
		return nil, err
	}

	query, args, err := qb.Select(competitorSelectColumns...).From("competition_competitor").
		Where(qb.In("competition_id", stringSliceToAny(ids))).
		OrderBy("sort_order", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list competitors query: %w", err)
	}
	var competitorRows []competitorTableModel
	if err := r.db.SelectContext(ctx, &competitorRows, query, args...); err != nil {
		return nil, fmt.Errorf("list competitors: %w", err)
	}
	competitors := make(map[string][]contest.Competitor, len(rows))
	for _, row := range competitorRows {
		competitors[row.CompetitionID] = append(competitors[row.CompetitionID], contest.Competitor{
			ID:                 row.ID,
			CompetitionID:      row.CompetitionID,
			FranchiseSeasonID:  row.FranchiseSeasonID,
			Type:               row.Type,
			SortOrder:          row.SortOrder,
			HomeAway:           row.HomeAway,
			Winner:             row.Winner,
			CuratedRankCurrent: intPtr(row.CuratedRankCurrent),
		})
	}

	odds := map[string][]contest.Odds{}
	if withOdds {
		odds, err = listOdds(ctx, r.db, ids)
		if err != nil {
			return nil, err
		}
	}

	for _, row := range rows {
		out[row.ContestID] = append(out[row.ContestID], contest.Competition{
			ID:                      row.ID,
			ContestID:               row.ContestID,
			Date:                    row.Date,
			Attendance:              row.Attendance,
			IsTimeValid:             row.IsTimeValid,
			IsDateValid:             row.IsDateValid,
			IsNeutralSite:           row.IsNeutralSite,
			IsConferenceCompetition: row.IsConferenceCompetition,
			IsDivisionCompetition:   row.IsDivisionCompetition,
			IsRecent:                row.IsRecent,
			IsBoxscoreAvailable:     row.IsBoxscoreAvailable,
			IsPlayByPlayAvailable:   row.IsPlayByPlayAvailable,
			TypeID:                  stringPtr(row.TypeID),
			TypeName:                stringPtr(row.TypeName),
			VenueID:                 stringPtr(row.VenueID),
			ExternalIDs:             externalIDs[row.ID],
			Competitors:             competitors[row.ID],
			Odds:                    odds[row.ID],
		})
	}
	return out, nil
}

func contestToRow(c contest.Contest) contestTableModel {
	return contestTableModel{
		ID:                    c.ID,
		Name:                  c.Name,
		ShortName:             c.ShortName,
		HomeFranchiseSeasonID: c.HomeFranchiseSeasonID,
		AwayFranchiseSeasonID: c.AwayFranchiseSeasonID,
		StartDateUTC:          c.StartDateUTC.UTC(),
		EndDateUTC:            nullTime(c.EndDateUTC),
		Period:                c.Period,
		Sport:                 int(c.Sport),
		SeasonYear:            c.SeasonYear,
		Week:                  nullInt(c.Week),
		SeasonPhaseID:         nullString(c.SeasonPhaseID),
		EventNote:             nullString(c.EventNote),
		VenueID:               nullString(c.VenueID),
		contestOutcomeColumns: contestOutcomeColumns{
			HomeScore:               nullInt(c.HomeScore),
			AwayScore:               nullInt(c.AwayScore),
			WinnerFranchiseID:       nullString(c.WinnerFranchiseID),
			SpreadWinnerFranchiseID: nullString(c.SpreadWinnerFranchiseID),
			OverUnder:               int(c.OverUnder),
			FinalizedUTC:            nullTime(c.FinalizedUTC),
		},
		auditColumns: auditToColumns(c.Audit),
	}
}

func contestFromRow(row contestTableModel) contest.Contest {
	return contest.Contest{
		ID:                      row.ID,
		Name:                    row.Name,
		ShortName:               row.ShortName,
		HomeFranchiseSeasonID:   row.HomeFranchiseSeasonID,
		AwayFranchiseSeasonID:   row.AwayFranchiseSeasonID,
		StartDateUTC:            row.StartDateUTC,
		EndDateUTC:              timePtr(row.EndDateUTC),
		Period:                  row.Period,
		Sport:                   sport.Sport(row.Sport),
		SeasonYear:              row.SeasonYear,
		Week:                    intPtr(row.Week),
		SeasonPhaseID:           stringPtr(row.SeasonPhaseID),
		EventNote:               stringPtr(row.EventNote),
		VenueID:                 stringPtr(row.VenueID),
		HomeScore:               intPtr(row.HomeScore),
		AwayScore:               intPtr(row.AwayScore),
		WinnerFranchiseID:       stringPtr(row.WinnerFranchiseID),
		SpreadWinnerFranchiseID: stringPtr(row.SpreadWinnerFranchiseID),
		OverUnder:               contest.OverUnder(row.OverUnder),
		FinalizedUTC:            timePtr(row.FinalizedUTC),
		Audit:                   row.toDomain(),
	}
}
