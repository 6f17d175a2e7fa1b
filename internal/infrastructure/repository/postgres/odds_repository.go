package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/sportsdata-producer/internal/domain/contest"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/messaging"
	"github.com/riskibarqy/sportsdata-producer/internal/infrastructure/messaging/outbox"
	qb "github.com/riskibarqy/sportsdata-producer/internal/platform/querybuilder"
)

type OddsRepository struct {
	db     *sqlx.DB
	outbox *outbox.Writer
}

func NewOddsRepository(db *sqlx.DB, writer *outbox.Writer) *OddsRepository {
	return &OddsRepository{db: db, outbox: writer}
}

func (r *OddsRepository) GetByCompetitionAndProvider(ctx context.Context, competitionID, providerID string) (contest.Odds, bool, error) {
	query, args, err := qb.Select(oddsSelectColumns...).From("competition_odds").
		Where(
			qb.Eq("competition_id", competitionID),
			qb.Eq("provider_id", providerID),
		).
		ToSQL()
	if err != nil {
		return contest.Odds{}, false, fmt.Errorf("build get competition odds query: %w", err)
	}

	var row oddsTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return contest.Odds{}, false, nil
		}
		return contest.Odds{}, false, fmt.Errorf("get competition odds: %w", err)
	}
	return oddsFromRow(row), true, nil
}

func (r *OddsRepository) ListByCompetition(ctx context.Context, competitionID string) ([]contest.Odds, error) {
	grouped, err := listOdds(ctx, r.db, []string{competitionID})
	if err != nil {
		return nil, err
	}
	return grouped[competitionID], nil
}

func (r *OddsRepository) Upsert(ctx context.Context, o contest.Odds, events []messaging.Event) error {
	if err := o.Validate(); err != nil {
		return err
	}

	return inTx(ctx, r.db, r.outbox, "competition odds upsert", events, func(tx *sqlx.Tx) error {
		query, args, err := qb.UpsertModel("competition_odds", oddsToRow(o),
			[]string{"competition_id", "provider_id"},
			"id", "created_utc", "created_by",
		)
		if err != nil {
			return fmt.Errorf("build upsert competition odds query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert competition odds %s/%s: %w", o.CompetitionID, o.ProviderID, err)
		}
		return nil
	})
}

func listOdds(ctx context.Context, q sqlx.QueryerContext, competitionIDs []string) (map[string][]contest.Odds, error) {
	out := make(map[string][]contest.Odds, len(competitionIDs))
	if len(competitionIDs) == 0 {
		return out, nil
	}

	query, args, err := qb.Select(oddsSelectColumns...).From("competition_odds").
		Where(qb.In("competition_id", stringSliceToAny(competitionIDs))).
		OrderBy("provider_priority DESC", "provider_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list competition odds query: %w", err)
	}

	var rows []oddsTableModel
	if err := sqlx.SelectContext(ctx, q, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list competition odds: %w", err)
	}
	for _, row := range rows {
		out[row.CompetitionID] = append(out[row.CompetitionID], oddsFromRow(row))
	}
	return out, nil
}

func oddsToRow(o contest.Odds) oddsTableModel {
	hash := o.ContentHash
	return oddsTableModel{
		ID:               o.ID,
		CompetitionID:    o.CompetitionID,
		ProviderRef:      o.ProviderRef,
		ProviderID:       o.ProviderID,
		ProviderName:     o.ProviderName,
		ProviderPriority: o.ProviderPriority,
		Details:          nullString(o.Details),
		OverUnder:        nullFloat(o.OverUnder),
		Spread:           nullFloat(o.Spread),
		OverOdds:         nullFloat(o.OverOdds),
		UnderOdds:        nullFloat(o.UnderOdds),
		MoneylineWinner:  nullBool(o.MoneylineWinner),
		SpreadWinner:     nullBool(o.SpreadWinner),
		ContentHash:      nullString(&hash),
		auditColumns:     auditToColumns(o.Audit),
	}
}

func oddsFromRow(row oddsTableModel) contest.Odds {
	return contest.Odds{
		ID:               row.ID,
		CompetitionID:    row.CompetitionID,
		ProviderRef:      row.ProviderRef,
		ProviderID:       row.ProviderID,
		ProviderName:     row.ProviderName,
		ProviderPriority: row.ProviderPriority,
		Details:          stringPtr(row.Details),
		OverUnder:        floatPtr(row.OverUnder),
		Spread:           floatPtr(row.Spread),
		OverOdds:         floatPtr(row.OverOdds),
		UnderOdds:        floatPtr(row.UnderOdds),
		MoneylineWinner:  boolPtr(row.MoneylineWinner),
		SpreadWinner:     boolPtr(row.SpreadWinner),
		ContentHash:      row.ContentHash.String,
		Audit:            row.toDomain(),
	}
}
