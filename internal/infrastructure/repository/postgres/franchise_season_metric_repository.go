package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/sportsdata-producer/internal/domain/franchiseseason"
	qb "github.com/riskibarqy/sportsdata-producer/internal/platform/querybuilder"
)

var franchiseSeasonMetricSelectColumns = []string{
	"id", "franchise_season_id", "season", "games_played",
	"ypp", "success_rate", "explosive_rate", "points_per_drive", "third_fourth_rate",
	"rz_td_rate", "rz_score_rate", "time_poss_ratio",
	"opp_ypp", "opp_success_rate", "opp_explosive_rate", "opp_points_per_drive", "opp_third_fourth_rate",
	"opp_rz_td_rate", "opp_score_td_rate",
	"net_punt", "fg_pct_shrunk", "field_pos_diff", "turnover_margin_per_drive", "penalty_yards_per_play",
	"computed_utc", "created_utc", "modified_utc", "created_by", "modified_by",
}

type FranchiseSeasonMetricRepository struct {
	db *sqlx.DB
}

func NewFranchiseSeasonMetricRepository(db *sqlx.DB) *FranchiseSeasonMetricRepository {
	return &FranchiseSeasonMetricRepository{db: db}
}

func (r *FranchiseSeasonMetricRepository) GetByFranchiseSeason(ctx context.Context, franchiseSeasonID string) (franchiseseason.Metric, bool, error) {
	return getMetric(ctx, r.db, franchiseSeasonID)
}

func (r *FranchiseSeasonMetricRepository) ListBySeason(ctx context.Context, seasonYear int) ([]franchiseseason.Metric, error) {
	query, args, err := qb.Select(franchiseSeasonMetricSelectColumns...).From("franchise_season_metric").
		Where(qb.Eq("season", seasonYear)).
		OrderBy("franchise_season_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list franchise season metrics query: %w", err)
	}

	var rows []franchiseSeasonMetricTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list franchise season metrics: %w", err)
	}
	out := make([]franchiseseason.Metric, 0, len(rows))
	for _, row := range rows {
		out = append(out, metricFromRow(row))
	}
	return out, nil
}

// Upsert relies on the unique franchise_season_id index; an existing row
// keeps its id and creation stamp.
func (r *FranchiseSeasonMetricRepository) Upsert(ctx context.Context, m franchiseseason.Metric) (franchiseseason.Metric, error) {
	if err := m.Validate(); err != nil {
		return franchiseseason.Metric{}, err
	}

	var stored franchiseseason.Metric
	err := inTx(ctx, r.db, nil, "franchise season metric upsert", nil, func(tx *sqlx.Tx) error {
		query, args, err := qb.UpsertModel("franchise_season_metric", metricToRow(m), []string{"franchise_season_id"}, "id", "created_utc", "created_by")
		if err != nil {
			return fmt.Errorf("build upsert franchise season metric query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert franchise season metric: %w", err)
		}
		got, ok, err := getMetric(ctx, tx, m.FranchiseSeasonID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("franchise season metric %s missing after upsert", m.FranchiseSeasonID)
		}
		stored = got
		return nil
	})
	return stored, err
}

func getMetric(ctx context.Context, q sqlx.QueryerContext, franchiseSeasonID string) (franchiseseason.Metric, bool, error) {
	query, args, err := qb.Select(franchiseSeasonMetricSelectColumns...).From("franchise_season_metric").
		Where(qb.Eq("franchise_season_id", franchiseSeasonID)).
		ToSQL()
	if err != nil {
		return franchiseseason.Metric{}, false, fmt.Errorf("build get franchise season metric query: %w", err)
	}

	var row franchiseSeasonMetricTableModel
	if err := sqlx.GetContext(ctx, q, &row, query, args...); err != nil {
		if isNotFound(err) {
			return franchiseseason.Metric{}, false, nil
		}
		return franchiseseason.Metric{}, false, fmt.Errorf("get franchise season metric: %w", err)
	}
	return metricFromRow(row), true, nil
}

func metricToRow(m franchiseseason.Metric) franchiseSeasonMetricTableModel {
	return franchiseSeasonMetricTableModel{
		ID:                     m.ID,
		FranchiseSeasonID:      m.FranchiseSeasonID,
		Season:                 m.Season,
		GamesPlayed:            m.GamesPlayed,
		Ypp:                    m.Ypp,
		SuccessRate:            m.SuccessRate,
		ExplosiveRate:          m.ExplosiveRate,
		PointsPerDrive:         m.PointsPerDrive,
		ThirdFourthRate:        m.ThirdFourthRate,
		RzTdRate:               nullFloat(m.RzTdRate),
		RzScoreRate:            nullFloat(m.RzScoreRate),
		TimePossRatio:          m.TimePossRatio,
		OppYpp:                 m.OppYpp,
		OppSuccessRate:         m.OppSuccessRate,
		OppExplosiveRate:       m.OppExplosiveRate,
		OppPointsPerDrive:      m.OppPointsPerDrive,
		OppThirdFourthRate:     m.OppThirdFourthRate,
		OppRzTdRate:            nullFloat(m.OppRzTdRate),
		OppScoreTdRate:         nullFloat(m.OppScoreTdRate),
		NetPunt:                m.NetPunt,
		FgPctShrunk:            m.FgPctShrunk,
		FieldPosDiff:           m.FieldPosDiff,
		TurnoverMarginPerDrive: m.TurnoverMarginPerDrive,
		PenaltyYardsPerPlay:    m.PenaltyYardsPerPlay,
		ComputedUTC:            m.ComputedUTC.UTC(),
		auditColumns:           auditToColumns(m.Audit),
	}
}

func metricFromRow(row franchiseSeasonMetricTableModel) franchiseseason.Metric {
	return franchiseseason.Metric{
		ID:                     row.ID,
		FranchiseSeasonID:      row.FranchiseSeasonID,
		Season:                 row.Season,
		GamesPlayed:            row.GamesPlayed,
		Ypp:                    row.Ypp,
		SuccessRate:            row.SuccessRate,
		ExplosiveRate:          row.ExplosiveRate,
		PointsPerDrive:         row.PointsPerDrive,
		ThirdFourthRate:        row.ThirdFourthRate,
		RzTdRate:               floatPtr(row.RzTdRate),
		RzScoreRate:            floatPtr(row.RzScoreRate),
		TimePossRatio:          row.TimePossRatio,
		OppYpp:                 row.OppYpp,
		OppSuccessRate:         row.OppSuccessRate,
		OppExplosiveRate:       row.OppExplosiveRate,
		OppPointsPerDrive:      row.OppPointsPerDrive,
		OppThirdFourthRate:     row.OppThirdFourthRate,
		OppRzTdRate:            floatPtr(row.OppRzTdRate),
		OppScoreTdRate:         floatPtr(row.OppScoreTdRate),
		NetPunt:                row.NetPunt,
		FgPctShrunk:            row.FgPctShrunk,
		FieldPosDiff:           row.FieldPosDiff,
		TurnoverMarginPerDrive: row.TurnoverMarginPerDrive,
		PenaltyYardsPerPlay:    row.PenaltyYardsPerPlay,
		ComputedUTC:            row.ComputedUTC,
		Audit:                  row.toDomain(),
	}
}
