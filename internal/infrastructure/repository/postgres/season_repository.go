package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/sportsdata-producer/internal/domain/externalid"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/groupseason"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/messaging"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/season"
	"github.com/riskibarqy/sportsdata-producer/internal/infrastructure/messaging/outbox"
	qb "github.com/riskibarqy/sportsdata-producer/internal/platform/querybuilder"
)

type SeasonRepository struct {
	db     *sqlx.DB
	outbox *outbox.Writer
}

func NewSeasonRepository(db *sqlx.DB, writer *outbox.Writer) *SeasonRepository {
	return &SeasonRepository{db: db, outbox: writer}
}

func (r *SeasonRepository) GetByYear(ctx context.Context, year int) (season.Season, bool, error) {
	query, args, err := qb.Select(seasonSelectColumns...).
		From("season").
		Where(qb.Eq("year", year)).
		ToSQL()
	if err != nil {
		return season.Season{}, false, fmt.Errorf("build get season query: %w", err)
	}

	var row seasonReadModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return season.Season{}, false, nil
		}
		return season.Season{}, false, fmt.Errorf("get season: %w", err)
	}

	query, args, err = qb.Select(seasonPhaseSelectColumns...).
		From("season_phase").
		Where(qb.Eq("season_id", row.ID)).
		OrderBy("start_date", "type_code").
		ToSQL()
	if err != nil {
		return season.Season{}, false, fmt.Errorf("build list season phases query: %w", err)
	}
	var phases []seasonPhaseTableModel
	if err := r.db.SelectContext(ctx, &phases, query, args...); err != nil {
		return season.Season{}, false, fmt.Errorf("list season phases: %w", err)
	}

	out := season.Season{
		ID:            row.ID,
		Year:          row.Year,
		Name:          row.Name,
		StartDate:     row.StartDate,
		EndDate:       row.EndDate,
		ActivePhaseID: stringPtr(row.ActivePhaseID),
		Audit:         row.toDomain(),
	}
	for _, p := range phases {
		out.Phases = append(out.Phases, season.Phase{
			ID:           p.ID,
			SeasonID:     p.SeasonID,
			TypeCode:     p.TypeCode,
			Name:         p.Name,
			Abbreviation: p.Abbreviation,
			Slug:         p.Slug,
			Year:         p.Year,
			StartDate:    p.StartDate,
			EndDate:      p.EndDate,
			HasGroups:    p.HasGroups,
			HasStandings: p.HasStandings,
			HasLegs:      p.HasLegs,
		})
	}
	return out, true, nil
}

// Save writes the season row, then its phases, then the active phase link.
// Phases missing from s are kept; weeks reference them.
func (r *SeasonRepository) Save(ctx context.Context, s season.Season, events []messaging.Event) error {
	if err := s.Validate(); err != nil {
		return err
	}

	return inTx(ctx, r.db, r.outbox, "season save", events, func(tx *sqlx.Tx) error {
		query, args, err := qb.UpsertModel("season", seasonTableModel{
			ID:           s.ID,
			Year:         s.Year,
			Name:         s.Name,
			StartDate:    s.StartDate.UTC(),
			EndDate:      s.EndDate.UTC(),
			auditColumns: auditToColumns(s.Audit),
		}, []string{"id"}, "created_utc", "created_by")
		if err != nil {
			return fmt.Errorf("build upsert season query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert season: %w", err)
		}

		for _, p := range s.Phases {
			query, args, err := qb.UpsertModel("season_phase", seasonPhaseTableModel{
				ID:           p.ID,
				SeasonID:     s.ID,
				TypeCode:     p.TypeCode,
				Name:         p.Name,
				Abbreviation: p.Abbreviation,
				Slug:         p.Slug,
				Year:         p.Year,
				StartDate:    p.StartDate.UTC(),
				EndDate:      p.EndDate.UTC(),
				HasGroups:    p.HasGroups,
				HasStandings: p.HasStandings,
				HasLegs:      p.HasLegs,
				auditColumns: childAudit(s.Audit),
			}, []string{"id"}, "created_utc", "created_by")
			if err != nil {
				return fmt.Errorf("build upsert season phase query: %w", err)
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("upsert season phase %d: %w", p.TypeCode, err)
			}
		}

		query, args, err = qb.Update("season").
			Set("active_phase_id", nullString(s.ActivePhaseID)).
			Where(qb.Eq("id", s.ID)).
			ToSQL()
		if err != nil {
			return fmt.Errorf("build set active phase query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("set season active phase: %w", err)
		}
		return nil
	})
}

type GroupSeasonRepository struct {
	db     *sqlx.DB
	outbox *outbox.Writer
}

func NewGroupSeasonRepository(db *sqlx.DB, writer *outbox.Writer) *GroupSeasonRepository {
	return &GroupSeasonRepository{db: db, outbox: writer}
}

func (r *GroupSeasonRepository) GetByID(ctx context.Context, groupSeasonID string) (groupseason.GroupSeason, bool, error) {
	query, args, err := qb.Select(groupSeasonSelectColumns...).
		From("group_season").
		Where(qb.Eq("id", groupSeasonID)).
		ToSQL()
	if err != nil {
		return groupseason.GroupSeason{}, false, fmt.Errorf("build get group season query: %w", err)
	}

	var row groupSeasonTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return groupseason.GroupSeason{}, false, nil
		}
		return groupseason.GroupSeason{}, false, fmt.Errorf("get group season: %w", err)
	}

	ids, err := groupSeasonExternalIDs.listByParents(ctx, r.db, []string{row.ID})
	if err != nil {
		return groupseason.GroupSeason{}, false, err
	}

	return groupseason.GroupSeason{
		ID:           row.ID,
		ParentID:     stringPtr(row.ParentID),
		SeasonID:     stringPtr(row.SeasonID),
		SeasonYear:   row.SeasonYear,
		Name:         row.Name,
		Slug:         row.Slug,
		Abbreviation: row.Abbreviation,
		ShortName:    row.ShortName,
		MidsizeName:  stringPtr(row.MidsizeName),
		IsConference: row.IsConference,
		ExternalIDs:  ids[row.ID],
		Audit:        row.toDomain(),
	}, true, nil
}

func (r *GroupSeasonRepository) GetBySourceURLHash(ctx context.Context, provider externalid.Provider, hash string) (groupseason.GroupSeason, bool, error) {
	groupSeasonID, ok, err := groupSeasonExternalIDs.parentBySourceURLHash(ctx, r.db, provider, hash)
	if err != nil || !ok {
		return groupseason.GroupSeason{}, false, err
	}
	return r.GetByID(ctx, groupSeasonID)
}

func (r *GroupSeasonRepository) Save(ctx context.Context, g groupseason.GroupSeason, events []messaging.Event) error {
	if err := g.Validate(); err != nil {
		return err
	}

	return inTx(ctx, r.db, r.outbox, "group season save", events, func(tx *sqlx.Tx) error {
		query, args, err := qb.UpsertModel("group_season", groupSeasonTableModel{
			ID:           g.ID,
			ParentID:     nullString(g.ParentID),
			SeasonID:     nullString(g.SeasonID),
			SeasonYear:   g.SeasonYear,
			Name:         g.Name,
			Slug:         g.Slug,
			Abbreviation: g.Abbreviation,
			ShortName:    g.ShortName,
			MidsizeName:  nullString(g.MidsizeName),
			IsConference: g.IsConference,
			auditColumns: auditToColumns(g.Audit),
		}, []string{"id"}, "created_utc", "created_by")
		if err != nil {
			return fmt.Errorf("build upsert group season query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert group season: %w", err)
		}
		return groupSeasonExternalIDs.save(ctx, tx, g.ID, g.ExternalIDs, g.Audit)
	})
}
