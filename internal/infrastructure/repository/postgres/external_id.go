package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/sportsdata-producer/internal/domain/audit"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/externalid"
	qb "github.com/riskibarqy/sportsdata-producer/internal/platform/querybuilder"
)

// externalIDTable is one of the <entity>_external_id tables. They share a
// layout and differ only in the parent column.
type externalIDTable struct {
	table     string
	parentCol string
}

var (
	venueExternalIDs           = externalIDTable{table: "venue_external_id", parentCol: "venue_id"}
	franchiseExternalIDs       = externalIDTable{table: "franchise_external_id", parentCol: "franchise_id"}
	franchiseSeasonExternalIDs = externalIDTable{table: "franchise_season_external_id", parentCol: "franchise_season_id"}
	groupSeasonExternalIDs     = externalIDTable{table: "group_season_external_id", parentCol: "group_season_id"}
	contestExternalIDs         = externalIDTable{table: "contest_external_id", parentCol: "contest_id"}
	competitionExternalIDs     = externalIDTable{table: "competition_external_id", parentCol: "competition_id"}
)

func (t externalIDTable) columns() []string {
	return []string{
		"id",
		t.parentCol + " AS parent_id",
		"value",
		"provider",
		"source_url",
		"source_url_hash",
	}
}

// parentBySourceURLHash resolves the owning entity id through the unique
// (provider, source_url_hash) index.
func (t externalIDTable) parentBySourceURLHash(ctx context.Context, q sqlx.QueryerContext, provider externalid.Provider, hash string) (string, bool, error) {
	query, args, err := qb.Select(t.parentCol).From(t.table).
		Where(
			qb.Eq("provider", int(provider)),
			qb.Eq("source_url_hash", hash),
		).
		Limit(1).
		ToSQL()
	if err != nil {
		return "", false, fmt.Errorf("build select %s by hash query: %w", t.table, err)
	}

	var parentID string
	if err := sqlx.GetContext(ctx, q, &parentID, query, args...); err != nil {
		if isPoolerStatementError(err) {
			return t.parentBySourceURLHashLiteral(ctx, q, provider, hash)
		}
		if isNotFound(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("select %s by hash: %w", t.table, err)
	}
	return parentID, true, nil
}

func (t externalIDTable) parentBySourceURLHashLiteral(ctx context.Context, q sqlx.QueryerContext, provider externalid.Provider, hash string) (string, bool, error) {
	query, _, err := qb.Select(t.parentCol).From(t.table).
		Where(
			qb.Expr(fmt.Sprintf("provider = %d", int(provider))),
			qb.EqLiteral("source_url_hash", hash),
		).
		Limit(1).
		ToSQL()
	if err != nil {
		return "", false, fmt.Errorf("build select %s by hash literal fallback query: %w", t.table, err)
	}

	var parentID string
	if err := sqlx.GetContext(ctx, q, &parentID, query); err != nil {
		if isNotFound(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("select %s by hash literal fallback: %w", t.table, err)
	}
	return parentID, true, nil
}

func (t externalIDTable) parentByValue(ctx context.Context, q sqlx.QueryerContext, provider externalid.Provider, value string) (string, bool, error) {
	query, args, err := qb.Select(t.parentCol).From(t.table).
		Where(
			qb.Eq("provider", int(provider)),
			qb.Eq("value", value),
		).
		OrderBy("created_utc").
		Limit(1).
		ToSQL()
	if err != nil {
		return "", false, fmt.Errorf("build select %s by value query: %w", t.table, err)
	}

	var parentID string
	if err := sqlx.GetContext(ctx, q, &parentID, query, args...); err != nil {
		if isNotFound(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("select %s by value: %w", t.table, err)
	}
	return parentID, true, nil
}

// listByParents returns external ids grouped by parent id.
func (t externalIDTable) listByParents(ctx context.Context, q sqlx.QueryerContext, parentIDs []string) (map[string][]externalid.ExternalID, error) {
	out := make(map[string][]externalid.ExternalID, len(parentIDs))
	if len(parentIDs) == 0 {
		return out, nil
	}

	query, args, err := qb.Select(t.columns()...).From(t.table).
		Where(qb.In(t.parentCol, stringSliceToAny(parentIDs))).
		OrderBy("provider", "created_utc").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list %s query: %w", t.table, err)
	}

	var rows []externalIDTableModel
	if err := sqlx.SelectContext(ctx, q, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list %s: %w", t.table, err)
	}
	for _, row := range rows {
		out[row.ParentID] = append(out[row.ParentID], row.toDomain())
	}
	return out, nil
}

// save inserts new external ids for parentID. A hash already known for the
// same parent refreshes its value and url; a hash owned by another parent is
// left alone.
func (t externalIDTable) save(ctx context.Context, tx sqlx.ExtContext, parentID string, ids []externalid.ExternalID, parent audit.Audit) error {
	if len(ids) == 0 {
		return nil
	}
	at, by := stamp(parent)

	b := qb.InsertInto(t.table).
		Columns("id", t.parentCol, "value", "provider", "source_url", "source_url_hash", "created_utc", "created_by").
		Suffix(fmt.Sprintf(
			"ON CONFLICT (provider, source_url_hash) DO UPDATE SET value = EXCLUDED.value, source_url = EXCLUDED.source_url, modified_utc = EXCLUDED.created_utc, modified_by = EXCLUDED.created_by WHERE %s.%s = EXCLUDED.%s",
			t.table, t.parentCol, t.parentCol,
		))
	seen := make(map[string]bool, len(ids))
	for _, e := range ids {
		key := e.Provider.String() + "|" + e.SourceURLHash
		if seen[key] {
			continue
		}
		seen[key] = true
		b.Values(e.ID, parentID, e.Value, int(e.Provider), e.SourceURL, e.SourceURLHash, at, by)
	}

	query, args, err := b.ToSQL()
	if err != nil {
		return fmt.Errorf("build upsert %s query: %w", t.table, err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert %s: %w", t.table, err)
	}
	return nil
}

type externalIDTableModel struct {
	ID            string `db:"id"`
	ParentID      string `db:"parent_id"`
	Value         string `db:"value"`
	Provider      int    `db:"provider"`
	SourceURL     string `db:"source_url"`
	SourceURLHash string `db:"source_url_hash"`
}

func (m externalIDTableModel) toDomain() externalid.ExternalID {
	return externalid.ExternalID{
		ID:            m.ID,
		ParentID:      m.ParentID,
		Value:         m.Value,
		Provider:      externalid.Provider(m.Provider),
		SourceURL:     m.SourceURL,
		SourceURLHash: m.SourceURLHash,
	}
}
