package schema

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const (
	inspectColumnsQuery = `
SELECT c.table_name, c.column_name, c.data_type, c.udt_name,
       c.character_maximum_length, c.numeric_precision, c.numeric_scale, c.is_nullable
FROM information_schema.columns c
JOIN information_schema.tables t
  ON t.table_schema = c.table_schema AND t.table_name = c.table_name AND t.table_type = 'BASE TABLE'
WHERE c.table_schema = $1
ORDER BY c.table_name, c.ordinal_position`

	inspectConstraintsQuery = `
SELECT c.conname AS name, cl.relname AS table_name, c.contype::text AS kind,
       ARRAY(SELECT a.attname FROM unnest(c.conkey) WITH ORDINALITY AS k(attnum, ord)
             JOIN pg_attribute a ON a.attrelid = c.conrelid AND a.attnum = k.attnum ORDER BY k.ord)::text[] AS columns,
       COALESCE(rf.relname::text, '') AS ref_table,
       ARRAY(SELECT a.attname FROM unnest(c.confkey) WITH ORDINALITY AS k(attnum, ord)
             JOIN pg_attribute a ON a.attrelid = c.confrelid AND a.attnum = k.attnum ORDER BY k.ord)::text[] AS ref_columns,
       c.confdeltype::text AS on_delete, c.confupdtype::text AS on_update
FROM pg_constraint c
JOIN pg_class cl ON cl.oid = c.conrelid
JOIN pg_namespace n ON n.oid = cl.relnamespace
LEFT JOIN pg_class rf ON rf.oid = c.confrelid
WHERE n.nspname = $1 AND c.contype IN ('p', 'u', 'f')
ORDER BY cl.relname, c.conname`

	inspectIndexesQuery = `
SELECT i.relname AS name, t.relname AS table_name, ix.indisunique AS is_unique,
       ARRAY(SELECT pg_get_indexdef(ix.indexrelid, k, true) FROM generate_series(1, ix.indnatts) AS k ORDER BY k)::text[] AS columns
FROM pg_index ix
JOIN pg_class i ON i.oid = ix.indexrelid
JOIN pg_class t ON t.oid = ix.indrelid
JOIN pg_namespace n ON n.oid = t.relnamespace
WHERE n.nspname = $1 AND t.relkind = 'r'
  AND NOT EXISTS (
      SELECT 1 FROM pg_constraint c
      WHERE c.conindid = ix.indexrelid AND c.contype IN ('p', 'u', 'x')
  )
ORDER BY i.relname`
)

type columnRow struct {
	TableName string        `db:"table_name"`
	Name      string        `db:"column_name"`
	DataType  string        `db:"data_type"`
	UDTName   string        `db:"udt_name"`
	MaxLength sql.NullInt64 `db:"character_maximum_length"`
	Precision sql.NullInt64 `db:"numeric_precision"`
	Scale     sql.NullInt64 `db:"numeric_scale"`
	Nullable  string        `db:"is_nullable"`
}

type constraintRow struct {
	Name       string         `db:"name"`
	TableName  string         `db:"table_name"`
	Kind       string         `db:"kind"`
	Columns    pq.StringArray `db:"columns"`
	RefTable   string         `db:"ref_table"`
	RefColumns pq.StringArray `db:"ref_columns"`
	OnDelete   string         `db:"on_delete"`
	OnUpdate   string         `db:"on_update"`
}

type indexRow struct {
	Name      string         `db:"name"`
	TableName string         `db:"table_name"`
	Unique    bool           `db:"is_unique"`
	Columns   pq.StringArray `db:"columns"`
}

// Inspector reads the live schema of a PostgreSQL database into a Catalog so
// it can be compared with the catalog replayed from migration scripts.
type Inspector struct {
	db      *sqlx.DB
	schema  string
	exclude []string
}

func NewInspector(db *sqlx.DB, schemaName string, excludeTables ...string) *Inspector {
	if strings.TrimSpace(schemaName) == "" {
		schemaName = "public"
	}
	if len(excludeTables) == 0 {
		excludeTables = []string{"schema_migrations"}
	}
	return &Inspector{db: db, schema: schemaName, exclude: excludeTables}
}

func (i *Inspector) Snapshot(ctx context.Context) (*Catalog, error) {
	var columns []columnRow
	if err := i.db.SelectContext(ctx, &columns, inspectColumnsQuery, i.schema); err != nil {
		return nil, fmt.Errorf("inspect columns: %w", err)
	}
	var constraints []constraintRow
	if err := i.db.SelectContext(ctx, &constraints, inspectConstraintsQuery, i.schema); err != nil {
		return nil, fmt.Errorf("inspect constraints: %w", err)
	}
	var indexes []indexRow
	if err := i.db.SelectContext(ctx, &indexes, inspectIndexesQuery, i.schema); err != nil {
		return nil, fmt.Errorf("inspect indexes: %w", err)
	}

	tables := make(map[string]*Table)
	order := make([]string, 0)
	for _, row := range columns {
		if slices.Contains(i.exclude, row.TableName) {
			continue
		}
		t, ok := tables[row.TableName]
		if !ok {
			t = &Table{Name: row.TableName}
			tables[row.TableName] = t
			order = append(order, row.TableName)
		}
		t.Columns = append(t.Columns, Column{
			Name:     row.Name,
			Type:     liveColumnType(row),
			Nullable: strings.EqualFold(row.Nullable, "YES"),
		})
	}

	for _, row := range constraints {
		t, ok := tables[row.TableName]
		if !ok {
			continue
		}
		switch row.Kind {
		case "p":
			t.PrimaryKey = &Key{Name: row.Name, Columns: []string(row.Columns)}
		case "u":
			t.Uniques = append(t.Uniques, Key{Name: row.Name, Columns: []string(row.Columns)})
		case "f":
			t.ForeignKeys = append(t.ForeignKeys, ForeignKey{
				Name:       row.Name,
				Columns:    []string(row.Columns),
				RefTable:   row.RefTable,
				RefColumns: []string(row.RefColumns),
				OnDelete:   liveAction(row.OnDelete),
				OnUpdate:   liveAction(row.OnUpdate),
			})
		}
	}

	cat := NewCatalog()
	for _, name := range order {
		cat.PutTable(*tables[name])
	}
	for _, row := range indexes {
		if _, ok := tables[row.TableName]; !ok {
			continue
		}
		cols := make([]string, 0, len(row.Columns))
		for _, col := range row.Columns {
			cols = append(cols, strings.Trim(col, `"`))
		}
		cat.PutIndex(Index{Name: row.Name, Table: row.TableName, Columns: cols, Unique: row.Unique})
	}
	return cat, nil
}

func liveColumnType(row columnRow) string {
	switch row.DataType {
	case "character varying", "character":
		if row.MaxLength.Valid {
			return NormalizeType(row.DataType + "(" + strconv.FormatInt(row.MaxLength.Int64, 10) + ")")
		}
	case "numeric":
		if row.Precision.Valid {
			return NormalizeType(fmt.Sprintf("numeric(%d,%d)", row.Precision.Int64, row.Scale.Int64))
		}
	case "ARRAY":
		return NormalizeType(strings.TrimPrefix(row.UDTName, "_")) + "[]"
	case "USER-DEFINED":
		return NormalizeType(row.UDTName)
	}
	return NormalizeType(row.DataType)
}

func liveAction(code string) string {
	switch code {
	case "r":
		return ActionRestrict
	case "c":
		return ActionCascade
	case "n":
		return ActionSetNull
	case "d":
		return ActionSetDefault
	default:
		return ActionNoAction
	}
}
