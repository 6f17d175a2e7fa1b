package schema

import (
	"fmt"
	"slices"
	"strings"
)

type Rule string

const (
	RuleParse         Rule = "parse"
	RuleApply         Rule = "apply"
	RuleReversible    Rule = "reversible"
	RuleForeignKey    Rule = "foreign_key"
	RuleRequiredIndex Rule = "required_index"
	RuleAuditColumns  Rule = "audit_columns"
	RuleExternalID    Rule = "external_id"
	RuleIdentifier    Rule = "identifier"
)

// Finding is one failed check. Version is zero for checks that run against
// the final catalog rather than a single migration.
type Finding struct {
	Version   uint
	Migration string
	Rule      Rule
	Message   string
}

func (f Finding) String() string {
	if f.Migration == "" {
		return fmt.Sprintf("[%s] %s", f.Rule, f.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", f.Rule, f.Migration, f.Message)
}

type Report struct {
	Migrations int
	Findings   []Finding
	// Catalog is the schema after the last successfully applied migration.
	Catalog *Catalog
}

func (r Report) OK() bool {
	return len(r.Findings) == 0
}

func (r Report) Err() error {
	if r.OK() {
		return nil
	}
	lines := make([]string, 0, len(r.Findings))
	for _, f := range r.Findings {
		lines = append(lines, f.String())
	}
	return fmt.Errorf("schema verification failed with %d finding(s):\n%s", len(r.Findings), strings.Join(lines, "\n"))
}

func (r Report) ByRule(rule Rule) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Rule == rule {
			out = append(out, f)
		}
	}
	return out
}

type IndexRequirement struct {
	Table   string
	Columns []string
	Unique  bool
}

func (r IndexRequirement) String() string {
	kind := "index"
	if r.Unique {
		kind = "unique index"
	}
	return fmt.Sprintf("%s on %s(%s)", kind, r.Table, strings.Join(r.Columns, ", "))
}

type Rules struct {
	RequiredIndexes []IndexRequirement
	// AuditColumns must be present on every table not listed in AuditExempt,
	// alongside a single uuid primary key column named id.
	AuditColumns     []Column
	AuditExempt      []string
	ExternalIDSuffix string
}

func DefaultRules() Rules {
	return Rules{
		RequiredIndexes: []IndexRequirement{
			{Table: "franchise_season_metric", Columns: []string{"franchise_season_id"}, Unique: true},
			{Table: "franchise_season", Columns: []string{"franchise_id", "season_year"}, Unique: true},
			{Table: "competition_odds", Columns: []string{"competition_id", "provider_id"}, Unique: true},
			{Table: "competition_competitor", Columns: []string{"competition_id", "franchise_season_id"}, Unique: true},
			{Table: "athlete_season", Columns: []string{"athlete_id", "franchise_season_id"}, Unique: true},
			{Table: "season", Columns: []string{"year"}, Unique: true},
			{Table: "inbox_state", Columns: []string{"message_id", "consumer_id"}, Unique: true},
			{Table: "outbox_message", Columns: []string{"outbox_id", "sequence_number"}, Unique: true},
			{Table: "outbox_message", Columns: []string{"inbox_message_id", "inbox_consumer_id", "sequence_number"}, Unique: true},
			{Table: "outbox_message", Columns: []string{"enqueue_time"}},
			{Table: "outbox_message", Columns: []string{"expiration_time"}},
			{Table: "outbox_state", Columns: []string{"created"}},
			{Table: "inbox_state", Columns: []string{"delivered"}},
			{Table: "group_season", Columns: []string{"season_year", "slug"}},
			{Table: "competition_metric", Columns: []string{"season", "franchise_season_id"}},
		},
		AuditColumns: []Column{
			{Name: "created_utc", Type: "timestamp with time zone", Nullable: false},
			{Name: "modified_utc", Type: "timestamp with time zone", Nullable: true},
			{Name: "created_by", Type: "uuid", Nullable: false},
			{Name: "modified_by", Type: "uuid", Nullable: true},
		},
		AuditExempt:      []string{"inbox_state", "outbox_state", "outbox_message"},
		ExternalIDSuffix: "_external_id",
	}
}

// Verify replays the set. For every migration it checks that down restores
// the schema seen before up, then runs the catalog-wide rules on the result.
func Verify(set Set, rules Rules) Report {
	report := Report{Migrations: len(set), Catalog: NewCatalog()}
	cat := report.Catalog

	for _, m := range set {
		add := func(rule Rule, format string, args ...any) {
			report.Findings = append(report.Findings, Finding{
				Version:   m.Version,
				Migration: m.String(),
				Rule:      rule,
				Message:   fmt.Sprintf(format, args...),
			})
		}

		up, err := ParseStatements(m.Up)
		if err != nil {
			add(RuleParse, "up: %v", err)
			return report
		}
		down, err := ParseStatements(m.Down)
		if err != nil {
			add(RuleParse, "down: %v", err)
			return report
		}

		before := cat.Clone()
		if err := cat.Apply(up...); err != nil {
			add(RuleApply, "up: %v", err)
			report.Catalog = before
			return report
		}
		after := cat.Clone()
		if Equal(before, after) {
			add(RuleReversible, "up changes nothing")
		}

		if err := cat.Apply(down...); err != nil {
			add(RuleApply, "down: %v", err)
		} else {
			for _, diff := range Diff(before, cat) {
				add(RuleReversible, "down does not restore prior schema: %s", diff)
			}
		}

		cat = after
		report.Catalog = cat
	}

	report.Findings = append(report.Findings, CheckCatalog(cat, rules)...)
	return report
}

// CheckCatalog runs the catalog-wide rules on a single schema snapshot.
func CheckCatalog(cat *Catalog, rules Rules) []Finding {
	var out []Finding
	out = append(out, checkForeignKeys(cat)...)
	out = append(out, checkRequiredIndexes(cat, rules.RequiredIndexes)...)
	out = append(out, checkAuditColumns(cat, rules)...)
	out = append(out, checkExternalIDTables(cat, rules.ExternalIDSuffix)...)
	out = append(out, checkIdentifiers(cat)...)
	return out
}

func finding(rule Rule, format string, args ...any) Finding {
	return Finding{Rule: rule, Message: fmt.Sprintf(format, args...)}
}

func checkForeignKeys(cat *Catalog) []Finding {
	var out []Finding
	for _, t := range cat.Tables() {
		for _, fk := range t.ForeignKeys {
			ref, ok := cat.Table(fk.RefTable)
			if !ok {
				out = append(out, finding(RuleForeignKey, "%s.%s references missing table %s", t.Name, fk.Name, fk.RefTable))
				continue
			}
			if len(fk.Columns) != len(fk.RefColumns) {
				out = append(out, finding(RuleForeignKey, "%s.%s column count mismatch", t.Name, fk.Name))
				continue
			}
			for i, name := range fk.Columns {
				local, ok := t.Column(name)
				if !ok {
					out = append(out, finding(RuleForeignKey, "%s.%s uses missing column %s", t.Name, fk.Name, name))
					continue
				}
				remote, ok := ref.Column(fk.RefColumns[i])
				if !ok {
					out = append(out, finding(RuleForeignKey, "%s.%s references missing column %s.%s", t.Name, fk.Name, ref.Name, fk.RefColumns[i]))
					continue
				}
				if local.Type != remote.Type {
					out = append(out, finding(RuleForeignKey, "%s.%s type %s does not match %s.%s type %s",
						t.Name, name, local.Type, ref.Name, remote.Name, remote.Type))
				}
			}
			if !cat.isUniqueKey(ref.Name, fk.RefColumns) {
				out = append(out, finding(RuleForeignKey, "%s.%s references %s(%s) which is not a unique key",
					t.Name, fk.Name, ref.Name, strings.Join(fk.RefColumns, ", ")))
			}
			if fk.OnDelete == ActionSetNull {
				for _, name := range fk.Columns {
					if col, ok := t.Column(name); ok && !col.Nullable {
						out = append(out, finding(RuleForeignKey, "%s.%s is ON DELETE SET NULL but %s is NOT NULL", t.Name, fk.Name, name))
					}
				}
			}
		}
	}
	return out
}

func checkRequiredIndexes(cat *Catalog, reqs []IndexRequirement) []Finding {
	var out []Finding
	for _, req := range reqs {
		t, ok := cat.Table(req.Table)
		if !ok {
			out = append(out, finding(RuleRequiredIndex, "%s: table %s does not exist", req, req.Table))
			continue
		}

		found, unique := false, false
		if t.PrimaryKey != nil && slices.Equal(t.PrimaryKey.Columns, req.Columns) {
			found, unique = true, true
		}
		for _, u := range t.Uniques {
			if slices.Equal(u.Columns, req.Columns) {
				found, unique = true, true
			}
		}
		for _, idx := range cat.IndexesOn(req.Table) {
			if slices.Equal(idx.Columns, req.Columns) {
				found = true
				unique = unique || idx.Unique
			}
		}

		switch {
		case !found:
			out = append(out, finding(RuleRequiredIndex, "missing %s", req))
		case req.Unique && !unique:
			out = append(out, finding(RuleRequiredIndex, "%s exists but is not unique", req))
		}
	}
	return out
}

func checkAuditColumns(cat *Catalog, rules Rules) []Finding {
	var out []Finding
	for _, t := range cat.Tables() {
		if slices.Contains(rules.AuditExempt, t.Name) {
			continue
		}
		if t.PrimaryKey == nil || !slices.Equal(t.PrimaryKey.Columns, []string{"id"}) {
			out = append(out, finding(RuleAuditColumns, "%s: primary key must be (id)", t.Name))
		} else if id, _ := t.Column("id"); id.Type != "uuid" {
			out = append(out, finding(RuleAuditColumns, "%s: id must be uuid, got %s", t.Name, id.Type))
		}
		for _, want := range rules.AuditColumns {
			got, ok := t.Column(want.Name)
			switch {
			case !ok:
				out = append(out, finding(RuleAuditColumns, "%s: missing audit column %s", t.Name, want.Name))
			case got.Type != want.Type || got.Nullable != want.Nullable:
				out = append(out, finding(RuleAuditColumns, "%s.%s: want %s nullable=%t, got %s nullable=%t",
					t.Name, want.Name, want.Type, want.Nullable, got.Type, got.Nullable))
			}
		}
	}
	return out
}

var externalIDColumns = []Column{
	{Name: "value", Type: "text"},
	{Name: "provider", Type: "integer"},
	{Name: "source_url", Type: "text"},
	{Name: "source_url_hash", Type: "text"},
}

func checkExternalIDTables(cat *Catalog, suffix string) []Finding {
	if suffix == "" {
		return nil
	}
	var out []Finding
	for _, t := range cat.Tables() {
		if !strings.HasSuffix(t.Name, suffix) {
			continue
		}
		parent := strings.TrimSuffix(t.Name, suffix)
		parentColumn := parent + "_id"

		if _, ok := cat.Table(parent); !ok {
			out = append(out, finding(RuleExternalID, "%s: parent table %s does not exist", t.Name, parent))
			continue
		}
		for _, want := range externalIDColumns {
			got, ok := t.Column(want.Name)
			if !ok {
				out = append(out, finding(RuleExternalID, "%s: missing column %s", t.Name, want.Name))
				continue
			}
			if got.Type != want.Type || got.Nullable {
				out = append(out, finding(RuleExternalID, "%s.%s: want %s NOT NULL, got %s nullable=%t", t.Name, want.Name, want.Type, got.Type, got.Nullable))
			}
		}

		cascade := false
		for _, fk := range t.ForeignKeys {
			if fk.RefTable == parent && slices.Equal(fk.Columns, []string{parentColumn}) && fk.OnDelete == ActionCascade {
				cascade = true
			}
		}
		if !cascade {
			out = append(out, finding(RuleExternalID, "%s: no ON DELETE CASCADE foreign key %s -> %s(id)", t.Name, parentColumn, parent))
		}

		hashed := false
		for _, idx := range cat.IndexesOn(t.Name) {
			if idx.Unique && slices.Equal(idx.Columns, []string{"provider", "source_url_hash"}) {
				hashed = true
			}
		}
		if !hashed {
			out = append(out, finding(RuleExternalID, "%s: missing unique index on (provider, source_url_hash)", t.Name))
		}
	}
	return out
}

func checkIdentifiers(cat *Catalog) []Finding {
	var out []Finding
	check := func(kind, name string) {
		if len(name) > MaxIdentifierLength {
			out = append(out, finding(RuleIdentifier, "%s name %s is %d characters (max %d)", kind, name, len(name), MaxIdentifierLength))
		}
	}
	for _, t := range cat.Tables() {
		check("table", t.Name)
		for _, col := range t.Columns {
			if len(col.Name) > MaxIdentifierLength {
				out = append(out, finding(RuleIdentifier, "column %s.%s exceeds %d characters", t.Name, col.Name, MaxIdentifierLength))
			}
		}
		if t.PrimaryKey != nil {
			check("primary key", t.PrimaryKey.Name)
		}
		for _, u := range t.Uniques {
			check("unique constraint", u.Name)
		}
		for _, fk := range t.ForeignKeys {
			check("foreign key", fk.Name)
		}
	}
	for _, idx := range cat.Indexes() {
		check("index", idx.Name)
	}
	return out
}
