package schema

import (
	"strings"
	"testing"

	"github.com/riskibarqy/sportsdata-producer/db/migrations"
)

func TestVerify_EmbeddedMigrationsAreConsistent(t *testing.T) {
	set, err := Load(migrations.FS, ".")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	report := Verify(set, DefaultRules())
	if err := report.Err(); err != nil {
		t.Fatal(err)
	}
	if report.Migrations != len(set) {
		t.Fatalf("expected %d migrations verified, got %d", len(set), report.Migrations)
	}

	final, err := set.Catalog()
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if diff := Diff(final, report.Catalog); len(diff) != 0 {
		t.Fatalf("report catalog differs from straight replay: %v", diff)
	}
}

func TestVerify_OneMetricPerFranchiseSeason(t *testing.T) {
	set, err := Load(migrations.FS, ".")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cat, err := set.Catalog()
	if err != nil {
		t.Fatalf("replay: %v", err)
	}

	found := false
	for _, idx := range cat.IndexesOn("franchise_season_metric") {
		if idx.Unique && len(idx.Columns) == 1 && idx.Columns[0] == "franchise_season_id" {
			found = true
		}
	}
	if !found {
		t.Fatalf("franchise_season_metric must have a unique index on franchise_season_id")
	}
}

func testSet(pairs ...string) Set {
	var set Set
	for i := 0; i+1 < len(pairs); i += 2 {
		set = append(set, Migration{Version: uint(i/2 + 1), Name: "step", Up: pairs[i], Down: pairs[i+1]})
	}
	return set
}

const auditColumns = `
    created_utc timestamptz NOT NULL,
    modified_utc timestamptz NULL,
    created_by uuid NOT NULL,
    modified_by uuid NULL`

func TestVerify_Findings(t *testing.T) {
	noRequired := DefaultRules()
	noRequired.RequiredIndexes = nil

	tests := []struct {
		name  string
		set   Set
		rules Rules
		rule  Rule
		want  string
	}{
		{
			name: "down leaves a column behind",
			set: testSet(
				"CREATE TABLE venue (id uuid PRIMARY KEY,"+auditColumns+");", "DROP TABLE venue;",
				"ALTER TABLE venue ADD COLUMN slug text NULL, ADD COLUMN city text NULL;", "ALTER TABLE venue DROP COLUMN slug;",
			),
			rules: noRequired,
			rule:  RuleReversible,
			want:  "unexpected column city",
		},
		{
			name: "down drops the wrong index",
			set: testSet(
				"CREATE TABLE venue (id uuid PRIMARY KEY, name text NOT NULL,"+auditColumns+");", "DROP TABLE venue;",
				"CREATE INDEX ix_venue_name ON venue (name);", "DROP INDEX IF EXISTS ix_venue_city;",
			),
			rules: noRequired,
			rule:  RuleReversible,
			want:  "unexpected index ix_venue_name",
		},
		{
			name:  "down fails to apply",
			set:   testSet("CREATE TABLE venue (id uuid PRIMARY KEY,"+auditColumns+");", "DROP TABLE venues;"),
			rules: noRequired,
			rule:  RuleApply,
			want:  "does not exist",
		},
		{
			name:  "up is a no-op",
			set:   testSet("CREATE TABLE IF NOT EXISTS venue (id uuid PRIMARY KEY,"+auditColumns+"); DROP TABLE venue;", "DROP TABLE IF EXISTS venue;"),
			rules: noRequired,
			rule:  RuleReversible,
			want:  "up changes nothing",
		},
		{
			name:  "missing audit columns",
			set:   testSet("CREATE TABLE venue (id uuid PRIMARY KEY, created_utc timestamptz NOT NULL);", "DROP TABLE venue;"),
			rules: noRequired,
			rule:  RuleAuditColumns,
			want:  "missing audit column created_by",
		},
		{
			name:  "integer surrogate key",
			set:   testSet("CREATE TABLE venue (id bigserial PRIMARY KEY,"+auditColumns+");", "DROP TABLE venue;"),
			rules: noRequired,
			rule:  RuleAuditColumns,
			want:  "id must be uuid",
		},
		{
			name:  "required index missing",
			set:   testSet("CREATE TABLE franchise_season_metric (id uuid PRIMARY KEY, franchise_season_id uuid NOT NULL,"+auditColumns+");", "DROP TABLE franchise_season_metric;"),
			rules: Rules{RequiredIndexes: []IndexRequirement{{Table: "franchise_season_metric", Columns: []string{"franchise_season_id"}, Unique: true}}},
			rule:  RuleRequiredIndex,
			want:  "missing unique index on franchise_season_metric(franchise_season_id)",
		},
		{
			name: "required index not unique",
			set: testSet(
				"CREATE TABLE franchise_season_metric (id uuid PRIMARY KEY, franchise_season_id uuid NOT NULL,"+auditColumns+");"+
					"CREATE INDEX ix_fsm_franchise_season_id ON franchise_season_metric (franchise_season_id);",
				"DROP TABLE franchise_season_metric;",
			),
			rules: Rules{RequiredIndexes: []IndexRequirement{{Table: "franchise_season_metric", Columns: []string{"franchise_season_id"}, Unique: true}}},
			rule:  RuleRequiredIndex,
			want:  "exists but is not unique",
		},
		{
			name: "set null on a not null column",
			set: testSet(
				"CREATE TABLE venue (id uuid PRIMARY KEY,"+auditColumns+");"+
					"CREATE TABLE franchise (id uuid PRIMARY KEY, venue_id uuid NOT NULL,"+auditColumns+","+
					" CONSTRAINT fk_franchise_venue FOREIGN KEY (venue_id) REFERENCES venue (id) ON DELETE SET NULL);",
				"DROP TABLE franchise; DROP TABLE venue;",
			),
			rules: noRequired,
			rule:  RuleForeignKey,
			want:  "is ON DELETE SET NULL but venue_id is NOT NULL",
		},
		{
			name: "foreign key type mismatch",
			set: testSet(
				"CREATE TABLE venue (id uuid PRIMARY KEY,"+auditColumns+");"+
					"CREATE TABLE franchise (id uuid PRIMARY KEY, venue_id text NULL,"+auditColumns+","+
					" CONSTRAINT fk_franchise_venue FOREIGN KEY (venue_id) REFERENCES venue (id));",
				"DROP TABLE franchise; DROP TABLE venue;",
			),
			rules: noRequired,
			rule:  RuleForeignKey,
			want:  "does not match",
		},
		{
			name: "external id without hash index",
			set: testSet(
				"CREATE TABLE venue (id uuid PRIMARY KEY,"+auditColumns+");"+
					"CREATE TABLE venue_external_id (id uuid PRIMARY KEY, venue_id uuid NOT NULL, value text NOT NULL,"+
					" provider integer NOT NULL, source_url text NOT NULL, source_url_hash text NOT NULL,"+auditColumns+","+
					" CONSTRAINT fk_venue_external_id_venue FOREIGN KEY (venue_id) REFERENCES venue (id) ON DELETE CASCADE);",
				"DROP TABLE venue_external_id; DROP TABLE venue;",
			),
			rules: noRequired,
			rule:  RuleExternalID,
			want:  "missing unique index on (provider, source_url_hash)",
		},
		{
			name: "external id without cascade",
			set: testSet(
				"CREATE TABLE venue (id uuid PRIMARY KEY,"+auditColumns+");"+
					"CREATE TABLE venue_external_id (id uuid PRIMARY KEY, venue_id uuid NOT NULL, value text NOT NULL,"+
					" provider integer NOT NULL, source_url text NOT NULL, source_url_hash text NOT NULL,"+auditColumns+","+
					" CONSTRAINT fk_venue_external_id_venue FOREIGN KEY (venue_id) REFERENCES venue (id));"+
					"CREATE UNIQUE INDEX ux_venue_external_id_hash ON venue_external_id (provider, source_url_hash);",
				"DROP TABLE venue_external_id; DROP TABLE venue;",
			),
			rules: noRequired,
			rule:  RuleExternalID,
			want:  "no ON DELETE CASCADE",
		},
		{
			name: "identifier too long",
			set: testSet(
				"CREATE TABLE venue (id uuid PRIMARY KEY,"+auditColumns+");"+
					"CREATE INDEX "+strings.Repeat("x", 70)+" ON venue (created_utc);",
				"DROP TABLE venue;",
			),
			rules: noRequired,
			rule:  RuleIdentifier,
			want:  "is 70 characters",
		},
		{
			name:  "unparsable up",
			set:   testSet("CREATE VIEW v AS SELECT 1;", "DROP VIEW v;"),
			rules: noRequired,
			rule:  RuleParse,
			want:  "unsupported statement",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			report := Verify(tc.set, tc.rules)
			if report.OK() {
				t.Fatalf("expected findings")
			}
			findings := report.ByRule(tc.rule)
			if len(findings) == 0 {
				t.Fatalf("expected a %s finding, got %v", tc.rule, report.Findings)
			}
			matched := false
			for _, f := range findings {
				if strings.Contains(f.Message, tc.want) {
					matched = true
				}
			}
			if !matched {
				t.Fatalf("expected a %s finding containing %q, got %v", tc.rule, tc.want, findings)
			}
		})
	}
}

func TestReport_ErrListsFindings(t *testing.T) {
	report := Report{Findings: []Finding{
		{Version: 3, Migration: "000003_create_season", Rule: RuleReversible, Message: "down does not restore prior schema: missing table season"},
		{Rule: RuleRequiredIndex, Message: "missing unique index on season(year)"},
	}}
	err := report.Err()
	if err == nil {
		t.Fatalf("expected error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "2 finding(s)") || !strings.Contains(msg, "[reversible] 000003_create_season") {
		t.Fatalf("unexpected error text: %s", msg)
	}
}
