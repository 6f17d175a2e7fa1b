package schema

import (
	"strings"
	"testing"
)

func mustApply(t *testing.T, cat *Catalog, script string) {
	t.Helper()
	stmts, err := ParseStatements(script)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := cat.Apply(stmts...); err != nil {
		t.Fatalf("apply: %v", err)
	}
}

func applyErr(t *testing.T, cat *Catalog, script string) error {
	t.Helper()
	stmts, err := ParseStatements(script)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return cat.Apply(stmts...)
}

const franchiseFixture = `
CREATE TABLE franchise (
    id uuid PRIMARY KEY,
    slug varchar(64) NOT NULL
);
CREATE TABLE franchise_logo (
    id uuid PRIMARY KEY,
    franchise_id uuid NOT NULL,
    url text NOT NULL,
    CONSTRAINT fk_franchise_logo_franchise FOREIGN KEY (franchise_id) REFERENCES franchise (id) ON DELETE CASCADE
);
CREATE INDEX ix_franchise_logo_franchise_id ON franchise_logo (franchise_id);
`

func TestCatalogApply_CreateAndDrop(t *testing.T) {
	cat := NewCatalog()
	mustApply(t, cat, franchiseFixture)

	logo, ok := cat.Table("franchise_logo")
	if !ok {
		t.Fatalf("franchise_logo missing")
	}
	if len(logo.ForeignKeys) != 1 || logo.ForeignKeys[0].OnDelete != ActionCascade {
		t.Fatalf("unexpected foreign keys: %+v", logo.ForeignKeys)
	}
	if len(cat.IndexesOn("franchise_logo")) != 1 {
		t.Fatalf("expected index on franchise_logo")
	}

	if err := applyErr(t, cat, "DROP TABLE franchise;"); err == nil || !strings.Contains(err.Error(), "still referenced") {
		t.Fatalf("expected referenced-table error, got %v", err)
	}

	mustApply(t, cat, "DROP TABLE franchise_logo; DROP TABLE franchise;")
	if len(cat.Tables()) != 0 || len(cat.Indexes()) != 0 {
		t.Fatalf("expected empty catalog, got %d tables %d indexes", len(cat.Tables()), len(cat.Indexes()))
	}
}

func TestCatalogApply_Errors(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   string
	}{
		{name: "duplicate table", script: "CREATE TABLE franchise (id uuid PRIMARY KEY);", want: "already exists"},
		{name: "duplicate column", script: "ALTER TABLE franchise ADD COLUMN slug text;", want: "already exists"},
		{name: "missing table", script: "DROP TABLE venue;", want: "does not exist"},
		{name: "missing column", script: "ALTER TABLE franchise DROP COLUMN abbreviation;", want: "does not exist"},
		{name: "missing index", script: "DROP INDEX ix_nope;", want: "does not exist"},
		{name: "fk to missing table", script: "ALTER TABLE franchise ADD COLUMN venue_id uuid REFERENCES venue (id);", want: "does not exist"},
		{name: "fk to non unique column", script: "ALTER TABLE franchise_logo ADD CONSTRAINT fk_bad FOREIGN KEY (url) REFERENCES franchise (slug);", want: "no unique key"},
		{name: "name clash", script: "CREATE INDEX franchise_pkey ON franchise (slug);", want: "already in use"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cat := NewCatalog()
			mustApply(t, cat, franchiseFixture)
			err := applyErr(t, cat, tc.script)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestCatalogApply_IfExistsIsNoop(t *testing.T) {
	cat := NewCatalog()
	mustApply(t, cat, franchiseFixture)
	before := cat.Clone()

	mustApply(t, cat, `
DROP TABLE IF EXISTS venue;
DROP INDEX IF EXISTS ix_nope;
ALTER TABLE franchise DROP COLUMN IF EXISTS abbreviation;
ALTER TABLE franchise DROP CONSTRAINT IF EXISTS fk_nope;
CREATE TABLE IF NOT EXISTS franchise (id uuid PRIMARY KEY);
CREATE INDEX IF NOT EXISTS ix_franchise_logo_franchise_id ON franchise_logo (franchise_id);
`)
	if diff := Diff(before, cat); len(diff) != 0 {
		t.Fatalf("expected no changes, got %v", diff)
	}
}

func TestCatalogApply_UniqueIndexBacksForeignKey(t *testing.T) {
	cat := NewCatalog()
	mustApply(t, cat, `
CREATE TABLE inbox_state (
    id bigserial PRIMARY KEY,
    message_id uuid NOT NULL,
    consumer_id uuid NOT NULL
);
CREATE UNIQUE INDEX ux_inbox_state_message_consumer ON inbox_state (message_id, consumer_id);
CREATE TABLE outbox_message (
    sequence_number bigserial PRIMARY KEY,
    inbox_message_id uuid NULL,
    inbox_consumer_id uuid NULL,
    CONSTRAINT fk_outbox_message_inbox FOREIGN KEY (inbox_message_id, inbox_consumer_id)
        REFERENCES inbox_state (message_id, consumer_id)
);
`)
	err := applyErr(t, cat, "DROP INDEX ux_inbox_state_message_consumer;")
	if err == nil || !strings.Contains(err.Error(), "required by") {
		t.Fatalf("expected index to be protected by the foreign key, got %v", err)
	}

	inbox, _ := cat.Table("inbox_state")
	id, _ := inbox.Column("id")
	if id.Type != "bigint" || id.Nullable {
		t.Fatalf("bigserial should normalize to NOT NULL bigint, got %+v", id)
	}
}

func TestCatalogApply_DropColumnRemovesDependents(t *testing.T) {
	cat := NewCatalog()
	mustApply(t, cat, franchiseFixture)
	mustApply(t, cat, "ALTER TABLE franchise_logo DROP COLUMN franchise_id;")

	logo, _ := cat.Table("franchise_logo")
	if len(logo.ForeignKeys) != 0 {
		t.Fatalf("expected foreign key to be removed with its column")
	}
	if len(cat.IndexesOn("franchise_logo")) != 0 {
		t.Fatalf("expected index to be removed with its column")
	}

	if err := applyErr(t, cat, "ALTER TABLE franchise DROP COLUMN id;"); err != nil {
		t.Fatalf("unreferenced pk column should drop cleanly: %v", err)
	}
}

func TestCatalogClone_IsIndependent(t *testing.T) {
	cat := NewCatalog()
	mustApply(t, cat, franchiseFixture)
	clone := cat.Clone()

	mustApply(t, clone, "ALTER TABLE franchise ADD COLUMN abbreviation varchar(8) NULL;")
	diff := Diff(cat, clone)
	if len(diff) != 1 || !strings.Contains(diff[0], "unexpected column abbreviation") {
		t.Fatalf("unexpected diff: %v", diff)
	}
	if f, _ := cat.Table("franchise"); len(f.Columns) != 2 {
		t.Fatalf("original catalog was mutated")
	}
}

func TestDiff_ReportsConstraintDrift(t *testing.T) {
	want := NewCatalog()
	mustApply(t, want, franchiseFixture)
	got := want.Clone()
	mustApply(t, got, `
ALTER TABLE franchise_logo DROP CONSTRAINT fk_franchise_logo_franchise;
ALTER TABLE franchise_logo ADD CONSTRAINT fk_franchise_logo_franchise FOREIGN KEY (franchise_id) REFERENCES franchise (id) ON DELETE RESTRICT;
ALTER TABLE franchise ALTER COLUMN slug DROP NOT NULL;
`)
	diff := Diff(want, got)
	if len(diff) != 2 {
		t.Fatalf("expected 2 differences, got %v", diff)
	}
	joined := strings.Join(diff, "\n")
	if !strings.Contains(joined, "nullable") || !strings.Contains(joined, "on delete RESTRICT") {
		t.Fatalf("unexpected diff: %s", joined)
	}
}
