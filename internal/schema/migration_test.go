package schema

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/riskibarqy/sportsdata-producer/db/migrations"
)

func TestLoad_SortsAndPairs(t *testing.T) {
	fsys := fstest.MapFS{
		"m/000002_add_slug.up.sql":       {Data: []byte("ALTER TABLE venue ADD COLUMN slug text NULL;")},
		"m/000002_add_slug.down.sql":     {Data: []byte("ALTER TABLE venue DROP COLUMN slug;")},
		"m/000001_create_venue.up.sql":   {Data: []byte("CREATE TABLE venue (id uuid PRIMARY KEY);")},
		"m/000001_create_venue.down.sql": {Data: []byte("DROP TABLE venue;")},
		"m/README.md":                    {Data: []byte("ignored")},
	}

	set, err := Load(fsys, "m")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(set) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(set))
	}
	if set[0].Version != 1 || set[1].Version != 2 {
		t.Fatalf("expected ascending versions, got %d then %d", set[0].Version, set[1].Version)
	}
	if set[1].String() != "000002_add_slug" {
		t.Fatalf("unexpected migration name %s", set[1])
	}
	if set.Latest() != 2 {
		t.Fatalf("expected latest 2, got %d", set.Latest())
	}

	cat, err := set.CatalogAt(1)
	if err != nil {
		t.Fatalf("catalog at 1: %v", err)
	}
	venue, _ := cat.Table("venue")
	if _, ok := venue.Column("slug"); ok {
		t.Fatalf("slug must not exist at version 1")
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name  string
		files fstest.MapFS
		want  string
	}{
		{
			name: "missing down",
			files: fstest.MapFS{
				"000001_create_venue.up.sql": {Data: []byte("CREATE TABLE venue (id uuid PRIMARY KEY);")},
			},
			want: "no down script",
		},
		{
			name: "missing up",
			files: fstest.MapFS{
				"000001_create_venue.down.sql": {Data: []byte("DROP TABLE venue;")},
			},
			want: "no up script",
		},
		{
			name: "conflicting titles",
			files: fstest.MapFS{
				"000001_create_venue.up.sql":    {Data: []byte("CREATE TABLE venue (id uuid PRIMARY KEY);")},
				"000001_create_venues.down.sql": {Data: []byte("DROP TABLE venue;")},
			},
			want: "conflicting titles",
		},
		{
			name: "bad name",
			files: fstest.MapFS{
				"create_venue.sql": {Data: []byte("CREATE TABLE venue (id uuid PRIMARY KEY);")},
			},
			want: "does not match",
		},
		{
			name: "zero version",
			files: fstest.MapFS{
				"000000_init.up.sql":   {Data: []byte("CREATE TABLE venue (id uuid PRIMARY KEY);")},
				"000000_init.down.sql": {Data: []byte("DROP TABLE venue;")},
			},
			want: "must be > 0",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(tc.files, ".")
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestLoad_EmbeddedSet(t *testing.T) {
	set, err := Load(migrations.FS, ".")
	if err != nil {
		t.Fatalf("load embedded migrations: %v", err)
	}
	if len(set) != 12 {
		t.Fatalf("expected 12 migrations, got %d", len(set))
	}
	for i, m := range set {
		if m.Version != uint(i+1) {
			t.Fatalf("expected contiguous versions, got %d at position %d", m.Version, i)
		}
	}

	cat, err := set.Catalog()
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	for _, name := range []string{"venue", "franchise", "franchise_season", "franchise_season_metric", "contest", "competition_odds", "inbox_state", "outbox_state", "outbox_message"} {
		if _, ok := cat.Table(name); !ok {
			t.Fatalf("expected table %s after replay", name)
		}
	}

	contest, _ := cat.Table("contest")
	finalized, ok := contest.Column("finalized_utc")
	if !ok || !finalized.Nullable || finalized.Type != "timestamp with time zone" {
		t.Fatalf("unexpected contest.finalized_utc: %+v", finalized)
	}
}
