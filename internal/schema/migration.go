package schema

import (
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
)

var migrationFileRe = regexp.MustCompile(`^([0-9]+)_([a-z0-9_]+)\.(up|down)\.sql$`)

// Migration is one versioned pair of forward and reverse scripts.
type Migration struct {
	Version uint
	Name    string
	Up      string
	Down    string
}

func (m Migration) String() string {
	return fmt.Sprintf("%06d_%s", m.Version, m.Name)
}

// Set is an ordered list of migrations, lowest version first.
type Set []Migration

func (s Set) Latest() uint {
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1].Version
}

// Load reads a golang-migrate style directory. Every version must have both
// an up and a down script under the same title.
func Load(fsys fs.FS, dir string) (Set, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir %q: %w", dir, err)
	}

	byVersion := make(map[uint]*Migration)
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".sql" {
			continue
		}
		match := migrationFileRe.FindStringSubmatch(entry.Name())
		if match == nil {
			return nil, fmt.Errorf("migration file %q does not match NNNNNN_title.(up|down).sql", entry.Name())
		}
		version, err := strconv.ParseUint(match[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse version of %q: %w", entry.Name(), err)
		}
		if version == 0 {
			return nil, fmt.Errorf("migration file %q: version must be > 0", entry.Name())
		}

		raw, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read migration %q: %w", entry.Name(), err)
		}

		m, ok := byVersion[uint(version)]
		if !ok {
			m = &Migration{Version: uint(version), Name: match[2]}
			byVersion[uint(version)] = m
		}
		if m.Name != match[2] {
			return nil, fmt.Errorf("version %d has conflicting titles %q and %q", version, m.Name, match[2])
		}

		switch match[3] {
		case "up":
			if m.Up != "" {
				return nil, fmt.Errorf("version %d has more than one up script", version)
			}
			m.Up = string(raw)
		case "down":
			if m.Down != "" {
				return nil, fmt.Errorf("version %d has more than one down script", version)
			}
			m.Down = string(raw)
		}
	}

	out := make(Set, 0, len(byVersion))
	for _, m := range byVersion {
		if m.Up == "" {
			return nil, fmt.Errorf("migration %s has no up script", m)
		}
		if m.Down == "" {
			return nil, fmt.Errorf("migration %s has no down script", m)
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// Catalog replays every up script and returns the resulting schema.
func (s Set) Catalog() (*Catalog, error) {
	return s.CatalogAt(s.Latest())
}

// CatalogAt replays up scripts for versions <= version.
func (s Set) CatalogAt(version uint) (*Catalog, error) {
	cat := NewCatalog()
	for _, m := range s {
		if m.Version > version {
			break
		}
		stmts, err := ParseStatements(m.Up)
		if err != nil {
			return nil, fmt.Errorf("migration %s up: %w", m, err)
		}
		if err := cat.Apply(stmts...); err != nil {
			return nil, fmt.Errorf("migration %s up: %w", m, err)
		}
	}
	return cat, nil
}
