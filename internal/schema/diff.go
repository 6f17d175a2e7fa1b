package schema

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// Diff lists structural differences between want and got. An empty result
// means the catalogs are equal.
func Diff(want, got *Catalog) []string {
	var out []string

	for _, name := range unionKeys(want.tables, got.tables) {
		wt, inWant := want.tables[name]
		gt, inGot := got.tables[name]
		switch {
		case !inGot:
			out = append(out, fmt.Sprintf("missing table %s", name))
		case !inWant:
			out = append(out, fmt.Sprintf("unexpected table %s", name))
		default:
			out = append(out, diffTable(wt, gt)...)
		}
	}

	for _, name := range unionKeys(want.indexes, got.indexes) {
		wi, inWant := want.indexes[name]
		gi, inGot := got.indexes[name]
		switch {
		case !inGot:
			out = append(out, fmt.Sprintf("missing index %s", describeIndex(*wi)))
		case !inWant:
			out = append(out, fmt.Sprintf("unexpected index %s", describeIndex(*gi)))
		case !indexEqual(*wi, *gi):
			out = append(out, fmt.Sprintf("index %s: want %s, got %s", name, describeIndex(*wi), describeIndex(*gi)))
		}
	}
	return out
}

// Equal reports whether two catalogs are structurally identical.
func Equal(a, b *Catalog) bool {
	return len(Diff(a, b)) == 0
}

func diffTable(want, got *Table) []string {
	var out []string
	prefix := "table " + want.Name + ": "

	wantCols := make(map[string]Column, len(want.Columns))
	for _, col := range want.Columns {
		wantCols[col.Name] = col
	}
	gotCols := make(map[string]Column, len(got.Columns))
	for _, col := range got.Columns {
		gotCols[col.Name] = col
	}
	for _, name := range unionKeys(wantCols, gotCols) {
		wc, inWant := wantCols[name]
		gc, inGot := gotCols[name]
		switch {
		case !inGot:
			out = append(out, prefix+"missing column "+name)
		case !inWant:
			out = append(out, prefix+"unexpected column "+name)
		default:
			if wc.Type != gc.Type {
				out = append(out, fmt.Sprintf("%scolumn %s type: want %s, got %s", prefix, name, wc.Type, gc.Type))
			}
			if wc.Nullable != gc.Nullable {
				out = append(out, fmt.Sprintf("%scolumn %s nullable: want %t, got %t", prefix, name, wc.Nullable, gc.Nullable))
			}
		}
	}
	if len(out) == 0 && !slices.Equal(columnNames(want.Columns), columnNames(got.Columns)) {
		out = append(out, fmt.Sprintf("%scolumn order: want [%s], got [%s]", prefix,
			strings.Join(columnNames(want.Columns), ", "), strings.Join(columnNames(got.Columns), ", ")))
	}

	if describeKey(want.PrimaryKey) != describeKey(got.PrimaryKey) {
		out = append(out, fmt.Sprintf("%sprimary key: want %s, got %s", prefix, describeKey(want.PrimaryKey), describeKey(got.PrimaryKey)))
	}

	wantUniques := keysByName(want.Uniques)
	gotUniques := keysByName(got.Uniques)
	for _, name := range unionKeys(wantUniques, gotUniques) {
		wu, inWant := wantUniques[name]
		gu, inGot := gotUniques[name]
		switch {
		case !inGot:
			out = append(out, prefix+"missing unique constraint "+describeKey(&wu))
		case !inWant:
			out = append(out, prefix+"unexpected unique constraint "+describeKey(&gu))
		case !slices.Equal(wu.Columns, gu.Columns):
			out = append(out, fmt.Sprintf("%sunique constraint %s: want %s, got %s", prefix, name, describeKey(&wu), describeKey(&gu)))
		}
	}

	wantFKs := foreignKeysByName(want.ForeignKeys)
	gotFKs := foreignKeysByName(got.ForeignKeys)
	for _, name := range unionKeys(wantFKs, gotFKs) {
		wf, inWant := wantFKs[name]
		gf, inGot := gotFKs[name]
		switch {
		case !inGot:
			out = append(out, prefix+"missing foreign key "+describeForeignKey(wf))
		case !inWant:
			out = append(out, prefix+"unexpected foreign key "+describeForeignKey(gf))
		case describeForeignKey(wf) != describeForeignKey(gf):
			out = append(out, fmt.Sprintf("%sforeign key %s: want %s, got %s", prefix, name, describeForeignKey(wf), describeForeignKey(gf)))
		}
	}
	return out
}

func indexEqual(a, b Index) bool {
	return a.Table == b.Table && a.Unique == b.Unique && slices.Equal(a.Columns, b.Columns)
}

func describeIndex(idx Index) string {
	kind := ""
	if idx.Unique {
		kind = "unique "
	}
	return fmt.Sprintf("%s%s on %s(%s)", kind, idx.Name, idx.Table, strings.Join(idx.Columns, ", "))
}

func describeKey(k *Key) string {
	if k == nil {
		return "none"
	}
	return fmt.Sprintf("%s(%s)", k.Name, strings.Join(k.Columns, ", "))
}

func describeForeignKey(fk ForeignKey) string {
	return fmt.Sprintf("%s(%s) -> %s(%s) on delete %s on update %s",
		fk.Name, strings.Join(fk.Columns, ", "), fk.RefTable, strings.Join(fk.RefColumns, ", "),
		defaultAction(fk.OnDelete), defaultAction(fk.OnUpdate))
}

func columnNames(cols []Column) []string {
	out := make([]string, 0, len(cols))
	for _, col := range cols {
		out = append(out, col.Name)
	}
	return out
}

func keysByName(keys []Key) map[string]Key {
	out := make(map[string]Key, len(keys))
	for _, k := range keys {
		out[k.Name] = k
	}
	return out
}

func foreignKeysByName(fks []ForeignKey) map[string]ForeignKey {
	out := make(map[string]ForeignKey, len(fks))
	for _, fk := range fks {
		out[fk.Name] = fk
	}
	return out
}

func unionKeys[V any](a, b map[string]V) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		seen[k] = struct{}{}
	}
	for k := range b {
		seen[k] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
