package schema

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

const (
	ActionNoAction   = "NO ACTION"
	ActionRestrict   = "RESTRICT"
	ActionCascade    = "CASCADE"
	ActionSetNull    = "SET NULL"
	ActionSetDefault = "SET DEFAULT"
)

// MaxIdentifierLength is PostgreSQL's NAMEDATALEN-1; longer names are silently truncated.
const MaxIdentifierLength = 63

type Column struct {
	Name     string
	Type     string
	Nullable bool
}

type Key struct {
	Name    string
	Columns []string
}

type ForeignKey struct {
	Name       string
	Columns    []string
	RefTable   string
	RefColumns []string
	OnDelete   string
	OnUpdate   string
}

type Table struct {
	Name        string
	Columns     []Column
	PrimaryKey  *Key
	Uniques     []Key
	ForeignKeys []ForeignKey
}

type Index struct {
	Name    string
	Table   string
	Columns []string
	Unique  bool
}

// Catalog is an in-memory model of a schema: tables with their columns and
// constraints, plus standalone indexes.
type Catalog struct {
	tables  map[string]*Table
	indexes map[string]*Index
}

func NewCatalog() *Catalog {
	return &Catalog{
		tables:  make(map[string]*Table),
		indexes: make(map[string]*Index),
	}
}

func (c *Catalog) Table(name string) (*Table, bool) {
	t, ok := c.tables[name]
	return t, ok
}

func (c *Catalog) Tables() []*Table {
	out := make([]*Table, 0, len(c.tables))
	for _, t := range c.tables {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (c *Catalog) Index(name string) (Index, bool) {
	idx, ok := c.indexes[name]
	if !ok {
		return Index{}, false
	}
	return *idx, true
}

func (c *Catalog) Indexes() []Index {
	out := make([]Index, 0, len(c.indexes))
	for _, idx := range c.indexes {
		out = append(out, *idx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (c *Catalog) IndexesOn(table string) []Index {
	out := make([]Index, 0)
	for _, idx := range c.Indexes() {
		if idx.Table == table {
			out = append(out, idx)
		}
	}
	return out
}

// PutTable registers a table as-is. It is used by the live inspector, which
// reads already-consistent state from the database.
func (c *Catalog) PutTable(t Table) {
	cp := t.clone()
	c.tables[t.Name] = &cp
}

func (c *Catalog) PutIndex(idx Index) {
	cp := idx
	cp.Columns = slices.Clone(idx.Columns)
	c.indexes[idx.Name] = &cp
}

// Apply runs statements in order and stops at the first one that cannot be
// applied to the current state.
func (c *Catalog) Apply(stmts ...Statement) error {
	for _, stmt := range stmts {
		if err := stmt.applyTo(c); err != nil {
			return fmt.Errorf("%s: %w", stmt, err)
		}
	}
	return nil
}

func (c *Catalog) Clone() *Catalog {
	out := NewCatalog()
	for name, t := range c.tables {
		cp := t.clone()
		out.tables[name] = &cp
	}
	for name, idx := range c.indexes {
		cp := *idx
		cp.Columns = slices.Clone(idx.Columns)
		out.indexes[name] = &cp
	}
	return out
}

func (t Table) clone() Table {
	out := Table{
		Name:    t.Name,
		Columns: slices.Clone(t.Columns),
	}
	if t.PrimaryKey != nil {
		pk := Key{Name: t.PrimaryKey.Name, Columns: slices.Clone(t.PrimaryKey.Columns)}
		out.PrimaryKey = &pk
	}
	for _, u := range t.Uniques {
		out.Uniques = append(out.Uniques, Key{Name: u.Name, Columns: slices.Clone(u.Columns)})
	}
	for _, fk := range t.ForeignKeys {
		cp := fk
		cp.Columns = slices.Clone(fk.Columns)
		cp.RefColumns = slices.Clone(fk.RefColumns)
		out.ForeignKeys = append(out.ForeignKeys, cp)
	}
	return out
}

func (t *Table) Column(name string) (Column, bool) {
	for _, col := range t.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return Column{}, false
}

func (t *Table) columnIndex(name string) int {
	for i, col := range t.Columns {
		if col.Name == name {
			return i
		}
	}
	return -1
}

func (t *Table) hasColumns(names []string) error {
	for _, name := range names {
		if t.columnIndex(name) < 0 {
			return fmt.Errorf("column %q does not exist on %q", name, t.Name)
		}
	}
	return nil
}

func (t *Table) foreignKey(name string) int {
	for i, fk := range t.ForeignKeys {
		if fk.Name == name {
			return i
		}
	}
	return -1
}

func (t *Table) unique(name string) int {
	for i, u := range t.Uniques {
		if u.Name == name {
			return i
		}
	}
	return -1
}

// relationNameTaken reports whether a name is used in the shared relation
// namespace: tables, indexes and the indexes behind primary key and unique
// constraints.
func (c *Catalog) relationNameTaken(name string) bool {
	if _, ok := c.tables[name]; ok {
		return true
	}
	if _, ok := c.indexes[name]; ok {
		return true
	}
	for _, t := range c.tables {
		if t.PrimaryKey != nil && t.PrimaryKey.Name == name {
			return true
		}
		if t.unique(name) >= 0 {
			return true
		}
	}
	return false
}

// isUniqueKey reports whether columns exactly match the primary key, a unique
// constraint or a unique index of the table.
func (c *Catalog) isUniqueKey(table string, columns []string) bool {
	t, ok := c.tables[table]
	if !ok {
		return false
	}
	if t.PrimaryKey != nil && sameSet(t.PrimaryKey.Columns, columns) {
		return true
	}
	for _, u := range t.Uniques {
		if sameSet(u.Columns, columns) {
			return true
		}
	}
	for _, idx := range c.indexes {
		if idx.Table == table && idx.Unique && sameSet(idx.Columns, columns) {
			return true
		}
	}
	return false
}

// referencingKeys lists foreign keys of other tables that point at table.
func (c *Catalog) referencingKeys(table string) []string {
	var refs []string
	for _, t := range c.tables {
		if t.Name == table {
			continue
		}
		for _, fk := range t.ForeignKeys {
			if fk.RefTable == table {
				refs = append(refs, t.Name+"."+fk.Name)
			}
		}
	}
	sort.Strings(refs)
	return refs
}

// keyInUse reports whether dropping a unique key on table would leave some
// foreign key without a matching unique key.
func (c *Catalog) keyInUse(table string, columns []string, dropping func(*Catalog)) []string {
	var users []string
	for _, t := range c.tables {
		for _, fk := range t.ForeignKeys {
			if fk.RefTable == table && sameSet(fk.RefColumns, columns) {
				users = append(users, t.Name+"."+fk.Name)
			}
		}
	}
	if len(users) == 0 {
		return nil
	}
	trial := c.Clone()
	dropping(trial)
	if trial.isUniqueKey(table, columns) {
		return nil
	}
	sort.Strings(users)
	return users
}

func (c *Catalog) createTable(s CreateTable) error {
	if _, exists := c.tables[s.Name]; exists {
		if s.IfNotExists {
			return nil
		}
		return fmt.Errorf("table %q already exists", s.Name)
	}
	if c.relationNameTaken(s.Name) {
		return fmt.Errorf("relation name %q is already in use", s.Name)
	}

	t := &Table{Name: s.Name}
	for _, col := range s.Columns {
		if t.columnIndex(col.Name) >= 0 {
			return fmt.Errorf("column %q specified more than once", col.Name)
		}
		t.Columns = append(t.Columns, col)
	}

	// Register first so self-referencing foreign keys resolve.
	c.tables[s.Name] = t
	for _, con := range s.Constraints {
		if err := c.addConstraint(t, con); err != nil {
			delete(c.tables, s.Name)
			return err
		}
	}
	return nil
}

func (c *Catalog) dropTable(s DropTable) error {
	if _, exists := c.tables[s.Name]; !exists {
		if s.IfExists {
			return nil
		}
		return fmt.Errorf("table %q does not exist", s.Name)
	}
	if refs := c.referencingKeys(s.Name); len(refs) > 0 {
		return fmt.Errorf("table %q is still referenced by %s", s.Name, strings.Join(refs, ", "))
	}
	for name, idx := range c.indexes {
		if idx.Table == s.Name {
			delete(c.indexes, name)
		}
	}
	delete(c.tables, s.Name)
	return nil
}

func (c *Catalog) addColumn(s AddColumn) error {
	t, ok := c.tables[s.Table]
	if !ok {
		return fmt.Errorf("table %q does not exist", s.Table)
	}
	if t.columnIndex(s.Column.Name) >= 0 {
		if s.IfNotExists {
			return nil
		}
		return fmt.Errorf("column %q already exists on %q", s.Column.Name, s.Table)
	}
	t.Columns = append(t.Columns, s.Column)
	return nil
}

func (c *Catalog) dropColumn(s DropColumn) error {
	t, ok := c.tables[s.Table]
	if !ok {
		return fmt.Errorf("table %q does not exist", s.Table)
	}
	pos := t.columnIndex(s.Column)
	if pos < 0 {
		if s.IfExists {
			return nil
		}
		return fmt.Errorf("column %q does not exist on %q", s.Column, s.Table)
	}

	for _, other := range c.tables {
		if other.Name == t.Name {
			continue
		}
		for _, fk := range other.ForeignKeys {
			if fk.RefTable == t.Name && slices.Contains(fk.RefColumns, s.Column) {
				return fmt.Errorf("column %q is referenced by %s.%s", s.Column, other.Name, fk.Name)
			}
		}
	}

	if t.PrimaryKey != nil && slices.Contains(t.PrimaryKey.Columns, s.Column) {
		t.PrimaryKey = nil
	}
	t.Uniques = slices.DeleteFunc(t.Uniques, func(k Key) bool { return slices.Contains(k.Columns, s.Column) })
	t.ForeignKeys = slices.DeleteFunc(t.ForeignKeys, func(fk ForeignKey) bool {
		return slices.Contains(fk.Columns, s.Column) || (fk.RefTable == t.Name && slices.Contains(fk.RefColumns, s.Column))
	})
	for name, idx := range c.indexes {
		if idx.Table == t.Name && slices.Contains(idx.Columns, s.Column) {
			delete(c.indexes, name)
		}
	}
	t.Columns = slices.Delete(t.Columns, pos, pos+1)
	return nil
}

func (c *Catalog) alterColumn(s AlterColumn) error {
	t, ok := c.tables[s.Table]
	if !ok {
		return fmt.Errorf("table %q does not exist", s.Table)
	}
	pos := t.columnIndex(s.Column)
	if pos < 0 {
		return fmt.Errorf("column %q does not exist on %q", s.Column, s.Table)
	}
	if s.Type != "" {
		t.Columns[pos].Type = s.Type
	}
	if s.Nullable != nil {
		if *s.Nullable && t.PrimaryKey != nil && slices.Contains(t.PrimaryKey.Columns, s.Column) {
			return fmt.Errorf("column %q is in the primary key of %q", s.Column, s.Table)
		}
		t.Columns[pos].Nullable = *s.Nullable
	}
	return nil
}

func (c *Catalog) addConstraint(t *Table, con Constraint) error {
	if con.Name == "" {
		return fmt.Errorf("constraint on %q has no name", t.Name)
	}
	if err := t.hasColumns(con.Columns); err != nil {
		return err
	}

	switch con.Kind {
	case ConstraintPrimaryKey:
		if t.PrimaryKey != nil {
			return fmt.Errorf("table %q already has primary key %q", t.Name, t.PrimaryKey.Name)
		}
		if c.relationNameTaken(con.Name) {
			return fmt.Errorf("relation name %q is already in use", con.Name)
		}
		t.PrimaryKey = &Key{Name: con.Name, Columns: slices.Clone(con.Columns)}
		for _, name := range con.Columns {
			t.Columns[t.columnIndex(name)].Nullable = false
		}
	case ConstraintUnique:
		if c.relationNameTaken(con.Name) {
			return fmt.Errorf("relation name %q is already in use", con.Name)
		}
		t.Uniques = append(t.Uniques, Key{Name: con.Name, Columns: slices.Clone(con.Columns)})
	case ConstraintForeignKey:
		if t.foreignKey(con.Name) >= 0 {
			return fmt.Errorf("constraint %q already exists on %q", con.Name, t.Name)
		}
		ref, ok := c.tables[con.RefTable]
		if !ok {
			return fmt.Errorf("referenced table %q does not exist", con.RefTable)
		}
		refColumns := con.RefColumns
		if len(refColumns) == 0 {
			if ref.PrimaryKey == nil {
				return fmt.Errorf("referenced table %q has no primary key", con.RefTable)
			}
			refColumns = ref.PrimaryKey.Columns
		}
		if err := ref.hasColumns(refColumns); err != nil {
			return err
		}
		if len(refColumns) != len(con.Columns) {
			return fmt.Errorf("foreign key %q has %d columns but references %d", con.Name, len(con.Columns), len(refColumns))
		}
		if !c.isUniqueKey(con.RefTable, refColumns) {
			return fmt.Errorf("no unique key on %q matches (%s)", con.RefTable, strings.Join(refColumns, ", "))
		}
		t.ForeignKeys = append(t.ForeignKeys, ForeignKey{
			Name:       con.Name,
			Columns:    slices.Clone(con.Columns),
			RefTable:   con.RefTable,
			RefColumns: slices.Clone(refColumns),
			OnDelete:   defaultAction(con.OnDelete),
			OnUpdate:   defaultAction(con.OnUpdate),
		})
	default:
		return fmt.Errorf("unknown constraint kind %d", con.Kind)
	}
	return nil
}

func (c *Catalog) dropConstraint(s DropConstraint) error {
	t, ok := c.tables[s.Table]
	if !ok {
		return fmt.Errorf("table %q does not exist", s.Table)
	}

	if pos := t.foreignKey(s.Name); pos >= 0 {
		t.ForeignKeys = slices.Delete(t.ForeignKeys, pos, pos+1)
		return nil
	}
	if t.PrimaryKey != nil && t.PrimaryKey.Name == s.Name {
		if users := c.keyInUse(t.Name, t.PrimaryKey.Columns, func(trial *Catalog) { trial.tables[t.Name].PrimaryKey = nil }); len(users) > 0 {
			return fmt.Errorf("primary key %q is required by %s", s.Name, strings.Join(users, ", "))
		}
		t.PrimaryKey = nil
		return nil
	}
	if pos := t.unique(s.Name); pos >= 0 {
		columns := t.Uniques[pos].Columns
		if users := c.keyInUse(t.Name, columns, func(trial *Catalog) {
			tt := trial.tables[t.Name]
			tt.Uniques = slices.Delete(tt.Uniques, pos, pos+1)
		}); len(users) > 0 {
			return fmt.Errorf("unique constraint %q is required by %s", s.Name, strings.Join(users, ", "))
		}
		t.Uniques = slices.Delete(t.Uniques, pos, pos+1)
		return nil
	}
	if s.IfExists {
		return nil
	}
	return fmt.Errorf("constraint %q does not exist on %q", s.Name, s.Table)
}

func (c *Catalog) createIndex(s CreateIndex) error {
	if _, exists := c.indexes[s.Index.Name]; exists && s.IfNotExists {
		return nil
	}
	if c.relationNameTaken(s.Index.Name) {
		if s.IfNotExists {
			return nil
		}
		return fmt.Errorf("relation name %q is already in use", s.Index.Name)
	}
	t, ok := c.tables[s.Index.Table]
	if !ok {
		return fmt.Errorf("table %q does not exist", s.Index.Table)
	}
	if err := t.hasColumns(s.Index.Columns); err != nil {
		return err
	}
	c.PutIndex(s.Index)
	return nil
}

func (c *Catalog) dropIndex(s DropIndex) error {
	idx, ok := c.indexes[s.Name]
	if !ok {
		if s.IfExists {
			return nil
		}
		return fmt.Errorf("index %q does not exist", s.Name)
	}
	if idx.Unique {
		if users := c.keyInUse(idx.Table, idx.Columns, func(trial *Catalog) { delete(trial.indexes, s.Name) }); len(users) > 0 {
			return fmt.Errorf("index %q is required by %s", s.Name, strings.Join(users, ", "))
		}
	}
	delete(c.indexes, s.Name)
	return nil
}

func defaultAction(action string) string {
	if action == "" {
		return ActionNoAction
	}
	return action
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	x := slices.Clone(a)
	y := slices.Clone(b)
	slices.Sort(x)
	slices.Sort(y)
	return slices.Equal(x, y)
}
