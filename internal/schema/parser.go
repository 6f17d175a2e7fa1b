package schema

import (
	"fmt"
	"strings"
)

// Statement is one parsed DDL statement that can be replayed onto a Catalog.
type Statement interface {
	fmt.Stringer
	applyTo(c *Catalog) error
}

type ConstraintKind int

const (
	ConstraintPrimaryKey ConstraintKind = iota + 1
	ConstraintUnique
	ConstraintForeignKey
)

type Constraint struct {
	Kind       ConstraintKind
	Name       string
	Columns    []string
	RefTable   string
	RefColumns []string
	OnDelete   string
	OnUpdate   string
}

type CreateTable struct {
	Name        string
	IfNotExists bool
	Columns     []Column
	Constraints []Constraint
}

type DropTable struct {
	Name     string
	IfExists bool
}

type AddColumn struct {
	Table       string
	Column      Column
	IfNotExists bool
}

type DropColumn struct {
	Table    string
	Column   string
	IfExists bool
}

// AlterColumn changes a column's type and/or nullability. Empty Type and nil
// Nullable leave that attribute unchanged.
type AlterColumn struct {
	Table    string
	Column   string
	Type     string
	Nullable *bool
}

type AddConstraint struct {
	Table      string
	Constraint Constraint
}

type DropConstraint struct {
	Table    string
	Name     string
	IfExists bool
}

type CreateIndex struct {
	Index       Index
	IfNotExists bool
}

type DropIndex struct {
	Name     string
	IfExists bool
}

func (s CreateTable) String() string    { return "CREATE TABLE " + s.Name }
func (s DropTable) String() string      { return "DROP TABLE " + s.Name }
func (s AddColumn) String() string      { return "ALTER TABLE " + s.Table + " ADD COLUMN " + s.Column.Name }
func (s DropColumn) String() string     { return "ALTER TABLE " + s.Table + " DROP COLUMN " + s.Column }
func (s AlterColumn) String() string    { return "ALTER TABLE " + s.Table + " ALTER COLUMN " + s.Column }
func (s AddConstraint) String() string  { return "ALTER TABLE " + s.Table + " ADD CONSTRAINT " + s.Constraint.Name }
func (s DropConstraint) String() string { return "ALTER TABLE " + s.Table + " DROP CONSTRAINT " + s.Name }
func (s CreateIndex) String() string    { return "CREATE INDEX " + s.Index.Name }
func (s DropIndex) String() string      { return "DROP INDEX " + s.Name }

func (s CreateTable) applyTo(c *Catalog) error { return c.createTable(s) }
func (s DropTable) applyTo(c *Catalog) error   { return c.dropTable(s) }
func (s AddColumn) applyTo(c *Catalog) error   { return c.addColumn(s) }
func (s DropColumn) applyTo(c *Catalog) error  { return c.dropColumn(s) }
func (s AlterColumn) applyTo(c *Catalog) error { return c.alterColumn(s) }
func (s DropIndex) applyTo(c *Catalog) error   { return c.dropIndex(s) }
func (s CreateIndex) applyTo(c *Catalog) error { return c.createIndex(s) }
func (s DropConstraint) applyTo(c *Catalog) error {
	return c.dropConstraint(s)
}

func (s AddConstraint) applyTo(c *Catalog) error {
	t, ok := c.tables[s.Table]
	if !ok {
		return fmt.Errorf("table %q does not exist", s.Table)
	}
	return c.addConstraint(t, s.Constraint)
}

// ParseStatements parses a migration script. Only the DDL subset used by
// schema migrations is understood; anything else is reported as an error
// naming the offending statement.
func ParseStatements(script string) ([]Statement, error) {
	tokens, err := tokenize(script)
	if err != nil {
		return nil, err
	}

	var out []Statement
	for _, group := range splitStatements(tokens) {
		p := &parser{tokens: group}
		stmts, err := p.parseStatement()
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", preview(joinTokens(group)), err)
		}
		out = append(out, stmts...)
	}
	return out, nil
}

func preview(s string) string {
	const max = 80
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token {
	return p.peekAt(0)
}

func (p *parser) peekAt(offset int) token {
	if p.pos+offset >= len(p.tokens) {
		return token{kind: tokenEOF}
	}
	return p.tokens[p.pos+offset]
}

func (p *parser) next() token {
	tok := p.peek()
	if tok.kind != tokenEOF {
		p.pos++
	}
	return tok
}

func (p *parser) atEnd() bool {
	return p.peek().kind == tokenEOF
}

func (p *parser) isKeyword(words ...string) bool {
	for i, word := range words {
		tok := p.peekAt(i)
		if tok.kind != tokenIdent || tok.quoted || tok.text != word {
			return false
		}
	}
	return true
}

func (p *parser) acceptKeyword(words ...string) bool {
	if !p.isKeyword(words...) {
		return false
	}
	p.pos += len(words)
	return true
}

func (p *parser) expectKeyword(words ...string) error {
	if !p.acceptKeyword(words...) {
		return fmt.Errorf("expected %s, found %s", strings.ToUpper(strings.Join(words, " ")), p.peek())
	}
	return nil
}

func (p *parser) isPunct(text string) bool {
	tok := p.peek()
	return tok.kind == tokenPunct && tok.text == text
}

func (p *parser) expectPunct(text string) error {
	if !p.isPunct(text) {
		return fmt.Errorf("expected %q, found %s", text, p.peek())
	}
	p.pos++
	return nil
}

// expectName reads an identifier, dropping an optional schema qualifier.
func (p *parser) expectName() (string, error) {
	tok := p.next()
	if tok.kind != tokenIdent {
		return "", fmt.Errorf("expected identifier, found %s", tok)
	}
	if p.isPunct(".") {
		p.pos++
		tok = p.next()
		if tok.kind != tokenIdent {
			return "", fmt.Errorf("expected identifier after '.', found %s", tok)
		}
	}
	return tok.text, nil
}

func (p *parser) nameList() ([]string, error) {
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	var names []string
	for {
		name, err := p.expectName()
		if err != nil {
			return nil, err
		}
		names = append(names, name)
		if p.isPunct(",") {
			p.pos++
			continue
		}
		return names, p.expectPunct(")")
	}
}

func (p *parser) expectEnd() error {
	if !p.atEnd() {
		return fmt.Errorf("unexpected %s", p.peek())
	}
	return nil
}

func (p *parser) parseStatement() ([]Statement, error) {
	switch {
	case p.acceptKeyword("create"):
		unique := p.acceptKeyword("unique")
		if p.acceptKeyword("index") {
			stmt, err := p.parseCreateIndex(unique)
			if err != nil {
				return nil, err
			}
			return []Statement{stmt}, nil
		}
		if !unique && p.acceptKeyword("table") {
			stmt, err := p.parseCreateTable()
			if err != nil {
				return nil, err
			}
			return []Statement{stmt}, nil
		}
	case p.acceptKeyword("drop", "table"):
		stmt := DropTable{IfExists: p.acceptKeyword("if", "exists")}
		name, err := p.expectName()
		if err != nil {
			return nil, err
		}
		stmt.Name = name
		if p.isKeyword("cascade") {
			return nil, fmt.Errorf("DROP TABLE ... CASCADE is not supported; drop dependents explicitly")
		}
		p.acceptKeyword("restrict")
		return []Statement{stmt}, p.expectEnd()
	case p.acceptKeyword("drop", "index"):
		p.acceptKeyword("concurrently")
		stmt := DropIndex{IfExists: p.acceptKeyword("if", "exists")}
		name, err := p.expectName()
		if err != nil {
			return nil, err
		}
		stmt.Name = name
		return []Statement{stmt}, p.expectEnd()
	case p.acceptKeyword("alter", "table"):
		return p.parseAlterTable()
	}
	return nil, fmt.Errorf("unsupported statement starting with %s", p.peek())
}

func (p *parser) parseCreateIndex(unique bool) (Statement, error) {
	p.acceptKeyword("concurrently")
	stmt := CreateIndex{IfNotExists: p.acceptKeyword("if", "not", "exists")}
	name, err := p.expectName()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("on"); err != nil {
		return nil, err
	}
	p.acceptKeyword("only")
	table, err := p.expectName()
	if err != nil {
		return nil, err
	}
	if p.acceptKeyword("using") {
		if _, err := p.expectName(); err != nil {
			return nil, err
		}
	}

	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	var columns []string
	for {
		tok := p.next()
		if tok.kind != tokenIdent || p.isPunct("(") {
			return nil, fmt.Errorf("expression indexes are not supported (found %s)", tok)
		}
		columns = append(columns, tok.text)
		p.acceptKeyword("asc")
		p.acceptKeyword("desc")
		if p.acceptKeyword("nulls") && !p.acceptKeyword("first") && !p.acceptKeyword("last") {
			return nil, fmt.Errorf("expected FIRST or LAST after NULLS")
		}
		if p.isPunct(",") {
			p.pos++
			continue
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		break
	}
	if p.isKeyword("where") {
		return nil, fmt.Errorf("partial indexes are not supported")
	}
	if err := p.expectEnd(); err != nil {
		return nil, err
	}

	stmt.Index = Index{Name: name, Table: table, Columns: columns, Unique: unique}
	return stmt, nil
}

func (p *parser) parseCreateTable() (Statement, error) {
	stmt := CreateTable{IfNotExists: p.acceptKeyword("if", "not", "exists")}
	name, err := p.expectName()
	if err != nil {
		return nil, err
	}
	stmt.Name = name

	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	for {
		if p.isKeyword("constraint") || p.isKeyword("primary") || p.isKeyword("foreign") || p.isKeyword("unique") || p.isKeyword("check") {
			con, err := p.parseTableConstraint(name)
			if err != nil {
				return nil, err
			}
			stmt.Constraints = append(stmt.Constraints, con)
		} else {
			col, inline, err := p.parseColumnDef(name)
			if err != nil {
				return nil, err
			}
			stmt.Columns = append(stmt.Columns, col)
			stmt.Constraints = append(stmt.Constraints, inline...)
		}
		if p.isPunct(",") {
			p.pos++
			continue
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		break
	}
	return stmt, p.expectEnd()
}

func (p *parser) parseAlterTable() ([]Statement, error) {
	if p.isKeyword("if", "exists") {
		return nil, fmt.Errorf("ALTER TABLE IF EXISTS is not supported")
	}
	p.acceptKeyword("only")
	table, err := p.expectName()
	if err != nil {
		return nil, err
	}

	var out []Statement
	for {
		stmts, err := p.parseAlterAction(table)
		if err != nil {
			return nil, err
		}
		out = append(out, stmts...)
		if p.isPunct(",") {
			p.pos++
			continue
		}
		return out, p.expectEnd()
	}
}

func (p *parser) parseAlterAction(table string) ([]Statement, error) {
	switch {
	case p.acceptKeyword("add"):
		if p.isKeyword("constraint") || p.isKeyword("primary") || p.isKeyword("foreign") || p.isKeyword("unique") || p.isKeyword("check") {
			con, err := p.parseTableConstraint(table)
			if err != nil {
				return nil, err
			}
			return []Statement{AddConstraint{Table: table, Constraint: con}}, nil
		}
		p.acceptKeyword("column")
		ifNotExists := p.acceptKeyword("if", "not", "exists")
		col, inline, err := p.parseColumnDef(table)
		if err != nil {
			return nil, err
		}
		out := []Statement{AddColumn{Table: table, Column: col, IfNotExists: ifNotExists}}
		for _, con := range inline {
			out = append(out, AddConstraint{Table: table, Constraint: con})
		}
		return out, nil
	case p.acceptKeyword("drop"):
		if p.acceptKeyword("constraint") {
			stmt := DropConstraint{Table: table, IfExists: p.acceptKeyword("if", "exists")}
			name, err := p.expectName()
			if err != nil {
				return nil, err
			}
			stmt.Name = name
			if p.isKeyword("cascade") {
				return nil, fmt.Errorf("DROP CONSTRAINT ... CASCADE is not supported")
			}
			p.acceptKeyword("restrict")
			return []Statement{stmt}, nil
		}
		p.acceptKeyword("column")
		stmt := DropColumn{Table: table, IfExists: p.acceptKeyword("if", "exists")}
		name, err := p.expectName()
		if err != nil {
			return nil, err
		}
		stmt.Column = name
		if p.isKeyword("cascade") {
			return nil, fmt.Errorf("DROP COLUMN ... CASCADE is not supported")
		}
		p.acceptKeyword("restrict")
		return []Statement{stmt}, nil
	case p.acceptKeyword("alter"):
		p.acceptKeyword("column")
		name, err := p.expectName()
		if err != nil {
			return nil, err
		}
		stmt := AlterColumn{Table: table, Column: name}
		switch {
		case p.acceptKeyword("set", "not", "null"):
			nullable := false
			stmt.Nullable = &nullable
		case p.acceptKeyword("drop", "not", "null"):
			nullable := true
			stmt.Nullable = &nullable
		case p.acceptKeyword("set", "data", "type"), p.acceptKeyword("type"):
			typ, err := p.parseType()
			if err != nil {
				return nil, err
			}
			stmt.Type = NormalizeType(typ)
			if p.acceptKeyword("using") {
				p.skipExpression()
			}
		case p.acceptKeyword("set", "default"):
			p.skipExpression()
			return nil, nil
		case p.acceptKeyword("drop", "default"):
			return nil, nil
		default:
			return nil, fmt.Errorf("unsupported ALTER COLUMN action %s", p.peek())
		}
		return []Statement{stmt}, nil
	}
	return nil, fmt.Errorf("unsupported ALTER TABLE action %s", p.peek())
}

func (p *parser) parseTableConstraint(table string) (Constraint, error) {
	var con Constraint
	if p.acceptKeyword("constraint") {
		name, err := p.expectName()
		if err != nil {
			return con, err
		}
		con.Name = name
	}

	switch {
	case p.acceptKeyword("primary", "key"):
		con.Kind = ConstraintPrimaryKey
		cols, err := p.nameList()
		if err != nil {
			return con, err
		}
		con.Columns = cols
		if con.Name == "" {
			con.Name = table + "_pkey"
		}
	case p.acceptKeyword("unique"):
		con.Kind = ConstraintUnique
		cols, err := p.nameList()
		if err != nil {
			return con, err
		}
		con.Columns = cols
		if con.Name == "" {
			con.Name = table + "_" + strings.Join(cols, "_") + "_key"
		}
	case p.acceptKeyword("foreign", "key"):
		con.Kind = ConstraintForeignKey
		cols, err := p.nameList()
		if err != nil {
			return con, err
		}
		con.Columns = cols
		if err := p.parseReferences(&con); err != nil {
			return con, err
		}
		if con.Name == "" {
			con.Name = table + "_" + strings.Join(cols, "_") + "_fkey"
		}
	case p.isKeyword("check"):
		return con, fmt.Errorf("CHECK constraints are not supported")
	default:
		return con, fmt.Errorf("expected PRIMARY KEY, UNIQUE or FOREIGN KEY, found %s", p.peek())
	}
	return con, nil
}

func (p *parser) parseReferences(con *Constraint) error {
	if err := p.expectKeyword("references"); err != nil {
		return err
	}
	ref, err := p.expectName()
	if err != nil {
		return err
	}
	con.RefTable = ref
	if p.isPunct("(") {
		cols, err := p.nameList()
		if err != nil {
			return err
		}
		con.RefColumns = cols
	}
	for {
		switch {
		case p.acceptKeyword("on", "delete"):
			action, err := p.parseAction()
			if err != nil {
				return err
			}
			con.OnDelete = action
		case p.acceptKeyword("on", "update"):
			action, err := p.parseAction()
			if err != nil {
				return err
			}
			con.OnUpdate = action
		default:
			return nil
		}
	}
}

func (p *parser) parseAction() (string, error) {
	switch {
	case p.acceptKeyword("cascade"):
		return ActionCascade, nil
	case p.acceptKeyword("restrict"):
		return ActionRestrict, nil
	case p.acceptKeyword("set", "null"):
		return ActionSetNull, nil
	case p.acceptKeyword("set", "default"):
		return ActionSetDefault, nil
	case p.acceptKeyword("no", "action"):
		return ActionNoAction, nil
	}
	return "", fmt.Errorf("unknown referential action %s", p.peek())
}

var columnConstraintKeywords = map[string]bool{
	"not": true, "null": true, "default": true, "primary": true, "references": true,
	"unique": true, "constraint": true, "check": true, "generated": true, "collate": true,
}

// parseColumnDef reads "name type [constraints]" and returns inline key
// constraints separately, named the way PostgreSQL names them by default.
func (p *parser) parseColumnDef(table string) (Column, []Constraint, error) {
	name, err := p.expectName()
	if err != nil {
		return Column{}, nil, err
	}
	rawType, err := p.parseType()
	if err != nil {
		return Column{}, nil, err
	}
	col := Column{Name: name, Type: NormalizeType(rawType), Nullable: !isSerialType(rawType)}

	var (
		inline  []Constraint
		conName string
	)
	for !p.atEnd() && !p.isPunct(",") && !p.isPunct(")") {
		switch {
		case p.acceptKeyword("constraint"):
			n, err := p.expectName()
			if err != nil {
				return col, nil, err
			}
			conName = n
			continue
		case p.acceptKeyword("not", "null"):
			col.Nullable = false
		case p.acceptKeyword("null"):
			col.Nullable = true
		case p.acceptKeyword("default"):
			p.skipExpression()
		case p.acceptKeyword("primary", "key"):
			col.Nullable = false
			inline = append(inline, Constraint{Kind: ConstraintPrimaryKey, Name: orDefault(conName, table+"_pkey"), Columns: []string{name}})
		case p.acceptKeyword("unique"):
			inline = append(inline, Constraint{Kind: ConstraintUnique, Name: orDefault(conName, table+"_"+name+"_key"), Columns: []string{name}})
		case p.isKeyword("references"):
			con := Constraint{Kind: ConstraintForeignKey, Name: orDefault(conName, table+"_"+name+"_fkey"), Columns: []string{name}}
			if err := p.parseReferences(&con); err != nil {
				return col, nil, err
			}
			inline = append(inline, con)
		case p.isKeyword("check"), p.isKeyword("generated"):
			return col, nil, fmt.Errorf("column option %s is not supported", strings.ToUpper(p.peek().text))
		case p.acceptKeyword("collate"):
			if _, err := p.expectName(); err != nil {
				return col, nil, err
			}
		default:
			return col, nil, fmt.Errorf("unexpected %s in definition of column %q", p.peek(), name)
		}
		conName = ""
	}
	return col, inline, nil
}

func orDefault(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

// parseType reads a type name including multi-word spellings, modifiers and
// an optional array suffix.
func (p *parser) parseType() (string, error) {
	tok := p.next()
	if tok.kind != tokenIdent {
		return "", fmt.Errorf("expected type name, found %s", tok)
	}
	parts := []string{tok.text}

	switch tok.text {
	case "double":
		if err := p.expectKeyword("precision"); err != nil {
			return "", err
		}
		parts = append(parts, "precision")
	case "character", "bit":
		if p.acceptKeyword("varying") {
			parts = append(parts, "varying")
		}
	}

	typ := strings.Join(parts, " ")
	if p.isPunct("(") {
		p.pos++
		var mods []string
		for !p.isPunct(")") {
			mod := p.next()
			switch {
			case mod.kind == tokenEOF:
				return "", fmt.Errorf("unterminated type modifier for %s", typ)
			case mod.kind == tokenPunct && mod.text == ",":
				continue
			default:
				mods = append(mods, mod.text)
			}
		}
		p.pos++
		typ += "(" + strings.Join(mods, ",") + ")"
	}

	if tok.text == "timestamp" || tok.text == "time" {
		switch {
		case p.acceptKeyword("with", "time", "zone"):
			typ = tok.text + " with time zone"
		case p.acceptKeyword("without", "time", "zone"):
			typ = tok.text + " without time zone"
		}
	}

	if p.isPunct("[") {
		p.pos++
		if err := p.expectPunct("]"); err != nil {
			return "", err
		}
		typ += "[]"
	}
	return typ, nil
}

// skipExpression consumes a default or USING expression up to the next
// column option keyword or list separator at nesting depth zero.
func (p *parser) skipExpression() {
	depth := 0
	for !p.atEnd() {
		tok := p.peek()
		if tok.kind == tokenPunct {
			switch tok.text {
			case "(":
				depth++
			case ")":
				if depth == 0 {
					return
				}
				depth--
			case ",":
				if depth == 0 {
					return
				}
			}
		}
		if depth == 0 && tok.kind == tokenIdent && !tok.quoted && columnConstraintKeywords[tok.text] && tok.text != "null" {
			return
		}
		p.pos++
	}
}
