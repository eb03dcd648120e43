package catalog

import (
	"strconv"
	"strings"

	"github.com/pingcap/tidb/pkg/parser/ast"
	"github.com/pingcap/tidb/pkg/parser/format"
	"github.com/sqlsim/sqlsim/internal/sqlerr"
	"github.com/sqlsim/sqlsim/internal/sqltype"
)

// Simulator owns the table map and the dialect tag, matching spec.md §3's
// Simulator (catalog). It mutates only through CreateTable/DropTable.
type Simulator struct {
	dialect sqltype.Dialect
	tables  map[string]*Table
}

func NewSimulator(dialect sqltype.Dialect) *Simulator {
	return &Simulator{dialect: dialect, tables: make(map[string]*Table)}
}

func (s *Simulator) Dialect() sqltype.Dialect { return s.dialect }

func (s *Simulator) Table(name string) (*Table, bool) {
	t, ok := s.tables[strings.ToLower(name)]
	return t, ok
}

func (s *Simulator) HasTable(name string) bool {
	_, ok := s.tables[strings.ToLower(name)]
	return ok
}

// TableNames returns every table currently in the catalog, used by tests
// asserting invariant 1 (catalog integrity).
func (s *Simulator) TableNames() []string {
	out := make([]string, 0, len(s.tables))
	for _, t := range s.tables {
		out = append(out, t.Name)
	}
	return out
}

// CreateTable converts a parsed CREATE TABLE into a catalog Table, walking
// stmt.Cols/stmt.Constraints the way the teacher's Parser.convertCreateTable
// walks ast.CreateTableStmt, but typing and validating against sqltype
// instead of building a portable core.Table for diffing.
func (s *Simulator) CreateTable(stmt *ast.CreateTableStmt) error {
	name := stmt.Table.Name.O
	if s.HasTable(name) {
		if stmt.IfNotExists {
			return nil
		}
		return sqlerr.New(sqlerr.TableAlreadyExists, "table", name, "already exists")
	}

	table := NewTable(name)

	for _, colDef := range stmt.Cols {
		colName := colDef.Name.Name.O
		if table.HasColumn(colName) {
			return sqlerr.New(sqlerr.ColumnAlreadyExists, "table", name, "duplicate column "+colName)
		}

		ty := sqltype.FromRawType(colDef.Tp.String())
		col := sqltype.NewColumn(ty, true)

		var pkThisColumn, uniqueThisColumn bool
		var refer *ast.ReferenceDef
		for _, opt := range colDef.Options {
			switch opt.Tp {
			case ast.ColumnOptionNotNull:
				col.Nullable = false
			case ast.ColumnOptionNull:
				col.Nullable = true
			case ast.ColumnOptionPrimaryKey:
				col.Nullable = false
				pkThisColumn = true
			case ast.ColumnOptionUniqKey:
				uniqueThisColumn = true
			case ast.ColumnOptionDefaultValue:
				if opt.Expr != nil {
					if err := checkDefaultExpr(opt.Expr, ty); err != nil {
						return err
					}
				}
				col.Default = true
			case ast.ColumnOptionReference:
				if err := s.validateForeignKey(table, []string{colName}, []sqltype.SqlType{ty}, []bool{col.Nullable}, []bool{col.Default}, opt.Refer); err != nil {
					return err
				}
				refer = opt.Refer
			}
		}

		if pkThisColumn {
			col.Nullable = false
		}
		table.addColumn(colName, col)
		if pkThisColumn {
			table.addConstraint([]string{colName}, Constraint{Kind: KindPrimaryKey})
		}
		if uniqueThisColumn {
			table.addConstraint([]string{colName}, Constraint{Kind: KindUnique})
		}
		if refer != nil {
			c, _ := buildForeignKeyConstraint(refer)
			table.addConstraint([]string{colName}, c)
		}
	}

	for _, constraint := range stmt.Constraints {
		cols := make([]string, 0, len(constraint.Keys))
		for _, k := range constraint.Keys {
			cols = append(cols, k.Column.Name.O)
		}
		for _, c := range cols {
			if !table.HasColumn(c) {
				return sqlerr.New(sqlerr.ColumnDoesntExist, "table", name, "constraint references unknown column "+c)
			}
		}

		switch constraint.Tp {
		case ast.ConstraintPrimaryKey:
			table.addConstraint(cols, Constraint{Kind: KindPrimaryKey})
			if len(cols) == 1 {
				col, _ := table.Column(cols[0])
				col.Nullable = false
				table.setColumn(cols[0], col)
			}
		case ast.ConstraintUniq, ast.ConstraintUniqKey, ast.ConstraintUniqIndex:
			table.addConstraint(cols, Constraint{Kind: KindUnique})
		case ast.ConstraintIndex, ast.ConstraintKey:
			table.addConstraint(cols, Constraint{Kind: KindIndex})
		case ast.ConstraintForeignKey:
			tys := make([]sqltype.SqlType, len(cols))
			nullables := make([]bool, len(cols))
			defaults := make([]bool, len(cols))
			for i, c := range cols {
				col, _ := table.Column(c)
				tys[i] = col.Type
				nullables[i] = col.Nullable
				defaults[i] = col.Default
			}
			if err := s.validateForeignKey(table, cols, tys, nullables, defaults, constraint.Refer); err != nil {
				return err
			}
			c, _ := buildForeignKeyConstraint(constraint.Refer)
			table.addConstraint(cols, c)
		}
	}

	s.tables[strings.ToLower(name)] = table
	return nil
}

// DropTable removes a table from the catalog, enforcing the
// ForeignKeyConstraint invariant from spec.md §4.2: no other table may hold
// a live FK referencing the dropped table.
func (s *Simulator) DropTable(stmt *ast.DropTableStmt) error {
	for _, tn := range stmt.Tables {
		name := tn.Name.O
		if !s.HasTable(name) {
			if stmt.IfExists {
				continue
			}
			return sqlerr.New(sqlerr.TableDoesntExist, "table", name, "does not exist")
		}
		for other, t := range s.tables {
			if other == strings.ToLower(name) {
				continue
			}
			for _, c := range t.AllConstraints() {
				if c.Kind == KindForeignKey && strings.EqualFold(c.RefTable, name) {
					return sqlerr.NewForeignKeyConstraint(name)
				}
			}
		}
		delete(s.tables, strings.ToLower(name))
	}
	return nil
}

func buildForeignKeyConstraint(refer *ast.ReferenceDef) (Constraint, error) {
	c := Constraint{Kind: KindForeignKey, RefTable: refer.Table.Name.O}
	for _, spec := range refer.IndexPartSpecifications {
		if spec.Column != nil {
			c.RefCols = append(c.RefCols, spec.Column.Name.O)
		}
	}
	if refer.OnDelete != nil {
		c.OnDelete = referentialActionFrom(refer.OnDelete.ReferOpt.String())
	}
	if refer.OnUpdate != nil {
		c.OnUpdate = referentialActionFrom(refer.OnUpdate.ReferOpt.String())
	}
	return c, nil
}

// validateOnAction checks a foreign key's ON DELETE/ON UPDATE action
// against the local column it applies to: SET NULL requires the column be
// nullable, SET DEFAULT requires it have a default. NoAction/Restrict/
// Cascade impose no constraint on the local column.
func validateOnAction(action ReferentialAction, columnName string, nullable, hasDefault bool) error {
	switch action {
	case SetNull:
		if !nullable {
			return sqlerr.New(sqlerr.NullOnNotNullColumn, "column", columnName, "ON ... SET NULL requires a nullable column")
		}
	case SetDefault:
		if !hasDefault {
			return sqlerr.New(sqlerr.DefaultOnNotDefaultColumn, "column", columnName, "ON ... SET DEFAULT requires a column with a default")
		}
	}
	return nil
}

func referentialActionFrom(s string) ReferentialAction {
	switch strings.ToUpper(s) {
	case "RESTRICT":
		return Restrict
	case "CASCADE":
		return Cascade
	case "SET NULL":
		return SetNull
	case "SET DEFAULT":
		return SetDefault
	default:
		return NoAction
	}
}

// validateForeignKey enforces spec.md §3 invariant (ii): local columns
// exist (checked by the caller before invoking this), referenced table and
// columns exist, the referenced column tuple is a unique key (PK or
// UNIQUE), and types match pairwise. It also enforces invariant (iii): a
// SET NULL/SET DEFAULT action is only legal against a local column that
// can actually hold the resulting value.
func (s *Simulator) validateForeignKey(local *Table, localCols []string, localTypes []sqltype.SqlType, localNullable, localDefault []bool, refer *ast.ReferenceDef) error {
	onDelete, onUpdate := NoAction, NoAction
	if refer.OnDelete != nil {
		onDelete = referentialActionFrom(refer.OnDelete.ReferOpt.String())
	}
	if refer.OnUpdate != nil {
		onUpdate = referentialActionFrom(refer.OnUpdate.ReferOpt.String())
	}
	for i, c := range localCols {
		if err := validateOnAction(onDelete, c, localNullable[i], localDefault[i]); err != nil {
			return err
		}
		if err := validateOnAction(onUpdate, c, localNullable[i], localDefault[i]); err != nil {
			return err
		}
	}

	refTableName := refer.Table.Name.O
	refTable, ok := s.Table(refTableName)
	if !ok {
		return sqlerr.New(sqlerr.TableDoesntExist, "table", refTableName, "referenced by foreign key")
	}

	refCols := make([]string, 0, len(refer.IndexPartSpecifications))
	for _, spec := range refer.IndexPartSpecifications {
		if spec.Column != nil {
			refCols = append(refCols, spec.Column.Name.O)
		}
	}
	if len(refCols) == 0 {
		if pk := refTable.PrimaryKeyColumns(); pk != nil {
			refCols = pk
		}
	}

	for i, c := range refCols {
		col, ok := refTable.Column(c)
		if !ok {
			return sqlerr.New(sqlerr.ColumnDoesntExist, "table", refTableName, "referenced column "+c+" does not exist")
		}
		if i < len(localTypes) && !col.Type.Equal(localTypes[i]) {
			return sqlerr.NewTypeMismatch(localTypes[i].String(), col.Type.String())
		}
	}

	if !refTable.IsUniqueKey(refCols) {
		return sqlerr.New(sqlerr.Sql, "table", refTableName, "referenced columns are not a primary key or unique constraint")
	}
	return nil
}

// checkDefaultExpr types a DEFAULT expression against its column's declared
// type. This is a restricted inferrer (spec.md §9's "DDL-default inferrer")
// that forbids column references entirely and only understands the literal
// forms a DEFAULT clause can hold.
func checkDefaultExpr(expr ast.ExprNode, expected sqltype.SqlType) error {
	ty, ok := literalType(expr, expected)
	if !ok {
		return sqlerr.New(sqlerr.InvalidDefault, "default", "", "default expression is not a literal")
	}
	if ty.IsNull() {
		return nil
	}
	if !ty.Equal(expected) {
		return sqlerr.NewTypeMismatch(expected.String(), ty.String())
	}
	return nil
}

// literalType types the literal subset of the expression grammar that can
// legally appear in a DEFAULT clause: numbers, strings, booleans, NULL, and
// a leading unary sign. Anything else (column refs, function calls, …) is
// rejected by the caller as InvalidDefault.
func literalType(expr ast.ExprNode, expected sqltype.SqlType) (sqltype.SqlType, bool) {
	switch e := expr.(type) {
	case *ast.UnaryOperationExpr:
		return literalType(e.V, expected)
	case ast.ValueExpr:
		return valueExprType(e, expected)
	default:
		var sb strings.Builder
		ctx := format.NewRestoreCtx(format.DefaultRestoreFlags, &sb)
		if err := expr.Restore(ctx); err != nil {
			return sqltype.SqlType{}, false
		}
		text := strings.TrimSpace(sb.String())
		if strings.EqualFold(text, "NULL") {
			return sqltype.Null, true
		}
		if strings.EqualFold(text, "TRUE") || strings.EqualFold(text, "FALSE") {
			return sqltype.Boolean, true
		}
		if _, err := strconv.ParseFloat(strings.Trim(text, "()"), 64); err == nil {
			return numericLiteralType(text, expected), true
		}
		return sqltype.SqlType{}, false
	}
}

func valueExprType(e ast.ValueExpr, expected sqltype.SqlType) (sqltype.SqlType, bool) {
	var sb strings.Builder
	ctx := format.NewRestoreCtx(format.DefaultRestoreFlags, &sb)
	if err := e.Restore(ctx); err != nil {
		return sqltype.SqlType{}, false
	}
	text := strings.TrimSpace(sb.String())
	if text == "" || strings.EqualFold(text, "NULL") {
		return sqltype.Null, true
	}
	if strings.HasPrefix(text, "'") {
		return sqltype.Text, true
	}
	if strings.EqualFold(text, "TRUE") || strings.EqualFold(text, "FALSE") {
		return sqltype.Boolean, true
	}
	if _, err := strconv.ParseFloat(text, 64); err == nil {
		return numericLiteralType(text, expected), true
	}
	return sqltype.Text, true
}

func numericLiteralType(text string, expected sqltype.SqlType) sqltype.SqlType {
	if strings.ContainsAny(text, ".eE") {
		if expected.Kind == sqltype.KindFloat {
			return sqltype.Float
		}
		return sqltype.Double
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return sqltype.Double
	}
	switch {
	case expected.IsInteger():
		return fitsWidth(n, expected)
	case expected.IsFloating():
		// An integer-looking default adapts to a floating expected column
		// type directly, same as a literal in an expression context.
		return expected
	}
	switch {
	case n >= -(1<<15) && n < (1<<15):
		return sqltype.SmallInt
	case n >= -(1<<31) && n < (1<<31):
		return sqltype.Integer
	default:
		return sqltype.BigInt
	}
}

func fitsWidth(n int64, expected sqltype.SqlType) sqltype.SqlType {
	switch expected.Kind {
	case sqltype.KindSmallInt:
		if n >= -(1<<15) && n < (1<<15) {
			return sqltype.SmallInt
		}
	case sqltype.KindInteger:
		if n >= -(1<<31) && n < (1<<31) {
			return sqltype.Integer
		}
	}
	return sqltype.BigInt
}
