package stmt

import (
	"strings"

	"github.com/pingcap/tidb/pkg/parser/ast"
	"github.com/sqlsim/sqlsim/internal/catalog"
	"github.com/sqlsim/sqlsim/internal/infer"
	"github.com/sqlsim/sqlsim/internal/joinctx"
	"github.com/sqlsim/sqlsim/internal/query"
	"github.com/sqlsim/sqlsim/internal/sqlerr"
	"github.com/sqlsim/sqlsim/internal/sqltype"
)

// insertTarget extracts the single bare table an INSERT targets; INSERT
// never joins, so stmt.Table.TableRefs is always a trivial Join{Left:
// TableSource, Right: nil}.
func insertTarget(sim *catalog.Simulator, refs *ast.Join) (*catalog.Table, string, error) {
	ts, ok := refs.Left.(*ast.TableSource)
	if !ok {
		return nil, "", sqlerr.Unsupportedf("INSERT target must be a single table")
	}
	tn, ok := ts.Source.(*ast.TableName)
	if !ok {
		return nil, "", sqlerr.Unsupportedf("INSERT target must be a single table")
	}
	name := tn.Name.O
	table, ok := sim.Table(name)
	if !ok {
		return nil, "", sqlerr.New(sqlerr.TableDoesntExist, "table", name, "not found")
	}
	return table, name, nil
}

// Insert implements spec.md §4.6's INSERT rule: explicit or implicit
// column list, per-row arity/type checking against table columns, and
// RequiredColumnMissing for unmentioned non-nullable/no-default columns.
// returningFields is the parsed RETURNING projection list, if any (see
// internal/analyzer/returning.go for how it is recovered from SQL text
// tidb's grammar itself cannot parse).
func Insert(sim *catalog.Simulator, stmt *ast.InsertStmt, placeholderOrigin map[int]int, returningFields []*ast.SelectField, functions infer.FunctionRegistry) (*query.ResolvedQuery, error) {
	q := query.New()
	inf := infer.New(q)
	inf.PlaceholderOrigin = placeholderOrigin
	inf.Functions = functions
	inf.Subqueries = newSubqueryResolver(sim, inf)

	table, name, err := insertTarget(sim, stmt.Table.TableRefs)
	if err != nil {
		return nil, err
	}

	var explicitCols []string
	if len(stmt.Columns) > 0 {
		explicitCols = make([]string, len(stmt.Columns))
		for i, c := range stmt.Columns {
			if !table.HasColumn(c.Name.O) {
				return nil, sqlerr.New(sqlerr.ColumnDoesntExist, "table", name, "unknown column "+c.Name.O)
			}
			explicitCols[i] = c.Name.O
		}
	} else {
		explicitCols = table.Columns()
	}

	if len(stmt.Columns) > 0 {
		mentioned := map[string]bool{}
		for _, c := range explicitCols {
			mentioned[strings.ToLower(c)] = true
		}
		for _, c := range table.Columns() {
			if mentioned[strings.ToLower(c)] {
				continue
			}
			col, _ := table.Column(c)
			if !col.Nullable && !col.Default {
				return nil, sqlerr.New(sqlerr.RequiredColumnMissing, "table", name, "column "+c+" requires a value")
			}
		}
	}

	for _, row := range stmt.Lists {
		if len(row) != len(explicitCols) {
			return nil, sqlerr.NewColumnCountMismatch(len(explicitCols), len(row))
		}
		for i, expr := range row {
			col, ok := table.Column(explicitCols[i])
			if !ok {
				return nil, sqlerr.New(sqlerr.ColumnDoesntExist, "table", name, "unknown column "+explicitCols[i])
			}
			nullable := col.Nullable
			ctx := infer.InferContext{
				Scope:            infer.Literal,
				Columns:          infer.NoColumns{},
				NullableExpected: &nullable,
			}
			if _, _, err := inf.Infer(expr, ctx.WithExpected(col.Type)); err != nil {
				return nil, err
			}
		}
	}

	if len(returningFields) > 0 {
		src := joinctx.TableSource{
			Name:    name,
			Columns: table.Columns(),
			Lookup:  func(n string) (sqltype.Column, bool) { return table.Column(n) },
		}
		jctx := joinctx.FromTable(src)
		for i, field := range returningFields {
			ctx := infer.InferContext{Scope: infer.Row, Columns: joinInferrer{jc: jctx}}
			if _, err := addProjectionItem(inf, jctx, field, i, ctx); err != nil {
				return nil, err
			}
		}
	}

	if idx := q.MissingPlaceholderIndex(); idx >= 0 {
		return nil, sqlerr.NewMissingPlaceholder(idx)
	}
	return q, nil
}
