package stmt

import (
	"github.com/pingcap/tidb/pkg/parser/ast"
	"github.com/sqlsim/sqlsim/internal/catalog"
	"github.com/sqlsim/sqlsim/internal/infer"
	"github.com/sqlsim/sqlsim/internal/query"
	"github.com/sqlsim/sqlsim/internal/sqlerr"
	"github.com/sqlsim/sqlsim/internal/sqltype"
)

// Update implements spec.md §4.6's UPDATE rule. MySQL-family grammar folds
// what the spec calls "optional FROM items" into TableRefs itself (`UPDATE
// a, b SET ...` / `UPDATE a JOIN b ON ... SET ...`), so the same
// buildJoinContext walk used by SELECT's FROM clause covers both the
// update target and any additional joined tables in one pass.
func Update(sim *catalog.Simulator, stmt *ast.UpdateStmt, placeholderOrigin map[int]int, returningFields []*ast.SelectField, functions infer.FunctionRegistry) (*query.ResolvedQuery, error) {
	q := query.New()
	inf := infer.New(q)
	inf.PlaceholderOrigin = placeholderOrigin
	inf.Functions = functions
	inf.Subqueries = newSubqueryResolver(sim, inf)

	jctx, err := buildJoinContext(sim, stmt.TableRefs.TableRefs, inf)
	if err != nil {
		return nil, err
	}
	columns := joinInferrer{jc: jctx}

	for _, assign := range stmt.List {
		var col sqltype.Column
		var err error
		if assign.Column.Table.O != "" {
			col, err = jctx.GetQualifiedColumn(assign.Column.Table.O, assign.Column.Name.O)
		} else {
			col, err = jctx.GetColumn(assign.Column.Name.O)
		}
		if err != nil {
			return nil, err
		}
		nullable := col.Nullable
		ctx := infer.InferContext{Scope: infer.Row, Columns: columns, NullableExpected: &nullable}
		if _, _, err := inf.Infer(assign.Expr, ctx.WithExpected(col.Type)); err != nil {
			return nil, err
		}
	}

	if stmt.Where != nil {
		whereCtx := infer.InferContext{Scope: infer.Row, Columns: columns}
		if _, _, err := inf.Infer(stmt.Where, whereCtx.WithExpected(sqltype.Boolean)); err != nil {
			return nil, err
		}
	}

	for i, field := range returningFields {
		ctx := infer.InferContext{Scope: infer.Row, Columns: columns}
		if _, err := addProjectionItem(inf, jctx, field, i, ctx); err != nil {
			return nil, err
		}
	}

	if idx := q.MissingPlaceholderIndex(); idx >= 0 {
		return nil, sqlerr.NewMissingPlaceholder(idx)
	}
	return q, nil
}
