package stmt

import (
	"github.com/pingcap/tidb/pkg/parser/ast"
	"github.com/sqlsim/sqlsim/internal/catalog"
	"github.com/sqlsim/sqlsim/internal/infer"
	"github.com/sqlsim/sqlsim/internal/joinctx"
	"github.com/sqlsim/sqlsim/internal/query"
	"github.com/sqlsim/sqlsim/internal/sqlerr"
	"github.com/sqlsim/sqlsim/internal/sqltype"
)

// Select implements spec.md §4.6's SELECT pipeline in the order it
// specifies: FROM/JOIN, WHERE, GROUP BY, HAVING, projection, ORDER BY.
func Select(sim *catalog.Simulator, stmt *ast.SelectStmt, placeholderOrigin map[int]int, functions infer.FunctionRegistry) (*query.ResolvedQuery, error) {
	q := query.New()
	inf := infer.New(q)
	inf.PlaceholderOrigin = placeholderOrigin
	inf.Functions = functions
	inf.Subqueries = newSubqueryResolver(sim, inf)

	if err := selectInto(sim, stmt, inf); err != nil {
		return nil, err
	}
	if idx := q.MissingPlaceholderIndex(); idx >= 0 {
		return nil, sqlerr.NewMissingPlaceholder(idx)
	}
	return q, nil
}

// selectInto runs the SELECT pipeline against an already-constructed
// Inferencer, writing outputs into inf.Query. Used directly by Select, and
// by the subquery resolver so a nested SELECT's placeholders number against
// the enclosing statement (spec.md §4.7a) while its outputs stay scoped to
// its own query.ResolvedQuery.Sub().
func selectInto(sim *catalog.Simulator, stmt *ast.SelectStmt, inf *infer.Inferencer) error {
	jctx := joinctx.New()
	if stmt.From != nil {
		built, err := buildJoinContext(sim, stmt.From.TableRefs, inf)
		if err != nil {
			return err
		}
		jctx = built
	}
	columns := joinInferrer{jc: jctx}

	if stmt.Where != nil {
		whereCtx := infer.InferContext{Scope: infer.Row, Columns: columns}
		if _, _, err := inf.Infer(stmt.Where, whereCtx.WithExpected(sqltype.Boolean)); err != nil {
			return err
		}
	}

	var groupBy []ast.ExprNode
	if stmt.GroupBy != nil {
		for _, item := range stmt.GroupBy.Items {
			groupCtx := infer.InferContext{Scope: infer.Row, Columns: columns}
			if _, _, err := inf.Infer(item.Expr, groupCtx.WithoutExpected()); err != nil {
				return err
			}
			groupBy = append(groupBy, item.Expr)
		}
	}

	startScope := infer.Literal
	if stmt.GroupBy != nil {
		startScope = infer.Group
	}

	if stmt.Having != nil {
		havingCtx := infer.InferContext{Scope: infer.Group, Columns: columns}
		_, scope, err := inf.Infer(stmt.Having.Expr, havingCtx.WithExpected(sqltype.Boolean))
		if err != nil {
			return err
		}
		if _, err := infer.Combine(startScope, effectiveScope(stmt.Having.Expr, scope, groupBy)); err != nil {
			return err
		}
	}

	runningScope := startScope
	for i, field := range stmt.Fields.Fields {
		if field.Auxiliary {
			continue
		}
		projCtx := infer.InferContext{Scope: runningScope, Columns: columns, Grouped: groupBy}
		scope, err := addProjectionItem(inf, jctx, field, i, projCtx)
		if err != nil {
			return err
		}
		if field.WildCard == nil {
			scope = effectiveScope(field.Expr, scope, groupBy)
		}
		if runningScope, err = infer.Combine(runningScope, scope); err != nil {
			return err
		}
	}

	if stmt.OrderBy != nil {
		for _, item := range stmt.OrderBy.Items {
			orderCtx := infer.InferContext{Scope: runningScope, Columns: columns, Grouped: groupBy}
			_, scope, err := inf.Infer(item.Expr, orderCtx.WithoutExpected())
			if err != nil {
				return err
			}
			scope = effectiveScope(item.Expr, scope, groupBy)
			if runningScope, err = infer.Combine(runningScope, scope); err != nil {
				return err
			}
		}
	}

	return nil
}

// effectiveScope applies spec.md §4.6's grouped-expression matching: under
// GROUP BY, an expression that is itself "grouped" (matches the grouping
// set, or is built purely from constants/aggregates/grouped sub-exprs via
// scalar operators) is compatible with Group scope regardless of the raw
// Row scope its column references would otherwise carry.
func effectiveScope(expr ast.ExprNode, natural infer.Scope, groupBy []ast.ExprNode) infer.Scope {
	if len(groupBy) == 0 {
		return natural
	}
	if infer.IsGrouped(expr, groupBy) {
		return infer.Literal
	}
	return natural
}
