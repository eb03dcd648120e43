package stmt

import (
	"github.com/pingcap/tidb/pkg/parser/ast"
	"github.com/sqlsim/sqlsim/internal/catalog"
	"github.com/sqlsim/sqlsim/internal/infer"
	"github.com/sqlsim/sqlsim/internal/query"
	"github.com/sqlsim/sqlsim/internal/sqlerr"
	"github.com/sqlsim/sqlsim/internal/sqltype"
)

// Delete implements spec.md §4.6's DELETE rule: resolve FROM (with any
// joins), infer WHERE as Boolean. DELETE has no RETURNING in this spec.
func Delete(sim *catalog.Simulator, stmt *ast.DeleteStmt, placeholderOrigin map[int]int, functions infer.FunctionRegistry) (*query.ResolvedQuery, error) {
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

	if stmt.Where != nil {
		whereCtx := infer.InferContext{Scope: infer.Row, Columns: columns}
		if _, _, err := inf.Infer(stmt.Where, whereCtx.WithExpected(sqltype.Boolean)); err != nil {
			return nil, err
		}
	}

	if idx := q.MissingPlaceholderIndex(); idx >= 0 {
		return nil, sqlerr.NewMissingPlaceholder(idx)
	}
	return q, nil
}
