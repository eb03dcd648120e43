package stmt

import (
	"strconv"
	"strings"

	"github.com/pingcap/tidb/pkg/parser/ast"
	"github.com/sqlsim/sqlsim/internal/infer"
	"github.com/sqlsim/sqlsim/internal/joinctx"
	"github.com/sqlsim/sqlsim/internal/query"
	"github.com/sqlsim/sqlsim/internal/sqlerr"
)

// addProjectionItem handles one SelectField of a SELECT's projection list
// or an INSERT/UPDATE RETURNING list (spec.md §4.6's projection rules,
// reused verbatim for RETURNING). It returns the item's scope so the
// caller can fold it into the statement's running scope.
func addProjectionItem(inf *infer.Inferencer, jc *joinctx.JoinContext, field *ast.SelectField, index int, ctx infer.InferContext) (infer.Scope, error) {
	if field.WildCard != nil {
		return addWildcard(inf.Query, jc, field.WildCard)
	}

	col, scope, err := inf.Infer(field.Expr, ctx.WithoutExpected())
	if err != nil {
		return 0, err
	}

	key := query.OutputKey{Name: strconv.Itoa(index + 1)}
	if field.AsName.O != "" {
		key = query.OutputKey{Name: field.AsName.O}
	} else if colExpr, ok := field.Expr.(*ast.ColumnNameExpr); ok {
		key = query.OutputKey{Qualifier: colExpr.Name.Table.O, Name: colExpr.Name.Name.O}
	}

	if inf.Query.HasOutput(key) {
		return 0, sqlerr.New(sqlerr.AmbiguousAlias, "output", key.Name, "duplicate output name")
	}
	inf.Query.AddOutput(key, col)
	return scope, nil
}

func addWildcard(q *query.ResolvedQuery, jc *joinctx.JoinContext, wc *ast.WildCardField) (infer.Scope, error) {
	if wc.Table.O != "" {
		cols, ok := jc.ColumnsForQualifier(wc.Table.O)
		if !ok {
			return 0, sqlerr.New(sqlerr.QualifierDoesntExist, "qualifier", wc.Table.O, "not found")
		}
		for _, c := range cols {
			q.AddOutput(query.OutputKey{Qualifier: wc.Table.O, Name: c.Name}, c.Column)
		}
		return infer.Row, nil
	}

	seenNames := map[string]bool{}
	for _, c := range jc.DistinctColumns() {
		key := strings.ToLower(c.Ref.Name)
		if seenNames[key] {
			return 0, sqlerr.New(sqlerr.AmbiguousColumn, "column", c.Ref.Name, "duplicate column name in wildcard expansion")
		}
		seenNames[key] = true
		q.AddOutput(query.OutputKey{Qualifier: c.Ref.Qualifier, Name: c.Ref.Name}, c.Column)
	}
	return infer.Row, nil
}
