package stmt

import (
	"github.com/pingcap/tidb/pkg/parser/ast"
	"github.com/sqlsim/sqlsim/internal/catalog"
	"github.com/sqlsim/sqlsim/internal/infer"
	"github.com/sqlsim/sqlsim/internal/sqlerr"
	"github.com/sqlsim/sqlsim/internal/sqltype"
)

// subqueryResolver implements infer.SubqueryResolver by recursively running
// selectInto on the nested SELECT. It shares the enclosing statement's
// Inferencer configuration (catalog, placeholder numbering, function
// registry) and its own ResolvedQuery's input slots via Sub(), so a `?` or
// `$N` inside a subquery counts against the same placeholder list as the
// statement it's nested in (spec.md §4.7a), while the subquery's projected
// columns never leak into the outer statement's outputs.
type subqueryResolver struct {
	sim    *catalog.Simulator
	parent *infer.Inferencer
}

func newSubqueryResolver(sim *catalog.Simulator, parent *infer.Inferencer) *subqueryResolver {
	return &subqueryResolver{sim: sim, parent: parent}
}

func (r *subqueryResolver) ResolveScalarSubquery(node ast.ResultSetNode) (sqltype.Column, error) {
	sel, ok := node.(*ast.SelectStmt)
	if !ok {
		return sqltype.Column{}, sqlerr.Unsupportedf("unsupported subquery shape")
	}
	sub := r.parent.Query.Sub()
	inf := infer.New(sub)
	inf.PlaceholderOrigin = r.parent.PlaceholderOrigin
	inf.Functions = r.parent.Functions
	inf.Subqueries = newSubqueryResolver(r.sim, inf)

	if err := selectInto(r.sim, sel, inf); err != nil {
		return sqltype.Column{}, err
	}
	outputs := sub.Outputs()
	if len(outputs) != 1 {
		return sqltype.Column{}, sqlerr.Sqlf("scalar subquery must project exactly one column")
	}
	return outputs[0].Column, nil
}

func (r *subqueryResolver) ResolveTupleSubquery(node ast.ResultSetNode) ([]sqltype.Column, error) {
	sel, ok := node.(*ast.SelectStmt)
	if !ok {
		return nil, sqlerr.Unsupportedf("unsupported subquery shape")
	}
	sub := r.parent.Query.Sub()
	inf := infer.New(sub)
	inf.PlaceholderOrigin = r.parent.PlaceholderOrigin
	inf.Functions = r.parent.Functions
	inf.Subqueries = newSubqueryResolver(r.sim, inf)

	if err := selectInto(r.sim, sel, inf); err != nil {
		return nil, err
	}
	outputs := sub.Outputs()
	cols := make([]sqltype.Column, len(outputs))
	for i, o := range outputs {
		cols[i] = o.Column
	}
	return cols, nil
}
