// Package stmt implements the statement handlers of spec.md §4.6: CREATE
// TABLE, DROP TABLE, INSERT (with RETURNING), UPDATE (with FROM,
// RETURNING), DELETE, and SELECT. Each composes the catalog, join
// resolution, expression inference, and function registry packages below
// it. Grounded on the teacher's per-node-kind dispatch in
// internal/parser/mysql/parser.go and internal/apply/analyzer.go's
// `switch stmt := node.(type)` over ast.StmtNode.
package stmt

import (
	"strings"

	"github.com/pingcap/tidb/pkg/parser/ast"
	"github.com/sqlsim/sqlsim/internal/catalog"
	"github.com/sqlsim/sqlsim/internal/infer"
	"github.com/sqlsim/sqlsim/internal/joinctx"
	"github.com/sqlsim/sqlsim/internal/sqlerr"
	"github.com/sqlsim/sqlsim/internal/sqltype"
)

// joinInferrer adapts a joinctx.JoinContext to infer.ColumnInferrer.
type joinInferrer struct {
	jc *joinctx.JoinContext
}

func (j joinInferrer) InferUnqualified(name string) (sqltype.Column, bool) {
	col, err := j.jc.GetColumn(name)
	if err != nil {
		return sqltype.Column{}, false
	}
	return col, true
}

func (j joinInferrer) InferQualified(qualifier, name string) (sqltype.Column, error) {
	return j.jc.GetQualifiedColumn(qualifier, name)
}

// resolveTableSource converts a single FROM/JOIN leaf (a bare table, not a
// derived table or nested subquery) into a joinctx.TableSource. Derived
// tables in FROM are outside this package's scope (see DESIGN.md).
func resolveTableSource(sim *catalog.Simulator, ts *ast.TableSource) (joinctx.TableSource, error) {
	tn, ok := ts.Source.(*ast.TableName)
	if !ok {
		return joinctx.TableSource{}, sqlerr.Unsupportedf("derived tables in FROM are not supported")
	}
	name := tn.Name.O
	alias := ts.AsName.O

	table, ok := sim.Table(name)
	if !ok {
		return joinctx.TableSource{}, sqlerr.New(sqlerr.TableDoesntExist, "table", name, "not found")
	}
	if alias != "" && !strings.EqualFold(alias, name) && sim.HasTable(alias) {
		return joinctx.TableSource{}, sqlerr.New(sqlerr.AliasIsTableName, "alias", alias, "alias shadows an existing table name")
	}

	return joinctx.TableSource{
		Name:    name,
		Alias:   alias,
		Columns: table.Columns(),
		Lookup:  func(n string) (sqltype.Column, bool) { return table.Column(n) },
	}, nil
}

// buildJoinContext walks a (possibly nested, left-deep) ast.Join tree and
// returns the resolved JoinContext, type-checking any ON conditions along
// the way against the context as it stood right after that join step.
func buildJoinContext(sim *catalog.Simulator, node ast.ResultSetNode, inf *infer.Inferencer) (*joinctx.JoinContext, error) {
	switch n := node.(type) {
	case *ast.TableSource:
		src, err := resolveTableSource(sim, n)
		if err != nil {
			return nil, err
		}
		return joinctx.FromTable(src), nil
	case *ast.Join:
		left, err := buildJoinContext(sim, n.Left, inf)
		if err != nil {
			return nil, err
		}
		if n.Right == nil {
			return left, nil
		}
		rts, ok := n.Right.(*ast.TableSource)
		if !ok {
			return nil, sqlerr.Unsupportedf("nested joins on the right-hand side are not supported")
		}
		src, err := resolveTableSource(sim, rts)
		if err != nil {
			return nil, err
		}

		kind, usingCols := joinKindOf(n)
		if err := left.JoinTable(src, kind, usingCols); err != nil {
			return nil, err
		}
		if n.On != nil {
			ctx := infer.InferContext{Scope: infer.Row, Columns: joinInferrer{jc: left}}
			if _, _, err := inf.Infer(n.On.Expr, ctx.WithExpected(sqltype.Boolean)); err != nil {
				return nil, err
			}
		}
		return left, nil
	default:
		return nil, sqlerr.Unsupportedf("FROM item kind %T", node)
	}
}

func joinKindOf(j *ast.Join) (joinctx.JoinKind, []string) {
	if j.NaturalJoin {
		return joinctx.Natural, nil
	}
	if j.On != nil {
		if j.Tp == ast.LeftJoin || j.Tp == ast.RightJoin {
			return joinctx.OuterOn, nil
		}
		return joinctx.InnerOn, nil
	}
	if len(j.Using) > 0 {
		cols := make([]string, len(j.Using))
		for i, c := range j.Using {
			cols[i] = c.Name.O
		}
		return joinctx.Using, cols
	}
	if j.Tp == ast.CrossJoin {
		return joinctx.Cross, nil
	}
	return joinctx.None, nil
}
