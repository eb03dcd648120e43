// Package sqlsim is the analyzer's entry point: it owns a Simulator
// (catalog) across a run and turns SQL text into ResolvedQuery values,
// dispatching each parsed statement to internal/stmt. It has no direct
// teacher analogue as a package, but its Parse-then-dispatch shape is
// grounded on internal/parser/mysql/parser.go's Parse loop and
// internal/apply/analyzer.go's switch over ast.StmtNode.
package sqlsim

import (
	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver"
	"github.com/sqlsim/sqlsim/internal/catalog"
	"github.com/sqlsim/sqlsim/internal/funcs"
	"github.com/sqlsim/sqlsim/internal/query"
	"github.com/sqlsim/sqlsim/internal/sqlerr"
	"github.com/sqlsim/sqlsim/internal/sqltype"
	"github.com/sqlsim/sqlsim/internal/stmt"
)

// Driver runs SQL text against a persistent catalog. It is not safe for
// concurrent use (spec.md §5: Simulator is the unit of isolation).
type Driver struct {
	sim       *catalog.Simulator
	parser    *parser.Parser
	functions *funcs.Registry
}

// New creates a Driver with an empty catalog under the given dialect.
// The dialect tag is stored on the Simulator; grammar, type-name
// normalization and placeholder handling are the same for every dialect,
// and one tidb parser instance backs them all.
func New(dialect sqltype.Dialect) *Driver {
	return &Driver{
		sim:       catalog.NewSimulator(dialect),
		parser:    parser.New(),
		functions: funcs.NewRegistry(),
	}
}

// Simulator exposes the Driver's catalog, e.g. for tests asserting on
// schema state between statements.
func (d *Driver) Simulator() *catalog.Simulator {
	return d.sim
}

// Execute runs every statement in sql against the Driver's catalog in
// order and returns the last statement's ResolvedQuery (spec.md §6).
func (d *Driver) Execute(sql string) (*query.ResolvedQuery, error) {
	var last *query.ResolvedQuery
	for _, raw := range splitStatements(sql) {
		rq, err := d.executeOne(raw)
		if err != nil {
			return nil, err
		}
		if rq != nil {
			last = rq
		}
	}
	return last, nil
}

func (d *Driver) executeOne(raw string) (*query.ResolvedQuery, error) {
	body, returningItems := splitReturning(raw)
	body, origins := rewritePlaceholders(body)

	stmts, _, err := d.parser.Parse(body, "", "")
	if err != nil {
		return nil, sqlerr.Sqlf("parse error: %v", err)
	}
	if len(stmts) == 0 {
		return nil, nil
	}
	node := stmts[0]

	returningFields, err := parseReturningFields(d.parser, returningItems)
	if err != nil {
		return nil, err
	}

	switch s := node.(type) {
	case *ast.CreateTableStmt:
		return stmt.CreateTable(d.sim, s)
	case *ast.DropTableStmt:
		return stmt.DropTable(d.sim, s)
	case *ast.InsertStmt:
		return stmt.Insert(d.sim, s, origins, returningFields, d.functions)
	case *ast.UpdateStmt:
		return stmt.Update(d.sim, s, origins, returningFields, d.functions)
	case *ast.DeleteStmt:
		return stmt.Delete(d.sim, s, origins, d.functions)
	case *ast.SelectStmt:
		return stmt.Select(d.sim, s, origins, d.functions)
	default:
		return nil, sqlerr.Unsupportedf("statement kind %T", node)
	}
}
