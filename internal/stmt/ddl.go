package stmt

import (
	"github.com/pingcap/tidb/pkg/parser/ast"
	"github.com/sqlsim/sqlsim/internal/catalog"
	"github.com/sqlsim/sqlsim/internal/query"
)

// CreateTable delegates to the catalog; a DDL statement produces an empty
// ResolvedQuery (no placeholders, no outputs) on success.
func CreateTable(sim *catalog.Simulator, stmt *ast.CreateTableStmt) (*query.ResolvedQuery, error) {
	if err := sim.CreateTable(stmt); err != nil {
		return nil, err
	}
	return query.New(), nil
}

// DropTable delegates to the catalog; see CreateTable for the empty-result
// convention.
func DropTable(sim *catalog.Simulator, stmt *ast.DropTableStmt) (*query.ResolvedQuery, error) {
	if err := sim.DropTable(stmt); err != nil {
		return nil, err
	}
	return query.New(), nil
}
