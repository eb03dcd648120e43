package sqlsim

import (
	"regexp"
	"strings"

	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver"
	"github.com/sqlsim/sqlsim/internal/sqlerr"
)

// returningClause matches a trailing RETURNING clause on an INSERT/UPDATE
// statement. tidb's grammar is MySQL-family and has no RETURNING production
// at all, so it must be stripped from the statement text before tidb ever
// sees it (spec.md §4.7a-adjacent design: grounded on the same
// regex-massage-before-parse approach used for `$N` rewriting).
var returningClause = regexp.MustCompile(`(?is)\s+returning\s+(.+)$`)

// splitReturning detects and removes a trailing RETURNING clause from a
// single statement's SQL text. It returns the statement text with the
// clause removed, and the raw item list text (empty if there was none).
func splitReturning(stmtSQL string) (string, string) {
	loc := returningClause.FindStringSubmatchIndex(stmtSQL)
	if loc == nil {
		return stmtSQL, ""
	}
	items := stmtSQL[loc[2]:loc[3]]
	return stmtSQL[:loc[0]], strings.TrimSpace(items)
}

// parseReturningFields parses the RETURNING item list as if it were a
// SELECT's projection list, by handing tidb a synthetic `SELECT <items>`
// string and pulling the resulting SelectStmt's Fields back out. This
// lets INSERT/UPDATE RETURNING reuse the exact same projection handling
// (internal/stmt.addProjectionItem) as a real SELECT.
func parseReturningFields(p *parser.Parser, items string) ([]*ast.SelectField, error) {
	if items == "" {
		return nil, nil
	}
	stmts, _, err := p.Parse("SELECT "+items, "", "")
	if err != nil {
		return nil, sqlerr.Sqlf("invalid RETURNING clause: %v", err)
	}
	if len(stmts) != 1 {
		return nil, sqlerr.Sqlf("invalid RETURNING clause")
	}
	sel, ok := stmts[0].(*ast.SelectStmt)
	if !ok {
		return nil, sqlerr.Sqlf("invalid RETURNING clause")
	}
	return sel.Fields.Fields, nil
}
