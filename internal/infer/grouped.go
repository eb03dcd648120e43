package infer

import (
	"strings"

	"github.com/pingcap/tidb/pkg/parser/ast"
	"github.com/pingcap/tidb/pkg/parser/format"
)

// unwrapParens strips Nested( e ) wrappers, the "identity / strip nested
// parens" trivial rewrite spec.md §9 calls for before comparing two
// expressions structurally.
func unwrapParens(e ast.ExprNode) ast.ExprNode {
	for {
		p, ok := e.(*ast.ParenthesesExpr)
		if !ok {
			return e
		}
		e = p.Expr
	}
}

// exprKey renders an expression to its canonical restored text, used as a
// cheap structural-equality key: two expressions with the same key are the
// same AST shape modulo whitespace and nested-paren wrapping.
func exprKey(e ast.ExprNode) string {
	var sb strings.Builder
	ctx := format.NewRestoreCtx(format.DefaultRestoreFlags, &sb)
	if err := unwrapParens(e).Restore(ctx); err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(sb.String()))
}

// ExprEqual reports whether a and b are the same expression shape, per
// spec.md §9's "structural AST equality modulo trivial rewrites".
func ExprEqual(a, b ast.ExprNode) bool {
	ka, kb := exprKey(a), exprKey(b)
	return ka != "" && ka == kb
}

// IsGrouped reports whether expr is "grouped" for HAVING/projection
// purposes under GROUP BY: it matches an element of the grouping set
// exactly, or every leaf it touches is a constant or itself grouped,
// combined only by scalar operators (spec.md §4.6, §9).
func IsGrouped(expr ast.ExprNode, groupBy []ast.ExprNode) bool {
	expr = unwrapParens(expr)
	for _, g := range groupBy {
		if ExprEqual(expr, g) {
			return true
		}
	}
	switch e := expr.(type) {
	case ast.ValueExpr:
		return true
	case *ast.BinaryOperationExpr:
		return IsGrouped(e.L, groupBy) && IsGrouped(e.R, groupBy)
	case *ast.UnaryOperationExpr:
		return IsGrouped(e.V, groupBy)
	case *ast.FuncCastExpr:
		return IsGrouped(e.Expr, groupBy)
	case *ast.ParamMarkerExpr:
		return true
	case *ast.AggregateFuncExpr:
		// an aggregate is always valid in Group scope regardless of its
		// argument's grouped-ness; the aggregate itself collapses the row set.
		return true
	default:
		return false
	}
}
