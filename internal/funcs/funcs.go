// Package funcs implements the function registry of spec.md §4.5: COUNT,
// COALESCE, the aggregate family (AVG/MIN/MAX/SUM), and SUBSTRING, each
// with its typing and scope rule. It has no teacher analogue; the registry
// *shape* (a name-keyed map of behavior, looked up at call time) is
// grounded on the teacher's internal/dialect.go RegisterDialect/GetDialect
// pattern, adapted here to a simple built-in map since functions are fixed
// rather than pluggable.
package funcs

import (
	"strings"

	"github.com/pingcap/tidb/pkg/parser/ast"
	"github.com/sqlsim/sqlsim/internal/infer"
	"github.com/sqlsim/sqlsim/internal/sqlerr"
	"github.com/sqlsim/sqlsim/internal/sqltype"
)

// Registry implements infer.FunctionRegistry.
type Registry struct{}

func NewRegistry() *Registry { return &Registry{} }

// Call dispatches a scalar/aggregate-looking FuncCallExpr (tidb parses
// COUNT/SUM/... as AggregateFuncExpr normally, but COALESCE/SUBSTRING and
// anything the grammar doesn't special-case arrive as FuncCallExpr).
func (r *Registry) Call(inf *infer.Inferencer, name string, call *ast.FuncCallExpr, ctx infer.InferContext) (sqltype.Column, infer.Scope, error) {
	switch name {
	case "coalesce":
		return coalesce(inf, call.Args, ctx)
	case "substring", "substr":
		return substring(inf, call.Args, ctx)
	case "count":
		return countArgs(inf, call.Args, ctx)
	case "avg", "min", "max", "sum":
		return aggregateArgs(inf, name, call.Args, ctx)
	default:
		return sqltype.Column{}, 0, sqlerr.New(sqlerr.FunctionDoesntExist, "function", name, "unknown function")
	}
}

// CallAggregate handles the AggregateFuncExpr shape tidb's grammar
// produces for COUNT/AVG/MIN/MAX/SUM.
func (r *Registry) CallAggregate(inf *infer.Inferencer, name string, call *ast.AggregateFuncExpr, ctx infer.InferContext) (sqltype.Column, infer.Scope, error) {
	switch name {
	case "count":
		if call.Args == nil || len(call.Args) == 0 {
			return sqltype.NewColumn(sqltype.Integer, false), infer.Group, nil
		}
		return countArgs(inf, call.Args, ctx)
	case "avg", "min", "max", "sum":
		return aggregateArgs(inf, name, call.Args, ctx)
	default:
		return sqltype.Column{}, 0, sqlerr.New(sqlerr.FunctionDoesntExist, "function", name, "unknown aggregate")
	}
}

func countArgs(inf *infer.Inferencer, args []ast.ExprNode, ctx infer.InferContext) (sqltype.Column, infer.Scope, error) {
	if len(args) != 1 {
		return sqltype.Column{}, 0, sqlerr.Newf(sqlerr.FunctionArgumentCount, "function", "count", "expected 1 argument, got %d", len(args))
	}
	if isWildcard(args[0]) {
		return sqltype.NewColumn(sqltype.Integer, false), infer.Group, nil
	}
	if _, _, err := inf.Infer(args[0], ctx.WithoutExpected()); err != nil {
		return sqltype.Column{}, 0, err
	}
	return sqltype.NewColumn(sqltype.Integer, false), infer.Group, nil
}

func aggregateArgs(inf *infer.Inferencer, name string, args []ast.ExprNode, ctx infer.InferContext) (sqltype.Column, infer.Scope, error) {
	if len(args) != 1 {
		return sqltype.Column{}, 0, sqlerr.Newf(sqlerr.FunctionArgumentCount, "function", name, "expected 1 argument, got %d", len(args))
	}
	if isWildcard(args[0]) {
		return sqltype.Column{}, 0, sqlerr.New(sqlerr.FunctionCall, "function", name, "wildcard argument not allowed")
	}
	col, _, err := inf.Infer(args[0], ctx.WithoutExpected())
	if err != nil {
		return sqltype.Column{}, 0, err
	}
	if (name == "sum" || name == "avg") && !col.Type.IsNumeric() {
		return sqltype.Column{}, 0, sqlerr.New(sqlerr.TypeNotNumeric, "function", name, "argument must be numeric")
	}
	return sqltype.NewColumn(col.Type, false), infer.Group, nil
}

func coalesce(inf *infer.Inferencer, args []ast.ExprNode, ctx infer.InferContext) (sqltype.Column, infer.Scope, error) {
	if len(args) == 0 {
		return sqltype.Column{}, 0, sqlerr.New(sqlerr.FunctionArgumentCount, "function", "coalesce", "expected at least 1 argument")
	}
	scope := infer.Literal
	var result *sqltype.SqlType
	allNullable := true
	for _, a := range args {
		if isWildcard(a) {
			return sqltype.Column{}, 0, sqlerr.New(sqlerr.FunctionCall, "function", "coalesce", "wildcard argument not allowed")
		}
		argCtx := ctx.WithoutExpected()
		if result != nil {
			argCtx = ctx.WithExpected(*result)
		}
		col, s, err := inf.Infer(a, argCtx)
		if err != nil {
			return sqltype.Column{}, 0, err
		}
		if scope, err = infer.Combine(scope, s); err != nil {
			return sqltype.Column{}, 0, err
		}
		if result == nil && !col.Type.IsNull() {
			result = &col.Type
		}
		if !col.Nullable {
			allNullable = false
		}
	}
	if result == nil {
		// every argument was a literal NULL; there is no concrete type to
		// unify to, so the result stays Null.
		result = &sqltype.Null
	}
	return sqltype.NewColumn(*result, allNullable), scope, nil
}

func substring(inf *infer.Inferencer, args []ast.ExprNode, ctx infer.InferContext) (sqltype.Column, infer.Scope, error) {
	if len(args) != 3 {
		return sqltype.Column{}, 0, sqlerr.Newf(sqlerr.FunctionArgumentCount, "function", "substring", "expected 3 arguments, got %d", len(args))
	}
	scope := infer.Literal
	s, ss, err := inf.Infer(args[0], ctx.WithExpected(sqltype.Text))
	if err != nil {
		return sqltype.Column{}, 0, err
	}
	if scope, err = infer.Combine(scope, ss); err != nil {
		return sqltype.Column{}, 0, err
	}
	start, sts, err := inf.Infer(args[1], ctx.WithExpected(sqltype.Integer))
	if err != nil {
		return sqltype.Column{}, 0, err
	}
	if scope, err = infer.Combine(scope, sts); err != nil {
		return sqltype.Column{}, 0, err
	}
	length, ls, err := inf.Infer(args[2], ctx.WithExpected(sqltype.Integer))
	if err != nil {
		return sqltype.Column{}, 0, err
	}
	if scope, err = infer.Combine(scope, ls); err != nil {
		return sqltype.Column{}, 0, err
	}
	return sqltype.NewColumn(sqltype.Text, s.Nullable || start.Nullable || length.Nullable), scope, nil
}

// isWildcard reports whether e is the bare `*` argument COUNT(*) parses
// to: tidb represents it as a ColumnNameExpr whose name is the literal
// "*" rather than a dedicated AST node.
func isWildcard(e ast.ExprNode) bool {
	col, ok := e.(*ast.ColumnNameExpr)
	if !ok {
		return false
	}
	return col.Name.Name.O == "*" || strings.TrimSpace(col.Name.Name.O) == ""
}
