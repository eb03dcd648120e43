package funcs

import (
	"testing"

	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqlsim/sqlsim/internal/infer"
	"github.com/sqlsim/sqlsim/internal/query"
	"github.com/sqlsim/sqlsim/internal/sqltype"
)

func selectExpr(t *testing.T, sql string) ast.ExprNode {
	t.Helper()
	stmts, _, err := parser.New().Parse("SELECT "+sql, "", "")
	require.NoError(t, err)
	sel := stmts[0].(*ast.SelectStmt)
	return sel.Fields.Fields[0].Expr
}

func newInferencer() *infer.Inferencer {
	i := infer.New(query.New())
	i.Functions = NewRegistry()
	return i
}

func TestCountStarIsGroupScopedInteger(t *testing.T) {
	inf := newInferencer()
	call := selectExpr(t, "COUNT(*)").(*ast.AggregateFuncExpr)
	col, scope, err := inf.Functions.CallAggregate(inf, "count", call, infer.InferContext{})
	require.NoError(t, err)
	assert.True(t, col.Type.Equal(sqltype.Integer))
	assert.False(t, col.Nullable)
	assert.Equal(t, infer.Group, scope)
}

func TestCountArgumentIsInferred(t *testing.T) {
	inf := newInferencer()
	call := selectExpr(t, "COUNT(1)").(*ast.AggregateFuncExpr)
	col, scope, err := inf.Functions.CallAggregate(inf, "count", call, infer.InferContext{})
	require.NoError(t, err)
	assert.True(t, col.Type.Equal(sqltype.Integer))
	assert.Equal(t, infer.Group, scope)
}

func TestSumRequiresNumericArgument(t *testing.T) {
	inf := newInferencer()
	call := selectExpr(t, "SUM('x')").(*ast.AggregateFuncExpr)
	_, _, err := inf.Functions.CallAggregate(inf, "sum", call, infer.InferContext{})
	assert.Error(t, err)
}

func TestAvgOfIntegerLiteralIsGroupScoped(t *testing.T) {
	inf := newInferencer()
	call := selectExpr(t, "AVG(1)").(*ast.AggregateFuncExpr)
	col, scope, err := inf.Functions.CallAggregate(inf, "avg", call, infer.InferContext{})
	require.NoError(t, err)
	assert.True(t, col.Type.Equal(sqltype.SmallInt))
	assert.Equal(t, infer.Group, scope)
}

func TestMaxWildcardArgumentRejected(t *testing.T) {
	inf := newInferencer()
	call := selectExpr(t, "MAX(*)").(*ast.AggregateFuncExpr)
	_, _, err := inf.Functions.CallAggregate(inf, "max", call, infer.InferContext{})
	assert.Error(t, err)
}

func TestCoalesceUnifiesArgumentTypes(t *testing.T) {
	inf := newInferencer()
	call := selectExpr(t, "COALESCE(NULL, 'x')").(*ast.FuncCallExpr)
	col, scope, err := inf.Functions.Call(inf, "coalesce", call, infer.InferContext{})
	require.NoError(t, err)
	assert.True(t, col.Type.Equal(sqltype.Text), "a literal NULL must not anchor the unified type")
	assert.False(t, col.Nullable, "non-null iff any argument is non-null")
	assert.Equal(t, infer.Literal, scope)
}

func TestCoalesceAllNullStaysNullable(t *testing.T) {
	inf := newInferencer()
	call := selectExpr(t, "COALESCE(NULL, NULL)").(*ast.FuncCallExpr)
	col, _, err := inf.Functions.Call(inf, "coalesce", call, infer.InferContext{})
	require.NoError(t, err)
	assert.True(t, col.Type.IsNull())
	assert.True(t, col.Nullable)
}

func TestSubstringTyping(t *testing.T) {
	inf := newInferencer()
	call := selectExpr(t, "SUBSTRING('hello', 1, 3)").(*ast.FuncCallExpr)
	col, _, err := inf.Functions.Call(inf, "substring", call, infer.InferContext{})
	require.NoError(t, err)
	assert.True(t, col.Type.Equal(sqltype.Text))
}

func TestUnknownFunctionRejected(t *testing.T) {
	inf := newInferencer()
	call := selectExpr(t, "FROBNICATE(1)").(*ast.FuncCallExpr)
	_, _, err := inf.Functions.Call(inf, "frobnicate", call, infer.InferContext{})
	assert.Error(t, err)
}
