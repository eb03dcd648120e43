package infer

import (
	"testing"

	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqlsim/sqlsim/internal/query"
	"github.com/sqlsim/sqlsim/internal/sqlerr"
	"github.com/sqlsim/sqlsim/internal/sqltype"
)

func exprOf(t *testing.T, sql string) ast.ExprNode {
	t.Helper()
	stmts, _, err := parser.New().Parse("SELECT "+sql, "", "")
	require.NoError(t, err)
	sel := stmts[0].(*ast.SelectStmt)
	return sel.Fields.Fields[0].Expr
}

func newInf() *Inferencer {
	return New(query.New())
}

func TestScopeCombine(t *testing.T) {
	s, err := Combine(Literal, Row)
	require.NoError(t, err)
	assert.Equal(t, Row, s)

	s, err = Combine(Group, Literal)
	require.NoError(t, err)
	assert.Equal(t, Group, s)

	s, err = Combine(Row, Row)
	require.NoError(t, err)
	assert.Equal(t, Row, s)

	_, err = Combine(Row, Group)
	require.Error(t, err)
	var sqlErr *sqlerr.Error
	require.ErrorAs(t, err, &sqlErr)
	assert.Equal(t, sqlerr.IncompatibleScope, sqlErr.Kind)
}

func TestInferContextWithExpected(t *testing.T) {
	ctx := InferContext{}
	withInt := ctx.WithExpected(sqltype.Integer)
	require.NotNil(t, withInt.Expected)
	assert.True(t, withInt.Expected.Equal(sqltype.Integer))

	cleared := withInt.WithoutExpected()
	assert.Nil(t, cleared.Expected)
}

func TestInferIntLiteralWidths(t *testing.T) {
	inf := newInf()
	col, scope, err := inf.Infer(exprOf(t, "1"), InferContext{})
	require.NoError(t, err)
	assert.True(t, col.Type.Equal(sqltype.SmallInt))
	assert.Equal(t, Literal, scope)

	col, _, err = inf.Infer(exprOf(t, "40000"), InferContext{})
	require.NoError(t, err)
	assert.True(t, col.Type.Equal(sqltype.Integer))

	col, _, err = inf.Infer(exprOf(t, "3000000000"), InferContext{})
	require.NoError(t, err)
	assert.True(t, col.Type.Equal(sqltype.BigInt))
}

func TestInferFloatLiteral(t *testing.T) {
	inf := newInf()
	col, _, err := inf.Infer(exprOf(t, "1.5"), InferContext{})
	require.NoError(t, err)
	assert.True(t, col.Type.Equal(sqltype.Double))

	col, _, err = inf.Infer(exprOf(t, "1.5"), InferContext{}.WithExpected(sqltype.Float))
	require.NoError(t, err)
	assert.True(t, col.Type.Equal(sqltype.Float))
}

func TestInferStringLiteralHeuristics(t *testing.T) {
	inf := newInf()

	col, _, err := inf.Infer(exprOf(t, "'hello'"), InferContext{})
	require.NoError(t, err)
	assert.True(t, col.Type.Equal(sqltype.Text))

	col, _, err = inf.Infer(exprOf(t, "'2024-01-02'"), InferContext{}.WithExpected(sqltype.Date))
	require.NoError(t, err)
	assert.True(t, col.Type.Equal(sqltype.Date))

	col, _, err = inf.Infer(exprOf(t, "'not-a-date'"), InferContext{}.WithExpected(sqltype.Date))
	require.NoError(t, err)
	assert.True(t, col.Type.Equal(sqltype.Text), "a non-temporal-looking literal falls back to Text rather than forcing Date")

	uuid := "'123e4567-e89b-12d3-a456-426614174000'"
	col, _, err = inf.Infer(exprOf(t, uuid), InferContext{}.WithExpected(sqltype.Uuid))
	require.NoError(t, err)
	assert.True(t, col.Type.Equal(sqltype.Uuid))
}

func TestInferTypeMismatchPostCheck(t *testing.T) {
	inf := newInf()
	_, _, err := inf.Infer(exprOf(t, "'hello'"), InferContext{}.WithExpected(sqltype.Integer))
	require.Error(t, err)
	var sqlErr *sqlerr.Error
	require.ErrorAs(t, err, &sqlErr)
	assert.Equal(t, sqlerr.TypeMismatch, sqlErr.Kind)
}

func TestInferIntLiteralAdaptsToFloatingExpected(t *testing.T) {
	inf := newInf()
	// An integer literal facing a Double expectation becomes a genuine
	// Double rather than being tolerated as a mismatched numeric kind.
	col, _, err := inf.Infer(exprOf(t, "1"), InferContext{}.WithExpected(sqltype.Double))
	require.NoError(t, err)
	assert.True(t, col.Type.Equal(sqltype.Double))
}

func TestInferIntegerExpectedRejectsFloatLiteral(t *testing.T) {
	inf := newInf()
	// The reverse direction still holds strictly: a floating literal never
	// adapts down to an integer expectation.
	_, _, err := inf.Infer(exprOf(t, "1.5"), InferContext{}.WithExpected(sqltype.Integer))
	require.Error(t, err)
	var sqlErr *sqlerr.Error
	require.ErrorAs(t, err, &sqlErr)
	assert.Equal(t, sqlerr.TypeMismatch, sqlErr.Kind)
}

func TestInferPlaceholderAnonymousAppendsInput(t *testing.T) {
	q := query.New()
	inf := New(q)
	e := exprOf(t, "?").(*ast.ParamMarkerExpr)

	col, scope, err := inf.Infer(e, InferContext{}.WithExpected(sqltype.Integer))
	require.NoError(t, err)
	assert.True(t, col.Type.Equal(sqltype.Integer))
	assert.Equal(t, Literal, scope)
	require.Len(t, q.Inputs(), 1)
	assert.True(t, q.Inputs()[0].Type.Equal(sqltype.Integer))
}

func TestInferPlaceholderNumberedUnifiesAcrossUses(t *testing.T) {
	q := query.New()
	inf := New(q)
	inf.PlaceholderOrigin = map[int]int{0: 1, 1: 1}

	first := exprOf(t, "?").(*ast.ParamMarkerExpr)
	first.Order = 0
	_, _, err := inf.Infer(first, InferContext{}.WithExpected(sqltype.Integer))
	require.NoError(t, err)

	second := exprOf(t, "?").(*ast.ParamMarkerExpr)
	second.Order = 1
	_, _, err = inf.Infer(second, InferContext{}.WithExpected(sqltype.Integer))
	require.NoError(t, err, "reusing $1 against the same Integer expectation must unify cleanly")

	require.Len(t, q.Inputs(), 1)
	assert.True(t, q.Inputs()[0].Type.Equal(sqltype.Integer))
}

func TestInferPlaceholderNumberedConflictIsTypeMismatch(t *testing.T) {
	q := query.New()
	inf := New(q)
	inf.PlaceholderOrigin = map[int]int{0: 1, 1: 1}

	first := exprOf(t, "?").(*ast.ParamMarkerExpr)
	first.Order = 0
	_, _, err := inf.Infer(first, InferContext{}.WithExpected(sqltype.Integer))
	require.NoError(t, err)

	second := exprOf(t, "?").(*ast.ParamMarkerExpr)
	second.Order = 1
	_, _, err = inf.Infer(second, InferContext{}.WithExpected(sqltype.Text))
	require.Error(t, err, "$1 already typed Integer, reusing it as Text must fail")
}

func TestInferBinaryArithmeticNullablePropagates(t *testing.T) {
	inf := newInf()
	col, scope, err := inf.Infer(exprOf(t, "1 + 2"), InferContext{})
	require.NoError(t, err)
	assert.True(t, col.Type.Equal(sqltype.SmallInt))
	assert.False(t, col.Nullable)
	assert.Equal(t, Literal, scope)
}

func TestInferComparisonIsBoolean(t *testing.T) {
	inf := newInf()
	col, _, err := inf.Infer(exprOf(t, "1 = 2"), InferContext{})
	require.NoError(t, err)
	assert.True(t, col.Type.Equal(sqltype.Boolean))
}

func TestInferBitwiseRequiresInteger(t *testing.T) {
	inf := newInf()
	_, _, err := inf.Infer(exprOf(t, "1.5 & 2"), InferContext{})
	require.Error(t, err)
}

func TestInferInExpr(t *testing.T) {
	inf := newInf()
	col, _, err := inf.Infer(exprOf(t, "1 IN (1, 2, 3)"), InferContext{})
	require.NoError(t, err)
	assert.True(t, col.Type.Equal(sqltype.Boolean))
}

func TestInferBetweenExpr(t *testing.T) {
	inf := newInf()
	col, _, err := inf.Infer(exprOf(t, "5 BETWEEN 1 AND 10"), InferContext{})
	require.NoError(t, err)
	assert.True(t, col.Type.Equal(sqltype.Boolean))
}

func TestInferLikeExpr(t *testing.T) {
	inf := newInf()
	col, _, err := inf.Infer(exprOf(t, "'abc' LIKE '%b%'"), InferContext{})
	require.NoError(t, err)
	assert.True(t, col.Type.Equal(sqltype.Boolean))
}

func TestInferCastExpr(t *testing.T) {
	inf := newInf()
	col, _, err := inf.Infer(exprOf(t, "CAST(5 AS CHAR)"), InferContext{})
	require.NoError(t, err)
	assert.True(t, col.Type.Equal(sqltype.Text))
}

func TestInferRowConstructorTuple(t *testing.T) {
	inf := newInf()
	col, _, err := inf.Infer(exprOf(t, "(1, 'x')"), InferContext{})
	require.NoError(t, err)
	assert.Equal(t, sqltype.KindTuple, col.Type.Kind)
	require.Len(t, col.Type.Tuple, 2)
}

func TestInferCaseExprBranchesUnify(t *testing.T) {
	inf := newInf()
	col, _, err := inf.Infer(exprOf(t, "CASE WHEN 1 = 1 THEN 'a' ELSE 'b' END"), InferContext{})
	require.NoError(t, err)
	assert.True(t, col.Type.Equal(sqltype.Text))
	assert.False(t, col.Nullable)
}

func TestInferCaseExprNoElseIsNullable(t *testing.T) {
	inf := newInf()
	col, _, err := inf.Infer(exprOf(t, "CASE WHEN 1 = 1 THEN 'a' END"), InferContext{})
	require.NoError(t, err)
	assert.True(t, col.Nullable, "a CASE with no ELSE can fall through to NULL")
}

func TestIsGroupedMatchesGroupingSetExactly(t *testing.T) {
	groupBy := []ast.ExprNode{exprOf(t, "id")}
	assert.True(t, IsGrouped(exprOf(t, "id"), groupBy))
	assert.False(t, IsGrouped(exprOf(t, "name"), groupBy))
}

func TestIsGroupedAllowsConstantsAndArithmeticOnGroupedColumns(t *testing.T) {
	groupBy := []ast.ExprNode{exprOf(t, "id")}
	assert.True(t, IsGrouped(exprOf(t, "1"), groupBy))
	assert.True(t, IsGrouped(exprOf(t, "id + 1"), groupBy))
	assert.False(t, IsGrouped(exprOf(t, "id + name"), groupBy))
}

func TestIsGroupedAggregateAlwaysGrouped(t *testing.T) {
	assert.True(t, IsGrouped(exprOf(t, "COUNT(name)"), nil))
}
