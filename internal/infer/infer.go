// Package infer implements the expression type inferencer: recursive
// descent over the parsed expression tree carrying an InferContext
// (expected type, expected nullability, scope, grouping set) and writing
// placeholder/output slots into a query.ResolvedQuery. It has no direct
// teacher analogue — the teacher never infers expression types — and is
// grounded instead on the attribute-grammar description of type/scope
// propagation pulled from the dolthub go-mysql-server optbuilder notes in
// the retrieval pack, applied to spec.md §4.4's rule table.
package infer

import (
	"strconv"
	"strings"

	"github.com/pingcap/tidb/pkg/parser/ast"
	"github.com/pingcap/tidb/pkg/parser/opcode"
	"github.com/sqlsim/sqlsim/internal/query"
	"github.com/sqlsim/sqlsim/internal/sqlerr"
	"github.com/sqlsim/sqlsim/internal/sqltype"
)

// FunctionRegistry dispatches a lowercased function name to its typing and
// scope rule. Implemented by internal/funcs, kept as an interface here so
// infer and funcs don't import each other both ways.
type FunctionRegistry interface {
	Call(inf *Inferencer, name string, call *ast.FuncCallExpr, ctx InferContext) (sqltype.Column, Scope, error)
	CallAggregate(inf *Inferencer, name string, call *ast.AggregateFuncExpr, ctx InferContext) (sqltype.Column, Scope, error)
}

// SubqueryResolver evaluates a nested SELECT in a fresh scope, returning
// its single output column (scalar context) — implemented by
// internal/stmt to avoid an import cycle (stmt already depends on infer).
type SubqueryResolver interface {
	ResolveScalarSubquery(sel ast.ResultSetNode) (sqltype.Column, error)
	ResolveTupleSubquery(sel ast.ResultSetNode) ([]sqltype.Column, error)
}

// Inferencer holds the per-statement mutable state: the ResolvedQuery
// being built and the placeholder-numbering map the driver computed from
// the `$N → ?` rewrite pass (spec.md §4.7a). PlaceholderOrigin maps a
// tidb ast.ParamMarkerExpr.Order value to the 1-based $N the SQL author
// wrote; an anonymous `?` has no entry and is appended as the next input.
type Inferencer struct {
	Query             *query.ResolvedQuery
	PlaceholderOrigin map[int]int
	Functions         FunctionRegistry
	Subqueries        SubqueryResolver
}

func New(q *query.ResolvedQuery) *Inferencer {
	return &Inferencer{Query: q, PlaceholderOrigin: map[int]int{}}
}

func errColumnsForbidden() error {
	return sqlerr.New(sqlerr.ColumnDoesntExist, "expr", "", "column references are not allowed here")
}

// Infer is the recursive entry point. It returns the expression's type and
// applies spec.md §4.4's single post-check: if ctx.Expected is set and
// differs from the inferred type, the call fails TypeMismatch. There is no
// numeric-kind tolerance here — a SmallInt inferred against a Double
// expectation is a mismatch unless the literal itself adapted to Double
// on the way in (see inferIntLiteral).
func (inf *Inferencer) Infer(expr ast.ExprNode, ctx InferContext) (sqltype.Column, Scope, error) {
	col, scope, err := inf.inferNode(expr, ctx)
	if err != nil {
		return sqltype.Column{}, 0, err
	}
	if ctx.Expected != nil && !col.Type.Equal(*ctx.Expected) {
		return sqltype.Column{}, 0, sqlerr.NewTypeMismatch(ctx.Expected.String(), col.Type.String())
	}
	return col, scope, nil
}

func (inf *Inferencer) inferNode(expr ast.ExprNode, ctx InferContext) (sqltype.Column, Scope, error) {
	switch e := expr.(type) {
	case ast.ValueExpr:
		return inf.inferLiteral(e, ctx)
	case *ast.ParenthesesExpr:
		return inf.inferNode(e.Expr, ctx)
	case *ast.ColumnNameExpr:
		return inf.inferColumn(e, ctx)
	case *ast.ParamMarkerExpr:
		return inf.inferPlaceholder(e, ctx)
	case *ast.BinaryOperationExpr:
		return inf.inferBinary(e, ctx)
	case *ast.UnaryOperationExpr:
		return inf.inferUnary(e, ctx)
	case *ast.IsNullExpr:
		if _, _, err := inf.Infer(e.Expr, ctx.WithoutExpected()); err != nil {
			return sqltype.Column{}, 0, err
		}
		return nonNullBool(), Row, nil
	case *ast.IsTruthExpr:
		if _, _, err := inf.Infer(e.Expr, ctx.WithExpected(sqltype.Boolean)); err != nil {
			return sqltype.Column{}, 0, err
		}
		return nonNullBool(), Row, nil
	case *ast.PatternInExpr:
		return inf.inferIn(e, ctx)
	case *ast.BetweenExpr:
		return inf.inferBetween(e, ctx)
	case *ast.PatternLikeExpr:
		return inf.inferLike(e, ctx)
	case *ast.FuncCastExpr:
		return inf.inferCast(e, ctx)
	case *ast.RowExpr:
		return inf.inferTuple(e, ctx)
	case *ast.CaseExpr:
		return inf.inferCase(e, ctx)
	case *ast.SubqueryExpr:
		return inf.inferSubquery(e, ctx)
	case *ast.ExistsSubqueryExpr:
		return nonNullBool(), Row, nil
	case *ast.FuncCallExpr:
		return inf.inferFuncCall(e, ctx)
	case *ast.AggregateFuncExpr:
		return inf.inferAggregate(e, ctx)
	default:
		return sqltype.Column{}, 0, sqlerr.Unsupportedf("expression kind %T", expr)
	}
}

func nonNullBool() sqltype.Column { return sqltype.NewColumn(sqltype.Boolean, false) }

// --- literals ---------------------------------------------------------

func (inf *Inferencer) inferLiteral(e ast.ValueExpr, ctx InferContext) (sqltype.Column, Scope, error) {
	datum := e.GetValue()
	switch v := datum.(type) {
	case nil:
		return sqltype.NewColumn(sqltype.Null, true), Literal, nil
	case bool:
		return sqltype.NewColumn(sqltype.Boolean, false), Literal, nil
	case int64, uint64:
		return inferIntLiteral(toInt64(v), ctx), Literal, nil
	case float64:
		return inferFloatLiteral(ctx), Literal, nil
	case string:
		return inf.inferStringLiteral(v, ctx), Literal, nil
	default:
		// A fractional literal such as 1.5 arrives as a decimal datum rather
		// than a float64; its restored text is still a number.
		if _, err := strconv.ParseFloat(exprKey(e), 64); err == nil {
			return inferFloatLiteral(ctx), Literal, nil
		}
		return inf.inferStringLiteral(stringify(e), ctx), Literal, nil
	}
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case uint64:
		return int64(n)
	default:
		return 0
	}
}

func stringify(e ast.ValueExpr) string {
	if s, ok := e.GetValue().(string); ok {
		return s
	}
	return ""
}

func inferIntLiteral(n int64, ctx InferContext) sqltype.Column {
	if ctx.Expected != nil {
		switch {
		case ctx.Expected.IsInteger() && fits(n, *ctx.Expected):
			return sqltype.NewColumn(*ctx.Expected, false)
		case ctx.Expected.IsFloating():
			// An integer literal adapts to a floating Expected directly,
			// rather than staying an integer and relying on a numeric-kind
			// tolerance at the Infer post-check.
			return sqltype.NewColumn(*ctx.Expected, false)
		}
	}
	switch {
	case n >= -(1<<15) && n < (1<<15):
		return sqltype.NewColumn(sqltype.SmallInt, false)
	case n >= -(1<<31) && n < (1<<31):
		return sqltype.NewColumn(sqltype.Integer, false)
	default:
		return sqltype.NewColumn(sqltype.BigInt, false)
	}
}

func fits(n int64, t sqltype.SqlType) bool {
	switch t.Kind {
	case sqltype.KindSmallInt:
		return n >= -(1<<15) && n < (1<<15)
	case sqltype.KindInteger:
		return n >= -(1<<31) && n < (1<<31)
	default:
		return true
	}
}

func inferFloatLiteral(ctx InferContext) sqltype.Column {
	if ctx.Expected != nil && ctx.Expected.Kind == sqltype.KindFloat {
		return sqltype.NewColumn(sqltype.Float, false)
	}
	return sqltype.NewColumn(sqltype.Double, false)
}

func (inf *Inferencer) inferStringLiteral(s string, ctx InferContext) sqltype.Column {
	if ctx.Expected == nil {
		return sqltype.NewColumn(sqltype.Text, false)
	}
	switch ctx.Expected.Kind {
	case sqltype.KindDate, sqltype.KindTime, sqltype.KindTimestamp, sqltype.KindTimestampTz:
		if looksTemporal(s) {
			return sqltype.NewColumn(*ctx.Expected, false)
		}
	case sqltype.KindUuid:
		if looksUuid(s) {
			return sqltype.NewColumn(sqltype.Uuid, false)
		}
	case sqltype.KindJson:
		return sqltype.NewColumn(sqltype.Json, false)
	}
	return sqltype.NewColumn(sqltype.Text, false)
}

func looksTemporal(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) < 8 {
		return false
	}
	return s[4] == '-' || strings.Contains(s, ":")
}

func looksUuid(s string) bool {
	s = strings.TrimSpace(s)
	return len(s) == 36 && strings.Count(s, "-") == 4
}

// --- identifiers --------------------------------------------------------

func (inf *Inferencer) inferColumn(e *ast.ColumnNameExpr, ctx InferContext) (sqltype.Column, Scope, error) {
	if ctx.Columns == nil {
		return sqltype.Column{}, 0, errColumnsForbidden()
	}
	name := e.Name.Name.O
	if e.Name.Table.O != "" {
		col, err := ctx.Columns.InferQualified(e.Name.Table.O, name)
		if err != nil {
			return sqltype.Column{}, 0, err
		}
		return col, Row, nil
	}
	col, ok := ctx.Columns.InferUnqualified(name)
	if !ok {
		return sqltype.Column{}, 0, sqlerr.New(sqlerr.ColumnDoesntExist, "column", name, "not found")
	}
	return col, Row, nil
}

// --- placeholders ---------------------------------------------------------

func (inf *Inferencer) inferPlaceholder(e *ast.ParamMarkerExpr, ctx InferContext) (sqltype.Column, Scope, error) {
	nullable := true
	if ctx.NullableExpected != nil {
		nullable = *ctx.NullableExpected
	}
	var col sqltype.Column
	if ctx.Expected != nil {
		col = sqltype.NewColumn(*ctx.Expected, nullable)
	} else {
		col = sqltype.NewColumn(sqltype.Null, nullable)
	}

	if n, ok := inf.PlaceholderOrigin[e.Order]; ok && n > 0 {
		existing, wasSet := inf.Query.SetInput(n, col)
		if wasSet && ctx.Expected != nil && !existing.Type.Equal(*ctx.Expected) && !existing.Type.IsNull() {
			return sqltype.Column{}, 0, sqlerr.NewTypeMismatch(existing.Type.String(), ctx.Expected.String())
		}
		return existing, Literal, nil
	}
	inf.Query.AppendInput(col)
	return col, Literal, nil
}

// --- operators ---------------------------------------------------------

func (inf *Inferencer) inferBinary(e *ast.BinaryOperationExpr, ctx InferContext) (sqltype.Column, Scope, error) {
	switch e.Op {
	case opcode.Plus, opcode.Minus, opcode.Mul, opcode.Div, opcode.Mod, opcode.IntDiv:
		left, ls, err := inf.Infer(e.L, ctx)
		if err != nil {
			return sqltype.Column{}, 0, err
		}
		right, rs, err := inf.Infer(e.R, ctx.WithExpected(left.Type))
		if err != nil {
			return sqltype.Column{}, 0, err
		}
		scope, err := Combine(ls, rs)
		if err != nil {
			return sqltype.Column{}, 0, err
		}
		return sqltype.NewColumn(left.Type, left.Nullable || right.Nullable), scope, nil
	case opcode.LT, opcode.LE, opcode.GT, opcode.GE, opcode.EQ, opcode.NE, opcode.NullEQ:
		left, ls, err := inf.Infer(e.L, ctx.WithoutExpected())
		if err != nil {
			return sqltype.Column{}, 0, err
		}
		right, rs, err := inf.Infer(e.R, ctx.WithExpected(left.Type))
		if err != nil {
			return sqltype.Column{}, 0, err
		}
		scope, err := Combine(ls, rs)
		if err != nil {
			return sqltype.Column{}, 0, err
		}
		return sqltype.NewColumn(sqltype.Boolean, left.Nullable || right.Nullable), scope, nil
	case opcode.LogicAnd, opcode.LogicOr, opcode.LogicXor:
		left, ls, err := inf.Infer(e.L, ctx.WithExpected(sqltype.Boolean))
		if err != nil {
			return sqltype.Column{}, 0, err
		}
		right, rs, err := inf.Infer(e.R, ctx.WithExpected(sqltype.Boolean))
		if err != nil {
			return sqltype.Column{}, 0, err
		}
		scope, err := Combine(ls, rs)
		if err != nil {
			return sqltype.Column{}, 0, err
		}
		return sqltype.NewColumn(sqltype.Boolean, left.Nullable || right.Nullable), scope, nil
	case opcode.And, opcode.Or, opcode.Xor, opcode.LeftShift, opcode.RightShift:
		left, ls, err := inf.Infer(e.L, ctx)
		if err != nil {
			return sqltype.Column{}, 0, err
		}
		if !left.Type.IsInteger() {
			return sqltype.Column{}, 0, sqlerr.New(sqlerr.TypeNotNumeric, "expr", "", "bitwise operand must be an integer")
		}
		right, rs, err := inf.Infer(e.R, ctx.WithExpected(left.Type))
		if err != nil {
			return sqltype.Column{}, 0, err
		}
		scope, err := Combine(ls, rs)
		if err != nil {
			return sqltype.Column{}, 0, err
		}
		return sqltype.NewColumn(left.Type, left.Nullable || right.Nullable), scope, nil
	default:
		return sqltype.Column{}, 0, sqlerr.Unsupportedf("binary operator %v", e.Op)
	}
}

func (inf *Inferencer) inferUnary(e *ast.UnaryOperationExpr, ctx InferContext) (sqltype.Column, Scope, error) {
	switch e.Op {
	case opcode.Not, opcode.Not2:
		col, scope, err := inf.Infer(e.V, ctx.WithExpected(sqltype.Boolean))
		if err != nil {
			return sqltype.Column{}, 0, err
		}
		return col, scope, nil
	case opcode.Plus, opcode.Minus, opcode.BitNeg:
		col, scope, err := inf.Infer(e.V, ctx)
		if err != nil {
			return sqltype.Column{}, 0, err
		}
		if !col.Type.IsNumeric() {
			return sqltype.Column{}, 0, sqlerr.New(sqlerr.TypeNotNumeric, "expr", "", "unary operand must be numeric")
		}
		return col, scope, nil
	default:
		return sqltype.Column{}, 0, sqlerr.Unsupportedf("unary operator %v", e.Op)
	}
}

// --- compound constructs -------------------------------------------------

func (inf *Inferencer) inferIn(e *ast.PatternInExpr, ctx InferContext) (sqltype.Column, Scope, error) {
	subject, scope, err := inf.Infer(e.Expr, ctx.WithoutExpected())
	if err != nil {
		return sqltype.Column{}, 0, err
	}
	for _, item := range e.List {
		_, s, err := inf.Infer(item, ctx.WithExpected(subject.Type))
		if err != nil {
			return sqltype.Column{}, 0, err
		}
		if scope, err = Combine(scope, s); err != nil {
			return sqltype.Column{}, 0, err
		}
	}
	return sqltype.NewColumn(sqltype.Boolean, subject.Nullable), scope, nil
}

func (inf *Inferencer) inferBetween(e *ast.BetweenExpr, ctx InferContext) (sqltype.Column, Scope, error) {
	subject, scope, err := inf.Infer(e.Expr, ctx.WithoutExpected())
	if err != nil {
		return sqltype.Column{}, 0, err
	}
	_, ls, err := inf.Infer(e.Left, ctx.WithExpected(subject.Type))
	if err != nil {
		return sqltype.Column{}, 0, err
	}
	_, rs, err := inf.Infer(e.Right, ctx.WithExpected(subject.Type))
	if err != nil {
		return sqltype.Column{}, 0, err
	}
	scope, err = Combine(scope, ls)
	if err != nil {
		return sqltype.Column{}, 0, err
	}
	scope, err = Combine(scope, rs)
	if err != nil {
		return sqltype.Column{}, 0, err
	}
	return sqltype.NewColumn(sqltype.Boolean, subject.Nullable), scope, nil
}

func (inf *Inferencer) inferLike(e *ast.PatternLikeExpr, ctx InferContext) (sqltype.Column, Scope, error) {
	left, ls, err := inf.Infer(e.Expr, ctx.WithExpected(sqltype.Text))
	if err != nil {
		return sqltype.Column{}, 0, err
	}
	right, rs, err := inf.Infer(e.Pattern, ctx.WithExpected(sqltype.Text))
	if err != nil {
		return sqltype.Column{}, 0, err
	}
	scope, err := Combine(ls, rs)
	if err != nil {
		return sqltype.Column{}, 0, err
	}
	return sqltype.NewColumn(sqltype.Boolean, left.Nullable || right.Nullable), scope, nil
}

func (inf *Inferencer) inferCast(e *ast.FuncCastExpr, ctx InferContext) (sqltype.Column, Scope, error) {
	col, scope, err := inf.Infer(e.Expr, ctx.WithoutExpected())
	if err != nil {
		return sqltype.Column{}, 0, err
	}
	target := sqltype.FromRawType(e.Tp.String())
	return sqltype.NewColumn(target, col.Nullable), scope, nil
}

func (inf *Inferencer) inferTuple(e *ast.RowExpr, ctx InferContext) (sqltype.Column, Scope, error) {
	scope := Literal
	if ctx.Expected != nil && ctx.Expected.Kind == sqltype.KindTuple && len(ctx.Expected.Tuple) == len(e.Values) {
		cols := make([]sqltype.Column, len(e.Values))
		for i, v := range e.Values {
			c, s, err := inf.Infer(v, ctx.WithExpected(ctx.Expected.Tuple[i].Type))
			if err != nil {
				return sqltype.Column{}, 0, err
			}
			cols[i] = c
			if scope, err = Combine(scope, s); err != nil {
				return sqltype.Column{}, 0, err
			}
		}
		return sqltype.NewColumn(sqltype.TupleOf(cols...), false), scope, nil
	}
	if ctx.Expected != nil && ctx.Expected.Kind == sqltype.KindTuple {
		return sqltype.Column{}, 0, sqlerr.NewColumnCountMismatch(len(ctx.Expected.Tuple), len(e.Values))
	}
	cols := make([]sqltype.Column, len(e.Values))
	for i, v := range e.Values {
		c, s, err := inf.Infer(v, ctx.WithoutExpected())
		if err != nil {
			return sqltype.Column{}, 0, err
		}
		cols[i] = c
		var cerr error
		if scope, cerr = Combine(scope, s); cerr != nil {
			return sqltype.Column{}, 0, cerr
		}
	}
	return sqltype.NewColumn(sqltype.TupleOf(cols...), false), scope, nil
}

func (inf *Inferencer) inferCase(e *ast.CaseExpr, ctx InferContext) (sqltype.Column, Scope, error) {
	scope := Literal
	var result *sqltype.SqlType
	nullable := false
	for _, when := range e.WhenClauses {
		condExpected := sqltype.Boolean
		if e.Value != nil {
			baseCol, s, err := inf.Infer(e.Value, ctx.WithoutExpected())
			if err != nil {
				return sqltype.Column{}, 0, err
			}
			if scope, err = Combine(scope, s); err != nil {
				return sqltype.Column{}, 0, err
			}
			condExpected = baseCol.Type
		}
		_, cs, err := inf.Infer(when.Expr, ctx.WithExpected(condExpected))
		if err != nil {
			return sqltype.Column{}, 0, err
		}
		if scope, err = Combine(scope, cs); err != nil {
			return sqltype.Column{}, 0, err
		}

		resultCtx := ctx.WithoutExpected()
		if result != nil {
			resultCtx = ctx.WithExpected(*result)
		}
		res, rs, err := inf.Infer(when.Result, resultCtx)
		if err != nil {
			return sqltype.Column{}, 0, err
		}
		if scope, err = Combine(scope, rs); err != nil {
			return sqltype.Column{}, 0, err
		}
		if result == nil {
			result = &res.Type
		}
		nullable = nullable || res.Nullable
	}
	if e.ElseClause != nil {
		elseCtx := ctx.WithoutExpected()
		if result != nil {
			elseCtx = ctx.WithExpected(*result)
		}
		res, es, err := inf.Infer(e.ElseClause, elseCtx)
		if err != nil {
			return sqltype.Column{}, 0, err
		}
		if scope, err = Combine(scope, es); err != nil {
			return sqltype.Column{}, 0, err
		}
		if result == nil {
			result = &res.Type
		}
		nullable = nullable || res.Nullable
	} else {
		nullable = true
	}
	if result == nil {
		return sqltype.Column{}, 0, sqlerr.Sqlf("CASE expression has no branches")
	}
	return sqltype.NewColumn(*result, nullable), scope, nil
}

func (inf *Inferencer) inferSubquery(e *ast.SubqueryExpr, ctx InferContext) (sqltype.Column, Scope, error) {
	if inf.Subqueries == nil {
		return sqltype.Column{}, 0, sqlerr.Unsupportedf("subqueries are not supported in this context")
	}
	if ctx.Expected != nil && ctx.Expected.Kind == sqltype.KindTuple {
		cols, err := inf.Subqueries.ResolveTupleSubquery(e.Query)
		if err != nil {
			return sqltype.Column{}, 0, err
		}
		return sqltype.NewColumn(sqltype.TupleOf(cols...), false), Row, nil
	}
	col, err := inf.Subqueries.ResolveScalarSubquery(e.Query)
	if err != nil {
		return sqltype.Column{}, 0, err
	}
	return col, Row, nil
}

func (inf *Inferencer) inferFuncCall(e *ast.FuncCallExpr, ctx InferContext) (sqltype.Column, Scope, error) {
	if inf.Functions == nil {
		return sqltype.Column{}, 0, sqlerr.New(sqlerr.FunctionDoesntExist, "function", e.FnName.L, "no function registry configured")
	}
	col, scope, err := inf.Functions.Call(inf, strings.ToLower(e.FnName.O), e, ctx)
	if err != nil {
		return sqltype.Column{}, 0, err
	}
	return col, scope, nil
}

func (inf *Inferencer) inferAggregate(e *ast.AggregateFuncExpr, ctx InferContext) (sqltype.Column, Scope, error) {
	if inf.Functions == nil {
		return sqltype.Column{}, 0, sqlerr.New(sqlerr.FunctionDoesntExist, "function", e.F, "no function registry configured")
	}
	col, scope, err := inf.Functions.CallAggregate(inf, strings.ToLower(e.F), e, ctx)
	if err != nil {
		return sqltype.Column{}, 0, err
	}
	return col, scope, nil
}

// ParseNumberedOrder converts a literal `$N` numeral string to its int
// value.
func ParseNumberedOrder(s string) (int, error) {
	return strconv.Atoi(s)
}
