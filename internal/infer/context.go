package infer

import (
	"github.com/pingcap/tidb/pkg/parser/ast"
	"github.com/sqlsim/sqlsim/internal/sqltype"
)

// ColumnInferrer is the contextual resolver for identifier expressions,
// the "small capability" spec.md §9 describes: two methods, swapped per
// statement phase (DDL defaults and INSERT VALUES forbid all columns; a
// SELECT/UPDATE/DELETE join inferrer consults the live JoinContext).
type ColumnInferrer interface {
	InferUnqualified(name string) (sqltype.Column, bool)
	InferQualified(qualifier, name string) (sqltype.Column, error)
}

// NoColumns is the restricted inferrer used by CREATE TABLE DEFAULT
// expressions and INSERT VALUES rows: it forbids every column reference.
type NoColumns struct{}

func (NoColumns) InferUnqualified(string) (sqltype.Column, bool)       { return sqltype.Column{}, false }
func (NoColumns) InferQualified(string, string) (sqltype.Column, error) {
	return sqltype.Column{}, errColumnsForbidden()
}

// InferContext is threaded down the expression tree. Expected is nil when
// the caller has no type requirement; NullableExpected is nil to mean
// "default true" per spec.md §4.4's placeholder nullability rule.
type InferContext struct {
	Expected         *sqltype.SqlType
	NullableExpected *bool
	Scope            Scope
	Grouped          []ast.ExprNode
	Columns          ColumnInferrer
}

// WithExpected returns a copy of ctx with a new expected type, leaving
// scope/grouping/columns unchanged — the common case when descending into
// a subexpression that must match a known type.
func (ctx InferContext) WithExpected(t sqltype.SqlType) InferContext {
	ctx.Expected = &t
	return ctx
}

// WithoutExpected clears the expected type (the "Unknown" expectation used
// for comparison left-hand sides, IN subjects, etc.).
func (ctx InferContext) WithoutExpected() InferContext {
	ctx.Expected = nil
	return ctx
}
