// Package sqlerr defines the single closed error type returned by every
// package in the analyzer. It follows the teacher's ValidationError shape
// (internal/core/validation.go) but adds a Kind so callers can branch on
// the failure mode with errors.Is instead of string matching.
package sqlerr

import (
	"errors"
	"fmt"
)

// Kind enumerates every failure mode the analyzer can report.
type Kind int

const (
	Parsing Kind = iota
	Sql
	TableAlreadyExists
	ColumnAlreadyExists
	TableDoesntExist
	ColumnDoesntExist
	AmbiguousColumn
	AmbiguousAlias
	AliasDoesntExist
	QualifierDoesntExist
	QualifiedColumnDoesntExist
	AliasIsTableName
	ForeignKeyConstraint
	TypeMismatch
	TypeNotNumeric
	NullOnNotNullColumn
	DefaultOnNotDefaultColumn
	InvalidDefault
	ColumnCountMismatch
	RequiredColumnMissing
	NoCommonColumn
	MissingPlaceholder
	IncompatibleScope
	FunctionDoesntExist
	FunctionArgumentCount
	FunctionCall
	Unsupported
)

func (k Kind) String() string {
	switch k {
	case Parsing:
		return "Parsing"
	case Sql:
		return "Sql"
	case TableAlreadyExists:
		return "TableAlreadyExists"
	case ColumnAlreadyExists:
		return "ColumnAlreadyExists"
	case TableDoesntExist:
		return "TableDoesntExist"
	case ColumnDoesntExist:
		return "ColumnDoesntExist"
	case AmbiguousColumn:
		return "AmbiguousColumn"
	case AmbiguousAlias:
		return "AmbiguousAlias"
	case AliasDoesntExist:
		return "AliasDoesntExist"
	case QualifierDoesntExist:
		return "QualifierDoesntExist"
	case QualifiedColumnDoesntExist:
		return "QualifiedColumnDoesntExist"
	case AliasIsTableName:
		return "AliasIsTableName"
	case ForeignKeyConstraint:
		return "ForeignKeyConstraint"
	case TypeMismatch:
		return "TypeMismatch"
	case TypeNotNumeric:
		return "TypeNotNumeric"
	case NullOnNotNullColumn:
		return "NullOnNotNullColumn"
	case DefaultOnNotDefaultColumn:
		return "DefaultOnNotDefaultColumn"
	case InvalidDefault:
		return "InvalidDefault"
	case ColumnCountMismatch:
		return "ColumnCountMismatch"
	case RequiredColumnMissing:
		return "RequiredColumnMissing"
	case NoCommonColumn:
		return "NoCommonColumn"
	case MissingPlaceholder:
		return "MissingPlaceholder"
	case IncompatibleScope:
		return "IncompatibleScope"
	case FunctionDoesntExist:
		return "FunctionDoesntExist"
	case FunctionArgumentCount:
		return "FunctionArgumentCount"
	case FunctionCall:
		return "FunctionCall"
	case Unsupported:
		return "Unsupported"
	default:
		return "Unknown"
	}
}

// Error is the analyzer's single closed error type. Entity/Name/Field
// identify what was being checked (table, column, constraint, ...); Message
// is a human-readable detail. Expected/Got/Index/Qualifier/Column hold the
// structured payload some Kinds carry (TypeMismatch, MissingPlaceholder,
// QualifiedColumnDoesntExist, ColumnCountMismatch).
type Error struct {
	Kind      Kind
	Entity    string
	Name      string
	Field     string
	Message   string
	Expected  string
	Got       string
	Index     int
	Qualifier string
	Column    string
}

func (e *Error) Error() string {
	switch e.Kind {
	case TypeMismatch:
		return fmt.Sprintf("type mismatch: expected %s, got %s", e.Expected, e.Got)
	case ColumnCountMismatch:
		return fmt.Sprintf("column count mismatch: expected %s, got %s", e.Expected, e.Got)
	case MissingPlaceholder:
		return fmt.Sprintf("missing placeholder at index %d", e.Index)
	case QualifiedColumnDoesntExist:
		return fmt.Sprintf("column %q doesn't exist on %q", e.Column, e.Qualifier)
	case ForeignKeyConstraint:
		return fmt.Sprintf("foreign key constraint from %q blocks this operation", e.Name)
	}
	if e.Field != "" {
		return fmt.Sprintf("%s: %s %q field %q: %s", e.Kind, e.Entity, e.Name, e.Field, e.Message)
	}
	if e.Name != "" {
		return fmt.Sprintf("%s: %s %q: %s", e.Kind, e.Entity, e.Name, e.Message)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return e.Kind.String()
}

// Is lets errors.Is(err, sqlerr.New(kind, ...)) match on Kind alone, the
// way callers are expected to branch: errors.Is(err, sqlerr.KindOnly(Unsupported)).
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Kind == other.Kind
}

// KindOnly builds a bare Error carrying only a Kind, for use with errors.Is.
func KindOnly(k Kind) *Error { return &Error{Kind: k} }

func New(k Kind, entity, name, message string) *Error {
	return &Error{Kind: k, Entity: entity, Name: name, Message: message}
}

func Newf(k Kind, entity, name, format string, args ...any) *Error {
	return &Error{Kind: k, Entity: entity, Name: name, Message: fmt.Sprintf(format, args...)}
}

func NewTypeMismatch(expected, got string) *Error {
	return &Error{Kind: TypeMismatch, Expected: expected, Got: got}
}

func NewColumnCountMismatch(expected, got int) *Error {
	return &Error{Kind: ColumnCountMismatch, Expected: fmt.Sprintf("%d", expected), Got: fmt.Sprintf("%d", got)}
}

func NewMissingPlaceholder(index int) *Error {
	return &Error{Kind: MissingPlaceholder, Index: index}
}

func NewQualifiedColumnDoesntExist(qualifier, column string) *Error {
	return &Error{Kind: QualifiedColumnDoesntExist, Qualifier: qualifier, Column: column}
}

func NewForeignKeyConstraint(tableName string) *Error {
	return &Error{Kind: ForeignKeyConstraint, Name: tableName}
}

// Sqlf builds the catch-all Sql(msg) kind used for miscellaneous
// domain-level failures the spec groups under `Sql(msg)`.
func Sqlf(format string, args ...any) *Error {
	return &Error{Kind: Sql, Message: fmt.Sprintf(format, args...)}
}

func Unsupportedf(format string, args ...any) *Error {
	return &Error{Kind: Unsupported, Message: fmt.Sprintf(format, args...)}
}
