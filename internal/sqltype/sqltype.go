// Package sqltype holds the closed SqlType sum and the Column it decorates.
//
// The shape mirrors the teacher's portable DataType enum in
// internal/core/schema.go, but where the teacher collapses everything to a
// handful of string tags for cross-dialect DDL generation, SqlType stays a
// closed sum (a struct tagged by a closed Kind enum, with Tuple/Unknown
// payload fields) since the analyzer needs structural equality, not a
// display string.
package sqltype

import "fmt"

// Kind tags the closed set of SQL types the analyzer understands.
type Kind int

const (
	KindSmallInt Kind = iota
	KindInteger
	KindBigInt
	KindFloat
	KindDouble
	KindText
	KindBoolean
	KindDate
	KindTime
	KindTimestamp
	KindTimestampTz
	KindUuid
	KindJson
	KindNull
	KindTuple
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindSmallInt:
		return "SmallInt"
	case KindInteger:
		return "Integer"
	case KindBigInt:
		return "BigInt"
	case KindFloat:
		return "Float"
	case KindDouble:
		return "Double"
	case KindText:
		return "Text"
	case KindBoolean:
		return "Boolean"
	case KindDate:
		return "Date"
	case KindTime:
		return "Time"
	case KindTimestamp:
		return "Timestamp"
	case KindTimestampTz:
		return "TimestampTz"
	case KindUuid:
		return "Uuid"
	case KindJson:
		return "Json"
	case KindNull:
		return "Null"
	case KindTuple:
		return "Tuple"
	case KindUnknown:
		return "Unknown"
	default:
		return "?"
	}
}

// SqlType is the closed sum described in spec.md §3. Tuple carries its
// element Columns; Unknown carries the raw dialect type string it could not
// normalize.
type SqlType struct {
	Kind    Kind
	Tuple   []Column // only meaningful when Kind == KindTuple
	Unknown string   // only meaningful when Kind == KindUnknown
}

func Simple(k Kind) SqlType { return SqlType{Kind: k} }

var (
	SmallInt    = Simple(KindSmallInt)
	Integer     = Simple(KindInteger)
	BigInt      = Simple(KindBigInt)
	Float       = Simple(KindFloat)
	Double      = Simple(KindDouble)
	Text        = Simple(KindText)
	Boolean     = Simple(KindBoolean)
	Date        = Simple(KindDate)
	Time        = Simple(KindTime)
	Timestamp   = Simple(KindTimestamp)
	TimestampTz = Simple(KindTimestampTz)
	Uuid        = Simple(KindUuid)
	Json        = Simple(KindJson)
	Null        = Simple(KindNull)
)

func TupleOf(cols ...Column) SqlType {
	return SqlType{Kind: KindTuple, Tuple: cols}
}

func UnknownOf(raw string) SqlType {
	return SqlType{Kind: KindUnknown, Unknown: raw}
}

// Equal implements spec.md §3's equality rule: structural, Tuple compares
// elementwise by type only (nullability not significant), Null equals only
// Null.
func (t SqlType) Equal(other SqlType) bool {
	if t.Kind != other.Kind {
		return false
	}
	switch t.Kind {
	case KindTuple:
		if len(t.Tuple) != len(other.Tuple) {
			return false
		}
		for i := range t.Tuple {
			if !t.Tuple[i].Type.Equal(other.Tuple[i].Type) {
				return false
			}
		}
		return true
	case KindUnknown:
		return t.Unknown == other.Unknown
	default:
		return true
	}
}

func (t SqlType) String() string {
	switch t.Kind {
	case KindTuple:
		return fmt.Sprintf("Tuple(%d)", len(t.Tuple))
	case KindUnknown:
		return fmt.Sprintf("Unknown(%s)", t.Unknown)
	default:
		return t.Kind.String()
	}
}

// IsInteger reports whether t is one of the three fixed-width integer kinds.
func (t SqlType) IsInteger() bool {
	switch t.Kind {
	case KindSmallInt, KindInteger, KindBigInt:
		return true
	default:
		return false
	}
}

// IsFloating reports whether t is Float or Double.
func (t SqlType) IsFloating() bool {
	return t.Kind == KindFloat || t.Kind == KindDouble
}

// IsNumeric reports whether t is integer or floating.
func (t SqlType) IsNumeric() bool {
	return t.IsInteger() || t.IsFloating()
}

// IsNull reports whether t is the untyped-placeholder Null marker.
func (t SqlType) IsNull() bool {
	return t.Kind == KindNull
}

// Column is a typed, nullable, possibly-defaulted attribute: a table
// column or a ResolvedQuery input/output slot.
type Column struct {
	Type     SqlType
	Nullable bool
	Default  bool // true when a DEFAULT expression exists for this column
}

func NewColumn(t SqlType, nullable bool) Column {
	return Column{Type: t, Nullable: nullable}
}
