package sqltype

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSqlTypeEqual(t *testing.T) {
	assert.True(t, Integer.Equal(Integer))
	assert.False(t, Integer.Equal(BigInt))
	assert.False(t, Null.Equal(Integer))
	assert.True(t, Null.Equal(Null))
}

func TestSqlTypeEqualTuple(t *testing.T) {
	a := TupleOf(NewColumn(Integer, false), NewColumn(Text, true))
	b := TupleOf(NewColumn(Integer, true), NewColumn(Text, false))
	assert.True(t, a.Equal(b), "tuple equality ignores nullability, compares element types only")

	c := TupleOf(NewColumn(Integer, false))
	assert.False(t, a.Equal(c), "tuples of different arity are not equal")
}

func TestSqlTypeEqualUnknown(t *testing.T) {
	a := UnknownOf("money")
	b := UnknownOf("money")
	c := UnknownOf("geometry")
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestIsNumeric(t *testing.T) {
	assert.True(t, Integer.IsNumeric())
	assert.True(t, Double.IsNumeric())
	assert.False(t, Text.IsNumeric())
	assert.False(t, Boolean.IsNumeric())
}

func TestFromRawTypeBasics(t *testing.T) {
	cases := map[string]SqlType{
		"INT":                      Integer,
		"integer":                  Integer,
		"int4":                     Integer,
		"SMALLINT":                 SmallInt,
		"int2":                     SmallInt,
		"BIGINT":                   BigInt,
		"int8":                     BigInt,
		"varchar(255)":             Text,
		"text":                     Text,
		"uuid":                     Uuid,
		"json":                     Json,
		"jsonb":                    Json,
		"date":                     Date,
		"time":                     Time,
		"timestamp":                Timestamp,
		"datetime":                 Timestamp,
		"timestamptz":              TimestampTz,
		"timestamp with time zone": TimestampTz,
	}
	for raw, want := range cases {
		got := FromRawType(raw)
		assert.Truef(t, got.Equal(want), "FromRawType(%q) = %v, want %v", raw, got, want)
	}
}

func TestFromRawTypeFloatPrecision(t *testing.T) {
	assert.True(t, FromRawType("float(4)").Equal(Float))
	assert.True(t, FromRawType("float(8)").Equal(Double))
	assert.True(t, FromRawType("float").Equal(Double))
	assert.True(t, FromRawType("real").Equal(Float))
	assert.True(t, FromRawType("float4").Equal(Float))
	assert.True(t, FromRawType("double precision").Equal(Double))
}

func TestFromRawTypeUnknown(t *testing.T) {
	got := FromRawType("geometry")
	assert.Equal(t, KindUnknown, got.Kind)
	assert.Equal(t, "geometry", got.Unknown)
}
