package sqltype

import "strings"

// Dialect is the tag from spec.md §6. The Simulator carries it; parsing
// and FromRawType do not vary by it.
type Dialect int

const (
	Generic Dialect = iota
	Ansi
	Sqlite
	Postgres
)

// normalizeRule is the same substring-matching idiom as the teacher's
// normalizeDataTypeRules table (internal/core/schema.go), reused here to
// map a raw dialect type-name onto the closed SqlType sum instead of a
// portable display string.
type normalizeRule struct {
	kind       Kind
	substrings []string
}

var normalizeRules = []normalizeRule{
	{kind: KindSmallInt, substrings: []string{"int2", "smallint"}},
	{kind: KindBigInt, substrings: []string{"int8", "bigint"}},
	{kind: KindInteger, substrings: []string{"int4", "integer", "int"}},
	{kind: KindText, substrings: []string{"text", "string", "char", "varchar", "nvarchar"}},
	{kind: KindUuid, substrings: []string{"uuid"}},
	{kind: KindJson, substrings: []string{"json"}},
	{kind: KindTimestampTz, substrings: []string{"timestamptz", "timestamp with time zone"}},
	{kind: KindTimestamp, substrings: []string{"timestamp", "datetime"}},
	{kind: KindDate, substrings: []string{"date"}},
	{kind: KindTime, substrings: []string{"time"}},
}

// FromRawType normalizes a dialect data-type spelling into SqlType,
// following spec.md §4.1's mapping table exactly. Unrecognized spellings
// become Unknown(raw), preserving the original text for diagnostics.
func FromRawType(raw string) SqlType {
	lower := strings.ToLower(strings.TrimSpace(raw))

	if strings.HasPrefix(lower, "real") || strings.HasPrefix(lower, "float4") {
		return Float
	}
	if strings.HasPrefix(lower, "double") || strings.HasPrefix(lower, "float8") {
		return Double
	}
	if strings.HasPrefix(lower, "float") {
		if n, ok := floatPrecision(lower); ok {
			if n <= 4 {
				return Float
			}
			return Double
		}
		return Double
	}

	for _, rule := range normalizeRules {
		for _, sub := range rule.substrings {
			if strings.Contains(lower, sub) {
				return Simple(rule.kind)
			}
		}
	}
	return UnknownOf(strings.TrimSpace(raw))
}

// floatPrecision extracts the N from "float(n)"; ok is false when there is
// no parenthesized precision to read.
func floatPrecision(lower string) (int, bool) {
	open := strings.IndexByte(lower, '(')
	close := strings.IndexByte(lower, ')')
	if open < 0 || close < 0 || close <= open+1 {
		return 0, false
	}
	digits := lower[open+1 : close]
	n := 0
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}
