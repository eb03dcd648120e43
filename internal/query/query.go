// Package query holds ResolvedQuery, the analyzer's per-statement output
// artifact: ordered placeholder input types and named, ambiguity-safe
// output column types. It is new relative to the teacher (which has no
// query-typing concept), shaped directly by spec.md §3.
package query

import (
	"strings"

	"github.com/sqlsim/sqlsim/internal/sqltype"
)

// OutputKey is the (optional qualifier, name) pair an output column is
// keyed by, matching spec.md §3's ResolvedQuery.outputs map key.
type OutputKey struct {
	Qualifier string // empty means unqualified
	Name      string
}

type namedOutput struct {
	key    OutputKey
	column sqltype.Column
}

// inputSet holds a statement's placeholder inputs behind a pointer so a
// subquery's ResolvedQuery can share it with its enclosing statement:
// placeholder numbering is per top-level statement, not per nested SELECT
// (spec.md §4.7a), while projection outputs stay scoped to whichever
// SELECT produced them.
type inputSet struct {
	cols []sqltype.Column
}

// ResolvedQuery accumulates a statement's inputs and outputs during
// analysis. Inputs grow via AppendInput ($?$) or SetInput ($N$); outputs
// grow via AddOutput, preserving insertion order.
type ResolvedQuery struct {
	in      *inputSet
	outputs []namedOutput
}

func New() *ResolvedQuery {
	return &ResolvedQuery{in: &inputSet{}}
}

// Sub returns a ResolvedQuery for a nested subquery: it shares the parent's
// input slots so placeholders inside the subquery number against the whole
// statement, but starts with an empty, independent output list.
func (q *ResolvedQuery) Sub() *ResolvedQuery {
	return &ResolvedQuery{in: q.in}
}

// Inputs returns the statement's placeholder inputs in order.
func (q *ResolvedQuery) Inputs() []sqltype.Column {
	return q.in.cols
}

// AppendInput implements `?` placeholder semantics: append at the next
// index and return that index.
func (q *ResolvedQuery) AppendInput(col sqltype.Column) int {
	q.in.cols = append(q.in.cols, col)
	return len(q.in.cols) - 1
}

// SetInput implements `$N` placeholder semantics: store at position N-1,
// first growing the input list with Null placeholders to length N if it is
// shorter.
// If the slot is already typed, the existing column is returned unmodified
// for the caller to unify against (spec.md §8 property 4).
func (q *ResolvedQuery) SetInput(n int, col sqltype.Column) (existing sqltype.Column, wasSet bool) {
	idx := n - 1
	if idx < 0 {
		idx = 0
	}
	for idx >= len(q.in.cols) {
		q.in.cols = append(q.in.cols, sqltype.NewColumn(sqltype.Null, true))
	}
	if !q.in.cols[idx].Type.IsNull() {
		return q.in.cols[idx], true
	}
	q.in.cols[idx] = col
	return col, false
}

// AddOutput records a named output column in projection order. Collisions
// on the exact (qualifier, name) key are the caller's responsibility to
// detect (AmbiguousAlias / AmbiguousColumn per the statement handler).
func (q *ResolvedQuery) AddOutput(key OutputKey, col sqltype.Column) {
	q.outputs = append(q.outputs, namedOutput{key: key, column: col})
}

// HasOutput reports whether key is already present, used by projection
// handlers to detect alias collisions before calling AddOutput.
func (q *ResolvedQuery) HasOutput(key OutputKey) bool {
	for _, o := range q.outputs {
		if o.key == key {
			return true
		}
	}
	return false
}

// Outputs returns the outputs in insertion order.
func (q *ResolvedQuery) Outputs() []struct {
	Key    OutputKey
	Column sqltype.Column
} {
	out := make([]struct {
		Key    OutputKey
		Column sqltype.Column
	}, len(q.outputs))
	for i, o := range q.outputs {
		out[i] = struct {
			Key    OutputKey
			Column sqltype.Column
		}{Key: o.key, Column: o.column}
	}
	return out
}

// Lookup finds an output by unqualified name, returning ok=false if the
// name doesn't appear or is ambiguous across distinct qualifiers (spec.md
// §3: "lookup by unqualified name returns None if the name is ambiguous
// across qualifiers").
func (q *ResolvedQuery) Lookup(name string) (sqltype.Column, bool) {
	var found *namedOutput
	for i := range q.outputs {
		o := &q.outputs[i]
		if strings.EqualFold(o.key.Name, name) {
			if found != nil && !strings.EqualFold(found.key.Qualifier, o.key.Qualifier) {
				return sqltype.Column{}, false
			}
			found = o
		}
	}
	if found == nil {
		return sqltype.Column{}, false
	}
	return found.column, true
}

// LookupQualified finds an output by exact (qualifier, name) match.
func (q *ResolvedQuery) LookupQualified(qualifier, name string) (sqltype.Column, bool) {
	for _, o := range q.outputs {
		if strings.EqualFold(o.key.Qualifier, qualifier) && strings.EqualFold(o.key.Name, name) {
			return o.column, true
		}
	}
	return sqltype.Column{}, false
}

// MissingPlaceholderIndex returns the index of the first input still typed
// Null, or -1 if every input is fully typed (spec.md §4.7/§8 property 3).
func (q *ResolvedQuery) MissingPlaceholderIndex() int {
	for i, in := range q.in.cols {
		if in.Type.IsNull() {
			return i
		}
	}
	return -1
}
