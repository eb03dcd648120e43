// Package joinctx implements the per-statement name-resolution scope built
// while walking a FROM/JOIN tree: JoinContext, the shared column handles
// that make NATURAL/USING columns collapse to one logical identity, and
// the CROSS/INNER-ON/USING/NATURAL join rules of spec.md §4.3.
//
// This package has no teacher analogue (the teacher never resolves join
// scopes — it only converts DDL). Its shape is grounded on the
// attribute-grammar description of scope handles in the dolthub
// go-mysql-server optbuilder notes pulled into the retrieval pack: a
// logical column is a pointer-identity handle, reachable under every
// (qualifier, name) alias that denotes it.
package joinctx

import (
	"strings"

	"github.com/sqlsim/sqlsim/internal/sqlerr"
	"github.com/sqlsim/sqlsim/internal/sqltype"
)

// ColumnRef is a (qualifier, name) alias under which a logical column is
// reachable. Qualifier is the table name or alias used in the query text.
type ColumnRef struct {
	Qualifier string
	Name      string
}

// handle is the shared identity of one logical column. Two ColumnRefs
// denote the same logical column iff they resolve to pointer-equal
// handles (spec.md §3, GLOSSARY "Logical column").
type handle struct {
	column sqltype.Column
}

// JoinKind is the closed set of join operators spec.md §4.3 names.
type JoinKind int

const (
	Cross JoinKind = iota
	InnerOn
	OuterOn
	Using
	Natural
	None // plain comma-join / bare FROM item, same rule as Cross
)

// entry pairs a ref with the handle it resolves to.
type entry struct {
	ref    ColumnRef
	handle *handle
}

// JoinContext is the namespace built by resolving a statement's FROM/JOIN
// tree. It grows as each table/join step is folded in.
type JoinContext struct {
	entries []entry
}

func New() *JoinContext {
	return &JoinContext{}
}

// TableSource describes one relation being folded into the context: its
// ordered columns by name, and the name/alias it is introduced under.
type TableSource struct {
	Name    string
	Alias   string
	Columns []string
	Lookup  func(name string) (sqltype.Column, bool)
}

// FromTable seeds a fresh JoinContext with one handle per column of t,
// indexed under (name, column) and, if present, (alias, column).
func FromTable(t TableSource) *JoinContext {
	jc := New()
	jc.addFresh(t)
	return jc
}

func (jc *JoinContext) addFresh(t TableSource) {
	for _, colName := range t.Columns {
		col, _ := t.Lookup(colName)
		h := &handle{column: col}
		jc.entries = append(jc.entries, entry{ref: ColumnRef{Qualifier: t.Name, Name: colName}, handle: h})
		if t.Alias != "" {
			jc.entries = append(jc.entries, entry{ref: ColumnRef{Qualifier: t.Alias, Name: colName}, handle: h})
		}
	}
}

// qualifierUsed reports whether q is already used as a table name or
// alias, to detect AmbiguousAlias on join.
func (jc *JoinContext) qualifierUsed(q string) bool {
	for _, e := range jc.entries {
		if strings.EqualFold(e.ref.Qualifier, q) {
			return true
		}
	}
	return false
}

// handlesNamed returns every distinct handle reachable under (*, name),
// used by USING/NATURAL to find the existing column to share.
func (jc *JoinContext) handlesNamed(name string) []*handle {
	seen := map[*handle]bool{}
	var out []*handle
	for _, e := range jc.entries {
		if strings.EqualFold(e.ref.Name, name) && !seen[e.handle] {
			seen[e.handle] = true
			out = append(out, e.handle)
		}
	}
	return out
}

// JoinTable extends jc with t according to kind. usingCols is only
// consulted when kind == Using.
func (jc *JoinContext) JoinTable(t TableSource, kind JoinKind, usingCols []string) error {
	if t.Alias != "" && jc.qualifierUsed(t.Alias) {
		return sqlerr.New(sqlerr.AmbiguousAlias, "join", t.Alias, "alias already in use")
	}
	if t.Alias == "" && jc.qualifierUsed(t.Name) {
		return sqlerr.New(sqlerr.AmbiguousAlias, "join", t.Name, "table already joined under this name")
	}

	switch kind {
	case Cross, InnerOn, OuterOn, None:
		jc.addFresh(t)
		return nil
	case Using:
		return jc.joinUsing(t, usingCols)
	case Natural:
		return jc.joinNatural(t)
	default:
		jc.addFresh(t)
		return nil
	}
}

func (jc *JoinContext) joinUsing(t TableSource, cols []string) error {
	shared := make(map[string]*handle, len(cols))
	for _, c := range cols {
		matches := jc.handlesNamed(c)
		if len(matches) == 0 {
			return sqlerr.New(sqlerr.ColumnDoesntExist, "join", c, "USING column not found")
		}
		if len(matches) > 1 {
			return sqlerr.New(sqlerr.AmbiguousColumn, "join", c, "USING column ambiguous across existing tables")
		}
		rightCol, ok := t.Lookup(c)
		if !ok {
			return sqlerr.New(sqlerr.ColumnDoesntExist, "join", c, "USING column not found on joined table")
		}
		if !matches[0].column.Type.Equal(rightCol.Type) {
			return sqlerr.NewTypeMismatch(matches[0].column.Type.String(), rightCol.Type.String())
		}
		shared[strings.ToLower(c)] = matches[0]
	}

	for _, colName := range t.Columns {
		if h, ok := shared[strings.ToLower(colName)]; ok {
			jc.entries = append(jc.entries, entry{ref: ColumnRef{Qualifier: t.Name, Name: colName}, handle: h})
			if t.Alias != "" {
				jc.entries = append(jc.entries, entry{ref: ColumnRef{Qualifier: t.Alias, Name: colName}, handle: h})
			}
			continue
		}
		col, _ := t.Lookup(colName)
		h := &handle{column: col}
		jc.entries = append(jc.entries, entry{ref: ColumnRef{Qualifier: t.Name, Name: colName}, handle: h})
		if t.Alias != "" {
			jc.entries = append(jc.entries, entry{ref: ColumnRef{Qualifier: t.Alias, Name: colName}, handle: h})
		}
	}
	return nil
}

func (jc *JoinContext) joinNatural(t TableSource) error {
	var common []string
	for _, colName := range t.Columns {
		if len(jc.handlesNamed(colName)) == 1 {
			common = append(common, colName)
		}
	}
	if len(common) == 0 {
		return sqlerr.New(sqlerr.NoCommonColumn, "join", t.Name, "no common column names with existing tables")
	}
	return jc.joinUsing(t, common)
}

// GetColumn resolves an unqualified name. It returns the column if every
// matching ref shares one handle, ColumnDoesntExist if no ref matches, and
// AmbiguousColumn otherwise.
func (jc *JoinContext) GetColumn(name string) (sqltype.Column, error) {
	matches := jc.handlesNamed(name)
	switch len(matches) {
	case 0:
		return sqltype.Column{}, sqlerr.New(sqlerr.ColumnDoesntExist, "column", name, "not found")
	case 1:
		return matches[0].column, nil
	default:
		return sqltype.Column{}, sqlerr.New(sqlerr.AmbiguousColumn, "column", name, "ambiguous across joined tables")
	}
}

// GetQualifiedColumn resolves an exact (qualifier, name) pair.
func (jc *JoinContext) GetQualifiedColumn(qualifier, name string) (sqltype.Column, error) {
	if !jc.qualifierUsed(qualifier) {
		return sqltype.Column{}, sqlerr.New(sqlerr.QualifierDoesntExist, "qualifier", qualifier, "not found")
	}
	for _, e := range jc.entries {
		if strings.EqualFold(e.ref.Qualifier, qualifier) && strings.EqualFold(e.ref.Name, name) {
			return e.handle.column, nil
		}
	}
	return sqltype.Column{}, sqlerr.NewQualifiedColumnDoesntExist(qualifier, name)
}

// DistinctColumns returns every distinct logical column reachable in jc,
// each with its "canonical" qualifier (the first ref under which it was
// added), used by `*` wildcard expansion.
func (jc *JoinContext) DistinctColumns() []struct {
	Ref    ColumnRef
	Column sqltype.Column
} {
	seen := map[*handle]bool{}
	var out []struct {
		Ref    ColumnRef
		Column sqltype.Column
	}
	for _, e := range jc.entries {
		if seen[e.handle] {
			continue
		}
		seen[e.handle] = true
		out = append(out, struct {
			Ref    ColumnRef
			Column sqltype.Column
		}{Ref: e.ref, Column: e.handle.column})
	}
	return out
}

// ColumnsForQualifier returns every column whose qualifier matches q, used
// by `qualifier.*` expansion.
func (jc *JoinContext) ColumnsForQualifier(q string) ([]struct {
	Name   string
	Column sqltype.Column
}, bool) {
	if !jc.qualifierUsed(q) {
		return nil, false
	}
	seen := map[*handle]bool{}
	var out []struct {
		Name   string
		Column sqltype.Column
	}
	for _, e := range jc.entries {
		if !strings.EqualFold(e.ref.Qualifier, q) || seen[e.handle] {
			continue
		}
		seen[e.handle] = true
		out = append(out, struct {
			Name   string
			Column sqltype.Column
		}{Name: e.ref.Name, Column: e.handle.column})
	}
	return out, true
}
