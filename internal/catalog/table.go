// Package catalog holds the schema the analyzer checks statements against:
// Table, Constraint, and the Simulator that owns the table map. It mirrors
// the teacher's internal/core/schema.go (Database/Table/Column) in shape,
// but keeps the closed sqltype.SqlType sum instead of a portable DataType
// string tag, since the analyzer needs structural equality, not DDL
// generation.
package catalog

import (
	"strings"

	"github.com/sqlsim/sqlsim/internal/sqltype"
)

// ReferentialAction mirrors the teacher's ReferentialAction enum
// (internal/core/schema.go) but only the five values the spec names.
type ReferentialAction int

const (
	NoAction ReferentialAction = iota
	Restrict
	Cascade
	SetNull
	SetDefault
)

// ConstraintKind tags the closed set of per-column-set constraints a Table
// can carry.
type ConstraintKind int

const (
	KindPrimaryKey ConstraintKind = iota
	KindUnique
	KindForeignKey
	KindIndex
)

// Constraint is one entry in a Table's constraints map. RefTable/RefCols/
// OnDelete/OnUpdate are only meaningful when Kind == KindForeignKey.
type Constraint struct {
	Kind     ConstraintKind
	RefTable string
	RefCols  []string
	OnDelete ReferentialAction
	OnUpdate ReferentialAction
}

// Table holds an insertion-ordered column map and a constraints map keyed
// by compound key (colon-joined, lowercased column names in declaration
// order), matching spec.md §3.
type Table struct {
	Name        string
	columnOrder []string
	columns     map[string]sqltype.Column
	constraints map[string][]Constraint
}

func NewTable(name string) *Table {
	return &Table{
		Name:        name,
		columns:     make(map[string]sqltype.Column),
		constraints: make(map[string][]Constraint),
	}
}

// CompoundKey folds a declaration-ordered column list into the colon-joined,
// lowercased key used to index Table.constraints.
func CompoundKey(cols []string) string {
	lowered := make([]string, len(cols))
	for i, c := range cols {
		lowered[i] = strings.ToLower(c)
	}
	return strings.Join(lowered, ":")
}

func (t *Table) HasColumn(name string) bool {
	_, ok := t.columns[strings.ToLower(name)]
	return ok
}

func (t *Table) Column(name string) (sqltype.Column, bool) {
	c, ok := t.columns[strings.ToLower(name)]
	return c, ok
}

// Columns returns columns in declaration order, the way the teacher's
// Table.Columns slice preserves DDL order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columnOrder))
	copy(out, t.columnOrder)
	return out
}

func (t *Table) addColumn(name string, col sqltype.Column) {
	key := strings.ToLower(name)
	if _, exists := t.columns[key]; !exists {
		t.columnOrder = append(t.columnOrder, name)
	}
	t.columns[key] = col
}

func (t *Table) setColumn(name string, col sqltype.Column) {
	t.columns[strings.ToLower(name)] = col
}

func (t *Table) addConstraint(cols []string, c Constraint) {
	key := CompoundKey(cols)
	t.constraints[key] = append(t.constraints[key], c)
}

// Constraints returns every constraint recorded for the given declaration-
// ordered column list.
func (t *Table) Constraints(cols []string) []Constraint {
	return t.constraints[CompoundKey(cols)]
}

// AllConstraints returns every constraint in the table regardless of which
// column set it is keyed under, used by FK-reference scans during DROP.
func (t *Table) AllConstraints() []Constraint {
	var out []Constraint
	for _, cs := range t.constraints {
		out = append(out, cs...)
	}
	return out
}

// IsUniqueKey reports whether cols (case-insensitively) names exactly a
// PrimaryKey or Unique constraint's column set, the uniqueness test spec.md
// §3 invariant (ii) requires of FK reference targets.
func (t *Table) IsUniqueKey(cols []string) bool {
	for _, c := range t.Constraints(cols) {
		if c.Kind == KindPrimaryKey || c.Kind == KindUnique {
			return true
		}
	}
	return false
}

// PrimaryKeyColumns returns the single-table primary key's columns, or nil
// if the table has none.
func (t *Table) PrimaryKeyColumns() []string {
	for key, cs := range t.constraints {
		for _, c := range cs {
			if c.Kind == KindPrimaryKey {
				if key == "" {
					return nil
				}
				return strings.Split(key, ":")
			}
		}
	}
	return nil
}
