package infer

import "github.com/sqlsim/sqlsim/internal/sqlerr"

// Scope is the inference-time lattice element that tracks whether an
// expression mixes aggregates with row-level references, per spec.md
// §4.4 and the GLOSSARY.
type Scope int

const (
	Literal Scope = iota
	Row
	Group
)

func (s Scope) String() string {
	switch s {
	case Literal:
		return "Literal"
	case Row:
		return "Row"
	case Group:
		return "Group"
	default:
		return "?"
	}
}

// Combine implements the fixed three-element lattice: Literal∨X=X,
// Row∨Row=Row, Group∨Group=Group, Row∨Group→IncompatibleScope.
func Combine(a, b Scope) (Scope, error) {
	if a == Literal {
		return b, nil
	}
	if b == Literal {
		return a, nil
	}
	if a == b {
		return a, nil
	}
	return 0, sqlerr.New(sqlerr.IncompatibleScope, "scope", "", "row and grouped expressions cannot mix")
}
