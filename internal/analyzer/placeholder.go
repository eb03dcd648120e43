package sqlsim

import "strings"

// rewritePlaceholders implements spec.md §4.7a's pre-parse pass: tidb's
// grammar only recognizes `?`, so every `$N` token is replaced with a bare
// `?` before parsing, and the original N values are recorded in the order
// they were encountered in the text (the same order tidb assigns its
// ast.ParamMarkerExpr.Order counter, since Order also counts pre-existing
// bare `?` markers). The returned map is keyed by that 0-based order; a
// `?` left untouched has no entry and is appended as the next input
// (append semantics).
//
// This is a single left-to-right scan rather than a regexp replace so
// interleaved `?` and `$N` markers in one statement still land on the
// Order value tidb will actually assign.
func rewritePlaceholders(sql string) (string, map[int]int) {
	origins := map[int]int{}
	var out strings.Builder
	order := 0
	for i := 0; i < len(sql); i++ {
		c := sql[i]
		switch {
		case c == '?':
			out.WriteByte(c)
			order++
		case c == '$' && i+1 < len(sql) && sql[i+1] >= '0' && sql[i+1] <= '9':
			j := i + 1
			n := 0
			for j < len(sql) && sql[j] >= '0' && sql[j] <= '9' {
				n = n*10 + int(sql[j]-'0')
				j++
			}
			origins[order] = n
			order++
			out.WriteByte('?')
			i = j - 1
		default:
			out.WriteByte(c)
		}
	}
	return out.String(), origins
}
