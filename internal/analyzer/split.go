package sqlsim

import "strings"

// splitStatements splits a script on top-level `;`, ignoring semicolons
// inside single/double/backtick-quoted strings. RETURNING clauses and the
// `$N` rewrite both need to operate per-statement (placeholder numbering
// and RETURNING parsing are both statement-scoped), so this runs before
// handing anything to tidb rather than relying on tidb's own
// multi-statement Parse to do the splitting — that only works once every
// statement is already RETURNING-free MySQL-family syntax.
func splitStatements(sql string) []string {
	var out []string
	var cur strings.Builder
	var quote byte
	for i := 0; i < len(sql); i++ {
		c := sql[i]
		switch {
		case quote != 0:
			cur.WriteByte(c)
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"' || c == '`':
			quote = c
			cur.WriteByte(c)
		case c == ';':
			out = append(out, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	if strings.TrimSpace(cur.String()) != "" {
		out = append(out, cur.String())
	}
	return out
}
