package soql

import (
	"strconv"
	"strings"
)

// ExtractFields returns the column identifiers projected by the top-level
// SELECT clause, in order. Plain fields yield their expression without any
// alias; subqueries yield the relationship named in their own FROM clause.
// Malformed input yields nil.
func ExtractFields(query string) (fields []string) {
	defer func() {
		if recover() != nil {
			fields = nil
		}
	}()

	toks := Tokens(query)
	if !balanced(toks) {
		return nil
	}
	sel, from, ok := selectBounds(toks)
	if !ok {
		return nil
	}

	for _, seg := range splitTopLevel(toks[sel+1 : from]) {
		if len(seg) == 0 {
			continue
		}
		if isSubquery(seg) {
			if rel := subqueryRelationship(seg); rel != "" {
				fields = append(fields, rel)
			}
			continue
		}
		if name := fieldName(query, seg); name != "" {
			fields = append(fields, name)
		}
	}
	return fields
}

// SourceObject returns the object named by the top-level FROM clause, or ""
// when none can be found.
func SourceObject(query string) string {
	toks := Tokens(query)
	if !balanced(toks) {
		return ""
	}
	_, from, ok := selectBounds(toks)
	if !ok || from+1 >= len(toks) {
		return ""
	}
	next := toks[from+1]
	if next.Type != TokenIdent || next.Depth != 0 {
		return ""
	}
	return next.Value
}

// Limit returns the top-level LIMIT value when present.
func Limit(query string) (int, bool) {
	toks := Tokens(query)
	if !balanced(toks) {
		return 0, false
	}
	_, from, ok := selectBounds(toks)
	if !ok {
		return 0, false
	}
	for i := from + 1; i+1 < len(toks); i++ {
		if toks[i].Depth == 0 && isKeyword(toks[i], "LIMIT") {
			n, err := strconv.Atoi(toks[i+1].Value)
			if err != nil || n < 0 {
				return 0, false
			}
			return n, true
		}
	}
	return 0, false
}

func balanced(toks []Token) bool {
	for _, t := range toks {
		if t.Depth < 0 {
			return false
		}
	}
	if len(toks) == 0 {
		return true
	}
	last := toks[len(toks)-1]
	return last.Type != TokenLParen && last.Depth == 0
}

// selectBounds finds the top-level SELECT keyword and the first top-level
// FROM after it.
func selectBounds(toks []Token) (sel, from int, ok bool) {
	sel = -1
	for i, t := range toks {
		if t.Depth != 0 {
			continue
		}
		if sel < 0 {
			if isKeyword(t, "SELECT") {
				sel = i
			}
			continue
		}
		if isKeyword(t, "FROM") {
			return sel, i, true
		}
	}
	return 0, 0, false
}

// splitTopLevel splits tokens on commas that sit outside any parentheses.
func splitTopLevel(toks []Token) [][]Token {
	if len(toks) == 0 {
		return nil
	}
	base := toks[0].Depth
	var out [][]Token
	start := 0
	for i, t := range toks {
		if t.Type == TokenComma && t.Depth == base {
			out = append(out, toks[start:i])
			start = i + 1
		}
	}
	return append(out, toks[start:])
}

func isSubquery(seg []Token) bool {
	return len(seg) >= 2 && seg[0].Type == TokenLParen && isKeyword(seg[1], "SELECT")
}

// subqueryRelationship returns the identifier after the subquery's own FROM.
func subqueryRelationship(seg []Token) string {
	inner := seg[0].Depth + 1
	for i := 1; i+1 < len(seg); i++ {
		if seg[i].Depth == inner && isKeyword(seg[i], "FROM") {
			next := seg[i+1]
			if next.Type == TokenIdent {
				return next.Value
			}
			return ""
		}
	}
	return ""
}

// fieldName trims the expression, collapses whitespace and keeps the part
// before any alias.
func fieldName(query string, seg []Token) string {
	base := seg[0].Depth
	end := seg[len(seg)-1].End
	for i, t := range seg {
		if i > 0 && t.Depth == base && isKeyword(t, "AS") {
			end = seg[i-1].End
			break
		}
	}
	expr := strings.Join(strings.Fields(query[seg[0].Pos:end]), " ")
	return firstTerm(expr)
}

// firstTerm cuts an expression at the first space outside parentheses, which
// drops a bare alias such as "COUNT(Id) total".
func firstTerm(expr string) string {
	depth := 0
	for i := 0; i < len(expr); i++ {
		switch expr[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ' ':
			if depth == 0 {
				return expr[:i]
			}
		}
	}
	return expr
}

func isKeyword(t Token, kw string) bool {
	return t.Type == TokenIdent && strings.EqualFold(t.Value, kw)
}
