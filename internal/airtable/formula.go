package airtable

import (
	"regexp"
	"strings"
)

// Formula is an Airtable formula expression, sent as filterByFormula.
type Formula string

var numericLiteral = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

// Field renders a field reference.
func Field(name string) string {
	return "{" + name + "}"
}

// Quote renders s as a single-quoted string literal.
func Quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(s) + "'"
}

// IsNumeric reports whether s can be emitted as a bare number literal.
func IsNumeric(s string) bool {
	return numericLiteral.MatchString(s)
}

// Eq compares a field against a string literal.
func Eq(field, value string) Formula {
	return Formula(Field(field) + " = " + Quote(value))
}

// EqValue compares a field against value, unquoted when value is numeric.
// Number fields only match bare literals, so question numbers go through here.
func EqValue(field, value string) Formula {
	if IsNumeric(value) {
		return Formula(Field(field) + " = " + value)
	}
	return Eq(field, value)
}

// And joins clauses with AND(); empty clauses are skipped.
func And(clauses ...Formula) Formula {
	return combine("AND", clauses)
}

// Or joins clauses with OR(); empty clauses are skipped.
func Or(clauses ...Formula) Formula {
	return combine("OR", clauses)
}

// Not negates a clause.
func Not(clause Formula) Formula {
	return Formula("NOT(" + string(clause) + ")")
}

// NotEmpty matches rows whose field holds a non-empty value.
func NotEmpty(field string) Formula {
	return Not(Formula(Field(field) + " = ''"))
}

// ArrayJoin renders ARRAYJOIN({field}), flattening multi-value fields into text.
func ArrayJoin(field string) string {
	return "ARRAYJOIN(" + Field(field) + ")"
}

// Contains matches rows where needle occurs inside the text expression expr.
func Contains(expr, needle string) Formula {
	return Formula("FIND(" + Quote(needle) + ", " + expr + ") > 0")
}

func combine(op string, clauses []Formula) Formula {
	parts := make([]string, 0, len(clauses))
	for _, c := range clauses {
		if c != "" {
			parts = append(parts, string(c))
		}
	}
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return Formula(parts[0])
	}
	return Formula(op + "(" + strings.Join(parts, ", ") + ")")
}
