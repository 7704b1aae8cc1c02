package airtable

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuoteEscapesLiterals(t *testing.T) {
	assert.Equal(t, `'A11'`, Quote("A11"))
	assert.Equal(t, `'it\'s'`, Quote("it's"))
	assert.Equal(t, `'a\\b'`, Quote(`a\b`))
	assert.Equal(t, `'x\') OR TRUE() OR (\''`, Quote("x') OR TRUE() OR ('"))
}

func TestEqValue(t *testing.T) {
	tests := []struct {
		value string
		want  Formula
	}{
		{"3", "{Question Number} = 3"},
		{"12.5", "{Question Number} = 12.5"},
		{"-1", "{Question Number} = -1"},
		{"3a", "{Question Number} = '3a'"},
		{"3 OR 1=1", "{Question Number} = '3 OR 1=1'"},
		{"", "{Question Number} = ''"},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, EqValue("Question Number", tt.value))
		})
	}
}

func TestCombinators(t *testing.T) {
	a := Eq("Test Number", "A11")
	b := EqValue("Question Number", "3")

	assert.Equal(t, Formula("AND({Test Number} = 'A11', {Question Number} = 3)"), And(a, b))
	assert.Equal(t, a, And(a, ""))
	assert.Equal(t, Formula(""), Or())
	assert.Equal(t, Formula("OR({Test Number} = 'A11', {Question Number} = 3)"), Or(a, b))
	assert.Equal(t, Formula("NOT({Explanation 4o} = '')"), NotEmpty("Explanation 4o"))
}

func TestContains(t *testing.T) {
	assert.Equal(t,
		Formula("FIND('rec123', ARRAYJOIN({Original Question})) > 0"),
		Contains(ArrayJoin("Original Question"), "rec123"))
}
