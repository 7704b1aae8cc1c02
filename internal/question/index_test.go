package question

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortTestNumbers(t *testing.T) {
	got := sortTestNumbers([]string{"C03-2", "16MC2", "2MC", "2MC", "", "Red Book", "2AB"})
	assert.Equal(t, []string{"Red Book", "2AB", "2MC", "C03-2", "16MC2"}, got)
}

func TestSortQuestionNumbers(t *testing.T) {
	got := sortQuestionNumbers([]string{"10", "2", "1", "", "2"})
	assert.Equal(t, []string{"1", "2", "2", "10"}, got)

	mixed := sortQuestionNumbers([]string{"b", "a"})
	assert.Equal(t, []string{"a", "b"}, mixed)
}

func TestSkillIDRoundTrip(t *testing.T) {
	assert.Equal(t, "linear-equations", SkillID("Linear Equations"))
	assert.Equal(t, "ratios-rates", SkillID("  Ratios & Rates! "))
	assert.Equal(t, "Linear Equations", SkillName("linear-equations"))
}

func TestParseCanonicalReference(t *testing.T) {
	k, ok := ParseCanonicalReference("Red Book 1 - 12")
	assert.True(t, ok)
	assert.Equal(t, Key{TestNumber: "Red Book 1", QuestionNumber: "12"}, k)

	_, ok = ParseCanonicalReference("A11-3")
	assert.False(t, ok)
}
