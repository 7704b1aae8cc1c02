package question

import (
	"strings"
)

// ReferenceForms returns every textual form a clone row has used to name its
// original question: "A11 - 3", "A11-3" and "A11 3". Rows were written under
// different conventions over time, so all of them are matched.
func ReferenceForms(testNumber, questionNumber string) []string {
	return []string{
		testNumber + " - " + questionNumber,
		testNumber + "-" + questionNumber,
		testNumber + " " + questionNumber,
	}
}

// CanonicalReference is the form new clone rows are written with.
func CanonicalReference(k Key) string {
	return k.TestNumber + " - " + k.QuestionNumber
}

// ParseCanonicalReference splits a "<test> - <question>" reference. Legacy
// forms are not parsed here since test numbers may themselves contain hyphens
// or spaces ("C03-2", "Red Book 1").
func ParseCanonicalReference(ref string) (Key, bool) {
	test, num, ok := strings.Cut(strings.TrimSpace(ref), " - ")
	if !ok || test == "" || num == "" {
		return Key{}, false
	}
	return Key{TestNumber: test, QuestionNumber: num}, true
}
