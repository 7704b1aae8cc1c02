package generator

import (
	"errors"
	"regexp"
	"strings"
)

var (
	ErrMalformedResponse = errors.New("failed to parse model response: missing required sections")
	ErrInvalidAnswer     = errors.New("invalid answer format: must be a single letter A-E")
)

const (
	headingAnalysis    = "**Analysis:**"
	headingQuestion    = "**New Question:**"
	headingAnswer      = "**Answer:**"
	headingExplanation = "**Explanation:**"
)

var (
	answerLetter = regexp.MustCompile(`[A-E]`)
	htmlTag      = regexp.MustCompile(`<[^>]*>`)
	tightOpen    = regexp.MustCompile(`(\S)(\\[(\[])`)
	tightClose   = regexp.MustCompile(`(\\[)\]])(\S)`)
	escapedDelim = strings.NewReplacer(`\\(`, `\(`, `\\)`, `\)`, `\\[`, `\[`, `\\]`, `\]`)
)

// GeneratedClone is the structured content of a clone completion.
type GeneratedClone struct {
	Analysis    string
	Question    string
	Answer      string
	Explanation string
}

// ParseClone splits a completion into its headed sections. The question,
// answer and explanation sections are required and must appear in order.
func ParseClone(text string) (GeneratedClone, error) {
	qi := strings.Index(text, headingQuestion)
	if qi < 0 {
		return GeneratedClone{}, ErrMalformedResponse
	}
	ai := strings.Index(text[qi:], headingAnswer)
	if ai < 0 {
		return GeneratedClone{}, ErrMalformedResponse
	}
	ai += qi
	ei := strings.Index(text[ai:], headingExplanation)
	if ei < 0 {
		return GeneratedClone{}, ErrMalformedResponse
	}
	ei += ai

	var out GeneratedClone
	if i := strings.Index(text[:qi], headingAnalysis); i >= 0 {
		out.Analysis = strings.TrimSpace(text[i+len(headingAnalysis) : qi])
	}
	out.Question = strings.TrimSpace(text[qi+len(headingQuestion) : ai])
	out.Explanation = strings.TrimSpace(text[ei+len(headingExplanation):])

	letter := answerLetter.FindString(strings.TrimSpace(text[ai+len(headingAnswer) : ei]))
	if letter == "" {
		return GeneratedClone{}, ErrInvalidAnswer
	}
	out.Answer = letter
	if out.Question == "" {
		return GeneratedClone{}, ErrMalformedResponse
	}
	return out, nil
}

// PrepareLatex strips markup and repairs delimiter escaping in a question
// body before it is sent to a model.
func PrepareLatex(s string) string {
	if s == "" {
		return s
	}
	s = htmlTag.ReplaceAllString(s, "")
	s = escapedDelim.Replace(s)
	s = tightOpen.ReplaceAllString(s, "$1 $2")
	return tightClose.ReplaceAllString(s, "$1 $2")
}
