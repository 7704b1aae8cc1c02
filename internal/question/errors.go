package question

import "errors"

var (
	ErrMissingKey       = errors.New("missing testNumber or questionNumber")
	ErrQuestionNotFound = errors.New("question not found")
	ErrNoExplanation    = errors.New("no explanation found")
	ErrNoSkills         = errors.New("no skills found")
	ErrMissingSkill     = errors.New("skill id is required")
)
