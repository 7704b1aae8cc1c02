package question

import (
	"github.com/copycats/copycat-api/internal/airtable"
)

// Backend field names shared by the Questions and Clones tables.
const (
	FieldTestNumber       = "Test Number"
	FieldQuestionNumber   = "Question Number"
	FieldLatex            = "LatexMarkdown"
	FieldCleanLatex       = "LatexMarkdown clean"
	FieldAnswer           = "Answer"
	FieldExplanation4o    = "Explanation 4o"
	FieldPhoto            = "Photo"
	FieldDiagrams         = "Diagrams"
	FieldSkill            = "Skill"
	FieldCloneBody        = "Corrected Clone Question LM"
	FieldCloneModel       = "AI Model"
	FieldOriginalQuestion = "Original Question"
	FieldCloneExplanation = "Explanation"
)

// DefaultModelLabel is reported for clones whose generating model was not recorded.
const DefaultModelLabel = "No Model"

// Key is the human-meaningful composite key of a question.
type Key struct {
	TestNumber     string
	QuestionNumber string
}

// Valid reports whether both parts of the key are present.
func (k Key) Valid() bool {
	return k.TestNumber != "" && k.QuestionNumber != ""
}

// Question is a row of the Questions table.
type Question struct {
	ID string
	Key
	Latex       string
	CleanLatex  string
	Answer      string
	Explanation string
	Photo       []airtable.Attachment
	Diagrams    []airtable.Attachment
	Skills      []string
}

// Clone is a row of the Clones table.
type Clone struct {
	ID          string
	Body        string
	Model       string
	Reference   airtable.StringList
	Answer      string
	Explanation string
	Skills      []string
}

// NewClone is the payload for inserting a generated clone.
type NewClone struct {
	Original    Question
	Body        string
	Answer      string
	Model       string
	Explanation string
}

// CloneView is the response shape for one clone.
type CloneView struct {
	Clone            string `json:"clone"`
	Model            string `json:"model"`
	OriginalQuestion string `json:"originalQuestion"`
}

// Details is the response shape of a question lookup.
type Details struct {
	ID       string                `json:"id"`
	Photo    []airtable.Attachment `json:"photo"`
	Latex    string                `json:"latex"`
	Diagrams []airtable.Attachment `json:"diagrams"`
}

// Skill is one entry of the skills index.
type Skill struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// WorksheetItem is an original question or clone placed on a worksheet.
type WorksheetItem struct {
	ID               string                `json:"id"`
	Photo            []airtable.Attachment `json:"photo,omitempty"`
	LatexMarkdown    string                `json:"latexMarkdown"`
	TestNumber       string                `json:"testNumber"`
	QuestionNumber   string                `json:"questionNumber"`
	Answer           string                `json:"answer,omitempty"`
	IsClone          bool                  `json:"isClone"`
	OriginalQuestion string                `json:"originalQuestion,omitempty"`
}

// Worksheet groups the original questions tagged with one skill.
type Worksheet struct {
	SkillName        string          `json:"skillName"`
	Questions        []WorksheetItem `json:"questions"`
	HasMoreQuestions bool            `json:"hasMoreQuestions"`
}
