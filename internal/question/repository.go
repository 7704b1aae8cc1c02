package question

import (
	"context"
	"fmt"

	"github.com/copycats/copycat-api/internal/airtable"
)

// Store is the read/write surface the service needs from the backend.
type Store interface {
	FindQuestion(ctx context.Context, key Key, fields []string) (Question, error)
	FindQuestions(ctx context.Context, keys []Key) ([]Question, error)
	ListTestNumbers(ctx context.Context) ([]string, error)
	ListQuestionNumbers(ctx context.Context, testNumber string) ([]string, error)
	ListSkillNames(ctx context.Context, limit int) ([]string, error)
	QuestionsBySkill(ctx context.Context, skillName string, limit int) ([]Question, error)
	FindClones(ctx context.Context, predicate airtable.Formula, limit int) ([]Clone, error)
	CreateClone(ctx context.Context, fields CloneFields) (string, error)
}

// Projections of the Questions table used by the read paths.
var (
	LookupFields      = []string{FieldTestNumber, FieldQuestionNumber}
	DetailFields      = []string{FieldPhoto, FieldCleanLatex, FieldDiagrams}
	AnswerFields      = []string{FieldTestNumber, FieldQuestionNumber, FieldAnswer}
	ExplanationFields = []string{FieldTestNumber, FieldQuestionNumber, FieldExplanation4o}
	BodyFields        = []string{FieldLatex}
	worksheetFields   = []string{FieldPhoto, FieldLatex, FieldTestNumber, FieldQuestionNumber, FieldAnswer}
	cloneViewFields   = []string{FieldCloneBody, FieldCloneModel, FieldOriginalQuestion}
)

// QuestionRow mirrors the Questions table. Its json tags are the table schema.
type QuestionRow struct {
	TestNumber     airtable.FlexString   `json:"Test Number"`
	QuestionNumber airtable.FlexString   `json:"Question Number"`
	Latex          string                `json:"LatexMarkdown"`
	CleanLatex     string                `json:"LatexMarkdown clean"`
	Answer         airtable.FlexString   `json:"Answer"`
	Explanation    string                `json:"Explanation 4o"`
	Photo          []airtable.Attachment `json:"Photo"`
	Diagrams       []airtable.Attachment `json:"Diagrams"`
	Skills         airtable.StringList   `json:"Skill"`
}

func (r QuestionRow) toDomain(id string) Question {
	return Question{
		ID:          id,
		Key:         Key{TestNumber: r.TestNumber.String(), QuestionNumber: r.QuestionNumber.String()},
		Latex:       r.Latex,
		CleanLatex:  r.CleanLatex,
		Answer:      r.Answer.String(),
		Explanation: r.Explanation,
		Photo:       r.Photo,
		Diagrams:    r.Diagrams,
		Skills:      r.Skills.Values,
	}
}

// CloneRow mirrors the Clones table.
type CloneRow struct {
	Body        string              `json:"Corrected Clone Question LM"`
	Model       string              `json:"AI Model"`
	Original    airtable.StringList `json:"Original Question"`
	Answer      airtable.FlexString `json:"Answer"`
	Explanation string              `json:"Explanation"`
	Skills      airtable.StringList `json:"Skill"`
}

func (r CloneRow) toDomain(id string) Clone {
	return Clone{
		ID:          id,
		Body:        r.Body,
		Model:       r.Model,
		Reference:   r.Original,
		Answer:      r.Answer.String(),
		Explanation: r.Explanation,
		Skills:      r.Skills.Values,
	}
}

// CloneFields is the write payload for a new clone row.
type CloneFields struct {
	Original    airtable.StringList `json:"Original Question"`
	Body        string              `json:"Corrected Clone Question LM"`
	Answer      string              `json:"Answer"`
	Model       string              `json:"AI Model"`
	Explanation string              `json:"Explanation"`
}

// Repository reads and writes the Questions and Clones tables.
type Repository struct {
	client         *airtable.Client
	questionsTable string
	clonesTable    string
}

var _ Store = (*Repository)(nil)

func NewRepository(client *airtable.Client, questionsTable, clonesTable string) *Repository {
	return &Repository{client: client, questionsTable: questionsTable, clonesTable: clonesTable}
}

func keyFormula(k Key) airtable.Formula {
	return airtable.And(
		airtable.Eq(FieldTestNumber, k.TestNumber),
		airtable.EqValue(FieldQuestionNumber, k.QuestionNumber),
	)
}

// FindQuestion returns the first row matching key. Duplicated keys are not
// detected; whichever row the backend returns first wins.
func (r *Repository) FindQuestion(ctx context.Context, key Key, fields []string) (Question, error) {
	recs, err := r.client.FirstPage(ctx, r.questionsTable, airtable.Query{
		Formula:    keyFormula(key),
		Fields:     fields,
		MaxRecords: 1,
	})
	if err != nil {
		return Question{}, err
	}
	if len(recs) == 0 {
		return Question{}, ErrQuestionNotFound
	}
	return decodeQuestion(recs[0])
}

// FindQuestions resolves several keys with a single read.
func (r *Repository) FindQuestions(ctx context.Context, keys []Key) ([]Question, error) {
	clauses := make([]airtable.Formula, 0, len(keys))
	for _, k := range keys {
		clauses = append(clauses, keyFormula(k))
	}
	recs, err := r.client.Select(ctx, r.questionsTable, airtable.Query{
		Formula: airtable.Or(clauses...),
		Fields:  LookupFields,
	})
	if err != nil {
		return nil, err
	}
	return decodeQuestions(recs)
}

func (r *Repository) ListTestNumbers(ctx context.Context) ([]string, error) {
	recs, err := r.client.Select(ctx, r.questionsTable, airtable.Query{Fields: []string{FieldTestNumber}})
	if err != nil {
		return nil, err
	}
	qs, err := decodeQuestions(recs)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(qs))
	for _, q := range qs {
		out = append(out, q.TestNumber)
	}
	return out, nil
}

func (r *Repository) ListQuestionNumbers(ctx context.Context, testNumber string) ([]string, error) {
	recs, err := r.client.Select(ctx, r.questionsTable, airtable.Query{
		Formula: airtable.Eq(FieldTestNumber, testNumber),
		Fields:  []string{FieldQuestionNumber},
	})
	if err != nil {
		return nil, err
	}
	qs, err := decodeQuestions(recs)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(qs))
	for _, q := range qs {
		out = append(out, q.QuestionNumber)
	}
	return out, nil
}

func (r *Repository) ListSkillNames(ctx context.Context, limit int) ([]string, error) {
	recs, err := r.client.FirstPage(ctx, r.questionsTable, airtable.Query{
		Fields:     []string{FieldSkill},
		MaxRecords: limit,
	})
	if err != nil {
		return nil, err
	}
	qs, err := decodeQuestions(recs)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, q := range qs {
		names = append(names, q.Skills...)
	}
	return names, nil
}

func (r *Repository) QuestionsBySkill(ctx context.Context, skillName string, limit int) ([]Question, error) {
	recs, err := r.client.FirstPage(ctx, r.questionsTable, airtable.Query{
		Formula:    airtable.Contains(airtable.ArrayJoin(FieldSkill), skillName),
		Fields:     worksheetFields,
		MaxRecords: limit,
	})
	if err != nil {
		return nil, err
	}
	return decodeQuestions(recs)
}

// FindClones reads clone rows matching predicate; limit <= 0 reads all pages.
func (r *Repository) FindClones(ctx context.Context, predicate airtable.Formula, limit int) ([]Clone, error) {
	recs, err := r.client.Select(ctx, r.clonesTable, airtable.Query{
		Formula:    predicate,
		Fields:     cloneViewFields,
		MaxRecords: limit,
	})
	if err != nil {
		return nil, err
	}
	clones := make([]Clone, 0, len(recs))
	for _, rec := range recs {
		var row CloneRow
		if err := rec.Decode(&row); err != nil {
			return nil, err
		}
		clones = append(clones, row.toDomain(rec.ID))
	}
	return clones, nil
}

func (r *Repository) CreateClone(ctx context.Context, fields CloneFields) (string, error) {
	recs, err := r.client.Create(ctx, r.clonesTable, fields)
	if err != nil {
		return "", err
	}
	if len(recs) == 0 {
		return "", fmt.Errorf("create clone: backend returned no record")
	}
	return recs[0].ID, nil
}

func decodeQuestion(rec airtable.Record) (Question, error) {
	var row QuestionRow
	if err := rec.Decode(&row); err != nil {
		return Question{}, err
	}
	return row.toDomain(rec.ID), nil
}

func decodeQuestions(recs []airtable.Record) ([]Question, error) {
	qs := make([]Question, 0, len(recs))
	for _, rec := range recs {
		q, err := decodeQuestion(rec)
		if err != nil {
			return nil, err
		}
		qs = append(qs, q)
	}
	return qs, nil
}
