package question

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/copycats/copycat-api/internal/airtable"
)

const (
	skillScanLimit     = 100
	worksheetLimit     = 5
	worksheetCloneRows = 10
)

// Service answers the viewer read paths against the backend tables.
type Service struct {
	store   Store
	matcher Matcher
	cache   Cache
	logger  zerolog.Logger
}

type ServiceOptions struct {
	Matcher Matcher
	Cache   Cache
}

func NewService(store Store, opts ServiceOptions, logger zerolog.Logger) *Service {
	matcher := opts.Matcher
	if matcher == nil {
		matcher = EqualityMatcher{}
	}
	cache := opts.Cache
	if cache == nil {
		cache = noopCache{}
	}
	return &Service{
		store:   store,
		matcher: matcher,
		cache:   cache,
		logger:  logger.With().Str("component", "question_service").Logger(),
	}
}

// Matcher returns the clone matcher this service was built with.
func (s *Service) Matcher() Matcher {
	return s.matcher
}

// CloneQuestions resolves the clones of the question at key: one lookup of
// the original, then one clone read with the configured matcher. The lookup
// always reaches the backend; only the clone read is cached, under the
// resolved original. The clone read is skipped when the original does not exist.
func (s *Service) CloneQuestions(ctx context.Context, key Key) ([]CloneView, error) {
	if !key.Valid() {
		return nil, ErrMissingKey
	}

	original, err := s.store.FindQuestion(ctx, key, LookupFields)
	if err != nil {
		return nil, err
	}

	cacheK := clonesKey(s.matcher, original)
	var cached []CloneView
	if s.cacheGet(ctx, cacheK, &cached) {
		return cached, nil
	}

	clones, err := s.store.FindClones(ctx, s.matcher.Predicate(original), 0)
	if err != nil {
		return nil, err
	}

	views := ShapeClones(clones)
	s.logger.Debug().
		Str("test_number", key.TestNumber).
		Str("question_number", key.QuestionNumber).
		Int("rows", len(clones)).
		Int("clones", len(views)).
		Msg("clones resolved")

	s.cacheSet(ctx, cacheK, views)
	return views, nil
}

// TestNumbers lists every test number, de-duplicated and sorted.
func (s *Service) TestNumbers(ctx context.Context) ([]string, error) {
	var cached []string
	if s.cacheGet(ctx, testNumbersKey(), &cached) {
		return cached, nil
	}
	return s.refreshTestNumbers(ctx)
}

func (s *Service) refreshTestNumbers(ctx context.Context) ([]string, error) {
	raw, err := s.store.ListTestNumbers(ctx)
	if err != nil {
		return nil, err
	}
	sorted := sortTestNumbers(raw)
	s.cacheSet(ctx, testNumbersKey(), sorted)
	return sorted, nil
}

// QuestionNumbers lists the question numbers of one test.
func (s *Service) QuestionNumbers(ctx context.Context, testNumber string) ([]string, error) {
	if testNumber == "" {
		return nil, ErrMissingKey
	}
	var cached []string
	if s.cacheGet(ctx, questionNumbersKey(testNumber), &cached) {
		return cached, nil
	}
	raw, err := s.store.ListQuestionNumbers(ctx, testNumber)
	if err != nil {
		return nil, err
	}
	sorted := sortQuestionNumbers(raw)
	s.cacheSet(ctx, questionNumbersKey(testNumber), sorted)
	return sorted, nil
}

// QuestionDetails returns the display fields of one question, with answer
// choices split onto separate lines.
func (s *Service) QuestionDetails(ctx context.Context, key Key) (Details, error) {
	if !key.Valid() {
		return Details{}, ErrMissingKey
	}
	q, err := s.store.FindQuestion(ctx, key, DetailFields)
	if err != nil {
		return Details{}, err
	}
	return Details{
		ID:       q.ID,
		Photo:    q.Photo,
		Latex:    FormatChoices(q.CleanLatex),
		Diagrams: q.Diagrams,
	}, nil
}

// CorrectAnswer returns the stored answer letter of one question.
func (s *Service) CorrectAnswer(ctx context.Context, key Key) (string, error) {
	if !key.Valid() {
		return "", ErrMissingKey
	}
	q, err := s.store.FindQuestion(ctx, key, AnswerFields)
	if err != nil {
		return "", err
	}
	return q.Answer, nil
}

// Explanation returns the stored explanation of one question after escape repair.
func (s *Service) Explanation(ctx context.Context, key Key) (string, error) {
	if !key.Valid() {
		return "", ErrMissingKey
	}
	q, err := s.store.FindQuestion(ctx, key, ExplanationFields)
	if err != nil {
		return "", err
	}
	if q.Explanation == "" {
		return "", ErrNoExplanation
	}
	return RepairExplanation(q.Explanation), nil
}

// QuestionBody returns the raw markup body of one question.
func (s *Service) QuestionBody(ctx context.Context, key Key) (Question, error) {
	if !key.Valid() {
		return Question{}, ErrMissingKey
	}
	return s.store.FindQuestion(ctx, key, append([]string{FieldTestNumber, FieldQuestionNumber}, BodyFields...))
}

// Skills lists the distinct skills found on the first rows of the Questions table.
func (s *Service) Skills(ctx context.Context) ([]Skill, error) {
	var cached []Skill
	if s.cacheGet(ctx, skillsKey(), &cached) && len(cached) > 0 {
		return cached, nil
	}
	return s.refreshSkills(ctx)
}

func (s *Service) refreshSkills(ctx context.Context) ([]Skill, error) {
	names, err := s.store.ListSkillNames(ctx, skillScanLimit)
	if err != nil {
		return nil, err
	}
	skills := buildSkills(names)
	if len(skills) == 0 {
		return nil, ErrNoSkills
	}
	s.cacheSet(ctx, skillsKey(), skills)
	return skills, nil
}

// WorksheetQuestions returns the first original questions tagged with a skill.
func (s *Service) WorksheetQuestions(ctx context.Context, skillID string) (Worksheet, error) {
	if skillID == "" {
		return Worksheet{}, ErrMissingSkill
	}
	name := SkillName(skillID)
	qs, err := s.store.QuestionsBySkill(ctx, name, worksheetLimit)
	if err != nil {
		return Worksheet{}, err
	}
	items := make([]WorksheetItem, 0, len(qs))
	for _, q := range qs {
		items = append(items, WorksheetItem{
			ID:             q.ID,
			Photo:          q.Photo,
			LatexMarkdown:  q.Latex,
			TestNumber:     q.TestNumber,
			QuestionNumber: q.QuestionNumber,
			Answer:         q.Answer,
		})
	}
	return Worksheet{SkillName: name, Questions: items, HasMoreQuestions: true}, nil
}

// WorksheetClones returns clones of several originals with a single clone read.
func (s *Service) WorksheetClones(ctx context.Context, keys []Key) ([]WorksheetItem, error) {
	if len(keys) == 0 {
		return nil, ErrMissingKey
	}

	originals := make([]Question, 0, len(keys))
	byID := map[string]Key{}
	if s.matcher.NeedsRecordID() {
		found, err := s.store.FindQuestions(ctx, keys)
		if err != nil {
			return nil, err
		}
		for _, q := range found {
			byID[q.ID] = q.Key
		}
		originals = found
	} else {
		for _, k := range keys {
			originals = append(originals, Question{Key: k})
		}
	}
	if len(originals) == 0 {
		return []WorksheetItem{}, nil
	}

	clauses := make([]airtable.Formula, 0, len(originals))
	for _, q := range originals {
		clauses = append(clauses, s.matcher.Predicate(q))
	}
	clones, err := s.store.FindClones(ctx, airtable.Or(clauses...), worksheetCloneRows)
	if err != nil {
		return nil, err
	}
	return worksheetClones(clones, byID), nil
}

// RecordClone writes a generated clone referencing its original in the
// matcher's format and drops the cached clone list of that original.
func (s *Service) RecordClone(ctx context.Context, c NewClone) (string, error) {
	if s.matcher.NeedsRecordID() && c.Original.ID == "" {
		return "", fmt.Errorf("record clone: original %s has no record id", CanonicalReference(c.Original.Key))
	}
	id, err := s.store.CreateClone(ctx, CloneFields{
		Original:    s.matcher.Reference(c.Original),
		Body:        c.Body,
		Answer:      c.Answer,
		Model:       c.Model,
		Explanation: c.Explanation,
	})
	if err != nil {
		return "", err
	}
	if err := s.cache.Delete(ctx, clonesKey(s.matcher, c.Original)); err != nil {
		s.logger.Warn().Err(err).Msg("clone cache invalidation failed")
	}
	return id, nil
}

// RefreshIndexes reloads the cached test-number and skill indexes.
func (s *Service) RefreshIndexes(ctx context.Context) error {
	var errs []error
	if _, err := s.refreshTestNumbers(ctx); err != nil {
		errs = append(errs, fmt.Errorf("test numbers: %w", err))
	}
	if _, err := s.refreshSkills(ctx); err != nil && !errors.Is(err, ErrNoSkills) {
		errs = append(errs, fmt.Errorf("skills: %w", err))
	}
	return errors.Join(errs...)
}

func (s *Service) cacheGet(ctx context.Context, key string, dst any) bool {
	ok, err := s.cache.Get(ctx, key, dst)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
		return false
	}
	return ok
}

func (s *Service) cacheSet(ctx context.Context, key string, v any) {
	if err := s.cache.Set(ctx, key, v); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}
