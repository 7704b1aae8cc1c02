package question

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/copycats/copycat-api/internal/airtable"
)

var a11q3 = Key{TestNumber: "A11", QuestionNumber: "3"}

func newTestService(store Store, opts ServiceOptions) *Service {
	return NewService(store, opts, zerolog.Nop())
}

func TestCloneQuestionsMissingKeyMakesNoBackendCall(t *testing.T) {
	store := new(mockStore)
	svc := newTestService(store, ServiceOptions{})

	for _, key := range []Key{{}, {TestNumber: "A11"}, {QuestionNumber: "3"}} {
		_, err := svc.CloneQuestions(context.Background(), key)
		assert.ErrorIs(t, err, ErrMissingKey)
	}
	store.AssertNotCalled(t, "FindQuestion", mock.Anything, mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "FindClones", mock.Anything, mock.Anything, mock.Anything)
}

func TestCloneQuestionsUnknownOriginalSkipsCloneQuery(t *testing.T) {
	store := new(mockStore)
	store.On("FindQuestion", mock.Anything, a11q3, LookupFields).Return(Question{}, ErrQuestionNotFound)
	svc := newTestService(store, ServiceOptions{})

	_, err := svc.CloneQuestions(context.Background(), a11q3)
	assert.ErrorIs(t, err, ErrQuestionNotFound)
	store.AssertNumberOfCalls(t, "FindQuestion", 1)
	store.AssertNotCalled(t, "FindClones", mock.Anything, mock.Anything, mock.Anything)
}

func TestCloneQuestionsDropsBlankClones(t *testing.T) {
	store := new(mockStore)
	store.On("FindQuestion", mock.Anything, a11q3, LookupFields).
		Return(Question{ID: "rec123", Key: a11q3}, nil)
	store.On("FindClones", mock.Anything, EqualityMatcher{}.Predicate(Question{Key: a11q3}), 0).
		Return([]Clone{
			{ID: "recC1", Body: "What is 2+2?", Model: "GPT-4o", Reference: airtable.Text("A11 - 3")},
			{ID: "recC2", Body: "", Reference: airtable.Text("B02 - 1")},
		}, nil)
	svc := newTestService(store, ServiceOptions{})

	views, err := svc.CloneQuestions(context.Background(), a11q3)
	require.NoError(t, err)
	assert.Equal(t, []CloneView{{Clone: "What is 2+2?", Model: "GPT-4o", OriginalQuestion: "A11 - 3"}}, views)
	store.AssertNumberOfCalls(t, "FindQuestion", 1)
	store.AssertNumberOfCalls(t, "FindClones", 1)
}

func TestCloneQuestionsIsRepeatable(t *testing.T) {
	store := new(mockStore)
	store.On("FindQuestion", mock.Anything, a11q3, LookupFields).
		Return(Question{ID: "rec123", Key: a11q3}, nil)
	store.On("FindClones", mock.Anything, mock.Anything, 0).
		Return([]Clone{
			{Body: "first", Reference: airtable.Text("A11 - 3")},
			{Body: "second", Model: "deepseek", Reference: airtable.Text("A11-3")},
		}, nil)
	svc := newTestService(store, ServiceOptions{})

	first, err := svc.CloneQuestions(context.Background(), a11q3)
	require.NoError(t, err)
	second, err := svc.CloneQuestions(context.Background(), a11q3)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, DefaultModelLabel, first[0].Model)
	assert.Equal(t, "deepseek", first[1].Model)
}

func TestCloneQuestionsEmptyResultIsNotNil(t *testing.T) {
	store := new(mockStore)
	store.On("FindQuestion", mock.Anything, a11q3, LookupFields).Return(Question{ID: "rec123", Key: a11q3}, nil)
	store.On("FindClones", mock.Anything, mock.Anything, 0).Return([]Clone{}, nil)
	svc := newTestService(store, ServiceOptions{})

	views, err := svc.CloneQuestions(context.Background(), a11q3)
	require.NoError(t, err)
	assert.NotNil(t, views)
	assert.Empty(t, views)
}

func TestCloneQuestionsBackendFailure(t *testing.T) {
	store := new(mockStore)
	boom := errors.New("backend unavailable")
	store.On("FindQuestion", mock.Anything, a11q3, LookupFields).Return(Question{ID: "rec123", Key: a11q3}, nil)
	store.On("FindClones", mock.Anything, mock.Anything, 0).Return([]Clone(nil), boom)
	svc := newTestService(store, ServiceOptions{})

	_, err := svc.CloneQuestions(context.Background(), a11q3)
	assert.ErrorIs(t, err, boom)
}

func TestCloneQuestionsContainmentUsesRecordID(t *testing.T) {
	store := new(mockStore)
	store.On("FindQuestion", mock.Anything, a11q3, LookupFields).Return(Question{ID: "rec123", Key: a11q3}, nil)
	store.On("FindClones", mock.Anything, airtable.Formula("FIND('rec123', ARRAYJOIN({Original Question})) > 0"), 0).
		Return([]Clone{{Body: "x", Reference: airtable.List("rec123")}}, nil)
	svc := newTestService(store, ServiceOptions{Matcher: ContainmentMatcher{}})

	views, err := svc.CloneQuestions(context.Background(), a11q3)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "rec123", views[0].OriginalQuestion)
}

func TestCloneQuestionsServedFromCache(t *testing.T) {
	store := new(mockStore)
	store.On("FindQuestion", mock.Anything, a11q3, LookupFields).Return(Question{ID: "rec123", Key: a11q3}, nil)
	store.On("FindClones", mock.Anything, mock.Anything, 0).
		Return([]Clone{{Body: "x", Model: "GPT-4o", Reference: airtable.Text("A11 - 3")}}, nil)
	cache := newMemoryCache()
	svc := newTestService(store, ServiceOptions{Cache: cache})

	first, err := svc.CloneQuestions(context.Background(), a11q3)
	require.NoError(t, err)
	second, err := svc.CloneQuestions(context.Background(), a11q3)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	store.AssertNumberOfCalls(t, "FindQuestion", 2)
	store.AssertNumberOfCalls(t, "FindClones", 1)
}

func TestCloneQuestionsDeletedOriginalIsNotServedFromCache(t *testing.T) {
	store := new(mockStore)
	store.On("FindQuestion", mock.Anything, a11q3, LookupFields).Return(Question{ID: "rec123", Key: a11q3}, nil).Once()
	store.On("FindQuestion", mock.Anything, a11q3, LookupFields).Return(Question{}, ErrQuestionNotFound).Once()
	store.On("FindClones", mock.Anything, mock.Anything, 0).
		Return([]Clone{{Body: "x", Reference: airtable.Text("A11 - 3")}}, nil)
	svc := newTestService(store, ServiceOptions{Cache: newMemoryCache()})

	views, err := svc.CloneQuestions(context.Background(), a11q3)
	require.NoError(t, err)
	require.Len(t, views, 1)

	views, err = svc.CloneQuestions(context.Background(), a11q3)
	assert.ErrorIs(t, err, ErrQuestionNotFound)
	assert.Nil(t, views)
	store.AssertNumberOfCalls(t, "FindQuestion", 2)
	store.AssertNumberOfCalls(t, "FindClones", 1)
}

func TestRecordCloneInvalidatesListCachedUnderDifferentSpelling(t *testing.T) {
	requested := Key{TestNumber: "A11", QuestionNumber: "03"}
	original := Question{ID: "rec123", Key: a11q3}

	store := new(mockStore)
	store.On("FindQuestion", mock.Anything, requested, LookupFields).Return(original, nil)
	store.On("FindClones", mock.Anything, mock.Anything, 0).Return([]Clone{}, nil).Once()
	store.On("FindClones", mock.Anything, mock.Anything, 0).
		Return([]Clone{{ID: "recNew", Body: "What is 3+3?", Reference: airtable.Text("A11 - 3")}}, nil).Once()
	store.On("CreateClone", mock.Anything, mock.Anything).Return("recNew", nil)
	svc := newTestService(store, ServiceOptions{Cache: newMemoryCache()})

	before, err := svc.CloneQuestions(context.Background(), requested)
	require.NoError(t, err)
	assert.Empty(t, before)

	_, err = svc.RecordClone(context.Background(), NewClone{Original: original, Body: "What is 3+3?", Answer: "B"})
	require.NoError(t, err)

	after, err := svc.CloneQuestions(context.Background(), requested)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, "What is 3+3?", after[0].Clone)
	store.AssertNumberOfCalls(t, "FindClones", 2)
}

func TestClonesKeyUnderContainmentUsesRecordID(t *testing.T) {
	a := clonesKey(ContainmentMatcher{}, Question{ID: "rec123", Key: a11q3})
	b := clonesKey(ContainmentMatcher{}, Question{ID: "rec123", Key: Key{TestNumber: "A11", QuestionNumber: "03"}})
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, clonesKey(EqualityMatcher{}, Question{ID: "rec123", Key: a11q3}))
}

func TestCloneQuestionsNotFoundIsNotCached(t *testing.T) {
	store := new(mockStore)
	store.On("FindQuestion", mock.Anything, a11q3, LookupFields).Return(Question{}, ErrQuestionNotFound)
	cache := newMemoryCache()
	svc := newTestService(store, ServiceOptions{Cache: cache})

	_, _ = svc.CloneQuestions(context.Background(), a11q3)
	_, _ = svc.CloneQuestions(context.Background(), a11q3)

	store.AssertNumberOfCalls(t, "FindQuestion", 2)
	assert.Empty(t, cache.store)
}

func TestRecordCloneWritesCanonicalReferenceAndInvalidates(t *testing.T) {
	store := new(mockStore)
	store.On("CreateClone", mock.Anything, CloneFields{
		Original: airtable.Text("A11 - 3"),
		Body:     "What is 3+3?",
		Answer:   "B",
		Model:    "gpt-4o",
	}).Return("recNew", nil)
	cache := newMemoryCache()
	require.NoError(t, cache.Set(context.Background(), clonesKey(EqualityMatcher{}, Question{ID: "rec123", Key: a11q3}), []CloneView{}))
	svc := newTestService(store, ServiceOptions{Cache: cache})

	id, err := svc.RecordClone(context.Background(), NewClone{
		Original: Question{ID: "rec123", Key: a11q3},
		Body:     "What is 3+3?",
		Answer:   "B",
		Model:    "gpt-4o",
	})
	require.NoError(t, err)
	assert.Equal(t, "recNew", id)
	assert.Empty(t, cache.store)
}

func TestRecordCloneContainmentNeedsRecordID(t *testing.T) {
	store := new(mockStore)
	svc := newTestService(store, ServiceOptions{Matcher: ContainmentMatcher{}})

	_, err := svc.RecordClone(context.Background(), NewClone{Original: Question{Key: a11q3}, Body: "x"})
	assert.Error(t, err)
	store.AssertNotCalled(t, "CreateClone", mock.Anything, mock.Anything)
}

func TestTestNumbersSortedAndCached(t *testing.T) {
	store := new(mockStore)
	store.On("ListTestNumbers", mock.Anything).Return([]string{"16MC2", "2MC", "", "2MC", "A11"}, nil).Once()
	svc := newTestService(store, ServiceOptions{Cache: newMemoryCache()})

	got, err := svc.TestNumbers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"2MC", "A11", "16MC2"}, got)

	again, err := svc.TestNumbers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, got, again)
	store.AssertExpectations(t)
}

func TestQuestionDetailsFormatsChoices(t *testing.T) {
	store := new(mockStore)
	store.On("FindQuestion", mock.Anything, a11q3, DetailFields).
		Return(Question{ID: "rec123", CleanLatex: "What is 2+2?A.3B.4"}, nil)
	svc := newTestService(store, ServiceOptions{})

	d, err := svc.QuestionDetails(context.Background(), a11q3)
	require.NoError(t, err)
	assert.Equal(t, "rec123", d.ID)
	assert.Equal(t, "What is 2+2?\n\nA. 3\n\nB. 4", d.Latex)
}

func TestExplanationMissing(t *testing.T) {
	store := new(mockStore)
	store.On("FindQuestion", mock.Anything, a11q3, ExplanationFields).Return(Question{ID: "rec123"}, nil)
	svc := newTestService(store, ServiceOptions{})

	_, err := svc.Explanation(context.Background(), a11q3)
	assert.ErrorIs(t, err, ErrNoExplanation)
}

func TestSkillsEmpty(t *testing.T) {
	store := new(mockStore)
	store.On("ListSkillNames", mock.Anything, skillScanLimit).Return([]string{}, nil)
	svc := newTestService(store, ServiceOptions{})

	_, err := svc.Skills(context.Background())
	assert.ErrorIs(t, err, ErrNoSkills)
}

func TestSkillsSortedByName(t *testing.T) {
	store := new(mockStore)
	store.On("ListSkillNames", mock.Anything, skillScanLimit).
		Return([]string{"Ratios", "Linear Equations", "Ratios"}, nil)
	svc := newTestService(store, ServiceOptions{})

	skills, err := svc.Skills(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Skill{
		{ID: "linear-equations", Name: "Linear Equations"},
		{ID: "ratios", Name: "Ratios"},
	}, skills)
}

func TestWorksheetQuestions(t *testing.T) {
	store := new(mockStore)
	store.On("QuestionsBySkill", mock.Anything, "Linear Equations", worksheetLimit).
		Return([]Question{{ID: "rec1", Key: a11q3, Latex: "x+1=2", Answer: "A"}}, nil)
	svc := newTestService(store, ServiceOptions{})

	sheet, err := svc.WorksheetQuestions(context.Background(), "linear-equations")
	require.NoError(t, err)
	assert.Equal(t, "Linear Equations", sheet.SkillName)
	assert.True(t, sheet.HasMoreQuestions)
	require.Len(t, sheet.Questions, 1)
	assert.False(t, sheet.Questions[0].IsClone)
	assert.Equal(t, "A11", sheet.Questions[0].TestNumber)

	_, err = svc.WorksheetQuestions(context.Background(), "")
	assert.ErrorIs(t, err, ErrMissingSkill)
}

func TestWorksheetClonesEquality(t *testing.T) {
	store := new(mockStore)
	store.On("FindClones", mock.Anything, mock.Anything, worksheetCloneRows).
		Return([]Clone{
			{ID: "recC1", Body: "clone body", Reference: airtable.Text("A11 - 3")},
			{ID: "recC2", Body: " ", Reference: airtable.Text("A11 - 3")},
		}, nil)
	svc := newTestService(store, ServiceOptions{})

	items, err := svc.WorksheetClones(context.Background(), []Key{a11q3, {TestNumber: "B02", QuestionNumber: "1"}})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Clone of A11", items[0].TestNumber)
	assert.Equal(t, "3", items[0].QuestionNumber)
	assert.True(t, items[0].IsClone)
	store.AssertNotCalled(t, "FindQuestions", mock.Anything, mock.Anything)
}

func TestWorksheetClonesContainmentResolvesIDs(t *testing.T) {
	store := new(mockStore)
	store.On("FindQuestions", mock.Anything, []Key{a11q3}).Return([]Question{{ID: "rec123", Key: a11q3}}, nil)
	store.On("FindClones", mock.Anything, mock.Anything, worksheetCloneRows).
		Return([]Clone{{ID: "recC1", Body: "clone body", Reference: airtable.List("rec123")}}, nil)
	svc := newTestService(store, ServiceOptions{Matcher: ContainmentMatcher{}})

	items, err := svc.WorksheetClones(context.Background(), []Key{a11q3})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Clone of A11", items[0].TestNumber)
	assert.Equal(t, "3", items[0].QuestionNumber)
}

func TestRefreshIndexesJoinsErrors(t *testing.T) {
	store := new(mockStore)
	store.On("ListTestNumbers", mock.Anything).Return([]string(nil), errors.New("down"))
	store.On("ListSkillNames", mock.Anything, skillScanLimit).Return([]string{}, nil)
	svc := newTestService(store, ServiceOptions{})

	err := svc.RefreshIndexes(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "test numbers")
	assert.NotContains(t, err.Error(), "skills")
}
