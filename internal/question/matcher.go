package question

import (
	"fmt"
	"slices"

	"github.com/copycats/copycat-api/internal/airtable"
	"github.com/copycats/copycat-api/internal/config"
)

// Matcher decides which clone rows belong to a question. A deployment runs
// exactly one matcher; rows written under the other convention are migrated
// offline rather than matched by a fallback query.
type Matcher interface {
	Strategy() string
	// NeedsRecordID reports whether Predicate reads Question.ID.
	NeedsRecordID() bool
	Predicate(q Question) airtable.Formula
	// Reference is the value written into the reference field of a new clone.
	Reference(q Question) airtable.StringList
}

// NewMatcher returns the matcher for a configured strategy name.
func NewMatcher(strategy string) (Matcher, error) {
	switch strategy {
	case config.MatchEquality, "":
		return EqualityMatcher{}, nil
	case config.MatchContainment:
		return ContainmentMatcher{}, nil
	}
	return nil, fmt.Errorf("unknown clone match strategy %q", strategy)
}

// EqualityMatcher matches the reference field against every textual form of
// the question key.
type EqualityMatcher struct{}

func (EqualityMatcher) Strategy() string    { return config.MatchEquality }
func (EqualityMatcher) NeedsRecordID() bool { return false }

func (EqualityMatcher) Predicate(q Question) airtable.Formula {
	return anyReference(ReferenceForms(q.TestNumber, q.QuestionNumber))
}

// anyReference ORs one equality clause per distinct form. Forms are sorted
// first so the formula text is identical whatever order they arrive in.
func anyReference(forms []string) airtable.Formula {
	forms = slices.Clone(forms)
	slices.Sort(forms)
	forms = slices.Compact(forms)
	clauses := make([]airtable.Formula, 0, len(forms))
	for _, f := range forms {
		clauses = append(clauses, airtable.Eq(FieldOriginalQuestion, f))
	}
	return airtable.Or(clauses...)
}

func (EqualityMatcher) Reference(q Question) airtable.StringList {
	return airtable.Text(CanonicalReference(q.Key))
}

// ContainmentMatcher matches rows whose joined reference list contains the
// question's record id. Record ids share a fixed-length "rec" prefix format,
// so one id is never a substring of another.
type ContainmentMatcher struct{}

func (ContainmentMatcher) Strategy() string    { return config.MatchContainment }
func (ContainmentMatcher) NeedsRecordID() bool { return true }

func (ContainmentMatcher) Predicate(q Question) airtable.Formula {
	return airtable.Contains(airtable.ArrayJoin(FieldOriginalQuestion), q.ID)
}

func (ContainmentMatcher) Reference(q Question) airtable.StringList {
	return airtable.List(q.ID)
}
