package maintenance

import (
	"context"
	"strings"

	"github.com/copycats/copycat-api/internal/airtable"
	"github.com/copycats/copycat-api/internal/question"
)

type formStatus int

const (
	formUnknown formStatus = iota
	formUnique
	formAmbiguous
)

// originals indexes the Questions table by record ID and by every textual
// reference form a clone may carry.
type originals struct {
	byID   map[string][]string
	byKey  map[question.Key][]string
	byForm map[string][]question.Key
}

func (r *Runner) loadQuestions(ctx context.Context) (*originals, error) {
	recs, err := r.client.Select(ctx, r.opts.QuestionsTable, airtable.Query{
		Fields: airtable.FieldNames(questionKeyRow{}),
	})
	if err != nil {
		return nil, err
	}
	idx := &originals{
		byID:   make(map[string][]string, len(recs)),
		byKey:  make(map[question.Key][]string, len(recs)),
		byForm: make(map[string][]question.Key, len(recs)*3),
	}
	for _, rec := range recs {
		var row questionKeyRow
		if err := rec.Decode(&row); err != nil {
			r.logger.Warn().Err(err).Str("record_id", rec.ID).Msg("skipping undecodable question")
			continue
		}
		key := question.Key{
			TestNumber:     strings.TrimSpace(row.TestNumber.String()),
			QuestionNumber: strings.TrimSpace(row.QuestionNumber.String()),
		}
		idx.byID[rec.ID] = row.Skills.Values
		if !key.Valid() {
			continue
		}
		if len(idx.byKey[key]) == 0 {
			idx.byKey[key] = row.Skills.Values
		}
		for _, form := range question.ReferenceForms(key.TestNumber, key.QuestionNumber) {
			if !containsKey(idx.byForm[form], key) {
				idx.byForm[form] = append(idx.byForm[form], key)
			}
		}
	}
	return idx, nil
}

// resolveForm maps a textual reference to the question it names.
func (o *originals) resolveForm(ref string) (question.Key, formStatus) {
	keys := o.byForm[ref]
	switch len(keys) {
	case 0:
		return question.Key{}, formUnknown
	case 1:
		return keys[0], formUnique
	default:
		return question.Key{}, formAmbiguous
	}
}

// skillsFor resolves a clone's reference, either linked record IDs or text,
// and returns the original's skills.
func (o *originals) skillsFor(ref airtable.StringList) ([]string, bool) {
	if ref.Empty() {
		return nil, false
	}
	if ref.Multi {
		for _, id := range ref.Values {
			if strings.HasPrefix(id, "rec") {
				if skills, ok := o.byID[id]; ok {
					return skills, true
				}
			}
		}
		return nil, false
	}
	key, status := o.resolveForm(strings.TrimSpace(ref.String()))
	if status != formUnique {
		return nil, false
	}
	skills, ok := o.byKey[key]
	return skills, ok
}

func containsKey(keys []question.Key, k question.Key) bool {
	for _, existing := range keys {
		if existing == k {
			return true
		}
	}
	return false
}
