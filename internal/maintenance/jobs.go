// Package maintenance holds the one-off data repair jobs run against the
// Questions and Clones tables.
package maintenance

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/copycats/copycat-api/internal/airtable"
	"github.com/copycats/copycat-api/internal/question"
)

// Report summarizes one job run.
type Report struct {
	Job     string `json:"job"`
	DryRun  bool   `json:"dryRun"`
	Total   int    `json:"totalRecords"`
	Changed int    `json:"changedRecords"`
	Updated int    `json:"updatedRecords"`
	Skipped int    `json:"skippedRecords"`
	Errors  int    `json:"errorCount"`
}

// Options configure a Runner.
type Options struct {
	QuestionsTable string
	ClonesTable    string
	DryRun         bool
}

// Runner executes maintenance jobs.
type Runner struct {
	client *airtable.Client
	opts   Options
	logger zerolog.Logger
}

func NewRunner(client *airtable.Client, opts Options, logger zerolog.Logger) *Runner {
	return &Runner{
		client: client,
		opts:   opts,
		logger: logger.With().Str("component", "maintenance").Logger(),
	}
}

// DryRun returns a copy of the runner that computes changes without writing.
func (r *Runner) DryRun() *Runner {
	clone := *r
	clone.opts.DryRun = true
	return &clone
}

type explanationRow struct {
	Explanation string `json:"Explanation 4o"`
}

type testNumberRow struct {
	TestNumber airtable.FlexString `json:"Test Number"`
}

type questionKeyRow struct {
	TestNumber     airtable.FlexString `json:"Test Number"`
	QuestionNumber airtable.FlexString `json:"Question Number"`
	Skills         airtable.StringList `json:"Skill"`
}

type cloneRefRow struct {
	Original airtable.StringList `json:"Original Question"`
	Skills   airtable.StringList `json:"Skill"`
}

// CleanupExplanations converts dollar-delimited math in stored explanations
// to \( \) and \[ \] delimiters. Only rows whose text changes are written.
func (r *Runner) CleanupExplanations(ctx context.Context) (Report, error) {
	rep := r.newReport("cleanup-explanations")
	recs, err := r.client.Select(ctx, r.opts.QuestionsTable, airtable.Query{
		Formula: airtable.NotEmpty(question.FieldExplanation4o),
		Fields:  airtable.FieldNames(explanationRow{}),
	})
	if err != nil {
		return rep, err
	}
	rep.Total = len(recs)

	var updates []airtable.Update
	for _, rec := range recs {
		var row explanationRow
		if err := rec.Decode(&row); err != nil {
			rep.Errors++
			r.logger.Warn().Err(err).Str("record_id", rec.ID).Msg("undecodable row")
			continue
		}
		cleaned := question.CleanLatex(row.Explanation)
		if cleaned == row.Explanation {
			continue
		}
		updates = append(updates, airtable.Update{
			ID:     rec.ID,
			Fields: map[string]string{question.FieldExplanation4o: cleaned},
		})
	}
	r.apply(ctx, r.opts.QuestionsTable, updates, &rep)
	return rep, nil
}

// CleanTestNumbers strips surrounding whitespace and embedded line breaks
// from the Test Number field.
func (r *Runner) CleanTestNumbers(ctx context.Context) (Report, error) {
	rep := r.newReport("clean-test-numbers")
	recs, err := r.client.Select(ctx, r.opts.QuestionsTable, airtable.Query{
		Fields: airtable.FieldNames(testNumberRow{}),
	})
	if err != nil {
		return rep, err
	}
	rep.Total = len(recs)

	var updates []airtable.Update
	for _, rec := range recs {
		var row testNumberRow
		if err := rec.Decode(&row); err != nil {
			rep.Errors++
			continue
		}
		raw := row.TestNumber.String()
		if raw == "" {
			rep.Skipped++
			continue
		}
		cleaned := CleanTestNumber(raw)
		if cleaned == raw {
			continue
		}
		r.logger.Debug().Str("from", raw).Str("to", cleaned).Msg("test number change")
		updates = append(updates, airtable.Update{
			ID:     rec.ID,
			Fields: map[string]string{question.FieldTestNumber: cleaned},
		})
	}
	r.apply(ctx, r.opts.QuestionsTable, updates, &rep)
	return rep, nil
}

// CleanTestNumber trims a test number and removes line breaks inside it.
func CleanTestNumber(s string) string {
	s = strings.TrimSpace(s)
	return strings.NewReplacer("\r", "", "\n", "").Replace(s)
}

// CopySkills copies the Skill links of each clone's original question onto
// the clone. Clones without a resolvable original or whose original has no
// skills are skipped.
func (r *Runner) CopySkills(ctx context.Context) (Report, error) {
	rep := r.newReport("copy-skills")
	clones, err := r.client.Select(ctx, r.opts.ClonesTable, airtable.Query{
		Fields: airtable.FieldNames(cloneRefRow{}),
	})
	if err != nil {
		return rep, err
	}
	rep.Total = len(clones)

	originals, err := r.loadQuestions(ctx)
	if err != nil {
		return rep, err
	}

	var updates []airtable.Update
	for _, rec := range clones {
		var row cloneRefRow
		if err := rec.Decode(&row); err != nil {
			rep.Errors++
			continue
		}
		skills, ok := originals.skillsFor(row.Original)
		if !ok || len(skills) == 0 {
			rep.Skipped++
			continue
		}
		if sameSet(skills, row.Skills.Values) {
			continue
		}
		updates = append(updates, airtable.Update{
			ID:     rec.ID,
			Fields: map[string][]string{question.FieldSkill: skills},
		})
	}
	r.apply(ctx, r.opts.ClonesTable, updates, &rep)
	return rep, nil
}

// NormalizeCloneReferences rewrites textual clone references written in a
// legacy form ("A11-3", "A11 3") to the canonical "A11 - 3". A legacy value
// that several questions could produce is left alone and counted as skipped.
func (r *Runner) NormalizeCloneReferences(ctx context.Context) (Report, error) {
	rep := r.newReport("normalize-clone-refs")
	clones, err := r.client.Select(ctx, r.opts.ClonesTable, airtable.Query{
		Fields: airtable.FieldNames(cloneRefRow{}),
	})
	if err != nil {
		return rep, err
	}
	rep.Total = len(clones)

	originals, err := r.loadQuestions(ctx)
	if err != nil {
		return rep, err
	}

	var updates []airtable.Update
	for _, rec := range clones {
		var row cloneRefRow
		if err := rec.Decode(&row); err != nil {
			rep.Errors++
			continue
		}
		if row.Original.Multi || row.Original.Empty() {
			continue
		}
		ref := strings.TrimSpace(row.Original.String())
		key, status := originals.resolveForm(ref)
		switch status {
		case formUnknown:
			rep.Skipped++
			continue
		case formAmbiguous:
			r.logger.Warn().Str("record_id", rec.ID).Str("reference", ref).Msg("ambiguous clone reference")
			rep.Skipped++
			continue
		}
		canonical := question.CanonicalReference(key)
		if canonical == row.Original.String() {
			continue
		}
		updates = append(updates, airtable.Update{
			ID:     rec.ID,
			Fields: map[string]string{question.FieldOriginalQuestion: canonical},
		})
	}
	r.apply(ctx, r.opts.ClonesTable, updates, &rep)
	return rep, nil
}

func (r *Runner) newReport(job string) Report {
	return Report{Job: job, DryRun: r.opts.DryRun}
}

// apply writes updates one batch at a time so a failing batch only counts
// its own rows as errors.
func (r *Runner) apply(ctx context.Context, table string, updates []airtable.Update, rep *Report) {
	rep.Changed = len(updates)
	if r.opts.DryRun {
		r.logger.Info().Str("job", rep.Job).Int("changes", len(updates)).Msg("dry run, nothing written")
		return
	}
	for start := 0; start < len(updates); start += airtable.MaxBatch {
		batch := updates[start:min(start+airtable.MaxBatch, len(updates))]
		if _, err := r.client.Update(ctx, table, batch...); err != nil {
			r.logger.Error().Err(err).Str("job", rep.Job).Int("batch_size", len(batch)).Msg("batch update failed")
			rep.Errors += len(batch)
			continue
		}
		rep.Updated += len(batch)
	}
	r.logger.Info().
		Str("job", rep.Job).
		Int("total", rep.Total).
		Int("updated", rep.Updated).
		Int("skipped", rep.Skipped).
		Int("errors", rep.Errors).
		Msg("job finished")
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, v := range a {
		seen[v]++
	}
	for _, v := range b {
		if seen[v] == 0 {
			return false
		}
		seen[v]--
	}
	return true
}
