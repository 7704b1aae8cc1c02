package maintenance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copycats/copycat-api/internal/airtable"
	"github.com/copycats/copycat-api/internal/airtable/airtabletest"
)

const (
	questionsTable = "Questions"
	clonesTable    = "CopyCats"
)

type patchBody struct {
	Records []struct {
		ID     string          `json:"id"`
		Fields json.RawMessage `json:"fields"`
	} `json:"records"`
}

// table answers GETs with rows and echoes PATCHes, optionally failing them.
func table(rows []airtable.Record, failPatch bool) airtabletest.Responder {
	return func(req airtabletest.Request) (int, any) {
		if req.Method == http.MethodPatch {
			if failPatch {
				return http.StatusUnprocessableEntity, map[string]any{"error": map[string]string{"type": "INVALID_VALUE", "message": "bad"}}
			}
			var body patchBody
			_ = json.Unmarshal(req.Body, &body)
			out := make([]airtable.Record, len(body.Records))
			for i, r := range body.Records {
				out[i] = airtable.Record{ID: r.ID}
			}
			return http.StatusOK, map[string]any{"records": out}
		}
		return http.StatusOK, map[string]any{"records": rows}
	}
}

func patches(t *testing.T, srv *airtabletest.Server, tbl string) map[string]map[string]any {
	t.Helper()
	out := map[string]map[string]any{}
	for _, req := range srv.Requests() {
		if req.Method != http.MethodPatch || req.Table != tbl {
			continue
		}
		var body patchBody
		require.NoError(t, json.Unmarshal(req.Body, &body))
		for _, r := range body.Records {
			var fields map[string]any
			require.NoError(t, json.Unmarshal(r.Fields, &fields))
			out[r.ID] = fields
		}
	}
	return out
}

func newRunner(srv *airtabletest.Server, dryRun bool) *Runner {
	return NewRunner(srv.Client(), Options{
		QuestionsTable: questionsTable,
		ClonesTable:    clonesTable,
		DryRun:         dryRun,
	}, zerolog.Nop())
}

func TestCleanupExplanations_UpdatesOnlyChangedRows(t *testing.T) {
	srv := airtabletest.NewServer(t)
	srv.Handle(questionsTable, table([]airtable.Record{
		airtabletest.Row("rec1", map[string]any{"Explanation 4o": "Solve $x+1=2$ first."}),
		airtabletest.Row("rec2", map[string]any{"Explanation 4o": "Already clean."}),
	}, false))

	rep, err := newRunner(srv, false).CleanupExplanations(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, rep.Total)
	assert.Equal(t, 1, rep.Changed)
	assert.Equal(t, 1, rep.Updated)
	assert.Zero(t, rep.Errors)

	written := patches(t, srv, questionsTable)
	require.Contains(t, written, "rec1")
	assert.NotContains(t, written, "rec2")
	assert.Equal(t, `Solve \(x+1=2\) first.`, written["rec1"]["Explanation 4o"])

	var get airtabletest.Request
	for _, r := range srv.Requests() {
		if r.Method == http.MethodGet {
			get = r
		}
	}
	assert.Equal(t, `NOT({Explanation 4o} = '')`, get.Formula())
}

func TestCleanupExplanations_DryRunWritesNothing(t *testing.T) {
	srv := airtabletest.NewServer(t)
	srv.Handle(questionsTable, table([]airtable.Record{
		airtabletest.Row("rec1", map[string]any{"Explanation 4o": "$y$"}),
	}, false))

	rep, err := newRunner(srv, false).DryRun().CleanupExplanations(context.Background())
	require.NoError(t, err)

	assert.True(t, rep.DryRun)
	assert.Equal(t, 1, rep.Changed)
	assert.Zero(t, rep.Updated)
	assert.Empty(t, patches(t, srv, questionsTable))
}

func TestCleanTestNumbers_BatchesAndCountsFailures(t *testing.T) {
	rows := make([]airtable.Record, 0, 12)
	for i := 0; i < 12; i++ {
		rows = append(rows, airtabletest.Row(fmt.Sprintf("rec%02d", i), map[string]any{"Test Number": fmt.Sprintf(" A%d\n", i)}))
	}
	rows = append(rows, airtabletest.Row("recClean", map[string]any{"Test Number": "B1"}))
	rows = append(rows, airtabletest.Row("recBlank", map[string]any{}))

	srv := airtabletest.NewServer(t)
	srv.Handle(questionsTable, table(rows, true))

	rep, err := newRunner(srv, false).CleanTestNumbers(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 14, rep.Total)
	assert.Equal(t, 12, rep.Changed)
	assert.Equal(t, 1, rep.Skipped)
	assert.Zero(t, rep.Updated)
	assert.Equal(t, 12, rep.Errors)

	n := 0
	for _, r := range srv.Requests() {
		if r.Method == http.MethodPatch {
			n++
		}
	}
	assert.Equal(t, 2, n, "twelve updates go out in two batches")
}

func TestCleanTestNumber(t *testing.T) {
	assert.Equal(t, "A11", CleanTestNumber("  A11\r\n"))
	assert.Equal(t, "Red Book 1", CleanTestNumber("Red Book 1\n"))
	assert.Equal(t, "C03-2", CleanTestNumber("C03-\n2"))
}

func TestCopySkills(t *testing.T) {
	srv := airtabletest.NewServer(t)
	srv.Handle(questionsTable, table([]airtable.Record{
		airtabletest.Row("recQ1", map[string]any{"Test Number": "A11", "Question Number": 3, "Skill": []string{"recS1", "recS2"}}),
		airtabletest.Row("recQ2", map[string]any{"Test Number": "A12", "Question Number": 1}),
	}, false))
	srv.Handle(clonesTable, table([]airtable.Record{
		airtabletest.Row("recC1", map[string]any{"Original Question": "A11-3"}),
		airtabletest.Row("recC2", map[string]any{"Original Question": []string{"recQ1"}, "Skill": []string{"recS2", "recS1"}}),
		airtabletest.Row("recC3", map[string]any{"Original Question": "A12 - 1"}),
		airtabletest.Row("recC4", map[string]any{"Original Question": "Z9 - 9"}),
		airtabletest.Row("recC5", map[string]any{"Original Question": []string{"recQ1"}}),
	}, false))

	rep, err := newRunner(srv, false).CopySkills(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, rep.Total)
	assert.Equal(t, 2, rep.Updated)
	assert.Equal(t, 2, rep.Skipped)

	written := patches(t, srv, clonesTable)
	assert.Len(t, written, 2)
	assert.Equal(t, []any{"recS1", "recS2"}, written["recC1"]["Skill"])
	assert.Equal(t, []any{"recS1", "recS2"}, written["recC5"]["Skill"])
}

func TestNormalizeCloneReferences(t *testing.T) {
	srv := airtabletest.NewServer(t)
	srv.Handle(questionsTable, table([]airtable.Record{
		airtabletest.Row("recQ1", map[string]any{"Test Number": "A11", "Question Number": 3}),
		airtabletest.Row("recQ2", map[string]any{"Test Number": "A1", "Question Number": "1-3"}),
		airtabletest.Row("recQ3", map[string]any{"Test Number": "A1-1", "Question Number": 3}),
	}, false))
	srv.Handle(clonesTable, table([]airtable.Record{
		airtabletest.Row("recC1", map[string]any{"Original Question": "A11-3"}),
		airtabletest.Row("recC2", map[string]any{"Original Question": "A11 - 3"}),
		airtabletest.Row("recC3", map[string]any{"Original Question": "A1-1-3"}),
		airtabletest.Row("recC4", map[string]any{"Original Question": []string{"recQ1"}}),
		airtabletest.Row("recC5", map[string]any{"Original Question": "nope"}),
	}, false))

	rep, err := newRunner(srv, false).NormalizeCloneReferences(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, rep.Total)
	assert.Equal(t, 1, rep.Updated)
	assert.Equal(t, 2, rep.Skipped, "ambiguous and unknown references are left alone")

	written := patches(t, srv, clonesTable)
	require.Len(t, written, 1)
	assert.Equal(t, "A11 - 3", written["recC1"]["Original Question"])
}

func TestJobs_ReadFailureIsReturned(t *testing.T) {
	srv := airtabletest.NewServer(t)
	srv.Handle(questionsTable, func(airtabletest.Request) (int, any) {
		return http.StatusInternalServerError, map[string]any{"error": "SERVER_ERROR"}
	})

	_, err := newRunner(srv, false).CleanupExplanations(context.Background())
	require.Error(t, err)
	var apiErr *airtable.APIError
	assert.ErrorAs(t, err, &apiErr)
}

func TestJobs_ReadProjectionMatchesDecodedRow(t *testing.T) {
	srv := airtabletest.NewServer(t)
	srv.Handle(questionsTable, table(nil, false))
	srv.Handle(clonesTable, table(nil, false))

	runner := newRunner(srv, false)
	_, err := runner.CleanupExplanations(context.Background())
	require.NoError(t, err)
	_, err = runner.CopySkills(context.Background())
	require.NoError(t, err)

	var got [][]string
	for _, r := range srv.Requests() {
		if r.Method == http.MethodGet {
			got = append(got, r.Query["fields[]"])
		}
	}
	assert.Equal(t, [][]string{
		{"Explanation 4o"},
		{"Original Question", "Skill"},
		{"Test Number", "Question Number", "Skill"},
	}, got)
}
