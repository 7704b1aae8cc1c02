package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const insertGeneration = `
INSERT INTO generated_clones (
    id, test_number, question_number, clone_record_id, model, answer,
    prompt_tokens, completion_tokens, latency_ms, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

const listRecentGenerations = `
SELECT id, test_number, question_number, clone_record_id, model, answer,
       prompt_tokens, completion_tokens, latency_ms, created_at
FROM generated_clones
ORDER BY created_at DESC
LIMIT $1`

// PGStore runs the generation log queries against Postgres.
type PGStore struct {
	pool *pgxpool.Pool
}

var _ generationStore = (*PGStore)(nil)

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) InsertGeneration(ctx context.Context, g Generation) error {
	_, err := s.pool.Exec(ctx, insertGeneration,
		g.ID, g.TestNumber, g.QuestionNumber, g.CloneRecordID, g.Model, g.Answer,
		g.PromptTokens, g.CompletionTokens, g.Latency.Milliseconds(), g.CreatedAt,
	)
	return err
}

func (s *PGStore) ListRecentGenerations(ctx context.Context, limit int32) ([]Generation, error) {
	rows, err := s.pool.Query(ctx, listRecentGenerations, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Generation, error) {
		var (
			g         Generation
			latencyMS int64
		)
		err := row.Scan(
			&g.ID, &g.TestNumber, &g.QuestionNumber, &g.CloneRecordID, &g.Model, &g.Answer,
			&g.PromptTokens, &g.CompletionTokens, &latencyMS, &g.CreatedAt,
		)
		g.Latency = time.Duration(latencyMS) * time.Millisecond
		return g, err
	})
}

// Ping checks the pool can reach the server.
func (s *PGStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
