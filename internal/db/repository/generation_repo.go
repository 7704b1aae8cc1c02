package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Generation is one row of the generated_clones log.
type Generation struct {
	ID               uuid.UUID     `json:"id"`
	TestNumber       string        `json:"testNumber"`
	QuestionNumber   string        `json:"questionNumber"`
	CloneRecordID    string        `json:"cloneRecordId"`
	Model            string        `json:"model"`
	Answer           string        `json:"answer"`
	PromptTokens     int           `json:"promptTokens"`
	CompletionTokens int           `json:"completionTokens"`
	Latency          time.Duration `json:"latency"`
	CreatedAt        time.Time     `json:"createdAt"`
}

type generationStore interface {
	InsertGeneration(ctx context.Context, g Generation) error
	ListRecentGenerations(ctx context.Context, limit int32) ([]Generation, error)
}

// GenerationRepository records and lists generated clones.
type GenerationRepository struct {
	store generationStore
}

func NewGenerationRepository(store generationStore) *GenerationRepository {
	return &GenerationRepository{store: store}
}

// Insert stores one generation, assigning an id and timestamp when missing.
func (r *GenerationRepository) Insert(ctx context.Context, g Generation) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	return r.store.InsertGeneration(ctx, g)
}

// ListRecent returns the newest generations first. limit is clamped to
// [1, 200]; zero or negative selects the default of 50.
func (r *GenerationRepository) ListRecent(ctx context.Context, limit int) ([]Generation, error) {
	switch {
	case limit <= 0:
		limit = defaultListLimit
	case limit > maxListLimit:
		limit = maxListLimit
	}
	rows, err := r.store.ListRecentGenerations(ctx, int32(limit))
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []Generation{}
	}
	return rows, nil
}
