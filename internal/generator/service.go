package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/copycats/copycat-api/internal/db/repository"
	"github.com/copycats/copycat-api/internal/question"
)

// Placeholders returned by Hints in place of a provider's answer.
const (
	HintDisabled    = "Temporarily disabled"
	HintUnavailable = "Unable to generate hint at this time."
)

var (
	ErrMissingContent      = errors.New("question content not available")
	ErrProviderUnavailable = errors.New("llm provider not configured")
)

// Questions is the question-side surface the generator needs.
type Questions interface {
	QuestionBody(ctx context.Context, key question.Key) (question.Question, error)
	RecordClone(ctx context.Context, c question.NewClone) (string, error)
}

// GenerationLog records generated clones for later review.
type GenerationLog interface {
	Insert(ctx context.Context, g repository.Generation) error
}

// Providers groups the configured model endpoints. Any of them may be nil.
type Providers struct {
	Clone    *Provider
	Hint     *Provider
	GPT4     *Provider
	DeepSeek *Provider
	Claude   *Provider
}

// Service generates clones, hints and explanations.
type Service struct {
	questions Questions
	providers Providers
	log       GenerationLog
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(questions Questions, providers Providers, log GenerationLog, logger zerolog.Logger) *Service {
	return &Service{
		questions: questions,
		providers: providers,
		log:       log,
		logger:    logger.With().Str("component", "generator").Logger(),
		now:       time.Now,
	}
}

// CloneRequest asks for a new clone of an existing question. Latex overrides
// the stored body when present.
type CloneRequest struct {
	Key      question.Key
	Latex    string
	HasPhoto bool
}

// CloneResult is the stored clone.
type CloneResult struct {
	Question    string `json:"question"`
	Answer      string `json:"answer"`
	Explanation string `json:"explanation"`
	RecordID    string `json:"recordId"`
}

// GenerateClone prompts the clone model, validates the structured answer and
// stores the clone row referencing the original.
func (s *Service) GenerateClone(ctx context.Context, req CloneRequest) (CloneResult, error) {
	if !req.Key.Valid() {
		return CloneResult{}, question.ErrMissingKey
	}
	if s.providers.Clone == nil {
		return CloneResult{}, ErrProviderUnavailable
	}

	original, err := s.questions.QuestionBody(ctx, req.Key)
	if err != nil {
		return CloneResult{}, err
	}
	latex := req.Latex
	if latex == "" {
		latex = original.Latex
	}
	if latex == "" && !req.HasPhoto {
		return CloneResult{}, ErrMissingContent
	}

	start := s.now()
	completion, err := s.providers.Clone.Complete(ctx, Prompt{
		System:      cloneSystemPrompt,
		User:        clonePrompt(PrepareLatex(latex), req.HasPhoto),
		Temperature: 0.7,
		MaxTokens:   2000,
	})
	if err != nil {
		return CloneResult{}, err
	}
	latency := s.now().Sub(start)

	parsed, err := ParseClone(completion.Text)
	if err != nil {
		s.logger.Warn().Err(err).
			Str("test_number", req.Key.TestNumber).
			Str("question_number", req.Key.QuestionNumber).
			Msg("unparseable clone completion")
		return CloneResult{}, err
	}

	recordID, err := s.questions.RecordClone(ctx, question.NewClone{
		Original:    original,
		Body:        parsed.Question,
		Answer:      parsed.Answer,
		Model:       completion.Model,
		Explanation: parsed.Explanation,
	})
	if err != nil {
		return CloneResult{}, fmt.Errorf("store clone: %w", err)
	}
	clonesGenerated.Inc()

	if s.log != nil {
		entry := repository.Generation{
			ID:               uuid.New(),
			TestNumber:       req.Key.TestNumber,
			QuestionNumber:   req.Key.QuestionNumber,
			CloneRecordID:    recordID,
			Model:            completion.Model,
			Answer:           parsed.Answer,
			PromptTokens:     completion.PromptTokens,
			CompletionTokens: completion.CompletionTokens,
			Latency:          latency,
			CreatedAt:        s.now().UTC(),
		}
		if err := s.log.Insert(ctx, entry); err != nil {
			s.logger.Warn().Err(err).Str("record_id", recordID).Msg("generation log write failed")
		}
	}

	s.logger.Info().
		Str("test_number", req.Key.TestNumber).
		Str("question_number", req.Key.QuestionNumber).
		Str("record_id", recordID).
		Str("model", completion.Model).
		Msg("clone generated")

	return CloneResult{
		Question:    parsed.Question,
		Answer:      parsed.Answer,
		Explanation: parsed.Explanation,
		RecordID:    recordID,
	}, nil
}

// Hint returns a single hint for the given text, or for the stored body of
// key when text is empty.
func (s *Service) Hint(ctx context.Context, text string, key question.Key) (string, error) {
	if s.providers.Hint == nil {
		return "", ErrProviderUnavailable
	}
	if text == "" {
		if !key.Valid() {
			return "", question.ErrMissingKey
		}
		q, err := s.questions.QuestionBody(ctx, key)
		if err != nil {
			return "", err
		}
		text = q.Latex
	}
	completion, err := s.providers.Hint.Complete(ctx, Prompt{
		System:      hintSystemPrompt,
		User:        hintPrompt(text),
		Temperature: 0.7,
		MaxTokens:   300,
	})
	if err != nil {
		return "", err
	}
	return completion.Text, nil
}

// Hints is one hint per provider.
type Hints struct {
	GPT4     string `json:"gpt4"`
	DeepSeek string `json:"deepseek"`
	Claude   string `json:"claude"`
}

// Hints asks every configured provider concurrently. A provider that is not
// configured or fails contributes a placeholder instead of failing the call.
func (s *Service) Hints(ctx context.Context, key question.Key, text string) (Hints, error) {
	if !key.Valid() || strings.TrimSpace(text) == "" {
		return Hints{}, question.ErrMissingKey
	}
	prompt := Prompt{
		User:        multiHintPrompt(key.TestNumber, key.QuestionNumber, text),
		Temperature: 0.7,
		MaxTokens:   250,
	}

	out := Hints{GPT4: HintDisabled, DeepSeek: HintDisabled, Claude: HintDisabled}
	g, gctx := errgroup.WithContext(ctx)
	ask := func(p *Provider, dst *string) {
		if p == nil {
			return
		}
		g.Go(func() error {
			completion, err := p.Complete(gctx, prompt)
			if err != nil {
				s.logger.Warn().Err(err).Str("provider", p.Name()).Msg("hint failed")
				*dst = HintUnavailable
				return nil
			}
			*dst = completion.Text
			return nil
		})
	}
	ask(s.providers.GPT4, &out.GPT4)
	ask(s.providers.DeepSeek, &out.DeepSeek)
	ask(s.providers.Claude, &out.Claude)

	if err := g.Wait(); err != nil {
		return Hints{}, err
	}
	return out, nil
}

// Explain generates a step-by-step explanation.
func (s *Service) Explain(ctx context.Context, key question.Key, text string) (string, error) {
	if !key.Valid() || strings.TrimSpace(text) == "" {
		return "", question.ErrMissingKey
	}
	if s.providers.Hint == nil {
		return "", ErrProviderUnavailable
	}
	completion, err := s.providers.Hint.Complete(ctx, Prompt{
		User:        explanationPrompt(key.TestNumber, key.QuestionNumber, text),
		Temperature: 0.7,
		MaxTokens:   1000,
	})
	if err != nil {
		return "", err
	}
	return completion.Text, nil
}
