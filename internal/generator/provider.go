package generator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// ErrEmptyCompletion is returned when a provider answers without content.
var ErrEmptyCompletion = errors.New("llm returned no choices")

// Completion is one chat completion result.
type Completion struct {
	Text             string
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// Prompt is a single-turn chat request.
type Prompt struct {
	System      string
	User        string
	Temperature float32
	MaxTokens   int
}

// Provider wraps an OpenAI-compatible chat endpoint bound to one model.
type Provider struct {
	name  string
	model string
	api   *openai.Client
}

// NewProvider returns nil when apiKey is empty so callers can treat an
// unconfigured provider as absent.
func NewProvider(name, baseURL, apiKey, model string, httpClient *http.Client) *Provider {
	if apiKey == "" {
		return nil
	}
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
	if httpClient != nil {
		config.HTTPClient = httpClient
	}
	return &Provider{
		name:  name,
		model: model,
		api:   openai.NewClientWithConfig(config),
	}
}

func (p *Provider) Name() string  { return p.name }
func (p *Provider) Model() string { return p.model }

// WithModel returns a provider sharing the same client but a different model.
func (p *Provider) WithModel(model string) *Provider {
	if p == nil {
		return nil
	}
	clone := *p
	clone.model = model
	return &clone
}

// Complete sends one prompt and returns the first choice.
func (p *Provider) Complete(ctx context.Context, prompt Prompt) (Completion, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, 2)
	if prompt.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: prompt.System})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt.User})

	start := time.Now()
	resp, err := p.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    msgs,
		Temperature: prompt.Temperature,
		MaxTokens:   prompt.MaxTokens,
	})
	if err != nil {
		observeCompletion(p.name, outcomeError, start)
		return Completion{}, fmt.Errorf("%s chat completion: %w", p.name, err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		observeCompletion(p.name, outcomeEmpty, start)
		return Completion{}, fmt.Errorf("%s: %w", p.name, ErrEmptyCompletion)
	}
	observeCompletion(p.name, outcomeOK, start)

	model := resp.Model
	if model == "" {
		model = p.model
	}
	return Completion{
		Text:             resp.Choices[0].Message.Content,
		Model:            model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}
