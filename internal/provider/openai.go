package provider

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/haasonsaas/agent-engine/internal/retry"
)

// OpenAIAdapter talks to any OpenAI-compatible chat completions endpoint. A
// custom base URL (the "custom" provider family) is plumbed through the
// same client, since the wire format is identical.
type OpenAIAdapter struct {
	id     string
	client *openai.Client
	model  string
}

// NewOpenAIAdapter builds an adapter against the default OpenAI API.
func NewOpenAIAdapter(id, apiKey, model string) *OpenAIAdapter {
	return &OpenAIAdapter{id: id, client: openai.NewClient(apiKey), model: model}
}

// NewOpenAICompatibleAdapter builds an adapter against a custom base URL,
// e.g. a self-hosted OpenAI-compatible gateway.
func NewOpenAICompatibleAdapter(id, apiKey, baseURL, model string) *OpenAIAdapter {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIAdapter{id: id, client: openai.NewClientWithConfig(cfg), model: model}
}

func (a *OpenAIAdapter) ID() string    { return a.id }
func (a *OpenAIAdapter) Model() string { return a.model }

// Chat sends one non-streamed completion request, retrying transient
// failures with exponential backoff.
func (a *OpenAIAdapter) Chat(ctx context.Context, messages []Message, opts ChatOptions) (*ChatResult, error) {
	model := opts.Model
	if model == "" {
		model = a.model
	}

	req := openai.ChatCompletionRequest{
		Model:    model,
		Messages: toOpenAIMessages(messages),
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = opts.MaxTokens
	}
	if opts.Temperature > 0 {
		req.Temperature = float32(opts.Temperature)
	}
	if opts.JSONMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	start := time.Now()
	var resp openai.ChatCompletionResponse
	result := retry.Do(ctx, retry.Config{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     4 * time.Second,
		Factor:       2,
		Jitter:       true,
	}, func() error {
		r, err := a.client.CreateChatCompletion(ctx, req)
		if err != nil {
			perr := NewError(a.id, model, err)
			if !perr.Kind.Retryable() {
				return retry.Permanent(perr)
			}
			return perr
		}
		resp = r
		return nil
	})

	if result.Err != nil {
		return nil, result.Err
	}
	if len(resp.Choices) == 0 {
		return nil, NewError(a.id, model, errNoChoices)
	}

	content := resp.Choices[0].Message.Content
	usage := TokenUsage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
		Source:           UsageFromProvider,
	}
	if usage.PromptTokens == 0 && usage.CompletionTokens == 0 {
		usage = estimateUsage(messages, content)
	}

	return &ChatResult{
		Content:        content,
		Usage:          usage,
		PromptMessages: cloneMessages(messages),
		ElapsedMs:      elapsedMs(start),
	}, nil
}

var errNoChoices = fmt.Errorf("provider returned no choices")

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	return out
}
