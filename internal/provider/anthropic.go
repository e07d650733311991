package provider

import (
	"context"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/haasonsaas/agent-engine/internal/retry"
)

// AnthropicAdapter talks to the Anthropic Messages API.
type AnthropicAdapter struct {
	id     string
	client anthropic.Client
	model  string
}

// NewAnthropicAdapter builds an adapter against api.anthropic.com, or a
// custom base URL when one is supplied (empty string uses the default).
func NewAnthropicAdapter(id, apiKey, baseURL, model string) *AnthropicAdapter {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if strings.TrimSpace(baseURL) != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &AnthropicAdapter{id: id, client: anthropic.NewClient(opts...), model: model}
}

func (a *AnthropicAdapter) ID() string    { return a.id }
func (a *AnthropicAdapter) Model() string { return a.model }

// Chat sends one non-streamed Messages.New call, retrying transient
// failures with exponential backoff.
func (a *AnthropicAdapter) Chat(ctx context.Context, messages []Message, opts ChatOptions) (*ChatResult, error) {
	model := opts.Model
	if model == "" {
		model = a.model
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	var system string
	var turns []anthropic.MessageParam
	for _, m := range messages {
		switch m.Role {
		case "system":
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
		case "assistant":
			turns = append(turns, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			turns = append(turns, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		Messages:  turns,
		MaxTokens: int64(maxTokens),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Type: "text", Text: system}}
	}

	start := time.Now()
	var resp *anthropic.Message
	result := retry.Do(ctx, retry.Config{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     4 * time.Second,
		Factor:       2,
		Jitter:       true,
	}, func() error {
		r, err := a.client.Messages.New(ctx, params)
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

	var content strings.Builder
	for _, block := range resp.Content {
		if text := block.AsText(); text.Text != "" {
			content.WriteString(text.Text)
		}
	}

	usage := TokenUsage{
		PromptTokens:     int(resp.Usage.InputTokens),
		CompletionTokens: int(resp.Usage.OutputTokens),
		TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		Source:           UsageFromProvider,
	}
	if usage.PromptTokens == 0 && usage.CompletionTokens == 0 {
		usage = estimateUsage(messages, content.String())
	}

	return &ChatResult{
		Content:        content.String(),
		Usage:          usage,
		PromptMessages: cloneMessages(messages),
		ElapsedMs:      elapsedMs(start),
	}, nil
}
