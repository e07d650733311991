package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/haasonsaas/agent-engine/internal/compaction"
	agentctx "github.com/haasonsaas/agent-engine/internal/context"
	"github.com/haasonsaas/agent-engine/internal/provider"
	"github.com/haasonsaas/agent-engine/internal/toolkit"
	"github.com/haasonsaas/agent-engine/pkg/models"
)

// contextHeadroom is reserved out of the model's context window for the
// completion itself (the ActionBatch JSON the model is about to produce).
const contextHeadroom = 4000

// maxRepairAttempts is the number of extra calls the planner makes after an
// initial invalid response before giving up. Three total attempts, matching
// spec's "retries... up to 2 times; a third failure marks the run failed".
const maxRepairAttempts = 2

// plannerTemperature keeps the model's output close to deterministic so
// retried batches don't drift from the plan the executor already
// partially trusts.
const plannerTemperature = 0.2

// Planner is a stateless wrapper around a Provider Adapter: it owns no
// per-run state, so the same Planner serves every run concurrently.
type Planner struct {
	registry  *toolkit.Registry
	compactor *compaction.Compactor
}

// New builds a Planner against the given tool registry and history
// compactor. Both are shared, read-only collaborators.
func New(registry *toolkit.Registry, compactor *compaction.Compactor) *Planner {
	return &Planner{registry: registry, compactor: compactor}
}

// Trace is the planning telemetry the caller (internal/engine) folds into
// ExecutionEvents; the planner itself never mutates Run state; its caller
// owns event-id assignment and appending.
type Trace struct {
	Attempts    int
	ElapsedMs   int64
	Usage       provider.TokenUsage
	ProviderID  string
	Model       string
	Summary     string
	RawResponse string
}

// NextBatch implements spec.md's planner algorithm: build prompt, call the
// adapter with json-object mode and low temperature, validate, repair up to
// maxRepairAttempts times, and return a structured planner_invalid_output
// error if the model never converges.
func (p *Planner) NextBatch(ctx context.Context, view RunView, adapter provider.Adapter) (*models.ActionBatch, *Trace, error) {
	compacted, err := p.compactor.Compact(ctx, view.Messages, view.HistoryConfig)
	if err != nil {
		return nil, nil, &models.EngineError{Kind: models.ErrKindInternal, Message: err.Error()}
	}

	history, err := historySnapshot(view.ActionHistory)
	if err != nil {
		return nil, nil, &models.EngineError{Kind: models.ErrKindInternal, Message: err.Error()}
	}

	baseMessages := []provider.Message{{Role: "system", Content: systemPrompt(p.registry)}}
	for _, m := range compacted.PromptMessages {
		baseMessages = append(baseMessages, provider.Message{Role: string(m.Role), Content: m.Content})
	}
	baseMessages = append(baseMessages, provider.Message{
		Role: "user",
		Content: fmt.Sprintf(
			"Run intent: %s\nIteration: %d\nRecent action records (most recent last):\n%s\n\nReturn the next ActionBatch now.",
			view.Intent, view.Iteration, history,
		),
	})

	baseMessages = fitToContextWindow(baseMessages, adapter.Model())

	trace := &Trace{ProviderID: adapter.ID(), Model: adapter.Model()}
	messages := baseMessages
	var lastRaw string
	var lastErr error

	for attempt := 1; attempt <= maxRepairAttempts+1; attempt++ {
		trace.Attempts = attempt

		start := time.Now()
		result, callErr := adapter.Chat(ctx, messages, provider.ChatOptions{
			Temperature: plannerTemperature,
			JSONMode:    true,
		})
		if callErr != nil {
			return nil, trace, callErr
		}
		trace.ElapsedMs += time.Since(start).Milliseconds()
		trace.Usage = result.Usage
		lastRaw = result.Content

		var batch models.ActionBatch
		if err := json.Unmarshal([]byte(result.Content), &batch); err != nil {
			lastErr = newValidationError("response is not valid JSON: " + err.Error())
		} else if err := validateBatch([]byte(result.Content), &batch, view); err != nil {
			lastErr = err
		} else {
			batch.Iteration = view.Iteration
			if batch.Decision.Mode == models.DecisionAskUser {
				batch.Decision.NeedsUserTrigger = true
			}
			trace.Summary = batch.Summary
			trace.RawResponse = result.Content
			return &batch, trace, nil
		}

		if attempt > maxRepairAttempts {
			break
		}
		messages = append(baseMessages, provider.Message{
			Role:    "user",
			Content: repairPrompt(lastRaw, lastErr),
		})
	}

	return nil, trace, &models.EngineError{
		Kind:     models.ErrKindPlannerInvalid,
		Message:  fmt.Sprintf("planner produced invalid output after %d attempts: %v", trace.Attempts, lastErr),
		Attempts: trace.Attempts,
	}
}

// fitToContextWindow drops the oldest non-system prompt messages, one at a
// time, until the remaining messages' estimated token count fits the
// target model's context window (minus contextHeadroom for the completion).
// The compactor already bounds history by turn count; this is a second,
// token-aware backstop for models with small windows or unusually long
// individual messages.
func fitToContextWindow(messages []provider.Message, model string) []provider.Message {
	window, ok := agentctx.GetModelContextWindow(model)
	if !ok {
		window = agentctx.DefaultContextWindow
	}
	budget := window - contextHeadroom
	if budget < agentctx.MinContextWindow/2 {
		budget = agentctx.MinContextWindow / 2
	}

	for len(messages) > 2 {
		contents := make([]string, len(messages))
		for i, m := range messages {
			contents[i] = m.Content
		}
		if agentctx.EstimateTokensForMessages(contents) <= budget {
			break
		}
		// messages[0] is the system prompt; drop the oldest non-system entry.
		messages = append(messages[:1], messages[2:]...)
	}
	return messages
}
