package planner

import (
	"context"
	"fmt"
	"strings"

	"github.com/haasonsaas/agent-engine/internal/provider"
	"github.com/haasonsaas/agent-engine/pkg/models"
)

// summarizeSystemPrompt fixes the instruction used for every history
// compaction call: condense, don't narrate, and keep anything a later
// planner tick would need to avoid repeating resolved work.
const summarizeSystemPrompt = "Summarize the following conversation turns in plain prose. " +
	"Preserve concrete decisions, constraints, open questions, and file paths already discussed. " +
	"Omit pleasantries. Do not invent facts not present in the turns."

// AdapterSummarizer satisfies compaction.Summarizer by asking a Provider
// Adapter to condense older turns. One AdapterSummarizer wraps one
// provider, matching the provider a run was started against so the
// summary's voice and token accounting stay consistent.
type AdapterSummarizer struct {
	adapter provider.Adapter
}

// NewAdapterSummarizer builds a Summarizer against adapter.
func NewAdapterSummarizer(adapter provider.Adapter) *AdapterSummarizer {
	return &AdapterSummarizer{adapter: adapter}
}

// Summarize implements compaction.Summarizer.
func (s *AdapterSummarizer) Summarize(ctx context.Context, messages []models.Message, maxChars int) (string, error) {
	var transcript strings.Builder
	for _, m := range messages {
		fmt.Fprintf(&transcript, "%s: %s\n", m.Role, m.Content)
	}

	result, err := s.adapter.Chat(ctx, []provider.Message{
		{Role: "system", Content: summarizeSystemPrompt},
		{Role: "user", Content: fmt.Sprintf("Turns to summarize (target under %d characters):\n\n%s", maxChars, transcript.String())},
	}, provider.ChatOptions{Temperature: 0.2, MaxTokens: maxChars / 3})
	if err != nil {
		return "", err
	}
	return result.Content, nil
}
