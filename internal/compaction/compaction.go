// Package compaction bounds the conversation history fed to the planner on
// each tick: it keeps the most recent turns verbatim, truncates oversized
// messages, and optionally summarizes everything older through the
// provider adapter. Token estimation and message-splitting helpers follow
// the teacher's context-compaction design.
package compaction

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/haasonsaas/agent-engine/pkg/models"
)

// CharsPerToken is the approximate character-to-token ratio used for
// estimation when a provider does not report usage.
const CharsPerToken = 4

// EstimateTokens estimates the token count of a message body.
func EstimateTokens(content string) int {
	return (len(content) + CharsPerToken - 1) / CharsPerToken
}

// Summarizer produces a prose summary of a run of older messages. The
// Provider Adapter satisfies this through a thin wrapper that fixes the
// system prompt and temperature.
type Summarizer interface {
	Summarize(ctx context.Context, messages []models.Message, maxChars int) (string, error)
}

// CachedSummary is one entry in the Compactor's summary cache.
type CachedSummary struct {
	Hash    string
	Summary string
}

// CompactResult is the bounded prompt a Compactor produces for one tick.
type CompactResult struct {
	PromptMessages  []models.Message
	SummaryMessage  *models.Message
	TruncatedCount  int
	DroppedCount    int
}

// Compactor applies a HistoryConfig against a run's full message list.
type Compactor struct {
	summarizer Summarizer

	mu    sync.Mutex
	cache map[string]CachedSummary
}

// NewCompactor builds a Compactor. summarizer may be nil, in which case
// summary_enabled history configs silently skip summarization (the older
// turns are simply dropped rather than erroring the run).
func NewCompactor(summarizer Summarizer) *Compactor {
	return &Compactor{summarizer: summarizer, cache: make(map[string]CachedSummary)}
}

// Compact bounds messages to cfg's policy: the last cfg.Turns messages are
// kept, each truncated to cfg.MaxCharsPerMessage if oversized; anything
// older is either summarized (if cfg.SummaryEnabled and a summarizer is
// configured) or dropped.
func (c *Compactor) Compact(ctx context.Context, messages []models.Message, cfg models.HistoryConfig) (*CompactResult, error) {
	if cfg.Turns <= 0 {
		cfg.Turns = models.DefaultHistoryConfig().Turns
	}
	if cfg.MaxCharsPerMessage <= 0 {
		cfg.MaxCharsPerMessage = models.DefaultHistoryConfig().MaxCharsPerMessage
	}

	if len(messages) <= cfg.Turns {
		kept := truncateAll(messages, cfg.MaxCharsPerMessage)
		return &CompactResult{PromptMessages: kept}, nil
	}

	cutoff := len(messages) - cfg.Turns
	older := messages[:cutoff]
	recent := truncateAll(messages[cutoff:], cfg.MaxCharsPerMessage)

	result := &CompactResult{PromptMessages: recent, DroppedCount: len(older)}

	if !cfg.SummaryEnabled || c.summarizer == nil || len(older) == 0 {
		return result, nil
	}

	hash := hashMessages(older)
	summaryText, err := c.summaryFor(ctx, hash, older, cfg.SummaryMaxChars)
	if err != nil {
		return nil, fmt.Errorf("compaction: summarize older turns: %w", err)
	}

	summaryMsg := models.Message{
		Role:    models.RoleSystem,
		Content: "Summary of earlier conversation:\n" + summaryText,
	}
	result.SummaryMessage = &summaryMsg
	result.PromptMessages = append([]models.Message{summaryMsg}, recent...)
	return result, nil
}

func (c *Compactor) summaryFor(ctx context.Context, hash string, older []models.Message, maxChars int) (string, error) {
	c.mu.Lock()
	if cached, ok := c.cache[hash]; ok {
		c.mu.Unlock()
		return cached.Summary, nil
	}
	c.mu.Unlock()

	if maxChars <= 0 {
		maxChars = models.DefaultHistoryConfig().SummaryMaxChars
	}

	summary, err := c.summarizer.Summarize(ctx, older, maxChars)
	if err != nil {
		return "", err
	}
	summary = truncateRunes(summary, maxChars)

	c.mu.Lock()
	c.cache[hash] = CachedSummary{Hash: hash, Summary: summary}
	c.mu.Unlock()

	return summary, nil
}

func truncateAll(messages []models.Message, maxChars int) []models.Message {
	out := make([]models.Message, len(messages))
	for i, m := range messages {
		out[i] = m
		out[i].Content = truncateMessage(m.Content, maxChars)
	}
	return out
}

// truncateMessage keeps the first and last halves of an oversized message
// joined by an ellipsis marker, preserving both the opening context and the
// most recent detail. maxChars is a rune budget, not a byte budget, so a
// multibyte rune straddling the cut point is never split into invalid UTF-8.
func truncateMessage(content string, maxChars int) string {
	if utf8.RuneCountInString(content) <= maxChars {
		return content
	}
	runes := []rune(content)
	half := maxChars / 2
	if half <= 0 {
		return string(runes[:maxChars])
	}
	return string(runes[:half]) + "\n...[truncated]...\n" + string(runes[len(runes)-half:])
}

// truncateRunes cuts content to at most maxChars runes, never splitting a
// multibyte rune.
func truncateRunes(content string, maxChars int) string {
	if utf8.RuneCountInString(content) <= maxChars {
		return content
	}
	runes := []rune(content)
	if maxChars < 0 {
		maxChars = 0
	}
	return string(runes[:maxChars])
}

func hashMessages(messages []models.Message) string {
	var sb strings.Builder
	for _, m := range messages {
		sb.WriteString(string(m.Role))
		sb.WriteByte('\n')
		sb.WriteString(m.Content)
		sb.WriteByte('\n')
	}
	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}
