package compaction

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haasonsaas/agent-engine/pkg/models"
)

type stubSummarizer struct {
	summary string
	calls   int
}

func (s *stubSummarizer) Summarize(ctx context.Context, messages []models.Message, maxChars int) (string, error) {
	s.calls++
	return s.summary, nil
}

func msgs(n int) []models.Message {
	out := make([]models.Message, n)
	for i := range out {
		out[i] = models.Message{Role: models.RoleUser, Content: "message body"}
	}
	return out
}

func TestCompact_KeepsEverythingUnderTurnLimit(t *testing.T) {
	c := NewCompactor(nil)
	cfg := models.HistoryConfig{Turns: 20, MaxCharsPerMessage: 8000}

	result, err := c.Compact(context.Background(), msgs(5), cfg)
	require.NoError(t, err)
	assert.Len(t, result.PromptMessages, 5)
	assert.Nil(t, result.SummaryMessage)
	assert.Equal(t, 0, result.DroppedCount)
}

func TestCompact_DropsOlderTurnsWithoutSummarizer(t *testing.T) {
	c := NewCompactor(nil)
	cfg := models.HistoryConfig{Turns: 3, MaxCharsPerMessage: 8000, SummaryEnabled: true}

	result, err := c.Compact(context.Background(), msgs(10), cfg)
	require.NoError(t, err)
	assert.Len(t, result.PromptMessages, 3)
	assert.Nil(t, result.SummaryMessage)
	assert.Equal(t, 7, result.DroppedCount)
}

func TestCompact_SummarizesOlderTurnsAndCaches(t *testing.T) {
	stub := &stubSummarizer{summary: "the user asked to refactor the parser"}
	c := NewCompactor(stub)
	cfg := models.HistoryConfig{Turns: 3, MaxCharsPerMessage: 8000, SummaryEnabled: true, SummaryMaxChars: 2000}

	result, err := c.Compact(context.Background(), msgs(10), cfg)
	require.NoError(t, err)
	require.NotNil(t, result.SummaryMessage)
	assert.Contains(t, result.SummaryMessage.Content, "refactor the parser")
	assert.Len(t, result.PromptMessages, 4) // summary + 3 recent
	assert.Equal(t, 1, stub.calls)

	// Same older-message set hits the cache on a second call.
	_, err = c.Compact(context.Background(), msgs(10), cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, stub.calls)
}

func TestTruncateMessage_PreservesHeadAndTail(t *testing.T) {
	content := "0123456789"
	got := truncateMessage(content, 4)
	assert.Contains(t, got, "01")
	assert.Contains(t, got, "89")
	assert.Contains(t, got, "truncated")
}

func TestTruncateMessage_NoopWhenUnderLimit(t *testing.T) {
	assert.Equal(t, "short", truncateMessage("short", 100))
}
