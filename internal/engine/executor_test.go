package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haasonsaas/agent-engine/internal/compaction"
	"github.com/haasonsaas/agent-engine/internal/planner"
	"github.com/haasonsaas/agent-engine/internal/provider"
	"github.com/haasonsaas/agent-engine/internal/toolkit"
	"github.com/haasonsaas/agent-engine/internal/workspace"
	"github.com/haasonsaas/agent-engine/pkg/models"
)

type fakeAdapter struct {
	id        string
	responses []string
	calls     int
}

func (a *fakeAdapter) ID() string    { return a.id }
func (a *fakeAdapter) Model() string { return "fake-model" }

func (a *fakeAdapter) Chat(ctx context.Context, messages []provider.Message, opts provider.ChatOptions) (*provider.ChatResult, error) {
	idx := a.calls
	if idx >= len(a.responses) {
		idx = len(a.responses) - 1
	}
	a.calls++
	return &provider.ChatResult{Content: a.responses[idx]}, nil
}

func newTestExecutor(t *testing.T) *Executor {
	t.Helper()
	fs := workspace.NewFS(t.TempDir())
	reg := toolkit.NewRegistry()
	plnr := planner.New(reg, compaction.NewCompactor(nil))
	return NewExecutor(reg, fs, plnr, NewPool(4))
}

func TestTick_CompletesOnDoneWithFinalAnswer(t *testing.T) {
	exec := newTestExecutor(t)
	adapter := &fakeAdapter{id: "openai", responses: []string{
		`{"version":1,"decision":{"mode":"done"},"actions":[
		  {"action_id":"a1","type":"final_answer","input":{"content":"all done"}}
		]}`,
	}}

	run := &models.Run{RunID: "r1", Status: models.RunQueued, Intent: "do a thing", HistoryConfig: models.DefaultHistoryConfig()}
	var counter int64

	err := exec.Tick(context.Background(), run, adapter, &counter)
	require.NoError(t, err)
	assert.Equal(t, models.RunCompleted, run.Status)
	assert.Equal(t, "all done", run.ResultContent)
	assert.NotNil(t, run.FinishedAt)
	assert.NotEmpty(t, run.ActionHistory)
	assert.Equal(t, models.ActionCompleted, run.ActionHistory[0].Status)
}

func TestTick_SuspendsOnAskUser(t *testing.T) {
	exec := newTestExecutor(t)
	adapter := &fakeAdapter{id: "openai", responses: []string{
		`{"version":1,"decision":{"mode":"ask_user"},"actions":[
		  {"action_id":"a1","type":"ask_user","input":{"question":"which file?"}}
		]}`,
	}}

	run := &models.Run{RunID: "r2", Status: models.RunQueued, Intent: "ambiguous", HistoryConfig: models.DefaultHistoryConfig()}
	var counter int64

	err := exec.Tick(context.Background(), run, adapter, &counter)
	require.NoError(t, err)
	assert.Equal(t, models.RunWaitingUser, run.Status)
	assert.Equal(t, []string{"a1"}, run.PendingActionIDs)
}

func TestTick_CriticalActionFailureFailsRun(t *testing.T) {
	exec := newTestExecutor(t)
	adapter := &fakeAdapter{id: "openai", responses: []string{
		`{"version":1,"decision":{"mode":"continue"},"actions":[
		  {"action_id":"a1","type":"update_file","input":{"path":"does/not/exist.txt","content":"x"}}
		]}`,
	}}

	run := &models.Run{RunID: "r3", Status: models.RunQueued, Intent: "edit a missing file", HistoryConfig: models.DefaultHistoryConfig()}
	var counter int64

	err := exec.Tick(context.Background(), run, adapter, &counter)
	require.NoError(t, err)
	assert.Equal(t, models.RunFailed, run.Status)
	require.NotNil(t, run.Error)
	assert.NotNil(t, run.FinishedAt)
}

func TestTick_CancelRequestedShortCircuits(t *testing.T) {
	exec := newTestExecutor(t)
	adapter := &fakeAdapter{id: "openai", responses: []string{`{"version":1,"decision":{"mode":"continue"},"actions":[]}`}}

	run := &models.Run{RunID: "r4", Status: models.RunRunning, CancelRequested: true, HistoryConfig: models.DefaultHistoryConfig()}
	var counter int64

	err := exec.Tick(context.Background(), run, adapter, &counter)
	require.NoError(t, err)
	assert.Equal(t, models.RunCancelled, run.Status)
	assert.Equal(t, 0, adapter.calls)
}

func TestTick_EventIDsAreMonotonic(t *testing.T) {
	exec := newTestExecutor(t)
	adapter := &fakeAdapter{id: "openai", responses: []string{
		`{"version":1,"decision":{"mode":"continue"},"actions":[
		  {"action_id":"a1","type":"scan_workspace","input":{}}
		]}`,
	}}

	run := &models.Run{RunID: "r5", Status: models.RunQueued, HistoryConfig: models.DefaultHistoryConfig()}
	var counter int64

	require.NoError(t, exec.Tick(context.Background(), run, adapter, &counter))
	require.True(t, len(run.Events) >= 2)
	for i := 1; i < len(run.Events); i++ {
		assert.Greater(t, run.Events[i].EventID, run.Events[i-1].EventID)
	}
}
