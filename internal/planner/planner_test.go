package planner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haasonsaas/agent-engine/internal/compaction"
	"github.com/haasonsaas/agent-engine/internal/provider"
	"github.com/haasonsaas/agent-engine/internal/toolkit"
	"github.com/haasonsaas/agent-engine/pkg/models"
)

type scriptedAdapter struct {
	id        string
	responses []string
	calls     int
}

func (a *scriptedAdapter) ID() string    { return a.id }
func (a *scriptedAdapter) Model() string { return "stub-model" }

func (a *scriptedAdapter) Chat(ctx context.Context, messages []provider.Message, opts provider.ChatOptions) (*provider.ChatResult, error) {
	idx := a.calls
	if idx >= len(a.responses) {
		idx = len(a.responses) - 1
	}
	a.calls++
	return &provider.ChatResult{Content: a.responses[idx]}, nil
}

func newPlanner() *Planner {
	return New(toolkit.NewRegistry(), compaction.NewCompactor(nil))
}

const validBatchJSON = `{
  "version": 1,
  "decision": {"mode": "continue"},
  "actions": [
    {"action_id": "a1", "type": "scan_workspace", "input": {}}
  ]
}`

func TestNextBatch_ValidOnFirstAttempt(t *testing.T) {
	p := newPlanner()
	adapter := &scriptedAdapter{id: "openai", responses: []string{validBatchJSON}}

	batch, trace, err := p.NextBatch(context.Background(), RunView{Intent: "do something"}, adapter)
	require.NoError(t, err)
	require.NotNil(t, batch)
	assert.Equal(t, 1, trace.Attempts)
	assert.Equal(t, models.DecisionContinue, batch.Decision.Mode)
	assert.Len(t, batch.Actions, 1)
}

func TestNextBatch_RepairsOnceThenSucceeds(t *testing.T) {
	p := newPlanner()
	adapter := &scriptedAdapter{id: "openai", responses: []string{
		`{"version": 1, "decision": {"mode": "continue"}, "actions": [{"action_id": "a1", "type": "not_a_real_type", "input": {}}]}`,
		validBatchJSON,
	}}

	batch, trace, err := p.NextBatch(context.Background(), RunView{Intent: "do something"}, adapter)
	require.NoError(t, err)
	require.NotNil(t, batch)
	assert.Equal(t, 2, trace.Attempts)
}

func TestNextBatch_FailsAfterExhaustingRepairs(t *testing.T) {
	p := newPlanner()
	bad := `{"version": 1, "decision": {"mode": "continue"}, "actions": [{"action_id": "a1", "type": "not_a_real_type", "input": {}}]}`
	adapter := &scriptedAdapter{id: "openai", responses: []string{bad, bad, bad}}

	batch, trace, err := p.NextBatch(context.Background(), RunView{Intent: "do something"}, adapter)
	require.Error(t, err)
	assert.Nil(t, batch)
	assert.Equal(t, maxRepairAttempts+1, trace.Attempts)

	var engErr *models.EngineError
	require.ErrorAs(t, err, &engErr)
	assert.Equal(t, models.ErrKindPlannerInvalid, engErr.Kind)
}

func TestNextBatch_DoneRequiresFinalAnswer(t *testing.T) {
	p := newPlanner()
	missingFinal := `{"version": 1, "decision": {"mode": "done"}, "actions": [{"action_id": "a1", "type": "scan_workspace", "input": {}}]}`
	adapter := &scriptedAdapter{id: "openai", responses: []string{missingFinal, missingFinal, missingFinal}}

	_, _, err := p.NextBatch(context.Background(), RunView{Intent: "finish up"}, adapter)
	require.Error(t, err)
}

func TestNextBatch_DoneSatisfiedByPriorFinalAnswer(t *testing.T) {
	p := newPlanner()
	done := `{"version": 1, "decision": {"mode": "done"}, "actions": []}`
	adapter := &scriptedAdapter{id: "openai", responses: []string{done}}

	view := RunView{
		Intent: "finish up",
		ActionHistory: []models.ActionRecord{
			{ActionID: "prev", Type: models.ActionFinalAnswer, Status: models.ActionCompleted},
		},
	}
	batch, _, err := p.NextBatch(context.Background(), view, adapter)
	require.NoError(t, err)
	assert.Equal(t, models.DecisionDone, batch.Decision.Mode)
}

func TestNextBatch_AskUserSetsNeedsUserTrigger(t *testing.T) {
	p := newPlanner()
	ask := `{"version": 1, "decision": {"mode": "ask_user"}, "actions": [{"action_id": "a1", "type": "ask_user", "input": {"question": "which file?"}}]}`
	adapter := &scriptedAdapter{id: "openai", responses: []string{ask}}

	batch, _, err := p.NextBatch(context.Background(), RunView{Intent: "ambiguous request"}, adapter)
	require.NoError(t, err)
	assert.True(t, batch.Decision.NeedsUserTrigger)
}

func TestNextBatch_RejectsDependencyCycle(t *testing.T) {
	p := newPlanner()
	cyclic := `{"version": 1, "decision": {"mode": "continue"}, "actions": [
    {"action_id": "a1", "type": "scan_workspace", "input": {}, "depends_on": ["a2"]},
    {"action_id": "a2", "type": "scan_workspace", "input": {}, "depends_on": ["a1"]}
  ]}`
	adapter := &scriptedAdapter{id: "openai", responses: []string{cyclic, cyclic, cyclic}}

	_, _, err := p.NextBatch(context.Background(), RunView{Intent: "cycle"}, adapter)
	require.Error(t, err)
}

func TestFindCycle_NoCycleAmongIndependentActions(t *testing.T) {
	actions := []models.ActionSpec{
		{ActionID: "a1", DependsOn: nil},
		{ActionID: "a2", DependsOn: []string{"a1"}},
		{ActionID: "a3", DependsOn: []string{"a1", "a2"}},
	}
	assert.Empty(t, findCycle(actions))
}
