package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haasonsaas/agent-engine/pkg/models"
)

func TestBuildFrontiers_LinearChain(t *testing.T) {
	actions := []models.ActionSpec{
		{ActionID: "a1"},
		{ActionID: "a2", DependsOn: []string{"a1"}},
		{ActionID: "a3", DependsOn: []string{"a2"}},
	}
	frontiers, err := buildFrontiers(actions)
	require.NoError(t, err)
	require.Len(t, frontiers, 3)
	assert.Equal(t, "a1", frontiers[0][0].ActionID)
	assert.Equal(t, "a2", frontiers[1][0].ActionID)
	assert.Equal(t, "a3", frontiers[2][0].ActionID)
}

func TestBuildFrontiers_IndependentActionsShareAFrontier(t *testing.T) {
	actions := []models.ActionSpec{
		{ActionID: "a1", CanParallel: true},
		{ActionID: "a2", CanParallel: true},
		{ActionID: "a3", DependsOn: []string{"a1", "a2"}},
	}
	frontiers, err := buildFrontiers(actions)
	require.NoError(t, err)
	require.Len(t, frontiers, 2)
	assert.Len(t, frontiers[0], 2)
	assert.True(t, allParallel(frontiers[0]))
	assert.Equal(t, "a3", frontiers[1][0].ActionID)
}

func TestBuildFrontiers_PriorityOrdersWithinFrontier(t *testing.T) {
	actions := []models.ActionSpec{
		{ActionID: "low", Priority: 1},
		{ActionID: "high", Priority: 5},
		{ActionID: "mid", Priority: 3},
	}
	frontiers, err := buildFrontiers(actions)
	require.NoError(t, err)
	require.Len(t, frontiers, 1)
	ids := []string{frontiers[0][0].ActionID, frontiers[0][1].ActionID, frontiers[0][2].ActionID}
	assert.Equal(t, []string{"high", "mid", "low"}, ids)
}

func TestBuildFrontiers_DetectsCycle(t *testing.T) {
	actions := []models.ActionSpec{
		{ActionID: "a1", DependsOn: []string{"a2"}},
		{ActionID: "a2", DependsOn: []string{"a1"}},
	}
	_, err := buildFrontiers(actions)
	require.Error(t, err)
	var engErr *models.EngineError
	require.ErrorAs(t, err, &engErr)
	assert.Equal(t, models.ErrKindDependencyCycle, engErr.Kind)
}

func TestBuildFrontiers_DependsOnOutsideBatchIsIgnored(t *testing.T) {
	actions := []models.ActionSpec{
		{ActionID: "a1", DependsOn: []string{"already-completed-elsewhere"}},
	}
	frontiers, err := buildFrontiers(actions)
	require.NoError(t, err)
	require.Len(t, frontiers, 1)
	assert.Len(t, frontiers[0], 1)
}

func TestDepBlocked(t *testing.T) {
	blocked := map[string]bool{"a1": true}
	assert.True(t, depBlocked(models.ActionSpec{DependsOn: []string{"a1"}}, blocked))
	assert.False(t, depBlocked(models.ActionSpec{DependsOn: []string{"a2"}}, blocked))
}
