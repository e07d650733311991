// Package planner turns a Run's current state into the next ActionBatch by
// prompting a Provider Adapter and validating its JSON response against the
// ActionBatch schema plus a set of hand-written dependency-graph checks.
package planner

import "github.com/haasonsaas/agent-engine/pkg/models"

// RunView is the read-only slice of a Run the planner needs to build its
// prompt. It exists so the planner package never takes a *models.Run
// pointer and cannot mutate run state directly; internal/engine is the only
// package allowed to do that.
type RunView struct {
	RunID         string
	Intent        string
	ProviderID    string
	Iteration     int
	Messages      []models.Message
	HistoryConfig models.HistoryConfig
	ActionHistory []models.ActionRecord
	LatestBatch   *models.ActionBatch
}

// ViewOf extracts a RunView from a Run snapshot.
func ViewOf(run *models.Run) RunView {
	return RunView{
		RunID:         run.RunID,
		Intent:        run.Intent,
		ProviderID:    run.ProviderID,
		Iteration:     run.Iteration,
		Messages:      run.Messages,
		HistoryConfig: run.HistoryConfig,
		ActionHistory: run.ActionHistory,
		LatestBatch:   run.LatestBatch,
	}
}

// hasPriorFinalAnswer reports whether any earlier action record is a
// completed final_answer, satisfying a `done` decision without requiring a
// fresh final_answer action in the current batch.
func (v RunView) hasPriorFinalAnswer() bool {
	for _, rec := range v.ActionHistory {
		if rec.Type == models.ActionFinalAnswer && rec.Status == models.ActionCompleted {
			return true
		}
	}
	return false
}

// completedActionIDs is the set of action ids the executor has already
// resolved, the other valid target for a depends_on reference besides an
// id within the current batch.
func (v RunView) completedActionIDs() map[string]bool {
	out := make(map[string]bool, len(v.ActionHistory))
	for _, rec := range v.ActionHistory {
		if rec.Status == models.ActionCompleted {
			out[rec.ActionID] = true
		}
	}
	return out
}
