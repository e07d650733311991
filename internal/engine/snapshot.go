package engine

import "github.com/haasonsaas/agent-engine/pkg/models"

// snapshot deep-copies run so callers (HTTP handlers, the one-shot /chat
// response) can read and serialize it without racing the executor
// goroutine that keeps mutating the original after the lock is released.
func snapshot(run *models.Run) *models.Run {
	out := *run

	out.Messages = append([]models.Message(nil), run.Messages...)
	out.ActionHistory = append([]models.ActionRecord(nil), run.ActionHistory...)
	out.Events = append([]models.ExecutionEvent(nil), run.Events...)
	out.PendingActionIDs = append([]string(nil), run.PendingActionIDs...)
	out.ResultChanges = append([]models.FileChange(nil), run.ResultChanges...)

	if run.LatestBatch != nil {
		batch := *run.LatestBatch
		batch.Actions = append([]models.ActionSpec(nil), run.LatestBatch.Actions...)
		out.LatestBatch = &batch
	}
	if run.Error != nil {
		errCopy := *run.Error
		out.Error = &errCopy
	}
	if run.FinishedAt != nil {
		t := *run.FinishedAt
		out.FinishedAt = &t
	}

	return &out
}
