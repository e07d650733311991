// Package engine implements the Run Executor state machine: it drives a
// Run from creation to a terminal state by repeatedly calling the planner,
// scheduling the resulting ActionBatch against the tool registry with
// dependency-aware, cancellation-aware concurrency, and folding results
// back into the run's history and event log.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/haasonsaas/agent-engine/internal/observability"
	"github.com/haasonsaas/agent-engine/internal/planner"
	"github.com/haasonsaas/agent-engine/internal/provider"
	"github.com/haasonsaas/agent-engine/internal/retry"
	"github.com/haasonsaas/agent-engine/internal/toolkit"
	"github.com/haasonsaas/agent-engine/internal/workspace"
	"github.com/haasonsaas/agent-engine/pkg/models"
)

// defaultActionTimeout bounds any action whose ActionSpec did not set a
// positive timeout_sec, so a misbehaving tool or runaway command can never
// hang a run forever.
const defaultActionTimeout = 120 * time.Second

// Executor runs single ticks against a Run. It holds only shared, read-only
// collaborators; all per-run mutable state lives on the *models.Run passed
// into Tick, and Tick itself must only ever be called by the single
// goroutine that owns that run (see Registry).
type Executor struct {
	tools   *toolkit.Registry
	fs      *workspace.FS
	planner *planner.Planner
	pool    *Pool
	metrics *observability.Metrics
}

// NewExecutor builds an Executor sharing tools, fs, and planner across every
// run the process drives.
func NewExecutor(tools *toolkit.Registry, fs *workspace.FS, plnr *planner.Planner, pool *Pool) *Executor {
	if pool == nil {
		pool = NewPool(DefaultConcurrency)
	}
	return &Executor{tools: tools, fs: fs, planner: plnr, pool: pool}
}

// SetMetrics attaches a Metrics sink. Nil (the default) disables recording;
// every recording call site checks e.metrics before touching it so metrics
// collection is entirely optional for callers that don't run a /metrics
// endpoint.
func (e *Executor) SetMetrics(m *observability.Metrics) {
	e.metrics = m
}

// Tick runs exactly one planner+execute cycle against run, per spec's
// per-tick algorithm. It mutates run in place and returns nil even when the
// run transitions to a failed/cancelled state — the failure is recorded on
// run.Error and run.Status, not returned as a Go error, since a failed run
// is an expected terminal outcome rather than a call-site error.
func (e *Executor) Tick(ctx context.Context, run *models.Run, adapter provider.Adapter, counter *int64) error {
	if e.metrics != nil {
		start := time.Now()
		defer func() { e.metrics.RecordTick(time.Since(start).Seconds()) }()
	}

	if run.CancelRequested {
		e.transitionCancelled(run, counter)
		return nil
	}
	if run.PauseRequested && run.ActiveActionID == "" {
		run.Status = models.RunPaused
		e.recordRunStatus(run.Status)
		e.appendEvent(run, counter, models.EventPaused, "", "")
		return nil
	}
	if run.Status == models.RunQueued {
		run.Status = models.RunRunning
		e.recordRunStatus(run.Status)
		e.appendEvent(run, counter, models.EventRunStarted, "", "")
	}

	run.Iteration++
	view := planner.ViewOf(run)

	batch, trace, err := e.planner.NextBatch(ctx, view, adapter)
	if trace != nil && e.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		e.metrics.RecordLLMRequest(trace.ProviderID, trace.Model, status,
			float64(trace.ElapsedMs)/1000, trace.Usage.PromptTokens, trace.Usage.CompletionTokens)
	}
	if err != nil {
		e.failRun(run, counter, err)
		return nil
	}
	run.LatestBatch = batch
	e.appendEvent(run, counter, models.EventPlanReceived, "", batch.Summary, map[string]any{
		"stage":    "planning",
		"status":   "completed",
		"attempts": trace.Attempts,
		"llm": map[string]any{
			"provider":   trace.ProviderID,
			"model":      trace.Model,
			"elapsed_ms": trace.ElapsedMs,
			"tokens":     trace.Usage,
		},
	})

	frontiers, err := buildFrontiers(batch.Actions)
	if err != nil {
		e.failRun(run, counter, err)
		return nil
	}

	blocked := make(map[string]bool)
	for _, frontier := range frontiers {
		runnable := make([]models.ActionSpec, 0, len(frontier))
		for _, a := range frontier {
			if depBlocked(a, blocked) {
				rec := models.ActionRecord{
					Iteration: run.Iteration,
					ActionID:  a.ActionID,
					Type:      a.Type,
					Title:     a.Title,
					Input:     a.Input,
					Status:    models.ActionSkipped,
				}
				run.ActionHistory = append(run.ActionHistory, rec)
				blocked[a.ActionID] = true
				continue
			}
			runnable = append(runnable, a)
		}
		if len(runnable) == 0 {
			continue
		}

		results := make([]models.ActionRecord, len(runnable))
		if allParallel(runnable) {
			// Actions in a parallel frontier run concurrently, so no single
			// action id can describe "the" active one; ActiveActionID is left
			// untouched (it stays "" between frontiers, which is what the
			// pause-safe-point check below needs).
			e.pool.RunAll(ctx, len(runnable), func(actx context.Context, i int) {
				results[i] = e.runAction(actx, run, counter, runnable[i])
			})
		} else {
			for i, a := range runnable {
				run.ActiveActionID = a.ActionID
				results[i] = e.runAction(ctx, run, counter, a)
				run.ActiveActionID = ""
			}
		}

		suspended := false
		for i, rec := range results {
			run.ActionHistory = append(run.ActionHistory, rec)

			if rec.Status == models.ActionFailed {
				blocked[rec.ActionID] = true
				if runnable[i].Critical() {
					run.Status = models.RunFailed
					run.Error = rec.Error
					e.recordRunStatus(run.Status)
					e.finish(run)
					e.appendEvent(run, counter, models.EventRunFailed, rec.ActionID, "critical action failed")
					return nil
				}
				continue
			}

			if rec.Status != models.ActionCompleted {
				continue
			}

			switch runnable[i].Type {
			case models.ActionAskUser, models.ActionRequestApproval:
				run.Status = models.RunWaitingUser
				run.PendingActionIDs = append(run.PendingActionIDs, rec.ActionID)
				e.recordRunStatus(run.Status)
				e.appendEvent(run, counter, models.EventWaitingUser, rec.ActionID, "")
				suspended = true
			case models.ActionReportBlocker:
				run.Status = models.RunBlocked
				run.ResultContent = blockerReason(rec.Output)
				e.recordRunStatus(run.Status)
				e.appendEvent(run, counter, models.EventRunBlocked, rec.ActionID, "")
				suspended = true
			}
		}

		if suspended {
			return nil
		}
		if ctx.Err() != nil {
			e.transitionCancelled(run, counter)
			return nil
		}
		if run.CancelRequested {
			e.transitionCancelled(run, counter)
			return nil
		}
		if run.PauseRequested && run.ActiveActionID == "" {
			run.Status = models.RunPaused
			e.recordRunStatus(run.Status)
			e.appendEvent(run, counter, models.EventPaused, "", "")
			return nil
		}
	}

	if batch.Decision.Mode == models.DecisionDone {
		if rec := latestCompletedFinalAnswer(run.ActionHistory); rec != nil {
			applyFinalAnswer(run, rec)
			run.Status = models.RunCompleted
			e.recordRunStatus(run.Status)
			e.finish(run)
			e.appendEvent(run, counter, models.EventRunCompleted, rec.ActionID, "")
		}
	}

	return nil
}

func (e *Executor) transitionCancelled(run *models.Run, counter *int64) {
	run.Status = models.RunCancelled
	e.recordRunStatus(run.Status)
	e.finish(run)
	e.appendEvent(run, counter, models.EventCancelled, "", "")
}

func (e *Executor) failRun(run *models.Run, counter *int64, err error) {
	run.Status = models.RunFailed
	e.recordRunStatus(run.Status)
	e.finish(run)

	var engErr *models.EngineError
	if errors.As(err, &engErr) {
		run.Error = engErr
	} else {
		run.Error = &models.EngineError{Kind: models.ErrKindInternal, Message: err.Error()}
	}
	if e.metrics != nil {
		e.metrics.RecordError("executor", string(run.Error.Kind))
	}
	e.appendEvent(run, counter, models.EventRunFailed, "", run.Error.Error())
}

// recordRunStatus is a nil-safe wrapper so call sites don't need to guard on
// e.metrics themselves.
func (e *Executor) recordRunStatus(status models.RunStatus) {
	if e.metrics != nil {
		e.metrics.RecordRunStatus(string(status))
	}
}

func (e *Executor) finish(run *models.Run) {
	now := time.Now()
	run.FinishedAt = &now
}

func (e *Executor) appendEvent(run *models.Run, counter *int64, typ models.ExecutionEventType, actionID, message string, data ...any) {
	*counter++
	evt := models.ExecutionEvent{
		EventID:   *counter,
		Type:      typ,
		Iteration: run.Iteration,
		ActionID:  actionID,
		Message:   message,
		At:        time.Now(),
	}
	if len(data) > 0 {
		evt.Data = data[0]
	}
	run.Events = append(run.Events, evt)
}

// runAction executes one action to completion or exhaustion of its
// retries, enforcing its timeout and appending queued/started/completed/
// failed/retrying events as it goes.
func (e *Executor) runAction(ctx context.Context, run *models.Run, counter *int64, action models.ActionSpec) models.ActionRecord {
	e.appendEvent(run, counter, models.EventActionQueued, action.ActionID, "")

	tool, err := e.tools.Get(action.Type)
	if err != nil {
		if e.metrics != nil {
			e.metrics.RecordError("executor", string(models.ErrKindToolNotFound))
		}
		e.appendEvent(run, counter, models.EventActionFailed, action.ActionID, err.Error())
		return models.ActionRecord{
			Iteration: run.Iteration,
			ActionID:  action.ActionID,
			Type:      action.Type,
			Title:     action.Title,
			Status:    models.ActionFailed,
			Error:     &models.EngineError{Kind: models.ErrKindToolNotFound, Message: err.Error()},
		}
	}

	timeout := time.Duration(action.TimeoutSec) * time.Second
	if action.TimeoutSec <= 0 {
		timeout = defaultActionTimeout
	}

	started := time.Now()
	e.appendEvent(run, counter, models.EventActionStarted, action.ActionID, "")

	maxAttempts := action.MaxRetries + 1
	var output any
	var lastErr error
	attempts := 0

	for attempts = 1; attempts <= maxAttempts; attempts++ {
		actx, cancel := context.WithTimeout(ctx, timeout)
		out, execErr := tool.Execute(actx, e.fs, action.Input)
		cancel()

		if execErr == nil {
			output = out
			lastErr = nil
			break
		}
		lastErr = classifyActionError(actx, execErr)

		var toolErr *toolkit.Error
		retryable := errors.As(lastErr, &toolErr) && toolErr.Retryable
		if ctx.Err() != nil || attempts >= maxAttempts || !retryable {
			break
		}
		e.appendEvent(run, counter, models.EventActionRetrying, action.ActionID, lastErr.Error())
		backoff := retry.BackoffWithJitter(attempts, 250*time.Millisecond, 5*time.Second, 2)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
		}
	}

	finished := time.Now()
	if e.metrics != nil {
		status := "success"
		if lastErr != nil {
			status = "error"
		}
		e.metrics.RecordToolExecution(action.Type, status, finished.Sub(started).Seconds())
	}
	rec := models.ActionRecord{
		Iteration:  run.Iteration,
		ActionID:   action.ActionID,
		Type:       action.Type,
		Title:      action.Title,
		Input:      action.Input,
		Attempts:   attempts,
		StartedAt:  &started,
		FinishedAt: &finished,
	}

	if lastErr == nil {
		rec.Status = models.ActionCompleted
		rec.Output = output
		applyTypedOutput(&rec, output)
		e.appendEvent(run, counter, models.EventActionCompleted, action.ActionID, "")
		return rec
	}

	rec.Status = models.ActionFailed
	var toolErr *toolkit.Error
	if errors.As(lastErr, &toolErr) {
		rec.Error = toolErr.AsEngineError(attempts)
	} else {
		rec.Error = &models.EngineError{Kind: models.ErrKindInternal, Message: lastErr.Error(), Attempts: attempts}
	}
	e.appendEvent(run, counter, models.EventActionFailed, action.ActionID, rec.Error.Error())
	return rec
}

// classifyActionError maps a per-call context timeout/cancellation onto the
// tool error taxonomy when the tool implementation did not already do so
// itself (a defensive backstop; every current Tool already returns a typed
// *toolkit.Error for these cases).
func classifyActionError(actx context.Context, err error) error {
	if actx.Err() == context.DeadlineExceeded {
		var toolErr *toolkit.Error
		if errors.As(err, &toolErr) {
			return err
		}
		return &toolkit.Error{Kind: models.ErrKindToolTimeout, Message: "action exceeded timeout_sec", Retryable: true}
	}
	return err
}

// applyTypedOutput copies a tool's typed output (FileChange, CommandOutput)
// onto the dedicated ActionRecord fields so callers don't need to type-
// switch on Output themselves.
func applyTypedOutput(rec *models.ActionRecord, output any) {
	switch v := output.(type) {
	case *models.FileChange:
		rec.FileChange = v
	case *models.CommandOutput:
		rec.CommandOut = v
	}
}

func latestCompletedFinalAnswer(history []models.ActionRecord) *models.ActionRecord {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Type == models.ActionFinalAnswer && history[i].Status == models.ActionCompleted {
			return &history[i]
		}
	}
	return nil
}

func applyFinalAnswer(run *models.Run, rec *models.ActionRecord) {
	out, ok := rec.Output.(map[string]any)
	if !ok {
		return
	}
	if content, ok := out["content"].(string); ok {
		run.ResultContent = content
	}
	if fp, ok := out["file_path"].(string); ok {
		run.ResultFilePath = fp
	}
	if fc, ok := out["file_content"].(string); ok {
		run.ResultFileContent = fc
	}
	if changes, ok := out["changes"].([]models.FileChange); ok {
		run.ResultChanges = changes
	}
}

func blockerReason(output any) string {
	out, ok := output.(map[string]any)
	if !ok {
		return ""
	}
	reason, _ := out["reason"].(string)
	return reason
}
