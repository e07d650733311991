package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/agent-engine/internal/provider"
	"github.com/haasonsaas/agent-engine/pkg/models"
)

// DefaultSweepInterval is how often the registry checks for terminal runs
// past their retention window.
const DefaultSweepInterval = 5 * time.Minute

// DefaultRunTTL is how long a terminal run's state is kept in memory after
// it finished, giving a caller time to fetch the final snapshot before it
// is evicted.
const DefaultRunTTL = 2 * time.Hour

// StartRequest carries the fields needed to create a new run, mirroring
// the one-shot /chat and /runs/start HTTP bodies.
type StartRequest struct {
	ProviderID    string
	Intent        string
	Messages      []models.Message
	HistoryConfig *models.HistoryConfig
}

// entry pairs a Run with the lock that makes it single-writer and the
// monotonic counter its ExecutionEvents are numbered from.
//
// cancelRequested/pauseRequested/terminal are set and read without mu so
// Pause/Cancel never wait behind an in-flight Tick: mu is held for the
// entire synchronous duration of a tick, but a control operation must
// return immediately per spec (pause/cancel take effect at the run's next
// safe point, not at the caller's leisure). runCtx/runCancel is the run's
// master cancellation token, independent of any one caller's request
// context; Cancel fires it directly so an in-flight tool execution's I/O
// aborts right away instead of only being observed at the next tick
// boundary.
type entry struct {
	mu           sync.Mutex
	run          *models.Run
	eventCounter int64

	cancelRequested atomic.Bool
	pauseRequested  atomic.Bool
	terminal        atomic.Bool

	runCtx    context.Context
	runCancel context.CancelFunc
}

// tickContext derives a context for one Tick call that is cancelled when
// either ctx (the caller's request context) or the run's master token
// fires, and cleans up the watcher goroutine when the returned CancelFunc
// runs.
func (e *entry) tickContext(ctx context.Context) (context.Context, context.CancelFunc) {
	tickCtx, cancel := context.WithCancel(ctx)
	stop := make(chan struct{})
	go func() {
		select {
		case <-e.runCtx.Done():
			cancel()
		case <-stop:
		}
	}()
	return tickCtx, func() {
		close(stop)
		cancel()
	}
}

// Registry owns every in-flight Run, serializing access to each one behind
// its own lock so two HTTP requests racing to continue the same run can
// never interleave tick execution.
type Registry struct {
	mu        sync.RWMutex
	entries   map[string]*entry
	executor  *Executor
	providers map[string]provider.Adapter
	defaultID string
	ttl       time.Duration

	stopSweep chan struct{}
}

// NewRegistry builds a Registry. providers maps provider id -> adapter;
// defaultProviderID is used when a StartRequest omits ProviderID.
func NewRegistry(executor *Executor, providers map[string]provider.Adapter, defaultProviderID string) *Registry {
	return &Registry{
		entries:   make(map[string]*entry),
		executor:  executor,
		providers: providers,
		defaultID: defaultProviderID,
		ttl:       DefaultRunTTL,
		stopSweep: make(chan struct{}),
	}
}

// StartSweeper launches the background goroutine that evicts terminal runs
// older than the registry's TTL. Call Stop to end it.
func (r *Registry) StartSweeper(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.sweep()
			case <-r.stopSweep:
				return
			}
		}
	}()
}

// Stop ends the sweeper goroutine, if running.
func (r *Registry) Stop() {
	close(r.stopSweep)
}

func (r *Registry) sweep() {
	cutoff := time.Now().Add(-r.ttl)
	var expired []string

	r.mu.RLock()
	for id, e := range r.entries {
		e.mu.Lock()
		if e.run.Status.Terminal() && e.run.FinishedAt != nil && e.run.FinishedAt.Before(cutoff) {
			expired = append(expired, id)
		}
		e.mu.Unlock()
	}
	r.mu.RUnlock()

	if len(expired) == 0 {
		return
	}
	r.mu.Lock()
	for _, id := range expired {
		if e, ok := r.entries[id]; ok {
			e.runCancel()
		}
		delete(r.entries, id)
	}
	r.mu.Unlock()
}

func (r *Registry) adapterFor(providerID string) (provider.Adapter, string, error) {
	id := providerID
	if id == "" {
		id = r.defaultID
	}
	adapter, ok := r.providers[id]
	if !ok {
		return nil, id, &models.EngineError{Kind: models.ErrKindProviderBadResp, Message: "unknown provider " + id}
	}
	return adapter, id, nil
}

// CreateRun builds a new queued Run from req without executing any ticks.
func (r *Registry) CreateRun(req StartRequest) (*models.Run, error) {
	_, providerID, err := r.adapterFor(req.ProviderID)
	if err != nil {
		return nil, err
	}

	hc := models.DefaultHistoryConfig()
	if req.HistoryConfig != nil {
		hc = *req.HistoryConfig
	}

	run := &models.Run{
		RunID:         uuid.NewString(),
		Intent:        req.Intent,
		ProviderID:    providerID,
		Status:        models.RunQueued,
		Messages:      append([]models.Message(nil), req.Messages...),
		HistoryConfig: hc,
		StartedAt:     time.Now(),
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	r.mu.Lock()
	r.entries[run.RunID] = &entry{run: run, runCtx: runCtx, runCancel: runCancel}
	r.mu.Unlock()

	return snapshot(run), nil
}

// Get returns a point-in-time snapshot of a run.
func (r *Registry) Get(runID string) (*models.Run, bool) {
	e, ok := r.lookup(runID)
	if !ok {
		return nil, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return snapshot(e.run), true
}

// List returns a snapshot of every run the registry currently holds.
func (r *Registry) List() []*models.Run {
	r.mu.RLock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	out := make([]*models.Run, 0, len(ids))
	for _, id := range ids {
		if run, ok := r.Get(id); ok {
			out = append(out, run)
		}
	}
	return out
}

func (r *Registry) lookup(runID string) (*entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[runID]
	return e, ok
}

var errRunNotFound = &models.EngineError{Kind: models.ErrKindRunNotFound, Message: "run not found"}

// Start creates a run and returns its id without running a tick.
func (r *Registry) Start(req StartRequest) (string, error) {
	run, err := r.CreateRun(req)
	if err != nil {
		return "", err
	}
	return run.RunID, nil
}

// Chat implements the one-shot /chat contract: create a run and drive
// exactly one tick synchronously.
func (r *Registry) Chat(ctx context.Context, req StartRequest) (*models.AIResponse, error) {
	run, err := r.CreateRun(req)
	if err != nil {
		return nil, err
	}
	return r.Continue(ctx, run.RunID)
}

// Continue runs the next tick for runID, unless the run is already
// terminal, in which case it returns the latched result without invoking
// the planner again.
func (r *Registry) Continue(ctx context.Context, runID string) (*models.AIResponse, error) {
	e, ok := r.lookup(runID)
	if !ok {
		return nil, errRunNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.run.Status.Terminal() {
		return buildAIResponse(e.run), nil
	}

	adapter, _, err := r.adapterFor(e.run.ProviderID)
	if err != nil {
		return nil, err
	}

	// Sync the lock-free control flags onto the run before the tick reads
	// them; this is the only place they cross into the single-writer state
	// Tick operates on.
	e.run.CancelRequested = e.cancelRequested.Load()
	e.run.PauseRequested = e.pauseRequested.Load()

	tickCtx, cancelTick := e.tickContext(ctx)
	tickErr := r.executor.Tick(tickCtx, e.run, adapter, &e.eventCounter)
	cancelTick()
	e.terminal.Store(e.run.Status.Terminal())
	if tickErr != nil {
		return nil, tickErr
	}
	return buildAIResponse(e.run), nil
}

// Reply appends a user reply to a waiting_user run, marks its pending
// actions completed with the reply as output, and schedules the next tick.
func (r *Registry) Reply(ctx context.Context, runID, message string) (*models.AIResponse, error) {
	e, ok := r.lookup(runID)
	if !ok {
		return nil, errRunNotFound
	}

	e.mu.Lock()
	if e.run.Status != models.RunWaitingUser {
		status := e.run.Status
		e.mu.Unlock()
		return nil, &models.EngineError{Kind: models.ErrKindRunConflict, Message: "run is not waiting on a reply (status=" + string(status) + ")"}
	}

	e.run.Messages = append(e.run.Messages, models.Message{
		Role: models.RoleUser, Content: message, CreatedAt: time.Now(),
	})
	for _, pendingID := range e.run.PendingActionIDs {
		for i := range e.run.ActionHistory {
			if e.run.ActionHistory[i].ActionID == pendingID {
				e.run.ActionHistory[i].Status = models.ActionCompleted
				e.run.ActionHistory[i].Output = map[string]any{"reply": message}
			}
		}
	}
	e.run.PendingActionIDs = nil
	e.run.Status = models.RunRunning
	e.mu.Unlock()

	return r.Continue(ctx, runID)
}

// Pause sets the pause flag; the executor transitions the run to paused at
// its next safe point. Returns immediately without waiting for that
// transition to be observed — in particular, without waiting for an
// in-flight Tick (which may be holding e.mu for up to an action timeout) to
// finish, since the flag is stored without taking that lock.
func (r *Registry) Pause(runID string) error {
	e, ok := r.lookup(runID)
	if !ok {
		return errRunNotFound
	}
	if e.terminal.Load() {
		return &models.EngineError{Kind: models.ErrKindRunConflict, Message: "run is already terminal"}
	}
	e.pauseRequested.Store(true)
	return nil
}

// Resume clears the pause flag and moves a paused run back to running.
func (r *Registry) Resume(runID string) error {
	e, ok := r.lookup(runID)
	if !ok {
		return errRunNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.run.Status != models.RunPaused {
		return &models.EngineError{Kind: models.ErrKindRunConflict, Message: "run is not paused"}
	}
	e.pauseRequested.Store(false)
	e.run.PauseRequested = false
	e.run.Status = models.RunRunning
	e.eventCounter++
	e.run.Events = append(e.run.Events, models.ExecutionEvent{
		EventID: e.eventCounter, Type: models.EventResumed, Iteration: e.run.Iteration, At: time.Now(),
	})
	return nil
}

// Cancel sets the cancel flag and fires the run's master cancellation
// token. It returns immediately, without taking e.mu, so it is never
// blocked behind an in-flight Tick; firing runCancel aborts that tick's
// in-flight tool I/O directly (see entry.tickContext) rather than waiting
// for the next tick boundary to observe the flag.
func (r *Registry) Cancel(runID string) error {
	e, ok := r.lookup(runID)
	if !ok {
		return errRunNotFound
	}
	if e.terminal.Load() {
		return &models.EngineError{Kind: models.ErrKindRunConflict, Message: "run is already terminal"}
	}
	e.cancelRequested.Store(true)
	e.runCancel()
	return nil
}

// buildAIResponse renders the HTTP-facing AIResponse from a run's current
// state: content comes from the newest completed final_answer if any, else
// the latest batch's summary.
func buildAIResponse(run *models.Run) *models.AIResponse {
	snap := snapshot(run)

	resp := &models.AIResponse{
		RunID: snap.RunID,
		Run:   snap,
	}

	if rec := latestCompletedFinalAnswer(snap.ActionHistory); rec != nil {
		resp.Content = snap.ResultContent
		resp.FilePath = snap.ResultFilePath
		resp.FileContent = snap.ResultFileContent
		resp.Changes = snap.ResultChanges
		resp.Action = string(models.ActionFinalAnswer)
	} else if snap.LatestBatch != nil {
		resp.Content = snap.LatestBatch.Summary
	}

	if snap.LatestBatch != nil {
		resp.Plan = snap.LatestBatch
		resp.NeedsUserTrigger = snap.LatestBatch.Decision.NeedsUserTrigger

		pendingSet := make(map[string]bool, len(snap.PendingActionIDs))
		for _, id := range snap.PendingActionIDs {
			pendingSet[id] = true
		}
		for _, a := range snap.LatestBatch.Actions {
			if pendingSet[a.ActionID] {
				resp.PendingActions = append(resp.PendingActions, a)
			}
		}
	}

	return resp
}
