// Package models holds the data types shared between the agent orchestration
// engine and its callers: runs, action batches, execution events, and file
// changes. These types are deliberately plain data (no behavior) so they can
// be marshaled to JSON for the HTTP surface and copied freely for snapshots.
package models

import "time"

// RunStatus is the closed set of states a Run can occupy.
type RunStatus string

const (
	RunQueued      RunStatus = "queued"
	RunRunning     RunStatus = "running"
	RunWaitingUser RunStatus = "waiting_user"
	RunPaused      RunStatus = "paused"
	RunCompleted   RunStatus = "completed"
	RunFailed      RunStatus = "failed"
	RunCancelled   RunStatus = "cancelled"
	RunBlocked     RunStatus = "blocked"
)

// Terminal reports whether status is one the executor will never leave.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunCompleted, RunFailed, RunCancelled:
		return true
	default:
		return false
	}
}

// MessageRole mirrors the roles accepted by the provider adapter.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Snippet is a user-attached excerpt of a file carried as extra context on a
// user message.
type Snippet struct {
	FilePath  string `json:"file_path"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	Content   string `json:"content"`
}

// Message is one entry in a Run's canonical conversation.
type Message struct {
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	Snippets  []Snippet   `json:"snippets,omitempty"`
	ChatOnly  bool        `json:"chat_only,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// HistoryConfig bounds the conversational context fed to the LLM on each
// planner call. See internal/compaction.
type HistoryConfig struct {
	Turns              int  `json:"turns"`
	MaxCharsPerMessage int  `json:"max_chars_per_message"`
	SummaryEnabled     bool `json:"summary_enabled"`
	SummaryMaxChars    int  `json:"summary_max_chars"`
}

// DefaultHistoryConfig returns the engine's default compaction policy.
func DefaultHistoryConfig() HistoryConfig {
	return HistoryConfig{
		Turns:              20,
		MaxCharsPerMessage: 8000,
		SummaryEnabled:     true,
		SummaryMaxChars:    2000,
	}
}

// ActionRecord is the immutable-index, mutable-status record of one executed
// action. Its slot in Run.ActionHistory never changes once appended; only
// its Status/Output/Error/Artifacts fields are rewritten as execution
// progresses (queued -> running -> completed|failed).
type ActionRecord struct {
	Iteration    int             `json:"iteration"`
	ActionID     string          `json:"action_id"`
	Type         ActionType      `json:"type"`
	Title        string          `json:"title,omitempty"`
	Status       ActionStatus    `json:"status"`
	Input        any             `json:"input,omitempty"`
	Output       any             `json:"output,omitempty"`
	Artifacts    []string        `json:"artifacts,omitempty"`
	Error        *EngineError    `json:"error,omitempty"`
	Attempts     int             `json:"attempts"`
	StartedAt    *time.Time      `json:"started_at,omitempty"`
	FinishedAt   *time.Time      `json:"finished_at,omitempty"`
	FileChange   *FileChange     `json:"file_change,omitempty"`
	CommandOut   *CommandOutput  `json:"command_output,omitempty"`
}

// ActionStatus is the closed set of states an individual action passes
// through during one tick.
type ActionStatus string

const (
	ActionQueued    ActionStatus = "queued"
	ActionRunning   ActionStatus = "running"
	ActionCompleted ActionStatus = "completed"
	ActionFailed    ActionStatus = "failed"
	ActionSkipped   ActionStatus = "skipped"
	ActionCancelled ActionStatus = "cancelled"
)

// Run is the server-side object tracking one user intent end to end. It is
// owned by the run registry, mutated exclusively by its executor goroutine,
// and inspected by any caller under a read lock (see internal/engine.Run for
// the lock-guarded wrapper; this type is the plain-data snapshot shape).
type Run struct {
	RunID      string    `json:"run_id"`
	Intent     string    `json:"intent"`
	ProviderID string    `json:"provider_id"`
	Status     RunStatus `json:"status"`

	Iteration  int `json:"iteration"`
	MaxRetries int `json:"max_retries"`

	Messages      []Message     `json:"messages"`
	HistoryConfig HistoryConfig `json:"history_config"`

	ActionHistory     []ActionRecord `json:"action_history"`
	LatestBatch       *ActionBatch   `json:"latest_batch,omitempty"`
	PendingActionIDs  []string       `json:"pending_action_ids,omitempty"`
	ActiveActionID    string         `json:"active_action_id,omitempty"`

	Events []ExecutionEvent `json:"events"`

	ResultContent     string       `json:"result_content,omitempty"`
	ResultFilePath    string       `json:"result_file_path,omitempty"`
	ResultFileContent string       `json:"result_file_content,omitempty"`
	ResultChanges     []FileChange `json:"result_changes,omitempty"`

	PauseRequested  bool `json:"pause_requested"`
	CancelRequested bool `json:"cancel_requested"`

	// Error is set when Status is failed (or, transiently, blocked),
	// carrying the terminal reason the HTTP surface reports to callers.
	Error *EngineError `json:"error,omitempty"`

	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// AIResponse is returned by every run-driving HTTP operation: the one-shot
// /ai/chat endpoint, /runs/{id}/continue, and /runs/{id}/reply.
type AIResponse struct {
	Content          string         `json:"content"`
	Action           string         `json:"action,omitempty"`
	FilePath         string         `json:"file_path,omitempty"`
	FileContent      string         `json:"file_content,omitempty"`
	Plan             *ActionBatch   `json:"plan,omitempty"`
	Changes          []FileChange   `json:"changes,omitempty"`
	Run              *Run           `json:"run,omitempty"`
	RunID            string         `json:"run_id,omitempty"`
	NeedsUserTrigger bool           `json:"needs_user_trigger,omitempty"`
	PendingActions   []ActionSpec   `json:"pending_actions,omitempty"`
}

// PlanRunInfo is the full snapshot returned by GET /ai/runs/{id}.
type PlanRunInfo struct {
	Run
}
