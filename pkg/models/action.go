package models

// ActionType is the closed set of tool operations the planner may emit. The
// registry in internal/engine rejects any ActionSpec whose Type is not in
// this set before it ever reaches a tool implementation.
type ActionType string

const (
	ActionScanWorkspace     ActionType = "scan_workspace"
	ActionReadFiles         ActionType = "read_files"
	ActionSearchCode        ActionType = "search_code"
	ActionExtractSymbols    ActionType = "extract_symbols"
	ActionAnalyzeDeps       ActionType = "analyze_dependencies"
	ActionSummarizeContext  ActionType = "summarize_context"
	ActionProposeSubplan    ActionType = "propose_subplan"
	ActionCreateFile        ActionType = "create_file"
	ActionUpdateFile        ActionType = "update_file"
	ActionDeleteFile        ActionType = "delete_file"
	ActionMoveFile          ActionType = "move_file"
	ActionApplyPatch        ActionType = "apply_patch"
	ActionRunCommand        ActionType = "run_command"
	ActionRunTests          ActionType = "run_tests"
	ActionRunLint           ActionType = "run_lint"
	ActionRunBuild          ActionType = "run_build"
	ActionValidateResult    ActionType = "validate_result"
	ActionAskUser           ActionType = "ask_user"
	ActionRequestApproval   ActionType = "request_approval"
	ActionFinalAnswer       ActionType = "final_answer"
	ActionReportBlocker     ActionType = "report_blocker"
)

// ReadOnlyActionTypes execute without a request_approval gate and may run in
// parallel with any other read-only action in the same frontier.
var ReadOnlyActionTypes = map[ActionType]bool{
	ActionScanWorkspace:    true,
	ActionReadFiles:        true,
	ActionSearchCode:       true,
	ActionExtractSymbols:   true,
	ActionAnalyzeDeps:      true,
	ActionSummarizeContext: true,
	ActionProposeSubplan:   true,
	ActionValidateResult:   true,
}

// MutatingActionTypes touch the workspace or run a subprocess; the executor
// never runs two of these concurrently against overlapping paths.
var MutatingActionTypes = map[ActionType]bool{
	ActionCreateFile: true,
	ActionUpdateFile: true,
	ActionDeleteFile: true,
	ActionMoveFile:   true,
	ActionApplyPatch: true,
	ActionRunCommand: true,
	ActionRunTests:   true,
	ActionRunLint:    true,
	ActionRunBuild:   true,
}

// TerminalActionTypes end the run's current batch the moment they complete;
// the executor will not schedule any sibling action after one of these.
var TerminalActionTypes = map[ActionType]bool{
	ActionAskUser:         true,
	ActionRequestApproval: true,
	ActionFinalAnswer:     true,
	ActionReportBlocker:   true,
}

// ActionSpec is one planner-emitted unit of work inside an ActionBatch.
type ActionSpec struct {
	ActionID        string         `json:"action_id"`
	Type            ActionType     `json:"type"`
	Title           string         `json:"title,omitempty"`
	Reason          string         `json:"reason,omitempty"`
	Input           map[string]any `json:"input"`
	DependsOn       []string       `json:"depends_on,omitempty"`
	CanParallel     bool           `json:"can_parallel"`
	Priority        int            `json:"priority,omitempty"`
	TimeoutSec      int            `json:"timeout_sec,omitempty"`
	MaxRetries      int            `json:"max_retries,omitempty"`
	SuccessCriteria []string       `json:"success_criteria,omitempty"`
	Artifacts       []string       `json:"artifacts,omitempty"`
}

// Critical reports whether a's failure must terminate the run: writes,
// final_answer, and report_blocker are critical; read-only and ask/approval
// actions are not.
func (a ActionSpec) Critical() bool {
	return MutatingActionTypes[a.Type] || a.Type == ActionFinalAnswer || a.Type == ActionReportBlocker
}

// DecisionMode is the planner's verdict on what should happen after this
// batch executes.
type DecisionMode string

const (
	DecisionContinue DecisionMode = "continue"
	DecisionAskUser  DecisionMode = "ask_user"
	DecisionDone     DecisionMode = "done"
	DecisionBlocked  DecisionMode = "blocked"
)

// Decision carries the planner's continue/ask_user/done/blocked verdict.
type Decision struct {
	Mode               DecisionMode `json:"mode"`
	Reason             string       `json:"reason,omitempty"`
	NeedsUserTrigger   bool         `json:"needs_user_trigger,omitempty"`
	SatisfactionScore  *float64     `json:"satisfaction_score,omitempty"`
}

// ActionBatch is the planner's full response to one tick.
type ActionBatch struct {
	Version       int          `json:"version"`
	Iteration     int          `json:"iteration"`
	Summary       string       `json:"summary,omitempty"`
	Decision      Decision     `json:"decision"`
	Actions       []ActionSpec `json:"actions"`
	Acceptance    []string     `json:"acceptance,omitempty"`
	Risks         []string     `json:"risks,omitempty"`
	NextQuestions []string     `json:"next_questions,omitempty"`
}

// ActionBatchJSONSchema is the JSON Schema instruction embedded in every
// planner prompt and used by internal/planner to validate the model's raw
// response before it is unmarshaled into an ActionBatch.
const ActionBatchJSONSchema = `{
  "type": "object",
  "required": ["version", "decision", "actions"],
  "additionalProperties": false,
  "properties": {
    "version": { "type": "integer", "minimum": 1 },
    "iteration": { "type": "integer", "minimum": 0 },
    "summary": { "type": "string" },
    "decision": {
      "type": "object",
      "required": ["mode"],
      "additionalProperties": false,
      "properties": {
        "mode": { "type": "string", "enum": ["continue", "ask_user", "done", "blocked"] },
        "reason": { "type": "string" },
        "needs_user_trigger": { "type": "boolean" },
        "satisfaction_score": { "type": "number", "minimum": 0, "maximum": 1 }
      }
    },
    "actions": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["action_id", "type", "input"],
        "additionalProperties": false,
        "properties": {
          "action_id": { "type": "string", "minLength": 1 },
          "type": {
            "type": "string",
            "enum": [
              "scan_workspace", "read_files", "search_code", "extract_symbols",
              "analyze_dependencies", "summarize_context", "propose_subplan",
              "create_file", "update_file", "delete_file", "move_file",
              "apply_patch", "run_command", "run_tests", "run_lint", "run_build",
              "validate_result", "ask_user", "request_approval", "final_answer",
              "report_blocker"
            ]
          },
          "title": { "type": "string" },
          "reason": { "type": "string" },
          "input": { "type": "object" },
          "depends_on": { "type": "array", "items": { "type": "string" } },
          "can_parallel": { "type": "boolean" },
          "priority": { "type": "integer" },
          "timeout_sec": { "type": "integer", "minimum": 0 },
          "max_retries": { "type": "integer", "minimum": 0 },
          "success_criteria": { "type": "array", "items": { "type": "string" } },
          "artifacts": { "type": "array", "items": { "type": "string" } }
        }
      }
    },
    "acceptance": { "type": "array", "items": { "type": "string" } },
    "risks": { "type": "array", "items": { "type": "string" } },
    "next_questions": { "type": "array", "items": { "type": "string" } }
  }
}`
