package toolkit

import (
	"context"
	"strings"

	"github.com/haasonsaas/agent-engine/internal/workspace"
	"github.com/haasonsaas/agent-engine/pkg/models"
)

// ValidateResultTool checks free-form evidence against a list of criteria
// and reports which ones failed. It performs no I/O itself; the planner
// supplies both criteria and evidence gathered from earlier actions.
type ValidateResultTool struct{}

func (t *ValidateResultTool) Name() models.ActionType { return models.ActionValidateResult }

func (t *ValidateResultTool) Schema() string {
	return `{"type":"object","required":["criteria"],"properties":{
  "criteria":{"type":"array","items":{"type":"string"},"minItems":1},
  "evidence":{"type":"string"}
}}`
}

func (t *ValidateResultTool) Execute(ctx context.Context, fs *workspace.FS, input map[string]any) (any, error) {
	criteria := toStringSlice(input["criteria"])
	if len(criteria) == 0 {
		return nil, invalidInput("criteria is required")
	}
	evidence, _ := input["evidence"].(string)

	var failures []string
	for _, c := range criteria {
		if !strings.Contains(strings.ToLower(evidence), strings.ToLower(c)) {
			failures = append(failures, c)
		}
	}

	return map[string]any{
		"passed":   len(failures) == 0,
		"failures": failures,
	}, nil
}

// AskUserTool suspends the run, surfacing a question for the human to
// answer before the plan can continue.
type AskUserTool struct{}

func (t *AskUserTool) Name() models.ActionType { return models.ActionAskUser }

func (t *AskUserTool) Schema() string {
	return `{"type":"object","required":["question"],"properties":{"question":{"type":"string"}}}`
}

func (t *AskUserTool) Execute(ctx context.Context, fs *workspace.FS, input map[string]any) (any, error) {
	question, _ := input["question"].(string)
	if strings.TrimSpace(question) == "" {
		return nil, invalidInput("question is required")
	}
	return map[string]any{"question": question}, nil
}

// RequestApprovalTool suspends the run pending explicit human sign-off on a
// proposed action, e.g. before a destructive or high-risk change lands.
type RequestApprovalTool struct{}

func (t *RequestApprovalTool) Name() models.ActionType { return models.ActionRequestApproval }

func (t *RequestApprovalTool) Schema() string {
	return `{"type":"object","required":["prompt"],"properties":{
  "prompt":{"type":"string"},"action_summary":{"type":"string"}
}}`
}

func (t *RequestApprovalTool) Execute(ctx context.Context, fs *workspace.FS, input map[string]any) (any, error) {
	prompt, _ := input["prompt"].(string)
	if strings.TrimSpace(prompt) == "" {
		return nil, invalidInput("prompt is required")
	}
	summary, _ := input["action_summary"].(string)
	return map[string]any{
		"prompt":         prompt,
		"action_summary": summary,
		"approved":       false,
	}, nil
}

// FinalAnswerTool is the terminal action that ends a run successfully,
// carrying the message and any files changed for the caller to display.
type FinalAnswerTool struct{}

func (t *FinalAnswerTool) Name() models.ActionType { return models.ActionFinalAnswer }

func (t *FinalAnswerTool) Schema() string {
	return `{"type":"object","required":["content"],"properties":{
  "content":{"type":"string"},
  "file_path":{"type":"string"},
  "file_content":{"type":"string"},
  "changes":{"type":"array","items":{"type":"object"}}
}}`
}

func (t *FinalAnswerTool) Execute(ctx context.Context, fs *workspace.FS, input map[string]any) (any, error) {
	content, _ := input["content"].(string)
	if strings.TrimSpace(content) == "" {
		return nil, invalidInput("content is required")
	}
	return map[string]any{
		"content":      content,
		"file_path":    input["file_path"],
		"file_content": input["file_content"],
		"changes":      input["changes"],
	}, nil
}

// ReportBlockerTool is the terminal action signaling the run cannot make
// progress without intervention outside the engine's control.
type ReportBlockerTool struct{}

func (t *ReportBlockerTool) Name() models.ActionType { return models.ActionReportBlocker }

func (t *ReportBlockerTool) Schema() string {
	return `{"type":"object","required":["reason"],"properties":{"reason":{"type":"string"}}}`
}

func (t *ReportBlockerTool) Execute(ctx context.Context, fs *workspace.FS, input map[string]any) (any, error) {
	reason, _ := input["reason"].(string)
	if strings.TrimSpace(reason) == "" {
		return nil, invalidInput("reason is required")
	}
	return map[string]any{"reason": reason}, nil
}
