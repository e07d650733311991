// Package toolkit implements every action type the planner may emit: a
// closed set of Go types sharing one Tool interface, each confined to the
// workspace sandbox and producing a pure-data output. Side effects never
// escape the workspace.
package toolkit

import (
	"context"
	"fmt"

	"github.com/haasonsaas/agent-engine/internal/workspace"
	"github.com/haasonsaas/agent-engine/pkg/models"
)

// MaxReadBytes caps the content returned by a single file read.
const MaxReadBytes = 200 * 1024

// MaxCommandOutputBytes caps stdout/stderr captured from a single command.
const MaxCommandOutputBytes = 64 * 1024

// Tool is the shared contract every action type implements.
type Tool interface {
	Name() models.ActionType
	Schema() string
	Execute(ctx context.Context, fs *workspace.FS, input map[string]any) (any, error)
}

// Registry maps action types onto their Tool implementation. It is the
// closed set the planner's schema and the executor both consult.
type Registry struct {
	tools map[models.ActionType]Tool
}

// NewRegistry builds the full registry of action types the engine supports.
func NewRegistry() *Registry {
	reg := &Registry{tools: make(map[models.ActionType]Tool)}
	for _, t := range []Tool{
		&ScanWorkspaceTool{},
		&ReadFilesTool{},
		&SearchCodeTool{},
		&ExtractSymbolsTool{},
		&AnalyzeDependenciesTool{},
		&SummarizeContextTool{},
		&ProposeSubplanTool{},
		&CreateFileTool{},
		&UpdateFileTool{},
		&DeleteFileTool{},
		&MoveFileTool{},
		&ApplyPatchTool{},
		NewRunCommandTool(models.ActionRunCommand),
		NewRunCommandTool(models.ActionRunTests),
		NewRunCommandTool(models.ActionRunLint),
		NewRunCommandTool(models.ActionRunBuild),
		&ValidateResultTool{},
		&AskUserTool{},
		&RequestApprovalTool{},
		&FinalAnswerTool{},
		&ReportBlockerTool{},
	} {
		reg.tools[t.Name()] = t
	}
	return reg
}

// Get returns the tool for an action type, or a tool_not_found Error.
func (r *Registry) Get(actionType models.ActionType) (Tool, error) {
	t, ok := r.tools[actionType]
	if !ok {
		return nil, &Error{Kind: models.ErrKindToolNotFound, Message: fmt.Sprintf("unknown action type %q", actionType)}
	}
	return t, nil
}

// Schemas returns every tool's JSON-schema-described input, keyed by action
// type, for embedding into the planner's system prompt.
func (r *Registry) Schemas() map[models.ActionType]string {
	out := make(map[models.ActionType]string, len(r.tools))
	for name, t := range r.tools {
		out[name] = t.Schema()
	}
	return out
}

func truncateBytes(b []byte, max int) ([]byte, bool) {
	if len(b) <= max {
		return b, false
	}
	return b[:max], true
}
