package toolkit

import (
	"context"
	"strings"

	"github.com/haasonsaas/agent-engine/internal/toolkit/difftool"
	"github.com/haasonsaas/agent-engine/internal/workspace"
	"github.com/haasonsaas/agent-engine/pkg/models"
)

// ApplyPatchTool applies a unified diff to a single workspace file.
type ApplyPatchTool struct{}

func (t *ApplyPatchTool) Name() models.ActionType { return models.ActionApplyPatch }

func (t *ApplyPatchTool) Schema() string {
	return `{"type":"object","required":["path","diff_unified"],"properties":{
  "path":{"type":"string"},"diff_unified":{"type":"string"}
}}`
}

func (t *ApplyPatchTool) Execute(ctx context.Context, fs *workspace.FS, input map[string]any) (any, error) {
	path, _ := input["path"].(string)
	diff, _ := input["diff_unified"].(string)
	if strings.TrimSpace(path) == "" || strings.TrimSpace(diff) == "" {
		return nil, invalidInput("path and diff_unified are required")
	}

	patches, err := difftool.ParseUnified(diff)
	if err != nil {
		return nil, invalidInput("parse diff_unified: %v", err)
	}
	if len(patches) != 1 {
		return nil, invalidInput("diff_unified must cover exactly one file")
	}

	before, err := fs.Read(path)
	if err != nil {
		return nil, wrapPathError(err)
	}

	applied, err := difftool.Apply(string(before), patches[0])
	if err != nil {
		return nil, invalidInput("apply diff_unified: %v", err)
	}

	change, err := fs.Update(path, []byte(applied.Content))
	if err != nil {
		return nil, wrapPathError(err)
	}
	return change, nil
}
