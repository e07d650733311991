package toolkit

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"github.com/haasonsaas/agent-engine/internal/workspace"
	"github.com/haasonsaas/agent-engine/pkg/models"
)

// ScanWorkspaceTool walks the workspace tree, honoring optional include /
// exclude globs and a hard cap on the number of entries returned.
type ScanWorkspaceTool struct{}

func (t *ScanWorkspaceTool) Name() models.ActionType { return models.ActionScanWorkspace }

func (t *ScanWorkspaceTool) Schema() string {
	return `{"type":"object","properties":{
  "root":{"type":"string"},
  "include":{"type":"array","items":{"type":"string"}},
  "exclude":{"type":"array","items":{"type":"string"}},
  "max_files":{"type":"integer","minimum":1}
}}`
}

func (t *ScanWorkspaceTool) Execute(ctx context.Context, fs *workspace.FS, input map[string]any) (any, error) {
	root, _ := input["root"].(string)
	if root == "" {
		root = "."
	}
	maxFiles := 500
	if v, ok := input["max_files"].(float64); ok && v > 0 {
		maxFiles = int(v)
	}
	include := toStringSlice(input["include"])
	exclude := toStringSlice(input["exclude"])

	var files []string
	var walk func(dir string) error
	walk = func(dir string) error {
		entries, err := fs.List(dir)
		if err != nil {
			return wrapPathError(err)
		}
		for _, e := range entries {
			if len(files) >= maxFiles {
				return nil
			}
			if matchesAny(e.Name, exclude) {
				continue
			}
			if e.IsDir {
				if err := walk(e.Path); err != nil {
					return err
				}
				continue
			}
			if len(include) > 0 && !matchesAny(e.Name, include) {
				continue
			}
			files = append(files, e.Path)
		}
		return nil
	}
	if err := walk(root); err != nil {
		return nil, err
	}
	sort.Strings(files)

	return map[string]any{"files": files, "file_count": len(files)}, nil
}

func matchesAny(name string, patterns []string) bool {
	for _, p := range patterns {
		if ok, err := filepath.Match(p, name); err == nil && ok {
			return true
		}
	}
	return false
}

func toStringSlice(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// ReadFilesTool reads one or more workspace files, capping each at
// MaxReadBytes and flagging truncation per file.
type ReadFilesTool struct{}

func (t *ReadFilesTool) Name() models.ActionType { return models.ActionReadFiles }

func (t *ReadFilesTool) Schema() string {
	return `{"type":"object","required":["paths"],"properties":{
  "paths":{"type":"array","items":{"type":"string"},"minItems":1}
}}`
}

func (t *ReadFilesTool) Execute(ctx context.Context, fs *workspace.FS, input map[string]any) (any, error) {
	paths := toStringSlice(input["paths"])
	if len(paths) == 0 {
		return nil, invalidInput("paths is required")
	}

	type fileResult struct {
		Path              string `json:"path"`
		Chars             int    `json:"chars"`
		Content           string `json:"content,omitempty"`
		ContentTruncated  bool   `json:"content_truncated"`
		Error             string `json:"error,omitempty"`
	}

	results := make([]fileResult, 0, len(paths))
	for _, p := range paths {
		data, err := fs.Read(p)
		if err != nil {
			results = append(results, fileResult{Path: p, Error: err.Error()})
			continue
		}
		truncated := false
		if len(data) > MaxReadBytes {
			data = data[:MaxReadBytes]
			truncated = true
		}
		results = append(results, fileResult{
			Path:             p,
			Chars:            len(data),
			Content:          string(data),
			ContentTruncated: truncated,
		})
	}

	return map[string]any{"files": results}, nil
}

// CreateFileTool creates a new workspace file; it fails if one already
// exists at that path.
type CreateFileTool struct{}

func (t *CreateFileTool) Name() models.ActionType { return models.ActionCreateFile }

func (t *CreateFileTool) Schema() string {
	return `{"type":"object","required":["path","content"],"properties":{
  "path":{"type":"string"},"content":{"type":"string"}
}}`
}

func (t *CreateFileTool) Execute(ctx context.Context, fs *workspace.FS, input map[string]any) (any, error) {
	path, content, err := requirePathAndContent(input)
	if err != nil {
		return nil, err
	}
	change, err := fs.Create(path, []byte(content))
	if err != nil {
		return nil, wrapPathError(err)
	}
	return change, nil
}

// UpdateFileTool overwrites an existing workspace file.
type UpdateFileTool struct{}

func (t *UpdateFileTool) Name() models.ActionType { return models.ActionUpdateFile }

func (t *UpdateFileTool) Schema() string {
	return `{"type":"object","required":["path","content"],"properties":{
  "path":{"type":"string"},"content":{"type":"string"}
}}`
}

func (t *UpdateFileTool) Execute(ctx context.Context, fs *workspace.FS, input map[string]any) (any, error) {
	path, content, err := requirePathAndContent(input)
	if err != nil {
		return nil, err
	}
	change, err := fs.Update(path, []byte(content))
	if err != nil {
		return nil, wrapPathError(err)
	}
	return change, nil
}

// DeleteFileTool removes a workspace file.
type DeleteFileTool struct{}

func (t *DeleteFileTool) Name() models.ActionType { return models.ActionDeleteFile }

func (t *DeleteFileTool) Schema() string {
	return `{"type":"object","required":["path"],"properties":{"path":{"type":"string"}}}`
}

func (t *DeleteFileTool) Execute(ctx context.Context, fs *workspace.FS, input map[string]any) (any, error) {
	path, _ := input["path"].(string)
	if strings.TrimSpace(path) == "" {
		return nil, invalidInput("path is required")
	}
	change, err := fs.Delete(path)
	if err != nil {
		return nil, wrapPathError(err)
	}
	return change, nil
}

// MoveFileTool renames/moves a workspace file.
type MoveFileTool struct{}

func (t *MoveFileTool) Name() models.ActionType { return models.ActionMoveFile }

func (t *MoveFileTool) Schema() string {
	return `{"type":"object","required":["from","to"],"properties":{
  "from":{"type":"string"},"to":{"type":"string"}
}}`
}

func (t *MoveFileTool) Execute(ctx context.Context, fs *workspace.FS, input map[string]any) (any, error) {
	from, _ := input["from"].(string)
	to, _ := input["to"].(string)
	if strings.TrimSpace(from) == "" || strings.TrimSpace(to) == "" {
		return nil, invalidInput("from and to are required")
	}
	change, err := fs.Rename(from, to)
	if err != nil {
		return nil, wrapPathError(err)
	}
	return change, nil
}

func requirePathAndContent(input map[string]any) (string, string, error) {
	path, _ := input["path"].(string)
	content, _ := input["content"].(string)
	if strings.TrimSpace(path) == "" {
		return "", "", invalidInput("path is required")
	}
	return path, content, nil
}
