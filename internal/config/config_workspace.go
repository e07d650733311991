package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// WorkspaceConfig pins the sandbox root every file/exec tool is confined to.
type WorkspaceConfig struct {
	Root string
}

func loadWorkspaceConfig() (WorkspaceConfig, error) {
	root := os.Getenv("WORKSPACE_ROOT")
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return WorkspaceConfig{}, fmt.Errorf("config: resolve default WORKSPACE_ROOT: %w", err)
		}
		root = cwd
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return WorkspaceConfig{}, fmt.Errorf("config: resolve WORKSPACE_ROOT %q: %w", root, err)
	}
	return WorkspaceConfig{Root: abs}, nil
}
