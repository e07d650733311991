// Package workspace implements the sandboxed filesystem every file tool and
// the /files/* HTTP routes are confined to: path resolution rejects any
// traversal or symlink escape out of the workspace root, writes land
// atomically via a temp-file-then-rename, and content hashes let callers
// detect a stale write.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrPathEscape is returned whenever a resolved path would fall outside the
// workspace root, whether by "..", an absolute path, or a symlink.
var ErrPathEscape = errors.New("path escape")

// Resolver confines relative paths to Root, following symlinks to catch an
// escape a plain filepath.Rel check would miss.
type Resolver struct {
	Root string
}

// NewResolver builds a Resolver rooted at the given absolute directory.
func NewResolver(root string) Resolver {
	return Resolver{Root: root}
}

// Resolve returns the absolute path for a workspace-relative path, or
// ErrPathEscape if it falls outside Root.
func (r Resolver) Resolve(path string) (string, error) {
	clean := strings.TrimSpace(path)
	if clean == "" {
		return "", fmt.Errorf("path is required")
	}
	if filepath.IsAbs(clean) {
		return "", ErrPathEscape
	}

	rootAbs, err := filepath.Abs(r.Root)
	if err != nil {
		return "", fmt.Errorf("resolve workspace root: %w", err)
	}

	target := filepath.Join(rootAbs, filepath.Clean("/"+clean))
	targetAbs, err := filepath.Abs(target)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	if err := withinRoot(rootAbs, targetAbs); err != nil {
		return "", err
	}

	return r.resolveSymlinks(rootAbs, targetAbs)
}

func withinRoot(rootAbs, targetAbs string) error {
	rel, err := filepath.Rel(rootAbs, targetAbs)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return ErrPathEscape
	}
	return nil
}

// resolveSymlinks walks up from the deepest existing ancestor of targetAbs,
// resolving symlinks, to ensure no link in the chain hops outside rootAbs.
// A path that does not exist yet (the common case for create_file) is
// checked via its nearest existing parent directory instead.
func (r Resolver) resolveSymlinks(rootAbs, targetAbs string) (string, error) {
	existing := targetAbs
	var missingSuffix []string
	for {
		if _, err := os.Lstat(existing); err == nil {
			break
		}
		if existing == rootAbs || existing == filepath.Dir(existing) {
			break
		}
		missingSuffix = append([]string{filepath.Base(existing)}, missingSuffix...)
		existing = filepath.Dir(existing)
	}

	resolved, err := filepath.EvalSymlinks(existing)
	if err != nil {
		if os.IsNotExist(err) {
			return targetAbs, nil
		}
		return "", fmt.Errorf("resolve symlinks: %w", err)
	}

	resolvedRoot, err := filepath.EvalSymlinks(rootAbs)
	if err != nil {
		resolvedRoot = rootAbs
	}

	if err := withinRoot(resolvedRoot, resolved); err != nil {
		return "", err
	}

	for _, part := range missingSuffix {
		resolved = filepath.Join(resolved, part)
	}
	return resolved, nil
}
