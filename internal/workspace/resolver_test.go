package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_RejectsDotDotEscape(t *testing.T) {
	root := t.TempDir()
	r := NewResolver(root)

	_, err := r.Resolve("../outside.txt")
	assert.ErrorIs(t, err, ErrPathEscape)
}

func TestResolver_RejectsAbsolutePath(t *testing.T) {
	r := NewResolver(t.TempDir())
	_, err := r.Resolve("/etc/passwd")
	assert.ErrorIs(t, err, ErrPathEscape)
}

func TestResolver_AllowsNestedRelativePath(t *testing.T) {
	root := t.TempDir()
	r := NewResolver(root)

	resolved, err := r.Resolve("src/main.go")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "src", "main.go"), resolved)
}

func TestResolver_RejectsSymlinkEscape(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.txt"), []byte("secret"), 0o644))
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "escape")))

	r := NewResolver(root)
	_, err := r.Resolve("escape/secret.txt")
	assert.ErrorIs(t, err, ErrPathEscape)
}

func TestResolver_AllowsSymlinkWithinRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "real"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "real", "a.txt"), []byte("hi"), 0o644))
	require.NoError(t, os.Symlink(filepath.Join(root, "real"), filepath.Join(root, "alias")))

	r := NewResolver(root)
	resolved, err := r.Resolve("alias/a.txt")
	require.NoError(t, err)
	assert.Contains(t, resolved, "real")
}
