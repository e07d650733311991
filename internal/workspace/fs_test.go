package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haasonsaas/agent-engine/pkg/models"
)

func TestFS_CreateThenReadRoundTrips(t *testing.T) {
	fs := NewFS(t.TempDir())

	change, err := fs.Create("a.txt", []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, models.FileChangeCreated, change.Kind)
	assert.Equal(t, Hash([]byte("hello")), change.AfterHash)

	data, err := fs.Read("a.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestFS_CreateFailsIfFileExists(t *testing.T) {
	fs := NewFS(t.TempDir())
	_, err := fs.Create("a.txt", []byte("hello"))
	require.NoError(t, err)

	_, err = fs.Create("a.txt", []byte("again"))
	assert.Error(t, err)
}

func TestFS_UpdateIsAtomicAndReportsBothHashes(t *testing.T) {
	fs := NewFS(t.TempDir())
	_, err := fs.Create("a.txt", []byte("v1"))
	require.NoError(t, err)

	change, err := fs.Update("a.txt", []byte("v2"))
	require.NoError(t, err)
	assert.Equal(t, Hash([]byte("v1")), change.BeforeHash)
	assert.Equal(t, Hash([]byte("v2")), change.AfterHash)

	data, err := fs.Read("a.txt")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))
}

func TestFS_UpdateMissingFileReturnsNotFound(t *testing.T) {
	fs := NewFS(t.TempDir())
	_, err := fs.Update("missing.txt", []byte("x"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFS_DeleteRemovesFile(t *testing.T) {
	fs := NewFS(t.TempDir())
	_, err := fs.Create("a.txt", []byte("hello"))
	require.NoError(t, err)

	change, err := fs.Delete("a.txt")
	require.NoError(t, err)
	assert.Equal(t, models.FileChangeDeleted, change.Kind)

	_, err = fs.Read("a.txt")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFS_RenameMovesFile(t *testing.T) {
	fs := NewFS(t.TempDir())
	_, err := fs.Create("a.txt", []byte("hello"))
	require.NoError(t, err)

	change, err := fs.Rename("a.txt", "sub/b.txt")
	require.NoError(t, err)
	assert.Equal(t, models.FileChangeMoved, change.Kind)
	assert.Equal(t, "a.txt", change.FromPath)

	data, err := fs.Read("sub/b.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestFS_ListSortsEntriesByName(t *testing.T) {
	root := t.TempDir()
	fs := NewFS(root)
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.txt"), []byte("b"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("a"), 0o644))

	entries, err := fs.List(".")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a.txt", entries[0].Name)
	assert.Equal(t, "b.txt", entries[1].Name)
}

func TestFS_ReadRejectsPathEscape(t *testing.T) {
	fs := NewFS(t.TempDir())
	_, err := fs.Read("../outside.txt")
	assert.ErrorIs(t, err, ErrPathEscape)
}
