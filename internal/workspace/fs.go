package workspace

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/haasonsaas/agent-engine/pkg/models"
)

// ErrNotFound is returned when a requested path does not exist.
var ErrNotFound = errors.New("not found")

// Entry is one node in a directory listing.
type Entry struct {
	Path    string    `json:"path"`
	Name    string    `json:"name"`
	IsDir   bool      `json:"is_dir"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// FS is the sandboxed filesystem every workspace operation goes through.
type FS struct {
	root     string
	resolver Resolver
	locks    pathLocks
}

// NewFS builds an FS confined to root.
func NewFS(root string) *FS {
	return &FS{root: root, resolver: NewResolver(root), locks: newPathLocks()}
}

// Root returns the workspace root this FS is confined to.
func (f *FS) Root() string { return f.root }

// Hash returns the SHA-256 hex digest of content.
func Hash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Read returns the full contents of path.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.resolver.Resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// Tree lists every entry under path (non-recursive at depth 1; callers walk
// directories themselves via repeated List calls, matching the /files/tree
// route's shallow-listing contract).
func (f *FS) List(path string) ([]Entry, error) {
	abs, err := f.resolver.Resolve(path)
	if err != nil {
		return nil, err
	}
	dirEntries, err := os.ReadDir(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("list %s: %w", path, err)
	}

	out := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		info, err := de.Info()
		if err != nil {
			continue
		}
		out = append(out, Entry{
			Path:    filepath.Join(path, de.Name()),
			Name:    de.Name(),
			IsDir:   de.IsDir(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Create writes a new file; it fails if the file already exists.
func (f *FS) Create(path string, content []byte) (*models.FileChange, error) {
	defer f.locks.lock(path)()

	abs, err := f.resolver.Resolve(path)
	if err != nil {
		return nil, err
	}
	if _, err := os.Lstat(abs); err == nil {
		return nil, fmt.Errorf("create %s: already exists", path)
	}
	if err := writeAtomic(abs, content); err != nil {
		return nil, err
	}
	return &models.FileChange{
		Kind:      models.FileChangeCreated,
		Path:      path,
		AfterHash: Hash(content),
		Bytes:     len(content),
	}, nil
}

// Update overwrites an existing file's contents atomically via a temp file
// plus rename, so a crash mid-write never leaves a truncated file behind.
func (f *FS) Update(path string, content []byte) (*models.FileChange, error) {
	defer f.locks.lock(path)()

	abs, err := f.resolver.Resolve(path)
	if err != nil {
		return nil, err
	}
	before, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update %s: %w", path, err)
	}
	if err := writeAtomic(abs, content); err != nil {
		return nil, err
	}
	return &models.FileChange{
		Kind:       models.FileChangeUpdated,
		Path:       path,
		BeforeHash: Hash(before),
		AfterHash:  Hash(content),
		Bytes:      len(content),
	}, nil
}

// Delete removes a file.
func (f *FS) Delete(path string) (*models.FileChange, error) {
	defer f.locks.lock(path)()

	abs, err := f.resolver.Resolve(path)
	if err != nil {
		return nil, err
	}
	before, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("delete %s: %w", path, err)
	}
	if err := os.Remove(abs); err != nil {
		return nil, fmt.Errorf("delete %s: %w", path, err)
	}
	return &models.FileChange{
		Kind:       models.FileChangeDeleted,
		Path:       path,
		BeforeHash: Hash(before),
	}, nil
}

// MkdirAll creates a directory (and any missing parents) at path.
func (f *FS) MkdirAll(path string) error {
	defer f.locks.lock(path)()

	abs, err := f.resolver.Resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", path, err)
	}
	return nil
}

// Rename moves a file from one workspace-relative path to another.
func (f *FS) Rename(from, to string) (*models.FileChange, error) {
	first, second := from, to
	if second < first {
		first, second = second, first
	}
	defer f.locks.lock(first)()
	if second != first {
		defer f.locks.lock(second)()
	}

	fromAbs, err := f.resolver.Resolve(from)
	if err != nil {
		return nil, err
	}
	toAbs, err := f.resolver.Resolve(to)
	if err != nil {
		return nil, err
	}
	before, err := os.ReadFile(fromAbs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("rename %s: %w", from, err)
	}
	if err := os.MkdirAll(filepath.Dir(toAbs), 0o755); err != nil {
		return nil, fmt.Errorf("rename %s: create destination dir: %w", from, err)
	}
	if err := os.Rename(fromAbs, toAbs); err != nil {
		return nil, fmt.Errorf("rename %s to %s: %w", from, to, err)
	}
	return &models.FileChange{
		Kind:       models.FileChangeMoved,
		Path:       to,
		FromPath:   from,
		BeforeHash: Hash(before),
		AfterHash:  Hash(before),
	}, nil
}

// writeAtomic writes content to a temp file in the same directory as path
// and renames it into place, so readers never observe a partial write.
func writeAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
