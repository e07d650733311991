package httpapi

import (
	"net/http"
	"path"

	"github.com/haasonsaas/agent-engine/internal/toolkit"
	"github.com/haasonsaas/agent-engine/internal/workspace"
)

// fileItem is the tree-shaped response for GET /files/tree; Children is
// nil for leaves and populated (possibly empty) for directories.
type fileItem struct {
	Name     string     `json:"name"`
	Path     string     `json:"path"`
	IsDir    bool       `json:"is_dir"`
	Children []fileItem `json:"children,omitempty"`
}

const maxTreeDepth = 32

func (s *Server) handleFilesTree(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	root := r.URL.Query().Get("path")
	items, err := s.buildTree(root, 0)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) buildTree(dir string, depth int) ([]fileItem, error) {
	entries, err := s.fs.List(dir)
	if err != nil {
		return nil, err
	}
	items := make([]fileItem, 0, len(entries))
	for _, e := range entries {
		item := fileItem{Name: e.Name, Path: e.Path, IsDir: e.IsDir}
		if e.IsDir && depth < maxTreeDepth {
			children, err := s.buildTree(e.Path, depth+1)
			if err == nil {
				item.Children = children
			}
		}
		items = append(items, item)
	}
	return items, nil
}

type readResponse struct {
	Path     string `json:"path"`
	Content  string `json:"content"`
	Language string `json:"language,omitempty"`
}

func (s *Server) handleFilesRead(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	p := r.URL.Query().Get("path")
	data, err := s.fs.Read(p)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if len(data) > toolkit.MaxReadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "file exceeds read cap")
		return
	}
	writeJSON(w, http.StatusOK, readResponse{Path: p, Content: string(data), Language: languageFor(p)})
}

func languageFor(p string) string {
	switch path.Ext(p) {
	case ".go":
		return "go"
	case ".ts", ".tsx":
		return "typescript"
	case ".js", ".jsx":
		return "javascript"
	case ".py":
		return "python"
	case ".json":
		return "json"
	case ".md":
		return "markdown"
	default:
		return ""
	}
}

type writeRequest struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

func (s *Server) handleFilesWrite(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req writeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	var err error
	if _, statErr := s.fs.Read(req.Path); statErr == workspace.ErrNotFound {
		_, err = s.fs.Create(req.Path, []byte(req.Content))
	} else {
		_, err = s.fs.Update(req.Path, []byte(req.Content))
	}
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, writeRequest{Path: req.Path, Content: req.Content})
}

type createRequest struct {
	Path    string `json:"path"`
	IsDir   bool   `json:"is_dir"`
	Content string `json:"content,omitempty"`
}

func (s *Server) handleFilesCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req createRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.IsDir {
		if err := s.fs.MkdirAll(req.Path); err != nil {
			writeEngineError(w, err)
			return
		}
	} else if _, err := s.fs.Create(req.Path, []byte(req.Content)); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type pathRequest struct {
	Path string `json:"path"`
}

func (s *Server) handleFilesDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req pathRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, err := s.fs.Delete(req.Path); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type renameRequest struct {
	OldPath string `json:"old_path"`
	NewPath string `json:"new_path"`
}

func (s *Server) handleFilesRename(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req renameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, err := s.fs.Rename(req.OldPath, req.NewPath); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
