package httpapi

import (
	"fmt"
	"net/http"
	"strings"
)

type terminalSessionInfo struct {
	SessionID string `json:"session_id"`
	Cwd       string `json:"cwd"`
	Shell     string `json:"shell"`
	Alive     bool   `json:"alive"`
	Output    string `json:"output"`
}

type createSessionRequest struct {
	Cwd   string `json:"cwd,omitempty"`
	Shell string `json:"shell,omitempty"`
}

func (s *Server) handleTerminalCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sess, err := s.terminals.Create(req.Cwd, req.Shell)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	output, alive, _ := sess.Output()
	writeJSON(w, http.StatusOK, terminalSessionInfo{
		SessionID: sess.ID, Cwd: sess.Cwd, Shell: sess.Shell, Alive: alive, Output: output,
	})
}

// handleTerminalByID dispatches /api/terminal/sessions/{id}[/action].
func (s *Server) handleTerminalByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/terminal/sessions/")
	parts := strings.SplitN(rest, "/", 2)
	id := parts[0]
	if id == "" {
		writeError(w, http.StatusNotFound, "session id is required")
		return
	}
	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}

	switch {
	case action == "input" && r.Method == http.MethodPost:
		s.terminalInput(w, r, id)
	case action == "output" && r.Method == http.MethodGet:
		s.terminalOutput(w, id)
	case action == "resize" && r.Method == http.MethodPost:
		s.terminalResize(w, r, id)
	case action == "" && r.Method == http.MethodDelete:
		s.terminalClose(w, id)
	default:
		writeError(w, http.StatusNotFound, "unknown terminal route")
	}
}

type terminalInputRequest struct {
	Data string `json:"data"`
}

func (s *Server) terminalInput(w http.ResponseWriter, r *http.Request, id string) {
	sess, ok := s.terminals.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	var req terminalInputRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := sess.Write(req.Data); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type terminalOutputResponse struct {
	SessionID string `json:"session_id"`
	Output    string `json:"output"`
	Alive     bool   `json:"alive"`
	ExitCode  *int   `json:"exit_code,omitempty"`
}

func (s *Server) terminalOutput(w http.ResponseWriter, id string) {
	sess, ok := s.terminals.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	output, alive, exitCode := sess.Output()
	writeJSON(w, http.StatusOK, terminalOutputResponse{SessionID: id, Output: output, Alive: alive, ExitCode: exitCode})
}

type terminalResizeRequest struct {
	Cols int `json:"cols"`
	Rows int `json:"rows"`
}

func (s *Server) terminalResize(w http.ResponseWriter, r *http.Request, id string) {
	sess, ok := s.terminals.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	var req terminalResizeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sess.Resize(req.Cols, req.Rows)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) terminalClose(w http.ResponseWriter, id string) {
	if err := s.terminals.Close(id); err != nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("session not found: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
