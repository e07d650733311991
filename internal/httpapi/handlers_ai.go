package httpapi

import (
	"net/http"
	"strings"

	"github.com/haasonsaas/agent-engine/internal/config"
	"github.com/haasonsaas/agent-engine/internal/engine"
	"github.com/haasonsaas/agent-engine/pkg/models"
)

type providerInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Model string `json:"model"`
}

func (s *Server) handleAIProviders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var out []providerInfo
	for _, p := range s.providers.Enabled() {
		out = append(out, providerInfo{ID: p.ID, Name: providerDisplayName(p), Model: p.Model})
	}
	writeJSON(w, http.StatusOK, out)
}

func providerDisplayName(p *config.ProviderConfig) string {
	switch p.ID {
	case "openai":
		return "OpenAI"
	case "anthropic":
		return "Anthropic"
	default:
		if p.ID == "" {
			return p.ID
		}
		return strings.ToUpper(p.ID[:1]) + p.ID[1:]
	}
}

// chatRequest mirrors the one-shot /ai/chat body; fields beyond Provider,
// Messages, and HistoryConfig describe editor context the planner folds into
// the user turn but that the engine itself does not need structured.
type chatRequest struct {
	Provider      string               `json:"provider"`
	Messages      []models.Message     `json:"messages"`
	CurrentFile   string               `json:"current_file,omitempty"`
	CurrentCode   string               `json:"current_code,omitempty"`
	Snippets      []models.Snippet     `json:"snippets,omitempty"`
	ChatOnly      bool                 `json:"chat_only,omitempty"`
	PlanningMode  bool                 `json:"planning_mode,omitempty"`
	HistoryConfig *models.HistoryConfig `json:"history_config,omitempty"`
	ForceCodeEdit bool                 `json:"force_code_edit,omitempty"`
}

func (req chatRequest) toStartRequest() engine.StartRequest {
	messages := append([]models.Message(nil), req.Messages...)
	if req.CurrentFile != "" || req.CurrentCode != "" || len(req.Snippets) > 0 {
		if n := len(messages); n > 0 && messages[n-1].Role == models.RoleUser {
			messages[n-1].Snippets = append(messages[n-1].Snippets, req.Snippets...)
		}
	}
	intent := ""
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == models.RoleUser {
			intent = messages[i].Content
			break
		}
	}
	return engine.StartRequest{
		ProviderID:    req.Provider,
		Intent:        intent,
		Messages:      messages,
		HistoryConfig: req.HistoryConfig,
	}
}

func (s *Server) handleAIChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	resp, err := s.runs.Chat(r.Context(), req.toStartRequest())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAIRunsStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	runID, err := s.runs.Start(req.toStartRequest())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"run_id": runID})
}

func (s *Server) handleAIRunsList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, s.runs.List())
}

// handleAIRunsByID dispatches every /api/ai/runs/{id}[/action] route.
func (s *Server) handleAIRunsByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/ai/runs/")
	parts := strings.SplitN(rest, "/", 2)
	runID := parts[0]
	if runID == "" {
		writeError(w, http.StatusNotFound, "run id is required")
		return
	}
	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		s.getRun(w, runID)
	case action == "continue" && r.Method == http.MethodPost:
		s.continueRun(w, r, runID)
	case action == "reply" && r.Method == http.MethodPost:
		s.replyRun(w, r, runID)
	case action == "pause" && r.Method == http.MethodPost:
		s.controlRun(w, runID, s.runs.Pause)
	case action == "resume" && r.Method == http.MethodPost:
		s.controlRun(w, runID, s.runs.Resume)
	case action == "cancel" && r.Method == http.MethodPost:
		s.controlRun(w, runID, s.runs.Cancel)
	default:
		writeError(w, http.StatusNotFound, "unknown run route")
	}
}

func (s *Server) getRun(w http.ResponseWriter, runID string) {
	run, ok := s.runs.Get(runID)
	if !ok {
		writeEngineError(w, errRunNotFoundHTTP)
		return
	}
	writeJSON(w, http.StatusOK, models.PlanRunInfo{Run: *run})
}

func (s *Server) continueRun(w http.ResponseWriter, r *http.Request, runID string) {
	resp, err := s.runs.Continue(r.Context(), runID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type replyRequest struct {
	Message string `json:"message"`
}

func (s *Server) replyRun(w http.ResponseWriter, r *http.Request, runID string) {
	var req replyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	resp, err := s.runs.Reply(r.Context(), runID, req.Message)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) controlRun(w http.ResponseWriter, runID string, op func(string) error) {
	if err := op(runID); err != nil {
		writeEngineError(w, err)
		return
	}
	run, ok := s.runs.Get(runID)
	if !ok {
		writeEngineError(w, errRunNotFoundHTTP)
		return
	}
	writeJSON(w, http.StatusOK, models.PlanRunInfo{Run: *run})
}

var errRunNotFoundHTTP = &models.EngineError{Kind: models.ErrKindRunNotFound, Message: "run not found"}
