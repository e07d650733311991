package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/haasonsaas/agent-engine/internal/workspace"
	"github.com/haasonsaas/agent-engine/pkg/models"
)

// errorEnvelope is the shape of every non-2xx JSON response.
type errorEnvelope struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		return
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorEnvelope{Detail: detail})
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeEngineError maps the engine's closed error taxonomy to an HTTP
// status, per the error envelope contract: path escape is 400, missing
// resources are 404, control-plane conflicts are 409, everything else that
// reaches an HTTP handler is a 500.
func writeEngineError(w http.ResponseWriter, err error) {
	if errors.Is(err, workspace.ErrPathEscape) {
		writeError(w, http.StatusBadRequest, "path escape")
		return
	}
	if errors.Is(err, workspace.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	var engErr *models.EngineError
	if errors.As(err, &engErr) {
		switch engErr.Kind {
		case models.ErrKindToolPathEscape:
			writeError(w, http.StatusBadRequest, "path escape")
		case models.ErrKindRunNotFound:
			writeError(w, http.StatusNotFound, engErr.Message)
		case models.ErrKindRunConflict:
			writeError(w, http.StatusConflict, engErr.Message)
		case models.ErrKindToolInvalidInput, models.ErrKindPlannerInvalid:
			writeError(w, http.StatusBadRequest, engErr.Message)
		default:
			writeError(w, http.StatusInternalServerError, engErr.Message)
		}
		return
	}

	writeError(w, http.StatusInternalServerError, err.Error())
}
