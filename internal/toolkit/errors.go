package toolkit

import (
	"errors"
	"fmt"

	"github.com/haasonsaas/agent-engine/internal/workspace"
	"github.com/haasonsaas/agent-engine/pkg/models"
)

// Error is the structured failure a Tool returns. The executor reads Kind
// to decide retry/critical-path handling and copies it verbatim onto the
// action's ActionRecord.
type Error struct {
	Kind      models.EngineErrorKind
	Message   string
	Retryable bool
	Cause     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Cause.Error())
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Cause }

// AsEngineError converts a Tool error into the models.EngineError attached
// to an ActionRecord.
func (e *Error) AsEngineError(attempts int) *models.EngineError {
	return &models.EngineError{
		Kind:      e.Kind,
		Message:   e.Error(),
		Retryable: e.Retryable,
		Attempts:  attempts,
	}
}

func invalidInput(format string, args ...any) error {
	return &Error{Kind: models.ErrKindToolInvalidInput, Message: fmt.Sprintf(format, args...)}
}

func ioError(cause error) error {
	return &Error{Kind: models.ErrKindToolIO, Cause: cause, Retryable: true}
}

func pathEscapeError(cause error) error {
	return &Error{Kind: models.ErrKindToolPathEscape, Cause: cause}
}

// wrapPathError maps workspace resolution failures onto the tool error
// taxonomy, distinguishing an escape attempt from a generic I/O failure.
func wrapPathError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, workspace.ErrPathEscape) {
		return pathEscapeError(err)
	}
	if errors.Is(err, workspace.ErrNotFound) {
		return &Error{Kind: models.ErrKindToolIO, Cause: err, Message: "not found"}
	}
	return ioError(err)
}
