package toolkit

import (
	"bytes"
	"context"
	osexec "os/exec"
	"strings"
	"time"

	"github.com/haasonsaas/agent-engine/internal/workspace"
	"github.com/haasonsaas/agent-engine/pkg/models"
)

// RunCommandTool executes a shell command confined to the workspace cwd.
// run_command, run_tests, run_lint, and run_build all share this
// implementation; only the ActionType (and thus the label attached to the
// resulting ActionRecord) differs.
type RunCommandTool struct {
	actionType models.ActionType
}

// NewRunCommandTool builds a command runner for one of the four
// command-shaped action types.
func NewRunCommandTool(actionType models.ActionType) *RunCommandTool {
	return &RunCommandTool{actionType: actionType}
}

func (t *RunCommandTool) Name() models.ActionType { return t.actionType }

func (t *RunCommandTool) Schema() string {
	return `{"type":"object","required":["command"],"properties":{
  "command":{"type":"string"},"cwd":{"type":"string"},"timeout_sec":{"type":"integer","minimum":0}
}}`
}

func (t *RunCommandTool) Execute(ctx context.Context, fs *workspace.FS, input map[string]any) (any, error) {
	command, _ := input["command"].(string)
	if strings.TrimSpace(command) == "" {
		return nil, invalidInput("command is required")
	}

	cwd := fs.Root()
	if rel, _ := input["cwd"].(string); rel != "" {
		resolved, err := workspace.NewResolver(fs.Root()).Resolve(rel)
		if err != nil {
			return nil, wrapPathError(err)
		}
		cwd = resolved
	}

	timeoutSec := 0
	if v, ok := input["timeout_sec"].(float64); ok && v > 0 {
		timeoutSec = int(v)
	}

	runCtx := ctx
	if timeoutSec > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(timeoutSec)*time.Second)
		defer cancel()
	}

	cmd := osexec.CommandContext(runCtx, "sh", "-c", command)
	cmd.Dir = cwd

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	duration := time.Since(start)

	timedOut := runCtx.Err() == context.DeadlineExceeded
	if timedOut {
		return nil, &Error{Kind: models.ErrKindToolTimeout, Message: "command exceeded timeout_sec", Retryable: true}
	}
	if ctx.Err() == context.Canceled {
		return nil, &Error{Kind: models.ErrKindToolCancelled, Message: "command cancelled"}
	}

	exitCode := 0
	if runErr != nil {
		if exitErr, ok := runErr.(*osexec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return nil, ioError(runErr)
		}
	}

	stdoutBytes, stdoutTruncated := truncateBytes(stdout.Bytes(), MaxCommandOutputBytes)
	stderrBytes, stderrTruncated := truncateBytes(stderr.Bytes(), MaxCommandOutputBytes)

	return &models.CommandOutput{
		Command:         command,
		Cwd:             cwd,
		ExitCode:        exitCode,
		Stdout:          string(stdoutBytes),
		Stderr:          string(stderrBytes),
		StdoutTruncated: stdoutTruncated,
		StderrTruncated: stderrTruncated,
		DurationMs:      duration.Milliseconds(),
	}, nil
}
