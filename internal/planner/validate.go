package planner

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/haasonsaas/agent-engine/pkg/models"
)

var (
	batchSchemaOnce sync.Once
	batchSchema     *jsonschema.Schema
	batchSchemaErr  error
)

func compiledBatchSchema() (*jsonschema.Schema, error) {
	batchSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("action_batch.json", strings.NewReader(models.ActionBatchJSONSchema)); err != nil {
			batchSchemaErr = fmt.Errorf("planner: add action_batch schema resource: %w", err)
			return
		}
		schema, err := compiler.Compile("action_batch.json")
		if err != nil {
			batchSchemaErr = fmt.Errorf("planner: compile action_batch schema: %w", err)
			return
		}
		batchSchema = schema
	})
	return batchSchema, batchSchemaErr
}

// validationError is a single human-readable defect found in a planner
// response, used both to drive the repair prompt and to report
// planner_invalid_output on the third failure.
type validationError struct {
	reasons []string
}

func (e *validationError) Error() string {
	if e == nil || len(e.reasons) == 0 {
		return "invalid planner output"
	}
	out := e.reasons[0]
	for _, r := range e.reasons[1:] {
		out += "; " + r
	}
	return out
}

func newValidationError(reasons ...string) *validationError {
	return &validationError{reasons: reasons}
}

// validateBatch runs raw through the compiled ActionBatch JSON schema, then
// applies the graph and decision-mode checks spec.md's planner step
// requires beyond what JSON Schema alone can express: depends_on
// resolution, cycle detection, and the done/ask_user preconditions.
func validateBatch(raw []byte, batch *models.ActionBatch, view RunView) error {
	schema, err := compiledBatchSchema()
	if err != nil {
		return err
	}

	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return newValidationError("response is not valid JSON: " + err.Error())
	}
	if err := schema.Validate(generic); err != nil {
		return newValidationError("schema: " + err.Error())
	}

	var reasons []string

	ids := make(map[string]bool, len(batch.Actions))
	for _, a := range batch.Actions {
		if ids[a.ActionID] {
			reasons = append(reasons, fmt.Sprintf("duplicate action_id %q", a.ActionID))
		}
		ids[a.ActionID] = true
	}

	completed := view.completedActionIDs()
	for _, a := range batch.Actions {
		for _, dep := range a.DependsOn {
			if !ids[dep] && !completed[dep] {
				reasons = append(reasons, fmt.Sprintf("action %q depends_on unknown action %q", a.ActionID, dep))
			}
		}
	}

	if cyclePath := findCycle(batch.Actions); cyclePath != "" {
		reasons = append(reasons, "dependency cycle: "+cyclePath)
	}

	switch batch.Decision.Mode {
	case models.DecisionDone:
		if !containsType(batch.Actions, models.ActionFinalAnswer) && !view.hasPriorFinalAnswer() {
			reasons = append(reasons, "decision.mode=done requires a final_answer action in this batch or a prior completed one")
		}
	case models.DecisionAskUser:
		if !containsType(batch.Actions, models.ActionAskUser) && !containsType(batch.Actions, models.ActionRequestApproval) {
			reasons = append(reasons, "decision.mode=ask_user requires an ask_user or request_approval action in this batch")
		}
	}

	for _, a := range batch.Actions {
		if a.TimeoutSec < 0 {
			reasons = append(reasons, fmt.Sprintf("action %q has negative timeout_sec", a.ActionID))
		}
		if a.MaxRetries < 0 {
			reasons = append(reasons, fmt.Sprintf("action %q has negative max_retries", a.ActionID))
		}
	}

	if len(reasons) > 0 {
		return newValidationError(reasons...)
	}
	return nil
}

func containsType(actions []models.ActionSpec, t models.ActionType) bool {
	for _, a := range actions {
		if a.Type == t {
			return true
		}
	}
	return false
}

// findCycle runs a DFS over the batch's depends_on edges (ignoring
// references that resolve outside the batch, since those are already-
// completed prior actions and cannot participate in a cycle) and returns a
// human-readable path through the first cycle found, or "" if acyclic.
func findCycle(actions []models.ActionSpec) string {
	edges := make(map[string][]string, len(actions))
	for _, a := range actions {
		edges[a.ActionID] = a.DependsOn
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(actions))
	var path []string

	var visit func(id string) string
	visit = func(id string) string {
		color[id] = gray
		path = append(path, id)
		for _, dep := range edges[id] {
			if _, known := edges[dep]; !known {
				continue
			}
			switch color[dep] {
			case gray:
				return fmt.Sprintf("%v -> %s", path, dep)
			case white:
				if cyc := visit(dep); cyc != "" {
					return cyc
				}
			}
		}
		path = path[:len(path)-1]
		color[id] = black
		return ""
	}

	for _, a := range actions {
		if color[a.ActionID] == white {
			if cyc := visit(a.ActionID); cyc != "" {
				return cyc
			}
		}
	}
	return ""
}
