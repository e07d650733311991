package planner

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/haasonsaas/agent-engine/internal/toolkit"
	"github.com/haasonsaas/agent-engine/pkg/models"
)

// lastKActions bounds how many prior action records are rendered into the
// prompt's history snapshot; older ones are already reflected in the
// compacted message history or have long since stopped mattering to the
// next decision.
const lastKActions = 12

// systemPrompt describes the closed tool enum (action type -> input schema)
// and the exact ActionBatch shape the model must return. It is rebuilt from
// the live registry rather than hand-duplicated so a new tool is reflected
// here automatically.
func systemPrompt(registry *toolkit.Registry) string {
	schemas := registry.Schemas()
	types := make([]string, 0, len(schemas))
	for t := range schemas {
		types = append(types, string(t))
	}
	sort.Strings(types)

	var b strings.Builder
	b.WriteString("You are the planner inside an agent orchestration engine for a code editor.\n")
	b.WriteString("On every call you must return exactly one JSON object matching the ActionBatch schema below. No prose, no markdown fences, no trailing commentary.\n\n")
	b.WriteString("Available action types and their input schema:\n")
	for _, t := range types {
		fmt.Fprintf(&b, "- %s: %s\n", t, schemas[models.ActionType(t)])
	}
	b.WriteString("\nRules:\n")
	b.WriteString("- decision.mode must be one of continue, ask_user, done, blocked.\n")
	b.WriteString("- A `done` decision requires a final_answer action in this batch, unless one already completed earlier in the run.\n")
	b.WriteString("- An `ask_user` decision requires at least one ask_user or request_approval action in this batch and sets needs_user_trigger to true.\n")
	b.WriteString("- Every depends_on value must reference an action_id in this same batch or an already-completed prior action.\n")
	b.WriteString("- Actions with can_parallel=true and no unresolved depends_on between them may run concurrently; never mark two actions that touch the same file as parallel.\n")
	b.WriteString("- Do not invent action types outside the list above.\n\n")
	b.WriteString("ActionBatch JSON schema:\n")
	b.WriteString(models.ActionBatchJSONSchema)
	return b.String()
}

// historySnapshot renders the last lastKActions action records as compact
// JSON, giving the model grounded evidence of what has already run instead
// of relying solely on prose history.
func historySnapshot(records []models.ActionRecord) (string, error) {
	start := 0
	if len(records) > lastKActions {
		start = len(records) - lastKActions
	}
	window := records[start:]
	if len(window) == 0 {
		return "[]", nil
	}
	raw, err := json.Marshal(window)
	if err != nil {
		return "", fmt.Errorf("planner: marshal action history: %w", err)
	}
	return string(raw), nil
}

// repairPrompt is appended as an additional user turn when the model's
// previous response failed validation, carrying the exact reason so the
// retry can target the defect instead of guessing.
func repairPrompt(previous string, validationErr error) string {
	return fmt.Sprintf(
		"Your previous response failed validation: %s\n\nYour previous response was:\n%s\n\nReturn a corrected JSON object matching the ActionBatch schema. Fix only what the validation error names.",
		validationErr, previous,
	)
}
