package engine

import (
	"sort"

	"github.com/haasonsaas/agent-engine/pkg/models"
)

// buildFrontiers groups actions into dependency-respecting layers: every
// action in frontier N depends only on actions in frontiers 0..N-1 (or on
// an already-completed prior action, which the planner's validation step
// already confirmed exists). Within a frontier, entries are ordered by
// descending priority, ties broken by ascending action_id, matching
// spec's tie-break rule.
func buildFrontiers(actions []models.ActionSpec) ([][]models.ActionSpec, error) {
	byID := make(map[string]models.ActionSpec, len(actions))
	for _, a := range actions {
		byID[a.ActionID] = a
	}

	indegree := make(map[string]int, len(actions))
	dependents := make(map[string][]string, len(actions))
	for _, a := range actions {
		count := 0
		for _, dep := range a.DependsOn {
			if _, inBatch := byID[dep]; inBatch {
				count++
				dependents[dep] = append(dependents[dep], a.ActionID)
			}
		}
		indegree[a.ActionID] = count
	}

	var frontiers [][]models.ActionSpec
	remaining := len(actions)
	ready := make([]string, 0)
	for id, deg := range indegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}

	for remaining > 0 {
		if len(ready) == 0 {
			return nil, &models.EngineError{
				Kind:    models.ErrKindDependencyCycle,
				Message: "dependency cycle detected among batch actions",
			}
		}
		sort.Slice(ready, func(i, j int) bool {
			ai, aj := byID[ready[i]], byID[ready[j]]
			if ai.Priority != aj.Priority {
				return ai.Priority > aj.Priority
			}
			return ai.ActionID < aj.ActionID
		})

		frontier := make([]models.ActionSpec, 0, len(ready))
		for _, id := range ready {
			frontier = append(frontier, byID[id])
		}
		frontiers = append(frontiers, frontier)
		remaining -= len(frontier)

		var next []string
		for _, id := range ready {
			for _, dep := range dependents[id] {
				indegree[dep]--
				if indegree[dep] == 0 {
					next = append(next, dep)
				}
			}
		}
		ready = next
	}

	return frontiers, nil
}

// allParallel reports whether every action in a frontier opted into
// concurrent execution; a single serial action forces the whole frontier
// to run one at a time, since the planner may have left can_parallel=false
// specifically to protect a conflicting write.
func allParallel(frontier []models.ActionSpec) bool {
	if len(frontier) <= 1 {
		return false
	}
	for _, a := range frontier {
		if !a.CanParallel {
			return false
		}
	}
	return true
}

// depBlocked reports whether any of action's dependencies failed or were
// skipped earlier in this tick, in which case action must be skipped too
// rather than executed against a prerequisite that never produced its
// output.
func depBlocked(a models.ActionSpec, blocked map[string]bool) bool {
	for _, dep := range a.DependsOn {
		if blocked[dep] {
			return true
		}
	}
	return false
}
