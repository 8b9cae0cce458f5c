package artifact

import (
	"fmt"
	"strings"

	"github.com/pipewright/pipewright/internal/errors"
)

// requiredString appends an error if the value is empty after trimming.
func requiredString(errs []string, field, value string) []string {
	if strings.TrimSpace(value) == "" {
		return append(errs, fmt.Sprintf("%s: required and must be non-empty", field))
	}
	return errs
}

// requiredList appends an error if the list is empty. Lists documented as
// optional (e.g. open questions) are not passed through this check.
func requiredList(errs []string, field string, length int) []string {
	if length == 0 {
		return append(errs, fmt.Sprintf("%s: required and must not be empty", field))
	}
	return errs
}

// stringItems appends an error for each blank entry in a string list.
func stringItems(errs []string, field string, items []string) []string {
	for i, item := range items {
		if strings.TrimSpace(item) == "" {
			errs = append(errs, fmt.Sprintf("%s[%d]: must be non-empty", field, i))
		}
	}
	return errs
}

// ValidateAnalysis checks the analyze phase's artifact.
func ValidateAnalysis(a *Analysis) []string {
	var errs []string
	errs = requiredString(errs, "content", a.Content)
	errs = requiredList(errs, "components", len(a.Components))
	errs = stringItems(errs, "components", a.Components)
	return errs
}

// ValidateRequirements checks the requirements phase's artifact. An empty
// open-questions list is valid, but present entries must carry a question.
func ValidateRequirements(r *Requirements) []string {
	var errs []string
	errs = requiredString(errs, "name", r.Name)
	errs = requiredString(errs, "oneLiner", r.OneLiner)
	errs = requiredString(errs, "content", r.Content)
	errs = requiredList(errs, "technologies", len(r.Technologies))
	errs = stringItems(errs, "technologies", r.Technologies)

	for i, q := range r.OpenQuestions {
		errs = requiredString(errs, fmt.Sprintf("openQuestions[%d].question", i), q.Question)
	}
	return errs
}

// ValidateResearch checks the research phase's artifact.
func ValidateResearch(r *Research) []string {
	var errs []string
	errs = requiredString(errs, "content", r.Content)
	errs = requiredList(errs, "findings", len(r.Findings))
	errs = stringItems(errs, "findings", r.Findings)

	for i, q := range r.OpenQuestions {
		errs = requiredString(errs, fmt.Sprintf("openQuestions[%d].question", i), q.Question)
	}
	return errs
}

// ValidatePlan checks the plan phase's artifact. File lists may be empty;
// the phase list may not, and phase IDs must be unique.
func ValidatePlan(p *Plan) []string {
	var errs []string
	errs = requiredString(errs, "content", p.Content)
	errs = requiredList(errs, "phases", len(p.Phases))

	seen := make(map[string]bool, len(p.Phases))
	for i, phase := range p.Phases {
		errs = requiredString(errs, fmt.Sprintf("phases[%d].id", i), phase.ID)
		errs = requiredString(errs, fmt.Sprintf("phases[%d].name", i), phase.Name)
		if phase.ID != "" {
			if seen[phase.ID] {
				errs = append(errs, fmt.Sprintf("phases[%d].id: duplicate phase id %q", i, phase.ID))
			}
			seen[phase.ID] = true
		}
	}

	errs = stringItems(errs, "filesToCreate", p.FilesToCreate)
	errs = stringItems(errs, "filesToModify", p.FilesToModify)
	return errs
}

// ValidateTasks checks the tasks artifact against the plan it belongs to.
// Cross-references are verified both ways: every task's phase must exist
// in the plan, every dependency must name a known task, and the dependency
// graph must be acyclic.
func ValidateTasks(t *Tasks, plan *Plan) []string {
	var errs []string
	errs = requiredList(errs, "tasks", len(t.Tasks))

	phaseIDs := make(map[string]bool)
	if plan != nil {
		for _, p := range plan.Phases {
			phaseIDs[p.ID] = true
		}
	}

	taskIDs := make(map[string]bool, len(t.Tasks))
	for i, task := range t.Tasks {
		errs = requiredString(errs, fmt.Sprintf("tasks[%d].id", i), task.ID)
		if task.ID != "" {
			if taskIDs[task.ID] {
				errs = append(errs, fmt.Sprintf("tasks[%d].id: duplicate task id %q", i, task.ID))
			}
			taskIDs[task.ID] = true
		}
	}

	for i, task := range t.Tasks {
		errs = requiredString(errs, fmt.Sprintf("tasks[%d].title", i), task.Title)
		errs = requiredString(errs, fmt.Sprintf("tasks[%d].phaseId", i), task.PhaseID)
		errs = requiredList(errs, fmt.Sprintf("tasks[%d].acceptanceCriteria", i), len(task.AcceptanceCriteria))
		errs = stringItems(errs, fmt.Sprintf("tasks[%d].acceptanceCriteria", i), task.AcceptanceCriteria)

		if task.State != "" && !isValidTaskState(task.State) {
			errs = append(errs, fmt.Sprintf("tasks[%d].state: unknown state %q (expected one of: %s)",
				i, task.State, strings.Join(ValidTaskStates(), ", ")))
		}

		if plan != nil && task.PhaseID != "" && !phaseIDs[task.PhaseID] {
			errs = append(errs, fmt.Sprintf("tasks[%d].phaseId: references unknown plan phase %q", i, task.PhaseID))
		}

		for j, dep := range task.Dependencies {
			if dep == task.ID {
				errs = append(errs, fmt.Sprintf("tasks[%d].dependencies[%d]: task %q depends on itself", i, j, task.ID))
				continue
			}
			if !taskIDs[dep] {
				errs = append(errs, fmt.Sprintf("tasks[%d].dependencies[%d]: references unknown task %q", i, j, dep))
			}
		}
	}

	if cycle := DetectDependencyCycle(t.Tasks); cycle != nil {
		errs = append(errs, fmt.Sprintf("tasks: dependency cycle detected: %s", strings.Join(cycle, " -> ")))
	}

	return errs
}

func isValidTaskState(s string) bool {
	for _, valid := range ValidTaskStates() {
		if s == valid {
			return true
		}
	}
	return false
}

// DetectDependencyCycle searches the task dependency graph depth-first and
// returns the member IDs of the first cycle found, or nil if the graph is
// acyclic. Unknown dependency references are ignored here; they are
// reported separately as cross-reference errors.
func DetectDependencyCycle(tasks []Task) []string {
	deps := make(map[string][]string, len(tasks))
	for _, t := range tasks {
		deps[t.ID] = t.Dependencies
	}

	const (
		white = 0 // unvisited
		gray  = 1 // on the current path
		black = 2 // fully explored
	)
	color := make(map[string]int, len(tasks))

	var path []string
	var cycle []string

	var visit func(id string) bool
	visit = func(id string) bool {
		color[id] = gray
		path = append(path, id)

		for _, dep := range deps[id] {
			if _, known := deps[dep]; !known {
				continue
			}
			switch color[dep] {
			case gray:
				// Found a back edge: extract the cycle members from the path.
				start := 0
				for i, p := range path {
					if p == dep {
						start = i
						break
					}
				}
				cycle = append([]string{}, path[start:]...)
				return true
			case white:
				if visit(dep) {
					return true
				}
			}
		}

		path = path[:len(path)-1]
		color[id] = black
		return false
	}

	for _, t := range tasks {
		if color[t.ID] == white {
			if visit(t.ID) {
				return cycle
			}
		}
	}
	return nil
}

// ExecutionOrder returns task IDs in a dependency-respecting order.
// Returns an error if the graph contains a cycle; validate first.
func ExecutionOrder(tasks []Task) ([]string, error) {
	if cycle := DetectDependencyCycle(tasks); cycle != nil {
		return nil, fmt.Errorf("%w among tasks: %s", errors.ErrDependencyCycle, strings.Join(cycle, " -> "))
	}

	known := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		known[t.ID] = true
	}

	done := make(map[string]bool, len(tasks))
	var order []string
	remaining := tasks

	for len(remaining) > 0 {
		var next []Task
		progressed := false
		for _, t := range remaining {
			ready := true
			for _, dep := range t.Dependencies {
				if known[dep] && !done[dep] {
					ready = false
					break
				}
			}
			if ready {
				order = append(order, t.ID)
				done[t.ID] = true
				progressed = true
			} else {
				next = append(next, t)
			}
		}
		if !progressed {
			// Unreachable after the cycle check, kept as a guard.
			return nil, fmt.Errorf("cannot schedule %d remaining tasks", len(next))
		}
		remaining = next
	}

	return order, nil
}
