package artifact

import (
	"fmt"
)

// Check loads and validates the named artifact in dir. A parse failure is
// itself an invalid outcome carrying a single error describing the parse
// problem; it never reaches the schema checker. The tasks artifact is
// cross-referenced against the plan artifact in the same directory.
func Check(dir, name string) Outcome {
	switch name {
	case AnalysisFile:
		a, err := LoadAnalysis(dir)
		if err != nil {
			return InvalidOutcome([]string{err.Error()})
		}
		return outcomeFrom(ValidateAnalysis(a))

	case RequirementsFile:
		r, err := LoadRequirements(dir)
		if err != nil {
			return InvalidOutcome([]string{err.Error()})
		}
		return outcomeFrom(ValidateRequirements(r))

	case ResearchFile:
		r, err := LoadResearch(dir)
		if err != nil {
			return InvalidOutcome([]string{err.Error()})
		}
		return outcomeFrom(ValidateResearch(r))

	case PlanFile:
		p, err := LoadPlan(dir)
		if err != nil {
			return InvalidOutcome([]string{err.Error()})
		}
		return outcomeFrom(ValidatePlan(p))

	case TasksFile:
		t, err := LoadTasks(dir)
		if err != nil {
			return InvalidOutcome([]string{err.Error()})
		}
		plan, err := LoadPlan(dir)
		if err != nil {
			return InvalidOutcome([]string{fmt.Sprintf("tasks: cannot cross-reference plan: %v", err)})
		}
		return outcomeFrom(ValidateTasks(t, plan))

	default:
		return InvalidOutcome([]string{fmt.Sprintf("unknown artifact %q", name)})
	}
}

func outcomeFrom(errs []string) Outcome {
	if len(errs) > 0 {
		return InvalidOutcome(errs)
	}
	return ValidOutcome()
}
