package engine

import (
	"github.com/pipewright/pipewright/internal/artifact"
	"github.com/pipewright/pipewright/internal/state"
)

// stepDone marks the end of the pipeline: next returns it after the final
// merge step completes.
const stepDone state.StepName = ""

// firstStep is where a fresh run begins.
const firstStep = state.StepAnalyzeProduce

// next returns the step that follows a successfully completed step. The
// switch is exhaustive over the closed step-name set, so adding a phase is
// a compile-visible change here. Routing after a validate step depends on
// the validation bookkeeping in the state: a non-empty error list routes
// to the artifact's repair step, a clean one advances. Merge routing reads
// the per-run merge flags.
func next(completed state.StepName, st state.RunState) state.StepName {
	invalid := len(st.ValidationErrors) > 0

	switch completed {
	case state.StepAnalyzeProduce:
		return state.StepAnalyzeValidate
	case state.StepAnalyzeValidate:
		if invalid {
			return state.StepAnalyzeRepair
		}
		return state.StepRequirementsProduce
	case state.StepAnalyzeRepair:
		return state.StepAnalyzeValidate

	case state.StepRequirementsProduce:
		return state.StepRequirementsValidate
	case state.StepRequirementsValidate:
		if invalid {
			return state.StepRequirementsRepair
		}
		return state.StepRequirementsGate
	case state.StepRequirementsRepair:
		return state.StepRequirementsValidate
	case state.StepRequirementsGate:
		return state.StepResearchProduce

	case state.StepResearchProduce:
		return state.StepResearchValidate
	case state.StepResearchValidate:
		if invalid {
			return state.StepResearchRepair
		}
		return state.StepPlanProduce
	case state.StepResearchRepair:
		return state.StepResearchValidate

	case state.StepPlanProduce:
		return state.StepPlanValidate
	case state.StepPlanValidate:
		if invalid {
			return state.StepPlanRepair
		}
		return state.StepTasksValidate
	case state.StepPlanRepair:
		return state.StepPlanValidate

	case state.StepTasksValidate:
		if invalid {
			return state.StepTasksRepair
		}
		return state.StepPlanGate
	case state.StepTasksRepair:
		return state.StepTasksValidate

	case state.StepPlanGate:
		return state.StepImplementProduce
	case state.StepImplementProduce:
		return state.StepMergeCommit

	case state.StepMergeCommit:
		if st.Merge.Push {
			return state.StepMergePush
		}
		return state.StepMergeGate
	case state.StepMergePush:
		if st.Merge.OpenPR {
			return state.StepMergePR
		}
		return state.StepMergeGate
	case state.StepMergePR:
		return state.StepMergeGate
	case state.StepMergeGate:
		if st.Merge.AllowMerge {
			return state.StepMergeLand
		}
		return state.StepMergeFinalize
	case state.StepMergeLand:
		return state.StepMergeVerify
	case state.StepMergeVerify:
		return state.StepMergeFinalize
	case state.StepMergeFinalize:
		return stepDone
	}
	return stepDone
}

// validatedArtifact maps a validate or repair step to its artifact file.
func validatedArtifact(step state.StepName) string {
	switch step {
	case state.StepAnalyzeValidate, state.StepAnalyzeRepair:
		return artifact.AnalysisFile
	case state.StepRequirementsValidate, state.StepRequirementsRepair:
		return artifact.RequirementsFile
	case state.StepResearchValidate, state.StepResearchRepair:
		return artifact.ResearchFile
	case state.StepPlanValidate, state.StepPlanRepair:
		return artifact.PlanFile
	case state.StepTasksValidate, state.StepTasksRepair:
		return artifact.TasksFile
	}
	return ""
}
