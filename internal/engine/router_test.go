package engine

import (
	"testing"

	"github.com/pipewright/pipewright/internal/state"
)

func TestNext_ValidateRouting(t *testing.T) {
	clean := state.RunState{}
	broken := state.RunState{ValidationErrors: []string{"name: required"}}

	tests := []struct {
		completed state.StepName
		st        state.RunState
		want      state.StepName
	}{
		{state.StepAnalyzeValidate, clean, state.StepRequirementsProduce},
		{state.StepAnalyzeValidate, broken, state.StepAnalyzeRepair},
		{state.StepRequirementsValidate, clean, state.StepRequirementsGate},
		{state.StepRequirementsValidate, broken, state.StepRequirementsRepair},
		{state.StepPlanValidate, clean, state.StepTasksValidate},
		{state.StepTasksValidate, clean, state.StepPlanGate},
		{state.StepTasksValidate, broken, state.StepTasksRepair},
		{state.StepTasksRepair, clean, state.StepTasksValidate},
	}
	for _, tt := range tests {
		if got := next(tt.completed, tt.st); got != tt.want {
			t.Errorf("next(%s) = %s, want %s", tt.completed, got, tt.want)
		}
	}
}

func TestNext_MergeRouting(t *testing.T) {
	flags := func(push, pr, merge bool) state.RunState {
		return state.RunState{Merge: state.MergeFlags{Push: push, OpenPR: pr, AllowMerge: merge}}
	}

	tests := []struct {
		name      string
		completed state.StepName
		st        state.RunState
		want      state.StepName
	}{
		{"commit skips push", state.StepMergeCommit, flags(false, false, false), state.StepMergeGate},
		{"commit to push", state.StepMergeCommit, flags(true, false, false), state.StepMergePush},
		{"push skips pr", state.StepMergePush, flags(true, false, false), state.StepMergeGate},
		{"push to pr", state.StepMergePush, flags(true, true, false), state.StepMergePR},
		{"pr to gate", state.StepMergePR, flags(true, true, true), state.StepMergeGate},
		{"gate to land", state.StepMergeGate, flags(false, false, true), state.StepMergeLand},
		{"gate skips land", state.StepMergeGate, flags(true, true, false), state.StepMergeFinalize},
		{"land to verify", state.StepMergeLand, flags(false, false, true), state.StepMergeVerify},
		{"verify to finalize", state.StepMergeVerify, flags(false, false, true), state.StepMergeFinalize},
		{"finalize is terminal", state.StepMergeFinalize, flags(false, false, false), stepDone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := next(tt.completed, tt.st); got != tt.want {
				t.Errorf("next(%s) = %s, want %s", tt.completed, got, tt.want)
			}
		})
	}
}
