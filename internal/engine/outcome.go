package engine

import (
	"github.com/pipewright/pipewright/internal/gate"
	"github.com/pipewright/pipewright/internal/state"
)

// Status discriminates the three ways an engine invocation can end.
type Status int

const (
	// StatusCompleted means the run reached its terminal step.
	StatusCompleted Status = iota
	// StatusSuspended means the run is waiting at an approval gate.
	StatusSuspended
	// StatusFailed means a step errored; the last checkpoint is the
	// source of truth for what is done.
	StatusFailed
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusSuspended:
		return "suspended"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the result of one engine invocation. Suspension is a
// first-class return value, never an error.
type Outcome struct {
	Status     Status
	State      state.RunState
	Suspension *gate.Suspension
	Err        error
}

// Completed builds a terminal-success outcome.
func Completed(st state.RunState) Outcome {
	return Outcome{Status: StatusCompleted, State: st}
}

// Suspended builds a suspended outcome carrying the gate payload.
func Suspended(st state.RunState, s gate.Suspension) Outcome {
	return Outcome{Status: StatusSuspended, State: st, Suspension: &s}
}

// Failed builds a failed outcome. The state reflects progress up to the
// failing step but is not checkpointed past the last completed step.
func Failed(st state.RunState, err error) Outcome {
	out := st.Clone()
	if err != nil {
		out.FatalError = err.Error()
	}
	return Outcome{Status: StatusFailed, State: out, Err: err}
}
