// Package gate implements the approval gate controller. Gates sit after
// the requirements and plan phases and inside the merge flow; a manual
// gate suspends the run until a human decision arrives, an auto gate is
// bypassed entirely.
package gate

import (
	"fmt"

	"github.com/pipewright/pipewright/internal/artifact"
	"github.com/pipewright/pipewright/internal/errors"
	"github.com/pipewright/pipewright/internal/logging"
	"github.com/pipewright/pipewright/internal/state"
)

// Suspension is the payload surfaced to the caller when a run suspends at
// a gate. It identifies the gate and carries review context.
type Suspension struct {
	RunID   string         `json:"runId"`
	Phase   state.Phase    `json:"phase"`
	Step    state.StepName `json:"step"`
	Message string         `json:"message"`

	// Diff is set for the merge gate only.
	Diff *state.DiffSummary `json:"diff,omitempty"`

	// IterationWarning is true when the gated phase has been rejected
	// often enough that the next iteration is the fifth or later.
	IterationWarning bool `json:"iterationWarning"`
}

// Decision is a human approval decision fed back into a suspended run.
type Decision struct {
	Approved bool   `json:"approved"`
	Feedback string `json:"feedback,omitempty"`
}

// Controller decides whether a gate suspends and applies resume decisions.
type Controller struct {
	logger *logging.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller's logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// NewController creates a gate controller.
func NewController(opts ...Option) *Controller {
	c := &Controller{logger: logging.NopLogger()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ShouldSuspend reports whether the gate step suspends the run. Auto
// gates are bypassed without suspension.
func (c *Controller) ShouldSuspend(st state.RunState, step state.StepName) bool {
	return !st.Gates.AutoApproved(step.Phase())
}

// Suspend builds the suspension payload for a gate step. The iteration
// warning is computed from the gated artifact's own rejection count, so a
// long-iterating phase never carries its warning into the gates after it.
func (c *Controller) Suspend(st state.RunState, step state.StepName) Suspension {
	phase := step.Phase()
	s := Suspension{
		RunID:   st.RunID,
		Phase:   phase,
		Step:    step,
		Message: fmt.Sprintf("awaiting approval for the %s phase", phase),
	}
	if name, _, err := RejectionTarget(step); err == nil {
		if entries, err := artifact.Rejections(st.ArtifactDir, name); err == nil {
			s.IterationWarning = len(entries)+1 >= 5
		}
	}
	if step == state.StepMergeGate && st.Diff != nil {
		diff := *st.Diff
		s.Diff = &diff
	}

	c.logger.Info("run suspended at gate", "step", step.String(), "phase", phase.String())
	return s
}

// RejectionTarget maps a gate to the artifact that receives rejection
// feedback and the producer step that regenerates it. Merge-gate feedback
// lands on the tasks artifact so the implement phase can act on it.
func RejectionTarget(step state.StepName) (string, state.StepName, error) {
	switch step {
	case state.StepRequirementsGate:
		return artifact.RequirementsFile, state.StepRequirementsProduce, nil
	case state.StepPlanGate:
		return artifact.PlanFile, state.StepPlanProduce, nil
	case state.StepMergeGate:
		return artifact.TasksFile, state.StepImplementProduce, nil
	default:
		return "", "", fmt.Errorf("%w: %s is not a gate step", errors.ErrInvalidInput, step)
	}
}

// ApplyRejection records the rejection feedback on the gated phase's
// artifact and returns the updated state. The iteration warning is set
// when the upcoming producer iteration is the fifth or later; the run is
// warned, never blocked.
func (c *Controller) ApplyRejection(st state.RunState, step state.StepName, feedback string) (state.RunState, error) {
	name, _, err := RejectionTarget(step)
	if err != nil {
		return st, err
	}

	iteration, err := artifact.AppendRejection(st.ArtifactDir, name, feedback)
	if err != nil {
		return st, fmt.Errorf("failed to record rejection on %s: %w", name, err)
	}

	out := st.Clone()
	out.IterationWarning = iteration+1 >= 5
	out = out.AppendMessage(step, fmt.Sprintf("rejected (iteration %d): %s", iteration, feedback))

	if out.IterationWarning {
		c.logger.Warn("phase is iterating unusually long",
			"step", step.String(),
			"iteration", iteration+1,
		)
	}
	return out, nil
}
