// Package engine drives one pipeline run from its current checkpoint to
// completion, suspension at an approval gate, or a fatal error. Steps
// execute strictly sequentially; the engine checkpoints after every
// completed step and resumes strictly after the last checkpointed one.
package engine

import (
	"context"
	"fmt"

	"github.com/pipewright/pipewright/internal/agent"
	"github.com/pipewright/pipewright/internal/checkpoint"
	"github.com/pipewright/pipewright/internal/config"
	"github.com/pipewright/pipewright/internal/errors"
	"github.com/pipewright/pipewright/internal/feature"
	"github.com/pipewright/pipewright/internal/gate"
	"github.com/pipewright/pipewright/internal/gitops"
	"github.com/pipewright/pipewright/internal/logging"
	"github.com/pipewright/pipewright/internal/state"
)

// Engine sequences the pipeline steps for a run.
type Engine struct {
	store    checkpoint.Store
	executor agent.Executor
	git      gitops.Service
	features feature.Repository
	gates    *gate.Controller
	cfg      *config.Config
	logger   *logging.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig sets the engine's configuration.
func WithConfig(cfg *config.Config) Option {
	return func(e *Engine) {
		e.cfg = cfg
	}
}

// WithLogger sets the engine's logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithGateController sets the engine's gate controller.
func WithGateController(c *gate.Controller) Option {
	return func(e *Engine) {
		e.gates = c
	}
}

// New creates an Engine wired to its collaborators.
func New(store checkpoint.Store, executor agent.Executor, git gitops.Service, features feature.Repository, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		executor: executor,
		git:      git,
		features: features,
		cfg:      config.Default(),
		logger:   logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.gates == nil {
		e.gates = gate.NewController(gate.WithLogger(e.logger))
	}
	return e
}

// Run executes a run from its seed state, or — when a checkpoint already
// exists for the seed's run identity — continues strictly after the last
// completed step. Calling Run again after a crash is the external retry
// contract: completed steps are never re-invoked.
func (e *Engine) Run(ctx context.Context, seed state.RunState) Outcome {
	if seed.RunID == "" {
		seed.RunID = state.NewRunID()
	}
	if seed.Merge.OpenPR {
		// A pull request requires the branch on the remote.
		seed.Merge.Push = true
	}

	st, step, err := e.startingPoint(seed)
	if err != nil {
		return Failed(seed, err)
	}
	return e.loop(ctx, st, step, nil)
}

// Resume continues a suspended run with a human approval decision. The
// run identity is the sole correlation key; the decision is applied at the
// first suspending gate the run reaches.
func (e *Engine) Resume(ctx context.Context, runID string, decision gate.Decision) Outcome {
	snap, err := e.store.LoadLatest(runID)
	if err != nil {
		return Failed(state.RunState{RunID: runID}, err)
	}

	resume := next(snap.Step, snap.State)
	if resume == stepDone {
		return Failed(snap.State, fmt.Errorf("%w: %s", errors.ErrRunCompleted, runID))
	}
	return e.loop(ctx, snap.State, resume, &decision)
}

// startingPoint resolves where a Run call begins: the seed for a fresh
// run, or the step after the latest checkpoint for a known identity.
func (e *Engine) startingPoint(seed state.RunState) (state.RunState, state.StepName, error) {
	snap, err := e.store.LoadLatest(seed.RunID)
	if err != nil {
		if errors.Is(err, errors.ErrRunNotFound) {
			return seed, firstStep, nil
		}
		return seed, firstStep, err
	}

	resume := next(snap.Step, snap.State)
	if resume == stepDone {
		return snap.State, stepDone, fmt.Errorf("%w: %s", errors.ErrRunCompleted, seed.RunID)
	}
	return snap.State, resume, nil
}

// loop drives steps until the run completes, suspends, or fails. The
// pending decision, if any, is consumed by the first suspending gate.
func (e *Engine) loop(ctx context.Context, st state.RunState, step state.StepName, decision *gate.Decision) Outcome {
	logger := e.logger.WithRun(st.RunID)

	for step != stepDone {
		if err := ctx.Err(); err != nil {
			return Failed(st, err)
		}

		if step.Kind() == state.KindGate {
			var outcome *Outcome
			st, step, decision, outcome = e.runGate(st, step, decision)
			if outcome != nil {
				return *outcome
			}
			continue
		}

		logger.Debug("executing step", "step", step.String())
		updated, err := e.execute(ctx, st.Clone(), step)
		if err != nil {
			logger.Error("step failed", "step", step.String(), "error", err.Error())
			return Failed(st, err)
		}

		if err := e.store.Save(st.RunID, step, updated); err != nil {
			return Failed(st, fmt.Errorf("failed to checkpoint %s: %w", step, err))
		}
		st = updated
		step = next(step, st)
	}

	logger.Info("run complete")
	return Completed(st)
}

// runGate evaluates a gate step. Auto gates pass through; manual gates
// suspend unless a decision is pending. A non-nil outcome ends the loop.
func (e *Engine) runGate(st state.RunState, step state.StepName, decision *gate.Decision) (state.RunState, state.StepName, *gate.Decision, *Outcome) {
	if !e.gates.ShouldSuspend(st, step) {
		updated := st.AppendMessage(step, "gate auto-approved")
		if err := e.store.Save(st.RunID, step, updated); err != nil {
			out := Failed(st, fmt.Errorf("failed to checkpoint %s: %w", step, err))
			return st, step, decision, &out
		}
		return updated, next(step, updated), decision, nil
	}

	if decision == nil {
		out := Suspended(st, e.gates.Suspend(st, step))
		return st, step, decision, &out
	}

	d := *decision
	if d.Approved {
		updated := st.Clone()
		updated.IterationWarning = false
		updated = updated.AppendMessage(step, "gate approved")
		if err := e.store.Save(st.RunID, step, updated); err != nil {
			out := Failed(st, fmt.Errorf("failed to checkpoint %s: %w", step, err))
			return st, step, nil, &out
		}
		return updated, next(step, updated), nil, nil
	}

	// Rejection: feedback goes onto the phase's artifact and the phase's
	// producer re-executes. The gate is not checkpointed, so the run
	// re-suspends here after re-validation.
	updated, err := e.gates.ApplyRejection(st, step, d.Feedback)
	if err != nil {
		out := Failed(st, err)
		return st, step, nil, &out
	}
	_, producer, err := gate.RejectionTarget(step)
	if err != nil {
		out := Failed(st, err)
		return st, step, nil, &out
	}
	return updated, producer, nil, nil
}

// execute dispatches a non-gate step.
func (e *Engine) execute(ctx context.Context, st state.RunState, step state.StepName) (state.RunState, error) {
	switch step.Kind() {
	case state.KindValidate:
		return e.runValidate(st, step)
	case state.KindRepair:
		return e.runRepair(ctx, st, step)
	}

	switch step {
	case state.StepAnalyzeProduce, state.StepRequirementsProduce,
		state.StepResearchProduce, state.StepPlanProduce:
		return e.runProducer(ctx, st, step)
	case state.StepImplementProduce:
		return e.runImplement(ctx, st)
	case state.StepMergeCommit:
		return e.runMergeCommit(st)
	case state.StepMergePush:
		return e.runMergePush(st)
	case state.StepMergePR:
		return e.runMergePR(st)
	case state.StepMergeLand:
		return e.runMergeLand(ctx, st)
	case state.StepMergeVerify:
		return e.runMergeVerify(st)
	case state.StepMergeFinalize:
		return e.runMergeFinalize(st)
	}
	return st, fmt.Errorf("%w: unknown step %s", errors.ErrInvalidInput, step)
}
