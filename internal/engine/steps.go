package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/pipewright/pipewright/internal/agent"
	"github.com/pipewright/pipewright/internal/artifact"
	"github.com/pipewright/pipewright/internal/errors"
	"github.com/pipewright/pipewright/internal/prompt"
	"github.com/pipewright/pipewright/internal/state"
)

// producerContext gathers the feature description, prior phase narratives,
// and any rejection feedback for the artifact a producer regenerates.
func (e *Engine) producerContext(st state.RunState, artifactName string) (prompt.ProducerContext, error) {
	f, err := e.features.FindByID(st.FeatureID)
	if err != nil {
		return prompt.ProducerContext{}, err
	}

	ctx := prompt.ProducerContext{
		FeatureName: f.Name,
		Description: f.Description,
		ArtifactDir: st.ArtifactDir,
	}

	// Prior narratives are best-effort: a phase that has not run yet has
	// no artifact to load.
	if a, err := artifact.LoadAnalysis(st.ArtifactDir); err == nil {
		ctx.Analysis = a.Content
	}
	if r, err := artifact.LoadRequirements(st.ArtifactDir); err == nil {
		ctx.Requirements = r.Content
	}
	if r, err := artifact.LoadResearch(st.ArtifactDir); err == nil {
		ctx.Research = r.Content
	}
	if p, err := artifact.LoadPlan(st.ArtifactDir); err == nil {
		ctx.Plan = p.Content
	}

	if artifactName != "" {
		rejections, err := artifact.Rejections(st.ArtifactDir, artifactName)
		if err != nil {
			return ctx, err
		}
		ctx.Rejections = rejections
	}
	return ctx, nil
}

// runProducer invokes the agent to generate a phase's artifact. Any
// executor failure is fatal to this invocation; the caller retries
// externally with the same run identity.
func (e *Engine) runProducer(ctx context.Context, st state.RunState, step state.StepName) (state.RunState, error) {
	var (
		build        func(prompt.ProducerContext) (string, error)
		artifactName string
	)
	switch step {
	case state.StepAnalyzeProduce:
		build, artifactName = prompt.Analyze, artifact.AnalysisFile
	case state.StepRequirementsProduce:
		build, artifactName = prompt.Requirements, artifact.RequirementsFile
	case state.StepResearchProduce:
		build, artifactName = prompt.Research, artifact.ResearchFile
	case state.StepPlanProduce:
		build, artifactName = prompt.Plan, artifact.PlanFile
	default:
		return st, fmt.Errorf("%w: %s is not a producer step", errors.ErrInvalidInput, step)
	}

	pctx, err := e.producerContext(st, artifactName)
	if err != nil {
		return st, err
	}
	p, err := build(pctx)
	if err != nil {
		return st, err
	}

	if _, err := e.executor.Execute(ctx, agent.Request{
		Prompt:   p,
		WorkDir:  st.WorkDir,
		MaxTurns: e.cfg.Agent.MaxTurns,
	}); err != nil {
		return st, errors.NewExecutorError("agent invocation failed", err).
			WithRunID(st.RunID).
			WithStep(step.String())
	}

	return st.AppendMessage(step, fmt.Sprintf("%s generated", artifactName)), nil
}

// runValidate checks a producer's artifact against its schema. A parse
// failure is itself an invalid outcome. Validation failures are absorbed
// into the repair loop until the attempt budget is spent, then escalate to
// a fatal run error.
func (e *Engine) runValidate(st state.RunState, step state.StepName) (state.RunState, error) {
	name := validatedArtifact(step)
	outcome := artifact.Check(st.ArtifactDir, name)

	if outcome.Valid {
		out := st.ResetValidation()
		return out.AppendMessage(step, fmt.Sprintf("%s valid", name)), nil
	}

	if st.ValidationRetries >= e.cfg.Repair.MaxAttempts {
		return st, errors.NewValidationError("schema check failed", errors.ErrRepairBudgetExhausted).
			WithArtifact(name).
			WithFieldErrors(outcome.Errors).
			WithAttempts(st.ValidationRetries)
	}

	out := st.Clone()
	out.ValidationRetries++
	out.ValidatingArtifact = name
	out.ValidationErrors = outcome.Errors
	return out.AppendMessage(step, fmt.Sprintf("%s invalid (%d errors), routing to repair", name, len(outcome.Errors))), nil
}

// runRepair asks the agent to fix only the recorded schema problems,
// with a small turn budget and a write-only capability set. Correctness
// is re-established by the validate step that always follows.
func (e *Engine) runRepair(ctx context.Context, st state.RunState, step state.StepName) (state.RunState, error) {
	name := st.ValidatingArtifact
	if name == "" {
		name = validatedArtifact(step)
	}

	content, err := artifact.ReadRaw(st.ArtifactDir, name)
	if err != nil {
		content = nil
	}

	p, err := prompt.Repair(prompt.RepairContext{
		ArtifactPath: st.ArtifactDir + "/" + name,
		Content:      string(content),
		Errors:       st.ValidationErrors,
	})
	if err != nil {
		return st, err
	}

	if _, err := e.executor.Execute(ctx, agent.Request{
		Prompt:            p,
		WorkDir:           st.WorkDir,
		MaxTurns:          e.cfg.Agent.RepairMaxTurns,
		DisableExtensions: true,
		AllowedTools:      []string{"Read", "Write", "Edit"},
	}); err != nil {
		return st, errors.NewExecutorError("agent invocation failed", err).
			WithRunID(st.RunID).
			WithStep(step.String())
	}

	return st.AppendMessage(step, fmt.Sprintf("%s repair attempt %d", name, st.ValidationRetries)), nil
}

// runImplement executes the plan's tasks in dependency order, one agent
// invocation per task. Merge-gate rejection feedback lives on the tasks
// artifact and is carried into every task prompt.
func (e *Engine) runImplement(ctx context.Context, st state.RunState) (state.RunState, error) {
	f, err := e.features.FindByID(st.FeatureID)
	if err != nil {
		return st, err
	}
	plan, err := artifact.LoadPlan(st.ArtifactDir)
	if err != nil {
		return st, err
	}
	tasks, err := artifact.LoadTasks(st.ArtifactDir)
	if err != nil {
		return st, err
	}

	order, err := artifact.ExecutionOrder(tasks.Tasks)
	if err != nil {
		return st, err
	}
	byID := make(map[string]artifact.Task, len(tasks.Tasks))
	for _, t := range tasks.Tasks {
		byID[t.ID] = t
	}

	rejections, err := artifact.Rejections(st.ArtifactDir, artifact.TasksFile)
	if err != nil {
		return st, err
	}

	var completed []string
	for _, id := range order {
		task := byID[id]
		p, err := prompt.Implement(prompt.TaskContext{
			FeatureName:        f.Name,
			PlanContent:        plan.Content,
			TaskID:             task.ID,
			Title:              task.Title,
			AcceptanceCriteria: task.AcceptanceCriteria,
			Rejections:         rejections,
		})
		if err != nil {
			return st, err
		}

		if _, err := e.executor.Execute(ctx, agent.Request{
			Prompt:   p,
			WorkDir:  st.WorkDir,
			MaxTurns: e.cfg.Agent.MaxTurns,
		}); err != nil {
			return st, errors.NewExecutorError("agent invocation failed", err).
				WithRunID(st.RunID).
				WithStep(state.StepImplementProduce.String())
		}
		completed = append(completed, task.ID)
	}

	return st.AppendMessage(state.StepImplementProduce,
		fmt.Sprintf("implemented %d tasks: %s", len(completed), strings.Join(completed, ", "))), nil
}
