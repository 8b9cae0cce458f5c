// Package prompt builds the instructions sent to the agent for each
// producer and repair step. Templates name the artifact file the agent
// must write and carry any rejection feedback from earlier gate reviews.
package prompt

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/pipewright/pipewright/internal/artifact"
)

// ProducerContext is the data available to every producer template.
type ProducerContext struct {
	FeatureName string
	Description string
	ArtifactDir string

	// Prior phase narratives, filled in as phases complete.
	Analysis     string
	Requirements string
	Research     string
	Plan         string

	// Rejections carries gate feedback for the phase being regenerated.
	Rejections []artifact.RejectionEntry
}

// TaskContext is the data for one implement-phase task prompt.
type TaskContext struct {
	FeatureName        string
	PlanContent        string
	TaskID             string
	Title              string
	AcceptanceCriteria []string
	Rejections         []artifact.RejectionEntry
}

// RepairContext is the data for the narrow fix-only repair prompt.
type RepairContext struct {
	ArtifactPath string
	Content      string
	Errors       []string
}

const feedbackFragment = `{{if .Rejections}}
## Reviewer Feedback
Earlier versions of this document were rejected. Address every point below
in the regenerated version:
{{range .Rejections}}- (iteration {{.Iteration}}) {{.Message}}
{{end}}{{end}}`

const analyzeTemplate = `You are analyzing a codebase before implementing the feature "{{.FeatureName}}".

## Feature
{{.Description}}

Explore the repository and write your findings to {{.ArtifactDir}}/analysis.json as JSON:
{"content": "<narrative analysis of the relevant code>", "components": ["<affected component>", ...]}

The content field is a thorough prose analysis. The components list names every
part of the codebase the feature will touch. Both are required and must be non-empty.
` + feedbackFragment

const requirementsTemplate = `You are writing the requirements for the feature "{{.FeatureName}}".

## Feature
{{.Description}}

## Codebase Analysis
{{.Analysis}}

Write the requirements to {{.ArtifactDir}}/requirements.json as JSON:
{"name": "...", "oneLiner": "...", "content": "<full requirements narrative>", "technologies": ["..."], "openQuestions": [{"question": "...", "resolved": false}]}

name, oneLiner, content and a non-empty technologies list are required.
openQuestions may be empty; include one entry per genuinely unresolved question.
` + feedbackFragment

const researchTemplate = `You are researching how to implement the feature "{{.FeatureName}}".

## Requirements
{{.Requirements}}

Investigate the approaches, libraries, and prior art relevant to these requirements.
Write your findings to {{.ArtifactDir}}/research.json as JSON:
{"content": "<research narrative>", "findings": ["<concrete finding>", ...]}

content and a non-empty findings list are required.
` + feedbackFragment

const planTemplate = `You are planning the implementation of the feature "{{.FeatureName}}".

## Requirements
{{.Requirements}}

## Research
{{.Research}}

Write two files.

{{.ArtifactDir}}/plan.json:
{"content": "<plan narrative>", "phases": [{"id": "phase-1", "name": "...", "parallel": false}], "filesToCreate": ["..."], "filesToModify": ["..."]}

{{.ArtifactDir}}/tasks.json:
{"tasks": [{"id": "task-1", "phaseId": "phase-1", "title": "...", "state": "pending", "acceptanceCriteria": ["..."], "dependencies": []}]}

Every task's phaseId must name a phase from plan.json, every dependency must
name another task, and the dependency graph must be acyclic. Each task needs
at least one acceptance criterion.
` + feedbackFragment

const implementTemplate = `You are implementing one task of the feature "{{.FeatureName}}".

## Plan
{{.PlanContent}}

## Task {{.TaskID}}: {{.Title}}
Acceptance criteria:
{{range .AcceptanceCriteria}}- {{.}}
{{end}}
Implement the task, keeping changes scoped to it. Commit your work when the
acceptance criteria are met.
` + feedbackFragment

const repairTemplate = `The file {{.ArtifactPath}} failed schema validation. Fix ONLY the problems
listed below. Preserve all existing semantic content. Do not restructure,
rewrite, or improve anything that is not listed. Write the corrected file
back to {{.ArtifactPath}}.

## Validation Errors
{{range .Errors}}- {{.}}
{{end}}
## Current Content
{{.Content}}`

var templates = template.Must(template.New("analyze").Parse(analyzeTemplate))

func init() {
	template.Must(templates.New("requirements").Parse(requirementsTemplate))
	template.Must(templates.New("research").Parse(researchTemplate))
	template.Must(templates.New("plan").Parse(planTemplate))
	template.Must(templates.New("implement").Parse(implementTemplate))
	template.Must(templates.New("repair").Parse(repairTemplate))
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to execute %s template: %w", name, err)
	}
	return buf.String(), nil
}

// Analyze builds the analyze-phase producer prompt.
func Analyze(ctx ProducerContext) (string, error) {
	return render("analyze", ctx)
}

// Requirements builds the requirements-phase producer prompt.
func Requirements(ctx ProducerContext) (string, error) {
	return render("requirements", ctx)
}

// Research builds the research-phase producer prompt.
func Research(ctx ProducerContext) (string, error) {
	return render("research", ctx)
}

// Plan builds the plan-phase producer prompt, covering both the plan and
// tasks artifacts.
func Plan(ctx ProducerContext) (string, error) {
	return render("plan", ctx)
}

// Implement builds the prompt for one implementation task.
func Implement(ctx TaskContext) (string, error) {
	return render("implement", ctx)
}

// Repair builds the narrow fix-only prompt for a broken artifact.
func Repair(ctx RepairContext) (string, error) {
	return render("repair", ctx)
}
