// Package artifact defines the phase artifacts produced by the external
// coding agent and their schema validators.
//
// Each phase that emits a machine-readable artifact writes a JSON document
// into the run's artifact directory. Validators are pure functions from a
// parsed document to an ordered list of human-readable error strings, each
// naming the offending field path. An empty list means the artifact is
// valid.
package artifact

import "time"

// Artifact file names within a run's artifact directory.
const (
	AnalysisFile     = "analysis.json"
	RequirementsFile = "requirements.json"
	ResearchFile     = "research.json"
	PlanFile         = "plan.json"
	TasksFile        = "tasks.json"
)

// RejectionEntry records one human rejection of a gated phase's artifact.
// Entries are appended in order; iteration is the count of prior entries
// plus one at write time. Producers read entries back so the regenerated
// artifact can address the feedback.
type RejectionEntry struct {
	Iteration int       `json:"iteration"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// OpenQuestion is an unresolved question surfaced by the agent. An empty
// open-questions list is valid.
type OpenQuestion struct {
	Question string `json:"question"`
	Resolved bool   `json:"resolved"`
	Answer   string `json:"answer,omitempty"`
}

// Analysis is the artifact of the analyze phase: the agent's understanding
// of the existing codebase.
type Analysis struct {
	Content    string           `json:"content"`
	Components []string         `json:"components"`
	Rejections []RejectionEntry `json:"rejections,omitempty"`
}

// Requirements is the artifact of the requirements phase.
type Requirements struct {
	Name          string           `json:"name"`
	OneLiner      string           `json:"oneLiner"`
	Content       string           `json:"content"`
	Technologies  []string         `json:"technologies"`
	OpenQuestions []OpenQuestion   `json:"openQuestions"`
	Rejections    []RejectionEntry `json:"rejections,omitempty"`
}

// Research is the artifact of the research phase.
type Research struct {
	Content       string           `json:"content"`
	Findings      []string         `json:"findings"`
	OpenQuestions []OpenQuestion   `json:"openQuestions,omitempty"`
	Rejections    []RejectionEntry `json:"rejections,omitempty"`
}

// PlanPhase is one phase of the implementation plan. Tasks reference
// phases by ID.
type PlanPhase struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Parallel bool   `json:"parallel"`
}

// Plan is the artifact of the plan phase.
type Plan struct {
	Content       string           `json:"content"`
	Phases        []PlanPhase      `json:"phases"`
	FilesToCreate []string         `json:"filesToCreate"`
	FilesToModify []string         `json:"filesToModify"`
	Rejections    []RejectionEntry `json:"rejections,omitempty"`
}

// Task states recognized by the implement phase.
const (
	TaskPending    = "pending"
	TaskInProgress = "in_progress"
	TaskComplete   = "complete"
)

// Task is one unit of implementation work. Dependencies form a directed
// acyclic graph that determines execution order.
type Task struct {
	ID                 string   `json:"id"`
	PhaseID            string   `json:"phaseId"`
	Title              string   `json:"title"`
	State              string   `json:"state"`
	AcceptanceCriteria []string `json:"acceptanceCriteria"`
	Dependencies       []string `json:"dependencies"`
}

// Tasks is the task-list artifact produced alongside the plan.
type Tasks struct {
	Tasks      []Task           `json:"tasks"`
	Rejections []RejectionEntry `json:"rejections,omitempty"`
}

// Outcome is the result of validating one artifact: either valid, or
// invalid with an ordered list of error strings.
type Outcome struct {
	Valid  bool
	Errors []string
}

// ValidOutcome returns a passing outcome.
func ValidOutcome() Outcome {
	return Outcome{Valid: true}
}

// InvalidOutcome returns a failing outcome with the given errors.
func InvalidOutcome(errs []string) Outcome {
	return Outcome{Valid: false, Errors: errs}
}

// ValidTaskStates returns the recognized task state values.
func ValidTaskStates() []string {
	return []string{TaskPending, TaskInProgress, TaskComplete}
}
