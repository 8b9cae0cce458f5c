// Package state defines the run state threaded through every pipeline step.
//
// A RunState is the single mutable context of one pipeline execution. It is
// never shared by reference between steps: the graph executor clones it
// before each step and replaces it wholesale with the step's result, so two
// steps can never observe each other's partial writes.
package state

import (
	"time"

	"github.com/google/uuid"
)

// Phase identifies one stage of the delivery pipeline.
type Phase string

const (
	PhaseAnalyze      Phase = "analyze"
	PhaseRequirements Phase = "requirements"
	PhaseResearch     Phase = "research"
	PhasePlan         Phase = "plan"
	PhaseImplement    Phase = "implement"
	PhaseMerge        Phase = "merge"
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	return string(p)
}

// Lifecycle represents a feature's position in its delivery lifecycle.
type Lifecycle string

const (
	LifecycleSpecify  Lifecycle = "specify"
	LifecycleBuild    Lifecycle = "build"
	LifecycleReview   Lifecycle = "review"
	LifecycleMaintain Lifecycle = "maintain"
)

// StepKind classifies a step. The router switches exhaustively on step
// names, but kinds let gates and the validate/repair loop be recognized
// without string inspection.
type StepKind int

const (
	KindProducer StepKind = iota
	KindValidate
	KindRepair
	KindGate
)

// String returns the string representation of the step kind.
func (k StepKind) String() string {
	switch k {
	case KindProducer:
		return "producer"
	case KindValidate:
		return "validate"
	case KindRepair:
		return "repair"
	case KindGate:
		return "gate"
	default:
		return "unknown"
	}
}

// StepName identifies a step in the pipeline graph. The set of step names
// is closed: the engine's router switches exhaustively over it, so adding
// a phase is a compile-time-checked change.
type StepName string

const (
	StepAnalyzeProduce  StepName = "analyze.produce"
	StepAnalyzeValidate StepName = "analyze.validate"
	StepAnalyzeRepair   StepName = "analyze.repair"

	StepRequirementsProduce  StepName = "requirements.produce"
	StepRequirementsValidate StepName = "requirements.validate"
	StepRequirementsRepair   StepName = "requirements.repair"
	StepRequirementsGate     StepName = "requirements.gate"

	StepResearchProduce  StepName = "research.produce"
	StepResearchValidate StepName = "research.validate"
	StepResearchRepair   StepName = "research.repair"

	StepPlanProduce  StepName = "plan.produce"
	StepPlanValidate StepName = "plan.validate"
	StepPlanRepair   StepName = "plan.repair"

	StepTasksValidate StepName = "tasks.validate"
	StepTasksRepair   StepName = "tasks.repair"

	StepPlanGate StepName = "plan.gate"

	StepImplementProduce StepName = "implement.produce"

	StepMergeCommit   StepName = "merge.commit"
	StepMergePush     StepName = "merge.push"
	StepMergePR       StepName = "merge.pr"
	StepMergeGate     StepName = "merge.gate"
	StepMergeLand     StepName = "merge.land"
	StepMergeVerify   StepName = "merge.verify"
	StepMergeFinalize StepName = "merge.finalize"
)

// String returns the string representation of the step name.
func (s StepName) String() string {
	return string(s)
}

// Kind returns the step's kind.
func (s StepName) Kind() StepKind {
	switch s {
	case StepAnalyzeValidate, StepRequirementsValidate, StepResearchValidate,
		StepPlanValidate, StepTasksValidate:
		return KindValidate
	case StepAnalyzeRepair, StepRequirementsRepair, StepResearchRepair,
		StepPlanRepair, StepTasksRepair:
		return KindRepair
	case StepRequirementsGate, StepPlanGate, StepMergeGate:
		return KindGate
	default:
		return KindProducer
	}
}

// Phase returns the pipeline phase a step belongs to.
func (s StepName) Phase() Phase {
	switch s {
	case StepAnalyzeProduce, StepAnalyzeValidate, StepAnalyzeRepair:
		return PhaseAnalyze
	case StepRequirementsProduce, StepRequirementsValidate, StepRequirementsRepair, StepRequirementsGate:
		return PhaseRequirements
	case StepResearchProduce, StepResearchValidate, StepResearchRepair:
		return PhaseResearch
	case StepPlanProduce, StepPlanValidate, StepPlanRepair,
		StepTasksValidate, StepTasksRepair, StepPlanGate:
		return PhasePlan
	case StepImplementProduce:
		return PhaseImplement
	default:
		return PhaseMerge
	}
}

// GateConfig holds the per-phase auto-approval flags. A true value means
// the gate is bypassed entirely (no suspension) for that phase.
type GateConfig struct {
	Requirements bool `json:"requirements"`
	Plan         bool `json:"plan"`
	Merge        bool `json:"merge"`
}

// AutoApproved reports whether the gate for the given phase is bypassed.
func (g GateConfig) AutoApproved(phase Phase) bool {
	switch phase {
	case PhaseRequirements:
		return g.Requirements
	case PhasePlan:
		return g.Plan
	case PhaseMerge:
		return g.Merge
	default:
		return true
	}
}

// MergeFlags is the immutable per-run merge configuration.
type MergeFlags struct {
	Push       bool `json:"push"`
	OpenPR     bool `json:"openPr"`
	AllowMerge bool `json:"allowMerge"`
}

// DiffSummary is the informational payload shown at the merge approval
// gate. It is never itself validated.
type DiffSummary struct {
	FilesChanged int `json:"filesChanged"`
	Additions    int `json:"additions"`
	Deletions    int `json:"deletions"`
	CommitCount  int `json:"commitCount"`
}

// StepMessage is one entry in the run's ordered message log.
type StepMessage struct {
	Step    StepName  `json:"step"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// RunState is the full state of one pipeline run. Steps receive a clone
// and return a replacement; they never mutate a shared instance.
type RunState struct {
	RunID     string `json:"runId"`
	FeatureID string `json:"featureId"`

	RepoDir     string `json:"repoDir"`
	WorkDir     string `json:"workDir"`
	ArtifactDir string `json:"artifactDir"`

	Branch     string `json:"branch"`
	BaseBranch string `json:"baseBranch"`

	Gates GateConfig `json:"gates"`
	Merge MergeFlags `json:"merge"`

	Messages []StepMessage `json:"messages"`

	// FatalError preserves the last fatal error message; empty when none.
	FatalError string `json:"fatalError,omitempty"`

	// Validation loop bookkeeping.
	ValidationRetries  int      `json:"validationRetries"`
	ValidatingArtifact string   `json:"validatingArtifact,omitempty"`
	ValidationErrors   []string `json:"validationErrors,omitempty"`

	// Merge outputs.
	PRURL          string       `json:"prUrl,omitempty"`
	PRNumber       int          `json:"prNumber,omitempty"`
	CIStatus       string       `json:"ciStatus,omitempty"`
	Diff           *DiffSummary `json:"diff,omitempty"`
	MergeAttempted bool         `json:"mergeAttempted"`
	MergeLanded    bool         `json:"mergeLanded"`

	// IterationWarning is set when a gated phase reaches its fifth
	// iteration of rejection feedback, and cleared when its gate is
	// approved.
	IterationWarning bool `json:"iterationWarning"`
}

// NewRunID generates a new unique run identity.
func NewRunID() string {
	return uuid.NewString()
}

// Clone returns a deep copy of the run state. Steps operate on clones so
// that a failed step can never leave a partially mutated state behind.
func (s RunState) Clone() RunState {
	out := s

	if s.Messages != nil {
		out.Messages = make([]StepMessage, len(s.Messages))
		copy(out.Messages, s.Messages)
	}
	if s.ValidationErrors != nil {
		out.ValidationErrors = make([]string, len(s.ValidationErrors))
		copy(out.ValidationErrors, s.ValidationErrors)
	}
	if s.Diff != nil {
		diff := *s.Diff
		out.Diff = &diff
	}

	return out
}

// AppendMessage returns a copy of the state with a message appended to the
// ordered log.
func (s RunState) AppendMessage(step StepName, message string) RunState {
	out := s.Clone()
	out.Messages = append(out.Messages, StepMessage{
		Step:    step,
		Message: message,
		Time:    time.Now().UTC(),
	})
	return out
}

// ResetValidation returns a copy of the state with the validation retry
// counter and error list cleared. Called when an artifact passes its
// schema check.
func (s RunState) ResetValidation() RunState {
	out := s.Clone()
	out.ValidationRetries = 0
	out.ValidatingArtifact = ""
	out.ValidationErrors = nil
	return out
}
