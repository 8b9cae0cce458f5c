package prompt

import (
	"strings"
	"testing"

	"github.com/pipewright/pipewright/internal/artifact"
)

func TestProducerPrompts_NameTheirArtifacts(t *testing.T) {
	ctx := ProducerContext{
		FeatureName: "login",
		Description: "Add username/password login",
		ArtifactDir: "/runs/r1/artifacts",
	}

	tests := []struct {
		name     string
		build    func(ProducerContext) (string, error)
		artifact string
	}{
		{"analyze", Analyze, "analysis.json"},
		{"requirements", Requirements, "requirements.json"},
		{"research", Research, "research.json"},
		{"plan", Plan, "plan.json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := tt.build(ctx)
			if err != nil {
				t.Fatalf("build: %v", err)
			}
			if !strings.Contains(p, "/runs/r1/artifacts/"+tt.artifact) {
				t.Errorf("prompt should name the artifact path, got:\n%s", p)
			}
			if !strings.Contains(p, "login") {
				t.Error("prompt should carry the feature name")
			}
			if strings.Contains(p, "Reviewer Feedback") {
				t.Error("no feedback section expected without rejections")
			}
		})
	}
}

func TestPlanPrompt_CoversTasksFile(t *testing.T) {
	p, err := Plan(ProducerContext{FeatureName: "login", ArtifactDir: "/a"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(p, "tasks.json") {
		t.Error("plan prompt must also request the tasks artifact")
	}
	if !strings.Contains(p, "acyclic") {
		t.Error("plan prompt should state the dependency constraint")
	}
}

func TestProducerPrompt_CarriesRejectionFeedback(t *testing.T) {
	ctx := ProducerContext{
		FeatureName: "login",
		ArtifactDir: "/a",
		Rejections: []artifact.RejectionEntry{
			{Iteration: 1, Message: "missing rate limiting"},
			{Iteration: 2, Message: "clarify session expiry"},
		},
	}
	p, err := Requirements(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(p, "Reviewer Feedback") {
		t.Fatal("expected a feedback section")
	}
	for _, msg := range []string{"missing rate limiting", "clarify session expiry"} {
		if !strings.Contains(p, msg) {
			t.Errorf("prompt should carry feedback %q", msg)
		}
	}
	if !strings.Contains(p, "iteration 2") {
		t.Error("feedback entries should show their iteration")
	}
}

func TestImplementPrompt(t *testing.T) {
	p, err := Implement(TaskContext{
		FeatureName:        "login",
		PlanContent:        "two phases",
		TaskID:             "task-3",
		Title:              "Add login handler",
		AcceptanceCriteria: []string{"POST /login returns 200"},
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, fragment := range []string{"task-3", "Add login handler", "POST /login returns 200"} {
		if !strings.Contains(p, fragment) {
			t.Errorf("prompt missing %q:\n%s", fragment, p)
		}
	}
}

func TestRepairPrompt_IsFixOnly(t *testing.T) {
	p, err := Repair(RepairContext{
		ArtifactPath: "/a/requirements.json",
		Content:      `{"name": ""}`,
		Errors:       []string{"name: must be a non-empty string", "technologies: list must not be empty"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(p, "Fix ONLY") {
		t.Error("repair prompt must be scoped to the listed problems")
	}
	if !strings.Contains(p, "name: must be a non-empty string") {
		t.Error("repair prompt must list the validation errors")
	}
	if !strings.Contains(p, `{"name": ""}`) {
		t.Error("repair prompt must include the broken content")
	}

	// Error order is meaningful to the agent.
	first := strings.Index(p, "name: must be")
	second := strings.Index(p, "technologies: list")
	if first > second {
		t.Error("errors must appear in their original order")
	}
}
