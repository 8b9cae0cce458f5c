package artifact

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeArtifact(t *testing.T, dir, name string, v any) {
	t.Helper()
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		t.Fatalf("marshal %s: %v", name, err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestCheck_ParseFailureIsSingleError(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, RequirementsFile), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	out := Check(dir, RequirementsFile)
	if out.Valid {
		t.Fatal("malformed JSON must be invalid")
	}
	if len(out.Errors) != 1 {
		t.Fatalf("parse failure must yield exactly one error, got %d: %v", len(out.Errors), out.Errors)
	}
	if !strings.Contains(out.Errors[0], "parse") {
		t.Errorf("error %q should describe the parse problem", out.Errors[0])
	}
}

func TestCheck_MissingFileIsInvalid(t *testing.T) {
	out := Check(t.TempDir(), PlanFile)
	if out.Valid {
		t.Fatal("missing artifact must be invalid")
	}
	if len(out.Errors) != 1 {
		t.Fatalf("expected one error, got: %v", out.Errors)
	}
}

func TestCheck_EmptyRequirementsNamesEveryMissingField(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, RequirementsFile), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}

	out := Check(dir, RequirementsFile)
	if out.Valid {
		t.Fatal("empty requirements must be invalid")
	}
	for _, field := range []string{"name", "oneLiner", "technologies"} {
		found := false
		for _, e := range out.Errors {
			if strings.Contains(e, field) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("errors should name %q, got: %v", field, out.Errors)
		}
	}
}

func TestCheck_ValidRoundTrip(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, RequirementsFile, &Requirements{
		Name:         "login",
		OneLiner:     "Add login",
		Content:      "Users authenticate with a password.",
		Technologies: []string{"go"},
	})

	out := Check(dir, RequirementsFile)
	if !out.Valid {
		t.Fatalf("expected valid, got: %v", out.Errors)
	}
	if len(out.Errors) != 0 {
		t.Errorf("valid outcome must carry an empty error list, got: %v", out.Errors)
	}
}

func TestCheck_TasksCrossReferencesPlan(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, PlanFile, validPlan())
	writeArtifact(t, dir, TasksFile, &Tasks{
		Tasks: []Task{{
			ID:                 "task-1",
			PhaseID:            "phase-404",
			Title:              "Orphan",
			AcceptanceCriteria: []string{"x"},
		}},
	})

	out := Check(dir, TasksFile)
	if out.Valid {
		t.Fatal("task with unknown phase must be invalid")
	}
	found := false
	for _, e := range out.Errors {
		if strings.Contains(e, "phase-404") {
			found = true
		}
	}
	if !found {
		t.Errorf("errors should name the unknown phase, got: %v", out.Errors)
	}
}

func TestCheck_TasksWithoutPlanFails(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, TasksFile, validTasks())

	out := Check(dir, TasksFile)
	if out.Valid {
		t.Fatal("tasks without a plan cannot be cross-referenced")
	}
}

func TestCheck_UnknownArtifact(t *testing.T) {
	out := Check(t.TempDir(), "mystery.json")
	if out.Valid {
		t.Fatal("unknown artifact names must be invalid")
	}
}

func TestAppendRejection_IterationsAndPreservation(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, RequirementsFile, &Requirements{
		Name:         "login",
		OneLiner:     "Add login",
		Content:      "content",
		Technologies: []string{"go"},
	})

	for i := 1; i <= 3; i++ {
		iteration, err := AppendRejection(dir, RequirementsFile, "feedback round")
		if err != nil {
			t.Fatalf("AppendRejection #%d: %v", i, err)
		}
		if iteration != i {
			t.Errorf("iteration = %d, want %d", iteration, i)
		}
	}

	entries, err := Rejections(dir, RequirementsFile)
	if err != nil {
		t.Fatalf("Rejections: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for i, e := range entries {
		if e.Iteration != i+1 {
			t.Errorf("entries[%d].Iteration = %d, want %d", i, e.Iteration, i+1)
		}
	}

	// The artifact's own fields must survive the rewrite.
	r, err := LoadRequirements(dir)
	if err != nil {
		t.Fatalf("LoadRequirements after rejection: %v", err)
	}
	if r.Name != "login" || len(r.Technologies) != 1 {
		t.Errorf("rejection append corrupted artifact: %+v", r)
	}
	if out := Check(dir, RequirementsFile); !out.Valid {
		t.Errorf("artifact should stay valid after rejections, got: %v", out.Errors)
	}
}

func TestRejections_MissingArtifact(t *testing.T) {
	entries, err := Rejections(t.TempDir(), PlanFile)
	if err != nil {
		t.Fatalf("Rejections: %v", err)
	}
	if entries != nil {
		t.Errorf("expected no entries for missing artifact, got: %v", entries)
	}
}
