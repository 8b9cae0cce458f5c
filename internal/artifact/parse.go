package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pipewright/pipewright/internal/errors"
)

// decode reads and unmarshals the artifact at path into v. A missing file
// or malformed JSON is returned as an error wrapping the corresponding
// sentinel; callers surface it as a single-error invalid outcome rather
// than reaching the schema checker.
func decode(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", errors.ErrArtifactNotFound, filepath.Base(path))
		}
		return fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", errors.ErrArtifactParse, filepath.Base(path), err)
	}
	return nil
}

// LoadAnalysis parses the analysis artifact from dir.
func LoadAnalysis(dir string) (*Analysis, error) {
	var a Analysis
	if err := decode(filepath.Join(dir, AnalysisFile), &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// LoadRequirements parses the requirements artifact from dir.
func LoadRequirements(dir string) (*Requirements, error) {
	var r Requirements
	if err := decode(filepath.Join(dir, RequirementsFile), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// LoadResearch parses the research artifact from dir.
func LoadResearch(dir string) (*Research, error) {
	var r Research
	if err := decode(filepath.Join(dir, ResearchFile), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// LoadPlan parses the plan artifact from dir.
func LoadPlan(dir string) (*Plan, error) {
	var p Plan
	if err := decode(filepath.Join(dir, PlanFile), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// LoadTasks parses the tasks artifact from dir.
func LoadTasks(dir string) (*Tasks, error) {
	var t Tasks
	if err := decode(filepath.Join(dir, TasksFile), &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// ReadRaw returns the raw bytes of an artifact, for inclusion in repair
// prompts. Missing artifacts return the sentinel error.
func ReadRaw(dir, name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", errors.ErrArtifactNotFound, name)
		}
		return nil, err
	}
	return data, nil
}
