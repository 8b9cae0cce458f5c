// Package feature stores the features a pipeline run delivers. The merge
// flow reads a feature's branch and advances its lifecycle when a run
// finishes.
package feature

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pipewright/pipewright/internal/errors"
	"github.com/pipewright/pipewright/internal/state"
)

// Feature is one unit of work delivered by a pipeline run.
type Feature struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Branch      string          `json:"branch"`
	BaseBranch  string          `json:"baseBranch"`
	Lifecycle   state.Lifecycle `json:"lifecycle"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Repository persists features.
type Repository interface {
	// FindByID returns the feature, or errors.ErrFeatureNotFound.
	FindByID(id string) (*Feature, error)

	// Update persists the feature, replacing any prior record.
	Update(f *Feature) error
}

// FileRepository is a JSON-file-per-feature Repository rooted at a
// directory.
type FileRepository struct {
	dir string
	mu  sync.Mutex
}

// NewFileRepository creates a FileRepository rooted at dir, creating the
// directory if needed.
func NewFileRepository(dir string) (*FileRepository, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create feature directory: %w", err)
	}
	return &FileRepository{dir: dir}, nil
}

// FindByID loads a feature by its identity.
func (r *FileRepository) FindByID(id string) (*Feature, error) {
	if err := validID(id); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", errors.ErrFeatureNotFound, id)
		}
		return nil, fmt.Errorf("failed to read feature %s: %w", id, err)
	}

	var f Feature
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode feature %s: %w", id, err)
	}
	return &f, nil
}

// Update persists the feature, stamping UpdatedAt.
func (r *FileRepository) Update(f *Feature) error {
	if err := validID(f.ID); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	f.UpdatedAt = time.Now().UTC()
	if f.CreatedAt.IsZero() {
		f.CreatedAt = f.UpdatedAt
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode feature %s: %w", f.ID, err)
	}
	return atomicWriteFile(r.path(f.ID), data, 0644)
}

func (r *FileRepository) path(id string) string {
	return filepath.Join(r.dir, id+".json")
}

// validID rejects identities that would escape the repository directory.
func validID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: empty feature identity", errors.ErrInvalidInput)
	}
	if strings.ContainsAny(id, "/\\") || id != filepath.Base(id) {
		return fmt.Errorf("%w: feature identity %q contains path separators", errors.ErrInvalidInput, id)
	}
	return nil
}

// atomicWriteFile writes data to a temp file and renames it into place.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
