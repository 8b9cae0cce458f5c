// Package checkpoint persists run state snapshots after every completed
// pipeline step, enabling crash-safe resume.
//
// The store treats run state as an opaque blob keyed by run identity plus
// a monotonically advancing sequence. Snapshots are superseded, never
// deleted: a resumed run reads the highest sequence number. Writes are
// atomic so a crash mid-save can never corrupt the latest checkpoint.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pipewright/pipewright/internal/errors"
	"github.com/pipewright/pipewright/internal/state"
)

// Snapshot is an immutable persisted copy of run state associated with the
// last successfully completed step.
type Snapshot struct {
	Seq     int            `json:"seq"`
	RunID   string         `json:"runId"`
	Step    state.StepName `json:"step"`
	State   state.RunState `json:"state"`
	SavedAt time.Time      `json:"savedAt"`
}

// Store persists and recovers run state. Implementations must support
// concurrent writers for distinct run identities; the graph executor
// guarantees at most one in-flight step per run identity.
type Store interface {
	// Save durably persists the state for (runID, step). The executor
	// does not advance until Save returns.
	Save(runID string, step state.StepName, st state.RunState) error

	// LoadLatest returns the most recently saved snapshot for the run,
	// or errors.ErrRunNotFound if no checkpoint exists.
	LoadLatest(runID string) (*Snapshot, error)
}

// FileStore is a file-backed Store. Each run's snapshots live under
// {baseDir}/{runID}/ as zero-padded sequence-numbered JSON files.
type FileStore struct {
	baseDir string
	mu      sync.Mutex
}

// NewFileStore creates a FileStore rooted at baseDir, creating the
// directory if needed.
func NewFileStore(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

// Save persists a snapshot with the next sequence number for the run.
func (fs *FileStore) Save(runID string, step state.StepName, st state.RunState) error {
	if runID == "" {
		return fmt.Errorf("%w: empty run identity", errors.ErrInvalidInput)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	runDir := filepath.Join(fs.baseDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return fmt.Errorf("failed to create run checkpoint directory: %w", err)
	}

	seq, err := fs.nextSeq(runDir)
	if err != nil {
		return err
	}

	snap := Snapshot{
		Seq:     seq,
		RunID:   runID,
		Step:    step,
		State:   st,
		SavedAt: time.Now().UTC(),
	}
	data, err := json.MarshalIndent(&snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	name := fmt.Sprintf("%06d-%s.json", seq, sanitizeStep(step))
	return atomicWriteFile(filepath.Join(runDir, name), data, 0644)
}

// LoadLatest returns the highest-sequence snapshot for the run.
func (fs *FileStore) LoadLatest(runID string) (*Snapshot, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	runDir := filepath.Join(fs.baseDir, runID)
	entries, err := os.ReadDir(runDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", errors.ErrRunNotFound, runID)
		}
		return nil, fmt.Errorf("failed to read checkpoint directory: %w", err)
	}

	names := snapshotNames(entries)
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: %s", errors.ErrRunNotFound, runID)
	}
	sort.Strings(names)
	latest := names[len(names)-1]

	data, err := os.ReadFile(filepath.Join(runDir, latest))
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint %s: %w", latest, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint %s: %w", latest, err)
	}
	return &snap, nil
}

// nextSeq scans existing snapshots and returns the next sequence number.
func (fs *FileStore) nextSeq(runDir string) (int, error) {
	entries, err := os.ReadDir(runDir)
	if err != nil {
		return 0, fmt.Errorf("failed to scan checkpoint directory: %w", err)
	}

	max := 0
	for _, name := range snapshotNames(entries) {
		prefix, _, ok := strings.Cut(name, "-")
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(prefix); err == nil && n > max {
			max = n
		}
	}
	return max + 1, nil
}

// snapshotNames filters directory entries down to snapshot files.
func snapshotNames(entries []os.DirEntry) []string {
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	return names
}

// sanitizeStep makes a step name safe for use in a file name.
func sanitizeStep(step state.StepName) string {
	return strings.ReplaceAll(string(step), string(filepath.Separator), "_")
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
	if err := tmp.Sync(); err != nil {
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
