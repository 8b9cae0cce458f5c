package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// AppendRejection appends a rejection feedback entry to the named artifact
// and returns the entry's iteration number (count of prior entries + 1).
// Unknown fields in the artifact are preserved; only the rejections list
// changes. The write is atomic.
func AppendRejection(dir, name, message string) (int, error) {
	path := filepath.Join(dir, name)

	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading %s for rejection feedback: %w", name, err)
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return 0, fmt.Errorf("parsing %s for rejection feedback: %w", name, err)
	}

	var entries []any
	if raw, ok := doc["rejections"].([]any); ok {
		entries = raw
	}

	iteration := len(entries) + 1
	entries = append(entries, map[string]any{
		"iteration": iteration,
		"message":   message,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
	doc["rejections"] = entries

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("encoding %s: %w", name, err)
	}

	if err := atomicWriteFile(path, out, 0644); err != nil {
		return 0, fmt.Errorf("writing %s: %w", name, err)
	}

	return iteration, nil
}

// Rejections returns the rejection entries recorded on the named artifact,
// in append order. A missing artifact yields no entries.
func Rejections(dir, name string) ([]RejectionEntry, error) {
	path := filepath.Join(dir, name)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}

	var doc struct {
		Rejections []RejectionEntry `json:"rejections"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}
	return doc.Rejections, nil
}

// atomicWriteFile writes data to a temporary file in the same directory
// and renames it into place, so readers never observe a partial write.
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
