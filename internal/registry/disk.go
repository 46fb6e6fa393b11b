// Package registry provides the on-disk implementation of the Registry interface.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DiskRegistry stores model artifacts under root/<name>/. Each Save writes a
// new <run-id>.model file plus a meta.json sidecar, then atomically rewrites
// the "latest" pointer, so a crash mid-save never corrupts the active version.
type DiskRegistry struct {
	root string
	mu   sync.Mutex
}

// runMeta describes one saved artifact version.
type runMeta struct {
	RunID   string    `json:"run_id"`
	Name    string    `json:"name"`
	Size    int       `json:"size_bytes"`
	SavedAt time.Time `json:"saved_at"`
}

// NewDiskRegistry creates a registry rooted at dir, creating it if needed.
func NewDiskRegistry(dir string) (*DiskRegistry, error) {
	if dir == "" {
		return nil, fmt.Errorf("registry dir must not be empty")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create registry dir: %w", err)
	}
	return &DiskRegistry{root: dir}, nil
}

// Save writes blob as a new artifact version of name and points "latest" at it.
func (r *DiskRegistry) Save(ctx context.Context, name string, blob []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validName(name); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	dir := filepath.Join(r.root, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}

	runID := uuid.New().String()
	artifact := filepath.Join(dir, runID+".model")
	if err := os.WriteFile(artifact, blob, 0600); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}

	meta := runMeta{RunID: runID, Name: name, Size: len(blob), SavedAt: time.Now().UTC()}
	metaBytes, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal artifact meta: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, runID+".meta.json"), metaBytes, 0600); err != nil {
		return fmt.Errorf("write artifact meta: %w", err)
	}

	// Point "latest" at the new run via tmp + rename.
	tmp := filepath.Join(dir, "latest.tmp")
	if err := os.WriteFile(tmp, []byte(runID), 0600); err != nil {
		return fmt.Errorf("write latest pointer: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(dir, "latest")); err != nil {
		return fmt.Errorf("swap latest pointer: %w", err)
	}
	return nil
}

// Load returns the blob the "latest" pointer of name refers to.
// Returns ErrNotFound when the slot or its artifact does not exist.
func (r *DiskRegistry) Load(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validName(name); err != nil {
		return nil, err
	}
	dir := filepath.Join(r.root, name)
	pointer, err := os.ReadFile(filepath.Join(dir, "latest"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("read latest pointer: %w", err)
	}
	runID := strings.TrimSpace(string(pointer))
	blob, err := os.ReadFile(filepath.Join(dir, runID+".model"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s run %s", ErrNotFound, name, runID)
		}
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	return blob, nil
}

// validName rejects names that would escape the registry root.
func validName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("invalid model name: %q", name)
	}
	return nil
}
