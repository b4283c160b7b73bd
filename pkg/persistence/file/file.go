// Package file provides file-based persistence for local development and tests.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fluxofin/fluxo/pkg/persistence"
)

// Persistence implements persistence.Persistence on top of JSON files.
type Persistence struct {
	root          string
	workflowRepo  *WorkflowRepository
	executionRepo *ExecutionRepository
	scheduleRepo  *ScheduleRepository
}

// NewPersistence creates a file persistence layer rooted at the given directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	// One lock serializes every mutation; the claim check-then-insert in
	// particular must not interleave.
	mu := &sync.Mutex{}

	p := &Persistence{root: cleanRoot}
	p.workflowRepo = &WorkflowRepository{persistence: p, mu: mu}
	p.executionRepo = &ExecutionRepository{persistence: p, mu: mu}
	p.scheduleRepo = &ScheduleRepository{persistence: p, mu: mu}

	return p
}

func (p *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return p.workflowRepo
}

func (p *Persistence) ExecutionRepository() persistence.ExecutionRepository {
	return p.executionRepo
}

func (p *Persistence) ScheduleRepository() persistence.ScheduleRepository {
	return p.scheduleRepo
}

// HealthCheck verifies the root directory is usable.
func (p *Persistence) HealthCheck(_ context.Context) error {
	return os.MkdirAll(p.root, 0o755)
}

// Close performs any necessary cleanup. Nothing to do for files.
func (p *Persistence) Close(_ context.Context) error {
	return nil
}

func (p *Persistence) dir(kind string) string {
	return filepath.Join(p.root, kind)
}

// writeJSON marshals v to <root>/<kind>/<id>.json via a temp file and rename
// so readers never observe a partial write.
func (p *Persistence) writeJSON(kind, id string, v any) error {
	dir := p.dir(kind)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", kind, err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s %s: %w", kind, id, err)
	}

	tmp := filepath.Join(dir, id+".json.tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s %s: %w", kind, id, err)
	}

	return os.Rename(tmp, filepath.Join(dir, id+".json"))
}

// readJSON loads <root>/<kind>/<id>.json into v. Returns os.ErrNotExist when
// the record is absent.
func (p *Persistence) readJSON(kind, id string, v any) error {
	data, err := os.ReadFile(filepath.Join(p.dir(kind), id+".json"))
	if err != nil {
		return err
	}

	return json.Unmarshal(data, v)
}

// eachJSON invokes fn with the raw contents of every record of the kind.
func (p *Persistence) eachJSON(kind string, fn func(data []byte) error) error {
	entries, err := os.ReadDir(p.dir(kind))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}

		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(p.dir(kind), entry.Name()))
		if err != nil {
			return err
		}

		if err := fn(data); err != nil {
			return err
		}
	}

	return nil
}

func (p *Persistence) remove(kind, id string) error {
	err := os.Remove(filepath.Join(p.dir(kind), id+".json"))
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	return nil
}
