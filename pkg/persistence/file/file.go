// Package file provides file-based persistence of workspaces and automations as JSON documents.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/dukex/crate/pkg/persistence"
)

const (
	workspacesDir  = "workspaces"
	automationsDir = "automations"
)

// Persistence implements persistence.Persistence on the file system. Each
// record is one JSON file named after its ID.
type Persistence struct {
	root string
	mu   sync.RWMutex
}

func NewPersistence(root string) *Persistence {
	return &Persistence{
		root: strings.Replace(root, "file://", "", 1),
	}
}

func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) recordPath(dir, id string) string {
	return filepath.Clean(filepath.Join(fp.root, dir, filepath.Base(id)+".json"))
}

func (fp *Persistence) read(dir, id string, v any) (bool, error) {
	body, err := os.ReadFile(fp.recordPath(dir, id))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, err
	}

	if err := json.Unmarshal(body, v); err != nil {
		return false, fmt.Errorf("failed to unmarshal: %w", err)
	}

	return true, nil
}

func (fp *Persistence) write(dir, id string, v any) error {
	if err := os.MkdirAll(filepath.Join(fp.root, dir), 0750); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", dir, err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal: %w", err)
	}

	// Write then rename so readers never observe a partial document.
	tmp := fp.recordPath(dir, id) + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}

	return os.Rename(tmp, fp.recordPath(dir, id))
}

func (fp *Persistence) remove(dir, id string) (bool, error) {
	err := os.Remove(fp.recordPath(dir, id))
	if err != nil && os.IsNotExist(err) {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	return true, nil
}

// ids lists record IDs in dir. A missing directory yields no IDs.
func (fp *Persistence) ids(dir string) ([]string, error) {
	files, err := fs.Glob(os.DirFS(filepath.Join(fp.root, dir)), "*.json")
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(files))
	for _, f := range files {
		ids = append(ids, strings.TrimSuffix(f, ".json"))
	}

	sort.Strings(ids)

	return ids, nil
}

var _ persistence.Persistence = (*Persistence)(nil)
