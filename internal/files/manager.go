package files

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

const (
	dirPermissions = 0o755

	plansDirName   = "plans"
	configFileName = "config.json"
	planExt        = ".md"
	lockExt        = ".lock"
	eventsExt      = ".events.log"
)

// ErrInvalidPlanID is returned for ids that cannot name a plan file.
var ErrInvalidPlanID = errors.New("invalid plan id")

// Manager centralizes where plans live on disk and how their files are named.
type Manager struct {
	basePath string
}

// NewManager constructs a Manager rooted at the provided directory. If basePath
// is empty, it falls back to ~/.nibab (or another location determined by
// ResolveBasePath).
func NewManager(basePath string) (*Manager, error) {
	var err error
	if basePath == "" {
		basePath, err = ResolveBasePath()
		if err != nil {
			return nil, err
		}
	}
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, err
	}

	return &Manager{basePath: abs}, nil
}

// BasePath returns the root data directory.
func (m *Manager) BasePath() string {
	return m.basePath
}

// ConfigPath is the location of config.json. The file is optional.
func (m *Manager) ConfigPath() string {
	return filepath.Join(m.basePath, configFileName)
}

// PlansDir holds one Markdown file per plan.
func (m *Manager) PlansDir() string {
	return filepath.Join(m.basePath, plansDirName)
}

// PlanPath resolves the Markdown file for a plan. The file may not exist yet.
func (m *Manager) PlanPath(id string) string {
	return filepath.Join(m.PlansDir(), id+planExt)
}

// LockPath is the advisory lock file guarding writes to a plan.
func (m *Manager) LockPath(id string) string {
	return filepath.Join(m.PlansDir(), id+lockExt)
}

// EventsPath is the JSON Lines history of a plan.
func (m *Manager) EventsPath(id string) string {
	return filepath.Join(m.PlansDir(), id+eventsExt)
}

// EnsurePlansDir creates the plans directory if needed and returns it.
func (m *Manager) EnsurePlansDir() (string, error) {
	if m == nil {
		return "", errors.New("files.Manager is nil")
	}
	dir := m.PlansDir()
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return "", fmt.Errorf("create directories: %w", err)
	}
	return dir, nil
}

// PlanIDs lists the ids of every plan file, sorted. A missing plans
// directory means no plans.
func (m *Manager) PlanIDs() ([]string, error) {
	entries, err := os.ReadDir(m.PlansDir())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read plans directory: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, planExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, planExt))
	}
	slices.Sort(ids)
	return ids, nil
}

// ValidateID rejects ids that would escape the plans directory or collide
// with the lock and event files.
func ValidateID(id string) error {
	switch {
	case strings.TrimSpace(id) == "":
		return fmt.Errorf("%w: empty", ErrInvalidPlanID)
	case id == "." || id == "..":
		return fmt.Errorf("%w: %q", ErrInvalidPlanID, id)
	case strings.ContainsAny(id, `/\`) || strings.ContainsRune(id, filepath.Separator):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidPlanID, id)
	case strings.HasSuffix(id, ".events") || strings.ContainsAny(id, " \t\n"):
		return fmt.Errorf("%w: %q", ErrInvalidPlanID, id)
	}
	return nil
}
