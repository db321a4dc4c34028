package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Artifact file names within a run directory.
const (
	FileRequirement   = "requirement.md"
	FileCode          = "app.py"
	FileReview        = "review.json"
	FileDocumentation = "documentation.md"
	FileTests         = "test_app.py"
	FileRequirements  = "requirements.txt"
	FileRunScript     = "run.sh"
	FileReport        = "report.txt"
	FileMetadata      = "metadata.json"
)

// Manager persists workflow artifacts on disk, one directory per run:
//
//	<base>/runs/<runID>/requirement.md
//	<base>/runs/<runID>/app.py
//	...
//
// Writes are atomic (temp file + rename) so a crashed run never leaves a
// partially written artifact.
type Manager struct {
	baseDir string
}

// NewManager creates a manager rooted at baseDir. The directory is created
// lazily on first save.
func NewManager(baseDir string) *Manager {
	return &Manager{baseDir: baseDir}
}

// BaseDir returns the artifact root.
func (m *Manager) BaseDir() string {
	return m.baseDir
}

// RunDir returns the directory for a run's artifacts.
func (m *Manager) RunDir(runID string) string {
	return filepath.Join(m.baseDir, "runs", runID)
}

// Save writes a named artifact for a run.
func (m *Manager) Save(runID, name, content string) error {
	return m.saveBytes(runID, name, []byte(content), 0644)
}

func (m *Manager) saveBytes(runID, name string, data []byte, perm os.FileMode) error {
	dir := m.RunDir(runID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating run dir: %w", err)
	}

	target := filepath.Join(dir, name)
	tmp, err := os.CreateTemp(dir, name+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), target)
}

// Load reads a named artifact for a run.
func (m *Manager) Load(runID, name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(m.RunDir(runID), name))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// List returns the artifact names present for a run, sorted.
func (m *Manager) List(runID string) ([]string, error) {
	entries, err := os.ReadDir(m.RunDir(runID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// ListRuns returns all run IDs with artifacts on disk.
func (m *Manager) ListRuns() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(m.baseDir, "runs"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var runs []string
	for _, entry := range entries {
		if entry.IsDir() {
			runs = append(runs, entry.Name())
		}
	}
	sort.Strings(runs)
	return runs, nil
}

// Typed helpers. Each node saves its output as soon as it has one, so the
// run directory always holds the best-available snapshot.

func (m *Manager) SaveRequirement(runID, refined string) error {
	return m.Save(runID, FileRequirement, refined)
}

func (m *Manager) SaveCode(runID, code string) error {
	return m.Save(runID, FileCode, code)
}

func (m *Manager) SaveReview(runID, reviewJSON string) error {
	return m.Save(runID, FileReview, reviewJSON)
}

func (m *Manager) SaveDocumentation(runID, docs string) error {
	return m.Save(runID, FileDocumentation, docs)
}

func (m *Manager) SaveTests(runID, tests string) error {
	return m.Save(runID, FileTests, tests)
}

// SaveDeployment writes the dependency list and run script. The script is
// written executable.
func (m *Manager) SaveDeployment(runID, requirements, runScript string) error {
	if err := m.Save(runID, FileRequirements, requirements); err != nil {
		return err
	}
	return m.saveBytes(runID, FileRunScript, []byte(runScript), 0755)
}

func (m *Manager) SaveReport(runID, report string) error {
	return m.Save(runID, FileReport, report)
}

// RunMeta records run-level metadata alongside the artifacts. Lifecycle
// cleanup reads it to decide retention.
type RunMeta struct {
	RunID      string    `json:"runId"`
	FlowID     string    `json:"flowId"`
	Status     string    `json:"status"`
	Iterations int       `json:"iterations"`
	Degraded   bool      `json:"degraded,omitempty"`
	StartedAt  time.Time `json:"startedAt"`
	EndedAt    time.Time `json:"endedAt"`
}

// SaveMeta writes run metadata.
func (m *Manager) SaveMeta(meta RunMeta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return m.saveBytes(meta.RunID, FileMetadata, data, 0644)
}

// LoadMeta reads run metadata.
func (m *Manager) LoadMeta(runID string) (*RunMeta, error) {
	data, err := os.ReadFile(filepath.Join(m.RunDir(runID), FileMetadata))
	if err != nil {
		return nil, err
	}
	var meta RunMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}
