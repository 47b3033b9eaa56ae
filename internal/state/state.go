package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Cloudsky01/qatrun/internal/paths"
)

var ErrNoRecord = errors.New("no run has been recorded yet")

// RunRecord summarizes the last 'qatrun run'.
type RunRecord struct {
	BuildURL    string `yaml:"buildUrl,omitempty"`
	BuildNumber int    `yaml:"buildNumber,omitempty"`

	Artifact     string `yaml:"artifact,omitempty"`
	ArtifactPath string `yaml:"artifactPath,omitempty"`
	Bytes        int64  `yaml:"bytes,omitempty"`

	Mode   string `yaml:"mode,omitempty"`
	Status string `yaml:"status,omitempty"`
	Passed bool   `yaml:"passed"`

	// Error is set when the pipeline stopped before the gate.
	Error string `yaml:"error,omitempty"`

	StartedAt  time.Time `yaml:"startedAt"`
	FinishedAt time.Time `yaml:"finishedAt,omitempty"`
}

func (r *RunRecord) Duration() time.Duration {
	if r.FinishedAt.IsZero() || r.StartedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Outcome is a one-word summary for display.
func (r *RunRecord) Outcome() string {
	switch {
	case r.Passed:
		return "passed"
	case r.Error != "":
		return "error"
	default:
		return "failed"
	}
}

// RecordPath returns the run record location for a configuration file,
// creating the state directory if needed. An empty configPath selects the
// unscoped record.
func RecordPath(p *paths.Paths, configPath string) (string, error) {
	if err := p.EnsureDirs(); err != nil {
		return "", fmt.Errorf("failed to ensure state directory: %w", err)
	}

	scope := ""
	if configPath != "" {
		base := filepath.Base(configPath)
		scope = strings.TrimSuffix(base, filepath.Ext(base))
		scope = strings.TrimPrefix(scope, ".")
	}
	return p.RunRecordFile(scope), nil
}

// Load reads a run record. A missing file yields ErrNoRecord.
func Load(path string) (*RunRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoRecord
		}
		return nil, fmt.Errorf("failed to read run record: %w", err)
	}

	var record RunRecord
	if err := yaml.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("run record %s is corrupted: %w", path, err)
	}

	return &record, nil
}

func (r *RunRecord) Save(path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal run record: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// Clear removes the record file
func Clear(path string) error {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
