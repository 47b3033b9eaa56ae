package config

import (
	"os"
	"testing"
)

// TestLoadExampleConfig keeps the example configuration shipped with the repo loadable
func TestLoadExampleConfig(t *testing.T) {
	configPath := "../../qatrun.example.yaml"

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Skip("Skipping test: qatrun.example.yaml not found")
	}

	cfg, err := Load(configPath, nil)
	if err != nil {
		t.Fatalf("Failed to load example config: %v", err)
	}

	if err := cfg.ValidateRun(); err != nil {
		t.Fatalf("Example config is invalid for 'run': %v", err)
	}

	if err := cfg.ValidateSync(); err != nil {
		t.Fatalf("Example config is invalid for 'sync-suites': %v", err)
	}

	t.Logf("Loaded example config with %d suite categories", len(cfg.Suites.Mapping))
}
