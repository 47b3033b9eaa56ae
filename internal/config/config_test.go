package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "qatrun.yaml")

	configContent := `build:
  api_url: http://jenkins:8080/job/SQA/job/QAT/lastSuccessfulBuild/api/json
trigger:
  mode: task
  log_file: C:\Temp\QAT_CILogFile.txt
  poll_interval: 250ms
  timeout: 2h
suites:
  config_file: config-file.xml
  mapping:
    audio: [test_suite3]
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := Load(configPath, nil)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.ConfigPath() != configPath {
		t.Errorf("Expected config path %s, got %s", configPath, cfg.ConfigPath())
	}

	if cfg.Trigger.Mode != TriggerModeTask {
		t.Errorf("Expected trigger mode 'task', got '%s'", cfg.Trigger.Mode)
	}

	if cfg.Trigger.PollInterval != 250*time.Millisecond {
		t.Errorf("Expected poll interval 250ms, got %v", cfg.Trigger.PollInterval)
	}

	if cfg.Trigger.Timeout != 2*time.Hour {
		t.Errorf("Expected timeout 2h, got %v", cfg.Trigger.Timeout)
	}

	if cfg.Build.ArtifactBaseURL != "http://jenkins:8080/job/SQA/job/QAT/lastSuccessfulBuild/artifact/" {
		t.Errorf("Unexpected derived artifact base URL: %s", cfg.Build.ArtifactBaseURL)
	}

	if len(cfg.Suites.Mapping) != 1 || cfg.Suites.Mapping["audio"][0] != "test_suite3" {
		t.Errorf("Expected configured mapping to replace the default, got %v", cfg.Suites.Mapping)
	}
}

func TestLoadDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "empty.yaml")
	if err := os.WriteFile(configPath, []byte("{}\n"), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := Load(configPath, nil)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Build.Extension != ".exe" {
		t.Errorf("Expected default extension '.exe', got '%s'", cfg.Build.Extension)
	}
	if cfg.Trigger.Mode != TriggerModeBatch {
		t.Errorf("Expected default mode 'batch', got '%s'", cfg.Trigger.Mode)
	}
	if cfg.Trigger.PollInterval != time.Second {
		t.Errorf("Expected default poll interval 1s, got %v", cfg.Trigger.PollInterval)
	}
	if cfg.Trigger.Timeout != 0 {
		t.Errorf("Expected no default timeout, got %v", cfg.Trigger.Timeout)
	}
	if cfg.Trigger.StatusMarker != "CI Execution status :" {
		t.Errorf("Unexpected status marker %q", cfg.Trigger.StatusMarker)
	}
	if cfg.Trigger.CompletionMarker != "QAT Ended................" {
		t.Errorf("Unexpected completion marker %q", cfg.Trigger.CompletionMarker)
	}
	if cfg.Trigger.SuccessStatus != "Pass" {
		t.Errorf("Unexpected success status %q", cfg.Trigger.SuccessStatus)
	}
	if len(cfg.Install.Args) != 3 || cfg.Install.Args[0] != "/silent" {
		t.Errorf("Unexpected install args %v", cfg.Install.Args)
	}
	if !cfg.Suites.UpdateEmail {
		t.Error("Expected update_email to default to true")
	}
	if len(cfg.Suites.Mapping) != len(DefaultSuiteMapping()) {
		t.Errorf("Expected default mapping, got %v", cfg.Suites.Mapping)
	}
}

func TestLoadEnvAndFlags(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "qatrun.yaml")
	if err := os.WriteFile(configPath, []byte("trigger:\n  log_file: from-file.txt\n"), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	t.Setenv("QATRUN_TRIGGER_BATCH_PATH", `C:\qat\qat_start.bat`)
	t.Setenv("QATRUN_TRIGGER_LOG_FILE", "from-env.txt")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("log-file", "", "")
	flags.Duration("timeout", 0, "")
	if err := flags.Parse([]string{"--log-file", "from-flag.txt", "--timeout", "90s"}); err != nil {
		t.Fatalf("Failed to parse flags: %v", err)
	}

	cfg, err := Load(configPath, flags)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Trigger.BatchPath != `C:\qat\qat_start.bat` {
		t.Errorf("Expected batch path from env, got %q", cfg.Trigger.BatchPath)
	}
	if cfg.Trigger.LogFile != "from-flag.txt" {
		t.Errorf("Expected log file from flag, got %q", cfg.Trigger.LogFile)
	}
	if cfg.Trigger.Timeout != 90*time.Second {
		t.Errorf("Expected timeout from flag, got %v", cfg.Trigger.Timeout)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil); err == nil {
		t.Fatal("Expected error for missing explicit config file")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "saved.yaml")

	original := &Config{
		Build:   Build{APIURL: "http://jenkins/job/x/lastSuccessfulBuild/api/json", Extension: ".msi"},
		Trigger: Trigger{Mode: TriggerModeBatch, BatchPath: "run.bat", LogFile: "run.log", PollInterval: 2 * time.Second},
		Suites:  Suites{ConfigFile: "suites.xml", UpdateEmail: false},
	}

	if err := original.Save(configPath); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(configPath, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Build.Extension != ".msi" {
		t.Errorf("Expected extension '.msi', got '%s'", loaded.Build.Extension)
	}
	if loaded.Trigger.PollInterval != 2*time.Second {
		t.Errorf("Expected poll interval 2s, got %v", loaded.Trigger.PollInterval)
	}
	if loaded.Suites.UpdateEmail {
		t.Error("Expected update_email false to survive the round trip")
	}
}

func TestDeriveArtifactBaseURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"http://urda:8080/job/SQA/lastSuccessfulBuild/api/json", "http://urda:8080/job/SQA/lastSuccessfulBuild/artifact/"},
		{"http://urda:8080/job/SQA/lastSuccessfulBuild/api/json/", "http://urda:8080/job/SQA/lastSuccessfulBuild/artifact/"},
		{"http://urda:8080/job/SQA/lastSuccessfulBuild", "http://urda:8080/job/SQA/lastSuccessfulBuild/artifact/"},
	}

	for _, tt := range tests {
		if got := DeriveArtifactBaseURL(tt.in); got != tt.want {
			t.Errorf("DeriveArtifactBaseURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func validRunConfig() *Config {
	return &Config{
		Build: Build{APIURL: "http://jenkins/api/json", Extension: ".exe"},
		Trigger: Trigger{
			Mode:             TriggerModeBatch,
			BatchPath:        "qat_start.bat",
			TaskName:         "RunQATAdmin",
			SchedulerCommand: "schtasks",
			LogFile:          "QAT_CILogFile.txt",
			PollInterval:     time.Second,
			StatusMarker:     "CI Execution status :",
			CompletionMarker: "QAT Ended",
			SuccessStatus:    "Pass",
		},
	}
}

func TestValidateRun(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
	}{
		{name: "Valid config", mutate: func(*Config) {}},
		{name: "Missing build URL", mutate: func(c *Config) { c.Build.APIURL = "" }, expectError: true},
		{name: "Bad build URL scheme", mutate: func(c *Config) { c.Build.APIURL = "ftp://jenkins/api/json" }, expectError: true},
		{name: "Unknown mode", mutate: func(c *Config) { c.Trigger.Mode = "cron" }, expectError: true},
		{name: "Batch without path", mutate: func(c *Config) { c.Trigger.BatchPath = "" }, expectError: true},
		{name: "Task mode without batch path", mutate: func(c *Config) {
			c.Trigger.Mode = TriggerModeTask
			c.Trigger.BatchPath = ""
		}},
		{name: "Task without name", mutate: func(c *Config) {
			c.Trigger.Mode = TriggerModeTask
			c.Trigger.TaskName = ""
		}, expectError: true},
		{name: "Missing log file", mutate: func(c *Config) { c.Trigger.LogFile = "" }, expectError: true},
		{name: "Zero poll interval", mutate: func(c *Config) { c.Trigger.PollInterval = 0 }, expectError: true},
		{name: "Negative timeout", mutate: func(c *Config) { c.Trigger.Timeout = -time.Second }, expectError: true},
		{name: "Empty success status", mutate: func(c *Config) { c.Trigger.SuccessStatus = "" }, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validRunConfig()
			tt.mutate(cfg)
			err := cfg.ValidateRun()
			if tt.expectError && err == nil {
				t.Error("Expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
		})
	}
}

func TestValidateSync(t *testing.T) {
	tests := []struct {
		name        string
		config      *Config
		expectError bool
	}{
		{
			name: "Valid config",
			config: &Config{
				SCM:    SCM{APIURL: "https://api.github.com/"},
				Suites: Suites{ConfigFile: "config-file.xml", Mapping: DefaultSuiteMapping()},
			},
		},
		{
			name: "Missing suites file",
			config: &Config{
				SCM:    SCM{APIURL: "https://api.github.com/"},
				Suites: Suites{Mapping: DefaultSuiteMapping()},
			},
			expectError: true,
		},
		{
			name: "Empty suite list",
			config: &Config{
				SCM:    SCM{APIURL: "https://api.github.com/"},
				Suites: Suites{ConfigFile: "config-file.xml", Mapping: map[string][]string{"audio": {}}},
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.ValidateSync()
			if tt.expectError && err == nil {
				t.Error("Expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
		})
	}
}

func TestLoadMergesUserAndProjectConfig(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))
	t.Setenv("HOME", tmpDir)

	userDir := filepath.Join(tmpDir, "xdg", "qatrun")
	if err := os.MkdirAll(userDir, 0755); err != nil {
		t.Fatal(err)
	}
	userConfig := "build:\n  api_url: http://jenkins/job/SQA/lastSuccessfulBuild/api/json\ntrigger:\n  log_file: user.log\n"
	if err := os.WriteFile(filepath.Join(userDir, "config.yaml"), []byte(userConfig), 0644); err != nil {
		t.Fatal(err)
	}

	projectDir := filepath.Join(tmpDir, "project")
	if err := os.MkdirAll(projectDir, 0755); err != nil {
		t.Fatal(err)
	}
	projectConfig := "trigger:\n  log_file: project.log\n"
	if err := os.WriteFile(filepath.Join(projectDir, ".qatrun.yaml"), []byte(projectConfig), 0644); err != nil {
		t.Fatal(err)
	}

	oldCwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(oldCwd)
	if err := os.Chdir(projectDir); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Build.APIURL != "http://jenkins/job/SQA/lastSuccessfulBuild/api/json" {
		t.Errorf("expected build URL from user config, got %q", cfg.Build.APIURL)
	}
	if cfg.Trigger.LogFile != "project.log" {
		t.Errorf("expected project config to override the log file, got %q", cfg.Trigger.LogFile)
	}
	if filepath.Base(cfg.ConfigPath()) != ".qatrun.yaml" {
		t.Errorf("expected config path to be the project file, got %q", cfg.ConfigPath())
	}
}

func TestLoadWithoutAnyFile(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))

	oldCwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(oldCwd)
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load without config files should succeed: %v", err)
	}
	if cfg.ConfigPath() != "" {
		t.Errorf("expected no config path, got %q", cfg.ConfigPath())
	}
}
