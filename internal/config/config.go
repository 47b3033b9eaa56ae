package config

import (
	"fmt"
	"net/url"
	"os"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Cloudsky01/qatrun/internal/paths"
)

const (
	TriggerModeBatch = "batch"
	TriggerModeTask  = "task"
)

type Config struct {
	Build    Build    `mapstructure:"build" yaml:"build"`
	Download Download `mapstructure:"download" yaml:"download"`
	Install  Install  `mapstructure:"install" yaml:"install"`
	Trigger  Trigger  `mapstructure:"trigger" yaml:"trigger"`
	SCM      SCM      `mapstructure:"scm" yaml:"scm"`
	Suites   Suites   `mapstructure:"suites" yaml:"suites"`
	Log      Log      `mapstructure:"log" yaml:"log"`

	configPath string
}

type Build struct {
	APIURL          string `mapstructure:"api_url" yaml:"api_url"`
	ArtifactBaseURL string `mapstructure:"artifact_base_url" yaml:"artifact_base_url,omitempty"`
	Extension       string `mapstructure:"extension" yaml:"extension"`
	Username        string `mapstructure:"username" yaml:"username,omitempty"`
	Token           string `mapstructure:"token" yaml:"token,omitempty"`
}

type Download struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

type Install struct {
	Enabled bool     `mapstructure:"enabled" yaml:"enabled"`
	Args    []string `mapstructure:"args" yaml:"args,omitempty"`
}

type Trigger struct {
	Mode             string        `mapstructure:"mode" yaml:"mode"`
	BatchPath        string        `mapstructure:"batch_path" yaml:"batch_path,omitempty"`
	TaskName         string        `mapstructure:"task_name" yaml:"task_name,omitempty"`
	SchedulerCommand string        `mapstructure:"scheduler_command" yaml:"scheduler_command,omitempty"`
	LogFile          string        `mapstructure:"log_file" yaml:"log_file"`
	PollInterval     time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	Timeout          time.Duration `mapstructure:"timeout" yaml:"timeout"`
	StatusMarker     string        `mapstructure:"status_marker" yaml:"status_marker"`
	CompletionMarker string        `mapstructure:"completion_marker" yaml:"completion_marker"`
	SuccessStatus    string        `mapstructure:"success_status" yaml:"success_status"`
}

type SCM struct {
	RepoURL string `mapstructure:"repo_url" yaml:"repo_url,omitempty"`
	APIURL  string `mapstructure:"api_url" yaml:"api_url"`
	Token   string `mapstructure:"token" yaml:"token,omitempty"`
}

type Suites struct {
	ConfigFile  string              `mapstructure:"config_file" yaml:"config_file"`
	Mapping     map[string][]string `mapstructure:"mapping" yaml:"mapping,omitempty"`
	UpdateEmail bool                `mapstructure:"update_email" yaml:"update_email"`
}

type Log struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// DefaultSuiteMapping associates the top-level directory of a changed file
// with the test suites that cover it.
func DefaultSuiteMapping() map[string][]string {
	return map[string][]string{
		"controls": {"test_suite1", "test_suite2"},
		"audio":    {"test_suite3", "test_suite8"},
		"android":  {"test_suite4", "test_suite5"},
		"plugin":   {"test_suite6", "test_suite9"},
		"video":    {"test_suite7", "test_suite10"},
	}
}

var defaults = map[string]any{
	"build.extension":           ".exe",
	"download.dir":              ".",
	"install.enabled":           false,
	"install.args":              []string{"/silent", "/v", "/qn"},
	"trigger.mode":              TriggerModeBatch,
	"trigger.task_name":         "RunQATAdmin",
	"trigger.scheduler_command": "schtasks",
	"trigger.poll_interval":     "1s",
	"trigger.timeout":           "0s",
	"trigger.status_marker":     "CI Execution status :",
	"trigger.completion_marker": "QAT Ended................",
	"trigger.success_status":    "Pass",
	"scm.api_url":               "https://api.github.com/",
	"suites.update_email":       true,
	"log.level":                 "info",
}

// keys without a default still need to be known to viper for env overrides
var knownKeys = []string{
	"build.api_url",
	"build.artifact_base_url",
	"build.username",
	"build.token",
	"trigger.batch_path",
	"trigger.log_file",
	"scm.repo_url",
	"scm.token",
	"suites.config_file",
}

// FlagKeys maps command-line flag names to configuration keys.
var FlagKeys = map[string]string{
	"build-url":     "build.api_url",
	"extension":     "build.extension",
	"download-dir":  "download.dir",
	"install":       "install.enabled",
	"mode":          "trigger.mode",
	"batch":         "trigger.batch_path",
	"task":          "trigger.task_name",
	"log-file":      "trigger.log_file",
	"poll-interval": "trigger.poll_interval",
	"timeout":       "trigger.timeout",
	"repo-url":      "scm.repo_url",
	"suites-file":   "suites.config_file",
	"log-level":     "log.level",
}

func newViper() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	for _, key := range knownKeys {
		v.SetDefault(key, "")
	}

	v.SetEnvPrefix("QATRUN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the configuration. An explicit path must exist. Without one the
// user config file and then ./.qatrun.yaml are merged, in that order, and no
// file at all is fine since every key can come from env or flags.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := newViper()

	var files []string
	if path != "" {
		files = []string{path}
	} else if p, err := paths.New(); err == nil {
		files = p.GetConfigPaths()
	}

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	var used string
	for i, file := range files {
		v.SetConfigFile(file)
		var err error
		if i == 0 {
			err = v.ReadInConfig()
		} else {
			err = v.MergeInConfig()
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
		used = file
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.configPath = used
	config.applyDerived()

	return &config, nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	names := make([]string, 0, len(FlagKeys))
	for name := range FlagKeys {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(FlagKeys[name], flag); err != nil {
			return fmt.Errorf("failed to bind flag --%s: %w", name, err)
		}
	}
	return nil
}

func (c *Config) applyDerived() {
	if c.Build.ArtifactBaseURL == "" && c.Build.APIURL != "" {
		c.Build.ArtifactBaseURL = DeriveArtifactBaseURL(c.Build.APIURL)
	}
	if len(c.Suites.Mapping) == 0 {
		c.Suites.Mapping = DefaultSuiteMapping()
	}
}

// ConfigPath returns the file the configuration was read from, if any.
func (c *Config) ConfigPath() string {
	return c.configPath
}

// DeriveArtifactBaseURL turns a build's api/json endpoint into the build's
// artifact/ prefix.
func DeriveArtifactBaseURL(apiURL string) string {
	base := strings.TrimSuffix(apiURL, "/")
	base = strings.TrimSuffix(base, "api/json")
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + "artifact/"
}

func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := `# qatrun configuration
#
# - build:    Jenkins "last successful build" endpoint and artifact selection
# - download: where the artifact is written
# - install:  optional silent install of the downloaded artifact
# - trigger:  how the test run is started and how its log file is read
# - scm:      GitHub repository inspected by 'qatrun sync-suites'
# - suites:   test-runner XML file and directory -> suite mapping
#
# Every key can be overridden with QATRUN_<SECTION>_<KEY>, e.g. QATRUN_TRIGGER_LOG_FILE.

`
	fullContent := header + string(data)

	if err := os.WriteFile(path, []byte(fullContent), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ValidateRun checks the settings needed by the build-download-test pipeline.
func (c *Config) ValidateRun() error {
	if err := validateURL("build.api_url", c.Build.APIURL); err != nil {
		return err
	}
	if c.Build.Extension == "" {
		return fmt.Errorf("build.extension must not be empty")
	}

	switch c.Trigger.Mode {
	case TriggerModeBatch:
		if c.Trigger.BatchPath == "" {
			return fmt.Errorf("trigger.batch_path is required when trigger.mode is %q", TriggerModeBatch)
		}
	case TriggerModeTask:
		if c.Trigger.TaskName == "" {
			return fmt.Errorf("trigger.task_name is required when trigger.mode is %q", TriggerModeTask)
		}
		if c.Trigger.SchedulerCommand == "" {
			return fmt.Errorf("trigger.scheduler_command must not be empty")
		}
	default:
		return fmt.Errorf("trigger.mode must be %q or %q, got %q", TriggerModeBatch, TriggerModeTask, c.Trigger.Mode)
	}

	if c.Trigger.LogFile == "" {
		return fmt.Errorf("trigger.log_file is required")
	}
	if c.Trigger.PollInterval <= 0 {
		return fmt.Errorf("trigger.poll_interval must be positive")
	}
	if c.Trigger.Timeout < 0 {
		return fmt.Errorf("trigger.timeout must not be negative")
	}
	if c.Trigger.StatusMarker == "" || c.Trigger.CompletionMarker == "" {
		return fmt.Errorf("trigger.status_marker and trigger.completion_marker must not be empty")
	}
	if c.Trigger.SuccessStatus == "" {
		return fmt.Errorf("trigger.success_status must not be empty")
	}

	return nil
}

// ValidateSync checks the settings needed by the suite selection pipeline.
// The repository URL may be empty; it is then detected from the working copy.
func (c *Config) ValidateSync() error {
	if c.Suites.ConfigFile == "" {
		return fmt.Errorf("suites.config_file is required")
	}
	if err := validateURL("scm.api_url", c.SCM.APIURL); err != nil {
		return err
	}
	if len(c.Suites.Mapping) == 0 {
		return fmt.Errorf("suites.mapping must have at least one category")
	}
	for category, suites := range c.Suites.Mapping {
		if strings.TrimSpace(category) == "" {
			return fmt.Errorf("suites.mapping contains an empty category")
		}
		if len(suites) == 0 || slices.Contains(suites, "") {
			return fmt.Errorf("suites.mapping category %q must list non-empty suite names", category)
		}
	}
	return nil
}

func validateURL(key, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", key)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid %s %q: scheme must be http or https", key, raw)
	}
	return nil
}
