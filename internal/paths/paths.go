package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// AppName is the application name used in config and state paths
	AppName = "qatrun"

	// ConfigFileName is the name of the user config file
	ConfigFileName = "config.yaml"

	// ProjectConfigFileName is the config file looked up in the working directory
	ProjectConfigFileName = ".qatrun.yaml"

	// RunRecordFileName is the name of the file holding the last run record
	RunRecordFileName = "last-run.yaml"
)

// ConfigSource indicates where a config file came from
type ConfigSource int

const (
	SourceUnknown ConfigSource = iota
	SourceUserConfig
	SourceProjectConfig
	SourceEnvVar
	SourceCLIFlag
)

func (s ConfigSource) String() string {
	switch s {
	case SourceUserConfig:
		return "user config"
	case SourceProjectConfig:
		return "project config"
	case SourceEnvVar:
		return "environment variable"
	case SourceCLIFlag:
		return "CLI flag"
	default:
		return "unknown"
	}
}

// Paths provides access to all application paths following XDG Base Directory specification
type Paths struct {
	// UserConfigDir is the user's config directory (~/.config/qatrun)
	UserConfigDir string

	// UserStateDir is the user's state directory (~/.local/state/qatrun)
	UserStateDir string

	// ProjectConfigPath is the config file in the working directory (./.qatrun.yaml)
	ProjectConfigPath string

	// usingFallbacks tracks which directories are using fallback locations
	usingFallbacks map[string]bool
}

// New creates a new Paths instance with XDG-compliant directories
func New() (*Paths, error) {
	p := &Paths{
		usingFallbacks: make(map[string]bool),
	}

	// XDG_CONFIG_HOME or ~/.config on Unix, %AppData% on Windows
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user config directory: %w", err)
	}
	p.UserConfigDir = filepath.Join(configDir, AppName)

	// XDG_STATE_HOME or ~/.local/state
	stateDir := os.Getenv("XDG_STATE_HOME")
	if stateDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		stateDir = filepath.Join(homeDir, ".local", "state")
	}
	p.UserStateDir = filepath.Join(stateDir, AppName)

	if cwd, err := os.Getwd(); err == nil {
		p.ProjectConfigPath = filepath.Join(cwd, ProjectConfigFileName)
	}

	return p, nil
}

// UserConfigFile returns the path to the user's main config file
func (p *Paths) UserConfigFile() string {
	return filepath.Join(p.UserConfigDir, ConfigFileName)
}

// RunRecordFile returns the path of the last-run record, optionally scoped to a
// configuration name so that several pipelines on one machine don't overwrite
// each other's record.
func (p *Paths) RunRecordFile(scope string) string {
	if scope == "" {
		return filepath.Join(p.UserStateDir, RunRecordFileName)
	}
	filename := fmt.Sprintf("%s.%s", sanitizeForFilename(scope), RunRecordFileName)
	return filepath.Join(p.UserStateDir, filename)
}

// dirSpec defines a directory with its criticality and purpose
type dirSpec struct {
	path     *string // pointer to the path field in Paths struct
	pathName string  // name of the directory (for error messages)
	critical bool    // if true, app cannot run without it
	purpose  string  // description of what the directory is for
}

// EnsureDirs creates all necessary directories if they don't exist.
// Directories are created with permission 0700. Non-critical directories
// fall back to a temp location on permission errors and only produce a
// warning.
func (p *Paths) EnsureDirs() error {
	specs := []dirSpec{
		{&p.UserConfigDir, "config", true, "configuration"},
		{&p.UserStateDir, "state", false, "state storage"},
	}

	for _, spec := range specs {
		if err := p.ensureDir(spec); err != nil {
			if spec.critical {
				return err
			}
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	return nil
}

// UsingFallback reports whether the named directory ("config", "state") was
// redirected to a temp location by EnsureDirs.
func (p *Paths) UsingFallback(name string) bool {
	return p.usingFallbacks[name]
}

func (p *Paths) ensureDir(spec dirSpec) error {
	originalPath := *spec.path

	if err := os.MkdirAll(originalPath, 0700); err != nil {
		if os.IsPermission(err) {
			if !spec.critical {
				if fallbackErr := p.tryFallbackDir(spec, originalPath); fallbackErr == nil {
					return nil
				}
			}
			return p.formatPermissionError(originalPath, spec.purpose, err)
		}

		return fmt.Errorf("failed to create %s directory %s: %w", spec.purpose, originalPath, err)
	}

	return nil
}

// tryFallbackDir attempts to create a fallback directory in the temp location
func (p *Paths) tryFallbackDir(spec dirSpec, originalPath string) error {
	fallbackPath := filepath.Join(os.TempDir(), fmt.Sprintf("%s-%s", AppName, spec.pathName))

	if err := os.MkdirAll(fallbackPath, 0700); err != nil {
		return fmt.Errorf("fallback directory creation failed: %w", err)
	}

	*spec.path = fallbackPath
	if p.usingFallbacks == nil {
		p.usingFallbacks = make(map[string]bool)
	}
	p.usingFallbacks[spec.pathName] = true

	fmt.Fprintf(os.Stderr, "Warning: using fallback %s directory: %s (permission denied for %s)\n",
		spec.purpose, fallbackPath, originalPath)

	return nil
}

func (p *Paths) formatPermissionError(path, purpose string, originalErr error) error {
	parent := filepath.Dir(path)
	return fmt.Errorf(
		"permission denied: cannot create %s directory %s\n\n"+
			"Possible solutions:\n"+
			"  1. Fix permissions: sudo chown -R $USER %s\n"+
			"  2. Set custom location: export XDG_STATE_HOME=/tmp/%s-state\n"+
			"  3. Check parent directory exists and is writable: %s\n\n"+
			"Original error: %v",
		purpose, path, parent, AppName, parent, originalErr)
}

// GetConfigPaths returns all existing config paths in order of precedence (lowest to highest)
func (p *Paths) GetConfigPaths() []string {
	paths := []string{}

	userConfig := p.UserConfigFile()
	if _, err := os.Stat(userConfig); err == nil {
		paths = append(paths, userConfig)
	}

	if p.ProjectConfigPath != "" {
		if _, err := os.Stat(p.ProjectConfigPath); err == nil {
			paths = append(paths, p.ProjectConfigPath)
		}
	}

	return paths
}

// GetConfigSource determines which source a config path corresponds to
func (p *Paths) GetConfigSource(path string) ConfigSource {
	switch path {
	case p.UserConfigFile():
		return SourceUserConfig
	case p.ProjectConfigPath:
		return SourceProjectConfig
	default:
		return SourceUnknown
	}
}

// sanitizeForFilename replaces characters that are invalid in filenames
func sanitizeForFilename(s string) string {
	return strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "_",
	).Replace(s)
}
