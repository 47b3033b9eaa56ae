package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Cloudsky01/qatrun/internal/config"
	"github.com/Cloudsky01/qatrun/internal/git"
	"github.com/Cloudsky01/qatrun/internal/paths"
	"github.com/Cloudsky01/qatrun/internal/state"
	"github.com/Cloudsky01/qatrun/internal/suites"
	"github.com/Cloudsky01/qatrun/internal/ui"
	"github.com/Cloudsky01/qatrun/internal/wizard"
)

type saveLocation int

const (
	saveLocationUser saveLocation = iota
	saveLocationProject
	saveLocationExplicit
)

func (l saveLocation) String() string {
	switch l {
	case saveLocationProject:
		return "project"
	case saveLocationExplicit:
		return "explicit"
	default:
		return "user"
	}
}

var (
	force      bool
	initTarget string

	initCmd = &cobra.Command{
		Use:   "init",
		Short: "Create a configuration file interactively",
		Long: `Walk through the Jenkins, trigger and suite settings and write them to a
configuration file. By default the file is the user config; use
--target project for ./.qatrun.yaml or --config for any other path.
An existing file is only replaced with --force.`,
		Args: cobra.NoArgs,
		RunE: runInit,
	}

	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Inspect qatrun configuration",
		Long: `Inspect qatrun configuration files.

Configuration Locations:
  User config:     ~/.config/qatrun/config.yaml
  Project config:  ./.qatrun.yaml

Configuration Precedence (lowest to highest):
  1. Built-in defaults
  2. User config
  3. Project config
  4. Environment variables (QATRUN_*)
  5. CLI flags`,
	}

	configPathCmd = &cobra.Command{
		Use:   "path",
		Short: "Show configuration file locations",
		Long:  `Display the paths to all configuration files and their existence status.`,
		RunE:  runConfigPath,
	}

	configShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Display merged configuration",
		Long:  `Show the effective configuration after merging all sources.`,
		RunE:  runConfigShow,
	}
)

func init() {
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing configuration file")
	initCmd.Flags().StringVar(&initTarget, "target", "", "Where to save: user (default) or project")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configShowCmd)
}

// determineConfigSaveTarget picks the file 'qatrun init' writes to. An
// explicit --config path wins over --target.
func determineConfigSaveTarget(p *paths.Paths, explicitSet bool, explicitPath, target string) (string, saveLocation, error) {
	if explicitSet && explicitPath != "" {
		return explicitPath, saveLocationExplicit, nil
	}

	switch target {
	case "", "user":
		if p.UserConfigDir == "" {
			return "", saveLocationUser, fmt.Errorf("user config directory is unknown")
		}
		return p.UserConfigFile(), saveLocationUser, nil
	case "project":
		if p.ProjectConfigPath == "" {
			return "", saveLocationProject, fmt.Errorf("cannot determine the working directory for a project config")
		}
		return p.ProjectConfigPath, saveLocationProject, nil
	default:
		return "", saveLocationUser, fmt.Errorf("invalid --target %q: expected user or project", target)
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	if !ui.IsTTY() {
		return fmt.Errorf("'qatrun init' needs an interactive terminal; copy qatrun.example.yaml instead")
	}

	p, err := paths.New()
	if err != nil {
		return fmt.Errorf("failed to initialize paths: %w", err)
	}

	path, location, err := determineConfigSaveTarget(p, cmd.Flags().Changed("config"), configPath, initTarget)
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("configuration file %s already exists. Use --force to overwrite", path)
	}

	detectedRepo, _ := git.DetectRemoteURL()

	w := wizard.New(detectedRepo, discoverSuites())
	cfg, err := w.Run()
	if err != nil {
		return fmt.Errorf("wizard failed: %w", err)
	}

	if location == saveLocationUser {
		if err := p.EnsureDirs(); err != nil {
			return fmt.Errorf("failed to ensure config directory: %w", err)
		}
	} else if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := cfg.Save(path); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	printSuccessSummary(cmd.OutOrStdout(), path, cfg)
	return nil
}

// discoverSuites lists the suites of the XML file named by the current
// configuration so the wizard can offer them. Any failure yields none.
func discoverSuites() []string {
	cfg, err := config.Load(configPath, nil)
	if err != nil || cfg.Suites.ConfigFile == "" {
		return nil
	}
	names, err := suites.NewEditor(afero.NewOsFs(), cfg.Suites.ConfigFile, nil).SuiteNames()
	if err != nil {
		return nil
	}
	return names
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	p, err := paths.New()
	if err != nil {
		return fmt.Errorf("failed to initialize paths: %w", err)
	}
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, headerStyle.Render("Configuration File Locations"))
	fmt.Fprintln(out, ui.Divider())
	fmt.Fprintln(out)

	fmt.Fprintf(out, "User Config:        %s %s\n", p.UserConfigFile(), existsIndicator(fileExists(p.UserConfigFile())))
	if p.ProjectConfigPath != "" {
		fmt.Fprintf(out, "Project Config:     %s %s\n", p.ProjectConfigPath, existsIndicator(fileExists(p.ProjectConfigPath)))
	}
	if configPath != "" {
		fmt.Fprintf(out, "Explicit Config:    %s %s\n", configPath, existsIndicator(fileExists(configPath)))
	}

	fmt.Fprintln(out)
	record, recordErr := state.RecordPath(p, configPath)
	fmt.Fprintf(out, "State Directory:    %s\n", p.UserStateDir)
	if p.UsingFallback("state") {
		fmt.Fprintln(out, warnStyle.Render("⚠ state directory unavailable, using a temporary directory"))
	}
	if recordErr == nil {
		fmt.Fprintf(out, "Run Record:         %s %s\n", record, existsIndicator(fileExists(record)))
	}

	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	out := cmd.OutOrStdout()

	source := "defaults and environment only"
	if cfg.ConfigPath() != "" {
		source = cfg.ConfigPath()
		if p, err := paths.New(); err == nil && configPath == "" {
			source = fmt.Sprintf("%s (%s)", source, p.GetConfigSource(source))
		}
	}

	fmt.Fprintln(out, headerStyle.Render("Merged Configuration"))
	fmt.Fprintln(out, ui.Divider())
	fmt.Fprintf(out, "Source: %s\n\n", source)

	shown := *cfg
	shown.Build.Token = redact(shown.Build.Token)
	shown.SCM.Token = redact(shown.SCM.Token)

	data, err := yaml.Marshal(&shown)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	fmt.Fprintln(out, string(data))

	for _, validate := range []struct {
		name string
		fn   func() error
	}{
		{"run", cfg.ValidateRun},
		{"sync-suites", cfg.ValidateSync},
	} {
		if err := validate.fn(); err != nil {
			fmt.Fprintln(out, warnStyle.Render(fmt.Sprintf("⚠ not ready for '%s': %v", validate.name, err)))
		} else {
			fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✓ ready for '%s'", validate.name)))
		}
	}

	return nil
}

func redact(secret string) string {
	if secret == "" {
		return ""
	}
	return "********"
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func existsIndicator(exists bool) string {
	if exists {
		return "✓"
	}
	return "✗"
}
