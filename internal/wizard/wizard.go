package wizard

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/Cloudsky01/qatrun/internal/config"
)

// CategoryBuilder holds one directory -> suites entry of the mapping
type CategoryBuilder struct {
	Name   string
	Suites []string
}

// Answers collects everything the wizard asks for
type Answers struct {
	BuildURL  string
	Extension string
	Dir       string

	Mode      string
	BatchPath string
	TaskName  string
	LogFile   string

	SuitesFile     string
	RepoURL        string
	UseDefaultMap  bool
	UpdateEmail    bool
	CustomMappings []CategoryBuilder
}

// Wizard handles the interactive configuration creation
type Wizard struct {
	answers    Answers
	suiteNames []string
}

// New creates a wizard. suiteNames are the suites found in an existing
// test configuration, offered as choices when building a custom mapping.
func New(detectedRepo string, suiteNames []string) *Wizard {
	return &Wizard{
		answers: Answers{
			Extension:     ".exe",
			Dir:           ".",
			Mode:          config.TriggerModeBatch,
			TaskName:      "RunQATAdmin",
			RepoURL:       detectedRepo,
			UseDefaultMap: true,
			UpdateEmail:   true,
		},
		suiteNames: suiteNames,
	}
}

// Run executes the interactive wizard
func (w *Wizard) Run() (*config.Config, error) {
	fmt.Println()
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	fmt.Println(titleStyle.Render("qatrun Configuration Wizard"))
	fmt.Println()

	steps := []func() error{
		w.promptBuild,
		w.promptTrigger,
		w.promptTriggerTarget,
		w.promptSuites,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}

	if !w.answers.UseDefaultMap {
		for {
			category, err := w.createCategory()
			if err != nil {
				return nil, err
			}
			if category != nil {
				w.answers.CustomMappings = append(w.answers.CustomMappings, *category)
				fmt.Printf("\nCategory '%s' maps to %d suite(s)\n\n", category.Name, len(category.Suites))
			}

			addMore := false
			if err := w.promptAddMoreCategories(&addMore); err != nil {
				return nil, err
			}
			if !addMore {
				break
			}
		}
	}

	return BuildConfig(w.answers), nil
}

func (w *Wizard) promptBuild() error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Jenkins build URL").
				Description("The job's last successful build API endpoint").
				Placeholder("http://jenkins:8080/job/SQA/lastSuccessfulBuild/api/json").
				Validate(validateHTTPURL).
				Value(&w.answers.BuildURL),

			huh.NewInput().
				Title("Artifact extension").
				Description("The first artifact ending with this is downloaded").
				Validate(required("extension")).
				Value(&w.answers.Extension),

			huh.NewInput().
				Title("Download directory").
				Value(&w.answers.Dir),
		),
	).Run()
}

func (w *Wizard) promptTrigger() error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("How is the test run started?").
				Options(
					huh.NewOption("Run a batch file or executable", config.TriggerModeBatch),
					huh.NewOption("Start a scheduled task", config.TriggerModeTask),
				).
				Value(&w.answers.Mode),

			huh.NewInput().
				Title("Log file").
				Description("The file the test run writes its status to").
				Placeholder(`C:\Users\qa\Documents\QAT_CILogFile.txt`).
				Validate(required("log file")).
				Value(&w.answers.LogFile),
		),
	).Run()
}

func (w *Wizard) promptTriggerTarget() error {
	var field huh.Field
	if w.answers.Mode == config.TriggerModeTask {
		field = huh.NewInput().
			Title("Scheduled task name").
			Validate(required("task name")).
			Value(&w.answers.TaskName)
	} else {
		field = huh.NewInput().
			Title("Batch file").
			Placeholder(`C:\Users\qa\Documents\qat_start.bat`).
			Validate(required("batch file")).
			Value(&w.answers.BatchPath)
	}
	return huh.NewForm(huh.NewGroup(field)).Run()
}

func (w *Wizard) promptSuites() error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Test configuration XML (optional)").
				Description("Used by 'qatrun sync-suites'").
				Placeholder("config-file.xml").
				Value(&w.answers.SuitesFile),

			huh.NewInput().
				Title("GitHub repository URL (optional)").
				Description("Detected from .git/config when left empty").
				Value(&w.answers.RepoURL),

			huh.NewConfirm().
				Title("Use the default directory to suite mapping?").
				Affirmative("Yes").
				Negative("No, define my own").
				Value(&w.answers.UseDefaultMap),

			huh.NewConfirm().
				Title("Put the commit message into the email description?").
				Value(&w.answers.UpdateEmail),
		),
	).Run()
}

// promptAddMoreCategories asks if the user wants to add another category
func (w *Wizard) promptAddMoreCategories(addMore *bool) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Add another category?").
				Description(fmt.Sprintf("You have %d categor(ies) configured", len(w.answers.CustomMappings))).
				Affirmative("Yes").
				Negative("No, finish setup").
				Value(addMore),
		),
	).Run()
}

// createCategory asks for a top-level directory name and the suites it enables
func (w *Wizard) createCategory() (*CategoryBuilder, error) {
	category := &CategoryBuilder{}

	if err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Directory").
				Description("Top-level source directory, e.g. 'audio'").
				Validate(required("directory")).
				Value(&category.Name),
		),
	).Run(); err != nil {
		return nil, err
	}
	category.Name = w.normalizeCategory(category.Name)

	if len(w.suiteNames) > 0 {
		options := make([]huh.Option[string], 0, len(w.suiteNames))
		for _, name := range uniqueStrings(w.suiteNames) {
			options = append(options, huh.NewOption(name, name))
		}
		if err := huh.NewForm(
			huh.NewGroup(
				huh.NewMultiSelect[string]().
					Title(fmt.Sprintf("Select suites for '%s'", category.Name)).
					Description("Use space to select, enter to confirm. Type to filter.").
					Options(options...).
					Filterable(true).
					Limit(len(options)).
					Value(&category.Suites),
			),
		).Run(); err != nil {
			return nil, err
		}
	} else {
		var raw string
		if err := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title(fmt.Sprintf("Suites for '%s'", category.Name)).
					Description("Comma separated suite names").
					Validate(required("suite list")).
					Value(&raw),
			),
		).Run(); err != nil {
			return nil, err
		}
		category.Suites = splitList(raw)
	}

	if len(category.Suites) == 0 {
		return nil, nil
	}
	return category, nil
}

// normalizeCategory lowercases a directory name and makes it unique among
// the categories defined so far
func (w *Wizard) normalizeCategory(name string) string {
	id := strings.ToLower(strings.TrimSpace(name))
	id = strings.Trim(id, "/")

	var result strings.Builder
	for _, r := range id {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' || r == '.' {
			result.WriteRune(r)
		}
	}
	id = result.String()

	baseID := id
	counter := 1
	for w.categoryExists(id) {
		id = fmt.Sprintf("%s-%d", baseID, counter)
		counter++
	}
	return id
}

func (w *Wizard) categoryExists(name string) bool {
	for _, c := range w.answers.CustomMappings {
		if c.Name == name {
			return true
		}
	}
	return false
}

// BuildConfig converts wizard answers to a Config
func BuildConfig(a Answers) *config.Config {
	cfg := &config.Config{
		Build: config.Build{
			APIURL:    strings.TrimSpace(a.BuildURL),
			Extension: a.Extension,
		},
		Download: config.Download{Dir: a.Dir},
		Install:  config.Install{Args: []string{"/silent", "/v", "/qn"}},
		Trigger: config.Trigger{
			Mode:             a.Mode,
			BatchPath:        a.BatchPath,
			TaskName:         a.TaskName,
			SchedulerCommand: "schtasks",
			LogFile:          a.LogFile,
			PollInterval:     time.Second,
			StatusMarker:     "CI Execution status :",
			CompletionMarker: "QAT Ended................",
			SuccessStatus:    "Pass",
		},
		SCM: config.SCM{
			RepoURL: strings.TrimSpace(a.RepoURL),
			APIURL:  "https://api.github.com/",
		},
		Suites: config.Suites{
			ConfigFile:  a.SuitesFile,
			UpdateEmail: a.UpdateEmail,
		},
		Log: config.Log{Level: "info"},
	}

	if a.Mode != config.TriggerModeTask {
		cfg.Trigger.TaskName = ""
	}

	if a.UseDefaultMap || len(a.CustomMappings) == 0 {
		cfg.Suites.Mapping = config.DefaultSuiteMapping()
	} else {
		cfg.Suites.Mapping = make(map[string][]string, len(a.CustomMappings))
		for _, c := range a.CustomMappings {
			cfg.Suites.Mapping[c.Name] = c.Suites
		}
	}

	return cfg
}

func required(what string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", what)
		}
		return nil
	}
}

func validateHTTPURL(s string) error {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("enter an http(s) URL")
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return uniqueStrings(out)
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
