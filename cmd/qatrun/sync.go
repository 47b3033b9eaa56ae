package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Cloudsky01/qatrun/internal/config"
	"github.com/Cloudsky01/qatrun/internal/git"
	"github.com/Cloudsky01/qatrun/internal/github"
	"github.com/Cloudsky01/qatrun/internal/suites"
	"github.com/Cloudsky01/qatrun/internal/ui"
	"github.com/Cloudsky01/qatrun/pkg/models"
)

var (
	errSyncCancelled = errors.New("suite selection cancelled")
	errEmptyCommit   = errors.New("latest commit has no message or changed files")
)

var (
	assumeYes bool
	dryRun    bool

	syncCmd = &cobra.Command{
		Use:     "sync-suites",
		Aliases: []string{"sync"},
		Short:   "Enable the test suites affected by the latest commit",
		Long: `Find the most recent commit across all branches of the GitHub repository,
map the top-level directories it touched to test suites and check exactly
those suites in the test runner's XML configuration. The commit message is
written into the email description unless suites.update_email is false.

The repository comes from --repo-url, scm.repo_url or the origin remote of
the current git working copy, in that order.`,
		Args: cobra.NoArgs,
		RunE: runSync,
	}
)

func init() {
	f := syncCmd.Flags()
	f.String("repo-url", "", "GitHub repository URL (default: origin remote)")
	f.String("suites-file", "", "Test runner XML configuration file")
	f.String("log-level", "", "Diagnostic log level (default info)")
	f.BoolVarP(&assumeYes, "yes", "y", false, "Rewrite the XML file without asking")
	f.BoolVar(&dryRun, "dry-run", false, "Show the selection without writing anything")

	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.ValidateSync(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	owner, repo, err := resolveRepository(cfg.SCM.RepoURL)
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	gh, err := github.NewClient(ctx, github.Config{APIURL: cfg.SCM.APIURL, Token: cfg.SCM.Token}, logger)
	if err != nil {
		return err
	}

	s := &suiteSync{
		cfg:     cfg,
		log:     logger,
		out:     cmd.OutOrStdout(),
		commits: gh,
		editor:  suites.NewEditor(afero.NewOsFs(), cfg.Suites.ConfigFile, logger),
		confirm: confirmRewrite,
	}
	return s.run(ctx, owner, repo)
}

// resolveRepository returns owner and name from the configured URL, falling
// back to the origin remote of the current working copy.
func resolveRepository(repoURL string) (string, string, error) {
	if repoURL == "" {
		detected, err := git.DetectRemoteURL()
		if err != nil {
			return "", "", fmt.Errorf("no repository configured and none detected: %w\n\nSet scm.repo_url or pass --repo-url", err)
		}
		repoURL = detected
	}
	return git.ParseRepoURL(repoURL)
}

type commitFinder interface {
	FindLatestCommit(ctx context.Context, owner, repo string) (*models.Commit, error)
}

type suiteSync struct {
	cfg     *config.Config
	log     *zap.SugaredLogger
	out     io.Writer
	commits commitFinder
	editor  *suites.Editor
	confirm func(path string, selected []string) (bool, error)
}

func (s *suiteSync) run(ctx context.Context, owner, repo string) error {
	commit, err := ui.RunWithSpinner(ctx, s.out, fmt.Sprintf("Finding latest commit in %s/%s", owner, repo),
		func(ctx context.Context) (*models.Commit, error) {
			return s.commits.FindLatestCommit(ctx, owner, repo)
		})
	if err != nil {
		s.log.Errorw("commit scan failed", "repository", owner+"/"+repo, "error", err)
		printFailure(s.out, "Failed to fetch the latest commit.")
		return err
	}
	if commit.Message == "" || len(commit.FilesChanged) == 0 {
		s.log.Errorw("empty commit", "sha", commit.SHA, "files", len(commit.FilesChanged))
		printFailure(s.out, "Failed to read the latest commit: no message or changed files. Nothing written.")
		return fmt.Errorf("%w: %s", errEmptyCommit, shortSHA(commit.SHA))
	}

	selection := suites.Select(commit.FilesChanged, s.cfg.Suites.Mapping)
	printCommitSummary(s.out, commit, selection)

	if dryRun {
		fmt.Fprintln(s.out, ui.GetInfoStyle().Render("Dry run, nothing written."))
		return nil
	}

	if !assumeYes && ui.IsTTY() {
		ok, err := s.confirm(s.editor.Path(), selection.Suites)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(s.out, ui.GetWarnStyle().Render("Cancelled, nothing written."))
			return errSyncCancelled
		}
	}

	report, err := suites.Apply(s.editor, selection.Suites, suites.ApplyOptions{
		UpdateEmail: s.cfg.Suites.UpdateEmail,
		EmailText:   commit.Message,
	})
	printApplyReport(s.out, report, s.cfg.Suites.UpdateEmail && err == nil)
	if err != nil {
		s.log.Errorw("suite update failed", "file", s.editor.Path(), "error", err)
		printApplyFailure(s.out, report, selection.Suites)
		return err
	}
	return nil
}

func confirmRewrite(path string, selected []string) (bool, error) {
	desc := "No suites matched the changed files; every suite will be unchecked."
	if len(selected) > 0 {
		desc = "Suites to enable: " + strings.Join(selected, ", ")
	}
	ok := true
	if err := ui.AskConfirm("Rewrite "+path+"?", desc, &ok); err != nil {
		return false, err
	}
	return ok, nil
}
