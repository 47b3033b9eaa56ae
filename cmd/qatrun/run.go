package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Cloudsky01/qatrun/internal/config"
	"github.com/Cloudsky01/qatrun/internal/gate"
	"github.com/Cloudsky01/qatrun/internal/jenkins"
	"github.com/Cloudsky01/qatrun/internal/logtail"
	"github.com/Cloudsky01/qatrun/internal/paths"
	"github.com/Cloudsky01/qatrun/internal/state"
	"github.com/Cloudsky01/qatrun/internal/trigger"
	"github.com/Cloudsky01/qatrun/internal/ui"
	"github.com/Cloudsky01/qatrun/pkg/models"
)

var errNoArtifact = errors.New("no artifact found")

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Download the latest build, start the test run and gate on its status",
	Long: `Fetch the last successful build of the configured Jenkins job, download
the first artifact with the configured extension, optionally install it,
start the test run and follow its log file until the completion line.

The command exits 0 when the run reported the success status and 1 for any
other outcome: a failure status, no status, a timeout or an error along the way.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	f := runCmd.Flags()
	f.String("build-url", "", "Jenkins lastSuccessfulBuild api/json URL")
	f.String("extension", "", "Artifact file extension (default .exe)")
	f.String("download-dir", "", "Directory the artifact is written to (default .)")
	f.Bool("install", false, "Silently install the artifact before starting the run")
	f.String("mode", "", "How the run is started: batch or task (default batch)")
	f.String("batch", "", "Batch file or executable started in batch mode")
	f.String("task", "", "Scheduled task started in task mode")
	f.String("log-file", "", "Log file written by the test run")
	f.Duration("poll-interval", 0, "Log polling interval (default 1s)")
	f.Duration("timeout", 0, "Give up waiting for completion after this long (0 waits forever)")
	f.String("log-level", "", "Diagnostic log level (default info)")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.ValidateRun(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := newRunner(cfg, logger, cmd.OutOrStdout(), cmd.ErrOrStderr())
	record, runErr := r.run(ctx)

	saveRunRecord(cfg, record, logger)
	return runErr
}

// runner executes the build, download, trigger and gate steps in order. Each
// failure stops the steps after it.
type runner struct {
	cfg    *config.Config
	log    *zap.SugaredLogger
	out    io.Writer
	errOut io.Writer

	jenkins     *jenkins.Client
	newLauncher func(cfg config.Trigger, stdout, stderr io.Writer) (trigger.Launcher, error)
}

func newRunner(cfg *config.Config, logger *zap.SugaredLogger, out, errOut io.Writer) *runner {
	return &runner{
		cfg:    cfg,
		log:    logger,
		out:    out,
		errOut: errOut,
		jenkins: jenkins.New(
			jenkins.SetBasicAuth(cfg.Build.Username, cfg.Build.Token),
			jenkins.SetLogger(logger),
		),
		newLauncher: trigger.NewLauncher,
	}
}

func (r *runner) run(ctx context.Context) (*state.RunRecord, error) {
	record := &state.RunRecord{
		BuildURL:  r.cfg.Build.APIURL,
		Mode:      r.cfg.Trigger.Mode,
		StartedAt: time.Now(),
	}
	err := r.steps(ctx, record)
	record.FinishedAt = time.Now()

	var failure *gate.FailureError
	if err != nil && !errors.As(err, &failure) {
		record.Error = err.Error()
	}
	return record, err
}

func (r *runner) steps(ctx context.Context, record *state.RunRecord) error {
	build, err := ui.RunWithSpinner(ctx, r.out, "Fetching latest successful build",
		func(ctx context.Context) (*models.Build, error) {
			return r.jenkins.LastSuccessfulBuild(ctx, r.cfg.Build.APIURL)
		})
	if err != nil {
		r.log.Errorw("build fetch failed", "url", r.cfg.Build.APIURL, "reason", jenkins.ReasonForError(err), "error", err)
		printFailure(r.out, "Failed to fetch build data.")
		return err
	}
	record.BuildNumber = build.Number

	artifact, ok := jenkins.FindArtifact(build, r.cfg.Build.Extension, r.cfg.Build.ArtifactBaseURL)
	if !ok {
		printFailure(r.out, fmt.Sprintf("No %s file found in the latest build artifacts.", r.cfg.Build.Extension))
		return fmt.Errorf("%w with extension %q in build #%d", errNoArtifact, r.cfg.Build.Extension, build.Number)
	}
	record.Artifact = artifact.FileName
	printBuildSummary(r.out, build, artifact)

	dest, n, err := r.download(ctx, artifact)
	if err != nil {
		printFailure(r.out, "Failed to download the artifact.")
		return err
	}
	record.ArtifactPath = dest
	record.Bytes = n

	if r.cfg.Install.Enabled {
		if err := r.install(ctx, dest); err != nil {
			printFailure(r.out, "Failed to install the artifact.")
			return err
		}
	}

	result, tailErr := r.trigger(ctx)
	if tailErr != nil && result == nil && !isWaitError(tailErr) {
		r.log.Errorw("test run could not be started", "error", tailErr)
		printFailure(r.out, "Failed to start the test run.")
		return tailErr
	}

	verdict, err := gate.New(r.cfg.Trigger.SuccessStatus).Evaluate(result, tailErr)
	record.Status = verdict.Status
	record.Passed = verdict.Passed
	printVerdict(r.out, verdict)
	return err
}

func (r *runner) download(ctx context.Context, artifact *models.Artifact) (string, int64, error) {
	if err := os.MkdirAll(r.cfg.Download.Dir, 0755); err != nil {
		return "", 0, fmt.Errorf("failed to create download directory: %w", err)
	}
	dest := filepath.Join(r.cfg.Download.Dir, artifact.FileName)

	n, err := ui.RunDownload(ctx, r.out, artifact.FileName, func(ctx context.Context, p ui.Progress) (int64, error) {
		return r.jenkins.Download(ctx, artifact.URL, dest, p)
	})
	if err != nil {
		r.log.Errorw("download failed", "url", artifact.URL, "dest", dest, "error", err)
		return "", n, err
	}

	printField(r.out, "Saved to", fmt.Sprintf("%s (%s)", dest, humanize.Bytes(uint64(n))))
	return dest, n, nil
}

func (r *runner) install(ctx context.Context, path string) error {
	installer := &trigger.Installer{Args: r.cfg.Install.Args}
	_, err := ui.RunWithSpinner(ctx, r.out, "Installing "+filepath.Base(path),
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, installer.Install(ctx, path)
		})
	if err != nil {
		r.log.Errorw("install failed", "path", path, "error", err)
	}
	return err
}

func (r *runner) trigger(ctx context.Context) (*logtail.Result, error) {
	tc := r.cfg.Trigger

	launcher, err := r.newLauncher(tc, r.out, r.errOut)
	if err != nil {
		return nil, err
	}

	if tc.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, tc.Timeout)
		defer cancel()
	}

	tailer := logtail.New(logtail.Config{
		Path:             tc.LogFile,
		StatusMarker:     tc.StatusMarker,
		CompletionMarker: tc.CompletionMarker,
		PollInterval:     tc.PollInterval,
		Echo:             r.out,
	}, r.log)

	printField(r.out, "Starting", launcher.String())
	tr := trigger.New(launcher, tailer, tc.LogFile, r.log)
	tr.Hooks = trigger.Hooks{
		OnCleared:  func(string) { printSuccess(r.out, "Log file cleared successfully.") },
		OnLaunched: func() { printSuccess(r.out, startedMessage(tc)) },
	}
	result, err := tr.Run(ctx)
	if err == nil && result.Completed {
		printSuccess(r.out, "QAT test run completed successfully.")
	}
	return result, err
}

func startedMessage(tc config.Trigger) string {
	if tc.Mode == config.TriggerModeTask {
		return fmt.Sprintf("Task '%s' started successfully.", tc.TaskName)
	}
	return fmt.Sprintf("Batch file '%s' started successfully.", tc.BatchPath)
}

// isWaitError reports whether err ended the wait for completion rather than
// the start of the run.
func isWaitError(err error) bool {
	return errors.Is(err, logtail.ErrTimeout) || errors.Is(err, context.Canceled)
}

func saveRunRecord(cfg *config.Config, record *state.RunRecord, logger *zap.SugaredLogger) {
	p, err := paths.New()
	if err != nil {
		logger.Warnw("run record not saved", "error", err)
		return
	}
	path, err := state.RecordPath(p, cfg.ConfigPath())
	if err != nil {
		logger.Warnw("run record not saved", "error", err)
		return
	}
	if p.UsingFallback("state") {
		logger.Warnw("state directory unavailable, run record kept in a temporary directory", "dir", p.UserStateDir)
	}
	if err := record.Save(path); err != nil {
		logger.Warnw("run record not saved", "path", path, "error", err)
		return
	}
	logger.Debugw("run record saved", "path", path)
}
