package trigger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/Cloudsky01/qatrun/internal/config"
)

var (
	// ErrLaunch means the test run could not be started. It is distinct from
	// a test run that started and reported a failing status.
	ErrLaunch = errors.New("failed to launch test run")

	ErrInstall = errors.New("failed to install artifact")
)

type Launcher interface {
	Launch(ctx context.Context) error
	String() string
}

// Command is a process started and waited on synchronously.
type Command struct {
	Name string
	Args []string
	// Env is appended to the current environment.
	Env []string

	Stdout io.Writer
	Stderr io.Writer
}

func (c *Command) run(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Stdout = c.Stdout
	cmd.Stderr = c.Stderr
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	return cmd.Run()
}

func (c *Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// ScheduledTask starts a pre-registered OS scheduled task by name.
type ScheduledTask struct {
	Command
}

func NewScheduledTask(scheduler, taskName string) *ScheduledTask {
	return &ScheduledTask{Command: Command{Name: scheduler, Args: []string{"/run", "/tn", taskName}}}
}

func (s *ScheduledTask) Launch(ctx context.Context) error {
	return launchError(s.String(), s.run(ctx))
}

// Batch runs an executable or batch file directly.
type Batch struct {
	Command
}

func NewBatch(path string, args ...string) *Batch {
	return &Batch{Command: Command{Name: path, Args: args}}
}

func (b *Batch) Launch(ctx context.Context) error {
	return launchError(b.String(), b.run(ctx))
}

// NewLauncher builds the launcher selected by cfg.Mode. Process output is
// forwarded to stdout and stderr.
func NewLauncher(cfg config.Trigger, stdout, stderr io.Writer) (Launcher, error) {
	switch cfg.Mode {
	case config.TriggerModeTask:
		task := NewScheduledTask(cfg.SchedulerCommand, cfg.TaskName)
		task.Stdout, task.Stderr = stdout, stderr
		return task, nil
	case config.TriggerModeBatch:
		batch := NewBatch(cfg.BatchPath)
		batch.Stdout, batch.Stderr = stdout, stderr
		return batch, nil
	default:
		return nil, fmt.Errorf("unknown trigger mode %q", cfg.Mode)
	}
}

func launchError(what string, err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Errorf("%w: %s exited with code %d: %w", ErrLaunch, what, exitErr.ExitCode(), exitErr)
	}
	return fmt.Errorf("%w: %s: %w", ErrLaunch, what, err)
}

// Installer runs a downloaded installer with silent-install arguments.
type Installer struct {
	Args   []string
	Env    []string
	Stdout io.Writer
	Stderr io.Writer
}

func (i *Installer) Install(ctx context.Context, path string) error {
	cmd := &Command{Name: path, Args: i.Args, Env: i.Env, Stdout: i.Stdout, Stderr: i.Stderr}
	if err := cmd.run(ctx); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%w: %s exited with code %d: %w", ErrInstall, cmd, exitErr.ExitCode(), exitErr)
		}
		return fmt.Errorf("%w: %s: %w", ErrInstall, cmd, err)
	}
	return nil
}
