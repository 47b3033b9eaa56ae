package trigger

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Cloudsky01/qatrun/internal/log"
	"github.com/Cloudsky01/qatrun/internal/logtail"
)

type Tailer interface {
	Tail(ctx context.Context) (*logtail.Result, error)
}

// Hooks are called as Run passes each step. Nil hooks are skipped.
type Hooks struct {
	OnCleared  func(path string)
	OnLaunched func()
}

// Trigger clears the run's log file, starts the run and follows the log
// until the run reports completion.
type Trigger struct {
	Hooks Hooks

	launcher Launcher
	tailer   Tailer
	logFile  string
	log      *zap.SugaredLogger
}

func New(launcher Launcher, tailer Tailer, logFile string, logger *zap.SugaredLogger) *Trigger {
	if logger == nil {
		logger = log.Nop()
	}
	return &Trigger{
		launcher: launcher,
		tailer:   tailer,
		logFile:  logFile,
		log:      logger,
	}
}

// Run returns the tail result. A launch failure wraps ErrLaunch and no tail
// is attempted.
func (t *Trigger) Run(ctx context.Context) (*logtail.Result, error) {
	if err := truncate(t.logFile); err != nil {
		return nil, err
	}
	if t.Hooks.OnCleared != nil {
		t.Hooks.OnCleared(t.logFile)
	}

	t.log.Infow("launching test run", "command", t.launcher.String())
	if err := t.launcher.Launch(ctx); err != nil {
		return nil, err
	}
	if t.Hooks.OnLaunched != nil {
		t.Hooks.OnLaunched()
	}

	t.log.Infow("waiting for test run to complete", "file", t.logFile)
	return t.tailer.Tail(ctx)
}

func truncate(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to clear log file %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to clear log file %s: %w", path, err)
	}
	return nil
}
