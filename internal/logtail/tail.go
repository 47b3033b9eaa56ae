package logtail

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/Cloudsky01/qatrun/internal/log"
)

var ErrTimeout = errors.New("timed out waiting for the test run to complete")

const DefaultPollInterval = time.Second

type Config struct {
	Path             string
	StatusMarker     string
	CompletionMarker string
	PollInterval     time.Duration

	// Echo receives every complete line read from the log. Nil discards.
	Echo io.Writer
}

// Result is the outcome of tailing one test run's log.
type Result struct {
	// Status is the last status captured before completion; empty when
	// Found is false.
	Status string
	Found  bool

	// StatusErr is the first status line that could not be parsed. It is
	// never cleared by a later valid status, and it clears Status and Found.
	StatusErr error

	Completed bool
	Lines     int
}

type Tailer struct {
	cfg Config
	log *zap.SugaredLogger
}

func New(cfg Config, logger *zap.SugaredLogger) *Tailer {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Echo == nil {
		cfg.Echo = io.Discard
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Tailer{cfg: cfg, log: logger}
}

// Tail follows the log file from its beginning until the completion marker
// is read or ctx ends. The returned Result is valid in both cases; the error
// is ErrTimeout when ctx's deadline passed and ctx.Err() when it was
// cancelled.
func (t *Tailer) Tail(ctx context.Context) (*Result, error) {
	result := &Result{}

	f, err := t.open(ctx)
	if err != nil {
		return result, err
	}
	defer f.Close()

	events, closeWatcher := t.watch()
	defer closeWatcher()

	ticker := time.NewTicker(t.cfg.PollInterval)
	defer ticker.Stop()

	reader := bufio.NewReader(f)
	var (
		pending strings.Builder
		offset  int64
	)

	for {
		chunk, err := reader.ReadString('\n')
		offset += int64(len(chunk))

		if err == nil {
			pending.WriteString(chunk)
			line := strings.TrimRight(pending.String(), "\r\n")
			pending.Reset()

			if t.handleLine(line, result) {
				result.Completed = true
				return result, nil
			}
			continue
		}

		if !errors.Is(err, io.EOF) {
			return result, fmt.Errorf("failed to read log file %s: %w", t.cfg.Path, err)
		}

		// Hold a partial line until the writer finishes it. A completion
		// marker ends the run even without a trailing newline.
		pending.WriteString(chunk)
		if partial := pending.String(); strings.Contains(partial, t.cfg.CompletionMarker) {
			pending.Reset()
			t.handleLine(strings.TrimRight(partial, "\r\n"), result)
			result.Completed = true
			return result, nil
		}

		if err := t.wait(ctx, events, ticker.C); err != nil {
			return result, err
		}

		if truncated, err := t.truncatedBelow(f, offset); err != nil {
			return result, err
		} else if truncated {
			t.log.Warnw("log file was truncated, reading from the start", "file", t.cfg.Path)
			if _, err := f.Seek(0, io.SeekStart); err != nil {
				return result, fmt.Errorf("failed to rewind log file: %w", err)
			}
			reader.Reset(f)
			pending.Reset()
			offset = 0
		}
	}
}

func (t *Tailer) handleLine(line string, result *Result) bool {
	result.Lines++
	fmt.Fprintln(t.cfg.Echo, line)

	if strings.Contains(line, t.cfg.StatusMarker) {
		status, err := ParseStatus(line)
		switch {
		case err != nil:
			t.log.Warnw("unreadable status line, the run will fail", "line", line, "error", err)
			if result.StatusErr == nil {
				result.StatusErr = err
			}
			result.Status = ""
			result.Found = false
		case result.StatusErr != nil:
			t.log.Warnw("status ignored after an unreadable status line", "status", status)
		default:
			result.Status = status
			result.Found = true
			t.log.Debugw("captured status", "status", status)
		}
	}

	return strings.Contains(line, t.cfg.CompletionMarker)
}

// open waits for the log file to exist.
func (t *Tailer) open(ctx context.Context) (*os.File, error) {
	ticker := time.NewTicker(t.cfg.PollInterval)
	defer ticker.Stop()

	for {
		f, err := os.Open(t.cfg.Path)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to open log file %s: %w", t.cfg.Path, err)
		}

		if err := t.wait(ctx, nil, ticker.C); err != nil {
			return nil, err
		}
	}
}

// watch subscribes to writes on the log file. When the platform watcher is
// unavailable the returned channel is nil and the poll interval alone drives
// the loop.
func (t *Tailer) watch() (<-chan fsnotify.Event, func()) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		t.log.Debugw("file watcher unavailable, polling only", "error", err)
		return nil, func() {}
	}

	if err := watcher.Add(t.cfg.Path); err != nil {
		t.log.Debugw("cannot watch log file, polling only", "file", t.cfg.Path, "error", err)
		watcher.Close()
		return nil, func() {}
	}

	go func() {
		for err := range watcher.Errors {
			t.log.Debugw("file watcher error", "error", err)
		}
	}()

	return watcher.Events, func() { watcher.Close() }
}

func (t *Tailer) wait(ctx context.Context, events <-chan fsnotify.Event, tick <-chan time.Time) error {
	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrTimeout
		}
		return ctx.Err()
	case <-events:
	case <-tick:
	}
	return nil
}

func (t *Tailer) truncatedBelow(f *os.File, offset int64) (bool, error) {
	info, err := f.Stat()
	if err != nil {
		return false, fmt.Errorf("failed to stat log file: %w", err)
	}
	return info.Size() < offset, nil
}
