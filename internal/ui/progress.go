package ui

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
)

const (
	progressRefresh = 100 * time.Millisecond
	progressWidth   = 40
)

// Counter is a progress reporter safe to update from the download goroutine
// while a renderer reads it.
type Counter struct {
	total   atomic.Int64
	current atomic.Int64
	started atomic.Bool
	done    atomic.Bool
}

func (c *Counter) Start(total int64) {
	c.total.Store(total)
	c.current.Store(0)
	c.started.Store(true)
}

func (c *Counter) Add(n int) {
	c.current.Add(int64(n))
}

func (c *Counter) Finish() {
	c.done.Store(true)
}

func (c *Counter) Snapshot() (current, total int64) {
	return c.current.Load(), c.total.Load()
}

// Percent is in [0, 1], or -1 when the size is unknown.
func (c *Counter) Percent() float64 {
	current, total := c.Snapshot()
	if total <= 0 {
		return -1
	}
	p := float64(current) / float64(total)
	if p > 1 {
		p = 1
	}
	return p
}

func formatTransfer(current, total int64) string {
	if total > 0 {
		return fmt.Sprintf("%s / %s", humanize.Bytes(uint64(current)), humanize.Bytes(uint64(total)))
	}
	return humanize.Bytes(uint64(current))
}

type progressTickMsg time.Time

type progressDoneMsg struct {
	n   int64
	err error
}

type progressModel struct {
	bar     progress.Model
	counter *Counter
	label   string
	done    bool
	n       int64
	err     error
}

func newProgressModel(label string, counter *Counter) progressModel {
	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = progressWidth
	return progressModel{bar: bar, counter: counter, label: label}
}

func tickProgress() tea.Cmd {
	return tea.Tick(progressRefresh, func(t time.Time) tea.Msg {
		return progressTickMsg(t)
	})
}

func (m progressModel) Init() tea.Cmd {
	return tickProgress()
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.done = true
			m.err = context.Canceled
			return m, tea.Quit
		}
		return m, nil
	case progressDoneMsg:
		m.done = true
		m.n = msg.n
		m.err = msg.err
		return m, tea.Quit
	case progressTickMsg:
		return m, tickProgress()
	}
	return m, nil
}

func (m progressModel) View() string {
	current, total := m.counter.Snapshot()
	if m.done {
		if m.err != nil {
			return errorStyle.Render("✗ Download of "+m.label+" failed: "+m.err.Error()) + "\n"
		}
		return successStyle.Render(fmt.Sprintf("✓ Downloaded %s (%s)", m.label, humanize.Bytes(uint64(m.n)))) + "\n"
	}

	pct := m.counter.Percent()
	if pct < 0 {
		return fmt.Sprintf("%s %s\n", messageStyle.Render("Downloading "+m.label), infoStyle.Render(formatTransfer(current, total)))
	}
	return fmt.Sprintf("%s\n%s %s\n", messageStyle.Render("Downloading "+m.label), m.bar.ViewAs(pct), infoStyle.Render(formatTransfer(current, total)))
}

// Progress is implemented by every reporter RunDownload hands to a download.
type Progress interface {
	Start(total int64)
	Add(n int)
	Finish()
}

// DownloadFunc performs a download, reporting through p, and returns the
// number of bytes written.
type DownloadFunc func(ctx context.Context, p Progress) (int64, error)

// RunDownload runs fn while rendering its progress: a progress bar on a
// terminal, a line per 10% otherwise.
func RunDownload(ctx context.Context, out io.Writer, label string, fn DownloadFunc) (int64, error) {
	counter := &Counter{}

	if !IsTTY() {
		plain := &plainProgress{Counter: counter, out: out, label: label}
		n, err := fn(ctx, plain)
		plain.finish(n, err)
		return n, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newProgressModel(label, counter), tea.WithOutput(out), tea.WithContext(ctx))

	go func() {
		n, err := fn(ctx, counter)
		p.Send(progressDoneMsg{n: n, err: err})
	}()

	finalModel, err := p.Run()
	if err != nil {
		return 0, err
	}
	m, ok := finalModel.(progressModel)
	if !ok {
		return 0, fmt.Errorf("unexpected model type")
	}
	return m.n, m.err
}
