package ui

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

type spinnerModel struct {
	spinner spinner.Model
	message string
	done    bool
	err     error
}

type spinnerCompleteMsg struct {
	err error
}

func newSpinnerModel(message string) spinnerModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle
	return spinnerModel{
		spinner: s,
		message: message,
	}
}

func (m spinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.done = true
			m.err = context.Canceled
			return m, tea.Quit
		}
		return m, nil

	case spinnerCompleteMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit

	default:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
}

func (m spinnerModel) View() string {
	if m.done {
		return resultLine(m.message, m.err) + "\n"
	}
	return fmt.Sprintf("%s %s\n", m.spinner.View(), messageStyle.Render(m.message))
}

func resultLine(message string, err error) string {
	if err != nil {
		return errorStyle.Render("✗ " + message + " failed: " + err.Error())
	}
	return successStyle.Render("✓ " + message)
}

// RunWithSpinner runs fn while showing a spinner. Without a terminal it
// prints one line before and one after instead.
func RunWithSpinner[T any](ctx context.Context, out io.Writer, message string, fn func(ctx context.Context) (T, error)) (T, error) {
	if !IsTTY() {
		return runPlain(ctx, out, message, fn)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var result T
	p := tea.NewProgram(newSpinnerModel(message), tea.WithOutput(out), tea.WithContext(ctx))

	go func() {
		r, err := fn(ctx)
		result = r
		p.Send(spinnerCompleteMsg{err: err})
	}()

	finalModel, err := p.Run()
	if err != nil {
		var zero T
		return zero, err
	}

	sm, ok := finalModel.(spinnerModel)
	if !ok {
		var zero T
		return zero, fmt.Errorf("unexpected model type")
	}
	if sm.err != nil {
		var zero T
		return zero, sm.err
	}
	return result, nil
}

func runPlain[T any](ctx context.Context, out io.Writer, message string, fn func(ctx context.Context) (T, error)) (T, error) {
	fmt.Fprintln(out, messageStyle.Render(message+"..."))
	result, err := fn(ctx)
	fmt.Fprintln(out, resultLine(message, err))
	return result, err
}
