package ui

// spinner.go provides a blocking spinner for long-running operations.
// Uses Bubble Tea spinner (white) instead of huh/spinner.

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// ErrInterrupted is returned when the operator presses ctrl+c while the
// spinner is shown. The action keeps running in the background until it
// observes its own context.
var ErrInterrupted = errors.New("interrupted")

// actionDoneMsg signals the action completed
type actionDoneMsg struct{}

// blockingSpinnerModel runs a spinner while an action executes
type blockingSpinnerModel struct {
	spinner     spinner.Model
	title       string
	action      func()
	done        bool
	interrupted bool
}

// RunWithSpinner executes an action while displaying a spinner.
//
// Example:
//
//	var records []models.CDXRecord
//	var fetchErr error
//	err := RunWithSpinner(os.Stderr, "Querying archive...", func() {
//	    records, fetchErr = client.FetchDomain(ctx, domain)
//	})
//	if err != nil { return err }
//	if fetchErr != nil { return fetchErr }
func RunWithSpinner(out io.Writer, title string, action func()) error {
	m := blockingSpinnerModel{
		spinner: NewAppSpinner(),
		title:   title,
		action:  action,
	}

	p := tea.NewProgram(m, tea.WithOutput(out))
	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("spinner program error: %w", err)
	}

	if finalModel.(blockingSpinnerModel).interrupted {
		return ErrInterrupted
	}
	return nil
}

func (m blockingSpinnerModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.runAction(),
	)
}

func (m blockingSpinnerModel) runAction() tea.Cmd {
	return func() tea.Msg {
		m.action()
		return actionDoneMsg{}
	}
}

func (m blockingSpinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case actionDoneMsg:
		m.done = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.done = true
			m.interrupted = true
			return m, tea.Quit
		}
	}

	return m, nil
}

func (m blockingSpinnerModel) View() string {
	if m.done {
		return ""
	}
	return fmt.Sprintf("%s %s", m.spinner.View(), RenderNormal(m.title))
}
