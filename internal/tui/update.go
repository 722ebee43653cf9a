package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/joe/dir-sync/internal/tui/shared"
)

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progress.Width = min(max(msg.Width-4*shared.DefaultPadding, shared.ProgressBarWidth/2), shared.MaxProgressBarWidth)

		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case shared.EngineEventMsg:
		m.apply(msg.Event)
		return m, m.bridge.ListenCmd()
	case jobDoneMsg:
		for _, event := range m.bridge.Drain() {
			m.apply(event)
		}

		m.done = true

		return m, tea.Quit
	case shared.TickMsg:
		if m.done {
			return m, nil
		}

		m.now = time.Time(msg)

		return m, shared.TickCmd()
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.done {
		return m, tea.Quit
	}

	switch msg.String() {
	case shared.KeyPause:
		if m.ctrl.Pause() {
			m.status.Paused = true
		}
	case shared.KeyResume:
		if m.ctrl.Resume() {
			m.status.Paused = false
		}
	case shared.KeyStop, shared.KeyCtrlC, shared.KeyQuit:
		// A second stop leaves the view; the caller still waits for the job.
		if m.status.StopRequested {
			m.detached = true
			return m, tea.Quit
		}

		if !m.ctrl.Stop() {
			m.detached = true
			return m, tea.Quit
		}

		m.status.StopRequested = true
		m.status.Paused = false
	}

	return m, nil
}
