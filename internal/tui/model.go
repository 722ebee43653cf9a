// Package tui renders a running controller job in the terminal: its stage,
// progress, current path and log, then the job's result. Keys pause, resume
// and stop the job.
package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/joe/dir-sync/internal/syncengine"
	"github.com/joe/dir-sync/internal/tui/shared"
)

// Controller is the part of syncengine.Controller the job view drives.
type Controller interface {
	Pause() bool
	Resume() bool
	Stop() bool
	GetStatus() syncengine.StatusReport
	Wait()
}

// Model is the bubble tea model for one job.
type Model struct {
	ctrl   Controller
	bridge *shared.EventBridge
	title  string

	status   syncengine.Status
	logs     []string
	result   syncengine.Event
	ended    bool
	done     bool
	detached bool

	progress progress.Model
	width    int
	now      time.Time
}

// jobDoneMsg is sent once the controller's job has finished and every event
// it emitted is queued in the bridge.
type jobDoneMsg struct{}

// NewModel creates the job view. The job should already be started; events
// emitted before the program runs are buffered by the bridge.
func NewModel(ctrl Controller, bridge *shared.EventBridge, title string) Model {
	return Model{
		ctrl:     ctrl,
		bridge:   bridge,
		title:    title,
		status:   ctrl.GetStatus().Status,
		progress: shared.NewProgressModel(shared.ProgressBarWidth),
		now:      time.Now(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.bridge.ListenCmd(), waitCmd(m.ctrl), shared.TickCmd())
}

// Result returns the completion event of the job, or nil if none arrived.
func (m Model) Result() syncengine.Event {
	return m.result
}

// Status returns the last status the view has seen.
func (m Model) Status() syncengine.Status {
	return m.status
}

// Detached reports whether the user left the view before the job ended.
func (m Model) Detached() bool {
	return m.detached
}

// Logs returns the retained log lines, oldest first.
func (m Model) Logs() []string {
	return m.logs
}

func waitCmd(ctrl Controller) tea.Cmd {
	return func() tea.Msg {
		ctrl.Wait()
		return jobDoneMsg{}
	}
}

func (m *Model) apply(event syncengine.Event) {
	switch event := event.(type) {
	case syncengine.StatusUpdate:
		m.status = event.Status
	case syncengine.LogMessage:
		m.logs = append(m.logs, formatLogEntry(event))
		if len(m.logs) > shared.MaxLogEntries {
			m.logs = m.logs[len(m.logs)-shared.MaxLogEntries:]
		}
	case syncengine.ScanComplete, syncengine.DiffComplete, syncengine.CopyComplete:
		m.result = event
	case syncengine.OperationEnded:
		m.ended = true
	}
}

func formatLogEntry(msg syncengine.LogMessage) string {
	switch msg.Level {
	case syncengine.LevelSuccess:
		return shared.RenderSuccess("✓ ") + msg.Text
	case syncengine.LevelWarning:
		return shared.RenderWarning("! ") + msg.Text
	case syncengine.LevelError:
		return shared.RenderError("✗ ") + msg.Text
	default:
		return shared.RenderDim("· ") + msg.Text
	}
}
