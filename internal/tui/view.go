package tui

import (
	"strings"

	"github.com/joe/dir-sync/internal/syncengine"
	"github.com/joe/dir-sync/internal/tui/shared"
	"github.com/joe/dir-sync/internal/tui/widgets"
)

// View implements tea.Model.
func (m Model) View() string {
	var builder strings.Builder

	builder.WriteString(shared.RenderTitle(m.title))
	builder.WriteString("\n")

	if m.result != nil {
		builder.WriteString(shared.RenderBox(widgets.NewSummaryWidget(m.result)()))
		builder.WriteString("\n")
		m.renderLog(&builder)

		return builder.String()
	}

	status := m.liveStatus()

	builder.WriteString(shared.RenderLabel(widgets.NewStageWidget(status)()))
	builder.WriteString("\n\n")
	builder.WriteString(shared.RenderProgress(m.progress, status.Progress.Percent/shared.ProgressPercentageScale))
	builder.WriteString("\n")
	builder.WriteString(widgets.NewProgressWidget(func() *syncengine.Status { return &status })())
	builder.WriteString("\n")

	if status.CurrentPath != "" {
		builder.WriteString(shared.RenderDim(shared.TruncatePath(status.CurrentPath, m.pathWidth())))
		builder.WriteString("\n")
	}

	builder.WriteString("\n")
	m.renderLog(&builder)
	builder.WriteString("\n\n")
	builder.WriteString(shared.RenderDim(m.help(status)))

	return builder.String()
}

// liveStatus advances elapsed time between status updates.
func (m Model) liveStatus() syncengine.Status {
	status := m.status
	if status.Running && status.StartedAt != nil {
		if elapsed := m.now.Sub(*status.StartedAt); elapsed > status.Progress.Elapsed {
			status.Progress.Elapsed = elapsed
		}
	}

	return status
}

func (m Model) renderLog(builder *strings.Builder) {
	if len(m.logs) == 0 {
		return
	}

	builder.WriteString(shared.RenderActivityLog("Log", m.logs, shared.MaxLogEntries))
}

func (m Model) pathWidth() int {
	if m.width <= shared.PathDisplayMargin {
		return shared.MaxProgressBarWidth
	}

	return m.width - shared.PathDisplayMargin
}

func (m Model) help(status syncengine.Status) string {
	switch {
	case status.StopRequested:
		return "stopping • s again to leave"
	case status.Paused:
		return "r resume • s stop"
	default:
		return "p pause • s stop"
	}
}
