package widgets

import (
	"fmt"

	"github.com/joe/dir-sync/internal/syncengine"
	"github.com/joe/dir-sync/internal/tui/shared"
)

// NewProgressWidget creates a widget that displays job progress.
// Returns a closure that formats the current progress from the status.
func NewProgressWidget(getStatus func() *syncengine.Status) func() string {
	return func() string {
		status := getStatus()
		if status == nil {
			return "Files: 0 / 0 (0.0%)"
		}

		line := fmt.Sprintf("Files: %s / %s (%.1f%%)",
			shared.FormatCount(status.Processed),
			shared.FormatCount(status.EstimatedTotal),
			status.Progress.Percent)

		if !status.Running {
			return line
		}

		metrics := status.Progress
		line += fmt.Sprintf("\nRate: %s  Elapsed: %s",
			shared.FormatRate(metrics.ItemsPerSecond),
			shared.FormatDuration(metrics.Elapsed))

		if metrics.Remaining > 0 {
			line += "  Remaining: " + shared.FormatDuration(metrics.Remaining)
		}

		return line
	}
}
