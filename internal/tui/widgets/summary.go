package widgets

import (
	"fmt"
	"strings"

	"github.com/joe/dir-sync/internal/syncengine"
)

// NewSummaryWidget creates a widget that displays the result of a finished
// job from its completion event.
func NewSummaryWidget(result syncengine.Event) func() string {
	return func() string {
		var lines []string

		switch event := result.(type) {
		case syncengine.ScanComplete:
			lines = append(lines, headline("Scan", event.Status))
			lines = appendIf(lines, event.ManifestID, "Manifest: %s", event.ManifestID)
			lines = append(lines,
				fmt.Sprintf("Files: %d", event.Entries),
				fmt.Sprintf("Inaccessible: %d", event.Inaccessible))
			lines = appendIf(lines, event.Error, "Error: %s", event.Error)
		case syncengine.DiffComplete:
			lines = append(lines, headline("Diff", event.Status))
			lines = appendIf(lines, event.ReportID, "Report: %s", event.ReportID)
			lines = append(lines,
				fmt.Sprintf("Matched: %d", event.Counts.Matched),
				fmt.Sprintf("Missing: %d", event.Counts.MissingInDestination),
				fmt.Sprintf("Changed: %d", event.Counts.Changed))
			lines = appendIf(lines, event.ExportID, "Export: %s", event.ExportID)
			lines = appendIf(lines, event.Error, "Error: %s", event.Error)
		case syncengine.CopyComplete:
			lines = append(lines, headline("Copy", event.Status))
			lines = appendIf(lines, event.ReportID, "Report: %s", event.ReportID)
			lines = append(lines,
				fmt.Sprintf("Attempted: %d of %d", event.Attempted, event.Total),
				fmt.Sprintf("Succeeded: %d", event.Succeeded),
				fmt.Sprintf("Failed: %d", event.Failed))
			lines = appendIf(lines, event.ExportID, "Failures: %s", event.ExportID)
			lines = appendIf(lines, event.Error, "Error: %s", event.Error)
		default:
			return "No result available"
		}

		return strings.Join(lines, "\n")
	}
}

func headline(job string, outcome syncengine.Outcome) string {
	switch outcome {
	case syncengine.OutcomeSuccess:
		return job + " complete"
	case syncengine.OutcomeCancelled:
		return job + " cancelled"
	default:
		return job + " failed"
	}
}

func appendIf(lines []string, value, format string, args ...any) []string {
	if value == "" {
		return lines
	}

	return append(lines, fmt.Sprintf(format, args...))
}
