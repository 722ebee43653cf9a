package widgets

import "github.com/joe/dir-sync/internal/syncengine"

// NewStageWidget creates a widget that describes what the controller is doing.
func NewStageWidget(status syncengine.Status) func() string {
	return func() string {
		switch {
		case !status.Running && status.LastResult != "":
			return status.LastResult
		case !status.Running:
			return status.Message
		case status.StopRequested:
			return "Stopping..."
		case status.Paused:
			return "Paused"
		}

		switch status.Stage {
		case syncengine.StageScanning:
			return "Scanning files..."
		case syncengine.StageDiffing:
			return "Comparing manifests..."
		case syncengine.StageCopying:
			return "Copying files..."
		default:
			return status.Message
		}
	}
}
