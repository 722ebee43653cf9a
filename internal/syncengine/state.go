package syncengine

import (
	"time"
)

// Stage is the job a controller is running.
type Stage string

// Stages.
const (
	StageIdle     Stage = "idle"
	StageScanning Stage = "scanning"
	StageDiffing  Stage = "diffing"
	StageCopying  Stage = "copying"
)

// OperationState is the single shared record of what the controller is doing.
// It is only touched under Controller.mu.
//
// Invariant: !Running implies Stage == StageIdle && !Paused.
type OperationState struct {
	Stage           Stage
	Running         bool
	Paused          bool
	StopRequested   bool
	CurrentPathHint string
	ProcessedCount  uint64
	EstimatedTotal  uint64
	StatusMessage   string
	StartedAt       time.Time
}

// reset returns the state to its zero idle value.
func (s *OperationState) reset() {
	*s = OperationState{Stage: StageIdle}
}

// Status is an immutable snapshot of OperationState plus derived progress.
type Status struct {
	Stage          Stage           `json:"stage"`
	Running        bool            `json:"running"`
	Paused         bool            `json:"paused"`
	StopRequested  bool            `json:"stopRequested"`
	CurrentPath    string          `json:"currentPath"`
	Processed      uint64          `json:"processed"`
	EstimatedTotal uint64          `json:"estimatedTotal"`
	Message        string          `json:"message"`
	LastResult     string          `json:"lastResult,omitempty"`
	StartedAt      *time.Time      `json:"startedAt,omitempty"`
	Progress       ProgressMetrics `json:"progress"`
}

func (s *OperationState) snapshot(now time.Time) Status {
	status := Status{
		Stage:          s.Stage,
		Running:        s.Running,
		Paused:         s.Paused,
		StopRequested:  s.StopRequested,
		CurrentPath:    s.CurrentPathHint,
		Processed:      s.ProcessedCount,
		EstimatedTotal: s.EstimatedTotal,
		Message:        s.StatusMessage,
	}

	if !s.Running && status.Message == "" {
		status.Message = "Idle"
	}

	if s.Running {
		startedAt := s.StartedAt
		status.StartedAt = &startedAt
		status.Progress = computeProgress(s.ProcessedCount, s.EstimatedTotal, now.Sub(s.StartedAt))
	}

	return status
}
