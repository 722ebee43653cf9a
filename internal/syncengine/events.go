package syncengine

import (
	"github.com/joe/dir-sync/internal/records"
	"github.com/joe/dir-sync/internal/store"
)

// Event names as they appear on the wire.
const (
	EventStatusUpdate   = "status_update"
	EventLogMessage     = "log_message"
	EventScanComplete   = "scan_complete"
	EventDiffComplete   = "diff_complete"
	EventCopyComplete   = "copy_complete"
	EventOperationEnded = "operation_ended"
)

// Event is the interface implemented by all controller events.
type Event interface {
	EventName() string
	isEvent()
}

// EventEmitter is the interface for emitting events. Emit must not block for
// long: it is called from the worker goroutine.
type EventEmitter interface {
	Emit(event Event)
}

// EmitterFunc adapts a function to EventEmitter.
type EmitterFunc func(Event)

// Emit implements EventEmitter.
func (f EmitterFunc) Emit(event Event) {
	f(event)
}

// Emitters fans each event out to every member.
type Emitters []EventEmitter

// Emit implements EventEmitter.
func (e Emitters) Emit(event Event) {
	for _, emitter := range e {
		emitter.Emit(event)
	}
}

// Outcome is the result reported by the *Complete events.
type Outcome string

// Outcomes.
const (
	OutcomeSuccess   Outcome = "success"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeError     Outcome = "error"
)

// LogLevel is the severity of a LogMessage.
type LogLevel string

// Log levels.
const (
	LevelInfo    LogLevel = "info"
	LevelSuccess LogLevel = "success"
	LevelWarning LogLevel = "warning"
	LevelError   LogLevel = "error"
)

// StatusUpdate carries a snapshot of the operation state. Records is only
// attached to forced publications.
type StatusUpdate struct {
	Status  Status         `json:"status"`
	Records *store.Listing `json:"records,omitempty"`
}

func (StatusUpdate) EventName() string { return EventStatusUpdate }
func (StatusUpdate) isEvent()          {}

// LogMessage is a human-readable progress or problem report.
type LogMessage struct {
	Level LogLevel `json:"level"`
	Text  string   `json:"message"`
}

func (LogMessage) EventName() string { return EventLogMessage }
func (LogMessage) isEvent()          {}

// ScanComplete is emitted when a scan job ends.
type ScanComplete struct {
	Status       Outcome `json:"status"`
	ManifestID   string  `json:"manifestId,omitempty"`
	Label        string  `json:"label"`
	Path         string  `json:"path"`
	Entries      int     `json:"entries"`
	Inaccessible int     `json:"inaccessible"`
	Error        string  `json:"error,omitempty"`
}

func (ScanComplete) EventName() string { return EventScanComplete }
func (ScanComplete) isEvent()          {}

// DiffComplete is emitted when a diff job ends.
type DiffComplete struct {
	Status   Outcome            `json:"status"`
	ReportID string             `json:"reportId,omitempty"`
	ExportID string             `json:"exportId,omitempty"`
	Counts   records.DiffCounts `json:"counts"`
	Error    string             `json:"error,omitempty"`
}

func (DiffComplete) EventName() string { return EventDiffComplete }
func (DiffComplete) isEvent()          {}

// CopyComplete is emitted when a copy job ends.
type CopyComplete struct {
	Status    Outcome `json:"status"`
	ReportID  string  `json:"reportId,omitempty"`
	ExportID  string  `json:"exportId,omitempty"`
	Total     uint64  `json:"total"`
	Attempted uint64  `json:"attempted"`
	Succeeded uint64  `json:"succeeded"`
	Failed    uint64  `json:"failed"`
	Error     string  `json:"error,omitempty"`
}

func (CopyComplete) EventName() string { return EventCopyComplete }
func (CopyComplete) isEvent()          {}

// OperationEnded is emitted last, after finalization reset the state to Idle.
type OperationEnded struct {
	Stage Stage `json:"stage"`
}

func (OperationEnded) EventName() string { return EventOperationEnded }
func (OperationEnded) isEvent()          {}
