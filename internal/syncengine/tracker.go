package syncengine

import (
	"context"
	"fmt"
	"strings"
)

// Tracker is how a job reports progress to, and takes direction from, the
// controller that runs it. Jobs call Checkpoint before each unit of work.
type Tracker interface {
	// Checkpoint blocks while the job is paused and returns ErrCancelled
	// once a stop was requested or ctx is done.
	Checkpoint(ctx context.Context) error
	// SetTotal records the (possibly estimated) number of units.
	SetTotal(total uint64)
	// SetMessage records a human-readable phase description.
	SetMessage(message string)
	// SetHint records the entry being worked on without counting it.
	SetHint(relativePath string)
	// Advance counts one processed unit.
	Advance(relativePath string)
	// Log reports a progress or problem line. keyvals are alternating
	// key/value pairs.
	Log(level LogLevel, message string, keyvals ...any)
}

// NopTracker ignores progress and never pauses; it only honors ctx.
type NopTracker struct{}

// Checkpoint implements Tracker.
func (NopTracker) Checkpoint(ctx context.Context) error {
	if ctx.Err() != nil {
		return ErrCancelled
	}

	return nil
}

func (NopTracker) SetTotal(uint64)              {}
func (NopTracker) SetMessage(string)            {}
func (NopTracker) SetHint(string)               {}
func (NopTracker) Advance(string)               {}
func (NopTracker) Log(LogLevel, string, ...any) {}

// formatLogText renders a message and its keyvals as "message k=v k=v".
func formatLogText(message string, keyvals []any) string {
	if len(keyvals) == 0 {
		return message
	}

	var b strings.Builder

	b.WriteString(message)

	for i := 0; i < len(keyvals); i += 2 {
		b.WriteByte(' ')

		if i+1 >= len(keyvals) {
			fmt.Fprintf(&b, "%v", keyvals[i])
			break
		}

		fmt.Fprintf(&b, "%v=%v", keyvals[i], keyvals[i+1])
	}

	return b.String()
}
