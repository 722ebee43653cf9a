package shared

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/joe/dir-sync/internal/syncengine"
)

// EventBufferSize is how many controller events the bridge holds before it
// starts dropping status updates.
const EventBufferSize = 100

// EngineEventMsg wraps a syncengine.Event for use as a tea.Msg.
type EngineEventMsg struct {
	Event syncengine.Event
}

// EventBridge adapts controller events to bubble tea messages.
// It implements syncengine.EventEmitter and provides a channel for TUI consumption.
type EventBridge struct {
	mu        sync.Mutex
	eventChan chan tea.Msg
	closed    bool
}

// NewEventBridge creates a new event bridge.
func NewEventBridge() *EventBridge {
	return &EventBridge{
		eventChan: make(chan tea.Msg, EventBufferSize),
	}
}

// Emit implements syncengine.EventEmitter. It never blocks the worker.
// Status updates are dropped when the buffer is full; any other event
// replaces the oldest queued message, so completion events always arrive.
func (b *EventBridge) Emit(event syncengine.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	msg := EngineEventMsg{Event: event}

	select {
	case b.eventChan <- msg:
		return
	default:
	}

	if _, ok := event.(syncengine.StatusUpdate); ok {
		return
	}

	select {
	case <-b.eventChan:
	default:
	}

	select {
	case b.eventChan <- msg:
	default:
	}
}

// Subscribe returns the event channel for receiving events.
func (b *EventBridge) Subscribe() <-chan tea.Msg {
	return b.eventChan
}

// ListenCmd returns a tea.Cmd that blocks until an event is received.
// Use this in Init() or after processing an event to continue listening.
func (b *EventBridge) ListenCmd() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-b.eventChan
		if !ok {
			return nil
		}

		return msg
	}
}

// Drain returns every queued event without blocking.
func (b *EventBridge) Drain() []syncengine.Event {
	var events []syncengine.Event

	for {
		select {
		case msg, ok := <-b.eventChan:
			if !ok {
				return events
			}

			if eventMsg, ok := msg.(EngineEventMsg); ok {
				events = append(events, eventMsg.Event)
			}
		default:
			return events
		}
	}
}

// Close closes the event channel. Later Emit calls are ignored.
func (b *EventBridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.closed {
		b.closed = true
		close(b.eventChan)
	}
}
