package gateway

import (
	"errors"
	"time"

	"github.com/gorilla/websocket"

	"github.com/joe/dir-sync/internal/syncengine"
)

// Exported constants.
const (
	// MaxCommandSize caps a client frame.
	MaxCommandSize = 4096
	// PongWait is how long a client may stay silent before it is dropped.
	PongWait = 60 * time.Second
	// PingPeriod must be shorter than PongWait.
	PingPeriod = PongWait * 9 / 10
	// WriteWait bounds a single frame write.
	WriteWait = 10 * time.Second
)

// Client commands.
const (
	CommandPause  = "pause"
	CommandResume = "resume"
	CommandStop   = "stop"
	CommandStatus = "status"
)

// Command is a client-to-server frame.
type Command struct {
	Command string `json:"command"`
}

// client is one WebSocket connection. Only the hub writes to send and only
// writePump reads from it.
type client struct {
	conn   *websocket.Conn
	send   chan []byte
	remote string
}

func newClient(conn *websocket.Conn, bufferSize int) *client {
	return &client{
		conn:   conn,
		send:   make(chan []byte, bufferSize),
		remote: conn.RemoteAddr().String(),
	}
}

// enqueue must be called with the hub lock held.
func (c *client) enqueue(data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// readPump handles client commands until the connection fails.
func (s *Server) readPump(c *client) {
	defer func() {
		s.hub.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(MaxCommandSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(PongWait))
	})

	for {
		var cmd Command

		err := c.conn.ReadJSON(&cmd)
		if err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) {
				s.logger.Debug("client read ended", "remote", c.remote, "error", err)
			}

			return
		}

		s.dispatch(c, cmd)
	}
}

// writePump drains the client's queue onto the connection and keeps it alive
// with pings.
func (s *Server) writePump(c *client) {
	ticker := time.NewTicker(PingPeriod)

	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(WriteWait))

			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			err := c.conn.WriteMessage(websocket.TextMessage, data)
			if err != nil {
				s.logger.Debug("client write failed", "remote", c.remote, "error", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(WriteWait))

			err := c.conn.WriteMessage(websocket.PingMessage, nil)
			if err != nil {
				return
			}
		}
	}
}

func (s *Server) dispatch(c *client, cmd Command) {
	switch cmd.Command {
	case CommandPause:
		s.ctrl.Pause()
	case CommandResume:
		s.ctrl.Resume()
	case CommandStop:
		s.ctrl.Stop()
	case CommandStatus:
		s.sendStatus(c)
	default:
		s.hub.sendTo(c, syncengine.LogMessage{
			Level: syncengine.LevelError,
			Text:  "unknown command " + cmd.Command,
		})
	}
}

func (s *Server) sendStatus(c *client) {
	report := s.ctrl.GetStatus()
	s.hub.sendTo(c, syncengine.StatusUpdate{Status: report.Status, Records: report.Records})
}
