package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/joe/dir-sync/internal/syncengine"
)

// Exported constants.
const (
	// MaxRequestSize caps API request bodies.
	MaxRequestSize = 64 * 1024
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout = 5 * time.Second
)

// Controller is the part of syncengine.Controller the gateway drives.
type Controller interface {
	StartScan(path, label string) error
	StartDiff(sourceID, destID string) error
	StartCopy(reportID string) error
	Pause() bool
	Resume() bool
	Stop() bool
	GetStatus() syncengine.StatusReport
}

// ScanRequest is the body of POST /api/scan.
type ScanRequest struct {
	Path  string `json:"path"`
	Label string `json:"label"`
}

// DiffRequest is the body of POST /api/diff.
type DiffRequest struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

// CopyRequest is the body of POST /api/copy.
type CopyRequest struct {
	Report string `json:"report"`
}

// ControlResponse answers pause, resume and stop.
type ControlResponse struct {
	Applied bool `json:"applied"`
}

// Server serves the JSON API and the /ws event stream.
type Server struct {
	ctrl     Controller
	hub      *Hub
	logger   *log.Logger
	upgrader websocket.Upgrader
	mux      *http.ServeMux
}

// NewServer wires ctrl and hub behind an http.Handler. The hub should be the
// controller's emitter so clients see its events.
func NewServer(ctrl Controller, hub *Hub, logger *log.Logger) *Server {
	s := &Server{
		ctrl:   ctrl,
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Local tool; browsers on any origin may connect.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		mux: http.NewServeMux(),
	}

	s.mux.HandleFunc("POST /api/scan", s.handleScan)
	s.mux.HandleFunc("POST /api/diff", s.handleDiff)
	s.mux.HandleFunc("POST /api/copy", s.handleCopy)
	s.mux.HandleFunc("POST /api/pause", s.control(ctrl.Pause))
	s.mux.HandleFunc("POST /api/resume", s.control(ctrl.Resume))
	s.mux.HandleFunc("POST /api/stop", s.control(ctrl.Stop))
	s.mux.HandleFunc("GET /api/status", s.handleStatus)
	s.mux.HandleFunc("GET /ws", s.handleWebSocket)

	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("gateway listening", "addr", addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("gateway stopped: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	err := server.Shutdown(shutdownCtx)
	if err != nil {
		return fmt.Errorf("gateway shutdown: %w", err)
	}

	return nil
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if !s.decode(w, r, &req) {
		return
	}

	s.started(w, s.ctrl.StartScan(req.Path, req.Label))
}

func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	var req DiffRequest
	if !s.decode(w, r, &req) {
		return
	}

	s.started(w, s.ctrl.StartDiff(req.Source, req.Destination))
}

func (s *Server) handleCopy(w http.ResponseWriter, r *http.Request) {
	var req CopyRequest
	if !s.decode(w, r, &req) {
		return
	}

	s.started(w, s.ctrl.StartCopy(req.Report))
}

func (s *Server) control(apply func() bool) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		s.writeJSON(w, http.StatusOK, ControlResponse{Applied: apply()})
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.ctrl.GetStatus())
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already answered the request.
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := newClient(conn, SendBufferSize)
	s.hub.register(c)
	s.sendStatus(c)

	go s.writePump(c)
	go s.readPump(c)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, into any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxRequestSize))
	decoder.DisallowUnknownFields()

	err := decoder.Decode(into)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("%w: bad request body: %w", syncengine.ErrInvalidInput, err))
		return false
	}

	return true
}

func (s *Server) started(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
	case errors.Is(err, syncengine.ErrInvalidInput):
		s.writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, syncengine.ErrOperationInProgress):
		s.writeError(w, http.StatusConflict, err)
	default:
		s.writeError(w, http.StatusInternalServerError, err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, err error) {
	s.logger.Debug("request rejected", "code", code, "error", err)
	s.writeJSON(w, code, map[string]string{"error": err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		s.logger.Warn("failed to write response", "error", err)
	}
}
