// Package syncengine scans directory trees into manifests, diffs manifests,
// and copies the differences, one job at a time under a pausable controller.
package syncengine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jonboulle/clockwork"

	"github.com/joe/dir-sync/internal/records"
	"github.com/joe/dir-sync/internal/store"
	"github.com/joe/dir-sync/pkg/filesystem"
)

// Exported constants.
const (
	// DefaultPausePoll is how often a paused job checks whether it may go on.
	DefaultPausePoll = 100 * time.Millisecond
	// DefaultPublishInterval is the minimum gap between unforced status updates.
	DefaultPublishInterval = 500 * time.Millisecond
)

// Exported variables.
var (
	ErrCancelled           = errors.New("operation cancelled")
	ErrInvalidInput        = errors.New("invalid input")
	ErrInvalidRoot         = errors.New("invalid root")
	ErrOperationInProgress = errors.New("an operation is already in progress")
	ErrWalkFailed          = errors.New("directory walk failed")
)

// RecordStore persists manifests and reports. *store.Store implements it.
type RecordStore interface {
	List() (*store.Listing, error)
	LoadDiffReport(id string) (*records.DiffReport, error)
	LoadManifest(id string) (*records.Manifest, error)
	SaveCopyReport(report *records.CopyReport) (string, error)
	SaveDiffReport(report *records.DiffReport) (string, error)
	SaveManifest(manifest *records.Manifest) (string, error)
}

// StatusReport is what GetStatus returns.
type StatusReport struct {
	Status  Status         `json:"status"`
	Records *store.Listing `json:"records,omitempty"`
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock sets the clock used for throttling, pause polling and timestamps.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

// WithEmitter sets where events go. Without one, events are dropped.
func WithEmitter(emitter EventEmitter) Option {
	return func(c *Controller) { c.emitter = emitter }
}

// WithExcludes sets the scan exclude filter.
func WithExcludes(filter *ExcludeFilter) Option {
	return func(c *Controller) { c.exclude = filter }
}

// WithFileCopier sets the per-file copier factory.
func WithFileCopier(factory FileCopierFactory) Option {
	return func(c *Controller) { c.newCopier = factory }
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithOpener sets how roots are turned into filesystems.
func WithOpener(open filesystem.Opener) Option {
	return func(c *Controller) { c.open = open }
}

// WithPausePoll sets the paused-job poll interval.
func WithPausePoll(interval time.Duration) Option {
	return func(c *Controller) { c.pausePoll = interval }
}

// WithPublishInterval sets the status throttle interval.
func WithPublishInterval(interval time.Duration) Option {
	return func(c *Controller) { c.publishInterval = interval }
}

// Controller runs at most one scan, diff or copy job at a time and exposes
// pause, resume and stop for it. All exported methods are safe for
// concurrent use.
type Controller struct {
	store           RecordStore
	emitter         EventEmitter
	logger          *log.Logger
	clock           clockwork.Clock
	open            filesystem.Opener
	exclude         *ExcludeFilter
	newCopier       FileCopierFactory
	pausePoll       time.Duration
	publishInterval time.Duration

	mu          sync.Mutex
	state       OperationState
	lastResult  string
	cancel      context.CancelFunc
	done        chan struct{}
	lastPublish time.Time
}

// NewController creates an idle Controller backed by recordStore.
func NewController(recordStore RecordStore, opts ...Option) *Controller {
	c := &Controller{
		store:           recordStore,
		emitter:         EmitterFunc(func(Event) {}),
		logger:          log.New(io.Discard),
		clock:           clockwork.NewRealClock(),
		open:            filesystem.CreateFileSystem,
		newCopier:       NewFileOpsCopier,
		pausePoll:       DefaultPausePoll,
		publishInterval: DefaultPublishInterval,
		state:           OperationState{Stage: StageIdle},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// StartScan starts scanning path into a manifest labelled label.
func (c *Controller) StartScan(path, label string) error {
	path = strings.TrimSpace(path)
	label = strings.TrimSpace(label)

	if path == "" || label == "" {
		return fmt.Errorf("%w: scan needs a path and a label", ErrInvalidInput)
	}

	if filesystem.IsRemotePath(path) {
		if _, err := filesystem.ParsePath(path); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
	} else {
		// Copies run later, possibly from another working directory.
		abs, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}

		path = abs
	}

	scanner := NewScanner(c.open, c.exclude, c.clock)

	return c.start(StageScanning, "Scanning "+path, func(ctx context.Context, tracker Tracker) {
		c.runScan(ctx, scanner, path, label, tracker)
	})
}

// StartDiff starts comparing the manifest sourceID against destID.
func (c *Controller) StartDiff(sourceID, destID string) error {
	for _, id := range []string{sourceID, destID} {
		if err := store.ValidateManifestID(id); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
	}

	differ := NewDiffer(c.clock)

	return c.start(StageDiffing, "Comparing manifests", func(ctx context.Context, tracker Tracker) {
		c.runDiff(ctx, differ, sourceID, destID, tracker)
	})
}

// StartCopy starts copying the discrepancies listed in the diff report
// reportID.
func (c *Controller) StartCopy(reportID string) error {
	if err := store.ValidateDiffReportID(reportID); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	copier := NewCopier(c.open, c.newCopier, c.clock)

	return c.start(StageCopying, "Copying files", func(ctx context.Context, tracker Tracker) {
		c.runCopy(ctx, copier, reportID, tracker)
	})
}

// Pause pauses the running job. It reports whether anything changed.
func (c *Controller) Pause() bool {
	return c.control("pause", func(s *OperationState) bool {
		if !s.Running || s.Paused || s.StopRequested {
			return false
		}

		s.Paused = true
		s.StatusMessage = "Paused"

		return true
	})
}

// Resume resumes a paused job. It reports whether anything changed.
func (c *Controller) Resume() bool {
	return c.control("resume", func(s *OperationState) bool {
		if !s.Running || !s.Paused {
			return false
		}

		s.Paused = false
		s.StatusMessage = "Resumed"

		return true
	})
}

// Stop asks the running job to stop at its next checkpoint. It reports
// whether anything changed.
func (c *Controller) Stop() bool {
	return c.control("stop", func(s *OperationState) bool {
		if !s.Running || s.StopRequested {
			return false
		}

		s.StopRequested = true
		s.Paused = false
		s.StatusMessage = "Stopping"

		if c.cancel != nil {
			c.cancel()
		}

		return true
	})
}

// GetStatus returns a snapshot of the state plus the store listing. A listing
// failure is logged and leaves Records nil.
func (c *Controller) GetStatus() StatusReport {
	c.mu.Lock()
	status := c.state.snapshot(c.clock.Now())
	status.LastResult = c.lastResult
	c.mu.Unlock()

	return StatusReport{Status: status, Records: c.listing()}
}

// Wait blocks until the current job, if any, has finished.
func (c *Controller) Wait() {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()

	if done != nil {
		<-done
	}
}

// PublishStatus emits a forced status update, e.g. for a newly connected
// client.
func (c *Controller) PublishStatus() {
	c.publish(true)
}

// Logger returns the controller's logger.
func (c *Controller) Logger() *log.Logger {
	return c.logger
}

type job func(ctx context.Context, tracker Tracker)

func (c *Controller) start(stage Stage, message string, run job) error {
	c.mu.Lock()

	if c.state.Running {
		current := c.state.Stage
		c.mu.Unlock()
		c.logger.Warn("start rejected", "requested", stage, "running", current)

		return fmt.Errorf("%w: %s", ErrOperationInProgress, current)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	c.state = OperationState{
		Stage:         stage,
		Running:       true,
		StatusMessage: message,
		StartedAt:     c.clock.Now(),
	}
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()

	c.logger.Info("operation started", "stage", stage)
	c.publish(true)

	go func() {
		defer close(done)
		defer c.finish(stage, cancel)

		run(ctx, &jobTracker{c: c})
	}()

	return nil
}

// finish runs on every exit path of a job.
func (c *Controller) finish(stage Stage, cancel context.CancelFunc) {
	cancel()

	c.mu.Lock()
	c.state.reset()
	c.cancel = nil
	c.mu.Unlock()

	c.logger.Info("operation ended", "stage", stage)
	c.publish(true)
	c.emitter.Emit(OperationEnded{Stage: stage})
}

func (c *Controller) control(command string, apply func(*OperationState) bool) bool {
	c.mu.Lock()
	applied := apply(&c.state)
	stage := c.state.Stage
	c.mu.Unlock()

	if !applied {
		c.logger.Debug("control command ignored", "command", command, "stage", stage)
		return false
	}

	c.logger.Info("control command applied", "command", command, "stage", stage)
	c.publish(true)

	return true
}

// publish emits a status update if forced or if the throttle interval has
// passed. Forced updates carry the store listing.
func (c *Controller) publish(force bool) {
	c.mu.Lock()

	now := c.clock.Now()
	if !force && now.Sub(c.lastPublish) < c.publishInterval {
		c.mu.Unlock()
		return
	}

	c.lastPublish = now
	status := c.state.snapshot(now)
	status.LastResult = c.lastResult
	c.mu.Unlock()

	update := StatusUpdate{Status: status}
	if force {
		update.Records = c.listing()
	}

	c.emitter.Emit(update)
}

func (c *Controller) listing() *store.Listing {
	listing, err := c.store.List()
	if err != nil {
		c.logger.Error("failed to list records", "error", err)
		return nil
	}

	return listing
}

// report logs a message and publishes it as a LogMessage event.
func (c *Controller) report(level LogLevel, message string, keyvals ...any) {
	switch level {
	case LevelError:
		c.logger.Error(message, keyvals...)
	case LevelWarning:
		c.logger.Warn(message, keyvals...)
	default:
		c.logger.Info(message, keyvals...)
	}

	c.emitter.Emit(LogMessage{Level: level, Text: formatLogText(message, keyvals)})
}

func (c *Controller) runScan(ctx context.Context, scanner *Scanner, path, label string, tracker Tracker) {
	event := ScanComplete{Label: label, Path: path}

	manifest, err := scanner.Scan(ctx, path, label, tracker)

	switch {
	case errors.Is(err, ErrCancelled):
		c.report(LevelWarning, "scan stopped, nothing saved", "path", path)
		event.Status = OutcomeCancelled
	case err != nil:
		c.report(LevelError, "scan failed", "path", path, "error", err)
		event.Status = OutcomeError
		event.Error = err.Error()
	default:
		event = c.saveManifest(manifest, event)
	}

	c.setOutcome("scan", event.Status)
	c.emitter.Emit(event)
}

func (c *Controller) saveManifest(manifest *records.Manifest, event ScanComplete) ScanComplete {
	id, err := c.store.SaveManifest(manifest)
	if err != nil {
		c.report(LevelError, "failed to save manifest", "error", err)
		event.Status = OutcomeError
		event.Error = err.Error()

		return event
	}

	c.report(LevelSuccess, "manifest saved", "id", id,
		"files", len(manifest.Entries), "inaccessible", len(manifest.Inaccessible))

	event.Status = OutcomeSuccess
	event.ManifestID = id
	event.Entries = len(manifest.Entries)
	event.Inaccessible = len(manifest.Inaccessible)

	return event
}

func (c *Controller) runDiff(ctx context.Context, differ *Differ, sourceID, destID string, tracker Tracker) {
	var event DiffComplete

	defer func() {
		c.setOutcome("diff", event.Status)
		c.emitter.Emit(event)
	}()

	fail := func(message string, err error) {
		c.report(LevelError, message, "error", err)
		event.Status = OutcomeError
		event.Error = err.Error()
	}

	source, err := c.store.LoadManifest(sourceID)
	if err != nil {
		fail("failed to load source manifest", err)
		return
	}

	dest, err := c.store.LoadManifest(destID)
	if err != nil {
		fail("failed to load destination manifest", err)
		return
	}

	report, err := differ.Diff(ctx, source, dest, tracker)

	switch {
	case errors.Is(err, ErrCancelled):
		event.Status = OutcomeCancelled
	case err != nil:
		fail("diff failed", err)
		return
	default:
		event.Status = OutcomeSuccess
	}

	id, err := c.store.SaveDiffReport(report)
	if err != nil {
		fail("failed to save diff report", err)
		return
	}

	event.ReportID = id
	event.ExportID = report.ExportID
	event.Counts = report.Counts

	if report.Cancelled {
		c.report(LevelWarning, "diff stopped, partial report saved", "id", id)
	} else {
		c.report(LevelSuccess, "diff report saved", "id", id, "discrepancies", len(report.Discrepancies))
	}
}

func (c *Controller) runCopy(ctx context.Context, copier *Copier, reportID string, tracker Tracker) {
	var event CopyComplete

	defer func() {
		c.setOutcome("copy", event.Status)
		c.emitter.Emit(event)
	}()

	fail := func(message string, err error) {
		c.report(LevelError, message, "error", err)
		event.Status = OutcomeError
		event.Error = err.Error()
	}

	diff, err := c.store.LoadDiffReport(reportID)
	if err != nil {
		fail("failed to load diff report", err)
		return
	}

	report, err := copier.Copy(ctx, diff, tracker)

	switch {
	case errors.Is(err, ErrCancelled):
		event.Status = OutcomeCancelled
	case err != nil:
		fail("copy failed", err)
		return
	default:
		event.Status = OutcomeSuccess
	}

	id, err := c.store.SaveCopyReport(report)
	if err != nil {
		fail("failed to save copy report", err)
		return
	}

	event.ReportID = id
	event.ExportID = report.ExportID
	event.Total = report.Total
	event.Attempted = report.Attempted
	event.Succeeded = report.Succeeded
	event.Failed = report.Failed

	if report.Cancelled {
		c.report(LevelWarning, "copy stopped, partial report saved", "id", id, "attempted", report.Attempted)
	} else {
		c.report(LevelSuccess, "copy report saved", "id", id, "failed", report.Failed)
	}
}

// setOutcome records the job outcome. It is kept apart from the operation
// state, which finalization resets.
func (c *Controller) setOutcome(job string, outcome Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastResult = fmt.Sprintf("Last %s: %s", job, outcome)
}

// jobTracker is the Tracker handed to the running job.
type jobTracker struct {
	c *Controller
}

func (t *jobTracker) Checkpoint(ctx context.Context) error {
	for {
		t.c.mu.Lock()
		stop := t.c.state.StopRequested
		paused := t.c.state.Paused
		t.c.mu.Unlock()

		if stop || ctx.Err() != nil {
			return ErrCancelled
		}

		if !paused {
			return nil
		}

		select {
		case <-ctx.Done():
			return ErrCancelled
		case <-t.c.clock.After(t.c.pausePoll):
		}
	}
}

func (t *jobTracker) SetTotal(total uint64) {
	t.c.mu.Lock()
	t.c.state.EstimatedTotal = total
	t.c.mu.Unlock()

	t.c.publish(true)
}

func (t *jobTracker) SetMessage(message string) {
	t.c.mu.Lock()
	t.c.state.StatusMessage = message
	t.c.mu.Unlock()

	t.c.publish(true)
}

func (t *jobTracker) SetHint(relativePath string) {
	t.c.mu.Lock()
	t.c.state.CurrentPathHint = relativePath
	t.c.mu.Unlock()

	t.c.publish(false)
}

func (t *jobTracker) Advance(relativePath string) {
	t.c.mu.Lock()
	t.c.state.ProcessedCount++
	t.c.state.CurrentPathHint = relativePath
	t.c.mu.Unlock()

	t.c.publish(false)
}

func (t *jobTracker) Log(level LogLevel, message string, keyvals ...any) {
	t.c.report(level, message, keyvals...)
}
