package syncengine_test

import (
	"context"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/joe/dir-sync/internal/store"
	"github.com/joe/dir-sync/internal/syncengine"
	"github.com/joe/dir-sync/pkg/fileops"
	"github.com/joe/dir-sync/pkg/filesystem"
)

//nolint:gochecknoglobals // Fixed timestamps shared by the fixtures
var (
	baseTime  = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	laterTime = baseTime.Add(time.Hour)
)

// openMock resolves every root onto the same in-memory filesystem.
func openMock(fsys filesystem.FileSystem) filesystem.Opener {
	return func(pathStr string) (filesystem.FileSystem, string, func(), error) {
		return fsys, pathStr, func() {}, nil
	}
}

func newMemStore() *store.Store {
	s := store.New(afero.NewMemMapFs(), "/data")
	if err := s.Init(); err != nil {
		panic(err)
	}

	return s
}

// recordingTracker captures what a job reports. Checkpoint cancels once
// stopAfter units were advanced (when stopAfter > 0).
type recordingTracker struct {
	mu        sync.Mutex
	total     uint64
	advanced  []string
	hints     []string
	logs      []string
	stopAfter int
}

func (r *recordingTracker) Checkpoint(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ctx.Err() != nil || (r.stopAfter > 0 && len(r.advanced) >= r.stopAfter) {
		return syncengine.ErrCancelled
	}

	return nil
}

func (r *recordingTracker) SetTotal(total uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total = total
}

func (r *recordingTracker) SetMessage(string) {}

func (r *recordingTracker) SetHint(relativePath string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hints = append(r.hints, relativePath)
}

func (r *recordingTracker) Advance(relativePath string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.advanced = append(r.advanced, relativePath)
}

func (r *recordingTracker) Log(_ syncengine.LogLevel, message string, _ ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, message)
}

// eventRecorder is a thread-safe EventEmitter that keeps every event.
type eventRecorder struct {
	mu     sync.Mutex
	events []syncengine.Event
}

func (r *eventRecorder) Emit(event syncengine.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *eventRecorder) All() []syncengine.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]syncengine.Event(nil), r.events...)
}

func (r *eventRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

func eventsOf[T syncengine.Event](r *eventRecorder) []T {
	var out []T

	for _, event := range r.All() {
		if typed, ok := event.(T); ok {
			out = append(out, typed)
		}
	}

	return out
}

// afterEach wraps a FileCopier and calls hook after every n-th copy.
type afterEach struct {
	inner syncengine.FileCopier
	n     int
	count int
	hook  func()
}

func (a *afterEach) CopyFile(src, dst string, progress fileops.ProgressCallback) (*fileops.CopyStats, error) {
	stats, err := a.inner.CopyFile(src, dst, progress)

	a.count++
	if a.count == a.n {
		a.hook()
	}

	return stats, err
}
