package syncengine

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"

	"github.com/jonboulle/clockwork"

	"github.com/joe/dir-sync/internal/records"
	"github.com/joe/dir-sync/pkg/filesystem"
)

// Scanner walks a root and records size and modification time for every
// regular file under it.
type Scanner struct {
	open    filesystem.Opener
	exclude *ExcludeFilter
	clock   clockwork.Clock
}

// NewScanner creates a Scanner. A nil exclude filter excludes nothing.
func NewScanner(open filesystem.Opener, exclude *ExcludeFilter, clock clockwork.Clock) *Scanner {
	return &Scanner{open: open, exclude: exclude, clock: clock}
}

// Scan builds a manifest of root labelled label. It runs in two phases: a fast
// count that sets the tracker's estimated total, then the recording walk.
//
// Files that cannot be stat'ed are listed as inaccessible and the walk goes
// on. A directory that cannot be read aborts the scan with ErrWalkFailed. On
// stop the partial manifest is returned with ErrCancelled.
func (s *Scanner) Scan(ctx context.Context, root, label string, tracker Tracker) (*records.Manifest, error) {
	fsys, base, closer, err := s.open(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidRoot, root, err)
	}
	defer closer()

	info, err := fsys.Stat(base)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidRoot, root, err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrInvalidRoot, root)
	}

	// The manifest keeps the root as given; the walk starts from its target.
	base, err = fsys.RealPath(base)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidRoot, root, err)
	}

	manifest := records.NewManifest(label, root)
	manifest.CreatedAt = s.clock.Now()

	tracker.SetMessage("Counting files in " + root)

	total, err := fsys.CountFiles(base)
	if err != nil {
		// Only an estimate; the walk below is authoritative.
		tracker.Log(LevelWarning, "could not count files", "root", root, "error", err)
	}

	tracker.SetTotal(total)
	tracker.SetMessage("Scanning " + root)

	walker := fsys.Walk(base)
	for walker.Step() {
		err := tracker.Checkpoint(ctx)
		if err != nil {
			return manifest, err
		}

		current := walker.Path()

		rel, err := fsys.Rel(base, current)
		if err != nil {
			return manifest, fmt.Errorf("%w: %s: %w", ErrWalkFailed, current, err)
		}

		if walkErr := walker.Err(); walkErr != nil {
			return manifest, fmt.Errorf("%w: %s: %w", ErrWalkFailed, current, walkErr)
		}

		if rel == "." {
			continue
		}

		if walker.Stat().IsDir() {
			if s.exclude.Excludes(rel) {
				walker.SkipDir()
				continue
			}

			tracker.SetHint(rel)

			continue
		}

		if s.exclude.Excludes(rel) {
			continue
		}

		s.record(fsys, manifest, current, rel, tracker)
		tracker.Advance(rel)
	}

	tracker.Log(LevelSuccess, "scan finished",
		"root", root, "files", len(manifest.Entries), "inaccessible", len(manifest.Inaccessible))

	return manifest, nil
}

// record stats one walked entry, following symlinks, and files it under
// Entries or Inaccessible. Directories and special files are skipped.
func (s *Scanner) record(
	fsys filesystem.FileSystem,
	manifest *records.Manifest,
	fullPath, rel string,
	tracker Tracker,
) {
	info, err := fsys.Stat(fullPath)
	if err != nil {
		reason := inaccessibleReason(err)
		manifest.Inaccessible = append(manifest.Inaccessible, records.InaccessibleEntry{
			RelativePath: rel,
			Reason:       reason,
		})
		tracker.Log(LevelWarning, "inaccessible file", "path", rel, "reason", reason)

		return
	}

	if !info.Mode().IsRegular() {
		return
	}

	manifest.Entries[rel] = records.FileMeta{
		Size:         uint64(info.Size()), //nolint:gosec // Sizes are never negative
		ModifiedTime: info.ModTime(),
	}
}

func inaccessibleReason(err error) string {
	switch {
	case errors.Is(err, iofs.ErrNotExist):
		return "not found: " + err.Error()
	case errors.Is(err, iofs.ErrPermission):
		return "permission denied: " + err.Error()
	default:
		return err.Error()
	}
}
