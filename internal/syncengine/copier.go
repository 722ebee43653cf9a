package syncengine

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/jonboulle/clockwork"

	"github.com/joe/dir-sync/internal/records"
	pkgerrors "github.com/joe/dir-sync/pkg/errors"
	"github.com/joe/dir-sync/pkg/fileops"
	"github.com/joe/dir-sync/pkg/filesystem"
)

// FileCopier copies one file. *fileops.FileOps is the production
// implementation.
type FileCopier interface {
	CopyFile(src, dst string, progress fileops.ProgressCallback) (*fileops.CopyStats, error)
}

// FileCopierFactory binds a FileCopier to a source and destination filesystem.
type FileCopierFactory func(sourceFS, destFS filesystem.FileSystem) FileCopier

// NewFileOpsCopier is the default FileCopierFactory.
func NewFileOpsCopier(sourceFS, destFS filesystem.FileSystem) FileCopier {
	return fileops.NewDualFileOps(sourceFS, destFS)
}

// Copier applies a diff report by copying every listed file from the source
// root to the destination root.
type Copier struct {
	open      filesystem.Opener
	newCopier FileCopierFactory
	enricher  pkgerrors.Enricher
	clock     clockwork.Clock
}

// NewCopier creates a Copier.
func NewCopier(open filesystem.Opener, newCopier FileCopierFactory, clock clockwork.Clock) *Copier {
	return &Copier{
		open:      open,
		newCopier: newCopier,
		enricher:  pkgerrors.NewEnricher(),
		clock:     clock,
	}
}

// Copy copies the discrepancies of report in order, overwriting whatever is
// at the destination. Per-file failures are recorded in the returned report.
//
// An unusable root is batch-fatal and yields no report. On stop the report
// built so far is returned, marked cancelled, together with ErrCancelled.
func (c *Copier) Copy(ctx context.Context, diff *records.DiffReport, tracker Tracker) (*records.CopyReport, error) {
	work := workList(diff)

	sourceFS, destFS, sourceBase, destBase, closer, err := filesystem.CreateFileSystemPair(
		c.open, diff.SourceRoot, diff.DestRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRoot, err)
	}
	defer closer()

	err = checkRoots(sourceFS, destFS, sourceBase, destBase)
	if err != nil {
		return nil, err
	}

	report := &records.CopyReport{
		CreatedAt:           c.clock.Now(),
		BasedOnDiffReportID: diff.ID,
		SourceRoot:          diff.SourceRoot,
		DestRoot:            diff.DestRoot,
		Total:               uint64(len(work)),
		Successes:           []records.CopySuccess{},
		Failures:            []records.CopyFailure{},
	}

	tracker.SetTotal(report.Total)
	tracker.SetMessage(fmt.Sprintf("Copying %d files to %s", len(work), diff.DestRoot))

	copier := c.newCopier(sourceFS, destFS)

	var bytesCopied int64

	for _, item := range work {
		err := tracker.Checkpoint(ctx)
		if err != nil {
			report.Cancelled = true
			return report, err
		}

		tracker.SetHint(item.RelativePath)

		src := sourceFS.Resolve(sourceBase, item.RelativePath)
		dst := destFS.Resolve(destBase, item.RelativePath)

		stats, err := copier.CopyFile(src, dst, nil)
		if err != nil {
			c.recordFailure(report, item.RelativePath, src, dst, err, tracker)
		} else {
			report.AddSuccess(item.RelativePath, c.clock.Now())
			bytesCopied += stats.BytesCopied
		}

		tracker.Advance(item.RelativePath)
	}

	tracker.Log(LevelSuccess, "copy finished",
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"bytes", humanize.IBytes(uint64(bytesCopied))) //nolint:gosec // Byte counts are never negative

	return report, nil
}

func (c *Copier) recordFailure(report *records.CopyReport, rel, src, dst string, err error, tracker Tracker) {
	kind := fileops.Classify(err)

	report.AddFailure(records.CopyFailure{
		RelativePath:    rel,
		SourcePath:      src,
		DestinationPath: dst,
		ReasonKind:      kind,
		Detail:          err.Error(),
		FailedAt:        c.clock.Now(),
	})

	level := LevelWarning
	if kind == records.Other {
		level = LevelError
	}

	enriched := c.enricher.Enrich(err, "")
	tracker.Log(level, "copy failed",
		"path", rel,
		"reason", kind,
		"error", err,
		"suggestions", pkgerrors.FormatSuggestions(enriched))
}

// checkRoots requires both roots to be existing directories that are not the
// same directory.
func checkRoots(sourceFS, destFS filesystem.FileSystem, sourceBase, destBase string) error {
	for _, root := range []struct {
		fsys filesystem.FileSystem
		path string
		role string
	}{
		{sourceFS, sourceBase, "source"},
		{destFS, destBase, "destination"},
	} {
		info, err := root.fsys.Stat(root.path)
		if err != nil {
			return fmt.Errorf("%w: %s root %s: %w", ErrInvalidRoot, root.role, root.path, err)
		}

		if !info.IsDir() {
			return fmt.Errorf("%w: %s root %s is not a directory", ErrInvalidRoot, root.role, root.path)
		}
	}

	if sourceFS.Location() != destFS.Location() {
		return nil
	}

	same, err := sourceFS.SameFile(sourceBase, destBase)
	if err == nil && same {
		return fmt.Errorf("%w: source and destination are the same directory", ErrInvalidRoot)
	}

	return nil
}

func workList(diff *records.DiffReport) []records.Discrepancy {
	work := make([]records.Discrepancy, 0, len(diff.Discrepancies))

	for _, item := range diff.Discrepancies {
		if item.Kind == records.MissingInDestination || item.Kind == records.Changed {
			work = append(work, item)
		}
	}

	return work
}
