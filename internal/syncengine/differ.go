package syncengine

import (
	"context"

	"github.com/jonboulle/clockwork"

	"github.com/joe/dir-sync/internal/records"
)

// Differ compares a source manifest against a destination manifest.
type Differ struct {
	clock clockwork.Clock
}

// NewDiffer creates a Differ.
func NewDiffer(clock clockwork.Clock) *Differ {
	return &Differ{clock: clock}
}

// Diff lists every source entry that is missing from, or differs in size or
// modification time from, the destination. Entries only present in the
// destination are ignored. Paths are visited in sorted order, so the
// discrepancy list is sorted too.
//
// On stop the report built so far is returned, marked cancelled, together
// with ErrCancelled.
func (d *Differ) Diff(
	ctx context.Context,
	source, dest *records.Manifest,
	tracker Tracker,
) (*records.DiffReport, error) {
	report := &records.DiffReport{
		CreatedAt:        d.clock.Now(),
		SourceManifestID: source.ID,
		DestManifestID:   dest.ID,
		SourceRoot:       source.RootPath,
		DestRoot:         dest.RootPath,
		SourceTotal:      uint64(len(source.Entries)),
		DestTotal:        uint64(len(dest.Entries)),
		Discrepancies:    []records.Discrepancy{},
	}

	paths := source.SortedPaths()

	tracker.SetTotal(uint64(len(paths)))
	tracker.SetMessage("Comparing " + source.Label + " against " + dest.Label)

	for _, rel := range paths {
		err := tracker.Checkpoint(ctx)
		if err != nil {
			report.Cancelled = true
			return report, err
		}

		compareEntry(report, rel, source.Entries[rel], dest.Entries)
		tracker.Advance(rel)
	}

	tracker.Log(LevelSuccess, "diff finished",
		"matched", report.Counts.Matched,
		"missing", report.Counts.MissingInDestination,
		"changed", report.Counts.Changed)

	return report, nil
}

func compareEntry(report *records.DiffReport, rel string, src records.FileMeta, dest map[string]records.FileMeta) {
	dst, exists := dest[rel]

	switch {
	case !exists:
		report.Counts.MissingInDestination++
		report.Discrepancies = append(report.Discrepancies, records.Discrepancy{
			RelativePath:       rel,
			Kind:               records.MissingInDestination,
			SourceSize:         src.Size,
			SourceModifiedTime: src.ModifiedTime,
		})
	case !src.Same(dst):
		report.Counts.Changed++
		report.Discrepancies = append(report.Discrepancies, records.Discrepancy{
			RelativePath:       rel,
			Kind:               records.Changed,
			SourceSize:         src.Size,
			SourceModifiedTime: src.ModifiedTime,
			DestSize:           &dst.Size,
			DestModifiedTime:   &dst.ModifiedTime,
		})
	default:
		report.Counts.Matched++
	}
}
