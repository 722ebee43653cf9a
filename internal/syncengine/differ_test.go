//nolint:varnamelen // Test files use idiomatic short variable names (t, g, etc.)
package syncengine_test

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/dir-sync/internal/records"
	"github.com/joe/dir-sync/internal/syncengine"
)

func manifestOf(id string, entries map[string]records.FileMeta) *records.Manifest {
	manifest := records.NewManifest(id, "/"+id)
	manifest.ID = id
	manifest.Entries = entries

	return manifest
}

func TestDiffer_ClassifiesEntries(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	source := manifestOf("src", map[string]records.FileMeta{
		"a.txt":     {Size: 1, ModifiedTime: baseTime},
		"b.txt":     {Size: 2, ModifiedTime: baseTime},
		"c/size":    {Size: 3, ModifiedTime: baseTime},
		"c/mtime":   {Size: 4, ModifiedTime: baseTime},
		"c/nanosec": {Size: 5, ModifiedTime: baseTime.Add(time.Nanosecond)},
	})
	dest := manifestOf("dst", map[string]records.FileMeta{
		"b.txt":     {Size: 2, ModifiedTime: baseTime.In(time.FixedZone("x", 3600))},
		"c/size":    {Size: 30, ModifiedTime: baseTime},
		"c/mtime":   {Size: 4, ModifiedTime: laterTime},
		"c/nanosec": {Size: 5, ModifiedTime: baseTime},
		"dest-only": {Size: 9, ModifiedTime: baseTime},
	})

	tracker := &recordingTracker{}

	report, err := syncengine.NewDiffer(clockwork.NewFakeClockAt(laterTime)).
		Diff(context.Background(), source, dest, tracker)
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(report.Validate()).Should(Succeed())

	g.Expect(report.CreatedAt).Should(Equal(laterTime))
	g.Expect(report.SourceManifestID).Should(Equal("src"))
	g.Expect(report.DestManifestID).Should(Equal("dst"))
	g.Expect(report.SourceTotal).Should(Equal(uint64(5)))
	g.Expect(report.DestTotal).Should(Equal(uint64(5)))
	g.Expect(report.Counts).Should(Equal(records.DiffCounts{Matched: 1, MissingInDestination: 1, Changed: 3}))
	g.Expect(report.Cancelled).Should(BeFalse())

	g.Expect(report.Discrepancies).Should(HaveLen(4))
	g.Expect(report.Discrepancies[0].RelativePath).Should(Equal("a.txt"))
	g.Expect(report.Discrepancies[0].Kind).Should(Equal(records.MissingInDestination))
	g.Expect(report.Discrepancies[0].DestSize).Should(BeNil())

	changed := report.Discrepancies[1]
	g.Expect(changed.RelativePath).Should(Equal("c/mtime"))
	g.Expect(changed.Kind).Should(Equal(records.Changed))
	g.Expect(*changed.DestModifiedTime).Should(Equal(laterTime))
	g.Expect(*changed.DestSize).Should(Equal(uint64(4)))

	g.Expect(tracker.total).Should(Equal(uint64(5)))
	g.Expect(tracker.advanced).Should(HaveLen(5))
}

func TestDiffer_SelfDiffIsEmptyAndIdempotent(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	manifest := manifestOf("m", map[string]records.FileMeta{
		"x": {Size: 1, ModifiedTime: baseTime},
		"y": {Size: 2, ModifiedTime: laterTime},
	})

	differ := syncengine.NewDiffer(clockwork.NewFakeClock())

	report, err := differ.Diff(context.Background(), manifest, manifest, syncengine.NopTracker{})
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(report.Discrepancies).Should(BeEmpty())
	g.Expect(report.Counts.Matched).Should(Equal(uint64(2)))

	other := manifestOf("o", map[string]records.FileMeta{"y": {Size: 3, ModifiedTime: laterTime}})

	first, err := differ.Diff(context.Background(), manifest, other, syncengine.NopTracker{})
	g.Expect(err).ShouldNot(HaveOccurred())

	second, err := differ.Diff(context.Background(), manifest, other, syncengine.NopTracker{})
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(second.Discrepancies).Should(Equal(first.Discrepancies))
}

func TestDiffer_StopReturnsPartialCancelledReport(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	source := manifestOf("src", map[string]records.FileMeta{
		"1": {Size: 1}, "2": {Size: 1}, "3": {Size: 1}, "4": {Size: 1},
	})
	dest := manifestOf("dst", map[string]records.FileMeta{})

	report, err := syncengine.NewDiffer(clockwork.NewFakeClock()).
		Diff(context.Background(), source, dest, &recordingTracker{stopAfter: 3})
	g.Expect(err).Should(MatchError(syncengine.ErrCancelled))
	g.Expect(report.Cancelled).Should(BeTrue())
	g.Expect(report.Counts.MissingInDestination).Should(Equal(uint64(3)))
	g.Expect(report.Validate()).Should(Succeed())
}
