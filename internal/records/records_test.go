//nolint:varnamelen // Test files use idiomatic short variable names (t, etc.)
package records_test

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/dir-sync/internal/records"
)

func TestCopyReport_AddKeepsCountersConsistent(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	report := &records.CopyReport{Total: 3}
	now := time.Now()

	report.AddSuccess("a.txt", now)
	report.AddFailure(records.CopyFailure{RelativePath: "b.txt", ReasonKind: records.SourceMissing, FailedAt: now})

	g.Expect(report.Attempted).Should(Equal(uint64(2)))
	g.Expect(report.Succeeded).Should(Equal(uint64(1)))
	g.Expect(report.Failed).Should(Equal(uint64(1)))
	g.Expect(report.Validate()).Should(Succeed())

	report.Total = 1
	g.Expect(report.Validate()).Should(MatchError(records.ErrInconsistentReport))
}

func TestDiffReport_Validate(t *testing.T) {
	t.Parallel()

	size := uint64(4)
	mtime := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		report  records.DiffReport
		wantErr bool
	}{
		{
			name: "consistent",
			report: records.DiffReport{
				Counts: records.DiffCounts{MissingInDestination: 1, Changed: 1},
				Discrepancies: []records.Discrepancy{
					{RelativePath: "a", Kind: records.MissingInDestination},
					{RelativePath: "b", Kind: records.Changed, DestSize: &size, DestModifiedTime: &mtime},
				},
			},
		},
		{
			name: "missing with destination fields",
			report: records.DiffReport{
				Counts:        records.DiffCounts{MissingInDestination: 1},
				Discrepancies: []records.Discrepancy{{RelativePath: "a", Kind: records.MissingInDestination, DestSize: &size}},
			},
			wantErr: true,
		},
		{
			name: "changed without destination fields",
			report: records.DiffReport{
				Counts:        records.DiffCounts{Changed: 1},
				Discrepancies: []records.Discrepancy{{RelativePath: "a", Kind: records.Changed}},
			},
			wantErr: true,
		},
		{
			name: "counts disagree",
			report: records.DiffReport{
				Counts:        records.DiffCounts{MissingInDestination: 2},
				Discrepancies: []records.Discrepancy{{RelativePath: "a", Kind: records.MissingInDestination}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := NewWithT(t)

			err := tt.report.Validate()
			if tt.wantErr {
				g.Expect(err).Should(MatchError(records.ErrInconsistentReport))
			} else {
				g.Expect(err).ShouldNot(HaveOccurred())
			}
		})
	}
}

func TestFileMeta_Same_IsExact(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	meta := records.FileMeta{Size: 10, ModifiedTime: base}

	g.Expect(meta.Same(records.FileMeta{Size: 10, ModifiedTime: base.In(time.FixedZone("x", 3600))})).Should(BeTrue())
	g.Expect(meta.Same(records.FileMeta{Size: 10, ModifiedTime: base.Add(time.Nanosecond)})).Should(BeFalse())
	g.Expect(meta.Same(records.FileMeta{Size: 11, ModifiedTime: base})).Should(BeFalse())
}

func TestManifest_SortedPaths(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	m := records.NewManifest("source", "/data")
	m.Entries["b/c.txt"] = records.FileMeta{}
	m.Entries["a.txt"] = records.FileMeta{}
	m.Entries["b.txt"] = records.FileMeta{}

	g.Expect(m.SortedPaths()).Should(Equal([]string{"a.txt", "b.txt", "b/c.txt"}))
}

func TestWriteDiscrepanciesCSV(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	size := uint64(7)
	mtime := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	report := &records.DiffReport{
		Discrepancies: []records.Discrepancy{
			{RelativePath: "a.txt", Kind: records.MissingInDestination, SourceSize: 3, SourceModifiedTime: mtime},
			{RelativePath: "b,c.txt", Kind: records.Changed, SourceSize: 5, SourceModifiedTime: mtime,
				DestSize: &size, DestModifiedTime: &mtime},
		},
	}

	var buf bytes.Buffer
	g.Expect(records.WriteDiscrepanciesCSV(&buf, report)).Should(Succeed())

	rows, err := csv.NewReader(&buf).ReadAll()
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(rows).Should(HaveLen(3))
	g.Expect(rows[0]).Should(Equal(records.DiscrepancyCSVHeader))
	g.Expect(rows[1]).Should(Equal([]string{"a.txt", "MissingInDestination", "3", "2024-05-01T10:00:00Z", "", ""}))
	g.Expect(rows[2]).Should(Equal([]string{
		"b,c.txt", "Changed", "5", "2024-05-01T10:00:00Z", "7", "2024-05-01T10:00:00Z",
	}))
}

func TestWriteFailuresCSV(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	report := &records.CopyReport{}
	report.AddFailure(records.CopyFailure{
		RelativePath:    "x.txt",
		SourcePath:      "/src/x.txt",
		DestinationPath: "/dst/x.txt",
		ReasonKind:      records.PermissionDenied,
		Detail:          "permission denied",
		FailedAt:        time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	})

	var buf bytes.Buffer
	g.Expect(records.WriteFailuresCSV(&buf, report)).Should(Succeed())

	rows, err := csv.NewReader(&buf).ReadAll()
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(rows).Should(Equal([][]string{
		records.FailureCSVHeader,
		{"x.txt", "/src/x.txt", "/dst/x.txt", "PermissionDenied", "permission denied", "2024-05-01T10:00:00Z"},
	}))
}
