// Package records defines the persisted artifacts of a sync pipeline: the
// manifest of a scanned tree, the report of a diff between two manifests and
// the report of a copy run.
package records

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// DiscrepancyKind classifies a source entry that needs copying.
type DiscrepancyKind string

// Discrepancy kinds.
const (
	MissingInDestination DiscrepancyKind = "MissingInDestination"
	Changed              DiscrepancyKind = "Changed"
)

// FailureKind classifies why a single file could not be copied.
type FailureKind string

// Failure kinds.
const (
	SourceMissing    FailureKind = "SourceMissing"
	PermissionDenied FailureKind = "PermissionDenied"
	SameFile         FailureKind = "SameFile"
	Other            FailureKind = "Other"
)

// Exported variables.
var (
	ErrInconsistentReport = errors.New("inconsistent report")
)

// CopyFailure is a file that was attempted and not copied.
type CopyFailure struct {
	RelativePath    string      `json:"relativePath"`
	SourcePath      string      `json:"sourcePath"`
	DestinationPath string      `json:"destinationPath"`
	ReasonKind      FailureKind `json:"reasonKind"`
	Detail          string      `json:"detail"`
	FailedAt        time.Time   `json:"failedAt"`
}

// CopyReport is the outcome of copying a diff report's work list.
type CopyReport struct {
	ID                  string        `json:"id"`
	CreatedAt           time.Time     `json:"createdAt"`
	BasedOnDiffReportID string        `json:"basedOnDiffReportId"`
	SourceRoot          string        `json:"sourceRoot"`
	DestRoot            string        `json:"destRoot"`
	Total               uint64        `json:"total"`
	Attempted           uint64        `json:"attempted"`
	Succeeded           uint64        `json:"succeeded"`
	Failed              uint64        `json:"failed"`
	Cancelled           bool          `json:"cancelled"`
	ExportID            string        `json:"exportId,omitempty"`
	Successes           []CopySuccess `json:"successes"`
	Failures            []CopyFailure `json:"failures"`
}

// AddFailure records a failed attempt.
func (r *CopyReport) AddFailure(failure CopyFailure) {
	r.Failures = append(r.Failures, failure)
	r.Failed++
	r.Attempted++
}

// AddSuccess records a completed copy.
func (r *CopyReport) AddSuccess(relativePath string, completedAt time.Time) {
	r.Successes = append(r.Successes, CopySuccess{RelativePath: relativePath, CompletedAt: completedAt})
	r.Succeeded++
	r.Attempted++
}

// Validate checks the attempted == successes + failures <= total invariant.
func (r *CopyReport) Validate() error {
	if r.Succeeded != uint64(len(r.Successes)) || r.Failed != uint64(len(r.Failures)) {
		return fmt.Errorf("%w: counters disagree with entries", ErrInconsistentReport)
	}

	if r.Attempted != r.Succeeded+r.Failed {
		return fmt.Errorf("%w: attempted %d != %d succeeded + %d failed",
			ErrInconsistentReport, r.Attempted, r.Succeeded, r.Failed)
	}

	if r.Attempted > r.Total {
		return fmt.Errorf("%w: attempted %d exceeds total %d", ErrInconsistentReport, r.Attempted, r.Total)
	}

	return nil
}

// CopySuccess is a file that was copied.
type CopySuccess struct {
	RelativePath string    `json:"relativePath"`
	CompletedAt  time.Time `json:"completedAt"`
}

// DiffCounts tallies the outcome of comparing each source entry.
type DiffCounts struct {
	Matched              uint64 `json:"matched"`
	MissingInDestination uint64 `json:"missingInDestination"`
	Changed              uint64 `json:"changed"`
}

// DiffReport lists the source entries that are missing from or differ in the
// destination manifest.
type DiffReport struct {
	ID               string        `json:"id"`
	CreatedAt        time.Time     `json:"createdAt"`
	SourceManifestID string        `json:"sourceManifestId"`
	DestManifestID   string        `json:"destManifestId"`
	SourceRoot       string        `json:"sourceRoot"`
	DestRoot         string        `json:"destRoot"`
	SourceTotal      uint64        `json:"sourceTotal"`
	DestTotal        uint64        `json:"destTotal"`
	Counts           DiffCounts    `json:"counts"`
	Discrepancies    []Discrepancy `json:"discrepancies"`
	Cancelled        bool          `json:"cancelled"`
	ExportID         string        `json:"exportId,omitempty"`
}

// Validate checks that every discrepancy's optional fields match its kind and
// that the counts agree with the list.
func (r *DiffReport) Validate() error {
	var missing, changed uint64

	for _, d := range r.Discrepancies {
		switch d.Kind {
		case MissingInDestination:
			if d.DestSize != nil || d.DestModifiedTime != nil {
				return fmt.Errorf("%w: %s is missing but carries destination metadata", ErrInconsistentReport, d.RelativePath)
			}
			missing++
		case Changed:
			if d.DestSize == nil || d.DestModifiedTime == nil {
				return fmt.Errorf("%w: %s is changed but lacks destination metadata", ErrInconsistentReport, d.RelativePath)
			}
			changed++
		default:
			return fmt.Errorf("%w: %s has unknown kind %q", ErrInconsistentReport, d.RelativePath, d.Kind)
		}
	}

	if missing != r.Counts.MissingInDestination || changed != r.Counts.Changed {
		return fmt.Errorf("%w: counts disagree with discrepancies", ErrInconsistentReport)
	}

	return nil
}

// Discrepancy is one source entry that needs copying.
type Discrepancy struct {
	RelativePath       string          `json:"relativePath"`
	Kind               DiscrepancyKind `json:"kind"`
	SourceSize         uint64          `json:"sourceSize"`
	SourceModifiedTime time.Time       `json:"sourceModifiedTime"`
	// Present iff Kind == Changed.
	DestSize         *uint64    `json:"destSize,omitempty"`
	DestModifiedTime *time.Time `json:"destModifiedTime,omitempty"`
}

// FileMeta is the metadata recorded for each regular file.
type FileMeta struct {
	Size         uint64    `json:"size"`
	ModifiedTime time.Time `json:"modifiedTime"`
}

// Same reports whether two entries are considered identical. Modification
// times must be the same instant; there is no tolerance.
func (m FileMeta) Same(other FileMeta) bool {
	return m.Size == other.Size && m.ModifiedTime.Equal(other.ModifiedTime)
}

// InaccessibleEntry is a path the scanner saw but could not stat.
type InaccessibleEntry struct {
	RelativePath string `json:"relativePath"`
	Reason       string `json:"reason"`
}

// Manifest is a point-in-time snapshot of a tree.
type Manifest struct {
	ID           string              `json:"id"`
	Label        string              `json:"label"`
	RootPath     string              `json:"rootPath"`
	CreatedAt    time.Time           `json:"createdAt"`
	Entries      map[string]FileMeta `json:"entries"`
	Inaccessible []InaccessibleEntry `json:"inaccessible"`
}

// NewManifest returns an empty manifest for root.
func NewManifest(label, rootPath string) *Manifest {
	return &Manifest{
		Label:        label,
		RootPath:     rootPath,
		Entries:      make(map[string]FileMeta),
		Inaccessible: []InaccessibleEntry{},
	}
}

// SortedPaths returns the entry keys in lexical order.
func (m *Manifest) SortedPaths() []string {
	paths := make([]string, 0, len(m.Entries))
	for p := range m.Entries {
		paths = append(paths, p)
	}

	sort.Strings(paths)

	return paths
}
