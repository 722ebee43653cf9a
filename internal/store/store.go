// Package store persists manifests and reports as one immutable JSON file
// per record, plus CSV exports for reports that list problems. A record's id
// is its file name.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/joe/dir-sync/internal/records"
)

// Exported constants.
const (
	ManifestDir = "info_data"
	ResultsDir  = "results"

	ManifestPrefix       = "collected_info_"
	LegacyManifestPrefix = "info_"
	DiffReportPrefix     = "comparison_result_"
	DiffExportPrefix     = "not_copied_comparison_"
	CopyReportPrefix     = "copy_report_"
	CopyExportPrefix     = "copy_failed_"
)

// Exported variables.
var (
	ErrInvalidID     = errors.New("invalid record id")
	ErrNotFound      = errors.New("record not found")
	ErrCollidingPath = errors.New("distinct entries share a relative path")
)

// Entry describes one stored record.
type Entry struct {
	ID         string    `json:"id"`
	Label      string    `json:"label,omitempty"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// Listing is every stored record, newest first within each group.
type Listing struct {
	Manifests   []Entry `json:"manifests"`
	DiffReports []Entry `json:"diffReports"`
	CopyReports []Entry `json:"copyReports"`
	Exports     []Entry `json:"exports"`
}

// Store reads and writes records below a data directory.
type Store struct {
	fs    afero.Fs
	root  string
	newID func() (uuid.UUID, error)
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator replaces the uuid v7 generator.
func WithIDGenerator(gen func() (uuid.UUID, error)) Option {
	return func(s *Store) {
		s.newID = gen
	}
}

// New creates a store rooted at root on fs. Call Init before use.
func New(fs afero.Fs, root string, opts ...Option) *Store {
	s := &Store{
		fs:    fs,
		root:  root,
		newID: uuid.NewV7,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// NewOS creates a store on the local disk.
func NewOS(root string) *Store {
	return New(afero.NewOsFs(), root)
}

// Init creates the record directories.
func (s *Store) Init() error {
	for _, dir := range []string{ManifestDir, ResultsDir} {
		err := s.fs.MkdirAll(filepath.Join(s.root, dir), 0o755)
		if err != nil {
			return fmt.Errorf("failed to create store directory %s: %w", dir, err)
		}
	}

	return nil
}

// List returns every stored record.
func (s *Store) List() (*Listing, error) {
	listing := &Listing{
		Manifests:   []Entry{},
		DiffReports: []Entry{},
		CopyReports: []Entry{},
		Exports:     []Entry{},
	}

	manifests, err := s.readDir(ManifestDir)
	if err != nil {
		return nil, err
	}

	for _, info := range manifests {
		label, ok := manifestLabel(info.Name())
		if ok {
			listing.Manifests = append(listing.Manifests, entryFor(info, label))
		}
	}

	results, err := s.readDir(ResultsDir)
	if err != nil {
		return nil, err
	}

	for _, info := range results {
		name := info.Name()

		switch {
		case hasForm(name, DiffReportPrefix, ".json"):
			listing.DiffReports = append(listing.DiffReports, entryFor(info, ""))
		case hasForm(name, CopyReportPrefix, ".json"):
			listing.CopyReports = append(listing.CopyReports, entryFor(info, ""))
		case hasForm(name, DiffExportPrefix, ".csv"), hasForm(name, CopyExportPrefix, ".csv"):
			listing.Exports = append(listing.Exports, entryFor(info, ""))
		}
	}

	for _, group := range [][]Entry{listing.Manifests, listing.DiffReports, listing.CopyReports, listing.Exports} {
		sortNewestFirst(group)
	}

	return listing, nil
}

// LoadCopyReport reads a copy report by id.
func (s *Store) LoadCopyReport(id string) (*records.CopyReport, error) {
	err := validateID(id, CopyReportPrefix, ".json")
	if err != nil {
		return nil, err
	}

	var report records.CopyReport

	err = s.readJSON(filepath.Join(ResultsDir, id), &report)
	if err != nil {
		return nil, err
	}

	report.ID = id

	return &report, nil
}

// LoadDiffReport reads a diff report by id.
func (s *Store) LoadDiffReport(id string) (*records.DiffReport, error) {
	err := ValidateDiffReportID(id)
	if err != nil {
		return nil, err
	}

	var report records.DiffReport

	err = s.readJSON(filepath.Join(ResultsDir, id), &report)
	if err != nil {
		return nil, err
	}

	report.ID = id

	return &report, nil
}

// LoadManifest reads a manifest by id. Manifests written by earlier versions
// of the tool are converted on load.
func (s *Store) LoadManifest(id string) (*records.Manifest, error) {
	err := ValidateManifestID(id)
	if err != nil {
		return nil, err
	}

	data, err := s.readFile(filepath.Join(ManifestDir, id))
	if err != nil {
		return nil, err
	}

	manifest, err := decodeManifest(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode manifest %s: %w", id, err)
	}

	manifest.ID = id

	return manifest, nil
}

// SaveCopyReport assigns the report an id, writes its failure export when
// there are failures, then writes the report.
func (s *Store) SaveCopyReport(report *records.CopyReport) (string, error) {
	key, err := s.newKey()
	if err != nil {
		return "", err
	}

	report.ID = CopyReportPrefix + key + ".json"

	if len(report.Failures) > 0 {
		var buf bytes.Buffer

		err = records.WriteFailuresCSV(&buf, report)
		if err != nil {
			return "", err
		}

		exportID := CopyExportPrefix + key + ".csv"

		err = s.writeAtomic(filepath.Join(ResultsDir, exportID), buf.Bytes())
		if err != nil {
			return "", err
		}

		report.ExportID = exportID
	}

	err = s.writeJSON(filepath.Join(ResultsDir, report.ID), report)
	if err != nil {
		return "", err
	}

	return report.ID, nil
}

// SaveDiffReport assigns the report an id, writes its discrepancy export when
// there are discrepancies, then writes the report.
func (s *Store) SaveDiffReport(report *records.DiffReport) (string, error) {
	key, err := s.newKey()
	if err != nil {
		return "", err
	}

	report.ID = DiffReportPrefix + key + ".json"

	if len(report.Discrepancies) > 0 {
		var buf bytes.Buffer

		err = records.WriteDiscrepanciesCSV(&buf, report)
		if err != nil {
			return "", err
		}

		exportID := DiffExportPrefix + key + ".csv"

		err = s.writeAtomic(filepath.Join(ResultsDir, exportID), buf.Bytes())
		if err != nil {
			return "", err
		}

		report.ExportID = exportID
	}

	err = s.writeJSON(filepath.Join(ResultsDir, report.ID), report)
	if err != nil {
		return "", err
	}

	return report.ID, nil
}

// SaveManifest assigns the manifest an id derived from its label and writes it.
func (s *Store) SaveManifest(manifest *records.Manifest) (string, error) {
	key, err := s.newKey()
	if err != nil {
		return "", err
	}

	manifest.ID = ManifestPrefix + SanitizeLabel(manifest.Label) + "_" + key + ".json"

	err = s.writeJSON(filepath.Join(ManifestDir, manifest.ID), manifest)
	if err != nil {
		return "", err
	}

	return manifest.ID, nil
}

// SanitizeLabel makes a label safe to embed in a file name.
func SanitizeLabel(label string) string {
	cleaned := strings.Trim(unsafeLabelChars.ReplaceAllString(strings.TrimSpace(label), "-"), "-")
	if cleaned == "" {
		return "unlabeled"
	}

	return cleaned
}

// unexported variables.
var (
	//nolint:gochecknoglobals // compiled once
	unsafeLabelChars = regexp.MustCompile(`[^A-Za-z0-9.-]+`)
)

func (s *Store) newKey() (string, error) {
	id, err := s.newID()
	if err != nil {
		return "", fmt.Errorf("failed to generate record id: %w", err)
	}

	return id.String(), nil
}

func (s *Store) readDir(dir string) ([]os.FileInfo, error) {
	infos, err := afero.ReadDir(s.fs, filepath.Join(s.root, dir))
	if errors.Is(err, iofs.ErrNotExist) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	return infos, nil
}

func (s *Store) readFile(rel string) ([]byte, error) {
	data, err := afero.ReadFile(s.fs, filepath.Join(s.root, rel))
	if errors.Is(err, iofs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, filepath.Base(rel))
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", rel, err)
	}

	return data, nil
}

func (s *Store) readJSON(rel string, into any) error {
	data, err := s.readFile(rel)
	if err != nil {
		return err
	}

	err = json.Unmarshal(data, into)
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", filepath.Base(rel), err)
	}

	return nil
}

// writeAtomic writes data under a hidden temporary name and renames it into
// place, so List never sees a partial record.
func (s *Store) writeAtomic(rel string, data []byte) error {
	target := filepath.Join(s.root, rel)
	tmp := filepath.Join(filepath.Dir(target), "."+filepath.Base(target)+".tmp")

	err := s.fs.MkdirAll(filepath.Dir(target), 0o755)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(rel), err)
	}

	err = afero.WriteFile(s.fs, tmp, data, 0o644)
	if err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", rel, err)
	}

	err = s.fs.Rename(tmp, target)
	if err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("failed to publish %s: %w", rel, err)
	}

	return nil
}

func (s *Store) writeJSON(rel string, record any) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(rel), err)
	}

	return s.writeAtomic(rel, data)
}

func entryFor(info os.FileInfo, label string) Entry {
	return Entry{
		ID:         info.Name(),
		Label:      label,
		Size:       info.Size(),
		ModifiedAt: info.ModTime(),
	}
}

func hasForm(name, prefix, suffix string) bool {
	return len(name) > len(prefix)+len(suffix) &&
		strings.HasPrefix(name, prefix) && strings.HasSuffix(name, suffix)
}

// manifestLabel extracts the label from a manifest file name:
// collected_info_<label>_<uuid>.json or info_<label>_<date>_<time>_<short>.json.
func manifestLabel(name string) (string, bool) {
	switch {
	case hasForm(name, ManifestPrefix, ".json"):
		stem := strings.TrimSuffix(strings.TrimPrefix(name, ManifestPrefix), ".json")

		idx := strings.LastIndex(stem, "_")
		if idx <= 0 {
			return "", false
		}

		return stem[:idx], true
	case hasForm(name, LegacyManifestPrefix, ".json"):
		parts := strings.Split(strings.TrimSuffix(strings.TrimPrefix(name, LegacyManifestPrefix), ".json"), "_")
		if len(parts) < 4 { //nolint:mnd // label, date, time, short id
			return "", false
		}

		return strings.Join(parts[:len(parts)-3], "_"), true
	default:
		return "", false
	}
}

func sortNewestFirst(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].ModifiedAt.Equal(entries[j].ModifiedAt) {
			return entries[i].ModifiedAt.After(entries[j].ModifiedAt)
		}

		return entries[i].ID > entries[j].ID
	})
}

// ValidateDiffReportID checks that id names a diff report without touching
// the filesystem.
func ValidateDiffReportID(id string) error {
	return validateID(id, DiffReportPrefix, ".json")
}

// ValidateManifestID checks that id names a manifest in either naming form.
func ValidateManifestID(id string) error {
	if _, ok := manifestLabel(id); !ok || filepath.Base(id) != id {
		return fmt.Errorf("%w: %q is not a manifest id", ErrInvalidID, id)
	}

	return nil
}

func validateID(id, prefix, suffix string) error {
	if filepath.Base(id) != id || !hasForm(id, prefix, suffix) {
		return fmt.Errorf("%w: %q (want %s*%s)", ErrInvalidID, id, prefix, suffix)
	}

	return nil
}
