package store

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"path"
	"path/filepath"
	"slices"
	"time"

	"github.com/joe/dir-sync/internal/records"
)

// manifestDocument accepts the current manifest layout and the two layouts
// earlier versions wrote: "files" with epoch-second mtimes under
// collected_info_ names, and "file_info" with naive local ISO dates under
// info_ names.
type manifestDocument struct {
	records.Manifest

	// collected_info_ layout
	CollectionType  string                `json:"collection_type"`
	BaseDirectory   string                `json:"base_directory"`
	Timestamp       string                `json:"timestamp"`
	Files           map[string]legacyFile `json:"files"`
	InaccessibleOld []legacyInaccessible  `json:"inaccessible_files_details"`

	// info_ layout
	DirectoryPath string                `json:"directory_path"`
	FileInfo      map[string]legacyFile `json:"file_info"`
}

type legacyFile struct {
	Size         uint64   `json:"size"`
	Mtime        *float64 `json:"mtime"`
	ModifiedDate string   `json:"modified_date"`
}

type legacyInaccessible struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// legacyTimeLayout is Python's datetime.isoformat() without an offset.
const legacyTimeLayout = "2006-01-02T15:04:05.999999"

func decodeManifest(data []byte) (*records.Manifest, error) {
	var doc manifestDocument

	err := json.Unmarshal(data, &doc)
	if err != nil {
		return nil, fmt.Errorf("invalid manifest json: %w", err)
	}

	switch {
	case doc.Entries != nil:
		manifest := doc.Manifest
		if manifest.Inaccessible == nil {
			manifest.Inaccessible = []records.InaccessibleEntry{}
		}

		return &manifest, nil
	case doc.Files != nil:
		return convertLegacy(doc.CollectionType, doc.BaseDirectory, doc.Timestamp, doc.Files, doc.InaccessibleOld)
	case doc.FileInfo != nil:
		return convertLegacy(doc.CollectionType, doc.DirectoryPath, doc.Timestamp, doc.FileInfo, nil)
	default:
		return records.NewManifest(doc.Label, doc.RootPath), nil
	}
}

func convertLegacy(
	label, root, timestamp string,
	files map[string]legacyFile,
	inaccessible []legacyInaccessible,
) (*records.Manifest, error) {
	manifest := records.NewManifest(label, root)

	if timestamp != "" {
		createdAt, err := time.ParseInLocation(legacyTimeLayout, timestamp, time.Local)
		if err == nil {
			manifest.CreatedAt = createdAt
		}
	}

	// Keys are normalized, so two spellings of one path must not both appear.
	origins := make(map[string]string, len(files))

	for _, rel := range slices.Sorted(maps.Keys(files)) {
		modified, err := files[rel].modifiedTime()
		if err != nil {
			return nil, fmt.Errorf("entry %s: %w", rel, err)
		}

		key := path.Clean(filepath.ToSlash(rel))
		if first, seen := origins[key]; seen {
			return nil, fmt.Errorf("%w: %q and %q both normalize to %q", ErrCollidingPath, first, rel, key)
		}

		origins[key] = rel
		manifest.Entries[key] = records.FileMeta{Size: files[rel].Size, ModifiedTime: modified}
	}

	for _, item := range inaccessible {
		rel := item.Path
		if r, err := filepath.Rel(root, item.Path); err == nil {
			rel = filepath.ToSlash(r)
		}

		manifest.Inaccessible = append(manifest.Inaccessible, records.InaccessibleEntry{
			RelativePath: rel,
			Reason:       item.Error,
		})
	}

	return manifest, nil
}

func (f legacyFile) modifiedTime() (time.Time, error) {
	if f.Mtime != nil {
		sec, frac := math.Modf(*f.Mtime)
		return time.Unix(int64(sec), int64(math.Round(frac*1e9))).UTC(), nil
	}

	if f.ModifiedDate == "" {
		return time.Time{}, nil
	}

	t, err := time.ParseInLocation(legacyTimeLayout, f.ModifiedDate, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid modified_date %q: %w", f.ModifiedDate, err)
	}

	return t, nil
}
