// Package fileops provides the single-file copy used by the copy executor:
// it copies bytes between two (possibly different) filesystems, preserving
// mode and modification time, and refuses to copy a file onto itself.
package fileops

import (
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"path/filepath"
	"time"

	"github.com/joe/dir-sync/pkg/filesystem"
)

// Exported constants.
const (
	// BufferSize is the size of the buffer used for file copy operations (32KB)
	BufferSize = 32 * 1024
	// DefaultDirPermissions is the permission mode for created destination directories
	DefaultDirPermissions = 0o755
)

// Exported variables.
var (
	ErrSameFile      = errors.New("source and destination are the same file")
	ErrSourceMissing = errors.New("source file missing")
)

// CopyStats contains timing information about a copy operation
type CopyStats struct {
	BytesCopied int64
	ReadTime    time.Duration
	WriteTime   time.Duration
}

// FileOps copies files from SourceFS to DestFS.
type FileOps struct {
	SourceFS filesystem.FileSystem
	DestFS   filesystem.FileSystem
}

// ProgressCallback is called during file operations to report progress
type ProgressCallback func(bytesTransferred int64, totalBytes int64, currentFile string)

// NewDualFileOps creates a new FileOps instance with separate source and destination filesystems.
func NewDualFileOps(sourceFS, destFS filesystem.FileSystem) *FileOps {
	return &FileOps{
		SourceFS: sourceFS,
		DestFS:   destFS,
	}
}

// NewRealFileOps creates a new FileOps instance copying within the local disk.
func NewRealFileOps() *FileOps {
	fs := filesystem.NewRealFileSystem()
	return NewDualFileOps(fs, fs)
}

// CopyFile copies src to dst, overwriting dst, creating its parent
// directories, and then applying the source's permission bits and
// modification time. A partially written dst is removed on failure.
//
// Errors wrap ErrSameFile when src and dst alias each other and
// ErrSourceMissing when src no longer exists.
//
//nolint:funlen // Linear sequence of copy steps, each with its own error context
func (fo *FileOps) CopyFile(src, dst string, progress ProgressCallback) (*CopyStats, error) {
	stats := &CopyStats{}

	err := fo.checkSameFile(src, dst)
	if err != nil {
		return stats, err
	}

	sourceFile, err := fo.SourceFS.Open(src)
	if err != nil {
		return stats, sourceError(src, err)
	}

	defer func() {
		_ = sourceFile.Close()
	}()

	sourceInfo, err := sourceFile.Stat()
	if err != nil {
		return stats, sourceError(src, err)
	}

	dstDir := filepath.Dir(dst)

	err = fo.DestFS.MkdirAll(dstDir, DefaultDirPermissions)
	if err != nil {
		return stats, fmt.Errorf("failed to create destination directory %s: %w", dstDir, err)
	}

	destFile, err := fo.DestFS.Create(dst)
	if err != nil {
		return stats, fmt.Errorf("failed to create destination file %s: %w", dst, err)
	}

	copyCompleted := false

	defer func() {
		if !copyCompleted {
			_ = destFile.Close()
			_ = fo.DestFS.Remove(dst)
		}
	}()

	written, err := copyLoop(sourceFile, destFile, stats, sourceInfo.Size(), src, progress)
	stats.BytesCopied = written

	if err != nil {
		return stats, fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
	}

	// Close before touching metadata; some servers reset mtime on close.
	err = destFile.Close()
	if err != nil {
		return stats, fmt.Errorf("failed to close destination file %s: %w", dst, err)
	}

	copyCompleted = true

	err = fo.DestFS.Chmod(dst, sourceInfo.Mode().Perm())
	if err != nil {
		return stats, fmt.Errorf("failed to preserve mode for %s: %w", dst, err)
	}

	err = fo.DestFS.Chtimes(dst, sourceInfo.ModTime(), sourceInfo.ModTime())
	if err != nil {
		return stats, fmt.Errorf("failed to preserve modification time for %s: %w", dst, err)
	}

	return stats, nil
}

// checkSameFile refuses a copy whose source and destination alias. Files on
// different filesystems never alias.
func (fo *FileOps) checkSameFile(src, dst string) error {
	if fo.SourceFS.Location() != fo.DestFS.Location() {
		return nil
	}

	same, err := fo.DestFS.SameFile(src, dst)
	if err != nil {
		return sourceError(src, err)
	}

	if same {
		return fmt.Errorf("%w: %s and %s", ErrSameFile, src, dst)
	}

	return nil
}

// copyLoop performs the actual file copy with progress tracking and timing.
func copyLoop(
	sourceFile io.Reader,
	destFile io.Writer,
	stats *CopyStats,
	sourceSize int64,
	srcPath string,
	progress ProgressCallback,
) (int64, error) {
	var written int64

	buf := make([]byte, BufferSize)

	for {
		readStart := time.Now()
		nr, err := sourceFile.Read(buf) //nolint:varnamelen // nr is idiomatic for bytes read
		stats.ReadTime += time.Since(readStart)

		if nr > 0 {
			writeStart := time.Now()
			nw, werr := destFile.Write(buf[:nr]) //nolint:varnamelen // nw is idiomatic for bytes written
			stats.WriteTime += time.Since(writeStart)

			if werr != nil {
				return written, fmt.Errorf("failed to write to destination: %w", werr)
			}

			if nr != nw {
				return written, fmt.Errorf("short write: %w", io.ErrShortWrite)
			}

			written += int64(nw)

			if progress != nil {
				progress(written, sourceSize, srcPath)
			}
		}

		if errors.Is(err, io.EOF) {
			return written, nil
		}

		if err != nil {
			return written, fmt.Errorf("failed to read from source: %w", err)
		}
	}
}

// sourceError wraps a failure to reach the source file, marking the
// not-found case with ErrSourceMissing.
func sourceError(src string, err error) error {
	if errors.Is(err, iofs.ErrNotExist) {
		return fmt.Errorf("%w: %s: %w", ErrSourceMissing, src, err)
	}

	return fmt.Errorf("failed to read source file %s: %w", src, err)
}
