// Package filesystem provides an abstraction layer for filesystem operations
// so that trees can be scanned and copied on local disk or over SFTP, and so
// that tests can run against an in-memory implementation.
package filesystem

import (
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/charlievieth/fastwalk"
	krfs "github.com/kr/fs"
)

// LocalLocation is the Location reported by RealFileSystem.
const LocalLocation = "local"

// File is an interface that abstracts file operations.
// This allows us to work with both real files and remote/mock files.
type File interface {
	io.Reader
	io.Writer
	io.Closer
	Stat() (os.FileInfo, error)
}

// FileSystem is an interface that abstracts filesystem operations.
type FileSystem interface {
	// Walk returns a lexical, depth-first walker rooted at root. Walkers
	// never follow symbolic links.
	Walk(root string) *krfs.Walker

	// CountFiles returns the number of non-directory entries below root.
	// The count is an estimate used for progress: unreadable subdirectories
	// are skipped, only a failure on root itself is returned.
	CountFiles(root string) (uint64, error)

	// Rel returns target relative to root, always with forward slashes.
	Rel(root, target string) (string, error)

	// Resolve joins a forward-slash relative path onto root.
	Resolve(root, rel string) string

	// RealPath returns path with every symbolic link resolved. Walkers do
	// not follow links, so a root must be resolved before it is walked.
	RealPath(path string) (string, error)

	// SameFile reports whether a and b name the same underlying file.
	// A missing b is not an error.
	SameFile(a, b string) (bool, error)

	// Location identifies the filesystem instance ("local" or an sftp://
	// user@host:port prefix); paths on filesystems with different
	// locations never alias.
	Location() string

	Open(path string) (File, error)
	Create(path string) (File, error)
	MkdirAll(path string, perm os.FileMode) error
	Chtimes(path string, atime, mtime time.Time) error
	Chmod(path string, mode os.FileMode) error
	Remove(path string) error
	Stat(path string) (os.FileInfo, error)
}

// RealFileSystem implements FileSystem using the local disk.
type RealFileSystem struct{}

// NewRealFileSystem creates a new RealFileSystem instance.
func NewRealFileSystem() *RealFileSystem {
	return &RealFileSystem{}
}

// Chmod changes the mode of a file.
func (fs *RealFileSystem) Chmod(path string, mode os.FileMode) error {
	err := os.Chmod(path, mode)
	if err != nil {
		return fmt.Errorf("failed to change mode for %s: %w", path, err)
	}

	return nil
}

// Chtimes changes the access and modification times of a file.
func (fs *RealFileSystem) Chtimes(path string, atime, mtime time.Time) error {
	err := os.Chtimes(path, atime, mtime)
	if err != nil {
		return fmt.Errorf("failed to change times for %s: %w", path, err)
	}

	return nil
}

// CountFiles counts non-directory entries below root using a parallel walk.
// Symbolic links are counted but never followed.
func (fs *RealFileSystem) CountFiles(root string) (uint64, error) {
	var count atomic.Uint64

	conf := fastwalk.Config{Follow: false}

	err := fastwalk.Walk(&conf, root, func(path string, entry iofs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			// Unreadable subtree: the estimate just gets smaller.
			if entry != nil && entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if !entry.IsDir() {
			count.Add(1)
		}

		return nil
	})
	if err != nil {
		return count.Load(), fmt.Errorf("failed to count files in %s: %w", root, err)
	}

	return count.Load(), nil
}

// Create creates a file for writing, truncating it if it exists.
func (fs *RealFileSystem) Create(path string) (File, error) {
	file, err := os.Create(path) // #nosec G304 - file path is controlled by caller
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}

	return file, nil
}

// Location implements FileSystem.
func (fs *RealFileSystem) Location() string {
	return LocalLocation
}

// MkdirAll creates a directory and all necessary parents.
func (fs *RealFileSystem) MkdirAll(path string, perm os.FileMode) error {
	err := os.MkdirAll(path, perm)
	if err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}

	return nil
}

// Open opens a file for reading.
func (fs *RealFileSystem) Open(path string) (File, error) {
	file, err := os.Open(path) // #nosec G304 - file path is controlled by caller
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	return file, nil
}

// Rel returns target relative to root using forward slashes.
func (fs *RealFileSystem) Rel(root, target string) (string, error) {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return "", fmt.Errorf("failed to get relative path for %s: %w", target, err)
	}

	return filepath.ToSlash(rel), nil
}

// Remove removes a file or empty directory.
func (fs *RealFileSystem) Remove(path string) error {
	err := os.Remove(path)
	if err != nil {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}

	return nil
}

// RealPath resolves symbolic links in path.
func (fs *RealFileSystem) RealPath(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	return resolved, nil
}

// Resolve joins a forward-slash relative path onto root.
func (fs *RealFileSystem) Resolve(root, rel string) string {
	return filepath.Join(root, filepath.FromSlash(rel))
}

// SameFile reports whether a and b are the same file on disk (hard links and
// symlinks included).
func (fs *RealFileSystem) SameFile(a, b string) (bool, error) {
	infoB, err := os.Stat(b)
	if errors.Is(err, iofs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", b, err)
	}

	infoA, err := os.Stat(a)
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", a, err)
	}

	return os.SameFile(infoA, infoB), nil
}

// Stat returns file information, following symbolic links.
func (fs *RealFileSystem) Stat(path string) (os.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	return info, nil
}

// Walk returns a kr/fs walker over the local tree. It uses Lstat, so
// symbolic links are reported but not descended into.
func (fs *RealFileSystem) Walk(root string) *krfs.Walker {
	return krfs.Walk(root)
}
