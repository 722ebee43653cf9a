package filesystem

import (
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	krfs "github.com/kr/fs"
	"github.com/pkg/sftp"
)

// SFTPFileSystem implements FileSystem over a single SFTP session.
type SFTPFileSystem struct {
	client   *sftp.Client
	location string
}

// NewSFTPFileSystem creates a new SFTP filesystem using an established connection.
func NewSFTPFileSystem(conn *SFTPConnection) *SFTPFileSystem {
	return &SFTPFileSystem{
		client:   conn.Client(),
		location: conn.Location(),
	}
}

// Chmod changes the mode of a remote file.
func (fs *SFTPFileSystem) Chmod(path string, mode os.FileMode) error {
	err := fs.client.Chmod(path, mode)
	if err != nil {
		return fmt.Errorf("failed to change mode for remote file %s: %w", path, err)
	}

	return nil
}

// Chtimes changes the access and modification times of a remote file.
func (fs *SFTPFileSystem) Chtimes(path string, atime, mtime time.Time) error {
	err := fs.client.Chtimes(path, atime, mtime)
	if err != nil {
		return fmt.Errorf("failed to change times for remote file %s: %w", path, err)
	}

	return nil
}

// CountFiles walks the remote tree once, counting non-directory entries.
func (fs *SFTPFileSystem) CountFiles(root string) (uint64, error) {
	var count uint64

	walker := fs.client.Walk(root)
	for walker.Step() {
		if err := walker.Err(); err != nil {
			if walker.Path() == root {
				return 0, fmt.Errorf("failed to count files in %s: %w", root, err)
			}
			walker.SkipDir()

			continue
		}

		if !walker.Stat().IsDir() {
			count++
		}
	}

	return count, nil
}

// Create creates a remote file for writing.
func (fs *SFTPFileSystem) Create(path string) (File, error) {
	file, err := fs.client.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create remote file %s: %w", path, err)
	}

	return file, nil
}

// Location implements FileSystem.
func (fs *SFTPFileSystem) Location() string {
	return fs.location
}

// MkdirAll creates a remote directory and all necessary parents.
// The server applies its default permissions.
func (fs *SFTPFileSystem) MkdirAll(path string, _ os.FileMode) error {
	err := fs.client.MkdirAll(path)
	if err != nil {
		return fmt.Errorf("failed to create remote directory %s: %w", path, err)
	}

	return nil
}

// Open opens a remote file for reading.
func (fs *SFTPFileSystem) Open(path string) (File, error) {
	file, err := fs.client.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open remote file %s: %w", path, err)
	}

	return file, nil
}

// Rel returns target relative to root.
func (fs *SFTPFileSystem) Rel(root, target string) (string, error) {
	rel, err := filepath.Rel(filepath.FromSlash(root), filepath.FromSlash(target))
	if err != nil {
		return "", fmt.Errorf("failed to get relative path for %s: %w", target, err)
	}

	return filepath.ToSlash(rel), nil
}

// Remove removes a remote file or empty directory.
func (fs *SFTPFileSystem) Remove(path string) error {
	err := fs.client.Remove(path)
	if err != nil {
		return fmt.Errorf("failed to remove remote file %s: %w", path, err)
	}

	return nil
}

// RealPath asks the server for the canonical form of path.
func (fs *SFTPFileSystem) RealPath(path string) (string, error) {
	resolved, err := fs.client.RealPath(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve remote path %s: %w", path, err)
	}

	return resolved, nil
}

// Resolve joins a relative path onto a remote root.
func (fs *SFTPFileSystem) Resolve(root, rel string) string {
	return path.Join(root, rel)
}

// SameFile compares the server-side canonical paths of a and b.
func (fs *SFTPFileSystem) SameFile(a, b string) (bool, error) {
	_, err := fs.client.Stat(b)
	if errors.Is(err, iofs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat remote file %s: %w", b, err)
	}

	realA, err := fs.client.RealPath(a)
	if err != nil {
		return false, fmt.Errorf("failed to resolve remote path %s: %w", a, err)
	}

	realB, err := fs.client.RealPath(b)
	if err != nil {
		return false, fmt.Errorf("failed to resolve remote path %s: %w", b, err)
	}

	return strings.TrimSuffix(realA, "/") == strings.TrimSuffix(realB, "/"), nil
}

// Stat returns file information for a remote file.
func (fs *SFTPFileSystem) Stat(path string) (os.FileInfo, error) {
	info, err := fs.client.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat remote file %s: %w", path, err)
	}

	return info, nil
}

// Walk returns the client's lstat-based walker over the remote tree.
func (fs *SFTPFileSystem) Walk(root string) *krfs.Walker {
	return fs.client.Walk(root)
}
