package filesystem

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	krfs "github.com/kr/fs"
)

// MockOp names an operation that MockFileSystem can be told to fail.
type MockOp string

// Operations accepted by MockFileSystem.InjectError.
const (
	MockOpCreate  MockOp = "create"
	MockOpOpen    MockOp = "open"
	MockOpReadDir MockOp = "readdir"
	MockOpStat    MockOp = "stat"
	MockOpWrite   MockOp = "write"
)

// Exported variables.
var (
	ErrIsDirectory = errors.New("is a directory")
	ErrNotEmpty    = errors.New("directory not empty")
)

// MockFileSystem is an in-memory filesystem implementation for testing.
// Paths are slash-separated; "/" always exists. It also satisfies
// kr/fs.FileSystem so that its walker behaves exactly like the real ones.
type MockFileSystem struct {
	mu       sync.RWMutex
	files    map[string]*mockFile
	failures map[MockOp]map[string]error
	location string
}

// NewMockFileSystem creates a new in-memory filesystem.
func NewMockFileSystem() *MockFileSystem {
	return NewMockFileSystemAt("mock")
}

// NewMockFileSystemAt creates an in-memory filesystem reporting the given
// location. Two mocks with different locations never alias each other.
func NewMockFileSystemAt(location string) *MockFileSystem {
	return &MockFileSystem{
		files:    make(map[string]*mockFile),
		failures: make(map[MockOp]map[string]error),
		location: location,
	}
}

// AddDir adds a directory (and its parents) to the mock filesystem.
func (fs *MockFileSystem) AddDir(name string, modTime time.Time) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	name = path.Clean(name)
	fs.mkdirAllLocked(path.Dir(name), 0o755)
	fs.files[name] = &mockFile{modTime: modTime, isDir: true, perm: 0o755}
}

// AddFile adds a file to the mock filesystem with the given content and modtime.
func (fs *MockFileSystem) AddFile(name string, content []byte, modTime time.Time) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	name = path.Clean(name)
	fs.mkdirAllLocked(path.Dir(name), 0o755)
	fs.files[name] = &mockFile{
		data:    append([]byte(nil), content...),
		modTime: modTime,
		perm:    0o644,
	}
}

// Chmod changes the mode of a file.
func (fs *MockFileSystem) Chmod(name string, mode os.FileMode) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	file, exists := fs.files[path.Clean(name)]
	if !exists {
		return pathError("chmod", name, os.ErrNotExist)
	}

	file.perm = mode.Perm()

	return nil
}

// Chtimes changes the access and modification times of a file.
func (fs *MockFileSystem) Chtimes(name string, _, mtime time.Time) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	file, exists := fs.files[path.Clean(name)]
	if !exists {
		return pathError("chtimes", name, os.ErrNotExist)
	}

	file.modTime = mtime

	return nil
}

// CountFiles counts non-directory entries below root.
func (fs *MockFileSystem) CountFiles(root string) (uint64, error) {
	var count uint64

	walker := fs.Walk(root)
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

// Create creates a file for writing, truncating an existing file in place.
func (fs *MockFileSystem) Create(name string) (File, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	name = path.Clean(name)
	if err := fs.failureLocked(MockOpCreate, name); err != nil {
		return nil, pathError("create", name, err)
	}

	parent, exists := fs.files[path.Dir(name)]
	if !isRoot(path.Dir(name)) && (!exists || !parent.isDir) {
		return nil, pathError("create", name, os.ErrNotExist)
	}

	file, exists := fs.files[name]
	switch {
	case exists && file.isDir:
		return nil, pathError("create", name, ErrIsDirectory)
	case exists:
		file.data = nil
	default:
		fs.files[name] = &mockFile{modTime: time.Now(), perm: 0o644}
	}

	return &mockFileHandle{
		fs:       fs,
		path:     name,
		writer:   &bytes.Buffer{},
		writeErr: fs.failureLocked(MockOpWrite, name),
	}, nil
}

// Exists checks if a path exists in the mock filesystem.
func (fs *MockFileSystem) Exists(name string) bool {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	_, exists := fs.files[path.Clean(name)]

	return exists
}

// GetFile retrieves a file's content and modtime from the mock filesystem.
func (fs *MockFileSystem) GetFile(name string) ([]byte, time.Time, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	file, exists := fs.files[path.Clean(name)]
	if !exists {
		return nil, time.Time{}, os.ErrNotExist
	}

	if file.isDir {
		return nil, time.Time{}, ErrIsDirectory
	}

	return append([]byte(nil), file.data...), file.modTime, nil
}

// GetMode returns the permission bits of a path.
func (fs *MockFileSystem) GetMode(name string) (os.FileMode, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	file, exists := fs.files[path.Clean(name)]
	if !exists {
		return 0, os.ErrNotExist
	}

	return file.perm, nil
}

// InjectError makes every subsequent op on name fail with err.
// Pass a nil err to clear the failure.
func (fs *MockFileSystem) InjectError(op MockOp, name string, err error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	name = path.Clean(name)
	if err == nil {
		delete(fs.failures[op], name)
		return
	}

	if fs.failures[op] == nil {
		fs.failures[op] = make(map[string]error)
	}

	fs.failures[op][name] = err
}

// Join implements kr/fs.FileSystem.
func (fs *MockFileSystem) Join(elem ...string) string {
	return path.Join(elem...)
}

// Link makes newName another name for the existing file at oldName, like a
// hard link: both share content, mode and modtime.
func (fs *MockFileSystem) Link(oldName, newName string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	file, exists := fs.files[path.Clean(oldName)]
	if !exists {
		return pathError("link", oldName, os.ErrNotExist)
	}

	newName = path.Clean(newName)
	fs.mkdirAllLocked(path.Dir(newName), 0o755)
	fs.files[newName] = file

	return nil
}

// ListFiles returns all paths in the mock filesystem, sorted.
func (fs *MockFileSystem) ListFiles() []string {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	paths := make([]string, 0, len(fs.files))
	for p := range fs.files {
		paths = append(paths, p)
	}

	sort.Strings(paths)

	return paths
}

// Location implements FileSystem.
func (fs *MockFileSystem) Location() string {
	return fs.location
}

// Lstat implements kr/fs.FileSystem. The mock has no symlinks, so it is Stat
// without failure injection.
func (fs *MockFileSystem) Lstat(name string) (os.FileInfo, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	return fs.statLocked(name)
}

// MkdirAll creates a directory and all necessary parents.
func (fs *MockFileSystem) MkdirAll(name string, perm os.FileMode) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	name = path.Clean(name)
	for dir := name; !isRoot(dir); dir = path.Dir(dir) {
		if file, exists := fs.files[dir]; exists && !file.isDir {
			return pathError("mkdir", dir, errNotDir)
		}
	}

	fs.mkdirAllLocked(name, perm)

	return nil
}

// Open opens a file for reading.
func (fs *MockFileSystem) Open(name string) (File, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	name = path.Clean(name)
	if err := fs.failureLocked(MockOpOpen, name); err != nil {
		return nil, pathError("open", name, err)
	}

	file, exists := fs.files[name]
	if !exists {
		return nil, pathError("open", name, os.ErrNotExist)
	}

	if file.isDir {
		return nil, pathError("open", name, ErrIsDirectory)
	}

	return &mockFileHandle{
		fs:     fs,
		path:   name,
		reader: bytes.NewReader(append([]byte(nil), file.data...)),
	}, nil
}

// ReadDir implements kr/fs.FileSystem, returning entries sorted by name.
func (fs *MockFileSystem) ReadDir(dirname string) ([]os.FileInfo, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	dirname = path.Clean(dirname)
	if err := fs.failureLocked(MockOpReadDir, dirname); err != nil {
		return nil, pathError("readdir", dirname, err)
	}

	if !isRoot(dirname) {
		dir, exists := fs.files[dirname]
		if !exists {
			return nil, pathError("readdir", dirname, os.ErrNotExist)
		}
		if !dir.isDir {
			return nil, pathError("readdir", dirname, errNotDir)
		}
	}

	var infos []os.FileInfo

	for p, file := range fs.files {
		if p != dirname && path.Dir(p) == dirname {
			infos = append(infos, file.info(path.Base(p)))
		}
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name() < infos[j].Name() })

	return infos, nil
}

// Rel returns target relative to root.
func (fs *MockFileSystem) Rel(root, target string) (string, error) {
	root = path.Clean(root)
	target = path.Clean(target)

	if root == target {
		return ".", nil
	}

	prefix := strings.TrimSuffix(root, "/") + "/"
	if !strings.HasPrefix(target, prefix) {
		return "", fmt.Errorf("%s is not below %s", target, root) //nolint:err113 // test double
	}

	return strings.TrimPrefix(target, prefix), nil
}

// Remove removes a file or empty directory.
func (fs *MockFileSystem) Remove(name string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	name = path.Clean(name)

	file, exists := fs.files[name]
	if !exists {
		return pathError("remove", name, os.ErrNotExist)
	}

	if file.isDir {
		for p := range fs.files {
			if strings.HasPrefix(p, name+"/") {
				return pathError("remove", name, ErrNotEmpty)
			}
		}
	}

	delete(fs.files, name)

	return nil
}

// RealPath returns the cleaned path. The mock has no symlinks.
func (fs *MockFileSystem) RealPath(name string) (string, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if _, err := fs.statLocked(name); err != nil {
		return "", err
	}

	return path.Clean(name), nil
}

// Resolve joins a relative path onto root.
func (fs *MockFileSystem) Resolve(root, rel string) string {
	return path.Join(root, rel)
}

// SameFile reports whether a and b are the same entry (see Link).
func (fs *MockFileSystem) SameFile(a, b string) (bool, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	fileB, exists := fs.files[path.Clean(b)]
	if !exists {
		return false, nil
	}

	fileA, exists := fs.files[path.Clean(a)]
	if !exists {
		return false, pathError("stat", a, os.ErrNotExist)
	}

	return fileA == fileB, nil
}

// Stat returns file information.
func (fs *MockFileSystem) Stat(name string) (os.FileInfo, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if err := fs.failureLocked(MockOpStat, path.Clean(name)); err != nil {
		return nil, pathError("stat", name, err)
	}

	return fs.statLocked(name)
}

// Walk returns a kr/fs walker driven by this filesystem.
func (fs *MockFileSystem) Walk(root string) *krfs.Walker {
	return krfs.WalkFS(root, fs)
}

// unexported variables.
var (
	errNotDir = errors.New("not a directory")
)

// mockFile represents a file in the mock filesystem.
type mockFile struct {
	data    []byte
	modTime time.Time
	isDir   bool
	perm    os.FileMode
}

func (f *mockFile) info(name string) *mockFileInfo {
	return &mockFileInfo{
		name:    name,
		size:    int64(len(f.data)),
		modTime: f.modTime,
		isDir:   f.isDir,
		perm:    f.perm,
	}
}

// mockFileHandle implements the File interface for reading/writing.
type mockFileHandle struct {
	fs       *MockFileSystem
	path     string
	reader   *bytes.Reader
	writer   *bytes.Buffer
	writeErr error
	closed   bool
}

func (f *mockFileHandle) Close() error {
	if f.closed {
		return os.ErrClosed
	}

	f.closed = true

	if f.writer == nil {
		return nil
	}

	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()

	if file, exists := f.fs.files[f.path]; exists {
		file.data = f.writer.Bytes()
		file.modTime = time.Now()
	}

	return nil
}

func (f *mockFileHandle) Read(p []byte) (int, error) {
	if f.closed {
		return 0, os.ErrClosed
	}

	if f.reader == nil {
		return 0, io.EOF
	}

	return f.reader.Read(p)
}

func (f *mockFileHandle) Stat() (os.FileInfo, error) {
	if f.closed {
		return nil, os.ErrClosed
	}

	return f.fs.Lstat(f.path)
}

func (f *mockFileHandle) Write(p []byte) (int, error) {
	if f.closed {
		return 0, os.ErrClosed
	}

	if f.writeErr != nil {
		return 0, pathError("write", f.path, f.writeErr)
	}

	if f.writer == nil {
		return 0, pathError("write", f.path, iofs.ErrPermission)
	}

	return f.writer.Write(p)
}

// mockFileInfo implements os.FileInfo for mock files.
type mockFileInfo struct {
	name    string
	size    int64
	modTime time.Time
	isDir   bool
	perm    os.FileMode
}

func (fi *mockFileInfo) IsDir() bool        { return fi.isDir }
func (fi *mockFileInfo) ModTime() time.Time { return fi.modTime }
func (fi *mockFileInfo) Name() string       { return fi.name }
func (fi *mockFileInfo) Size() int64        { return fi.size }
func (fi *mockFileInfo) Sys() any           { return nil }

func (fi *mockFileInfo) Mode() os.FileMode {
	if fi.isDir {
		return fi.perm | os.ModeDir
	}

	return fi.perm
}

func (fs *MockFileSystem) failureLocked(op MockOp, name string) error {
	return fs.failures[op][name]
}

// mkdirAllLocked is the internal implementation that assumes the lock is held.
func (fs *MockFileSystem) mkdirAllLocked(name string, perm os.FileMode) {
	if isRoot(name) {
		return
	}

	fs.mkdirAllLocked(path.Dir(name), perm)

	if _, exists := fs.files[name]; !exists {
		fs.files[name] = &mockFile{modTime: time.Now(), isDir: true, perm: perm.Perm()}
	}
}

func (fs *MockFileSystem) statLocked(name string) (os.FileInfo, error) {
	name = path.Clean(name)
	if isRoot(name) {
		return &mockFileInfo{name: name, isDir: true, perm: 0o755}, nil
	}

	file, exists := fs.files[name]
	if !exists {
		return nil, pathError("stat", name, os.ErrNotExist)
	}

	return file.info(path.Base(name)), nil
}

func isRoot(name string) bool {
	return name == "/" || name == "."
}

func pathError(op, name string, err error) error {
	return &iofs.PathError{Op: op, Path: name, Err: err}
}
