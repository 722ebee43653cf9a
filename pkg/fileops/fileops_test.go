//nolint:varnamelen // Test files use idiomatic short variable names (t, etc.)
package fileops_test

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/dir-sync/internal/records"
	"github.com/joe/dir-sync/pkg/fileops"
	"github.com/joe/dir-sync/pkg/filesystem"
)

func TestCopyFile_AcrossFilesystemsPreservesMetadata(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	src := filesystem.NewMockFileSystemAt("src")
	dst := filesystem.NewMockFileSystemAt("dst")
	mtime := time.Date(2023, 6, 1, 8, 30, 0, 123, time.UTC)
	src.AddFile("/data/sub/a.txt", []byte("hello world"), mtime)
	g.Expect(src.Chmod("/data/sub/a.txt", 0o640)).Should(Succeed())

	var progressed int64

	stats, err := fileops.NewDualFileOps(src, dst).CopyFile("/data/sub/a.txt", "/backup/sub/a.txt",
		func(transferred, _ int64, _ string) { progressed = transferred })
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(stats.BytesCopied).Should(Equal(int64(11)))
	g.Expect(progressed).Should(Equal(int64(11)))

	data, gotTime, err := dst.GetFile("/backup/sub/a.txt")
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(string(data)).Should(Equal("hello world"))
	g.Expect(gotTime).Should(Equal(mtime))

	mode, err := dst.GetMode("/backup/sub/a.txt")
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(mode).Should(Equal(os.FileMode(0o640)))
}

func TestCopyFile_OverwritesExisting(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	fs := filesystem.NewMockFileSystem()
	fs.AddFile("/src/a.txt", []byte("new"), time.Now())
	fs.AddFile("/dst/a.txt", []byte("old contents"), time.Now())

	_, err := fileops.NewDualFileOps(fs, fs).CopyFile("/src/a.txt", "/dst/a.txt", nil)
	g.Expect(err).ShouldNot(HaveOccurred())

	data, _, err := fs.GetFile("/dst/a.txt")
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(string(data)).Should(Equal("new"))
}

func TestCopyFile_SameFileIsRefused(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	fs := filesystem.NewMockFileSystem()
	fs.AddFile("/src/a.txt", []byte("x"), time.Now())
	g.Expect(fs.Link("/src/a.txt", "/dst/a.txt")).Should(Succeed())

	_, err := fileops.NewDualFileOps(fs, fs).CopyFile("/src/a.txt", "/dst/a.txt", nil)
	g.Expect(err).Should(MatchError(fileops.ErrSameFile))
	g.Expect(fileops.Classify(err)).Should(Equal(records.SameFile))

	data, _, err := fs.GetFile("/src/a.txt")
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(string(data)).Should(Equal("x"))
}

func TestCopyFile_SameFileOnDisk(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	dst := filepath.Join(dir, "b.txt")
	g.Expect(os.WriteFile(src, []byte("x"), 0o600)).Should(Succeed())
	g.Expect(os.Symlink(src, dst)).Should(Succeed())

	_, err := fileops.NewRealFileOps().CopyFile(src, dst, nil)
	g.Expect(err).Should(MatchError(fileops.ErrSameFile))
}

func TestCopyFile_SourceMissing(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	src := filesystem.NewMockFileSystemAt("src")
	dst := filesystem.NewMockFileSystemAt("dst")

	_, err := fileops.NewDualFileOps(src, dst).CopyFile("/src/gone.txt", "/dst/gone.txt", nil)
	g.Expect(err).Should(MatchError(fileops.ErrSourceMissing))
	g.Expect(fileops.Classify(err)).Should(Equal(records.SourceMissing))
	g.Expect(dst.Exists("/dst/gone.txt")).Should(BeFalse())
}

func TestCopyFile_PermissionDeniedOnCreate(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	src := filesystem.NewMockFileSystemAt("src")
	dst := filesystem.NewMockFileSystemAt("dst")
	src.AddFile("/src/a.txt", []byte("x"), time.Now())
	dst.InjectError(filesystem.MockOpCreate, "/dst/a.txt", os.ErrPermission)

	_, err := fileops.NewDualFileOps(src, dst).CopyFile("/src/a.txt", "/dst/a.txt", nil)
	g.Expect(err).Should(HaveOccurred())
	g.Expect(fileops.Classify(err)).Should(Equal(records.PermissionDenied))
}

func TestCopyFile_FailedWriteRemovesPartialFile(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	src := filesystem.NewMockFileSystemAt("src")
	dst := filesystem.NewMockFileSystemAt("dst")
	src.AddFile("/src/a.txt", []byte("x"), time.Now())
	dst.InjectError(filesystem.MockOpWrite, "/dst/a.txt", errors.New("input/output error")) //nolint:err113 // test error

	_, err := fileops.NewDualFileOps(src, dst).CopyFile("/src/a.txt", "/dst/a.txt", nil)
	g.Expect(err).Should(HaveOccurred())
	g.Expect(fileops.Classify(err)).Should(Equal(records.Other))
	g.Expect(dst.Exists("/dst/a.txt")).Should(BeFalse())
}

func TestClassify_FallsBackToMessage(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	err := fmt.Errorf("sftp: %w", errors.New("permission denied")) //nolint:err113 // test error
	g.Expect(fileops.Classify(err)).Should(Equal(records.PermissionDenied))
	g.Expect(fileops.Classify(errors.New("boom"))).Should(Equal(records.Other)) //nolint:err113 // test error
}
