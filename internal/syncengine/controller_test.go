package syncengine_test

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // Dot import is idiomatic for Ginkgo
	. "github.com/onsi/gomega"    //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/dir-sync/internal/records"
	"github.com/joe/dir-sync/internal/store"
	"github.com/joe/dir-sync/internal/syncengine"
	"github.com/joe/dir-sync/pkg/filesystem"
)

var _ = Describe("Controller", func() {
	var (
		fsys        *filesystem.MockFileSystem
		recordStore *store.Store
		recorder    *eventRecorder
		ctrl        *syncengine.Controller
	)

	newController := func(opts ...syncengine.Option) *syncengine.Controller {
		base := []syncengine.Option{
			syncengine.WithOpener(openMock(fsys)),
			syncengine.WithEmitter(recorder),
			syncengine.WithPausePoll(time.Millisecond),
		}

		return syncengine.NewController(recordStore, append(base, opts...)...)
	}

	lastOf := func(name string) syncengine.Event {
		events := recorder.All()
		for i := len(events) - 1; i >= 0; i-- {
			if events[i].EventName() == name {
				return events[i]
			}
		}

		Fail("no " + name + " event")

		return nil
	}

	scan := func(path, label string) string {
		Expect(ctrl.StartScan(path, label)).To(Succeed())
		ctrl.Wait()

		done, ok := lastOf(syncengine.EventScanComplete).(syncengine.ScanComplete)
		Expect(ok).To(BeTrue())
		Expect(done.Status).To(Equal(syncengine.OutcomeSuccess), done.Error)

		return done.ManifestID
	}

	diff := func(sourceID, destID string) syncengine.DiffComplete {
		Expect(ctrl.StartDiff(sourceID, destID)).To(Succeed())
		ctrl.Wait()

		done, ok := lastOf(syncengine.EventDiffComplete).(syncengine.DiffComplete)
		Expect(ok).To(BeTrue())

		return done
	}

	copyReport := func(reportID string) syncengine.CopyComplete {
		Expect(ctrl.StartCopy(reportID)).To(Succeed())
		ctrl.Wait()

		done, ok := lastOf(syncengine.EventCopyComplete).(syncengine.CopyComplete)
		Expect(ok).To(BeTrue())

		return done
	}

	BeforeEach(func() {
		fsys = filesystem.NewMockFileSystem()
		fsys.AddFile("/src/a.txt", []byte("alpha"), baseTime)
		fsys.AddFile("/src/b.txt", []byte("bravo"), baseTime)
		fsys.AddFile("/dst/b.txt", []byte("bravo"), baseTime)

		recordStore = newMemStore()
		recorder = &eventRecorder{}
		ctrl = newController()
	})

	Describe("a scan, diff and copy cycle", func() {
		It("copies only what the destination lacks", func() {
			srcID := scan("/src", "source")
			dstID := scan("/dst", "destination")

			diffed := diff(srcID, dstID)
			Expect(diffed.Status).To(Equal(syncengine.OutcomeSuccess))
			Expect(diffed.Counts).To(Equal(records.DiffCounts{Matched: 1, MissingInDestination: 1}))
			Expect(diffed.ExportID).To(HavePrefix(store.DiffExportPrefix))

			copied := copyReport(diffed.ReportID)
			Expect(copied.Status).To(Equal(syncengine.OutcomeSuccess))
			Expect(copied.Succeeded).To(Equal(uint64(1)))
			Expect(copied.Failed).To(BeZero())
			Expect(copied.ExportID).To(BeEmpty())

			rediffed := diff(srcID, scan("/dst", "destination"))
			Expect(rediffed.Counts).To(Equal(records.DiffCounts{Matched: 2}))
			Expect(rediffed.ExportID).To(BeEmpty())
		})

		It("gives unchanged rescans identical entries and new ids", func() {
			first := scan("/src", "source")
			second := scan("/src", "source")
			Expect(second).NotTo(Equal(first))

			a, err := recordStore.LoadManifest(first)
			Expect(err).NotTo(HaveOccurred())
			b, err := recordStore.LoadManifest(second)
			Expect(err).NotTo(HaveOccurred())
			Expect(b.Entries).To(Equal(a.Entries))
		})

		It("finalizes every job with an idle status and operation_ended", func() {
			scan("/src", "source")

			events := recorder.All()
			Expect(len(events)).To(BeNumerically(">=", 3))

			ended, ok := events[len(events)-1].(syncengine.OperationEnded)
			Expect(ok).To(BeTrue())
			Expect(ended.Stage).To(Equal(syncengine.StageScanning))

			final, ok := events[len(events)-2].(syncengine.StatusUpdate)
			Expect(ok).To(BeTrue())
			Expect(final.Status.Running).To(BeFalse())
			Expect(final.Status.Stage).To(Equal(syncengine.StageIdle))
			Expect(final.Status.Processed).To(BeZero())
			Expect(final.Status.Message).To(Equal("Idle"))
			Expect(final.Status.CurrentPath).To(BeEmpty())
			Expect(final.Status.EstimatedTotal).To(BeZero())
			Expect(final.Status.LastResult).To(Equal("Last scan: success"))
			Expect(final.Records.Manifests).To(HaveLen(1))

			status := ctrl.GetStatus()
			Expect(status.Status.Running).To(BeFalse())
			Expect(status.Status.LastResult).To(Equal("Last scan: success"))
			Expect(status.Records.Manifests).To(HaveLen(1))
		})
	})

	Describe("a relative scan root", func() {
		It("is stored as an absolute path", func() {
			abs, err := filepath.Abs(filepath.Join("testdata", "relative-src"))
			Expect(err).NotTo(HaveOccurred())
			fsys.AddFile(filepath.ToSlash(abs)+"/a.txt", []byte("alpha"), baseTime)

			id := scan(filepath.Join("testdata", "relative-src"), "relative")

			manifest, err := recordStore.LoadManifest(id)
			Expect(err).NotTo(HaveOccurred())
			Expect(filepath.IsAbs(manifest.RootPath)).To(BeTrue())
			Expect(manifest.RootPath).To(Equal(abs))
			Expect(manifest.SortedPaths()).To(Equal([]string{"a.txt"}))
		})
	})

	Describe("stopping a copy after two of five files", func() {
		BeforeEach(func() {
			fsys = filesystem.NewMockFileSystem()
			fsys.AddDir("/dst", baseTime)

			for i := 1; i <= 5; i++ {
				fsys.AddFile(fmt.Sprintf("/src/f%d.txt", i), []byte("data"), baseTime)
			}

			ctrl = newController(syncengine.WithFileCopier(
				func(sourceFS, destFS filesystem.FileSystem) syncengine.FileCopier {
					return &afterEach{
						inner: syncengine.NewFileOpsCopier(sourceFS, destFS),
						n:     2,
						hook:  func() { ctrl.Stop() },
					}
				}))
		})

		It("saves a cancelled report and leaves the rest missing", func() {
			srcID := scan("/src", "source")

			diffed := diff(srcID, scan("/dst", "destination"))
			Expect(diffed.Counts.MissingInDestination).To(Equal(uint64(5)))

			copied := copyReport(diffed.ReportID)
			Expect(copied.Status).To(Equal(syncengine.OutcomeCancelled))
			Expect(copied.Attempted).To(Equal(uint64(2)))
			Expect(copied.Total).To(Equal(uint64(5)))

			saved, err := recordStore.LoadCopyReport(copied.ReportID)
			Expect(err).NotTo(HaveOccurred())
			Expect(saved.Cancelled).To(BeTrue())
			Expect(saved.Validate()).To(Succeed())

			again := diff(srcID, scan("/dst", "destination"))
			Expect(again.Counts.MissingInDestination).To(Equal(uint64(3)))
		})
	})

	Describe("input validation", func() {
		It("rejects bad input synchronously without touching state", func() {
			Expect(ctrl.StartScan("", "label")).To(MatchError(syncengine.ErrInvalidInput))
			Expect(ctrl.StartScan("/src", "  ")).To(MatchError(syncengine.ErrInvalidInput))
			Expect(ctrl.StartScan("sftp://user@host:99999/x", "remote")).To(MatchError(syncengine.ErrInvalidInput))
			Expect(ctrl.StartDiff("nope", "collected_info_a_1.json")).To(MatchError(syncengine.ErrInvalidInput))
			Expect(ctrl.StartDiff("collected_info_a_1.json", "../x.json")).To(MatchError(syncengine.ErrInvalidInput))
			Expect(ctrl.StartCopy("copy_report_1.json")).To(MatchError(syncengine.ErrInvalidInput))

			Expect(recorder.All()).To(BeEmpty())
			Expect(ctrl.GetStatus().Status.Stage).To(Equal(syncengine.StageIdle))
		})
	})

	Describe("with nothing running", func() {
		It("ignores control commands", func() {
			Expect(ctrl.Pause()).To(BeFalse())
			Expect(ctrl.Resume()).To(BeFalse())
			Expect(ctrl.Stop()).To(BeFalse())
			ctrl.Wait()
			Expect(recorder.All()).To(BeEmpty())
		})
	})

	Describe("while a job is running", func() {
		var (
			gate      chan struct{}
			closeGate func()
		)

		BeforeEach(func() {
			gate = make(chan struct{})
			closeGate = sync.OnceFunc(func() { close(gate) })

			gated := func(pathStr string) (filesystem.FileSystem, string, func(), error) {
				<-gate
				return fsys, pathStr, func() {}, nil
			}

			ctrl = newController(syncengine.WithOpener(gated))
			Expect(ctrl.StartScan("/src", "source")).To(Succeed())
		})

		AfterEach(func() {
			closeGate()
			ctrl.Wait()
		})

		It("rejects a second start and keeps its stage", func() {
			err := ctrl.StartDiff("collected_info_a_1.json", "collected_info_b_2.json")
			Expect(err).To(MatchError(syncengine.ErrOperationInProgress))

			status := ctrl.GetStatus().Status
			Expect(status.Running).To(BeTrue())
			Expect(status.Stage).To(Equal(syncengine.StageScanning))
			Expect(status.StartedAt).NotTo(BeNil())
		})

		It("pauses and resumes", func() {
			Expect(ctrl.Pause()).To(BeTrue())
			Expect(ctrl.Pause()).To(BeFalse())
			Expect(ctrl.GetStatus().Status.Paused).To(BeTrue())

			closeGate()
			Consistently(func() uint64 { return ctrl.GetStatus().Status.Processed }, "50ms", "5ms").Should(BeZero())

			Expect(ctrl.Resume()).To(BeTrue())
			Expect(ctrl.Resume()).To(BeFalse())
			ctrl.Wait()

			done, ok := lastOf(syncengine.EventScanComplete).(syncengine.ScanComplete)
			Expect(ok).To(BeTrue())
			Expect(done.Status).To(Equal(syncengine.OutcomeSuccess))
			Expect(done.Entries).To(Equal(2))
		})

		It("stops a paused job without saving anything", func() {
			Expect(ctrl.Pause()).To(BeTrue())
			closeGate()

			Expect(ctrl.Stop()).To(BeTrue())
			Expect(ctrl.Stop()).To(BeFalse())
			Expect(ctrl.Pause()).To(BeFalse())
			ctrl.Wait()

			done, ok := lastOf(syncengine.EventScanComplete).(syncengine.ScanComplete)
			Expect(ok).To(BeTrue())
			Expect(done.Status).To(Equal(syncengine.OutcomeCancelled))
			Expect(done.ManifestID).To(BeEmpty())

			listing, err := recordStore.List()
			Expect(err).NotTo(HaveOccurred())
			Expect(listing.Manifests).To(BeEmpty())
			Expect(ctrl.GetStatus().Status.Stage).To(Equal(syncengine.StageIdle))
		})
	})

	Describe("batch-fatal failures", func() {
		It("reports missing input manifests as an error", func() {
			done := diff("collected_info_a_1.json", "collected_info_b_2.json")
			Expect(done.Status).To(Equal(syncengine.OutcomeError))
			Expect(done.Error).To(ContainSubstring("not found"))
			Expect(done.ReportID).To(BeEmpty())

			logged, ok := lastOf(syncengine.EventLogMessage).(syncengine.LogMessage)
			Expect(ok).To(BeTrue())
			Expect(logged.Level).To(Equal(syncengine.LevelError))

			Expect(ctrl.GetStatus().Records.DiffReports).To(BeEmpty())
		})

		It("reports a scan root that is not a directory", func() {
			Expect(ctrl.StartScan("/src/a.txt", "file")).To(Succeed())
			ctrl.Wait()

			done, ok := lastOf(syncengine.EventScanComplete).(syncengine.ScanComplete)
			Expect(ok).To(BeTrue())
			Expect(done.Status).To(Equal(syncengine.OutcomeError))
			Expect(done.Error).To(ContainSubstring("not a directory"))
		})

		It("writes no copy report when the destination root is unusable", func() {
			reportID, err := recordStore.SaveDiffReport(&records.DiffReport{
				SourceRoot: "/src",
				DestRoot:   "/dst/b.txt",
				Counts:     records.DiffCounts{MissingInDestination: 1},
				Discrepancies: []records.Discrepancy{
					{RelativePath: "a.txt", Kind: records.MissingInDestination},
				},
			})
			Expect(err).NotTo(HaveOccurred())

			done := copyReport(reportID)
			Expect(done.Status).To(Equal(syncengine.OutcomeError))
			Expect(done.ReportID).To(BeEmpty())
			Expect(ctrl.GetStatus().Records.CopyReports).To(BeEmpty())
		})
	})

	Describe("status publication", func() {
		It("only publishes forced updates inside the throttle interval", func() {
			ctrl = newController(
				syncengine.WithClock(clockwork.NewFakeClockAt(baseTime)),
				syncengine.WithPublishInterval(time.Hour))

			scan("/src", "source")

			updates := eventsOf[syncengine.StatusUpdate](recorder)
			Expect(updates).NotTo(BeEmpty())

			for _, update := range updates {
				Expect(update.Records).NotTo(BeNil())
			}
		})

		It("publishes unforced progress once the interval has passed", func() {
			ctrl = newController(syncengine.WithPublishInterval(0))

			scan("/src", "source")

			unforced := 0
			for _, update := range eventsOf[syncengine.StatusUpdate](recorder) {
				if update.Records == nil {
					unforced++
				}
			}

			Expect(unforced).To(BeNumerically(">", 0))
		})
	})
})
