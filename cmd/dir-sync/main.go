// Package main is the entry point for the dir-sync application.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"golang.org/x/term" //nolint:depguard // Required for TTY detection

	"github.com/joe/dir-sync/internal/config"
	"github.com/joe/dir-sync/internal/gateway"
	"github.com/joe/dir-sync/internal/logging"
	"github.com/joe/dir-sync/internal/store"
	"github.com/joe/dir-sync/internal/syncengine"
	"github.com/joe/dir-sync/internal/tui"
	"github.com/joe/dir-sync/internal/tui/shared"
	"github.com/joe/dir-sync/internal/tui/widgets"
)

// errJobFailed marks a job that ended with an error outcome; its cause has
// already been reported.
var errJobFailed = errors.New("job failed")

func main() {
	cfg, err := config.ParseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	err = run(cfg)
	if err != nil {
		if !errors.Is(err, errJobFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}

		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	interactive := isJob(cfg.Command) && term.IsTerminal(int(os.Stdout.Fd()))

	// The terminal view owns the screen; logs then only go to the log file.
	var console io.Writer = os.Stderr
	if interactive {
		console = nil
	}

	logger, closeLog, err := logging.New(logging.Options{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		File:    cfg.Log.File,
		Console: console,
	})
	if err != nil {
		return err
	}

	defer func() { _ = closeLog() }()

	recordStore := store.NewOS(cfg.DataDir)

	err = recordStore.Init()
	if err != nil {
		return err
	}

	if cfg.Command == config.CommandList {
		return printListing(os.Stdout, recordStore)
	}

	exclude, err := syncengine.NewExcludeFilter(cfg.Exclude)
	if err != nil {
		return err
	}

	opts := []syncengine.Option{
		syncengine.WithLogger(logging.Component(logger, "controller")),
		syncengine.WithExcludes(exclude),
		syncengine.WithPublishInterval(cfg.PublishInterval),
		syncengine.WithPausePoll(cfg.PausePoll),
	}

	if cfg.Command == config.CommandServe {
		return serve(cfg, logger, recordStore, opts)
	}

	return runJob(cfg, logger, recordStore, opts, interactive)
}

func serve(cfg *config.Config, logger *log.Logger, recordStore *store.Store, opts []syncengine.Option) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := gateway.NewHub(logging.Component(logger, "hub"))
	ctrl := syncengine.NewController(recordStore, append(opts, syncengine.WithEmitter(hub))...)
	server := gateway.NewServer(ctrl, hub, logging.Component(logger, "gateway"))

	err := server.ListenAndServe(ctx, cfg.Addr)

	// A job still running is stopped cooperatively so its partial report is
	// saved.
	if ctrl.Stop() {
		logger.Info("stopping running job before exit")
	}

	ctrl.Wait()

	return err
}

// runJob runs one scan, diff or copy in process and reports its result.
func runJob(
	cfg *config.Config,
	logger *log.Logger,
	recordStore *store.Store,
	opts []syncengine.Option,
	interactive bool,
) error {
	var result syncengine.Event

	capture := syncengine.EmitterFunc(func(event syncengine.Event) {
		switch event.(type) {
		case syncengine.ScanComplete, syncengine.DiffComplete, syncengine.CopyComplete:
			result = event
		}
	})

	emitters := syncengine.Emitters{capture}

	var bridge *shared.EventBridge
	if interactive {
		bridge = shared.NewEventBridge()
		defer bridge.Close()

		emitters = append(emitters, bridge)
	}

	ctrl := syncengine.NewController(recordStore, append(opts, syncengine.WithEmitter(emitters))...)

	err := startJob(ctrl, cfg)
	if err != nil {
		return err
	}

	if interactive {
		model, err := tui.Run(ctrl, bridge, "dir-sync "+cfg.Command)
		if err != nil {
			ctrl.Stop()
		} else if model.Detached() {
			fmt.Fprintln(os.Stderr, "Waiting for the job to stop...")
		}

		ctrl.Wait()

		if err != nil {
			return err
		}
	} else {
		waitPlain(ctrl, logger)
		fmt.Fprintln(os.Stdout, widgets.NewSummaryWidget(result)())
	}

	if outcomeOf(result) == syncengine.OutcomeError {
		return errJobFailed
	}

	return nil
}

func startJob(ctrl *syncengine.Controller, cfg *config.Config) error {
	switch cfg.Command {
	case config.CommandScan:
		return ctrl.StartScan(cfg.Args.Scan.Path, cfg.Args.Scan.Label)
	case config.CommandDiff:
		return ctrl.StartDiff(cfg.Args.Diff.Source, cfg.Args.Diff.Dest)
	case config.CommandCopy:
		return ctrl.StartCopy(cfg.Args.Copy.Report)
	default:
		return fmt.Errorf("%w: %s", config.ErrInvalidConfig, cfg.Command)
	}
}

// waitPlain waits for the job, turning the first interrupt into a stop.
func waitPlain(ctrl *syncengine.Controller, logger *log.Logger) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	defer signal.Stop(signals)

	done := make(chan struct{})

	go func() {
		ctrl.Wait()
		close(done)
	}()

	select {
	case <-done:
		return
	case <-signals:
		logger.Warn("interrupt received, stopping")
		ctrl.Stop()
	}

	<-done
}

func outcomeOf(event syncengine.Event) syncengine.Outcome {
	switch event := event.(type) {
	case syncengine.ScanComplete:
		return event.Status
	case syncengine.DiffComplete:
		return event.Status
	case syncengine.CopyComplete:
		return event.Status
	default:
		return syncengine.OutcomeError
	}
}

func isJob(command string) bool {
	return command == config.CommandScan || command == config.CommandDiff || command == config.CommandCopy
}
