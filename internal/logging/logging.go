// Package logging builds the structured logger shared by every component.
//
// Basic usage:
//
//	logger, closeLog, err := logging.New(logging.Options{Level: "info", Console: os.Stderr})
//	if err != nil {
//	    return err
//	}
//	defer closeLog()
//
//	scanLog := logging.Component(logger, "scanner")
//	scanLog.Info("scan started", "path", "/srv/data")
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Exported constants.
const (
	FormatJSON = "json"
	FormatText = "text"

	// LogFilePermissions is the mode of a newly created log file.
	LogFilePermissions = 0o600
)

// Exported variables.
var (
	ErrInvalidFormat = errors.New("invalid log format")
	ErrInvalidLevel  = errors.New("invalid log level")
)

// Options configures New.
type Options struct {
	// Level is debug, info, warn or error.
	Level string
	// Format is text or json.
	Format string
	// File, when set, receives every log line in addition to Console.
	File string
	// Console receives log lines; nil discards them (the terminal client owns
	// the screen).
	Console io.Writer
}

// New creates a logger writing to the console and optional file. The returned
// close func flushes and closes the file and is never nil.
func New(opts Options) (*log.Logger, func() error, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}

	formatter, err := parseFormat(opts.Format)
	if err != nil {
		return nil, nil, err
	}

	closeFn := func() error { return nil }
	writers := make([]io.Writer, 0, 2)

	if opts.Console != nil {
		writers = append(writers, opts.Console)
	}

	if opts.File != "" {
		file, err := os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, LogFilePermissions) //nolint:gosec // #nosec G304 -- path comes from the operator's config
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file %s: %w", opts.File, err)
		}

		writers = append(writers, file)
		closeFn = file.Close
	}

	var out io.Writer = io.Discard
	if len(writers) > 0 {
		out = io.MultiWriter(writers...)
	}

	logger := log.NewWithOptions(out, log.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Formatter:       formatter,
	})

	return logger, closeFn, nil
}

// Component returns a child logger tagged with the component name.
func Component(logger *log.Logger, name string) *log.Logger {
	return logger.With("component", name)
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.New(io.Discard)
}

// ParseLevel parses a level name; empty means info.
func ParseLevel(s string) (log.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return log.InfoLevel, nil
	case "debug":
		return log.DebugLevel, nil
	case "warn", "warning":
		return log.WarnLevel, nil
	case "error":
		return log.ErrorLevel, nil
	default:
		return log.InfoLevel, fmt.Errorf("%w: %s", ErrInvalidLevel, s)
	}
}

func parseFormat(s string) (log.Formatter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", FormatText:
		return log.TextFormatter, nil
	case FormatJSON:
		return log.JSONFormatter, nil
	default:
		return log.TextFormatter, fmt.Errorf("%w: %s", ErrInvalidFormat, s)
	}
}
