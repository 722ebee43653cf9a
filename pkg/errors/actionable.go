// Package errors provides actionable error handling with context-aware suggestions.
//
// Per-file failures met while scanning or copying a tree are enriched with a
// category (permission, missing path, disk space, remote connection, ...) and
// a list of suggestions the operator can act on. Enriched errors still wrap
// the original, so errors.Is keeps working on them.
//
// Basic Usage:
//
//	enricher := errors.NewEnricher()
//	_, err := os.Open("/restricted/file.txt")
//	if err != nil {
//	    enriched := enricher.Enrich(err, "/restricted/file.txt")
//	    log.Warn(enriched, "hint", errors.FormatSuggestions(enriched))
//	}
package errors

import (
	"errors"
	"strings"
)

// Exported constants.
const (
	CategoryConnection ErrorCategory = "connection"
	CategoryDiskSpace  ErrorCategory = "disk_space"
	CategoryIO         ErrorCategory = "io"
	CategoryPath       ErrorCategory = "path"
	CategoryPermission ErrorCategory = "permission"
	CategorySameFile   ErrorCategory = "same_file"
	CategoryUnknown    ErrorCategory = "unknown"
)

// ActionableError represents an error with actionable suggestions for the user.
type ActionableError interface {
	error
	Unwrap() error
	Category() ErrorCategory
	Suggestions() []string
	AffectedPath() string
}

// NewActionableError creates a new ActionableError wrapping cause.
func NewActionableError(
	cause error,
	category ErrorCategory,
	suggestions []string,
	affectedPath string,
) ActionableError {
	return &actionableError{
		cause:        cause,
		category:     category,
		suggestions:  suggestions,
		affectedPath: affectedPath,
	}
}

// ErrorCategory represents the type of error that occurred.
type ErrorCategory string

// CategoryOf returns the category of an enriched error, or CategoryUnknown.
func CategoryOf(err error) ErrorCategory {
	var actionable ActionableError
	if errors.As(err, &actionable) {
		return actionable.Category()
	}

	return CategoryUnknown
}

// FormatSuggestions formats the suggestions from an ActionableError as a
// "; "-separated line suitable for a log field. Returns empty string if the
// error is nil or has no suggestions.
func FormatSuggestions(err error) string {
	var actionable ActionableError
	if err == nil || !errors.As(err, &actionable) {
		return ""
	}

	return strings.Join(actionable.Suggestions(), "; ")
}

// actionableError is the concrete implementation of ActionableError.
type actionableError struct {
	cause        error
	category     ErrorCategory
	suggestions  []string
	affectedPath string
}

// AffectedPath returns the file path affected by this error.
func (e *actionableError) AffectedPath() string {
	return e.affectedPath
}

// Category returns the error category.
func (e *actionableError) Category() ErrorCategory {
	return e.category
}

// Error implements the error interface.
func (e *actionableError) Error() string {
	return e.cause.Error()
}

// Suggestions returns the list of actionable suggestions.
func (e *actionableError) Suggestions() []string {
	return e.suggestions
}

// Unwrap returns the original error.
func (e *actionableError) Unwrap() error {
	return e.cause
}
