package errors

import (
	"errors"
	iofs "io/fs"
	"strings"
	"syscall"
)

// PatternMatcher matches errors to categories.
type PatternMatcher interface {
	Match(err error) ErrorCategory
}

// NewPatternMatcher creates a new PatternMatcher with predefined patterns.
// Categories are tried in order, so a message mentioning both a missing file
// and a lost connection is a connection problem.
func NewPatternMatcher() PatternMatcher {
	return &patternMatcher{
		patterns: []categoryPatterns{
			{CategorySameFile, []string{
				"are the same file",
				"same file",
			}},
			{CategoryConnection, []string{
				"connection lost",
				"connection refused",
				"connection reset",
				"broken pipe",
				"ssh:",
				"use of closed network connection",
			}},
			{CategoryPermission, []string{
				"permission denied",
				"access denied",
				"operation not permitted",
			}},
			{CategoryDiskSpace, []string{
				"no space left on device",
				"disk full",
				"quota exceeded",
			}},
			{CategoryPath, []string{
				"no such file or directory",
				"file does not exist",
				"file not found",
				"not a directory",
			}},
			{CategoryIO, []string{
				"short write",
				"input/output error",
				"i/o error",
				"unexpected eof",
			}},
		},
	}
}

// categoryPatterns pairs a category with the message fragments that select it.
type categoryPatterns struct {
	category ErrorCategory
	patterns []string
}

// patternMatcher is the concrete implementation of PatternMatcher.
type patternMatcher struct {
	patterns []categoryPatterns
}

// Match checks well-known sentinels first and falls back to message patterns.
func (m *patternMatcher) Match(err error) ErrorCategory {
	if err == nil {
		return CategoryUnknown
	}

	switch {
	case errors.Is(err, iofs.ErrPermission):
		return CategoryPermission
	case errors.Is(err, syscall.ENOSPC), errors.Is(err, syscall.EDQUOT):
		return CategoryDiskSpace
	case errors.Is(err, iofs.ErrNotExist):
		return CategoryPath
	}

	lowerMsg := strings.ToLower(err.Error())

	for _, entry := range m.patterns {
		for _, pattern := range entry.patterns {
			if strings.Contains(lowerMsg, pattern) {
				return entry.category
			}
		}
	}

	return CategoryUnknown
}
