package syncengine

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ExcludeFilter drops scan entries whose relative path matches any of a set
// of glob patterns. Matching is case-insensitive and uses doublestar syntax,
// so "**/.git" prunes every .git directory and "**/*.tmp" drops temp files at
// any depth.
type ExcludeFilter struct {
	patterns []string
}

// NewExcludeFilter validates and normalizes patterns. An empty list excludes
// nothing.
func NewExcludeFilter(patterns []string) (*ExcludeFilter, error) {
	normalized := make([]string, 0, len(patterns))

	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}

		pattern = strings.ToLower(pattern)
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("%w: bad exclude pattern %q", ErrInvalidInput, pattern)
		}

		normalized = append(normalized, pattern)
	}

	return &ExcludeFilter{patterns: normalized}, nil
}

// Excludes reports whether relativePath (slash-separated) matches a pattern.
// A nil filter excludes nothing.
func (f *ExcludeFilter) Excludes(relativePath string) bool {
	if f == nil || len(f.patterns) == 0 {
		return false
	}

	normalizedPath := strings.ToLower(relativePath)

	for _, pattern := range f.patterns {
		// Patterns were validated up front, so the error is always nil.
		if matched, _ := doublestar.Match(pattern, normalizedPath); matched {
			return true
		}
	}

	return false
}

// Patterns returns the normalized patterns.
func (f *ExcludeFilter) Patterns() []string {
	if f == nil {
		return nil
	}

	return append([]string(nil), f.patterns...)
}
