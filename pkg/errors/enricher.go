package errors

import (
	"errors"
	iofs "io/fs"
	"regexp"
	"strings"
)

// Enricher enriches standard errors with actionable suggestions.
type Enricher interface {
	Enrich(err error, affectedPath string) error
}

// NewEnricher creates a new Enricher with default pattern matcher and suggestion generator.
func NewEnricher() Enricher {
	return &enricher{
		matcher:   NewPatternMatcher(),
		generator: NewSuggestionGenerator(),
	}
}

// unexported variables.
var (
	//nolint:gochecknoglobals // Compiled once, shared by every enricher
	pathExtractionPattern = regexp.MustCompile(`\b\w+\s+((?:sftp://\S+|[./])[^\s:]*):`)
)

// enricher is the concrete implementation of Enricher.
type enricher struct {
	matcher   PatternMatcher
	generator SuggestionGenerator
}

// Enrich attaches a category and suggestions to err. Already-enriched errors
// are returned unchanged and a nil err stays nil. Without an explicit
// affectedPath the path is taken from a wrapped *fs.PathError, then from the
// message text.
func (e *enricher) Enrich(err error, affectedPath string) error {
	if err == nil {
		return nil
	}

	var actionableErr ActionableError
	if errors.As(err, &actionableErr) {
		return actionableErr
	}

	if affectedPath == "" {
		affectedPath = extractPath(err)
	}

	category := e.matcher.Match(err)

	return NewActionableError(err, category, e.generator.Generate(category, affectedPath), affectedPath)
}

// extractPath finds the path an error refers to, or "".
// Recognized message shapes:
//   - "open /path/to/file: permission denied"
//   - "failed to create remote directory ./data: ..."
func extractPath(err error) string {
	var pathErr *iofs.PathError
	if errors.As(err, &pathErr) {
		return pathErr.Path
	}

	if matches := pathExtractionPattern.FindStringSubmatch(err.Error()); len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}

	return ""
}
