package errors

import "fmt"

// SuggestionGenerator generates actionable suggestions based on error category.
type SuggestionGenerator interface {
	Generate(category ErrorCategory, affectedPath string) []string
}

// NewSuggestionGenerator creates a new SuggestionGenerator.
func NewSuggestionGenerator() SuggestionGenerator {
	return &suggestionGenerator{}
}

// suggestionGenerator is the concrete implementation of SuggestionGenerator.
type suggestionGenerator struct{}

// Generate returns actionable suggestions based on the error category and affected path.
func (g *suggestionGenerator) Generate(category ErrorCategory, affectedPath string) []string {
	switch category {
	case CategoryConnection:
		return g.generateConnectionSuggestions()
	case CategoryDiskSpace:
		return g.generateDiskSpaceSuggestions(affectedPath)
	case CategoryIO:
		return g.generateIOSuggestions()
	case CategoryPath:
		return g.generatePathSuggestions(affectedPath)
	case CategoryPermission:
		return g.generatePermissionSuggestions(affectedPath)
	case CategorySameFile:
		return g.generateSameFileSuggestions(affectedPath)
	case CategoryUnknown:
		return g.generateUnknownSuggestions(affectedPath)
	default:
		return g.generateUnknownSuggestions(affectedPath)
	}
}

func (g *suggestionGenerator) generateConnectionSuggestions() []string {
	return []string{
		"Check that the SFTP server is reachable and the SSH session is still open",
		"Verify your SSH agent or keys in ~/.ssh are still valid",
		"Re-run the diff and copy once the connection is back; copied files are skipped",
	}
}

func (g *suggestionGenerator) generateDiskSpaceSuggestions(path string) []string {
	suggestions := []string{
		"Free up space on the destination device",
		"Check available space with 'df -h'",
	}

	if path != "" {
		suggestions = append(suggestions, "Verify disk usage for the filesystem containing "+path)
	}

	return suggestions
}

func (g *suggestionGenerator) generateIOSuggestions() []string {
	return []string{
		"Verify the source and destination media are functioning correctly",
		"Try the operation again - this may be a transient I/O error",
		"Check system logs for hardware issues",
	}
}

func (g *suggestionGenerator) generatePathSuggestions(path string) []string {
	if path == "" {
		return []string{
			"The file may have been moved or deleted since the tree was scanned",
			"Re-scan the source and diff again",
		}
	}

	return []string{
		"The file may have been moved or deleted since the tree was scanned: " + path,
		"Re-scan the source and diff again",
	}
}

func (g *suggestionGenerator) generatePermissionSuggestions(path string) []string {
	suggestions := []string{
		"Ensure you have read permission on the source and write permission on the destination",
	}

	if path != "" {
		suggestions = append(suggestions, fmt.Sprintf("Check permissions with 'ls -la %s'", path))
	}

	return append(suggestions, "Try running with appropriate permissions or as a privileged user")
}

func (g *suggestionGenerator) generateSameFileSuggestions(path string) []string {
	suggestions := []string{
		"Source and destination resolve to the same file; check for overlapping roots, symlinks or hard links",
	}

	if path != "" {
		suggestions = append(suggestions, "Inspect the link structure of "+path)
	}

	return suggestions
}

func (g *suggestionGenerator) generateUnknownSuggestions(path string) []string {
	suggestions := []string{
		"Check the error message for more details",
	}

	if path != "" {
		suggestions = append(suggestions, "Verify the path is accessible: "+path)
	}

	return suggestions
}
