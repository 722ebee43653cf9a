package shared

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// FormatBytes formats bytes into human-readable form (e.g. "1.5 MiB").
func FormatBytes(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}

	return humanize.IBytes(uint64(bytes))
}

// FormatCount formats an item count with thousands separators.
func FormatCount(n uint64) string {
	return humanize.Comma(int64(n)) //nolint:gosec // counts stay far below MaxInt64
}

// FormatDuration formats duration into human-readable format (e.g., "2m 30s")
func FormatDuration(duration time.Duration) string {
	duration = duration.Round(time.Second)
	hours := duration / time.Hour
	duration %= time.Hour
	minutes := duration / time.Minute
	duration %= time.Minute
	seconds := duration / time.Second

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	} else if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}

	return fmt.Sprintf("%ds", seconds)
}

// FormatRate formats an item rate, e.g. "12.5 files/s".
func FormatRate(itemsPerSecond float64) string {
	if itemsPerSecond <= 0 {
		return "-"
	}

	return fmt.Sprintf("%.1f files/s", itemsPerSecond)
}

// TruncatePath shortens p to width runes, keeping the tail.
func TruncatePath(p string, width int) string {
	runes := []rune(p)
	if width <= EllipsisLength || len(runes) <= width {
		return p
	}

	return strings.Repeat(".", EllipsisLength) + string(runes[len(runes)-(width-EllipsisLength):])
}
