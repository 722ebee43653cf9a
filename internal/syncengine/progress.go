package syncengine

import "time"

// Exported constants.
const (
	// ProgressPercentageScale converts 0-1 range to 0-100 range.
	ProgressPercentageScale = 100.0
)

// ProgressMetrics encapsulates progress derived from the counters for display.
type ProgressMetrics struct {
	// Percent is Processed / EstimatedTotal, capped at 100. The total is an
	// estimate for scans, so the cap matters.
	Percent float64 `json:"percent"`

	// ItemsPerSecond is the average rate since the job started.
	ItemsPerSecond float64 `json:"itemsPerSecond"`

	// Elapsed is the time since the job started.
	Elapsed time.Duration `json:"elapsed"`

	// Remaining estimates the time left at the average rate; zero when unknown.
	Remaining time.Duration `json:"remaining"`
}

func computeProgress(processed, total uint64, elapsed time.Duration) ProgressMetrics {
	metrics := ProgressMetrics{Elapsed: elapsed}

	if total > 0 {
		metrics.Percent = min(float64(processed)/float64(total), 1) * ProgressPercentageScale
	}

	if elapsed <= 0 || processed == 0 {
		return metrics
	}

	metrics.ItemsPerSecond = float64(processed) / elapsed.Seconds()

	if total > processed {
		metrics.Remaining = time.Duration(float64(total-processed) / metrics.ItemsPerSecond * float64(time.Second))
	}

	return metrics
}
