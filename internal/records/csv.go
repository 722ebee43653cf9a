package records

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// Column headers of the CSV exports.
var (
	DiscrepancyCSVHeader = []string{
		"Relative Path", "Status", "Source Size", "Source Modified", "Destination Size", "Destination Modified",
	}
	FailureCSVHeader = []string{
		"Relative Path", "Source Path", "Destination Path", "Status", "Error Message", "Timestamp",
	}
)

// WriteDiscrepanciesCSV writes one row per discrepancy. Destination columns
// are empty for files missing from the destination.
func WriteDiscrepanciesCSV(w io.Writer, report *DiffReport) error {
	rows := make([][]string, 0, len(report.Discrepancies)+1)
	rows = append(rows, DiscrepancyCSVHeader)

	for _, d := range report.Discrepancies {
		destSize, destModified := "", ""
		if d.DestSize != nil {
			destSize = strconv.FormatUint(*d.DestSize, 10)
		}

		if d.DestModifiedTime != nil {
			destModified = formatCSVTime(*d.DestModifiedTime)
		}

		rows = append(rows, []string{
			d.RelativePath,
			string(d.Kind),
			strconv.FormatUint(d.SourceSize, 10),
			formatCSVTime(d.SourceModifiedTime),
			destSize,
			destModified,
		})
	}

	return writeCSV(w, rows)
}

// WriteFailuresCSV writes one row per failed copy.
func WriteFailuresCSV(w io.Writer, report *CopyReport) error {
	rows := make([][]string, 0, len(report.Failures)+1)
	rows = append(rows, FailureCSVHeader)

	for _, f := range report.Failures {
		rows = append(rows, []string{
			f.RelativePath,
			f.SourcePath,
			f.DestinationPath,
			string(f.ReasonKind),
			f.Detail,
			formatCSVTime(f.FailedAt),
		})
	}

	return writeCSV(w, rows)
}

func formatCSVTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func writeCSV(w io.Writer, rows [][]string) error {
	err := csv.NewWriter(w).WriteAll(rows)
	if err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}

	return nil
}
