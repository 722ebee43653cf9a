package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"github.com/joe/dir-sync/internal/store"
)

type lister interface {
	List() (*store.Listing, error)
}

func printListing(out io.Writer, records lister) error {
	listing, err := records.List()
	if err != nil {
		return err
	}

	sections := []struct {
		title   string
		entries []store.Entry
	}{
		{"Manifests", listing.Manifests},
		{"Diff reports", listing.DiffReports},
		{"Copy reports", listing.CopyReports},
		{"Exports", listing.Exports},
	}

	for i, section := range sections {
		if i > 0 {
			fmt.Fprintln(out)
		}

		fmt.Fprintf(out, "%s (%d)\n", section.title, len(section.entries))

		if len(section.entries) == 0 {
			continue
		}

		fmt.Fprintln(out, renderEntries(section.entries))
	}

	return nil
}

func renderEntries(entries []store.Entry) string {
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, []string{
			entry.ID,
			entry.Label,
			humanize.IBytes(uint64(max(entry.Size, 0))),
			humanize.Time(entry.ModifiedAt),
		})
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "LABEL", "SIZE", "MODIFIED").
		Rows(rows...).
		String()
}
