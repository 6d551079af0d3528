package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/huangsam/pulse/internal/contract"
	"github.com/huangsam/pulse/schema"
)

// writeCSVResultsForAuthorship writes one row per attributed test.
func writeCSVResultsForAuthorship(w io.Writer, records []schema.TestRecord) error {
	return writeCSVWithHeader(w, authorshipCSVHeader, func(cw *csv.Writer) error {
		for _, r := range records {
			row := []string{r.Project, r.Package, r.Class, r.Test, string(r.TestType), r.Author, r.Timestamp, r.Month()}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

// writeAuthorshipTables prints the author ranking, the monthly buckets and
// the newest tests.
func writeAuthorshipTables(w io.Writer, result schema.AuthorshipResult, recent []schema.TestRecord, summary schema.RunSummary, cfg *contract.Config, duration time.Duration) error {
	total := result.AuthorTestCount.Total()

	// 1. Authors, limited to the configured number of rows
	var authorRows [][]string
	for i, c := range result.AuthorTestCount {
		if i >= cfg.ResultLimit {
			break
		}
		authorRows = append(authorRows, []string{strconv.Itoa(i + 1), c.Author, strconv.Itoa(c.Count), share(c.Count, total)})
	}
	if err := renderTable(w, []string{"Rank", "Author", "Tests", "Share"}, authorRows); err != nil {
		return err
	}

	// 2. Monthly buckets
	monthRows := make([][]string, 0, len(result.MonthlyAggregates))
	for _, m := range result.MonthlyAggregates {
		monthRows = append(monthRows, []string{m.Month, strconv.Itoa(m.IntegrationCount), strconv.Itoa(m.UnitCount), strconv.Itoa(m.Total())})
	}
	if len(monthRows) > 0 {
		if err := renderTable(w, []string{"Month", "Integration", "Unit", "Total"}, monthRows); err != nil {
			return err
		}
	}

	// 3. Newest tests
	if len(recent) > 0 {
		width := GetMaxTablePathWidth(cfg, recentFixedWidth)
		recentRows := make([][]string, 0, len(recent))
		for _, r := range recent {
			recentRows = append(recentRows, []string{r.Timestamp, r.Author, r.Project, contract.TruncatePath(r.Class+"."+r.Test, width)})
		}
		_, _ = fmt.Fprintln(w, "🆕 Recent tests")
		if err := renderTable(w, []string{"Date", "Author", "Project", "Test"}, recentRows); err != nil {
			return err
		}
	}

	_, _ = fmt.Fprintf(w, "Attributed %d tests to %d authors from %d files (%d failed) across %d project(s) in %v with %d workers. Cache backend: %s\n",
		total, len(result.AuthorTestCount), summary.FilesScanned, summary.FilesFailed, summary.Projects,
		duration.Round(time.Millisecond), summary.Workers, cfg.CacheBackend)
	if result.ExecutionTime != "" || result.TestBranch != "" {
		_, _ = fmt.Fprintf(w, "Execution: %s (branch: %s)\n", result.ExecutionTime, result.TestBranch)
	}
	return nil
}
