package outwriter

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/pulse/internal/contract"
	"github.com/huangsam/pulse/schema"
)

// WriteDeltaResults outputs the commit deltas, dispatching based on the output format configured.
// The merged deltas file itself is written by the deltas run.
func WriteDeltaResults(result schema.DeltaRunResult, cfg *contract.Config, duration time.Duration) error {
	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, result.Deltas)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVResultsForDeltas(w, result.Deltas)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		return errors.New("parquet output is only available for authorship results")
	default:
		if err := writeDeltasTable(os.Stdout, result, cfg, duration); err != nil {
			return fmt.Errorf("error writing table output: %w", err)
		}
	}
	return nil
}

// writeCSVResultsForDeltas writes one row per commit, repositories in name order.
func writeCSVResultsForDeltas(w io.Writer, deltas []schema.CommitDelta) error {
	header := []string{"from_execution_time", "to_execution_time", "repo", "commit", "author", "date", "message"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, d := range deltas {
			for _, repo := range sortedRepos(d) {
				for _, c := range d.Commits[repo] {
					if err := cw.Write([]string{d.FromExecutionTime, d.ToExecutionTime, repo, c.Commit, c.Author, c.Date, c.Message}); err != nil {
						return err
					}
				}
			}
		}
		return nil
	})
}

// writeDeltasTable prints the newest pairs, one row per repository.
func writeDeltasTable(w io.Writer, result schema.DeltaRunResult, cfg *contract.Config, duration time.Duration) error {
	width := GetMaxTablePathWidth(cfg, deltasFixedWidth)

	var rows [][]string
	for i := len(result.Deltas) - 1; i >= 0 && len(rows) < cfg.ResultLimit; i-- {
		d := result.Deltas[i]
		for _, repo := range sortedRepos(d) {
			commits := d.Commits[repo]
			rows = append(rows, []string{d.FromExecutionTime, d.ToExecutionTime, repo, strconv.Itoa(len(commits)), truncateText(summarizeAuthors(commits), width)})
		}
	}
	if err := renderTable(w, []string{"From", "To", "Repo", "Commits", "Authors"}, rows); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(w, "Added %d and skipped %d execution pair(s) in %v. Deltas file: %s\n",
		result.Added, result.Skipped, duration.Round(time.Millisecond), cfg.Deltas.OutputFile)
	return nil
}

func sortedRepos(d schema.CommitDelta) []string {
	repos := make([]string, 0, len(d.Commits))
	for repo := range d.Commits {
		repos = append(repos, repo)
	}
	slices.Sort(repos)
	return repos
}

// summarizeAuthors lists the distinct authors of the commits in first-seen order.
func summarizeAuthors(commits []schema.CommitInfo) string {
	var authors []string
	for _, c := range commits {
		if !slices.Contains(authors, c.Author) {
			authors = append(authors, c.Author)
		}
	}
	if len(authors) > maxAuthorsInSummary {
		return fmt.Sprintf("%s +%d", strings.Join(authors[:maxAuthorsInSummary], ", "), len(authors)-maxAuthorsInSummary)
	}
	return strings.Join(authors, ", ")
}
