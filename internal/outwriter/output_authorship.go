package outwriter

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/huangsam/pulse/internal/contract"
	"github.com/huangsam/pulse/internal/parquet"
	"github.com/huangsam/pulse/schema"
)

// WriteAuthorshipResults outputs the authorship results, dispatching based on the output format configured.
func WriteAuthorshipResults(result schema.AuthorshipResult, recent []schema.TestRecord, summary schema.RunSummary, cfg *contract.Config, duration time.Duration) error {
	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, result)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVResultsForAuthorship(w, result.TestMetadata)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return parquet.WriteTestRecords(w, parquet.ConvertTestRecords(result.TestMetadata))
		}, "Wrote Parquet"); err != nil {
			return fmt.Errorf("error writing Parquet output: %w", err)
		}
	default:
		if err := writeAuthorshipTables(os.Stdout, result, recent, summary, cfg, duration); err != nil {
			return fmt.Errorf("error writing table output: %w", err)
		}
	}
	return nil
}

// authorshipCSVHeader is shared by CSV output and its tests.
var authorshipCSVHeader = []string{"project", "package", "class", "test", "test_type", "author", "timestamp", "month"}
