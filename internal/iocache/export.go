package iocache

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/huangsam/pulse/internal/contract"
	"github.com/huangsam/pulse/internal/parquet"
)

// ExecuteHistoryExport exports the run history of the global manager to Parquet files.
func ExecuteHistoryExport(outputFile string) error {
	return ExportHistory(os.Stdout, Manager.GetHistoryStore(), outputFile)
}

// ExportHistory writes <outputFile>.runs.parquet and <outputFile>.test_records.parquet
// and reports progress to w.
func ExportHistory(w io.Writer, store contract.HistoryStore, outputFile string) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}
	if store == nil {
		return errors.New("run history is disabled. Set --history-backend to export it")
	}

	status, err := store.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get history status: %w", err)
	}
	if status.TotalRuns == 0 {
		return errors.New("no run history found to export")
	}

	_, _ = fmt.Fprintf(w, "Exporting data from %s backend...\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Total runs: %d\n", status.TotalRuns)
	_, _ = fmt.Fprintf(w, "Total test records: %d\n", status.TotalTests)

	runs, err := store.GetAllRuns()
	if err != nil {
		return fmt.Errorf("failed to retrieve runs: %w", err)
	}
	rows, err := store.GetAllTestRecords()
	if err != nil {
		return fmt.Errorf("failed to retrieve test records: %w", err)
	}

	runsFile := outputFile + ".runs.parquet"
	parquetRuns := parquet.ConvertRunRecords(runs)
	if err := parquet.WriteAuthorshipRunsParquet(parquetRuns, runsFile); err != nil {
		return fmt.Errorf("failed to write runs: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d runs to: %s\n", len(parquetRuns), runsFile)

	recordsFile := outputFile + ".test_records.parquet"
	parquetRecords := parquet.ConvertTestRecordRows(rows)
	if err := parquet.WriteTestRecordsParquet(parquetRecords, recordsFile); err != nil {
		return fmt.Errorf("failed to write test records: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d test records to: %s\n", len(parquetRecords), recordsFile)
	return nil
}
