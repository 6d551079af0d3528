// Package parquet exports pulse run history and authorship records to Parquet
// files using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/huangsam/pulse/schema"
	"github.com/parquet-go/parquet-go"
)

// AuthorshipRun represents a single authorship run with metadata.
// This struct maps to the pulse_authorship_runs database table.
type AuthorshipRun struct {
	// RunID is the unique identifier for this run
	RunID int64 `parquet:"run_id,snappy"`

	// StartTime is when the run began (stored as TIMESTAMP with nanosecond precision)
	StartTime time.Time `parquet:"start_time,snappy"`

	// EndTime is when the run completed (nullable)
	EndTime *time.Time `parquet:"end_time,optional,snappy"`

	// RunDurationMs is the duration of the run in milliseconds (nullable)
	RunDurationMs *int32 `parquet:"run_duration_ms,optional,snappy"`

	// TotalFiles is the number of source files scanned
	TotalFiles int32 `parquet:"total_files,snappy"`

	// TotalTests is the number of tests attributed
	TotalTests int32 `parquet:"total_tests,snappy"`

	// ConfigParams contains the JSON-encoded configuration parameters (nullable)
	ConfigParams *string `parquet:"config_params,optional,snappy"`
}

// TestRecord is one attributed test. RunID is zero for records that were not
// read from the run history.
type TestRecord struct {
	RunID    int64  `parquet:"run_id,snappy"`
	Project  string `parquet:"project,dict,snappy"`
	Package  string `parquet:"package,dict,snappy"`
	Class    string `parquet:"class,snappy"`
	Test     string `parquet:"test,snappy"`
	TestType string `parquet:"test_type,dict,snappy"`
	Author   string `parquet:"author,dict,snappy"`
	Date     string `parquet:"date,snappy"`
	Month    string `parquet:"month,dict,snappy"`
}

// write encodes rows of T to w. The schema is inferred from the struct tags.
func write[T any](w io.Writer, data []T) error {
	writer := parquet.NewGenericWriter[T](w)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// writeFile creates outputPath and encodes rows of T into it.
func writeFile[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := write(file, data); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// WriteAuthorshipRunsParquet writes runs to a Parquet file.
func WriteAuthorshipRunsParquet(data []AuthorshipRun, outputPath string) error {
	return writeFile(data, outputPath)
}

// WriteTestRecordsParquet writes test records to a Parquet file.
func WriteTestRecordsParquet(data []TestRecord, outputPath string) error {
	return writeFile(data, outputPath)
}

// WriteTestRecords writes test records as a Parquet stream to w.
func WriteTestRecords(w io.Writer, data []TestRecord) error {
	return write(w, data)
}

// ConvertRunRecords converts schema.RunRecord to AuthorshipRun for Parquet export.
func ConvertRunRecords(records []schema.RunRecord) []AuthorshipRun {
	result := make([]AuthorshipRun, len(records))
	for i, record := range records {
		result[i] = AuthorshipRun{
			RunID:         record.RunID,
			StartTime:     record.StartTime,
			EndTime:       record.EndTime,
			RunDurationMs: record.RunDurationMs,
			TotalFiles:    record.TotalFiles,
			TotalTests:    record.TotalTests,
			ConfigParams:  record.ConfigParams,
		}
	}
	return result
}

// ConvertTestRecordRows converts stored history rows for Parquet export.
func ConvertTestRecordRows(rows []schema.TestRecordRow) []TestRecord {
	result := make([]TestRecord, len(rows))
	for i, row := range rows {
		result[i] = convert(row.RunID, row.TestRecord)
	}
	return result
}

// ConvertTestRecords converts the records of the current run.
func ConvertTestRecords(records []schema.TestRecord) []TestRecord {
	result := make([]TestRecord, len(records))
	for i, r := range records {
		result[i] = convert(0, r)
	}
	return result
}

func convert(runID int64, r schema.TestRecord) TestRecord {
	return TestRecord{
		RunID:    runID,
		Project:  r.Project,
		Package:  r.Package,
		Class:    r.Class,
		Test:     r.Test,
		TestType: string(r.TestType),
		Author:   r.Author,
		Date:     r.Timestamp,
		Month:    r.Month(),
	}
}
