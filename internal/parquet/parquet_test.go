package parquet

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/pulse/schema"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRuns() []AuthorshipRun {
	start := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Second)
	duration := int32(90000)
	params := `{"projects":["backend"],"workers":4}`
	return []AuthorshipRun{
		{RunID: 1, StartTime: start, EndTime: &end, RunDurationMs: &duration, TotalFiles: 120, TotalTests: 340, ConfigParams: &params},
		{RunID: 2, StartTime: start.Add(time.Hour)}, // still running
	}
}

func sampleRecords() []schema.TestRecord {
	return []schema.TestRecord{
		{Project: "backend", Package: "com/acme", Class: "FooTest", Test: "testAdd", TestType: schema.IntegrationTest, Author: "Alice Smith", Timestamp: "2024-03-05"},
		{Project: "mobile", Package: "com/acme/app", Class: "BarTest", Test: "adds numbers", TestType: schema.UnitTest, Author: "Bob Jones", Timestamp: "2024-04-01"},
	}
}

func readAll[T any](t *testing.T, r io.ReaderAt, size int64) []T {
	t.Helper()
	file, err := parquet.OpenFile(r, size)
	require.NoError(t, err)
	reader := parquet.NewGenericReader[T](file)
	defer func() { _ = reader.Close() }()

	rows := make([]T, reader.NumRows())
	n, err := reader.Read(rows)
	if err != nil && err != io.EOF {
		require.NoError(t, err)
	}
	return rows[:n]
}

func TestAuthorshipRunStructTags(t *testing.T) {
	s := parquet.SchemaOf(new(AuthorshipRun))
	for _, col := range []string{"run_id", "start_time", "end_time", "run_duration_ms", "total_files", "total_tests", "config_params"} {
		_, ok := s.Lookup(col)
		assert.True(t, ok, "column %s should exist", col)
	}
}

func TestWriteAuthorshipRunsParquet(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "runs.parquet")
	data := sampleRuns()
	require.NoError(t, WriteAuthorshipRunsParquet(data, outputPath))

	f, err := os.Open(outputPath)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	info, err := f.Stat()
	require.NoError(t, err)

	got := readAll[AuthorshipRun](t, f, info.Size())
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].RunID)
	assert.Equal(t, int32(340), got[0].TotalTests)
	require.NotNil(t, got[0].EndTime)
	assert.WithinDuration(t, *data[0].EndTime, *got[0].EndTime, time.Millisecond)
	require.NotNil(t, got[0].ConfigParams)
	assert.Equal(t, *data[0].ConfigParams, *got[0].ConfigParams)
	assert.Nil(t, got[1].EndTime)
	assert.Nil(t, got[1].RunDurationMs)
	assert.Nil(t, got[1].ConfigParams)
}

func TestWriteTestRecords(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTestRecords(&buf, ConvertTestRecords(sampleRecords())))

	got := readAll[TestRecord](t, bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.Len(t, got, 2)
	assert.Equal(t, TestRecord{
		Project:  "backend",
		Package:  "com/acme",
		Class:    "FooTest",
		Test:     "testAdd",
		TestType: "integration",
		Author:   "Alice Smith",
		Date:     "2024-03-05",
		Month:    "2024-03",
	}, got[0])
	assert.Equal(t, "2024-04", got[1].Month)
}

func TestConvertTestRecordRows(t *testing.T) {
	rows := []schema.TestRecordRow{{RunID: 7, TestRecord: sampleRecords()[1]}}
	got := ConvertTestRecordRows(rows)
	require.Len(t, got, 1)
	assert.Equal(t, int64(7), got[0].RunID)
	assert.Equal(t, "unit", got[0].TestType)
}

func TestConvertRunRecords(t *testing.T) {
	end := time.Now()
	got := ConvertRunRecords([]schema.RunRecord{{RunID: 3, EndTime: &end, TotalFiles: 9, TotalTests: 4}})
	require.Len(t, got, 1)
	assert.Equal(t, int64(3), got[0].RunID)
	assert.Equal(t, &end, got[0].EndTime)
	assert.Equal(t, int32(9), got[0].TotalFiles)
}

func TestWriteParquet_EmptyAndInvalidPath(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "empty.parquet")
	require.NoError(t, WriteTestRecordsParquet([]TestRecord{}, outputPath))
	info, err := os.Stat(outputPath)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0), "the schema is written even without rows")

	assert.Error(t, WriteAuthorshipRunsParquet(sampleRuns(), "/nonexistent/directory/runs.parquet"))
}
