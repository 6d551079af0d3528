package iocache

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/pulse/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemoryHistoryStore(t *testing.T) *HistoryStoreImpl {
	t.Helper()
	store, err := NewHistoryStore(schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func historyRecords() []schema.TestRecord {
	return []schema.TestRecord{
		{Project: "backend", Package: "com/acme", Class: "FooTest", Test: "testAdd", TestType: schema.IntegrationTest, Author: "Alice Smith", Timestamp: "2024-03-05"},
		{Project: "backend", Package: "com/acme", Class: "FooTest", Test: "testSub", TestType: schema.IntegrationTest, Author: "Bob Jones", Timestamp: "2024-04-01"},
	}
}

func TestHistoryStore_RunLifecycle(t *testing.T) {
	store := newMemoryHistoryStore(t)
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	runID, err := store.BeginRun(start, map[string]any{"workers": 4})
	require.NoError(t, err)
	assert.Equal(t, int64(1), runID)

	require.NoError(t, store.RecordTests(runID, historyRecords()))
	require.NoError(t, store.RecordTests(runID, nil))
	require.NoError(t, store.EndRun(runID, start.Add(1500*time.Millisecond), 12, 2))

	runs, err := store.GetAllRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	run := runs[0]
	assert.Equal(t, runID, run.RunID)
	assert.True(t, start.Equal(run.StartTime))
	require.NotNil(t, run.EndTime)
	assert.True(t, start.Add(1500*time.Millisecond).Equal(*run.EndTime))
	require.NotNil(t, run.RunDurationMs)
	assert.Equal(t, int32(1500), *run.RunDurationMs)
	assert.Equal(t, int32(12), run.TotalFiles)
	assert.Equal(t, int32(2), run.TotalTests)
	require.NotNil(t, run.ConfigParams)

	var params map[string]any
	require.NoError(t, json.Unmarshal([]byte(*run.ConfigParams), &params))
	assert.InDelta(t, 4, params["workers"], 0)

	rows, err := store.GetAllTestRecords()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, runID, rows[0].RunID)
	assert.Equal(t, historyRecords()[0], rows[0].TestRecord)
	assert.Equal(t, "Bob Jones", rows[1].Author)
}

func TestHistoryStore_UnfinishedRun(t *testing.T) {
	store := newMemoryHistoryStore(t)

	_, err := store.BeginRun(time.Now(), nil)
	require.NoError(t, err)

	runs, err := store.GetAllRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Nil(t, runs[0].EndTime)
	assert.Nil(t, runs[0].RunDurationMs)

	assert.Error(t, store.EndRun(99, time.Now(), 0, 0), "unknown run")
}

func TestHistoryStore_GetStatus(t *testing.T) {
	store := newMemoryHistoryStore(t)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.Zero(t, status.TotalRuns)
	assert.Equal(t, map[string]int64{runsTable: 0, testRecordsTable: 0}, status.TableSizes)

	first := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	for i := range 2 {
		runID, err := store.BeginRun(first.Add(time.Duration(i)*time.Hour), nil)
		require.NoError(t, err)
		require.NoError(t, store.RecordTests(runID, historyRecords()))
	}

	status, err = store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, 2, status.TotalRuns)
	assert.Equal(t, int64(2), status.LastRunID)
	assert.True(t, first.Add(time.Hour).Equal(status.LastRunTime))
	assert.True(t, first.Equal(status.OldestRunTime))
	assert.Equal(t, 4, status.TotalTests)
}

func TestMigrateHistory_NoneBackend(t *testing.T) {
	_, err := MigrateHistory(schema.NoneBackend, "", -1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migrations are not supported")
}

func TestMigrateHistory_SQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")

	result, err := MigrateHistory(schema.SQLiteBackend, dbPath, -1)
	require.NoError(t, err)
	assert.True(t, result.Changed)
	assert.Equal(t, uint(2), result.ToVersion)

	// Already at the latest version
	result, err = MigrateHistory(schema.SQLiteBackend, dbPath, -1)
	require.NoError(t, err)
	assert.False(t, result.Changed)

	result, err = MigrateHistory(schema.SQLiteBackend, dbPath, 1)
	require.NoError(t, err)
	assert.Equal(t, uint(2), result.FromVersion)
	assert.Equal(t, uint(1), result.ToVersion)

	// The migrated schema is usable by the store
	store, err := NewHistoryStore(schema.SQLiteBackend, dbPath)
	require.NoError(t, err)
	_, err = store.BeginRun(time.Now(), nil)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	result, err = MigrateHistory(schema.SQLiteBackend, dbPath, 0)
	require.NoError(t, err)
	assert.True(t, result.Changed)

	require.NoError(t, ClearHistory(schema.SQLiteBackend, dbPath, ""))
	_, err = os.Stat(dbPath)
	assert.True(t, os.IsNotExist(err))
}

func TestExportHistory(t *testing.T) {
	store := newMemoryHistoryStore(t)
	runID, err := store.BeginRun(time.Now(), map[string]any{"projects": []string{"backend"}})
	require.NoError(t, err)
	require.NoError(t, store.RecordTests(runID, historyRecords()))
	require.NoError(t, store.EndRun(runID, time.Now(), 3, 2))

	out := filepath.Join(t.TempDir(), "pulse")
	var buf bytes.Buffer
	require.NoError(t, ExportHistory(&buf, store, out))

	for _, suffix := range []string{".runs.parquet", ".test_records.parquet"} {
		info, err := os.Stat(out + suffix)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	}
	assert.Contains(t, buf.String(), "Exported 1 runs")
	assert.Contains(t, buf.String(), "Exported 2 test records")
}

func TestExportHistory_Errors(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorContains(t, ExportHistory(&buf, newMemoryHistoryStore(t), ""), "--output-file is required")
	assert.ErrorContains(t, ExportHistory(&buf, nil, "out"), "run history is disabled")
	assert.ErrorContains(t, ExportHistory(&buf, newMemoryHistoryStore(t), "out"), "no run history found")

	mockStore := new(MockHistoryStore)
	mockStore.On("GetStatus").Return(schema.HistoryStatus{}, errors.New("connection refused"))
	assert.ErrorContains(t, ExportHistory(&buf, mockStore, "out"), "connection refused")
	mockStore.AssertExpectations(t)
}

func TestPrintStatus(t *testing.T) {
	var buf bytes.Buffer
	PrintCacheStatus(&buf, schema.CacheStatus{Backend: "none"})
	assert.Equal(t, "Cache Backend: none\nConnected: false\n", buf.String())

	buf.Reset()
	last := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	PrintHistoryStatus(&buf, schema.HistoryStatus{
		Backend:       "sqlite",
		Connected:     true,
		TotalRuns:     2,
		LastRunID:     2,
		LastRunTime:   last,
		OldestRunTime: last.Add(-time.Hour),
		TotalTests:    4,
		TableSizes:    map[string]int64{testRecordsTable: 4, runsTable: 2},
	})
	out := buf.String()
	assert.Contains(t, out, "Last Run: 2024-05-01 09:00:00")
	assert.Contains(t, out, "Total Tests Recorded: 4")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte(runsTable)), bytes.Index(buf.Bytes(), []byte(testRecordsTable)), "tables are sorted")
}
