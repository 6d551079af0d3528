package schema

import "time"

// RunRecord represents a row from the pulse_authorship_runs table.
type RunRecord struct {
	RunID         int64
	StartTime     time.Time
	EndTime       *time.Time
	RunDurationMs *int32
	TotalFiles    int32
	TotalTests    int32
	ConfigParams  *string
}

// TestRecordRow represents a row from the pulse_test_records table.
type TestRecordRow struct {
	RunID int64
	TestRecord
}

// BlameEntry is the cached form of a resolved line attribution.
type BlameEntry struct {
	Author string `json:"author"`
	Date   string `json:"date"`
}
