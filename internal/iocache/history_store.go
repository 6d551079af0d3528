package iocache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/huangsam/pulse/internal/contract"
	"github.com/huangsam/pulse/schema"
)

// Table names for run history.
const (
	runsTable        = "pulse_authorship_runs"
	testRecordsTable = "pulse_test_records"
)

// historyTables lists the history tables in creation order.
var historyTables = []string{runsTable, testRecordsTable}

// HistoryStoreImpl implements the HistoryStore interface.
type HistoryStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
	connStr string
}

var _ contract.HistoryStore = &HistoryStoreImpl{} // Compile-time check

// NewHistoryStore opens the backend and creates the history tables if needed.
func NewHistoryStore(backend schema.DatabaseBackend, connStr string) (*HistoryStoreImpl, error) {
	db, err := openDB(backend, connStr, contract.GetHistoryDBFilePath())
	if err != nil {
		return nil, fmt.Errorf("run history: %w", err)
	}
	if err := createHistoryTables(db, backend); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create history tables: %w", err)
	}
	return &HistoryStoreImpl{db: db, backend: backend, connStr: connStr}, nil
}

// createHistoryTables creates the run history tables.
func createHistoryTables(db *sql.DB, backend schema.DatabaseBackend) error {
	queries := map[string]string{
		runsTable:        getCreateRunsQuery(backend),
		testRecordsTable: getCreateTestRecordsQuery(backend),
	}
	for _, table := range historyTables {
		if _, err := db.Exec(queries[table]); err != nil {
			return fmt.Errorf("failed to create table %s: %w", table, err)
		}
	}
	return nil
}

// getCreateRunsQuery returns the CREATE TABLE query for pulse_authorship_runs.
func getCreateRunsQuery(backend schema.DatabaseBackend) string {
	quoted := quoteTableName(runsTable, backend)
	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGINT AUTO_INCREMENT PRIMARY KEY,
				start_time DATETIME(6) NOT NULL,
				end_time DATETIME(6),
				run_duration_ms INT,
				total_files INT NOT NULL DEFAULT 0,
				total_tests INT NOT NULL DEFAULT 0,
				config_params TEXT
			);
		`, quoted)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGSERIAL PRIMARY KEY,
				start_time TIMESTAMPTZ NOT NULL,
				end_time TIMESTAMPTZ,
				run_duration_ms INT,
				total_files INT NOT NULL DEFAULT 0,
				total_tests INT NOT NULL DEFAULT 0,
				config_params TEXT
			);
		`, quoted)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id INTEGER PRIMARY KEY AUTOINCREMENT,
				start_time TEXT NOT NULL,
				end_time TEXT,
				run_duration_ms INTEGER,
				total_files INTEGER NOT NULL DEFAULT 0,
				total_tests INTEGER NOT NULL DEFAULT 0,
				config_params TEXT
			);
		`, quoted)
	}
}

// getCreateTestRecordsQuery returns the CREATE TABLE query for pulse_test_records.
func getCreateTestRecordsQuery(backend schema.DatabaseBackend) string {
	quoted := quoteTableName(testRecordsTable, backend)
	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGINT NOT NULL,
				project VARCHAR(255) NOT NULL,
				package_name VARCHAR(512) NOT NULL,
				class_name VARCHAR(255) NOT NULL,
				test_name VARCHAR(512) NOT NULL,
				test_type VARCHAR(32) NOT NULL,
				author VARCHAR(255) NOT NULL,
				test_date VARCHAR(10) NOT NULL,
				INDEX idx_pulse_test_records_run (run_id)
			);
		`, quoted)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGINT NOT NULL,
				project TEXT NOT NULL,
				package_name TEXT NOT NULL,
				class_name TEXT NOT NULL,
				test_name TEXT NOT NULL,
				test_type TEXT NOT NULL,
				author TEXT NOT NULL,
				test_date TEXT NOT NULL
			);
		`, quoted)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id INTEGER NOT NULL,
				project TEXT NOT NULL,
				package_name TEXT NOT NULL,
				class_name TEXT NOT NULL,
				test_name TEXT NOT NULL,
				test_type TEXT NOT NULL,
				author TEXT NOT NULL,
				test_date TEXT NOT NULL
			);
		`, quoted)
	}
}

// BeginRun creates a new run and returns its unique ID.
func (hs *HistoryStoreImpl) BeginRun(startTime time.Time, configParams map[string]any) (int64, error) {
	configJSON, err := json.Marshal(configParams)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal config params: %w", err)
	}

	quoted := quoteTableName(runsTable, hs.backend)
	var runID int64
	switch hs.backend {
	case schema.PostgreSQLBackend:
		query := fmt.Sprintf(`INSERT INTO %s (start_time, config_params) VALUES ($1, $2) RETURNING run_id`, quoted)
		err = hs.db.QueryRow(query, startTime, string(configJSON)).Scan(&runID)
	default: // SQLite and MySQL
		query := fmt.Sprintf(`INSERT INTO %s (start_time, config_params) VALUES (?, ?)`, quoted)
		var result sql.Result
		result, err = hs.db.Exec(query, formatTime(startTime, hs.backend), string(configJSON))
		if err == nil {
			runID, err = result.LastInsertId()
		}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	return runID, nil
}

// RecordTests stores the accepted test records of a run in one transaction.
func (hs *HistoryStoreImpl) RecordTests(runID int64, records []schema.TestRecord) error {
	if len(records) == 0 {
		return nil
	}
	p := func(n int) string { return placeholder(hs.backend, n) }
	query := fmt.Sprintf(`INSERT INTO %s (run_id, project, package_name, class_name, test_name, test_type, author, test_date)
		VALUES (%s, %s, %s, %s, %s, %s, %s, %s)`,
		quoteTableName(testRecordsTable, hs.backend), p(1), p(2), p(3), p(4), p(5), p(6), p(7), p(8))

	tx, err := hs.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	stmt, err := tx.Prepare(query)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range records {
		if _, err := stmt.Exec(runID, r.Project, r.Package, r.Class, r.Test, string(r.TestType), r.Author, r.Timestamp); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert test record %s.%s: %w", r.Class, r.Test, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit test records: %w", err)
	}
	return nil
}

// EndRun updates the run with completion data.
func (hs *HistoryStoreImpl) EndRun(runID int64, endTime time.Time, totalFiles int, totalTests int) error {
	quoted := quoteTableName(runsTable, hs.backend)
	p := func(n int) string { return placeholder(hs.backend, n) }

	var raw any
	query := fmt.Sprintf(`SELECT start_time FROM %s WHERE run_id = %s`, quoted, p(1))
	if err := hs.db.QueryRow(query, runID).Scan(&raw); err != nil {
		return fmt.Errorf("failed to get start_time for run %d: %w", runID, err)
	}
	startTime, err := scanTime(raw)
	if err != nil {
		return fmt.Errorf("failed to parse start_time: %w", err)
	}

	update := fmt.Sprintf(`UPDATE %s SET end_time = %s, run_duration_ms = %s, total_files = %s, total_tests = %s WHERE run_id = %s`,
		quoted, p(1), p(2), p(3), p(4), p(5))
	durationMs := endTime.Sub(startTime).Milliseconds()
	if _, err := hs.db.Exec(update, formatTime(endTime, hs.backend), durationMs, totalFiles, totalTests, runID); err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	return nil
}

// Close closes the underlying connection.
func (hs *HistoryStoreImpl) Close() error {
	return hs.db.Close()
}

// GetStatus returns status information about the history store.
func (hs *HistoryStoreImpl) GetStatus() (schema.HistoryStatus, error) {
	status := schema.HistoryStatus{
		Backend:    string(hs.backend),
		Connected:  true,
		TableSizes: make(map[string]int64),
	}
	quoted := quoteTableName(runsTable, hs.backend)

	if err := hs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", quoted)).Scan(&status.TotalRuns); err != nil {
		return status, fmt.Errorf("failed to get total runs: %w", err)
	}

	if status.TotalRuns > 0 {
		var lastRaw, oldestRaw any
		row := hs.db.QueryRow(fmt.Sprintf("SELECT run_id, start_time FROM %s ORDER BY run_id DESC LIMIT 1", quoted))
		if err := row.Scan(&status.LastRunID, &lastRaw); err != nil {
			return status, fmt.Errorf("failed to get last run info: %w", err)
		}
		row = hs.db.QueryRow(fmt.Sprintf("SELECT start_time FROM %s ORDER BY run_id ASC LIMIT 1", quoted))
		if err := row.Scan(&oldestRaw); err != nil {
			return status, fmt.Errorf("failed to get oldest run time: %w", err)
		}
		var err error
		if status.LastRunTime, err = scanTime(lastRaw); err != nil {
			return status, fmt.Errorf("failed to parse last run time: %w", err)
		}
		if status.OldestRunTime, err = scanTime(oldestRaw); err != nil {
			return status, fmt.Errorf("failed to parse oldest run time: %w", err)
		}
	}

	for _, table := range historyTables {
		var count int64
		if err := hs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteTableName(table, hs.backend))).Scan(&count); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}
	status.TotalTests = int(status.TableSizes[testRecordsTable])
	return status, nil
}

// GetAllRuns retrieves every run ordered by ID.
func (hs *HistoryStoreImpl) GetAllRuns() ([]schema.RunRecord, error) {
	query := fmt.Sprintf("SELECT run_id, start_time, end_time, run_duration_ms, total_files, total_tests, config_params FROM %s ORDER BY run_id",
		quoteTableName(runsTable, hs.backend))
	rows, err := hs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.RunRecord
	for rows.Next() {
		var record schema.RunRecord
		var startRaw, endRaw any
		var duration sql.NullInt32
		var params sql.NullString
		if err := rows.Scan(&record.RunID, &startRaw, &endRaw, &duration, &record.TotalFiles, &record.TotalTests, &params); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if record.StartTime, err = scanTime(startRaw); err != nil {
			return nil, fmt.Errorf("failed to parse start_time: %w", err)
		}
		if endRaw != nil {
			end, err := scanTime(endRaw)
			if err != nil {
				return nil, fmt.Errorf("failed to parse end_time: %w", err)
			}
			record.EndTime = &end
		}
		if duration.Valid {
			record.RunDurationMs = &duration.Int32
		}
		if params.Valid {
			record.ConfigParams = &params.String
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return results, nil
}

// GetAllTestRecords retrieves every stored test record ordered by run.
func (hs *HistoryStoreImpl) GetAllTestRecords() ([]schema.TestRecordRow, error) {
	query := fmt.Sprintf(`SELECT run_id, project, package_name, class_name, test_name, test_type, author, test_date
		FROM %s ORDER BY run_id, project, package_name, class_name, test_name`, quoteTableName(testRecordsTable, hs.backend))
	rows, err := hs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query test records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.TestRecordRow
	for rows.Next() {
		var row schema.TestRecordRow
		var testType string
		if err := rows.Scan(&row.RunID, &row.Project, &row.Package, &row.Class, &row.Test, &testType, &row.Author, &row.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan test record: %w", err)
		}
		row.TestType = schema.TestType(testType)
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating test records: %w", err)
	}
	return results, nil
}
