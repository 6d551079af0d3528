package iocache

import (
	"database/sql"
	"fmt"
	"os"
	"sync"

	"github.com/huangsam/pulse/schema"
)

// blameTable is the name of the table for blame caching.
const blameTable = "pulse_blame_cache"

// Global Manager instance for main logic.
var (
	Manager   = &CacheStoreManager{}
	initOnce  sync.Once
	closeOnce sync.Once
)

// enabled reports whether a backend selects a real store.
func enabled(backend schema.DatabaseBackend) bool {
	return backend != "" && backend != schema.NoneBackend
}

// InitStores initializes the global manager. An empty or "none" backend leaves
// the corresponding store nil.
func InitStores(cacheBackend schema.DatabaseBackend, cacheConnStr string, historyBackend schema.DatabaseBackend, historyConnStr string) error {
	var initErr error

	initOnce.Do(func() {
		var blameStore *CacheStoreImpl
		var historyStore *HistoryStoreImpl
		var err error

		if enabled(cacheBackend) {
			blameStore, err = NewCacheStore(blameTable, cacheBackend, cacheConnStr)
			if err != nil {
				initErr = fmt.Errorf("failed to initialize blame caching: %w", err)
				return
			}
		}

		if enabled(historyBackend) {
			historyStore, err = NewHistoryStore(historyBackend, historyConnStr)
			if err != nil {
				if blameStore != nil {
					_ = blameStore.Close()
				}
				initErr = fmt.Errorf("failed to initialize run history: %w", err)
				return
			}
		}

		Manager.Lock()
		defer Manager.Unlock()
		if blameStore != nil {
			Manager.blame = blameStore
		}
		if historyStore != nil {
			Manager.history = historyStore
		}
	})

	return initErr
}

// CloseStores should be called on application shutdown.
func CloseStores() {
	closeOnce.Do(func() {
		Manager.Lock()
		defer Manager.Unlock()
		if Manager.blame != nil {
			_ = Manager.blame.Close()
		}
		if Manager.history != nil {
			_ = Manager.history.Close()
		}
	})
}

// ClearCache clears the blame cache for the specified backend.
// For SQLite, it deletes the database file.
// For SQL backends (MySQL/PostgreSQL), it drops the table.
func ClearCache(backend schema.DatabaseBackend, dbFilePath, connStr string) error {
	return clearStore(backend, dbFilePath, connStr, []string{blameTable})
}

// ClearHistory clears the run history for the specified backend.
func ClearHistory(backend schema.DatabaseBackend, dbFilePath, connStr string) error {
	return clearStore(backend, dbFilePath, connStr, historyTables)
}

func clearStore(backend schema.DatabaseBackend, dbFilePath, connStr string, tables []string) error {
	switch backend {
	case schema.SQLiteBackend:
		if dbFilePath == "" {
			return fmt.Errorf("dbFilePath cannot be empty for SQLite backend")
		}
		if err := os.Remove(dbFilePath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove SQLite database file %s: %w", dbFilePath, err)
		}
		return nil

	case schema.MySQLBackend, schema.PostgreSQLBackend:
		driverName, _ := driverFor(backend)
		// Dependent tables first.
		for i := len(tables) - 1; i >= 0; i-- {
			if err := clearSQLTable(driverName, connStr, quoteTableName(tables[i], backend)); err != nil {
				return err
			}
		}
		return nil

	case schema.NoneBackend, "":
		return nil

	default:
		return fmt.Errorf("unsupported backend for clearing: %s", backend)
	}
}

// clearSQLTable connects to the SQL database and drops the table if it exists.
func clearSQLTable(driverName, connStr, quotedTable string) error {
	db, err := sql.Open(driverName, connStr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s database: %w", driverName, err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping %s database: %w", driverName, err)
	}
	if _, err := db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", quotedTable)); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", quotedTable, err)
	}
	return nil
}
