package iocache

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/pulse/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemoryCacheStore(t *testing.T) *CacheStoreImpl {
	t.Helper()
	store, err := NewCacheStore(blameTable, schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestCacheStore_SetAndGet(t *testing.T) {
	store := newMemoryCacheStore(t)

	_, _, _, err := store.Get("missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	ts := time.Now().Unix()
	require.NoError(t, store.Set("k1", []byte(`{"author":"Alice Smith","date":"2024-03-05"}`), 1, ts))
	value, version, gotTs, err := store.Get("k1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"author":"Alice Smith","date":"2024-03-05"}`, string(value))
	assert.Equal(t, 1, version)
	assert.Equal(t, ts, gotTs)

	// Upsert replaces the previous entry
	require.NoError(t, store.Set("k1", []byte(`{}`), 2, ts+10))
	value, version, gotTs, err = store.Get("k1")
	require.NoError(t, err)
	assert.Equal(t, "{}", string(value))
	assert.Equal(t, 2, version)
	assert.Equal(t, ts+10, gotTs)
}

func TestCacheStore_GetStatus(t *testing.T) {
	store := newMemoryCacheStore(t)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", status.Backend)
	assert.True(t, status.Connected)
	assert.Zero(t, status.TotalEntries)

	require.NoError(t, store.Set("a", []byte("x"), 1, 1_700_000_000))
	require.NoError(t, store.Set("b", []byte("y"), 1, 1_700_000_500))

	status, err = store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, 2, status.TotalEntries)
	assert.Equal(t, int64(1_700_000_500), status.LastEntryTime.Unix())
	assert.Equal(t, int64(1_700_000_000), status.OldestEntryTime.Unix())
	assert.Greater(t, status.TableSizeBytes, int64(0))
}

func TestNewCacheStore_InvalidInputs(t *testing.T) {
	_, err := NewCacheStore("bad-name; DROP", schema.SQLiteBackend, ":memory:")
	assert.Error(t, err)

	_, err = NewCacheStore(blameTable, schema.DatabaseBackend("redis"), "")
	assert.Error(t, err)
}

func TestValidateTableName(t *testing.T) {
	assert.NoError(t, validateTableName("pulse_blame_cache"))
	assert.NoError(t, validateTableName("_t1"))
	assert.Error(t, validateTableName(""))
	assert.Error(t, validateTableName("1table"))
	assert.Error(t, validateTableName("a;b"))
}

func TestQuoteTableNameAndPlaceholder(t *testing.T) {
	assert.Equal(t, "`runs`", quoteTableName("runs", schema.MySQLBackend))
	assert.Equal(t, `"runs"`, quoteTableName("runs", schema.PostgreSQLBackend))
	assert.Equal(t, `"runs"`, quoteTableName("runs", schema.SQLiteBackend))

	assert.Equal(t, "$3", placeholder(schema.PostgreSQLBackend, 3))
	assert.Equal(t, "?", placeholder(schema.MySQLBackend, 3))
	assert.Equal(t, "?", placeholder(schema.SQLiteBackend, 1))
}

func TestScanTime(t *testing.T) {
	want := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

	for name, raw := range map[string]any{
		"time value":     want,
		"rfc3339 string": "2024-03-05T10:00:00Z",
		"mysql bytes":    []byte("2024-03-05 10:00:00"),
		"mysql micros":   "2024-03-05 10:00:00.000000",
	} {
		t.Run(name, func(t *testing.T) {
			got, err := scanTime(raw)
			require.NoError(t, err)
			assert.True(t, want.Equal(got), "got %s", got)
		})
	}

	_, err := scanTime(42)
	assert.Error(t, err)
	_, err = scanTime("yesterday")
	assert.Error(t, err)
}

func TestFormatTime(t *testing.T) {
	ts := time.Date(2024, 3, 5, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	assert.Equal(t, "2024-03-05T11:00:00Z", formatTime(ts, schema.SQLiteBackend))
	assert.Equal(t, ts, formatTime(ts, schema.PostgreSQLBackend))
}

func TestClearCache(t *testing.T) {
	t.Run("sqlite removes the file", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "cache.db")
		store, err := NewCacheStore(blameTable, schema.SQLiteBackend, dbPath)
		require.NoError(t, err)
		require.NoError(t, store.Close())
		_, err = os.Stat(dbPath)
		require.NoError(t, err)

		require.NoError(t, ClearCache(schema.SQLiteBackend, dbPath, ""))
		_, err = os.Stat(dbPath)
		assert.True(t, os.IsNotExist(err))

		// Clearing twice is fine
		assert.NoError(t, ClearCache(schema.SQLiteBackend, dbPath, ""))
	})

	t.Run("sqlite needs a path", func(t *testing.T) {
		assert.Error(t, ClearCache(schema.SQLiteBackend, "", ""))
	})

	t.Run("none is a no-op", func(t *testing.T) {
		assert.NoError(t, ClearCache(schema.NoneBackend, "", ""))
		assert.NoError(t, ClearHistory("", "", ""))
	})

	t.Run("unknown backend", func(t *testing.T) {
		assert.Error(t, ClearHistory(schema.DatabaseBackend("redis"), "", ""))
	})
}

func TestInitStores_Disabled(t *testing.T) {
	require.NoError(t, InitStores(schema.NoneBackend, "", "", ""))
	assert.Nil(t, Manager.GetBlameStore())
	assert.Nil(t, Manager.GetHistoryStore())

	cacheStatus, err := CacheStatusOf(Manager)
	require.NoError(t, err)
	assert.False(t, cacheStatus.Connected)
	assert.Equal(t, "none", cacheStatus.Backend)

	historyStatus, err := HistoryStatusOf(Manager)
	require.NoError(t, err)
	assert.False(t, historyStatus.Connected)
}
