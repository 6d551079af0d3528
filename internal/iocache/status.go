package iocache

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/huangsam/pulse/schema"
)

const statusTimeLayout = "2006-01-02 15:04:05"

// PrintCacheStatus prints blame cache status information.
func PrintCacheStatus(w io.Writer, status schema.CacheStatus) {
	_, _ = fmt.Fprintf(w, "Cache Backend: %s\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	_, _ = fmt.Fprintf(w, "Total Entries: %d\n", status.TotalEntries)
	if status.TotalEntries > 0 {
		_, _ = fmt.Fprintf(w, "Last Entry: %s\n", status.LastEntryTime.Format(statusTimeLayout))
		_, _ = fmt.Fprintf(w, "Oldest Entry: %s\n", status.OldestEntryTime.Format(statusTimeLayout))
	}
	_, _ = fmt.Fprintf(w, "Table Size: %d bytes\n", status.TableSizeBytes)
}

// PrintHistoryStatus prints run history status information.
func PrintHistoryStatus(w io.Writer, status schema.HistoryStatus) {
	_, _ = fmt.Fprintf(w, "History Backend: %s\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	_, _ = fmt.Fprintf(w, "Total Runs: %d\n", status.TotalRuns)
	if status.TotalRuns > 0 {
		_, _ = fmt.Fprintf(w, "Last Run ID: %d\n", status.LastRunID)
		_, _ = fmt.Fprintf(w, "Last Run: %s\n", status.LastRunTime.Format(statusTimeLayout))
		_, _ = fmt.Fprintf(w, "Oldest Run: %s\n", status.OldestRunTime.Format(statusTimeLayout))
		_, _ = fmt.Fprintf(w, "Total Tests Recorded: %d\n", status.TotalTests)
	}
	_, _ = fmt.Fprintln(w, "Table Sizes:")
	for _, table := range slices.Sorted(maps.Keys(status.TableSizes)) {
		_, _ = fmt.Fprintf(w, "  %s: %d rows\n", table, status.TableSizes[table])
	}
}

// CacheStatusOf returns the status of the blame store, or a disconnected
// status when caching is disabled.
func CacheStatusOf(mgr *CacheStoreManager) (schema.CacheStatus, error) {
	store := mgr.GetBlameStore()
	if store == nil {
		return schema.CacheStatus{Backend: string(schema.NoneBackend)}, nil
	}
	return store.GetStatus()
}

// HistoryStatusOf returns the status of the history store, or a disconnected
// status when run history is disabled.
func HistoryStatusOf(mgr *CacheStoreManager) (schema.HistoryStatus, error) {
	store := mgr.GetHistoryStore()
	if store == nil {
		return schema.HistoryStatus{Backend: string(schema.NoneBackend)}, nil
	}
	return store.GetStatus()
}
