// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"
	"time"

	"github.com/huangsam/pulse/schema"
)

// GitClient defines the Git operations needed for test attribution and commit deltas.
// This allows the core logic to be tested without needing a real git executable.
type GitClient interface {
	// --- Generic / Low-Level ---

	// Run executes a git command and returns its output.
	// Its use should be minimized in favor of the explicit methods below.
	Run(ctx context.Context, repoPath string, args ...string) ([]byte, error)

	// --- Reference Resolution ---

	// GetRepoHash returns the current HEAD commit hash of the repository.
	GetRepoHash(ctx context.Context, repoPath string) (string, error)

	// GetRepoRoot returns the absolute path to the root of the Git repository
	// containing the given context path.
	GetRepoRoot(ctx context.Context, contextPath string) (string, error)

	// --- Attribution ---

	// BlameLine returns the raw blame output for exactly one line of a file.
	BlameLine(ctx context.Context, repoPath string, path string, line int) ([]byte, error)

	// --- Commit History ---

	// GetCommitLog returns one "hash|author|date|subject" line per non-merge commit
	// reachable from toRef but not from fromRef.
	GetCommitLog(ctx context.Context, repoPath string, fromRef string, toRef string) ([]byte, error)

	// Fetch updates the remote-tracking refs of the repository.
	Fetch(ctx context.Context, repoPath string) error
}

// CacheManager defines the interface for managing the persistence stores.
// This allows the persistence layer to be mocked for testing.
type CacheManager interface {
	GetBlameStore() CacheStore
	GetHistoryStore() HistoryStore
}

// CacheStore defines the interface for cache data storage.
// This allows mocking the store for testing.
type CacheStore interface {
	Get(key string) ([]byte, int, int64, error)
	Set(key string, value []byte, version int, timestamp int64) error
	GetStatus() (schema.CacheStatus, error)
	Close() error
}

// HistoryStore defines the interface for tracking authorship runs and their records.
type HistoryStore interface {
	// BeginRun creates a new run and returns its unique ID
	BeginRun(startTime time.Time, configParams map[string]any) (int64, error)

	// RecordTests stores the accepted test records of a run
	RecordTests(runID int64, records []schema.TestRecord) error

	// EndRun updates the run with completion data
	EndRun(runID int64, endTime time.Time, totalFiles int, totalTests int) error

	// GetStatus returns status information about the history store
	GetStatus() (schema.HistoryStatus, error)

	// GetAllRuns returns every recorded run ordered by ID
	GetAllRuns() ([]schema.RunRecord, error)

	// GetAllTestRecords returns every recorded test ordered by run
	GetAllTestRecords() ([]schema.TestRecordRow, error)

	// Close closes the underlying connection
	Close() error
}
