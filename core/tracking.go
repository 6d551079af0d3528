package core

import (
	"context"
	"time"

	"github.com/huangsam/pulse/internal/contract"
	"github.com/huangsam/pulse/schema"
)

// beginRun records the start of an authorship run in the history store.
// Tracking failures are warnings and never abort the run.
func beginRun(ctx context.Context, cfg *contract.Config, history contract.HistoryStore) context.Context {
	if history == nil {
		return ctx
	}
	projects := make([]string, 0, len(cfg.Projects))
	for _, p := range cfg.Projects {
		projects = append(projects, p.Name)
	}
	configParams := map[string]any{
		"projects":       projects,
		"markers":        cfg.Markers,
		"search_window":  cfg.SearchWindow,
		"java_offset":    cfg.JavaStartOffset,
		"kotlin_offset":  cfg.KotlinStartOffset,
		"workers":        cfg.Workers,
		"blame_timeout":  cfg.BlameTimeout.String(),
		"cache_backend":  string(cfg.CacheBackend),
		"excludes":       cfg.Excludes,
		"project_filter": cfg.ProjectFilter,
	}
	runID, err := history.BeginRun(time.Now(), configParams)
	if err != nil {
		contract.LogWarn("Run tracking initialization failed", err)
		return ctx
	}
	if runID > 0 {
		ctx = withRunID(ctx, runID)
	}
	return ctx
}

// endRun stores the accepted records and finalizes the run.
func endRun(ctx context.Context, history contract.HistoryStore, records []schema.TestRecord, totalFiles int) {
	runID := getRunID(ctx)
	if history == nil || runID == 0 {
		return
	}
	if err := history.RecordTests(runID, records); err != nil {
		contract.LogWarn("Failed to record tests for run tracking", err)
	}
	if err := history.EndRun(runID, time.Now(), totalFiles, len(records)); err != nil {
		contract.LogWarn("Failed to finalize run tracking", err)
	}
}
