package outwriter

import (
	"fmt"
	"strings"

	"github.com/huangsam/pulse/internal/contract"
)

// projectNames lists the configured projects, or the filtered one.
func projectNames(cfg *contract.Config) string {
	if cfg.ProjectFilter != "" {
		return cfg.ProjectFilter
	}
	if len(cfg.Projects) == 0 {
		return "none"
	}
	names := make([]string, len(cfg.Projects))
	for i, p := range cfg.Projects {
		names[i] = p.Name
	}
	return strings.Join(names, ", ")
}

// LogAuthorshipHeader prints a concise, 2-line header for an authorship run.
func LogAuthorshipHeader(cfg *contract.Config, files int) {
	fmt.Printf("🔎 Projects: %s (Markers: %s)\n", projectNames(cfg), strings.Join(cfg.Markers, " "))
	fmt.Printf("📂 Files: %d (window: %d lines, workers: %d)\n", files, cfg.SearchWindow, cfg.Workers)
}

// LogInventoryHeader prints a header for the test inventory.
func LogInventoryHeader(cfg *contract.Config, projects, files int) {
	fmt.Printf("🔎 Projects: %s (Ignore markers: %s)\n", projectNames(cfg), strings.Join(cfg.IgnoreMarkers, " "))
	fmt.Printf("📂 Files: %d across %d project(s)\n", files, projects)
}

// LogDeltasHeader prints a header for commit deltas.
func LogDeltasHeader(cfg *contract.Config, entries int) {
	repos := make([]string, len(cfg.Deltas.Repos))
	for i, r := range cfg.Deltas.Repos {
		repos[i] = r.Name
	}
	fmt.Printf("🔎 Repos: %s (Results: %s)\n", strings.Join(repos, ", "), cfg.Deltas.ResultsDir)
	fmt.Printf("📊 Executions: %d (pairs: %d)\n", entries, max(entries-1, 0))
}
