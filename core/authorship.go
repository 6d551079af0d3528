package core

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/huangsam/pulse/core/agg"
	"github.com/huangsam/pulse/internal/contract"
	"github.com/huangsam/pulse/internal/outwriter"
	"github.com/huangsam/pulse/internal/progress"
	"github.com/huangsam/pulse/schema"
)

// recentTestsShown is the number of newest tests listed in text output.
const recentTestsShown = 5

// AuthorshipOutput is everything an authorship run produces.
type AuthorshipOutput struct {
	Snapshot agg.Snapshot // filtered view
	Summary  schema.RunSummary
	Metadata schema.ExecutionMetadata
}

// Result returns the handoff document of the run.
func (o *AuthorshipOutput) Result() schema.AuthorshipResult {
	return o.Snapshot.Result(o.Metadata)
}

// ExecuteAuthorship runs the attribution pipeline and prints the results.
// It serves as the main entry point for the 'authorship' command.
func ExecuteAuthorship(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	start := time.Now()
	output, err := GetAuthorshipResults(ctx, cfg, mgr)
	if err != nil {
		return err
	}
	return outwriter.WriteAuthorshipResults(output.Result(), output.Snapshot.Recent(recentTestsShown), output.Summary, cfg, time.Since(start))
}

// GetAuthorshipResults runs the attribution pipeline with the local git client.
func GetAuthorshipResults(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) (*AuthorshipOutput, error) {
	return runAuthorship(ctx, cfg, contract.NewLocalGitClient(), mgr)
}

// runAuthorship discovers files, attributes every test and returns the filtered snapshot.
// Per-file failures never abort the run.
func runAuthorship(ctx context.Context, cfg *contract.Config, client contract.GitClient, mgr contract.CacheManager) (*AuthorshipOutput, error) {
	var blameStore contract.CacheStore
	var history contract.HistoryStore
	if mgr != nil {
		blameStore = mgr.GetBlameStore()
		history = mgr.GetHistoryStore()
	}

	projects := selectedProjects(cfg)
	p, err := newPipeline(cfg, projects, client, blameStore)
	if err != nil {
		return nil, err
	}

	files := discoverAll(projects, cfg.Excludes)
	interactive := !shouldSuppressHeader(ctx) && cfg.Output == schema.TextOut
	if interactive {
		outwriter.LogAuthorshipHeader(cfg, len(files))
	}
	contract.LogInfo("discovered %d source files across %d projects", len(files), len(projects))

	p.resolveRepos(ctx, client, files, blameStore != nil)

	// --- Begin run tracking (if configured) ---
	ctx = beginRun(ctx, cfg, history)

	var tracker *progress.Tracker
	if interactive && len(files) > 0 {
		tracker = progress.NewTracker("Attributing tests", len(files))
	}
	errs := p.run(ctx, files, cfg.Workers, tracker)
	tracker.FinishWithFailures(errs.Count())

	snapshot := p.aggregator.Snapshot()

	// --- End run tracking ---
	endRun(ctx, history, snapshot.Records, len(files))

	view := snapshot.Filter(agg.Filter{
		Author:  cfg.AuthorFilter,
		Project: cfg.ProjectFilter,
		Since:   cfg.Since,
		Until:   cfg.Until,
	})

	return &AuthorshipOutput{
		Snapshot: view,
		Summary: schema.RunSummary{
			Projects:      len(projects),
			FilesScanned:  len(files),
			FilesFailed:   errs.Count(),
			TestsAccepted: snapshot.Total(),
			Workers:       cfg.Workers,
		},
		Metadata: loadExecutionMetadata(cfg.ExecutionMetadataPath),
	}, nil
}

// loadExecutionMetadata reads the CI execution metadata file. The end time is
// reformatted for display; a value that cannot be parsed is kept as is.
func loadExecutionMetadata(path string) schema.ExecutionMetadata {
	if path == "" {
		return schema.ExecutionMetadata{}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		contract.LogWarn("Cannot read execution metadata", err)
		return schema.ExecutionMetadata{}
	}
	var meta schema.ExecutionMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		contract.LogWarn("Cannot parse execution metadata", fmt.Errorf("%s: %w", path, err))
		return schema.ExecutionMetadata{}
	}
	if t, err := time.Parse("2006-01-02T15:04:05Z", meta.ExecutionEndTime); err == nil {
		meta.ExecutionEndTime = t.Format(schema.ExecutionTimeLayout)
	}
	return meta
}
