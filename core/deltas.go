package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/huangsam/pulse/core/identity"
	"github.com/huangsam/pulse/internal/contract"
	"github.com/huangsam/pulse/internal/outwriter"
	"github.com/huangsam/pulse/schema"
	"golang.org/x/sync/errgroup"
)

// ExecuteDeltas computes the commits between consecutive test executions and
// merges them into the deltas file. It serves as the main entry point for the 'deltas' command.
func ExecuteDeltas(ctx context.Context, cfg *contract.Config, _ contract.CacheManager) error {
	start := time.Now()
	result, err := GetDeltasResults(ctx, cfg)
	if err != nil {
		return err
	}
	return outwriter.WriteDeltaResults(result, cfg, time.Since(start))
}

// GetDeltasResults runs the deltas computation with the local git client.
func GetDeltasResults(ctx context.Context, cfg *contract.Config) (schema.DeltaRunResult, error) {
	return runDeltas(ctx, cfg, contract.NewLocalGitClient())
}

// runDeltas adds a delta for every consecutive pair of executions that the
// output file does not have yet. A pair whose lookup fails is skipped so a
// later run retries it.
func runDeltas(ctx context.Context, cfg *contract.Config, client contract.GitClient) (schema.DeltaRunResult, error) {
	d := cfg.Deltas
	if err := contract.ValidateDeltas(d); err != nil {
		return schema.DeltaRunResult{}, err
	}

	index, err := loadResultsIndex(filepath.Join(d.ResultsDir, d.IndexFile))
	if err != nil {
		return schema.DeltaRunResult{}, err
	}
	existing := loadExistingDeltas(d.OutputFile)

	if !shouldSuppressHeader(ctx) && cfg.Output == schema.TextOut {
		outwriter.LogDeltasHeader(cfg, len(index))
	}

	if d.Fetch {
		for _, repo := range d.Repos {
			if err := client.Fetch(ctx, repo.Path); err != nil {
				contract.LogWarn(fmt.Sprintf("Cannot fetch %s", repo.Name), err)
			}
		}
	}

	normalizer := identity.NewNormalizer(cfg.Synonyms)
	results := make(map[string]map[string]any)
	var result schema.DeltaRunResult

	for i := 1; i < len(index); i++ {
		prev, curr := index[i-1], index[i]
		key := schema.DeltaKey{From: prev.ExecutionTime, To: curr.ExecutionTime}
		if _, ok := existing[key]; ok {
			result.Skipped++
			continue
		}
		contract.LogInfo("processing %s to %s", key.From, key.To)

		delta, err := computeDelta(ctx, client, d, normalizer, results, prev, curr)
		if err != nil {
			contract.LogWarn(fmt.Sprintf("Skipped delta %s to %s", key.From, key.To), err)
			continue
		}
		existing[key] = delta
		result.Added++
	}

	result.Deltas = sortedDeltas(existing)
	if result.Added > 0 {
		if err := saveDeltas(d.OutputFile, result.Deltas); err != nil {
			return result, err
		}
	}
	return result, nil
}

// computeDelta looks up the commits of every repository for one pair of executions.
func computeDelta(
	ctx context.Context,
	client contract.GitClient,
	d contract.DeltasConfig,
	normalizer *identity.Normalizer,
	results map[string]map[string]any,
	prev, curr schema.ResultIndexEntry,
) (schema.CommitDelta, error) {
	prevResult, err := loadResultFile(results, d.ResultsDir, prev.Filename)
	if err != nil {
		return schema.CommitDelta{}, err
	}
	currResult, err := loadResultFile(results, d.ResultsDir, curr.Filename)
	if err != nil {
		return schema.CommitDelta{}, err
	}

	var mu sync.Mutex
	commits := make(map[string][]schema.CommitInfo, len(d.Repos))
	g, gctx := errgroup.WithContext(ctx)
	for _, repo := range d.Repos {
		g.Go(func() error {
			list, err := commitsBetween(gctx, client, repo.Path, hashField(prevResult, repo.HashField), hashField(currResult, repo.HashField), normalizer)
			if err != nil {
				return fmt.Errorf("%s: %w", repo.Name, err)
			}
			mu.Lock()
			commits[repo.Name] = list
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return schema.CommitDelta{}, err
	}

	return schema.CommitDelta{
		FromExecutionTime: prev.ExecutionTime,
		ToExecutionTime:   curr.ExecutionTime,
		FromFilename:      prev.Filename,
		ToFilename:        curr.Filename,
		Commits:           commits,
	}, nil
}

// commitsBetween lists the commits in oldHash..newHash. Missing or identical hashes yield none.
func commitsBetween(ctx context.Context, client contract.GitClient, repoPath, oldHash, newHash string, normalizer *identity.Normalizer) ([]schema.CommitInfo, error) {
	commits := []schema.CommitInfo{}
	if oldHash == "" || newHash == "" || oldHash == newHash {
		return commits, nil
	}
	out, err := client.GetCommitLog(ctx, repoPath, oldHash, newHash)
	if err != nil {
		return nil, err
	}
	for line := range strings.SplitSeq(string(out), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "|", 4)
		if len(parts) != 4 {
			contract.LogWarn("Unexpected git log format", errors.New(line))
			continue
		}
		commits = append(commits, schema.CommitInfo{
			Commit:  parts[0],
			Author:  normalizer.Normalize(parts[1]),
			Date:    parts[2],
			Message: parts[3],
		})
	}
	return commits, nil
}

// loadResultsIndex reads the index file and sorts it by execution time.
func loadResultsIndex(path string) ([]schema.ResultIndexEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read results index: %w", err)
	}
	var index []schema.ResultIndexEntry
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("cannot parse results index %s: %w", path, err)
	}
	times := make(map[string]time.Time, len(index))
	for _, e := range index {
		t, err := time.Parse(schema.ExecutionTimeLayout, e.ExecutionTime)
		if err != nil {
			return nil, fmt.Errorf("invalid execution time %q in %s: %w", e.ExecutionTime, path, err)
		}
		times[e.ExecutionTime] = t
	}
	slices.SortStableFunc(index, func(a, b schema.ResultIndexEntry) int {
		return times[a.ExecutionTime].Compare(times[b.ExecutionTime])
	})
	return index, nil
}

// loadResultFile reads one result file, memoized by name.
func loadResultFile(cache map[string]map[string]any, dir, name string) (map[string]any, error) {
	if r, ok := cache[name]; ok {
		return r, nil
	}
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return nil, err
	}
	var r map[string]any
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("cannot parse %s: %w", name, err)
	}
	cache[name] = r
	return r, nil
}

func hashField(result map[string]any, field string) string {
	s, _ := result[field].(string)
	return strings.TrimSpace(s)
}

// loadExistingDeltas reads the current deltas file. A missing file is empty and
// an invalid one is replaced.
func loadExistingDeltas(path string) map[schema.DeltaKey]schema.CommitDelta {
	existing := make(map[schema.DeltaKey]schema.CommitDelta)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return existing
	}
	if err != nil {
		contract.LogWarn("Cannot read existing deltas", err)
		return existing
	}
	var deltas []schema.CommitDelta
	if err := json.Unmarshal(data, &deltas); err != nil {
		contract.LogWarn(fmt.Sprintf("%s is not valid JSON, starting fresh", path), err)
		return existing
	}
	for _, delta := range deltas {
		existing[delta.Key()] = delta
	}
	return existing
}

func sortedDeltas(m map[schema.DeltaKey]schema.CommitDelta) []schema.CommitDelta {
	out := make([]schema.CommitDelta, 0, len(m))
	for _, delta := range m {
		out = append(out, delta)
	}
	slices.SortFunc(out, func(a, b schema.CommitDelta) int {
		if c := strings.Compare(a.FromExecutionTime, b.FromExecutionTime); c != 0 {
			return c
		}
		return strings.Compare(a.ToExecutionTime, b.ToExecutionTime)
	})
	return out
}

func saveDeltas(path string, deltas []schema.CommitDelta) error {
	data, err := json.MarshalIndent(deltas, "", "    ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("cannot write deltas: %w", err)
	}
	contract.LogInfo("commit deltas saved to %s", path)
	return nil
}
