package core

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"time"

	"github.com/huangsam/pulse/core/grammar"
	"github.com/huangsam/pulse/internal/contract"
	"github.com/huangsam/pulse/internal/outwriter"
	"github.com/huangsam/pulse/schema"
	"github.com/sourcegraph/conc/pool"
)

// ExecuteInventory counts test cases and ignored tests per project and prints them.
// It serves as the main entry point for the 'inventory' command.
func ExecuteInventory(ctx context.Context, cfg *contract.Config, _ contract.CacheManager) error {
	start := time.Now()
	inventories, err := GetInventoryResults(ctx, cfg)
	if err != nil {
		return err
	}
	return outwriter.WriteInventoryResults(inventories, cfg, time.Since(start))
}

// GetInventoryResults scans every configured project without calling git.
// When a project filter is set only that project is reported.
func GetInventoryResults(ctx context.Context, cfg *contract.Config) ([]schema.ProjectInventory, error) {
	scanner, err := grammar.NewScanner(cfg.Markers)
	if err != nil {
		return nil, err
	}
	ignore, err := grammar.NewScanner(cfg.IgnoreMarkers)
	if err != nil {
		return nil, fmt.Errorf("invalid ignore markers: %w", err)
	}
	extractor := grammar.NewExtractor(cfg.SearchWindow, cfg.JavaStartOffset, cfg.KotlinStartOffset)

	projects := selectedProjects(cfg)

	files := discoverAll(projects, cfg.Excludes)
	if !shouldSuppressHeader(ctx) && cfg.Output == schema.TextOut {
		outwriter.LogInventoryHeader(cfg, len(projects), len(files))
	}

	perFile := make([][]schema.TestCaseInfo, len(files))
	wp := pool.New().WithMaxGoroutines(max(cfg.Workers, 1))
	for i, f := range files {
		wp.Go(func() {
			cases, err := inventoryFile(f, projects[f.project].Root, scanner, ignore, extractor)
			if err != nil {
				contract.LogWarn(fmt.Sprintf("Skipped %s", f.path), err)
				return
			}
			perFile[i] = cases
		})
	}
	wp.Wait()

	inventories := make([]schema.ProjectInventory, len(projects))
	for i, p := range projects {
		inventories[i] = schema.ProjectInventory{
			ProjectName:  p.Name,
			TestCases:    []schema.TestCaseInfo{},
			IgnoredTests: []schema.TestCaseInfo{},
		}
	}
	for i, f := range files {
		if perFile[i] == nil {
			continue
		}
		inv := &inventories[f.project]
		inv.TotalClasses++
		for _, c := range perFile[i] {
			inv.TotalCases++
			inv.TestCases = append(inv.TestCases, c)
			if c.Ignored {
				inv.TotalIgnored++
				inv.IgnoredTests = append(inv.IgnoredTests, c)
			}
		}
	}
	for i := range inventories {
		inventories[i].IgnoredPercentage = ignoredPercentage(inventories[i].TotalIgnored, inventories[i].TotalCases)
	}
	return inventories, nil
}

// inventoryFile returns the test cases of one file, or nil when the file has no markers.
func inventoryFile(f sourceFile, root string, scanner, ignore *grammar.Scanner, extractor *grammar.Extractor) ([]schema.TestCaseInfo, error) {
	lines, err := grammar.ReadLines(f.path)
	if err != nil {
		return nil, err
	}
	markers := scanner.ScanLines(lines)
	if len(markers) == 0 {
		return nil, nil
	}

	className, err := filepath.Rel(root, f.path)
	if err != nil {
		className = f.path
	}
	className = filepath.ToSlash(className)

	cases := []schema.TestCaseInfo{}
	declared := make(map[int]struct{}, len(markers))
	for _, marker := range markers {
		decl, ok := extractor.Extract(lines, marker, f.grammar)
		if !ok {
			continue
		}
		if _, dup := declared[decl.Line]; dup {
			continue
		}
		declared[decl.Line] = struct{}{}

		ignored := false
		for _, line := range grammar.AnnotationBlock(lines, marker, decl) {
			if ignore.Matches(line) {
				ignored = true
				break
			}
		}
		cases = append(cases, schema.TestCaseInfo{
			ClassName:  className,
			MethodName: decl.Name,
			Ignored:    ignored,
		})
	}
	return cases, nil
}

// ignoredPercentage rounds to two decimals; zero cases yield zero.
func ignoredPercentage(ignored, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(ignored)/float64(total)*10000) / 100
}
