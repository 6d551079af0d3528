package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/huangsam/pulse/core/agg"
	"github.com/huangsam/pulse/core/blame"
	"github.com/huangsam/pulse/core/grammar"
	"github.com/huangsam/pulse/core/identity"
	"github.com/huangsam/pulse/internal/contract"
	"github.com/huangsam/pulse/internal/progress"
	"github.com/huangsam/pulse/schema"
	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"
)

// processingError represents an error that occurred while processing a file.
type processingError struct {
	Path string
	Err  error
}

func (e processingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// processingErrors collects file processing errors (thread-safe).
type processingErrors struct {
	mu     sync.Mutex
	errors []processingError
}

// Add appends an error to the collection.
func (e *processingErrors) Add(path string, err error) {
	e.mu.Lock()
	e.errors = append(e.errors, processingError{Path: path, Err: err})
	e.mu.Unlock()
}

// Count returns the number of failed files.
func (e *processingErrors) Count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.errors)
}

// projectRun holds what the workers need to know about one project.
type projectRun struct {
	spec       contract.ProjectSpec
	repo       blame.Repo
	normalizer *identity.Normalizer
}

// pipeline turns source files into attributed test records.
type pipeline struct {
	scanner    *grammar.Scanner
	extractor  *grammar.Extractor
	resolver   *blame.Resolver
	aggregator *agg.Aggregator
	projects   []projectRun
}

// newPipeline builds the per-run collaborators for the given projects.
func newPipeline(cfg *contract.Config, specs []contract.ProjectSpec, client contract.GitClient, store contract.CacheStore) (*pipeline, error) {
	scanner, err := grammar.NewScanner(cfg.Markers)
	if err != nil {
		return nil, err
	}
	projects := make([]projectRun, len(specs))
	for i, spec := range specs {
		projects[i] = projectRun{
			spec:       spec,
			repo:       blame.Repo{Root: spec.Root},
			normalizer: identity.NewNormalizer(spec.Synonyms),
		}
	}
	return &pipeline{
		scanner:    scanner,
		extractor:  grammar.NewExtractor(cfg.SearchWindow, cfg.JavaStartOffset, cfg.KotlinStartOffset),
		resolver:   blame.NewResolver(client, cfg.BlameTimeout, store),
		aggregator: agg.New(),
		projects:   projects,
	}, nil
}

// resolveRepos finds the repository root of every project that has files.
// HEAD is only needed to key the blame cache.
func (p *pipeline) resolveRepos(ctx context.Context, client contract.GitClient, files []sourceFile, withHead bool) {
	used := make(map[int]bool)
	for _, f := range files {
		used[f.project] = true
	}
	for i := range p.projects {
		if !used[i] {
			continue
		}
		pr := &p.projects[i]
		root, err := client.GetRepoRoot(ctx, pr.spec.Root)
		if err != nil {
			contract.LogWarn(fmt.Sprintf("Cannot resolve repository of project %s", pr.spec.Name), err)
			continue
		}
		pr.repo.Root = root
		if withHead {
			if head, err := client.GetRepoHash(ctx, root); err == nil {
				pr.repo.Head = head
			}
		}
	}
}

// run processes every file on a bounded worker pool. A failing or panicking
// file is logged and contributes nothing; the other files are unaffected.
func (p *pipeline) run(ctx context.Context, files []sourceFile, workers int, tracker *progress.Tracker) *processingErrors {
	errs := &processingErrors{}
	if len(files) == 0 {
		return errs
	}

	wp := pool.New().WithMaxGoroutines(max(workers, 1))
	for _, f := range files {
		wp.Go(func() {
			defer tracker.Tick()

			var pc panics.Catcher
			var err error
			pc.Try(func() { _, err = p.processFile(ctx, f) })
			if r := pc.Recovered(); r != nil {
				err = fmt.Errorf("panic: %v", r.Value)
			}
			if err != nil {
				errs.Add(f.path, err)
				contract.LogWarn(fmt.Sprintf("Skipped %s", f.path), err)
			}
		})
	}
	wp.Wait()
	return errs
}

// processFile scans one file and records every attributed test in it.
// Marker lines are handled in ascending order.
func (p *pipeline) processFile(ctx context.Context, f sourceFile) (int, error) {
	lines, err := grammar.ReadLines(f.path)
	if err != nil {
		return 0, err
	}
	markers := p.scanner.ScanLines(lines)
	if len(markers) == 0 {
		return 0, nil
	}

	pr := p.projects[f.project]
	pkg := grammar.PackageOf(lines)
	class := grammar.ClassOf(f.path)
	declared := make(map[int]struct{}, len(markers))

	accepted := 0
	for _, marker := range markers {
		decl, ok := p.extractor.Extract(lines, marker, f.grammar)
		if !ok {
			continue
		}
		if _, dup := declared[decl.Line]; dup {
			continue
		}

		attr, ok := p.resolver.Resolve(ctx, pr.repo, f.path, marker)
		if !ok {
			continue
		}
		declared[decl.Line] = struct{}{}
		p.aggregator.Record(schema.TestRecord{
			Project:   pr.spec.Name,
			Package:   pkg,
			Class:     class,
			Test:      decl.Name,
			TestType:  pr.spec.TestType,
			Author:    pr.normalizer.Normalize(attr.Author),
			Timestamp: attr.Date,
		})
		accepted++
	}
	return accepted, nil
}
