package core

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/huangsam/pulse/core/grammar"
	"github.com/huangsam/pulse/internal/contract"
)

// sourceFile is one candidate test source file.
type sourceFile struct {
	project int // index into the run's projects
	path    string
	grammar grammar.Grammar
}

// discoverFiles walks every existing subpath of a project and returns the files
// handled by a grammar. Missing subpaths and unreadable directories are skipped.
func discoverFiles(project contract.ProjectSpec, excludes []string) []string {
	var files []string
	seen := make(map[string]struct{})
	for _, sub := range project.Subpaths {
		dir := sub
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(project.Root, sub)
		}
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			continue
		}
		_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			rel, relErr := filepath.Rel(project.Root, path)
			if relErr != nil {
				rel = path
			}
			if d.IsDir() {
				if path != dir && contract.ShouldIgnore(filepath.ToSlash(rel)+"/", excludes) {
					return fs.SkipDir
				}
				return nil
			}
			if _, ok := grammar.ForPath(path); !ok {
				return nil
			}
			if contract.ShouldIgnore(filepath.ToSlash(rel), excludes) {
				return nil
			}
			if _, dup := seen[path]; dup {
				return nil
			}
			seen[path] = struct{}{}
			files = append(files, path)
			return nil
		})
	}
	return files
}

// selectedProjects returns the projects a run covers: the filtered one when a
// project filter is set, otherwise all of them.
func selectedProjects(cfg *contract.Config) []contract.ProjectSpec {
	if cfg.ProjectFilter == "" {
		return cfg.Projects
	}
	if p, ok := cfg.ProjectByName(cfg.ProjectFilter); ok {
		return []contract.ProjectSpec{p}
	}
	return nil
}

// discoverAll collects the source files of every project in config order.
func discoverAll(projects []contract.ProjectSpec, excludes []string) []sourceFile {
	var out []sourceFile
	for i, p := range projects {
		for _, path := range discoverFiles(p, excludes) {
			g, _ := grammar.ForPath(path)
			out = append(out, sourceFile{project: i, path: path, grammar: g})
		}
	}
	return out
}
