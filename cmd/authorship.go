package cmd

import (
	"github.com/huangsam/pulse/core"
	"github.com/huangsam/pulse/internal/contract"
	"github.com/spf13/cobra"
)

// authorshipCmd attributes every test of the configured projects.
var authorshipCmd = &cobra.Command{
	Use:   "authorship",
	Short: "Attribute every test to the author and date of its declaration",
	Long: `Scan the configured projects for test markers, resolve each marker to its method
name and ask git blame who wrote the declaration line and when.

Author names are normalized (dots turned into spaces, every word capitalized) and
mapped through the configured synonyms so that one engineer is counted once. The result ranks authors by test count and buckets
tests per month and per test type.

Files that fail to read or blame are skipped and counted in the summary. A test
whose declaration cannot be blamed is left out.

Examples:
  # Attribute tests for the projects in .pulse.yaml
  pulse authorship

  # Only tests written by one author in 2024
  pulse authorship --author "Alice Smith" --since 2024-01 --until 2024-12

  # Write the JSON handoff document with execution metadata
  pulse authorship --output json --output-file authorship.json --execution-metadata run.json

  # Reuse blame results across runs and record the run
  pulse authorship --cache-backend sqlite --history-backend sqlite`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteAuthorship(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot run authorship", err)
		}
	},
}
