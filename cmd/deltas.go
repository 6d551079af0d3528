package cmd

import (
	"github.com/huangsam/pulse/core"
	"github.com/huangsam/pulse/internal/contract"
	"github.com/spf13/cobra"
)

// deltasCmd lists the commits between consecutive test executions.
var deltasCmd = &cobra.Command{
	Use:   "deltas",
	Short: "List commits that landed between consecutive test executions",
	Long: `Read the test results index, pair every execution with the one before it and
list the commits of each configured repository between the two recorded hashes.

Pairs already present in the deltas file are skipped, so repeated runs only add
new pairs. A pair whose git lookup fails is skipped and retried on the next run.

Repositories and hash fields are configured under deltas.repos in .pulse.yaml.

Examples:
  # Compute deltas for the configured results directory
  pulse deltas

  # Use another results directory and fetch first
  pulse deltas --results-dir ~/site/test_results --fetch`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteDeltas(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot run deltas", err)
		}
	},
}
