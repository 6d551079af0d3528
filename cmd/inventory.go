package cmd

import (
	"github.com/huangsam/pulse/core"
	"github.com/huangsam/pulse/internal/contract"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// inventoryCmd counts test cases and ignored tests without calling git.
var inventoryCmd = &cobra.Command{
	Use:   "inventory",
	Short: "Count test classes, cases and ignored tests per project",
	Long: `Walk the same files as the authorship command and report, for every project,
how many test classes and cases exist and how many cases carry an ignore marker.

No git calls are made, so inventory is fast and works outside a repository.

Examples:
  # Inventory every configured project
  pulse inventory

  # One project as CSV
  pulse inventory --project mobile --output csv`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if err := viper.BindPFlag("project", cmd.Flags().Lookup("project")); err != nil {
			return err
		}
		return sharedSetupWrapper(cmd, args)
	},
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteInventory(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot run inventory", err)
		}
	},
}
