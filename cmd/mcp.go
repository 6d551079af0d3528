package cmd

import (
	"github.com/huangsam/pulse/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the pulse MCP server",
	Long:  `Launch an MCP server on stdio that lets AI agents query test authorship, inventory and commit deltas.`,
	// Tool handlers suppress headers and progress because stdout carries the protocol.
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcp.StartMCPServer(rootCtx, cfg, cacheManager)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
