// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/pulse/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the Pulse MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, mgr contract.CacheManager) *server.MCPServer {
	s := server.NewMCPServer(
		"Pulse Test Authorship Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		mgr:     mgr,
	}

	// --- 1. Tool: get_test_authorship ---
	s.AddTool(mcp.NewTool("get_test_authorship",
		mcp.WithDescription("Attribute every detected test to the author who last touched its declaration, with per-author and per-month counts."),
		mcp.WithString("project", mcp.Description("Only count tests of this configured project.")),
		mcp.WithString("author", mcp.Description("Only count tests of this canonical author.")),
		mcp.WithString("since", mcp.Description("First month to include (YYYY-MM).")),
		mcp.WithString("until", mcp.Description("Last month to include (YYYY-MM).")),
		mcp.WithNumber("limit", mcp.Description("Limit the number of authors and recent tests returned.")),
	), h.handleGetTestAuthorship)

	// --- 2. Tool: get_test_inventory ---
	s.AddTool(mcp.NewTool("get_test_inventory",
		mcp.WithDescription("Count test classes, test cases and ignored tests per project without consulting git."),
		mcp.WithString("project", mcp.Description("Only inventory this configured project.")),
	), h.handleGetTestInventory)

	// --- 3. Tool: get_commit_deltas ---
	s.AddTool(mcp.NewTool("get_commit_deltas",
		mcp.WithDescription("List the commits of each tracked repository that landed between consecutive test executions."),
		mcp.WithString("results_dir", mcp.Description("Directory holding the test results index (defaults to the configured one).")),
	), h.handleGetCommitDeltas)

	return s
}

// StartMCPServer starts the Pulse MCP server on stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, mgr contract.CacheManager) error {
	s := NewMCPServer(baseCfg, mgr)
	return server.ServeStdio(s)
}
