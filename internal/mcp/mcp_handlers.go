package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/huangsam/pulse/core"
	"github.com/huangsam/pulse/internal/contract"
	"github.com/huangsam/pulse/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	mgr     contract.CacheManager
}

// authorshipResponse is a compact view of an authorship run.
type authorshipResponse struct {
	ExecutionTime     string                    `json:"execution_time,omitempty"`
	TestBranch        string                    `json:"test_branch,omitempty"`
	TotalTests        int                       `json:"total_tests"`
	FilesScanned      int                       `json:"files_scanned"`
	FilesFailed       int                       `json:"files_failed"`
	AuthorTestCount   schema.AuthorCounts       `json:"author_test_count"`
	MonthlyAggregates []schema.MonthlyAggregate `json:"monthly_aggregates"`
	RecentTests       []schema.TestRecord       `json:"recent_tests"`
}

func (h *toolHandler) handleGetTestAuthorship(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.baseCfg.Clone()
	err := contract.RevalidateView(cfg,
		request.GetString("author", ""),
		request.GetString("project", ""),
		request.GetString("since", ""),
		request.GetString("until", ""),
	)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid authorship parameters: %v", err)), nil
	}
	if l := request.GetInt("limit", 0); l > 0 {
		cfg.ResultLimit = l
	}

	output, err := core.GetAuthorshipResults(core.WithSuppressHeader(ctx), cfg, h.mgr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("authorship failed: %v", err)), nil
	}

	result := output.Result()
	authors := result.AuthorTestCount
	if len(authors) > cfg.ResultLimit {
		authors = authors[:cfg.ResultLimit]
	}
	return jsonResult(authorshipResponse{
		ExecutionTime:     result.ExecutionTime,
		TestBranch:        result.TestBranch,
		TotalTests:        output.Snapshot.Total(),
		FilesScanned:      output.Summary.FilesScanned,
		FilesFailed:       output.Summary.FilesFailed,
		AuthorTestCount:   authors,
		MonthlyAggregates: result.MonthlyAggregates,
		RecentTests:       output.Snapshot.Recent(cfg.ResultLimit),
	})
}

func (h *toolHandler) handleGetTestInventory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.baseCfg.Clone()
	if err := contract.RevalidateView(cfg, "", request.GetString("project", ""), "", ""); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid inventory parameters: %v", err)), nil
	}

	inventories, err := core.GetInventoryResults(core.WithSuppressHeader(ctx), cfg)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("inventory failed: %v", err)), nil
	}
	return jsonResult(inventories)
}

func (h *toolHandler) handleGetCommitDeltas(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.baseCfg.Clone()
	if dir := request.GetString("results_dir", ""); dir != "" {
		expanded, err := contract.ExpandHome(dir)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid results_dir: %v", err)), nil
		}
		cfg.Deltas = cfg.Deltas.WithResultsDir(expanded)
	}

	result, err := core.GetDeltasResults(core.WithSuppressHeader(ctx), cfg)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("commit deltas failed: %v", err)), nil
	}
	return jsonResult(result.Deltas)
}

// jsonResult encodes v as an indented text result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}
