// Package core runs the pulse commands: test authorship attribution, test
// inventory and commit deltas. Executors print results; the Get*Results
// functions return them for the MCP server.
package core

import (
	"context"

	"github.com/huangsam/pulse/internal/contract"
)

// ExecutorFunc is the signature shared by every command executor.
type ExecutorFunc func(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error

var (
	_ ExecutorFunc = ExecuteAuthorship
	_ ExecutorFunc = ExecuteInventory
	_ ExecutorFunc = ExecuteDeltas
)
