// Package outwriter has output and writer logic.
package outwriter

import (
	"fmt"
	"os"
	"strings"

	"github.com/huangsam/pulse/internal/contract"
	"golang.org/x/term"
)

// Column budgets reserved next to the variable-width column of each table.
const (
	recentFixedWidth    = 45 // Date + Author + Project with borders/padding
	ignoredFixedWidth   = 30 // Project + Method with borders/padding
	deltasFixedWidth    = 55 // From + To + Repo + Commits with borders/padding
	minVariableWidth    = 15
	maxVariableWidth    = 70
	defaultTermWidth    = 80
	maxAuthorsInSummary = 3
)

// terminalWidth returns the configured width, the detected terminal width
// or a conservative default.
func terminalWidth(cfg *contract.Config) int {
	if cfg.Width > 0 {
		return cfg.Width
	}
	detected, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || detected <= 0 {
		return defaultTermWidth
	}
	return detected
}

// GetMaxTablePathWidth calculates the width left for the variable column of
// a table once fixed columns have taken their share.
func GetMaxTablePathWidth(cfg *contract.Config, fixed int) int {
	// Reserve generous space for table borders, separators, and padding
	available := terminalWidth(cfg) - fixed - 20
	if available < minVariableWidth {
		return minVariableWidth
	}
	if available > maxVariableWidth {
		return maxVariableWidth
	}
	return available
}

// healthLabel renders the ignored-test label, colored when colors are enabled.
func healthLabel(cfg *contract.Config, pct float64) string {
	if cfg.UseColors {
		return contract.GetColorLabel(pct)
	}
	return contract.GetPlainLabel(pct)
}

// share formats count as a percentage of total.
func share(count, total int) string {
	if total == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(count)*100/float64(total))
}

// truncateText shortens free text to width runes with a trailing ellipsis.
func truncateText(s string, width int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= width || width <= 3 {
		return string(r)
	}
	return string(r[:width-3]) + "..."
}
