package outwriter

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/huangsam/pulse/internal/contract"
	"github.com/huangsam/pulse/schema"
)

// WriteInventoryResults outputs the test inventory, dispatching based on the output format configured.
func WriteInventoryResults(inventories []schema.ProjectInventory, cfg *contract.Config, duration time.Duration) error {
	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, inventories)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVResultsForInventory(w, inventories)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		return errors.New("parquet output is only available for authorship results")
	default:
		if err := writeInventoryTables(os.Stdout, inventories, cfg, duration); err != nil {
			return fmt.Errorf("error writing table output: %w", err)
		}
	}
	return nil
}

// writeCSVResultsForInventory writes one row per test case.
func writeCSVResultsForInventory(w io.Writer, inventories []schema.ProjectInventory) error {
	header := []string{"project", "class_name", "method_name", "ignored"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, inv := range inventories {
			for _, tc := range inv.TestCases {
				if err := cw.Write([]string{inv.ProjectName, tc.ClassName, tc.MethodName, strconv.FormatBool(tc.Ignored)}); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// writeInventoryTables prints per-project totals followed by the ignored tests.
func writeInventoryTables(w io.Writer, inventories []schema.ProjectInventory, cfg *contract.Config, duration time.Duration) error {
	var rows [][]string
	var ignored [][]string
	totalCases := 0
	width := GetMaxTablePathWidth(cfg, ignoredFixedWidth)

	for _, inv := range inventories {
		totalCases += inv.TotalCases
		rows = append(rows, []string{
			inv.ProjectName,
			strconv.Itoa(inv.TotalClasses),
			strconv.Itoa(inv.TotalCases),
			strconv.Itoa(inv.TotalIgnored),
			fmt.Sprintf("%.2f%%", inv.IgnoredPercentage),
			healthLabel(cfg, inv.IgnoredPercentage),
		})
		for _, tc := range inv.IgnoredTests {
			if len(ignored) >= cfg.ResultLimit {
				break
			}
			ignored = append(ignored, []string{inv.ProjectName, contract.TruncatePath(tc.ClassName, width), tc.MethodName})
		}
	}

	if err := renderTable(w, []string{"Project", "Classes", "Cases", "Ignored", "Ignored %", "Label"}, rows); err != nil {
		return err
	}
	if len(ignored) > 0 {
		_, _ = fmt.Fprintln(w, "🚫 Ignored tests")
		if err := renderTable(w, []string{"Project", "Class", "Method"}, ignored); err != nil {
			return err
		}
	}

	_, _ = fmt.Fprintf(w, "Inventoried %d tests across %d project(s) in %v\n", totalCases, len(inventories), duration.Round(time.Millisecond))
	return nil
}
