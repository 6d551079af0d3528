package cmd

import (
	"cmp"
	"fmt"
	"os"

	"github.com/huangsam/pulse/internal/contract"
	"github.com/huangsam/pulse/internal/iocache"
	"github.com/huangsam/pulse/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// readHistoryBackend loads the config file and validates the history backend settings.
func readHistoryBackend() (schema.DatabaseBackend, string, error) {
	if err := loadConfigFile(); err != nil {
		return "", "", err
	}

	backend := storeBackend("history-backend")
	connStr := viper.GetString("history-db-connect")
	if _, ok := schema.ValidDatabaseBackends[backend]; !ok {
		return "", "", fmt.Errorf("invalid history backend '%s'. must be sqlite, mysql, postgresql, none", backend)
	}
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return "", "", err
	}
	return backend, connStr, nil
}

// historySetup loads minimal configuration needed for history operations.
// This is used by commands that need history access without full shared setup.
func historySetup() error {
	backend, connStr, err := readHistoryBackend()
	if err != nil {
		return err
	}

	// No blame caching for history commands
	if err := iocache.InitStores(schema.NoneBackend, "", backend, connStr); err != nil {
		return fmt.Errorf("failed to initialize run history: %w", err)
	}

	cfg.HistoryBackend = backend
	cfg.HistoryDBConnect = connStr
	cfg.OutputFile = viper.GetString("output-file")

	return nil
}

// historySetupWrapper wraps historySetup to provide PreRunE for history commands.
func historySetupWrapper(_ *cobra.Command, _ []string) error {
	return historySetup()
}

// historyMigrateSetup loads the history settings without opening the store,
// so migrations can run on a fresh database.
func historyMigrateSetup(_ *cobra.Command, _ []string) error {
	backend, connStr, err := readHistoryBackend()
	if err != nil {
		return err
	}
	if backend == schema.SQLiteBackend && connStr == "" {
		connStr = contract.GetHistoryDBFilePath()
	}

	cfg.HistoryBackend = backend
	cfg.HistoryDBConnect = connStr

	return nil
}

// historyCmd focused on run history management.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage recorded authorship runs and exports",
	Long: `Manage the history of authorship runs.

When a history backend is configured, every authorship run stores:
- Run metadata (start, end, duration, configuration)
- Every attributed test with its project, author, type and date

This enables tracking how the suite and its authorship change over time, and
exporting the data for BI tools.

Supported backends: SQLite, MySQL, PostgreSQL, or None (default, disabled)

Subcommands:
  status  - Show run history statistics
  export  - Export data to Parquet for analytics
  clear   - Remove all recorded runs
  migrate - Run database schema migrations

Examples:
  # Check history status
  pulse history status --history-backend sqlite

  # Export for analysis in pandas/DuckDB
  pulse history export --history-backend sqlite --output-file pulse-data`,
}

// historyClearCmd clears the run history.
var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all recorded authorship runs",
	Long: `Delete all recorded runs and their test records.

WARNING: This action cannot be undone. Consider exporting data first.

For SQLite: Deletes the database file
For MySQL/PostgreSQL: Drops the history tables

Examples:
  # Export before clearing
  pulse history export --history-backend sqlite --output-file backup
  pulse history clear --history-backend sqlite`,
	PreRunE: historySetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		iocache.CloseStores()
		if err := iocache.ClearHistory(cfg.HistoryBackend, cmp.Or(cfg.HistoryDBConnect, contract.GetHistoryDBFilePath()), cfg.HistoryDBConnect); err != nil {
			contract.LogFatal("Failed to clear run history", err)
		}
		fmt.Println("Run history cleared successfully.")
	},
}

// historyStatusCmd shows run history status.
var historyStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display run history statistics and connection details",
	Long: `Show the backend, connection state, number of runs, newest and oldest run,
total tests recorded and the row count of every history table.

Examples:
  # Check run history status
  pulse history status --history-backend sqlite`,
	PreRunE: historySetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		status, err := iocache.HistoryStatusOf(iocache.Manager)
		if err != nil {
			contract.LogFatal("Failed to get run history status", err)
		}
		iocache.PrintHistoryStatus(os.Stdout, status)
	},
}

// historyExportCmd exports run history to Parquet files.
var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export run history to Parquet for BI tools and analytics",
	Long: `Export all recorded runs to Parquet format for use with analytics tools.

Writes two files next to --output-file:
- <output-file>.runs.parquet - one row per authorship run
- <output-file>.test_records.parquet - one row per attributed test per run

Requires: --output-file parameter

Examples:
  # Export all data
  pulse history export --history-backend sqlite --output-file pulse-data

  # Use with DuckDB for analysis
  duckdb -c "SELECT author, count(*) FROM read_parquet('pulse-data.test_records.parquet') GROUP BY author"`,
	PreRunE: historySetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iocache.ExecuteHistoryExport(cfg.OutputFile); err != nil {
			contract.LogFatal("Failed to export run history", err)
		}
	},
}

// historyMigrateCmd runs database migrations for the history store.
var historyMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage database schema versions for the run history store.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  pulse history migrate --history-backend sqlite

  # Migrate to specific version
  pulse history migrate --history-backend sqlite --target-version 1

  # Roll back everything
  pulse history migrate --history-backend sqlite --target-version 0`,
	PreRunE: historyMigrateSetup,
	Run: func(_ *cobra.Command, _ []string) {
		targetVersion := viper.GetInt("target-version")
		result, err := iocache.MigrateHistory(cfg.HistoryBackend, cfg.HistoryDBConnect, targetVersion)
		if err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
		if !result.Changed {
			fmt.Printf("Run history schema already at version %d.\n", result.ToVersion)
			return
		}
		fmt.Printf("Migrated run history schema from version %d to %d.\n", result.FromVersion, result.ToVersion)
	},
}
