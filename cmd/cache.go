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

// cacheSetup loads minimal configuration needed for cache operations.
// It skips project validation so cache commands work without a configured project.
func cacheSetup() error {
	if err := loadConfigFile(); err != nil {
		return err
	}

	backend := storeBackend("cache-backend")
	connStr := viper.GetString("cache-db-connect")
	if _, ok := schema.ValidDatabaseBackends[backend]; !ok {
		return fmt.Errorf("invalid cache backend '%s'. must be sqlite, mysql, postgresql, none", backend)
	}
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return err
	}

	// No history tracking for cache commands
	if err := iocache.InitStores(backend, connStr, schema.NoneBackend, ""); err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}

	cfg.CacheBackend = backend
	cfg.CacheDBConnect = connStr

	return nil
}

// cacheSetupWrapper wraps cacheSetup to provide PreRunE for cache commands.
func cacheSetupWrapper(_ *cobra.Command, _ []string) error {
	return cacheSetup()
}

// cacheCmd focused on blame cache management.
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the blame attribution cache (improves performance)",
	Long: `Manage the cache of resolved blame attributions.

Every resolved test declaration is cached under the repository HEAD, the file and
the line. Repeated runs on an unchanged checkout skip git blame entirely. Entries
expire after 7 days.

Supported backends: SQLite, MySQL, PostgreSQL, or None (default, disabled)

Subcommands:
  status - Show cache statistics and connection info
  clear  - Remove all cached data

Examples:
  # Check cache status
  pulse cache status --cache-backend sqlite

  # Clear cache after history was rewritten
  pulse cache clear --cache-backend sqlite`,
}

// cacheClearCmd clears the cache.
var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached blame attributions",
	Long: `Delete all cached blame attributions from the configured backend.

For SQLite: Deletes the database file
For MySQL/PostgreSQL: Drops the cache table

Examples:
  # Clear the SQLite cache
  pulse cache clear --cache-backend sqlite

  # Clear a MySQL cache (set connection string via env variable)
  PULSE_CACHE_BACKEND=mysql PULSE_CACHE_DB_CONNECT="..." pulse cache clear`,
	PreRunE: cacheSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		iocache.CloseStores()
		if err := iocache.ClearCache(cfg.CacheBackend, cmp.Or(cfg.CacheDBConnect, contract.GetCacheDBFilePath()), cfg.CacheDBConnect); err != nil {
			contract.LogFatal("Failed to clear cache", err)
		}
		fmt.Println("Cache cleared successfully.")
	},
}

// cacheStatusCmd shows cache status.
var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display cache statistics and connection details",
	Long: `Show the backend, connection state, entry count, newest and oldest entry and
the size of the blame cache.

Examples:
  # Check cache status
  pulse cache status --cache-backend sqlite`,
	PreRunE: cacheSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		status, err := iocache.CacheStatusOf(iocache.Manager)
		if err != nil {
			contract.LogFatal("Failed to get cache status", err)
		}
		iocache.PrintCacheStatus(os.Stdout, status)
	},
}
