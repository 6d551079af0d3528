// Package cmd defines the command-line interface for pulse.
package cmd

import (
	"github.com/huangsam/pulse/internal/contract"
	"github.com/huangsam/pulse/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(authorshipCmd)
	rootCmd.AddCommand(inventoryCmd)
	rootCmd.AddCommand(deltasCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(historyCmd)

	// Add the cache subcommands to the parent cache command
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatusCmd)

	// Add the history subcommands to the parent history command
	historyCmd.AddCommand(historyClearCmd)
	historyCmd.AddCommand(historyStatusCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("exclude", "", "Comma-separated list of path prefixes or patterns to ignore")
	rootCmd.PersistentFlags().Int("search-window", contract.DefaultSearchWindow, "Lines searched after a test marker for the method declaration")
	rootCmd.PersistentFlags().Int("java-start-offset", contract.DefaultJavaStartOffset, "Offset from a Java marker where the search window starts")
	rootCmd.PersistentFlags().Int("kotlin-start-offset", contract.DefaultKotlinStartOffset, "Offset from a Kotlin marker where the search window starts")
	rootCmd.PersistentFlags().Duration("blame-timeout", contract.DefaultBlameTimeout, "Timeout for a single git blame call")
	rootCmd.PersistentFlags().Int("workers", contract.DefaultWorkers, "Number of concurrent workers")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json or parquet")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().IntP("limit", "l", contract.DefaultResultLimit, "Number of rows to display in tables")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Print informational log lines to stderr")
	rootCmd.PersistentFlags().String("cache-backend", string(schema.NoneBackend), "Blame cache backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("cache-db-connect", "", "Database connection string for mysql/postgresql (e.g., user:pass@tcp(host:port)/dbname)")
	rootCmd.PersistentFlags().String("history-backend", "", "Run history backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("history-db-connect", "", "Database connection string for run history (must differ from cache-db-connect)")
	rootCmd.PersistentFlags().String("profile", "", "Enable profiling and write profiles to files with this prefix")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of authorshipCmd to Viper
	authorshipCmd.Flags().String("author", "", "Only count tests attributed to this author")
	authorshipCmd.Flags().String("project", "", "Only count tests of this project")
	authorshipCmd.Flags().String("since", "", "First month to include (YYYY-MM)")
	authorshipCmd.Flags().String("until", "", "Last month to include (YYYY-MM)")
	authorshipCmd.Flags().String("execution-metadata", "", "JSON file with execution_end_time and test_branch")
	if err := viper.BindPFlags(authorshipCmd.Flags()); err != nil {
		contract.LogFatal("Error binding authorship flags", err)
	}

	// inventoryCmd shares the project key with authorshipCmd, so it binds in its PreRunE
	inventoryCmd.Flags().String("project", "", "Only report this project")

	// Deltas flags live under the deltas section of the config file
	deltasCmd.Flags().String("results-dir", "", "Directory holding the test results index and result files")
	deltasCmd.Flags().Bool("fetch", false, "Run git fetch in every repository before listing commits")
	for _, name := range []string{"results-dir", "fetch"} {
		if err := viper.BindPFlag("deltas."+name, deltasCmd.Flags().Lookup(name)); err != nil {
			contract.LogFatal("Error binding deltas flags", err)
		}
	}

	// Bind all flags of historyMigrateCmd to Viper
	historyMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(historyMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding history migrate flags", err)
	}
}
