// Package main benchmarks the pulse CLI against real test suites.
// Every config file names one suite. Authorship runs once per phase without the
// blame cache and then with a SQLite cache, where the first successful run is cold
// and the rest are averaged as warm. Inventory makes no git calls, so it only
// runs in the no-cache phase. Results go to a timestamped CSV file.
//
// Prerequisites:
// - pulse binary installed and available in PATH
// - one .pulse.yaml per suite, with project roots that already exist
//
// Usage: go run benchmark/main.go config.yaml [config.yaml...]
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// BenchmarkResult holds the timings of one command on one suite.
type BenchmarkResult struct {
	Suite       string
	Command     string
	NoCacheTime string
	ColdTime    string
	WarmTime    string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	ConfigFiles []string
	Timeout     time.Duration
	Workers     int
	NoCacheRuns int
	CacheRuns   int
}

func main() {
	if len(os.Args) < 2 {
		fmt.Printf("Usage: %s config.yaml [config.yaml...]\n", os.Args[0])
		os.Exit(1)
	}

	config := BenchmarkConfig{
		ConfigFiles: os.Args[1:],
		Timeout:     10 * time.Minute,
		Workers:     14,
		NoCacheRuns: 3,
		CacheRuns:   4,
	}

	if err := checkPrerequisites(config); err != nil {
		fmt.Printf("Prerequisites check failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Clearing cache...\n")
	clearCmd := exec.Command("pulse", "cache", "clear", "--cache-backend", "sqlite")
	if output, err := clearCmd.CombinedOutput(); err != nil {
		fmt.Printf("Warning: failed to clear cache: %v\nOutput: %s\n", err, string(output))
	}

	results := runBenchmarks(config)

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(results)
}

// checkPrerequisites verifies that the pulse binary and config files exist.
func checkPrerequisites(config BenchmarkConfig) error {
	if _, err := exec.LookPath("pulse"); err != nil {
		return errors.New("pulse binary not found in PATH")
	}
	for _, path := range config.ConfigFiles {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("config file %s: %w", path, err)
		}
	}
	return nil
}

// suiteName derives a short label from a config file path.
func suiteName(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if base == ".pulse" || base == "" {
		return filepath.Base(filepath.Dir(path))
	}
	return strings.TrimPrefix(base, ".")
}

// runBenchmarks executes all benchmark commands for every suite.
func runBenchmarks(config BenchmarkConfig) []BenchmarkResult {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: %d suites, %v timeout, %d workers, no-cache: %d runs, cache: %d runs\n",
		len(config.ConfigFiles), config.Timeout, config.Workers, config.NoCacheRuns, config.CacheRuns)

	for _, path := range config.ConfigFiles {
		suite := suiteName(path)
		fmt.Printf("Benchmarking %s\n", suite)

		results = append(results, runBenchmarkSuite(config, suite, path, "authorship", true))
		results = append(results, runBenchmarkSuite(config, suite, path, "inventory", false))
	}

	return results
}

// runBenchmarkSuite runs the no-cache phase and, when cached, the cache phase.
func runBenchmarkSuite(config BenchmarkConfig, suite, configFile, command string, cached bool) BenchmarkResult {
	fmt.Printf("Running %s on %s\n", command, suite)

	runPhase := func(cacheBackend string, numRuns int, phaseName string) (coldTime float64, avgTime string) {
		fmt.Printf("  %s phase (%d runs)\n", phaseName, numRuns)
		cold, times := runBenchmark(config, configFile, command, cacheBackend, numRuns)
		if len(times) == 0 {
			return cold, "TIMEOUT"
		}
		var sum float64
		for _, t := range times {
			sum += t
		}
		return cold, fmt.Sprintf("%.3fs", sum/float64(len(times)))
	}

	result := BenchmarkResult{Suite: suite, Command: command, ColdTime: "-", WarmTime: "-"}
	noCacheCold, noCacheWarm := runPhase("none", config.NoCacheRuns, "No-cache")
	result.NoCacheTime = noCacheWarm
	if config.NoCacheRuns == 1 && noCacheCold > 0 {
		result.NoCacheTime = fmt.Sprintf("%.3fs", noCacheCold)
	}

	if cached {
		coldTime, warmAvg := runPhase("sqlite", config.CacheRuns, "Cache")
		result.ColdTime = "TIMEOUT"
		if coldTime > 0 {
			result.ColdTime = fmt.Sprintf("%.3fs", coldTime)
		}
		result.WarmTime = warmAvg
	}

	fmt.Printf("  No-cache average: %s, Cold time: %s, Warm average: %s\n", result.NoCacheTime, result.ColdTime, result.WarmTime)
	return result
}

// runBenchmark executes a pulse command several times and returns the cold time and warm times.
func runBenchmark(config BenchmarkConfig, configFile, command, cacheBackend string, numRuns int) (coldTime float64, warmTimes []float64) {
	args := []string{
		command,
		"--config", configFile,
		"--cache-backend", cacheBackend,
		"--workers", fmt.Sprint(config.Workers),
	}

	var times []float64
	for range numRuns {
		ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
		start := time.Now()
		output, err := exec.CommandContext(ctx, "pulse", args...).CombinedOutput()
		elapsed := time.Since(start).Seconds()
		cancel()
		if err == nil && isSuccess(output, command) {
			times = append(times, elapsed)
		}
	}

	if len(times) > 0 {
		coldTime = times[0]
		warmTimes = times[1:]
	}
	return coldTime, warmTimes
}

// isSuccess checks if command output indicates successful completion.
func isSuccess(output []byte, command string) bool {
	outputStr := string(output)
	if command == "inventory" {
		return strings.Contains(outputStr, "Inventoried")
	}
	return strings.Contains(outputStr, "Attributed") && strings.Contains(outputStr, "workers")
}

// saveResults writes benchmark results to a timestamped CSV file.
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(os.TempDir(), fmt.Sprintf("pulse_benchmark_%s.csv", timestamp))

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"suite", "cmd", "no_cache_avg", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, result := range results {
		if err := writer.Write([]string{result.Suite, result.Command, result.NoCacheTime, result.ColdTime, result.WarmTime}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary.
func printSummary(results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")
	for _, command := range []string{"authorship", "inventory"} {
		fmt.Printf("%s:\n", command)
		for _, result := range results {
			if result.Command == command {
				fmt.Printf("  %-12s: No-cache: %s, Cold: %s, Warm: %s\n", result.Suite, result.NoCacheTime, result.ColdTime, result.WarmTime)
			}
		}
	}
}
