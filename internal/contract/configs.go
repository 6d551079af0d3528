package contract

import (
	"cmp"
	"errors"
	"fmt"
	"maps"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/huangsam/pulse/core/identity"
	"github.com/huangsam/pulse/schema"
)

// Default values for configuration.
const (
	DefaultResultLimit       = 25
	MaxResultLimit           = 1000
	DefaultSearchWindow      = 10
	MaxSearchWindow          = 100
	DefaultJavaStartOffset   = 1
	DefaultKotlinStartOffset = 0
	DefaultBlameTimeout      = 30 * time.Second
	DefaultIndexFile         = "test_results_index.json"
	DefaultDeltasOutputFile  = "commit_deltas.json"
)

// DefaultWorkers is the default number of concurrent workers to use.
var DefaultWorkers = runtime.GOMAXPROCS(0)

// DefaultMarkers are the annotations that introduce a test method.
var DefaultMarkers = []string{"@Test", "@InjectedTest"}

// DefaultIgnoreMarkers are the annotations that disable a test method.
var DefaultIgnoreMarkers = []string{"@Ignore", "@Disabled"}

// DefaultSubpaths are the project-relative directories searched for tests.
var DefaultSubpaths = []string{"src/test", "tests", "src/main/test"}

// ProfileConfig holds profiling settings.
type ProfileConfig struct {
	Enabled bool
	Prefix  string
}

// ProjectSpec describes one project whose tests are attributed.
type ProjectSpec struct {
	Name     string
	Root     string
	TestType schema.TestType
	Subpaths []string
	Synonyms map[string]string // formatted alias -> canonical, global entries merged with project entries
}

// RepoSpec describes a repository tracked by the commit deltas.
type RepoSpec struct {
	Name      string
	Path      string
	HashField string
}

// DeltasConfig holds the commit deltas settings.
type DeltasConfig struct {
	ResultsDir string
	IndexFile  string
	OutputFile string
	Fetch      bool
	Repos      []RepoSpec
}

// Config holds the runtime configuration.
// This struct remains the "final, validated" config.
type Config struct {
	Projects []ProjectSpec
	Synonyms map[string]string
	Excludes []string

	Markers           []string
	IgnoreMarkers     []string
	SearchWindow      int
	JavaStartOffset   int
	KotlinStartOffset int
	BlameTimeout      time.Duration
	Workers           int

	Output      schema.OutputMode
	OutputFile  string
	ResultLimit int
	Width       int // Terminal width override (0 = auto-detect)
	UseColors   bool
	Verbose     bool

	AuthorFilter  string
	ProjectFilter string
	Since         string // YYYY-MM, inclusive
	Until         string // YYYY-MM, inclusive

	ExecutionMetadataPath string

	CacheBackend   schema.DatabaseBackend
	CacheDBConnect string // Please use env var as this is plaintext

	HistoryBackend   schema.DatabaseBackend
	HistoryDBConnect string // Please use env var as this is plaintext

	Deltas DeltasConfig
}

// WithResultsDir returns a copy reading from another results directory. The
// output file moves along with it, next to the new directory.
func (d DeltasConfig) WithResultsDir(dir string) DeltasConfig {
	out := d
	out.Repos = slices.Clone(d.Repos)
	out.ResultsDir = dir
	out.OutputFile = filepath.Join(dir, "..", filepath.Base(d.OutputFile))
	return out
}

// SynonymRawInput is one alias entry from the YAML config file.
type SynonymRawInput struct {
	Alias     string `mapstructure:"alias"`
	Canonical string `mapstructure:"canonical"`
}

// ProjectRawInput is one project entry from the YAML config file.
type ProjectRawInput struct {
	Name     string            `mapstructure:"name"`
	Root     string            `mapstructure:"root"`
	TestType string            `mapstructure:"test-type"`
	Subpaths []string          `mapstructure:"subpaths"`
	Synonyms []SynonymRawInput `mapstructure:"synonyms"`
}

// RepoRawInput is one repository entry of the deltas section.
type RepoRawInput struct {
	Name      string `mapstructure:"name"`
	Path      string `mapstructure:"path"`
	HashField string `mapstructure:"hash-field"`
}

// DeltasRawInput holds the deltas section of the YAML config file.
type DeltasRawInput struct {
	ResultsDir string         `mapstructure:"results-dir"`
	IndexFile  string         `mapstructure:"index-file"`
	OutputFile string         `mapstructure:"output-file"`
	Fetch      bool           `mapstructure:"fetch"`
	Repos      []RepoRawInput `mapstructure:"repos"`
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// --- Sections of the config file ---
	Projects      []ProjectRawInput `mapstructure:"projects"`
	Synonyms      []SynonymRawInput `mapstructure:"synonyms"`
	Markers       []string          `mapstructure:"markers"`
	IgnoreMarkers []string          `mapstructure:"ignore-markers"`
	Deltas        DeltasRawInput    `mapstructure:"deltas"`

	// --- Fields from rootCmd.PersistentFlags() ---
	Exclude           string        `mapstructure:"exclude"`
	SearchWindow      int           `mapstructure:"search-window"`
	JavaStartOffset   int           `mapstructure:"java-start-offset"`
	KotlinStartOffset int           `mapstructure:"kotlin-start-offset"`
	BlameTimeout      time.Duration `mapstructure:"blame-timeout"`
	Workers           int           `mapstructure:"workers"`
	Output            string        `mapstructure:"output"`
	OutputFile        string        `mapstructure:"output-file"`
	Limit             int           `mapstructure:"limit"`
	Width             int           `mapstructure:"width"`
	Color             string        `mapstructure:"color"`
	Verbose           bool          `mapstructure:"verbose"`
	CacheBackend      string        `mapstructure:"cache-backend"`
	CacheDBConnect    string        `mapstructure:"cache-db-connect"`
	HistoryBackend    string        `mapstructure:"history-backend"`
	HistoryDBConnect  string        `mapstructure:"history-db-connect"`

	// --- Fields from authorshipCmd.Flags() ---
	Author            string `mapstructure:"author"`
	Project           string `mapstructure:"project"`
	Since             string `mapstructure:"since"`
	Until             string `mapstructure:"until"`
	ExecutionMetadata string `mapstructure:"execution-metadata"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Excludes = slices.Clone(c.Excludes)
	clone.Markers = slices.Clone(c.Markers)
	clone.IgnoreMarkers = slices.Clone(c.IgnoreMarkers)
	clone.Synonyms = maps.Clone(c.Synonyms)
	if c.Projects != nil {
		clone.Projects = make([]ProjectSpec, len(c.Projects))
		for i, p := range c.Projects {
			p.Subpaths = slices.Clone(p.Subpaths)
			p.Synonyms = maps.Clone(p.Synonyms)
			clone.Projects[i] = p
		}
	}
	clone.Deltas.Repos = slices.Clone(c.Deltas.Repos)
	return &clone
}

// ProjectByName returns the project with the given name.
func (c *Config) ProjectByName(name string) (ProjectSpec, bool) {
	for _, p := range c.Projects {
		if p.Name == name {
			return p, true
		}
	}
	return ProjectSpec{}, false
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := validateExtractorInputs(cfg, input); err != nil {
		return err
	}
	if err := validateViewFilters(cfg, input); err != nil {
		return err
	}
	if err := validateBackendConfigs(cfg, input); err != nil {
		return err
	}
	if err := processSynonyms(cfg, input); err != nil {
		return err
	}
	if err := processProjects(cfg, input); err != nil {
		return err
	}
	return processDeltas(cfg, input)
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// ValidateDeltas checks that the deltas section can drive a deltas run.
func ValidateDeltas(d DeltasConfig) error {
	if d.ResultsDir == "" {
		return errors.New("deltas results directory is required (--results-dir or deltas.results-dir)")
	}
	if len(d.Repos) == 0 {
		return errors.New("at least one repository must be configured under deltas.repos")
	}
	return nil
}

// validateSimpleInputs processes and validates output and worker settings.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.OutputFile = input.OutputFile
	cfg.Width = input.Width
	cfg.Verbose = input.Verbose
	SetVerbose(input.Verbose)

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	if input.Limit <= 0 || input.Limit > MaxResultLimit {
		return fmt.Errorf("limit must be greater than 0 and cannot exceed %d (received %d)", MaxResultLimit, input.Limit)
	}
	cfg.ResultLimit = input.Limit

	if input.Workers <= 0 {
		return fmt.Errorf("workers must be greater than 0 (received %d)", input.Workers)
	}
	cfg.Workers = input.Workers

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json, parquet", input.Output)
	}
	if cfg.Output == schema.ParquetOut && cfg.OutputFile == "" {
		return errors.New("--output-file is required for parquet output")
	}

	cfg.Excludes = nil
	if input.Exclude != "" {
		for p := range strings.SplitSeq(input.Exclude, ",") {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				cfg.Excludes = append(cfg.Excludes, trimmed)
			}
		}
	}
	return nil
}

// validateExtractorInputs validates marker and search window settings.
func validateExtractorInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.Markers = cleanMarkers(input.Markers, DefaultMarkers)
	cfg.IgnoreMarkers = cleanMarkers(input.IgnoreMarkers, DefaultIgnoreMarkers)
	for _, m := range append(slices.Clone(cfg.Markers), cfg.IgnoreMarkers...) {
		if !strings.HasPrefix(m, "@") || len(m) < 2 {
			return fmt.Errorf("invalid marker %q. markers must look like @Name", m)
		}
	}

	if input.SearchWindow < 1 || input.SearchWindow > MaxSearchWindow {
		return fmt.Errorf("search-window must be between 1 and %d (received %d)", MaxSearchWindow, input.SearchWindow)
	}
	cfg.SearchWindow = input.SearchWindow

	for name, offset := range map[string]int{
		"java-start-offset":   input.JavaStartOffset,
		"kotlin-start-offset": input.KotlinStartOffset,
	} {
		if offset < 0 || offset > cfg.SearchWindow {
			return fmt.Errorf("%s must be between 0 and search-window (received %d)", name, offset)
		}
	}
	cfg.JavaStartOffset = input.JavaStartOffset
	cfg.KotlinStartOffset = input.KotlinStartOffset

	if input.BlameTimeout <= 0 {
		return fmt.Errorf("blame-timeout must be positive (received %s)", input.BlameTimeout)
	}
	cfg.BlameTimeout = input.BlameTimeout
	return nil
}

// cleanMarkers trims marker entries and falls back to defaults when none are given.
func cleanMarkers(raw []string, defaults []string) []string {
	var out []string
	for _, m := range raw {
		if m = strings.TrimSpace(m); m != "" && !slices.Contains(out, m) {
			out = append(out, m)
		}
	}
	if len(out) == 0 {
		return slices.Clone(defaults)
	}
	return out
}

// validateViewFilters validates the snapshot filters.
func validateViewFilters(cfg *Config, input *ConfigRawInput) error {
	cfg.AuthorFilter = strings.TrimSpace(input.Author)
	cfg.ProjectFilter = strings.TrimSpace(input.Project)
	cfg.ExecutionMetadataPath = strings.TrimSpace(input.ExecutionMetadata)

	for flag, value := range map[string]string{"since": input.Since, "until": input.Until} {
		if value == "" {
			continue
		}
		if _, err := time.Parse(schema.MonthLayout, value); err != nil {
			return fmt.Errorf("invalid --%s value %q. Expected YYYY-MM", flag, value)
		}
	}
	cfg.Since = input.Since
	cfg.Until = input.Until
	if cfg.Since != "" && cfg.Until != "" && cfg.Since > cfg.Until {
		return fmt.Errorf("since (%s) cannot be after until (%s)", cfg.Since, cfg.Until)
	}
	return nil
}

// validateBackendConfigs validates cache and history backend configurations.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	// --- Cache Backend Validation ---
	cfg.CacheBackend = schema.DatabaseBackend(strings.ToLower(input.CacheBackend))
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = schema.NoneBackend
	}
	if _, ok := schema.ValidDatabaseBackends[cfg.CacheBackend]; !ok {
		return fmt.Errorf("invalid cache backend '%s'. must be sqlite, mysql, postgresql, none", input.CacheBackend)
	}
	cfg.CacheDBConnect = input.CacheDBConnect
	if err := ValidateDatabaseConnectionString(cfg.CacheBackend, cfg.CacheDBConnect); err != nil {
		return err
	}

	// --- History Backend Validation ---
	cfg.HistoryBackend = schema.DatabaseBackend(strings.ToLower(input.HistoryBackend))
	if cfg.HistoryBackend == "" {
		return nil
	}
	if _, ok := schema.ValidDatabaseBackends[cfg.HistoryBackend]; !ok {
		return fmt.Errorf("invalid history backend '%s'. must be sqlite, mysql, postgresql, none", input.HistoryBackend)
	}
	cfg.HistoryDBConnect = input.HistoryDBConnect
	if err := ValidateDatabaseConnectionString(cfg.HistoryBackend, cfg.HistoryDBConnect); err != nil {
		return err
	}

	// Cache and history must not share a SQLite file
	if cfg.CacheBackend == schema.SQLiteBackend && cfg.HistoryBackend == schema.SQLiteBackend {
		cachePath := cfg.CacheDBConnect
		if cachePath == "" {
			cachePath = GetCacheDBFilePath()
		}
		historyPath := cfg.HistoryDBConnect
		if historyPath == "" {
			historyPath = GetHistoryDBFilePath()
		}
		if cachePath == historyPath {
			return fmt.Errorf("cache and history storage must use different SQLite database files. Both resolve to %q", cachePath)
		}
	}
	return nil
}

// processSynonyms builds the global alias table.
func processSynonyms(cfg *Config, input *ConfigRawInput) error {
	table, err := buildSynonymTable(input.Synonyms)
	if err != nil {
		return fmt.Errorf("invalid synonyms: %w", err)
	}
	cfg.Synonyms = table
	return nil
}

// buildSynonymTable converts raw alias entries into a map keyed by the
// formatted alias, the form author names are matched in. Two entries whose
// aliases format alike must agree on the canonical name.
func buildSynonymTable(entries []SynonymRawInput) (map[string]string, error) {
	table := make(map[string]string, len(entries))
	for _, e := range entries {
		alias := identity.Format(e.Alias)
		canonical := strings.TrimSpace(e.Canonical)
		if alias == "" || canonical == "" {
			return nil, fmt.Errorf("synonym entries need both alias and canonical (got %q -> %q)", e.Alias, e.Canonical)
		}
		if prev, ok := table[alias]; ok && prev != canonical {
			return nil, fmt.Errorf("alias %q maps to both %q and %q", alias, prev, canonical)
		}
		table[alias] = canonical
	}
	return table, nil
}

// processProjects validates project entries and resolves their paths.
func processProjects(cfg *Config, input *ConfigRawInput) error {
	cfg.Projects = make([]ProjectSpec, 0, len(input.Projects))
	seen := make(map[string]struct{}, len(input.Projects))

	for i, raw := range input.Projects {
		name := strings.TrimSpace(raw.Name)
		if name == "" {
			return fmt.Errorf("project #%d has no name", i+1)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("project %q is defined more than once", name)
		}
		seen[name] = struct{}{}

		if strings.TrimSpace(raw.Root) == "" {
			return fmt.Errorf("project %q has no root directory", name)
		}
		root, err := ExpandHome(strings.TrimSpace(raw.Root))
		if err != nil {
			return err
		}
		root, err = filepath.Abs(root)
		if err != nil {
			return fmt.Errorf("project %q: %w", name, err)
		}

		testType := schema.TestType(strings.ToLower(strings.TrimSpace(raw.TestType)))
		if _, ok := schema.ValidTestTypes[testType]; !ok {
			return fmt.Errorf("project %q has invalid test-type '%s'. must be integration, unit", name, raw.TestType)
		}

		subpaths := make([]string, 0, len(raw.Subpaths))
		for _, sp := range raw.Subpaths {
			if sp = strings.TrimSpace(sp); sp != "" {
				subpaths = append(subpaths, filepath.Clean(sp))
			}
		}
		if len(subpaths) == 0 {
			subpaths = slices.Clone(DefaultSubpaths)
		}

		local, err := buildSynonymTable(raw.Synonyms)
		if err != nil {
			return fmt.Errorf("project %q has invalid synonyms: %w", name, err)
		}
		synonyms := maps.Clone(cfg.Synonyms)
		if synonyms == nil {
			synonyms = make(map[string]string, len(local))
		}
		maps.Copy(synonyms, local)

		cfg.Projects = append(cfg.Projects, ProjectSpec{
			Name:     name,
			Root:     root,
			TestType: testType,
			Subpaths: subpaths,
			Synonyms: synonyms,
		})
	}

	if cfg.ProjectFilter != "" {
		if _, ok := cfg.ProjectByName(cfg.ProjectFilter); !ok {
			return fmt.Errorf("unknown project '%s'", cfg.ProjectFilter)
		}
	}
	return nil
}

// processDeltas resolves the deltas section. Completeness is checked by ValidateDeltas
// when a deltas run actually starts.
func processDeltas(cfg *Config, input *ConfigRawInput) error {
	d := DeltasConfig{
		IndexFile:  input.Deltas.IndexFile,
		OutputFile: input.Deltas.OutputFile,
		Fetch:      input.Deltas.Fetch,
	}
	if d.IndexFile == "" {
		d.IndexFile = DefaultIndexFile
	}
	if d.OutputFile == "" {
		d.OutputFile = DefaultDeltasOutputFile
	}
	if input.Deltas.ResultsDir != "" {
		dir, err := ExpandHome(input.Deltas.ResultsDir)
		if err != nil {
			return err
		}
		d.ResultsDir = dir
	}
	if d.ResultsDir != "" && !filepath.IsAbs(d.OutputFile) {
		d.OutputFile = filepath.Join(d.ResultsDir, "..", d.OutputFile)
	}

	names := make(map[string]struct{}, len(input.Deltas.Repos))
	for _, r := range input.Deltas.Repos {
		name := strings.TrimSpace(r.Name)
		if name == "" || strings.TrimSpace(r.Path) == "" {
			return errors.New("every deltas repository needs a name and a path")
		}
		if _, dup := names[name]; dup {
			return fmt.Errorf("deltas repository %q is defined more than once", name)
		}
		names[name] = struct{}{}
		path, err := ExpandHome(strings.TrimSpace(r.Path))
		if err != nil {
			return err
		}
		hashField := strings.TrimSpace(r.HashField)
		if hashField == "" {
			hashField = name + "_commit_hash"
		}
		d.Repos = append(d.Repos, RepoSpec{Name: name, Path: path, HashField: hashField})
	}
	cfg.Deltas = d
	return nil
}

// RevalidateView applies new snapshot filters to an already validated config.
// Empty arguments keep the current values. MCP tool calls use it.
func RevalidateView(cfg *Config, author, project, since, until string) error {
	input := &ConfigRawInput{
		Author:            cmp.Or(author, cfg.AuthorFilter),
		Project:           cmp.Or(project, cfg.ProjectFilter),
		Since:             cmp.Or(since, cfg.Since),
		Until:             cmp.Or(until, cfg.Until),
		ExecutionMetadata: cfg.ExecutionMetadataPath,
	}
	if err := validateViewFilters(cfg, input); err != nil {
		return err
	}
	if cfg.ProjectFilter != "" {
		if _, ok := cfg.ProjectByName(cfg.ProjectFilter); !ok {
			return fmt.Errorf("unknown project '%s'", cfg.ProjectFilter)
		}
	}
	return nil
}

// ProcessProfilingConfig handles the profiling flag and sets up profiling configuration.
func ProcessProfilingConfig(profile *ProfileConfig, profilePrefix string) error {
	profilePrefix = strings.TrimSpace(profilePrefix)
	if profilePrefix == "" {
		return nil
	}
	if strings.HasSuffix(profilePrefix, string(filepath.Separator)) {
		return fmt.Errorf("profile prefix %q must name a file, not a directory", profilePrefix)
	}
	profile.Enabled = true
	profile.Prefix = profilePrefix
	return nil
}
