package schema

// Custom string types for type safety.
type (
	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents the database backend for caching and run history.
	DatabaseBackend string

	// TestType classifies a project's tests.
	TestType string
)

// All output modes supported.
const (
	CSVOut     OutputMode = "csv"
	TextOut    OutputMode = "text" // default
	JSONOut    OutputMode = "json"
	ParquetOut OutputMode = "parquet"
)

// All database backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite"
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none" // default
)

// All test types supported.
const (
	IntegrationTest TestType = "integration"
	UnitTest        TestType = "unit"
)

// UnknownPackage is used when a file has no package declaration.
const UnknownPackage = "unknown/package"

// DateLayout is the layout of TestRecord timestamps.
const DateLayout = "2006-01-02"

// MonthLayout is the layout of monthly bucket keys.
const MonthLayout = "2006-01"

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:     {},
	TextOut:    {},
	JSONOut:    {},
	ParquetOut: {},
}

// ValidDatabaseBackends lists all valid database backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// ValidTestTypes lists all valid test types.
var ValidTestTypes = map[TestType]struct{}{
	IntegrationTest: {},
	UnitTest:        {},
}
