//go:build database

package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestPulseWithMySQL runs the store lifecycle against a MySQL backend.
func TestPulseWithMySQL(t *testing.T) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mysql:8",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": "secret123",
			"MYSQL_DATABASE":      "pulse",
		},
		WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").WithStartupTimeout(60 * time.Second),
	}
	mysqlC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer func() { _ = mysqlC.Terminate(ctx) }()

	host, err := mysqlC.Host(ctx)
	require.NoError(t, err)
	port, err := mysqlC.MappedPort(ctx, "3306")
	require.NoError(t, err)

	connStr := fmt.Sprintf("root:secret123@tcp(%s:%s)/pulse?parseTime=true", host, port.Port())
	runStoreLifecycle(t, "mysql", connStr)
}

// TestPulseWithPostgres runs the store lifecycle against a PostgreSQL backend.
func TestPulseWithPostgres(t *testing.T) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_HOST_AUTH_METHOD": "trust",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer func() { _ = pgC.Terminate(ctx) }()

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connStr := fmt.Sprintf("host=%s port=%s user=postgres dbname=postgres sslmode=disable", host, port.Port())
	runStoreLifecycle(t, "postgresql", connStr)
}

// runStoreLifecycle uses one database for both stores; they live in different tables.
func runStoreLifecycle(t *testing.T, backend, connStr string) {
	t.Helper()
	f := newFixture(t)
	env := []string{
		"PULSE_CACHE_BACKEND=" + backend,
		"PULSE_CACHE_DB_CONNECT=" + connStr,
		"PULSE_HISTORY_BACKEND=" + backend,
		"PULSE_HISTORY_DB_CONNECT=" + connStr,
	}

	_, err := runPulse(t, f, env, "cache", "clear")
	require.NoError(t, err)
	_, err = runPulse(t, f, env, "history", "clear")
	require.NoError(t, err)

	for range 2 {
		out, err := runPulse(t, f, env, "authorship", "--output", "json")
		require.NoError(t, err)
		var doc struct {
			AuthorTestCount map[string]int `json:"author_test_count"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &doc))
		assert.Equal(t, map[string]int{"Alice Smith": 2, "Robert Jones": 1}, doc.AuthorTestCount)
	}

	status, err := runPulse(t, f, env, "cache", "status")
	require.NoError(t, err)
	assert.Contains(t, status, "Total Entries: 3")

	status, err = runPulse(t, f, env, "history", "status")
	require.NoError(t, err)
	assert.Contains(t, status, "Total Runs: 2")
	assert.Contains(t, status, "Total Tests Recorded: 6")

	_, err = runPulse(t, f, env, "history", "clear")
	require.NoError(t, err)
	out, err := runPulse(t, f, env, "history", "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "Migrated run history schema")
}
