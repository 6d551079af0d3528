package core

import (
	"context"
	"testing"

	"github.com/huangsam/pulse/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestGetInventoryResults tests case counting and ignored test detection.
func TestGetInventoryResults(t *testing.T) {
	root := newFixtureProject(t)
	writeFile(t, root, "src/test/java/com/acme/HelperTest.java", "class HelperTest {\n  void helper() {}\n}\n")
	cfg := newFixtureConfig(root)

	inventories, err := GetInventoryResults(WithSuppressHeader(context.Background()), cfg)
	require.NoError(t, err)
	require.Len(t, inventories, 1)

	inv := inventories[0]
	assert.Equal(t, "backend", inv.ProjectName)
	assert.Equal(t, 2, inv.TotalClasses, "files without markers are not test classes")
	assert.Equal(t, 3, inv.TotalCases)
	assert.Equal(t, 1, inv.TotalIgnored)
	assert.InDelta(t, 33.33, inv.IgnoredPercentage, 0.0001)
	assert.Equal(t, []schema.TestCaseInfo{
		{ClassName: "src/test/java/com/acme/FooTest.java", MethodName: "testSub", Ignored: true},
	}, inv.IgnoredTests)
	assert.Equal(t, []schema.TestCaseInfo{
		{ClassName: "src/test/java/com/acme/FooTest.java", MethodName: "testAdd"},
		{ClassName: "src/test/java/com/acme/FooTest.java", MethodName: "testSub", Ignored: true},
		{ClassName: "src/test/kotlin/BarTest.kt", MethodName: "adds numbers"},
	}, inv.TestCases)
}

// TestGetInventoryResults_ProjectFilter tests that only the selected project is reported.
func TestGetInventoryResults_ProjectFilter(t *testing.T) {
	cfg := newFixtureConfig(newFixtureProject(t))
	empty := cfg.Projects[0]
	empty.Name = "empty"
	empty.Root = t.TempDir()
	cfg.Projects = append(cfg.Projects, empty)
	cfg.ProjectFilter = "empty"

	inventories, err := GetInventoryResults(context.Background(), cfg)
	require.NoError(t, err)
	require.Len(t, inventories, 1)
	assert.Equal(t, "empty", inventories[0].ProjectName)
	assert.Zero(t, inventories[0].TotalCases)
	assert.Zero(t, inventories[0].IgnoredPercentage)
	assert.NotNil(t, inventories[0].TestCases)
}

func TestIgnoredPercentage(t *testing.T) {
	assert.Equal(t, 0.0, ignoredPercentage(0, 0))
	assert.Equal(t, 50.0, ignoredPercentage(1, 2))
	assert.Equal(t, 66.67, ignoredPercentage(2, 3))
	assert.Equal(t, 100.0, ignoredPercentage(4, 4))
}
