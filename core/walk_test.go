package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/huangsam/pulse/core/grammar"
	"github.com/huangsam/pulse/internal/contract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFile creates a file and its parent directories under root.
func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDiscoverFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/test/java/com/acme/FooTest.java", "")
	writeFile(t, root, "src/test/kotlin/BarTest.kt", "")
	writeFile(t, root, "src/test/resources/data.json", "")
	writeFile(t, root, "src/test/build/GeneratedTest.java", "")
	writeFile(t, root, "tests/BazTest.java", "")
	writeFile(t, root, "src/main/java/Foo.java", "")

	project := contract.ProjectSpec{
		Name:     "backend",
		Root:     root,
		Subpaths: []string{"src/test", "tests", "missing", "src/test/java"},
	}

	files := discoverFiles(project, []string{"build/"})
	rels := make([]string, 0, len(files))
	for _, f := range files {
		rel, err := filepath.Rel(root, f)
		require.NoError(t, err)
		rels = append(rels, filepath.ToSlash(rel))
	}

	assert.ElementsMatch(t, []string{
		"src/test/java/com/acme/FooTest.java",
		"src/test/kotlin/BarTest.kt",
		"tests/BazTest.java",
	}, rels, "overlapping subpaths are deduplicated and excludes apply")
}

func TestDiscoverAll(t *testing.T) {
	a := t.TempDir()
	b := t.TempDir()
	writeFile(t, a, "src/test/ATest.java", "")
	writeFile(t, b, "src/test/BTest.kt", "")

	files := discoverAll([]contract.ProjectSpec{
		{Name: "a", Root: a, Subpaths: []string{"src/test"}},
		{Name: "b", Root: b, Subpaths: []string{"src/test"}},
	}, nil)

	require.Len(t, files, 2)
	assert.Equal(t, 0, files[0].project)
	assert.Equal(t, grammar.Java, files[0].grammar)
	assert.Equal(t, 1, files[1].project)
	assert.Equal(t, grammar.Kotlin, files[1].grammar)
}
