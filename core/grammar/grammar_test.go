package grammar

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/huangsam/pulse/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForPath(t *testing.T) {
	tests := []struct {
		path string
		want Grammar
		ok   bool
	}{
		{"src/test/java/FooTest.java", Java, true},
		{"src/test/kotlin/BarTest.kt", Kotlin, true},
		{"src/test/kotlin/BarTest.KT", Kotlin, true},
		{"build.gradle.kts", 0, false},
		{"README.md", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := ForPath(tt.path)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
	assert.Equal(t, "java", Java.String())
	assert.Equal(t, "kotlin", Kotlin.String())
}

func TestJavaMatchDeclaration(t *testing.T) {
	tests := []struct {
		line string
		want string
		ok   bool
	}{
		{"    public void shouldRejectInvalidToken() {", "shouldRejectInvalidToken", true},
		{"void testAdd() {", "testAdd", true},
		{"  public static <T> void genericCase(List<T> items) throws Exception {", "genericCase", true},
		{"  protected final Map<String, Integer> buildFixture(int size) throws IOException, TimeoutException {", "buildFixture", true},
		{"  public void allmanStyle()", "allmanStyle", true},
		{"  public void inlineBody() { assertTrue(true); }", "inlineBody", true},
		{"  void multiLineParams(", "multiLineParams", true},
		{"  public void withTempDir(@TempDir Path dir) {", "withTempDir", true},
		{"  assertEquals(1, result);", "", false},
		{"  return compute(x);", "", false},
		{"  String s = compute(x);", "", false},
		{"  // public void commented() {", "", false},
		{"  private int counter;", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := Java.MatchDeclaration(tt.line)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKotlinMatchDeclaration(t *testing.T) {
	tests := []struct {
		line string
		want string
		ok   bool
	}{
		{"    fun `test with spaces`() {", "test with spaces", true},
		{"    fun shouldParse() {", "shouldParse", true},
		{"    fun shouldParse() = runTest {", "shouldParse", true},
		{"    override suspend fun loads() {", "loads", true},
		{"    internal fun <T> generic(value: T) {", "generic", true},
		{"    fun String.extensionCase() {", "extensionCase", true},
		{"    val value = compute()", "", false},
		{"    assertEquals(1, value)", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := Kotlin.MatchDeclaration(tt.line)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStripAnnotations(t *testing.T) {
	assert.Equal(t, "", StripAnnotations("    @Test"))
	assert.Equal(t, "fun foo() {", StripAnnotations("    @Test fun foo() {"))
	assert.Equal(t, "", StripAnnotations(`  @DisplayName("adds (two) numbers")`))
	assert.Equal(t, "", StripAnnotations("  @get:Rule"))
	assert.Equal(t, "public void foo() {", StripAnnotations("@Test @Timeout(5) public void foo() {"))
	assert.Equal(t, "    public void foo() {", StripAnnotations("    public void foo() {"))
	assert.True(t, IsAnnotationLine("   @Disabled"))
	assert.False(t, IsAnnotationLine("   void foo() {"))
}

func TestScanner(t *testing.T) {
	s, err := NewScanner([]string{"@Test", "@InjectedTest"})
	require.NoError(t, err)

	lines := []string{
		"@TestInstance(Lifecycle.PER_CLASS)",
		"class FooTest {",
		"    @Test",
		"    void a() {}",
		"    @Test(expected = IllegalStateException.class)",
		"    void b() {}",
		"    @InjectedTest",
		"    void c() {}",
		"    @Tested",
		"    // see org.junit.@Test",
		"    @Test fun d() {}",
	}
	assert.Equal(t, []int{3, 5, 7, 11}, s.ScanLines(lines))

	_, err = NewScanner([]string{" ", ""})
	assert.Error(t, err)
}

func TestScanFile(t *testing.T) {
	s, err := NewScanner([]string{"@Test"})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "FooTest.java")
	require.NoError(t, os.WriteFile(path, []byte("class FooTest {\r\n  @Test\r\n  void a() {}\r\n}\r\n"), 0o644))
	assert.Equal(t, []int{2}, s.ScanFile(path))

	lines, err := ReadLines(path)
	require.NoError(t, err)
	assert.Equal(t, "  void a() {}", lines[2], "carriage returns are stripped")

	assert.Empty(t, s.ScanFile(filepath.Join(t.TempDir(), "missing.java")))
}

func TestExtractJava(t *testing.T) {
	e := NewExtractor(10, 1, 0)
	lines := []string{
		"package com.acme.auth;",                      // 1
		"class TokenTest {",                           // 2
		"    @Test",                                   // 3
		"    @DisplayName(\"rejects (bad) tokens\")",  // 4
		"",                                            // 5
		"    public void shouldRejectInvalidToken() {", // 6
		"    }",                                       // 7
		"    @Test",                                   // 8
		"    int helper = 0;",                         // 9
		"    public void notReached() {",              // 10
	}

	decl, ok := e.Extract(lines, 3, Java)
	require.True(t, ok)
	assert.Equal(t, Declaration{Name: "shouldRejectInvalidToken", Line: 6}, decl)

	_, ok = e.Extract(lines, 8, Java)
	assert.False(t, ok, "only the first non-annotation line is evaluated")

	_, ok = e.Extract(lines, 0, Java)
	assert.False(t, ok)
	_, ok = e.Extract(lines, 99, Java)
	assert.False(t, ok)
}

func TestExtractSkipsComments(t *testing.T) {
	e := NewExtractor(10, 1, 0)
	lines := []string{
		"    @Test",                        // 1
		"    // covers the empty input",    // 2
		"    public void emptyInput() {",   // 3
		"    @Test",                        // 4
		"    /**",                          // 5
		"     * Javadoc between marker",    // 6
		"     */",                          // 7
		"    @Disabled // flaky on CI",     // 8
		"    /* inline */ void inline() {", // 9
	}

	decl, ok := e.Extract(lines, 1, Java)
	require.True(t, ok)
	assert.Equal(t, Declaration{Name: "emptyInput", Line: 3}, decl)

	decl, ok = e.Extract(lines, 4, Java)
	require.True(t, ok)
	assert.Equal(t, Declaration{Name: "inline", Line: 9}, decl)

	decl, ok = NewExtractor(10, 1, 0).Extract([]string{"@Test", "// note", "fun `kotlin case`() {"}, 1, Kotlin)
	require.True(t, ok)
	assert.Equal(t, "kotlin case", decl.Name)
}

func TestDeclarationText(t *testing.T) {
	assert.Equal(t, "", DeclarationText("    // note"))
	assert.Equal(t, "", DeclarationText("    /** doc */"))
	assert.Equal(t, "", DeclarationText("     * @param x"))
	assert.Equal(t, "", DeclarationText("    @Test // flaky"))
	assert.Equal(t, " void a() {", DeclarationText("/* c */ void a() {"))
	assert.Equal(t, "public void foo() {", DeclarationText("@Test /* c */ @Timeout(5) public void foo() {"))
	assert.Equal(t, "    public void foo() {", DeclarationText("    public void foo() {"))
}

func TestExtractWindow(t *testing.T) {
	lines := []string{"    @Test"}
	for range 10 {
		lines = append(lines, "")
	}
	lines = append(lines, "    public void tooFar() {")

	_, ok := NewExtractor(10, 1, 0).Extract(lines, 1, Java)
	assert.False(t, ok, "declaration on marker+11 is outside the window")

	decl, ok := NewExtractor(11, 1, 0).Extract(lines, 1, Java)
	require.True(t, ok)
	assert.Equal(t, 12, decl.Line)

	_, ok = NewExtractor(10, 1, 0).Extract([]string{"@Test"}, 1, Java)
	assert.False(t, ok, "marker on the last line")
}

func TestExtractKotlin(t *testing.T) {
	e := NewExtractor(10, 1, 0)
	lines := []string{
		"class ParserTest {",
		"    @Test",
		"    fun `test with spaces`() {",
		"    }",
		"    @Test fun inline() {}",
		"    @Test",
		"    @Disabled",
		"    fun disabledCase() {",
	}

	decl, ok := e.Extract(lines, 2, Kotlin)
	require.True(t, ok)
	assert.Equal(t, "test with spaces", decl.Name)

	decl, ok = e.Extract(lines, 5, Kotlin)
	require.True(t, ok)
	assert.Equal(t, Declaration{Name: "inline", Line: 5}, decl)

	decl, ok = e.Extract(lines, 6, Kotlin)
	require.True(t, ok)
	assert.Equal(t, Declaration{Name: "disabledCase", Line: 8}, decl)
}

func TestAnnotationBlock(t *testing.T) {
	lines := []string{
		"class FooTest {",
		"    @Disabled(\"flaky\")",
		"    @Test",
		"    @Tag(\"slow\")",
		"    void slow() {}",
		"    @Test @Ignore fun inline() {}",
	}
	block := AnnotationBlock(lines, 3, Declaration{Name: "slow", Line: 5})
	assert.Equal(t, lines[1:5], block)

	block = AnnotationBlock(lines, 6, Declaration{Name: "inline", Line: 6})
	assert.Equal(t, lines[5:6], block)

	ignore, err := NewScanner([]string{"@Ignore", "@Disabled"})
	require.NoError(t, err)
	assert.True(t, ignore.Matches(lines[1]))
}

func TestPackageAndClass(t *testing.T) {
	assert.Equal(t, "com/acme/auth", PackageOf([]string{"// header", "package com.acme.auth;"}))
	assert.Equal(t, "com/acme/kt", PackageOf([]string{"package com.acme.kt"}))
	assert.Equal(t, schema.UnknownPackage, PackageOf([]string{"class Foo {}"}))
	assert.Equal(t, "FooTest", ClassOf("/repo/src/test/java/FooTest.java"))
	assert.Equal(t, "BarTest", ClassOf("BarTest.kt"))
}
