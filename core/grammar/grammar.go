// Package grammar locates test declarations in Java and Kotlin sources.
//
// Matching is line-local and syntactic: a marker scanner finds annotation
// lines, and an extractor reads the first declaration that follows each one.
package grammar

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Grammar is the closed set of supported source dialects.
type Grammar int

// Supported grammars.
const (
	Java Grammar = iota
	Kotlin
)

var extensions = map[string]Grammar{
	".java": Java,
	".kt":   Kotlin,
}

var (
	javaDeclRegex = regexp.MustCompile(
		`^\s*(?:(?:public|protected|private|static|final|abstract|synchronized|default)\s+)*` +
			`(?:<[^>]+>\s+)?` +
			`(?:[\w\[\]<>?,.]+\s+)+?` +
			`(\w+)\s*\(` +
			`(?:[^)]*\)\s*(?:throws\s+[\w\s,.]+?)?\s*(?:\{.*)?|[^)]*)$`)

	kotlinDeclRegex = regexp.MustCompile(
		`^\s*(?:(?:public|private|internal|protected|override|open|suspend|inline|final|abstract)\s+)*` +
			`fun\s+(?:<[^>]+>\s*)?(?:[\w.]+\.)?` +
			"(?:`([^`]+)`|(\\w+))\\s*\\(")

	// leadingAnnotationsRegex matches annotations at the start of a line,
	// including arguments and use-site targets such as @get:Rule.
	leadingAnnotationsRegex = regexp.MustCompile(`^\s*(?:@[\w.:]+(?:\s*\((?:"[^"]*"|[^)"])*\))?\s*)+`)
)

// ForPath returns the grammar for a source file, keyed by extension.
func ForPath(path string) (Grammar, bool) {
	g, ok := extensions[strings.ToLower(filepath.Ext(path))]
	return g, ok
}

// String implements fmt.Stringer.
func (g Grammar) String() string {
	switch g {
	case Java:
		return "java"
	case Kotlin:
		return "kotlin"
	default:
		return "unknown"
	}
}

// MatchDeclaration returns the method name declared on line, if any.
func (g Grammar) MatchDeclaration(line string) (string, bool) {
	switch g {
	case Java:
		if m := javaDeclRegex.FindStringSubmatch(line); m != nil {
			return m[1], true
		}
	case Kotlin:
		if m := kotlinDeclRegex.FindStringSubmatch(line); m != nil {
			if m[1] != "" {
				return m[1], true
			}
			if m[2] != "" {
				return m[2], true
			}
		}
	}
	return "", false
}

// StripAnnotations removes the annotations that open a line.
func StripAnnotations(line string) string {
	return leadingAnnotationsRegex.ReplaceAllString(line, "")
}

// DeclarationText strips the annotations and comments that open a line,
// leaving the text a declaration would start with. Comment-only lines
// become empty.
func DeclarationText(line string) string {
	for {
		next := StripAnnotations(stripLeadingComment(line))
		if next == line {
			return line
		}
		line = next
	}
}

// stripLeadingComment drops a line comment, or a block comment up to its end
// on this line. Javadoc continuation lines start with "*".
func stripLeadingComment(line string) string {
	t := strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(t, "//"):
		return ""
	case strings.HasPrefix(t, "/*"), strings.HasPrefix(t, "*"):
		body := strings.TrimPrefix(t, "/*")
		if _, rest, ok := strings.Cut(body, "*/"); ok {
			return rest
		}
		return ""
	}
	return line
}

// IsAnnotationLine reports whether a line starts with an annotation.
func IsAnnotationLine(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "@")
}
