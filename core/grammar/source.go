package grammar

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/huangsam/pulse/schema"
)

var packageRegex = regexp.MustCompile(`^\s*package\s+([\w.]+)\s*;?`)

// PackageOf returns the slash-delimited package path declared in a source file.
func PackageOf(lines []string) string {
	for _, line := range lines {
		if m := packageRegex.FindStringSubmatch(line); m != nil {
			return strings.ReplaceAll(m[1], ".", "/")
		}
	}
	return schema.UnknownPackage
}

// ClassOf returns the file name of a source file without its extension.
func ClassOf(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
