package grammar

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

const maxLineBytes = 1 << 20

// Scanner finds lines that carry one of a fixed set of annotation markers.
type Scanner struct {
	re *regexp.Regexp
}

// NewScanner compiles a scanner for the given markers. A marker only matches
// as a whole token, so @Test does not match @TestInstance.
func NewScanner(markers []string) (*Scanner, error) {
	var quoted []string
	for _, m := range markers {
		if m = strings.TrimSpace(m); m != "" {
			quoted = append(quoted, regexp.QuoteMeta(m))
		}
	}
	if len(quoted) == 0 {
		return nil, errors.New("at least one marker is required")
	}
	re, err := regexp.Compile(`(?:^|[^\w.])(?:` + strings.Join(quoted, "|") + `)(?:$|[^\w])`)
	if err != nil {
		return nil, fmt.Errorf("invalid markers: %w", err)
	}
	return &Scanner{re: re}, nil
}

// Matches reports whether line carries a marker.
func (s *Scanner) Matches(line string) bool {
	return s.re.MatchString(line)
}

// ScanLines returns the 1-based numbers of marker lines, ascending.
func (s *Scanner) ScanLines(lines []string) []int {
	var out []int
	for i, line := range lines {
		if s.Matches(line) {
			out = append(out, i+1)
		}
	}
	return out
}

// ScanFile returns the marker lines of a file. A file that cannot be read
// has no markers.
func (s *Scanner) ScanFile(path string) []int {
	lines, err := ReadLines(path)
	if err != nil {
		return nil
	}
	return s.ScanLines(lines)
}

// ReadLines reads a source file into lines without trailing newlines.
func ReadLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for sc.Scan() {
		lines = append(lines, strings.TrimSuffix(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return lines, nil
}
