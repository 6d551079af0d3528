package grammar

import "strings"

// Declaration is a test method found after a marker.
type Declaration struct {
	Name string
	Line int // 1-based
}

// Extractor resolves the method declared after a marker line.
type Extractor struct {
	window       int
	startOffsets map[Grammar]int
}

// NewExtractor creates an extractor whose window spans the lines from
// marker+offset through marker+window.
func NewExtractor(window, javaOffset, kotlinOffset int) *Extractor {
	return &Extractor{
		window: window,
		startOffsets: map[Grammar]int{
			Java:   javaOffset,
			Kotlin: kotlinOffset,
		},
	}
}

// Extract returns the declaration that follows the marker at markerLine (1-based).
// Blank, annotation-only and comment-only lines are skipped. The first other line
// is the only candidate: if it does not match the grammar nothing is returned.
func (e *Extractor) Extract(lines []string, markerLine int, g Grammar) (Declaration, bool) {
	markerIdx := markerLine - 1
	if markerIdx < 0 || markerIdx >= len(lines) {
		return Declaration{}, false
	}
	end := min(markerIdx+e.window, len(lines)-1)
	for i := markerIdx + e.startOffsets[g]; i <= end; i++ {
		candidate := DeclarationText(lines[i])
		if strings.TrimSpace(candidate) == "" {
			continue
		}
		name, ok := g.MatchDeclaration(candidate)
		if !ok {
			return Declaration{}, false
		}
		return Declaration{Name: name, Line: i + 1}, true
	}
	return Declaration{}, false
}

// AnnotationBlock returns the annotation lines that decorate a declaration:
// the annotations directly above the marker through the declaration line itself.
func AnnotationBlock(lines []string, markerLine int, decl Declaration) []string {
	start := markerLine - 1
	for start > 0 && IsAnnotationLine(lines[start-1]) {
		start--
	}
	end := min(decl.Line, len(lines))
	return lines[start:end]
}
