// Package identity canonicalizes the author strings reported by git blame.
package identity

import (
	"maps"
	"slices"
	"strings"
	"unicode"
)

// Normalizer maps raw author strings to canonical display names.
// It is read-only after construction and safe for concurrent use.
type Normalizer struct {
	synonyms map[string]string // formatted alias -> canonical name
}

// NewNormalizer builds a Normalizer from an alias -> canonical table.
// Aliases are matched after formatting, so "asmith" also matches "ASmith".
// When two aliases format alike, the smaller raw alias wins.
// Chains (a -> b, b -> c) are collapsed so every alias resolves in one lookup.
func NewNormalizer(synonyms map[string]string) *Normalizer {
	table := make(map[string]string, len(synonyms))
	for _, alias := range slices.Sorted(maps.Keys(synonyms)) {
		key := Format(alias)
		canonical := strings.TrimSpace(synonyms[alias])
		if key == "" || canonical == "" {
			continue
		}
		if _, taken := table[key]; taken {
			continue
		}
		table[key] = canonical
	}
	return &Normalizer{synonyms: resolveSynonyms(table)}
}

// Normalize returns the canonical name for raw. It is idempotent.
func (n *Normalizer) Normalize(raw string) string {
	formatted := Format(raw)
	if n == nil {
		return formatted
	}
	if canonical, ok := n.synonyms[formatted]; ok {
		return canonical
	}
	return formatted
}

// Format replaces dots with spaces, collapses whitespace and capitalizes
// each token: first letter upper case, the rest lower case.
func Format(raw string) string {
	tokens := strings.Fields(strings.ReplaceAll(raw, ".", " "))
	for i, tok := range tokens {
		tokens[i] = capitalize(tok)
	}
	return strings.Join(tokens, " ")
}

func capitalize(tok string) string {
	var sb strings.Builder
	sb.Grow(len(tok))
	for i, r := range tok {
		if i == 0 {
			sb.WriteRune(unicode.ToUpper(r))
		} else {
			sb.WriteRune(unicode.ToLower(r))
		}
	}
	return sb.String()
}

// resolveSynonyms follows alias chains to their final canonical name and
// registers every canonical name under its own formatted form.
func resolveSynonyms(table map[string]string) map[string]string {
	resolved := make(map[string]string, len(table)*2)
	for key := range table {
		resolved[key] = table[terminalKey(table, key)]
	}

	// Canonical names that format to a key nobody aliased still need an entry,
	// otherwise Normalize("McDonald") would return "Mcdonald".
	canonicalByForm := make(map[string]string)
	for _, canonical := range resolved {
		form := Format(canonical)
		if _, aliased := table[form]; aliased {
			continue
		}
		if prev, ok := canonicalByForm[form]; !ok || canonical < prev {
			canonicalByForm[form] = canonical
		}
	}
	for form, canonical := range canonicalByForm {
		resolved[form] = canonical
	}
	for key, canonical := range resolved {
		if rep, ok := canonicalByForm[Format(canonical)]; ok {
			resolved[key] = rep
		}
	}
	return resolved
}

// terminalKey walks the alias chain starting at key. A cycle resolves to its
// smallest key so that every member agrees on one canonical name.
func terminalKey(table map[string]string, key string) string {
	var visited []string
	current := key
	for {
		if slices.Contains(visited, current) {
			cycle := visited[slices.Index(visited, current):]
			return slices.Min(cycle)
		}
		visited = append(visited, current)
		next := Format(table[current])
		if _, ok := table[next]; !ok || next == current {
			return current
		}
		current = next
	}
}
