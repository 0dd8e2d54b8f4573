// Package sentences segments paragraphs for sentence-by-sentence analysis.
package sentences

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Split breaks paragraph into sentences. A boundary is terminal punctuation
// (. ! ?) followed by whitespace and then an uppercase letter; the
// punctuation stays with the left sentence and the whitespace is dropped.
// Uppercase means any Unicode uppercase letter, not only ASCII A-Z, so
// "Fin. Élan" splits after "Fin.".
// Input without a boundary comes back whole, and blank input yields nil.
func Split(paragraph string) []string {
	trimmed := strings.TrimSpace(paragraph)
	if trimmed == "" {
		return nil
	}

	var out []string
	start := 0
	for i := 0; i < len(trimmed); {
		r, size := utf8.DecodeRuneInString(trimmed[i:])
		i += size
		if !isTerminal(r) {
			continue
		}
		next, ok := boundaryAfter(trimmed, i)
		if !ok {
			continue
		}
		out = appendFragment(out, trimmed[start:i])
		start = next
		i = next
	}
	out = appendFragment(out, trimmed[start:])
	return out
}

// boundaryAfter reports whether whitespace followed by an uppercase letter
// begins at pos, returning the offset of that letter.
func boundaryAfter(s string, pos int) (int, bool) {
	j := pos
	for j < len(s) {
		r, size := utf8.DecodeRuneInString(s[j:])
		if !unicode.IsSpace(r) {
			break
		}
		j += size
	}
	if j == pos || j >= len(s) {
		return 0, false
	}
	r, _ := utf8.DecodeRuneInString(s[j:])
	if !unicode.IsUpper(r) {
		return 0, false
	}
	return j, true
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func appendFragment(out []string, fragment string) []string {
	if f := strings.TrimSpace(fragment); f != "" {
		return append(out, f)
	}
	return out
}
