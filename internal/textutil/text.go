// Package textutil holds tokenization and normalization shared by the
// transformer, the scorers and the cache.
package textutil

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	wordPattern     = regexp.MustCompile(`[\p{L}\p{N}]+(?:-[\p{L}\p{N}]+)*`)
	sentencePattern = regexp.MustCompile(`[.!?]+`)
)

// Normalize folds text into the canonical form used for hashing and matching:
// NFKC, control characters removed, lower case, single spaces.
func Normalize(s string) string {
	s = norm.NFKC.String(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Words returns the lower-cased word tokens of s
func Words(s string) []string {
	tokens := wordPattern.FindAllString(s, -1)
	for i, t := range tokens {
		tokens[i] = strings.ToLower(t)
	}
	return tokens
}

// WordSpans returns byte offsets [start, end) of every word token in s
func WordSpans(s string) [][]int {
	return wordPattern.FindAllStringIndex(s, -1)
}

// WordCount counts whitespace separated tokens, which is how paragraph
// length thresholds are expressed.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// Sentences splits s on terminal punctuation and drops empty pieces
func Sentences(s string) []string {
	var out []string
	for _, part := range sentencePattern.Split(s, -1) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// WordSet builds a set from a word list
func WordSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// Jaccard returns |a∩b| / |a∪b| in [0,1]. Two empty sets are identical.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	inter := 0
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// RuneLen is the length of s in runes
func RuneLen(s string) int {
	return len([]rune(s))
}

// EndsWithTerminal reports whether s ends in sentence punctuation
func EndsWithTerminal(s string) bool {
	s = strings.TrimRightFunc(s, unicode.IsSpace)
	s = strings.TrimRight(s, `"')]`)
	return strings.HasSuffix(s, ".") || strings.HasSuffix(s, "!") || strings.HasSuffix(s, "?")
}
