package routing

import (
	"regexp"
	"strings"

	"github.com/ppiankov/parafrasa/internal/textutil"
)

var (
	citationPattern = regexp.MustCompile(`\(\d{4}\)|et al|vol\.|no\.`)

	// priorityPatterns mark paragraphs that local rewriting handles poorly
	priorityPatterns = []*regexp.Regexp{
		regexp.MustCompile(`menurut\s+\w+\s*\(\d{4}\)`),
		regexp.MustCompile(`berdasarkan\s+penelitian`),
		regexp.MustCompile(`definisi\s+\w+\s+adalah`),
		regexp.MustCompile(`konsep\s+\w+\s+merupakan`),
		regexp.MustCompile(`teori\s+\w+\s+menyatakan`),
		regexp.MustCompile(`sistem\s+informasi\s+adalah`),
		regexp.MustCompile(`penelitian\s+\w+`),
		regexp.MustCompile(`analisis\s+\w+`),
		regexp.MustCompile(`metode\s+\w+`),
		regexp.MustCompile(`hasil\s+\w+`),
	}

	complexityVocabulary = map[string]struct{}{
		"penelitian": {}, "analisis": {}, "metode": {}, "sistem": {}, "implementasi": {},
		"evaluasi": {}, "teori": {}, "konsep": {}, "pendekatan": {}, "metodologi": {},
		"definisi": {}, "klasifikasi": {}, "kategori": {}, "karakteristik": {},
	}
)

// PriorityMatches counts how many priority patterns occur in text
func PriorityMatches(text string) int {
	lower := strings.ToLower(text)
	n := 0
	for _, p := range priorityPatterns {
		if p.MatchString(lower) {
			n++
		}
	}
	return n
}

// Complexity scores text in [0,1] from length, academic vocabulary density,
// citations, priority patterns and sentence length.
func Complexity(text string) float64 {
	words := strings.Fields(text)
	if len(words) == 0 {
		return 0
	}
	n := float64(len(words))

	academic := 0
	for _, w := range words {
		if _, ok := complexityVocabulary[strings.ToLower(strings.Trim(w, ".,;:!?()\"'"))]; ok {
			academic++
		}
	}

	sentences := max(len(textutil.Sentences(text)), 1)
	citations := len(citationPattern.FindAllString(text, -1))

	score := 0.2*min(n/100, 1) +
		0.3*(float64(academic)/n) +
		0.2*min(float64(citations)/3, 1) +
		0.2*(float64(PriorityMatches(text))/float64(len(priorityPatterns))) +
		0.1*min(n/float64(sentences)/25, 1)
	return min(score, 1)
}
