package transform

import (
	"regexp"
	"strings"

	"github.com/ppiankov/parafrasa/internal/model"
)

// structuralRule rewrites one regex match into a new arrangement
type structuralRule struct {
	name    string
	pattern *regexp.Regexp
	rewrite func(text string, m []int) string
}

var passiveVerbs = map[string]string{
	"menggunakan":   "digunakan",
	"mengembangkan": "dikembangkan",
	"menganalisis":  "dianalisis",
	"menerapkan":    "diterapkan",
	"mengumpulkan":  "dikumpulkan",
}

func defaultStructuralRules() []structuralRule {
	return []structuralRule{
		{
			// "Peneliti menggunakan metode survei" -> "Metode survei digunakan oleh peneliti"
			name:    "active_to_passive",
			pattern: regexp.MustCompile(`(?i)\b(peneliti|penulis|kami|responden|pengguna)\s+(menggunakan|mengembangkan|menganalisis|menerapkan|mengumpulkan)\s+([\p{L}]+(?:\s+[\p{L}]+)?)`),
			rewrite: func(text string, m []int) string {
				subject := strings.ToLower(text[m[2]:m[3]])
				verb := passiveVerbs[strings.ToLower(text[m[4]:m[5]])]
				object := text[m[6]:m[7]]
				if atSentenceStart(text, m[0]) {
					object = capitalize(object)
				}
				return object + " " + verb + " oleh " + subject
			},
		},
		{
			name:    "clause_connective",
			pattern: regexp.MustCompile(`(?:^|[.!?]\s+)(Oleh karena itu|Selain itu|Dengan demikian),`),
			rewrite: swapGroup(1, map[string]string{
				"Oleh karena itu": "Dengan demikian",
				"Selain itu":      "Di samping itu",
				"Dengan demikian": "Oleh sebab itu",
			}),
		},
		{
			// "sangat penting" -> "penting sekali"
			name:    "intensity_adverb",
			pattern: regexp.MustCompile(`(?i)\bsangat\s+([\p{L}]+)`),
			rewrite: func(text string, m []int) string {
				repl := text[m[2]:m[3]] + " sekali"
				return matchCase(text[m[0]:m[1]], repl)
			},
		},
	}
}

// swapGroup replaces capture group g with its mapped value, keeping the rest of the match
func swapGroup(g int, table map[string]string) func(string, []int) string {
	return func(text string, m []int) string {
		start, end := m[2*g], m[2*g+1]
		return text[m[0]:start] + table[text[start:end]] + text[end:m[1]]
	}
}

func atSentenceStart(text string, pos int) bool {
	before := strings.TrimRight(text[:pos], " \t\n")
	return before == "" || strings.HasSuffix(before, ".") || strings.HasSuffix(before, "!") || strings.HasSuffix(before, "?")
}

// restructure applies each structural rule at most once
func (e *Engine) restructure(d *draft) []model.Change {
	var changes []model.Change
	for _, rule := range e.structural {
		for _, m := range rule.pattern.FindAllStringSubmatchIndex(d.text, -1) {
			if d.overlaps(m[0], m[1]) {
				continue
			}
			original := d.text[m[0]:m[1]]
			repl := rule.rewrite(d.text, m)
			if repl == original {
				continue
			}
			d.replace(m[0], m[1], repl)
			changes = append(changes, model.Change{
				Type:        model.ChangeStructure,
				Original:    original,
				Replacement: repl,
				Position:    m[0],
			})
			break
		}
	}
	return changes
}
