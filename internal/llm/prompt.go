package llm

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/ppiankov/parafrasa/internal/model"
)

// systemPrompt is shared by every adapter
const systemPrompt = "Anda adalah editor akademik berbahasa Indonesia. Tulis ulang paragraf yang diberikan " +
	"dengan kata dan struktur kalimat yang berbeda, pertahankan makna, istilah teknis, angka, dan sitasi. " +
	"Jawab hanya dengan paragraf hasil tulis ulang tanpa komentar."

var (
	markerPattern = regexp.MustCompile(`(?m)^\s*PARAGRAF_\d+\s*:\s*`)
	tagPattern    = regexp.MustCompile(`<[a-zA-Z/][^>]*>`)
)

var modeGuidance = map[model.Mode]string{
	model.ModeSmart:        "Lakukan perubahan secukupnya agar tetap alami.",
	model.ModeBalanced:     "Ubah susunan kalimat dan pilihan kata secara seimbang.",
	model.ModeAggressive:   "Ubah struktur setiap kalimat secara menyeluruh.",
	model.ModeTurnitinSafe: "Hindari frasa baku yang umum pada karya ilmiah dan ubah struktur setiap kalimat.",
}

// BuildPrompt renders the user prompt for one refinement
func BuildPrompt(req RefineRequest) string {
	var b strings.Builder
	rc := req.Context

	b.WriteString("Tulis ulang paragraf berikut.\n")
	if g, ok := modeGuidance[rc.Mode]; ok {
		b.WriteString(g)
		b.WriteString("\n")
	}
	if rc.TargetReduction > 0 {
		fmt.Fprintf(&b, "Target perubahan minimal: %.0f%% dari teks asli.\n", rc.TargetReduction)
	}
	if len(rc.RiskCategories) > 0 {
		fmt.Fprintf(&b, "Bagian berisiko tinggi terdeteksi (%s); ubah bagian tersebut secara khusus.\n", strings.Join(rc.RiskCategories, ", "))
	}
	if len(rc.QualityIssues) > 0 {
		fmt.Fprintf(&b, "Perbaiki juga masalah berikut: %s.\n", strings.Join(rc.QualityIssues, "; "))
	}
	b.WriteString("\nPARAGRAF_1: ")
	b.WriteString(strings.TrimSpace(req.Text))
	return b.String()
}

// cleanResponse strips markup, markers and quoting from a model answer
func cleanResponse(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	if tagPattern.MatchString(text) {
		extracted, err := htmlText(text)
		if err != nil {
			return "", malformed("parse html: %v", err)
		}
		text = extracted
	}

	text = markerPattern.ReplaceAllString(text, "")
	text = strings.Join(strings.Fields(text), " ")
	text = trimQuotes(text)

	if text == "" {
		return "", malformed("empty response")
	}
	return text, nil
}

// htmlText returns the visible text of an HTML fragment
func htmlText(fragment string) (string, error) {
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Script, atom.Style:
				return
			case atom.Br, atom.P, atom.Div, atom.Li:
				b.WriteString(" ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return b.String(), nil
}

func trimQuotes(s string) string {
	pairs := [][2]string{{`"`, `"`}, {"'", "'"}, {"“", "”"}, {"«", "»"}}
	for {
		trimmed := false
		for _, p := range pairs {
			if len(s) >= len(p[0])+len(p[1]) && strings.HasPrefix(s, p[0]) && strings.HasSuffix(s, p[1]) {
				s = strings.TrimSpace(s[len(p[0]) : len(s)-len(p[1])])
				trimmed = true
			}
		}
		if !trimmed {
			return s
		}
	}
}

// estimateTokens approximates usage when a provider reports none
func estimateTokens(prompt, response string) int {
	return (len(prompt) + len(response)) / 4
}
