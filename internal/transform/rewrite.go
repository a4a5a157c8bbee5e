package transform

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var upperCaser = cases.Upper(language.Indonesian)

// span is a byte range [start, end) of text produced by an earlier rewrite
type span struct {
	start, end int
}

// draft is text under rewrite plus the spans that must not be touched again
type draft struct {
	text      string
	protected []span
}

// overlaps reports whether [start, end) touches any protected span
func (d *draft) overlaps(start, end int) bool {
	for _, s := range d.protected {
		if start < s.end && s.start < end {
			return true
		}
	}
	return false
}

// replace swaps text[start:end] for repl and protects the new range
func (d *draft) replace(start, end int, repl string) {
	delta := len(repl) - (end - start)
	kept := d.protected[:0]
	for _, s := range d.protected {
		switch {
		case s.end <= start:
			kept = append(kept, s)
		case s.start >= end:
			kept = append(kept, span{s.start + delta, s.end + delta})
		}
	}
	d.protected = append(kept, span{start, start + len(repl)})
	d.text = d.text[:start] + repl + d.text[end:]
}

// matchCase gives repl the capitalization style of original
func matchCase(original, repl string) string {
	if isAllUpper(original) {
		return upperCaser.String(repl)
	}
	first, _ := utf8.DecodeRuneInString(original)
	if unicode.IsUpper(first) {
		return capitalize(repl)
	}
	return repl
}

func isAllUpper(s string) bool {
	letters := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			letters++
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	// A single capital is title case, not upper case
	return letters > 1
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// phrasePattern builds a case-insensitive, word-bounded pattern for phrase
func phrasePattern(phrase string) string {
	parts := strings.Fields(phrase)
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return `(?i)\b` + strings.Join(parts, `\s+`) + `\b`
}
