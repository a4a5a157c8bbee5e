package transform

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/ppiankov/parafrasa/internal/textutil"
)

var (
	chapterPattern   = regexp.MustCompile(`(?i)^(bab\s+[ivxlc]+|chapter\s+\d+)\b`)
	numberedHeading  = regexp.MustCompile(`^\d+(\.\d+)+\.?\s+\S`)
	referencePattern = regexp.MustCompile(`^(\[\d+\]\s+\S.*|[\p{Lu}][\p{L}'-]+,\s+(?:[\p{Lu}]\.\s*)+.*\(\d{4}[a-z]?\).*)$`)

	sectionHeadings = map[string]bool{
		"abstrak": true, "abstract": true, "kata pengantar": true, "daftar isi": true,
		"daftar tabel": true, "daftar gambar": true, "daftar pustaka": true,
		"pendahuluan": true, "latar belakang": true, "rumusan masalah": true,
		"tinjauan pustaka": true, "landasan teori": true, "metodologi penelitian": true,
		"metode penelitian": true, "hasil dan pembahasan": true, "kesimpulan": true,
		"saran": true, "penutup": true, "lampiran": true, "referensi": true,
	}
)

// Protected reports whether text is structural content that must never be
// rewritten (titles, headings, reference entries) and why.
func Protected(text string) (bool, string) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false, ""
	}
	words := textutil.WordCount(trimmed)

	switch {
	case chapterPattern.MatchString(trimmed) && words <= 12:
		return true, "Chapter title"
	case numberedHeading.MatchString(trimmed) && words <= 12:
		return true, "Numbered heading"
	case sectionHeadings[strings.ToLower(strings.TrimRight(trimmed, ".:"))]:
		return true, "Section heading"
	case words <= 10 && allCapsLine(trimmed):
		return true, "Title line"
	case referencePattern.MatchString(trimmed):
		return true, "Reference entry"
	}
	return false, ""
}

func allCapsLine(s string) bool {
	letters := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			letters++
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return letters >= 3
}
