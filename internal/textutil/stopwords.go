package textutil

var stopwords = map[string]struct{}{}

func init() {
	for _, w := range []string{
		"yang", "dan", "di", "ke", "dari", "dalam", "untuk", "pada", "dengan",
		"adalah", "akan", "atau", "juga", "telah", "dapat", "tidak", "ada",
		"ini", "itu", "saya", "kami", "kita", "mereka", "sudah", "belum",
		"masih", "sangat", "sekali", "lebih", "bahwa", "karena", "jika",
		"maka", "saja", "hanya", "bisa", "semua", "oleh", "sebagai", "para",
	} {
		stopwords[w] = struct{}{}
	}
}

// IsStopword reports whether the lower-cased word carries no content
func IsStopword(word string) bool {
	_, ok := stopwords[word]
	return ok
}

// ContentWords keeps words longer than minRunes that are not stopwords
func ContentWords(words []string, minRunes int) []string {
	var out []string
	for _, w := range words {
		if RuneLen(w) > minRunes && !IsStopword(w) {
			out = append(out, w)
		}
	}
	return out
}
