package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"collapses whitespace", "  Penelitian   ini\n\tbertujuan ", "penelitian ini bertujuan"},
		{"folds compatibility forms", "ｓｉｓｔｅｍ", "sistem"},
		{"strips control characters", "data\u0007 set", "data set"},
		{"empty", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestWords(t *testing.T) {
	assert.Equal(t, []string{"langkah-langkah", "penelitian", "2024"}, Words("Langkah-langkah penelitian (2024)."))
	assert.Empty(t, Words("!!! ..."))
}

func TestSentences(t *testing.T) {
	got := Sentences("Kalimat satu. Kalimat dua!  Tiga?")
	assert.Equal(t, []string{"Kalimat satu", "Kalimat dua", "Tiga"}, got)
}

func TestJaccard(t *testing.T) {
	a := WordSet([]string{"a", "b", "c"})
	b := WordSet([]string{"b", "c", "d"})
	assert.InDelta(t, 0.5, Jaccard(a, b), 1e-9)
	assert.Equal(t, 1.0, Jaccard(nil, nil))
	assert.Equal(t, 0.0, Jaccard(a, nil))
}

func TestContentWords(t *testing.T) {
	got := ContentWords([]string{"yang", "penelitian", "data", "bahwa", "metode"}, 4)
	assert.Equal(t, []string{"penelitian", "metode"}, got)
}

func TestEndsWithTerminal(t *testing.T) {
	assert.True(t, EndsWithTerminal("Selesai. "))
	assert.True(t, EndsWithTerminal(`Dia bertanya "kenapa?"`))
	assert.False(t, EndsWithTerminal("tanpa titik"))
}
