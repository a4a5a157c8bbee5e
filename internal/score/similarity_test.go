package score

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimilarity_Boundaries(t *testing.T) {
	texts := []string{
		"Penelitian ini bertujuan untuk mengembangkan sistem informasi",
		"a",
		"!!!",
		"Metode kualitatif digunakan dalam studi ini.",
	}
	for _, text := range texts {
		t.Run(text, func(t *testing.T) {
			assert.Equal(t, 100.0, Similarity(text, text))
			assert.Equal(t, 0.0, Similarity(text, ""))
			assert.Equal(t, 0.0, Similarity("", text))
		})
	}
	assert.Equal(t, 100.0, Similarity("", ""))
	assert.Equal(t, 100.0, Similarity("  ", "\n"))
}

func TestSimilarity_IgnoresCaseAndSpacing(t *testing.T) {
	assert.Equal(t, 100.0, Similarity("Sistem  Informasi", "sistem informasi"))
}

func TestSimilarity_Bounded(t *testing.T) {
	pairs := [][2]string{
		{"penelitian ini bertujuan", "studi ini dimaksudkan"},
		{"sistem informasi akademik", "kucing tidur di sofa"},
		{"hasil analisis data", "hasil analisis data menunjukkan peningkatan"},
	}
	for _, p := range pairs {
		s := Similarity(p[0], p[1])
		assert.GreaterOrEqual(t, s, 0.0)
		assert.Less(t, s, 100.0)
	}
}

func TestSimilarity_Monotonic(t *testing.T) {
	base := "penelitian ini bertujuan untuk mengembangkan sistem informasi"
	oneChange := "studi ini bertujuan untuk mengembangkan sistem informasi"
	twoChanges := "studi ini dimaksudkan untuk mengembangkan sistem informasi"
	unrelated := "kucing tidur nyenyak di atas sofa merah"

	s1 := Similarity(base, oneChange)
	s2 := Similarity(base, twoChanges)
	s3 := Similarity(base, unrelated)
	assert.Greater(t, s1, s2)
	assert.Greater(t, s2, s3)
}

func TestSimilarityWeights_Normalized(t *testing.T) {
	w := SimilarityWeights{Jaccard: 5, Sequence: 3, Concept: 2}
	a, b := "hasil penelitian menunjukkan", "temuan studi memperlihatkan"
	assert.InDelta(t, Similarity(a, b), w.Similarity(a, b), 0.01)
}

func TestSequenceRatio(t *testing.T) {
	assert.Equal(t, 1.0, SequenceRatio("abc", "abc"))
	assert.Equal(t, 0.0, SequenceRatio("abc", ""))
	assert.InDelta(t, 0.75, SequenceRatio("abcd", "bcde"), 1e-9)
}

func TestWordJaccard(t *testing.T) {
	assert.InDelta(t, 1.0/3.0, WordJaccard("sistem informasi", "sistem pakar"), 1e-9)
}
