package score

import (
	"math"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/ppiankov/parafrasa/internal/model"
	"github.com/ppiankov/parafrasa/internal/textutil"
)

// SimilarityWeights combines three overlap signals into one score.
// Weights are relative; they are normalized by their sum.
type SimilarityWeights struct {
	Jaccard  float64 // Word set overlap
	Sequence float64 // Character sequence ratio
	Concept  float64 // Overlap of long content words
}

// DefaultWeights returns the 0.5/0.3/0.2 blend
func DefaultWeights() SimilarityWeights {
	return SimilarityWeights{Jaccard: 0.5, Sequence: 0.3, Concept: 0.2}
}

// WeightsFromConfig converts configured weights, falling back to defaults when all are zero
func WeightsFromConfig(c model.SimilarityConfig) SimilarityWeights {
	w := SimilarityWeights{Jaccard: c.JaccardWeight, Sequence: c.SequenceWeight, Concept: c.ConceptWeight}
	if w.Jaccard+w.Sequence+w.Concept <= 0 {
		return DefaultWeights()
	}
	return w
}

// Similarity scores a and b with the default weights
func Similarity(a, b string) float64 {
	return DefaultWeights().Similarity(a, b)
}

// Similarity returns a [0,100] overlap estimate between a and b.
// Two blank strings are identical; a blank against non-blank shares nothing.
func (w SimilarityWeights) Similarity(a, b string) float64 {
	blankA, blankB := strings.TrimSpace(a) == "", strings.TrimSpace(b) == ""
	switch {
	case blankA && blankB:
		return 100
	case blankA || blankB:
		return 0
	}

	na, nb := textutil.Normalize(a), textutil.Normalize(b)
	if na == nb {
		return 100
	}

	wordsA, wordsB := textutil.Words(na), textutil.Words(nb)
	jaccard := textutil.Jaccard(textutil.WordSet(wordsA), textutil.WordSet(wordsB))
	sequence := SequenceRatio(na, nb)

	conceptA := textutil.ContentWords(wordsA, 4)
	conceptB := textutil.ContentWords(wordsB, 4)
	concept := jaccard
	if len(conceptA) > 0 || len(conceptB) > 0 {
		concept = textutil.Jaccard(textutil.WordSet(conceptA), textutil.WordSet(conceptB))
	}

	total := w.Jaccard + w.Sequence + w.Concept
	if total <= 0 {
		return 0
	}
	combined := (w.Jaccard*jaccard + w.Sequence*sequence + w.Concept*concept) / total
	return model.ClampPercent(math.Round(combined*10000) / 100)
}

// SequenceRatio is the Ratcliff/Obershelp ratio over the runes of a and b, in [0,1]
func SequenceRatio(a, b string) float64 {
	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	m := difflib.NewMatcherWithJunk(runeStrings(a), runeStrings(b), false, nil)
	return m.Ratio()
}

// WordJaccard is the Jaccard ratio over the word sets of a and b, in [0,1]
func WordJaccard(a, b string) float64 {
	return textutil.Jaccard(textutil.WordSet(textutil.Words(a)), textutil.WordSet(textutil.Words(b)))
}

func runeStrings(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
