package risk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/parafrasa/internal/cache"
	"github.com/ppiankov/parafrasa/internal/model"
	"github.com/ppiankov/parafrasa/internal/patterns"
)

type staticSource struct {
	entries []model.PatternEntry
	version uint64
	calls   int
}

func (s *staticSource) Entries() []model.PatternEntry {
	s.calls++
	return s.entries
}

func (s *staticSource) Version() uint64 { return s.version }

func newTestAnalyzer(t *testing.T, memo cache.Cache) *Analyzer {
	t.Helper()
	db, err := patterns.Default()
	require.NoError(t, err)
	return NewAnalyzer(db, model.DefaultConfig().Risk, memo, nil)
}

func TestSegment(t *testing.T) {
	tests := []struct {
		name string
		n    int
		want []Window
	}{
		{"empty", 0, nil},
		{"single window", 4, []Window{{0, 0, 4}}},
		{"exactly max", 15, []Window{{0, 0, 15}}},
		{"two windows", 20, []Window{{0, 0, 15}, {1, 12, 20}}},
		{"tail extends last window", 26, []Window{{0, 0, 15}, {1, 12, 26}}},
		{"short tail realigned", 28, []Window{{0, 0, 15}, {1, 12, 27}, {2, 23, 28}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Segment(tt.n, 5, 15, 3))
		})
	}
}

func TestSegment_CoversEveryWord(t *testing.T) {
	for n := 1; n <= 120; n++ {
		windows := Segment(n, 5, 15, 3)
		require.NotEmpty(t, windows, "n=%d", n)

		covered := make([]bool, n)
		for _, w := range windows {
			assert.LessOrEqual(t, w.End-w.Start, 15, "n=%d", n)
			if n >= 5 {
				assert.GreaterOrEqual(t, w.End-w.Start, 5, "n=%d", n)
			}
			for i := w.Start; i < w.End; i++ {
				covered[i] = true
			}
		}
		for i, c := range covered {
			assert.True(t, c, "word %d of %d uncovered", i, n)
		}
		assert.Equal(t, n, windows[len(windows)-1].End)
	}
}

func TestAssess_ExactTemplate(t *testing.T) {
	a := newTestAnalyzer(t, nil)

	got := a.Assess("Penelitian ini bertujuan untuk.")

	assert.Equal(t, 1, got.WindowCount)
	require.Len(t, got.FlaggedSegments, 1)
	seg := got.FlaggedSegments[0]
	assert.Equal(t, "academic_templates", seg.Category)
	assert.Equal(t, "penelitian ini bertujuan untuk", seg.MatchedPattern)
	assert.Equal(t, 0, seg.StartWord)
	assert.Equal(t, 4, seg.EndWord)
	assert.InDelta(t, 1.0, seg.Similarity, 1e-9)
	assert.InDelta(t, 100.0, got.RiskScore, 1e-9)
	assert.Equal(t, "academic_templates", got.BestCategory)
}

func TestAssess_UnrelatedText(t *testing.T) {
	a := newTestAnalyzer(t, nil)

	got := a.Assess("Kucing itu tidur nyenyak di atas sofa merah sepanjang siang hari.")

	assert.Empty(t, got.FlaggedSegments)
	assert.Less(t, got.RiskScore, 60.0)
	assert.False(t, got.Disabled)
}

func TestAssess_LongParagraphFlagsWindow(t *testing.T) {
	phrase := "satu dua tiga empat lima enam tujuh delapan sembilan sepuluh sebelas duabelas tigabelas empatbelas limabelas"
	src := &staticSource{
		entries: []model.PatternEntry{{Category: "custom", Phrase: phrase, Weight: 1}},
		version: 1,
	}
	a := NewAnalyzer(src, model.DefaultConfig().Risk, nil, nil)
	filler := "kucing anjing burung ikan kuda sapi kambing ayam bebek angsa domba rusa harimau singa gajah"

	got := a.Assess(phrase + " " + filler)

	assert.Equal(t, 3, got.WindowCount)
	require.Len(t, got.FlaggedSegments, 1)
	assert.Equal(t, 0, got.FlaggedSegments[0].StartWord)
	assert.Equal(t, 15, got.FlaggedSegments[0].EndWord)
	assert.InDelta(t, 1.0, got.MaxSimilarity, 1e-9)
	// 100 * (0.4 * 1/3 + 0.6 * 1)
	assert.InDelta(t, 73.33, got.RiskScore, 1e-9)
}

func TestAssess_MemoizesWindows(t *testing.T) {
	memo := cache.NewMemoryCache(0, 0)
	a := newTestAnalyzer(t, memo)
	text := "Dapat disimpulkan bahwa metode tersebut efektif."

	first := a.Assess(text)
	n := memo.Len()
	second := a.Assess(text)

	assert.Equal(t, first, second)
	assert.Equal(t, n, memo.Len())
	assert.Positive(t, n)
}

func TestAssess_RecompilesOnVersionChange(t *testing.T) {
	src := &staticSource{
		entries: []model.PatternEntry{{Category: "custom", Phrase: "kalimat pertama", Weight: 1}},
		version: 1,
	}
	a := NewAnalyzer(src, model.DefaultConfig().Risk, nil, nil)

	a.Assess("kalimat pertama")
	a.Assess("kalimat kedua")
	assert.Equal(t, 1, src.calls)

	src.entries = append(src.entries, model.PatternEntry{Category: "custom", Phrase: "kalimat kedua", Weight: 1})
	src.version = 2
	got := a.Assess("kalimat kedua")

	assert.Equal(t, 2, src.calls)
	require.Len(t, got.FlaggedSegments, 1)
	assert.Equal(t, "kalimat kedua", got.FlaggedSegments[0].MatchedPattern)
}

func TestAssess_CategoryWeightFallback(t *testing.T) {
	src := &staticSource{
		entries: []model.PatternEntry{{Category: "domain_terms", Phrase: "basis data relasional"}},
		version: 1,
	}
	a := NewAnalyzer(src, model.DefaultConfig().Risk, nil, nil)

	got := a.Assess("basis data relasional")

	assert.InDelta(t, 50.0, got.RiskScore, 1e-9)
}

func TestAssess_Disabled(t *testing.T) {
	a := NewAnalyzer(nil, model.DefaultConfig().Risk, nil, nil)

	got := a.Assess(strings.Repeat("penelitian ini bertujuan untuk ", 5))

	assert.False(t, a.Enabled())
	assert.True(t, got.Disabled)
	assert.Zero(t, got.RiskScore)
	assert.Empty(t, got.FlaggedSegments)
}
