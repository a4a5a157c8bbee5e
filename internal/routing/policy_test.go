package routing

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/parafrasa/internal/model"
)

func newTestPolicy() *Policy {
	return NewPolicy(nil, 60, 0.9)
}

func input(mode model.Mode, text string, similarity float64) Input {
	return Input{
		Request: model.Request{Text: text, Mode: mode},
		Local:   model.NewCandidate(text, similarity, nil, "local"),
		Quality: model.QualityAssessment{Score: 90},
	}
}

func TestIndexFactor(t *testing.T) {
	for i := range 500 {
		f := IndexFactor(i)
		assert.GreaterOrEqual(t, f, 0.0)
		assert.Less(t, f, 1.0)
		assert.Equal(t, f, IndexFactor(i))
	}
	assert.NotEqual(t, IndexFactor(1), IndexFactor(2))
}

func TestComplexity(t *testing.T) {
	assert.Zero(t, Complexity(""))

	plain := Complexity("Kucing itu tidur di sofa.")
	academic := Complexity("Menurut Sutanto (2019) penelitian analisis sistem informasi menggunakan metode evaluasi dan pendekatan teori, et al. vol. 2 no. 3")

	assert.Less(t, plain, 0.2)
	assert.Greater(t, academic, plain)
	assert.LessOrEqual(t, academic, 1.0)
}

func TestPriorityMatches(t *testing.T) {
	assert.Equal(t, 0, PriorityMatches("Kucing itu tidur di sofa."))
	assert.Equal(t, 2, PriorityMatches("Menurut Sutanto (2019) sistem informasi adalah kumpulan komponen."))
	assert.Equal(t, 1, PriorityMatches("Penelitian ini bertujuan untuk mengembangkan sistem informasi"))
}

func TestSufficient(t *testing.T) {
	p := newTestPolicy()

	ok, reason := p.Sufficient(model.ModeSmart, model.QualityAssessment{Score: 80}, model.NewCandidate("x", 60, nil, "local"))
	assert.True(t, ok)
	assert.Contains(t, reason, "Local result sufficient")

	ok, _ = p.Sufficient(model.ModeSmart, model.QualityAssessment{Score: 40}, model.NewCandidate("x", 60, nil, "local"))
	assert.False(t, ok, "low quality")

	ok, _ = p.Sufficient(model.ModeSmart, model.QualityAssessment{Score: 80}, model.NewCandidate("x", 90, nil, "local"))
	assert.False(t, ok, "low reduction")

	for _, m := range []model.Mode{model.ModeBalanced, model.ModeAggressive, model.ModeTurnitinSafe} {
		ok, _ = p.Sufficient(m, model.QualityAssessment{Score: 100}, model.NewCandidate("x", 0, nil, "local"))
		assert.False(t, ok, m.String())
	}
}

func TestDecide_Smart(t *testing.T) {
	p := newTestPolicy()
	text := "Kucing itu tidur di sofa merah sepanjang hari."

	tests := []struct {
		name       string
		similarity float64
		escalate   bool
		reason     string
	}{
		{"low reduction", 90, true, "Low local reduction"},
		{"adequate", 60, false, "Local processing adequate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := p.Decide(input(model.ModeSmart, text, tt.similarity))
			assert.Equal(t, tt.escalate, d.Escalate)
			assert.Contains(t, d.Reason, tt.reason)
		})
	}

	d := p.Decide(input(model.ModeSmart, "Menurut Sutanto (2019) sistem informasi adalah kumpulan komponen.", 50))
	assert.True(t, d.Escalate)
	assert.Equal(t, "Multiple academic patterns (2)", d.Reason)
}

func TestDecide_SmartResidualSimilarity(t *testing.T) {
	cfg := model.DefaultModeConfigs()
	smart := cfg[model.ModeSmart]
	smart.LocalConfidenceThreshold = 0.1
	cfg[model.ModeSmart] = smart
	p := NewPolicy(cfg, 60, 0.9)

	d := p.Decide(input(model.ModeSmart, "Kucing itu tidur di sofa.", 85))

	assert.True(t, d.Escalate)
	assert.Equal(t, "High plagiarism risk (85.0%)", d.Reason)
}

func TestDecide_Aggressive(t *testing.T) {
	p := newTestPolicy()

	long := strings.Repeat("kata ", 20)
	d := p.Decide(input(model.ModeAggressive, long, 10))
	assert.True(t, d.Escalate)
	assert.Equal(t, "Aggressive mode: always refine", d.Reason)

	d = p.Decide(input(model.ModeAggressive, "terlalu pendek", 100))
	assert.False(t, d.Escalate)
	assert.Equal(t, "Too short for aggressive mode (2 words)", d.Reason)
}

func TestDecide_TurnitinSafe(t *testing.T) {
	p := newTestPolicy()
	text := "Penelitian ini bertujuan untuk"

	t.Run("high risk pattern", func(t *testing.T) {
		in := input(model.ModeTurnitinSafe, text, 40)
		in.Risk = &model.RiskAssessment{
			RiskScore:     100,
			WindowCount:   1,
			MaxSimilarity: 1,
			BestCategory:  "academic_templates",
			FlaggedSegments: []model.FlaggedSegment{
				{StartWord: 0, EndWord: 4, Similarity: 1, Category: "academic_templates"},
			},
		}

		d := p.Decide(in)

		assert.True(t, d.Escalate)
		assert.Contains(t, d.Reason, "High-risk pattern detected")
		assert.Contains(t, d.Reason, "academic_templates")
	})

	t.Run("two high risk segments", func(t *testing.T) {
		in := input(model.ModeTurnitinSafe, text, 40)
		in.Risk = &model.RiskAssessment{
			RiskScore: 50,
			FlaggedSegments: []model.FlaggedSegment{
				{Similarity: 0.95, Category: "academic_boilerplate"},
				{Similarity: 0.92, Category: "academic_boilerplate"},
			},
		}

		d := p.Decide(in)

		assert.True(t, d.Escalate)
		assert.Equal(t, "High-risk segments detected (2)", d.Reason)
	})

	t.Run("disabled risk skips pattern rules", func(t *testing.T) {
		in := input(model.ModeTurnitinSafe, "Kucing itu tidur di sofa.", 40)
		in.Risk = &model.RiskAssessment{Disabled: true}

		d := p.Decide(in)

		assert.False(t, d.Escalate)
		assert.Equal(t, "Local result within safe margins", d.Reason)
	})

	t.Run("academic ceiling", func(t *testing.T) {
		cfg := model.DefaultModeConfigs()
		ts := cfg[model.ModeTurnitinSafe]
		ts.LocalConfidenceThreshold = 0.1
		ts.RiskSensitivity = 0.95
		ts.ComplexityThreshold = 1
		cfg[model.ModeTurnitinSafe] = ts
		p := NewPolicy(cfg, 60, 0.9)

		in := input(model.ModeTurnitinSafe, "Kucing itu tidur di sofa.", 75)
		in.Academic = true

		d := p.Decide(in)

		assert.True(t, d.Escalate)
		assert.Contains(t, d.Reason, "similarity ceiling")
	})
}

func TestDecide_BalancedConvergesToTarget(t *testing.T) {
	p := newTestPolicy()
	target := p.Config(model.ModeBalanced).AIUsageTarget
	vocab := []string{"kucing", "rumah", "jalan", "pohon", "langit", "sungai", "buku", "meja", "kursi", "pintu"}
	rng := rand.New(rand.NewPCG(7, 11))

	const n = 1000
	escalated := 0
	for i := range n {
		words := make([]string, 3+rng.IntN(18))
		for j := range words {
			words[j] = vocab[rng.IntN(len(vocab))]
		}
		in := input(model.ModeBalanced, strings.Join(words, " ")+".", 40)
		in.Request.ParagraphIndex = i
		if p.Decide(in).Escalate {
			escalated++
		}
	}

	ratio := float64(escalated) / n
	assert.InDelta(t, target, ratio, 0.1)
}

func TestDecide_BalancedIsDeterministic(t *testing.T) {
	p := newTestPolicy()
	in := input(model.ModeBalanced, strings.Repeat("kata biasa ", 20), 40)

	for i := range 50 {
		in.Request.ParagraphIndex = i
		first := p.Decide(in)
		second := p.Decide(in)
		require.Equal(t, first, second)
	}
}

func TestDecide_BalancedLowerCriteria(t *testing.T) {
	p := newTestPolicy()
	text := strings.Repeat("kata biasa ", 15) // 30 words, over min length

	// find an index whose draw does not select the paragraph
	idx := 0
	for IndexFactor(idx) < 0.5 {
		idx++
	}
	in := input(model.ModeBalanced, text, 95)
	in.Request.ParagraphIndex = idx

	d := p.Decide(in)

	assert.True(t, d.Escalate)
	assert.Contains(t, d.Reason, "Low local reduction")
}
