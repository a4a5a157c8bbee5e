package llm

import (
	"errors"
	"strings"
	"testing"

	"github.com/ppiankov/parafrasa/internal/model"
)

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt(RefineRequest{
		Text: "  Hasil penelitian menunjukkan bahwa metode ini efektif.  ",
		Context: RefinementContext{
			Mode:            model.ModeTurnitinSafe,
			RiskCategories:  []string{"academic_boilerplate", "methodology_patterns"},
			TargetReduction: 35,
			QualityIssues:   []string{"Low word variety"},
		},
	})

	for _, want := range []string{
		modeGuidance[model.ModeTurnitinSafe],
		"Target perubahan minimal: 35%",
		"academic_boilerplate, methodology_patterns",
		"Low word variety",
		"PARAGRAF_1: Hasil penelitian menunjukkan bahwa metode ini efektif.",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestBuildPrompt_Minimal(t *testing.T) {
	prompt := BuildPrompt(RefineRequest{Text: "Teks."})

	if strings.Contains(prompt, "Target perubahan") || strings.Contains(prompt, "berisiko") {
		t.Errorf("unexpected optional sections:\n%s", prompt)
	}
	if !strings.HasSuffix(prompt, "PARAGRAF_1: Teks.") {
		t.Errorf("unexpected prompt tail:\n%s", prompt)
	}
}

func TestCleanResponse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", "Studi ini membangun sistem.", "Studi ini membangun sistem."},
		{"marker", "PARAGRAF_1: Studi ini membangun sistem.", "Studi ini membangun sistem."},
		{"quoted", `"Studi ini membangun sistem."`, "Studi ini membangun sistem."},
		{"curly quotes", "“Studi ini membangun sistem.”", "Studi ini membangun sistem."},
		{"marker then quotes", "PARAGRAF_2: \"Studi ini.\"", "Studi ini."},
		{"html", "<div><p>Studi ini</p><p>membangun <em>sistem</em>.</p></div>", "Studi ini membangun sistem."},
		{"script dropped", "<p>Studi ini.</p><script>alert(1)</script>", "Studi ini."},
		{"whitespace", "  Studi\n\nini   membangun\tsistem.  ", "Studi ini membangun sistem."},
		{"comparison sign kept", "Nilai a < b pada uji ini.", "Nilai a < b pada uji ini."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cleanResponse(tt.raw)
			if err != nil {
				t.Fatalf("cleanResponse(%q) error: %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("cleanResponse(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestCleanResponse_Empty(t *testing.T) {
	for _, raw := range []string{"", "   ", `""`, "PARAGRAF_1:", "<p></p>"} {
		if _, err := cleanResponse(raw); !errors.Is(err, ErrMalformedResponse) {
			t.Errorf("cleanResponse(%q) expected ErrMalformedResponse, got %v", raw, err)
		}
	}
}
