package report

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Width(18)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)
)

// RenderSummary prints a boxed run summary for terminals
func (r *Report) RenderSummary(w io.Writer) error {
	s := r.Summary()

	row := func(label, value string) string {
		return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value)
	}

	rows := []string{
		titleStyle.Render(fmt.Sprintf("Run %s (%s)", r.RunID.String()[:8], r.Mode)),
		"",
		row("Paragraphs", fmt.Sprintf("%d", s.Paragraphs)),
		row("Escalated", fmt.Sprintf("%d", s.Escalated)),
		row("Accepted locally", fmt.Sprintf("%d", s.LocalAccepted)),
		row("Cache hits", fmt.Sprintf("%d", s.CacheHits)),
		row("Skipped", fmt.Sprintf("%d", s.Skipped)),
		row("Avg. reduction", fmt.Sprintf("%.1f%%", s.AvgReduction)),
		row("AI usage", fmt.Sprintf("%.0f%%", r.Ledger.AIUsageRatio*100)),
		row("Est. cost", fmt.Sprintf("$%.4f (%d tokens)", r.Ledger.CostEstimate, r.Ledger.TokensEstimate)),
	}
	if s.Fallbacks > 0 {
		rows = append(rows, row("Fallbacks", warnStyle.Render(fmt.Sprintf("%d", s.Fallbacks))))
	}
	if r.Incomplete > 0 {
		rows = append(rows, row("Incomplete", warnStyle.Render(fmt.Sprintf("%d (re-run to resume)", r.Incomplete))))
	}

	box := boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	if _, err := fmt.Fprintln(w, box); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}
