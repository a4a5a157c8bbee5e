// Package report collects the per-paragraph traces and ledger of a run and
// renders them as JSON, Markdown or a terminal summary.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/parafrasa/internal/ledger"
	"github.com/ppiankov/parafrasa/internal/model"
)

// Report is the outcome of one processing run
type Report struct {
	RunID      uuid.UUID       `json:"run_id"`
	RunKey     string          `json:"run_key,omitempty"` // Resume key shared by re-entries of the same document
	Source     string          `json:"source,omitempty"`
	Mode       model.Mode      `json:"mode"`
	Provider   string          `json:"provider,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Traces     []model.Result  `json:"traces"`
	Incomplete int             `json:"incomplete,omitempty"` // Paragraphs left unfinished
	Ledger     ledger.Snapshot `json:"ledger"`
}

// Summary aggregates the traces of a report
type Summary struct {
	Paragraphs     int            `json:"paragraphs"`
	Transformed    int            `json:"transformed"` // Went through the local engine
	Escalated      int            `json:"escalated"`
	LocalAccepted  int            `json:"local_accepted"`
	CacheHits      int            `json:"cache_hits"`
	Fallbacks      int            `json:"fallbacks"`
	Skipped        int            `json:"skipped"` // Protected, empty or too short
	AvgReduction   float64        `json:"avg_reduction"`
	ByProvenance   map[string]int `json:"by_provenance"`
	Flagged        int            `json:"flagged"` // Paragraphs with at least one flagged segment
}

// New starts a report for a run
func New(mode model.Mode, runKey, source string) *Report {
	return &Report{
		RunID:     uuid.New(),
		RunKey:    runKey,
		Source:    source,
		Mode:      mode,
		StartedAt: time.Now().UTC(),
	}
}

// Finish attaches the results and ledger and stamps the end time
func (r *Report) Finish(traces []model.Result, incomplete int, snap ledger.Snapshot) {
	r.Traces = traces
	r.Incomplete = incomplete
	r.Ledger = snap
	r.FinishedAt = time.Now().UTC()
}

// Text joins the final paragraph texts in document order
func (r *Report) Text() string {
	parts := make([]string, len(r.Traces))
	for i, t := range r.Traces {
		parts[i] = t.Candidate.Text
	}
	return strings.Join(parts, "\n\n")
}

// Summary computes aggregate counts over the traces
func (r *Report) Summary() Summary {
	s := Summary{
		Paragraphs:   len(r.Traces),
		ByProvenance: make(map[string]int),
	}
	var reductionSum float64
	for _, t := range r.Traces {
		s.ByProvenance[t.Candidate.Provenance]++
		switch t.Candidate.Provenance {
		case model.ProvenanceSkipped, model.ProvenanceProtected, model.ProvenancePassthrough:
			s.Skipped++
			continue
		}
		s.Transformed++
		reductionSum += t.Candidate.PlagiarismReduction
		if t.Decision != nil && t.Decision.Escalate {
			s.Escalated++
		} else {
			s.LocalAccepted++
		}
		if t.CacheHit {
			s.CacheHits++
		}
		if t.Fallback {
			s.Fallbacks++
		}
		if t.Risk != nil && len(t.Risk.FlaggedSegments) > 0 {
			s.Flagged++
		}
	}
	if s.Transformed > 0 {
		s.AvgReduction = reductionSum / float64(s.Transformed)
	}
	return s
}

// RenderJSON writes the report as indented JSON
func (r *Report) RenderJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// RenderMarkdown writes a human-readable Markdown report
func (r *Report) RenderMarkdown(w io.Writer) error {
	s := r.Summary()
	var b strings.Builder

	fmt.Fprintf(&b, "# Paraphrase Report\n\n")
	fmt.Fprintf(&b, "- **Run:** `%s`\n", r.RunID)
	if r.Source != "" {
		fmt.Fprintf(&b, "- **Source:** %s\n", r.Source)
	}
	fmt.Fprintf(&b, "- **Mode:** %s\n", r.Mode)
	if r.Provider != "" {
		fmt.Fprintf(&b, "- **Refiner:** %s\n", r.Provider)
	}
	fmt.Fprintf(&b, "- **Started:** %s\n", r.StartedAt.Format(time.RFC3339))
	if !r.FinishedAt.IsZero() {
		fmt.Fprintf(&b, "- **Duration:** %s\n", r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	}
	b.WriteString("\n## Summary\n\n")
	b.WriteString("| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Paragraphs | %d |\n", s.Paragraphs)
	fmt.Fprintf(&b, "| Transformed | %d |\n", s.Transformed)
	fmt.Fprintf(&b, "| Escalated to AI | %d |\n", s.Escalated)
	fmt.Fprintf(&b, "| Accepted locally | %d |\n", s.LocalAccepted)
	fmt.Fprintf(&b, "| Cache hits | %d |\n", s.CacheHits)
	fmt.Fprintf(&b, "| Fallbacks | %d |\n", s.Fallbacks)
	fmt.Fprintf(&b, "| Skipped | %d |\n", s.Skipped)
	fmt.Fprintf(&b, "| Flagged by risk analysis | %d |\n", s.Flagged)
	if r.Incomplete > 0 {
		fmt.Fprintf(&b, "| Incomplete | %d |\n", r.Incomplete)
	}
	fmt.Fprintf(&b, "| Avg. reduction | %.1f%% |\n", s.AvgReduction)
	fmt.Fprintf(&b, "| AI usage ratio | %.2f |\n", r.Ledger.AIUsageRatio)
	fmt.Fprintf(&b, "| Estimated tokens | %d |\n", r.Ledger.TokensEstimate)
	fmt.Fprintf(&b, "| Estimated cost | $%.4f |\n", r.Ledger.CostEstimate)
	fmt.Fprintf(&b, "| Cost savings | %.1f%% |\n", r.Ledger.CostSavingsPercent)

	if len(s.ByProvenance) > 0 {
		b.WriteString("\n### Provenance\n\n")
		keys := make([]string, 0, len(s.ByProvenance))
		for k := range s.ByProvenance {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "- `%s`: %d\n", k, s.ByProvenance[k])
		}
	}

	b.WriteString("\n## Paragraphs\n")
	for _, t := range r.Traces {
		fmt.Fprintf(&b, "\n### %d. `%s`\n\n", t.ParagraphIndex+1, t.Candidate.Provenance)
		fmt.Fprintf(&b, "- **Reason:** %s\n", t.Reason)
		fmt.Fprintf(&b, "- **Reduction:** %.1f%%\n", t.Candidate.PlagiarismReduction)
		if t.Quality != nil {
			fmt.Fprintf(&b, "- **Quality:** %.0f", t.Quality.Score)
			if len(t.Quality.Issues) > 0 {
				fmt.Fprintf(&b, " (%s)", strings.Join(t.Quality.Issues, "; "))
			}
			b.WriteString("\n")
		}
		if t.Risk != nil && !t.Risk.Disabled {
			fmt.Fprintf(&b, "- **Risk:** %.1f", t.Risk.RiskScore)
			if len(t.Risk.FlaggedSegments) > 0 {
				fmt.Fprintf(&b, " (%d flagged: %s)", len(t.Risk.FlaggedSegments), strings.Join(t.Risk.Categories(), ", "))
			}
			b.WriteString("\n")
		}
		if t.AIError != "" {
			fmt.Fprintf(&b, "- **AI error:** %s\n", t.AIError)
		}
		if t.Candidate.Text != t.Original {
			fmt.Fprintf(&b, "\n> %s\n\n%s\n", t.Original, t.Candidate.Text)
		} else {
			fmt.Fprintf(&b, "\n%s\n", t.Candidate.Text)
		}
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("write markdown: %w", err)
	}
	return nil
}

// WriteFiles renders the report to the given paths; empty paths are skipped
func (r *Report) WriteFiles(jsonPath, mdPath, textPath string) error {
	if jsonPath != "" {
		if err := writeFile(jsonPath, r.RenderJSON); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
	}
	if mdPath != "" {
		if err := writeFile(mdPath, r.RenderMarkdown); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
	}
	if textPath != "" {
		if err := writeFile(textPath, func(w io.Writer) error {
			_, err := io.WriteString(w, r.Text()+"\n")
			return err
		}); err != nil {
			return fmt.Errorf("write text: %w", err)
		}
	}
	return nil
}

func writeFile(path string, render func(io.Writer) error) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, closeErr)
		}
	}()
	return render(f)
}
