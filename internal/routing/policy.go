// Package routing decides, per mode, whether a paragraph is escalated to the AI refiner.
package routing

import (
	"fmt"
	"math"
	"strings"

	"github.com/ppiankov/parafrasa/internal/model"
)

// Input is everything a routing decision depends on
type Input struct {
	Request  model.Request
	Local    model.Candidate
	Quality  model.QualityAssessment
	Risk     *model.RiskAssessment
	Academic bool
}

// Policy maps each mode to its thresholds
type Policy struct {
	modes            map[model.Mode]model.ModeConfig
	qualityThreshold float64
	highRisk         float64
}

// NewPolicy creates a routing policy. Modes missing from modes use their defaults.
func NewPolicy(modes map[model.Mode]model.ModeConfig, qualityThreshold, highRiskThreshold float64) *Policy {
	merged := model.DefaultModeConfigs()
	for m, c := range modes {
		merged[m] = c
	}
	return &Policy{modes: merged, qualityThreshold: qualityThreshold, highRisk: highRiskThreshold}
}

// Config returns the thresholds for mode
func (p *Policy) Config(mode model.Mode) model.ModeConfig {
	return p.modes[mode]
}

// Sufficient is the quality gate that lets SMART accept a local candidate without
// risk assessment. Other modes always continue to routing.
func (p *Policy) Sufficient(mode model.Mode, quality model.QualityAssessment, local model.Candidate) (bool, string) {
	if mode != model.ModeSmart {
		return false, ""
	}
	cfg := p.modes[mode]
	if quality.Score >= p.qualityThreshold && local.PlagiarismReduction >= cfg.LocalConfidenceThreshold*100 {
		return true, fmt.Sprintf("Local result sufficient (reduction %.1f%%, quality %.0f)", local.PlagiarismReduction, quality.Score)
	}
	return false, ""
}

// Decide computes the routing decision for in
func (p *Policy) Decide(in Input) model.RoutingDecision {
	cfg := p.modes[in.Request.Mode]
	switch in.Request.Mode {
	case model.ModeBalanced:
		return p.decideBalanced(in, cfg)
	case model.ModeAggressive:
		return decideAggressive(in, cfg)
	case model.ModeTurnitinSafe:
		return p.decideTurnitinSafe(in, cfg)
	default:
		return decideSmart(in, cfg)
	}
}

func decideSmart(in Input, cfg model.ModeConfig) model.RoutingDecision {
	if in.Local.PlagiarismReduction < cfg.LocalConfidenceThreshold*100 {
		return escalate("Low local reduction (%.1f%% < %.0f%%)", in.Local.PlagiarismReduction, cfg.LocalConfidenceThreshold*100)
	}
	if c := Complexity(in.Request.Text); c >= cfg.ComplexityThreshold {
		return escalate("High complexity (%.2f)", c)
	}
	if m := PriorityMatches(in.Request.Text); m >= 2 {
		return escalate("Multiple academic patterns (%d)", m)
	}
	if in.Local.Similarity >= cfg.RiskSensitivity*100 {
		return escalate("High plagiarism risk (%.1f%%)", in.Local.Similarity)
	}
	return accept("Local processing adequate")
}

func (p *Policy) decideBalanced(in Input, cfg model.ModeConfig) model.RoutingDecision {
	words := len(strings.Fields(in.Request.Text))
	complexity := Complexity(in.Request.Text)
	matches := PriorityMatches(in.Request.Text)

	prob := cfg.AIUsageTarget
	if complexity > 0.5 {
		prob += 0.2
	}
	prob += 0.1 * float64(matches)
	if words > 50 {
		prob += 0.1
	}
	prob = min(prob, 1)

	if f := IndexFactor(in.Request.ParagraphIndex); f < prob {
		return escalate("Balanced selection (p=%.2f, draw=%.2f)", prob, f)
	}

	if words < cfg.MinParagraphLength {
		return accept("Paragraph too short (%d words)", words)
	}
	if in.Local.PlagiarismReduction < cfg.LocalConfidenceThreshold*100 {
		return escalate("Low local reduction (%.1f%% < %.0f%%)", in.Local.PlagiarismReduction, cfg.LocalConfidenceThreshold*100)
	}
	if complexity >= cfg.ComplexityThreshold {
		return escalate("High complexity (%.2f)", complexity)
	}
	if matches >= 1 {
		return escalate("Academic pattern detected (%d)", matches)
	}
	return accept("Local processing adequate")
}

func decideAggressive(in Input, cfg model.ModeConfig) model.RoutingDecision {
	words := len(strings.Fields(in.Request.Text))
	if words >= cfg.MinParagraphLength {
		return escalate("Aggressive mode: always refine")
	}
	return accept("Too short for aggressive mode (%d words)", words)
}

func (p *Policy) decideTurnitinSafe(in Input, cfg model.ModeConfig) model.RoutingDecision {
	if in.Risk != nil && !in.Risk.Disabled {
		if n := in.Risk.HighRisk(p.highRisk); n >= 2 {
			return escalate("High-risk segments detected (%d)", n)
		}
		if in.Risk.RiskScore >= cfg.RiskSensitivity*100 {
			category := in.Risk.BestCategory
			if category == "" {
				category = "unknown"
			}
			return escalate("High-risk pattern detected: %s (risk %.1f)", category, in.Risk.RiskScore)
		}
	}
	if in.Local.PlagiarismReduction < cfg.LocalConfidenceThreshold*100 {
		return escalate("Low local reduction (%.1f%% < %.0f%%)", in.Local.PlagiarismReduction, cfg.LocalConfidenceThreshold*100)
	}
	if in.Local.Similarity >= cfg.RiskSensitivity*100 {
		return escalate("High residual similarity (%.1f%%)", in.Local.Similarity)
	}
	if c := Complexity(in.Request.Text); c >= cfg.ComplexityThreshold {
		return escalate("High complexity (%.2f)", c)
	}
	if in.Academic && in.Local.Similarity > cfg.AcademicSimilarityCeiling {
		return escalate("Academic text above similarity ceiling (%.1f%% > %.0f%%)", in.Local.Similarity, cfg.AcademicSimilarityCeiling)
	}
	return accept("Local result within safe margins")
}

// IndexFactor maps a paragraph index to a reproducible value in [0,1).
// It stands in for a random draw so batches route identically across runs.
func IndexFactor(index int) float64 {
	z := uint64(index) + 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	z ^= z >> 31
	return float64(z>>11) / math.Exp2(53)
}

func escalate(format string, args ...any) model.RoutingDecision {
	return model.RoutingDecision{Escalate: true, Reason: fmt.Sprintf(format, args...)}
}

func accept(format string, args ...any) model.RoutingDecision {
	return model.RoutingDecision{Escalate: false, Reason: fmt.Sprintf(format, args...)}
}
