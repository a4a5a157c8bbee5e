package model

import (
	"fmt"
	"strings"
)

// Mode selects the routing policy applied to a paragraph
type Mode string

const (
	ModeSmart        Mode = "smart"         // Minimize AI usage
	ModeBalanced     Mode = "balanced"      // Target a fixed AI usage ratio
	ModeAggressive   Mode = "aggressive"    // Escalate every paragraph long enough
	ModeTurnitinSafe Mode = "turnitin_safe" // Never accept risky local output
)

// Modes lists every supported mode in a stable order
func Modes() []Mode {
	return []Mode{ModeSmart, ModeBalanced, ModeAggressive, ModeTurnitinSafe}
}

// ParseMode converts a user supplied name into a Mode
func ParseMode(s string) (Mode, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	name = strings.ReplaceAll(name, "-", "_")
	for _, m := range Modes() {
		if string(m) == name {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown mode: %q (supported: smart, balanced, aggressive, turnitin_safe)", s)
}

// Valid reports whether m is one of the known modes
func (m Mode) Valid() bool {
	switch m {
	case ModeSmart, ModeBalanced, ModeAggressive, ModeTurnitinSafe:
		return true
	}
	return false
}

func (m Mode) String() string {
	return string(m)
}

// ModeConfig is the immutable threshold bundle for a mode.
// Ratios are in [0,1]; AcademicSimilarityCeiling is a similarity percentage.
type ModeConfig struct {
	LocalConfidenceThreshold  float64 `json:"local_confidence_threshold" yaml:"local_confidence_threshold" mapstructure:"local_confidence_threshold"`
	ComplexityThreshold       float64 `json:"complexity_threshold" yaml:"complexity_threshold" mapstructure:"complexity_threshold"`
	AIUsageTarget             float64 `json:"ai_usage_target" yaml:"ai_usage_target" mapstructure:"ai_usage_target"`
	MinParagraphLength        int     `json:"min_paragraph_length" yaml:"min_paragraph_length" mapstructure:"min_paragraph_length"`
	RiskSensitivity           float64 `json:"risk_sensitivity" yaml:"risk_sensitivity" mapstructure:"risk_sensitivity"`
	AcademicSimilarityCeiling float64 `json:"academic_similarity_ceiling" yaml:"academic_similarity_ceiling" mapstructure:"academic_similarity_ceiling"`
}

// Validate checks that every threshold is inside its range
func (c ModeConfig) Validate() error {
	ratios := map[string]float64{
		"local_confidence_threshold": c.LocalConfidenceThreshold,
		"complexity_threshold":       c.ComplexityThreshold,
		"ai_usage_target":            c.AIUsageTarget,
		"risk_sensitivity":           c.RiskSensitivity,
	}
	for name, v := range ratios {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be in [0,1], got %.2f", name, v)
		}
	}
	if c.MinParagraphLength < 0 {
		return fmt.Errorf("min_paragraph_length must be >= 0, got %d", c.MinParagraphLength)
	}
	if c.AcademicSimilarityCeiling < 0 || c.AcademicSimilarityCeiling > 100 {
		return fmt.Errorf("academic_similarity_ceiling must be in [0,100], got %.2f", c.AcademicSimilarityCeiling)
	}
	return nil
}

// DefaultModeConfigs returns the built-in threshold bundles
func DefaultModeConfigs() map[Mode]ModeConfig {
	return map[Mode]ModeConfig{
		ModeSmart: {
			LocalConfidenceThreshold:  0.25,
			ComplexityThreshold:       0.7,
			AIUsageTarget:             0.3,
			MinParagraphLength:        40,
			RiskSensitivity:           0.8,
			AcademicSimilarityCeiling: 70,
		},
		ModeBalanced: {
			LocalConfidenceThreshold:  0.15,
			ComplexityThreshold:       0.4,
			AIUsageTarget:             0.5,
			MinParagraphLength:        25,
			RiskSensitivity:           0.6,
			AcademicSimilarityCeiling: 70,
		},
		ModeAggressive: {
			LocalConfidenceThreshold:  0.1,
			ComplexityThreshold:       0.3,
			AIUsageTarget:             0.8,
			MinParagraphLength:        15,
			RiskSensitivity:           0.5,
			AcademicSimilarityCeiling: 70,
		},
		ModeTurnitinSafe: {
			LocalConfidenceThreshold:  0.35,
			ComplexityThreshold:       0.8,
			AIUsageTarget:             0.6,
			MinParagraphLength:        50,
			RiskSensitivity:           0.9,
			AcademicSimilarityCeiling: 70,
		},
	}
}
